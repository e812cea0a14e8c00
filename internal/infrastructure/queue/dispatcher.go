package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/smartrecipehub/recipe-hub/internal/api/metrics"
	"github.com/smartrecipehub/recipe-hub/internal/core/ports"
	"github.com/smartrecipehub/recipe-hub/internal/infrastructure/mail"
)

const (
	defaultWorkers = 2
	channelBuffer  = 64
	sendTimeout    = 30 * time.Second
)

// ErrQueueFull is returned when the worker owning a recipient has no room left.
var ErrQueueFull = errors.New("mail queue full")

// Dispatcher delivers outbound mail on a fixed set of workers. Messages are
// sharded by recipient so mail to one address is sent in order.
type Dispatcher struct {
	workers  []chan mail.Message
	sender   mail.Sender
	resetURL string
	log      zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, sender mail.Sender, resetURL string, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:  make([]chan mail.Message, numWorkers),
		sender:   sender,
		resetURL: resetURL,
		log:      log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan mail.Message, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue hands msg to the worker responsible for its recipient without
// blocking. A full worker channel yields ErrQueueFull.
func (d *Dispatcher) Enqueue(msg mail.Message) error {
	idx := d.shardIndex(msg.To)
	select {
	case d.workers[idx] <- msg:
		metrics.MailQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return nil
	default:
		return ErrQueueFull
	}
}

// SendPasswordReset queues the reset email for email.
func (d *Dispatcher) SendPasswordReset(_ context.Context, email, username, token string) error {
	msg, err := mail.PasswordReset(d.resetURL, email, username, token)
	if err != nil {
		return err
	}
	return d.Enqueue(msg)
}

// shardIndex maps a recipient deterministically to a worker index.
func (d *Dispatcher) shardIndex(recipient string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(recipient)))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan mail.Message) {
	depth := metrics.MailQueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			depth.Set(float64(len(ch)))
			d.deliver(ctx, id, msg)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, id int, msg mail.Message) {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	start := time.Now()
	err := d.sender.Send(sendCtx, msg)
	metrics.MailDeliveryDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.MailSentTotal.WithLabelValues("failed").Inc()
		d.log.Error().Err(err).
			Str("subject", msg.Subject).
			Int("worker_id", id).
			Msg("mail delivery failed")
		return
	}
	metrics.MailSentTotal.WithLabelValues("sent").Inc()
	d.log.Debug().Str("subject", msg.Subject).Int("worker_id", id).Msg("mail delivered")
}

var _ ports.PasswordResetMailer = (*Dispatcher)(nil)
