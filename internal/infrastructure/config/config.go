package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/sethvargo/go-envconfig"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	Port          string   `env:"PORT,            default=5000"`
	Env           string   `env:"ENV,             default=development"`
	JWTSecret     string   `env:"JWT_SECRET,      required"`
	LogLevel      string   `env:"LOG_LEVEL,       default=info"`
	CORSOrigins   []string `env:"CORS_ORIGINS,    default=http://localhost:3000"`
	PublicBaseURL string   `env:"PUBLIC_BASE_URL, default=http://localhost:5000"`
	SentryDSN     string   `env:"SENTRY_DSN"`
	// TrustedProxies are CIDRs whose X-Forwarded-For header is believed.
	// Empty means client IPs come from the TCP peer only.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	Mongo  MongoConfig
	Redis  RedisConfig
	Auth   AuthConfig
	Upload UploadConfig
	Mail   MailConfig
	Admin  AdminConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=recipe_hub"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type AuthConfig struct {
	TokenTTL          time.Duration `env:"AUTH_TOKEN_TTL,     default=24h"`
	BcryptCost        int           `env:"AUTH_BCRYPT_COST,   default=12"`
	MinPasswordLength int           `env:"AUTH_MIN_PASSWORD,  default=8"`
	MaxLoginAttempts  int           `env:"AUTH_MAX_ATTEMPTS,  default=5"`
	LockDuration      time.Duration `env:"AUTH_LOCK_DURATION, default=2h"`
	RateLimit         int           `env:"AUTH_RATE_LIMIT,    default=20"`
	RateWindow        time.Duration `env:"AUTH_RATE_WINDOW,   default=15m"`
}

type UploadConfig struct {
	Dir       string `env:"UPLOAD_DIR,        default=./uploads"`
	MaxBytes  int64  `env:"UPLOAD_MAX_BYTES,  default=10485760"`
	MaxWidth  int    `env:"UPLOAD_MAX_WIDTH,  default=1600"`
	MaxPixels int    `env:"UPLOAD_MAX_PIXELS, default=40000000"`
}

type MailConfig struct {
	Host             string `env:"SMTP_HOST"`
	Port             int    `env:"SMTP_PORT,          default=587"`
	User             string `env:"SMTP_USER"`
	Password         string `env:"SMTP_PASSWORD"`
	From             string `env:"MAIL_FROM,          default=no-reply@recipehub.local"`
	PasswordResetURL string `env:"PASSWORD_RESET_URL, default=http://localhost:3000/reset-password"`
}

type AdminConfig struct {
	Username string `env:"ADMIN_USERNAME"`
	Email    string `env:"ADMIN_EMAIL"`
	Password string `env:"ADMIN_PASSWORD"`
}

// Enabled reports whether the admin bootstrap credentials are complete.
func (a AdminConfig) Enabled() bool {
	return a.Username != "" && a.Email != "" && a.Password != ""
}

// Enabled reports whether an SMTP relay is configured.
func (m MailConfig) Enabled() bool {
	return m.Host != ""
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration through the given lookuper and validates it.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// Validate checks constraints envconfig cannot express.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("AUTH_BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("AUTH_TOKEN_TTL must be positive"))
	}
	if c.Auth.MinPasswordLength < 1 {
		errs = append(errs, errors.New("AUTH_MIN_PASSWORD must be positive"))
	}
	if c.Auth.MaxLoginAttempts > 0 && c.Auth.LockDuration <= 0 {
		errs = append(errs, errors.New("AUTH_LOCK_DURATION must be positive when lockout is enabled"))
	}
	if c.Auth.RateLimit < 0 || (c.Auth.RateLimit > 0 && c.Auth.RateWindow <= 0) {
		errs = append(errs, errors.New("AUTH_RATE_LIMIT and AUTH_RATE_WINDOW must be positive"))
	}
	if c.Upload.MaxBytes <= 0 || c.Upload.MaxWidth <= 0 || c.Upload.MaxPixels <= 0 {
		errs = append(errs, errors.New("UPLOAD_MAX_BYTES, UPLOAD_MAX_WIDTH and UPLOAD_MAX_PIXELS must be positive"))
	}
	if _, err := c.ProxyNets(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ProxyNets parses TrustedProxies. Bare addresses are taken as single hosts.
func (c *Config) ProxyNets() ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(c.TrustedProxies))
	for _, raw := range c.TrustedProxies {
		if ip := net.ParseIP(raw); ip != nil {
			bits := 8 * net.IPv6len
			if ip.To4() != nil {
				ip, bits = ip.To4(), 8*net.IPv4len
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(raw)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: invalid entry %q", raw)
		}
		nets = append(nets, n)
	}
	return nets, nil
}
