package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Checkout     CheckoutConfig
	Gateway      GatewayConfig
	Shipping     ShippingConfig
	Mail         MailConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Eventing     EventingConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LUNERA_APP_ENV" required:"true"`
	Port         string `envconfig:"LUNERA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LUNERA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LUNERA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"LUNERA_DB_DSN"`
	Driver string `envconfig:"LUNERA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LUNERA_DB_HOST"`
	LegacyPort     int    `envconfig:"LUNERA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LUNERA_DB_USER"`
	LegacyPassword string `envconfig:"LUNERA_DB_PASSWORD"`
	LegacyName     string `envconfig:"LUNERA_DB_NAME"`
	LegacySSLMode  string `envconfig:"LUNERA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LUNERA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LUNERA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LUNERA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LUNERA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LUNERA_REDIS_URL" required:"true"`
	PoolSize     int           `envconfig:"LUNERA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LUNERA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LUNERA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LUNERA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LUNERA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"LUNERA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"LUNERA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"LUNERA_JWT_EXPIRATION_MINUTES" default:"60"`
}

// CheckoutConfig bounds what the order builder accepts and how shipping is
// priced. Amounts are decimal strings so "49.90" survives exactly.
type CheckoutConfig struct {
	FreeShippingThreshold string `envconfig:"LUNERA_CHECKOUT_FREE_SHIPPING_THRESHOLD" default:"500"`
	FlatShippingFee       string `envconfig:"LUNERA_CHECKOUT_FLAT_SHIPPING_FEE" default:"49.90"`
	MaxCartLines          int    `envconfig:"LUNERA_CHECKOUT_MAX_CART_LINES" default:"50"`
}

func (c CheckoutConfig) validate() error {
	if _, err := decimal.NewFromString(c.FreeShippingThreshold); err != nil {
		return fmt.Errorf("invalid free shipping threshold %q: %w", c.FreeShippingThreshold, err)
	}
	if _, err := decimal.NewFromString(c.FlatShippingFee); err != nil {
		return fmt.Errorf("invalid flat shipping fee %q: %w", c.FlatShippingFee, err)
	}
	if c.MaxCartLines <= 0 {
		return fmt.Errorf("max cart lines must be positive, got %d", c.MaxCartLines)
	}
	return nil
}

// Threshold returns the parsed free-shipping threshold. validate() has
// already run by the time anything calls this.
func (c CheckoutConfig) Threshold() decimal.Decimal {
	v, _ := decimal.NewFromString(c.FreeShippingThreshold)
	return v
}

// ShippingFee returns the parsed flat shipping fee.
func (c CheckoutConfig) ShippingFee() decimal.Decimal {
	v, _ := decimal.NewFromString(c.FlatShippingFee)
	return v
}

// GatewayConfig points at the hosted checkout form provider.
type GatewayConfig struct {
	BaseURL            string        `envconfig:"LUNERA_GATEWAY_BASE_URL" required:"true"`
	APIKey             string        `envconfig:"LUNERA_GATEWAY_API_KEY" required:"true"`
	Secret             string        `envconfig:"LUNERA_GATEWAY_SECRET" required:"true"`
	VerifyTimeout      time.Duration `envconfig:"LUNERA_GATEWAY_VERIFY_TIMEOUT" default:"10s"`
	CallbackURL        string        `envconfig:"LUNERA_GATEWAY_CALLBACK_URL" required:"true"`
	SuccessRedirectURL string        `envconfig:"LUNERA_GATEWAY_SUCCESS_REDIRECT_URL" required:"true"`
	FailureRedirectURL string        `envconfig:"LUNERA_GATEWAY_FAILURE_REDIRECT_URL" required:"true"`
}

// ShippingConfig lists the carrier hosts admins may use for tracking links.
type ShippingConfig struct {
	AllowedCarrierDomains []string `envconfig:"LUNERA_SHIPPING_ALLOWED_CARRIER_DOMAINS" default:"ups.com,fedex.com,dhl.com,usps.com"`
}

type MailConfig struct {
	BaseURL     string `envconfig:"LUNERA_MAIL_BASE_URL"`
	APIKey      string `envconfig:"LUNERA_MAIL_API_KEY"`
	DefaultFrom string `envconfig:"LUNERA_MAIL_FROM_EMAIL" default:"orders@lunera.shop"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"LUNERA_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"LUNERA_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"LUNERA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"LUNERA_PUBSUB_ORDERS_TOPIC" default:"lunera-order-events"`
	OrdersSubscription string `envconfig:"LUNERA_PUBSUB_ORDERS_SUBSCRIPTION" default:"lunera-order-mailer"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"LUNERA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"LUNERA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"LUNERA_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"LUNERA_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	CallbackTokenTTL     time.Duration `envconfig:"LUNERA_EVENTING_CALLBACK_TOKEN_TTL" default:"24h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"LUNERA_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
