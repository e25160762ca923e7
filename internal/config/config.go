package config

import (
	"github.com/kelseyhightower/envconfig"
)

// Config is the full runtime configuration, loaded from the environment.
// Gateway credentials are required with no defaults: the process must not
// come up half-configured and silently skip payment verification.
type Config struct {
	Port    string `envconfig:"PORT" default:"8080"`
	BaseURL string `envconfig:"BASE_URL" default:"http://localhost:8080"`
	DBDSN   string `envconfig:"DB_DSN" required:"true"`

	CookieSecret      string `envconfig:"COOKIE_SECRET" required:"true"`
	CartCookieName    string `envconfig:"CART_COOKIE_NAME" default:"hp_cart"`
	SessionCookieName string `envconfig:"SESSION_COOKIE_NAME" default:"hp_session"`
	SecureCookies     bool   `envconfig:"SECURE_COOKIES" default:"false"`

	Esewa  EsewaConfig
	Khalti KhaltiConfig

	PaymentSuccessURL string `envconfig:"PAYMENT_SUCCESS_URL" required:"true"`
	PaymentFailureURL string `envconfig:"PAYMENT_FAILURE_URL" required:"true"`

	// Optional integrations. Empty brokers disables event publishing.
	KafkaBrokers string `envconfig:"KAFKA_BROKERS" default:""`

	SMTP SMTPConfig
}

type EsewaConfig struct {
	MerchantID string `envconfig:"ESEWA_MERCHANT_ID" required:"true"`
	SecretKey  string `envconfig:"ESEWA_SECRET_KEY" required:"true"`
	BaseURL    string `envconfig:"ESEWA_BASE_URL" required:"true"`
}

type KhaltiConfig struct {
	PublicKey string `envconfig:"KHALTI_PUBLIC_KEY" required:"true"`
	SecretKey string `envconfig:"KHALTI_SECRET_KEY" required:"true"`
	BaseURL   string `envconfig:"KHALTI_BASE_URL" required:"true"`
}

type SMTPConfig struct {
	Host          string `envconfig:"SMTP_HOST" default:""`
	Port          string `envconfig:"SMTP_PORT" default:"1025"`
	User          string `envconfig:"SMTP_USER" default:""`
	Pass          string `envconfig:"SMTP_PASS" default:""`
	From          string `envconfig:"SMTP_FROM" default:"no-reply@hamropasal.com"`
	TLSMode       string `envconfig:"SMTP_TLS_MODE" default:"none"` // none|starttls|tls
	SkipVerifyTLS bool   `envconfig:"SMTP_SKIP_VERIFY_TLS" default:"false"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
