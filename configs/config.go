package configs

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	domain "github.com/lavanya11112/SEPROJECT/internal/entity"
	"github.com/shopspring/decimal"
)

const envPrefix = "RESTO_"

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		HTTPAddr string `koanf:"http_addr"`
		LogLevel string `koanf:"log_level"`
		LogFile  string `koanf:"log_file"`
	} `koanf:"app"`

	HTTP struct {
		ReadTimeout     time.Duration `koanf:"read_timeout"`
		WriteTimeout    time.Duration `koanf:"write_timeout"`
		IdleTimeout     time.Duration `koanf:"idle_timeout"`
		RequestTimeout  time.Duration `koanf:"request_timeout"`
		ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	} `koanf:"http"`

	MySQL struct {
		DSN             string        `koanf:"dsn"`
		MaxOpenConns    int           `koanf:"max_open_conns"`
		MaxIdleConns    int           `koanf:"max_idle_conns"`
		ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	} `koanf:"mysql"`

	Redis struct {
		Addr      string        `koanf:"addr"`
		Password  string        `koanf:"password"`
		DB        int           `koanf:"db"`
		StatusTTL time.Duration `koanf:"status_ttl"`
	} `koanf:"redis"`

	Idempotency struct {
		TTL       time.Duration `koanf:"ttl"`
		LedgerTTL time.Duration `koanf:"ledger_ttl"`
	} `koanf:"idempotency"`

	Rabbit struct {
		URL         string `koanf:"url"`
		Exchange    string `koanf:"exchange"`
		StatusQueue string `koanf:"status_queue"`
		Prefetch    int    `koanf:"prefetch"`
	} `koanf:"rabbitmq"`

	Outbox struct {
		Interval   time.Duration `koanf:"interval"`
		BatchSize  int           `koanf:"batch_size"`
		MaxRetries int           `koanf:"max_retries"`
	} `koanf:"outbox"`

	Kafka struct {
		Brokers          []string `koanf:"brokers"`
		GroupID          string   `koanf:"group_id"`
		FulfillmentTopic string   `koanf:"fulfillment_topic"`
		Version          string   `koanf:"version"`
	} `koanf:"kafka"`

	Security struct {
		JWTSecret string `koanf:"jwt_secret"`
		Issuer    string `koanf:"issuer"`
		Audience  string `koanf:"audience"`
	} `koanf:"security"`

	Gateway struct {
		BaseURL       string        `koanf:"base_url"`
		KeyID         string        `koanf:"key_id"`
		KeySecret     string        `koanf:"key_secret"`
		WebhookSecret string        `koanf:"webhook_secret"`
		Timeout       time.Duration `koanf:"timeout"`
	} `koanf:"gateway"`

	Checkout struct {
		TaxRate     string        `koanf:"tax_rate"`
		DeliveryFee string        `koanf:"delivery_fee"`
		Currency    string        `koanf:"currency"`
		CartTTL     time.Duration `koanf:"cart_session_ttl"`
	} `koanf:"checkout"`

	CORS struct {
		AllowOrigins []string `koanf:"allow_origins"`
	} `koanf:"cors"`
}

// Load reads <dir>/base.yaml, then the optional <dir>/<envName>.yaml, then
// RESTO_* environment variables (nested with __, e.g. RESTO_MYSQL__DSN).
func Load(pathDir, envName string) (Config, error) {
	k := koanf.New(".")
	// 1) base
	if err := k.Load(file.Provider(fmt.Sprintf("%s/base.yaml", pathDir)), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load base: %w", err)
	}

	// 2) env override (dev/staging/prod). Optional: allow missing for local runs.
	if envName != "" {
		_ = k.Load(file.Provider(fmt.Sprintf("%s/%s.yaml", pathDir, envName)), yaml.Parser())
	}

	// 3) environment variables override
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	required := []struct{ key, val string }{
		{"app.http_addr", c.App.HTTPAddr},
		{"mysql.dsn", c.MySQL.DSN},
		{"security.jwt_secret", c.Security.JWTSecret},
		{"gateway.key_id", c.Gateway.KeyID},
		{"gateway.key_secret", c.Gateway.KeySecret},
		{"gateway.webhook_secret", c.Gateway.WebhookSecret},
	}
	for _, r := range required {
		if strings.TrimSpace(r.val) == "" {
			return fmt.Errorf("%s required", r.key)
		}
	}
	if _, err := c.PricingRules(); err != nil {
		return err
	}
	return nil
}

// PricingRules parses the checkout money settings. Empty values fall back to
// a 5% tax rate and a 40.00 delivery fee.
func (c Config) PricingRules() (domain.PricingRules, error) {
	rules := domain.PricingRules{
		TaxRate:     domain.DefaultTaxRate,
		DeliveryFee: decimal.NewFromInt(40),
	}
	if s := strings.TrimSpace(c.Checkout.TaxRate); s != "" {
		v, err := decimal.NewFromString(s)
		if err != nil || v.IsNegative() {
			return rules, fmt.Errorf("checkout.tax_rate: invalid value %q", s)
		}
		rules.TaxRate = v
	}
	if s := strings.TrimSpace(c.Checkout.DeliveryFee); s != "" {
		v, err := decimal.NewFromString(s)
		if err != nil || v.IsNegative() {
			return rules, fmt.Errorf("checkout.delivery_fee: invalid value %q", s)
		}
		rules.DeliveryFee = v
	}
	return rules, nil
}
