package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Драйверы хранилища.
const (
	StorageDriverMemory   = "memory"
	StorageDriverDynamoDB = "dynamodb"
	StorageDriverPostgres = "postgres"
)

// Переменные окружения конфигурации.
const (
	envConfigFile          = "STOREFRONT_CONFIG"
	envHTTPAddr            = "STOREFRONT_HTTP_ADDR"
	envMetricsAddr         = "STOREFRONT_METRICS_ADDR"
	envGRPCHealthAddr      = "STOREFRONT_GRPC_HEALTH_ADDR"
	envStorageDriver       = "STOREFRONT_STORAGE_DRIVER"
	envAWSRegion           = "AWS_REGION"
	envAWSEndpoint         = "STOREFRONT_AWS_ENDPOINT"
	envProductsTable       = "STOREFRONT_PRODUCTS_TABLE"
	envCartsTable          = "STOREFRONT_CARTS_TABLE"
	envSalesTable          = "STOREFRONT_SALES_TABLE"
	envSalesUserIndex      = "STOREFRONT_SALES_USER_INDEX"
	envImageBucket         = "STOREFRONT_IMAGE_BUCKET"
	envPostgresDSN         = "STOREFRONT_POSTGRES_DSN"
	envPostgresAutoMigrate = "STOREFRONT_POSTGRES_AUTO_MIGRATE"
	envRedisAddr           = "STOREFRONT_REDIS_ADDR"
	envProductCacheTTL     = "STOREFRONT_PRODUCT_CACHE_TTL"
	envKafkaBrokers        = "KAFKA_BROKERS"
	envStripeSecretKey     = "STRIPE_SECRET_KEY"
	envStripeWebhookSecret = "STRIPE_WEBHOOK_SECRET"
	envCognitoUserPoolID   = "COGNITO_USER_POOL_ID"
	envFrontendURL         = "FRONTEND_URL"
	envCheckoutCurrency    = "STOREFRONT_CHECKOUT_CURRENCY"
	envTaxRate             = "STOREFRONT_TAX_RATE"
	envLogLevel            = "STOREFRONT_LOG_LEVEL"
	envLogFormat           = "STOREFRONT_LOG_FORMAT"
	envShutdownTimeout     = "STOREFRONT_SHUTDOWN_TIMEOUT"
)

// Config описывает настройки запуска витрины.
type Config struct {
	HTTPAddr       string `yaml:"http_addr"`
	MetricsAddr    string `yaml:"metrics_addr"`
	GRPCHealthAddr string `yaml:"grpc_health_addr"`

	StorageDriver  string `yaml:"storage_driver"`
	AWSRegion      string `yaml:"aws_region"`
	AWSEndpoint    string `yaml:"aws_endpoint"`
	ProductsTable  string `yaml:"products_table"`
	CartsTable     string `yaml:"carts_table"`
	SalesTable     string `yaml:"sales_table"`
	SalesUserIndex string `yaml:"sales_user_index"`
	ImageBucket    string `yaml:"image_bucket"`

	PostgresDSN         string `yaml:"postgres_dsn"`
	PostgresAutoMigrate bool   `yaml:"postgres_auto_migrate"`

	RedisAddr       string        `yaml:"redis_addr"`
	ProductCacheTTL time.Duration `yaml:"product_cache_ttl"`

	KafkaBrokers []string `yaml:"kafka_brokers"`

	StripeSecretKey     string  `yaml:"stripe_secret_key"`
	StripeWebhookSecret string  `yaml:"stripe_webhook_secret"`
	CognitoUserPoolID   string  `yaml:"cognito_user_pool_id"`
	FrontendURL         string  `yaml:"frontend_url"`
	CheckoutCurrency    string  `yaml:"checkout_currency"`
	TaxRate             float64 `yaml:"tax_rate"`

	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DefaultConfig возвращает конфигурацию для локального запуска.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:            ":3000",
		MetricsAddr:         ":9090",
		StorageDriver:       StorageDriverMemory,
		AWSRegion:           "us-east-1",
		ProductsTable:       "products",
		CartsTable:          "Carts",
		SalesTable:          "sales",
		SalesUserIndex:      "userEmail-index",
		PostgresAutoMigrate: true,
		ProductCacheTTL:     5 * time.Minute,
		FrontendURL:         "http://localhost:5173",
		CheckoutCurrency:    "usd",
		TaxRate:             0.13,
		LogLevel:            "info",
		LogFormat:           "text",
		ShutdownTimeout:     10 * time.Second,
	}
}

// PaymentsEnabled сообщает, сконфигурирован ли Stripe.
func (c Config) PaymentsEnabled() bool {
	return c.StripeSecretKey != ""
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.HTTPAddr) == "" {
		errs = append(errs, errors.New("http addr is required"))
	}
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverDynamoDB:
		if c.ProductsTable == "" || c.CartsTable == "" || c.SalesTable == "" || c.SalesUserIndex == "" {
			errs = append(errs, errors.New("dynamodb table and index names are required"))
		}
		if c.AWSRegion == "" {
			errs = append(errs, fmt.Errorf("%s is required for dynamodb storage", envAWSRegion))
		}
	case StorageDriverPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, fmt.Errorf("%s is required for postgres storage", envPostgresDSN))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage driver %q", c.StorageDriver))
	}
	if c.ImageBucket != "" && c.AWSRegion == "" {
		errs = append(errs, fmt.Errorf("%s is required for the s3 image store", envAWSRegion))
	}
	if c.TaxRate < 0 || c.TaxRate > 1 {
		errs = append(errs, fmt.Errorf("tax rate must be within [0, 1], got %v", c.TaxRate))
	}
	if c.ProductCacheTTL <= 0 {
		errs = append(errs, errors.New("product cache ttl must be > 0"))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("unsupported log format %q", c.LogFormat))
	}

	return errors.Join(errs...)
}

type envLookup func(string) (string, bool)

// LoadConfig собирает конфигурацию: значения по умолчанию, затем YAML-файл
// из STOREFRONT_CONFIG, затем переменные окружения. Некорректные значения
// переменных не прерывают запуск: остаётся прежнее значение и возвращается предупреждение.
func LoadConfig(lookup envLookup) (Config, []string, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	cfg := DefaultConfig()
	if path, ok := lookup(envConfigFile); ok && strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(strings.TrimSpace(path))
		if err != nil {
			return Config{}, nil, fmt.Errorf("read config file: %w", err)
		}
		if cfg, err = parseYAMLConfig(cfg, data); err != nil {
			return Config{}, nil, err
		}
	}

	cfg, warnings := applyEnv(cfg, lookup)
	if cfg.PaymentsEnabled() && cfg.StripeWebhookSecret == "" {
		warnings = append(warnings, fmt.Sprintf("%s is empty: webhook signatures will be rejected", envStripeWebhookSecret))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, warnings, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, warnings, nil
}

// parseYAMLConfig накладывает YAML поверх base; неизвестные ключи считаются ошибкой.
func parseYAMLConfig(base Config, data []byte) (Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&base); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}
	return base, nil
}

func applyEnv(cfg Config, lookup envLookup) (Config, []string) {
	var warnings []string
	warn := func(key string, err error) {
		warnings = append(warnings, fmt.Sprintf("%s: %v", key, err))
	}

	plain := map[string]*string{
		envHTTPAddr:            &cfg.HTTPAddr,
		envMetricsAddr:         &cfg.MetricsAddr,
		envGRPCHealthAddr:      &cfg.GRPCHealthAddr,
		envAWSRegion:           &cfg.AWSRegion,
		envAWSEndpoint:         &cfg.AWSEndpoint,
		envProductsTable:       &cfg.ProductsTable,
		envCartsTable:          &cfg.CartsTable,
		envSalesTable:          &cfg.SalesTable,
		envSalesUserIndex:      &cfg.SalesUserIndex,
		envImageBucket:         &cfg.ImageBucket,
		envPostgresDSN:         &cfg.PostgresDSN,
		envRedisAddr:           &cfg.RedisAddr,
		envStripeSecretKey:     &cfg.StripeSecretKey,
		envStripeWebhookSecret: &cfg.StripeWebhookSecret,
		envCognitoUserPoolID:   &cfg.CognitoUserPoolID,
		envFrontendURL:         &cfg.FrontendURL,
	}
	for key, dst := range plain {
		if v, ok := lookupTrimmed(lookup, key); ok {
			*dst = v
		}
	}

	lowered := map[string]*string{
		envStorageDriver:    &cfg.StorageDriver,
		envCheckoutCurrency: &cfg.CheckoutCurrency,
		envLogLevel:         &cfg.LogLevel,
		envLogFormat:        &cfg.LogFormat,
	}
	for key, dst := range lowered {
		if v, ok := lookupTrimmed(lookup, key); ok {
			*dst = strings.ToLower(v)
		}
	}

	if v, ok := lookupTrimmed(lookup, envKafkaBrokers); ok {
		cfg.KafkaBrokers = splitList(v)
	}
	if v, ok := lookupTrimmed(lookup, envPostgresAutoMigrate); ok {
		if parsed, err := parseBool(v); err != nil {
			warn(envPostgresAutoMigrate, err)
		} else {
			cfg.PostgresAutoMigrate = parsed
		}
	}
	if v, ok := lookupTrimmed(lookup, envProductCacheTTL); ok {
		if parsed, err := parseDuration(v, func(d time.Duration) bool { return d > 0 }, "must be > 0"); err != nil {
			warn(envProductCacheTTL, err)
		} else {
			cfg.ProductCacheTTL = parsed
		}
	}
	if v, ok := lookupTrimmed(lookup, envShutdownTimeout); ok {
		if parsed, err := parseDuration(v, func(d time.Duration) bool { return d > 0 }, "must be > 0"); err != nil {
			warn(envShutdownTimeout, err)
		} else {
			cfg.ShutdownTimeout = parsed
		}
	}
	if v, ok := lookupTrimmed(lookup, envTaxRate); ok {
		if parsed, err := parseFloat(v, func(f float64) bool { return f >= 0 && f <= 1 }, "must be within [0, 1]"); err != nil {
			warn(envTaxRate, err)
		} else {
			cfg.TaxRate = parsed
		}
	}

	return cfg, warnings
}

func lookupTrimmed(lookup envLookup, key string) (string, bool) {
	v, ok := lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value %q", v)
	}
}

func parseDuration(v string, valid func(time.Duration) bool, rule string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", v, err)
	}
	if !valid(d) {
		return 0, fmt.Errorf("invalid duration %q: %s", v, rule)
	}
	return d, nil
}

func parseFloat(v string, valid func(float64) bool, rule string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", v, err)
	}
	if !valid(f) {
		return 0, fmt.Errorf("invalid number %q: %s", v, rule)
	}
	return f, nil
}
