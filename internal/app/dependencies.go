package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/cache"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/identity/cognito"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/payment/stripe"
	"github.com/vladislavdragonenkov/storefront/internal/storage/dynamo"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/objectstore"
	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

// Dependencies содержит все зависимости приложения.
// Payments, Identity и Events равны nil, если соответствующая интеграция не сконфигурирована.
type Dependencies struct {
	Products domain.ProductRepository
	Carts    domain.CartRepository
	Sales    domain.SalesRepository
	Images   domain.ImageStore
	Payments domain.PaymentProvider
	Identity domain.IdentityProvider
	Events   domain.EventPublisher
	Metrics  *metrics.StorefrontMetrics
	Health   *health.Handler
	Logger   *log.Entry

	closers []func()
}

// NewDependencies создаёт и инициализирует зависимости по конфигурации.
// При ошибке уже открытые ресурсы закрываются.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (deps *Dependencies, err error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps = &Dependencies{
		Metrics: metrics.NewStorefrontMetrics(),
		Health:  health.NewHandler(version.GetVersion()),
		Logger:  logger,
	}
	defer func() {
		if err != nil {
			deps.Close()
			deps = nil
		}
	}()

	var awsCfg *aws.Config
	loadAWS := func() (aws.Config, error) {
		if awsCfg != nil {
			return *awsCfg, nil
		}
		loaded, loadErr := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if loadErr != nil {
			return aws.Config{}, fmt.Errorf("load aws config: %w", loadErr)
		}
		awsCfg = &loaded
		return loaded, nil
	}

	if err = deps.initStorage(ctx, cfg, loadAWS); err != nil {
		return deps, err
	}
	if err = deps.initImages(cfg, loadAWS); err != nil {
		return deps, err
	}
	deps.initProductCache(cfg)
	if err = deps.initPayments(cfg, loadAWS); err != nil {
		return deps, err
	}
	deps.initEvents(cfg)

	return deps, nil
}

func (d *Dependencies) initStorage(ctx context.Context, cfg Config, loadAWS func() (aws.Config, error)) error {
	logger := d.Logger.WithField("storage", cfg.StorageDriver)

	switch cfg.StorageDriver {
	case StorageDriverMemory:
		d.Products = memory.NewProductRepository()
		d.Carts = memory.NewCartRepository()
		d.Sales = memory.NewSalesRepository()

	case StorageDriverDynamoDB:
		awsCfg, err := loadAWS()
		if err != nil {
			return err
		}
		store, err := dynamo.New(dynamo.NewClient(awsCfg, cfg.AWSEndpoint), dynamo.Tables{
			Products:       cfg.ProductsTable,
			Carts:          cfg.CartsTable,
			Sales:          cfg.SalesTable,
			SalesUserIndex: cfg.SalesUserIndex,
		})
		if err != nil {
			return fmt.Errorf("init dynamodb store: %w", err)
		}
		d.Products = store.Products()
		d.Carts = store.Carts()
		d.Sales = store.Sales()
		d.Health.RegisterChecker("storage", health.NewSimpleChecker("storage", store.Ping))

	case StorageDriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("init postgres store: %w", err)
		}
		d.closers = append(d.closers, func() {
			if closeErr := store.Close(); closeErr != nil {
				logger.WithError(closeErr).Warn("failed to close postgres store")
			}
		})
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("apply postgres migrations: %w", err)
			}
			logger.Info("postgres schema is up to date")
		}
		d.Products = postgres.NewProductRepository(store)
		d.Carts = postgres.NewCartRepository(store)
		d.Sales = postgres.NewSalesRepository(store)
		d.Health.RegisterChecker("storage", health.NewSimpleChecker("storage", store.Ping))

	default:
		return fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}

	logger.Info("storage initialized")
	return nil
}

func (d *Dependencies) initImages(cfg Config, loadAWS func() (aws.Config, error)) error {
	if cfg.ImageBucket == "" {
		d.Images = memory.NewImageStore()
		d.Logger.Warn("image bucket is not configured, images are kept in memory")
		return nil
	}

	awsCfg, err := loadAWS()
	if err != nil {
		return err
	}
	store, err := objectstore.New(objectstore.NewClient(awsCfg, cfg.AWSEndpoint), objectstore.Config{
		Bucket:   cfg.ImageBucket,
		Region:   cfg.AWSRegion,
		Endpoint: cfg.AWSEndpoint,
	})
	if err != nil {
		return fmt.Errorf("init image store: %w", err)
	}
	d.Images = store
	d.Health.RegisterChecker("images", health.NewOptionalChecker("images", store.Ping))
	d.Logger.WithField("bucket", cfg.ImageBucket).Info("s3 image store initialized")
	return nil
}

func (d *Dependencies) initProductCache(cfg Config) {
	if cfg.RedisAddr == "" {
		return
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	d.closers = append(d.closers, func() {
		if err := client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			d.Logger.WithError(err).Warn("failed to close redis client")
		}
	})

	cached := cache.NewProductRepository(d.Products, client, cfg.ProductCacheTTL, d.Logger)
	d.Products = cached
	d.Health.RegisterChecker("cache", health.NewOptionalChecker("cache", cached.Ping))
	d.Logger.WithField("addr", cfg.RedisAddr).Info("product cache enabled")
}

func (d *Dependencies) initPayments(cfg Config, loadAWS func() (aws.Config, error)) error {
	if !cfg.PaymentsEnabled() {
		d.Logger.Warn("stripe secret key is not configured, checkout and webhook are disabled")
		return nil
	}

	provider, err := stripe.New(stripe.Config{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
	}, d.Logger)
	if err != nil {
		return fmt.Errorf("init stripe: %w", err)
	}
	d.Payments = provider

	if cfg.CognitoUserPoolID == "" {
		return nil
	}
	awsCfg, err := loadAWS()
	if err != nil {
		return err
	}
	identity, err := cognito.New(cognito.NewClient(awsCfg, cfg.AWSEndpoint), cfg.CognitoUserPoolID, d.Logger)
	if err != nil {
		return fmt.Errorf("init cognito: %w", err)
	}
	d.Identity = identity
	d.Logger.WithField("user_pool", cfg.CognitoUserPoolID).Info("cognito customer lookup enabled")
	return nil
}

func (d *Dependencies) initEvents(cfg Config) {
	producer, err := initKafkaProducer(cfg.KafkaBrokers, d.Logger)
	if err != nil || producer == nil {
		return
	}
	d.closers = append(d.closers, func() { closeKafka(producer, d.Logger) })
	d.Events = kafka.NewEventPublisher(producer, d.Metrics, d.Logger.WithField("component", "events"))
}

// Close освобождает ресурсы в обратном порядке.
func (d *Dependencies) Close() {
	if d == nil {
		return
	}
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}
