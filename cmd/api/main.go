package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"io/fs"
	"log"
	"os"
	"runtime"

	"bloom/internal/auth"
	"bloom/internal/db"
	"bloom/internal/domain/orders"
	"bloom/internal/domain/pricing"
	"bloom/internal/domain/storage"
	"bloom/internal/domain/storage/memstore"
	"bloom/internal/mailer"
	"bloom/internal/media"
	"bloom/internal/notifications"
	"bloom/internal/ratelimiter"
	"bloom/internal/sales"

	"github.com/9ssi7/exponent"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a console zap logger with colored levels.
func NewLogger(level string) (*zap.SugaredLogger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(os.Stdout), lvl)
	return zap.New(core).Sugar(), nil
}

// loadConfig reads an optional .env file, then the environment.
func loadConfig() (config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg config
	if err := envconfig.Process("", &cfg); err != nil {
		return config{}, err
	}
	return cfg, nil
}

var version = "1.0.0"

//	@title			Bloom API
//	@description	Flower shop cart, checkout and order management.

//	@BasePath					/v1
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						Authorization
//	@description

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	gen, err := orders.NewNumberGenerator(cfg.Sales.OrderNumberSalt)
	if err != nil {
		logger.Fatal(err)
	}

	// Storage
	var store storage.Provider
	switch cfg.StoreDriver {
	case "memory":
		store = memstore.New(gen)
		logger.Warn("using in-memory store, data is lost on restart")
	case "postgres":
		pool, err := db.New(cfg.DB.Addr, cfg.DB.MaxConns, cfg.DB.MaxIdleTime)
		if err != nil {
			logger.Fatal(err)
		}
		defer pool.Close()
		logger.Info("database connection pool established")

		expvar.Publish("database", expvar.Func(func() any {
			s := pool.Stat()
			return map[string]int32{
				"total_conns":    s.TotalConns(),
				"idle_conns":     s.IdleConns(),
				"acquired_conns": s.AcquiredConns(),
			}
		}))
		store = storage.NewContainer(pool, gen)
	default:
		logger.Fatalf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	// Images
	var images media.Resolver = media.Passthrough{}
	if cfg.Media.CloudinaryURL != "" {
		cld, err := cloudinary.NewFromURL(cfg.Media.CloudinaryURL)
		if err != nil {
			logger.Fatal(err)
		}
		images = media.NewCloudinary(cld, pricing.PlaceholderImage, logger)
	}

	// Notifications
	var mail mailer.Client
	if cfg.Mail.Host != "" {
		m, err := mailer.NewSMTPMailer(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.User, cfg.Mail.Pass, cfg.Mail.From)
		if err != nil {
			logger.Fatal(err)
		}
		mail = m
	} else {
		logger.Warn("MAIL_HOST not set, order emails are disabled")
	}

	var push notifications.PushSender
	if len(cfg.Push.AdminTokens) > 0 {
		push = notifications.NewExpoAdapter(exponent.NewClient(exponent.WithAccessToken(cfg.Push.AccessToken)))
	}

	notifier := notifications.NewDispatcher(mail, push, notifications.Config{
		ShopName:    cfg.Sales.ShopName,
		ShopEmail:   cfg.Mail.ShopEmail,
		AdminTokens: cfg.Push.AdminTokens,
	}, logger)

	svc := sales.NewService(store, pricing.NewEngine(logger), images, notifier, logger, sales.Config{
		GuestCartTTL: cfg.Sales.GuestCartTTL,
	})

	rateLimiter := ratelimiter.NewFixedWindowLimiter(
		cfg.RateLimiter.RequestsPerTimeFrame,
		cfg.RateLimiter.TimeFrame,
	)

	authenticator := auth.NewJWTAuthenticator(cfg.Auth.TokenSecret, cfg.Auth.TokenAudience, cfg.Auth.TokenIssuer, cfg.Auth.TokenTTL)

	app := &application{
		config:        cfg,
		logger:        logger,
		sales:         svc,
		authenticator: authenticator,
		rateLimiter:   rateLimiter,
	}

	// Metrics collected http://localhost:8080/v1/debug/vars
	expvar.NewString("version").Set(version)
	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rateLimiter.Run(ctx)
	go app.runHousekeeping(ctx, cfg.Sales.SweepInterval)

	mux := app.mount()

	if err := app.run(mux); err != nil {
		logger.Fatal(err)
	}
}
