package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/arklim/accounts-service/internal/core/port"
	"github.com/arklim/accounts-service/internal/infra/config"
	"github.com/arklim/accounts-service/internal/infra/database"
	kafkainfra "github.com/arklim/accounts-service/internal/infra/kafka"
	"github.com/arklim/accounts-service/internal/infra/logger"
	"github.com/arklim/accounts-service/internal/infra/mail"
	"github.com/arklim/accounts-service/internal/infra/security"
	postgresrepo "github.com/arklim/accounts-service/internal/repository/postgres"
	"github.com/arklim/accounts-service/internal/transport/http/middleware"
	"github.com/arklim/accounts-service/internal/transport/http/routes"
	"github.com/arklim/accounts-service/internal/usecase"
)

type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	producer *kafkainfra.Producer
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	issuer, err := security.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.TokenTTL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init token issuer: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)

	if roles, err := repos.Roles.List(ctx); err != nil {
		log.Warn("could not verify role reference data", zap.Error(err))
	} else if len(roles) == 0 {
		log.Warn("role reference data not seeded, registration will fail until migrations run")
	}

	var mailer port.Mailer
	if cfg.Mail.MailgunAPIKey != "" && cfg.Mail.MailgunDomain != "" {
		mailer = mail.NewMailgunSender(cfg.Mail.MailgunDomain, cfg.Mail.MailgunAPIKey, cfg.Mail.Sender)
		log.Info("mailgun mailer initialized", zap.String("domain", cfg.Mail.MailgunDomain))
	} else {
		log.Info("mailgun not configured, logging outbound mail")
		mailer = mail.NewLogSender(log)
	}

	var eventPublisher port.EventPublisher
	var producer *kafkainfra.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
			producer = nil
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	passwordValidator := security.NewPasswordValidator(
		security.MinLengthRule(cfg.Password.MinLength),
		security.RequirePasswordStrengthRule(cfg.Password.MinScore),
	)

	identityService := usecase.NewIdentityService(
		repos.Users,
		repos.Roles,
		mailer,
		eventPublisher,
		issuer,
		passwordValidator,
		cfg.Mail.ConfirmURLBase,
		log,
	)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config:   cfg,
		Logger:   log,
		Identity: identityService,
		Issuer:   issuer,
		Metrics:  metrics,
		Database: pool,
	})

	return &Application{
		cfg:      cfg,
		engine:   engine,
		logger:   log,
		pool:     pool,
		producer: producer,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.producer != nil {
			_ = a.producer.Close()
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting accounts API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
