package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"eventplanner/config"
	"eventplanner/internal/adapters/auth"
	"eventplanner/internal/adapters/email"
	"eventplanner/internal/delivery/graphql"
	deliveryhttp "eventplanner/internal/delivery/http"
	"eventplanner/internal/delivery/http/controllers"
	"eventplanner/internal/delivery/ws"
	"eventplanner/internal/domain"
	"eventplanner/internal/metrics"
	"eventplanner/internal/notify"
	"eventplanner/internal/repository/memory"
	"eventplanner/internal/repository/postgres"
	"eventplanner/internal/services"
)

const shutdownTimeout = 10 * time.Second

var (
	serverPort  string
	autoMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server and the notification dispatcher.

The server shuts down gracefully on SIGINT/SIGTERM: it stops accepting requests,
drains queued notifications, then closes every WebSocket subscription.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServer(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serverPort, "port", "", "server port (default: $PORT or 8080)")
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", false, "apply pending migrations before serving")
}

func runServer(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if serverPort != "" {
		cfg.Port = serverPort
	}

	logger := config.NewLogger()
	metrics.Init()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	return a.run(ctx, server)
}

// app is the assembled server: storage, services, notification pipeline and routes.
type app struct {
	logger     *slog.Logger
	handler    http.Handler
	hub        *notify.Hub
	dispatcher *notify.Dispatcher
	db         *sql.DB
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{logger: logger}

	var (
		events domain.EventRepository
		users  domain.UserRepository
		health deliveryhttp.HealthCheck
	)
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		store := memory.NewStore()
		events, users = memory.NewEventRepository(store), memory.NewUserRepository(store)
		logger.Warn("using in-memory store; data is lost on restart")
	default:
		if autoMigrate {
			if err := postgres.MigrateUp(cfg.DBUrl); err != nil {
				return nil, err
			}
		}
		db, err := postgres.Open(ctx, cfg.DBUrl, postgres.PoolConfig{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		a.db = db
		events, users = postgres.NewEventRepository(db), postgres.NewUserRepository(db)
		health = db.PingContext
	}

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Mailer.Provider,
		FromAddress: cfg.Mailer.FromAddress,
		FromName:    cfg.Mailer.FromName,
		SES: email.SESConfig{
			Region:          cfg.Mailer.AWSRegion,
			AccessKeyID:     cfg.Mailer.AWSKeyID,
			SecretAccessKey: cfg.Mailer.AWSSecret,
		},
	}, logger)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("mailer: %w", err)
	}
	emailService := services.NewEmailService(mailer, email.NewTemplateRenderer(), logger)

	a.hub = notify.NewHub(logger, cfg.HubBufferSize)
	a.dispatcher = notify.NewDispatcher(a.hub, logger, cfg.DispatchQueueSize)

	verifier := auth.NewJWTVerifier(cfg.JWTSecret)
	authService := services.NewAuthService(users, auth.NewBcryptHasher(bcrypt.DefaultCost),
		auth.NewJWTIssuer(cfg.JWTSecret), cfg.JWTExpiry, emailService, logger)
	membership := services.NewMembershipService(events, users, a.dispatcher, logger, cfg.RequestTimeout)

	a.handler = deliveryhttp.NewRouter(deliveryhttp.RouterConfig{
		Logger:             logger,
		Verifier:           verifier,
		Events:             controllers.NewEventController(logger, membership),
		Auth:               controllers.NewAuthController(logger, authService),
		Users:              controllers.NewUserController(logger, authService),
		GraphQL:            graphql.NewHandler(graphql.NewResolver(membership, authService, users, logger)),
		Notifications:      ws.NewHandler(a.hub, logger, cfg.AllowedOrigins),
		Health:             health,
		AllowedOrigins:     cfg.AllowedOrigins,
		LoginRatePerMinute: cfg.LoginRatePerMinute,
		LoginBurst:         cfg.LoginBurst,
	})
	return a, nil
}

// run serves until ctx is done, then shuts down in order:
// HTTP server, dispatcher drain, hub close.
func (a *app) run(ctx context.Context, server *http.Server) error {
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()

	g, gctx := errgroup.WithContext(ctx)
	dispatchDone := make(chan struct{})
	g.Go(func() error {
		defer close(dispatchDone)
		return a.dispatcher.Run(dispatchCtx)
	})
	g.Go(func() error {
		a.logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		if err != nil {
			a.logger.Error("http shutdown error", "err", err)
		}

		stopDispatch()
		<-dispatchDone
		a.hub.Close()
		return err
	})
	return g.Wait()
}

func (a *app) close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("close database", "err", err)
		}
	}
}
