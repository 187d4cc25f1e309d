package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/pesio-ai/be-wo-approvals/internal/auth"
	"github.com/pesio-ai/be-wo-approvals/internal/client"
	"github.com/pesio-ai/be-wo-approvals/internal/config"
	"github.com/pesio-ai/be-wo-approvals/internal/database"
	"github.com/pesio-ai/be-wo-approvals/internal/handler"
	"github.com/pesio-ai/be-wo-approvals/internal/logger"
	"github.com/pesio-ai/be-wo-approvals/internal/metrics"
	"github.com/pesio-ai/be-wo-approvals/internal/middleware"
	"github.com/pesio-ai/be-wo-approvals/internal/repository"
	"github.com/pesio-ai/be-wo-approvals/internal/service"
	"github.com/pesio-ai/be-wo-approvals/internal/workflow"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:       cfg.Service.LogLevel,
		Environment: cfg.Service.Environment,
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
	})

	log.Info().
		Str("storage", cfg.Storage.Driver).
		Str("definitions", cfg.Workflow.DefinitionsSource).
		Msg("Starting Work Order Approvals Service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("Service stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("Server stopped")
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	// Initialize database when anything is stored in Postgres
	var db *database.DB
	if cfg.Storage.Driver == config.StoragePostgres || cfg.Workflow.DefinitionsSource == config.DefinitionsPostgres {
		var err error
		db, err = database.New(ctx, database.Config{
			ConnString:  cfg.Database.ConnString(),
			MaxConns:    cfg.Database.MaxConns,
			MinConns:    cfg.Database.MinConns,
			MaxConnTime: cfg.Database.MaxConnTime,
			MaxIdleTime: cfg.Database.MaxIdleTime,
			HealthCheck: cfg.Database.HealthCheck,
		})
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()
		log.Info().Msg("Database connection established")

		if err := repository.Migrate(ctx, db); err != nil {
			return err
		}
		log.Info().Msg("Database schema up to date")
	}

	// Workflow definitions and role table
	definitions, roleTable, err := loadDefinitions(ctx, cfg, db)
	if err != nil {
		return err
	}
	authorizer := workflow.NewStepAuthorizer(roleTable)
	engine := workflow.NewEngine(authorizer)

	// Workflow store
	var store service.WorkflowStore
	if cfg.Storage.Driver == config.StoragePostgres {
		store = repository.NewWorkflowRepository(db)
	} else {
		store = repository.NewMemoryRepository()
		log.Warn().Msg("Using in-memory workflow store; workflows are lost on restart")
	}

	// Notifications
	natsConn, err := client.Connect(cfg.NATS.URL, cfg.Service.Name, log.Component("nats").Logger)
	if err != nil {
		return fmt.Errorf("connect to nats: %w", err)
	}
	var publisher service.EventPublisher
	if natsConn != nil {
		defer client.Drain(natsConn, log.Component("nats").Logger)
		publisher = client.NewNotificationPublisher(natsConn, cfg.NATS.SubjectPrefix, log.Component("notifications").Logger)
		log.Info().Str("url", cfg.NATS.URL).Msg("NATS connection established")
	} else {
		log.Warn().Msg("NATS_URL not set; workflow events are not published")
	}

	// Authentication
	var authn auth.Authenticator
	if cfg.Auth.JWTSecret != "" {
		authn = auth.NewJWTAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	} else {
		authn = auth.HeaderAuthenticator{}
		log.Warn().Msg("JWT_SECRET not set; trusting X-Actor-* headers (development only)")
	}

	// Initialize services
	m := metrics.New()
	approvalService := service.NewApprovalService(store, definitions, engine, authorizer, publisher, m, log.Component("approvals"))

	// Setup HTTP routes
	httpHandler := handler.NewHTTPHandler(approvalService, log)
	api := http.NewServeMux()
	httpHandler.Register(api)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler(db))
	mux.Handle("/metrics", m.Handler())
	mux.Handle("/api/", auth.Middleware(authn)(api))

	// Apply middleware
	var h http.Handler = mux
	h = middleware.Timeout(cfg.Server.RequestTimeout)(h)
	h = middleware.CORS(cfg.Server.AllowedOrigins)(h)
	h = middleware.Recovery(&log.Logger)(h)
	h = middleware.Logger(&log.Logger)(h)
	h = middleware.RequestID(h)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Setup gRPC server
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(handler.ActorInterceptor(authn)))
	handler.RegisterWorkflowServiceServer(grpcServer, handler.NewGRPCHandler(approvalService, log.Logger))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(handler.WorkflowServiceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer) // Enable reflection for debugging

	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
	if err != nil {
		return fmt.Errorf("create gRPC listener: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info().Int("port", cfg.Server.GRPCPort).Msg("Starting gRPC server")
		if err := grpcServer.Serve(grpcListener); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")
		healthServer.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown failed")
		}

		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-shutdownCtx.Done():
			grpcServer.Stop()
		}
		return nil
	})

	return g.Wait()
}

// loadDefinitions builds the definition provider selected by configuration.
// A definitions file may also replace the role table.
func loadDefinitions(ctx context.Context, cfg *config.Config, db *database.DB) (workflow.DefinitionProvider, workflow.RoleTable, error) {
	switch cfg.Workflow.DefinitionsSource {
	case config.DefinitionsFile:
		catalog, err := workflow.LoadCatalogFile(cfg.Workflow.DefinitionsFile)
		if err != nil {
			return nil, nil, err
		}
		provider, err := catalog.Provider()
		if err != nil {
			return nil, nil, err
		}
		return provider, catalog.RoleTable(), nil
	case config.DefinitionsPostgres:
		repo := repository.NewDefinitionRepository(db)
		if _, err := repo.List(ctx); err != nil {
			return nil, nil, fmt.Errorf("load workflow definitions: %w", err)
		}
		return repo, nil, nil
	default:
		return workflow.NewDefaultProvider(), nil, nil
	}
}

// healthHandler reports liveness, and database reachability when one is used.
func healthHandler(db *database.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "database": err.Error()})
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}
}
