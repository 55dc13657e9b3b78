package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asakaida/skillperm/internal/handlers"
	grantcache "github.com/asakaida/skillperm/internal/infrastructure/cache"
	"github.com/asakaida/skillperm/internal/infrastructure/config"
	"github.com/asakaida/skillperm/internal/infrastructure/database"
	"github.com/asakaida/skillperm/internal/infrastructure/metrics"
	"github.com/asakaida/skillperm/internal/repositories"
	"github.com/asakaida/skillperm/internal/repositories/cached"
	"github.com/asakaida/skillperm/internal/repositories/sqlstore"
	"github.com/asakaida/skillperm/internal/services"
	"github.com/asakaida/skillperm/internal/services/authorization"
	"github.com/asakaida/skillperm/pkg/cache/memorycache"
	pb "github.com/asakaida/skillperm/proto/skillperm/v1"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
)

const (
	defaultEnv            = "dev"
	metricsUpdateInterval = 10 * time.Second
	shutdownTimeout       = 30 * time.Second
)

func main() {
	// Get environment from ENV variable or use default
	env := os.Getenv("ENV")
	if env == "" {
		env = defaultEnv
	}

	if err := config.InitConfig(env); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if db.Driver == config.DriverSQLite {
		log.Printf("Connected to database: sqlite %s", cfg.Database.Path)
	} else {
		log.Printf("Connected to database: %s@%s:%d/%s",
			cfg.Database.User,
			cfg.Database.Host,
			cfg.Database.Port,
			cfg.Database.Database)
	}

	if err := db.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Metrics
	collector := metrics.NewCollector()
	exporter := metrics.NewPrometheusExporter(collector, nil)

	// Repositories
	memberRepo := sqlstore.NewMemberRepository(db.DB)
	skillRepo := sqlstore.NewSkillRepository(db.DB)
	auditRepo := sqlstore.NewAuditRepository(db.DB)
	var permissionRepo repositories.PermissionRepository = sqlstore.NewPermissionRepository(db.DB)

	var notifier *grantcache.GrantNotifier
	if cfg.Cache.Enabled {
		grantCache, err := memorycache.New(&memorycache.Config{
			MaxSizeBytes:  cfg.Cache.MaxMemoryBytes,
			DefaultTTL:    cfg.Cache.TTL(),
			EnableMetrics: cfg.Cache.Metrics,
		})
		if err != nil {
			log.Fatalf("Failed to create grant cache: %v", err)
		}
		defer grantCache.Close()
		collector.SetCache(grantCache)

		cachedRepo := cached.NewPermissionRepository(permissionRepo, grantCache, cfg.Cache.TTL(), exporter)

		// Other instances on the same PostgreSQL database learn about grant changes via NOTIFY
		if db.Driver == config.DriverPostgres {
			notifier = grantcache.NewGrantNotifier(db.DB, cfg.Database.ConnectionString(), cachedRepo)
			if err := notifier.Start(); err != nil {
				log.Fatalf("Failed to start grant notifier: %v", err)
			}
			cachedRepo.SetPublisher(notifier)
		}

		permissionRepo = cachedRepo
		log.Printf("Grant cache enabled: max %d bytes, ttl %s", cfg.Cache.MaxMemoryBytes, cfg.Cache.TTL())
	}

	// Services
	resolver := authorization.NewResolver(permissionRepo)
	resolver.SetObserver(exporter)
	permissionService := services.NewPermissionService(memberRepo, skillRepo, permissionRepo, auditRepo, sqlstore.NewTxManager(db.DB))

	capabilityHandler := handlers.NewCapabilityHandler(resolver, permissionService, memberRepo, skillRepo)

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(metrics.UnaryServerInterceptor(collector, exporter)),
	)
	pb.RegisterCapabilityServiceServer(grpcServer, capabilityHandler)

	listener, err := net.Listen("tcp", cfg.Server.Address())
	if err != nil {
		log.Fatalf("Failed to listen: %v", err)
	}
	log.Printf("gRPC server listening on %s", cfg.Server.Address())

	serverErrors := make(chan error, 2)
	go func() {
		if err := grpcServer.Serve(listener); err != nil {
			serverErrors <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	// Prometheus metrics endpoint
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.HealthCheck(); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("Metrics server listening on %s", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- fmt.Errorf("metrics server error: %w", err)
		}
	}()

	// Gauges are refreshed periodically, counters as events happen
	stopMetrics := make(chan struct{})
	go func() {
		ticker := time.NewTicker(metricsUpdateInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				exporter.Update()
			case <-stopMetrics:
				return
			}
		}
	}()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Printf("Server error: %v", err)
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
	}

	log.Println("Initiating graceful shutdown...")
	close(stopMetrics)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		log.Println("Server stopped gracefully")
	case <-shutdownCtx.Done():
		log.Println("Shutdown timeout exceeded, forcing stop")
		grpcServer.Stop()
	}

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error stopping metrics server: %v", err)
	}

	if notifier != nil {
		if err := notifier.Stop(); err != nil {
			log.Printf("Error stopping grant notifier: %v", err)
		}
	}

	log.Println("Shutdown complete")
}
