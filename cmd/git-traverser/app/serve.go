package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/treewalk-labs/git-traverser/internal/api"
	"github.com/treewalk-labs/git-traverser/internal/auth"
	"github.com/treewalk-labs/git-traverser/internal/config"
	"github.com/treewalk-labs/git-traverser/internal/git"
	"github.com/treewalk-labs/git-traverser/internal/service"
	"github.com/treewalk-labs/git-traverser/internal/traverse"
	"github.com/treewalk-labs/git-traverser/internal/workspace"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the traversal API server",
	Long: `Start the traversal API server.

The server exposes POST /v1/structure, which clones the requested repository
and returns its directory structure as nested JSON. Requests require a bearer
token; the key comes from auth.apiKeyFile in the configuration file or the
GIT_TRAVERSER_API_KEY environment variable.

See examples/ directory for a sample configuration.`,
	RunE: runServe,
}

const (
	defaultGracefulTimeout = 30 * time.Second
	// Cloning a large repository over the network dominates request time,
	// so the request timeout is generous.
	serverRequestTimeout = 5 * time.Minute
	serverReadTimeout    = 10 * time.Second
	serverWriteTimeout   = serverRequestTimeout + 10*time.Second
	serverIdleTimeout    = 60 * time.Second
)

// publicPaths bypass bearer authentication
var publicPaths = []string{"/health", "/version"}

func init() {
	serveCmd.Flags().String("address", "", "Address to listen on (overrides configuration)")
	serveCmd.Flags().String("config", "", "Path to configuration file (YAML format)")

	if err := viper.BindPFlag("address", serveCmd.Flags().Lookup("address")); err != nil {
		slog.Error("Failed to bind address flag", "error", err)
		os.Exit(1)
	}
	if err := viper.BindPFlag("config", serveCmd.Flags().Lookup("config")); err != nil {
		slog.Error("Failed to bind config flag", "error", err)
		os.Exit(1)
	}
}

// loadConfig loads the configuration file when one was given, falling back
// to built-in defaults otherwise
func loadConfig() (*config.Config, error) {
	configPath := viper.GetString("config")
	if configPath == "" {
		return config.LoadConfig()
	}
	return config.LoadConfig(config.WithConfigPath(configPath))
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	address := viper.GetString("address")
	if address == "" {
		address = cfg.Address
	}

	apiKey, err := cfg.Auth.GetAPIKey()
	if err != nil {
		return err
	}

	policy := workspace.CachePolicy(cfg.Workspace.CachePolicy)

	gitClient := git.NewDefaultClient()
	manager := workspace.NewManager(workspace.ManagerConfig{
		Root:       cfg.Workspace.Root,
		Policy:     policy,
		TTL:        cfg.Workspace.GetTTL(),
		CloneDepth: cfg.Workspace.CloneDepth,
	}, gitClient)
	if err := manager.Init(); err != nil {
		return err
	}

	volume := workspace.NewNopVolume()
	if err := volume.Reload(ctx); err != nil {
		return fmt.Errorf("failed to reload workspace volume: %w", err)
	}

	svcCfg := service.Config{}
	if cfg.Patterns != nil {
		svcCfg.IgnorePatterns = cfg.Patterns.Ignore
		svcCfg.ImportantPatterns = cfg.Patterns.Important
	}

	svc := service.NewService(
		svcCfg,
		workspace.NewLocker(cfg.Workspace.Root),
		manager,
		traverse.NewTraverser(gitClient),
		volume,
		policy,
	)

	router := api.NewServer(svc,
		api.WithMiddlewares(
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(serverRequestTimeout),
			api.LoggingMiddleware,
			auth.WrapWithPublicPaths(auth.NewBearerMiddleware(apiKey), publicPaths),
		),
	)

	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	go func() {
		slog.Info("Server listening",
			"address", address,
			"workspace", cfg.Workspace.Root,
			"cache_policy", string(policy))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		return err
	}

	// The no-cache policy leaves nothing behind between runs
	if policy == workspace.CachePolicyNone {
		if err := manager.Clear(); err != nil {
			slog.Warn("Failed to clear workspace", "error", err)
		}
		if err := workspace.CommitWithRetry(shutdownCtx, volume); err != nil {
			slog.Warn("Final volume commit failed", "error", err)
		}
	}

	slog.Info("Server shutdown complete")
	return nil
}
