package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"objstore/core/config"
	"objstore/core/loader"
	"objstore/core/logger"
	"objstore/core/metrics"
	"objstore/core/middleware/auth"
	"objstore/core/middleware/rayid"
	"objstore/core/storage"
	"objstore/feature/objects"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "objstore/docs/swagger"
)

// @title objstore API
// @version 1.0
// @description HTTP access to an S3-compatible bucket.
// @host localhost:8080
// @BasePath /

const shutdownTimeout = 10 * time.Second

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the objstore HTTP server",
	Long:  `Starts the HTTP server, connects to the configured bucket and mounts the objects API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. Load Configuration
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		// 2. Initialize Logger
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		// 3. Initialize Storage
		driver, err := storage.Open(cmd.Context(), cfg.Storage, logg)
		if err != nil {
			return fmt.Errorf("failed to open storage: %w", err)
		}
		defer func() {
			if err := driver.Close(); err != nil {
				logg.Warn("Failed to close storage", zap.Error(err))
			}
		}()

		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		instrumented := metrics.Instrument(driver, reg)

		if err := instrumented.Ping(cmd.Context()); err != nil {
			logg.Warn("Bucket not reachable at startup", zap.String("bucket", cfg.Storage.Bucket), zap.Error(err))
		}

		// 4. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
			BodyLimit:             cfg.Server.BodyLimit(),
		})

		objectsFeature := objects.NewFeature(instrumented, logg, objects.Options{
			PartSize:    cfg.Storage.PartSize(),
			Concurrency: cfg.Server.Concurrency(),
		})
		mgr := loader.NewManager(logg)
		mgr.Register(objectsFeature)

		// RayID must be first to trace everything
		app.Use(rayid.New())
		app.Use(requestLogger(logg))

		// Public routes
		app.Get("/swagger/*", swagger.HandlerDefault)
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
		objectsFeature.LoadPublic(app)

		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))
		if cfg.Server.ApiKey == "" {
			logg.Warn("SERVER_API_KEY is empty, the objects API is unauthenticated")
		}

		// 5. Load Features
		if err := mgr.LoadAll(app); err != nil {
			return fmt.Errorf("failed to load features: %w", err)
		}

		// 6. Start Server
		errCh := make(chan error, 1)
		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			errCh <- app.Listen(cfg.Server.Addr())
		}()

		// 7. Graceful Shutdown
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		select {
		case err := <-errCh:
			return fmt.Errorf("server failed: %w", err)
		case <-sig:
		}
		logg.Info("Shutting down server...")
		return app.ShutdownWithTimeout(shutdownTimeout)
	},
}

// requestLogger logs every request with its ray id.
func requestLogger(logg *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		l := logger.WithRayID(logg, c)
		err := c.Next()
		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("duration", time.Since(start)),
		}
		if err != nil {
			l.Error("Request error", append(fields, zap.Error(err))...)
			return err
		}
		l.Info("Request completed", fields...)
		return nil
	}
}

// loadConfig reads and validates configuration from the --config-dir flag.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	dir, _ := cmd.Flags().GetString("config-dir")
	cfg, err := config.LoadConfig(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func init() {
	RootCmd.AddCommand(startCmd)
}
