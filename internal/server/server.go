// Package server assembles the HTTP API from its domain components.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"kineticafs/internal/blobstore"
	"kineticafs/internal/config"
	"kineticafs/internal/credstore"
	"kineticafs/internal/database"
	"kineticafs/internal/domain/bucket"
	"kineticafs/internal/domain/file"
	"kineticafs/internal/domain/token"
	"kineticafs/internal/middleware"
	"kineticafs/internal/region"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App owns the database handle, the services and the router.
type App struct {
	cfg    *config.Config
	db     *gorm.DB
	logger *logrus.Logger

	Tokens  *token.Service
	Buckets *bucket.Service
	Files   *file.Service
	Router  *gin.Engine
}

// New connects to the configured database, applies migrations and wires the
// services.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*App, error) {
	db, err := database.Connect(cfg.DatabaseDSN, logger.WithField("component", "database"))
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := database.Migrate(ctx, db, logger.WithField("component", "database")); err != nil {
		return nil, err
	}
	return NewWithDB(cfg, db, blobstore.DefaultOpener, logger)
}

// NewWithDB wires the services over an already migrated database.
func NewWithDB(cfg *config.Config, db *gorm.DB, blobs blobstore.Opener, logger *logrus.Logger) (*App, error) {
	creds, err := credstore.New(cfg.MasterKey, cfg.TokenPepper)
	if err != nil {
		return nil, fmt.Errorf("init credential store: %w", err)
	}
	regions, err := region.Load(cfg.RegionsPath)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0)
	for _, r := range regions.List() {
		ids = append(ids, r.ID)
	}
	logger.WithFields(logrus.Fields{"path": cfg.RegionsPath, "regions": ids}).Info("region catalog loaded")

	tokens := token.NewService(token.NewRepository(db), creds, logger.WithField("component", "token"))
	buckets := bucket.NewService(bucket.NewRepository(db), creds, logger.WithField("component", "bucket"))
	files := file.NewService(
		file.NewRepository(db),
		buckets,
		blobs,
		regions,
		file.Options{MaxBlobSize: cfg.MaxBlobSize},
		logger.WithField("component", "file"),
	)

	app := &App{
		cfg:     cfg,
		db:      db,
		logger:  logger,
		Tokens:  tokens,
		Buckets: buckets,
		Files:   files,
	}
	app.Router = app.routes()
	return app, nil
}

func (a *App) routes() *gin.Engine {
	r := gin.New()
	r.Use(middleware.ErrorLogger(a.logger))
	r.Use(middleware.RequestLogger(a.logger))
	r.Use(middleware.CORS(a.cfg.CORSAllowedOrigins, a.cfg.CORSAllowedHeaders))

	r.GET("/healthz", a.health)

	tokenHandler := token.NewHandler(a.Tokens)
	bucketHandler := bucket.NewHandler(a.Buckets)
	fileHandler := file.NewHandler(a.Files)

	v1 := r.Group("/api/v1")
	{
		// public
		tokenHandler.RegisterPublicRoutes(v1)

		authed := v1.Group("")
		authed.Use(middleware.TokenAuth(a.Tokens))

		admin := authed.Group("")
		admin.Use(middleware.AdminOnly())
		{
			tokenHandler.RegisterAdminRoutes(admin)
			bucketHandler.RegisterRoutes(admin)
		}

		users := authed.Group("")
		users.Use(middleware.AnyRole())
		{
			fileHandler.RegisterRoutes(users)
		}
	}
	return r
}

func (a *App) health(c *gin.Context) {
	sqlDB, err := a.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Run serves until ctx is cancelled, then drains in-flight requests for up to
// the configured grace period.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Port),
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.WithField("addr", srv.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func (a *App) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
