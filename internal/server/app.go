// Package server wires the Send It server together: storage, change
// fan-out, identity, blob storage, and the gRPC and HTTP endpoints.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dmitrijs2005/sendit/internal/logging"
	"github.com/dmitrijs2005/sendit/internal/server/blobs"
	"github.com/dmitrijs2005/sendit/internal/server/config"
	"github.com/dmitrijs2005/sendit/internal/server/httpapi"
	"github.com/dmitrijs2005/sendit/internal/server/identity"
	"github.com/dmitrijs2005/sendit/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/sendit/internal/server/secret"
	"github.com/dmitrijs2005/sendit/internal/server/services"
	"github.com/dmitrijs2005/sendit/internal/server/watch"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/sendit/internal/server/grpc"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	repomanager repomanager.RepositoryManager
	redis       *redis.Client
	relay       *watch.RedisPublisher
	grpcServer  *gs.GRPCServer
	httpServer  *httpapi.Server
}

// newBlobStore is a seam so the app can be assembled without S3.
var newBlobStore = func(ctx context.Context, c *config.Config) (blobs.Store, error) {
	return blobs.NewS3Store(ctx, blobs.Options{
		Region:           c.S3Region,
		AccessKey:        c.S3RootUser,
		SecretKey:        c.S3RootPassword,
		BaseEndpoint:     c.S3BaseEndpoint,
		Bucket:           c.S3Bucket,
		DownloadValidity: c.DownloadURLValidityDuration,
	})
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	if c.SecretsBackend != "" {
		r, err := secret.New(ctx, c.SecretsBackend, c.S3Region, config.EnvPrefix)
		if err != nil {
			return nil, fmt.Errorf("secrets init error: %w", err)
		}
		if err := c.ResolveSecrets(ctx, r); err != nil {
			return nil, err
		}
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	rm, err := repomanager.New(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := rm.RunMigrations(ctx); err != nil {
		_ = rm.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	app := &App{config: c, logger: logger, repomanager: rm}

	hub := watch.NewHub()
	var notifier watch.Notifier = hub
	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		app.relay = watch.NewRedisPublisher(app.redis, watch.DefaultChannel, hub, logger.With("module", "relay"))
		notifier = app.relay
	}

	store, err := newBlobStore(ctx, c)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	docs := services.NewDocumentService(rm, notifier)
	sessions := services.NewSessionService(rm, docs, newProvider(c), identity.NewRegistry(c.SignInTimeout), c)

	app.grpcServer = gs.NewGRPCServer(c.EndpointAddrGRPC, logger, sessions, docs, services.NewBlobService(store), hub, c.SecretKey)
	app.httpServer = httpapi.NewServer(c.EndpointAddrHTTP, httpapi.NewHandler(sessions, logger, c.IdentityProvider == "dev"))

	return app, nil
}

func newProvider(c *config.Config) identity.Provider {
	base := strings.TrimRight(c.PublicBaseURL, "/")
	if c.IdentityProvider == "google" {
		return identity.NewGoogleProvider(c.GoogleClientID, c.GoogleClientSecret, base+"/auth/callback")
	}
	return identity.NewDevProvider(base)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx ends, a signal arrives, or one endpoint fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.close()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.grpcServer.Run(ctx) })
	g.Go(func() error { return app.httpServer.Run(ctx) })
	if app.relay != nil {
		g.Go(func() error { return app.relay.Run(ctx) })
	}

	err := g.Wait()
	if err != nil {
		app.logger.Error(ctx, "server stopped", "error", err)
	}
	return err
}

func (app *App) close() {
	if app.redis != nil {
		_ = app.redis.Close()
	}
	if err := app.repomanager.Close(); err != nil {
		app.logger.Warn(context.Background(), "closing database", "error", err)
	}
}
