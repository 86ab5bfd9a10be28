package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"finitefield.org/marketing-web/internal/analytics"
	"finitefield.org/marketing-web/internal/config"
	"finitefield.org/marketing-web/internal/content"
	"finitefield.org/marketing-web/internal/downloads"
	"finitefield.org/marketing-web/internal/i18n"
	"finitefield.org/marketing-web/internal/observability"
	"finitefield.org/marketing-web/internal/routes"
	"finitefield.org/marketing-web/internal/secrets"
	"finitefield.org/marketing-web/internal/status"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("web")

	resolver := secrets.NewResolver(ctx,
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithProject(firstNonEmpty(os.Getenv("SITE_SECRETS_PROJECT_ID"), os.Getenv("GOOGLE_CLOUD_PROJECT"))),
	)
	defer func() {
		if err := resolver.Close(); err != nil {
			logger.Warn("secret resolver close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx, config.WithSecretResolver(resolver))
	if err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			logger.Fatal("invalid configuration", zap.Strings("fields", verr.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	bundle, err := i18n.Load(cfg.Site.LocalesDir, string(routes.DefaultLang), []string{"de", "en"})
	if err != nil {
		logger.Fatal("failed to load locales", zap.Error(err))
	}

	contentOpts := []content.Option{
		content.WithCacheTTL(cfg.Content.CacheTTL),
		content.WithLogger(logger.Named("content")),
	}
	if cfg.Content.RemoteURL != "" {
		contentOpts = append(contentOpts, content.WithRemote(cfg.Content.RemoteURL))
	}
	contentClient := content.NewClient(os.DirFS(cfg.Content.Dir), contentOpts...)

	statusClient := status.NewClient(cfg.Status.URL,
		status.WithForcedMaintenance(cfg.Status.Maintenance),
		status.WithTTL(cfg.Status.CacheTTL),
		status.WithLogger(logger.Named("status")),
	)

	queueOpts := []analytics.Option{analytics.WithLogger(logger.Named("analytics"))}
	if cfg.Analytics.Topic != "" {
		psClient, err := pubsub.NewClient(ctx, cfg.Analytics.ProjectID)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		defer func() {
			if err := psClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()
		topic := psClient.Topic(cfg.Analytics.Topic)
		defer topic.Stop()
		forwarder, err := analytics.NewPubSubForwarder(topic)
		if err != nil {
			logger.Fatal("failed to initialise analytics forwarder", zap.Error(err))
		}
		queueOpts = append(queueOpts, analytics.WithForwarder(forwarder))
	}
	events := analytics.NewQueue(queueOpts...)
	defer events.Flush()

	urls, err := newURLResolver(cfg.Downloads, logger.Named("downloads"))
	if err != nil {
		logger.Fatal("failed to initialise download signer", zap.Error(err))
	}

	tmpl, err := parseTemplates(cfg.Site.TemplatesDir, bundle, routes.Default())
	if err != nil {
		logger.Fatal("failed to parse templates", zap.Error(err))
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		table:     routes.Default(),
		bundle:    bundle,
		content:   contentClient,
		events:    events,
		downloads: urls,
		status:    statusClient,
		templates: tmpl,
		devMode:   !cfg.Site.Production() && os.Getenv("SITE_DEV") != "",
		now:       time.Now,
	}

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           a.router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("marketing site listening", zap.String("env", cfg.Site.Environment), zap.Bool("dev", a.devMode))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// newURLResolver signs gs:// download locations when a signer key is
// configured and passes plain URLs through otherwise.
func newURLResolver(cfg config.DownloadsConfig, logger *zap.Logger) (downloads.URLResolver, error) {
	if strings.TrimSpace(cfg.SignerKey) == "" {
		logger.Info("download signer not configured; gs:// locations are unavailable")
		return downloads.StaticResolver{}, nil
	}
	signer, err := downloads.NewServiceAccountSigner(cfg.SignerEmail, cfg.SignerKey)
	if err != nil {
		return nil, err
	}
	return downloads.NewSignedURLResolver(signer,
		downloads.WithTTL(cfg.SignedURLTTL),
		downloads.WithLogger(logger),
	)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
