// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/tomtom215/dobbysense/internal/api"
	"github.com/tomtom215/dobbysense/internal/audit"
	"github.com/tomtom215/dobbysense/internal/auth"
	"github.com/tomtom215/dobbysense/internal/authz"
	"github.com/tomtom215/dobbysense/internal/config"
	"github.com/tomtom215/dobbysense/internal/events"
	"github.com/tomtom215/dobbysense/internal/logging"
	"github.com/tomtom215/dobbysense/internal/repository"
	"github.com/tomtom215/dobbysense/internal/sense"
	"github.com/tomtom215/dobbysense/internal/supervisor"
	"github.com/tomtom215/dobbysense/internal/supervisor/services"
)

// app holds every long-lived component so main can run and close them in
// order.
type app struct {
	cfg        *config.Config
	repo       repository.Repository
	bus        *events.Bus
	dispatcher *events.Dispatcher
	audit      *audit.Logger // nil when disabled
	router     *events.Router // nil when the updater is disabled
	handler    http.Handler
	server     *http.Server
}

// newApp wires the components. On error everything opened so far is
// closed.
func newApp(cfg *config.Config) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			_ = a.close()
		}
	}()

	a.repo, err = repository.Open(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	var (
		models sense.ModelSource = a.repo
		cache  *sense.ModelCache
	)
	if cfg.Sense.ModelCache {
		cache = sense.NewModelCache(a.repo, cfg.Sense.ModelCacheTTL)
		models = cache
	}

	a.bus, err = events.NewBus(&cfg.Events, nil)
	if err != nil {
		return nil, fmt.Errorf("event bus: %w", err)
	}
	a.dispatcher = events.NewDispatcher(a.bus.Publisher, events.DispatcherConfig{
		RatingTopic:    cfg.Events.RatingTopic,
		EmbeddingTopic: cfg.Events.EmbeddingTopic,
		Rate:           cfg.Updater.DispatchRate,
		Burst:          cfg.Updater.DispatchBurst,
	})

	service := sense.NewService(models, a.repo,
		sense.WithPreferences(a.repo),
		sense.WithListener(a.dispatcher),
		sense.WithPersistTimeout(cfg.Sense.PersistTimeout),
	)

	if cfg.Audit.Enabled {
		a.audit = audit.NewLogger(audit.NewMemoryStore(cfg.Audit.MaxEvents), &audit.Config{
			Enabled:     true,
			BufferSize:  cfg.Audit.BufferSize,
			LogToStdout: cfg.Audit.LogToStdout,
		})
	}

	handler := api.NewHandler(cfg, service, a.repo)
	handler.SetVersion(version)
	handler.SetPublisher(sense.NewLayerPublisher(a.repo, cache))
	handler.AddHealthCheck("database", a.repo)
	if a.audit != nil {
		handler.SetAuditLogger(a.audit)
	}

	if cfg.Updater.Enabled {
		var items *sense.BreakerItemSource
		items, err = a.initUpdater(models, service.Resolver())
		if err != nil {
			return nil, err
		}
		handler.SetDispatcher(a.dispatcher)
		handler.AddBreaker("item_signals", items)
	}

	a.handler, err = newRouter(cfg, handler, a.audit)
	if err != nil {
		return nil, err
	}
	a.server = &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           a.handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	logging.Info().
		Str("backend", cfg.Database.Backend).
		Str("transport", a.bus.Transport()).
		Bool("model_cache", cache != nil).
		Bool("updater", a.router != nil).
		Bool("audit", a.audit != nil).
		Msg("Components initialized")
	return a, nil
}

// initUpdater builds the incremental updater and registers it as the
// rating consumer. It returns the breaker guarding item lookups.
func (a *app) initUpdater(models sense.ModelSource, resolver *sense.LabelResolver) (*sense.BreakerItemSource, error) {
	u := a.cfg.Updater

	items := sense.NewBreakerItemSource(a.repo, sense.BreakerSettings{
		MinRequests:  u.BreakerMinRequests,
		FailureRatio: u.BreakerFailureRatio,
		OpenTimeout:  u.BreakerOpenTimeout,
	})

	strategy := sense.DefaultEMAStrategy()
	if u.Alpha > 0 {
		strategy.Alpha = u.Alpha
	}
	if u.LikeThreshold > 0 {
		strategy.LikeThreshold = u.LikeThreshold
	}

	updater := sense.NewUpdater(a.repo, items, models,
		sense.WithStrategy(strategy),
		sense.WithSeedPolicy(sense.SeedPolicy(u.SeedPolicy)),
		sense.WithUpdateListener(a.dispatcher),
		sense.WithUpdateTimeout(u.Timeout),
		sense.WithLabelResolver(resolver),
	)

	router, err := events.NewRouter(events.RouterConfig{
		CloseTimeout:     a.cfg.Events.CloseTimeout,
		DeduplicationTTL: a.cfg.Events.DedupTTL,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("event router: %w", err)
	}
	router.AddConsumerHandler("ratings", a.cfg.Events.RatingTopic, a.bus.Subscriber, events.RatingHandler(updater))
	a.router = router

	logging.Info().
		Str("strategy", strategy.Name()).
		Float64("alpha", strategy.Alpha).
		Float64("like_threshold", strategy.LikeThreshold).
		Str("seed_policy", u.SeedPolicy).
		Msg("Incremental updater enabled")
	return items, nil
}

// newRouter mounts the API behind JWT authentication and Casbin
// authorization.
func newRouter(cfg *config.Config, handler *api.Handler, auditLogger *audit.Logger) (http.Handler, error) {
	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		return nil, fmt.Errorf("jwt manager: %w", err)
	}
	enforcer, err := authz.NewEnforcer(authz.EnforcerConfigFromSecurity(&cfg.Security))
	if err != nil {
		return nil, fmt.Errorf("authorization: %w", err)
	}

	authzMW := authz.NewMiddleware(enforcer)
	if auditLogger != nil {
		authzMW.SetAuditLogger(auditLogger)
	}

	router := api.NewRouter(
		handler,
		auth.NewMiddleware(jwtManager, cfg.Security.TokenCookie),
		authzMW,
		api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(&cfg.Security)),
	)
	return router.Setup(), nil
}

// newTree places the services in the supervisor tree.
func (a *app) newTree() (*supervisor.SupervisorTree, error) {
	shutdown := a.cfg.Server.ShutdownTimeout
	tree, err := supervisor.NewSupervisorTree(
		logging.NewSlogLoggerForComponent("supervisor"),
		supervisor.TreeConfig{ShutdownTimeout: shutdown + a.cfg.Events.CloseTimeout},
	)
	if err != nil {
		return nil, err
	}

	if a.router != nil {
		tree.AddMessagingService(services.NewEventRouterService(a.router))
	}
	tree.AddMessagingService(services.NewDrainService("dispatcher-drain", a.dispatcher, shutdown))
	tree.AddAPIService(services.NewHTTPServerService(a.server, shutdown))
	return tree, nil
}

// run serves until ctx is canceled.
func (a *app) run(ctx context.Context) error {
	tree, err := a.newTree()
	if err != nil {
		return fmt.Errorf("supervisor tree: %w", err)
	}

	logging.Info().Str("addr", a.server.Addr).Msg("Serving")
	err = tree.Serve(ctx)
	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		for _, s := range report {
			logging.Warn().Str("service", s.Name).Msg("Service did not stop in time")
		}
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// close flushes the audit log and releases the bus and repository. Safe
// on a partially built app.
func (a *app) close() error {
	var errs []error
	if a.audit != nil {
		if err := a.audit.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close audit log: %w", err))
		}
	}
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close event bus: %w", err))
		}
	}
	if a.repo != nil {
		if err := a.repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close repository: %w", err))
		}
	}
	return errors.Join(errs...)
}
