package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-reports/contracts"
	"github.com/zenGate-Global/palmyra-reports/domains/reportschedules/be/handler"
	"github.com/zenGate-Global/palmyra-reports/domains/reportschedules/be/service"
	platformlogging "github.com/zenGate-Global/palmyra-reports/platform/go/logging"
	platformmiddleware "github.com/zenGate-Global/palmyra-reports/platform/go/middleware"
	tenantmiddleware "github.com/zenGate-Global/palmyra-reports/platform/go/tenant/middleware"
)

type routerDeps struct {
	cfg      config
	logger   *zap.Logger
	service  service.Service
	registry *prometheus.Registry
	ready    func(context.Context) error
}

func newRouter(deps routerDeps) (http.Handler, error) {
	spec, err := contracts.LoadReportSchedules()
	if err != nil {
		return nil, fmt.Errorf("load report schedules contract: %w", err)
	}

	rootRouter := chi.NewRouter()

	rootRouter.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Timeout(deps.cfg.RequestTimeout),
		platformmiddleware.DefaultCORS(),
	)

	rootRouter.Use(platformlogging.RequestLogger(deps.logger))

	rootRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := deps.ready(r.Context()); err != nil {
			platformlogging.FromRequest(r, deps.logger).Warn("readiness check failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Handle("/metrics", promhttp.HandlerFor(deps.registry, promhttp.HandlerOpts{}))

	registerDocsRoutes(rootRouter, deps.logger)

	apiRouter := chi.NewRouter()
	apiRouter.Use(tenantmiddleware.WithTenantSession(tenantmiddleware.Config{
		CacheTTL:   deps.cfg.TenantCacheTTL,
		MaxEntries: deps.cfg.TenantCacheSize,
	}))
	apiRouter.Use(platformmiddleware.RequestTrace)
	apiRouter.Use(platformmiddleware.NewSpecValidator(spec))

	handler.New(deps.service, deps.logger).Routes(apiRouter)

	rootRouter.Mount("/api/v1", apiRouter)
	return rootRouter, nil
}
