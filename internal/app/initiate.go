package app

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/shandysiswandi/epimap/internal/pkg/pkglog"
	"github.com/shandysiswandi/epimap/internal/pkg/pkgmetrics"
	"github.com/shandysiswandi/epimap/internal/pkg/pkgrouter"
	"github.com/shandysiswandi/epimap/internal/pkg/pkgroutine"
	"github.com/shandysiswandi/epimap/internal/pkg/pkguid"
)

func (a *App) initConfig() {
	cfg, err := LoadConfig(a.configPath)
	exitOnError("failed to init config", err)

	//nolint:errcheck,gosec // ignore error
	os.Setenv("TZ", cfg.GetString("tz"))

	pkglog.InitLogging(cfg.GetString("log.level"))

	a.config = cfg
	a.addCloser("Config", func(context.Context) error {
		return a.config.Close()
	})
}

func (a *App) initLibraries() {
	a.goroutine = pkgroutine.NewManager(int(a.config.GetInt("ingest.max_goroutines")))
	a.uuid = pkguid.NewUUID()

	if a.config.GetBool("metrics.enabled") {
		pkgmetrics.Init(nil)
	}
}

func (a *App) initHTTPServer() {
	a.router = pkgrouter.NewRouter(a.uuid)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	a.httpServer = &http.Server{
		Addr:              a.config.GetString("server.address.http"),
		Handler:           corsHandler.Handler(a.router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if a.config.GetBool("metrics.enabled") {
		a.router.Handle(http.MethodGet, "/metrics", promhttp.Handler())
	}
}
