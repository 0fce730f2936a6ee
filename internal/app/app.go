package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/shandysiswandi/epimap/internal/pkg/pkgconfig"
	"github.com/shandysiswandi/epimap/internal/pkg/pkglog"
	"github.com/shandysiswandi/epimap/internal/pkg/pkgrouter"
	"github.com/shandysiswandi/epimap/internal/pkg/pkgroutine"
	"github.com/shandysiswandi/epimap/internal/pkg/pkguid"
)

type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	configPath string
	config     pkgconfig.Config

	// libraries
	uuid      pkguid.StringID
	goroutine *pkgroutine.Manager

	// server
	router     *pkgrouter.Router
	httpServer *http.Server

	closers []closer
}

func New(configPath string) *App {
	pkglog.InitLogging("info")

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:        ctx,
		cancel:     cancel,
		configPath: configPath,
	}

	app.initConfig()
	app.initLibraries()
	app.initHTTPServer()
	app.initModules()

	return app
}

// Address is the listen address of the HTTP server.
func (a *App) Address() string {
	return a.httpServer.Addr
}

func exitOnError(msg string, err error) {
	if err != nil {
		slog.Error(msg, "error", err)
		os.Exit(1)
	}
}
