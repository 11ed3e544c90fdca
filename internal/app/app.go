package app

import (
	"context"
	"net/http"

	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/pkg/pkgconfig"
	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/pkg/pkglog"
	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/pkg/pkgrouter"
	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/pkg/pkgroutine"
	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/pkg/pkguid"
)

// DefaultConfigPath is used when no --config flag is given.
const DefaultConfigPath = "./config/config.yaml"

type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	configPath string
	config     pkgconfig.Config

	// libraries
	uuid      pkguid.StringID
	snowflake pkguid.NumberID
	goroutine *pkgroutine.Manager

	// server
	router     *pkgrouter.Router
	httpServer *http.Server

	//
	closerFn map[string]func(context.Context) error
}

// New loads configuration from configPath and wires every enabled module.
func New(configPath string) (*App, error) {
	pkglog.InitLogging("info")

	if configPath == "" {
		configPath = DefaultConfigPath
	}

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:        ctx,
		cancel:     cancel,
		configPath: configPath,
	}

	for _, step := range []func() error{
		app.initConfig,
		app.initLibraries,
		app.initHTTPServer,
		app.initModules,
	} {
		if err := step(); err != nil {
			cancel()
			app.closeResources(context.Background())
			return nil, err
		}
	}
	app.initClosers()

	return app, nil
}
