package app

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/pkg/pkgconfig"
	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/pkg/pkglog"
	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/pkg/pkgrouter"
	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/pkg/pkgroutine"
	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/pkg/pkguid"
	"github.com/rs/cors"
)

func (a *App) initConfig() error {
	cfg, err := pkgconfig.NewViper(a.configPath)
	if err != nil {
		return err
	}

	if tz := cfg.GetString("tz"); tz != "" {
		//nolint:errcheck,gosec // ignore error
		os.Setenv("TZ", tz)
	}
	pkglog.InitLogging(cfg.GetString("log.level"))

	a.config = cfg
	a.closerFn = map[string]func(context.Context) error{
		"Config": func(context.Context) error {
			return cfg.Close()
		},
	}

	return nil
}

func (a *App) initLibraries() error {
	a.goroutine = pkgroutine.NewManager(int(a.config.GetInt("goroutine.max")))
	a.uuid = pkguid.NewUUID()

	sf, err := pkguid.NewSnowflake()
	if err != nil {
		return err
	}
	a.snowflake = sf

	return nil
}

func (a *App) initHTTPServer() error {
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

	return nil
}

func (a *App) initClosers() {
	a.closerFn["HTTP Server"] = func(ctx context.Context) error {
		return a.httpServer.Shutdown(ctx)
	}
}
