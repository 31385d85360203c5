package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/curbz/skytrace/internal/config"
	"github.com/curbz/skytrace/internal/eventbus"
	"github.com/curbz/skytrace/internal/httpapi"
	"github.com/curbz/skytrace/internal/logx"
	"github.com/curbz/skytrace/internal/manager"
	"github.com/curbz/skytrace/internal/session"
	"github.com/curbz/skytrace/internal/track"
	"github.com/curbz/skytrace/internal/weather"
)

func main() {
	configPath := flag.String("config", "skytrace.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load[config.Config](*configPath)
	if err != nil {
		// No logger yet; stderr is all we have.
		println("failed to load config:", err.Error())
		os.Exit(1)
	}
	cfg.WithDefaults()

	log := logx.New(cfg.Log.Level, cfg.Log.Format)
	log.WithField("config", *configPath).Info("skytrace starting")

	var catalog *track.Catalog
	if cfg.Track.CatalogDSN != "" {
		catalog, err = track.OpenCatalog(cfg.Track.CatalogDSN)
		if err != nil {
			log.WithError(err).Fatal("failed to open track catalog")
		}
		defer catalog.Close()
	}
	store := track.NewStore(cfg.Track.Folder, catalog)

	bus, err := eventbus.Connect(cfg.NATS.URL, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect event bus")
	}
	defer bus.Close()

	fetcher := weather.NewHTTPFetcher(cfg.Weather.BaseURL, cfg.API.Timeout)
	wx := weather.NewManager(cfg.Cache.WeatherTTL, fetcher, log)

	mgr := manager.New(cfg, store, wx, bus, log)
	if err := mgr.SetupFixedData(); err != nil {
		log.WithError(err).Fatal("failed to load reference data")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go wx.Run(ctx, cfg.Cache.SweepPeriod)
	go mgr.Run(ctx)

	sessions := session.NewServer(mgr, cfg.Session, log)
	api := httpapi.NewServer(mgr, sessions, log)
	go func() {
		if err := api.Run(cfg.Web.Port); err != nil {
			log.WithError(err).Fatal("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info("skytrace shutting down")
}
