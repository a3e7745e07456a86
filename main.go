package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"route-tracker/internal/config"
	"route-tracker/internal/geolocation"
	"route-tracker/internal/httpserver"
	"route-tracker/internal/monitoring"
	"route-tracker/internal/outbox"
	"route-tracker/internal/recorder"
	"route-tracker/internal/session"
	"route-tracker/internal/store"
	"route-tracker/internal/submit"
	"route-tracker/internal/timeutil"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	stopLog := monitoring.Start(cfg.LogLevel, cfg.LogPath)
	defer stopLog()

	if err := run(cfg); err != nil {
		monitoring.Errorf("route tracker: %v", err)
		stopLog()
		log.Fatal(err)
	}
}

func run(cfg config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := store.NewRedisStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	box, err := outbox.Open(cfg.OutboxPath)
	if err != nil {
		return err
	}
	defer box.Close()

	client := submit.NewClient(cfg.BackendBaseURL, cfg.BackendTimeout)
	var submitter submit.Submitter = client
	if cfg.SubmitTransport == "nsq" {
		nsqSub, err := submit.NewNSQSubmitter(cfg.NSQDAddr, cfg.NSQTopic)
		if err != nil {
			return err
		}
		defer nsqSub.Close()
		submitter = nsqSub
	}

	// Without a source the API still serves; Start reports the environment
	// as unsupported.
	var provider geolocation.Provider
	src, err := geolocation.Open(cfg)
	switch {
	case err == nil:
		defer src.Close()
		provider = src
	case errors.Is(err, geolocation.ErrNoSource):
		monitoring.Warnf("no location source (%s); recording is unavailable", cfg.LocationSource)
	default:
		return err
	}

	fixOpts := geolocation.DefaultOptions()
	fixOpts.Timeout = cfg.FixTimeout
	mgr := session.New(provider, recorder.Options{
		Interval:   cfg.SampleInterval,
		FixOptions: fixOpts,
		Clock:      timeutil.RealClock{},
	}, session.Deps{
		Registrar: client,
		Submitter: submitter,
		Outbox:    box,
		Store:     st,
	})
	if n, err := mgr.Recover(ctx); err != nil {
		monitoring.Errorf("outbox recovery: %v", err)
	} else if n > 0 {
		monitoring.Infof("%d unsent tracks waiting for retry", n)
	}
	// Runs before the deferred closes so the sampling loop is gone first.
	defer mgr.Shutdown(context.Background())

	return httpserver.Serve(ctx, cfg, httpserver.NewRouter(cfg, mgr, st.Rdb))
}
