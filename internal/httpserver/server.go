// internal/httpserver/server.go
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"route-tracker/internal/config"
	"route-tracker/internal/monitoring"
	"route-tracker/internal/mw"
	"route-tracker/internal/session"
)

// NewRouter wires the control API. rdb backs the per-user rate limiter.
func NewRouter(cfg config.Config, mgr *session.Manager, rdb *redis.Client) *mux.Router {
	rl := mw.NewRateLimiter(rdb, cfg.RateLimitRPS, cfg.RateLimitBurst)
	hdl := NewHandler(mgr)

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(mw.Auth(cfg.JWTSecret))
	api.Use(rl.Middleware)
	api.HandleFunc("/trips", hdl.RegisterTrip).Methods("POST")
	api.HandleFunc("/recording/start", hdl.Start).Methods("POST")
	api.HandleFunc("/recording/stop", hdl.Stop).Methods("POST")
	api.HandleFunc("/recording/retry", hdl.Retry).Methods("POST")
	api.HandleFunc("/recording", hdl.Status).Methods("GET")
	api.HandleFunc("/recording/track.geojson", hdl.TrackGeoJSON).Methods("GET")
	api.HandleFunc("/recording/track.gpx", hdl.TrackGPX).Methods("GET")

	// health
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(200)
		_, _ = w.Write([]byte("ok"))
	}).Methods("GET")

	return r
}

// Serve runs the control API until ctx is cancelled.
func Serve(ctx context.Context, cfg config.Config, h http.Handler) error {
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		monitoring.Infof("route tracker listening on %s", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
