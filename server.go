package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"youngin-studio/catalog"
	"youngin-studio/core"
	"youngin-studio/handlers/api/designs"
	"youngin-studio/handlers/api/sessions"
	"youngin-studio/handlers/auth"
	"youngin-studio/handlers/websocket"
	"youngin-studio/metrics"
	authMiddleware "youngin-studio/middleware"
	"youngin-studio/stores"
	"youngin-studio/studio"
)

func newServeCmd() *cobra.Command {
	var listenAddress string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the studio HTTP and socket.io server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), listenAddress)
		},
	}
	cmd.Flags().StringVar(&listenAddress, "listen", ":3002", "The address to listen on.")
	return cmd
}

func setupRouter(store core.DesignStore, manager *studio.Manager, hub *websocket.Hub) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(metrics.Instrument)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "X-CSRF-Token", "Origin", "Accept-Encoding", "Accept-Language", "X-Requested-With"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Route("/api/v2", func(r chi.Router) {
		r.Use(authMiddleware.AuthJWT)
		r.Route("/designs", func(r chi.Router) {
			r.Get("/", designs.HandleListDesigns(store))
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", designs.HandleGetDesign(store))
				r.Put("/", designs.HandleEditDesign())
				r.Delete("/", designs.HandleDeleteDesign(store))
			})
		})
		r.Mount("/studio/sessions", sessions.New(manager).Routes())
	})

	r.Handle("/metrics", metrics.Handler())
	if hub != nil {
		r.Mount("/socket.io/", hub.Server().ServeHandler(nil))
	}
	return r
}

// newStudio wires the store, catalog, session manager and live events hub.
func newStudio(store core.DesignStore) (*studio.Manager, *websocket.Hub, error) {
	garments, err := loadCatalog()
	if err != nil {
		return nil, nil, err
	}
	width, height := canvasSize()

	var manager *studio.Manager
	hub := websocket.NewHub(func(token, sessionID string) error {
		claims, err := auth.ParseJWT(token)
		if err != nil {
			return err
		}
		_, err = manager.Get(claims.Subject, sessionID)
		return err
	})
	manager = studio.NewManager(studio.Options{
		Width:   width,
		Height:  height,
		Catalog: garments,
		Loader:  catalog.NewLoader(garments.Root),
		Store:   store,
		Events:  hub,

		IdleTimeout:         time.Duration(envInt("SESSION_IDLE_MINUTES", 30)) * time.Minute,
		MaxSessionsPerOwner: envInt("MAX_SESSIONS_PER_USER", studio.DefaultMaxSessionsPerOwner),
	})
	return manager, hub, nil
}

func serve(ctx context.Context, listenAddress string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	store := stores.GetStore()
	manager, hub, err := newStudio(store)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              listenAddress,
		Handler:           setupRouter(store, manager, hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	go manager.Run(ctx, time.Minute)

	errc := make(chan error, 1)
	go func() {
		logrus.WithField("addr", listenAddress).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logrus.Info("Shutting down...")
	hub.Server().Close(nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close store")
		}
	}
	return nil
}
