package main

import (
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Pabi691/custom-clothology/canvas"
	"github.com/Pabi691/custom-clothology/clients/commerce"
	"github.com/Pabi691/custom-clothology/clients/genai"
	"github.com/Pabi691/custom-clothology/compositor"
	"github.com/Pabi691/custom-clothology/config"
	"github.com/Pabi691/custom-clothology/handlers/api/capture"
	"github.com/Pabi691/custom-clothology/handlers/api/design"
	"github.com/Pabi691/custom-clothology/handlers/api/designs"
	"github.com/Pabi691/custom-clothology/handlers/api/panel"
	"github.com/Pabi691/custom-clothology/handlers/auth"
	"github.com/Pabi691/custom-clothology/handlers/websocket"
	authMiddleware "github.com/Pabi691/custom-clothology/middleware"
	"github.com/Pabi691/custom-clothology/panels"
	"github.com/Pabi691/custom-clothology/session"
	"github.com/Pabi691/custom-clothology/stores"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type deps struct {
	store      stores.Store
	registry   *session.Registry
	gate       *auth.Gate
	compositor *compositor.Compositor
	cart       capture.Cart
	gen        panels.Generator
}

func setupRouter(d deps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "X-CSRF-Token", "Token", "session", "Origin", "Host", "Connection", "Accept-Encoding", "Accept-Language", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]any{"status": "ok", "sessions": d.registry.Len()})
	})
	r.Get("/start", d.gate.HandleStart)

	layout := canvas.Default
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authMiddleware.AuthSession(d.gate, d.registry))

		r.Get("/design", design.HandleGetDesign())
		r.Delete("/session", design.HandleEndSession(d.gate))
		r.Put("/side", design.HandleSetSide())
		r.Put("/selection", design.HandleSetSelection())
		r.Put("/options", design.HandleSetOptions())

		r.Route("/layers", func(r chi.Router) {
			r.Post("/", design.HandleAddLayer(layout))
			r.Delete("/", design.HandleClearAll())
			r.Delete("/last", design.HandleRemoveLast())
			r.Get("/panel", design.HandleLayersPanel())
			r.Route("/{id}", func(r chi.Router) {
				r.Patch("/", design.HandleUpdateLayer(layout))
				r.Delete("/", design.HandleDeleteLayer())
				r.Post("/reorder", design.HandleReorderLayer())
				r.Post("/drag", design.HandleDrag(layout))
				r.Post("/resize", design.HandleResize(layout))
				r.Post("/text", design.HandleCommitText())
			})
		})

		r.Post("/panels/text", panel.HandleTextSubmit())
		r.Post("/panels/text/draft", panel.HandleTextDraft())
		r.Route("/ai", func(r chi.Router) {
			r.Post("/generate", panel.HandleGenerate(d.gen))
			r.Get("/ideas", panel.HandleIdeas(d.gen))
			r.Post("/ideas/use", panel.HandleUseIdea(d.gen))
		})
		r.Post("/uploads", panel.HandleUpload(d.gen))
		r.Post("/uploads/camera", panel.HandleCameraCapture())

		r.Get("/render/{side}", capture.HandleRender(d.compositor))
		r.Get("/download/{side}", capture.HandleDownload(d.compositor))
		r.Post("/cart", capture.HandleAddToCart(d.compositor, d.cart))

		r.Route("/designs", func(r chi.Router) {
			r.Get("/", designs.HandleListDesigns(d.store))
			r.Route("/{key}", func(r chi.Router) {
				r.Get("/", designs.HandleGetDesign(d.store))
				r.Put("/", designs.HandleSaveDesign(d.store))
				r.Delete("/", designs.HandleDeleteDesign(d.store))
				r.Post("/restore", designs.HandleRestoreDesign(d.store, layout))
			})
		})
	})

	return r
}

func waitForShutdown(hub *websocket.Hub, registry *session.Registry, store stores.Store) {
	exit := make(chan struct{})
	signalC := make(chan os.Signal, 1)

	signal.Notify(signalC, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		for s := range signalC {
			switch s {
			case os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT:
				close(exit)
				return
			}
		}
	}()

	<-exit
	logrus.Info("Shutting down...")
	hub.Close()
	registry.Close()
	if c, ok := store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close store")
		}
	}
	os.Exit(0)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}

	listenAddress := flag.String("listen", cfg.Listen, "The address to listen on.")
	logLevel := flag.String("loglevel", cfg.LogLevel, "The log level (debug, info, warn, error).")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	store := stores.GetStore(cfg)
	registry := session.NewRegistry(cfg.SessionTimeout, cfg.TextDebounce)
	commerceClient := commerce.New(cfg.CommerceAPIURL, 0)

	// A nil Generator disables the AI panels.
	var gen panels.Generator
	if cfg.OpenAIAPIKey != "" {
		gen = genai.New(genai.Config{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			ImageModel: cfg.OpenAIImageModel,
			ChatModel:  cfg.OpenAIChatModel,
		})
	} else {
		logrus.Warn("OPENAI_API_KEY is not set. AI panels are disabled.")
	}

	comp := compositor.New(
		canvas.Default,
		compositor.NewLoader(
			compositor.NewClient(cfg.ImageFetchTimeout),
			compositor.AllowHosts(cfg.ImageHosts...),
		),
		compositor.NewFonts(cfg.FontDir),
		cfg.RenderScale,
	)
	gate := auth.NewGate(cfg.JWTSecret, cfg.LoginURL, cfg.SentinelToken, registry, commerceClient)

	r := setupRouter(deps{
		store:      store,
		registry:   registry,
		gate:       gate,
		compositor: comp,
		cart:       commerceClient,
		gen:        gen,
	})

	hub := websocket.NewHub(gate, registry)
	r.Mount("/socket.io/", hub.Server().ServeHandler(nil))

	logrus.WithField("addr", *listenAddress).Info("starting server")
	go func() {
		if err := http.ListenAndServe(*listenAddress, r); err != nil {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	logrus.Debug("Server is running in the background")
	waitForShutdown(hub, registry, store)
}
