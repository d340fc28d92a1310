package main

import (
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	socketio "github.com/zishang520/socket.io/v2/socket"

	"codeshare-server/core"
	"codeshare-server/handlers/api/roomsapi"
	"codeshare-server/handlers/api/snapshots"
	"codeshare-server/handlers/websocket"
	"codeshare-server/presence"
	"codeshare-server/rooms"
	"codeshare-server/stores"
	"codeshare-server/textsync"
)

func setupRouter(registry *rooms.Registry, snapshotStore core.SnapshotStore) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	corsOptions := cors.Options{
		AllowOriginFunc: func(r *http.Request, origin string) bool {
			if origin == "" {
				return false
			}

			parsed, err := url.Parse(origin)
			if err != nil {
				return false
			}

			switch parsed.Scheme {
			case "http", "https":
				switch parsed.Hostname() {
				case "localhost", "127.0.0.1", "::1":
					return true
				}
				return parsed.String() == os.Getenv("CLIENT_ORIGIN")
			}

			return false
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	r.Use(cors.Handler(corsOptions))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	r.Get("/api/rooms", roomsapi.HandleList(registry))
	r.Route("/api/rooms/{roomID}", func(r chi.Router) {
		r.Get("/", roomsapi.HandleGet(registry))
		r.Route("/snapshots", func(r chi.Router) {
			r.Post("/", snapshots.HandleCreateSnapshot(snapshotStore, registry))
			r.Get("/", snapshots.HandleListSnapshots(snapshotStore))
		})
	})
	r.Route("/api/snapshots/{snapshotID}", func(r chi.Router) {
		r.Get("/", snapshots.HandleGetSnapshot(snapshotStore))
		r.Delete("/", snapshots.HandleDeleteSnapshot(snapshotStore))
	})

	return r
}

func waitForShutdown(ioo *socketio.Server) {
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
	ioo.Close(nil)
	os.Exit(0)
}

func main() {
	logLevel := flag.String("loglevel", "info", "Set the logging level: debug, info, warn, error, fatal, panic")
	listenAddr := flag.String("listen", ":3002", "Set the server listen address")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using process environment")
	}

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level: %v\n", err)
		os.Exit(1)
	}
	logrus.SetLevel(level)

	presenceStore := presence.GetStore()
	registry := rooms.NewRegistry(presenceStore)
	engine := textsync.NewEngine(registry)
	snapshotStore := stores.GetStore()

	r := setupRouter(registry, snapshotStore)

	ioo := websocket.SetupSocketIO(registry, presenceStore, engine)
	r.Handle("/socket.io/", ioo.ServeHandler(nil))

	logrus.WithField("addr", *listenAddr).Info("starting server")
	go func() {
		if err := http.ListenAndServe(*listenAddr, r); err != nil {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	waitForShutdown(ioo)
}
