package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/campusnet/campusnet/internal/auth"
	"github.com/campusnet/campusnet/internal/broker"
	"github.com/campusnet/campusnet/internal/db"
	"github.com/campusnet/campusnet/internal/handlers"
	"github.com/campusnet/campusnet/internal/middleware"
	"github.com/campusnet/campusnet/internal/models"
	"github.com/campusnet/campusnet/internal/tracking"
	"github.com/campusnet/campusnet/internal/ws"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if os.Getenv("LOG_LEVEL") == "debug" {
		log.SetLevel(log.DebugLevel)
	}

	client, err := db.ConnectMongo()
	if err != nil {
		log.WithError(err).Fatal("failed to connect to MongoDB")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(ctx)
	}()
	store := db.NewStore(client.Database(db.DatabaseName()))
	log.Info("connected to MongoDB")

	// The broker is optional: without it drivers cannot start a session,
	// but login, provisioning and location reads keep working.
	var mqttClient mqtt.Client
	if c, err := broker.Connect("campusnet-server"); err != nil {
		log.WithError(err).Warn("MQTT broker unreachable, tracking sessions disabled")
	} else {
		mqttClient = c
		defer c.Disconnect(250)
	}

	authService, err := auth.NewService()
	if err != nil {
		log.WithError(err).Fatal("failed to initialize auth service")
	}
	resolver := auth.NewResolver(store)

	var publisher *broker.LocationPublisher
	if mqttClient != nil {
		publisher = broker.NewLocationPublisher(mqttClient)
	}
	var writer tracking.Writer
	if publisher != nil {
		writer = tracking.NewStoreWriter(store.Locations, publisher)
	} else {
		writer = tracking.NewStoreWriter(store.Locations, nil)
	}
	manager := tracking.NewManager(writer, tracking.Config{})

	sources := func(busID string) tracking.Source {
		if mqttClient == nil {
			return unavailableSource{}
		}
		return broker.NewFixSource(mqttClient, busID)
	}

	hub := ws.NewHub(store.Locations)
	if publisher != nil {
		if err := publisher.SubscribeAll(hub.Broadcast); err != nil {
			log.WithError(err).Warn("observer feed subscription failed")
		}
	}

	authHandler := handlers.NewAuthHandler(authService, resolver, store.Accounts)
	provisionHandler := handlers.NewProvisionHandler(authService, store)
	trackingHandler := handlers.NewTrackingHandler(manager, store.Buses, store.Locations, store.Settings, sources)
	busHandler := handlers.NewBusHandler(store.Buses, store.Drivers)
	settingsHandler := handlers.NewSettingsHandler(store.Settings)

	authMW := middleware.NewAuthMiddleware(authService)
	rateLimiter := middleware.NewRateLimitMiddleware()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", authHandler.Login)
	mux.HandleFunc("/api/users", provisionHandler.CreateUser)
	mux.HandleFunc("/api/tracking/start", trackingHandler.Start)
	mux.HandleFunc("/api/tracking/stop", trackingHandler.Stop)
	mux.HandleFunc("/api/tracking/location", trackingHandler.GetLocation)
	mux.HandleFunc("/api/buses", busHandler.Buses)
	mux.HandleFunc("/api/buses/assign", busHandler.AssignDriver)
	mux.HandleFunc("/api/settings/tracking", settingsHandler.Tracking)
	mux.Handle("/ws/tracking", hub)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	handler := rateLimiter.RateLimit(300, 60)(authMW.Authenticate(mux))

	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}
	log.WithField("port", port).Info("HTTP server listening")
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

// unavailableSource stands in for the MQTT fix stream when no broker is
// configured. Starting a session against it fails on the first fix.
type unavailableSource struct{}

func (unavailableSource) Current(ctx context.Context) (models.Fix, error) {
	return models.Fix{}, errNoBroker
}

func (unavailableSource) Watch(ctx context.Context) (<-chan models.Fix, <-chan error) {
	errs := make(chan error, 1)
	errs <- errNoBroker
	return make(chan models.Fix), errs
}

var errNoBroker = errors.New("mqtt broker unavailable")
