package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"caregpt-mind/internal/chat"
	"caregpt-mind/internal/config"
	"caregpt-mind/internal/dispatch"
	"caregpt-mind/internal/feed"
	"caregpt-mind/internal/middleware"
	"caregpt-mind/internal/notify"
	"caregpt-mind/internal/schedule"
	"caregpt-mind/internal/store"
	"caregpt-mind/internal/workers"

	firebase "firebase.google.com/go/v4"
	"github.com/gorilla/mux"
	"google.golang.org/api/option"
)

var (
	cfg           *config.Config
	dataStore     store.Store
	dispatcher    *dispatch.Dispatcher
	syncer        *schedule.Synchronizer
	chatService   *chat.Service
	hub           *feed.Hub
	workerManager *workers.Manager
	startTime     time.Time
	serverLogs    []string
	logsMutex     sync.RWMutex
)

const maxLogs = 100

type logWriter struct{}

func (lw logWriter) Write(p []byte) (n int, err error) {
	logsMutex.Lock()
	defer logsMutex.Unlock()

	msg := string(p)
	if len(msg) > 0 && msg[len(msg)-1] == '\n' {
		msg = msg[:len(msg)-1]
	}

	timestamp := time.Now().Format("15:04:05")
	logEntry := fmt.Sprintf("[%s] %s", timestamp, msg)

	serverLogs = append(serverLogs, logEntry)
	if len(serverLogs) > maxLogs {
		serverLogs = serverLogs[1:]
	}

	fmt.Println(logEntry)

	return len(p), nil
}

func main() {
	log.SetFlags(0)
	log.SetOutput(logWriter{})

	startTime = time.Now()
	log.Println("🚀 Starting CareGPT-Mind server...")

	var err error
	cfg, err = config.Load()
	if err != nil {
		log.Fatalf("❌ Config error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Config error: %v", err)
	}

	ctx := context.Background()

	opt := option.WithCredentialsFile(cfg.FirebaseCredentialsPath)
	var fbConfig *firebase.Config
	if cfg.FirebaseProjectID != "" {
		fbConfig = &firebase.Config{ProjectID: cfg.FirebaseProjectID}
	}
	app, err := firebase.NewApp(ctx, fbConfig, opt)
	if err != nil {
		log.Fatalf("❌ Firebase error: %v", err)
	}
	log.Println("✅ Firebase initialized successfully")

	switch cfg.StoreBackend {
	case "postgres":
		dataStore, err = store.NewPostgresStore(cfg.DatabaseURL)
	default:
		dataStore, err = store.NewFirestoreStore(ctx, app)
	}
	if err != nil {
		log.Fatalf("❌ Store error: %v", err)
	}
	defer dataStore.Close()
	log.Printf("✅ Store ready (%s)", cfg.StoreBackend)

	fcmService, err := notify.NewFCMService(ctx, app)
	if err != nil {
		log.Fatalf("❌ FCM error: %v", err)
	}

	authMiddleware, err := middleware.NewAuthMiddleware(ctx, app)
	if err != nil {
		log.Fatalf("❌ Auth error: %v", err)
	}

	hub = feed.NewHub(authMiddleware.VerifyToken)

	dispatcher = dispatch.New(fcmService, dataStore, hub)
	syncer = schedule.NewSynchronizer(dispatcher)
	dispatcher.BindSynchronizer(syncer)
	if err := dispatcher.Start(time.Duration(cfg.DispatchIntervalSeconds) * time.Second); err != nil {
		log.Fatalf("❌ Dispatcher error: %v", err)
	}
	defer dispatcher.Stop()

	chatService = chat.NewService(cfg.InferenceURL, dataStore)

	workerManager = workers.NewManager()
	workerManager.Register(workers.NewResyncWorker(
		dispatcher, dataStore, syncer,
		time.Duration(cfg.ResyncIntervalMinutes)*time.Minute,
	))
	workerManager.Start()
	defer workerManager.Stop()

	router := mux.NewRouter()
	router.HandleFunc("/ws", hub.HandleWebSocket)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/stats", statsHandler).Methods("GET")
	api.HandleFunc("/health", healthCheckHandler).Methods("GET")
	api.HandleFunc("/logs", logsHandler).Methods("GET")

	authed := api.NewRoute().Subrouter()
	authed.Use(authMiddleware.RequireUser)
	authed.HandleFunc("/schedules", listSchedulesHandler).Methods("GET")
	authed.HandleFunc("/schedules", createScheduleHandler).Methods("POST")
	authed.HandleFunc("/schedules/{id}", updateScheduleHandler).Methods("PUT")
	authed.HandleFunc("/schedules/{id}/toggle", toggleScheduleHandler).Methods("POST")
	authed.HandleFunc("/schedules/{id}", deleteScheduleHandler).Methods("DELETE")
	authed.HandleFunc("/device-token", deviceTokenHandler).Methods("PUT")
	authed.HandleFunc("/chat", chatHandler).Methods("POST")
	authed.HandleFunc("/conversations", listConversationsHandler).Methods("GET")
	authed.HandleFunc("/conversations", createConversationHandler).Methods("POST")
	authed.HandleFunc("/conversations/{id}", deleteConversationHandler).Methods("DELETE")
	authed.HandleFunc("/conversations/{id}/messages", listMessagesHandler).Methods("GET")

	log.Printf("✅ Server ready on port %s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, corsMiddleware(router)))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, Accept")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
