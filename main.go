package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"product-imagery-server/modules/artifact"
	"product-imagery-server/modules/catalog"
	"product-imagery-server/modules/common/config"
	"product-imagery-server/modules/common/redisqueue"
	"product-imagery-server/modules/feedback"
	"product-imagery-server/modules/generate"
	"product-imagery-server/modules/governance"
	"product-imagery-server/modules/progress"
	"product-imagery-server/modules/prompt"
	"product-imagery-server/modules/review"
	"product-imagery-server/modules/vision"
	"product-imagery-server/modules/workflow"
)

var startTime = time.Now()

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
		"uptime": time.Since(startTime).String(),
	})
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	cat, err := catalog.Load(cfg.SnapshotPath)
	if err != nil {
		log.Fatalf("❌ Failed to load product snapshot: %v", err)
	}
	log.Printf("✅ Snapshot loaded: %d products (%d with images)", cat.TotalProducts(), cat.ProductsWithImages())

	engine, err := governance.NewEngine(cfg.RulesPath)
	if err != nil {
		log.Fatalf("❌ Failed to load governance rules: %v", err)
	}

	store, err := feedback.NewStore(cfg.FeedbackPath)
	if err != nil {
		log.Fatalf("❌ Failed to open feedback store: %v", err)
	}

	profile := prompt.ProfileFor(cfg.EngineVersion)
	analyzer := vision.NewAnalyzer(cfg, profile.ReferenceImageCap)
	generator := generate.NewClient(cfg, profile)
	writer := artifact.NewWriter(cfg, cfg.EngineVersion)

	hub := progress.NewHub()
	go hub.Run()

	orchestrator := workflow.New(cfg, cat, engine, analyzer, generator, writer, store, hub)

	// Queue worker only runs when Redis is reachable; the synchronous
	// /api/generate path works either way.
	var worker *workflow.Worker
	if rdb := redisqueue.Connect(cfg); rdb != nil {
		worker = workflow.NewWorker(rdb, orchestrator, hub)
		go worker.Run(context.Background())
	} else {
		log.Printf("⚠️  Redis unavailable, background job queue disabled")
	}

	r := mux.NewRouter()
	r.Use(enableCORS)

	r.HandleFunc("/", healthCheck).Methods("GET")
	r.HandleFunc("/health", healthCheck).Methods("GET")
	r.HandleFunc("/ws", hub.HandleWS)

	review.NewHandler(orchestrator, worker, store, engine, cfg.OutputBase).RegisterRoutes(r)

	log.Printf("🚀 Product Imagery Server starting on port %s (engine: %s)", cfg.Port, cfg.EngineVersion)
	log.Printf("📡 Progress websocket: ws://localhost:%s/ws", cfg.Port)
	log.Printf("❤️  Health check: http://localhost:%s/health", cfg.Port)

	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
