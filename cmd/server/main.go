package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/learnhub/engagement/internal/auth"
	"github.com/learnhub/engagement/internal/database"
	"github.com/learnhub/engagement/internal/engagement"
	"github.com/learnhub/engagement/internal/middleware"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[server] no .env file, using process environment")
	}

	// Static configuration is validated up front; a bad catalog or timezone
	// is fatal, never a per-request condition.
	catalog := engagement.DefaultCatalog()
	if err := catalog.Validate(); err != nil {
		log.Fatalf("Invalid engagement catalog: %v", err)
	}
	loc, err := time.LoadLocation(getEnv("ENGAGEMENT_TZ", "UTC"))
	if err != nil {
		log.Fatalf("Invalid ENGAGEMENT_TZ: %v", err)
	}

	db, err := database.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	store := engagement.NewSQLStore(db)
	service := engagement.NewService(store, catalog, loc)

	authHandler := auth.NewHandler(db)
	engagementHandler := engagement.NewHandler(service)

	// Setup router
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware)
	protected.HandleFunc("/auth/me", authHandler.GetCurrentUser).Methods("GET")

	protected.HandleFunc("/engagement/award", engagementHandler.Award).Methods("POST")
	protected.HandleFunc("/engagement/streak", engagementHandler.UpdateStreak).Methods("POST")
	protected.HandleFunc("/engagement/achievements/check", engagementHandler.CheckAchievements).Methods("POST")
	protected.HandleFunc("/engagement/events/quiz", engagementHandler.QuizCompleted).Methods("POST")
	protected.HandleFunc("/engagement/events/course", engagementHandler.CourseCompleted).Methods("POST")
	protected.HandleFunc("/engagement/events/study", engagementHandler.StudyTime).Methods("POST")
	protected.HandleFunc("/engagement/events/certificate", engagementHandler.CertificateEarned).Methods("POST")
	protected.HandleFunc("/engagement/leaderboard", engagementHandler.Leaderboard).Methods("GET")
	protected.HandleFunc("/engagement/rank", engagementHandler.UserRank).Methods("GET")
	protected.HandleFunc("/engagement/me", engagementHandler.UserStats).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	startStreakReporter(store, loc)

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// startStreakReporter schedules a nightly read-only report of streaks that
// lapse unless their owners log in today. The engine itself stays
// request-driven; this only reads.
func startStreakReporter(store *engagement.SQLStore, loc *time.Location) {
	sched, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		log.Printf("[server] failed to create scheduler: %v", err)
		return
	}

	_, err = sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 30, 0))),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			n, err := store.StreaksAtRisk(ctx, time.Now().In(loc))
			if err != nil {
				log.Printf("[engagement] streak report failed: %v", err)
				return
			}
			log.Printf("[engagement] %d streaks at risk today", n)
		}),
	)
	if err != nil {
		log.Printf("[server] failed to schedule streak report: %v", err)
		return
	}

	sched.Start()
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
