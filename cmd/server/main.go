package main

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"employee-monitor/internal/config"
	"employee-monitor/internal/handlers"
	"employee-monitor/internal/notify"
	"employee-monitor/internal/store"
)

func initLogger(cfg *config.Server) {
	var level slog.Level
	switch strings.ToUpper(cfg.LogLevel) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN", "WARNING":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// sweepOffline periodically marks employees offline once their last report
// is older than the configured staleness threshold.
func sweepOffline(st *store.Store, after time.Duration) {
	ticker := time.NewTicker(after / 2)
	defer ticker.Stop()

	for range ticker.C {
		if _, err := st.MarkStaleOffline(time.Now().UTC().Add(-after)); err != nil {
			slog.Error("offline sweep failed", "error", err)
		}
	}
}

func main() {
	cfg := config.LoadServer()
	initLogger(cfg)

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		slog.Error("failed to create upload directory", "dir", cfg.UploadDir, "error", err)
		os.Exit(1)
	}

	db, err := gorm.Open(sqlite.Open(cfg.DBName), &gorm.Config{})
	if err != nil {
		slog.Error("failed to open database", "db", cfg.DBName, "error", err)
		os.Exit(1)
	}

	hub := notify.NewHub()
	st := store.New(db, hub)
	if err := st.AutoMigrate(); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	go sweepOffline(st, cfg.OfflineAfter)

	agentAPI := handlers.NewAgentHandler(st, cfg.UploadDir)
	adminAPI := handlers.NewAdminHandler(st, hub)

	r := gin.Default()
	r.Use(handlers.CORS())

	// Agent protocol. API key required on every endpoint.
	agent := r.Group("/api", handlers.APIKeyAuth(st))
	agent.POST("/log-activity", agentAPI.LogActivity)
	agent.POST("/upload-screenshot", agentAPI.UploadScreenshot)
	agent.POST("/agent-request", agentAPI.SubmitRequest)
	agent.GET("/check-permission", agentAPI.CheckPermission)

	// Operator API. Auth is a static token here; session management for
	// operators is expected to sit in front of the server.
	admin := r.Group("/api/admin", handlers.AdminAuth(cfg.AdminToken))
	admin.POST("/employees", adminAPI.CreateEmployee)
	admin.GET("/employees", adminAPI.ListEmployees)
	admin.GET("/employees/:id", adminAPI.GetEmployee)
	admin.PATCH("/employees/:id", adminAPI.UpdateEmployee)
	admin.POST("/employees/:id/rotate-key", adminAPI.RotateAPIKey)
	admin.GET("/activity", adminAPI.ListActivity)
	admin.GET("/screenshots", adminAPI.ListScreenshots)
	admin.GET("/requests", adminAPI.ListRequests)
	admin.POST("/requests/:id/respond", adminAPI.RespondRequest)
	admin.GET("/stats", adminAPI.Stats)
	admin.GET("/events", adminAPI.Events)

	// Serve stored screenshots to the dashboard.
	admin.Static("/uploads", cfg.UploadDir)

	slog.Info("server starting", "port", cfg.Port, "db", cfg.DBName)
	if err := r.Run(cfg.Port); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}
