// Command docskewd serves deskew tasks over HTTP.
package main

import (
	"net"
	"os"

	"docskew/internal/config"
	"docskew/internal/eventbus"
	"docskew/internal/logger"
	"docskew/internal/models"
	"docskew/internal/server"
	"docskew/internal/shutdown"
	"docskew/internal/skew"
	"docskew/internal/tasks"
	"docskew/internal/timing"
	"docskew/internal/workerpool"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewConsoleLogger(logger.LevelFromEnv()).Error("config", err, nil)
		os.Exit(2)
	}
	log := cfg.Logger()
	gin.SetMode(gin.ReleaseMode)

	pool, err := workerpool.New(cfg.Workers, log)
	if err != nil {
		log.Error("startup", err, nil)
		os.Exit(2)
	}

	bus := eventbus.NewBus(256, log)
	bus.Subscribe("", eventbus.HandlerFunc{ID: "event-log", Fn: func(e eventbus.Event) {
		log.Debug("events", e.Type, map[string]interface{}{"task_id": e.TaskID, "data": e.Data})
	}})

	tracker := timing.NewTracker()
	manager := tasks.NewManager(pool, models.NewTaskRepository(), skew.NewCorrector(log, tracker), bus, log)

	defaults := skew.DefaultParams()
	defaults.Projection.Threads = cfg.Threads
	router := server.NewRouter(manager, defaults, log)
	srv := server.New(cfg.Addr, router, log)

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		log.Error("startup", err, map[string]interface{}{"addr": cfg.Addr})
		os.Exit(1)
	}

	shutdowns := shutdown.NewManager(log, cfg.ShutdownTimeout)
	shutdowns.Register("tasks", manager)
	shutdowns.Register("http", srv)
	shutdowns.Listen()

	log.Info("startup", "task pool ready", map[string]interface{}{
		"workers": cfg.Workers,
		"threads": cfg.Threads,
	})

	if err := srv.Serve(listener); err != nil {
		log.Error("http", err, nil)
		shutdowns.Shutdown()
		os.Exit(1)
	}
	<-shutdowns.Done()

	for _, s := range tracker.Snapshot() {
		log.Info("timing", s.Operation, map[string]interface{}{
			"count":   s.Count,
			"average": s.Average.String(),
			"max":     s.Max.String(),
		})
	}
}
