// Command docskew-desktop is the desktop front end of docskew.
package main

import (
	"context"
	"os"
	"runtime"
	"strconv"

	"docskew/internal/config"
	"docskew/internal/controllers"
	"docskew/internal/eventbus"
	"docskew/internal/logger"
	"docskew/internal/models"
	"docskew/internal/shutdown"
	"docskew/internal/skew"
	"docskew/internal/tasks"
	"docskew/internal/timing"
	"docskew/internal/views"
	"docskew/internal/views/components"
	"docskew/internal/workerpool"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
)

const (
	AppName    = "Docskew"
	AppID      = "io.docskew.desktop"
	AppVersion = "1.0.0"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewConsoleLogger(logger.LevelFromEnv()).Error("config", err, nil)
		os.Exit(2)
	}
	log := cfg.Logger()

	pool, err := workerpool.New(cfg.Workers, log)
	if err != nil {
		log.Error("startup", err, nil)
		os.Exit(2)
	}
	bus := eventbus.NewBus(256, log)
	manager := tasks.NewManager(pool, models.NewTaskRepository(), skew.NewCorrector(log, timing.NewTracker()), bus, log)

	app.SetMetadata(fyne.AppMetadata{
		ID:      AppID,
		Name:    AppName,
		Version: AppVersion,
	})
	fyneApp := app.NewWithID(AppID)

	window := fyneApp.NewWindow(AppName)
	window.Resize(fyne.NewSize(1280, 860))
	window.CenterOnScreen()

	defaults := components.DefaultParamValues(cfg.Workers)
	defaults.Threads = strconv.Itoa(cfg.Threads)

	view := views.NewMainView(window, defaults)
	controller := controllers.NewMainController(manager, bus, log)
	controller.SetMainView(view)

	shutdowns := shutdown.NewManager(log, cfg.ShutdownTimeout)
	shutdowns.Register("tasks", manager)
	shutdowns.Register("controller", shutdown.Func(func(context.Context) error {
		controller.Shutdown()
		return nil
	}))
	shutdowns.Listen()

	closed := make(chan struct{})
	go func() {
		select {
		case <-shutdowns.Context().Done():
			fyne.Do(fyneApp.Quit)
		case <-closed:
		}
	}()

	log.Info("startup", "application started", map[string]interface{}{
		"version":    AppVersion,
		"workers":    cfg.Workers,
		"go_version": runtime.Version(),
	})

	window.ShowAndRun()
	close(closed)
	shutdowns.Shutdown()
}
