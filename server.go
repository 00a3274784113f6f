package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mmdatafocus/fieldsales_backend/config"
	"github.com/mmdatafocus/fieldsales_backend/inbox"
	"github.com/mmdatafocus/fieldsales_backend/models"
	"github.com/mmdatafocus/fieldsales_backend/outbox"
	"github.com/mmdatafocus/fieldsales_backend/session"
	"github.com/mmdatafocus/fieldsales_backend/syncapi"
	"github.com/mmdatafocus/fieldsales_backend/syncer"
	"github.com/mmdatafocus/fieldsales_backend/utils"
)

func main() {
	logger := config.GetLogger()
	settings := config.LoadSettings()
	utils.PhoneRegion = settings.PhoneRegion

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	if err := config.ConnectDatabase(settings.DatabasePath); err != nil {
		logger.WithError(err).Fatal("failed to open the store")
	}
	defer func() { _ = config.CloseDatabase() }()

	if _, err := models.MigrateTable(sigCtx, settings); err != nil {
		logger.WithError(err).Fatal("failed to migrate the store")
	}

	orch := syncer.NewOrchestrator(config.GetDB(), syncer.Options{
		SnapshotDir:      settings.SnapshotDir,
		ExportDir:        settings.ExportDir,
		StrictReferences: config.StrictOrdinalReferences(),
		Workbook:         config.ExportWorkbook(),
		Mailer:           outbox.NewDirMailer(settings.OutboxDir, logger),
		Logger:           logger,
	})
	pool := syncer.NewPool(settings.Workers, settings.QueueSize, logger, settings.Locale)
	async := syncer.Async{Orchestrator: orch, Pool: pool}
	board := syncapi.NewBoard()

	if os.Getenv("GO_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := syncapi.NewRouter(&syncapi.Server{
		Sync:    async,
		Session: session.NewHolder(),
		Board:   board,
		Locale:  settings.Locale,
		Logger:  logger,
	})

	watchCtx, cancelWatch := context.WithCancel(sigCtx)
	defer cancelWatch()
	var watcher *inbox.Watcher
	if config.WatchInbox() {
		w, err := inbox.NewWatcher(settings.SnapshotDir, logger)
		if err == nil {
			err = w.Start()
		}
		if err != nil {
			logger.WithError(err).Error("inbox watcher not started")
		} else {
			watcher = w
			go NewInboxProcessor(async, watcher, logger, board.Record).Run(watchCtx)
		}
	}

	srv := &http.Server{
		Addr:              ":" + settings.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()
	logger.WithFields(logrus.Fields{"port": settings.Port, "db": settings.DatabasePath}).Info("sync service started")

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// stop intake first, then drain requests and queued passes
	cancelWatch()
	if watcher != nil {
		_ = watcher.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}
	pool.Close()
}
