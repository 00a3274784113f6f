package main

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mmdatafocus/fieldsales_backend/inbox"
	"github.com/mmdatafocus/fieldsales_backend/syncer"
)

// InboxProcessor queues every snapshot the watcher reports as an import on the pool.
type InboxProcessor struct {
	Sync     syncer.Async
	Watcher  *inbox.Watcher
	Logger   *logrus.Logger
	Done     syncer.Callback
	Interval time.Duration
}

func NewInboxProcessor(async syncer.Async, watcher *inbox.Watcher, logger *logrus.Logger, done syncer.Callback) *InboxProcessor {
	return &InboxProcessor{
		Sync:     async,
		Watcher:  watcher,
		Logger:   logger,
		Done:     done,
		Interval: 2 * time.Second,
	}
}

func (p *InboxProcessor) Run(ctx context.Context) {
	if p == nil || p.Watcher == nil {
		return
	}
	for {
		runID, err := p.processOnce(ctx)
		switch {
		case err == nil:
			p.Logger.WithFields(logrus.Fields{"module": "inbox", "run_id": runID}).Info("snapshot queued")
			continue
		case errors.Is(err, context.Canceled), errors.Is(err, inbox.ErrStopped):
			return
		}
		p.Logger.WithError(err).WithField("module", "inbox").Warn("failed to queue snapshot")
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.Interval):
		}
	}
}

func (p *InboxProcessor) processOnce(ctx context.Context) (string, error) {
	rc, name, err := p.Watcher.Pick(ctx)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return p.Sync.SubmitImportStream(ctx, rc, name, p.Done)
}
