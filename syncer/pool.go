package syncer

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mmdatafocus/fieldsales_backend/utils"
)

// Both are BUSY errors; errors.Is tells them apart by operation.
var (
	ErrPoolClosed = &utils.SyncError{Kind: utils.KindBusy, Op: "syncer: submit", Message: "pool is closed"}
	ErrQueueFull  = &utils.SyncError{Kind: utils.KindBusy, Op: "syncer: enqueue", Message: "queue is full"}
)

// Job is one pass run by a worker.
type Job func(ctx context.Context) (*Report, error)

// Outcome is delivered to the submitter's callback when a job ends.
type Outcome struct {
	RunID   string  `json:"run_id"`
	Name    string  `json:"name"`
	OK      bool    `json:"ok"`
	Message string  `json:"message"`
	Cause   string  `json:"cause,omitempty"`
	Report  *Report `json:"report,omitempty"`
}

type Callback func(Outcome)

type task struct {
	ctx   context.Context
	runID string
	name  string
	job   Job
	done  Callback
}

// Pool runs jobs on a fixed number of workers behind a bounded queue. Submissions never block;
// a started job always runs to completion.
type Pool struct {
	Logger *logrus.Logger
	Locale string

	tasks  chan task
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

func NewPool(workers int, queueSize int, logger *logrus.Logger, locale string) *Pool {
	if workers <= 0 {
		workers = 4
	}
	if queueSize < 0 {
		queueSize = 0
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	p := &Pool{
		Logger: logger,
		Locale: locale,
		tasks:  make(chan task, queueSize),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work()
	}
	return p
}

// Submit queues job and returns its run id. ctx provides values such as the session code; its
// cancellation does not reach the job.
func (p *Pool) Submit(ctx context.Context, name string, job Job, done Callback) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return "", ErrPoolClosed
	}

	runID, ok := utils.GetRunIdFromContext(ctx)
	if !ok || runID == "" {
		runID = uuid.NewString()
	}
	t := task{
		ctx:   utils.SetRunIdInContext(context.WithoutCancel(ctx), runID),
		runID: runID,
		name:  name,
		job:   job,
		done:  done,
	}
	select {
	case p.tasks <- t:
		p.Logger.WithFields(logrus.Fields{"module": "syncer", "run_id": runID, "job": name}).Debug("job queued")
		return runID, nil
	default:
		return "", ErrQueueFull
	}
}

// Close stops accepting jobs and waits for queued and running ones.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) work() {
	defer p.wg.Done()
	for t := range p.tasks {
		outcome := p.run(t)
		if t.done != nil {
			t.done(outcome)
		}
	}
}

func (p *Pool) run(t task) (outcome Outcome) {
	outcome = Outcome{RunID: t.runID, Name: t.name}
	log := p.Logger.WithFields(logrus.Fields{"module": "syncer", "run_id": t.runID, "job": t.name})
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("job panicked: %v", r)
			log.WithError(err).Error("job failed")
			outcome.OK = false
			outcome.Message, outcome.Cause = utils.UserMessage(err, p.Locale)
		}
	}()

	report, err := t.job(t.ctx)
	outcome.Report = report
	if err != nil {
		log.WithError(err).Warn("job failed")
		outcome.Message, outcome.Cause = utils.UserMessage(err, p.Locale)
		return outcome
	}
	outcome.OK = true
	if report != nil {
		outcome.Message = report.Summary()
	}
	log.Info("job finished")
	return outcome
}
