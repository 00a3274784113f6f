package syncer_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmdatafocus/fieldsales_backend/models"
	"github.com/mmdatafocus/fieldsales_backend/syncer"
	"github.com/mmdatafocus/fieldsales_backend/utils"
)

func awaitOutcome(t *testing.T, ch <-chan syncer.Outcome) syncer.Outcome {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(5 * time.Second):
		t.Fatal("no outcome delivered")
		return syncer.Outcome{}
	}
}

func TestPool_SuccessOutcome(t *testing.T) {
	p := syncer.NewPool(2, 4, logrus.New(), "en")
	defer p.Close()

	ch := make(chan syncer.Outcome, 1)
	ctx := utils.SetRepresentativeCodeInContext(context.Background(), "R1")
	runID, err := p.Submit(ctx, "import all", func(ctx context.Context) (*syncer.Report, error) {
		code, _ := utils.GetRepresentativeCodeFromContext(ctx)
		id, _ := utils.GetRunIdFromContext(ctx)
		return &syncer.Report{
			RunID:  id,
			Status: models.SyncRunStatusSuccess,
			Kinds:  []syncer.KindReport{{Kind: "representatives", Counts: models.SyncCounts{Inserted: len(code)}}},
		}, nil
	}, func(o syncer.Outcome) { ch <- o })
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	o := awaitOutcome(t, ch)
	assert.True(t, o.OK)
	assert.Equal(t, runID, o.RunID)
	assert.Equal(t, runID, o.Report.RunID)
	assert.Equal(t, "success: 2 inserted, 0 updated, 0 deleted, 0 skipped", o.Message)
}

func TestPool_FailureOutcomeIsLocalized(t *testing.T) {
	p := syncer.NewPool(1, 1, logrus.New(), "es")
	defer p.Close()

	ch := make(chan syncer.Outcome, 1)
	_, err := p.Submit(context.Background(), "import catalog", func(context.Context) (*syncer.Report, error) {
		return nil, utils.FormatError("parse catalog", "unexpected root %q", "items")
	}, func(o syncer.Outcome) { ch <- o })
	require.NoError(t, err)

	o := awaitOutcome(t, ch)
	assert.False(t, o.OK)
	assert.Equal(t, "El fichero no tiene el formato esperado.", o.Message)
	assert.Contains(t, o.Cause, "items")
}

func TestPool_RecoversPanics(t *testing.T) {
	p := syncer.NewPool(1, 1, logrus.New(), "en")
	defer p.Close()

	ch := make(chan syncer.Outcome, 1)
	_, err := p.Submit(context.Background(), "boom", func(context.Context) (*syncer.Report, error) {
		panic("boom")
	}, func(o syncer.Outcome) { ch <- o })
	require.NoError(t, err)

	o := awaitOutcome(t, ch)
	assert.False(t, o.OK)
	assert.True(t, strings.Contains(o.Cause, "boom"))
}

func TestPool_KeepsRunIDFromContext(t *testing.T) {
	p := syncer.NewPool(1, 1, logrus.New(), "en")
	defer p.Close()

	ctx := utils.SetRunIdInContext(context.Background(), "run-42")
	runID, err := p.Submit(ctx, "noop", func(context.Context) (*syncer.Report, error) { return nil, nil }, nil)
	require.NoError(t, err)
	assert.Equal(t, "run-42", runID)
}

func TestPool_QueueFull(t *testing.T) {
	p := syncer.NewPool(1, 1, logrus.New(), "en")
	defer p.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	blocking := func(context.Context) (*syncer.Report, error) {
		close(started)
		<-release
		return nil, nil
	}
	noop := func(context.Context) (*syncer.Report, error) { return nil, nil }

	_, err := p.Submit(context.Background(), "first", blocking, nil)
	require.NoError(t, err)
	<-started

	_, err = p.Submit(context.Background(), "second", noop, nil)
	require.NoError(t, err)
	_, err = p.Submit(context.Background(), "third", noop, nil)
	assert.ErrorIs(t, err, syncer.ErrQueueFull)
	assert.ErrorIs(t, err, utils.ErrBusy)
	assert.NotErrorIs(t, err, syncer.ErrPoolClosed)
	close(release)
}

func TestPool_CancelledContextStillRuns(t *testing.T) {
	p := syncer.NewPool(1, 1, logrus.New(), "en")
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan syncer.Outcome, 1)
	_, err := p.Submit(ctx, "detached", func(ctx context.Context) (*syncer.Report, error) {
		return &syncer.Report{Status: models.SyncRunStatusSuccess}, ctx.Err()
	}, func(o syncer.Outcome) { ch <- o })
	require.NoError(t, err)
	cancel()

	assert.True(t, awaitOutcome(t, ch).OK)
}

func TestPool_ClosedRejectsAndDrains(t *testing.T) {
	p := syncer.NewPool(1, 4, logrus.New(), "en")

	ch := make(chan syncer.Outcome, 4)
	for i := 0; i < 3; i++ {
		_, err := p.Submit(context.Background(), "queued", func(context.Context) (*syncer.Report, error) {
			time.Sleep(10 * time.Millisecond)
			return nil, nil
		}, func(o syncer.Outcome) { ch <- o })
		require.NoError(t, err)
	}
	p.Close()
	assert.Len(t, ch, 3)

	_, err := p.Submit(context.Background(), "late", func(context.Context) (*syncer.Report, error) { return nil, nil }, nil)
	assert.True(t, errors.Is(err, syncer.ErrPoolClosed))
}
