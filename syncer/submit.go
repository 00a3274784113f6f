package syncer

import (
	"bytes"
	"context"
	"io"

	"github.com/mmdatafocus/fieldsales_backend/models"
	"github.com/mmdatafocus/fieldsales_backend/snapshot"
)

// Async wires the orchestrator to a pool.
type Async struct {
	*Orchestrator
	Pool *Pool
}

func (a Async) SubmitImportKind(ctx context.Context, kind snapshot.Kind, done Callback) (string, error) {
	return a.Pool.Submit(ctx, "import "+string(kind), func(ctx context.Context) (*Report, error) {
		return a.ImportKind(ctx, kind)
	}, done)
}

func (a Async) SubmitImportAll(ctx context.Context, done Callback) (string, error) {
	return a.Pool.Submit(ctx, "import all", a.ImportAll, done)
}

// SubmitImportStream reads r before queueing so the caller may close it on return.
func (a Async) SubmitImportStream(ctx context.Context, r io.Reader, displayName string, done Callback) (string, error) {
	if _, err := snapshot.KindFromFileName(displayName); err != nil {
		return "", err
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return a.Pool.Submit(ctx, "import "+displayName, func(ctx context.Context) (*Report, error) {
		return a.ImportStream(ctx, bytes.NewReader(body), displayName)
	}, done)
}

func (a Async) SubmitExport(ctx context.Context, kind snapshot.Kind, mode models.ExportMode, done Callback) (string, error) {
	return a.Pool.Submit(ctx, "export "+string(kind)+"/"+string(mode), func(ctx context.Context) (*Report, error) {
		return a.Export(ctx, kind, mode)
	}, done)
}

func (a Async) SubmitExportAndSend(ctx context.Context, kind snapshot.Kind, mode models.ExportMode, done Callback) (string, error) {
	return a.Pool.Submit(ctx, "send "+string(kind)+"/"+string(mode), func(ctx context.Context) (*Report, error) {
		return a.ExportAndSend(ctx, kind, mode)
	}, done)
}
