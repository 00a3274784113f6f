// Package syncer runs import and export passes: it parses snapshots, reconciles them kind by
// kind in dependency order, writes exports and hands them to the mail collaborator. Passes run
// on a bounded pool and report through a callback.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/mmdatafocus/fieldsales_backend/models"
	"github.com/mmdatafocus/fieldsales_backend/models/reports"
	"github.com/mmdatafocus/fieldsales_backend/reconcile"
	"github.com/mmdatafocus/fieldsales_backend/snapshot"
	"github.com/mmdatafocus/fieldsales_backend/utils"
)

type Options struct {
	SnapshotDir string
	ExportDir   string
	// StrictReferences fails a kind on an out-of-range ordinal reference.
	StrictReferences bool
	// Workbook adds an xlsx next to full catalog and period order exports.
	Workbook bool
	Mailer   Mailer
	Logger   *logrus.Logger
}

// KindReport is the outcome of one kind within a pass.
type KindReport struct {
	Kind    snapshot.Kind     `json:"kind"`
	Counts  models.SyncCounts `json:"counts"`
	Missing bool              `json:"missing,omitempty"`
	Err     error             `json:"-"`
	Error   string            `json:"error,omitempty"`
}

// Report is the outcome of one pass.
type Report struct {
	RunID  string               `json:"run_id"`
	Status models.SyncRunStatus `json:"status"`
	Kinds  []KindReport         `json:"kinds"`
	Files  []string             `json:"files,omitempty"`
}

func (r *Report) Counts() models.SyncCounts {
	var total models.SyncCounts
	for _, k := range r.Kinds {
		total.Add(k.Counts)
	}
	return total
}

func (r *Report) Summary() string {
	c := r.Counts()
	return fmt.Sprintf("%s: %d inserted, %d updated, %d deleted, %d skipped", r.Status, c.Inserted, c.Updated, c.Deleted, c.Skipped)
}

type Orchestrator struct {
	db     *gorm.DB
	opts   Options
	logger *logrus.Logger
	tracer trace.Tracer
}

func NewOrchestrator(db *gorm.DB, opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Orchestrator{
		db:     db,
		opts:   opts,
		logger: logger,
		tracer: otel.Tracer("github.com/mmdatafocus/fieldsales_backend/syncer"),
	}
}

func runID(ctx context.Context) (context.Context, string) {
	if id, ok := utils.GetRunIdFromContext(ctx); ok && id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return utils.SetRunIdInContext(ctx, id), id
}

func (o *Orchestrator) newPass() *reconcile.Pass {
	return reconcile.NewPass(o.db, reconcile.Options{Strict: o.opts.StrictReferences, Logger: o.logger})
}

// ImportKind reads and reconciles the snapshot file of one kind.
func (o *Orchestrator) ImportKind(ctx context.Context, kind snapshot.Kind) (*Report, error) {
	if !kind.Importable() {
		return nil, utils.UnsupportedKindError("import", string(kind))
	}
	ctx, id := runID(ctx)
	report := &Report{RunID: id}
	kr := o.importFile(ctx, o.newPass(), kind)
	report.Kinds = append(report.Kinds, kr)
	if kr.Err != nil {
		report.Status = models.SyncRunStatusFailed
		return report, kr.Err
	}
	report.Status = models.SyncRunStatusSuccess
	return report, nil
}

// ImportAll reconciles every snapshot present in dependency order. A failed kind does not undo
// the kinds before it and does not stop the kinds after it. Missing files are skipped; when
// none is present the pass is NotFound.
func (o *Orchestrator) ImportAll(ctx context.Context) (*Report, error) {
	ctx, id := runID(ctx)
	ctx, span := o.tracer.Start(ctx, "syncer.ImportAll", trace.WithAttributes(attribute.String("run_id", id)))
	defer span.End()

	report := &Report{RunID: id}
	pass := o.newPass()
	var firstErr error
	attempted, failed := 0, 0
	for _, kind := range snapshot.ImportKinds() {
		kr := o.importFile(ctx, pass, kind)
		report.Kinds = append(report.Kinds, kr)
		if kr.Missing {
			continue
		}
		attempted++
		if kr.Err != nil {
			failed++
			if firstErr == nil {
				firstErr = kr.Err
			}
		}
	}

	switch {
	case attempted == 0:
		report.Status = models.SyncRunStatusFailed
		err := utils.NotFoundError("import all", "no snapshot found in %s", o.opts.SnapshotDir)
		span.SetStatus(codes.Error, err.Error())
		return report, err
	case failed == 0:
		report.Status = models.SyncRunStatusSuccess
	case failed < attempted:
		report.Status = models.SyncRunStatusPartial
	default:
		report.Status = models.SyncRunStatusFailed
	}
	o.logger.WithFields(logrus.Fields{
		"module":    "syncer",
		"run_id":    id,
		"status":    report.Status,
		"attempted": attempted,
		"failed":    failed,
	}).Info("import pass finished")

	if report.Status == models.SyncRunStatusFailed {
		span.SetStatus(codes.Error, firstErr.Error())
		return report, firstErr
	}
	return report, nil
}

// ImportStream reconciles a snapshot picked by the user; its kind comes from displayName.
func (o *Orchestrator) ImportStream(ctx context.Context, r io.Reader, displayName string) (*Report, error) {
	kind, err := snapshot.KindFromFileName(displayName)
	if err != nil {
		return nil, err
	}
	ctx, id := runID(ctx)
	report := &Report{RunID: id}
	kr := o.record(ctx, kind, func(ctx context.Context) (models.SyncCounts, error) {
		doc, err := snapshot.Parse(r, kind)
		if err != nil {
			return models.SyncCounts{}, err
		}
		res, err := o.newPass().Apply(ctx, doc)
		return res.SyncCounts, err
	})
	report.Kinds = append(report.Kinds, kr)
	if kr.Err != nil {
		report.Status = models.SyncRunStatusFailed
		return report, kr.Err
	}
	report.Status = models.SyncRunStatusSuccess
	return report, nil
}

// ImportPicked asks picker for a snapshot and imports it.
func (o *Orchestrator) ImportPicked(ctx context.Context, picker Picker) (*Report, error) {
	rc, name, err := picker.Pick(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return o.ImportStream(ctx, rc, name)
}

func (o *Orchestrator) importFile(ctx context.Context, pass *reconcile.Pass, kind snapshot.Kind) KindReport {
	layout, err := snapshot.LayoutOf(kind)
	if err != nil {
		return KindReport{Kind: kind, Err: err, Error: err.Error()}
	}
	path := filepath.Join(o.opts.SnapshotDir, layout.File)
	doc, err := snapshot.ParseFile(path, kind)
	if errors.Is(err, utils.ErrNotFound) {
		o.logger.WithFields(logrus.Fields{"module": "syncer", "kind": kind, "path": path}).Debug("snapshot not present, kind skipped")
		return KindReport{Kind: kind, Missing: true, Err: err, Error: err.Error()}
	}
	return o.record(ctx, kind, func(ctx context.Context) (models.SyncCounts, error) {
		if err != nil {
			return models.SyncCounts{}, err
		}
		res, err := pass.Apply(ctx, doc)
		return res.SyncCounts, err
	})
}

// record runs one kind inside a span and a sync_runs row.
func (o *Orchestrator) record(ctx context.Context, kind snapshot.Kind, fn func(context.Context) (models.SyncCounts, error)) KindReport {
	id, _ := utils.GetRunIdFromContext(ctx)
	ctx, span := o.tracer.Start(ctx, "syncer.import "+string(kind), trace.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("run_id", id),
	))
	defer span.End()
	log := o.logger.WithFields(logrus.Fields{"module": "syncer", "run_id": id, "kind": kind})

	run, err := models.StartSyncRun(ctx, id, string(kind))
	if err != nil {
		log.WithError(err).Warn("failed to record sync run start")
	}
	counts, err := fn(ctx)
	kr := KindReport{Kind: kind, Counts: counts, Err: err}
	if err != nil {
		kr.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.WithError(err).WithField("error_kind", utils.KindOf(err)).Error("kind import failed")
	}
	span.SetAttributes(
		attribute.Int("inserted", counts.Inserted),
		attribute.Int("updated", counts.Updated),
		attribute.Int("deleted", counts.Deleted),
	)
	if run != nil {
		if ferr := models.FinishSyncRun(ctx, run, counts, err); ferr != nil {
			log.WithError(ferr).Warn("failed to record sync run outcome")
		}
	}
	return kr
}

// Export writes kind in mode to the export directory: the XML document, its text mirror and,
// when enabled, a workbook.
func (o *Orchestrator) Export(ctx context.Context, kind snapshot.Kind, mode models.ExportMode) (*Report, error) {
	ctx, id := runID(ctx)
	ctx, span := o.tracer.Start(ctx, "syncer.Export", trace.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("mode", string(mode)),
	))
	defer span.End()

	report := &Report{RunID: id}
	label := "export " + string(kind) + "/" + string(mode)
	run, err := models.StartSyncRun(ctx, id, label)
	if err != nil {
		o.logger.WithError(err).Warn("failed to record sync run start")
	}

	files, err := o.writeExport(ctx, kind, mode)
	counts := models.SyncCounts{}
	kr := KindReport{Kind: kind, Err: err}
	if err != nil {
		kr.Error = err.Error()
		report.Status = models.SyncRunStatusFailed
		span.SetStatus(codes.Error, err.Error())
	} else {
		report.Status = models.SyncRunStatusSuccess
		report.Files = files
	}
	report.Kinds = append(report.Kinds, kr)
	if run != nil {
		if ferr := models.FinishSyncRun(ctx, run, counts, err); ferr != nil {
			o.logger.WithError(ferr).Warn("failed to record sync run outcome")
		}
	}
	if err != nil {
		return report, err
	}
	o.logger.WithFields(logrus.Fields{"module": "syncer", "run_id": id, "kind": kind, "mode": mode, "files": files}).Info("export written")
	return report, nil
}

func (o *Orchestrator) writeExport(ctx context.Context, kind snapshot.Kind, mode models.ExportMode) ([]string, error) {
	tree, err := snapshot.Build(ctx, kind, mode)
	if err != nil {
		return nil, err
	}
	files, err := snapshot.WriteFiles(o.opts.ExportDir, tree)
	if err != nil {
		return nil, err
	}
	if !o.opts.Workbook {
		return files, nil
	}
	book := filepath.Join(o.opts.ExportDir, snapshot.FileStem(kind, mode, tree.Date)+".xlsx")
	switch {
	case kind == snapshot.KindCatalog && mode == models.ExportModeFull:
		err = reports.WriteCatalogWorkbook(ctx, book)
	case kind == snapshot.KindOrders && mode == models.ExportModePeriod:
		err = reports.WriteOrdersWorkbook(ctx, book)
	default:
		return files, nil
	}
	if err != nil {
		return nil, err
	}
	return append(files, book), nil
}

// ExportAndSend exports kind and hands the files to the mailer.
func (o *Orchestrator) ExportAndSend(ctx context.Context, kind snapshot.Kind, mode models.ExportMode) (*Report, error) {
	if o.opts.Mailer == nil {
		return nil, errors.New("syncer: no mailer configured")
	}
	report, err := o.Export(ctx, kind, mode)
	if err != nil {
		return report, err
	}
	subject := fmt.Sprintf("%s %s %s", kind, mode, utils.ExportDate(utils.Today()))
	if code, ok := utils.GetRepresentativeCodeFromContext(ctx); ok && code != "" {
		subject = code + " " + subject
	}
	if err := o.opts.Mailer.Send(ctx, report.Files, subject); err != nil {
		report.Status = models.SyncRunStatusFailed
		return report, fmt.Errorf("syncer: send %s: %w", kind, err)
	}
	return report, nil
}
