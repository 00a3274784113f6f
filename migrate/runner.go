package migrate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Config controls runner behaviour.
type Config struct {
	DatabasePath     string
	BackupDir        string
	RetainBackups    int
	AllowDestructive bool
	// SkipBootstrap sends an empty store through every step instead of creating the latest
	// schema directly.
	SkipBootstrap bool
}

// Report summarizes one ApplyAll call.
type Report struct {
	From         int
	To           int
	Applied      []int
	StepsApplied int
	StepsSkipped int
	Bootstrapped bool
	Rebuilt      bool
	BackupPath   string
}

// Runner applies registered migrations against the store.
type Runner struct {
	db        *gorm.DB
	registry  *Registry
	bootstrap Bootstrap
	store     *Store
	logger    *logrus.Logger
	cfg       Config
	backup    *BackupManager
	nowFunc   func() time.Time
}

// NewRunner constructs a Runner.
func NewRunner(db *gorm.DB, registry *Registry, bootstrap Bootstrap, cfg Config, logger *logrus.Logger) (*Runner, error) {
	if db == nil {
		return nil, errors.New("migrate: db handle is required")
	}
	if registry == nil {
		return nil, errors.New("migrate: registry is required")
	}
	if cfg.RetainBackups <= 0 {
		cfg.RetainBackups = 3
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Runner{
		db:        db,
		registry:  registry,
		bootstrap: bootstrap,
		store:     NewStore(db),
		logger:    logger,
		cfg:       cfg,
		backup: &BackupManager{
			DatabasePath: cfg.DatabasePath,
			BackupDir:    cfg.BackupDir,
			Retain:       cfg.RetainBackups,
		},
		nowFunc: time.Now,
	}, nil
}

// Store exposes the version header and ledger.
func (r *Runner) Store() *Store { return r.store }

// ApplyAll brings the store to the latest registered version.
func (r *Runner) ApplyAll(ctx context.Context) (*Report, error) {
	return r.ApplyTo(ctx, r.registry.Latest())
}

// ApplyTo brings the store to target. A store newer than the registry, or one whose path has a
// gap, is rebuilt when allowed.
func (r *Runner) ApplyTo(ctx context.Context, target int) (*Report, error) {
	unlock := lockProcess()
	defer unlock()

	if err := r.store.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	current, err := r.store.Version(ctx, nil)
	if err != nil {
		return nil, err
	}
	latest := r.registry.Latest()
	if target > latest {
		target = latest
	}
	report := &Report{From: current, To: current}

	if current > latest {
		return report, r.rebuild(ctx, report, fmt.Sprintf("stored version %d is newer than %d", current, latest))
	}
	if current >= target {
		return report, nil
	}

	if current == 0 && target == latest && r.bootstrap != nil && !r.cfg.SkipBootstrap {
		tables, err := NewInspector(r.db).UserTables(ctx)
		if err != nil {
			return report, err
		}
		if len(tables) == 0 {
			return report, r.bootstrapStore(ctx, report)
		}
	}

	path, ok := r.registry.PathFrom(current)
	if !ok {
		return report, r.rebuild(ctx, report, fmt.Sprintf("no migration path from version %d", current))
	}
	for _, mig := range path {
		if mig.Version > target {
			break
		}
		if err := r.runMigration(ctx, mig, report); err != nil {
			return report, err
		}
	}
	return report, nil
}

var processMutex sync.Mutex

func lockProcess() func() {
	processMutex.Lock()
	return func() {
		processMutex.Unlock()
	}
}

func (r *Runner) runMigration(ctx context.Context, mig Migration, report *Report) error {
	log := r.logger.WithFields(logrus.Fields{
		"module":  "migrate",
		"version": mig.Version,
	})

	if prev, err := r.store.Get(ctx, mig.Version); err == nil && prev.Checksum != mig.Checksum() {
		log.WithFields(logrus.Fields{"stored": prev.Checksum, "new": mig.Checksum()}).
			Warn("migration checksum changed since it was last applied")
	}

	if mig.RequiresBackup && r.backup.Enabled() {
		path, err := r.backup.Create(ctx, fmt.Sprintf("v%d", mig.Version), r.nowFunc())
		if err != nil {
			return fmt.Errorf("migrate: backup before version %d: %w", mig.Version, err)
		}
		report.BackupPath = path
		log.WithField("backup_path", path).Info("migration backup created")
	}

	start := r.nowFunc()
	applied, skipped := 0, 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		insp := NewInspector(tx)
		for _, step := range mig.Steps {
			changed, err := step.Apply(ctx, tx, insp)
			if err != nil {
				return fmt.Errorf("%s: %w", step.Name(), err)
			}
			if changed {
				applied++
			} else {
				skipped++
				log.WithField("step", step.Name()).Debug("migration step already satisfied")
			}
		}
		if err := r.store.Record(ctx, tx, LedgerRecord{
			Version:     mig.Version,
			Description: mig.Description,
			Checksum:    mig.Checksum(),
			Mode:        ModeStep,
			AppliedAt:   r.nowFunc(),
		}); err != nil {
			return err
		}
		return r.store.SetVersion(ctx, tx, mig.Version)
	})
	if err != nil {
		log.WithError(err).Error("migration apply failed")
		return fmt.Errorf("migrate: apply version %d: %w", mig.Version, err)
	}

	if report.BackupPath != "" {
		if err := r.backup.Trim(); err != nil {
			log.WithError(err).Warn("failed to trim backups")
		}
	}

	report.To = mig.Version
	report.Applied = append(report.Applied, mig.Version)
	report.StepsApplied += applied
	report.StepsSkipped += skipped
	log.WithFields(logrus.Fields{
		"steps_applied": applied,
		"steps_skipped": skipped,
		"duration":      r.nowFunc().Sub(start).String(),
	}).Info("migration applied")
	return nil
}

func (r *Runner) bootstrapStore(ctx context.Context, report *Report) error {
	latest := r.registry.Latest()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.bootstrap(ctx, tx); err != nil {
			return err
		}
		return r.markLatest(ctx, tx, ModeBootstrap)
	})
	if err != nil {
		return fmt.Errorf("migrate: bootstrap version %d: %w", latest, err)
	}
	report.To = latest
	report.Bootstrapped = true
	r.logger.WithFields(logrus.Fields{"module": "migrate", "version": latest}).Info("store created at latest schema")
	return nil
}

// rebuild is the last-resort path: back up, drop every application table and bootstrap.
func (r *Runner) rebuild(ctx context.Context, report *Report, reason string) error {
	if !r.cfg.AllowDestructive || r.bootstrap == nil {
		return fmt.Errorf("%w: %s", ErrNoMigrationPath, reason)
	}
	log := r.logger.WithFields(logrus.Fields{
		"module": "migrate",
		"reason": reason,
		"from":   report.From,
		"to":     r.registry.Latest(),
	})

	if r.backup.Enabled() {
		path, err := r.backup.Create(ctx, "rebuild", r.nowFunc())
		if err != nil {
			return fmt.Errorf("migrate: backup before rebuild: %w", err)
		}
		report.BackupPath = path
		log = log.WithField("backup_path", path)
	}
	log.Warn("destructive schema rebuild: local data is discarded")

	err := r.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		if err := conn.Exec("PRAGMA foreign_keys = OFF").Error; err != nil {
			return err
		}
		defer func() { _ = conn.Exec("PRAGMA foreign_keys = ON").Error }()

		return conn.Transaction(func(tx *gorm.DB) error {
			tables, err := NewInspector(tx).UserTables(ctx)
			if err != nil {
				return err
			}
			for _, table := range tables {
				if err := tx.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %q", table)).Error; err != nil {
					return fmt.Errorf("drop %s: %w", table, err)
				}
			}
			if err := r.store.Clear(ctx, tx); err != nil {
				return err
			}
			if err := r.bootstrap(ctx, tx); err != nil {
				return err
			}
			return r.markLatest(ctx, tx, ModeRebuild)
		})
	})
	if err != nil {
		return fmt.Errorf("migrate: rebuild: %w", err)
	}
	report.To = r.registry.Latest()
	report.Rebuilt = true
	return nil
}

func (r *Runner) markLatest(ctx context.Context, tx *gorm.DB, mode string) error {
	now := r.nowFunc()
	for _, mig := range r.registry.List() {
		if err := r.store.Record(ctx, tx, LedgerRecord{
			Version:     mig.Version,
			Description: mig.Description,
			Checksum:    mig.Checksum(),
			Mode:        mode,
			AppliedAt:   now,
		}); err != nil {
			return err
		}
	}
	return r.store.SetVersion(ctx, tx, r.registry.Latest())
}
