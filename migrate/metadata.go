package migrate

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

const ledgerTable = "schema_migrations"

// LedgerRecord is one applied version.
type LedgerRecord struct {
	Version     int       `gorm:"primaryKey;autoIncrement:false"`
	Description string    `gorm:"not null;default:''"`
	Checksum    string    `gorm:"not null;default:''"`
	Mode        string    `gorm:"not null;default:''"`
	AppliedAt   time.Time `gorm:"not null"`
}

func (LedgerRecord) TableName() string { return ledgerTable }

const (
	ModeStep      = "step"
	ModeBootstrap = "bootstrap"
	ModeRebuild   = "rebuild"
)

// Store reads and writes the version header and the ledger.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	err := s.db.WithContext(ctx).Exec(`CREATE TABLE IF NOT EXISTS ` + ledgerTable + ` (
		version INTEGER PRIMARY KEY,
		description TEXT NOT NULL DEFAULT '',
		checksum TEXT NOT NULL DEFAULT '',
		mode TEXT NOT NULL DEFAULT '',
		applied_at DATETIME NOT NULL
	)`).Error
	if err != nil {
		return fmt.Errorf("migrate: ensure ledger: %w", err)
	}
	return nil
}

// Version reads PRAGMA user_version.
func (s *Store) Version(ctx context.Context, tx *gorm.DB) (int, error) {
	if tx == nil {
		tx = s.db
	}
	var v int
	if err := tx.WithContext(ctx).Raw("PRAGMA user_version").Scan(&v).Error; err != nil {
		return 0, fmt.Errorf("migrate: read schema version: %w", err)
	}
	return v, nil
}

// SetVersion writes PRAGMA user_version; inside a transaction it commits with it.
func (s *Store) SetVersion(ctx context.Context, tx *gorm.DB, v int) error {
	if tx == nil {
		tx = s.db
	}
	if err := tx.WithContext(ctx).Exec(fmt.Sprintf("PRAGMA user_version = %d", v)).Error; err != nil {
		return fmt.Errorf("migrate: write schema version %d: %w", v, err)
	}
	return nil
}

// Record upserts a ledger row for version.
func (s *Store) Record(ctx context.Context, tx *gorm.DB, rec LedgerRecord) error {
	if tx == nil {
		tx = s.db
	}
	if err := tx.WithContext(ctx).Save(&rec).Error; err != nil {
		return fmt.Errorf("migrate: record version %d: %w", rec.Version, err)
	}
	return nil
}

// Get returns the ledger row for version, gorm.ErrRecordNotFound when absent.
func (s *Store) Get(ctx context.Context, version int) (*LedgerRecord, error) {
	var rec LedgerRecord
	if err := s.db.WithContext(ctx).Where("version = ?", version).Take(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// Clear drops all ledger rows; used by the destructive rebuild.
func (s *Store) Clear(ctx context.Context, tx *gorm.DB) error {
	if tx == nil {
		tx = s.db
	}
	return tx.WithContext(ctx).Exec("DELETE FROM " + ledgerTable).Error
}
