// Package reconcile brings stored rows of one kind into agreement with a parsed snapshot: keys
// missing from the snapshot are deleted inside the kind's retention scope, present keys are
// updated in place and new keys inserted.
package reconcile

import (
	"context"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/mmdatafocus/fieldsales_backend/models"
	"github.com/mmdatafocus/fieldsales_backend/utils"
)

const deleteChunk = 500

// Result counts what one kind's reconciliation changed.
type Result struct {
	Kind string
	models.SyncCounts
}

// Spec describes how records R map onto rows M for one kind.
type Spec[R any, M any] struct {
	Kind      string
	KeyColumn string
	// Scope limits both the rows considered for deletion and the rows matched for update.
	// Rows outside it are retained untouched.
	Scope     func(*gorm.DB) *gorm.DB
	RecordKey func(R) string
	RowKey    func(*M) string
	// Build returns the row to store. existing is nil for an insert; a returned skip leaves the
	// record out.
	Build func(ctx context.Context, tx *gorm.DB, rec R, existing *M) (row *M, skip bool, err error)
	// After runs once per stored record inside the same transaction.
	After func(ctx context.Context, tx *gorm.DB, rec R, row *M, res *Result) error
}

func (s Spec[R, M]) scoped(tx *gorm.DB) *gorm.DB {
	if s.Scope == nil {
		return tx
	}
	return tx.Scopes(s.Scope)
}

// Reconcile applies records to tx. The caller owns the transaction.
func Reconcile[R any, M any](ctx context.Context, tx *gorm.DB, spec Spec[R, M], records []R, logger *logrus.Logger) (Result, error) {
	op := "reconcile " + spec.Kind
	res := Result{Kind: spec.Kind}
	tx = tx.WithContext(ctx)
	log := logger.WithFields(logrus.Fields{"module": "reconcile", "kind": spec.Kind})

	keys := make([]string, 0, len(records))
	present := make(map[string]struct{}, len(records))
	for _, rec := range records {
		k := spec.RecordKey(rec)
		if k == "" {
			continue
		}
		if _, dup := present[k]; !dup {
			keys = append(keys, k)
		}
		present[k] = struct{}{}
	}

	var stored []*M
	if err := spec.scoped(tx.Model(new(M))).Find(&stored).Error; err != nil {
		return res, utils.StorageError(op, err)
	}
	existing := make(map[string]*M, len(stored))
	var absent []string
	for _, row := range stored {
		k := spec.RowKey(row)
		existing[k] = row
		if _, ok := present[k]; !ok {
			absent = append(absent, k)
		}
	}

	// keys stored outside the scope belong to another kind sharing the table
	foreign := make(map[string]struct{})
	for _, chunk := range utils.ChunkSlice(keys, deleteChunk) {
		var found []string
		if err := tx.Model(new(M)).Where(spec.KeyColumn+" IN ?", chunk).Pluck(spec.KeyColumn, &found).Error; err != nil {
			return res, utils.StorageError(op, err)
		}
		for _, k := range found {
			if _, ok := existing[k]; !ok {
				foreign[k] = struct{}{}
			}
		}
	}

	for _, chunk := range utils.ChunkSlice(absent, deleteChunk) {
		del := spec.scoped(tx).Where(spec.KeyColumn+" IN ?", chunk).Delete(new(M))
		if del.Error != nil {
			return res, utils.StorageError(op, del.Error)
		}
		res.Deleted += int(del.RowsAffected)
	}

	for _, rec := range records {
		k := spec.RecordKey(rec)
		if k == "" {
			res.Skipped++
			log.Warn("record without a key skipped")
			continue
		}
		if _, ok := foreign[k]; ok {
			res.Skipped++
			log.WithField("key", k).Warn("key belongs to another kind, record skipped")
			continue
		}
		current := existing[k]
		row, skip, err := spec.Build(ctx, tx, rec, current)
		if err != nil {
			return res, err
		}
		if skip {
			res.Skipped++
			continue
		}
		if current != nil {
			if err := tx.Model(row).Select("*").Updates(row).Error; err != nil {
				return res, utils.StorageError(op, err)
			}
			res.Updated++
		} else {
			if err := tx.Create(row).Error; err != nil {
				return res, utils.StorageError(op, err)
			}
			res.Inserted++
			existing[k] = row
		}
		if spec.After != nil {
			if err := spec.After(ctx, tx, rec, row, &res); err != nil {
				return res, err
			}
		}
	}

	return res, nil
}
