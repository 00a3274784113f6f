package reconcile

import (
	"context"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/mmdatafocus/fieldsales_backend/models"
	"github.com/mmdatafocus/fieldsales_backend/utils"
)

// Ref is a resolved representative: its natural key and current internal id.
type Ref struct {
	Code string
	ID   int
}

// OrdinalIndex maps the 1-based position of a representative in the document to its key.
// It is built once per pass, right after representatives are reconciled. A position whose
// record was not stored keeps an empty slot.
type OrdinalIndex struct {
	refs   []Ref
	first  Ref
	stored int
	byCode map[string]Ref
	strict bool
	logger *logrus.Logger
}

func newOrdinalIndex(refs []Ref, strict bool, logger *logrus.Logger) *OrdinalIndex {
	ix := &OrdinalIndex{refs: refs, byCode: make(map[string]Ref, len(refs)), strict: strict, logger: logger}
	for _, r := range refs {
		if r.Code == "" {
			continue
		}
		if ix.stored == 0 {
			ix.first = r
		}
		ix.stored++
		if _, ok := ix.byCode[r.Code]; !ok {
			ix.byCode[r.Code] = r
		}
	}
	return ix
}

// IndexFromCodes builds the index from codes in document order, reading their ids from tx.
// codes[i] is the record at position i+1; blank or unstored codes leave an empty slot.
func IndexFromCodes(ctx context.Context, tx *gorm.DB, codes []string, strict bool, logger *logrus.Logger) (*OrdinalIndex, error) {
	ids := make(map[string]int, len(codes))
	for _, chunk := range utils.ChunkSlice(utils.UniqueSlice(codes), deleteChunk) {
		var rows []models.Representative
		if err := tx.WithContext(ctx).Select("id", "code").Where("code IN ?", chunk).Find(&rows).Error; err != nil {
			return nil, utils.StorageError("index representatives", err)
		}
		for _, r := range rows {
			ids[r.Code] = r.ID
		}
	}
	refs := make([]Ref, len(codes))
	for i, c := range codes {
		if id, ok := ids[c]; ok && c != "" {
			refs[i] = Ref{Code: c, ID: id}
		}
	}
	return newOrdinalIndex(refs, strict, logger), nil
}

// IndexFromStore builds the index from the stored representatives in id order; used when a
// pass does not carry a representatives document.
func IndexFromStore(ctx context.Context, tx *gorm.DB, strict bool, logger *logrus.Logger) (*OrdinalIndex, error) {
	var rows []models.Representative
	if err := tx.WithContext(ctx).Select("id", "code").Order("id").Find(&rows).Error; err != nil {
		return nil, utils.StorageError("index representatives", err)
	}
	refs := make([]Ref, 0, len(rows))
	for _, r := range rows {
		refs = append(refs, Ref{Code: r.Code, ID: r.ID})
	}
	return newOrdinalIndex(refs, strict, logger), nil
}

// Len is the number of positions, including empty slots.
func (ix *OrdinalIndex) Len() int { return len(ix.refs) }

// Stored is the number of positions that resolve to a stored representative.
func (ix *OrdinalIndex) Stored() int { return ix.stored }

// ByCode returns the stored representative with code.
func (ix *OrdinalIndex) ByCode(code string) (Ref, bool) {
	r, ok := ix.byCode[code]
	return r, ok
}

// Resolve maps ordinal to a representative. An out-of-range ordinal, or one whose record was
// not stored, falls back to the first stored representative and reports degraded, unless the
// index is strict. An index with nothing stored always fails.
func (ix *OrdinalIndex) Resolve(ordinal int) (Ref, bool, error) {
	const op = "resolve representative"
	if ix.stored == 0 {
		return Ref{}, false, utils.IntegrityError(op, "no representative is stored")
	}
	inRange := ordinal >= 1 && ordinal <= len(ix.refs)
	if inRange && ix.refs[ordinal-1].Code != "" {
		return ix.refs[ordinal-1], false, nil
	}
	if ix.strict {
		if inRange {
			return Ref{}, false, utils.IntegrityError(op, "position %d holds no stored representative", ordinal)
		}
		return Ref{}, false, utils.IntegrityError(op, "position %d is outside 1..%d", ordinal, len(ix.refs))
	}
	ix.logger.WithFields(logrus.Fields{
		"module":   "reconcile",
		"ordinal":  ordinal,
		"size":     len(ix.refs),
		"fallback": ix.first.Code,
	}).Warn("representative position unresolved, using the first representative")
	return ix.first, true, nil
}

// Owner resolves an explicit code first and the ordinal otherwise.
func (ix *OrdinalIndex) Owner(code string, ordinal int) (Ref, bool, error) {
	if code != "" {
		if r, ok := ix.ByCode(code); ok {
			return r, false, nil
		}
	}
	return ix.Resolve(ordinal)
}
