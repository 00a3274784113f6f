package reconcile

import (
	"context"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/mmdatafocus/fieldsales_backend/snapshot"
	"github.com/mmdatafocus/fieldsales_backend/utils"
)

type Options struct {
	// Strict turns an out-of-range ordinal reference into an IntegrityError.
	Strict bool
	Logger *logrus.Logger
}

// Pass applies the documents of one import run. It carries the ordinal index from the
// representatives kind to the kinds that reference it.
type Pass struct {
	db       *gorm.DB
	index    *OrdinalIndex
	strict   bool
	logger   *logrus.Logger
	degraded int
}

func NewPass(db *gorm.DB, opts Options) *Pass {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Pass{db: db, strict: opts.Strict, logger: logger}
}

// Index is the ordinal index in use, nil until a kind needed it.
func (p *Pass) Index() *OrdinalIndex { return p.index }

// Apply reconciles one document in its own transaction. A failure rolls back that kind only.
func (p *Pass) Apply(ctx context.Context, doc *snapshot.Document) (Result, error) {
	ctx = utils.SetSkipOwnerScopeInContext(ctx, true)
	p.degraded = 0

	var res Result
	var next *OrdinalIndex
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if doc.Kind == snapshot.KindRepresentatives {
			res, err = Reconcile(ctx, tx, representativeSpec(), doc.Representatives, p.logger)
			if err != nil {
				return err
			}
			codes := make([]string, len(doc.Representatives))
			for i, r := range doc.Representatives {
				pos := i
				if r.Ordinal >= 1 {
					pos = r.Ordinal - 1
				}
				for pos >= len(codes) {
					codes = append(codes, "")
				}
				codes[pos] = r.Code
			}
			next, err = IndexFromCodes(ctx, tx, codes, p.strict, p.logger)
			return err
		}

		if p.index == nil {
			if p.index, err = IndexFromStore(ctx, tx, p.strict, p.logger); err != nil {
				return err
			}
		}
		switch doc.Kind {
		case snapshot.KindPartners:
			res, err = Reconcile(ctx, tx, p.partnerSpec(), doc.Partners, p.logger)
		case snapshot.KindMembers:
			res, err = Reconcile(ctx, tx, p.memberSpec(), doc.Members, p.logger)
		case snapshot.KindCatalog:
			res, err = Reconcile(ctx, tx, catalogSpec(), doc.Catalog, p.logger)
		case snapshot.KindCredentials:
			res, err = Reconcile(ctx, tx, p.credentialSpec(), doc.Credentials, p.logger)
		case snapshot.KindAgenda:
			res, err = p.appendAgenda(ctx, tx, doc.Visits)
		default:
			err = utils.UnsupportedKindError("reconcile", string(doc.Kind))
		}
		return err
	})
	res.Kind = string(doc.Kind)
	res.Degraded += p.degraded
	if err != nil {
		return res, err
	}
	p.logger.WithFields(logrus.Fields{
		"module":   "reconcile",
		"kind":     res.Kind,
		"inserted": res.Inserted,
		"updated":  res.Updated,
		"deleted":  res.Deleted,
		"skipped":  res.Skipped,
		"degraded": res.Degraded,
	}).Info("kind reconciled")
	if next != nil {
		p.index = next
	}
	return res, nil
}
