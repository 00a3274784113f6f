package config

import (
	"context"
	"strings"

	"github.com/mmdatafocus/fieldsales_backend/appctx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const OwnerColumn = "owner_code"

// OwnerGuardPlugin scopes queries/updates/deletes on models that carry an owner_code column
// to the representative stored in the statement context.
//
// NOTE:
// - This does NOT apply to Raw/Exec SQL. Those must include owner_code manually.
// - Without a representative in context the statement matches nothing.
// - Bypass is explicit via appctx.ContextKeySkipOwnerScope.
type OwnerGuardPlugin struct{}

func NewOwnerGuardPlugin() *OwnerGuardPlugin { return &OwnerGuardPlugin{} }

func (p *OwnerGuardPlugin) Name() string { return "owner_guard" }

func (p *OwnerGuardPlugin) Initialize(db *gorm.DB) error {
	// Query
	if err := db.Callback().Query().Before("gorm:query").Register("owner_guard:query", ownerGuardCallback); err != nil {
		return err
	}
	// Row (Pluck/Scan through rows)
	if err := db.Callback().Row().Before("gorm:row").Register("owner_guard:row", ownerGuardCallback); err != nil {
		return err
	}
	// Update
	if err := db.Callback().Update().Before("gorm:update").Register("owner_guard:update", ownerGuardCallback); err != nil {
		return err
	}
	// Delete
	if err := db.Callback().Delete().Before("gorm:delete").Register("owner_guard:delete", ownerGuardCallback); err != nil {
		return err
	}
	return nil
}

func ownerGuardCallback(db *gorm.DB) {
	if db == nil || db.Statement == nil || db.Statement.Schema == nil {
		return
	}
	if !schemaHasOwner(db) {
		return
	}
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if shouldBypassOwnerScope(ctx) {
		return
	}

	code := ownerCodeFromContext(ctx)
	if code == "" {
		db.Statement.AddClause(clause.Where{
			Exprs: []clause.Expression{clause.Expr{SQL: "1 = 0"}},
		})
		return
	}

	// always ANDed, even when the caller already filters by owner_code
	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: db.Statement.Table, Name: OwnerColumn},
				Value:  code,
			},
		},
	})
}

func schemaHasOwner(db *gorm.DB) bool {
	for _, f := range db.Statement.Schema.Fields {
		if strings.EqualFold(f.DBName, OwnerColumn) {
			return true
		}
	}
	return false
}

func ownerCodeFromContext(ctx context.Context) string {
	if v, ok := appctx.GetString(ctx, appctx.ContextKeyRepresentativeCode); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func shouldBypassOwnerScope(ctx context.Context) bool {
	v, ok := appctx.GetBool(ctx, appctx.ContextKeySkipOwnerScope)
	return ok && v
}
