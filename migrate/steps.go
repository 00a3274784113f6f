package migrate

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// AddTable creates Table with DDL unless it already exists.
type AddTable struct {
	Table string
	DDL   string
}

func (s AddTable) Name() string { return "add table " + s.Table }

func (s AddTable) Apply(ctx context.Context, tx *gorm.DB, insp Inspector) (bool, error) {
	exists, err := insp.HasTable(ctx, s.Table)
	if err != nil || exists {
		return false, err
	}
	if err := tx.WithContext(ctx).Exec(s.DDL).Error; err != nil {
		return false, fmt.Errorf("failed to create table %s: %w", s.Table, err)
	}
	return true, nil
}

// AddColumn appends Column to Table. It is a no-op when the table is missing or the column exists.
type AddColumn struct {
	Table      string
	Column     string
	Definition string
}

func (s AddColumn) Name() string {
	return "add column " + s.Table + "." + s.Column + " " + s.Definition
}

func (s AddColumn) Apply(ctx context.Context, tx *gorm.DB, insp Inspector) (bool, error) {
	hasTable, err := insp.HasTable(ctx, s.Table)
	if err != nil || !hasTable {
		return false, err
	}
	hasColumn, err := insp.HasColumn(ctx, s.Table, s.Column)
	if err != nil || hasColumn {
		return false, err
	}
	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", s.Table, s.Column, s.Definition)
	if err := tx.WithContext(ctx).Exec(stmt).Error; err != nil {
		return false, fmt.Errorf("failed to add column %s.%s: %w", s.Table, s.Column, err)
	}
	return true, nil
}

// AddIndex creates an index over Columns of Table. It is a no-op when the table is missing
// or the index exists.
type AddIndex struct {
	Index   string
	Table   string
	Columns []string
	Unique  bool
}

func (s AddIndex) Name() string { return "add index " + s.Index }

// Statement renders the CREATE INDEX statement; the bootstrap schema uses it too.
func (s AddIndex) Statement() string {
	unique := ""
	if s.Unique {
		unique = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s (%s)", unique, s.Index, s.Table, strings.Join(s.Columns, ", "))
}

func (s AddIndex) Apply(ctx context.Context, tx *gorm.DB, insp Inspector) (bool, error) {
	hasTable, err := insp.HasTable(ctx, s.Table)
	if err != nil || !hasTable {
		return false, err
	}
	for _, col := range s.Columns {
		hasColumn, err := insp.HasColumn(ctx, s.Table, col)
		if err != nil || !hasColumn {
			return false, err
		}
	}
	exists, err := insp.HasIndex(ctx, s.Index)
	if err != nil || exists {
		return false, err
	}
	if err := tx.WithContext(ctx).Exec(s.Statement()).Error; err != nil {
		return false, fmt.Errorf("failed to create index %s: %w", s.Index, err)
	}
	return true, nil
}

// Backfill fills Column of Table where it is still NULL. Value is evaluated when the step runs.
type Backfill struct {
	Table  string
	Column string
	Value  func() any
}

func (s Backfill) Name() string { return "backfill " + s.Table + "." + s.Column }

func (s Backfill) Apply(ctx context.Context, tx *gorm.DB, insp Inspector) (bool, error) {
	hasTable, err := insp.HasTable(ctx, s.Table)
	if err != nil || !hasTable {
		return false, err
	}
	hasColumn, err := insp.HasColumn(ctx, s.Table, s.Column)
	if err != nil || !hasColumn {
		return false, err
	}
	stmt := fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s IS NULL", s.Table, s.Column, s.Column)
	res := tx.WithContext(ctx).Exec(stmt, s.Value())
	if res.Error != nil {
		return false, fmt.Errorf("failed to backfill %s.%s: %w", s.Table, s.Column, res.Error)
	}
	return res.RowsAffected > 0, nil
}
