package migrate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
)

// Inspector answers "does this structural element exist" questions about the store.
type Inspector interface {
	HasTable(ctx context.Context, table string) (bool, error)
	HasColumn(ctx context.Context, table, column string) (bool, error)
	HasIndex(ctx context.Context, index string) (bool, error)
}

// ColumnInfo is one row of pragma_table_info.
type ColumnInfo struct {
	Name         string
	Type         string
	NotNull      bool
	DefaultValue *string
	PrimaryKey   int
}

// IndexInfo describes an index; Name is blank for SQLite's automatic constraint indexes.
type IndexInfo struct {
	Name    string
	Unique  bool
	Columns []string
}

// TableInfo is the observable shape of one table.
type TableInfo struct {
	Name    string
	Columns []ColumnInfo
	Indexes []IndexInfo
}

// SQLiteInspector reads sqlite_master and the pragma table-valued functions.
type SQLiteInspector struct {
	db *gorm.DB
}

func NewInspector(db *gorm.DB) *SQLiteInspector {
	return &SQLiteInspector{db: db}
}

func (i *SQLiteInspector) HasTable(ctx context.Context, table string) (bool, error) {
	var n int64
	err := i.db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).
		Scan(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to inspect table %s: %w", table, err)
	}
	return n > 0, nil
}

func (i *SQLiteInspector) HasColumn(ctx context.Context, table, column string) (bool, error) {
	var n int64
	err := i.db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", table, column).
		Scan(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to inspect column %s.%s: %w", table, column, err)
	}
	return n > 0, nil
}

func (i *SQLiteInspector) HasIndex(ctx context.Context, index string) (bool, error) {
	var n int64
	err := i.db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = ?", index).
		Scan(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to inspect index %s: %w", index, err)
	}
	return n > 0, nil
}

// UserTables lists application tables, leaving out SQLite internals and the migration ledger.
func (i *SQLiteInspector) UserTables(ctx context.Context) ([]string, error) {
	var names []string
	err := i.db.WithContext(ctx).
		Raw("SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' AND name <> ? ORDER BY name", ledgerTable).
		Scan(&names).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return names, nil
}

// Describe returns the observable schema of every application table, sorted so two stores
// can be compared regardless of the order columns were added in.
func (i *SQLiteInspector) Describe(ctx context.Context) ([]TableInfo, error) {
	tables, err := i.UserTables(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]TableInfo, 0, len(tables))
	for _, table := range tables {
		var cols []ColumnInfo
		err := i.db.WithContext(ctx).Raw(`SELECT name AS name, type AS type, "notnull" AS not_null,
			dflt_value AS default_value, pk AS primary_key FROM pragma_table_info(?)`, table).
			Scan(&cols).Error
		if err != nil {
			return nil, fmt.Errorf("failed to describe %s: %w", table, err)
		}
		sort.Slice(cols, func(a, b int) bool { return cols[a].Name < cols[b].Name })

		indexes, err := i.indexes(ctx, table)
		if err != nil {
			return nil, err
		}
		out = append(out, TableInfo{Name: table, Columns: cols, Indexes: indexes})
	}
	return out, nil
}

type indexColumnRow struct {
	IndexName  string
	IsUnique   bool
	Origin     string
	ColumnName string
}

func (i *SQLiteInspector) indexes(ctx context.Context, table string) ([]IndexInfo, error) {
	var rows []indexColumnRow
	err := i.db.WithContext(ctx).Raw(`SELECT il.name AS index_name, il."unique" AS is_unique, il.origin AS origin,
		ii.name AS column_name
		FROM pragma_index_list(?) AS il, pragma_index_info(il.name) AS ii
		ORDER BY il.name, ii.seqno`, table).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list indexes of %s: %w", table, err)
	}

	byName := make(map[string]*IndexInfo)
	var order []string
	for _, r := range rows {
		idx, ok := byName[r.IndexName]
		if !ok {
			name := r.IndexName
			if r.Origin != "c" {
				name = ""
			}
			idx = &IndexInfo{Name: name, Unique: r.IsUnique}
			byName[r.IndexName] = idx
			order = append(order, r.IndexName)
		}
		idx.Columns = append(idx.Columns, r.ColumnName)
	}

	out := make([]IndexInfo, 0, len(order))
	for _, name := range order {
		out = append(out, *byName[name])
	}
	sort.Slice(out, func(a, b int) bool {
		ka := out[a].Name + "|" + strings.Join(out[a].Columns, ",")
		kb := out[b].Name + "|" + strings.Join(out[b].Columns, ",")
		return ka < kb
	})
	return out, nil
}
