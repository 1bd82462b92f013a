package repositories

import (
	"context"
	"database/sql"
	"slices"
	"sort"
	"strings"

	"github.com/desertthunder/mixtape/internal/shared"
)

// Record is a row keyed by column name.
type Record map[string]any

// String returns the column as a string, or "" when absent or NULL.
func (r Record) String(col string) string {
	switch v := r[col].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case *string:
		if v != nil {
			return *v
		}
	}
	return ""
}

// StringPtr returns the column as an optional string.
func (r Record) StringPtr(col string) *string {
	switch v := r[col].(type) {
	case string:
		return &v
	case []byte:
		s := string(v)
		return &s
	case *string:
		return v
	}
	return nil
}

// Int returns the column as an int, or 0 when absent or NULL.
func (r Record) Int(col string) int {
	if p := r.IntPtr(col); p != nil {
		return *p
	}
	return 0
}

// IntPtr returns the column as an optional int.
func (r Record) IntPtr(col string) *int {
	var n int
	switch v := r[col].(type) {
	case int:
		n = v
	case int64:
		n = int(v)
	case float64:
		n = int(v)
	case *int:
		return v
	default:
		return nil
	}
	return &n
}

// Column describes one column of a table manifest.
//
// Optional columns missing from a record are filled with Default; a nil Default stores NULL.
type Column struct {
	Name     string
	Default  any
	Required bool
}

// Required declares a column every record must carry.
func Required(name string) Column {
	return Column{Name: name, Required: true}
}

// Optional declares a column filled with def when absent.
func Optional(name string, def any) Column {
	return Column{Name: name, Default: def}
}

// Filter selects rows for [Table.Find] and [Table.Delete]: every row, or exactly one natural key.
type Filter struct {
	all bool
	key Record
}

// All matches every row of the table.
func All() Filter {
	return Filter{all: true}
}

// Where matches rows by natural key. The record must name exactly the table's key columns.
func Where(key Record) Filter {
	return Filter{key: key}
}

// Table is a validated record accessor over one SQLite table.
type Table struct {
	name    string
	columns []Column
	key     []string
	ignore  bool
	conn    conn
}

func newTable(c conn, name string, key []string, ignore bool, columns ...Column) *Table {
	return &Table{name: name, columns: columns, key: key, ignore: ignore, conn: c}
}

// Name returns the SQL table name.
func (t *Table) Name() string {
	return t.name
}

// Columns returns the column manifest.
func (t *Table) Columns() []Column {
	return slices.Clone(t.columns)
}

// Validate returns a copy of rec with optional columns defaulted.
// Missing required columns and columns outside the manifest are [shared.ErrValidation].
func (t *Table) Validate(rec Record) (Record, error) {
	out := make(Record, len(t.columns))
	for _, col := range t.columns {
		v, ok := rec[col.Name]
		switch {
		case ok:
			out[col.Name] = v
		case col.Required:
			return nil, shared.Validationf("invalid %s record: column %s is required", t.name, col.Name)
		default:
			out[col.Name] = col.Default
		}
	}

	for name := range rec {
		if _, ok := out[name]; !ok {
			return nil, shared.Validationf("invalid %s record: unknown column %s", t.name, name)
		}
	}
	return out, nil
}

// where renders the filter into a WHERE clause (without the keyword) and its arguments.
// An empty clause means every row.
func (t *Table) where(f Filter, alias string) (string, []any, error) {
	if f.all {
		return "", nil, nil
	}

	names := make([]string, 0, len(f.key))
	for name := range f.key {
		names = append(names, name)
	}
	sort.Strings(names)
	want := slices.Sorted(slices.Values(t.key))
	if !slices.Equal(names, want) {
		return "", nil, shared.Validationf("invalid %s filter: expected exactly columns %s, got %s",
			t.name, strings.Join(t.key, ", "), strings.Join(names, ", "))
	}

	prefix := ""
	if alias != "" {
		prefix = alias + "."
	}
	clauses := make([]string, len(t.key))
	args := make([]any, len(t.key))
	for i, name := range t.key {
		clauses[i] = prefix + name + " = ?"
		args[i] = f.key[name]
	}
	return strings.Join(clauses, " AND "), args, nil
}

func (t *Table) insertSQL() string {
	names := make([]string, len(t.columns))
	marks := make([]string, len(t.columns))
	for i, col := range t.columns {
		names[i] = col.Name
		marks[i] = "?"
	}
	verb := "INSERT"
	if t.ignore {
		verb = "INSERT OR IGNORE"
	}
	return verb + " INTO " + t.name + " (" + strings.Join(names, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")"
}

func (t *Table) args(rec Record) []any {
	args := make([]any, len(t.columns))
	for i, col := range t.columns {
		args[i] = rec[col.Name]
	}
	return args
}

func (t *Table) validateAll(recs []Record) ([]Record, error) {
	valid := make([]Record, len(recs))
	for i, rec := range recs {
		v, err := t.Validate(rec)
		if err != nil {
			return nil, err
		}
		valid[i] = v
	}
	return valid, nil
}

// Insert validates and stores one record.
func (t *Table) Insert(ctx context.Context, rec Record) error {
	return t.InsertMany(ctx, []Record{rec})
}

// InsertMany validates every record, then stores them all in one unit.
// A validation failure writes nothing.
func (t *Table) InsertMany(ctx context.Context, recs []Record) error {
	return t.insertMany(ctx, recs, nil)
}

// insertMany stores recs and runs after inside the same unit.
func (t *Table) insertMany(ctx context.Context, recs []Record, after func(ctx context.Context, q querier, recs []Record) error) error {
	valid, err := t.validateAll(recs)
	if err != nil {
		return err
	}
	if len(valid) == 0 {
		return nil
	}

	stmt := t.insertSQL()
	err = t.conn.unit(ctx, func(q querier) error {
		for _, rec := range valid {
			if _, err := q.ExecContext(ctx, stmt, t.args(rec)...); err != nil {
				return err
			}
		}
		if after != nil {
			return after(ctx, q, valid)
		}
		return nil
	})
	return shared.Storage(err, "failed to insert into "+t.name)
}

// Delete removes the rows matching f.
func (t *Table) Delete(ctx context.Context, f Filter) (int64, error) {
	clause, args, err := t.where(f, "")
	if err != nil {
		return 0, err
	}

	stmt := "DELETE FROM " + t.name
	if clause != "" {
		stmt += " WHERE " + clause
	}

	var affected int64
	err = t.conn.unit(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx, stmt, args...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, shared.Storage(err, "failed to delete from "+t.name)
	}
	return affected, nil
}

// Find returns the rows matching f.
func (t *Table) Find(ctx context.Context, f Filter) ([]Record, error) {
	clause, args, err := t.where(f, "")
	if err != nil {
		return nil, err
	}

	stmt := "SELECT * FROM " + t.name
	if clause != "" {
		stmt += " WHERE " + clause
	}
	return t.query(ctx, stmt, args...)
}

func (t *Table) query(ctx context.Context, stmt string, args ...any) ([]Record, error) {
	var out []Record
	err := t.conn.unit(ctx, func(q querier) error {
		rows, err := q.QueryContext(ctx, stmt, args...)
		if err != nil {
			return err
		}
		out, err = scanRecords(rows)
		return err
	})
	if err != nil {
		return nil, shared.Storage(err, "failed to query "+t.name)
	}
	return out, nil
}

// scanRecords reads every row into a [Record] keyed by result column name.
func scanRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Record
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		rec := make(Record, len(cols))
		for i, name := range cols {
			if b, ok := values[i].([]byte); ok {
				rec[name] = string(b)
			} else {
				rec[name] = values[i]
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
