package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var execTracer = otel.Tracer("github.com/Additional-Code/backorder/database/executor")

var (
	// ErrInvalidOperator is returned when a Where clause uses an operator outside the allowed set.
	ErrInvalidOperator = errors.New("invalid comparison operator")
	// ErrNoFields is returned when an insert or update carries no columns.
	ErrNoFields = errors.New("no fields supplied")
)

var allowedOperators = map[string]struct{}{
	"=":  {},
	">":  {},
	"<":  {},
	">=": {},
	"<=": {},
}

// Where is a single-column comparison. Field and table names must come from code, never from user input.
type Where struct {
	Field string
	Op    string
	Value any
}

// Eq is shorthand for an equality comparison.
func Eq(field string, value any) Where {
	return Where{Field: field, Op: "=", Value: value}
}

// Fields maps column names to values for inserts and updates.
type Fields map[string]any

// Row is one result row keyed by column name.
type Row map[string]any

// String returns the column as a string, or "" when absent or NULL.
func (r Row) String(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// Int64 returns the column as an integer, or 0 when it cannot be read as one.
func (r Row) Int64(key string) int64 {
	switch v := r[key].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case uint64:
		return int64(v)
	case float64:
		return int64(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		n, _ := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n
	default:
		return 0
	}
}

// Result carries the rows of a read. A failed read has Err set and no rows.
type Result struct {
	Rows  []Row
	Count int
	Err   error
}

// OK reports whether the statement succeeded.
func (r Result) OK() bool { return r.Err == nil }

// First returns the first row, if any.
func (r Result) First() (Row, bool) {
	if r.Err != nil || len(r.Rows) == 0 {
		return nil, false
	}
	return r.Rows[0], true
}

// WriteResult carries the outcome of an insert, update or delete.
type WriteResult struct {
	ID           int64
	RowsAffected int64
	Err          error
}

// OK reports whether the statement succeeded.
func (r WriteResult) OK() bool { return r.Err == nil }

// Executor runs parameterised statements and reports failures as values.
type Executor struct {
	db     bun.IDB
	logger *zap.Logger
}

// NewExecutor binds an executor to the writer pool.
func NewExecutor(conns *Connections, logger *zap.Logger) *Executor {
	return &Executor{db: conns.Writer, logger: logger}
}

// With returns a copy bound to db, typically a bun.Tx.
func (e *Executor) With(db bun.IDB) *Executor {
	return &Executor{db: db, logger: e.logger}
}

// DB exposes the bound handle.
func (e *Executor) DB() bun.IDB {
	return e.db
}

// Query runs a raw statement with bun-style ? placeholders.
func (e *Executor) Query(ctx context.Context, query string, args ...any) Result {
	ctx, span := execTracer.Start(ctx, "Executor.Query")
	defer span.End()

	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return e.readFailure(span, "query", "", err)
	}
	defer rows.Close()

	out, err := scanRows(rows)
	if err != nil {
		return e.readFailure(span, "query", "", err)
	}
	return Result{Rows: out, Count: len(out)}
}

// Get selects every row of table matching the comparison.
func (e *Executor) Get(ctx context.Context, table string, where Where) Result {
	if err := validate(where); err != nil {
		return Result{Err: err}
	}
	return e.Query(ctx,
		"SELECT * FROM ? WHERE ? "+where.Op+" ?",
		bun.Ident(table), bun.Ident(where.Field), where.Value,
	)
}

// Count returns the number of rows in table matching every comparison.
func (e *Executor) Count(ctx context.Context, table string, wheres ...Where) (int, error) {
	ctx, span := execTracer.Start(ctx, "Executor.Count", trace.WithAttributes(attribute.String("db.table", table)))
	defer span.End()

	var b strings.Builder
	b.WriteString("SELECT COUNT(*) FROM ?")
	args := []any{bun.Ident(table)}
	for i, w := range wheres {
		if err := validate(w); err != nil {
			return 0, err
		}
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		b.WriteString("? " + w.Op + " ?")
		args = append(args, bun.Ident(w.Field), w.Value)
	}

	var n int
	if err := e.db.QueryRowContext(ctx, b.String(), args...).Scan(&n); err != nil {
		e.recordFailure(span, "count", table, err)
		return 0, err
	}
	return n, nil
}

// Insert writes one row and returns its generated id.
func (e *Executor) Insert(ctx context.Context, table string, fields Fields) WriteResult {
	if len(fields) == 0 {
		return WriteResult{Err: ErrNoFields}
	}
	ctx, span := execTracer.Start(ctx, "Executor.Insert", trace.WithAttributes(attribute.String("db.table", table)))
	defer span.End()

	cols := sortedColumns(fields)
	args := make([]any, 0, 1+2*len(cols))
	args = append(args, bun.Ident(table))
	for _, col := range cols {
		args = append(args, bun.Ident(col))
	}
	for _, col := range cols {
		args = append(args, fields[col])
	}
	marks := placeholders(len(cols))
	query := "INSERT INTO ? (" + marks + ") VALUES (" + marks + ")"

	if e.db.Dialect().Features().Has(feature.InsertReturning) {
		var id int64
		if err := e.db.QueryRowContext(ctx, query+" RETURNING id", args...).Scan(&id); err != nil {
			return e.writeFailure(span, "insert", table, err)
		}
		return WriteResult{ID: id, RowsAffected: 1}
	}

	res, err := e.db.ExecContext(ctx, query, args...)
	if err != nil {
		return e.writeFailure(span, "insert", table, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return e.writeFailure(span, "insert", table, err)
	}
	affected, _ := res.RowsAffected()
	return WriteResult{ID: id, RowsAffected: affected}
}

// Update sets the given columns on the row with the supplied id.
func (e *Executor) Update(ctx context.Context, table string, id int64, fields Fields) WriteResult {
	if len(fields) == 0 {
		return WriteResult{Err: ErrNoFields}
	}
	ctx, span := execTracer.Start(ctx, "Executor.Update", trace.WithAttributes(
		attribute.String("db.table", table),
		attribute.Int64("db.row_id", id),
	))
	defer span.End()

	cols := sortedColumns(fields)
	sets := make([]string, len(cols))
	args := make([]any, 0, 2+2*len(cols))
	args = append(args, bun.Ident(table))
	for i, col := range cols {
		sets[i] = "? = ?"
		args = append(args, bun.Ident(col), fields[col])
	}
	args = append(args, id)

	res, err := e.db.ExecContext(ctx, "UPDATE ? SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return e.writeFailure(span, "update", table, err)
	}
	affected, _ := res.RowsAffected()
	return WriteResult{ID: id, RowsAffected: affected}
}

// Delete removes every row of table matching the comparison.
func (e *Executor) Delete(ctx context.Context, table string, where Where) WriteResult {
	if err := validate(where); err != nil {
		return WriteResult{Err: err}
	}
	ctx, span := execTracer.Start(ctx, "Executor.Delete", trace.WithAttributes(attribute.String("db.table", table)))
	defer span.End()

	res, err := e.db.ExecContext(ctx,
		"DELETE FROM ? WHERE ? "+where.Op+" ?",
		bun.Ident(table), bun.Ident(where.Field), where.Value,
	)
	if err != nil {
		return e.writeFailure(span, "delete", table, err)
	}
	affected, _ := res.RowsAffected()
	return WriteResult{RowsAffected: affected}
}

func (e *Executor) readFailure(span trace.Span, statement, table string, err error) Result {
	e.recordFailure(span, statement, table, err)
	return Result{Err: err}
}

func (e *Executor) writeFailure(span trace.Span, statement, table string, err error) WriteResult {
	e.recordFailure(span, statement, table, err)
	return WriteResult{Err: err}
}

func (e *Executor) recordFailure(span trace.Span, statement, table string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, statement+" failed")
	if e.logger != nil {
		e.logger.Error("statement failed",
			zap.String("statement", statement),
			zap.String("table", table),
			zap.Error(err),
		)
	}
}

func validate(w Where) error {
	if _, ok := allowedOperators[w.Op]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidOperator, w.Op)
	}
	if w.Field == "" {
		return errors.New("comparison field is required")
	}
	return nil
}

func sortedColumns(fields Fields) []string {
	cols := make([]string, 0, len(fields))
	for col := range fields {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
