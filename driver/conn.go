package driver

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/corvidsql/corvid/engine"
	"github.com/corvidsql/corvid/sqlval"
)

// Conn is a single-engine connection; corvid has no server-side
// session state to track beyond the Engine itself.
type Conn struct {
	engine *engine.Engine
}

// Prepare returns a statement that will (re-)run query against the
// Engine on every Exec/Query; corvid has no separate prepare step, so
// Prepare only captures the query text.
func (c *Conn) Prepare(query string) (driver.Stmt, error) {
	return &Stmt{conn: c, query: query}, nil
}

// Close releases the engine's catalog and buffer pool.
func (c *Conn) Close() error {
	return c.engine.Close()
}

// Begin returns a no-op transaction; corvid has no transaction model
// (spec.md §5 Non-goals).
func (c *Conn) Begin() (driver.Tx, error) {
	return noopTx{}, nil
}

type noopTx struct{}

func (noopTx) Commit() error   { return nil }
func (noopTx) Rollback() error { return nil }

// Stmt is a captured query string, re-run against the engine each
// time it is executed.
type Stmt struct {
	conn  *Conn
	query string
}

func (s *Stmt) Close() error  { return nil }
func (s *Stmt) NumInput() int { return strings.Count(s.query, "?") }

func (s *Stmt) Exec(args []driver.Value) (driver.Result, error) {
	src, err := bindArgs(s.query, args)
	if err != nil {
		return nil, err
	}
	results, errs := s.conn.engine.Run(src)
	return lastResult(results, errs)
}

func (s *Stmt) Query(args []driver.Value) (driver.Rows, error) {
	src, err := bindArgs(s.query, args)
	if err != nil {
		return nil, err
	}
	results, errs := s.conn.engine.Run(src)
	res, err := lastEngineResult(results, errs)
	if err != nil {
		return nil, err
	}
	return &Rows{result: res}, nil
}

func (s *Stmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	return s.Exec(namedToOrdinal(args))
}

func (s *Stmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	return s.Query(namedToOrdinal(args))
}

func namedToOrdinal(named []driver.NamedValue) []driver.Value {
	if len(named) == 0 {
		return nil
	}
	vals := make([]driver.Value, len(named))
	for i, n := range named {
		vals[i] = n.Value
	}
	return vals
}

// bindArgs splices each bound argument into its corresponding `?`
// placeholder as a SQL literal, since corvid's statements have no
// native parameter-binding step (spec.md §4.16: the driver is the one
// place arguments arrive as untyped interface{} values, so cast does
// the actual widening work here).
func bindArgs(query string, args []driver.Value) (string, error) {
	if len(args) == 0 {
		return query, nil
	}
	var b strings.Builder
	argIdx := 0
	inString := false
	for _, r := range query {
		if r == '\'' {
			inString = !inString
		}
		if r == '?' && !inString {
			if argIdx >= len(args) {
				return "", errors.New("driver: not enough bound arguments")
			}
			b.WriteString(literalFor(args[argIdx]))
			argIdx++
			continue
		}
		b.WriteRune(r)
	}
	return b.String(), nil
}

// literalFor renders a single bound argument (an arbitrary interface{}
// per database/sql/driver.Value) as SQL literal text, using
// spf13/cast to coerce whatever concrete type the driver package
// handed us into the matching sqlval.Value.
func literalFor(v driver.Value) string {
	if v == nil {
		return "NULL"
	}
	switch v.(type) {
	case int64, int, int32, int16, int8, uint, uint64, uint32, uint16, uint8:
		return strconv.FormatInt(cast.ToInt64(v), 10)
	case float64, float32:
		return strconv.FormatFloat(cast.ToFloat64(v), 'g', -1, 64)
	case bool:
		if cast.ToBool(v) {
			return "1"
		}
		return "0"
	default:
		return "'" + strings.ReplaceAll(cast.ToString(v), "'", "''") + "'"
	}
}

func lastEngineResult(results []engine.Result, errs []error) (engine.Result, error) {
	if len(results) == 0 {
		return engine.Result{}, errors.New("driver: empty statement")
	}
	last := len(results) - 1
	if errs[last] != nil {
		return engine.Result{}, errs[last]
	}
	return results[last], nil
}

func lastResult(results []engine.Result, errs []error) (driver.Result, error) {
	res, err := lastEngineResult(results, errs)
	if err != nil {
		return nil, err
	}
	return execResult{rowsAffected: int64(len(res.Rows))}, nil
}

type execResult struct {
	rowsAffected int64
}

func (r execResult) LastInsertId() (int64, error) { return 0, errors.New("driver: not supported") }
func (r execResult) RowsAffected() (int64, error)  { return r.rowsAffected, nil }

// Rows iterates the materialized rows of one engine.Result.
type Rows struct {
	result engine.Result
	idx    int
}

func (r *Rows) Columns() []string { return r.result.Columns }
func (r *Rows) Close() error      { return nil }

func (r *Rows) Next(dest []driver.Value) error {
	if r.idx >= len(r.result.Rows) {
		return io.EOF
	}
	row := r.result.Rows[r.idx]
	r.idx++
	for i, v := range row {
		dest[i] = convertValue(v)
	}
	return nil
}

// convertValue maps a sqlval.Value to the native Go type
// database/sql expects. Each sqlval.Kind already stores its value in
// the matching native Go field, so no further coercion is needed here
// — see bindArgs/literalFor for where arguments actually arrive as
// interface{} and need cast's widening.
func convertValue(v sqlval.Value) driver.Value {
	switch v.Kind {
	case sqlval.KindNull:
		return nil
	case sqlval.KindInt:
		return v.I
	case sqlval.KindFloat:
		return v.F
	case sqlval.KindVarchar:
		return v.S
	default:
		return nil
	}
}
