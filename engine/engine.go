// Package engine wires corvid's front end, planner, and executor into
// a single statement-execution facade, adapted from the teacher's
// top-level Engine (engine.go): construct once per data directory,
// call Run per statement, Close at shutdown.
package engine

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"

	"github.com/corvidsql/corvid/catalog"
	"github.com/corvidsql/corvid/config"
	"github.com/corvidsql/corvid/exec"
	"github.com/corvidsql/corvid/lang/analyzer"
	"github.com/corvidsql/corvid/lang/ast"
	"github.com/corvidsql/corvid/lang/parser"
	"github.com/corvidsql/corvid/plan"
	"github.com/corvidsql/corvid/sqlval"
	"github.com/corvidsql/corvid/storage/buffer"
	"github.com/corvidsql/corvid/storage/pager"
	"github.com/corvidsql/corvid/storage/table"
)

// Result is the outcome of running one statement: a materialized row
// set for SELECTs, or nil Rows for DDL/DML.
type Result struct {
	Columns []string
	Rows    []sqlval.Row
}

// Engine owns the catalog, buffer pool, and pager for one data
// directory, and executes statements synchronously against them
// (spec.md §5: single-threaded, no concurrent access).
type Engine struct {
	cfg    config.Config
	cat    *catalog.Catalog
	pager  *pager.Pager
	pool   *buffer.Pool
	tables map[string]*table.Table
	log    *logrus.Logger
	runID  uuid.UUID

	planCounter int
}

// Open creates or resumes an Engine rooted at cfg's configured
// directories, minting a fresh run ID and initializing logging
// (spec.md §4.11, §4.17).
func Open(cfg config.Config) (*Engine, error) {
	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		return nil, sqlval.ErrIO.New(err.Error())
	}
	cat, err := catalog.Load(filepath.Join(cfg.DataDir, "catalog.json"))
	if err != nil {
		return nil, err
	}

	logFile, err := os.OpenFile(filepath.Join(cfg.LogDir, "corvid.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, sqlval.ErrIO.New(err.Error())
	}
	log := logrus.New()
	log.SetOutput(logFile)
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	runID := uuid.NewV4()
	log.WithField("run_id", runID.String()).Info("engine opened")

	p := pager.New(cfg.DataDir)
	pool := buffer.New(p, cfg.BufferPoolCapacity, cfg.Policy())

	return &Engine{
		cfg: cfg, cat: cat, pager: p, pool: pool,
		tables: map[string]*table.Table{},
		log:    log, runID: runID,
	}, nil
}

func (e *Engine) openTable(name string) (*table.Table, error) {
	if t, ok := e.tables[name]; ok {
		return t, nil
	}
	sch, ok := e.cat.Schema(name)
	if !ok {
		return nil, fmt.Errorf("engine: table %q does not exist", name)
	}
	t := table.New(name, sch, e.cat, e.pool)
	e.tables[name] = t
	return t, nil
}

// Run lexes, parses, analyzes, plans, and executes every statement in
// src in order, logging progress and plan dumps as it goes. A single
// statement's parse/semantic/runtime error does not abort the rest of
// the script's statements (spec.md §6). Each recovered parse diagnostic
// is returned first, as its own error slot with an empty Result; each
// parsed statement's semantic/runtime error is returned in its own
// Result's error slot. A lexer error aborts the whole script and is
// returned alone.
func (e *Engine) Run(src string) ([]Result, []error) {
	p := parser.New(src)
	stmts, diags, err := p.ParseProgram()
	for _, d := range diags {
		e.log.WithField("run_id", e.runID.String()).Warn(d.Error())
	}
	if err != nil {
		e.log.WithField("run_id", e.runID.String()).Error(err.Error())
		return nil, []error{err}
	}

	var results []Result
	var errs []error
	for _, d := range diags {
		results = append(results, Result{})
		errs = append(errs, d)
	}
	for _, stmt := range stmts {
		res, err := e.runStatement(stmt)
		results = append(results, res)
		errs = append(errs, err)
		if err != nil {
			e.log.WithField("run_id", e.runID.String()).Error(err.Error())
		}
	}
	return results, errs
}

func (e *Engine) runStatement(stmt ast.Statement) (Result, error) {
	a := analyzer.New(e.cat)
	if sErrs := a.Analyze(stmt); len(sErrs) > 0 {
		return Result{}, sErrs[0]
	}

	built, err := plan.Build(stmt, e.cat, plan.PushDownOn)
	if err != nil {
		return Result{}, err
	}
	e.dumpPlan(built)

	ctx := &exec.Context{Open: e.openTable, Cat: e.cat}
	it, err := exec.Build(built, ctx)
	if err != nil {
		return Result{}, err
	}
	defer it.Close()

	var cols []string
	for _, f := range built.Shape() {
		cols = append(cols, f.Name)
	}
	var rows []sqlval.Row
	for {
		row, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, err
		}
		rows = append(rows, row)
	}

	if err := e.pool.FlushAll(); err != nil {
		return Result{}, err
	}
	return Result{Columns: cols, Rows: rows}, nil
}

func (e *Engine) dumpPlan(n plan.Node) {
	data, err := plan.Dump(n)
	if err != nil {
		return
	}
	e.planCounter++
	path := filepath.Join(e.cfg.LogDir, fmt.Sprintf("plan-%d.yaml", e.planCounter))
	_ = os.WriteFile(path, data, 0o644)
}

// Close flushes the buffer pool, persists the catalog, and closes all
// open table files.
func (e *Engine) Close() error {
	if err := e.pool.FlushAll(); err != nil {
		return err
	}
	if err := e.cat.Save(); err != nil {
		return err
	}
	return e.pager.Close()
}
