// Command corvid is the interactive shell and script runner of
// spec.md §6, adapted from sqldef's go-flags CLI pattern
// (cmd/mssqldef/mssqldef.go in the retrieval pack) for option parsing.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	flags "github.com/jessevdk/go-flags"

	"github.com/corvidsql/corvid/config"
	"github.com/corvidsql/corvid/engine"
)

type options struct {
	Config          string `short:"c" long:"config" description:"path to a config.toml" value-name:"path"`
	BufferCapacity  int    `long:"buffer-capacity" description:"buffer pool capacity in pages"`
	Policy          string `long:"policy" description:"eviction policy: lru or fifo"`
	Positional      struct {
		Script string `positional-arg-name:"script" description:"SQL script to run non-interactively"`
	} `positional-args:"yes"`
}

func parseOptions(args []string) (*options, error) {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "[options] [script]"
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}
	return &opts, nil
}

func main() {
	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		fmt.Fprintln(os.Stderr, "corvid:", err)
		os.Exit(1)
	}
	if opts.BufferCapacity > 0 {
		cfg.BufferPoolCapacity = opts.BufferCapacity
	}
	if opts.Policy != "" {
		cfg.EvictionPolicy = opts.Policy
	}

	e, err := engine.Open(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "corvid:", err)
		os.Exit(1)
	}
	defer e.Close()

	if opts.Positional.Script != "" {
		os.Exit(runScript(e, opts.Positional.Script))
	}
	os.Exit(runInteractive(e, os.Stdin, os.Stdout))
}

// runScript executes a script file, following `: read <path>` nested
// includes recursively (spec.md §6).
func runScript(e *engine.Engine, path string) int {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "corvid:", err)
		return 1
	}
	if !execSource(e, string(src)) {
		return 2
	}
	return 0
}

// execSource runs every statement in src (expanding `: read <path>`
// directives inline) and reports whether all statements succeeded.
func execSource(e *engine.Engine, src string) bool {
	ok := true
	var stmts []string
	for _, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, ": read ") {
			path := strings.TrimSpace(strings.TrimPrefix(trimmed, ": read "))
			included, err := os.ReadFile(path)
			if err != nil {
				fmt.Fprintln(os.Stderr, "corvid:", err)
				ok = false
				continue
			}
			if !execSource(e, string(included)) {
				ok = false
			}
			continue
		}
		stmts = append(stmts, line)
	}
	body := strings.Join(stmts, "\n")
	if strings.TrimSpace(body) == "" {
		return ok
	}
	results, errs := e.Run(body)
	for i, err := range errs {
		if err != nil {
			fmt.Fprintln(os.Stderr, "corvid:", err)
			ok = false
			continue
		}
		printResult(os.Stdout, results[i])
	}
	return ok
}

// runInteractive reads statements from in until "exit"/"quit" (with or
// without a trailing `;`, spec.md §6) or EOF, printing results to out.
func runInteractive(e *engine.Engine, in io.Reader, out io.Writer) int {
	reader := bufio.NewReader(in)
	var buf strings.Builder
	for {
		fmt.Fprint(out, "SQL > ")
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		trimmed := strings.TrimSpace(line)
		command := strings.TrimSuffix(trimmed, ";")
		if command == "exit" || command == "quit" {
			break
		}
		if strings.HasPrefix(trimmed, ": read ") {
			path := strings.TrimSpace(strings.TrimPrefix(trimmed, ": read "))
			included, err := os.ReadFile(path)
			if err != nil {
				fmt.Fprintln(os.Stderr, "corvid:", err)
				continue
			}
			execSource(e, string(included))
			continue
		}
		buf.WriteString(line)
		if !strings.HasSuffix(trimmed, ";") {
			continue
		}
		results, errs := e.Run(buf.String())
		buf.Reset()
		for i, err := range errs {
			if err != nil {
				fmt.Fprintln(os.Stderr, "corvid:", err)
				continue
			}
			printResult(out, results[i])
		}
	}
	return 0
}

func printResult(out io.Writer, r engine.Result) {
	if len(r.Columns) == 0 {
		return
	}
	fmt.Fprintln(out, strings.Join(r.Columns, "\t"))
	for _, row := range r.Rows {
		fmt.Fprintln(out, row.String())
	}
}
