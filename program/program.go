// Package program is the top-level driver wiring lexer, parser and vm
// together, and owning the debug artifacts spec.md §6.4 describes.
// Grounded on the teacher's main.go, which performs the same parse-then-
// load-then-run sequence and the same pattern of attaching trace/stats
// collectors to the machine before running it, generalized here into a
// reusable library entry point instead of inline main() logic so the
// CLI, the debugger, and the api service can all share it.
package program

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/gophjp/fjp/compileerr"
	"github.com/gophjp/fjp/isa"
	"github.com/gophjp/fjp/lexer"
	"github.com/gophjp/fjp/parser"
	"github.com/gophjp/fjp/symtab"
	"github.com/gophjp/fjp/vm"
)

// Options controls the optional behavior of Compile and Run.
type Options struct {
	// Debug writes tokens.json, code.pl0-asm, stacktrace.txt into Dir
	// (spec.md §6.4).
	Debug bool
	Dir   string

	// MaxSteps bounds VM execution (0 = unbounded, spec.md's VM has no
	// inherent bound but a reimplementation may enforce one).
	MaxSteps uint64

	// Input/Output default to os.Stdin/os.Stdout when left nil (the
	// vm.VM zero-value default); tests and the api package supply their
	// own readers/writers instead of real files.
	Input  io.Reader
	Output io.Writer
}

// tokenRecord is the JSON shape tokens.json uses (spec.md §6.4):
// {typeId, type, lineNumber, value}.
type tokenRecord struct {
	TypeID     int    `json:"typeId"`
	Type       string `json:"type"`
	LineNumber int    `json:"lineNumber"`
	Value      string `json:"value"`
}

// Compile reads path, tokenizes and parses it, and returns the compiled
// program plus its global symbol table. When opts.Debug is set, it also
// writes tokens.json and code.pl0-asm into opts.Dir.
func Compile(path string, opts Options) (*isa.Program, *symtab.Table, error) {
	lx, err := lexer.New(path)
	if err != nil {
		return nil, nil, err
	}
	tokens := lx.All()

	code, symbols, err := parser.Compile(tokens)
	if err != nil {
		return nil, nil, err
	}

	if opts.Debug {
		if err := writeTokensJSON(opts.Dir, tokens); err != nil {
			return nil, nil, err
		}
		if err := writeCodeListing(opts.Dir, code); err != nil {
			return nil, nil, err
		}
	}

	return &isa.Program{Code: code, SourcePath: path}, symbols, nil
}

// Run constructs a vm.VM for prog and executes it to completion. When
// opts.Debug is set, it attaches an ExecutionTrace and writes
// stacktrace.txt after the run (success or failure). The returned exit
// code follows spec.md §6.1: 0 on success, 3 on a runtime error.
func Run(prog *isa.Program, opts Options) (int, error) {
	machine := vm.New(prog.Code)
	machine.MaxSteps = opts.MaxSteps
	if opts.Input != nil {
		machine.Input = opts.Input
	}
	if opts.Output != nil {
		machine.Output = opts.Output
	}

	var trace *vm.ExecutionTrace
	if opts.Debug {
		trace = vm.NewExecutionTrace(0)
		machine.Trace = trace
	}

	runErr := machine.Run()

	if opts.Debug {
		if err := writeStackTrace(opts.Dir, trace); err != nil {
			return 0, err
		}
	}

	if runErr != nil {
		if cerr, ok := runErr.(*compileerr.Error); ok {
			return cerr.Kind.ExitCode(), runErr
		}
		return compileerr.KindRuntime.ExitCode(), runErr
	}
	return 0, nil
}

func writeTokensJSON(dir string, tokens []lexer.Token) error {
	records := make([]tokenRecord, len(tokens))
	for i, t := range tokens {
		records[i] = tokenRecord{
			TypeID:     int(t.Kind),
			Type:       t.Kind.String(),
			LineNumber: t.Line,
			Value:      t.Lexeme,
		}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("program: marshal tokens.json: %w", err)
	}
	return os.WriteFile(joinDir(dir, "tokens.json"), data, 0644)
}

func writeCodeListing(dir string, code []isa.Instruction) error {
	return os.WriteFile(joinDir(dir, "code.pl0-asm"), []byte(isa.Listing(code)), 0644)
}

func writeStackTrace(dir string, trace *vm.ExecutionTrace) error {
	f, err := os.Create(joinDir(dir, "stacktrace.txt"))
	if err != nil {
		return fmt.Errorf("program: create stacktrace.txt: %w", err)
	}
	defer f.Close()
	if trace == nil {
		return nil
	}
	return trace.WriteReport(f)
}

func joinDir(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + string(os.PathSeparator) + name
}
