// Command fjp is the compiler/VM's command-line front end: compile a
// source file, optionally run it, optionally drop into the debugger,
// or serve the HTTP API instead of touching a file at all.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gophjp/fjp/api"
	"github.com/gophjp/fjp/compileerr"
	"github.com/gophjp/fjp/config"
	"github.com/gophjp/fjp/debugger"
	"github.com/gophjp/fjp/program"
	"github.com/gophjp/fjp/tools"
	"github.com/gophjp/fjp/vm"
)

func main() {
	var (
		showHelp        bool
		debugArtifacts  bool
		runAfterCompile bool
	)
	flag.BoolVar(&showHelp, "help", false, "Show help information")
	flag.BoolVar(&showHelp, "h", false, "Show help information (shorthand)")
	flag.BoolVar(&debugArtifacts, "debug", false, "Write tokens.json, code.pl0-asm and stacktrace.txt into the current directory")
	flag.BoolVar(&debugArtifacts, "d", false, "Write debug artifacts (shorthand)")
	flag.BoolVar(&runAfterCompile, "run", false, "Execute the program after a successful compile")
	flag.BoolVar(&runAfterCompile, "r", false, "Execute after compile (shorthand)")

	cliDebugger := flag.Bool("debugger", false, "Drop into the CLI debugger instead of running to completion")
	tuiMode := flag.Bool("tui", false, "Drop into the TUI debugger instead of running to completion")
	lintMode := flag.Bool("lint", false, "Run static checks on the compiled program and exit")
	fmtMode := flag.Bool("fmt", false, "Print the compiled program's instruction listing and exit")

	configPath := flag.String("config", "", "Path to fjp.toml (default search order: ./fjp.toml, $XDG_CONFIG_HOME/fjp/config.toml)")
	verbose := flag.Bool("verbose", false, "Log compile/run progress to stderr")
	maxSteps := flag.Uint64("max-steps", 0, "Maximum VM steps before a forced halt (0 = unbounded)")
	enableStats := flag.Bool("stats", false, "Print the run's exit code (exit_code=N) on exit; no step count is reported")
	statsFile := flag.String("stats-file", "", "Write the -stats line to this file instead of stderr")

	apiServer := flag.Bool("api-server", false, "Start the HTTP API server instead of compiling a file")
	apiPort := flag.Int("port", 8080, "API server port (used with -api-server)")

	flag.Usage = printHelp
	flag.Parse()

	if showHelp {
		printHelp()
		os.Exit(0)
	}

	var logger *log.Logger
	if *verbose {
		logger = log.New(os.Stderr, "fjp: ", log.Ltime)
	} else {
		logger = log.New(io.Discard, "", 0)
	}

	if *apiServer {
		runAPIServer(*apiPort, logger)
		return
	}

	cfg, err := config.Resolve(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fjp: %v\n", err)
		os.Exit(compileerr.KindIO.ExitCode())
	}
	logger.Printf("configuration loaded (max_steps=%d)", cfg.Execution.MaxSteps)

	if flag.NArg() == 0 {
		printHelp()
		os.Exit(4)
	}
	path := flag.Arg(0)

	steps := cfg.Execution.MaxSteps
	if *maxSteps != 0 {
		steps = *maxSteps
	}

	dir := "."
	opts := program.Options{Debug: debugArtifacts, Dir: dir, MaxSteps: steps}

	logger.Printf("compiling %s", path)
	prog, symbols, err := program.Compile(path, opts)
	if err != nil {
		reportAndExit(err)
	}
	logger.Printf("compiled %d instructions", len(prog.Code))

	if *lintMode {
		for _, issue := range tools.Lint(prog, symbols) {
			fmt.Println(issue.String())
		}
		os.Exit(0)
	}

	if *fmtMode {
		fmt.Print(tools.Format(prog.Code))
		os.Exit(0)
	}

	if *tuiMode || *cliDebugger {
		machine := vm.New(prog.Code)
		machine.MaxSteps = steps
		dbg := debugger.NewDebugger(machine, symbols)
		dbg.History = debugger.NewCommandHistory(cfg.Debugger.HistorySize)
		var runErr error
		if *tuiMode {
			runErr = debugger.RunTUI(dbg)
		} else {
			runErr = debugger.RunCLI(dbg)
		}
		if runErr != nil {
			fmt.Fprintf(os.Stderr, "fjp: debugger error: %v\n", runErr)
			os.Exit(compileerr.KindRuntime.ExitCode())
		}
		os.Exit(0)
	}

	if !runAfterCompile {
		os.Exit(0)
	}

	logger.Printf("running")
	exitCode, runErr := program.Run(prog, opts)
	if runErr != nil {
		reportAndExit(runErr)
	}

	if *enableStats {
		writeStats(*statsFile, exitCode)
	}

	os.Exit(exitCode)
}

// reportAndExit prints the one diagnostic line spec.md §7's propagation
// policy requires and exits with the error's mapped code.
func reportAndExit(err error) {
	fmt.Fprintln(os.Stderr, err.Error())
	if cerr, ok := err.(*compileerr.Error); ok {
		os.Exit(cerr.Kind.ExitCode())
	}
	os.Exit(compileerr.KindRuntime.ExitCode())
}

func writeStats(path string, exitCode int) {
	line := fmt.Sprintf("exit_code=%d\n", exitCode)
	if path == "" {
		fmt.Fprint(os.Stderr, line)
		return
	}
	if err := os.WriteFile(path, []byte(line), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "fjp: failed to write stats file: %v\n", err)
	}
}

// runAPIServer starts api.Server and blocks until SIGINT/SIGTERM, then
// shuts it down gracefully. Grounded on the teacher's main.go signal
// handling and process-monitor wiring.
func runAPIServer(port int, logger *log.Logger) {
	server := api.NewServer(port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var shutdownOnce sync.Once
	shutdown := func() {
		shutdownOnce.Do(func() {
			fmt.Println("\nShutting down API server...")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
				os.Exit(1)
			}
			fmt.Println("API server stopped")
			os.Exit(0)
		})
	}

	monitor := api.NewProcessMonitor(shutdown)
	monitor.Start()

	logger.Printf("API server listening on port %d", port)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "API server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-sigChan
	shutdown()
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `fjp - compiler and virtual machine for the START/END teaching language

Usage:
  fjp <input> [-d|-debug] [-r|-run] [-h|-help]
  fjp <input> -debugger
  fjp <input> -tui
  fjp -api-server [-port N]
  fjp -lint <input>
  fjp -fmt <input>

Options:
  -help, -h          Show this help message
  -debug, -d         Write tokens.json, code.pl0-asm and stacktrace.txt into the current directory
  -run, -r           Execute the program after a successful compile
  -debugger          Drop into the interactive CLI debugger instead of running to completion
  -tui               Drop into the TUI debugger instead of running to completion
  -lint              Run static checks on the compiled program and exit
  -fmt               Print the compiled program's instruction listing and exit
  -config PATH       Path to fjp.toml
  -verbose           Log compile/run progress to stderr
  -max-steps N       Maximum VM steps before a forced halt (0 = unbounded)
  -stats             Print the run's exit code (exit_code=N) on exit; no step count is reported
  -stats-file PATH   Write the -stats line to this file instead of stderr
  -api-server        Start the HTTP API server instead of compiling a file
  -port N            API server port (default: 8080, used with -api-server)

Exit codes: 0 success, 1 lexer error, 2 parser error, 3 VM runtime error, 4 usage error.

Examples:
  fjp program.pl0 -run
  fjp program.pl0 -d -run
  fjp program.pl0 -debugger
  fjp -lint program.pl0
  fjp -api-server -port 3000
`)
}
