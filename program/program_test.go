package program

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gophjp/fjp/compileerr"
)

func compileerrExitCode(err error) int {
	if cerr, ok := err.(*compileerr.Error); ok {
		return cerr.Kind.ExitCode()
	}
	return 1
}

// writeSource creates a source file under t.TempDir() and returns its path.
func writeSource(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "program.pl0")
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

func runSource(t *testing.T, src, stdin string) (stdout string, exitCode int, err error) {
	t.Helper()
	path := writeSource(t, src)
	prog, _, compileErr := Compile(path, Options{})
	if compileErr != nil {
		return "", compileerrExitCode(compileErr), compileErr
	}
	var out bytes.Buffer
	exitCode, runErr := Run(prog, Options{Input: strings.NewReader(stdin), Output: &out})
	return out.String(), exitCode, runErr
}

func TestE1ArithmeticAndWrite(t *testing.T) {
	stdout, exit, err := runSource(t, `START
		int x;
		x := 2 + 3 * 4;
		write(x);
	END`, "")
	require.NoError(t, err)
	assert.Equal(t, 0, exit)
	assert.Equal(t, "14\n", stdout)
}

func TestE2IfElse(t *testing.T) {
	stdout, exit, err := runSource(t, `START
		int x;
		read(x);
		if (x > 0) write(1); else write(0);
	END`, "-5\n")
	require.NoError(t, err)
	assert.Equal(t, 0, exit)
	assert.Equal(t, "0\n", stdout)
}

func TestE3WhileLoopSum(t *testing.T) {
	stdout, exit, err := runSource(t, `START
		int i, s;
		i := 1; s := 0;
		while (i <= 5) { s := s + i; i := i + 1; }
		write(s);
	END`, "")
	require.NoError(t, err)
	assert.Equal(t, 0, exit)
	assert.Equal(t, "15\n", stdout)
}

func TestE4ArrayForeach(t *testing.T) {
	stdout, exit, err := runSource(t, `START
		int a[3] = {10, 20, 30};
		int x;
		foreach (x : a) write(x);
	END`, "")
	require.NoError(t, err)
	assert.Equal(t, 0, exit)
	assert.Equal(t, "10\n20\n30\n", stdout)
}

func TestE5GotoForwardReference(t *testing.T) {
	stdout, exit, err := runSource(t, `START
		int x;
		x := 1;
		goto done;
		x := 2;
		done:
		write(x);
	END`, "")
	require.NoError(t, err)
	assert.Equal(t, 0, exit)
	assert.Equal(t, "1\n", stdout)
}

func TestE6DivisionByZeroTraps(t *testing.T) {
	stdout, exit, err := runSource(t, `START
		int x;
		x := 10 / 0;
		write(x);
	END`, "")
	require.Error(t, err)
	assert.Equal(t, 3, exit)
	assert.Empty(t, stdout)
}

func TestE7UnterminatedCommentFailsAtCompileTime(t *testing.T) {
	path := writeSource(t, `START /* oops int x; END`)
	_, _, err := Compile(path, Options{})
	require.Error(t, err)
	assert.Equal(t, 1, compileerrExitCode(err))
}

func TestCompileWritesDebugArtifacts(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, `START
		int x;
		x := 1;
		write(x);
	END`)
	prog, _, err := Compile(path, Options{Debug: true, Dir: dir})
	require.NoError(t, err)
	require.NotNil(t, prog)

	assert.FileExists(t, filepath.Join(dir, "tokens.json"))
	assert.FileExists(t, filepath.Join(dir, "code.pl0-asm"))

	listing, err := os.ReadFile(filepath.Join(dir, "code.pl0-asm"))
	require.NoError(t, err)
	assert.Contains(t, string(listing), "INC")
}

func TestRunWritesStackTraceWhenDebugging(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, `START
		int x;
		x := 1;
		write(x);
	END`)
	prog, _, err := Compile(path, Options{})
	require.NoError(t, err)

	var out bytes.Buffer
	exit, err := Run(prog, Options{Debug: true, Dir: dir, Output: &out})
	require.NoError(t, err)
	assert.Equal(t, 0, exit)
	assert.FileExists(t, filepath.Join(dir, "stacktrace.txt"))
}
