package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gophjp/fjp/symtab"
)

func findEntry(t *testing.T, report XrefReport, name string) XrefEntry {
	t.Helper()
	for _, e := range report.Entries {
		if e.Symbol.Name == name {
			return e
		}
	}
	require.Fail(t, "symbol not found in report", name)
	return XrefEntry{}
}

func TestCrossReferenceFunctionCallIsExact(t *testing.T) {
	code, symbols := compile(t, `START
		function greet() { write(1); }
		call greet();
	END`)
	report := CrossReference(symbols, code)
	entry := findEntry(t, report, "greet")
	require.NotEmpty(t, entry.Accesses)
	assert.Equal(t, AccessCall, entry.Accesses[0].Kind)
	assert.False(t, entry.Approx)
}

func TestCrossReferenceLabelIsExact(t *testing.T) {
	code, symbols := compile(t, `START
		goto done;
		write(1);
		done: write(2);
	END`)
	report := CrossReference(symbols, code)
	entry := findEntry(t, report, "done")
	require.NotEmpty(t, entry.Accesses)
	assert.False(t, entry.Approx)
}

func TestCrossReferenceScalarReadAndWrite(t *testing.T) {
	code, symbols := compile(t, `START
		int x;
		x := 1;
		write(x);
	END`)
	report := CrossReference(symbols, code)
	entry := findEntry(t, report, "x")
	assert.True(t, entry.Approx)

	var sawRead, sawWrite bool
	for _, a := range entry.Accesses {
		if a.Kind == AccessRead {
			sawRead = true
		}
		if a.Kind == AccessWrite {
			sawWrite = true
		}
	}
	assert.True(t, sawRead)
	assert.True(t, sawWrite)
}

func TestCrossReferenceSummaryCountsUnreferenced(t *testing.T) {
	code, symbols := compile(t, `START
		int unused;
		write(1);
	END`)
	report := CrossReference(symbols, code)
	entry := findEntry(t, report, "unused")
	assert.Empty(t, entry.Accesses)
	assert.GreaterOrEqual(t, report.Summary.Unreferenced, 1)
}

func TestCrossReferenceArrayAccess(t *testing.T) {
	code, symbols := compile(t, `START
		int a[3];
		a[1] := 9;
	END`)
	report := CrossReference(symbols, code)
	entry := findEntry(t, report, "a")
	assert.Equal(t, symtab.IntArray, entry.Symbol.Kind)
	require.NotEmpty(t, entry.Accesses)
}
