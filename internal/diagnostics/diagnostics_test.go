package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverityOrdering(t *testing.T) {
	assert.True(t, Help < Note)
	assert.True(t, Note < Warning)
	assert.True(t, Warning < Error)
	assert.True(t, Error < Bug)
}

func TestBag_HasErrors(t *testing.T) {
	b := NewBag()
	assert.False(t, b.HasErrors())

	b.Warnf(nil, "shape mismatch on %q", "tensor-1")
	assert.False(t, b.HasErrors())

	b.Errorf(nil, "undefined node %q", "classify")
	assert.True(t, b.HasErrors())
}

func TestBag_BugIsFatal(t *testing.T) {
	b := NewBag()
	b.Bugf("id interner produced duplicate id")
	assert.True(t, b.HasErrors())
}

func TestBag_ExtendPreservesOrder(t *testing.T) {
	a := NewBag()
	a.Push(Diagnostic{Severity: Note, Message: "first"})

	b := NewBag()
	b.Push(Diagnostic{Severity: Warning, Message: "second"})

	a.Extend(b)
	assert.Len(t, a.All(), 2)
	assert.Equal(t, "first", a.All()[0].Message)
	assert.Equal(t, "second", a.All()[1].Message)
}

func TestBag_ExtendNil(t *testing.T) {
	a := NewBag()
	a.Push(Diagnostic{Severity: Note, Message: "first"})
	a.Extend(nil)
	assert.Len(t, a.All(), 1)
}

func TestDiagnosticString(t *testing.T) {
	d := Diagnostic{Severity: Error, Message: "cycle detected", Help: "break the loop by removing one input"}
	s := d.String()
	assert.Contains(t, s, "error")
	assert.Contains(t, s, "cycle detected")
	assert.Contains(t, s, "break the loop")
}
