// Package diagnostics collects compiler messages across phases. Phases never
// halt on the first error: they append to a Bag and keep going so a single
// compile reports every Runefile mistake it can find, and the top-level
// driver decides whether to abort before codegen.
package diagnostics

import "fmt"

// Severity orders diagnostics from informational to fatal. The ordering
// itself is meaningful: Bag.HasErrors treats anything >= Error as fatal.
type Severity int

const (
	Help Severity = iota
	Note
	Warning
	Error
	Bug
)

func (s Severity) String() string {
	switch s {
	case Help:
		return "help"
	case Note:
		return "note"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Bug:
		return "bug"
	default:
		return "unknown"
	}
}

// Label attaches a secondary message to a referenced entity id. TargetID is
// left untyped (any) so labels can point at a NodeID, ResourceID, TensorID
// or a raw document span, whichever the phase raising the diagnostic has in
// hand.
type Label struct {
	TargetID any
	Message  string
}

// Diagnostic is one compiler message. PrimaryLabel, when set, points at the
// entity most directly responsible; Labels carries the rest of the
// supporting context (e.g. every node downstream of a cycle).
type Diagnostic struct {
	Severity     Severity
	Message      string
	PrimaryLabel *Label
	Labels       []Label
	Help         string
}

func (d Diagnostic) String() string {
	s := fmt.Sprintf("%s: %s", d.Severity, d.Message)
	if d.Help != "" {
		s += "\n  help: " + d.Help
	}
	return s
}

// Bag accumulates diagnostics across every phase of a build.
type Bag struct {
	items []Diagnostic
}

// NewBag returns an empty Bag.
func NewBag() *Bag {
	return &Bag{}
}

// Push appends a diagnostic.
func (b *Bag) Push(d Diagnostic) {
	b.items = append(b.items, d)
}

// Errorf appends an Error-severity diagnostic with an optional primary label.
func (b *Bag) Errorf(primary *Label, format string, args ...any) {
	b.Push(Diagnostic{Severity: Error, Message: fmt.Sprintf(format, args...), PrimaryLabel: primary})
}

// Warnf appends a Warning-severity diagnostic with an optional primary label.
func (b *Bag) Warnf(primary *Label, format string, args ...any) {
	b.Push(Diagnostic{Severity: Warning, Message: fmt.Sprintf(format, args...), PrimaryLabel: primary})
}

// Bugf appends a Bug-severity diagnostic, reserved for invariant violations
// that indicate a compiler defect rather than a bad Runefile.
func (b *Bag) Bugf(format string, args ...any) {
	b.Push(Diagnostic{Severity: Bug, Message: fmt.Sprintf(format, args...)})
}

// All returns every diagnostic pushed so far, in push order.
func (b *Bag) All() []Diagnostic {
	return b.items
}

// HasErrors reports whether any diagnostic is Error severity or worse. The
// top-level compiler driver calls this after each phase and aborts before
// codegen if it returns true.
func (b *Bag) HasErrors() bool {
	for _, d := range b.items {
		if d.Severity >= Error {
			return true
		}
	}
	return false
}

// Len reports the total number of diagnostics accumulated.
func (b *Bag) Len() int {
	return len(b.items)
}

// Extend appends every diagnostic from other into b, preserving order. It is
// used to merge per-subphase bags into the phase-level bag.
func (b *Bag) Extend(other *Bag) {
	if other == nil {
		return
	}
	b.items = append(b.items, other.items...)
}
