// Package variables declares the feature groups fed to the tau classifier:
// which columns are read, how they are transformed and how each variable
// is normalized.
package variables

import (
	"strings"

	"tauflow/internal/preprocessing"
	"tauflow/internal/transform"
)

// Spec is one model input variable. A nil Transform reads the column named
// Name directly; a nil Fit keeps the variable unnormalized.
type Spec struct {
	Name      string
	Transform transform.Func
	Fit       preprocessing.Fitter
}

// Direct declares a variable read verbatim from the column Name.
func Direct(name string, fit preprocessing.Fitter) Spec {
	return Spec{Name: name, Fit: fit}
}

// Derived declares a variable computed by fn.
func Derived(name string, fn transform.Func, fit preprocessing.Fitter) Spec {
	return Spec{Name: name, Transform: fn, Fit: fit}
}

func (s Spec) Container() string {
	if i := strings.IndexByte(s.Name, '/'); i >= 0 {
		return s.Name[:i]
	}
	return ""
}

func (s Spec) Field() string {
	if i := strings.IndexByte(s.Name, '/'); i >= 0 {
		return s.Name[i+1:]
	}
	return s.Name
}

// Fill writes the variable into dst.
func (s Spec) Fill(src transform.Reader, dst transform.Dest, rows transform.Range) error {
	if s.Transform == nil {
		return transform.Read(src, s.Name, dst, rows)
	}
	return s.Transform(src, dst, rows)
}

// SlotCut drops sequence slots whose Variable, in its transformed but not
// yet normalized units, is below Min. Dropped slots become absent.
type SlotCut struct {
	Variable string
	Min      float32
}

// Group is an ordered set of variables forming one model input. Len 0
// yields a [N, V] scalar input, Len > 0 a [N, Len, V] sequence input.
type Group struct {
	Name string
	Len  int
	Vars []Spec
	Cut  *SlotCut
	// Presence lists the accepted spellings of the sequence column whose
	// value is > 0 in every slot holding an object. Slots failing it are
	// NaN in every variable. Empty disables masking.
	Presence []string
}

// Slots is the number of sequence positions, 1 for scalar groups.
func (g Group) Slots() int {
	if g.Len <= 0 {
		return 1
	}
	return g.Len
}

func (g Group) Names() []string {
	out := make([]string, len(g.Vars))
	for i, v := range g.Vars {
		out[i] = v.Name
	}
	return out
}

// Index returns the position of the named variable, or -1.
func (g Group) Index(name string) int {
	for i, v := range g.Vars {
		if v.Name == name {
			return i
		}
	}
	return -1
}

// Variables converts the group to the preprocessing fit contract.
func (g Group) Variables() []preprocessing.Variable {
	out := make([]preprocessing.Variable, len(g.Vars))
	for i, v := range g.Vars {
		out[i] = preprocessing.Variable{Name: v.Name, Fit: v.Fit}
	}
	return out
}
