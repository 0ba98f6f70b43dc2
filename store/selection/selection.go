// Package selection evaluates row cuts over raw columns once, when a
// dataset is materialized, and turns them into a filtered view.
package selection

import (
	"fmt"
	"math"

	"tauflow/store/shard"
)

// Table is the read side needed to evaluate cuts.
type Table interface {
	Rows() int
	ReadColumn(name string, start, stop, seqLen int, dst []float32) error
}

// Expr is a boolean row predicate.
type Expr interface {
	// Eval ANDs the predicate into keep.
	Eval(t Table, keep []bool) error
	String() string
}

// Cut compares a scalar column, optionally passed through Mod, to Value.
// Mod is "" or "abs"; Op is one of < <= > >= == !=.
type Cut struct {
	Column string  `yaml:"column"`
	Mod    string  `yaml:"mod"`
	Op     string  `yaml:"op"`
	Value  float64 `yaml:"value"`
}

func (c Cut) String() string {
	col := c.Column
	if c.Mod != "" {
		col = c.Mod + "(" + col + ")"
	}
	return fmt.Sprintf("%s %s %g", col, c.Op, c.Value)
}

func (c Cut) Eval(t Table, keep []bool) error {
	cmp, err := compare(c.Op)
	if err != nil {
		return err
	}
	if c.Mod != "" && c.Mod != "abs" {
		return fmt.Errorf("selection: unknown modifier %q", c.Mod)
	}
	vals := make([]float32, t.Rows())
	if err := t.ReadColumn(c.Column, 0, t.Rows(), 0, vals); err != nil {
		return fmt.Errorf("selection: %s: %w", c, err)
	}
	for i, v := range vals {
		x := float64(v)
		if c.Mod == "abs" {
			x = math.Abs(x)
		}
		keep[i] = keep[i] && cmp(x, c.Value)
	}
	return nil
}

func compare(op string) (func(a, b float64) bool, error) {
	switch op {
	case "<":
		return func(a, b float64) bool { return a < b }, nil
	case "<=":
		return func(a, b float64) bool { return a <= b }, nil
	case ">":
		return func(a, b float64) bool { return a > b }, nil
	case ">=":
		return func(a, b float64) bool { return a >= b }, nil
	case "==":
		return func(a, b float64) bool { return a == b }, nil
	case "!=":
		return func(a, b float64) bool { return a != b }, nil
	}
	return nil, fmt.Errorf("selection: unknown operator %q", op)
}

type and []Expr

// And combines expressions by logical AND. An empty And keeps every row.
func And(exprs ...Expr) Expr { return and(exprs) }

func (a and) Eval(t Table, keep []bool) error {
	for _, e := range a {
		if e == nil {
			continue
		}
		if err := e.Eval(t, keep); err != nil {
			return err
		}
	}
	return nil
}

func (a and) String() string {
	s := ""
	for i, e := range a {
		if i > 0 {
			s += " && "
		}
		s += e.String()
	}
	return s
}

// Mask evaluates expr over every row of t.
func Mask(t Table, expr Expr) ([]bool, error) {
	keep := make([]bool, t.Rows())
	for i := range keep {
		keep[i] = true
	}
	if expr == nil {
		return keep, nil
	}
	if err := expr.Eval(t, keep); err != nil {
		return nil, err
	}
	return keep, nil
}

// Apply returns the view of ds holding the rows that pass expr.
func Apply(ds *shard.Dataset, expr Expr) (*shard.Dataset, error) {
	keep, err := Mask(ds, expr)
	if err != nil {
		return nil, err
	}
	return ds.Filter(keep)
}

// Cuts converts a list of cuts into one And expression.
func Cuts(cuts []Cut) Expr {
	exprs := make([]Expr, len(cuts))
	for i, c := range cuts {
		exprs[i] = c
	}
	return And(exprs...)
}
