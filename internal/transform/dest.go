package transform

import (
	"fmt"

	"tauflow/store/shard"
)

// Reader is the read side of a sharded table as seen by transforms.
type Reader interface {
	Has(name string) bool
	ReadColumn(name string, start, stop, seqLen int, dst []float32) error
}

// Range is a contiguous source row range [Start, Stop).
type Range struct{ Start, Stop int }

func (r Range) Len() int { return r.Stop - r.Start }

// Dest addresses column Col of a row-major [Rows, Slots, Width] buffer.
// Scalar groups use Slots == 1 and SeqLen == 0; sequence groups use
// Slots == SeqLen == L. Scratch and Ref are per-arena work areas holding
// at least Rows*Slots and Rows values.
type Dest struct {
	Data   []float32
	Rows   int
	Slots  int
	SeqLen int
	Width  int
	Col    int

	Scratch []float32
	Ref     []float32
}

func (d Dest) index(r, s int) int { return (r*d.Slots+s)*d.Width + d.Col }

func (d Dest) Get(r, s int) float32 { return d.Data[d.index(r, s)] }

func (d Dest) Set(r, s int, v float32) { d.Data[d.index(r, s)] = v }

// Map replaces every value of the column by fn(value).
func (d Dest) Map(fn func(float32) float32) {
	for r := 0; r < d.Rows; r++ {
		for s := 0; s < d.Slots; s++ {
			i := d.index(r, s)
			d.Data[i] = fn(d.Data[i])
		}
	}
}

// Load scatters Rows*Slots contiguous values into the column.
func (d Dest) Load(src []float32) {
	for r := 0; r < d.Rows; r++ {
		for s := 0; s < d.Slots; s++ {
			d.Data[d.index(r, s)] = src[r*d.Slots+s]
		}
	}
}

// Read copies a raw column into the destination column. It is the plain
// read used for variables without a transform.
func Read(src Reader, column string, dst Dest, rows Range) error {
	if rows.Len() != dst.Rows {
		return fmt.Errorf("transform: %d source rows for %d destination rows", rows.Len(), dst.Rows)
	}
	buf := dst.Scratch[:dst.Rows*dst.Slots]
	if err := src.ReadColumn(column, rows.Start, rows.Stop, dst.SeqLen, buf); err != nil {
		return err
	}
	dst.Load(buf)
	return nil
}

// readRef loads the first present reference column into dst.Ref.
func readRef(src Reader, dst Dest, rows Range, names ...string) ([]float32, error) {
	name, err := Resolve(src, names...)
	if err != nil {
		return nil, err
	}
	ref := dst.Ref[:rows.Len()]
	if err := src.ReadColumn(name, rows.Start, rows.Stop, 0, ref); err != nil {
		return nil, err
	}
	return ref, nil
}

// Resolve returns the first of the accepted spellings present in src.
func Resolve(src Reader, names ...string) (string, error) {
	for _, n := range names {
		if src.Has(n) {
			return n, nil
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("transform: no reference column configured")
	}
	return "", &shard.MissingColumnError{Name: names[0], Alternatives: names[1:]}
}
