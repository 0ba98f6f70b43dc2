package variables

import (
	"fmt"
	"math"

	"tauflow/internal/preprocessing"
	"tauflow/internal/transform"
	"tauflow/store/shard"
)

// Buffer is the reusable working memory of one group for up to Cap rows.
// Data is the row-major [rows, Slots, V] feature block; Scratch and Ref are
// transform work areas. Absent holds the slot mask of the rows in marked.
type Buffer struct {
	Cap     int
	Data    []float32
	Scratch []float32
	Ref     []float32
	Absent  []bool

	marked transform.Range
}

func (g Group) NewBuffer(capRows int) *Buffer {
	return &Buffer{
		Cap:     capRows,
		Data:    make([]float32, capRows*g.Slots()*len(g.Vars)),
		Scratch: make([]float32, capRows*g.Slots()),
		Ref:     make([]float32, capRows),
		Absent:  make([]bool, capRows*g.Slots()),
		marked:  transform.Range{Start: -1, Stop: -1},
	}
}

// Dest addresses variable col for the first n rows of b.
func (g Group) Dest(b *Buffer, n, col int) transform.Dest {
	return transform.Dest{
		Data:    b.Data[:n*g.Slots()*len(g.Vars)],
		Rows:    n,
		Slots:   g.Slots(),
		SeqLen:  g.Len,
		Width:   len(g.Vars),
		Col:     col,
		Scratch: b.Scratch,
		Ref:     b.Ref,
	}
}

// Layout views the first n rows of b for preprocessing.
func (g Group) Layout(b *Buffer, n int) preprocessing.Layout {
	return preprocessing.Layout{
		Data:  b.Data[:n*g.Slots()*len(g.Vars)],
		Rows:  n,
		Slots: g.Slots(),
		Width: len(g.Vars),
	}
}

// FillVar writes variable col for source rows into b.
func (g Group) FillVar(src transform.Reader, b *Buffer, rows transform.Range, col int) error {
	n := rows.Len()
	if n > b.Cap {
		return fmt.Errorf("variables: %d rows exceed buffer capacity %d", n, b.Cap)
	}
	v := g.Vars[col]
	dst := g.Dest(b, n, col)
	if err := v.Fill(src, dst, rows); err != nil {
		return fmt.Errorf("variables: %s/%s: %w", g.Name, v.Name, err)
	}
	if g.Len <= 0 || len(g.Presence) == 0 {
		return nil
	}
	if err := g.markAbsent(src, b, rows); err != nil {
		return fmt.Errorf("variables: %s presence: %w", g.Name, err)
	}
	nan := float32(math.NaN())
	for r := 0; r < n; r++ {
		for s := 0; s < g.Len; s++ {
			if b.Absent[r*g.Len+s] {
				dst.Set(r, s, nan)
			}
		}
	}
	return nil
}

// markAbsent computes the slot mask of rows once per range. It reads the
// presence column through Scratch, which is free once a transform returns.
func (g Group) markAbsent(src transform.Reader, b *Buffer, rows transform.Range) error {
	if b.marked == rows {
		return nil
	}
	name, err := transform.Resolve(src, g.Presence...)
	if err != nil {
		return err
	}
	n := rows.Len() * g.Len
	ref := b.Scratch[:n]
	if err := src.ReadColumn(name, rows.Start, rows.Stop, g.Len, ref); err != nil {
		return err
	}
	shard.MarkAbsent(b.Absent[:n], ref)
	b.marked = rows
	return nil
}

// Fill writes every variable of the group for source rows into b.
func (g Group) Fill(src transform.Reader, b *Buffer, rows transform.Range) error {
	for i := range g.Vars {
		if err := g.FillVar(src, b, rows, i); err != nil {
			return err
		}
	}
	return nil
}
