// Package training loads labeled signal/background samples and fits the
// preprocessing rules of every feature group.
package training

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"tauflow/internal/logging"
	"tauflow/internal/partition"
	"tauflow/internal/preprocessing"
	"tauflow/internal/transform"
	"tauflow/internal/variables"
)

// Source is a readable table with a known row count.
type Source interface {
	transform.Reader
	Rows() int
}

// LoadData fills group for every signal row followed by every background
// row. Labels are 1 for signal and 0 for background; weights flatten the
// background pt spectrum onto the signal one.
func LoadData(sig, bkg Source, g variables.Group, ptColumn string) (*partition.Data, error) {
	sw, bw, err := weights(sig, bkg, ptColumn)
	if err != nil {
		return nil, err
	}
	return loadGroup(sig, bkg, g, sw, bw)
}

func weights(sig, bkg Source, ptColumn string) (sw, bw []float32, err error) {
	sigPt := make([]float32, sig.Rows())
	if err := sig.ReadColumn(ptColumn, 0, sig.Rows(), 0, sigPt); err != nil {
		return nil, nil, fmt.Errorf("training: signal %s: %w", ptColumn, err)
	}
	bkgPt := make([]float32, bkg.Rows())
	if err := bkg.ReadColumn(ptColumn, 0, bkg.Rows(), 0, bkgPt); err != nil {
		return nil, nil, fmt.Errorf("training: background %s: %w", ptColumn, err)
	}
	sw, bw = partition.PtReweight(sigPt, bkgPt)
	return sw, bw, nil
}

func loadGroup(sig, bkg Source, g variables.Group, sw, bw []float32) (*partition.Data, error) {
	ns, nb := sig.Rows(), bkg.Rows()
	stride := g.Slots() * len(g.Vars)
	d := &partition.Data{
		X:     make([]float32, 0, (ns+nb)*stride),
		Slots: g.Slots(),
		Vars:  len(g.Vars),
		Y:     make([]float32, 0, ns+nb),
		W:     make([]float32, 0, ns+nb),
	}
	for _, part := range []struct {
		src   Source
		label float32
		w     []float32
	}{{sig, 1, sw}, {bkg, 0, bw}} {
		n := part.src.Rows()
		if n == 0 {
			continue
		}
		b := g.NewBuffer(n)
		if err := g.Fill(part.src, b, transform.Range{Start: 0, Stop: n}); err != nil {
			return nil, err
		}
		d.X = append(d.X, b.Data[:n*stride]...)
		for i := 0; i < n; i++ {
			d.Y = append(d.Y, part.label)
		}
		d.W = append(d.W, part.w...)
	}
	return d, nil
}

// Options configures a fit run.
type Options struct {
	Signal       Source
	Background   Source
	Groups       []variables.Group
	PtColumn     string
	TestFraction float64
	Seed         int64
}

// Result holds the fitted rules and the normalized, NaN-free train and
// test partitions per group, in group order.
type Result struct {
	Rules *preprocessing.Rules
	Train []partition.Data
	Test  []partition.Data
}

// Fit loads every group, splits all groups with one shared shuffle, fits
// each group's rules on its train part and applies them to both parts.
func Fit(ctx context.Context, opts Options) (*Result, error) {
	if len(opts.Groups) == 0 {
		return nil, fmt.Errorf("training: no groups")
	}
	if opts.PtColumn == "" {
		opts.PtColumn = "TauJets/pt"
	}
	log := logging.With("training")
	sw, bw, err := weights(opts.Signal, opts.Background, opts.PtColumn)
	if err != nil {
		return nil, err
	}

	data := make([]*partition.Data, len(opts.Groups))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, g := range opts.Groups {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			d, err := loadGroup(opts.Signal, opts.Background, g, sw, bw)
			if err != nil {
				return err
			}
			data[i] = d
			log.Info("loaded group", "group", g.Name, "rows", d.Rows(), "slots", d.Slots, "vars", d.Vars)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	train, test, err := partition.TrainTestSplit(opts.Seed, opts.TestFraction, data...)
	if err != nil {
		return nil, fmt.Errorf("training: %w", err)
	}

	res := &Result{Rules: &preprocessing.Rules{}, Train: train, Test: test}
	for i, g := range opts.Groups {
		gr, err := preprocessing.FitGroup(g.Name, g.Variables(), layout(train[i]), layout(test[i]))
		if err != nil {
			return nil, err
		}
		res.Rules.Add(gr)
	}
	log.Info("fitted rules", "groups", len(opts.Groups), "train", train[0].Rows(), "test", test[0].Rows())
	return res, nil
}

// FitFile runs Fit and saves the rules to a sidecar at path.
func FitFile(ctx context.Context, opts Options, path string) (*Result, error) {
	res, err := Fit(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := preprocessing.Save(ctx, path, res.Rules); err != nil {
		return nil, err
	}
	logging.With("training").Info("saved rules", "path", path)
	return res, nil
}

func layout(d partition.Data) preprocessing.Layout {
	return preprocessing.Layout{Data: d.X, Rows: d.Rows(), Slots: d.Slots, Width: d.Vars}
}
