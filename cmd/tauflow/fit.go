package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"tauflow/internal/pipeline"
	"tauflow/internal/spec"
	"tauflow/internal/training"
	"tauflow/store/shard"
)

var fitOpts struct {
	prong        string
	groups       []string
	override     string
	ptColumn     string
	testFraction float64
	seed         int64
	out          string
}

// fitCmd fits preprocessing rules on a signal and a background sample.
var fitCmd = &cobra.Command{
	Use:   "fit <signal> <background>",
	Short: "Fit preprocessing rules and write the sidecar",
	Long: `Load every feature group from the signal and background tables, flatten the
background pt spectrum onto the signal one, split train/test with a fixed seed,
fit the offset/scale rules on the training part and save them.`,
	Args: cobra.ExactArgs(2),
	RunE: runFit,
}

func init() {
	f := fitCmd.Flags()
	f.StringVar(&fitOpts.prong, "prong", "", "Prong category (1p or 3p); inferred from the signal path when empty")
	f.StringSliceVar(&fitOpts.groups, "groups", nil, "Feature groups to fit (default: the prong's groups)")
	f.StringVar(&fitOpts.override, "var-file", "", "YAML file overriding variable groups")
	f.StringVar(&fitOpts.ptColumn, "pt-column", "TauJets/pt", "Column used for pt reweighting")
	f.Float64Var(&fitOpts.testFraction, "test-fraction", 0.1, "Fraction of rows held out for testing")
	f.Int64Var(&fitOpts.seed, "seed", 0, "Shuffle seed (0 = default seed)")
	f.StringVarP(&fitOpts.out, "output", "o", "preproc.db", "Preprocessing sidecar to write")
}

func runFit(cmd *cobra.Command, args []string) (err error) {
	var cfg spec.File
	cfg.Data.Paths, cfg.Data.Prong = args[:1], fitOpts.prong
	cfg.Variables.Groups, cfg.Variables.Override = fitOpts.groups, fitOpts.override
	groups, err := pipeline.ResolveGroups(cfg)
	if err != nil {
		return err
	}

	sig, err := shard.Open(args[0])
	if err != nil {
		return fmt.Errorf("signal: %w", err)
	}
	defer func() { err = errors.Join(err, sig.Close()) }()
	bkg, err := shard.Open(args[1])
	if err != nil {
		return fmt.Errorf("background: %w", err)
	}
	defer func() { err = errors.Join(err, bkg.Close()) }()

	_, err = training.FitFile(cmd.Context(), training.Options{
		Signal:       sig,
		Background:   bkg,
		Groups:       groups,
		PtColumn:     fitOpts.ptColumn,
		TestFraction: fitOpts.testFraction,
		Seed:         fitOpts.seed,
	}, fitOpts.out)
	return err
}
