package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tauflow/internal/preprocessing"
)

var varspecOpts struct {
	scalar    string
	sequences []string
	names     []string
	output    string
	labels    []string
	out       string
}

var varspecCmd = &cobra.Command{
	Use:   "varspec <rules.db>",
	Short: "Export preprocessing rules as an lwtnn variable specification",
	Args:  cobra.ExactArgs(1),
	RunE:  runVarspec,
}

func init() {
	f := varspecCmd.Flags()
	f.StringVar(&varspecOpts.scalar, "scalar", "", "Rule group of the scalar input")
	f.StringSliceVar(&varspecOpts.sequences, "sequences", []string{"tracks", "clusters"}, "Rule groups of the input sequences, in model order")
	f.StringSliceVar(&varspecOpts.names, "name", nil, "Input name per rule group as group=name")
	f.StringVar(&varspecOpts.output, "output-name", "rnnid_output", "Name of the model output")
	f.StringSliceVar(&varspecOpts.labels, "labels", []string{"sig_prob"}, "Output labels")
	f.StringVarP(&varspecOpts.out, "out", "o", "", "Write to this file instead of stdout")
}

func runVarspec(cmd *cobra.Command, args []string) error {
	rules, err := preprocessing.Load(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	names := map[string]string{}
	for _, kv := range varspecOpts.names {
		group, name, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("varspec: --name %q is not group=name", kv)
		}
		names[group] = name
	}

	w := cmd.OutOrStdout()
	if varspecOpts.out != "" {
		f, err := os.Create(varspecOpts.out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return preprocessing.ExportVarSpec(w, rules, preprocessing.VarSpecOptions{
		Scalar:     varspecOpts.scalar,
		Sequences:  varspecOpts.sequences,
		Names:      names,
		OutputName: varspecOpts.output,
		Labels:     varspecOpts.labels,
	})
}
