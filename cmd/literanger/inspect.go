package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cran/literanger/forest"
)

type inspectCmdConfig struct {
	*rootCmdConfig

	modelPath string
}

func inspectCmd(rootConfig *rootCmdConfig) *cobra.Command {
	c := &inspectCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "print a saved model's metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run()
		},
	}
	cmd.Flags().StringVar(&c.modelPath, "model", "", "saved model path (required)")
	return cmd
}

func (c *inspectCmdConfig) run() error {
	loaded, err := loadModel(c.modelPath)
	if err != nil {
		return err
	}

	switch f := loaded.(type) {
	case *forest.Classification:
		fmt.Fprintf(os.Stdout, "type: classification\n")
		fmt.Fprintf(os.Stdout, "n_tree: %d\n", len(f.Trees))
		fmt.Fprintf(os.Stdout, "n_predictor: %d\n", f.NPredictor)
		fmt.Fprintf(os.Stdout, "predictor_names: %v\n", f.PredictorNames)
		fmt.Fprintf(os.Stdout, "response_values: %v\n", f.ResponseValues)
		fmt.Fprintf(os.Stdout, "split_rule: %s\n", f.SplitRule)
		fmt.Fprintf(os.Stdout, "max_depth: %d\n", f.MaxDepth)
		fmt.Fprintf(os.Stdout, "min_split_n_sample: %d\n", f.MinSplitNSample)
		fmt.Fprintf(os.Stdout, "min_leaf_n_sample: %d\n", f.MinLeafNSample)
		fmt.Fprintf(os.Stdout, "seed: %d\n", f.Seed)
		if f.OOBError != nil {
			fmt.Fprintf(os.Stdout, "oob_error: %.4f\n", *f.OOBError)
		} else {
			fmt.Fprintf(os.Stdout, "oob_error: null\n")
		}
		if labels := readLabels(c.modelPath); labels != nil {
			fmt.Fprintf(os.Stdout, "labels: %v\n", labels)
		}
	case *forest.Regression:
		fmt.Fprintf(os.Stdout, "type: regression\n")
		fmt.Fprintf(os.Stdout, "n_tree: %d\n", len(f.Trees))
		fmt.Fprintf(os.Stdout, "n_predictor: %d\n", f.NPredictor)
		fmt.Fprintf(os.Stdout, "predictor_names: %v\n", f.PredictorNames)
		fmt.Fprintf(os.Stdout, "split_rule: %s\n", f.SplitRule)
		fmt.Fprintf(os.Stdout, "max_depth: %d\n", f.MaxDepth)
		fmt.Fprintf(os.Stdout, "min_split_n_sample: %d\n", f.MinSplitNSample)
		fmt.Fprintf(os.Stdout, "min_leaf_n_sample: %d\n", f.MinLeafNSample)
		fmt.Fprintf(os.Stdout, "seed: %d\n", f.Seed)
		if f.OOBError != nil {
			fmt.Fprintf(os.Stdout, "oob_error: %.4f\n", *f.OOBError)
		} else {
			fmt.Fprintf(os.Stdout, "oob_error: null\n")
		}
	default:
		return fmt.Errorf("inspect: unrecognized model type %T", loaded)
	}
	return nil
}
