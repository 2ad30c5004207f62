package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cran/literanger/forest"
	"github.com/cran/literanger/serialize"
)

type mergeCmdConfig struct {
	*rootCmdConfig

	aPath string
	bPath string
	out   string
}

func mergeCmd(rootConfig *rootCmdConfig) *cobra.Command {
	c := &mergeCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "merge two compatible forests into one",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run()
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&c.aPath, "a", "", "first model path (required)")
	flags.StringVar(&c.bPath, "b", "", "second model path (required)")
	flags.StringVar(&c.out, "out", "", "merged model output path (required)")
	return cmd
}

func (c *mergeCmdConfig) run() error {
	a, err := loadModel(c.aPath)
	if err != nil {
		return err
	}
	b, err := loadModel(c.bPath)
	if err != nil {
		return err
	}

	var merged interface{}
	switch aModel := a.(type) {
	case *forest.Classification:
		bModel, ok := b.(*forest.Classification)
		if !ok {
			return fmt.Errorf("merge: %s is classification but %s is %T", c.aPath, c.bPath, b)
		}
		merged, err = forest.MergeClassification(aModel, bModel)
	case *forest.Regression:
		bModel, ok := b.(*forest.Regression)
		if !ok {
			return fmt.Errorf("merge: %s is regression but %s is %T", c.aPath, c.bPath, b)
		}
		merged, err = forest.MergeRegression(aModel, bModel)
	default:
		return fmt.Errorf("merge: unrecognized model type %T", a)
	}
	if err != nil {
		return err
	}

	if aLabels := readLabels(c.aPath); aLabels != nil {
		if err := writeLabels(c.out, aLabels); err != nil {
			return err
		}
	}

	outFile, err := os.Create(c.out)
	if err != nil {
		return err
	}
	defer outFile.Close()
	return serialize.Save(outFile, merged)
}

func loadModel(path string) (interface{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return serialize.Load(f)
}
