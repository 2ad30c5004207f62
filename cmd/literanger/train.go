package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cran/literanger/forest"
	"github.com/cran/literanger/serialize"
)

type trainCmdConfig struct {
	*rootCmdConfig

	dataPath  string
	modelPath string

	treeType string // "" = auto-detect from the response column

	nTree             int
	splitRule         string
	maxDepth          int
	minSplitNSample   int
	minLeafNSample    int
	nTry              int
	replace           bool
	sampleFraction    []float64
	namesOfUnordered  []string
	namesOfAlwaysDraw []string
	nRandomSplit      int
	alpha             float64
	minProp           float64
	seed              uint64
	saveMemory        bool
	nThread           int
	computeOOBError   bool
}

func trainCmd(rootConfig *rootCmdConfig) *cobra.Command {
	c := &trainCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "train",
		Short: "grow a random forest from a CSV training file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run()
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&c.dataPath, "data", "", "training CSV, response in column 1 (required)")
	flags.StringVar(&c.modelPath, "model", "", "output model path (required)")
	flags.StringVar(&c.treeType, "tree-type", "", "classification|regression (default: auto-detect)")
	flags.IntVar(&c.nTree, "trees", 500, "number of trees")
	flags.StringVar(&c.splitRule, "split-rule", "", "gini|variance|extratrees|maxstat|beta|hellinger (default: gini/variance)")
	flags.IntVar(&c.maxDepth, "max-depth", 0, "0 = unlimited")
	flags.IntVar(&c.minSplitNSample, "min-split", 0, "0 = default (2 classification, 5 regression)")
	flags.IntVar(&c.minLeafNSample, "min-leaf", 0, "0 = default (1)")
	flags.IntVar(&c.nTry, "n-try", 0, "0 = default (floor(sqrt(n_predictor)))")
	flags.BoolVar(&c.replace, "replace", true, "sample with replacement")
	flags.Float64SliceVar(&c.sampleFraction, "sample-fraction", nil, "per-class sample fraction (classification only); default [1.0]")
	flags.StringSliceVar(&c.namesOfUnordered, "unordered", nil, "predictor names to treat as unordered/categorical")
	flags.StringSliceVar(&c.namesOfAlwaysDraw, "always-draw", nil, "predictor names always included in n_try")
	flags.IntVar(&c.nRandomSplit, "n-random-split", 1, "EXTRATREES candidate cut points per predictor")
	flags.Float64Var(&c.alpha, "alpha", 0.5, "MAXSTAT significance level")
	flags.Float64Var(&c.minProp, "min-prop", 0.1, "MAXSTAT minimum node proportion")
	flags.Uint64Var(&c.seed, "seed", 0, "0 = non-deterministic")
	flags.BoolVar(&c.saveMemory, "save-memory", false, "skip the predictor index, trading speed for memory")
	flags.IntVar(&c.nThread, "threads", 0, "0 = GOMAXPROCS")
	flags.BoolVar(&c.computeOOBError, "oob", true, "compute out-of-bag error")
	return cmd
}

func (c *trainCmdConfig) run() error {
	stop := c.maybeStartProfile()
	defer stop()

	f, err := os.Open(c.dataPath)
	if err != nil {
		return err
	}
	defer f.Close()

	parsed, err := parseTrainingCSV(f)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", c.dataPath, err)
	}
	if c.treeType == "classification" {
		parsed.isRegression = false
		parsed.labels = uniqueSorted(parsed.yClf)
	} else if c.treeType == "regression" {
		parsed.isRegression = true
	}

	x, y := parsed.toMatrices()

	cfg := forest.Config{
		NTree:             c.nTree,
		PredictorNames:    parsed.varNames,
		NamesOfUnordered:  c.namesOfUnordered,
		NamesOfAlwaysDraw: c.namesOfAlwaysDraw,
		Replace:           c.replace,
		SampleFraction:    c.sampleFraction,
		NTry:              c.nTry,
		SplitRuleName:     c.splitRule,
		MaxDepth:          c.maxDepth,
		MinSplitNSample:   c.minSplitNSample,
		MinLeafNSample:    c.minLeafNSample,
		NRandomSplit:      c.nRandomSplit,
		Alpha:             c.alpha,
		MinProp:           c.minProp,
		Seed:              c.seed,
		SaveMemory:        c.saveMemory,
		NThread:           c.nThread,
		Verbose:           c.rootCmdConfig.verbose,
		ComputeOOBError:   c.computeOOBError,
	}
	if cfg.Verbose {
		cfg.Printer = &forest.WriterPrinter{W: os.Stderr}
	}
	if c.splitRule != "extratrees" {
		cfg.NRandomSplit = 0
	}

	var out interface{}
	if parsed.isRegression {
		cfg.TreeType = forest.Regression
		if cfg.SplitRuleName == "" {
			cfg.SplitRuleName = "variance"
		}
		reg, err := forest.PlantRegression(x, y, cfg)
		if err != nil {
			return err
		}
		reportForest(cfg.Verbose, "regression", len(reg.Trees), reg.OOBError)
		out = reg
	} else {
		cfg.TreeType = forest.Classification
		if cfg.SplitRuleName == "" {
			cfg.SplitRuleName = "gini"
		}
		clf, err := forest.PlantClassification(x, y, cfg)
		if err != nil {
			return err
		}
		reportForest(cfg.Verbose, "classification", len(clf.Trees), clf.OOBError)
		out = clf
		if err := writeLabels(c.modelPath, parsed.labels); err != nil {
			return err
		}
	}

	modelFile, err := os.Create(c.modelPath)
	if err != nil {
		return err
	}
	defer modelFile.Close()
	return serialize.Save(modelFile, out)
}

func reportForest(verbose bool, kind string, nTree int, oobError *float64) {
	if !verbose {
		return
	}
	if oobError != nil {
		fmt.Fprintf(os.Stderr, "grew %d %s trees, oob_error=%.4f\n", nTree, kind, *oobError)
	} else {
		fmt.Fprintf(os.Stderr, "grew %d %s trees\n", nTree, kind)
	}
}

// writeLabels persists the sorted unique class labels next to the model,
// one per line, line i being the label coded as response value i, so
// predict can map numeric codes back to the strings the training CSV used.
func writeLabels(modelPath string, labels []string) error {
	if len(labels) == 0 {
		return nil
	}
	return os.WriteFile(labelsPath(modelPath), []byte(strings.Join(labels, "\n")+"\n"), 0644)
}

func labelsPath(modelPath string) string {
	return modelPath + ".labels"
}

func readLabels(modelPath string) []string {
	data, err := os.ReadFile(labelsPath(modelPath))
	if err != nil {
		return nil
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil
	}
	return lines
}

func labelFor(labels []string, code float64) string {
	i := int(code)
	if i >= 0 && i < len(labels) {
		return labels[i]
	}
	return strconv.FormatFloat(code, 'g', -1, 64)
}
