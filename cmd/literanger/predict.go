package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cran/literanger/data"
	"github.com/cran/literanger/forest"
	"github.com/cran/literanger/serialize"
)

type predictCmdConfig struct {
	*rootCmdConfig

	modelPath string
	dataPath  string
	outPath   string
	mode      string
	seed      uint64
	nThread   int
}

func predictCmd(rootConfig *rootCmdConfig) *cobra.Command {
	c := &predictCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "predict with a saved forest over a CSV of new cases",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run()
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&c.modelPath, "model", "", "saved model path (required)")
	flags.StringVar(&c.dataPath, "data", "", "CSV of predictor columns, no response (required)")
	flags.StringVar(&c.outPath, "out", "", "output CSV path (default: stdout)")
	flags.StringVar(&c.mode, "type", "bagged", "bagged|inbag|nodes")
	flags.Uint64Var(&c.seed, "seed", 0, "0 = non-deterministic (inbag row assignment, leaf draws and tie-breaks)")
	flags.IntVar(&c.nThread, "threads", 0, "0 = GOMAXPROCS")
	return cmd
}

func (c *predictCmdConfig) run() error {
	stop := c.maybeStartProfile()
	defer stop()

	modelFile, err := os.Open(c.modelPath)
	if err != nil {
		return err
	}
	loaded, err := serialize.Load(modelFile)
	modelFile.Close()
	if err != nil {
		return err
	}

	mode, err := forest.ParsePredictionType(c.mode)
	if err != nil {
		return err
	}

	dataFile, err := os.Open(c.dataPath)
	if err != nil {
		return err
	}
	xFlat, nRow, nCol, _, err := parsePredictCSV(dataFile)
	dataFile.Close()
	if err != nil {
		return err
	}
	x := data.NewDense(nRow, nCol, xFlat)

	nThread := c.nThread
	if nThread <= 0 {
		nThread = runtime.GOMAXPROCS(0)
	}

	var result *forest.PredictResult
	var labels []string
	switch f := loaded.(type) {
	case *forest.Classification:
		labels = readLabels(c.modelPath)
		result, err = f.Predict(x, mode, c.seed, nThread)
	case *forest.Regression:
		result, err = f.Predict(x, mode, c.seed, nThread)
	default:
		return fmt.Errorf("predict: unrecognized model type %T", loaded)
	}
	if err != nil {
		return err
	}

	out := os.Stdout
	if c.outPath != "" {
		f, err := os.Create(c.outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return writePredictions(out, result, labels)
}

func writePredictions(w *os.File, result *forest.PredictResult, labels []string) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if result.Mode == forest.Nodes {
		header := make([]string, result.NTree)
		for t := range header {
			header[t] = "tree" + strconv.Itoa(t+1)
		}
		if err := writer.Write(header); err != nil {
			return err
		}
		row := make([]string, result.NTree)
		for r := 0; r < result.NRow; r++ {
			for t := 0; t < result.NTree; t++ {
				row[t] = strconv.Itoa(result.NodeIndex[r*result.NTree+t])
			}
			if err := writer.Write(row); err != nil {
				return err
			}
		}
		return nil
	}

	if err := writer.Write([]string{"prediction"}); err != nil {
		return err
	}
	for _, v := range result.Values {
		line := strconv.FormatFloat(v, 'g', -1, 64)
		if labels != nil {
			line = labelFor(labels, v)
		}
		if err := writer.Write([]string{line}); err != nil {
			return err
		}
	}
	return nil
}
