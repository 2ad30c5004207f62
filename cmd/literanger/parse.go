package main

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"

	"github.com/cran/literanger/data"
)

// parsedInput mirrors the teacher's parse.go shape (auto-detect regression
// vs classification by trying float parses on the first column until one
// fails), generalized to also produce the predictor/response data.Matrix
// pair the forest package consumes.
type parsedInput struct {
	isRegression bool
	predictorX   []float64 // row-major, nRow*nCol
	nRow, nCol   int
	yReg         []float64
	yClf         []string
	labels       []string // sorted unique class labels, classification only
	varNames     []string
}

// parseTrainingCSV reads a CSV where column 0 is the response and the
// remaining columns are numeric predictors, detecting a header row the
// same way the teacher does: the first row is a header iff any of its
// non-response cells fails to parse as a float.
func parseTrainingCSV(r io.Reader) (*parsedInput, error) {
	reader := csv.NewReader(r)
	p := &parsedInput{isRegression: true}

	row, err := reader.Read()
	if err != nil {
		return nil, err
	}

	if names, ok := asHeader(row); ok {
		p.varNames = names
	} else {
		for i := range row[1:] {
			p.varNames = append(p.varNames, defaultVarName(i))
		}
		if err := p.appendRow(row); err != nil {
			return nil, err
		}
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if err := p.appendRow(row); err != nil {
			return nil, err
		}
	}

	if p.isRegression {
		p.yClf = nil
	} else {
		p.yReg = nil
		p.labels = uniqueSorted(p.yClf)
	}
	return p, nil
}

func (p *parsedInput) appendRow(row []string) error {
	xi := make([]float64, len(row)-1)
	for i, val := range row[1:] {
		fv, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return err
		}
		xi[i] = fv
	}
	p.predictorX = append(p.predictorX, xi...)
	p.nRow++
	p.nCol = len(xi)

	if p.isRegression {
		yi, err := strconv.ParseFloat(row[0], 64)
		if err != nil {
			p.isRegression = false
		} else {
			p.yReg = append(p.yReg, yi)
		}
	}
	p.yClf = append(p.yClf, row[0])
	return nil
}

// parsePredictCSV reads a CSV of predictors only (no response column),
// used by the predict subcommand.
func parsePredictCSV(r io.Reader) (x []float64, nRow, nCol int, varNames []string, err error) {
	reader := csv.NewReader(r)
	row, err := reader.Read()
	if err != nil {
		return nil, 0, 0, nil, err
	}

	if names, ok := asHeaderAllCols(row); ok {
		varNames = names
	} else {
		for i := range row {
			varNames = append(varNames, defaultVarName(i))
		}
		xi, err := parseFloatRow(row)
		if err != nil {
			return nil, 0, 0, nil, err
		}
		x = append(x, xi...)
		nRow++
		nCol = len(xi)
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, 0, nil, err
		}
		xi, err := parseFloatRow(row)
		if err != nil {
			return nil, 0, 0, nil, err
		}
		x = append(x, xi...)
		nRow++
		nCol = len(xi)
	}
	return x, nRow, nCol, varNames, nil
}

func parseFloatRow(row []string) ([]float64, error) {
	xi := make([]float64, len(row))
	for i, val := range row {
		fv, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, err
		}
		xi[i] = fv
	}
	return xi, nil
}

// asHeader reports whether row (response column + predictors) is a header,
// i.e. any predictor cell fails to parse as a float.
func asHeader(row []string) ([]string, bool) {
	if len(row) <= 1 {
		return nil, false
	}
	for _, val := range row[1:] {
		if _, err := strconv.ParseFloat(val, 64); err != nil {
			return row[1:], true
		}
	}
	return nil, false
}

func asHeaderAllCols(row []string) ([]string, bool) {
	for _, val := range row {
		if _, err := strconv.ParseFloat(val, 64); err != nil {
			return row, true
		}
	}
	return nil, false
}

func defaultVarName(i int) string {
	return "X" + strconv.Itoa(i+1)
}

func uniqueSorted(ss []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range ss {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// toMatrices converts a parsedInput into the predictor/response data.Matrix
// pair Plant expects. For classification, each label is mapped to its
// sorted position in p.labels; the caller is responsible for persisting
// p.labels alongside the model so predictions can be mapped back.
func (p *parsedInput) toMatrices() (x, y data.Matrix) {
	x = data.NewDense(p.nRow, p.nCol, p.predictorX)
	if p.isRegression {
		return x, data.NewDense(p.nRow, 1, p.yReg)
	}
	index := make(map[string]float64, len(p.labels))
	for i, label := range p.labels {
		index[label] = float64(i)
	}
	yCodes := make([]float64, p.nRow)
	for i, label := range p.yClf {
		yCodes[i] = index[label]
	}
	return x, data.NewDense(p.nRow, 1, yCodes)
}
