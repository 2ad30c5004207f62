// Package serialize implements the binary envelope from §4.7: a single
// versioned, length-prefixed, endian-explicit byte stream holding forest
// metadata followed by the polymorphic forest body (classification vs
// regression, resolved by a type-tag string rather than gob's own type
// registry, matching §4.7's literal "polymorphism is resolved by a type
// tag string").
package serialize

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"strings"

	"github.com/cran/literanger/forest"
	"github.com/cran/literanger/literangererr"
	"github.com/cran/literanger/tree"
)

// magic identifies the envelope format; version allows the layout to grow
// without breaking readers of an older version.
const (
	magic   = "LITERANGER"
	version = uint32(1)
)

var byteOrder = binary.LittleEndian

// Save writes forest f (either *forest.Classification or
// *forest.Regression) to w in the versioned envelope format.
func Save(w io.Writer, f interface{}) error {
	bw := bufio.NewWriter(w)
	if err := writeString(bw, magic); err != nil {
		return err
	}
	if err := writeUint32(bw, version); err != nil {
		return err
	}

	switch v := f.(type) {
	case *forest.Classification:
		if err := writeString(bw, "classification"); err != nil {
			return err
		}
		if err := writeClassification(bw, v); err != nil {
			return err
		}
	case *forest.Regression:
		if err := writeString(bw, "regression"); err != nil {
			return err
		}
		if err := writeRegression(bw, v); err != nil {
			return err
		}
	default:
		return literangererr.InvalidArgumentf("serialize: unsupported forest type %T", f)
	}
	return bw.Flush()
}

// Load reads an envelope from r and returns either a *forest.Classification
// or a *forest.Regression, matching the type tag recorded by Save.
func Load(r io.Reader) (interface{}, error) {
	br := bufio.NewReader(r)

	got, err := readString(br)
	if err != nil {
		return nil, err
	}
	if got != magic {
		return nil, literangererr.DomainErrorf("serialize: bad magic %q", got)
	}
	v, err := readUint32(br)
	if err != nil {
		return nil, err
	}
	if v != version {
		return nil, literangererr.DomainErrorf("serialize: unsupported envelope version %d", v)
	}

	tag, err := readString(br)
	if err != nil {
		return nil, err
	}
	switch tag {
	case "classification":
		return readClassification(br)
	case "regression":
		return readRegression(br)
	default:
		return nil, literangererr.DomainErrorf("serialize: unknown forest type tag %q", tag)
	}
}

func writeClassification(w io.Writer, f *forest.Classification) error {
	if err := writeMetadata(w, metadataOf(f)); err != nil {
		return err
	}
	if err := writeBool(w, f.SaveMemory); err != nil {
		return err
	}
	if err := writeInt64(w, int64(f.NPredictor)); err != nil {
		return err
	}
	if err := writeBoolSlice(w, f.IsOrdered); err != nil {
		return err
	}
	if err := writeStringSlice(w, f.PredictorNames); err != nil {
		return err
	}
	if err := writeFloat64Slice(w, f.ResponseValues); err != nil {
		return err
	}
	if err := writeInt64(w, int64(len(f.Trees))); err != nil {
		return err
	}
	for _, t := range f.Trees {
		if err := writeClassificationTree(w, t); err != nil {
			return err
		}
	}
	return nil
}

func readClassification(r io.Reader) (*forest.Classification, error) {
	md, err := readMetadata(r)
	if err != nil {
		return nil, err
	}
	saveMemory, err := readBool(r)
	if err != nil {
		return nil, err
	}
	nPredictor, err := readInt64(r)
	if err != nil {
		return nil, err
	}
	isOrdered, err := readBoolSlice(r)
	if err != nil {
		return nil, err
	}
	predictorNames, err := readStringSlice(r)
	if err != nil {
		return nil, err
	}
	responseValues, err := readFloat64Slice(r)
	if err != nil {
		return nil, err
	}
	nTree, err := readInt64(r)
	if err != nil {
		return nil, err
	}
	trees := make([]*tree.Classification, nTree)
	for i := range trees {
		trees[i], err = readClassificationTree(r)
		if err != nil {
			return nil, err
		}
	}

	f := &forest.Classification{
		NPredictor:      int(nPredictor),
		IsOrdered:       isOrdered,
		PredictorNames:  predictorNames,
		ResponseValues:  responseValues,
		Trees:           trees,
		SaveMemory:      saveMemory,
		NTry:            md.nTry,
		SplitRule:       md.splitRule,
		MaxDepth:        md.maxDepth,
		MinSplitNSample: md.minSplitNSample,
		MinLeafNSample:  md.minLeafNSample,
		NRandomSplit:    md.nRandomSplit,
		Seed:            md.seed,
		OOBError:        md.oobError,
	}
	return f, nil
}

func writeRegression(w io.Writer, f *forest.Regression) error {
	if err := writeMetadata(w, metadataOf(f)); err != nil {
		return err
	}
	if err := writeBool(w, f.SaveMemory); err != nil {
		return err
	}
	if err := writeInt64(w, int64(f.NPredictor)); err != nil {
		return err
	}
	if err := writeBoolSlice(w, f.IsOrdered); err != nil {
		return err
	}
	if err := writeStringSlice(w, f.PredictorNames); err != nil {
		return err
	}
	if err := writeInt64(w, int64(len(f.Trees))); err != nil {
		return err
	}
	for _, t := range f.Trees {
		if err := writeRegressionTree(w, t); err != nil {
			return err
		}
	}
	return nil
}

func readRegression(r io.Reader) (*forest.Regression, error) {
	md, err := readMetadata(r)
	if err != nil {
		return nil, err
	}
	saveMemory, err := readBool(r)
	if err != nil {
		return nil, err
	}
	nPredictor, err := readInt64(r)
	if err != nil {
		return nil, err
	}
	isOrdered, err := readBoolSlice(r)
	if err != nil {
		return nil, err
	}
	predictorNames, err := readStringSlice(r)
	if err != nil {
		return nil, err
	}
	nTree, err := readInt64(r)
	if err != nil {
		return nil, err
	}
	trees := make([]*tree.Regression, nTree)
	for i := range trees {
		trees[i], err = readRegressionTree(r)
		if err != nil {
			return nil, err
		}
	}

	f := &forest.Regression{
		NPredictor:      int(nPredictor),
		IsOrdered:       isOrdered,
		PredictorNames:  predictorNames,
		Trees:           trees,
		SaveMemory:      saveMemory,
		NTry:            md.nTry,
		SplitRule:       md.splitRule,
		MaxDepth:        md.maxDepth,
		MinSplitNSample: md.minSplitNSample,
		MinLeafNSample:  md.minLeafNSample,
		NRandomSplit:    md.nRandomSplit,
		Seed:            md.seed,
		OOBError:        md.oobError,
	}
	return f, nil
}

// metadata mirrors §4.7's metadata block; it is shared verbatim by
// classification and regression, with response_values carried separately
// (classification only) in the forest body itself.
type metadata struct {
	nTry            int
	splitRule       tree.SplitRule
	maxDepth        int
	minSplitNSample int
	minLeafNSample  int
	seed            uint64
	oobError        *float64
	nRandomSplit    int
}

func metadataOf(f interface{}) metadata {
	switch v := f.(type) {
	case *forest.Classification:
		return metadata{
			nTry: v.NTry, splitRule: v.SplitRule, maxDepth: v.MaxDepth,
			minSplitNSample: v.MinSplitNSample, minLeafNSample: v.MinLeafNSample,
			seed: v.Seed, oobError: v.OOBError, nRandomSplit: v.NRandomSplit,
		}
	case *forest.Regression:
		return metadata{
			nTry: v.NTry, splitRule: v.SplitRule, maxDepth: v.MaxDepth,
			minSplitNSample: v.MinSplitNSample, minLeafNSample: v.MinLeafNSample,
			seed: v.Seed, oobError: v.OOBError, nRandomSplit: v.NRandomSplit,
		}
	default:
		return metadata{}
	}
}

func writeMetadata(w io.Writer, md metadata) error {
	if err := writeInt64(w, int64(md.nTry)); err != nil {
		return err
	}
	if err := writeString(w, md.splitRule.String()); err != nil {
		return err
	}
	if err := writeInt64(w, int64(md.maxDepth)); err != nil {
		return err
	}
	if err := writeInt64(w, int64(md.minSplitNSample)); err != nil {
		return err
	}
	if err := writeInt64(w, int64(md.minLeafNSample)); err != nil {
		return err
	}
	if err := writeUint64(w, md.seed); err != nil {
		return err
	}
	hasOOB := md.oobError != nil
	if err := writeBool(w, hasOOB); err != nil {
		return err
	}
	if hasOOB {
		if err := writeFloat64(w, *md.oobError); err != nil {
			return err
		}
	}
	return writeInt64(w, int64(md.nRandomSplit))
}

func readMetadata(r io.Reader) (metadata, error) {
	var md metadata
	nTry, err := readInt64(r)
	if err != nil {
		return md, err
	}
	md.nTry = int(nTry)

	ruleName, err := readString(r)
	if err != nil {
		return md, err
	}
	md.splitRule, err = tree.ParseSplitRule(splitRuleInputName(ruleName))
	if err != nil {
		return md, err
	}

	maxDepth, err := readInt64(r)
	if err != nil {
		return md, err
	}
	md.maxDepth = int(maxDepth)

	minSplit, err := readInt64(r)
	if err != nil {
		return md, err
	}
	md.minSplitNSample = int(minSplit)

	minLeaf, err := readInt64(r)
	if err != nil {
		return md, err
	}
	md.minLeafNSample = int(minLeaf)

	md.seed, err = readUint64(r)
	if err != nil {
		return md, err
	}

	hasOOB, err := readBool(r)
	if err != nil {
		return md, err
	}
	if hasOOB {
		v, err := readFloat64(r)
		if err != nil {
			return md, err
		}
		md.oobError = &v
	}

	nRandomSplit, err := readInt64(r)
	if err != nil {
		return md, err
	}
	md.nRandomSplit = int(nRandomSplit)

	return md, nil
}

// splitRuleInputName maps a SplitRule.String() output back to one of the
// external, case-sensitive strings tree.ParseSplitRule accepts.
func splitRuleInputName(name string) string {
	if name == "logrank" {
		return "variance"
	}
	return name
}

func writeClassificationTree(w io.Writer, t *tree.Classification) error {
	if err := writeBaseTree(w, &t.Base); err != nil {
		return err
	}
	if err := writeInt64(w, int64(t.NResponseValues)); err != nil {
		return err
	}
	if err := writeFloat64Slice(w, t.ResponseWeights); err != nil {
		return err
	}
	if err := writeInt64(w, int64(t.NNode())); err != nil {
		return err
	}
	for i := 0; i < t.NNode(); i++ {
		if err := writeInt32Slice(w, t.LeafResponseKeys(i)); err != nil {
			return err
		}
	}
	return nil
}

func readClassificationTree(r io.Reader) (*tree.Classification, error) {
	base, err := readBaseTree(r)
	if err != nil {
		return nil, err
	}
	nResponseValues, err := readInt64(r)
	if err != nil {
		return nil, err
	}
	responseWeights, err := readFloat64Slice(r)
	if err != nil {
		return nil, err
	}
	nNode, err := readInt64(r)
	if err != nil {
		return nil, err
	}
	t := tree.NewClassification(base.NPredictor, int(nResponseValues), responseWeights)
	t.Base = base
	for i := 0; i < int(nNode); i++ {
		keys, err := readInt32SliceAsInt(r)
		if err != nil {
			return nil, err
		}
		if len(keys) > 0 || base.IsLeaf(i) {
			t.SetLeafResponseKeys(i, keys)
		}
	}
	return t, nil
}

func writeRegressionTree(w io.Writer, t *tree.Regression) error {
	if err := writeBaseTree(w, &t.Base); err != nil {
		return err
	}
	if err := writeInt64(w, int64(t.NNode())); err != nil {
		return err
	}
	for i := 0; i < t.NNode(); i++ {
		if err := writeFloat64Slice(w, t.LeafResponseValues(i)); err != nil {
			return err
		}
	}
	return nil
}

func readRegressionTree(r io.Reader) (*tree.Regression, error) {
	base, err := readBaseTree(r)
	if err != nil {
		return nil, err
	}
	nNode, err := readInt64(r)
	if err != nil {
		return nil, err
	}
	t := tree.NewRegression(base.NPredictor)
	t.Base = base
	for i := 0; i < int(nNode); i++ {
		values, err := readFloat64Slice(r)
		if err != nil {
			return nil, err
		}
		if len(values) > 0 || base.IsLeaf(i) {
			t.SetLeafResponseValues(i, values)
		}
	}
	return t, nil
}

func writeBaseTree(w io.Writer, b *tree.Base) error {
	if err := writeInt64(w, int64(b.NPredictor)); err != nil {
		return err
	}
	n := b.NNode()
	if err := writeInt64(w, int64(n)); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := writeInt64(w, int64(b.SplitKey[i])); err != nil {
			return err
		}
		if err := writeSplitValue(w, b.SplitVal[i]); err != nil {
			return err
		}
		if err := writeInt64(w, int64(b.LeftChild[i])); err != nil {
			return err
		}
		if err := writeInt64(w, int64(b.RightChild[i])); err != nil {
			return err
		}
	}
	return nil
}

func readBaseTree(r io.Reader) (tree.Base, error) {
	nPredictor, err := readInt64(r)
	if err != nil {
		return tree.Base{}, err
	}
	n, err := readInt64(r)
	if err != nil {
		return tree.Base{}, err
	}
	b := tree.NewBase(int(nPredictor))
	for i := 0; i < int(n); i++ {
		splitKey, err := readInt64(r)
		if err != nil {
			return tree.Base{}, err
		}
		splitVal, err := readSplitValue(r)
		if err != nil {
			return tree.Base{}, err
		}
		left, err := readInt64(r)
		if err != nil {
			return tree.Base{}, err
		}
		right, err := readInt64(r)
		if err != nil {
			return tree.Base{}, err
		}
		b.AppendNode(int(splitKey), splitVal, int(left), int(right))
	}
	return b, nil
}

func writeSplitValue(w io.Writer, s tree.SplitValue) error {
	if err := writeBool(w, s.IsOrdered()); err != nil {
		return err
	}
	if err := writeFloat64(w, s.ThresholdValue()); err != nil {
		return err
	}
	return writeUint64(w, s.PartitionMask())
}

func readSplitValue(r io.Reader) (tree.SplitValue, error) {
	isOrdered, err := readBool(r)
	if err != nil {
		return tree.SplitValue{}, err
	}
	threshold, err := readFloat64(r)
	if err != nil {
		return tree.SplitValue{}, err
	}
	mask, err := readUint64(r)
	if err != nil {
		return tree.SplitValue{}, err
	}
	if isOrdered {
		return tree.Threshold(threshold), nil
	}
	return tree.Partition(mask), nil
}

// --- low-level length-prefixed, endian-explicit primitives ---

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	byteOrder.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return byteOrder.Uint32(buf[:]), nil
}

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	byteOrder.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return byteOrder.Uint64(buf[:]), nil
}

func writeInt64(w io.Writer, v int64) error {
	return writeUint64(w, uint64(v))
}

func readInt64(r io.Reader) (int64, error) {
	v, err := readUint64(r)
	return int64(v), err
}

func writeFloat64(w io.Writer, v float64) error {
	return writeUint64(w, math.Float64bits(v))
}

func readFloat64(r io.Reader) (float64, error) {
	bits, err := readUint64(r)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}

func writeBool(w io.Writer, v bool) error {
	var b [1]byte
	if v {
		b[0] = 1
	}
	_, err := w.Write(b[:])
	return err
}

func readBool(r io.Reader) (bool, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

func writeString(w io.Writer, s string) error {
	if err := writeInt64(w, int64(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	n, err := readInt64(r)
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", literangererr.DomainErrorf("serialize: negative string length %d", n)
	}
	var sb strings.Builder
	if _, err := io.CopyN(&sb, r, n); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func writeStringSlice(w io.Writer, ss []string) error {
	if err := writeInt64(w, int64(len(ss))); err != nil {
		return err
	}
	for _, s := range ss {
		if err := writeString(w, s); err != nil {
			return err
		}
	}
	return nil
}

func readStringSlice(r io.Reader) ([]string, error) {
	n, err := readInt64(r)
	if err != nil {
		return nil, err
	}
	ss := make([]string, n)
	for i := range ss {
		ss[i], err = readString(r)
		if err != nil {
			return nil, err
		}
	}
	return ss, nil
}

func writeBoolSlice(w io.Writer, bs []bool) error {
	if err := writeInt64(w, int64(len(bs))); err != nil {
		return err
	}
	for _, b := range bs {
		if err := writeBool(w, b); err != nil {
			return err
		}
	}
	return nil
}

func readBoolSlice(r io.Reader) ([]bool, error) {
	n, err := readInt64(r)
	if err != nil {
		return nil, err
	}
	bs := make([]bool, n)
	for i := range bs {
		bs[i], err = readBool(r)
		if err != nil {
			return nil, err
		}
	}
	return bs, nil
}

func writeFloat64Slice(w io.Writer, fs []float64) error {
	if err := writeInt64(w, int64(len(fs))); err != nil {
		return err
	}
	for _, f := range fs {
		if err := writeFloat64(w, f); err != nil {
			return err
		}
	}
	return nil
}

func readFloat64Slice(r io.Reader) ([]float64, error) {
	n, err := readInt64(r)
	if err != nil {
		return nil, err
	}
	fs := make([]float64, n)
	for i := range fs {
		fs[i], err = readFloat64(r)
		if err != nil {
			return nil, err
		}
	}
	return fs, nil
}

func writeInt32Slice(w io.Writer, is []int) error {
	if err := writeInt64(w, int64(len(is))); err != nil {
		return err
	}
	for _, v := range is {
		if err := writeInt64(w, int64(v)); err != nil {
			return err
		}
	}
	return nil
}

func readInt32SliceAsInt(r io.Reader) ([]int, error) {
	n, err := readInt64(r)
	if err != nil {
		return nil, err
	}
	is := make([]int, n)
	for i := range is {
		v, err := readInt64(r)
		if err != nil {
			return nil, err
		}
		is[i] = int(v)
	}
	return is, nil
}
