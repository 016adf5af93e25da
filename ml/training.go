package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"gradecast/schema"
)

type TrainConfig struct {
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	TestRatio       float64
	Seed            int64
}

// Metrics summarizes held-out evaluation of a training run.
type Metrics struct {
	Accuracy    float64            `json:"accuracy"`
	Precision   map[string]float64 `json:"precision"`
	Recall      map[string]float64 `json:"recall"`
	TrainRows   int                `json:"train_rows"`
	TestRows    int                `json:"test_rows"`
	ColumnCount int                `json:"column_count"`
}

// Train fits the full pipeline from labeled raw records: schema-driven
// expansion, scaler fit on the training split only, forest training, and
// held-out evaluation. The returned bundle is ready to serve.
func Train(records []schema.Record, labels []string, s *schema.Schema, cfg TrainConfig) (*Bundle, *Metrics, error) {
	if len(records) == 0 {
		return nil, nil, errors.New("train: no records")
	}
	if len(labels) != len(records) {
		return nil, nil, errors.New("train: records and labels size mismatch")
	}
	if cfg.TestRatio <= 0 || cfg.TestRatio >= 1 {
		cfg.TestRatio = 0.2
	}
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}

	classes := uniqueSorted(labels)
	if len(classes) < 2 {
		return nil, nil, errors.New("train: need at least two classes")
	}
	classIdx := make(map[string]int, len(classes))
	for i, class := range classes {
		classIdx[class] = i
	}

	columns := s.Columns()
	x := make([][]float64, len(records))
	y := make([]int, len(records))
	for i, rec := range records {
		expanded, err := expandRecord(s, rec)
		if err != nil {
			return nil, nil, fmt.Errorf("train: row %d: %w", i, err)
		}
		row := make([]float64, len(columns))
		for j, col := range columns {
			row[j] = expanded[col]
		}
		x[i] = row
		y[i] = classIdx[labels[i]]
	}

	trainIdx, testIdx := splitIndices(len(x), cfg.TestRatio, cfg.Seed)

	scaler := fitScaler(x, trainIdx, columns)
	scaled := make([][]float64, len(x))
	for i, row := range x {
		scaled[i] = applyScaler(row, columns, scaler)
	}

	trainX := pick(scaled, trainIdx)
	trainY := pickInts(y, trainIdx)
	testX := pick(scaled, testIdx)
	testY := pickInts(y, testIdx)

	forest, err := TrainForest(trainX, trainY, len(classes), ForestConfig{
		NEstimators:     cfg.NEstimators,
		MaxDepth:        cfg.MaxDepth,
		MinSamplesSplit: cfg.MinSamplesSplit,
		Seed:            cfg.Seed,
	})
	if err != nil {
		return nil, nil, err
	}

	metrics, err := evaluate(forest, testX, testY, classes)
	if err != nil {
		return nil, nil, err
	}
	metrics.TrainRows = len(trainX)
	metrics.TestRows = len(testX)
	metrics.ColumnCount = len(columns)

	levels := make(map[string][]string, len(s.Categorical))
	for _, f := range s.Categorical {
		levels[f.Name] = append([]string(nil), f.Levels...)
	}

	bundle := &Bundle{
		SchemaVersion: CurrentBundleVersion,
		TrainedAt:     time.Now().UTC(),
		Classes:       classes,
		FeatureNames:  columns,
		Scaler:        scaler,
		Levels:        levels,
		Forest:        forest,
	}
	if err := bundle.validate(s); err != nil {
		return nil, nil, err
	}
	return bundle, metrics, nil
}

// fitScaler computes per-column mean and population standard deviation on
// the training rows only. Zero-variance columns get scale 1 so they pass
// through unchanged instead of dividing by zero.
func fitScaler(x [][]float64, trainIdx []int, columns []string) map[string]ScalerStat {
	scaler := make(map[string]ScalerStat, len(columns))
	n := float64(len(trainIdx))
	for j, col := range columns {
		mean := 0.0
		for _, i := range trainIdx {
			mean += x[i][j]
		}
		mean /= n

		variance := 0.0
		for _, i := range trainIdx {
			d := x[i][j] - mean
			variance += d * d
		}
		scale := math.Sqrt(variance / n)
		if scale == 0 {
			scale = 1
		}
		scaler[col] = ScalerStat{Mean: mean, Scale: scale}
	}
	return scaler
}

func applyScaler(row []float64, columns []string, scaler map[string]ScalerStat) []float64 {
	out := make([]float64, len(row))
	for j, col := range columns {
		stat := scaler[col]
		out[j] = (row[j] - stat.Mean) / stat.Scale
	}
	return out
}

func evaluate(forest *Forest, testX [][]float64, testY []int, classes []string) (*Metrics, error) {
	metrics := &Metrics{
		Precision: make(map[string]float64, len(classes)),
		Recall:    make(map[string]float64, len(classes)),
	}
	if len(testX) == 0 {
		return metrics, nil
	}

	correct := 0
	truePos := make([]float64, len(classes))
	predicted := make([]float64, len(classes))
	actual := make([]float64, len(classes))

	for i, row := range testX {
		class, _, err := forest.PredictClass(row)
		if err != nil {
			return nil, err
		}
		predicted[class]++
		actual[testY[i]]++
		if class == testY[i] {
			correct++
			truePos[class]++
		}
	}

	metrics.Accuracy = float64(correct) / float64(len(testX))
	for c, class := range classes {
		if predicted[c] > 0 {
			metrics.Precision[class] = truePos[c] / predicted[c]
		}
		if actual[c] > 0 {
			metrics.Recall[class] = truePos[c] / actual[c]
		}
	}
	return metrics, nil
}

func splitIndices(n int, testRatio float64, seed int64) (train, test []int) {
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	testRows := int(float64(n) * testRatio)
	if testRows < 1 && n > 1 {
		testRows = 1
	}
	return perm[testRows:], perm[:testRows]
}

func pick(x [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = x[j]
	}
	return out
}

func pickInts(y []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, j := range idx {
		out[i] = y[j]
	}
	return out
}

func uniqueSorted(labels []string) []string {
	seen := make(map[string]bool, len(labels))
	var out []string
	for _, label := range labels {
		if !seen[label] {
			seen[label] = true
			out = append(out, label)
		}
	}
	sort.Strings(out)
	return out
}
