package ml

import (
	"errors"
	"math"
	"math/rand"
	"sync"
)

// Forest is a bagged ensemble of decision trees. Probabilities are the
// average of normalized leaf distributions across trees.
type Forest struct {
	NEstimators int             `json:"n_estimators"`
	MaxDepth    int             `json:"max_depth"`
	NClasses    int             `json:"n_classes"`
	Seed        int64           `json:"seed"`
	Trees       []*DecisionTree `json:"trees"`
}

type ForestConfig struct {
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MaxFeatures     int // 0 means sqrt of the feature count
	Seed            int64
}

// TrainForest fits the ensemble. Each tree gets its own bootstrap sample and
// its own seeded rand source so training is deterministic for a fixed seed
// and free of contention across goroutines.
func TrainForest(x [][]float64, y []int, nClasses int, cfg ForestConfig) (*Forest, error) {
	if len(x) == 0 {
		return nil, errors.New("forest: empty training set")
	}
	if len(y) != len(x) {
		return nil, errors.New("forest: features and labels size mismatch")
	}
	if nClasses <= 1 {
		return nil, errors.New("forest: need at least two classes")
	}
	if cfg.NEstimators <= 0 {
		cfg.NEstimators = 100
	}
	if cfg.MaxFeatures <= 0 {
		cfg.MaxFeatures = int(math.Sqrt(float64(len(x[0]))))
		if cfg.MaxFeatures < 1 {
			cfg.MaxFeatures = 1
		}
	}

	forest := &Forest{
		NEstimators: cfg.NEstimators,
		MaxDepth:    cfg.MaxDepth,
		NClasses:    nClasses,
		Seed:        cfg.Seed,
		Trees:       make([]*DecisionTree, cfg.NEstimators),
	}

	n := len(x)
	var wg sync.WaitGroup
	errCh := make(chan error, cfg.NEstimators)

	for i := 0; i < cfg.NEstimators; i++ {
		wg.Add(1)
		go func(treeIdx int) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(cfg.Seed + int64(treeIdx)))

			sampleX := make([][]float64, n)
			sampleY := make([]int, n)
			for j := 0; j < n; j++ {
				pick := rnd.Intn(n)
				sampleX[j] = x[pick]
				sampleY[j] = y[pick]
			}

			tree, err := growTree(sampleX, sampleY, nClasses, cfg.MaxDepth, cfg.MinSamplesSplit, cfg.MaxFeatures, rnd)
			if err != nil {
				errCh <- err
				return
			}
			forest.Trees[treeIdx] = tree
		}(i)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			return nil, err
		}
	}
	return forest, nil
}

// Proba returns one probability per class, in the forest's internal class
// ordering.
func (f *Forest) Proba(features []float64) ([]float64, error) {
	if len(f.Trees) == 0 {
		return nil, errors.New("forest: not trained")
	}
	probs := make([]float64, f.NClasses)
	for _, tree := range f.Trees {
		counts, err := tree.ClassCounts(features)
		if err != nil {
			return nil, err
		}
		if len(counts) != f.NClasses {
			return nil, errors.New("forest: leaf distribution size mismatch")
		}
		n := total(counts)
		if n == 0 {
			continue
		}
		for c, count := range counts {
			probs[c] += count / n
		}
	}
	for c := range probs {
		probs[c] /= float64(len(f.Trees))
	}
	return probs, nil
}

// PredictClass returns the argmax class index along with its probability.
func (f *Forest) PredictClass(features []float64) (int, float64, error) {
	probs, err := f.Proba(features)
	if err != nil {
		return 0, 0, err
	}
	best := 0
	for c := 1; c < len(probs); c++ {
		if probs[c] > probs[best] {
			best = c
		}
	}
	return best, probs[best], nil
}
