package ml

import (
	"errors"
	"math"
	"math/rand"
	"sort"
)

// TreeNode is one node in a flat-array decision tree. Children are indices
// into the same array; leaves carry per-class sample counts so the forest
// can produce probability estimates.
type TreeNode struct {
	FeatureIdx int       `json:"feature_idx"`
	Threshold  float64   `json:"threshold"`
	LeftChild  int       `json:"left_child"`
	RightChild int       `json:"right_child"`
	Counts     []float64 `json:"counts,omitempty"`
	IsLeaf     bool      `json:"is_leaf"`
}

type DecisionTree struct {
	Nodes []TreeNode `json:"nodes"`
}

type treeBuilder struct {
	x           [][]float64
	y           []int
	nClasses    int
	maxDepth    int
	minSamples  int
	maxFeatures int
	rnd         *rand.Rand
}

func growTree(x [][]float64, y []int, nClasses, maxDepth, minSamples, maxFeatures int, rnd *rand.Rand) (*DecisionTree, error) {
	if len(x) == 0 || len(y) != len(x) {
		return nil, errors.New("tree: features and labels size mismatch")
	}
	if maxDepth <= 0 {
		maxDepth = 8
	}
	if minSamples < 2 {
		minSamples = 2
	}
	b := &treeBuilder{
		x:           x,
		y:           y,
		nClasses:    nClasses,
		maxDepth:    maxDepth,
		minSamples:  minSamples,
		maxFeatures: maxFeatures,
		rnd:         rnd,
	}
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	return &DecisionTree{Nodes: b.buildNode(idx, 0)}, nil
}

func (b *treeBuilder) buildNode(idx []int, depth int) []TreeNode {
	counts := b.classCounts(idx)
	if depth >= b.maxDepth || len(idx) < b.minSamples || isPure(counts) {
		return []TreeNode{leafNode(counts)}
	}

	feature, threshold, ok := b.findBestSplit(idx)
	if !ok {
		return []TreeNode{leafNode(counts)}
	}

	var leftIdx, rightIdx []int
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}
	if len(leftIdx) == 0 || len(rightIdx) == 0 {
		return []TreeNode{leafNode(counts)}
	}

	leftNodes := b.buildNode(leftIdx, depth+1)
	rightNodes := b.buildNode(rightIdx, depth+1)

	// Subtree child indices are relative to their own slice; shift them to
	// their final positions before concatenating.
	offsetChildren(leftNodes, 1)
	offsetChildren(rightNodes, 1+len(leftNodes))

	root := TreeNode{
		FeatureIdx: feature,
		Threshold:  threshold,
		LeftChild:  1,
		RightChild: 1 + len(leftNodes),
	}
	nodes := make([]TreeNode, 0, 1+len(leftNodes)+len(rightNodes))
	nodes = append(nodes, root)
	nodes = append(nodes, leftNodes...)
	nodes = append(nodes, rightNodes...)
	return nodes
}

func offsetChildren(nodes []TreeNode, delta int) {
	for i := range nodes {
		if nodes[i].IsLeaf {
			continue
		}
		nodes[i].LeftChild += delta
		nodes[i].RightChild += delta
	}
}

// findBestSplit tries the per-feature median as the threshold candidate on a
// random feature subset and keeps the split with the lowest weighted gini.
func (b *treeBuilder) findBestSplit(idx []int) (int, float64, bool) {
	featureCount := len(b.x[idx[0]])
	candidates := b.sampleFeatures(featureCount)

	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := math.MaxFloat64

	for _, feature := range candidates {
		values := make([]float64, len(idx))
		for i, row := range idx {
			values[i] = b.x[row][feature]
		}
		threshold := median(values)

		left := make([]float64, b.nClasses)
		right := make([]float64, b.nClasses)
		for _, row := range idx {
			if b.x[row][feature] <= threshold {
				left[b.y[row]]++
			} else {
				right[b.y[row]]++
			}
		}
		if total(left) == 0 || total(right) == 0 {
			continue
		}
		impurity := weightedGini(left, right)
		if impurity < bestImpurity {
			bestImpurity = impurity
			bestFeature = feature
			bestThreshold = threshold
		}
	}
	if bestFeature == -1 {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

func (b *treeBuilder) sampleFeatures(featureCount int) []int {
	k := b.maxFeatures
	if k <= 0 || k > featureCount {
		k = featureCount
	}
	perm := b.rnd.Perm(featureCount)
	return perm[:k]
}

func (b *treeBuilder) classCounts(idx []int) []float64 {
	counts := make([]float64, b.nClasses)
	for _, i := range idx {
		counts[b.y[i]]++
	}
	return counts
}

// ClassCounts walks the tree for one vector and returns the leaf's per-class
// sample counts.
func (t *DecisionTree) ClassCounts(features []float64) ([]float64, error) {
	if len(t.Nodes) == 0 {
		return nil, errors.New("tree: not trained")
	}
	idx := 0
	for {
		node := t.Nodes[idx]
		if node.IsLeaf {
			return node.Counts, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return nil, errors.New("tree: feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx <= 0 || idx >= len(t.Nodes) {
			return nil, errors.New("tree: invalid node reference")
		}
	}
}

func leafNode(counts []float64) TreeNode {
	return TreeNode{
		FeatureIdx: -1,
		LeftChild:  -1,
		RightChild: -1,
		Counts:     counts,
		IsLeaf:     true,
	}
}

func isPure(counts []float64) bool {
	nonzero := 0
	for _, c := range counts {
		if c > 0 {
			nonzero++
		}
	}
	return nonzero <= 1
}

func total(counts []float64) float64 {
	sum := 0.0
	for _, c := range counts {
		sum += c
	}
	return sum
}

func weightedGini(left, right []float64) float64 {
	l := total(left)
	r := total(right)
	return (l/(l+r))*gini(left) + (r/(l+r))*gini(right)
}

func gini(counts []float64) float64 {
	n := total(counts)
	if n == 0 {
		return 0
	}
	impurity := 1.0
	for _, c := range counts {
		p := c / n
		impurity -= p * p
	}
	return impurity
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
