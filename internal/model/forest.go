package model

import (
	"errors"
	"math"
	"math/rand/v2"
	"sort"
)

// ErrProbaUnavailable is returned by classifiers that can only produce a
// discrete prediction.
var ErrProbaUnavailable = errors.New("probability estimates unavailable")

// Classifier is a fitted binary classifier.
type Classifier interface {
	// Predict returns the predicted class, 0 or 1.
	Predict(x []float64) int
	// PredictProba returns [P(class 0), P(class 1)].
	PredictProba(x []float64) ([]float64, error)
}

// ForestOptions controls ensemble fitting.
type ForestOptions struct {
	Trees int
	Seed  uint64
	// Balanced weights each class by n / (2 * count) so the minority class
	// carries as much total weight as the majority.
	Balanced bool
}

// DefaultForestOptions mirrors the production training setup.
func DefaultForestOptions() ForestOptions {
	return ForestOptions{Trees: 200, Seed: 42, Balanced: true}
}

// Node is one tree node. Leaves have Feature < 0 and Value holding the
// weighted fraction of class 1 samples that reached them.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t,omitempty"`
	Left      int     `json:"l,omitempty"`
	Right     int     `json:"r,omitempty"`
	Value     float64 `json:"v,omitempty"`
}

// Tree is a CART tree stored as a flat node slice rooted at index 0.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t *Tree) leafValue(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Forest is a bagged ensemble of CART trees split on weighted Gini impurity,
// each split considering sqrt(features) randomly chosen candidates.
type Forest struct {
	Features int    `json:"n_features"`
	Trees    []Tree `json:"trees"`
}

var _ Classifier = (*Forest)(nil)

// FitForest trains a forest on X (rows) and binary labels y.
func FitForest(X [][]float64, y []int, opts ForestOptions) (*Forest, error) {
	if len(X) == 0 {
		return nil, errors.New("no training samples")
	}
	if len(X) != len(y) {
		return nil, errors.New("feature and label lengths differ")
	}
	if opts.Trees <= 0 {
		opts.Trees = DefaultForestOptions().Trees
	}
	nFeatures := len(X[0])
	for _, row := range X {
		if len(row) != nFeatures {
			return nil, errors.New("ragged feature matrix")
		}
	}

	classWeight := [2]float64{1, 1}
	if opts.Balanced {
		var counts [2]int
		for _, v := range y {
			counts[label(v)]++
		}
		for c := range counts {
			if counts[c] > 0 {
				classWeight[c] = float64(len(y)) / (2 * float64(counts[c]))
			}
		}
	}

	mtry := int(math.Sqrt(float64(nFeatures)))
	if mtry < 1 {
		mtry = 1
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	f := &Forest{Features: nFeatures, Trees: make([]Tree, 0, opts.Trees)}
	for t := 0; t < opts.Trees; t++ {
		treeRNG := rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64()))

		// Bootstrap: draw n samples with replacement and fold repeat
		// draws into the sample weight.
		draws := make([]int, len(X))
		for i := 0; i < len(X); i++ {
			draws[treeRNG.IntN(len(X))]++
		}
		samples := make([]sample, 0, len(X))
		for i, n := range draws {
			if n == 0 {
				continue
			}
			samples = append(samples, sample{idx: i, w: float64(n) * classWeight[label(y[i])]})
		}

		b := &treeBuilder{X: X, y: y, mtry: mtry, rng: treeRNG}
		b.build(samples)
		f.Trees = append(f.Trees, Tree{Nodes: b.nodes})
	}
	return f, nil
}

// PredictProba averages leaf probabilities across trees.
func (f *Forest) PredictProba(x []float64) ([]float64, error) {
	if len(f.Trees) == 0 {
		return nil, ErrProbaUnavailable
	}
	var p1 float64
	for i := range f.Trees {
		p1 += f.Trees[i].leafValue(x)
	}
	p1 /= float64(len(f.Trees))
	return []float64{1 - p1, p1}, nil
}

// Predict returns the class with the higher averaged probability; ties go
// to class 0.
func (f *Forest) Predict(x []float64) int {
	p, err := f.PredictProba(x)
	if err != nil {
		return 0
	}
	if p[1] > p[0] {
		return 1
	}
	return 0
}

func label(v int) int {
	if v != 0 {
		return 1
	}
	return 0
}

type sample struct {
	idx int
	w   float64
}

type treeBuilder struct {
	X     [][]float64
	y     []int
	mtry  int
	rng   *rand.Rand
	nodes []Node
}

func gini(w0, w1 float64) float64 {
	total := w0 + w1
	if total == 0 {
		return 0
	}
	p0, p1 := w0/total, w1/total
	return 1 - p0*p0 - p1*p1
}

// build appends the subtree for samples and returns its root index.
func (b *treeBuilder) build(samples []sample) int {
	var w [2]float64
	for _, s := range samples {
		w[label(b.y[s.idx])] += s.w
	}
	at := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: -1, Value: w[1] / (w[0] + w[1])})

	if w[0] == 0 || w[1] == 0 || len(samples) < 2 {
		return at
	}

	feature, threshold, ok := b.bestSplit(samples, gini(w[0], w[1]))
	if !ok {
		return at
	}

	var left, right []sample
	for _, s := range samples {
		if b.X[s.idx][feature] <= threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return at
	}
	l := b.build(left)
	r := b.build(right)
	b.nodes[at] = Node{Feature: feature, Threshold: threshold, Left: l, Right: r}
	return at
}

// bestSplit evaluates up to mtry non-constant features, drawn in random
// order, and returns the split with the lowest weighted child impurity.
func (b *treeBuilder) bestSplit(samples []sample, parent float64) (int, float64, bool) {
	nFeatures := len(b.X[samples[0].idx])
	bestFeature, bestThreshold := -1, 0.0
	bestImpurity := math.Inf(1)

	sorted := make([]sample, len(samples))
	visited := 0
	for _, feat := range b.rng.Perm(nFeatures) {
		if visited >= b.mtry {
			break
		}
		copy(sorted, samples)
		sort.Slice(sorted, func(i, j int) bool {
			return b.X[sorted[i].idx][feat] < b.X[sorted[j].idx][feat]
		})
		lo := b.X[sorted[0].idx][feat]
		hi := b.X[sorted[len(sorted)-1].idx][feat]
		if lo == hi {
			continue
		}
		visited++

		var total, left [2]float64
		for _, s := range sorted {
			total[label(b.y[s.idx])] += s.w
		}
		for i := 0; i < len(sorted)-1; i++ {
			s := sorted[i]
			left[label(b.y[s.idx])] += s.w
			cur, next := b.X[s.idx][feat], b.X[sorted[i+1].idx][feat]
			if cur == next {
				continue
			}
			lw := left[0] + left[1]
			rw := total[0] + total[1] - lw
			impurity := (lw*gini(left[0], left[1]) + rw*gini(total[0]-left[0], total[1]-left[1])) / (lw + rw)
			if impurity < bestImpurity {
				bestImpurity = impurity
				bestFeature = feat
				bestThreshold = cur + (next-cur)/2
				if bestThreshold >= next {
					bestThreshold = cur
				}
			}
		}
	}

	if bestFeature < 0 || bestImpurity > parent {
		return 0, 0, false
	}
	return bestFeature, bestThreshold, true
}
