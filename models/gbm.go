package models

import (
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/aouyang1/go-watercast/util"
)

// Node is a single split or leaf of a regression tree. Split nodes route to Left when the
// feature value is less than or equal to the threshold and to Right otherwise.
type Node struct {
	Leaf      bool    `json:"leaf,omitempty"`
	Feature   int     `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
	Value     float64 `json:"value,omitempty"`
}

// Tree is a regression tree rooted at the first node
type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t Tree) validate(nFeatures int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("no nodes, %w", ErrInvalidTree)
	}
	for i, n := range t.Nodes {
		if n.Leaf {
			if math.IsNaN(n.Value) || math.IsInf(n.Value, 0) {
				return fmt.Errorf("leaf %d, %w", i, ErrNonFiniteParameter)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= nFeatures {
			return fmt.Errorf("node %d splits on feature %d of %d, %w", i, n.Feature, nFeatures, ErrInvalidTree)
		}
		if math.IsNaN(n.Threshold) {
			return fmt.Errorf("node %d threshold, %w", i, ErrNonFiniteParameter)
		}
		// children must come after their parent so every walk terminates
		for _, child := range []int{n.Left, n.Right} {
			if child <= i || child >= len(t.Nodes) {
				return fmt.Errorf("node %d has child %d, %w", i, child, ErrInvalidTree)
			}
		}
	}
	return nil
}

// eval walks the tree for x. The tree must have been validated.
func (t Tree) eval(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// depth returns the longest root to leaf path
func (t Tree) depth() int {
	d := make([]int, len(t.Nodes))
	maxDepth := 0
	for i, n := range t.Nodes {
		if n.Leaf {
			maxDepth = max(maxDepth, d[i])
			continue
		}
		d[n.Left] = max(d[n.Left], d[i]+1)
		d[n.Right] = max(d[n.Right], d[i]+1)
	}
	return maxDepth
}

// GradientBoosting is a pre-fit ensemble of regression trees. The prediction is Init plus
// the learning rate scaled sum of every tree output.
type GradientBoosting struct {
	Init         float64  `json:"init"`
	LearningRate float64  `json:"learning_rate"`
	Features     []string `json:"features"`
	Trees        []Tree   `json:"trees"`
}

// Validate checks the parameters are finite and every tree is well formed
func (g *GradientBoosting) Validate() error {
	if g == nil {
		return ErrNoModel
	}
	if math.IsNaN(g.Init) || math.IsInf(g.Init, 0) {
		return fmt.Errorf("init, %w", ErrNonFiniteParameter)
	}
	if math.IsNaN(g.LearningRate) || math.IsInf(g.LearningRate, 0) {
		return fmt.Errorf("learning rate, %w", ErrNonFiniteParameter)
	}
	if err := validateCols(g.Features); err != nil {
		return err
	}
	for i, t := range g.Trees {
		if err := t.validate(len(g.Features)); err != nil {
			return fmt.Errorf("unable to validate tree %d, %w", i, err)
		}
	}
	return nil
}

// FeatureNames returns the ordered columns the trees split on
func (g *GradientBoosting) FeatureNames() []string {
	if g == nil {
		return nil
	}
	return slices.Clone(g.Features)
}

func (g *GradientBoosting) Predict(x []float64) (float64, error) {
	if g == nil {
		return 0, ErrNoModel
	}
	if len(x) != len(g.Features) {
		return 0, fmt.Errorf("got %d features, but expected %d, %w", len(x), len(g.Features), ErrFeatureLenMismatch)
	}
	var sum float64
	for _, t := range g.Trees {
		sum += t.eval(x)
	}
	return g.Init + g.LearningRate*sum, nil
}

// TablePrint writes a summary of the ensemble
func (g *GradientBoosting) TablePrint(w io.Writer, prefix, indent string, indentGrowth int) error {
	if _, err := fmt.Fprintf(w, "%s%sGradient Boosting:\n", prefix, util.IndentExpand(indent, indentGrowth)); err != nil {
		return err
	}
	var maxDepth int
	for _, t := range g.Trees {
		maxDepth = max(maxDepth, t.depth())
	}
	if _, err := fmt.Fprintf(w, "%s%sInit: %.3f    Learning Rate: %.3f    Trees: %d    Max Depth: %d\n",
		prefix, util.IndentExpand(indent, indentGrowth+1),
		g.Init, g.LearningRate, len(g.Trees), maxDepth); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s%sFeatures: %v\n", prefix, util.IndentExpand(indent, indentGrowth+1), g.Features)
	return err
}
