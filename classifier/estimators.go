package classifier

import (
	"fmt"
	"math"
)

// Estimator is one member of the voting ensemble.
type Estimator interface {
	// PredictProba returns one probability per class, in class order.
	PredictProba(x []float64) []float64
}

// EstimatorSpec is the exported form of any supported estimator. Only the
// fields of the named kind are read.
type EstimatorSpec struct {
	Name string `json:"name"`
	Kind string `json:"kind"`

	// logistic
	Coef       [][]float64 `json:"coef,omitempty"`
	Intercept  []float64   `json:"intercept,omitempty"`
	MultiClass string      `json:"multi_class,omitempty"`

	// decision_tree
	Tree *TreeSpec `json:"tree,omitempty"`

	// random_forest
	Trees []TreeSpec `json:"trees,omitempty"`

	// gradient_boosting
	BaseScore float64           `json:"base_score,omitempty"`
	Rounds    [][]BoostTreeSpec `json:"rounds,omitempty"`
}

// TreeSpec uses the sklearn tree_ array layout. A node with
// children_left == -1 is a leaf.
type TreeSpec struct {
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"`
}

// BoostTreeSpec is a single regression tree of a boosted model. Splits send
// x < threshold left; NaN follows default_left.
type BoostTreeSpec struct {
	ChildrenLeft  []int     `json:"children_left"`
	ChildrenRight []int     `json:"children_right"`
	Feature       []int     `json:"feature"`
	Threshold     []float64 `json:"threshold"`
	DefaultLeft   []bool    `json:"default_left"`
	Leaf          []float64 `json:"leaf"`
}

const leafNode = -1

func buildEstimator(spec EstimatorSpec, nFeatures, nClasses int) (Estimator, error) {
	switch spec.Kind {
	case "logistic":
		return newLogistic(spec, nFeatures, nClasses)
	case "decision_tree":
		if spec.Tree == nil {
			return nil, fmt.Errorf("%w: decision_tree without tree", ErrBadArtifact)
		}
		return newDecisionTree(*spec.Tree, nFeatures, nClasses)
	case "random_forest":
		return newRandomForest(spec.Trees, nFeatures, nClasses)
	case "gradient_boosting":
		return newGradientBoosting(spec, nFeatures, nClasses)
	default:
		return nil, fmt.Errorf("%w: unknown estimator kind %q", ErrBadArtifact, spec.Kind)
	}
}

type logistic struct {
	coef      [][]float64
	intercept []float64
	ovr       bool
	binary    bool
}

func newLogistic(spec EstimatorSpec, nFeatures, nClasses int) (*logistic, error) {
	rows := nClasses
	binary := nClasses == 2 && len(spec.Coef) == 1
	if binary {
		rows = 1
	}
	if len(spec.Coef) != rows || len(spec.Intercept) != rows {
		return nil, fmt.Errorf("%w: logistic needs %d coefficient rows and intercepts, got %d and %d",
			ErrBadArtifact, rows, len(spec.Coef), len(spec.Intercept))
	}
	for k, row := range spec.Coef {
		if len(row) != nFeatures {
			return nil, fmt.Errorf("%w: logistic row %d has %d coefficients, want %d",
				ErrFeatureMismatch, k, len(row), nFeatures)
		}
	}

	var ovr bool
	switch spec.MultiClass {
	case "", "multinomial", "auto":
	case "ovr":
		ovr = true
	default:
		return nil, fmt.Errorf("%w: unknown multi_class %q", ErrBadArtifact, spec.MultiClass)
	}

	return &logistic{coef: spec.Coef, intercept: spec.Intercept, ovr: ovr, binary: binary}, nil
}

func (l *logistic) PredictProba(x []float64) []float64 {
	scores := make([]float64, len(l.coef))
	for k, row := range l.coef {
		scores[k] = dot(row, x) + l.intercept[k]
	}

	if l.binary {
		p := sigmoid(scores[0])
		return []float64{1 - p, p}
	}
	if l.ovr {
		for k := range scores {
			scores[k] = sigmoid(scores[k])
		}
		return normalize(scores)
	}
	return softmax(scores)
}

type decisionTree struct {
	left, right []int
	feature     []int
	threshold   []float64
	proba       [][]float64
}

func newDecisionTree(spec TreeSpec, nFeatures, nClasses int) (*decisionTree, error) {
	n := len(spec.ChildrenLeft)
	if err := checkTreeShape(spec.ChildrenLeft, spec.ChildrenRight, spec.Feature, spec.Threshold, nFeatures); err != nil {
		return nil, err
	}
	if len(spec.Value) != n {
		return nil, fmt.Errorf("%w: tree has %d values for %d nodes", ErrBadArtifact, len(spec.Value), n)
	}

	proba := make([][]float64, n)
	for i, v := range spec.Value {
		if spec.ChildrenLeft[i] != leafNode {
			continue
		}
		if len(v) != nClasses {
			return nil, fmt.Errorf("%w: leaf %d has %d class values, want %d", ErrBadArtifact, i, len(v), nClasses)
		}
		proba[i] = normalize(append([]float64(nil), v...))
	}

	return &decisionTree{
		left:      spec.ChildrenLeft,
		right:     spec.ChildrenRight,
		feature:   spec.Feature,
		threshold: spec.Threshold,
		proba:     proba,
	}, nil
}

func (t *decisionTree) PredictProba(x []float64) []float64 {
	node := 0
	for t.left[node] != leafNode {
		if x[t.feature[node]] <= t.threshold[node] {
			node = t.left[node]
		} else {
			node = t.right[node]
		}
	}
	return append([]float64(nil), t.proba[node]...)
}

type randomForest struct {
	trees []*decisionTree
}

func newRandomForest(specs []TreeSpec, nFeatures, nClasses int) (*randomForest, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: random_forest without trees", ErrBadArtifact)
	}
	f := &randomForest{}
	for i, s := range specs {
		t, err := newDecisionTree(s, nFeatures, nClasses)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		f.trees = append(f.trees, t)
	}
	return f, nil
}

func (f *randomForest) PredictProba(x []float64) []float64 {
	var sum []float64
	for _, t := range f.trees {
		p := t.PredictProba(x)
		if sum == nil {
			sum = make([]float64, len(p))
		}
		for k := range p {
			sum[k] += p[k]
		}
	}
	for k := range sum {
		sum[k] /= float64(len(f.trees))
	}
	return sum
}

type boostTree struct {
	left, right []int
	feature     []int
	threshold   []float64
	defaultLeft []bool
	leaf        []float64
}

func (t *boostTree) eval(x []float64) float64 {
	node := 0
	for t.left[node] != leafNode {
		v := x[t.feature[node]]
		switch {
		case math.IsNaN(v):
			if t.defaultLeft[node] {
				node = t.left[node]
			} else {
				node = t.right[node]
			}
		case v < t.threshold[node]:
			node = t.left[node]
		default:
			node = t.right[node]
		}
	}
	return t.leaf[node]
}

type gradientBoosting struct {
	baseScore float64
	rounds    [][]*boostTree
	binary    bool
}

func newGradientBoosting(spec EstimatorSpec, nFeatures, nClasses int) (*gradientBoosting, error) {
	if len(spec.Rounds) == 0 {
		return nil, fmt.Errorf("%w: gradient_boosting without rounds", ErrBadArtifact)
	}

	perRound := nClasses
	binary := nClasses == 2 && len(spec.Rounds[0]) == 1
	if binary {
		perRound = 1
	}

	g := &gradientBoosting{baseScore: spec.BaseScore, binary: binary}
	if binary {
		// binary:logistic stores base_score as a probability; the margin
		// starts at its logit. Zero means unset, xgboost's default of 0.5.
		switch {
		case spec.BaseScore == 0:
			g.baseScore = 0
		case spec.BaseScore > 0 && spec.BaseScore < 1:
			g.baseScore = math.Log(spec.BaseScore / (1 - spec.BaseScore))
		default:
			return nil, fmt.Errorf("%w: binary base_score %v is not a probability", ErrBadArtifact, spec.BaseScore)
		}
	}
	for r, round := range spec.Rounds {
		if len(round) != perRound {
			return nil, fmt.Errorf("%w: round %d has %d trees, want %d", ErrBadArtifact, r, len(round), perRound)
		}
		trees := make([]*boostTree, 0, perRound)
		for k, ts := range round {
			n := len(ts.ChildrenLeft)
			if err := checkTreeShape(ts.ChildrenLeft, ts.ChildrenRight, ts.Feature, ts.Threshold, nFeatures); err != nil {
				return nil, fmt.Errorf("round %d tree %d: %w", r, k, err)
			}
			if len(ts.Leaf) != n {
				return nil, fmt.Errorf("%w: round %d tree %d has %d leaf values for %d nodes", ErrBadArtifact, r, k, len(ts.Leaf), n)
			}
			defaultLeft := ts.DefaultLeft
			if defaultLeft == nil {
				defaultLeft = make([]bool, n)
			} else if len(defaultLeft) != n {
				return nil, fmt.Errorf("%w: round %d tree %d default_left length mismatch", ErrBadArtifact, r, k)
			}
			trees = append(trees, &boostTree{
				left:        ts.ChildrenLeft,
				right:       ts.ChildrenRight,
				feature:     ts.Feature,
				threshold:   ts.Threshold,
				defaultLeft: defaultLeft,
				leaf:        ts.Leaf,
			})
		}
		g.rounds = append(g.rounds, trees)
	}
	return g, nil
}

func (g *gradientBoosting) PredictProba(x []float64) []float64 {
	margins := make([]float64, len(g.rounds[0]))
	for k := range margins {
		margins[k] = g.baseScore
	}
	for _, round := range g.rounds {
		for k, t := range round {
			margins[k] += t.eval(x)
		}
	}

	if g.binary {
		p := sigmoid(margins[0])
		return []float64{1 - p, p}
	}
	return softmax(margins)
}

func checkTreeShape(left, right, feature []int, threshold []float64, nFeatures int) error {
	n := len(left)
	if n == 0 {
		return fmt.Errorf("%w: empty tree", ErrBadArtifact)
	}
	if len(right) != n || len(feature) != n || len(threshold) != n {
		return fmt.Errorf("%w: tree arrays differ in length", ErrBadArtifact)
	}
	for i := range n {
		if left[i] == leafNode {
			continue
		}
		// Children always come after their parent, so every walk ends at a leaf.
		if left[i] <= i || left[i] >= n || right[i] <= i || right[i] >= n {
			return fmt.Errorf("%w: node %d has child out of range", ErrBadArtifact, i)
		}
		if feature[i] < 0 || feature[i] >= nFeatures {
			return fmt.Errorf("%w: node %d splits on feature %d of %d", ErrFeatureMismatch, i, feature[i], nFeatures)
		}
	}
	return nil
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func softmax(z []float64) []float64 {
	maxZ := math.Inf(-1)
	for _, v := range z {
		maxZ = math.Max(maxZ, v)
	}
	out := make([]float64, len(z))
	var sum float64
	for i, v := range z {
		out[i] = math.Exp(v - maxZ)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// normalize scales p to sum to one in place. An all-zero p becomes uniform.
func normalize(p []float64) []float64 {
	var sum float64
	for _, v := range p {
		sum += v
	}
	for i := range p {
		if sum == 0 {
			p[i] = 1 / float64(len(p))
		} else {
			p[i] /= sum
		}
	}
	return p
}
