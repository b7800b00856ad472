package classifier

import (
	"encoding/json"
	"fmt"
	"io"
)

// VotingSpec is the exported voting ensemble.
type VotingSpec struct {
	Voting     string          `json:"voting"`
	Classes    []int           `json:"classes"`
	Weights    []float64       `json:"weights,omitempty"`
	NFeatures  int             `json:"n_features"`
	Estimators []EstimatorSpec `json:"estimators"`
}

// VotingClassifier combines its estimators by hard (majority) or soft
// (averaged probability) voting.
type VotingClassifier struct {
	soft       bool
	classes    []int
	weights    []float64
	nFeatures  int
	estimators []Estimator
	names      []string
}

func DecodeVotingClassifier(r io.Reader) (*VotingClassifier, error) {
	var spec VotingSpec
	if err := json.NewDecoder(r).Decode(&spec); err != nil {
		return nil, fmt.Errorf("%w: classifier: %v", ErrBadArtifact, err)
	}
	return NewVotingClassifier(spec)
}

func NewVotingClassifier(spec VotingSpec) (*VotingClassifier, error) {
	vc := &VotingClassifier{classes: spec.Classes, nFeatures: spec.NFeatures}

	switch spec.Voting {
	case "", "hard":
	case "soft":
		vc.soft = true
	default:
		return nil, fmt.Errorf("%w: unknown voting %q", ErrBadArtifact, spec.Voting)
	}
	if len(spec.Classes) < 2 {
		return nil, fmt.Errorf("%w: need at least two classes, got %d", ErrBadArtifact, len(spec.Classes))
	}
	if spec.NFeatures <= 0 {
		return nil, fmt.Errorf("%w: n_features must be positive", ErrBadArtifact)
	}
	if len(spec.Estimators) == 0 {
		return nil, fmt.Errorf("%w: no estimators", ErrBadArtifact)
	}

	vc.weights = spec.Weights
	if vc.weights == nil {
		vc.weights = make([]float64, len(spec.Estimators))
		for i := range vc.weights {
			vc.weights[i] = 1
		}
	}
	if len(vc.weights) != len(spec.Estimators) {
		return nil, fmt.Errorf("%w: %d weights for %d estimators", ErrBadArtifact, len(vc.weights), len(spec.Estimators))
	}

	for i, es := range spec.Estimators {
		est, err := buildEstimator(es, spec.NFeatures, len(spec.Classes))
		if err != nil {
			return nil, fmt.Errorf("estimator %d (%s): %w", i, es.Name, err)
		}
		vc.estimators = append(vc.estimators, est)
		vc.names = append(vc.names, es.Name)
	}
	return vc, nil
}

// NFeatures is the input width the estimators were trained on.
func (vc *VotingClassifier) NFeatures() int {
	return vc.nFeatures
}

// Predict returns the winning class label.
func (vc *VotingClassifier) Predict(x []float64) (int, error) {
	scores, err := vc.scores(x)
	if err != nil {
		return 0, err
	}
	return vc.classes[argmax(scores)], nil
}

// PredictProba returns the per-class scores Predict takes the argmax of:
// averaged probabilities for soft voting, weighted vote shares for hard
// voting. Both sum to one.
func (vc *VotingClassifier) PredictProba(x []float64) ([]float64, error) {
	scores, err := vc.scores(x)
	if err != nil {
		return nil, err
	}
	if vc.soft {
		return scores, nil
	}
	return normalize(scores), nil
}

func (vc *VotingClassifier) scores(x []float64) ([]float64, error) {
	if len(x) != vc.nFeatures {
		return nil, fmt.Errorf("%w: got %d features, want %d", ErrFeatureMismatch, len(x), vc.nFeatures)
	}
	if vc.soft {
		return vc.averageProba(x), nil
	}

	votes := make([]float64, len(vc.classes))
	for i, est := range vc.estimators {
		votes[argmax(est.PredictProba(x))] += vc.weights[i]
	}
	return votes, nil
}

func (vc *VotingClassifier) averageProba(x []float64) []float64 {
	avg := make([]float64, len(vc.classes))
	var total float64
	for i, est := range vc.estimators {
		w := vc.weights[i]
		for k, p := range est.PredictProba(x) {
			avg[k] += w * p
		}
		total += w
	}
	if total > 0 {
		for k := range avg {
			avg[k] /= total
		}
	}
	return avg
}

// argmax returns the first index of the maximum, matching numpy on ties.
func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
