// Package classifier runs exported preprocessing and voting-ensemble
// artifacts over a movie input row and maps the result to a rating tier.
package classifier

import (
	"bytes"
	"fmt"
)

// Prediction is the outcome for one row.
type Prediction struct {
	Class         int       `json:"class"`
	Tier          Tier      `json:"tier"`
	Probabilities []float64 `json:"probabilities,omitempty"`
}

// Pipeline is preprocessor + classifier, checked to agree on feature width.
type Pipeline struct {
	pre *Preprocessor
	clf *VotingClassifier
}

func NewPipeline(pre *Preprocessor, clf *VotingClassifier) (*Pipeline, error) {
	if pre.Width() != clf.NFeatures() {
		return nil, fmt.Errorf("%w: preprocessor emits %d features, classifier expects %d",
			ErrFeatureMismatch, pre.Width(), clf.NFeatures())
	}
	return &Pipeline{pre: pre, clf: clf}, nil
}

// LoadPipeline decodes both artifacts from their raw JSON.
func LoadPipeline(preprocessor, model []byte) (*Pipeline, error) {
	pre, err := DecodePreprocessor(bytes.NewReader(preprocessor))
	if err != nil {
		return nil, err
	}
	clf, err := DecodeVotingClassifier(bytes.NewReader(model))
	if err != nil {
		return nil, err
	}
	return NewPipeline(pre, clf)
}

func (p *Pipeline) Predict(row Row) (Prediction, error) {
	x, err := p.pre.Transform(row)
	if err != nil {
		return Prediction{}, fmt.Errorf("preprocess: %w", err)
	}

	proba, err := p.clf.PredictProba(x)
	if err != nil {
		return Prediction{}, fmt.Errorf("predict: %w", err)
	}
	class := p.clf.classes[argmax(proba)]

	return Prediction{
		Class:         class,
		Tier:          CategorizeTier(class),
		Probabilities: proba,
	}, nil
}
