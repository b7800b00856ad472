package classifier

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/1rvyn/movie-tier-predictor/models"
)

// PreprocessorSpec is the exported column transformer.
type PreprocessorSpec struct {
	Transformers []TransformerSpec `json:"transformers"`
}

type TransformerSpec struct {
	Name          string    `json:"name"`
	Kind          string    `json:"kind"`
	Columns       []string  `json:"columns"`
	Categories    [][]any   `json:"categories,omitempty"`
	HandleUnknown string    `json:"handle_unknown,omitempty"`
	UnknownValue  *float64  `json:"unknown_value,omitempty"`
	Mean          []float64 `json:"mean,omitempty"`
	Scale         []float64 `json:"scale,omitempty"`
	Min           []float64 `json:"min,omitempty"`
}

// Row is anything that can hand out raw column values.
type Row interface {
	Value(column string) (any, bool)
}

var _ Row = models.MovieInput{}

type transformer interface {
	width() int
	apply(row Row, out []float64) error
}

// Preprocessor turns a raw row into the dense feature vector the classifier
// was trained on.
type Preprocessor struct {
	steps []transformer
	names []string
	width int
}

func DecodePreprocessor(r io.Reader) (*Preprocessor, error) {
	var spec PreprocessorSpec
	if err := json.NewDecoder(r).Decode(&spec); err != nil {
		return nil, fmt.Errorf("%w: preprocessor: %v", ErrBadArtifact, err)
	}
	return NewPreprocessor(spec)
}

func NewPreprocessor(spec PreprocessorSpec) (*Preprocessor, error) {
	if len(spec.Transformers) == 0 {
		return nil, fmt.Errorf("%w: preprocessor has no transformers", ErrBadArtifact)
	}

	p := &Preprocessor{}
	for i, ts := range spec.Transformers {
		if len(ts.Columns) == 0 {
			return nil, fmt.Errorf("%w: transformer %d (%s) has no columns", ErrBadArtifact, i, ts.Name)
		}
		step, err := buildTransformer(ts)
		if err != nil {
			return nil, fmt.Errorf("transformer %d (%s): %w", i, ts.Name, err)
		}
		p.steps = append(p.steps, step)
		p.names = append(p.names, ts.Name)
		p.width += step.width()
	}
	return p, nil
}

// Width is the length of every vector Transform returns.
func (p *Preprocessor) Width() int {
	return p.width
}

func (p *Preprocessor) Transform(row Row) ([]float64, error) {
	out := make([]float64, p.width)
	offset := 0
	for i, step := range p.steps {
		w := step.width()
		if err := step.apply(row, out[offset:offset+w]); err != nil {
			return nil, fmt.Errorf("%s: %w", p.names[i], err)
		}
		offset += w
	}
	return out, nil
}

func buildTransformer(ts TransformerSpec) (transformer, error) {
	switch ts.Kind {
	case "onehot":
		return newCategorical(ts, true)
	case "ordinal":
		return newCategorical(ts, false)
	case "standard_scaler":
		return newScaler(ts, true)
	case "minmax_scaler":
		return newScaler(ts, false)
	case "passthrough":
		return passthrough{columns: ts.Columns}, nil
	default:
		return nil, fmt.Errorf("%w: unknown transformer kind %q", ErrBadArtifact, ts.Kind)
	}
}

// categoryKey gives strings and numbers a common comparable form, so a
// category exported as 1 matches a flag value of 1.0.
func categoryKey(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(t), nil
	case bool:
		return strconv.FormatBool(t), nil
	default:
		return "", fmt.Errorf("unsupported category value %v (%T)", v, v)
	}
}

type categorical struct {
	columns      []string
	index        []map[string]int
	sizes        []int
	onehot       bool
	ignore       bool
	unknownValue *float64
}

func newCategorical(ts TransformerSpec, onehot bool) (*categorical, error) {
	if len(ts.Categories) != len(ts.Columns) {
		return nil, fmt.Errorf("%w: %d category lists for %d columns", ErrBadArtifact, len(ts.Categories), len(ts.Columns))
	}

	c := &categorical{
		columns:      ts.Columns,
		onehot:       onehot,
		ignore:       ts.HandleUnknown == "ignore" || ts.HandleUnknown == "use_encoded_value",
		unknownValue: ts.UnknownValue,
	}
	for i, cats := range ts.Categories {
		if len(cats) == 0 {
			return nil, fmt.Errorf("%w: column %q has no categories", ErrBadArtifact, ts.Columns[i])
		}
		idx := make(map[string]int, len(cats))
		for j, cat := range cats {
			key, err := categoryKey(cat)
			if err != nil {
				return nil, fmt.Errorf("%w: column %q: %v", ErrBadArtifact, ts.Columns[i], err)
			}
			idx[key] = j
		}
		c.index = append(c.index, idx)
		c.sizes = append(c.sizes, len(cats))
	}
	return c, nil
}

func (c *categorical) width() int {
	if !c.onehot {
		return len(c.columns)
	}
	w := 0
	for _, n := range c.sizes {
		w += n
	}
	return w
}

func (c *categorical) apply(row Row, out []float64) error {
	offset := 0
	for i, col := range c.columns {
		raw, ok := row.Value(col)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownColumn, col)
		}
		key, err := categoryKey(raw)
		if err != nil {
			return fmt.Errorf("column %q: %w", col, err)
		}
		pos, known := c.index[i][key]

		if c.onehot {
			switch {
			case known:
				out[offset+pos] = 1
			case !c.ignore:
				return fmt.Errorf("%w: %q in column %q", ErrUnknownCategory, key, col)
			}
			offset += c.sizes[i]
			continue
		}

		switch {
		case known:
			out[i] = float64(pos)
		case c.ignore && c.unknownValue != nil:
			out[i] = *c.unknownValue
		default:
			return fmt.Errorf("%w: %q in column %q", ErrUnknownCategory, key, col)
		}
	}
	return nil
}

// scaler covers both standard ((x-mean)/scale) and min-max (x*scale+min).
type scaler struct {
	columns  []string
	center   []float64
	scale    []float64
	standard bool
}

func newScaler(ts TransformerSpec, standard bool) (*scaler, error) {
	n := len(ts.Columns)
	s := &scaler{columns: ts.Columns, standard: standard}

	center := ts.Min
	if standard {
		center = ts.Mean
	}
	s.center = make([]float64, n)
	s.scale = make([]float64, n)
	for i := range n {
		s.scale[i] = 1
	}

	if center != nil {
		if len(center) != n {
			return nil, fmt.Errorf("%w: %d offsets for %d columns", ErrBadArtifact, len(center), n)
		}
		copy(s.center, center)
	}
	if ts.Scale != nil {
		if len(ts.Scale) != n {
			return nil, fmt.Errorf("%w: %d scales for %d columns", ErrBadArtifact, len(ts.Scale), n)
		}
		for i, v := range ts.Scale {
			// A constant training column is exported with scale 0.
			if v == 0 && standard {
				v = 1
			}
			s.scale[i] = v
		}
	}
	return s, nil
}

func (s *scaler) width() int { return len(s.columns) }

func (s *scaler) apply(row Row, out []float64) error {
	for i, col := range s.columns {
		x, err := numericValue(row, col)
		if err != nil {
			return err
		}
		if s.standard {
			out[i] = (x - s.center[i]) / s.scale[i]
		} else {
			out[i] = x*s.scale[i] + s.center[i]
		}
	}
	return nil
}

type passthrough struct {
	columns []string
}

func (p passthrough) width() int { return len(p.columns) }

func (p passthrough) apply(row Row, out []float64) error {
	for i, col := range p.columns {
		x, err := numericValue(row, col)
		if err != nil {
			return err
		}
		out[i] = x
	}
	return nil
}

func numericValue(row Row, col string) (float64, error) {
	raw, ok := row.Value(col)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownColumn, col)
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("column %q is not numeric (%T)", col, raw)
	}
}
