package classifier

import "errors"

var (
	ErrBadArtifact     = errors.New("invalid model artifact")
	ErrUnknownColumn   = errors.New("unknown column")
	ErrUnknownCategory = errors.New("unknown category")
	ErrFeatureMismatch = errors.New("feature count mismatch")
)
