package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/1rvyn/movie-tier-predictor/auth"
	"github.com/1rvyn/movie-tier-predictor/config"
	"github.com/1rvyn/movie-tier-predictor/models"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testCommand(out *bytes.Buffer) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	cmd.SetContext(context.Background())
	return cmd
}

func TestHashPasswordCommand(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runHashPassword(testCommand(&out), []string{"abc", "def"}))

	hashes := strings.Fields(out.String())
	require.Len(t, hashes, 2)

	ok, err := auth.VerifyPassword(hashes[0], "abc")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = auth.VerifyPassword(hashes[1], "def")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPredictCommand(t *testing.T) {
	logger = zap.NewNop()
	cfg = &config.Config{
		PreprocessorPath: "artifacts/preprocessor_mov_pred_1.json",
		ModelPath:        "artifacts/voting_classifier_mov_pred_1.json",
	}
	predictInput = models.MovieInput{
		DurationMins:   "111-120 mins",
		Studio:         "Warner Bros.",
		ProductionYear: "2010s",
		GenrePrimary:   "Action",
		RatingIMDB:     8.0,
		ActorFamous:    1,
		Franchise:      1,
		USBoxOffice:    "301-500",
	}

	var out bytes.Buffer
	require.NoError(t, runPredict(testCommand(&out), nil))
	assert.Equal(t, "Predicted Rating Category: T1 >4.5\n", out.String())

	predictInput.Studio = "A24"
	err := runPredict(testCommand(&out), nil)
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "studio")
}
