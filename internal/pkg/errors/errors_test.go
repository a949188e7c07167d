package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStageError(t *testing.T) {
	err := AtStage("embed", fmt.Errorf("%w: upstream down", ErrEmbeddingUnavailable))
	require.Equal(t, "embed", StageOf(err))
	require.ErrorIs(t, err, ErrEmbeddingUnavailable)
	require.Contains(t, err.Error(), "embed: ")

	wrapped := fmt.Errorf("outer: %w", err)
	require.Equal(t, "embed", StageOf(wrapped))

	require.Nil(t, AtStage("any", nil))
	require.Equal(t, "", StageOf(fmt.Errorf("untagged")))
}

func TestIsCallerError(t *testing.T) {
	require.True(t, IsCallerError(AtStage("validate", ErrEmptyInput)))
	require.True(t, IsCallerError(ErrInvalid))
	require.False(t, IsCallerError(ErrStoreQuery))
	require.False(t, IsCallerError(ErrGenerationUnavailable))
}
