package errors_test

import (
	"testing"

	"github.com/habiliai/agentmemory/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMark(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := errors.Wrapf(errors.Mark(cause, errors.ErrStoreUnavailable), "failed to put record")

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStoreUnavailable))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, errors.ErrOracleUnavailable))
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.Contains(t, err.Error(), "failed to put record")

	assert.NoError(t, errors.Mark(nil, errors.ErrStoreUnavailable))
}
