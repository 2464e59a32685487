package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoApprove(t *testing.T) {
	var g Gate = AutoApprove{}

	ok, err := g.ConfirmNode("worker-0")
	require.NoError(t, err)
	assert.True(t, ok)

	// Non-interactive policy is "continue", never "abort".
	ok, err = g.ConfirmContinue([]string{"worker-0", "worker-1"})
	require.NoError(t, err)
	assert.True(t, ok)
}
