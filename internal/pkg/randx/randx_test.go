package randx

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestConnectionID(t *testing.T) {
	a := ConnectionID()
	b := ConnectionID()

	require.NotEqual(t, a, b)

	raw, ok := strings.CutPrefix(a, ConnectionIDPrefix)
	require.True(t, ok)
	_, err := uuid.Parse(raw)
	require.NoError(t, err)
}
