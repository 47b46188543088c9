package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProtocol(t *testing.T) {
	require.Equal(t, uint64(1), AppProtocol.Uint64())
	require.Contains(t, Version, SemVer)
}
