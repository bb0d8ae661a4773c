package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectionSize(t *testing.T) {
	d := Detection{X1: 10, Y1: 20, X2: 18, Y2: 26}
	require.Equal(t, 8, d.Width())
	require.Equal(t, 6, d.Height())
}
