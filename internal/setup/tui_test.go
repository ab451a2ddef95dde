package setup

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseHoldings(t *testing.T) {
	pairs := parseHoldings("bitcoin:0.5, ethereum:2")
	require.Len(t, pairs, 2)
	require.Equal(t, "bitcoin", pairs[0].key)
	require.Equal(t, "0.5", pairs[0].qty.String())
	require.Equal(t, "ethereum", pairs[1].key)

	require.Empty(t, parseHoldings(""))
	require.Empty(t, parseHoldings("garbage"))
}

func TestValidateHoldings(t *testing.T) {
	require.NoError(t, validateHoldings(""))
	require.NoError(t, validateHoldings("bitcoin:1,AAPL:2.5"))
	require.Error(t, validateHoldings("bitcoin"))
	require.Error(t, validateHoldings("bitcoin:lots"))
	require.Error(t, validateHoldings("bitcoin:-1"))
}
