package tradestore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrade_ValidateRejectsNonPositiveOpenDate(t *testing.T) {
	tr := Trade{OpenDate: 0}
	require.ErrorIs(t, tr.Validate(), ErrInvalidOpenDate)

	tr.OpenDate = 1
	require.NoError(t, tr.Validate())
}

func TestTrade_PayoutOrZero(t *testing.T) {
	win := Trade{Amount: 100, Payout: 0.8, Status: StatusWin}
	require.InDelta(t, 180, win.PayoutOrZero(), 1e-9)

	standoff := Trade{Amount: 100, Status: StatusStandoff}
	require.InDelta(t, 100, standoff.PayoutOrZero(), 1e-9)

	loss := Trade{Amount: 100, Status: StatusLoss}
	require.Equal(t, float64(0), loss.PayoutOrZero())
}

func TestContractType_String(t *testing.T) {
	require.Equal(t, "BUY", ContractBuy.String())
	require.Equal(t, "SELL", ContractSell.String())
	require.Equal(t, "UNKNOWN", ContractUnknown.String())
}

func TestBoType_String(t *testing.T) {
	require.Equal(t, "SPRINT", BoSprint.String())
	require.Equal(t, "CLASSIC", BoClassic.String())
}

func TestStatus_String(t *testing.T) {
	require.Equal(t, "WIN", StatusWin.String())
	require.Equal(t, "LOSS", StatusLoss.String())
	require.Equal(t, "STANDOFF", StatusStandoff.String())
	require.Equal(t, "UNKNOWN", StatusUnknown.String())
}
