package entities

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.openly.dev/pointy"
)

func TestOrderViewState(t *testing.T) {
	tests := []struct {
		name string
		view OrderView
		want OrderState
	}{
		{
			name: "deposit not confirmed yet",
			view: OrderView{
				InTxError:            TxErrorNoError,
				InTxConfirmations:    1,
				InTxMaxConfirmations: 3,
			},
			want: OrderStatePendingDeposit,
		},
		{
			name: "deposit confirmed, payout not dispatched",
			view: OrderView{
				InTxError:            TxErrorNoError,
				InTxConfirmations:    3,
				InTxMaxConfirmations: 3,
			},
			want: OrderStatePendingPayout,
		},
		{
			name: "deposit over-confirmed, payout dispatched",
			view: OrderView{
				InTxError:            TxErrorNoError,
				InTxConfirmations:    4,
				InTxMaxConfirmations: 3,
				OutTxHash:            pointy.String("0xdeadbeef"),
			},
			want: OrderStateSettled,
		},
		{
			name: "zero-conf payout is dispatched purely by tx_id presence",
			view: OrderView{
				InTxError:             TxErrorNoError,
				InTxConfirmations:     3,
				InTxMaxConfirmations:  3,
				OutTxHash:             pointy.String("0xabc"),
				OutTxConfirmations:    0,
				OutTxMaxConfirmations: 0,
			},
			want: OrderStateSettled,
		},
		{
			name: "deposit error vetoes despite full confirmations",
			view: OrderView{
				InTxError:            TxErrorAmountMismatch,
				InTxConfirmations:    10,
				InTxMaxConfirmations: 3,
			},
			want: OrderStateFailed,
		},
		{
			name: "deposit error vetoes even a dispatched payout",
			view: OrderView{
				InTxError:            TxErrorDoubleSpend,
				InTxConfirmations:    10,
				InTxMaxConfirmations: 3,
				OutTxHash:            pointy.String("0xabc"),
			},
			want: OrderStateFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.view.State())
			require.Equal(t, tt.want == OrderStatePendingPayout, tt.view.ReadyForPayout())
		})
	}
}

func TestTransactionConfirmed(t *testing.T) {
	require.False(t, Transaction{Confirmations: 2, MaxConfirmations: 3}.Confirmed())
	require.True(t, Transaction{Confirmations: 3, MaxConfirmations: 3}.Confirmed())
	require.True(t, Transaction{Confirmations: 4, MaxConfirmations: 3}.Confirmed())

	// max_confirmations == 0 means confirmed immediately
	require.True(t, Transaction{Confirmations: 0, MaxConfirmations: 0}.Confirmed())
}

func TestTransactionDispatched(t *testing.T) {
	require.False(t, Transaction{}.Dispatched())
	require.True(t, Transaction{TxHash: pointy.String("some_hash")}.Dispatched())
}

func TestParseTxError(t *testing.T) {
	e, err := ParseTxError("NO_ERROR")
	require.NoError(t, err)
	require.Equal(t, TxErrorNoError, e)

	e, err = ParseTxError("DOUBLE_SPEND")
	require.NoError(t, err)
	require.Equal(t, TxErrorDoubleSpend, e)

	_, err = ParseTxError("SOMETHING_ELSE")
	require.Error(t, err)
}

func TestParseOrderType(t *testing.T) {
	ot, err := ParseOrderType("DEPOSIT")
	require.NoError(t, err)
	require.Equal(t, OrderTypeDeposit, ot)

	_, err = ParseOrderType("deposit")
	require.Error(t, err)
}

func TestOrderPatchIsZero(t *testing.T) {
	require.True(t, OrderPatch{}.IsZero())
	require.True(t, OrderPatch{InTx: &TransactionPatch{}, OutTx: &TransactionPatch{}}.IsZero())

	amount := decimal.RequireFromString("9.99")
	require.False(t, OrderPatch{OutTx: &TransactionPatch{Amount: &amount}}.IsZero())
	require.False(t, OrderPatch{InTx: &TransactionPatch{Confirmations: pointy.Int64(6)}}.IsZero())
}
