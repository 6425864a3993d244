package workers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fincubator/booker/internal/entities"
)

type fakeOrderService struct {
	ready     []entities.OrderView
	patched   []entities.OrderPatch
	updateErr error
	claims    int
}

func (f *fakeOrderService) CreateOrder(context.Context, entities.Transaction, entities.Transaction, entities.OrderType) (*entities.Order, error) {
	return nil, nil
}

func (f *fakeOrderService) GetOrder(context.Context, uuid.UUID) (*entities.OrderView, error) {
	return nil, nil
}

func (f *fakeOrderService) ListOrders(context.Context) ([]entities.OrderView, error) {
	return nil, nil
}

func (f *fakeOrderService) OrdersReadyForPayout(context.Context) ([]entities.OrderView, error) {
	return f.ready, nil
}

func (f *fakeOrderService) ClaimReadyOrders(ctx context.Context, limit int, fn func(context.Context, []entities.OrderView) error) error {
	f.claims++
	batch := f.ready
	if limit > 0 && len(batch) > limit {
		batch = batch[:limit]
	}
	return fn(ctx, batch)
}

func (f *fakeOrderService) UpdateOrder(_ context.Context, patch entities.OrderPatch) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.patched = append(f.patched, patch)
	return nil
}

func (f *fakeOrderService) DeleteOrder(context.Context, uuid.UUID) error { return nil }

func (f *fakeOrderService) PurgeSettledOrders(context.Context, time.Duration) (int64, error) {
	return 0, nil
}

type fakePayoutSender struct {
	failFor map[uuid.UUID]error
	sent    []uuid.UUID
}

func (f *fakePayoutSender) SendPayout(_ context.Context, order entities.OrderView) (string, error) {
	if err, ok := f.failFor[order.OrderID]; ok {
		return "", err
	}
	f.sent = append(f.sent, order.OrderID)
	return "chain-" + order.OrderID.String(), nil
}

type fakeNotifier struct {
	notified []string
}

func (f *fakeNotifier) NotifyOrderSettled(_ entities.OrderView, txHash string) {
	f.notified = append(f.notified, txHash)
}

func readyView(coin string) entities.OrderView {
	return entities.OrderView{
		OrderID:              uuid.New(),
		OrderType:            entities.OrderTypeDeposit,
		InTxError:            entities.TxErrorNoError,
		InTxConfirmations:    3,
		InTxMaxConfirmations: 3,
		OutTxCoin:            coin,
		OutTxToAddress:       "customer",
		OutTxAmount:          decimal.RequireFromString("10.1"),
	}
}

func newTestDispatcher(orders *fakeOrderService, sender *fakePayoutSender, notifier *fakeNotifier) *PayoutDispatcher {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPayoutDispatcher(logger, orders, sender, notifier, time.Second, 10)
}

func TestDispatchReadyOrders(t *testing.T) {
	first := readyView("FINTEH.USDT")
	second := readyView("FINTEH.BTC")

	orders := &fakeOrderService{ready: []entities.OrderView{first, second}}
	sender := &fakePayoutSender{}
	notifier := &fakeNotifier{}

	dispatcher := newTestDispatcher(orders, sender, notifier)
	require.NoError(t, dispatcher.dispatchReadyOrders(context.Background()))

	require.Equal(t, []uuid.UUID{first.OrderID, second.OrderID}, sender.sent)

	// each dispatched order got its payout hash recorded
	require.Len(t, orders.patched, 2)
	require.Equal(t, first.OrderID, orders.patched[0].OrderID)
	require.Nil(t, orders.patched[0].InTx)
	require.NotNil(t, orders.patched[0].OutTx)
	require.Equal(t, "chain-"+first.OrderID.String(), *orders.patched[0].OutTx.TxHash)

	require.Equal(t, []string{
		"chain-" + first.OrderID.String(),
		"chain-" + second.OrderID.String(),
	}, notifier.notified)
}

func TestDispatchSkipsFailedSends(t *testing.T) {
	broken := readyView("FINTEH.USDT")
	healthy := readyView("FINTEH.BTC")

	orders := &fakeOrderService{ready: []entities.OrderView{broken, healthy}}
	sender := &fakePayoutSender{failFor: map[uuid.UUID]error{broken.OrderID: errors.New("gateway down")}}
	notifier := &fakeNotifier{}

	dispatcher := newTestDispatcher(orders, sender, notifier)
	require.NoError(t, dispatcher.dispatchReadyOrders(context.Background()))

	// the broken order is skipped for this tick, the rest proceeds
	require.Equal(t, []uuid.UUID{healthy.OrderID}, sender.sent)
	require.Len(t, orders.patched, 1)
	require.Equal(t, healthy.OrderID, orders.patched[0].OrderID)
	require.Len(t, notifier.notified, 1)
}

func TestDispatchAbortsClaimOnUpdateFailure(t *testing.T) {
	orders := &fakeOrderService{
		ready:     []entities.OrderView{readyView("FINTEH.USDT")},
		updateErr: errors.New("connection reset"),
	}
	sender := &fakePayoutSender{}
	notifier := &fakeNotifier{}

	dispatcher := newTestDispatcher(orders, sender, notifier)
	err := dispatcher.dispatchReadyOrders(context.Background())
	require.ErrorIs(t, err, orders.updateErr)

	// nothing was recorded or announced
	require.Empty(t, orders.patched)
	require.Empty(t, notifier.notified)
}

func TestDispatchRespectsBatchSize(t *testing.T) {
	orders := &fakeOrderService{ready: []entities.OrderView{
		readyView("FINTEH.USDT"),
		readyView("FINTEH.USDT"),
		readyView("FINTEH.USDT"),
	}}
	sender := &fakePayoutSender{}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dispatcher := NewPayoutDispatcher(logger, orders, sender, nil, time.Second, 2)

	require.NoError(t, dispatcher.dispatchReadyOrders(context.Background()))
	require.Len(t, sender.sent, 2)
	require.Equal(t, 1, orders.claims)
}
