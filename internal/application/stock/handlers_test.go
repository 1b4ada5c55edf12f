package stock

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/stockledger"
	"github.com/wms/backend/internal/domain/stockrequest"
)

type handlerFixture struct {
	requests   *fakeRequests
	ledger     *fakeLedger
	warehouses *fakeWarehouses
	gate       *fakeGate
	resolver   *stockledger.Resolver
}

func newHandlerFixture() *handlerFixture {
	ledger := newFakeLedger()
	return &handlerFixture{
		requests:   newFakeRequests(),
		ledger:     ledger,
		warehouses: &fakeWarehouses{logistics: make(map[uuid.UUID]bool)},
		gate:       newFakeGate(),
		resolver:   stockledger.NewResolver(ledger),
	}
}

func (f *handlerFixture) open(t *testing.T, spec stockrequest.NewRequestSpec) (*stockrequest.StockRequest, *stockrequest.StatusChangedEvent) {
	t.Helper()
	req, err := stockrequest.NewStockRequest(spec)
	require.NoError(t, err)
	msg := req.GetDomainEvents()[0].(*stockrequest.StatusChangedEvent)
	require.NoError(t, f.requests.Create(context.Background(), req))
	return req, msg
}

func (f *handlerFixture) advance(t *testing.T, req *stockrequest.StockRequest, status stockrequest.Status) *stockrequest.StatusChangedEvent {
	t.Helper()
	event, err := req.ChangeStatus(status, "")
	require.NoError(t, err)
	events := req.GetDomainEvents()
	msg := events[len(events)-1].(*stockrequest.StatusChangedEvent)
	require.NoError(t, f.requests.Append(context.Background(), req, event))
	return msg
}

func oneLine(productID uuid.UUID, qty int, storage string) []stockrequest.LineSpec {
	return []stockrequest.LineSpec{{ProductID: productID, Quantity: qty, Storage: storage}}
}

func TestIncomingAcceptCountsReceipt(t *testing.T) {
	f := newHandlerFixture()
	h := NewIncomingAcceptHandler(f.requests, f.ledger, f.gate, zap.NewNop())
	ctx := context.Background()

	profileID := uuid.New()
	productID := uuid.New()
	req, _ := f.open(t, stockrequest.NewRequestSpec{
		Number:    "SR-1001",
		Status:    stockrequest.StatusWarehouse,
		ProfileID: profileID,
		Lines:     oneLine(productID, 5, "A-01"),
	})

	msg := f.advance(t, req, stockrequest.StatusIncoming)
	require.NoError(t, h.Handle(ctx, msg))

	row, err := f.ledger.FindRow(ctx, stockledger.RowKey{ProfileID: profileID, ProductID: productID, Storage: "A-01"})
	require.NoError(t, err)
	assert.Equal(t, 5, row.Total)
	assert.Equal(t, 0, row.Reserve)
}

func TestIncomingAcceptIdempotentOnRedelivery(t *testing.T) {
	f := newHandlerFixture()
	h := NewIncomingAcceptHandler(f.requests, f.ledger, f.gate, zap.NewNop())
	ctx := context.Background()

	profileID := uuid.New()
	productID := uuid.New()
	req, _ := f.open(t, stockrequest.NewRequestSpec{
		Number:    "SR-1002",
		Status:    stockrequest.StatusWarehouse,
		ProfileID: profileID,
		Lines:     oneLine(productID, 5, "A-01"),
	})

	msg := f.advance(t, req, stockrequest.StatusIncoming)
	require.NoError(t, h.Handle(ctx, msg))
	require.NoError(t, h.Handle(ctx, msg))
	require.NoError(t, h.Handle(ctx, msg))

	assert.Equal(t, 5, f.ledger.sumTotals(productID))
}

func TestIncomingAcceptIgnoresPlainCancel(t *testing.T) {
	f := newHandlerFixture()
	h := NewIncomingAcceptHandler(f.requests, f.ledger, f.gate, zap.NewNop())
	ctx := context.Background()

	profileID := uuid.New()
	productID := uuid.New()
	req, _ := f.open(t, stockrequest.NewRequestSpec{
		Number:    "SR-1003",
		Status:    stockrequest.StatusWarehouse,
		ProfileID: profileID,
		Lines:     oneLine(productID, 5, "A-01"),
	})

	incoming := f.advance(t, req, stockrequest.StatusIncoming)
	require.NoError(t, h.Handle(ctx, incoming))

	// Cancel after a plain receipt: the stock was counted in once and stays
	cancel := f.advance(t, req, stockrequest.StatusCancel)
	require.NoError(t, h.Handle(ctx, cancel))

	assert.Equal(t, 5, f.ledger.sumTotals(productID))
}

func TestIncomingAcceptCountsReversalReentry(t *testing.T) {
	f := newHandlerFixture()
	h := NewIncomingAcceptHandler(f.requests, f.ledger, f.gate, zap.NewNop())
	ctx := context.Background()

	profileID := uuid.New()
	productID := uuid.New()
	req, _ := f.open(t, stockrequest.NewRequestSpec{
		Number:    "SR-1004",
		Status:    stockrequest.StatusPackage,
		ProfileID: profileID,
		Lines:     oneLine(productID, 3, "B-02"),
	})

	f.advance(t, req, stockrequest.StatusExtradition)
	f.advance(t, req, stockrequest.StatusCompleted)

	// Completed -> Incoming itself counts nothing: the previous status is
	// not Warehouse, and the goods are only back once the cancel lands
	incoming := f.advance(t, req, stockrequest.StatusIncoming)
	require.NoError(t, h.Handle(ctx, incoming))
	assert.Equal(t, 0, f.ledger.sumTotals(productID))

	cancel := f.advance(t, req, stockrequest.StatusCancel)
	require.NoError(t, h.Handle(ctx, cancel))
	assert.Equal(t, 3, f.ledger.sumTotals(productID))
}

func TestMovingReserveCommitsAtLogisticsSource(t *testing.T) {
	f := newHandlerFixture()
	h := NewMovingReserveHandler(f.requests, f.ledger, f.resolver, f.warehouses, f.gate, zap.NewNop())
	ctx := context.Background()

	source := uuid.New()
	dest := uuid.New()
	productID := uuid.New()
	f.warehouses.logistics[source] = true
	row := f.ledger.seed(stockledger.RowKey{ProfileID: source, ProductID: productID, Storage: "A-01"}, 10, 0)

	req, _ := f.open(t, stockrequest.NewRequestSpec{
		Number:        "SR-2001",
		Status:        stockrequest.StatusPackage,
		ProfileID:     source,
		DestProfileID: &dest,
		Lines:         oneLine(productID, 4, "A-01"),
	})

	msg := f.advance(t, req, stockrequest.StatusMoving)
	require.NoError(t, h.Handle(ctx, msg))

	assert.Equal(t, 10, row.Total)
	assert.Equal(t, 4, row.Reserve)
}

func TestMovingReserveSkipsNonLogisticsSource(t *testing.T) {
	f := newHandlerFixture()
	h := NewMovingReserveHandler(f.requests, f.ledger, f.resolver, f.warehouses, f.gate, zap.NewNop())
	ctx := context.Background()

	source := uuid.New()
	dest := uuid.New()
	productID := uuid.New()
	row := f.ledger.seed(stockledger.RowKey{ProfileID: source, ProductID: productID, Storage: "A-01"}, 10, 0)

	req, _ := f.open(t, stockrequest.NewRequestSpec{
		Number:        "SR-2002",
		Status:        stockrequest.StatusPackage,
		ProfileID:     source,
		DestProfileID: &dest,
		Lines:         oneLine(productID, 4, "A-01"),
	})

	msg := f.advance(t, req, stockrequest.StatusMoving)
	require.NoError(t, h.Handle(ctx, msg))

	assert.Equal(t, 0, row.Reserve)
}

func TestMovingReserveFallsBackThroughHierarchy(t *testing.T) {
	f := newHandlerFixture()
	h := NewMovingReserveHandler(f.requests, f.ledger, f.resolver, f.warehouses, f.gate, zap.NewNop())
	ctx := context.Background()

	source := uuid.New()
	dest := uuid.New()
	productID := uuid.New()
	offer := uuid.New()
	f.warehouses.logistics[source] = true

	// Only a base-product row exists; the line names an offer that was
	// retired after the stock was counted
	base := f.ledger.seed(stockledger.RowKey{ProfileID: source, ProductID: productID, Storage: "A-01"}, 8, 0)

	req, _ := f.open(t, stockrequest.NewRequestSpec{
		Number:        "SR-2003",
		Status:        stockrequest.StatusPackage,
		ProfileID:     source,
		DestProfileID: &dest,
		Lines: []stockrequest.LineSpec{{
			ProductID:  productID,
			OfferConst: &offer,
			Quantity:   2,
			Storage:    "A-01",
		}},
	})

	msg := f.advance(t, req, stockrequest.StatusMoving)
	require.NoError(t, h.Handle(ctx, msg))

	assert.Equal(t, 2, base.Reserve)
}

func TestTransferCompletedConservesQuantity(t *testing.T) {
	f := newHandlerFixture()
	h := NewTransferCompletedHandler(f.requests, f.ledger, f.resolver, f.warehouses, f.gate, zap.NewNop())
	ctx := context.Background()

	source := uuid.New()
	dest := uuid.New()
	productID := uuid.New()
	f.warehouses.logistics[source] = true
	sourceRow := f.ledger.seed(stockledger.RowKey{ProfileID: source, ProductID: productID, Storage: "A-01"}, 10, 4)

	req, _ := f.open(t, stockrequest.NewRequestSpec{
		Number:        "SR-3001",
		Status:        stockrequest.StatusPackage,
		ProfileID:     source,
		DestProfileID: &dest,
		Lines:         oneLine(productID, 4, "A-01"),
	})
	f.advance(t, req, stockrequest.StatusMoving)

	msg := f.advance(t, req, stockrequest.StatusCompleted)
	require.NoError(t, h.Handle(ctx, msg))

	assert.Equal(t, 6, sourceRow.Total)
	assert.Equal(t, 0, sourceRow.Reserve)

	destRow, err := f.ledger.FindRow(ctx, stockledger.RowKey{ProfileID: dest, ProductID: productID, Storage: "A-01"})
	require.NoError(t, err)
	assert.Equal(t, 4, destRow.Total)
	assert.Equal(t, 0, destRow.Reserve)

	assert.Equal(t, 10, f.ledger.sumTotals(productID))
}

func TestTransferCompletedSettlesOnIncomingAtDestination(t *testing.T) {
	f := newHandlerFixture()
	h := NewTransferCompletedHandler(f.requests, f.ledger, f.resolver, f.warehouses, f.gate, zap.NewNop())
	ctx := context.Background()

	source := uuid.New()
	dest := uuid.New()
	productID := uuid.New()
	f.warehouses.logistics[source] = true
	sourceRow := f.ledger.seed(stockledger.RowKey{ProfileID: source, ProductID: productID, Storage: "A-01"}, 10, 4)

	req, _ := f.open(t, stockrequest.NewRequestSpec{
		Number:        "SR-3004",
		Status:        stockrequest.StatusPackage,
		ProfileID:     source,
		DestProfileID: &dest,
		Lines:         oneLine(productID, 4, "A-01"),
	})
	f.advance(t, req, stockrequest.StatusMoving)

	msg := f.advance(t, req, stockrequest.StatusIncoming)
	require.NoError(t, h.Handle(ctx, msg))

	assert.Equal(t, 6, sourceRow.Total)
	assert.Equal(t, 0, sourceRow.Reserve)

	destRow, err := f.ledger.FindRow(ctx, stockledger.RowKey{ProfileID: dest, ProductID: productID, Storage: "A-01"})
	require.NoError(t, err)
	assert.Equal(t, 4, destRow.Total)
	assert.Equal(t, 10, f.ledger.sumTotals(productID))
}

func TestTransferCompletedNonLogisticsSourceKeepsReserveUntouched(t *testing.T) {
	f := newHandlerFixture()
	h := NewTransferCompletedHandler(f.requests, f.ledger, f.resolver, f.warehouses, f.gate, zap.NewNop())
	ctx := context.Background()

	source := uuid.New()
	dest := uuid.New()
	productID := uuid.New()
	sourceRow := f.ledger.seed(stockledger.RowKey{ProfileID: source, ProductID: productID, Storage: "A-01"}, 10, 0)

	req, _ := f.open(t, stockrequest.NewRequestSpec{
		Number:        "SR-3002",
		Status:        stockrequest.StatusPackage,
		ProfileID:     source,
		DestProfileID: &dest,
		Lines:         oneLine(productID, 4, "A-01"),
	})
	f.advance(t, req, stockrequest.StatusMoving)

	msg := f.advance(t, req, stockrequest.StatusCompleted)
	require.NoError(t, h.Handle(ctx, msg))

	assert.Equal(t, 6, sourceRow.Total)
	assert.Equal(t, 0, sourceRow.Reserve)
	assert.Equal(t, 10, f.ledger.sumTotals(productID))
}

func TestTransferCompletedInsufficientStockMutatesNothing(t *testing.T) {
	f := newHandlerFixture()
	h := NewTransferCompletedHandler(f.requests, f.ledger, f.resolver, f.warehouses, f.gate, zap.NewNop())
	ctx := context.Background()

	source := uuid.New()
	dest := uuid.New()
	productID := uuid.New()
	sourceRow := f.ledger.seed(stockledger.RowKey{ProfileID: source, ProductID: productID, Storage: "A-01"}, 2, 0)

	req, _ := f.open(t, stockrequest.NewRequestSpec{
		Number:        "SR-3003",
		Status:        stockrequest.StatusPackage,
		ProfileID:     source,
		DestProfileID: &dest,
		Lines:         oneLine(productID, 5, "A-01"),
	})
	f.advance(t, req, stockrequest.StatusMoving)

	msg := f.advance(t, req, stockrequest.StatusCompleted)
	require.NoError(t, h.Handle(ctx, msg))

	assert.Equal(t, 2, sourceRow.Total)
	_, err := f.ledger.FindRow(ctx, stockledger.RowKey{ProfileID: dest, ProductID: productID, Storage: "A-01"})
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestMovingCancelReleasesReserve(t *testing.T) {
	f := newHandlerFixture()
	h := NewMovingCancelHandler(f.requests, f.ledger, f.resolver, f.warehouses, f.gate, zap.NewNop())
	ctx := context.Background()

	source := uuid.New()
	dest := uuid.New()
	productID := uuid.New()
	f.warehouses.logistics[source] = true
	row := f.ledger.seed(stockledger.RowKey{ProfileID: source, ProductID: productID, Storage: "A-01"}, 10, 4)

	req, _ := f.open(t, stockrequest.NewRequestSpec{
		Number:        "SR-4001",
		Status:        stockrequest.StatusPackage,
		ProfileID:     source,
		DestProfileID: &dest,
		Lines:         oneLine(productID, 4, "A-01"),
	})
	f.advance(t, req, stockrequest.StatusMoving)

	msg := f.advance(t, req, stockrequest.StatusCancel)
	require.NoError(t, h.Handle(ctx, msg))

	assert.Equal(t, 10, row.Total)
	assert.Equal(t, 0, row.Reserve)
}

func TestMovingCancelIgnoresCancelFromOtherStatuses(t *testing.T) {
	f := newHandlerFixture()
	h := NewMovingCancelHandler(f.requests, f.ledger, f.resolver, f.warehouses, f.gate, zap.NewNop())
	ctx := context.Background()

	source := uuid.New()
	productID := uuid.New()
	f.warehouses.logistics[source] = true
	row := f.ledger.seed(stockledger.RowKey{ProfileID: source, ProductID: productID, Storage: "A-01"}, 10, 4)

	req, _ := f.open(t, stockrequest.NewRequestSpec{
		Number:    "SR-4002",
		Status:    stockrequest.StatusPackage,
		ProfileID: source,
		Lines:     oneLine(productID, 4, "A-01"),
	})

	msg := f.advance(t, req, stockrequest.StatusCancel)
	require.NoError(t, h.Handle(ctx, msg))

	assert.Equal(t, 4, row.Reserve)
}

func TestMovingCancelSkipsOrderDrivenCancellation(t *testing.T) {
	f := newHandlerFixture()
	h := NewMovingCancelHandler(f.requests, f.ledger, f.resolver, f.warehouses, f.gate, zap.NewNop())
	ctx := context.Background()

	source := uuid.New()
	dest := uuid.New()
	orderID := uuid.New()
	productID := uuid.New()
	f.warehouses.logistics[source] = true
	row := f.ledger.seed(stockledger.RowKey{ProfileID: source, ProductID: productID, Storage: "A-01"}, 10, 4)

	req, _ := f.open(t, stockrequest.NewRequestSpec{
		Number:        "SR-4003",
		Status:        stockrequest.StatusPackage,
		ProfileID:     source,
		OrderID:       &orderID,
		DestProfileID: &dest,
		Lines:         oneLine(productID, 4, "A-01"),
	})
	f.advance(t, req, stockrequest.StatusMoving)

	msg := f.advance(t, req, stockrequest.StatusCancel)
	require.NoError(t, h.Handle(ctx, msg))

	// the order-cancel flow owns this reversal
	assert.Equal(t, 4, row.Reserve)
}

func TestOrderEditedRebuildsPickList(t *testing.T) {
	f := newHandlerFixture()
	ctx := context.Background()

	orderID := uuid.New()
	profileID := uuid.New()
	productID := uuid.New()
	orders := &fakeOrders{lines: map[uuid.UUID][]stockrequest.LineSpec{
		orderID: {{ProductID: productID, Quantity: 3, Storage: "A-01"}},
	}}
	notifier := &recordingNotifier{}
	h := NewOrderEditedHandler(f.requests, orders, notifier, f.gate, zap.NewNop())

	req, _ := f.open(t, stockrequest.NewRequestSpec{
		Number:    "SR-5001",
		Status:    stockrequest.StatusPackage,
		ProfileID: profileID,
		OrderID:   &orderID,
		Lines:     oneLine(productID, 7, "A-01"),
	})

	msg := stockrequest.NewOrderEditedEvent(orderID)
	require.NoError(t, h.Handle(ctx, msg))

	assert.Equal(t, 1, f.requests.appends)
	require.Len(t, req.CurrentEvent.Lines, 1)
	assert.Equal(t, 3, req.CurrentEvent.Lines[0].Quantity)
	assert.Equal(t, stockrequest.StatusPackage, req.CurrentEvent.Status)

	require.Len(t, notifier.notices, 1)
	assert.Equal(t, stockrequest.NoticeUpdated, notifier.notices[0].Action)
	assert.Equal(t, req.ID, notifier.notices[0].RequestID)

	// Redelivery of the same edit message appends nothing
	require.NoError(t, h.Handle(ctx, msg))
	assert.Equal(t, 1, f.requests.appends)
}

func TestOrderEditedIgnoresRequestsBeforePackage(t *testing.T) {
	f := newHandlerFixture()
	ctx := context.Background()

	orderID := uuid.New()
	productID := uuid.New()
	orders := &fakeOrders{lines: map[uuid.UUID][]stockrequest.LineSpec{
		orderID: {{ProductID: productID, Quantity: 3, Storage: "A-01"}},
	}}
	h := NewOrderEditedHandler(f.requests, orders, nil, f.gate, zap.NewNop())

	req, _ := f.open(t, stockrequest.NewRequestSpec{
		Number:    "SR-5002",
		Status:    stockrequest.StatusWarehouse,
		ProfileID: uuid.New(),
		OrderID:   &orderID,
		Lines:     oneLine(productID, 7, "A-01"),
	})

	require.NoError(t, h.Handle(ctx, stockrequest.NewOrderEditedEvent(orderID)))
	assert.Equal(t, 0, f.requests.appends)
	assert.Equal(t, 7, req.CurrentEvent.Lines[0].Quantity)
}

func TestOrderEditedWithoutLinkedRequestIsNoOp(t *testing.T) {
	f := newHandlerFixture()
	h := NewOrderEditedHandler(f.requests, &fakeOrders{}, nil, f.gate, zap.NewNop())

	err := h.Handle(context.Background(), stockrequest.NewOrderEditedEvent(uuid.New()))
	require.NoError(t, err)
}
