package stock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/stockledger"
	"github.com/wms/backend/internal/domain/stockrequest"
	"github.com/wms/backend/internal/domain/warehouse"
)

// fakeLedger is an in-memory stockledger.Repository that enforces the same
// quantity invariant as the conditional update in the real one.
type fakeLedger struct {
	mu   sync.Mutex
	rows []*stockledger.StockTotal
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{}
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func keysEqual(row *stockledger.StockTotal, key stockledger.RowKey) bool {
	return row.ProfileID == key.ProfileID &&
		row.ProductID == key.ProductID &&
		uuidPtrEqual(row.OfferConst, key.OfferConst) &&
		uuidPtrEqual(row.VariationConst, key.VariationConst) &&
		uuidPtrEqual(row.ModificationConst, key.ModificationConst) &&
		row.Storage == key.Storage
}

func (f *fakeLedger) FindRow(_ context.Context, key stockledger.RowKey) (*stockledger.StockTotal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if keysEqual(row, key) {
			return row, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeLedger) FindByID(_ context.Context, id uuid.UUID) (*stockledger.StockTotal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.ID == id {
			return row, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeLedger) GetOrCreate(ctx context.Context, key stockledger.RowKey) (*stockledger.StockTotal, error) {
	if row, err := f.FindRow(ctx, key); err == nil {
		return row, nil
	}
	row, err := stockledger.NewRow(key)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.rows = append(f.rows, row)
	f.mu.Unlock()
	return row, nil
}

func (f *fakeLedger) ApplyDelta(_ context.Context, rowID uuid.UUID, totalDelta, reserveDelta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.ID != rowID {
			continue
		}
		total := row.Total + totalDelta
		reserve := row.Reserve + reserveDelta
		if total < 0 || reserve < 0 || reserve > total {
			return shared.ErrPreconditionFailed
		}
		row.Total = total
		row.Reserve = reserve
		row.UpdatedAt = time.Now()
		return nil
	}
	return shared.ErrNotFound
}

func (f *fakeLedger) ListReserved(_ context.Context, profileID uuid.UUID, line stockledger.LineIdentity) ([]stockledger.StockTotal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []stockledger.StockTotal
	for _, row := range f.rows {
		if row.ProfileID == profileID &&
			row.ProductID == line.ProductID &&
			uuidPtrEqual(row.OfferConst, line.OfferConst) &&
			uuidPtrEqual(row.VariationConst, line.VariationConst) &&
			uuidPtrEqual(row.ModificationConst, line.ModificationConst) &&
			row.Reserve > 0 {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (f *fakeLedger) ListByProduct(_ context.Context, profileID, productID uuid.UUID) ([]stockledger.StockTotal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []stockledger.StockTotal
	for _, row := range f.rows {
		if row.ProfileID == profileID && row.ProductID == productID {
			out = append(out, *row)
		}
	}
	return out, nil
}

// seed creates a row with the given quantities
func (f *fakeLedger) seed(key stockledger.RowKey, total, reserve int) *stockledger.StockTotal {
	row, _ := stockledger.NewRow(key)
	row.Total = total
	row.Reserve = reserve
	f.mu.Lock()
	f.rows = append(f.rows, row)
	f.mu.Unlock()
	return row
}

// sumTotals adds up Total across every row of a product, all profiles
func (f *fakeLedger) sumTotals(productID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	sum := 0
	for _, row := range f.rows {
		if row.ProductID == productID {
			sum += row.Total
		}
	}
	return sum
}

// fakeRequests is an in-memory stockrequest.Repository
type fakeRequests struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*stockrequest.StockRequest
	events   map[uuid.UUID]*stockrequest.Event
	appends  int
}

func newFakeRequests() *fakeRequests {
	return &fakeRequests{
		requests: make(map[uuid.UUID]*stockrequest.StockRequest),
		events:   make(map[uuid.UUID]*stockrequest.Event),
	}
}

func (f *fakeRequests) FindByID(_ context.Context, id uuid.UUID) (*stockrequest.StockRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return req, nil
}

func (f *fakeRequests) FindByNumber(_ context.Context, number string) (*stockrequest.StockRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, req := range f.requests {
		if req.Number == number {
			return req, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeRequests) FindByOrderID(_ context.Context, orderID uuid.UUID) (*stockrequest.StockRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, req := range f.requests {
		ev := f.events[req.CurrentEventID]
		if ev != nil && ev.OrderID != nil && *ev.OrderID == orderID {
			return req, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeRequests) FindEventByID(_ context.Context, id uuid.UUID) (*stockrequest.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.events[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return ev, nil
}

func (f *fakeRequests) ListByStatus(_ context.Context, status stockrequest.Status, _, _ int) ([]stockrequest.StockRequest, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []stockrequest.StockRequest
	for _, req := range f.requests {
		ev := f.events[req.CurrentEventID]
		if ev != nil && ev.Status == status {
			out = append(out, *req)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeRequests) Create(_ context.Context, req *stockrequest.StockRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests[req.ID] = req
	f.events[req.CurrentEvent.ID] = req.CurrentEvent
	req.ClearDomainEvents()
	return nil
}

func (f *fakeRequests) Append(_ context.Context, req *stockrequest.StockRequest, event *stockrequest.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[event.ID] = event
	f.requests[req.ID] = req
	f.appends++
	req.ClearDomainEvents()
	return nil
}

// fakeWarehouses answers the logistics flag from a map
type fakeWarehouses struct {
	logistics map[uuid.UUID]bool
}

func (f *fakeWarehouses) FindByID(_ context.Context, id uuid.UUID) (*warehouse.Profile, error) {
	flag, ok := f.logistics[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &warehouse.Profile{ID: id, Name: "profile", Logistics: flag}, nil
}

func (f *fakeWarehouses) IsLogistics(_ context.Context, id uuid.UUID) (bool, error) {
	return f.logistics[id], nil
}

func (f *fakeWarehouses) Save(_ context.Context, profile *warehouse.Profile) error {
	f.logistics[profile.ID] = profile.Logistics
	return nil
}

// fakeGate mirrors the check-mutate-record pattern of the dedup gate
type fakeGate struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newFakeGate() *fakeGate {
	return &fakeGate{seen: make(map[string]bool)}
}

func (g *fakeGate) Begin(_ context.Context, key string) (DedupTicket, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return &fakeTicket{gate: g, key: key, fresh: !g.seen[key]}, nil
}

type fakeTicket struct {
	gate  *fakeGate
	key   string
	fresh bool
}

func (t *fakeTicket) Fresh() bool { return t.fresh }

func (t *fakeTicket) Commit(context.Context) {
	t.gate.mu.Lock()
	t.gate.seen[t.key] = true
	t.gate.mu.Unlock()
}

// fakeOrders serves order lines from a map
type fakeOrders struct {
	lines map[uuid.UUID][]stockrequest.LineSpec
}

func (f *fakeOrders) Lines(_ context.Context, orderID uuid.UUID) ([]stockrequest.LineSpec, error) {
	return f.lines[orderID], nil
}

// recordingNotifier captures published notices
type recordingNotifier struct {
	mu      sync.Mutex
	notices []stockrequest.Notice
}

func (n *recordingNotifier) Publish(_ context.Context, notice stockrequest.Notice) error {
	n.mu.Lock()
	n.notices = append(n.notices, notice)
	n.mu.Unlock()
	return nil
}

func (n *recordingNotifier) Subscribe(ctx context.Context, _ func(stockrequest.Notice)) error {
	<-ctx.Done()
	return ctx.Err()
}

func (n *recordingNotifier) Close() error { return nil }
