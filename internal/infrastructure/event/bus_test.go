package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/stockrequest"
)

type recordingHandler struct {
	mu       sync.Mutex
	name     string
	types    []string
	priority int
	err      error
	panics   bool
	seen     []string
	order    *[]string
}

func (h *recordingHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	h.seen = append(h.seen, event.EventType())
	if h.order != nil {
		*h.order = append(*h.order, h.name)
	}
	h.mu.Unlock()

	if h.panics {
		panic("handler exploded")
	}
	return h.err
}

func (h *recordingHandler) EventTypes() []string { return h.types }
func (h *recordingHandler) Priority() int        { return h.priority }

func newStatusChanged() *stockrequest.StatusChangedEvent {
	return stockrequest.NewStatusChangedEvent(uuid.New(), uuid.New(), nil)
}

func TestInMemoryEventBus_DispatchesToSubscribers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := &recordingHandler{types: []string{stockrequest.EventTypeStatusChanged}}
	bus.Subscribe(h)

	err := bus.Publish(context.Background(), newStatusChanged())
	require.NoError(t, err)
	assert.Equal(t, []string{stockrequest.EventTypeStatusChanged}, h.seen)
}

func TestInMemoryEventBus_SkipsUnrelatedHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := &recordingHandler{types: []string{stockrequest.EventTypeOrderEdited}}
	bus.Subscribe(h)

	require.NoError(t, bus.Publish(context.Background(), newStatusChanged()))
	assert.Empty(t, h.seen)
}

func TestInMemoryEventBus_HandlerErrorDoesNotStopOthers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	failing := &recordingHandler{types: []string{stockrequest.EventTypeStatusChanged}, err: errors.New("boom")}
	healthy := &recordingHandler{types: []string{stockrequest.EventTypeStatusChanged}}
	bus.Subscribe(failing)
	bus.Subscribe(healthy)

	require.NoError(t, bus.Publish(context.Background(), newStatusChanged()))
	assert.Len(t, healthy.seen, 1)
}

func TestInMemoryEventBus_HandlerPanicIsRecovered(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	panicking := &recordingHandler{types: []string{stockrequest.EventTypeStatusChanged}, panics: true}
	healthy := &recordingHandler{types: []string{stockrequest.EventTypeStatusChanged}}
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	require.NotPanics(t, func() {
		_ = bus.Publish(context.Background(), newStatusChanged())
	})
	assert.Len(t, healthy.seen, 1)
}

func TestInMemoryEventBus_PriorityOrdersDispatch(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	var order []string
	late := &recordingHandler{name: "late", types: []string{stockrequest.EventTypeStatusChanged}, priority: 10, order: &order}
	early := &recordingHandler{name: "early", types: []string{stockrequest.EventTypeStatusChanged}, priority: 1, order: &order}
	bus.Subscribe(late)
	bus.Subscribe(early)

	require.NoError(t, bus.Publish(context.Background(), newStatusChanged()))
	assert.Equal(t, []string{"early", "late"}, order)
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := &recordingHandler{types: []string{stockrequest.EventTypeStatusChanged}}
	bus.Subscribe(h)
	bus.Unsubscribe(h)

	require.NoError(t, bus.Publish(context.Background(), newStatusChanged()))
	assert.Empty(t, h.seen)
}

func TestInMemoryEventBus_WildcardReceivesAll(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := &recordingHandler{}
	bus.Subscribe(h)

	require.NoError(t, bus.Publish(context.Background(),
		newStatusChanged(),
		stockrequest.NewOrderEditedEvent(uuid.New()),
	))
	assert.Equal(t, []string{
		stockrequest.EventTypeStatusChanged,
		stockrequest.EventTypeOrderEdited,
	}, h.seen)
}
