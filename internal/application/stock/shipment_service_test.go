package stock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/stockledger"
)

// fakeMutex records acquisitions and hands out no-op releases
type fakeMutex struct {
	mu       sync.Mutex
	acquired []string
	released int
}

func (m *fakeMutex) Acquire(_ context.Context, key string, _, _ time.Duration) (func(context.Context) error, error) {
	m.mu.Lock()
	m.acquired = append(m.acquired, key)
	m.mu.Unlock()
	return func(context.Context) error {
		m.mu.Lock()
		m.released++
		m.mu.Unlock()
		return nil
	}, nil
}

func TestDecrementUnitPicksSmallestReservedRow(t *testing.T) {
	ledger := newFakeLedger()
	mutex := &fakeMutex{}
	svc := NewShipmentService(ledger, mutex, time.Second, time.Minute, zap.NewNop())

	profileID := uuid.New()
	productID := uuid.New()
	ledger.seed(stockledger.RowKey{ProfileID: profileID, ProductID: productID, Storage: "A-01"}, 5, 2)
	small := ledger.seed(stockledger.RowKey{ProfileID: profileID, ProductID: productID, Storage: "B-02"}, 3, 1)
	ledger.seed(stockledger.RowKey{ProfileID: profileID, ProductID: productID, Storage: "C-03"}, 2, 0)

	row, err := svc.DecrementUnit(context.Background(), profileID, stockledger.LineIdentity{ProductID: productID})
	require.NoError(t, err)

	assert.Equal(t, "B-02", row.Storage)
	assert.Equal(t, 2, small.Total)
	assert.Equal(t, 0, small.Reserve)

	require.Len(t, mutex.acquired, 1)
	assert.Equal(t, 1, mutex.released)
}

func TestDecrementUnitWithoutReserveFails(t *testing.T) {
	ledger := newFakeLedger()
	svc := NewShipmentService(ledger, &fakeMutex{}, time.Second, time.Minute, zap.NewNop())

	profileID := uuid.New()
	productID := uuid.New()
	ledger.seed(stockledger.RowKey{ProfileID: profileID, ProductID: productID, Storage: "A-01"}, 5, 0)

	_, err := svc.DecrementUnit(context.Background(), profileID, stockledger.LineIdentity{ProductID: productID})
	assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
}

func TestDecrementUnitPropagatesLockTimeout(t *testing.T) {
	ledger := newFakeLedger()
	svc := NewShipmentService(ledger, timeoutMutex{}, time.Second, time.Minute, zap.NewNop())

	_, err := svc.DecrementUnit(context.Background(), uuid.New(), stockledger.LineIdentity{ProductID: uuid.New()})
	assert.True(t, errors.Is(err, shared.ErrLockTimeout))
}

type timeoutMutex struct{}

func (timeoutMutex) Acquire(context.Context, string, time.Duration, time.Duration) (func(context.Context) error, error) {
	return nil, shared.ErrLockTimeout
}
