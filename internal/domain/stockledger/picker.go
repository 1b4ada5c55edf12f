package stockledger

import (
	"github.com/wms/backend/internal/domain/shared"
)

// PickMinimum selects the storage-location row to take one reserved unit
// from: the row with the smallest total among rows where the decrement stays
// valid (reserve > 0 before, total > 0 after). Draining the smallest pile
// first consolidates fragmented low-quantity locations over time.
//
// Ties keep the earlier row, so with a stable input order the choice is
// deterministic. The caller must hold the per-key mutex across this pick and
// the following decrement.
func PickMinimum(rows []StockTotal) (*StockTotal, error) {
	var best *StockTotal
	for i := range rows {
		row := &rows[i]
		if row.Reserve <= 0 || row.Total <= 0 {
			continue
		}
		if best == nil || row.Total < best.Total {
			best = row
		}
	}
	if best == nil {
		return nil, shared.ErrInsufficientStock
	}
	return best, nil
}
