package stockledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/shared"
)

// LineIdentity is the product identity of one request line, as stable const
// identifiers. Products can lose or gain offer granularity over time (a
// variation may be retired after stock was counted), so a ledger lookup must
// fall back through the hierarchy rather than demand an exact match.
type LineIdentity struct {
	ProductID         uuid.UUID
	OfferConst        *uuid.UUID
	VariationConst    *uuid.UUID
	ModificationConst *uuid.UUID
	Storage           string
}

// CandidateKeys returns the ledger keys to try for a line at a profile, most
// specific first: modification -> variation -> offer -> base product. The
// list is pure data; Resolver walks it against the repository.
func CandidateKeys(profileID uuid.UUID, line LineIdentity) []RowKey {
	base := RowKey{
		ProfileID: profileID,
		ProductID: line.ProductID,
		Storage:   line.Storage,
	}

	keys := make([]RowKey, 0, 4)
	if line.ModificationConst != nil {
		k := base
		k.OfferConst = line.OfferConst
		k.VariationConst = line.VariationConst
		k.ModificationConst = line.ModificationConst
		keys = append(keys, k)
	}
	if line.VariationConst != nil {
		k := base
		k.OfferConst = line.OfferConst
		k.VariationConst = line.VariationConst
		keys = append(keys, k)
	}
	if line.OfferConst != nil {
		k := base
		k.OfferConst = line.OfferConst
		keys = append(keys, k)
	}
	keys = append(keys, base)
	return keys
}

// RowFinder is the read surface the resolver needs from the repository
type RowFinder interface {
	FindRow(ctx context.Context, key RowKey) (*StockTotal, error)
}

// Resolver locates the most specific existing ledger row for a line.
type Resolver struct {
	finder RowFinder
}

// NewResolver creates a resolver over a row finder
func NewResolver(finder RowFinder) *Resolver {
	return &Resolver{finder: finder}
}

// Resolve tries each candidate key in hierarchy order and returns the first
// existing row. ErrUnresolvedIdentifier when no level resolves: that is a
// data-integrity error the caller must surface loudly, never swallow.
func (r *Resolver) Resolve(ctx context.Context, profileID uuid.UUID, line LineIdentity) (*StockTotal, error) {
	for _, key := range CandidateKeys(profileID, line) {
		row, err := r.finder.FindRow(ctx, key)
		if err == nil {
			return row, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
	}
	return nil, shared.ErrUnresolvedIdentifier
}
