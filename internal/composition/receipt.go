package composition

import (
	"context"

	"github.com/fleetintel/core/internal/dbpool"
)

// ReceiptWriter is the narrow surface composition needs from
// internal/mutation to record a composition-layer receipt inside the
// same transaction as a create/update/delete — the same one-way
// dependency shape as catalog.ReceiptWriter.
type ReceiptWriter interface {
	WriteOverlayReceipt(ctx context.Context, tx *dbpool.Tx, userID, layer string, changeset, inverse any) (receiptID string, err error)
}

// LayerComposition is the receipt layer tag every store in this package
// writes under (§3 "layer ∈ {reference, ownership, composition}").
const LayerComposition = "composition"
