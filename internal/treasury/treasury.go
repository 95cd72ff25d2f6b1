// Package treasury is the value-transfer capability the redemption engine
// invokes to move repayment funds from the issuer to the current bond owner.
// The engine treats any transfer failure as a hard abort; no redemption
// record is written on failure.
package treasury

import (
	"context"

	"veritasor/pkg/domain"
)

// TokenClient moves amount smallest units of the given token from one
// account to another. Implementations must be all-or-nothing per call.
type TokenClient interface {
	Transfer(ctx context.Context, token, from, to domain.Identity, amount int64) error
}
