// Package revocation tracks logged-out session tokens by their jti until
// they would have expired anyway.
package revocation

import (
	"context"
	"time"
)

// Store records revoked token ids
type Store interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
