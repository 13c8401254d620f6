// Package dedup holds the rolling set of idempotency keys used to drop
// repeated gameplay events.
package dedup

import "context"

// Store claims idempotency keys. Claim returns true the first time a key is
// seen within the TTL and false for every repeat.
type Store interface {
	Claim(ctx context.Context, key string) (bool, error)
	Sweep(ctx context.Context) (int64, error)
}

// Key namespaces a caller-supplied id by event kind. An empty id yields an
// empty key, meaning the event is not deduplicated.
func Key(kind, id string) string {
	if id == "" {
		return ""
	}
	return kind + ":" + id
}
