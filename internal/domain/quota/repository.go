package quota

import "context"

// PolicyStore is the persistence port for quota policies. At most one
// policy exists per owner; Save upserts by owner id.
type PolicyStore interface {
	FindByOwner(ctx context.Context, ownerID int64) (*Policy, error)
	Save(ctx context.Context, policy *Policy) (*Policy, error)
}

// Counter is the shared window counter. Increment atomically bumps the
// (caller, window) entry and returns the post-increment value. The
// implementation must set the entry's TTL to the window duration exactly
// once, when the increment creates the entry, so later increments never
// extend it. The increment must be atomic at the counter store itself:
// multiple server processes share these entries.
type Counter interface {
	Increment(ctx context.Context, ownerID int64, window Window) (int64, error)
}
