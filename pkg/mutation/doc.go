// Package mutation coordinates optimistic deletes against the shared list
// cache.
//
// A delete from a list view should disappear from the screen immediately,
// come back if the server rejects it, and leave the cache consistent with
// the server once the request settles. A Coordinator runs that lifecycle for
// one list key:
//
//  1. Begin cancels in-flight fetches for the key, snapshots the cached
//     entry and removes the target item from it, decrementing total.
//  2. The caller sends the request.
//  3. On failure Rollback writes the snapshot back unchanged. On success
//     Succeed runs the configured callback.
//  4. Settle marks every configured key stale, whatever the outcome.
//
// Run performs all four steps around a caller supplied function.
//
// Basic usage:
//
//	coord, err := mutation.New(mutation.Config[client.Agent, uuid.UUID]{
//	    Cache:    manager,
//	    Key:      client.AgentsKey(50, 0),
//	    ItemID:   func(a client.Agent) string { return a.ID.String() },
//	    TargetID: func(id uuid.UUID) string { return id.String() },
//	})
//	err = coord.Run(ctx, agentID, func(ctx context.Context, id uuid.UUID) error {
//	    return c.DeleteAgent(ctx, id)
//	})
//
// Only entries with status 200 whose payload is an object with an "items"
// array and a non-negative integer "total" are rewritten. Anything else is
// left in the cache as it was.
package mutation
