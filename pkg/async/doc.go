// Package async provides a small generic Future for work that completes on
// another goroutine.
//
// Async starts a function in its own goroutine and returns a *Future right
// away. Callers that care about the result use Await or AwaitContext; callers
// that don't can drop the Future. Resolved and Rejected build futures that are
// complete from the start, which lets an API return a Future uniformly even
// when no background work was needed.
//
//	f := async.Async(ctx, id, func(ctx context.Context, id string) (Result, error) {
//	    return client.Fetch(ctx, id)
//	})
//	res, err := f.AwaitContext(ctx)
//
// WaitAll and WaitAllContext wait for a set of futures and collect their
// results in argument order.
package async
