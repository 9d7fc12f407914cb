package httpx

import (
	"context"

	"golang.org/x/sync/singleflight"
)

var readGroup singleflight.Group

// Coalesce collapses concurrent identical reads into a single call of fn.
func Coalesce(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error, bool) {
	resultChan := readGroup.DoChan(key, func() (any, error) {
		return fn(ctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err(), false
	case res := <-resultChan:
		return res.Val, res.Err, res.Shared
	}
}
