package paging

import (
	"context"
	"iter"
)

// Request is a request that carries a page token. WithPageToken returns a
// copy with the token replaced.
type Request[R any] interface {
	WithPageToken(token string) R
}

// Page is one page of results.
type Page[T any] struct {
	Items         []T
	NextPageToken string // Empty on the last page
}

// FetchFunc fetches one page.
type FetchFunc[R any, T any] func(ctx context.Context, req R) (Page[T], error)

// Pages yields every page starting at req. Iteration stops at the first
// error, which is yielded, or after the page with an empty NextPageToken.
func Pages[R Request[R], T any](ctx context.Context, req R, fetch FetchFunc[R, T]) iter.Seq2[Page[T], error] {
	return func(yield func(Page[T], error) bool) {
		for {
			if err := ctx.Err(); err != nil {
				yield(Page[T]{}, err)
				return
			}

			page, err := fetch(ctx, req)
			if err != nil {
				yield(Page[T]{}, err)
				return
			}
			if !yield(page, nil) {
				return
			}
			if page.NextPageToken == "" {
				return
			}
			req = req.WithPageToken(page.NextPageToken)
		}
	}
}

// Items yields every item across all pages.
func Items[R Request[R], T any](ctx context.Context, req R, fetch FetchFunc[R, T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for page, err := range Pages(ctx, req, fetch) {
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			for _, item := range page.Items {
				if !yield(item, nil) {
					return
				}
			}
		}
	}
}

// Collect gathers every item. On error the items read so far are returned
// with it.
func Collect[R Request[R], T any](ctx context.Context, req R, fetch FetchFunc[R, T]) ([]T, error) {
	var out []T
	for item, err := range Items(ctx, req, fetch) {
		if err != nil {
			return out, err
		}
		out = append(out, item)
	}
	return out, nil
}
