// Package pagination drains result sets larger than one page.
//
// A Walker is a lazy, finite, non-restartable sequence of pages. It calls its
// fetch function once per call to Next, strictly sequentially, and keeps
// nothing but the current page and the cursor of the next one. Abandoning a
// walker before exhaustion leaves nothing running.
//
// Two continuation styles are supported by the fetch function's return value:
//
//   - cursor tokens carried in the response payload (twitter next_token,
//     media cloud last_processed_stories_id)
//   - a Link response header advertising a rel="next" URL, from which
//     NextLinkParam extracts the resume parameter
//
// A backend echoing a cursor it already returned is treated as the end of
// the sequence, so a misbehaving backend cannot make a walker loop forever.
//
// Usage:
//
//	w := pagination.New(func(ctx context.Context, cursor string) ([]Row, string, error) {
//		return fetchPage(ctx, cursor)
//	})
//	for w.Next(ctx) {
//		process(w.Page())
//	}
//	if err := w.Err(); err != nil {
//		return err
//	}
package pagination

import (
	"context"
)

// FetchFunc retrieves the page addressed by cursor ("" for the first page)
// and returns the cursor of the following page, or "" when there is none.
type FetchFunc[T any] func(ctx context.Context, cursor string) (items []T, next string, err error)

// Walker iterates over pages produced by a FetchFunc.
type Walker[T any] struct {
	fetch  FetchFunc[T]
	cursor string
	seen   map[string]struct{}
	page   []T
	pages  int
	done   bool
	err    error
}

// New returns a walker positioned before the first page.
func New[T any](fetch FetchFunc[T]) *Walker[T] {
	return &Walker[T]{
		fetch: fetch,
		seen:  map[string]struct{}{"": {}},
	}
}

// Next fetches the next page. It returns false when the sequence is
// exhausted or a fetch failed; Err distinguishes the two.
func (w *Walker[T]) Next(ctx context.Context) bool {
	if w.done {
		return false
	}
	if err := ctx.Err(); err != nil {
		w.fail(err)
		return false
	}

	items, next, err := w.fetch(ctx, w.cursor)
	if err != nil {
		w.fail(err)
		return false
	}

	if _, repeated := w.seen[next]; repeated {
		// no cursor, or a cursor we already followed: nothing further to fetch
		w.done = true
	} else {
		w.seen[next] = struct{}{}
		w.cursor = next
	}

	// A trailing empty page carries no information.
	if len(items) == 0 && w.done && w.pages > 0 {
		w.page = nil
		return false
	}

	w.page = items
	w.pages++
	return true
}

func (w *Walker[T]) fail(err error) {
	w.err = err
	w.done = true
	w.page = nil
}

// Page returns the page fetched by the last successful call to Next.
func (w *Walker[T]) Page() []T {
	return w.page
}

// Pages returns how many pages have been yielded so far.
func (w *Walker[T]) Pages() int {
	return w.pages
}

// Err returns the error that stopped the walker, if any.
func (w *Walker[T]) Err() error {
	return w.err
}

// Collect drains the walker and concatenates every page. An error on any
// page discards what was collected.
func Collect[T any](ctx context.Context, w *Walker[T]) ([]T, error) {
	var all []T
	for w.Next(ctx) {
		all = append(all, w.Page()...)
	}
	if err := w.Err(); err != nil {
		return nil, err
	}
	return all, nil
}
