package core

import (
	"context"
	"net/http"

	"github.com/rubiojr/glimpse/pkg/cache"
	"github.com/rubiojr/glimpse/pkg/pagination"
)

// Platform identifies the kind of content (tweets, submissions, news stories).
type Platform string

// Source identifies the backend that serves a platform's content.
type Source string

const (
	PlatformOnlineNews Platform = "online_news"
	PlatformTwitter    Platform = "twitter"
	PlatformReddit     Platform = "reddit"
)

const (
	SourceMediaCloud Source = "mediacloud"
	SourceWayback    Source = "wayback"
	SourceTwitter    Source = "twitter"
	SourcePushshift  Source = "pushshift"
)

// Provider is the contract every backend adapter satisfies. Callers depend
// only on this interface and never on a concrete adapter.
//
// Not every backend can answer every operation. Adapters embed Unsupported
// and override what their backend offers; the remaining operations fail
// with ErrUnsupportedOperation instead of being approximated.
//
// Implementations hold no per-request state and are safe for concurrent use.
type Provider interface {
	// Platform and Source return the pair this provider is registered under.
	Platform() Platform
	Source() Source

	// Sample returns up to limit matching items. Ordering is backend defined.
	Sample(ctx context.Context, q Query, limit int) ([]Row, error)

	// Count returns the number of matching items in the query range. It
	// equals the Total of CountOverTime for the same query when both are
	// served by the same remote index.
	Count(ctx context.Context, q Query) (int64, error)

	// CountOverTime returns one bucket per backend period. An empty range
	// yields an empty bucket list and a zero total, not an error.
	CountOverTime(ctx context.Context, q Query) (*CountOverTime, error)

	// NormalizedCountOverTime divides the query total by the query
	// independent document volume of the same range.
	NormalizedCountOverTime(ctx context.Context, q Query) (*NormalizedCountOverTime, error)

	// Item fetches a single item by its backend native id. Missing items
	// fail with ErrNotFound.
	Item(ctx context.Context, id string) (*Row, error)

	// Words returns the top terms of a sample of the matching items.
	Words(ctx context.Context, q Query, limit int) ([]WordCount, error)

	// Tags returns the top tags of a sample of the matching items.
	Tags(ctx context.Context, q Query, limit int) ([]TagCount, error)

	// AllItems returns a lazy walker over every matching item, one page per
	// call to Next. Pages are fetched only when asked for.
	AllItems(q Query) (*pagination.Walker[Row], error)
}

// ProviderConfig carries what an adapter needs at construction time. A
// missing credential is not an error: calls are then made anonymously and
// the backend decides how to answer them.
type ProviderConfig struct {
	// APIKey is the API key or bearer token of the backend, if it needs one.
	APIKey string

	// BaseURL overrides the backend's default endpoint (tests, mirrors).
	BaseURL string

	// Cache memoizes the adapter's network calls. A nil cache disables memoization.
	Cache *cache.Cache

	// HTTPClient is used for every upstream request. Defaults to a client
	// with a 60s timeout.
	HTTPClient *http.Client
}

// ProviderFactory builds a configured provider.
type ProviderFactory func(cfg ProviderConfig) (Provider, error)

// Unsupported implements every Provider operation by failing with
// ErrUnsupportedOperation. Adapters embed it and override the operations
// their backend supports.
type Unsupported struct {
	// Name is the provider name reported in errors, e.g. "twitter/twitter".
	Name string
}

func (u Unsupported) unsupported(op string) error {
	return &UnsupportedOperationError{Provider: u.Name, Operation: op}
}

func (u Unsupported) Sample(ctx context.Context, q Query, limit int) ([]Row, error) {
	return nil, u.unsupported("sample")
}

func (u Unsupported) Count(ctx context.Context, q Query) (int64, error) {
	return 0, u.unsupported("count")
}

func (u Unsupported) CountOverTime(ctx context.Context, q Query) (*CountOverTime, error) {
	return nil, u.unsupported("count_over_time")
}

func (u Unsupported) NormalizedCountOverTime(ctx context.Context, q Query) (*NormalizedCountOverTime, error) {
	return nil, u.unsupported("normalized_count_over_time")
}

func (u Unsupported) Item(ctx context.Context, id string) (*Row, error) {
	return nil, u.unsupported("item")
}

func (u Unsupported) Words(ctx context.Context, q Query, limit int) ([]WordCount, error) {
	return nil, u.unsupported("words")
}

func (u Unsupported) Tags(ctx context.Context, q Query, limit int) ([]TagCount, error) {
	return nil, u.unsupported("tags")
}

func (u Unsupported) AllItems(q Query) (*pagination.Walker[Row], error) {
	return nil, u.unsupported("all_items")
}

// ProviderName renders the canonical "platform/source" name of a provider.
func ProviderName(platform Platform, source Source) string {
	return string(platform) + "/" + string(source)
}
