package reqflow

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

// RequestConfig describes one HTTP request plus the controller-specific
// execution flags. The flag fields are pointers so that "absent" can be
// told apart from an explicit false; normalizeConfig fills in defaults.
type RequestConfig struct {
	Method  string
	URL     string
	BaseURL string
	Header  http.Header
	Body    []byte

	// Context, when non-nil, is used as the cancellation signal for the
	// dispatched request instead of a controller-owned one.
	Context context.Context

	// AutoExecute controls whether a resolve cycle issues the request
	// automatically. Defaults to true.
	AutoExecute *bool

	// WaitUntilMount defers the first automatic execution by one
	// lifecycle tick. Defaults to false.
	WaitUntilMount *bool
}

// Response is the buffered response envelope handed back by the
// controller. The body is fully read before the envelope is stored or
// published, so Data is always safe to reuse.
type Response struct {
	Data       []byte
	StatusCode int
	Header     http.Header
}

// JSON decodes the buffered body into v.
func (r *Response) JSON(v interface{}) error {
	if r == nil {
		return errors.New("reqflow: nil response")
	}
	return json.Unmarshal(r.Data, v)
}

// Snapshot is the consumer-facing view of the controller state.
//
// Outside the idle and loading states exactly one of Response and Err is
// non-nil. Entering the loading state clears both, so a snapshot never
// mixes data from a superseded cycle with a newer outcome.
type Snapshot struct {
	Data     []byte
	Loading  bool
	Err      error
	Response *Response
}

// State identifies the controller lifecycle state.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateHasResponse
	StateHasError
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateHasResponse:
		return "hasResponse"
	case StateHasError:
		return "hasError"
	default:
		return "unknown"
	}
}

// HTTPDoer executes a prepared request in the same manner as the standard
// library http.Client. All transport concerns (redirects, timeouts,
// retries) belong to the HTTPDoer, not the controller.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// CacheEntry is a stored successful exchange: the config the response was
// fetched under (controller-only fields stripped) and the buffered
// response.
type CacheEntry struct {
	Config   RequestConfig
	Response *Response
}

// Cache maps resolved URLs to their last successful exchange. A cache is
// owned by exactly one controller and is never shared between subscribers.
type Cache interface {
	Get(url string) (*CacheEntry, bool)
	Set(url string, entry *CacheEntry)
	Delete(url string)
	Clear()
	Len() int
}

// DeepEqualFunc is the structural equality predicate used for cache-hit
// detection on stripped configs.
type DeepEqualFunc func(a, b interface{}) bool

// Listener receives a snapshot after every state transition.
type Listener func(Snapshot)

// Option represents a configuration option.
type Option func(*Controller)
