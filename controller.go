package reqflow

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/ambiyansyah-risyal/reqflow/internal/gate"
)

// Controller manages the request lifecycle for one subscriber: it
// normalizes the active config, resolves the canonical URL, replays
// cached responses, dispatches at most one request at a time through the
// HTTPDoer, and cancels superseded work. It is safe for concurrent use.
type Controller struct {
	mu sync.Mutex

	doer      HTTPDoer
	cache     Cache
	deepEqual DeepEqualFunc
	logger    Logger
	debug     *DebugConfig
	metrics   *MetricsCollector

	initial *RequestConfig

	config      RequestConfig
	autoExecute bool
	waitMount   bool
	resolvedURL string

	mounted          bool
	dispatched       bool
	dispatchedURL    string
	dispatchedConfig RequestConfig
	forceNext        bool

	lastTrigger  time.Time
	triggerTimer *time.Timer
	triggerGate  *gate.Gate

	generation     uint64
	cancelInFlight context.CancelFunc
	baseCtx        context.Context
	baseStop       context.CancelFunc

	machine      machineState
	listeners    []Listener
	listenerIDs  []int
	nextListener int

	closed          bool
	validationError error
}

// New constructs a Controller using the provided functional options. A
// best effort validation is performed; call IsValid / ValidationError for
// errors. Construction never issues a request: the first resolve cycle
// runs on Mount or Update.
func New(options ...Option) *Controller {
	baseCtx, baseStop := context.WithCancel(context.Background())
	c := &Controller{
		doer:        http.DefaultClient,
		cache:       NewInMemoryCache(),
		deepEqual:   reflect.DeepEqual,
		debug:       DefaultDebugConfig(),
		triggerGate: gate.New(),
		baseCtx:     baseCtx,
		baseStop:    baseStop,
	}

	for _, option := range options {
		option(c)
	}

	norm := normalizeConfig(c.initial)
	c.installConfigLocked(norm, c.resolveLocked(norm))

	if err := c.ValidateConfiguration(); err != nil {
		c.validationError = err
	}

	return c
}

// Mount signals one lifecycle tick and runs a resolve cycle. Under
// WaitUntilMount the first cycle only records the tick; the next one
// executes. Hosts with double-invocation mount semantics call Mount on
// each pass. On a controller that failed validation Mount is a no-op.
func (c *Controller) Mount() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.validationError != nil {
		return
	}
	c.resolveCycleLocked()
}

// Update installs a new request config. When the normalized config and
// its resolved URL are unchanged the call is a no-op; otherwise any
// in-flight request is cancelled and a resolve cycle runs.
func (c *Controller) Update(cfg RequestConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.validationError != nil {
		return
	}

	norm := normalizeConfig(&cfg)
	resolved := c.resolveLocked(norm)

	if resolved == c.resolvedURL &&
		*norm.AutoExecute == c.autoExecute &&
		*norm.WaitUntilMount == c.waitMount &&
		c.deepEqual(stripConfig(norm), stripConfig(c.config)) {
		return
	}

	c.cancelInFlightLocked()
	c.installConfigLocked(norm, resolved)
	c.resolveCycleLocked()
}

// Close tears the controller down: the in-flight request is cancelled,
// any pending trigger is dropped and the cache is cleared. Further calls
// are no-ops.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.cancelInFlightLocked()
	c.baseStop()
	if c.triggerTimer != nil {
		c.triggerTimer.Stop()
		c.triggerTimer = nil
	}
	c.triggerGate.Finish()
	if c.cache != nil {
		c.cache.Clear()
		c.recordCacheSizeLocked()
	}
}

// installConfigLocked makes norm the active config.
func (c *Controller) installConfigLocked(norm RequestConfig, resolved string) {
	c.config = norm
	c.autoExecute = *norm.AutoExecute
	c.waitMount = *norm.WaitUntilMount
	c.resolvedURL = resolved
}

// resolveLocked computes the canonical URL for norm. Resolution failures
// are logged and reported to metrics but never fatal: the empty result
// suppresses request issuance.
func (c *Controller) resolveLocked(norm RequestConfig) string {
	resolved, err := resolveURL(norm)
	if err != nil {
		rerr := c.newResolveError(err, c.requestIDLocked(), norm.URL)
		if c.logger != nil {
			c.logger.Error("URL resolution failed", "url", norm.URL, "baseURL", norm.BaseURL, "error", rerr.Error())
		}
		if c.metrics != nil {
			c.metrics.RecordError(ErrorTypeResolve, endpointFromURL(norm.BaseURL))
		}
		return ""
	}
	return resolved
}

// resolveCycleLocked is the automatic re-evaluation run on mount, config
// change and trigger apply. It replays a config-identical cache entry or
// dispatches a fresh request; gates in order: mount tick, empty URL,
// manual execution, unchanged identity.
func (c *Controller) resolveCycleLocked() {
	if c.waitMount && !c.mounted {
		c.mounted = true
		return
	}
	if c.resolvedURL == "" {
		return
	}
	if !c.autoExecute && c.lastTrigger.IsZero() {
		return
	}

	stripped := stripConfig(c.config)
	if c.dispatched && !c.forceNext &&
		c.dispatchedURL == c.resolvedURL &&
		c.deepEqual(c.dispatchedConfig, stripped) {
		return
	}
	c.dispatched = true
	c.dispatchedURL = c.resolvedURL
	c.dispatchedConfig = stripped
	c.forceNext = false

	endpoint := endpointFromURL(c.resolvedURL)

	if entry, ok := c.lookupCache(c.resolvedURL, stripped); ok {
		if c.debug != nil && c.debug.Enabled && c.debug.LogCache && c.logger != nil {
			c.logger.Debug("Cache hit", "url", c.resolvedURL)
		}
		if c.metrics != nil {
			c.metrics.RecordCacheHit(endpoint)
		}
		c.dispatch(eventResponse, entry.Response, nil)
		return
	}
	if c.debug != nil && c.debug.Enabled && c.debug.LogCache && c.logger != nil {
		c.logger.Debug("Cache miss", "url", c.resolvedURL)
	}
	if c.metrics != nil {
		c.metrics.RecordCacheMiss(endpoint)
	}

	c.issueLocked(stripped, endpoint)
}

// issueLocked dispatches the active config through the HTTPDoer. The
// request runs under a controller-owned cancel context unless the config
// carries its own; either way a generation check excludes superseded
// completions.
func (c *Controller) issueLocked(stripped RequestConfig, endpoint string) {
	c.generation++
	gen := c.generation

	method := c.config.Method
	if method == "" {
		method = http.MethodGet
	}

	ctx := c.config.Context
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(c.baseCtx)
		c.cancelInFlight = cancel
	} else {
		c.cancelInFlight = nil
	}

	var body io.Reader
	if len(c.config.Body) > 0 {
		body = bytes.NewReader(c.config.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.resolvedURL, body)
	if err != nil {
		if c.cancelInFlight != nil {
			c.cancelInFlight()
			c.cancelInFlight = nil
		}
		c.dispatch(eventError, nil, err)
		return
	}
	for k, values := range c.config.Header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}

	c.dispatch(eventLoading, nil, nil)

	requestID := c.requestIDLocked()
	if c.debug != nil && c.debug.Enabled && c.debug.LogRequests && c.logger != nil {
		c.logger.Debug("Dispatching request", "requestID", requestID, "method", method, "url", c.resolvedURL)
	}
	if c.metrics != nil {
		c.metrics.RecordRequestStart(method, endpoint)
	}

	resolved := c.resolvedURL
	start := time.Now()

	go func() {
		resp, err := c.doer.Do(req)
		var envelope *Response
		if err == nil {
			envelope, err = bufferResponse(resp)
		}
		c.complete(gen, ctx, resolved, stripped, method, endpoint, requestID, start, envelope, err)
	}()
}

// complete applies the outcome of one dispatched request. Cancelled or
// superseded completions are silent: they must not touch the state
// machine or the cache.
func (c *Controller) complete(gen uint64, ctx context.Context, resolved string, stripped RequestConfig, method, endpoint, requestID string, start time.Time, resp *Response, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	duration := time.Since(start)
	if c.metrics != nil {
		c.metrics.RecordRequestEnd(method, endpoint)
	}

	superseded := c.closed || gen != c.generation
	cancelled := ctx.Err() == context.Canceled || errors.Is(err, context.Canceled)
	if superseded || cancelled {
		if c.debug != nil && c.debug.Enabled && c.debug.LogRequests && c.logger != nil {
			c.logger.Debug("Dropping cancelled or superseded completion", "requestID", requestID, "url", resolved)
		}
		if c.metrics != nil {
			c.metrics.RecordCancellation(endpoint)
		}
		return
	}

	if err != nil {
		if c.debug != nil && c.debug.Enabled && c.debug.LogRequests && c.logger != nil {
			c.logger.Warn("Request failed", "requestID", requestID, "url", resolved, "error", err.Error())
		}
		if c.metrics != nil {
			c.metrics.RecordRequest(method, endpoint, 0, duration)
			c.metrics.RecordError("Transport", endpoint)
		}
		c.dispatch(eventError, nil, err)
		return
	}

	if c.metrics != nil {
		c.metrics.RecordRequest(method, endpoint, resp.StatusCode, duration)
	}
	if resp.StatusCode < 400 {
		c.cache.Set(resolved, &CacheEntry{Config: stripped, Response: resp})
		c.recordCacheSizeLocked()
	}
	c.dispatch(eventResponse, resp, nil)
}

// cancelInFlightLocked signals the current in-flight request, if any, and
// bumps the generation so a completion racing the cancel is still
// excluded. Caller-supplied contexts are not cancelled by the controller;
// the generation check alone supersedes them.
func (c *Controller) cancelInFlightLocked() {
	c.generation++
	if c.cancelInFlight != nil {
		c.cancelInFlight()
		c.cancelInFlight = nil
	}
}

func (c *Controller) recordCacheSizeLocked() {
	if c.metrics != nil {
		c.metrics.RecordCacheSize(c.cache.Len())
	}
}

func (c *Controller) requestIDLocked() string {
	if c.debug != nil && c.debug.Enabled && c.debug.RequestIDGen != nil {
		return c.debug.RequestIDGen()
	}
	return ""
}

// IsValid reports whether configuration validation passed at construction.
func (c *Controller) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Controller) ValidationError() error {
	return c.validationError
}

// ResolvedURL returns the canonical URL the active config resolves to.
// Empty means no request is constructible yet.
func (c *Controller) ResolvedURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolvedURL
}

func bufferResponse(resp *http.Response) (*Response, error) {
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &Response{
		Data:       data,
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
	}, nil
}

func endpointFromURL(raw string) string {
	if raw == "" {
		return "unknown"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	var builder strings.Builder
	builder.WriteString(u.Host)

	if u.Path != "" && u.Path != "/" {
		builder.WriteString(u.Path)
	} else {
		builder.WriteByte('/')
	}

	return builder.String()
}
