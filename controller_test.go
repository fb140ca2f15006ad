package reqflow

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// recordingLogger captures log calls for assertions.
type recordingLogger struct {
	mu     sync.Mutex
	debugs []string
	infos  []string
	warns  []string
	errors []string
}

func (l *recordingLogger) Debug(msg string, _ ...interface{}) { l.record(&l.debugs, msg) }
func (l *recordingLogger) Info(msg string, _ ...interface{})  { l.record(&l.infos, msg) }
func (l *recordingLogger) Warn(msg string, _ ...interface{})  { l.record(&l.warns, msg) }
func (l *recordingLogger) Error(msg string, _ ...interface{}) { l.record(&l.errors, msg) }

func (l *recordingLogger) record(dst *[]string, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*dst = append(*dst, msg)
}

// watch subscribes a buffered channel to the controller's transitions.
func watch(c *Controller) chan Snapshot {
	ch := make(chan Snapshot, 32)
	c.Subscribe(func(s Snapshot) { ch <- s })
	return ch
}

func waitFor(t *testing.T, ch chan Snapshot, pred func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-ch:
			if pred(s) {
				return s
			}
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
		}
	}
}

func hasResponse(s Snapshot) bool { return s.Response != nil }
func hasError(s Snapshot) bool    { return s.Err != nil }

func countingServer(t *testing.T, body string) (*httptest.Server, *int64) {
	t.Helper()
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		if _, err := w.Write([]byte(body)); err != nil {
			t.Errorf("failed to write response: %v", err)
		}
	}))
	return server, &hits
}

func TestNewDefaults(t *testing.T) {
	c := New()
	defer c.Close()

	if !c.IsValid() {
		t.Fatalf("default controller should be valid, got %v", c.ValidationError())
	}
	if !c.autoExecute {
		t.Error("AutoExecute should default to true")
	}
	if c.waitMount {
		t.Error("WaitUntilMount should default to false")
	}
	if c.State() != StateIdle {
		t.Errorf("initial state should be idle, got %v", c.State())
	}
}

func TestNewWithURLOnlyConfig(t *testing.T) {
	c := New(WithConfig(RequestConfig{URL: "http://x"}))
	defer c.Close()

	if !c.autoExecute || c.waitMount {
		t.Error("flag defaults should apply when only URL is set")
	}
	if c.ResolvedURL() != "http://x" {
		t.Errorf("resolved URL = %q, want http://x", c.ResolvedURL())
	}
}

func TestConstructionDoesNotIssueRequest(t *testing.T) {
	server, hits := countingServer(t, "ok")
	defer server.Close()

	c := New(WithConfig(RequestConfig{URL: server.URL}))
	defer c.Close()

	time.Sleep(50 * time.Millisecond)
	if n := atomic.LoadInt64(hits); n != 0 {
		t.Errorf("construction dispatched %d requests, want 0", n)
	}
}

func TestMountDispatchesAndPublishesResponse(t *testing.T) {
	server, hits := countingServer(t, "hello")
	defer server.Close()

	c := New(WithConfig(RequestConfig{URL: server.URL}))
	defer c.Close()
	ch := watch(c)

	c.Mount()

	loading := waitFor(t, ch, func(s Snapshot) bool { return s.Loading })
	if loading.Response != nil || loading.Err != nil {
		t.Error("loading snapshot should carry no data")
	}

	snap := waitFor(t, ch, hasResponse)
	if string(snap.Data) != "hello" {
		t.Errorf("data = %q, want hello", snap.Data)
	}
	if snap.Response.StatusCode != 200 {
		t.Errorf("status = %d, want 200", snap.Response.StatusCode)
	}
	if snap.Err != nil {
		t.Errorf("unexpected error %v", snap.Err)
	}
	if n := atomic.LoadInt64(hits); n != 1 {
		t.Errorf("server hits = %d, want 1", n)
	}
}

func TestMountIsIdempotent(t *testing.T) {
	server, hits := countingServer(t, "ok")
	defer server.Close()

	c := New(WithConfig(RequestConfig{URL: server.URL}))
	defer c.Close()
	ch := watch(c)

	c.Mount()
	waitFor(t, ch, hasResponse)
	c.Mount()
	c.Mount()

	time.Sleep(50 * time.Millisecond)
	if n := atomic.LoadInt64(hits); n != 1 {
		t.Errorf("repeat mounts dispatched extra requests: hits = %d, want 1", n)
	}
}

func TestUpdateWithIdenticalConfigIsNoOp(t *testing.T) {
	server, hits := countingServer(t, "ok")
	defer server.Close()

	c := New(WithConfig(RequestConfig{URL: server.URL}))
	defer c.Close()
	ch := watch(c)

	c.Mount()
	waitFor(t, ch, hasResponse)

	c.Update(RequestConfig{URL: server.URL})
	time.Sleep(50 * time.Millisecond)
	if n := atomic.LoadInt64(hits); n != 1 {
		t.Errorf("identical update refetched: hits = %d, want 1", n)
	}
}

func TestIdempotentCacheHit(t *testing.T) {
	serverA, hitsA := countingServer(t, "from A")
	defer serverA.Close()
	serverB, _ := countingServer(t, "from B")
	defer serverB.Close()

	c := New(WithConfig(RequestConfig{URL: serverA.URL}))
	defer c.Close()
	ch := watch(c)

	c.Mount()
	waitFor(t, ch, func(s Snapshot) bool { return s.Response != nil && string(s.Data) == "from A" })

	c.Update(RequestConfig{URL: serverB.URL})
	waitFor(t, ch, func(s Snapshot) bool { return s.Response != nil && string(s.Data) == "from B" })

	// Back to A: replayed from cache, no network call.
	c.Update(RequestConfig{URL: serverA.URL})
	snap := waitFor(t, ch, func(s Snapshot) bool { return s.Response != nil && string(s.Data) == "from A" })

	if snap.Err != nil {
		t.Errorf("unexpected error %v", snap.Err)
	}
	if n := atomic.LoadInt64(hitsA); n != 1 {
		t.Errorf("cache hit still reached the server: hits = %d, want 1", n)
	}
}

func TestCacheMissOnConfigChangeSameURL(t *testing.T) {
	server, hits := countingServer(t, "ok")
	defer server.Close()

	c := New(WithConfig(RequestConfig{URL: server.URL}))
	defer c.Close()
	ch := watch(c)

	c.Mount()
	waitFor(t, ch, hasResponse)

	// Same URL, different header: stored config no longer matches.
	c.Update(RequestConfig{URL: server.URL, Header: http.Header{"X-Variant": []string{"b"}}})
	waitFor(t, ch, hasResponse)

	if n := atomic.LoadInt64(hits); n != 2 {
		t.Errorf("config change at same URL should refetch: hits = %d, want 2", n)
	}
}

func TestAutoExecuteFalseWaitsForTrigger(t *testing.T) {
	server, hits := countingServer(t, "ok")
	defer server.Close()

	c := New(WithConfig(RequestConfig{
		URL:         server.URL,
		AutoExecute: boolPtr(false),
	}))
	defer c.Close()
	ch := watch(c)

	c.Mount()
	time.Sleep(50 * time.Millisecond)
	if n := atomic.LoadInt64(hits); n != 0 {
		t.Fatalf("manual mode dispatched automatically: hits = %d", n)
	}

	c.SendRequest(nil, 0)
	waitFor(t, ch, hasResponse)
	if n := atomic.LoadInt64(hits); n != 1 {
		t.Errorf("trigger should dispatch exactly once, hits = %d", n)
	}
}

func TestWaitUntilMountDefersFirstCycle(t *testing.T) {
	server, hits := countingServer(t, "ok")
	defer server.Close()

	c := New(WithConfig(RequestConfig{
		URL:            server.URL,
		WaitUntilMount: boolPtr(true),
	}))
	defer c.Close()
	ch := watch(c)

	c.Mount()
	time.Sleep(50 * time.Millisecond)
	if n := atomic.LoadInt64(hits); n != 0 {
		t.Fatalf("first mount tick should only be recorded, hits = %d", n)
	}

	c.Mount()
	waitFor(t, ch, hasResponse)
	if n := atomic.LoadInt64(hits); n != 1 {
		t.Errorf("second mount tick should dispatch once, hits = %d", n)
	}
}

func TestTransportErrorIsStoredVerbatim(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from now on

	c := New(WithConfig(RequestConfig{URL: server.URL}))
	defer c.Close()
	ch := watch(c)

	c.Mount()
	snap := waitFor(t, ch, hasError)

	if snap.Response != nil || snap.Data != nil {
		t.Error("error snapshot should carry no response data")
	}
	if c.State() != StateHasError {
		t.Errorf("state = %v, want hasError", c.State())
	}
	if c.cache.(*InMemoryCache).Len() != 0 {
		t.Error("failed exchange must not populate the cache")
	}
}

func TestNonOKStatusIsAResponseNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer server.Close()

	c := New(WithConfig(RequestConfig{URL: server.URL}))
	defer c.Close()
	ch := watch(c)

	c.Mount()
	snap := waitFor(t, ch, hasResponse)

	if snap.Response.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", snap.Response.StatusCode)
	}
	if snap.Err != nil {
		t.Error("a delivered response is not a transport error")
	}
	if c.cache.(*InMemoryCache).Len() != 0 {
		t.Error("4xx responses must not populate the cache")
	}
}

func TestCancellationSilence(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		if _, err := w.Write([]byte("late")); err != nil {
			return
		}
	}))
	defer server.Close()
	defer close(release)

	c := New(WithConfig(RequestConfig{URL: server.URL}))
	ch := watch(c)

	c.Mount()
	waitFor(t, ch, func(s Snapshot) bool { return s.Loading })
	<-started

	c.Close()

	// Give the aborted completion a chance to (incorrectly) publish.
	time.Sleep(100 * time.Millisecond)
	select {
	case s := <-ch:
		t.Errorf("cancelled request published a snapshot: %+v", s)
	default:
	}
}

func TestSupersededResponseExclusion(t *testing.T) {
	release := make(chan struct{})
	slowStarted := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(slowStarted)
		<-release
		_, _ = w.Write([]byte("slow"))
	}))
	defer slow.Close()
	fast, _ := countingServer(t, "fast")
	defer fast.Close()

	c := New(WithConfig(RequestConfig{URL: slow.URL}))
	defer c.Close()
	ch := watch(c)

	c.Mount()
	<-slowStarted

	c.Update(RequestConfig{URL: fast.URL})
	waitFor(t, ch, func(s Snapshot) bool { return s.Response != nil && string(s.Data) == "fast" })

	close(release)
	time.Sleep(100 * time.Millisecond)

	snap := c.Snapshot()
	if string(snap.Data) != "fast" {
		t.Errorf("superseded completion overwrote state: data = %q", snap.Data)
	}
	if _, found := c.cache.Get(slow.URL + "/"); found {
		t.Error("superseded completion must not populate the cache")
	}
	if _, found := c.cache.Get(slow.URL); found {
		t.Error("superseded completion must not populate the cache")
	}
}

func TestRequestCarriesMethodHeadersAndBody(t *testing.T) {
	type seen struct {
		method string
		header string
		body   string
	}
	got := make(chan seen, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- seen{method: r.Method, header: r.Header.Get("X-Token"), body: string(body)}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	c := New(WithConfig(RequestConfig{
		Method: "POST",
		URL:    server.URL,
		Header: http.Header{"X-Token": []string{"secret"}},
		Body:   []byte(`{"a":1}`),
	}))
	defer c.Close()
	ch := watch(c)

	c.Mount()
	waitFor(t, ch, hasResponse)

	s := <-got
	if s.method != "POST" {
		t.Errorf("method = %q, want POST", s.method)
	}
	if s.header != "secret" {
		t.Errorf("header = %q, want secret", s.header)
	}
	if s.body != `{"a":1}` {
		t.Errorf("body = %q", s.body)
	}
}

func TestCloseMakesEntryPointsNoOps(t *testing.T) {
	server, hits := countingServer(t, "ok")
	defer server.Close()

	c := New(WithConfig(RequestConfig{URL: server.URL}))
	c.Close()
	c.Close() // second close is a no-op

	c.Mount()
	c.Update(RequestConfig{URL: server.URL})
	c.SendRequest(nil, 0)

	time.Sleep(50 * time.Millisecond)
	if n := atomic.LoadInt64(hits); n != 0 {
		t.Errorf("closed controller dispatched %d requests", n)
	}
}

func TestResponseJSON(t *testing.T) {
	resp := &Response{Data: []byte(`{"name":"x"}`)}

	var out struct {
		Name string `json:"name"`
	}
	if err := resp.JSON(&out); err != nil {
		t.Fatalf("JSON() error: %v", err)
	}
	if out.Name != "x" {
		t.Errorf("decoded name = %q", out.Name)
	}

	var nilResp *Response
	if err := nilResp.JSON(&out); err == nil {
		t.Error("nil response should error")
	}
}
