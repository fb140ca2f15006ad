// Package reqflow provides a declarative request lifecycle controller:
// one instance per subscriber that turns a request config into loading /
// response / error state so call sites stop hand-rolling "set loading,
// fire request, handle response, handle error, clean up" sequences.
//
//   - Config normalization with sensible execution-flag defaults
//   - Canonical URL resolution used for cache keying and no-op detection
//   - Per-instance response cache keyed by resolved URL, hit only on a
//     structurally identical config
//   - Explicit triggers with a pending gate and fixed-delay throttling
//   - Cooperative cancellation of superseded and torn-down requests
//   - Prometheus metrics and lightweight structured debug logging
//
// Design goals:
//   - Small surface area – functional options configure everything
//   - One in-flight request per controller, never a stale overwrite
//   - All transport policy (timeouts, redirects, retries) stays in the
//     injected HTTPDoer
//
// Typical usage:
//
//	ctrl := reqflow.New(
//	    reqflow.WithConfig(reqflow.RequestConfig{
//	        URL:     "/users",
//	        BaseURL: "https://api.example.com",
//	    }),
//	    reqflow.WithMetrics(),
//	)
//	defer ctrl.Close()
//
//	unsubscribe := ctrl.Subscribe(func(snap reqflow.Snapshot) {
//	    render(snap)
//	})
//	defer unsubscribe()
//
//	ctrl.Mount()
//
// Explicit re-issuance goes through SendRequest, which always invalidates
// the cache entry for the current URL:
//
//	ctrl.SendRequest(nil, 300*time.Millisecond)
//
// Errors never propagate to the subscriber as panics or return values;
// read them from Snapshot.Err. A cancelled request publishes nothing.
package reqflow
