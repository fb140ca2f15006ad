package reqflow

import (
	"net/url"
	"strings"
)

// resolveURL derives the canonical URL used for cache keying and no-op
// detection. An empty result means no request is constructible yet.
//
// Rules: an absolute http(s) URL is returned verbatim; a relative URL is
// joined against BaseURL when one is present; a relative URL without a
// BaseURL passes through unchanged. Join failures are reported through
// the returned error and yield "".
func resolveURL(cfg RequestConfig) (string, error) {
	if cfg.URL == "" {
		return "", nil
	}
	if isAbsoluteHTTP(cfg.URL) {
		return cfg.URL, nil
	}
	if cfg.BaseURL == "" {
		return cfg.URL, nil
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return "", err
	}
	if base.Scheme == "" || base.Host == "" {
		return "", &url.Error{Op: "resolve", URL: cfg.BaseURL, Err: errBaseNotAbsolute}
	}
	ref, err := url.Parse(cfg.URL)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

func isAbsoluteHTTP(raw string) bool {
	if len(raw) < len("http://") {
		return false
	}
	lower := strings.ToLower(raw)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
