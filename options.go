package reqflow

import (
	"fmt"
	"net/http"
)

// WithConfig sets the initial request config. It is normalized during
// construction; defaults apply for the execution flags.
func WithConfig(cfg RequestConfig) Option {
	return func(c *Controller) {
		cfgCopy := cfg
		c.initial = &cfgCopy
	}
}

// WithHTTPDoer sets the transport collaborator executing requests.
func WithHTTPDoer(doer HTTPDoer) Option {
	return func(c *Controller) {
		c.doer = doer
	}
}

// WithHTTPClient sets a standard library client as the transport
// collaborator.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Controller) {
		c.doer = client
	}
}

// WithCache sets a custom cache store implementation.
func WithCache(cache Cache) Option {
	return func(c *Controller) {
		c.cache = cache
	}
}

// WithDeepEqual sets the structural equality predicate used for cache-hit
// detection and config-change detection.
func WithDeepEqual(fn DeepEqualFunc) Option {
	return func(c *Controller) {
		c.deepEqual = fn
	}
}

// WithLogger sets a custom logger for debug output.
func WithLogger(logger Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithSimpleLogger enables debug logging with a simple console logger.
func WithSimpleLogger() Option {
	return func(c *Controller) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
		c.logger = NewSimpleLogger()
	}
}

// WithDebug enables debug logging with default configuration.
func WithDebug() Option {
	return func(c *Controller) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
	}
}

// WithDebugConfig sets custom debug configuration.
func WithDebugConfig(config *DebugConfig) Option {
	return func(c *Controller) {
		c.debug = config
	}
}

// WithRequestIDGenerator sets a custom function for generating request IDs.
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Controller) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.RequestIDGen = gen
	}
}

// WithMetrics enables Prometheus metrics collection.
func WithMetrics() Option {
	return func(c *Controller) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector.
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Controller) {
		c.metrics = collector
	}
}

// ValidateConfiguration validates the controller configuration and
// returns an error if invalid.
func (c *Controller) ValidateConfiguration() error {
	var errs []string

	errs = append(errs, c.validateTransportConfig()...)
	errs = append(errs, c.validateCacheConfig()...)
	errs = append(errs, c.validateDebugConfig()...)

	if len(errs) > 0 {
		return &ControllerError{
			Type:    ErrorTypeValidation,
			Message: "configuration validation failed",
			Cause:   fmt.Errorf("validation errors: %v", errs),
		}
	}

	return nil
}

func (c *Controller) validateTransportConfig() []string {
	var errs []string

	if c.doer == nil {
		errs = append(errs, "HTTP doer cannot be nil")
	}

	return errs
}

func (c *Controller) validateCacheConfig() []string {
	var errs []string

	if c.cache == nil {
		errs = append(errs, "cache cannot be nil")
	}
	if c.deepEqual == nil {
		errs = append(errs, "deep equality predicate cannot be nil")
	}

	return errs
}

func (c *Controller) validateDebugConfig() []string {
	var errs []string

	if c.debug == nil {
		errs = append(errs, "debug config cannot be nil")
		return errs
	}
	if c.debug.Enabled {
		if c.debug.RequestIDGen == nil {
			errs = append(errs, "debug RequestIDGen must be set when debug is enabled")
		}
		if c.logger == nil {
			errs = append(errs, "logger must be set when debug is enabled")
		}
	}

	return errs
}
