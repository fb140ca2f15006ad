package reqflow

import "time"

// SendRequest is the explicit trigger: it invalidates the cache entry for
// the current resolved URL and forces a fresh resolve cycle, optionally
// installing a new config first.
//
// While an apply is pending the call returns ErrTriggerPending, so bursts
// collapse into one apply. A positive frequencyLimit defers the apply by
// exactly that duration; zero or negative applies immediately. A new
// config supplied here replaces the active one wholesale but keeps the
// current AutoExecute / WaitUntilMount flags. After Close the call
// returns ErrClosed; on a controller that failed validation it returns
// the validation error.
func (c *Controller) SendRequest(cfg *RequestConfig, frequencyLimit time.Duration) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.validationError != nil {
		verr := c.validationError
		c.mu.Unlock()
		return verr
	}
	endpoint := endpointFromURL(c.resolvedURL)
	c.mu.Unlock()

	if !c.triggerGate.TryBegin() {
		if c.debug != nil && c.debug.Enabled && c.debug.LogTriggers && c.logger != nil {
			c.logger.Debug("Trigger dropped, apply already pending", "endpoint", endpoint)
		}
		if c.metrics != nil {
			c.metrics.RecordTriggerThrottled(endpoint)
		}
		return ErrTriggerPending
	}

	if frequencyLimit > 0 {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			c.triggerGate.Finish()
			return ErrClosed
		}
		c.triggerTimer = time.AfterFunc(frequencyLimit, func() {
			c.applyTrigger(cfg)
		})
		c.mu.Unlock()
		return nil
	}

	c.applyTrigger(cfg)
	return nil
}

// applyTrigger performs the deferred part of SendRequest: unconditional
// invalidation of the current URL's cache entry, optional config install,
// last-trigger bookkeeping, then a forced resolve cycle.
func (c *Controller) applyTrigger(cfg *RequestConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.triggerGate.Finish()

	if c.closed {
		return
	}
	c.triggerTimer = nil

	if c.resolvedURL != "" {
		c.cache.Delete(c.resolvedURL)
		c.recordCacheSizeLocked()
	}

	c.cancelInFlightLocked()

	if cfg != nil {
		norm := normalizeConfig(cfg)
		norm.AutoExecute = boolPtr(c.autoExecute)
		norm.WaitUntilMount = boolPtr(c.waitMount)
		c.installConfigLocked(norm, c.resolveLocked(norm))
	}

	c.lastTrigger = time.Now()
	c.forceNext = true

	if c.debug != nil && c.debug.Enabled && c.debug.LogTriggers && c.logger != nil {
		c.logger.Debug("Trigger applied", "url", c.resolvedURL)
	}

	c.resolveCycleLocked()
}
