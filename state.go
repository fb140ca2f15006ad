package reqflow

// event identifies a state machine transition trigger.
type event int

const (
	eventLoading event = iota
	eventResponse
	eventError
)

// machineState is the state machine's backing data. It is owned by the
// controller and mutated only through apply while holding the controller
// lock.
type machineState struct {
	state    State
	response *Response
	err      error
	loading  bool
}

// apply runs one transition. Entering loading clears the previous
// response and error so stale data is never visible next to a newer
// outcome; response and error events are mutually exclusive.
func (m *machineState) apply(ev event, resp *Response, err error) {
	switch ev {
	case eventLoading:
		m.state = StateLoading
		m.loading = true
		m.response = nil
		m.err = nil
	case eventResponse:
		m.state = StateHasResponse
		m.loading = false
		m.response = resp
		m.err = nil
	case eventError:
		m.state = StateHasError
		m.loading = false
		m.response = nil
		m.err = err
	}
}

// snapshot renders the consumer-facing view of the current state.
func (m *machineState) snapshot() Snapshot {
	snap := Snapshot{
		Loading:  m.loading,
		Err:      m.err,
		Response: m.response,
	}
	if m.response != nil {
		snap.Data = m.response.Data
	}
	return snap
}

// dispatch applies an event and notifies subscribers. Callers must hold
// c.mu; listeners run synchronously in subscription order.
func (c *Controller) dispatch(ev event, resp *Response, err error) {
	c.machine.apply(ev, resp, err)
	snap := c.machine.snapshot()
	for _, l := range c.listeners {
		if l != nil {
			l(snap)
		}
	}
}

// Subscribe registers a listener invoked after every state transition
// with the post-transition snapshot. The returned function removes the
// listener.
//
// Listeners run synchronously with the controller's internal lock held
// and must not call back into the controller (Snapshot, Update,
// SendRequest and so on) — doing so deadlocks. Hand such work to another
// goroutine, or use the snapshot the listener already receives.
func (c *Controller) Subscribe(fn Listener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextListener
	c.nextListener++
	c.listenerIDs = append(c.listenerIDs, id)
	c.listeners = append(c.listeners, fn)

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, lid := range c.listenerIDs {
			if lid == id {
				c.listenerIDs = append(c.listenerIDs[:i], c.listenerIDs[i+1:]...)
				c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

// Snapshot returns the current consumer-facing state view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.snapshot()
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.state
}
