package bridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// CallError is a media method that failed in the page.
type CallError struct {
	Method  string
	Message string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s: %s", e.Method, e.Message)
}

type pendingCall struct {
	done   chan struct{}
	result resultFrame
	err    error
}

// calls correlates call frames with the page's result frames.
type calls struct {
	mu      sync.Mutex
	pending map[string]*pendingCall
	closed  bool
}

func newCalls() *calls {
	return &calls{pending: make(map[string]*pendingCall)}
}

func (c *calls) add(id string) (*pendingCall, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	call := &pendingCall{done: make(chan struct{})}
	c.pending[id] = call
	return call, nil
}

func (c *calls) delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, id)
}

// resolve completes the call the result belongs to. Unknown ids are late
// replies to calls that already gave up.
func (c *calls) resolve(r resultFrame) bool {
	c.mu.Lock()
	call, ok := c.pending[r.ID]
	delete(c.pending, r.ID)
	c.mu.Unlock()
	if !ok {
		return false
	}
	call.result = r
	close(call.done)
	return true
}

// close fails every outstanding call and refuses new ones.
func (c *calls) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for id, call := range c.pending {
		call.err = ErrClosed
		close(call.done)
		delete(c.pending, id)
	}
}

// call sends method to the page and waits for its result, decoding it into
// out when out is not nil.
func (t *Tab) call(ctx context.Context, method string, params, out any) error {
	id := uuid.NewString()
	call, err := t.calls.add(id)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer t.calls.delete(id)

	if err := t.conn.sendJSON(callFrame{Type: TypeCall, ID: id, Method: method, Params: params}); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", method, ctx.Err())
	case <-call.done:
	}
	if call.err != nil {
		return fmt.Errorf("%s: %w", method, call.err)
	}
	if call.result.Error != "" {
		return &CallError{Method: method, Message: call.result.Error}
	}
	if out != nil && len(call.result.Result) > 0 {
		if err := json.Unmarshal(call.result.Result, out); err != nil {
			return fmt.Errorf("%s: decode result: %w", method, err)
		}
	}
	return nil
}

// notify sends method without waiting for a result.
func (t *Tab) notify(method string, params any) {
	if err := t.conn.sendJSON(callFrame{Type: TypeCall, Method: method, Params: params}); err != nil {
		t.logger.Debug().Err(err).Str("method", method).Msg("notify dropped")
	}
}
