package client

import (
	"context"
	"encoding/json"
	"errors"
)

// Handlers receive the outcome of a call. Nil handlers are skipped for
// Success and replaced with the client's defaults for Failure and Error.
type Handlers struct {
	Success func(data json.RawMessage)
	Failure func(message string, code int, url string)
	Error   func(err error)
}

// Dispatch routes the result of Get, Post or Send to h. Failures of kind
// precondition and application go to Failure, anything else to Error.
func (c *Client) Dispatch(data json.RawMessage, err error, h Handlers) {
	if err == nil {
		if h.Success != nil {
			h.Success(data)
		}
		return
	}
	var f *Failure
	if errors.As(err, &f) {
		failure := h.Failure
		if failure == nil {
			failure = c.DefaultFailure
		}
		failure(f.Message, f.Code, f.URL)
		return
	}
	onError := h.Error
	if onError == nil {
		onError = c.DefaultError
	}
	onError(err)
}

// GetAsync runs Get in its own goroutine and dispatches the result to h.
// The returned channel is closed once the handler has returned.
func (c *Client) GetAsync(ctx context.Context, path string, h Handlers) <-chan struct{} {
	return Go(func() (json.RawMessage, error) {
		return c.Get(ctx, path)
	}, c.Dispatch, h)
}

// PostAsync is GetAsync for Post.
func (c *Client) PostAsync(ctx context.Context, path string, body any, h Handlers) <-chan struct{} {
	return Go(func() (json.RawMessage, error) {
		return c.Post(ctx, path, body)
	}, c.Dispatch, h)
}

// Go runs call in a goroutine and hands its result to dispatch.
func Go(call func() (json.RawMessage, error), dispatch func(json.RawMessage, error, Handlers), h Handlers) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		data, err := call()
		dispatch(data, err, h)
	}()
	return done
}
