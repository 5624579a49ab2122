// Package reasoningtest provides scripted reasoning clients for tests.
package reasoningtest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sweetpotato0/ai-autopilot/reasoning"
)

// ErrScripted is returned by Failing clients.
var ErrScripted = errors.New("scripted reasoning failure")

// Client replays canned responses in order and records every request. When
// the script runs out the last entry is repeated.
type Client struct {
	mu       sync.Mutex
	replies  []Reply
	requests []*reasoning.Request
}

// Reply is one scripted answer.
type Reply struct {
	Text  string
	Err   error
	Delay time.Duration
}

// New returns a client answering with the given texts.
func New(texts ...string) *Client {
	c := &Client{}
	for _, t := range texts {
		c.replies = append(c.replies, Reply{Text: t})
	}
	return c
}

// Failing returns a client whose every call fails.
func Failing() *Client {
	return &Client{replies: []Reply{{Err: ErrScripted}}}
}

// Slow returns a client that ignores its context and answers after d.
func Slow(d time.Duration, text string) *Client {
	return &Client{replies: []Reply{{Text: text, Delay: d}}}
}

// Script returns a client with explicit replies.
func Script(replies ...Reply) *Client {
	return &Client{replies: replies}
}

// Generate implements reasoning.Client.
func (c *Client) Generate(ctx context.Context, req *reasoning.Request) (*reasoning.Response, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	var r Reply
	if n := len(c.requests); n <= len(c.replies) {
		r = c.replies[n-1]
	} else if len(c.replies) > 0 {
		r = c.replies[len(c.replies)-1]
	}
	c.mu.Unlock()

	if r.Delay > 0 {
		time.Sleep(r.Delay)
	}
	if r.Err != nil {
		return nil, r.Err
	}
	return &reasoning.Response{Text: r.Text, Model: "scripted"}, nil
}

// Requests returns the recorded requests.
func (c *Client) Requests() []*reasoning.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*reasoning.Request(nil), c.requests...)
}

// Last returns the most recent request or nil.
func (c *Client) Last() *reasoning.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.requests) == 0 {
		return nil
	}
	return c.requests[len(c.requests)-1]
}
