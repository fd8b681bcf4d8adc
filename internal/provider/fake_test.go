package provider

import (
	"context"
	"errors"
	"sync"
	"time"
)

// scriptedProvider returns queued results in order, repeating the last one.
type scriptedProvider struct {
	name    string
	models  []string
	mu      sync.Mutex
	results []error
	calls   int
	lastReq Request
}

func newScripted(name string, results ...error) *scriptedProvider {
	return &scriptedProvider{name: name, models: []string{name + "-model"}, results: results}
}

func (p *scriptedProvider) Name() string     { return p.name }
func (p *scriptedProvider) Models() []string { return p.models }

func (p *scriptedProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastReq = req
	idx := p.calls
	if idx >= len(p.results) {
		idx = len(p.results) - 1
	}
	p.calls++
	if idx >= 0 && p.results[idx] != nil {
		return nil, p.results[idx]
	}
	return &Response{Text: "from " + p.name}, nil
}

func (p *scriptedProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

var errBoom = errors.New("connection reset by peer")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
