package ledger

import (
	"context"
	"sync"
)

// Generations hands out per-view request tokens. Starting a request for a view cancels
// the previous request for the same view, and a finished request can check whether it
// is still the latest before its result is used. A view is forgotten once its latest
// request is released.
type Generations struct {
	mu    sync.Mutex
	seq   uint64
	views map[string]*generation
}

type generation struct {
	seq    uint64
	cancel context.CancelFunc
}

// Token identifies one request for one view.
type Token struct {
	gens *Generations
	view string
	seq  uint64
}

// NewGenerations constructs an empty registry.
func NewGenerations() *Generations {
	return &Generations{views: make(map[string]*generation)}
}

// Begin registers a new request for view and returns a context that is cancelled when a
// newer request for the same view begins, or when release is called.
func (g *Generations) Begin(ctx context.Context, view string) (context.Context, Token, func()) {
	reqCtx, cancel := context.WithCancel(ctx)
	g.mu.Lock()
	defer g.mu.Unlock()
	if prev, ok := g.views[view]; ok {
		prev.cancel()
	}
	// seq is shared by all views so a token never matches a later entry for its view.
	g.seq++
	g.views[view] = &generation{seq: g.seq, cancel: cancel}
	tok := Token{gens: g, view: view, seq: g.seq}
	release := func() {
		cancel()
		g.mu.Lock()
		defer g.mu.Unlock()
		if v, ok := g.views[view]; ok && v.seq == tok.seq {
			delete(g.views, view)
		}
	}
	return reqCtx, tok, release
}

// Current reports whether no newer request for the token's view has begun. A released
// token is no longer current.
func (t Token) Current() bool {
	if t.gens == nil {
		return true
	}
	t.gens.mu.Lock()
	defer t.gens.mu.Unlock()
	cur, ok := t.gens.views[t.view]
	return ok && cur.seq == t.seq
}
