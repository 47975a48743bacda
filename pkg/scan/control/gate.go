package control

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Token identifies one pause request. Each caller that pauses gets its
// own token and must present it again to resume; two independent pausers
// therefore need two resumes before the gate opens.
type Token struct {
	id uuid.UUID
}

// Gate is the cooperative pause mechanism. The scan loop calls Wait at
// its suspension points and blocks for as long as any token is held.
type Gate struct {
	mu     sync.Mutex
	cond   *sync.Cond
	tokens map[uuid.UUID]struct{}
}

// pollInterval bounds how long a waiter can sleep without re-checking,
// so a missed wakeup can never stall the scan for more than about a
// second.
const pollInterval = time.Second

func NewGate() *Gate {
	g := &Gate{tokens: make(map[uuid.UUID]struct{})}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Pause registers a pause request and returns the token that releases it.
func (g *Gate) Pause() Token {
	tok := Token{id: uuid.New()}
	g.mu.Lock()
	g.tokens[tok.id] = struct{}{}
	g.mu.Unlock()
	return tok
}

// Resume removes the given token. It reports whether the token was held;
// resuming with an unknown token is a no-op.
func (g *Gate) Resume(tok Token) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, held := g.tokens[tok.id]; !held {
		return false
	}
	delete(g.tokens, tok.id)
	if len(g.tokens) == 0 {
		g.cond.Broadcast()
	}
	return true
}

func (g *Gate) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.tokens) > 0
}

// Wait blocks while the gate is paused and returns once every token has
// been resumed.
func (g *Gate) Wait() {
	g.mu.Lock()
	for len(g.tokens) > 0 {
		done := make(chan struct{})
		go func() {
			// Safety tick: wake the waiter periodically even if no
			// broadcast arrives.
			select {
			case <-time.After(pollInterval):
				g.cond.Broadcast()
			case <-done:
			}
		}()
		g.cond.Wait()
		close(done)
	}
	g.mu.Unlock()
}

// Clear drops every held token, releasing all waiters.
func (g *Gate) Clear() {
	g.mu.Lock()
	g.tokens = make(map[uuid.UUID]struct{})
	g.cond.Broadcast()
	g.mu.Unlock()
}
