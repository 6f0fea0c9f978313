package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/phonoecho/pkg/metrics"
)

// Store maps opaque tokens to session state.
type Store interface {
	// Create registers state under a fresh token.
	Create(ctx context.Context, state *AppState) string

	// Get returns the state for token and refreshes its idle timer.
	// Expired sessions are removed and reported as missing.
	Get(ctx context.Context, token string) (*AppState, bool)

	// Delete removes token. It reports whether the token existed.
	Delete(ctx context.Context, token string) bool

	// Sweep drops every expired session and returns how many were removed.
	Sweep(ctx context.Context) int

	Size() int64
}

// node is one entry of the creation-ordered list, newest at head.
type node struct {
	token    string
	state    *AppState
	lastSeen time.Time
	next     *node
}

func (n *node) reset() {
	n.token = ""
	n.state = nil
	n.lastSeen = time.Time{}
	n.next = nil
}

type inMemoryStore struct {
	mu       sync.Mutex
	byToken  map[string]*node
	head     *node
	maxSize  int
	ttl      time.Duration
	now      func() time.Time
	token    func() string
	size     atomic.Int64
	nodePool sync.Pool
}

// NewInMemoryStore creates a session store with configuration options.
func NewInMemoryStore(opts ...Option) Store {
	s := &inMemoryStore{
		maxSize: 1024,
		now:     time.Now,
		token:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.byToken = make(map[string]*node)
	s.nodePool = sync.Pool{
		New: func() any {
			return &node{}
		},
	}
	return s
}

func (s *inMemoryStore) Create(_ context.Context, state *AppState) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxSize > 0 && len(s.byToken) >= s.maxSize {
		s.evictOldest()
	}

	tok := s.token()
	for _, exists := s.byToken[tok]; exists; _, exists = s.byToken[tok] {
		tok = s.token()
	}

	n := s.nodePool.Get().(*node)
	n.token = tok
	n.state = state
	n.lastSeen = s.now()
	n.next = s.head
	s.head = n
	s.byToken[tok] = n
	s.size.Add(1)
	metrics.UpdateActiveSessions(len(s.byToken))
	return tok
}

func (s *inMemoryStore) Get(_ context.Context, token string) (*AppState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.byToken[token]
	if !ok {
		return nil, false
	}
	now := s.now()
	if s.expired(n, now) {
		s.remove(n)
		metrics.UpdateActiveSessions(len(s.byToken))
		return nil, false
	}
	n.lastSeen = now
	return n.state, true
}

func (s *inMemoryStore) Delete(_ context.Context, token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.byToken[token]
	if !ok {
		return false
	}
	s.remove(n)
	metrics.UpdateActiveSessions(len(s.byToken))
	return true
}

func (s *inMemoryStore) Sweep(_ context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var stale []*node
	for cur := s.head; cur != nil; cur = cur.next {
		if s.expired(cur, now) {
			stale = append(stale, cur)
		}
	}
	for _, n := range stale {
		s.remove(n)
	}
	if len(stale) > 0 {
		metrics.UpdateActiveSessions(len(s.byToken))
	}
	return len(stale)
}

func (s *inMemoryStore) Size() int64 {
	return s.size.Load()
}

func (s *inMemoryStore) expired(n *node, now time.Time) bool {
	return s.ttl > 0 && now.Sub(n.lastSeen) > s.ttl
}

// remove unlinks n. Must be called with s.mu held.
func (s *inMemoryStore) remove(n *node) {
	delete(s.byToken, n.token)
	if s.head == n {
		s.head = n.next
	} else {
		cur := s.head
		for cur != nil && cur.next != n {
			cur = cur.next
		}
		if cur != nil {
			cur.next = n.next
		}
	}
	n.reset()
	s.nodePool.Put(n)
	s.size.Add(-1)
}

// evictOldest removes the tail of the list. Must be called with s.mu held.
func (s *inMemoryStore) evictOldest() {
	if s.head == nil {
		return
	}
	tail := s.head
	for tail.next != nil {
		tail = tail.next
	}
	s.remove(tail)
}
