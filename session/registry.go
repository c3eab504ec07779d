package session

import (
	"sync"
	"time"

	"github.com/Pabi691/custom-clothology/clients/commerce"
	"github.com/Pabi691/custom-clothology/core"
	"github.com/Pabi691/custom-clothology/editor"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// Default timings.
const (
	DefaultTimeout    = 30 * time.Minute
	DefaultDraftDelay = 300 * time.Millisecond
)

type (
	// ChangeFunc observes document changes of any session.
	ChangeFunc func(sessionID string, snap core.Snapshot)

	// ExpireFunc observes sessions removed for inactivity.
	ExpireFunc func(sessionID string)
)

// Registry owns every live session.
type Registry struct {
	timeout    time.Duration
	draftDelay time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
	onChange []ChangeFunc
	onExpire []ExpireFunc
}

// NewRegistry creates a registry. Zero durations use the defaults.
func NewRegistry(timeout, draftDelay time.Duration) *Registry {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if draftDelay <= 0 {
		draftDelay = DefaultDraftDelay
	}
	return &Registry{
		timeout:    timeout,
		draftDelay: draftDelay,
		sessions:   make(map[string]*Session),
	}
}

// Timeout is the inactivity period after which a session expires.
func (r *Registry) Timeout() time.Duration {
	return r.timeout
}

// OnChange registers fn for document changes in every session.
func (r *Registry) OnChange(fn ChangeFunc) {
	r.mu.Lock()
	r.onChange = append(r.onChange, fn)
	r.mu.Unlock()
}

// OnExpire registers fn for sessions that expired.
func (r *Registry) OnExpire(fn ExpireFunc) {
	r.mu.Lock()
	r.onExpire = append(r.onExpire, fn)
	r.mu.Unlock()
}

// Create starts a session for the holder of token.
func (r *Registry) Create(token string, product Product, garment commerce.Product) *Session {
	id := ulid.Make().String()
	log := logrus.WithField("session_id", id)

	s := &Session{
		ID:        id,
		Token:     token,
		Product:   product,
		Garment:   garment,
		CreatedAt: time.Now(),
		Store:     editor.NewStore(editor.WithLogger(log)),
		Drafts:    editor.NewDebouncer(r.draftDelay),
		expiry:    editor.NewDebouncer(r.timeout),
	}
	s.Store.OnChange(func(snap core.Snapshot) {
		r.mu.RLock()
		observers := r.onChange
		r.mu.RUnlock()
		for _, fn := range observers {
			fn(id, snap)
		}
	})

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	s.expiry.Trigger(func() { r.expire(id) })

	log.WithFields(logrus.Fields{"slug": product.Slug, "product_id": product.ProductID}).Info("Session started")
	return s
}

// Get returns a session and records activity on it.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.expiry.Trigger(func() { r.expire(id) })
	return s, nil
}

// Delete ends a session immediately.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		s.expiry.Stop()
		s.Drafts.Stop()
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close ends every session.
func (r *Registry) Close() {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	for _, id := range ids {
		r.Delete(id)
	}
}

func (r *Registry) expire(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	observers := r.onExpire
	r.mu.Unlock()
	if !ok {
		return
	}
	s.Drafts.Stop()

	logrus.WithField("session_id", id).Info("Session expired")
	for _, fn := range observers {
		fn(id)
	}
}
