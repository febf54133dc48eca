package auth

import (
	"sync"

	"github.com/Akbar-telliant/ScrumTaskManager/internal/models"
	"github.com/Akbar-telliant/ScrumTaskManager/internal/session"
)

// Principal is the reconstructed identity used for authorization checks.
type Principal struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

// State is the authentication state of one browser session: either anonymous
// or an authenticated principal.
type State struct {
	Authenticated bool      `json:"authenticated"`
	Principal     Principal `json:"principal"`
}

// AnonymousState is the fail-safe default returned whenever no readable
// session record exists.
func AnonymousState() State {
	return State{}
}

// Event is a state-change notification delivered to subscribers when a
// session logs in or out.
type Event struct {
	SessionID string `json:"session_id"`
	State     State  `json:"state"`
}

// StateProvider resolves "who is the current user" for a session ID and
// notifies subscribers on login/logout so the UI can re-render role-gated
// elements.
type StateProvider struct {
	sessions *session.Store

	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewStateProvider creates a provider backed by the given session store.
func NewStateProvider(sessions *session.Store) *StateProvider {
	return &StateProvider{
		sessions: sessions,
		subs:     make(map[chan Event]struct{}),
	}
}

// SetUser writes the user's identity attributes into the session record for
// sessionID and notifies subscribers with the authenticated state.
func (p *StateProvider) SetUser(sessionID string, user models.User) error {
	p.sessions.Put(sessionID, session.Record{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	})

	p.notify(Event{SessionID: sessionID, State: p.State(sessionID)})
	return nil
}

// Logout deletes the session record for sessionID and notifies subscribers
// with the anonymous state.
func (p *StateProvider) Logout(sessionID string) {
	p.sessions.Delete(sessionID)
	p.notify(Event{SessionID: sessionID, State: AnonymousState()})
}

// State resolves the current authentication state for sessionID. A missing,
// expired or unreadable record collapses to Anonymous; resolution never
// fails with an error.
func (p *StateProvider) State(sessionID string) State {
	if sessionID == "" {
		return AnonymousState()
	}

	rec, ok := p.sessions.Get(sessionID)
	if !ok {
		return AnonymousState()
	}

	return State{
		Authenticated: true,
		Principal: Principal{
			UserID:   rec.UserID,
			Username: rec.Username,
			Role:     rec.Role,
		},
	}
}

// Subscribe registers a channel receiving state-change events. The returned
// function cancels the subscription. Events are dropped rather than blocking
// a slow subscriber.
func (p *StateProvider) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	p.mu.Lock()
	p.subs[ch] = struct{}{}
	p.mu.Unlock()

	cancel := func() {
		p.mu.Lock()
		if _, ok := p.subs[ch]; ok {
			delete(p.subs, ch)
			close(ch)
		}
		p.mu.Unlock()
	}
	return ch, cancel
}

func (p *StateProvider) notify(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for ch := range p.subs {
		select {
		case ch <- ev:
		default:
			// Subscriber is not keeping up, drop the event.
		}
	}
}
