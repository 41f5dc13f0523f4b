// Package session owns who the current user is and the credential that
// authorizes API calls on their behalf.
//
// The Store is the only writer of the durable credential slot. It mirrors its
// credential into the API client so every other call is authorized, and it
// publishes a Snapshot to subscribers after each transition.
package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/taskdesk/taskdesk/client"
	"github.com/taskdesk/taskdesk/internal/credstore"
)

// Phase reports whether startup restoration has finished.
type Phase int

const (
	Initializing Phase = iota
	Ready
)

func (p Phase) String() string {
	if p == Ready {
		return "ready"
	}
	return "initializing"
}

// Authenticator is the slice of the API client the Store needs.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*client.AuthResponse, error)
	Register(ctx context.Context, name, email, password string) (*client.AuthResponse, error)
	Profile(ctx context.Context) (*client.User, error)
	SetCredential(token string)
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	User       *client.User
	Credential string
	Phase      Phase
}

// LoggedIn reports whether both identity and credential are present.
func (s Snapshot) LoggedIn() bool { return s.User != nil && s.Credential != "" }

// UserID returns the identity's id, or "".
func (s Snapshot) UserID() string {
	if s.User == nil {
		return ""
	}
	return s.User.ID
}

// Option configures a Store.
type Option func(*Store)

// WithLogger overrides the global zerolog logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// Store holds the session state. The zero value is not usable; call New.
type Store struct {
	api  Authenticator
	slot credstore.Store
	log  zerolog.Logger

	mu         sync.Mutex
	user       *client.User
	credential string
	phase      Phase
	// gen changes on every login, register and logout so a slow restore
	// cannot overwrite a newer session.
	gen uint64

	ready       chan struct{}
	readyOnce   sync.Once
	restoreOnce sync.Once

	// notifyMu orders deliveries so subscribers see transitions in sequence.
	notifyMu sync.Mutex
	subsMu   sync.Mutex
	subs     map[int]func(Snapshot)
	nextSub  int
}

// New returns a Store in the Initializing phase. Call Restore once at
// startup.
func New(api Authenticator, slot credstore.Store, opts ...Option) *Store {
	s := &Store{
		api:   api,
		slot:  slot,
		log:   log.Logger,
		ready: make(chan struct{}),
		subs:  make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("component", "session").Logger()
	return s
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{Credential: s.credential, Phase: s.phase}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

// Ready is closed once restoration has finished, successfully or not.
func (s *Store) Ready() <-chan struct{} { return s.ready }

// Login exchanges email and password for a credential and makes it the
// current session. Errors are returned classified and never retried.
func (s *Store) Login(ctx context.Context, email, password string) error {
	resp, err := s.api.Login(ctx, email, password)
	eventsTotal.WithLabelValues("login", outcome(err)).Inc()
	if err != nil {
		s.log.Debug().Err(err).Str("email", email).Msg("login failed")
		return err
	}
	s.establish(ctx, resp)
	return nil
}

// Register creates an account and logs into it.
func (s *Store) Register(ctx context.Context, name, email, password string) error {
	resp, err := s.api.Register(ctx, name, email, password)
	eventsTotal.WithLabelValues("register", outcome(err)).Inc()
	if err != nil {
		s.log.Debug().Err(err).Str("email", email).Msg("register failed")
		return err
	}
	s.establish(ctx, resp)
	return nil
}

// establish persists the credential and then sets identity and credential
// together. A failed write to the slot only costs persistence across restarts.
func (s *Store) establish(ctx context.Context, resp *client.AuthResponse) {
	if err := s.slot.Save(ctx, resp.Token); err != nil {
		s.log.Warn().Err(err).Msg("could not persist credential; session will not survive restart")
	}
	user := *resp.User

	s.mu.Lock()
	s.gen++
	s.user = &user
	s.credential = resp.Token
	s.mu.Unlock()

	s.api.SetCredential(resp.Token)
	s.log.Info().Str("user_id", user.ID).Msg("session established")
	s.notify()
}

// Logout clears the slot, the identity and the credential. It makes no
// network call. The state is cleared even if the slot cannot be.
func (s *Store) Logout(ctx context.Context) error {
	err := s.slot.Clear(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("could not clear persisted credential")
	}

	s.mu.Lock()
	s.gen++
	s.user = nil
	s.credential = ""
	s.mu.Unlock()

	s.api.SetCredential("")
	eventsTotal.WithLabelValues("logout", outcome(err)).Inc()
	s.log.Info().Msg("session cleared")
	s.notify()
	return err
}

// Restore resolves the persisted credential, if any, into an identity. Any
// failure clears the slot and the credential; it is logged, not returned.
// Only the first call does work; later calls return immediately.
func (s *Store) Restore(ctx context.Context) {
	s.restoreOnce.Do(func() {
		s.restore(ctx)
		s.markReady()
	})
}

func (s *Store) restore(ctx context.Context) {
	token, err := s.slot.Load(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("could not read persisted credential; starting logged out")
		if cerr := s.slot.Clear(ctx); cerr != nil {
			s.log.Warn().Err(cerr).Msg("could not clear persisted credential")
		}
		return
	}
	if token == "" {
		s.log.Debug().Msg("no persisted credential")
		return
	}

	s.mu.Lock()
	gen := s.gen
	s.credential = token
	s.mu.Unlock()
	s.api.SetCredential(token)

	user, err := s.api.Profile(ctx)
	eventsTotal.WithLabelValues("restore", outcome(err)).Inc()

	s.mu.Lock()
	if s.gen != gen {
		// a login or logout happened meanwhile and owns the state now
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.credential = ""
		s.mu.Unlock()
		s.api.SetCredential("")
		if cerr := s.slot.Clear(ctx); cerr != nil {
			s.log.Warn().Err(cerr).Msg("could not clear persisted credential")
		}
		s.log.Warn().Err(err).Msg("persisted credential rejected; starting logged out")
		return
	}
	s.user = user
	s.mu.Unlock()
	s.log.Info().Str("user_id", user.ID).Msg("session restored")
}

func (s *Store) markReady() {
	s.readyOnce.Do(func() {
		s.mu.Lock()
		s.phase = Ready
		s.mu.Unlock()
		close(s.ready)
	})
	s.notify()
}

// Subscribe registers fn to receive a Snapshot after every transition. fn is
// called once immediately with the current state. Calls are serialized; fn
// must not call back into the Store's mutating methods.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subsMu.Unlock()

	fn(s.Snapshot())

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
		})
	}
}

func (s *Store) notify() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	snap := s.Snapshot()
	s.subsMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
