package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdesk/taskdesk/client"
	"github.com/taskdesk/taskdesk/internal/credstore"
	tderrors "github.com/taskdesk/taskdesk/internal/errors"
)

// fakeAPI is a scripted Authenticator.
type fakeAPI struct {
	mu          sync.Mutex
	users       map[string]*client.User // token -> user
	passwords   map[string]string       // email -> password
	credential  string
	profileHook func()
	logins      int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		users:     map[string]*client.User{},
		passwords: map[string]string{},
	}
}

func (f *fakeAPI) addUser(id, email, password, token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[token] = &client.User{ID: id, Email: email}
	f.passwords[email] = password
}

func (f *fakeAPI) tokenFor(email string) string {
	for tok, u := range f.users {
		if u.Email == email {
			return tok
		}
	}
	return ""
}

func (f *fakeAPI) Login(_ context.Context, email, password string) (*client.AuthResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++
	if pw, ok := f.passwords[email]; !ok || pw != password {
		return nil, &tderrors.ClassifiedError{Op: "login", Kind: tderrors.KindAuthenticationFailed, StatusCode: 401, Message: "Invalid credentials"}
	}
	tok := f.tokenFor(email)
	u := *f.users[tok]
	return &client.AuthResponse{Token: tok, User: &u}, nil
}

func (f *fakeAPI) Register(_ context.Context, name, email, password string) (*client.AuthResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.passwords[email]; ok {
		return nil, &tderrors.ClassifiedError{Op: "register", Kind: tderrors.KindConflict, StatusCode: 409, Message: "User already exists"}
	}
	tok := "tok-" + email
	f.users[tok] = &client.User{ID: "u-" + email, Name: name, Email: email}
	f.passwords[email] = password
	u := *f.users[tok]
	return &client.AuthResponse{Token: tok, User: &u}, nil
}

func (f *fakeAPI) Profile(context.Context) (*client.User, error) {
	if f.profileHook != nil {
		f.profileHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[f.credential]
	if !ok {
		return nil, &tderrors.ClassifiedError{Op: "profile", Kind: tderrors.KindAuthenticationFailed, StatusCode: 401}
	}
	cp := *u
	return &cp, nil
}

func (f *fakeAPI) SetCredential(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credential = token
}

func (f *fakeAPI) currentCredential() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.credential
}

// failingSlot fails every Save.
type failingSlot struct{ credstore.MemoryStore }

func (f *failingSlot) Save(context.Context, string) error { return errors.New("disk full") }

// unreadableSlot fails every Load and records Clear.
type unreadableSlot struct {
	credstore.MemoryStore
	cleared bool
}

func (u *unreadableSlot) Load(context.Context) (string, error) { return "", errors.New("corrupt slot") }

func (u *unreadableSlot) Clear(ctx context.Context) error {
	u.cleared = true
	return u.MemoryStore.Clear(ctx)
}

func TestLogin_SetsIdentityAndCredentialTogether(t *testing.T) {
	api := newFakeAPI()
	api.addUser("u1", "a@x.com", "secret1", "tok-1")
	slot := credstore.NewMemoryStore()
	s := New(api, slot)

	var snaps []Snapshot
	unsub := s.Subscribe(func(snap Snapshot) { snaps = append(snaps, snap) })
	defer unsub()

	require.NoError(t, s.Login(context.Background(), "a@x.com", "secret1"))

	snap := s.Snapshot()
	require.True(t, snap.LoggedIn())
	assert.Equal(t, "u1", snap.UserID())
	assert.Equal(t, "tok-1", snap.Credential)
	assert.Equal(t, "tok-1", api.currentCredential())

	stored, _ := slot.Load(context.Background())
	assert.Equal(t, "tok-1", stored)

	// initial delivery plus exactly one for the login
	require.Len(t, snaps, 2)
	assert.False(t, snaps[0].LoggedIn())
	assert.True(t, snaps[1].LoggedIn())
}

func TestLogin_InvalidCredentials(t *testing.T) {
	api := newFakeAPI()
	api.addUser("u1", "a@x.com", "secret1", "tok-1")
	slot := credstore.NewMemoryStore()
	s := New(api, slot)

	err := s.Login(context.Background(), "a@x.com", "wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrAuthenticationFailed)
	assert.Equal(t, "Invalid credentials", client.Message(err))

	assert.False(t, s.Snapshot().LoggedIn())
	stored, _ := slot.Load(context.Background())
	assert.Empty(t, stored)
	assert.Equal(t, 1, api.logins, "login must not be retried")
}

func TestRegister_Conflict(t *testing.T) {
	api := newFakeAPI()
	api.addUser("u1", "a@x.com", "secret1", "tok-1")
	s := New(api, credstore.NewMemoryStore())

	err := s.Register(context.Background(), "Ann", "a@x.com", "secret2")
	assert.ErrorIs(t, err, client.ErrConflict)
	assert.False(t, s.Snapshot().LoggedIn())
}

func TestRegister_Success(t *testing.T) {
	api := newFakeAPI()
	s := New(api, credstore.NewMemoryStore())

	require.NoError(t, s.Register(context.Background(), "Bob", "b@x.com", "secret2"))
	snap := s.Snapshot()
	assert.True(t, snap.LoggedIn())
	assert.Equal(t, "Bob", snap.User.Name)
}

func TestLogin_SlotFailureStillLogsIn(t *testing.T) {
	api := newFakeAPI()
	api.addUser("u1", "a@x.com", "secret1", "tok-1")
	s := New(api, &failingSlot{})

	require.NoError(t, s.Login(context.Background(), "a@x.com", "secret1"))
	assert.True(t, s.Snapshot().LoggedIn())
}

func TestLogout_ClearsEverything(t *testing.T) {
	api := newFakeAPI()
	api.addUser("u1", "a@x.com", "secret1", "tok-1")
	slot := credstore.NewMemoryStore()
	s := New(api, slot)
	require.NoError(t, s.Login(context.Background(), "a@x.com", "secret1"))

	require.NoError(t, s.Logout(context.Background()))

	snap := s.Snapshot()
	assert.Nil(t, snap.User)
	assert.Empty(t, snap.Credential)
	assert.Empty(t, api.currentCredential())
	stored, _ := slot.Load(context.Background())
	assert.Empty(t, stored)
}

func TestRestore_ValidCredential(t *testing.T) {
	api := newFakeAPI()
	api.addUser("u1", "a@x.com", "secret1", "tok-1")
	slot := credstore.NewMemoryStore()
	require.NoError(t, slot.Save(context.Background(), "tok-1"))
	s := New(api, slot)

	assert.Equal(t, Initializing, s.Snapshot().Phase)
	s.Restore(context.Background())

	select {
	case <-s.Ready():
	default:
		t.Fatal("Ready not closed after Restore")
	}
	snap := s.Snapshot()
	assert.Equal(t, Ready, snap.Phase)
	assert.True(t, snap.LoggedIn())
	assert.Equal(t, "u1", snap.UserID())
}

func TestRestore_InvalidCredential(t *testing.T) {
	api := newFakeAPI()
	slot := credstore.NewMemoryStore()
	require.NoError(t, slot.Save(context.Background(), "expired"))
	s := New(api, slot)

	var readyCount int
	s.Subscribe(func(snap Snapshot) {
		if snap.Phase == Ready {
			readyCount++
		}
	})

	s.Restore(context.Background())
	s.Restore(context.Background())

	snap := s.Snapshot()
	assert.Equal(t, Ready, snap.Phase)
	assert.Nil(t, snap.User)
	assert.Empty(t, snap.Credential)
	assert.Empty(t, api.currentCredential())
	stored, _ := slot.Load(context.Background())
	assert.Empty(t, stored, "rejected credential must be removed from the slot")
	assert.Equal(t, 1, readyCount, "ready must be announced exactly once")
}

func TestRestore_UnreadableSlotIsCleared(t *testing.T) {
	api := newFakeAPI()
	slot := &unreadableSlot{}
	s := New(api, slot)

	s.Restore(context.Background())

	snap := s.Snapshot()
	assert.Equal(t, Ready, snap.Phase)
	assert.False(t, snap.LoggedIn())
	assert.Empty(t, api.currentCredential())
	assert.True(t, slot.cleared, "an unreadable slot must be cleared")
}

func TestRestore_NoCredential(t *testing.T) {
	api := newFakeAPI()
	s := New(api, credstore.NewMemoryStore())
	s.Restore(context.Background())

	snap := s.Snapshot()
	assert.Equal(t, Ready, snap.Phase)
	assert.False(t, snap.LoggedIn())
}

func TestRestore_LoginDuringProfileWins(t *testing.T) {
	api := newFakeAPI()
	api.addUser("u1", "a@x.com", "secret1", "tok-1")
	slot := credstore.NewMemoryStore()
	require.NoError(t, slot.Save(context.Background(), "expired"))
	s := New(api, slot)

	api.profileHook = func() {
		api.profileHook = nil
		require.NoError(t, s.Login(context.Background(), "a@x.com", "secret1"))
	}
	s.Restore(context.Background())

	snap := s.Snapshot()
	assert.True(t, snap.LoggedIn())
	assert.Equal(t, "tok-1", snap.Credential)
	assert.Equal(t, "tok-1", api.currentCredential())
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	api := newFakeAPI()
	api.addUser("u1", "a@x.com", "secret1", "tok-1")
	s := New(api, credstore.NewMemoryStore())

	var calls int
	unsub := s.Subscribe(func(Snapshot) { calls++ })
	unsub()
	unsub()
	require.NoError(t, s.Login(context.Background(), "a@x.com", "secret1"))
	assert.Equal(t, 1, calls)
}

func TestReady_BlocksUntilRestore(t *testing.T) {
	s := New(newFakeAPI(), credstore.NewMemoryStore())
	select {
	case <-s.Ready():
		t.Fatal("Ready closed before Restore")
	case <-time.After(10 * time.Millisecond):
	}
	go s.Restore(context.Background())
	select {
	case <-s.Ready():
	case <-time.After(time.Second):
		t.Fatal("Ready not closed")
	}
}
