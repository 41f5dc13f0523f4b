package directory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdesk/taskdesk/client"
	tderrors "github.com/taskdesk/taskdesk/internal/errors"
	"github.com/taskdesk/taskdesk/session"
)

// fakeAPI serves workspaces from memory. Gates block a call until closed.
type fakeAPI struct {
	mu          sync.Mutex
	workspaces  []client.Workspace
	details     map[string]*client.WorkspaceDetail // overrides derived detail
	listErr     error
	detailErr   error
	failLists   int // the next failLists list calls fail with failErr
	failErr     error
	listCalls   int
	detailIDs   []string
	listGate    chan struct{}
	detailGates map[string]chan struct{}

	listStarted   chan struct{}
	detailStarted chan string
}

func newFakeAPI(ws ...client.Workspace) *fakeAPI {
	return &fakeAPI{
		workspaces:    ws,
		details:       map[string]*client.WorkspaceDetail{},
		detailGates:   map[string]chan struct{}{},
		listStarted:   make(chan struct{}, 16),
		detailStarted: make(chan string, 16),
	}
}

func (f *fakeAPI) ListWorkspaces(ctx context.Context) ([]client.Workspace, error) {
	f.mu.Lock()
	f.listCalls++
	gate := f.listGate
	f.mu.Unlock()
	f.listStarted <- struct{}{}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLists > 0 {
		f.failLists--
		return nil, f.failErr
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]client.Workspace, len(f.workspaces))
	for i := range f.workspaces {
		out[i] = f.workspaces[i].Clone()
	}
	return out, nil
}

func (f *fakeAPI) GetWorkspaceDetails(ctx context.Context, id string) (*client.WorkspaceDetail, error) {
	f.mu.Lock()
	f.detailIDs = append(f.detailIDs, id)
	gate := f.detailGates[id]
	f.mu.Unlock()
	f.detailStarted <- id
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	if d, ok := f.details[id]; ok {
		cp := d.Clone()
		return &cp, nil
	}
	for _, w := range f.workspaces {
		if w.ID == id {
			return &client.WorkspaceDetail{Workspace: w.Clone(), Owner: &client.User{ID: w.OwnerID}}, nil
		}
	}
	return nil, tderrors.NewNotFoundError("workspace details", "Workspace not found")
}

func (f *fakeAPI) counts() (int, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls, append([]string(nil), f.detailIDs...)
}

func (f *fakeAPI) set(fn func(f *fakeAPI)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

// fakeSession delivers snapshots on demand.
type fakeSession struct {
	mu   sync.Mutex
	fn   func(session.Snapshot)
	snap session.Snapshot
}

func (s *fakeSession) Subscribe(fn func(session.Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fn = fn
	fn(s.snap)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.fn = nil
	}
}

func (s *fakeSession) publish(snap session.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	if s.fn != nil {
		s.fn(snap)
	}
}

func (s *fakeSession) login(userID string) {
	s.publish(session.Snapshot{User: &client.User{ID: userID}, Credential: "tok-" + userID, Phase: session.Ready})
}

func (s *fakeSession) logout() {
	s.publish(session.Snapshot{Phase: session.Ready})
}

func ws(id, number string, spaces ...client.Space) client.Workspace {
	return client.Workspace{ID: id, Name: "ws " + id, Number: client.Number(number), OwnerID: "u1", Spaces: spaces}
}

func settle(t *testing.T, d *Directory) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Settle(ctx))
}

func newDirectory(t *testing.T, api API, opts ...Option) *Directory {
	t.Helper()
	d := New(api, opts...)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// newSignedInDirectory returns a Directory that behaves as if a session
// were present, without the reload an attached session would trigger.
func newSignedInDirectory(t *testing.T, api API, opts ...Option) *Directory {
	t.Helper()
	d := newDirectory(t, api, opts...)
	d.mu.Lock()
	d.loggedIn, d.userID = true, "u1"
	d.mu.Unlock()
	return d
}

func assertEmpty(t *testing.T, snap Snapshot) {
	t.Helper()
	assert.Empty(t, snap.Workspaces)
	assert.Nil(t, snap.Selected)
	assert.Nil(t, snap.Detail)
	assert.Equal(t, Empty, snap.Phase)
}

func TestSelectionTransition(t *testing.T) {
	cases := []struct {
		name       string
		prev, next string
		want       transition
	}{
		{"none to a", "", "a", transition{invalidate: true, fetchID: "a"}},
		{"a to b", "a", "b", transition{invalidate: true, fetchID: "b"}},
		{"same id", "a", "a", transition{}},
		{"a to none", "a", "", transition{invalidate: true}},
		{"none to none", "", "", transition{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, selectionTransition(tc.prev, tc.next))
		})
	}
}

func TestLogin_LoadsListSelectsFirstAndFetchesDetail(t *testing.T) {
	api := newFakeAPI(ws("w1", "1"))
	d := newDirectory(t, api)
	sess := &fakeSession{}
	d.Attach(sess)
	assertEmpty(t, d.Snapshot())

	sess.login("u1")
	settle(t, d)

	snap := d.Snapshot()
	assert.Equal(t, Populated, snap.Phase)
	require.Len(t, snap.Workspaces, 1)
	require.NotNil(t, snap.Selected)
	assert.Equal(t, "w1", snap.Selected.ID)
	require.NotNil(t, snap.Detail)
	assert.Equal(t, "w1", snap.Detail.ID)

	lists, details := api.counts()
	assert.Equal(t, 1, lists)
	assert.Equal(t, []string{"w1"}, details)
}

func TestLoginLogout_ReturnsToEmptyState(t *testing.T) {
	api := newFakeAPI(ws("a", "1"), ws("b", "2"))
	d := newDirectory(t, api)
	sess := &fakeSession{}
	d.Attach(sess)

	for i := 0; i < 3; i++ {
		sess.login("u1")
		settle(t, d)
		require.NotNil(t, d.Snapshot().Detail)

		sess.logout()
		assertEmpty(t, d.Snapshot())
	}
	lists, _ := api.counts()
	assert.Equal(t, 3, lists, "logout must not fetch")
}

func TestRefresh_WithoutSessionStaysEmpty(t *testing.T) {
	api := newFakeAPI(ws("a", "1"))
	d := newDirectory(t, api)
	sess := &fakeSession{}
	d.Attach(sess)

	d.Refresh(context.Background())
	d.FetchWorkspaceList(context.Background())
	settle(t, d)

	snap := d.Snapshot()
	assertEmpty(t, snap)
	assert.NoError(t, snap.LastError)
	lists, details := api.counts()
	assert.Zero(t, lists)
	assert.Empty(t, details)

	// after logout too
	sess.login("u1")
	settle(t, d)
	sess.logout()
	d.Refresh(context.Background())
	assertEmpty(t, d.Snapshot())
	lists, _ = api.counts()
	assert.Equal(t, 1, lists)
}

func TestFetchWorkspaceList_SelectsFirstElement(t *testing.T) {
	api := newFakeAPI(ws("a", "1"), ws("b", "2"))
	d := newSignedInDirectory(t, api)

	d.FetchWorkspaceList(context.Background())

	snap := d.Snapshot()
	require.NotNil(t, snap.Selected)
	assert.Equal(t, "a", snap.Selected.ID)
	assert.Equal(t, []string{"a", "b"}, []string{snap.Workspaces[0].ID, snap.Workspaces[1].ID})

	settle(t, d)
	_, details := api.counts()
	assert.Equal(t, []string{"a"}, details)
}

func TestRefresh_ExactlyOneListAndOneDetail(t *testing.T) {
	api := newFakeAPI(ws("a", "1"), ws("b", "2"))
	d := newDirectory(t, api)
	sess := &fakeSession{}
	d.Attach(sess)
	sess.login("u1")
	settle(t, d)
	require.True(t, d.SetSelectedWorkspace(ws("b", "2")))
	settle(t, d)

	lists0, details0 := api.counts()
	d.Refresh(context.Background())
	settle(t, d)
	lists1, details1 := api.counts()

	assert.Equal(t, lists0+1, lists1)
	require.Len(t, details1, len(details0)+1)
	assert.Equal(t, "b", details1[len(details1)-1])
}

func TestRefresh_NoSelectionNoDetail(t *testing.T) {
	api := newFakeAPI()
	d := newSignedInDirectory(t, api)

	d.Refresh(context.Background())
	settle(t, d)

	lists, details := api.counts()
	assert.Equal(t, 1, lists)
	assert.Empty(t, details)
	assert.Equal(t, Populated, d.Snapshot().Phase)
}

func TestRefresh_FirstLoadFetchesDetailOnce(t *testing.T) {
	api := newFakeAPI(ws("a", "1"))
	d := newSignedInDirectory(t, api)

	d.Refresh(context.Background())
	settle(t, d)

	lists, details := api.counts()
	assert.Equal(t, 1, lists)
	assert.Equal(t, []string{"a"}, details)
	assert.Equal(t, "a", d.Snapshot().Detail.ID)
}

func TestRefresh_NewSpaceVisibleInSelectionAndDetail(t *testing.T) {
	api := newFakeAPI(ws("a", "1", client.Space{ID: "s1", Number: "1"}))
	d := newDirectory(t, api)
	sess := &fakeSession{}
	d.Attach(sess)
	sess.login("u1")
	settle(t, d)

	// a create-space mutation succeeded on the server
	api.set(func(f *fakeAPI) {
		f.workspaces[0].Spaces = append(f.workspaces[0].Spaces, client.Space{ID: "s2", Number: "2", Name: "Backend"})
	})
	d.Refresh(context.Background())

	snap := d.Snapshot()
	require.NotNil(t, snap.Selected)
	require.NotNil(t, snap.Detail)
	assert.Len(t, snap.Selected.Spaces, 2)
	assert.Len(t, snap.Detail.Spaces, 2)
	assert.Equal(t, "s2", snap.Detail.Spaces[1].ID)
}

func TestSelectionChange_InvalidatesDetailBeforeNewDetail(t *testing.T) {
	api := newFakeAPI(ws("a", "1"), ws("b", "2"))
	d := newDirectory(t, api)
	sess := &fakeSession{}
	d.Attach(sess)
	sess.login("u1")
	settle(t, d)
	require.Equal(t, "a", d.Snapshot().Detail.ID)

	var mu sync.Mutex
	var bad []Snapshot
	unsub := d.Subscribe(func(s Snapshot) {
		if s.Selected != nil && s.Detail != nil && s.Selected.ID != s.Detail.ID {
			mu.Lock()
			bad = append(bad, s)
			mu.Unlock()
		}
	})
	defer unsub()

	gate := make(chan struct{})
	api.set(func(f *fakeAPI) { f.detailGates["b"] = gate })

	require.True(t, d.SetSelectedWorkspace(ws("b", "2")))
	snap := d.Snapshot()
	assert.Equal(t, "b", snap.Selected.ID)
	assert.Nil(t, snap.Detail, "detail of the previous selection must be dropped immediately")

	close(gate)
	settle(t, d)
	assert.Equal(t, "b", d.Snapshot().Detail.ID)

	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, bad)
}

func TestStaleDetailDiscarded(t *testing.T) {
	api := newFakeAPI(ws("a", "1"), ws("b", "2"))
	d := newDirectory(t, api)

	gateA := make(chan struct{})
	api.set(func(f *fakeAPI) { f.detailGates["a"] = gateA })
	sess := &fakeSession{}
	d.Attach(sess)
	sess.login("u1")

	// wait until the detail fetch for a is in flight
	for id := range api.detailStarted {
		if id == "a" {
			break
		}
	}
	require.True(t, d.SetSelectedWorkspace(ws("b", "2")))
	close(gateA)
	settle(t, d)

	snap := d.Snapshot()
	require.NotNil(t, snap.Detail)
	assert.Equal(t, "b", snap.Detail.ID)
	assert.Equal(t, "b", snap.Selected.ID)
}

func TestStaleListDiscarded(t *testing.T) {
	api := newFakeAPI(ws("a", "1"))
	d := newSignedInDirectory(t, api)

	gate := make(chan struct{})
	api.set(func(f *fakeAPI) { f.listGate = gate })
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.FetchWorkspaceList(context.Background())
	}()
	<-api.listStarted

	// a newer fetch sees the updated server list and lands first
	api.set(func(f *fakeAPI) {
		f.listGate = nil
		f.workspaces = []client.Workspace{ws("b", "2")}
	})
	d.FetchWorkspaceList(context.Background())

	api.set(func(f *fakeAPI) { f.workspaces = []client.Workspace{ws("a", "1")} })
	close(gate)
	<-done

	snap := d.Snapshot()
	require.Len(t, snap.Workspaces, 1)
	assert.Equal(t, "b", snap.Workspaces[0].ID, "older response must not overwrite newer")
}

func TestLogoutDuringInFlightListFetch(t *testing.T) {
	api := newFakeAPI(ws("a", "1"))
	gate := make(chan struct{})
	api.set(func(f *fakeAPI) { f.listGate = gate })
	d := newDirectory(t, api)
	sess := &fakeSession{}
	d.Attach(sess)

	sess.login("u1")
	<-api.listStarted
	assert.Equal(t, Loading, d.Snapshot().Phase)

	sess.logout()
	close(gate)
	settle(t, d)

	assertEmpty(t, d.Snapshot())
	_, details := api.counts()
	assert.Empty(t, details)
}

func TestUserSwitch_ClearsAndReloads(t *testing.T) {
	api := newFakeAPI(ws("a", "1"))
	d := newDirectory(t, api)
	sess := &fakeSession{}
	d.Attach(sess)
	sess.login("u1")
	settle(t, d)

	api.set(func(f *fakeAPI) { f.workspaces = []client.Workspace{ws("z", "9")} })
	sess.login("u2")
	settle(t, d)

	snap := d.Snapshot()
	require.Len(t, snap.Workspaces, 1)
	assert.Equal(t, "z", snap.Selected.ID)
	assert.Equal(t, "z", snap.Detail.ID)
	lists, _ := api.counts()
	assert.Equal(t, 2, lists)
}

func TestFetchList_FailureKeepsPreviousList(t *testing.T) {
	api := newFakeAPI(ws("a", "1"))
	d := newSignedInDirectory(t, api)
	d.Refresh(context.Background())

	api.set(func(f *fakeAPI) {
		f.listErr = tderrors.NewNetworkError("list workspaces", context.DeadlineExceeded)
		f.workspaces = nil
	})
	d.FetchWorkspaceList(context.Background())

	snap := d.Snapshot()
	require.Len(t, snap.Workspaces, 1)
	assert.Equal(t, "a", snap.Selected.ID)
	assert.ErrorIs(t, snap.LastError, tderrors.ErrUnreachable)
	assert.Equal(t, Populated, snap.Phase)

	api.set(func(f *fakeAPI) {
		f.listErr = nil
		f.workspaces = []client.Workspace{ws("a", "1")}
	})
	d.Refresh(context.Background())
	assert.NoError(t, d.Snapshot().LastError)
}

func TestFetchList_FirstFailureStaysLoading(t *testing.T) {
	api := newFakeAPI()
	api.set(func(f *fakeAPI) { f.listErr = tderrors.NewNetworkError("list workspaces", context.DeadlineExceeded) })
	d := newSignedInDirectory(t, api)

	d.FetchWorkspaceList(context.Background())

	snap := d.Snapshot()
	assert.Equal(t, Loading, snap.Phase)
	assert.Error(t, snap.LastError)
	assert.Empty(t, snap.Workspaces)
}

func TestFetchDetail_FailureKeepsDetail(t *testing.T) {
	api := newFakeAPI(ws("a", "1"))
	d := newSignedInDirectory(t, api)
	d.Refresh(context.Background())
	require.NotNil(t, d.Snapshot().Detail)

	api.set(func(f *fakeAPI) { f.detailErr = tderrors.NewNotFoundError("workspace details", "gone") })
	d.FetchWorkspaceDetail(context.Background(), "a")

	snap := d.Snapshot()
	require.NotNil(t, snap.Detail)
	assert.Equal(t, "a", snap.Detail.ID)
	assert.ErrorIs(t, snap.LastError, tderrors.ErrNotFound)
}

func TestFetchDetail_MismatchedIDKeepsDetail(t *testing.T) {
	api := newFakeAPI(ws("a", "1"), ws("b", "2"))
	d := newSignedInDirectory(t, api)
	d.Refresh(context.Background())
	require.Equal(t, "a", d.Snapshot().Detail.ID)

	// the server answers the request for a with b's detail
	api.set(func(f *fakeAPI) {
		f.details["a"] = &client.WorkspaceDetail{Workspace: ws("b", "2")}
	})
	d.FetchWorkspaceDetail(context.Background(), "a")

	snap := d.Snapshot()
	require.NotNil(t, snap.Detail)
	assert.Equal(t, "a", snap.Detail.ID)
	assert.Equal(t, "a", snap.Selected.ID)
	assert.ErrorIs(t, snap.LastError, tderrors.ErrUnreachable)
}

func TestFetchDetail_MismatchedIDOnFirstLoad(t *testing.T) {
	api := newFakeAPI(ws("a", "1"), ws("b", "2"))
	api.set(func(f *fakeAPI) {
		f.details["a"] = &client.WorkspaceDetail{Workspace: ws("b", "2")}
	})
	d := newSignedInDirectory(t, api)

	d.FetchWorkspaceList(context.Background())
	settle(t, d)

	snap := d.Snapshot()
	require.NotNil(t, snap.Selected)
	assert.Equal(t, "a", snap.Selected.ID)
	assert.Nil(t, snap.Detail)
	assert.Error(t, snap.LastError)
}

func TestFetchDetail_UnselectedIgnored(t *testing.T) {
	api := newFakeAPI(ws("a", "1"), ws("b", "2"))
	d := newSignedInDirectory(t, api)
	d.Refresh(context.Background())

	d.FetchWorkspaceDetail(context.Background(), "b")

	assert.Equal(t, "a", d.Snapshot().Detail.ID)
	_, details := api.counts()
	assert.Equal(t, []string{"a"}, details)
}

func TestSetSelectedWorkspace_UnknownIgnored(t *testing.T) {
	api := newFakeAPI(ws("a", "1"))
	d := newSignedInDirectory(t, api)
	d.Refresh(context.Background())
	before := d.Snapshot()

	assert.False(t, d.SetSelectedWorkspace(ws("ghost", "7")))
	settle(t, d)

	assert.Equal(t, before, d.Snapshot())
	_, details := api.counts()
	assert.Equal(t, []string{"a"}, details)
}

func TestSelectionDroppedWhenWorkspaceDisappears(t *testing.T) {
	api := newFakeAPI(ws("a", "1"), ws("b", "2"))
	d := newSignedInDirectory(t, api)
	d.Refresh(context.Background())
	require.True(t, d.SetSelectedWorkspace(ws("b", "2")))
	settle(t, d)

	gate := make(chan struct{})
	api.set(func(f *fakeAPI) {
		f.workspaces = []client.Workspace{ws("a", "1")}
		f.detailGates["a"] = gate
	})
	d.FetchWorkspaceList(context.Background())

	snap := d.Snapshot()
	assert.Equal(t, "a", snap.Selected.ID)
	assert.Nil(t, snap.Detail)
	close(gate)
	settle(t, d)
	assert.Equal(t, "a", d.Snapshot().Detail.ID)
}

func TestSelectionRebindSameIDKeepsDetail(t *testing.T) {
	api := newFakeAPI(ws("a", "1"))
	d := newSignedInDirectory(t, api)
	d.Refresh(context.Background())

	api.set(func(f *fakeAPI) { f.workspaces[0].Name = "renamed" })
	d.FetchWorkspaceList(context.Background())
	settle(t, d)

	snap := d.Snapshot()
	assert.Equal(t, "renamed", snap.Selected.Name)
	require.NotNil(t, snap.Detail, "same selection must not drop the detail")
	_, details := api.counts()
	assert.Len(t, details, 1)
}

func TestLookups(t *testing.T) {
	api := newFakeAPI(
		ws("a", "1", client.Space{ID: "s1", Number: "1", Name: "list"}),
		ws("b", "42", client.Space{ID: "s9", Number: "1"}),
	)
	api.set(func(f *fakeAPI) {
		f.details["a"] = &client.WorkspaceDetail{Workspace: ws("a", "1",
			client.Space{ID: "s1", Number: "1", Name: "detail"},
			client.Space{ID: "s2", Number: "2"},
		)}
	})
	d := newSignedInDirectory(t, api)
	d.Refresh(context.Background())
	lists, details := api.counts()

	id, ok := d.WorkspaceIDByNumber("42")
	assert.True(t, ok)
	assert.Equal(t, "b", id)
	_, ok = d.WorkspaceIDByNumber("404")
	assert.False(t, ok)

	w, ok := d.WorkspaceByNumber("1")
	require.True(t, ok)
	assert.Equal(t, "a", w.ID)

	// detail spaces win for the detailed workspace
	s, ok := d.SpaceByNumber("1", "1")
	require.True(t, ok)
	assert.Equal(t, "detail", s.Name)
	sid, ok := d.SpaceIDByNumber("1", "2")
	assert.True(t, ok)
	assert.Equal(t, "s2", sid)

	// list spaces otherwise
	sid, ok = d.SpaceIDByNumber("42", "1")
	assert.True(t, ok)
	assert.Equal(t, "s9", sid)
	_, ok = d.SpaceIDByNumber("42", "2")
	assert.False(t, ok)

	// lookups are pure
	lists2, details2 := api.counts()
	assert.Equal(t, lists, lists2)
	assert.Equal(t, details, details2)
}

func TestSnapshotIsACopy(t *testing.T) {
	api := newFakeAPI(ws("a", "1", client.Space{ID: "s1", Number: "1"}))
	d := newSignedInDirectory(t, api)
	d.Refresh(context.Background())

	snap := d.Snapshot()
	snap.Workspaces[0].Spaces[0].Name = "mutated"
	snap.Selected.Name = "mutated"
	snap.Detail.Spaces = nil

	again := d.Snapshot()
	assert.Empty(t, again.Workspaces[0].Spaces[0].Name)
	assert.NotEqual(t, "mutated", again.Selected.Name)
	assert.Len(t, again.Detail.Spaces, 1)
}

func TestRetriesRecoverableBackgroundFetch(t *testing.T) {
	api := newFakeAPI(ws("a", "1"))
	api.set(func(f *fakeAPI) {
		f.failLists = 1
		f.failErr = tderrors.ClassifyHTTPError("list workspaces", 503, "")
	})
	d := newDirectory(t, api, WithMaxAttempts(3))
	sess := &fakeSession{}
	d.Attach(sess)

	sess.login("u1")
	settle(t, d)

	snap := d.Snapshot()
	assert.Equal(t, Populated, snap.Phase)
	assert.Equal(t, "a", snap.Selected.ID)
	lists, _ := api.counts()
	assert.Equal(t, 2, lists)
}

func TestCloseIdempotent(t *testing.T) {
	d := New(newFakeAPI())
	sess := &fakeSession{}
	d.Attach(sess)
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())

	sess.mu.Lock()
	defer sess.mu.Unlock()
	assert.Nil(t, sess.fn, "Close must detach from the session")
}
