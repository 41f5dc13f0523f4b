// Package directory keeps the current user's workspace list and the selected
// workspace's detail consistent with the server and with the session.
//
// State is owned by a Directory and guarded by its mutex; readers receive
// deep copies. Background fetches triggered by session or selection changes
// run on a sharded FIFO executor keyed by slot ("list" or "detail").
//
// Every fetch takes a ticket for its slot. A response is applied only if its
// ticket is still the latest issued for that slot and no session change has
// happened since it was issued; otherwise it is discarded.
package directory

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/taskdesk/taskdesk/client"
	tderrors "github.com/taskdesk/taskdesk/internal/errors"
	"github.com/taskdesk/taskdesk/internal/shardqueue"
	"github.com/taskdesk/taskdesk/session"
)

const (
	slotList   = "list"
	slotDetail = "detail"
)

// Phase is the lifecycle of the directory's data.
type Phase int

const (
	// Empty means no session, or nothing fetched yet.
	Empty Phase = iota
	// Loading means a list fetch is in flight and no list has been applied.
	Loading
	// Populated means a list is present; selection and detail may lag.
	Populated
)

func (p Phase) String() string {
	switch p {
	case Loading:
		return "loading"
	case Populated:
		return "populated"
	default:
		return "empty"
	}
}

// API is the slice of the API client the Directory reads from.
type API interface {
	ListWorkspaces(ctx context.Context) ([]client.Workspace, error)
	GetWorkspaceDetails(ctx context.Context, workspaceID string) (*client.WorkspaceDetail, error)
}

// SessionSource publishes session snapshots. Subscribe must deliver the
// current snapshot immediately and later ones in order.
type SessionSource interface {
	Subscribe(fn func(session.Snapshot)) (unsubscribe func())
}

// Snapshot is a deep copy of the directory state.
type Snapshot struct {
	Workspaces []client.Workspace
	Selected   *client.Workspace
	Detail     *client.WorkspaceDetail
	Phase      Phase
	// LastError is the most recent fetch failure, cleared by the next success.
	LastError error
}

// Option configures a Directory.
type Option func(*Directory)

// WithLogger overrides the global zerolog logger.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Directory) { d.log = l }
}

// WithMaxAttempts sets how many times a background fetch runs before giving
// up. Only recoverable failures are retried. The default is 1.
func WithMaxAttempts(n int) Option {
	return func(d *Directory) {
		if n > 0 {
			d.maxAttempts = n
		}
	}
}

// Directory is the workspace state container. Create it with New.
type Directory struct {
	api         API
	log         zerolog.Logger
	maxAttempts int

	exec   *shardqueue.ShardExecutor
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	workspaces []client.Workspace
	selectedID string
	detail     *client.WorkspaceDetail
	phase      Phase
	lastErr    error

	// staleness guard
	epoch        uint64
	listTicket   uint64
	detailTicket uint64

	// last session seen by onSession
	loggedIn bool
	userID   string

	notifyMu sync.Mutex
	subsMu   sync.Mutex
	subs     map[int]func(Snapshot)
	nextSub  int

	detach    func()
	closeOnce sync.Once
}

// New returns an empty Directory reading from api.
func New(api API, opts ...Option) *Directory {
	d := &Directory{
		api:         api,
		log:         log.Logger,
		maxAttempts: 1,
		subs:        make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.With().Str("component", "directory").Logger()
	d.ctx, d.cancel = context.WithCancel(context.Background())

	// queue size and backoff come from SQ_ variables; shards and attempts
	// are ours
	qcfg, err := shardqueue.LoadConfig()
	if err != nil {
		d.log.Warn().Err(err).Msg("ignoring invalid SQ_ executor settings")
		qcfg = shardqueue.Config{}
	}
	execLog := d.log
	qcfg.Shards = 2
	qcfg.MaxAttempts = d.maxAttempts
	qcfg.Logger = &execLog
	qcfg.ErrorHandler = func(err error) {
		d.log.Debug().Err(err).Msg("background fetch gave up")
	}
	d.exec = shardqueue.NewShardExecutor(qcfg)
	return d
}

// Attach follows src: a session gaining an identity schedules a reload, a
// session losing it clears the directory, and a different user does both.
func (d *Directory) Attach(src SessionSource) {
	unsub := src.Subscribe(d.onSession)
	d.mu.Lock()
	prev := d.detach
	d.detach = unsub
	d.mu.Unlock()
	if prev != nil {
		prev()
	}
}

func (d *Directory) onSession(s session.Snapshot) {
	loggedIn, uid := s.LoggedIn(), s.UserID()

	d.mu.Lock()
	wasIn, prevUID := d.loggedIn, d.userID
	d.loggedIn, d.userID = loggedIn, uid
	cleared := wasIn && (!loggedIn || prevUID != uid)
	if cleared {
		d.clearLocked()
	}
	reload := loggedIn && (!wasIn || prevUID != uid)
	d.mu.Unlock()

	if cleared {
		d.log.Debug().Msg("session ended; directory cleared")
		d.notify()
	}
	if reload {
		d.log.Debug().Str("user_id", uid).Msg("session started; loading workspaces")
		d.schedule(slotList, d.reconcile)
	}
}

func (d *Directory) clearLocked() {
	d.epoch++
	d.workspaces = nil
	d.selectedID = ""
	d.detail = nil
	d.phase = Empty
	d.lastErr = nil
}

// Snapshot returns a deep copy of the current state.
func (d *Directory) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

func (d *Directory) snapshotLocked() Snapshot {
	snap := Snapshot{
		Workspaces: cloneWorkspaces(d.workspaces),
		Phase:      d.phase,
		LastError:  d.lastErr,
	}
	if i := d.indexLocked(d.selectedID); i >= 0 {
		w := d.workspaces[i].Clone()
		snap.Selected = &w
	}
	if d.detail != nil {
		det := d.detail.Clone()
		snap.Detail = &det
	}
	return snap
}

// FetchWorkspaceList replaces the list with the server's. Failures keep the
// previous list; they are logged and recorded in Snapshot.LastError. If the
// new list changes the selection, the new detail is fetched in the
// background. Without a session it does nothing.
func (d *Directory) FetchWorkspaceList(ctx context.Context) {
	tr, _ := d.fetchList(ctx)
	if tr.fetchID != "" {
		d.scheduleDetail(tr.fetchID)
	}
}

// FetchWorkspaceDetail replaces the detail with the server's copy of
// workspaceID. Nothing happens unless workspaceID is the current selection,
// and failures keep the previous detail.
func (d *Directory) FetchWorkspaceDetail(ctx context.Context, workspaceID string) {
	_ = d.fetchDetail(ctx, workspaceID)
}

// Refresh re-fetches the list and then, if a selection exists, its detail.
// It returns when both have settled. Callers that mutate workspaces or
// spaces call it afterwards. Without a session it does nothing.
func (d *Directory) Refresh(ctx context.Context) {
	_ = d.reconcile(ctx)
}

// reconcile fetches the list, then the detail of whatever is selected.
func (d *Directory) reconcile(ctx context.Context) error {
	_, listErr := d.fetchList(ctx)

	d.mu.Lock()
	id := d.selectedID
	d.mu.Unlock()
	if id == "" {
		return listErr
	}
	if err := d.fetchDetail(ctx, id); err != nil {
		return err
	}
	return listErr
}

// SetSelectedWorkspace selects ws. A workspace that is not in the current
// list is ignored and false is returned. A change of selection drops the
// loaded detail at once and fetches the new one in the background.
func (d *Directory) SetSelectedWorkspace(ws client.Workspace) bool {
	d.mu.Lock()
	if d.indexLocked(ws.ID) < 0 {
		d.mu.Unlock()
		d.log.Warn().Str("workspace_id", ws.ID).Msg("ignoring selection of unknown workspace")
		return false
	}
	tr := d.selectLocked(ws.ID)
	d.mu.Unlock()

	if tr.invalidate {
		d.notify()
	}
	if tr.fetchID != "" {
		d.scheduleDetail(tr.fetchID)
	}
	return true
}

// Settle waits until every background fetch scheduled before the call has
// finished.
func (d *Directory) Settle(ctx context.Context) error {
	return d.exec.Barrier(ctx, slotList, slotDetail)
}

// Subscribe registers fn to receive a Snapshot after every state change. fn
// is called once immediately with the current state.
func (d *Directory) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	d.notifyMu.Lock()
	defer d.notifyMu.Unlock()

	d.subsMu.Lock()
	id := d.nextSub
	d.nextSub++
	d.subs[id] = fn
	d.subsMu.Unlock()

	fn(d.Snapshot())

	var once sync.Once
	return func() {
		once.Do(func() {
			d.subsMu.Lock()
			delete(d.subs, id)
			d.subsMu.Unlock()
		})
	}
}

// Close detaches from the session and stops background work. Safe to call
// multiple times.
func (d *Directory) Close() error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		detach := d.detach
		d.detach = nil
		d.mu.Unlock()
		if detach != nil {
			detach()
		}
		d.cancel()
		d.exec.Stop()
	})
	return nil
}

// ------------------------- internals -------------------------

func (d *Directory) fetchList(ctx context.Context) (transition, error) {
	d.mu.Lock()
	if !d.loggedIn {
		d.mu.Unlock()
		d.log.Debug().Msg("skipping workspace list fetch without a session")
		return transition{}, nil
	}
	d.listTicket++
	ticket, epoch := d.listTicket, d.epoch
	loading := d.phase == Empty
	if loading {
		d.phase = Loading
	}
	d.mu.Unlock()
	if loading {
		d.notify()
	}

	list, err := d.api.ListWorkspaces(ctx)

	d.mu.Lock()
	if ticket != d.listTicket || epoch != d.epoch {
		d.mu.Unlock()
		staleResponsesTotal.WithLabelValues(slotList).Inc()
		d.log.Debug().Uint64("ticket", ticket).Msg("discarding stale workspace list")
		return transition{}, nil
	}
	if err != nil {
		d.lastErr = err
		d.mu.Unlock()
		fetchesTotal.WithLabelValues(slotList, "error").Inc()
		d.log.Warn().Err(err).Msg("workspace list fetch failed")
		d.notify()
		return transition{}, err
	}

	d.workspaces = cloneWorkspaces(list)
	d.phase = Populated
	d.lastErr = nil
	next := d.selectedID
	if d.indexLocked(next) < 0 {
		next = ""
	}
	if next == "" && len(d.workspaces) > 0 {
		next = d.workspaces[0].ID
	}
	tr := d.selectLocked(next)
	d.mu.Unlock()

	fetchesTotal.WithLabelValues(slotList, "ok").Inc()
	d.log.Debug().Int("workspaces", len(list)).Str("selected", next).Msg("workspace list applied")
	d.notify()
	return tr, nil
}

func (d *Directory) fetchDetail(ctx context.Context, id string) error {
	d.mu.Lock()
	if id == "" || id != d.selectedID {
		d.mu.Unlock()
		d.log.Debug().Str("workspace_id", id).Msg("skipping detail fetch for unselected workspace")
		return nil
	}
	d.detailTicket++
	ticket, epoch := d.detailTicket, d.epoch
	d.mu.Unlock()

	det, err := d.api.GetWorkspaceDetails(ctx, id)
	if err == nil && (det == nil || det.ID != id) {
		got := ""
		if det != nil {
			got = det.ID
		}
		err = tderrors.NewMalformedResponseError("workspace details",
			errors.Errorf("requested workspace %q, got %q", id, got))
	}

	d.mu.Lock()
	if ticket != d.detailTicket || epoch != d.epoch || id != d.selectedID {
		d.mu.Unlock()
		staleResponsesTotal.WithLabelValues(slotDetail).Inc()
		d.log.Debug().Str("workspace_id", id).Uint64("ticket", ticket).Msg("discarding stale workspace detail")
		return nil
	}
	if err != nil {
		d.lastErr = err
		d.mu.Unlock()
		fetchesTotal.WithLabelValues(slotDetail, "error").Inc()
		d.log.Warn().Err(err).Str("workspace_id", id).Msg("workspace detail fetch failed")
		d.notify()
		return err
	}
	cp := det.Clone()
	d.detail = &cp
	d.lastErr = nil
	d.mu.Unlock()

	fetchesTotal.WithLabelValues(slotDetail, "ok").Inc()
	d.notify()
	return nil
}

// selectLocked moves the selection to nextID and applies the transition's
// invalidation. The caller schedules the returned fetch.
func (d *Directory) selectLocked(nextID string) transition {
	tr := selectionTransition(d.selectedID, nextID)
	if tr.invalidate {
		d.detail = nil
		// outdates any detail fetch still in flight for the old selection
		d.detailTicket++
	}
	d.selectedID = nextID
	return tr
}

func (d *Directory) scheduleDetail(id string) {
	d.schedule(slotDetail, func(ctx context.Context) error {
		return d.fetchDetail(ctx, id)
	})
}

func (d *Directory) schedule(slot string, fn func(context.Context) error) {
	if err := d.exec.Submit(d.ctx, slot, shardqueue.JobFunc(fn)); err != nil {
		d.log.Warn().Err(err).Str("slot", slot).Msg("could not schedule background fetch")
	}
}

func (d *Directory) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i := range d.workspaces {
		if d.workspaces[i].ID == id {
			return i
		}
	}
	return -1
}

func (d *Directory) notify() {
	d.notifyMu.Lock()
	defer d.notifyMu.Unlock()

	snap := d.Snapshot()
	d.subsMu.Lock()
	fns := make([]func(Snapshot), 0, len(d.subs))
	for _, fn := range d.subs {
		fns = append(fns, fn)
	}
	d.subsMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func cloneWorkspaces(in []client.Workspace) []client.Workspace {
	out := make([]client.Workspace, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}
