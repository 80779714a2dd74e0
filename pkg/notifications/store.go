package notifications

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/clinicops/notifysync/pkg/async"
	"github.com/clinicops/notifysync/pkg/broadcast"
	"github.com/clinicops/notifysync/pkg/logger"
)

// DefaultListLimit is how many notifications Init requests.
const DefaultListLimit = 50

// Store is the single owner of the in-memory notification collection.
//
// Every mutation is applied to memory first and then confirmed with the
// Client in the background. Confirmations are matched to entries strictly by
// id, so completions may arrive in any order. Persistence failures never
// reach the caller; the configured Policy decides whether the optimistic
// state is kept, retried or rolled back.
type Store struct {
	client      Client
	policy      Policy
	logger      *slog.Logger
	normalizer  Normalizer
	events      *broadcast.MemoryBroadcaster[Event]
	expiry      *expiryScheduler
	expiryDelay time.Duration
	listLimit   int
	eventBuffer int

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	items   []Notification
	loading bool
	closed  bool
	// local holds client-minted ids still in the collection; true while the
	// create is awaiting confirmation. Membership, not the id prefix, makes
	// an entry local, so a server id that happens to look local is not.
	local map[string]bool
	// displaced holds pending local ids dropped by a reload that returned a
	// server entry with the same id. Their confirmation is inserted instead
	// of discarded.
	displaced map[string]struct{}
	inflight  map[*async.Future[Outcome]]struct{}
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreLogger sets the logger for the Store.
func WithStoreLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPolicy sets how failed confirmations are handled. Default is KeepOptimistic.
func WithPolicy(p Policy) StoreOption {
	return func(s *Store) {
		if p != nil {
			s.policy = p
		}
	}
}

// WithExpiryDelay sets how long ephemeral success/info notifications live.
func WithExpiryDelay(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.expiryDelay = d
		}
	}
}

// WithListLimit sets the limit passed to Client.List by Init.
func WithListLimit(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.listLimit = n
		}
	}
}

// WithNormalizer replaces the payload normalizer, typically to pin its clock.
func WithNormalizer(z Normalizer) StoreOption {
	return func(s *Store) { s.normalizer = z }
}

// WithEventBuffer sets the per-subscriber event buffer size.
func WithEventBuffer(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.eventBuffer = n
		}
	}
}

// AddOption configures a single Add call.
type AddOption func(*addOptions)

type addOptions struct {
	persist bool
}

// WithoutPersist keeps the notification local only. Ephemeral success and
// info notifications are removed automatically after the expiry delay.
func WithoutPersist() AddOption {
	return func(o *addOptions) { o.persist = false }
}

// NewStore creates a Store backed by client. The Store reports Loading until
// Init completes and must be released with Close.
func NewStore(client Client, opts ...StoreOption) *Store {
	s := &Store{
		client:      client,
		policy:      KeepOptimistic(),
		logger:      slog.Default(),
		expiryDelay: DefaultExpiryDelay,
		listLimit:   DefaultListLimit,
		eventBuffer: 64,
		loading:     true,
		local:       make(map[string]bool),
		displaced:   make(map[string]struct{}),
		inflight:    make(map[*async.Future[Outcome]]struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.With(logger.Component("notifications.store"))
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.events = broadcast.NewMemoryBroadcaster[Event](s.eventBuffer)
	s.expiry = newExpiryScheduler(func(id string) { s.remove(id, EventExpired) })

	return s
}

// Init loads the collection from persistence, replacing what the Store holds.
// Local entries are kept at the head so a reload cannot lose unconfirmed or
// ephemeral notifications. When a server entry shares an id with a local one
// the server copy wins. A failed load leaves an empty inbox; Init never
// blocks callers on persistence errors.
func (s *Store) Init(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.loading = true
	s.mu.Unlock()

	fetched, err := s.fetch(ctx)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "Failed to load notifications, starting with an empty inbox",
			logger.Operation(string(OpList)),
			logger.Error(err),
		)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	server := make([]Notification, 0, len(fetched))
	seen := make(map[string]struct{}, len(fetched))
	skipped := 0
	for _, n := range fetched {
		if _, dup := seen[n.ID]; dup || n.ID == "" {
			skipped++
			continue
		}
		seen[n.ID] = struct{}{}
		server = append(server, n)
	}

	items := make([]Notification, 0, len(server)+len(s.local))
	var clashed []string
	for _, n := range s.items {
		pending, ok := s.local[n.ID]
		if !ok {
			continue
		}
		if _, clash := seen[n.ID]; clash {
			delete(s.local, n.ID)
			s.expiry.Cancel(n.ID)
			if pending {
				s.displaced[n.ID] = struct{}{}
			}
			clashed = append(clashed, n.ID)
			continue
		}
		items = append(items, n)
	}

	s.items = append(items, server...)
	s.loading = false
	total := len(s.items)
	s.mu.Unlock()

	if skipped > 0 {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "Dropped notifications without a unique id",
			logger.Count(skipped),
		)
	}
	for _, id := range clashed {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "Server notification shares a local id, keeping the server copy",
			logger.LocalID(id),
		)
	}
	s.logger.LogAttrs(ctx, slog.LevelDebug, "Notifications loaded", logger.Count(total))
	s.emit(Event{Type: EventLoaded, Op: OpList, Err: err})
}

func (s *Store) fetch(ctx context.Context) ([]Notification, error) {
	body, err := s.client.List(ctx, s.listLimit)
	if err != nil {
		return nil, err
	}
	return s.normalizer.DecodeList(body)
}

// Add inserts a notification at the head of the collection immediately and,
// unless WithoutPersist is given, creates it in persistence in the background.
// The returned notification carries the local id; the future resolves once
// persistence has answered and the entry was reconciled.
func (s *Store) Add(in Input, opts ...AddOption) (Notification, *async.Future[Outcome]) {
	o := addOptions{persist: true}
	for _, opt := range opts {
		opt(&o)
	}

	in = in.withDefaults()
	at := s.normalizer.now()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return in.Notification(NewLocalID(), at), async.Rejected[Outcome](ErrStoreClosed)
	}
	n := in.Notification(s.mintLocalID(), at)
	s.items = slices.Insert(s.items, 0, n)
	s.local[n.ID] = o.persist
	s.mu.Unlock()

	s.emit(Event{Type: EventAdded, ID: n.ID})

	if !o.persist {
		if n.Type == TypeSuccess || n.Type == TypeInfo {
			s.expiry.Arm(n.ID, s.expiryDelay)
		}
		return n, async.Resolved(Outcome{Op: OpCreate, ID: n.ID, Status: StatusSkipped})
	}

	localID := n.ID
	return n, s.persist(OpCreate, localID,
		func(ctx context.Context) ([]byte, error) { return s.client.Create(ctx, in) },
		func(ctx context.Context, body []byte) Outcome { return s.reconcile(ctx, localID, body) },
		func() {
			delete(s.displaced, localID)
			s.dropLocal(localID)
		},
	)
}

// mintLocalID returns a local id not used by any entry. Called with s.mu held.
func (s *Store) mintLocalID() string {
	for {
		id := NewLocalID()
		if _, taken := s.local[id]; !taken && indexByID(s.items, id) < 0 {
			return id
		}
	}
}

// dropLocal removes a local entry and forgets its id. Called with s.mu held.
func (s *Store) dropLocal(id string) {
	if _, ok := s.local[id]; !ok {
		return
	}
	delete(s.local, id)
	s.items = deleteByID(s.items, id)
}

// reconcile swaps the local entry for the confirmed one. When the local entry
// is gone the user removed it first: the confirmation is discarded and the
// remote copy deleted as well.
func (s *Store) reconcile(ctx context.Context, localID string, body []byte) Outcome {
	entity, err := s.normalizer.DecodeOne(body)
	if err == nil && entity.ID == "" {
		err = ErrMissingID
	}
	if err != nil {
		return s.fail(ctx, OpCreate, localID, err, func() { s.dropLocal(localID) })
	}

	out := Outcome{Op: OpCreate, ID: localID, Status: StatusConfirmed, Entity: &entity}

	s.mu.Lock()
	if _, ok := s.displaced[localID]; ok {
		delete(s.displaced, localID)
		inserted := indexByID(s.items, entity.ID) < 0
		if inserted {
			s.items = slices.Insert(s.items, 0, entity)
		}
		s.mu.Unlock()
		if inserted {
			s.emit(Event{Type: EventReconciled, ID: entity.ID, PrevID: localID, Op: OpCreate})
		}
		return out
	}

	idx := -1
	if _, pending := s.local[localID]; pending {
		idx = indexByID(s.items, localID)
	}
	if idx < 0 {
		// Removed before confirmation: delete wins, locally and remotely,
		// even if a reload already brought the remote copy in.
		delete(s.local, localID)
		dropped := indexByID(s.items, entity.ID) >= 0
		if dropped {
			s.items = deleteByID(s.items, entity.ID)
		}
		s.mu.Unlock()
		s.logger.LogAttrs(ctx, slog.LevelDebug, "Notification removed before confirmation, discarding remote copy",
			logger.LocalID(localID),
			logger.NotificationID(entity.ID),
		)
		if dropped {
			s.emit(Event{Type: EventRemoved, ID: entity.ID})
		}
		s.followUp(OpDelete, entity.ID, func(ctx context.Context) error {
			return s.client.Delete(ctx, entity.ID)
		})
		return out
	}
	delete(s.local, localID)

	markRemote := s.items[idx].Read && !entity.Read
	if markRemote {
		entity.Read = true
	}

	if dup := indexByID(s.items, entity.ID); dup >= 0 {
		// The remote copy is already present; keep it and drop the local one.
		if entity.Read {
			s.items[dup].Read = true
		}
		s.items = slices.Delete(s.items, idx, idx+1)
	} else {
		s.items[idx] = entity
	}
	s.mu.Unlock()

	s.emit(Event{Type: EventReconciled, ID: entity.ID, PrevID: localID, Op: OpCreate})

	if markRemote {
		s.followUp(OpMarkRead, entity.ID, func(ctx context.Context) error {
			return s.client.MarkRead(ctx, entity.ID)
		})
	}
	return out
}

// Remove deletes the entry immediately and then deletes it in persistence.
// Local entries are never sent to persistence; a pending create for a removed
// entry is discarded when it confirms. Unknown ids are a no-op.
func (s *Store) Remove(id string) *async.Future[Outcome] {
	return s.remove(id, EventRemoved)
}

func (s *Store) remove(id string, kind EventType) *async.Future[Outcome] {
	s.expiry.Cancel(id)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return async.Rejected[Outcome](ErrStoreClosed)
	}
	idx := indexByID(s.items, id)
	if idx < 0 {
		s.mu.Unlock()
		if kind == EventRemoved {
			s.logger.LogAttrs(s.ctx, slog.LevelDebug, "Remove ignored, notification not found",
				logger.NotificationID(id),
			)
		}
		return async.Resolved(Outcome{Op: OpDelete, ID: id, Status: StatusSkipped})
	}
	removed := s.items[idx]
	s.items = slices.Delete(s.items, idx, idx+1)
	_, local := s.local[id]
	delete(s.local, id)
	s.mu.Unlock()

	s.emit(Event{Type: kind, ID: id})

	if local {
		return async.Resolved(Outcome{Op: OpDelete, ID: id, Status: StatusSkipped})
	}

	return s.persist(OpDelete, id,
		func(ctx context.Context) ([]byte, error) { return nil, s.client.Delete(ctx, id) },
		nil,
		func() {
			if indexByID(s.items, id) >= 0 {
				return
			}
			s.items = slices.Insert(s.items, min(idx, len(s.items)), removed)
		},
	)
}

// MarkRead flags the entry read immediately and then confirms with persistence.
// Unknown ids and entries already read are a no-op. For a local entry the read
// state is carried over when its create confirms.
func (s *Store) MarkRead(id string) *async.Future[Outcome] {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return async.Rejected[Outcome](ErrStoreClosed)
	}
	idx := indexByID(s.items, id)
	if idx < 0 {
		s.mu.Unlock()
		s.logger.LogAttrs(s.ctx, slog.LevelDebug, "Mark read ignored, notification not found",
			logger.NotificationID(id),
		)
		return async.Resolved(Outcome{Op: OpMarkRead, ID: id, Status: StatusSkipped})
	}
	if s.items[idx].Read {
		s.mu.Unlock()
		return async.Resolved(Outcome{Op: OpMarkRead, ID: id, Status: StatusSkipped})
	}
	s.items[idx].Read = true
	_, local := s.local[id]
	s.mu.Unlock()

	s.emit(Event{Type: EventUpdated, ID: id})

	if local {
		return async.Resolved(Outcome{Op: OpMarkRead, ID: id, Status: StatusSkipped})
	}

	return s.persist(OpMarkRead, id,
		func(ctx context.Context) ([]byte, error) { return nil, s.client.MarkRead(ctx, id) },
		nil,
		func() {
			if i := indexByID(s.items, id); i >= 0 {
				s.items[i].Read = false
			}
		},
	)
}

// MarkAllRead flags every entry read immediately and then confirms with persistence.
func (s *Store) MarkAllRead() *async.Future[Outcome] {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return async.Rejected[Outcome](ErrStoreClosed)
	}
	var flipped []string
	for i := range s.items {
		if !s.items[i].Read {
			s.items[i].Read = true
			flipped = append(flipped, s.items[i].ID)
		}
	}
	s.mu.Unlock()

	if len(flipped) > 0 {
		s.emit(Event{Type: EventUpdated})
	}

	return s.persist(OpMarkAllRead, "",
		func(ctx context.Context) ([]byte, error) { return nil, s.client.MarkAllRead(ctx) },
		nil,
		func() {
			for _, id := range flipped {
				if i := indexByID(s.items, id); i >= 0 {
					s.items[i].Read = false
				}
			}
		},
	)
}

// persist runs call in the background. On success settle (if any) produces
// the outcome; on failure the policy decides whether undo runs. undo is
// invoked with the store lock held.
func (s *Store) persist(
	op Operation,
	id string,
	call func(context.Context) ([]byte, error),
	settle func(context.Context, []byte) Outcome,
	undo func(),
) *async.Future[Outcome] {
	return s.launch(id, func(ctx context.Context) Outcome {
		body, attempts, err := s.call(ctx, call)
		if err != nil {
			if attempts > 1 {
				s.logger.LogAttrs(ctx, slog.LevelDebug, "Retries exhausted",
					logger.Operation(string(op)),
					slog.Int("attempts", attempts),
				)
			}
			return s.fail(ctx, op, id, err, undo)
		}
		if settle != nil {
			return settle(ctx, body)
		}
		return Outcome{Op: op, ID: id, Status: StatusConfirmed}
	})
}

// followUp issues a best-effort persistence call that keeps the remote side
// consistent with a reconciliation decision. Failures are logged only.
func (s *Store) followUp(op Operation, id string, call func(context.Context) error) {
	s.launch(id, func(ctx context.Context) Outcome {
		if err := call(ctx); err != nil {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "Follow-up persistence call failed",
				logger.Operation(string(op)),
				logger.NotificationID(id),
				logger.Error(err),
			)
			return Outcome{Op: op, ID: id, Status: StatusFailed, Err: err}
		}
		return Outcome{Op: op, ID: id, Status: StatusConfirmed}
	})
}

// launch starts fn on its own goroutine and tracks it until it returns.
func (s *Store) launch(id string, fn func(ctx context.Context) Outcome) *async.Future[Outcome] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return async.Rejected[Outcome](ErrStoreClosed)
	}

	var f *async.Future[Outcome]
	// The goroutine must always run so it can untrack itself; cancellation
	// reaches the client through s.ctx instead.
	f = async.Async(context.WithoutCancel(s.ctx), id, func(context.Context, string) (Outcome, error) {
		defer func() {
			s.mu.Lock()
			delete(s.inflight, f)
			s.mu.Unlock()
		}()
		return fn(s.ctx), nil
	})
	s.inflight[f] = struct{}{}
	return f
}

// call invokes fn, retrying according to the policy's backoff.
func (s *Store) call(ctx context.Context, fn func(context.Context) ([]byte, error)) ([]byte, int, error) {
	backoff := s.policy.Backoff()
	if backoff == nil {
		body, err := fn(ctx)
		return body, 1, err
	}

	var (
		body     []byte
		attempts int
	)
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		var err error
		body, err = fn(ctx)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	return body, attempts, err
}

// fail records a failed confirmation and applies the policy decision.
func (s *Store) fail(ctx context.Context, op Operation, id string, err error, undo func()) Outcome {
	out := Outcome{Op: op, ID: id, Status: StatusFailed, Err: err}

	if s.ctx.Err() != nil {
		// Store closed while the call was in flight.
		return out
	}

	out.Action = s.policy.OnFailure(ctx, out)

	s.logger.LogAttrs(ctx, slog.LevelWarn, "Persistence call failed",
		logger.Operation(string(op)),
		logger.NotificationID(id),
		logger.Action(out.Action.String()),
		logger.Error(err),
	)

	if out.Action == ActionRollback && undo != nil {
		s.mu.Lock()
		if !s.closed {
			undo()
		}
		s.mu.Unlock()
	}

	s.emit(Event{Type: EventFailed, ID: id, Op: op, Err: err})
	return out
}

// Notifications returns a snapshot of the collection, newest first.
func (s *Store) Notifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// Get returns the entry with the given id.
func (s *Store) Get(id string) (Notification, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := indexByID(s.items, id); i >= 0 {
		return s.items[i], true
	}
	return Notification{}, false
}

// IsLocal reports whether id is a client-minted entry that persistence has
// not confirmed, either pending or ephemeral.
func (s *Store) IsLocal(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.local[id]
	return ok
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// UnreadCount counts unread entries in the current collection.
func (s *Store) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.items {
		if !n.Read {
			count++
		}
	}
	return count
}

// Loading reports whether the initial load is still running.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Subscribe returns a subscriber that receives an Event after every change.
// Events are change signals; consumers should re-read the snapshot.
func (s *Store) Subscribe(ctx context.Context) broadcast.Subscriber[Event] {
	return s.events.Subscribe(ctx)
}

// Flush waits until every persistence call issued so far, including
// follow-ups they trigger, has been settled.
func (s *Store) Flush(ctx context.Context) error {
	for {
		s.mu.RLock()
		pending := make([]*async.Future[Outcome], 0, len(s.inflight))
		for f := range s.inflight {
			if !f.IsComplete() {
				pending = append(pending, f)
			}
		}
		s.mu.RUnlock()

		if len(pending) == 0 {
			return nil
		}
		if _, err := async.WaitAllContext(ctx, pending...); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Close disarms expiry timers, cancels in-flight persistence calls, waits for
// them to settle and closes event subscribers. It is safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.expiry.Stop()
	s.cancel()
	_ = s.Flush(context.Background())
	return s.events.Close()
}

func (s *Store) emit(e Event) {
	_ = s.events.Broadcast(s.ctx, broadcast.Message[Event]{Data: e})
}

func indexByID(items []Notification, id string) int {
	return slices.IndexFunc(items, func(n Notification) bool { return n.ID == id })
}

func deleteByID(items []Notification, id string) []Notification {
	if i := indexByID(items, id); i >= 0 {
		return slices.Delete(items, i, i+1)
	}
	return items
}
