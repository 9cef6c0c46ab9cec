package notify

import (
	"context"
	"encoding/json"
	"log"
	gosync "sync"
	"time"

	"github.com/sbabadag/sevapp/internal/model"
)

const (
	// defaultPollInterval is how often the unread count is re-fetched
	// while the realtime channel may or may not be delivering.
	defaultPollInterval = 10 * time.Second

	// defaultLoadTimeout forces the loading flag to resolve even if a
	// fetch never returns, so the UI cannot get stuck on a spinner.
	defaultLoadTimeout = 10 * time.Second

	// defaultListLimit bounds how many notifications a full load fetches.
	defaultListLimit = 50

	// eventBuffer sizes the reducer's inbox.
	eventBuffer = 256

	// cacheWriteTimeout bounds best-effort local cache writes.
	cacheWriteTimeout = 5 * time.Second
)

// State is a point-in-time snapshot of the store, safe to retain.
// UnreadCount is tracked independently of Records for efficiency and
// may transiently diverge from counting unread records; the polling
// fallback reconciles it with the server value.
type State struct {
	Records     []model.Notification
	UnreadCount int
	Loading     bool
}

// Option configures a Store.
type Option func(*Store)

// WithDispatcher installs the local alert dispatcher invoked for
// unread realtime arrivals.
func WithDispatcher(d Dispatcher) Option {
	return func(s *Store) { s.dispatcher = d }
}

// WithCache installs the optional local notification cache.
func WithCache(c Cache) Option {
	return func(s *Store) { s.cache = c }
}

// WithPollInterval overrides the unread-count poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(s *Store) { s.pollInterval = d }
}

// WithLoadTimeout overrides the defensive loading timeout.
func WithLoadTimeout(d time.Duration) Option {
	return func(s *Store) { s.loadTimeout = d }
}

// WithListLimit overrides how many notifications a full load fetches.
func WithListLimit(n int) Option {
	return func(s *Store) { s.limit = n }
}

// Store is the single in-memory source of truth for the authenticated
// user's notifications. It is owned by the session: SetUser tears down
// the previous session's subscription, poller, and state before any of
// the new user's data becomes visible.
type Store struct {
	backend      Backend
	dispatcher   Dispatcher
	cache        Cache
	limit        int
	pollInterval time.Duration
	loadTimeout  time.Duration

	events  chan event
	updates chan struct{}

	mu          gosync.RWMutex
	state       State
	gen         uint64
	userID      string
	sessCtx     context.Context
	sessCancel  context.CancelFunc
	unsubscribe func()

	// liveInserts holds the ids of realtime arrivals applied since the
	// last load merge; only these survive a merge when the fetch does
	// not return them.
	liveInserts map[int64]struct{}

	closeOnce gosync.Once
	done      chan struct{}
}

// NewStore creates a Store over the given backend and starts its
// reducer goroutine. The store is idle until SetUser is called.
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:      backend,
		limit:        defaultListLimit,
		pollInterval: defaultPollInterval,
		loadTimeout:  defaultLoadTimeout,
		events:       make(chan event, eventBuffer),
		updates:      make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.run()
	return s
}

// Close tears down the current session and stops the reducer.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		s.SetUser("")
		close(s.done)
	})
}

// run is the reducer loop: the only goroutine that mutates state in
// response to source events.
func (s *Store) run() {
	for {
		select {
		case <-s.done:
			return
		case ev := <-s.events:
			s.apply(ev)
		}
	}
}

// submit enqueues an event for the reducer without blocking the
// producer. A full queue drops the event; the polling fallback will
// converge the count regardless.
func (s *Store) submit(ev event) {
	select {
	case s.events <- ev:
	default:
		log.Printf("notify: event queue full, dropping %T", ev)
	}
}

// SetUser switches the store to a new authenticated identity. The
// previous session's realtime channel and poller are stopped, the
// state is cleared immediately (no cross-user leakage, even
// momentarily), and the new user's load, subscription, and poller are
// started. Passing the current user id is a no-op; passing "" just
// tears down.
func (s *Store) SetUser(userID string) {
	s.mu.Lock()
	if s.userID == userID && (userID == "" || s.gen > 0) {
		s.mu.Unlock()
		return
	}

	s.teardownLocked()
	s.userID = userID
	s.gen++
	gen := s.gen
	s.state = State{}
	s.liveInserts = nil

	if userID == "" {
		s.mu.Unlock()
		s.signalUpdate()
		return
	}

	s.state.Loading = true
	ctx, cancel := context.WithCancel(context.Background())
	s.sessCtx = ctx
	s.sessCancel = cancel
	s.mu.Unlock()
	s.signalUpdate()

	go s.primeFromCache(ctx, gen, userID)
	go s.load(ctx, gen, userID)
	go s.subscribe(ctx, gen, userID)
	go s.poll(ctx, gen, userID)
}

// ClearUser tears down the session on logout.
func (s *Store) ClearUser() {
	s.SetUser("")
}

// teardownLocked cancels the session context and disposes the realtime
// channel. Callers hold s.mu. In-flight fetches are not waited for;
// their results carry a stale generation and will be discarded.
func (s *Store) teardownLocked() {
	if s.sessCancel != nil {
		s.sessCancel()
		s.sessCtx = nil
		s.sessCancel = nil
	}
	if s.unsubscribe != nil {
		// Disposal does socket I/O; keep it off the caller's path.
		go s.unsubscribe()
		s.unsubscribe = nil
	}
}

// Refresh re-runs the full load for the current session. Exposed to
// the pull-to-refresh gesture in the UI.
func (s *Store) Refresh() {
	s.mu.RLock()
	gen, userID, ctx := s.gen, s.userID, s.sessCtx
	s.mu.RUnlock()

	if userID == "" || ctx == nil {
		return
	}
	go s.load(ctx, gen, userID)
}

// MarkAsRead optimistically flips a notification to read and decrements
// the unread count (floored at zero) before the backend confirms. A
// backend failure is logged, never rolled back: the next poll converges
// the count with the server.
func (s *Store) MarkAsRead(id int64) {
	s.mu.RLock()
	gen, userID, ctx := s.gen, s.userID, s.sessCtx
	s.mu.RUnlock()

	if userID == "" || ctx == nil {
		return
	}

	s.submit(markReadEvent{gen: gen, id: id})

	go func() {
		if err := s.backend.MarkRead(ctx, id); err != nil {
			log.Printf("notify: mark-read %d failed on backend: %v", id, err)
		}
		if s.cache != nil {
			cctx, cancel := context.WithTimeout(context.Background(), cacheWriteTimeout)
			defer cancel()
			if err := s.cache.MarkRead(cctx, id); err != nil {
				log.Printf("notify: cache mark-read %d: %v", id, err)
			}
		}
	}()
}

// MarkAllAsRead optimistically marks every record read and zeroes the
// unread count, then issues one bulk backend update scoped to the
// user's unread rows.
func (s *Store) MarkAllAsRead() {
	s.mu.RLock()
	gen, userID, ctx := s.gen, s.userID, s.sessCtx
	s.mu.RUnlock()

	if userID == "" || ctx == nil {
		return
	}

	s.submit(markAllReadEvent{gen: gen})

	go func() {
		if err := s.backend.MarkAllRead(ctx, userID); err != nil {
			log.Printf("notify: mark-all-read failed on backend: %v", err)
		}
		if s.cache != nil {
			cctx, cancel := context.WithTimeout(context.Background(), cacheWriteTimeout)
			defer cancel()
			if err := s.cache.MarkAllRead(cctx, userID); err != nil {
				log.Printf("notify: cache mark-all-read: %v", err)
			}
		}
	}()
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]model.Notification, len(s.state.Records))
	copy(records, s.state.Records)
	return State{
		Records:     records,
		UnreadCount: s.state.UnreadCount,
		Loading:     s.state.Loading,
	}
}

// Updates returns a channel that receives a signal whenever the state
// changes. Signals coalesce; consumers re-read Snapshot on each one.
func (s *Store) Updates() <-chan struct{} {
	return s.updates
}

func (s *Store) signalUpdate() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

// load fetches the notification list and unread count concurrently and
// submits whatever succeeded. A partial failure keeps the half that
// arrived; a total failure leaves the last-known-good state untouched.
// The defensive timer resolves the loading flag even if neither fetch
// ever returns.
func (s *Store) load(ctx context.Context, gen uint64, userID string) {
	s.submit(loadingEvent{gen: gen})

	timer := time.AfterFunc(s.loadTimeout, func() {
		log.Printf("notify: load timed out after %v, releasing loading state", s.loadTimeout)
		s.submit(loadDoneEvent{gen: gen})
	})

	var (
		records     []model.Notification
		haveRecords bool
		count       int
		haveCount   bool
	)

	var wg gosync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		recs, err := s.backend.Notifications(ctx, userID, s.limit)
		if err != nil {
			log.Printf("notify: fetching notifications: %v", err)
			return
		}
		records, haveRecords = recs, true
	}()
	go func() {
		defer wg.Done()
		n, err := s.backend.UnreadCount(ctx, userID)
		if err != nil {
			log.Printf("notify: fetching unread count: %v", err)
			return
		}
		count, haveCount = n, true
	}()
	wg.Wait()
	timer.Stop()

	s.submit(loadedEvent{
		gen:         gen,
		records:     records,
		haveRecords: haveRecords,
		count:       count,
		haveCount:   haveCount,
	})
	s.submit(loadDoneEvent{gen: gen})

	if haveRecords && s.cache != nil && len(records) > 0 {
		cctx, cancel := context.WithTimeout(context.Background(), cacheWriteTimeout)
		defer cancel()
		if err := s.cache.Upsert(cctx, records); err != nil {
			log.Printf("notify: caching notifications: %v", err)
		}
	}
}

// subscribe opens the realtime channel for the session. Exactly one
// subscription may be active per session; if the session changed while
// the dial was in flight, or a channel is somehow already registered,
// the fresh one is disposed immediately.
func (s *Store) subscribe(ctx context.Context, gen uint64, userID string) {
	unsub, err := s.backend.SubscribeInserts(ctx, userID, func(raw json.RawMessage) {
		record, err := decodeRecord(raw)
		if err != nil {
			log.Printf("notify: dropping malformed realtime payload: %v", err)
			return
		}
		s.submit(insertEvent{gen: gen, record: record})
	})
	if err != nil {
		// No retry here; the polling fallback is the safety net.
		log.Printf("notify: realtime subscription unavailable, polling only: %v", err)
		return
	}

	s.mu.Lock()
	if s.gen != gen || s.unsubscribe != nil {
		s.mu.Unlock()
		unsub()
		return
	}
	s.unsubscribe = unsub
	s.mu.Unlock()
}

// poll re-fetches the unread count at a fixed interval for as long as
// the session lives. Its lifecycle is independent of the realtime
// channel: either can fail while the other keeps working.
func (s *Store) poll(ctx context.Context, gen uint64, userID string) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := s.backend.UnreadCount(ctx, userID)
			if err != nil {
				log.Printf("notify: unread count poll failed: %v", err)
				continue
			}
			s.submit(countEvent{gen: gen, count: count})
		}
	}
}

// primeFromCache fills an empty, still-loading store with the local
// cache's last-known notifications so the UI is not blank before the
// first network load resolves.
func (s *Store) primeFromCache(ctx context.Context, gen uint64, userID string) {
	if s.cache == nil {
		return
	}
	records, err := s.cache.Recent(ctx, userID, s.limit)
	if err != nil {
		log.Printf("notify: reading notification cache: %v", err)
		return
	}
	if len(records) > 0 {
		s.submit(primedEvent{gen: gen, records: records})
	}
}

// apply is the reducer: it folds one event into the state. Events from
// a superseded session generation are discarded, which is what makes
// late completions of in-flight work after teardown harmless.
func (s *Store) apply(ev event) {
	s.mu.Lock()
	if ev.generation() != s.gen {
		s.mu.Unlock()
		return
	}

	var alert *model.Notification
	var cacheRecord *model.Notification

	switch ev := ev.(type) {
	case loadingEvent:
		s.state.Loading = true

	case loadedEvent:
		if ev.haveRecords {
			s.state.Records = mergeByID(ev.records, s.state.Records, s.liveInserts)
			s.liveInserts = nil
		}
		if ev.haveCount {
			s.state.UnreadCount = ev.count
		}

	case loadDoneEvent:
		s.state.Loading = false

	case primedEvent:
		if s.state.Loading && len(s.state.Records) == 0 {
			s.state.Records = ev.records
			s.state.UnreadCount = countUnread(ev.records)
		}

	case insertEvent:
		// Realtime arrivals always go to the front, regardless of
		// created_at skew.
		s.state.Records = append([]model.Notification{ev.record}, s.state.Records...)
		if s.liveInserts == nil {
			s.liveInserts = make(map[int64]struct{})
		}
		s.liveInserts[ev.record.ID] = struct{}{}
		if !ev.record.Read {
			s.state.UnreadCount++
			record := ev.record
			alert = &record
		}
		record := ev.record
		cacheRecord = &record

	case countEvent:
		// Server wins on divergence.
		s.state.UnreadCount = ev.count

	case markReadEvent:
		decrement := true
		for i := range s.state.Records {
			if s.state.Records[i].ID == ev.id {
				if s.state.Records[i].Read {
					decrement = false
				} else {
					s.state.Records[i].Read = true
				}
				break
			}
		}
		if decrement && s.state.UnreadCount > 0 {
			s.state.UnreadCount--
		}

	case markAllReadEvent:
		for i := range s.state.Records {
			s.state.Records[i].Read = true
		}
		s.state.UnreadCount = 0
	}
	s.mu.Unlock()

	if alert != nil && s.dispatcher != nil {
		s.dispatcher.Dispatch(alert.Title, alert.Message, alert.Data)
	}
	if cacheRecord != nil && s.cache != nil {
		go func(n model.Notification) {
			cctx, cancel := context.WithTimeout(context.Background(), cacheWriteTimeout)
			defer cancel()
			if err := s.cache.Upsert(cctx, []model.Notification{n}); err != nil {
				log.Printf("notify: caching realtime notification: %v", err)
			}
		}(*cacheRecord)
	}

	s.signalUpdate()
}

// mergeByID folds a freshly fetched list with the current one. Records
// the fetch does not return survive only if they arrived over the
// realtime channel since the previous merge; anything else absent from
// the fetch (cache leftovers, rows deleted server-side) is dropped so
// the list stays newest-first.
func mergeByID(fetched, existing []model.Notification, live map[int64]struct{}) []model.Notification {
	seen := make(map[int64]struct{}, len(fetched))
	for _, n := range fetched {
		seen[n.ID] = struct{}{}
	}

	var merged []model.Notification
	for _, n := range existing {
		if _, ok := seen[n.ID]; ok {
			continue
		}
		if _, ok := live[n.ID]; ok {
			merged = append(merged, n)
		}
	}
	return append(merged, fetched...)
}

// countUnread counts records with Read == false.
func countUnread(records []model.Notification) int {
	n := 0
	for _, r := range records {
		if !r.Read {
			n++
		}
	}
	return n
}
