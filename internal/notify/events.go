package notify

import "github.com/sbabadag/sevapp/internal/model"

// event is a single unit of work for the store's reducer. Every event
// remembers the session generation it was produced for so the reducer
// can discard results that outlived their session.
type event interface {
	generation() uint64
}

// loadingEvent marks the start of a full load.
type loadingEvent struct {
	gen uint64
}

// loadedEvent carries the result of a full load. Either half may be
// missing when its fetch failed; the reducer applies whatever arrived.
type loadedEvent struct {
	gen         uint64
	records     []model.Notification
	haveRecords bool
	count       int
	haveCount   bool
}

// loadDoneEvent resolves the loading flag, either because the load
// finished or because the defensive timeout fired.
type loadDoneEvent struct {
	gen uint64
}

// primedEvent carries cached records used to fill an empty store while
// the first network load is still in flight.
type primedEvent struct {
	gen     uint64
	records []model.Notification
}

// insertEvent is a decoded realtime INSERT.
type insertEvent struct {
	gen    uint64
	record model.Notification
}

// countEvent is an unread-count snapshot from the polling fallback.
// The server value overwrites local state unconditionally.
type countEvent struct {
	gen   uint64
	count int
}

// markReadEvent is the optimistic local half of a mark-as-read intent.
type markReadEvent struct {
	gen uint64
	id  int64
}

// markAllReadEvent is the optimistic local half of mark-all-as-read.
type markAllReadEvent struct {
	gen uint64
}

func (e loadingEvent) generation() uint64     { return e.gen }
func (e loadedEvent) generation() uint64      { return e.gen }
func (e loadDoneEvent) generation() uint64    { return e.gen }
func (e primedEvent) generation() uint64      { return e.gen }
func (e insertEvent) generation() uint64      { return e.gen }
func (e countEvent) generation() uint64       { return e.gen }
func (e markReadEvent) generation() uint64    { return e.gen }
func (e markAllReadEvent) generation() uint64 { return e.gen }
