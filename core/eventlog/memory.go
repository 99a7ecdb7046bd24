package eventlog

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

var _ Log = (*MemoryLog)(nil)

// MemoryLog keeps the log in process memory.
type MemoryLog struct {
	mu       sync.RWMutex
	events   []StoredEvent
	offsets  map[string]int64
	closed   bool
	notifier *Notifier
	now      func() time.Time

	// appendHook, when set, runs before each append and may fail it. Test-only.
	appendHook func(Record) error
}

// MemoryOption configures a MemoryLog.
type MemoryOption func(*MemoryLog)

// WithMemoryClock overrides the clock used for default timestamps.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(l *MemoryLog) {
		if now != nil {
			l.now = now
		}
	}
}

// WithMemoryNotifyBuffer sets the live subscriber buffer.
func WithMemoryNotifyBuffer(n int) MemoryOption {
	return func(l *MemoryLog) {
		l.notifier = NewNotifier(n)
	}
}

// WithAppendHook installs a function called before every append. A non-nil
// error fails the append with ErrStorage. Used to simulate storage outages.
func WithAppendHook(hook func(Record) error) MemoryOption {
	return func(l *MemoryLog) {
		l.appendHook = hook
	}
}

// NewMemoryLog creates an empty in-memory log.
func NewMemoryLog(opts ...MemoryOption) *MemoryLog {
	l := &MemoryLog{
		offsets:  make(map[string]int64),
		notifier: NewNotifier(DefaultNotifyBuffer),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *MemoryLog) Append(ctx context.Context, rec Record) (StoredEvent, error) {
	if err := ctx.Err(); err != nil {
		return StoredEvent{}, err
	}
	if err := rec.Validate(); err != nil {
		return StoredEvent{}, err
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return StoredEvent{}, ErrClosed
	}
	if l.appendHook != nil {
		if err := l.appendHook(rec); err != nil {
			l.mu.Unlock()
			return StoredEvent{}, WrapStorage(err)
		}
	}

	ev := StoredEvent{
		Sequence:  int64(len(l.events)) + 1,
		UniqueID:  rec.UniqueID,
		EntityID:  rec.EntityID,
		Type:      rec.Type,
		Version:   rec.Version,
		Payload:   slices.Clone(rec.Payload),
		Metadata:  slices.Clone(rec.Metadata),
		Timestamp: rec.Timestamp,
	}
	if ev.UniqueID == "" {
		ev.UniqueID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = l.now().UTC()
	}
	l.events = append(l.events, ev)
	l.mu.Unlock()

	l.notifier.Notify(ctx, ev)
	return ev, nil
}

func (l *MemoryLog) LoadAll(ctx context.Context) ([]StoredEvent, error) {
	return l.LoadSince(ctx, 0)
}

func (l *MemoryLog) LoadSince(ctx context.Context, seq int64) ([]StoredEvent, error) {
	return l.load(ctx, seq, func(StoredEvent) bool { return true })
}

func (l *MemoryLog) LoadForEntity(ctx context.Context, entityID string, seq int64) ([]StoredEvent, error) {
	return l.load(ctx, seq, func(ev StoredEvent) bool { return ev.EntityID == entityID })
}

func (l *MemoryLog) load(ctx context.Context, seq int64, keep func(StoredEvent) bool) ([]StoredEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if seq < 0 {
		return nil, ErrInvalidSequence
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	// Sequence n lives at index n-1.
	if seq >= int64(len(l.events)) {
		return nil, nil
	}
	out := make([]StoredEvent, 0, int64(len(l.events))-seq)
	for _, ev := range l.events[seq:] {
		if keep(ev) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (l *MemoryLog) Subscribe(ctx context.Context) *Subscription {
	return l.notifier.Subscribe(ctx)
}

func (l *MemoryLog) Commit(ctx context.Context, groupID string, seq int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if groupID == "" {
		return ErrMissingGroupID
	}
	if seq < 0 {
		return ErrInvalidSequence
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if seq > l.offsets[groupID] {
		l.offsets[groupID] = seq
	}
	return nil
}

func (l *MemoryLog) Offset(ctx context.Context, groupID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if groupID == "" {
		return 0, ErrMissingGroupID
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.offsets[groupID], nil
}

// Len returns the number of stored events.
func (l *MemoryLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// Close rejects further appends and ends live subscriptions.
func (l *MemoryLog) Close() error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	return l.notifier.Close()
}
