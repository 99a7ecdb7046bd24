package certificate

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/letsautomate/core/aggregate"
	"github.com/dmitrymomot/letsautomate/core/eventlog"
	"github.com/dmitrymomot/letsautomate/core/logger"
)

// Runtime is the aggregate runtime specialised for certificates.
type Runtime = aggregate.Runtime[AllCertificates, Command, Event]

// HistoryEntry is one event as shown to outer layers.
type HistoryEntry struct {
	Sequence  int64     `json:"sequence"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Event     any       `json:"event"`
}

// Service is the entry point for everything outside the core.
type Service struct {
	log     eventlog.Log
	runtime *Runtime
	logger  *slog.Logger
}

// NewService wires agg onto log. Runtime options configure locking and logging.
func NewService(log eventlog.Log, agg *Aggregate, opts ...aggregate.Option) *Service {
	s := &Service{
		log:     log,
		runtime: aggregate.New(log, agg, opts...),
		logger:  agg.logger,
	}
	return s
}

// Submit runs cmd through the runtime. See aggregate.Runtime.Submit for the error contract.
func (s *Service) Submit(ctx context.Context, cmd Command) (Event, error) {
	return s.runtime.Submit(ctx, cmd)
}

// CurrentState replays the log into a fresh state.
func (s *Service) CurrentState(ctx context.Context) (AllCertificates, error) {
	return s.runtime.CurrentState(ctx)
}

// History returns the domain's events after since, with key material hidden.
func (s *Service) History(ctx context.Context, domain string, since int64) ([]HistoryEntry, error) {
	stored, err := s.log.LoadForEntity(ctx, domain, since)
	if err != nil {
		return nil, err
	}
	out := make([]HistoryEntry, 0, len(stored))
	for _, st := range stored {
		entry, err := toHistoryEntry(st)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

// LiveEvents streams events as they are appended. With a non-nil since the
// stream first replays everything after that sequence and is gap-free;
// without it only new events are delivered, best effort. The channel closes
// when ctx is done or the underlying feed fails.
func (s *Service) LiveEvents(ctx context.Context, since *int64, opts ...eventlog.FollowOption) <-chan HistoryEntry {
	out := make(chan HistoryEntry)

	var source <-chan eventlog.StoredEvent
	var finish func()
	if since != nil {
		feed := eventlog.Follow(ctx, s.log, *since, opts...)
		source = feed.Events()
		finish = func() {
			if err := feed.Err(); err != nil {
				s.logger.ErrorContext(ctx, "live event feed stopped", logger.Error(err))
			}
		}
	} else {
		sub := s.log.Subscribe(ctx)
		source = sub.Events()
		finish = sub.Close
	}

	go func() {
		defer close(out)
		defer finish()
		for st := range source {
			entry, err := toHistoryEntry(st)
			if err != nil {
				s.logger.WarnContext(ctx, "skipping undecodable event", logger.Sequence(st.Sequence), logger.Error(err))
				continue
			}
			select {
			case out <- entry:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

func toHistoryEntry(st eventlog.StoredEvent) (HistoryEntry, error) {
	ev, err := Decode(st)
	if err != nil {
		return HistoryEntry{}, err
	}
	return HistoryEntry{
		Sequence:  st.Sequence,
		Type:      st.Type,
		Timestamp: st.Timestamp,
		Event:     Exposed(ev),
	}, nil
}
