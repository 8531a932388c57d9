package battle

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/samdwyer/idlecrawl/internal/event"
	"github.com/samdwyer/idlecrawl/internal/telemetry"
)

// Snapshot is the serializable state of a battle.
type Snapshot struct {
	ID        string        `json:"id"`
	Clock     int           `json:"clock"`
	Outcome   Outcome       `json:"outcome"`
	Awaiting  string        `json:"awaiting,omitempty"`
	Pending   *ManualAction `json:"pending,omitempty"`
	InFlight  int           `json:"inFlight,omitempty"`
	Paused    bool          `json:"paused,omitempty"`
	Suspended bool          `json:"suspended,omitempty"`
	Config    Config        `json:"config"`
	Actors    []Actor       `json:"actors"`
	Log       []event.Event `json:"log,omitempty"`
}

// Snapshot captures the battle so it can be stored and restored later.
func (b *Battle) Snapshot() Snapshot {
	s := Snapshot{
		ID:        b.id,
		Clock:     b.clock,
		Outcome:   b.outcome,
		InFlight:  b.inFlight,
		Paused:    b.paused,
		Suspended: b.suspended,
		Config:    b.cfg,
		Log:       b.log.Entries(),
	}
	if id, ok := b.Awaiting(); ok {
		s.Awaiting = id
	}
	if b.pending != nil {
		act := *b.pending
		s.Pending = &act
	}
	s.Actors = make([]Actor, 0, len(b.actors))
	for h := range b.actors {
		s.Actors = append(s.Actors, b.copyActor(Handle(h)))
	}
	return s
}

// Restore rebuilds a battle from a snapshot. Options such as WithRand and
// WithOnEnd are not part of the snapshot and must be passed again.
func Restore(s Snapshot, opts ...Option) (*Battle, error) {
	cfg := s.Config.normalized()
	b := &Battle{
		id:        s.ID,
		cfg:       cfg,
		index:     make(map[string]Handle, len(s.Actors)),
		log:       event.NewLog(cfg.LogLimit),
		awaiting:  noHandle,
		tracer:    telemetry.Tracer("battle"),
		clock:     s.Clock,
		inFlight:  s.InFlight,
		paused:    s.Paused,
		suspended: s.Suspended,
		outcome:   s.Outcome,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.rng == nil {
		b.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}

	for _, a := range s.Actors {
		if _, dup := b.index[a.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateActor, a.ID)
		}
		h := Handle(len(b.actors))
		b.actors = append(b.actors, a.normalized())
		b.index[a.ID] = h
		if a.Side == SideParty {
			b.party = append(b.party, h)
		} else {
			b.enemies = append(b.enemies, h)
		}
	}
	if len(b.party) == 0 || len(b.enemies) == 0 {
		return nil, ErrEmptySide
	}
	if s.Awaiting != "" {
		h, ok := b.index[s.Awaiting]
		if !ok {
			return nil, fmt.Errorf("%w: awaiting %s", ErrUnknownActor, s.Awaiting)
		}
		b.awaiting = h
		if s.Pending != nil {
			act := *s.Pending
			b.pending = &act
		}
	}
	for _, e := range s.Log {
		b.log.Append(e)
	}

	b.logger.DebugContext(context.Background(), "battle restored",
		"battle", b.id, "clock", b.clock, "actors", len(b.actors))
	return b, nil
}
