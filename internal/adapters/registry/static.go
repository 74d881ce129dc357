// Package registry provides an in-memory implementation of the member
// registry port. It backs the standalone server, where member state is fed
// over the HTTP API instead of by real device drivers.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/hevlin/MediaGroup/internal/core"
	"github.com/hevlin/MediaGroup/internal/domain"
)

var ErrUnknownMember = errors.New("unknown member")

type subscriber struct {
	members map[domain.MemberID]struct{}
	ch      chan core.StateChange
}

// StaticRegistry holds mutable member snapshots and fans out change
// notifications to subscribers. It implements core.MemberRegistry.
type StaticRegistry struct {
	mu      sync.RWMutex
	members map[domain.MemberID]domain.Snapshot

	subMu   sync.Mutex
	subs    map[int]*subscriber
	nextSub int
}

func NewStaticRegistry() *StaticRegistry {
	return &StaticRegistry{
		members: make(map[domain.MemberID]domain.Snapshot),
		subs:    make(map[int]*subscriber),
	}
}

// Upsert replaces one member's snapshot and notifies subscribers.
func (r *StaticRegistry) Upsert(snap domain.Snapshot) {
	r.mu.Lock()
	r.members[snap.ID] = snap
	r.mu.Unlock()
	r.notify(snap.ID)
	log.Debug().Str("module", "adapters.registry").Str("member", string(snap.ID)).Msg("snapshot upserted")
}

// Remove drops a member entirely; subsequent fetches fail.
func (r *StaticRegistry) Remove(id domain.MemberID) {
	r.mu.Lock()
	delete(r.members, id)
	r.mu.Unlock()
	r.notify(id)
}

func (r *StaticRegistry) FetchSnapshot(ctx context.Context, id domain.MemberID) (domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.Snapshot{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap, ok := r.members[id]
	if !ok {
		return domain.Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownMember, id)
	}
	return snap, nil
}

func (r *StaticRegistry) SelectSource(ctx context.Context, id domain.MemberID, raw string) error {
	return r.mutate(ctx, id, func(snap *domain.Snapshot) error {
		for _, s := range snap.Sources {
			if s == raw {
				snap.CurrentSource = raw
				return nil
			}
		}
		return fmt.Errorf("member %s has no source %q", id, raw)
	})
}

func (r *StaticRegistry) SetVolume(ctx context.Context, id domain.MemberID, level float64) error {
	return r.mutate(ctx, id, func(snap *domain.Snapshot) error {
		snap.VolumeLevel = &level
		return nil
	})
}

func (r *StaticRegistry) SetMute(ctx context.Context, id domain.MemberID, muted bool) error {
	return r.mutate(ctx, id, func(snap *domain.Snapshot) error {
		snap.Muted = &muted
		return nil
	})
}

func (r *StaticRegistry) mutate(ctx context.Context, id domain.MemberID, fn func(*domain.Snapshot) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	snap, ok := r.members[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownMember, id)
	}
	if err := fn(&snap); err != nil {
		r.mu.Unlock()
		return err
	}
	r.members[id] = snap
	r.mu.Unlock()
	r.notify(id)
	return nil
}

// Subscribe delivers change notifications for the given members until ctx
// is canceled. The channel is buffered; a subscriber that falls behind
// drops notifications instead of blocking writers.
func (r *StaticRegistry) Subscribe(ctx context.Context, ids []domain.MemberID) (<-chan core.StateChange, error) {
	sub := &subscriber{
		members: make(map[domain.MemberID]struct{}, len(ids)),
		ch:      make(chan core.StateChange, 16),
	}
	for _, id := range ids {
		sub.members[id] = struct{}{}
	}

	r.subMu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = sub
	r.subMu.Unlock()

	go func() {
		<-ctx.Done()
		r.subMu.Lock()
		delete(r.subs, id)
		r.subMu.Unlock()
		close(sub.ch)
	}()

	return sub.ch, nil
}

func (r *StaticRegistry) notify(id domain.MemberID) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	for _, sub := range r.subs {
		if _, ok := sub.members[id]; !ok {
			continue
		}
		select {
		case sub.ch <- core.StateChange{Member: id}:
		default:
		}
	}
}
