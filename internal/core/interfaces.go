package core

import (
	"context"

	"github.com/hevlin/MediaGroup/internal/domain"
)

// StateChange is a push notification that one member's state changed.
type StateChange struct {
	Member domain.MemberID
}

// MemberRegistry is the host-side view of the real devices. The controller
// only ever talks to members through this port; it never reaches for a
// global registry. All calls must honor the caller's context deadline.
// Retry/backoff, if any, lives behind this interface, never in the core.
type MemberRegistry interface {
	// FetchSnapshot reads one member's current capabilities and state.
	FetchSnapshot(ctx context.Context, id domain.MemberID) (domain.Snapshot, error)

	// SelectSource switches one member to one of its raw source names.
	SelectSource(ctx context.Context, id domain.MemberID, raw string) error

	// SetVolume sets one member's volume level in [0,1].
	SetVolume(ctx context.Context, id domain.MemberID, level float64) error

	// SetMute mutes or unmutes one member.
	SetMute(ctx context.Context, id domain.MemberID, muted bool) error

	// Subscribe delivers state-change notifications for the given members
	// until ctx is canceled. The returned channel is owned by the registry
	// and closed when the subscription ends.
	Subscribe(ctx context.Context, ids []domain.MemberID) (<-chan StateChange, error)
}
