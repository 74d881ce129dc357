package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hevlin/MediaGroup/internal/core"
	"github.com/hevlin/MediaGroup/internal/domain"
	"github.com/hevlin/MediaGroup/internal/store"
)

type dispatchCall struct {
	member domain.MemberID
	raw    string
	level  float64
	muted  bool
}

// fakeRegistry is a scriptable MemberRegistry for controller tests.
type fakeRegistry struct {
	mu    sync.Mutex
	snaps map[domain.MemberID]domain.Snapshot
	// fetchErr fails FetchSnapshot for a member.
	fetchErr map[domain.MemberID]error
	// hang makes FetchSnapshot block until the caller's deadline expires.
	hang map[domain.MemberID]bool
	// dispatchErr fails all dispatch calls for a member.
	dispatchErr map[domain.MemberID]error

	selects []dispatchCall
	volumes []dispatchCall
	mutes   []dispatchCall
}

func newFakeRegistry(snaps ...domain.Snapshot) *fakeRegistry {
	f := &fakeRegistry{
		snaps:       make(map[domain.MemberID]domain.Snapshot),
		fetchErr:    make(map[domain.MemberID]error),
		hang:        make(map[domain.MemberID]bool),
		dispatchErr: make(map[domain.MemberID]error),
	}
	for _, s := range snaps {
		f.snaps[s.ID] = s
	}
	return f
}

func (f *fakeRegistry) FetchSnapshot(ctx context.Context, id domain.MemberID) (domain.Snapshot, error) {
	f.mu.Lock()
	hang := f.hang[id]
	err := f.fetchErr[id]
	snap, ok := f.snaps[id]
	f.mu.Unlock()

	if hang {
		<-ctx.Done()
		return domain.Snapshot{}, ctx.Err()
	}
	if err != nil {
		return domain.Snapshot{}, err
	}
	if !ok {
		return domain.Snapshot{}, errors.New("no such member")
	}
	return snap, nil
}

func (f *fakeRegistry) SelectSource(_ context.Context, id domain.MemberID, raw string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.dispatchErr[id]; err != nil {
		return err
	}
	f.selects = append(f.selects, dispatchCall{member: id, raw: raw})
	return nil
}

func (f *fakeRegistry) SetVolume(_ context.Context, id domain.MemberID, level float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.dispatchErr[id]; err != nil {
		return err
	}
	f.volumes = append(f.volumes, dispatchCall{member: id, level: level})
	return nil
}

func (f *fakeRegistry) SetMute(_ context.Context, id domain.MemberID, muted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.dispatchErr[id]; err != nil {
		return err
	}
	f.mutes = append(f.mutes, dispatchCall{member: id, muted: muted})
	return nil
}

func (f *fakeRegistry) Subscribe(ctx context.Context, _ []domain.MemberID) (<-chan core.StateChange, error) {
	ch := make(chan core.StateChange)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func fvol(v float64) *float64 { return &v }
func fmut(v bool) *bool       { return &v }

func playerSnap(id, name string, sources ...string) domain.Snapshot {
	return domain.Snapshot{
		ID:        domain.MemberID(id),
		Name:      name,
		Available: true,
		Sources:   sources,
		State:     domain.StateOn,
	}
}

func newTestController(t *testing.T, reg core.MemberRegistry, members ...domain.MemberID) *GroupController {
	t.Helper()
	cfg, err := domain.NewGroupConfig("Test Group", members)
	if err != nil {
		t.Fatal(err)
	}
	g := NewGroupController(cfg, reg, store.NewMemoryStore(), Options{
		FetchTimeout: 100 * time.Millisecond,
	})
	if err := g.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	return g
}

func TestInitRejectsInvalidConfig(t *testing.T) {
	reg := newFakeRegistry()
	tests := []struct {
		name    string
		members []domain.MemberID
		wantErr error
	}{
		{"duplicate members", []domain.MemberID{"a", "a"}, domain.ErrDuplicateMember},
		{"empty member list", nil, domain.ErrNoMembers},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &domain.GroupConfig{ID: "g", Name: "Test", Members: tt.members}
			g := NewGroupController(cfg, reg, store.NewMemoryStore(), Options{})
			if err := g.Init(context.Background()); !errors.Is(err, tt.wantErr) {
				t.Fatalf("Init err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestInitBecomesReady(t *testing.T) {
	reg := newFakeRegistry(
		playerSnap("a", "Living Room", "Spotify"),
		playerSnap("b", "Kitchen", "Spotify"),
	)
	g := newTestController(t, reg, "a", "b")
	if got := g.Status(); got != StatusReady {
		t.Fatalf("status = %s, want %s", got, StatusReady)
	}
	if got := g.Sources(); len(got) != 1 || got[0] != "Spotify" {
		t.Fatalf("sources = %v, want [Spotify]", got)
	}
}

func TestInitUnavailableWhenNoMemberResolves(t *testing.T) {
	reg := newFakeRegistry()
	reg.fetchErr["a"] = errors.New("gone")
	g := newTestController(t, reg, "a")
	if got := g.Status(); got != StatusUnavailable {
		t.Fatalf("status = %s, want %s", got, StatusUnavailable)
	}
}

func TestRefreshDegradesFailedMemberOnly(t *testing.T) {
	a := playerSnap("a", "Living Room", "Spotify")
	a.VolumeLevel = fvol(0.2)
	b := playerSnap("b", "Kitchen", "Spotify")
	b.VolumeLevel = fvol(0.6)
	reg := newFakeRegistry(a, b)
	g := newTestController(t, reg, "a", "b")

	// Member b starts timing out; only its contribution disappears.
	reg.mu.Lock()
	reg.hang["b"] = true
	reg.mu.Unlock()

	composite := g.Refresh(context.Background())
	if composite.Status != StatusReady {
		t.Fatalf("status = %s, want ready (member a still up)", composite.Status)
	}
	if composite.State.VolumeLevel == nil || *composite.State.VolumeLevel != 0.2 {
		t.Fatalf("volume = %v, want 0.2 (timed-out member excluded)", composite.State.VolumeLevel)
	}
	// Only a counts now, so Spotify is owned by every available member
	// and stays undecorated.
	if len(composite.Sources) != 1 || composite.Sources[0] != "Spotify" {
		t.Fatalf("sources = %v, want [Spotify]", composite.Sources)
	}
}

func TestSelectSourceDispatchesRawNames(t *testing.T) {
	reg := newFakeRegistry(
		playerSnap("a", "Living Room", "Spotify", "AirPlay"),
		playerSnap("b", "Kitchen", "Spotify", "AirPlay", "Line In"),
	)
	g := newTestController(t, reg, "a", "b")

	if err := g.SelectSource(context.Background(), "Kitchen - Line In"); err != nil {
		t.Fatal(err)
	}
	reg.mu.Lock()
	calls := append([]dispatchCall(nil), reg.selects...)
	reg.mu.Unlock()
	if len(calls) != 1 {
		t.Fatalf("select calls = %d, want 1", len(calls))
	}
	// The member receives its raw name, never the display form.
	if calls[0].member != "b" || calls[0].raw != "Line In" {
		t.Fatalf("dispatched %v, want {b Line In}", calls[0])
	}

	if err := g.SelectSource(context.Background(), "Spotify"); err != nil {
		t.Fatal(err)
	}
	reg.mu.Lock()
	calls = append([]dispatchCall(nil), reg.selects...)
	reg.mu.Unlock()
	if len(calls) != 3 {
		t.Fatalf("select calls = %d, want 3 (both owners)", len(calls))
	}
	for _, call := range calls[1:] {
		if call.raw != "Spotify" {
			t.Fatalf("dispatched raw = %q, want Spotify", call.raw)
		}
	}
}

func TestSelectSourceUnknown(t *testing.T) {
	reg := newFakeRegistry(playerSnap("a", "Living Room", "Spotify"))
	g := newTestController(t, reg, "a")
	err := g.SelectSource(context.Background(), "Tape")
	if !errors.Is(err, core.ErrUnknownSource) {
		t.Fatalf("err = %v, want ErrUnknownSource", err)
	}
}

func TestSelectSourceBestEffortOnDispatchFailure(t *testing.T) {
	reg := newFakeRegistry(
		playerSnap("a", "Living Room", "Spotify"),
		playerSnap("b", "Kitchen", "Spotify"),
	)
	reg.dispatchErr["a"] = errors.New("device busy")
	g := newTestController(t, reg, "a", "b")

	if err := g.SelectSource(context.Background(), "Spotify"); err != nil {
		t.Fatalf("dispatch failure must not surface: %v", err)
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if len(reg.selects) != 1 || reg.selects[0].member != "b" {
		t.Fatalf("calls = %v, want the healthy member reached", reg.selects)
	}
}

func TestSetVolumeTargetsCapableMembers(t *testing.T) {
	a := playerSnap("a", "Living Room", "Spotify")
	a.VolumeLevel = fvol(0.5)
	b := playerSnap("b", "Kitchen", "Spotify") // reports no volume
	reg := newFakeRegistry(a, b)
	g := newTestController(t, reg, "a", "b")

	if err := g.SetVolume(context.Background(), 0.7); err != nil {
		t.Fatal(err)
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if len(reg.volumes) != 1 || reg.volumes[0].member != "a" || reg.volumes[0].level != 0.7 {
		t.Fatalf("volume calls = %v, want only member a at 0.7", reg.volumes)
	}
}

func TestSetVolumeRange(t *testing.T) {
	reg := newFakeRegistry(playerSnap("a", "A", "Spotify"))
	g := newTestController(t, reg, "a")
	for _, level := range []float64{-0.1, 1.1} {
		if err := g.SetVolume(context.Background(), level); !errors.Is(err, ErrVolumeRange) {
			t.Fatalf("SetVolume(%v) err = %v, want ErrVolumeRange", level, err)
		}
	}
}

func TestSetMuteTargetsCapableMembers(t *testing.T) {
	a := playerSnap("a", "Living Room", "Spotify")
	a.Muted = fmut(false)
	b := playerSnap("b", "Kitchen", "Spotify")
	reg := newFakeRegistry(a, b)
	g := newTestController(t, reg, "a", "b")

	if err := g.SetMute(context.Background(), true); err != nil {
		t.Fatal(err)
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if len(reg.mutes) != 1 || reg.mutes[0].member != "a" || !reg.mutes[0].muted {
		t.Fatalf("mute calls = %v, want only member a muted", reg.mutes)
	}
}

func TestUpdateMembersEmptyGoesUnavailable(t *testing.T) {
	reg := newFakeRegistry(playerSnap("a", "Living Room", "Spotify"))
	g := newTestController(t, reg, "a")

	if err := g.UpdateMembers(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if got := g.Status(); got != StatusUnavailable {
		t.Fatalf("status = %s, want %s", got, StatusUnavailable)
	}
	if got := g.Sources(); len(got) != 0 {
		t.Fatalf("sources = %v, want empty", got)
	}
	// The old catalog is gone; stale selections fail.
	if err := g.SelectSource(context.Background(), "Spotify"); !errors.Is(err, core.ErrUnknownSource) {
		t.Fatalf("stale selection err = %v, want ErrUnknownSource", err)
	}
}

func TestUpdateMembersRejectsDuplicates(t *testing.T) {
	reg := newFakeRegistry(playerSnap("a", "A", "Spotify"))
	g := newTestController(t, reg, "a")
	err := g.UpdateMembers(context.Background(), []domain.MemberID{"b", "b"})
	if !errors.Is(err, domain.ErrDuplicateMember) {
		t.Fatalf("err = %v, want ErrDuplicateMember", err)
	}
}

func TestUpdateMembersRebuildsAndRecovers(t *testing.T) {
	reg := newFakeRegistry(
		playerSnap("a", "Living Room", "Spotify"),
		playerSnap("b", "Kitchen", "Line In"),
	)
	g := newTestController(t, reg, "a")

	if err := g.UpdateMembers(context.Background(), []domain.MemberID{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	if got := g.Status(); got != StatusReady {
		t.Fatalf("status = %s, want %s", got, StatusReady)
	}
	want := []string{"Living Room - Spotify", "Kitchen - Line In"}
	got := g.Sources()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("sources = %v, want %v", got, want)
	}

	// And the persisted config was replaced wholesale.
	cfg := g.Config()
	if len(cfg.Members) != 2 {
		t.Fatalf("config members = %v, want 2", cfg.Members)
	}
}

func TestWatchReceivesPublishedState(t *testing.T) {
	reg := newFakeRegistry(playerSnap("a", "Living Room", "Spotify"))
	g := newTestController(t, reg, "a")

	updates, cancel := g.Watch()
	defer cancel()

	g.Refresh(context.Background())

	select {
	case composite := <-updates:
		if composite.Status != StatusReady {
			t.Fatalf("published status = %s, want ready", composite.Status)
		}
		if len(composite.Sources) != 1 || composite.Sources[0] != "Spotify" {
			t.Fatalf("published sources = %v", composite.Sources)
		}
	case <-time.After(time.Second):
		t.Fatal("no composite published")
	}
}

func TestRenamePersists(t *testing.T) {
	reg := newFakeRegistry(playerSnap("a", "A", "Spotify"))
	st := store.NewMemoryStore()
	cfg, err := domain.NewGroupConfig("Old Name", []domain.MemberID{"a"})
	if err != nil {
		t.Fatal(err)
	}
	g := NewGroupController(cfg, reg, st, Options{})
	if err := g.Init(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := g.Rename(context.Background(), "New Name"); err != nil {
		t.Fatal(err)
	}
	stored, err := st.Load(context.Background(), cfg.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Name != "New Name" {
		t.Fatalf("stored name = %q, want New Name", stored.Name)
	}
	if err := g.Rename(context.Background(), ""); !errors.Is(err, domain.ErrGroupNameEmpty) {
		t.Fatalf("err = %v, want ErrGroupNameEmpty", err)
	}
}
