package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hevlin/MediaGroup/internal/core"
	"github.com/hevlin/MediaGroup/internal/domain"
	"github.com/hevlin/MediaGroup/internal/store"
)

var ErrVolumeRange = errors.New("volume level out of range")

// Status is the controller's lifecycle state.
type Status string

const (
	StatusUninitialized Status = "uninitialized"
	StatusReady         Status = "ready"
	StatusReloading     Status = "reloading"
	StatusUnavailable   Status = "unavailable"
)

// Composite is the published read model of the group: what the presentation
// layer and the state stream observe. Values are snapshots, replaced
// wholesale on every publish.
type Composite struct {
	Status  Status            `json:"status"`
	Name    string            `json:"name"`
	Members []domain.MemberID `json:"members"`
	Sources []string          `json:"sources"`
	Source  string            `json:"source,omitempty"`
	State   core.Aggregate    `json:"state"`
}

// Options tune one controller instance.
type Options struct {
	Naming core.NamingPolicy
	Mute   core.MutePolicy
	// FetchTimeout bounds each per-member fetch/dispatch inside a cycle.
	FetchTimeout time.Duration
	// RefreshEvery is the periodic tick; 0 disables ticking and the
	// controller refreshes on push notifications only.
	RefreshEvery time.Duration
}

// GroupController virtualizes the configured members as one device. One
// mutex serializes refresh and dispatch cycles; inside a cycle per-member
// calls fan out, and the cycle waits for all of them to settle before the
// new composite state becomes observable.
type GroupController struct {
	registry core.MemberRegistry
	store    store.ConfigStore
	opts     Options

	mu        sync.Mutex
	cfg       *domain.GroupConfig
	status    Status
	snapshots []domain.Snapshot
	catalog   *core.Catalog
	agg       core.Aggregate

	watchMu   sync.Mutex
	watchers  map[int]chan Composite
	nextWatch int

	resub chan struct{}
}

func NewGroupController(cfg *domain.GroupConfig, registry core.MemberRegistry, st store.ConfigStore, opts Options) *GroupController {
	if opts.Naming == "" {
		opts.Naming = core.NamingSharedByName
	}
	if opts.Mute == "" {
		opts.Mute = core.MuteAny
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 5 * time.Second
	}
	return &GroupController{
		registry: registry,
		store:    st,
		opts:     opts,
		cfg:      cfg,
		status:   StatusUninitialized,
		catalog:  core.BuildCatalog(opts.Naming, nil),
		watchers: make(map[int]chan Composite),
		resub:    make(chan struct{}, 1),
	}
}

// Init validates the group config, persists it and performs the first
// refresh. Config errors are fatal and surfaced to the setup flow.
func (g *GroupController) Init(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.cfg.Validate(); err != nil {
		return err
	}
	if err := g.store.Save(ctx, g.cfg); err != nil {
		return err
	}
	g.refreshLocked(ctx)
	log.Info().Str("module", "app.controller").Str("group", string(g.cfg.ID)).
		Str("status", string(g.status)).Int("members", len(g.cfg.Members)).Msg("initialized")
	return nil
}

// Refresh fetches fresh snapshots for every member, rebuilds the catalog
// and aggregate wholesale and publishes the result. A member that fails or
// times out degrades to unavailable for this cycle; it never blocks the
// others and is never retried within the cycle.
func (g *GroupController) Refresh(ctx context.Context) Composite {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refreshLocked(ctx)
	return g.compositeLocked()
}

func (g *GroupController) refreshLocked(ctx context.Context) {
	g.snapshots = g.fetchAll(ctx, g.cfg.Members)
	g.catalog = core.BuildCatalog(g.opts.Naming, g.snapshots)
	g.agg = core.ComputeAggregate(g.opts.Mute, g.snapshots)

	g.status = StatusUnavailable
	for _, snap := range g.snapshots {
		if snap.Available {
			g.status = StatusReady
			break
		}
	}
	g.publishLocked()
}

// fetchAll fans out one fetch per member and waits for all of them to
// settle, so a half-updated catalog is never observable.
func (g *GroupController) fetchAll(ctx context.Context, ids []domain.MemberID) []domain.Snapshot {
	snapshots := make([]domain.Snapshot, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id domain.MemberID) {
			defer wg.Done()
			fetchCtx, cancel := context.WithTimeout(ctx, g.opts.FetchTimeout)
			defer cancel()
			snap, err := g.registry.FetchSnapshot(fetchCtx, id)
			if err != nil {
				log.Warn().Err(err).Str("module", "app.controller").Str("member", string(id)).
					Msg("fetch failed, degrading member to unavailable")
				snapshots[i] = domain.UnavailableSnapshot(id)
				return
			}
			snapshots[i] = snap
		}(i, id)
	}
	wg.Wait()
	return snapshots
}

// SelectSource resolves a display name against the current catalog and
// dispatches each owner's raw source name. A stale or unknown name yields
// core.ErrUnknownSource; per-owner dispatch failures are logged and do not
// abort the remaining owners.
func (g *GroupController) SelectSource(ctx context.Context, display string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	targets, err := g.catalog.Resolve(display)
	if err != nil {
		return err
	}
	g.fanOut(ctx, len(targets), func(ctx context.Context, i int) (domain.MemberID, error) {
		t := targets[i]
		return t.Member, g.registry.SelectSource(ctx, t.Member, t.Raw)
	}, "select source")
	return nil
}

// SetVolume broadcasts a volume level to every member whose last snapshot
// reports volume capability. Best effort, no rollback.
func (g *GroupController) SetVolume(ctx context.Context, level float64) error {
	if level < 0 || level > 1 {
		return ErrVolumeRange
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	var targets []domain.MemberID
	for _, snap := range g.snapshots {
		if snap.Reporting() && snap.VolumeLevel != nil {
			targets = append(targets, snap.ID)
		}
	}
	g.fanOut(ctx, len(targets), func(ctx context.Context, i int) (domain.MemberID, error) {
		return targets[i], g.registry.SetVolume(ctx, targets[i], level)
	}, "set volume")
	return nil
}

// SetMute broadcasts a mute flag to every member whose last snapshot
// reports mute capability.
func (g *GroupController) SetMute(ctx context.Context, muted bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	var targets []domain.MemberID
	for _, snap := range g.snapshots {
		if snap.Reporting() && snap.Muted != nil {
			targets = append(targets, snap.ID)
		}
	}
	g.fanOut(ctx, len(targets), func(ctx context.Context, i int) (domain.MemberID, error) {
		return targets[i], g.registry.SetMute(ctx, targets[i], muted)
	}, "set mute")
	return nil
}

// fanOut runs n per-member dispatches concurrently, each bounded by the
// configured timeout, and waits for all outcomes. Failures are independent.
func (g *GroupController) fanOut(ctx context.Context, n int, call func(ctx context.Context, i int) (domain.MemberID, error), op string) {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, g.opts.FetchTimeout)
			defer cancel()
			if id, err := call(callCtx, i); err != nil {
				log.Error().Err(err).Str("module", "app.controller").Str("member", string(id)).
					Str("op", op).Msg("dispatch failed")
			}
		}(i)
	}
	wg.Wait()
}

// UpdateMembers replaces the member list wholesale, persists the new config
// and rebuilds catalog and aggregate. Display-name selections in flight
// against the old catalog become stale. An empty list is legal and leaves
// the composite unavailable with an empty source list.
func (g *GroupController) UpdateMembers(ctx context.Context, members []domain.MemberID) error {
	if err := domain.ValidateMembers(members); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	g.status = StatusReloading
	g.publishLocked()

	g.cfg = g.cfg.WithMembers(members)
	if err := g.store.Save(ctx, g.cfg); err != nil {
		log.Error().Err(err).Str("module", "app.controller").Str("group", string(g.cfg.ID)).
			Msg("persisting member update failed")
	}
	g.refreshLocked(ctx)
	g.requestResubscribe()
	log.Info().Str("module", "app.controller").Str("group", string(g.cfg.ID)).
		Int("members", len(members)).Str("status", string(g.status)).Msg("members updated")
	return nil
}

// Rename updates and persists the group name.
func (g *GroupController) Rename(ctx context.Context, name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	cfg := g.cfg.WithName(name)
	if err := cfg.Validate(); err != nil {
		return err
	}
	g.cfg = cfg
	if err := g.store.Save(ctx, g.cfg); err != nil {
		return err
	}
	g.publishLocked()
	return nil
}

// Run is the controller's event loop: it subscribes to member state
// changes and serializes refreshes triggered by pushes, the periodic tick
// and membership edits. Blocks until ctx is canceled.
func (g *GroupController) Run(ctx context.Context) {
	var tick <-chan time.Time
	if g.opts.RefreshEvery > 0 {
		ticker := time.NewTicker(g.opts.RefreshEvery)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		subCtx, subCancel := context.WithCancel(ctx)
		changes, err := g.registry.Subscribe(subCtx, g.Config().Members)
		if err != nil {
			log.Error().Err(err).Str("module", "app.controller").Msg("subscribe failed")
			changes = nil
		}

	consume:
		for {
			select {
			case <-ctx.Done():
				subCancel()
				return
			case <-g.resub:
				break consume
			case <-tick:
				g.Refresh(ctx)
			case ev, ok := <-changes:
				if !ok {
					changes = nil
					continue
				}
				log.Debug().Str("module", "app.controller").Str("member", string(ev.Member)).
					Msg("state change")
				g.Refresh(ctx)
			}
		}
		subCancel()
	}
}

func (g *GroupController) requestResubscribe() {
	select {
	case g.resub <- struct{}{}:
	default:
	}
}

// Watch registers an observer of published composite states. Slow
// observers drop updates rather than block a publish. The returned cancel
// must be called to release the channel.
func (g *GroupController) Watch() (<-chan Composite, func()) {
	g.watchMu.Lock()
	defer g.watchMu.Unlock()
	id := g.nextWatch
	g.nextWatch++
	ch := make(chan Composite, 8)
	g.watchers[id] = ch
	return ch, func() {
		g.watchMu.Lock()
		defer g.watchMu.Unlock()
		if _, ok := g.watchers[id]; ok {
			delete(g.watchers, id)
			close(ch)
		}
	}
}

func (g *GroupController) publishLocked() {
	c := g.compositeLocked()
	g.watchMu.Lock()
	defer g.watchMu.Unlock()
	for _, ch := range g.watchers {
		select {
		case ch <- c:
		default:
		}
	}
}

func (g *GroupController) compositeLocked() Composite {
	current, _ := g.catalog.CurrentSource(g.snapshots)
	return Composite{
		Status:  g.status,
		Name:    g.cfg.Name,
		Members: append([]domain.MemberID(nil), g.cfg.Members...),
		Sources: g.catalog.SourceList(),
		Source:  current,
		State:   g.agg,
	}
}

// Composite returns the last published state.
func (g *GroupController) Composite() Composite {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.compositeLocked()
}

// Sources returns the current merged display list.
func (g *GroupController) Sources() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.catalog.SourceList()
}

// CurrentSource returns the display form of the group's active source.
func (g *GroupController) CurrentSource() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.catalog.CurrentSource(g.snapshots)
}

// State returns the last computed aggregate.
func (g *GroupController) State() core.Aggregate {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.agg
}

// Status returns the controller's lifecycle state.
func (g *GroupController) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// Config returns a copy of the current group config.
func (g *GroupController) Config() *domain.GroupConfig {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cfg.WithMembers(g.cfg.Members)
}
