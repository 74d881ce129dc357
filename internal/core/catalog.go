package core

import (
	"errors"
	"fmt"

	"github.com/hevlin/MediaGroup/internal/domain"
)

var ErrUnknownSource = errors.New("unknown source")

// NamingPolicy decides how source names from different members are merged
// into one collision-free display list.
type NamingPolicy string

const (
	// NamingSharedByName emits a raw name undecorated when every reporting
	// member owns it, and "<member> - <raw>" otherwise.
	NamingSharedByName NamingPolicy = "shared-by-name"
	// NamingAlwaysPrefixed emits every entry as "<member> - <raw>".
	NamingAlwaysPrefixed NamingPolicy = "always-prefixed"
)

// SourceTarget is the dispatch target behind a display name: the owning
// member and its raw (undecorated) source name. Commands always carry the
// raw name, never the display form.
type SourceTarget struct {
	Member domain.MemberID
	Raw    string
}

// SourceEntry is one row of the merged list.
type SourceEntry struct {
	Display string
	Targets []SourceTarget
}

// Catalog is the merged, disambiguated source list of a group. It is built
// wholesale from one set of snapshots and never mutated afterwards; any
// membership or source-list change produces a new catalog.
type Catalog struct {
	policy  NamingPolicy
	order   []string
	entries map[string]SourceEntry
}

// BuildCatalog merges the source lists of the given snapshots. Pure and
// deterministic for a given snapshot order. Members that are not reporting
// contribute no sources and do not count toward "owned by everyone".
// An empty snapshot set yields an empty catalog.
func BuildCatalog(policy NamingPolicy, snapshots []domain.Snapshot) *Catalog {
	type owner struct {
		member domain.MemberID
		name   string
	}

	owners := make(map[string][]owner)
	var rawOrder []string
	reporting := 0

	for _, snap := range snapshots {
		if !snap.Reporting() {
			continue
		}
		reporting++
		for _, raw := range snap.Sources {
			if _, seen := owners[raw]; !seen {
				rawOrder = append(rawOrder, raw)
			}
			owners[raw] = append(owners[raw], owner{member: snap.ID, name: snap.DisplayName()})
		}
	}

	c := &Catalog{policy: policy, entries: make(map[string]SourceEntry, len(rawOrder))}

	for _, raw := range rawOrder {
		ows := owners[raw]
		shared := policy == NamingSharedByName && len(ows) == reporting
		if shared {
			targets := make([]SourceTarget, 0, len(ows))
			for _, ow := range ows {
				targets = append(targets, SourceTarget{Member: ow.member, Raw: raw})
			}
			c.add(raw, targets...)
			continue
		}
		for _, ow := range ows {
			display := fmt.Sprintf("%s - %s", ow.name, raw)
			c.add(display, SourceTarget{Member: ow.member, Raw: raw})
		}
	}
	return c
}

// add merges targets under a display name. Two members with the same
// friendly name and the same source collapse into one entry with both
// targets, keeping the display list collision-free.
func (c *Catalog) add(display string, targets ...SourceTarget) {
	entry, ok := c.entries[display]
	if !ok {
		c.order = append(c.order, display)
		entry = SourceEntry{Display: display}
	}
	entry.Targets = append(entry.Targets, targets...)
	c.entries[display] = entry
}

// Len reports the number of display entries.
func (c *Catalog) Len() int { return len(c.order) }

// SourceList returns the display names in presentation order.
func (c *Catalog) SourceList() []string {
	return append([]string(nil), c.order...)
}

// Resolve maps a display name back to its dispatch targets. A name absent
// from this build (e.g. a stale client selection after a rebuild) yields
// ErrUnknownSource.
func (c *Catalog) Resolve(display string) ([]SourceTarget, error) {
	entry, ok := c.entries[display]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, display)
	}
	return append([]SourceTarget(nil), entry.Targets...), nil
}

// Owners returns the member ids a display name routes to.
func (c *Catalog) Owners(display string) ([]domain.MemberID, error) {
	targets, err := c.Resolve(display)
	if err != nil {
		return nil, err
	}
	ids := make([]domain.MemberID, 0, len(targets))
	seen := make(map[domain.MemberID]struct{}, len(targets))
	for _, t := range targets {
		if _, ok := seen[t.Member]; ok {
			continue
		}
		seen[t.Member] = struct{}{}
		ids = append(ids, t.Member)
	}
	return ids, nil
}

// CurrentSource reverse-maps member current sources into this catalog's
// display form. The first member (in snapshot order) whose current source
// still maps into the catalog wins; a current source that no longer maps
// (stale after a rebuild) is skipped, never resolved best-effort.
func (c *Catalog) CurrentSource(snapshots []domain.Snapshot) (string, bool) {
	for _, snap := range snapshots {
		if !snap.Reporting() || snap.CurrentSource == "" {
			continue
		}
		if display, ok := c.displayFor(snap.ID, snap.CurrentSource); ok {
			return display, true
		}
	}
	return "", false
}

func (c *Catalog) displayFor(id domain.MemberID, raw string) (string, bool) {
	for _, display := range c.order {
		for _, t := range c.entries[display].Targets {
			if t.Member == id && t.Raw == raw {
				return display, true
			}
		}
	}
	return "", false
}
