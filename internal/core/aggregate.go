package core

import "github.com/hevlin/MediaGroup/internal/domain"

// MutePolicy decides how member mute flags collapse into one group flag.
type MutePolicy string

const (
	// MuteAny shows the group muted when at least one reporting member is.
	MuteAny MutePolicy = "any"
	// MuteAll shows the group muted only when every reporting member is.
	MuteAll MutePolicy = "all"
)

// Aggregate is the composite on/off, volume and mute summary of a group.
// Recomputed on every refresh, never persisted.
type Aggregate struct {
	On bool `json:"on"`
	// VolumeLevel is the arithmetic mean over members reporting volume;
	// nil when no member reports one.
	VolumeLevel *float64 `json:"volume_level,omitempty"`
	Muted       *bool    `json:"muted,omitempty"`
}

// ComputeAggregate collapses the member snapshots into one summary. Pure,
// O(n). Members that are not reporting contribute nothing: they neither
// count toward "on" nor enter the volume mean.
func ComputeAggregate(policy MutePolicy, snapshots []domain.Snapshot) Aggregate {
	var agg Aggregate

	var volSum float64
	var volCount int
	var mutedCount, muteReports int

	for _, snap := range snapshots {
		if !snap.Reporting() {
			continue
		}
		agg.On = true
		if snap.VolumeLevel != nil {
			volSum += *snap.VolumeLevel
			volCount++
		}
		if snap.Muted != nil {
			muteReports++
			if *snap.Muted {
				mutedCount++
			}
		}
	}

	if volCount > 0 {
		mean := volSum / float64(volCount)
		agg.VolumeLevel = &mean
	}
	if muteReports > 0 {
		var muted bool
		switch policy {
		case MuteAll:
			muted = mutedCount == muteReports
		default:
			muted = mutedCount > 0
		}
		agg.Muted = &muted
	}
	return agg
}
