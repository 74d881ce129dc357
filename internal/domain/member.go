// Package domain contains entities without logic, just meta-data.
package domain

// MemberID identifies one playback device participating in a group.
type MemberID string

// PlayerState is the coarse power state a member reports.
type PlayerState string

const (
	StateOn          PlayerState = "on"
	StateOff         PlayerState = "off"
	StateUnavailable PlayerState = "unavailable"
)

// Snapshot is a point-in-time view of one member's capabilities and state.
// It is immutable once constructed; the controller owns it for a single
// refresh cycle and discards it afterwards.
type Snapshot struct {
	ID        MemberID    `json:"id"`
	Name      string      `json:"name"`
	Available bool        `json:"available"`
	// Sources is the member's native source list, unique within the member,
	// in the member's native order.
	Sources       []string `json:"sources"`
	CurrentSource string   `json:"current_source,omitempty"`
	// VolumeLevel is in [0,1]; nil means the member does not report volume.
	VolumeLevel *float64    `json:"volume_level,omitempty"`
	Muted       *bool       `json:"muted,omitempty"`
	State       PlayerState `json:"state"`
}

// UnavailableSnapshot is what a member degrades to when a fetch fails or
// times out: it contributes no sources and no volume for the cycle.
func UnavailableSnapshot(id MemberID) Snapshot {
	return Snapshot{ID: id, Available: false, State: StateUnavailable}
}

// Reporting tells whether the member counts for aggregation this cycle.
func (s Snapshot) Reporting() bool {
	return s.Available && s.State != StateUnavailable
}

// DisplayName is what decorated source entries are prefixed with.
func (s Snapshot) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return string(s.ID)
}
