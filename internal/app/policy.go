package app

import (
	"fmt"

	"github.com/hevlin/MediaGroup/internal/core"
)

// ParseNamingPolicy maps a config string to a naming policy. Empty input
// selects the default, shared-by-name.
func ParseNamingPolicy(s string) (core.NamingPolicy, error) {
	switch core.NamingPolicy(s) {
	case "":
		return core.NamingSharedByName, nil
	case core.NamingSharedByName, core.NamingAlwaysPrefixed:
		return core.NamingPolicy(s), nil
	}
	return "", fmt.Errorf("unknown naming policy %q", s)
}

// ParseMutePolicy maps a config string to a mute policy. Empty input
// selects the default: any muted member shows the group muted.
func ParseMutePolicy(s string) (core.MutePolicy, error) {
	switch core.MutePolicy(s) {
	case "":
		return core.MuteAny, nil
	case core.MuteAny, core.MuteAll:
		return core.MutePolicy(s), nil
	}
	return "", fmt.Errorf("unknown mute policy %q", s)
}
