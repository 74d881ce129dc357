package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const MaxGroupNameLen = 64

var (
	ErrGroupNameEmpty   = errors.New("group name empty")
	ErrGroupNameTooLong = errors.New("group name too long")
	ErrNoMembers        = errors.New("member list empty")
	ErrDuplicateMember  = errors.New("duplicate member")
)

type GroupID string

// GroupConfig is the persisted definition of one composite device.
// It is replaced wholesale on edit, never patched in place.
type GroupConfig struct {
	ID      GroupID    `json:"id"`
	Name    string     `json:"name"`
	Members []MemberID `json:"members"`
}

// NewGroupConfig validates inputs and assigns a fresh group id.
func NewGroupConfig(name string, members []MemberID) (*GroupConfig, error) {
	cfg := &GroupConfig{
		ID:      GroupID(uuid.NewString()),
		Name:    name,
		Members: members,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the invariants Initialize depends on: a name, at least
// one member, no duplicate member ids.
func (c *GroupConfig) Validate() error {
	if len(c.Name) == 0 {
		return ErrGroupNameEmpty
	}
	if len(c.Name) > MaxGroupNameLen {
		return ErrGroupNameTooLong
	}
	if len(c.Members) == 0 {
		return ErrNoMembers
	}
	return ValidateMembers(c.Members)
}

// ValidateMembers rejects duplicate ids. An empty list is allowed here:
// reconfiguring a group down to zero members is legal and degrades the
// composite to unavailable.
func ValidateMembers(members []MemberID) error {
	seen := make(map[MemberID]struct{}, len(members))
	for _, id := range members {
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateMember, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// WithMembers returns a copy with the member list replaced wholesale.
func (c *GroupConfig) WithMembers(members []MemberID) *GroupConfig {
	return &GroupConfig{ID: c.ID, Name: c.Name, Members: append([]MemberID(nil), members...)}
}

// WithName returns a copy with the group name replaced.
func (c *GroupConfig) WithName(name string) *GroupConfig {
	return &GroupConfig{ID: c.ID, Name: name, Members: append([]MemberID(nil), c.Members...)}
}
