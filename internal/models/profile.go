package models

import (
	"encoding/json"
	"sort"
	"strings"
)

// Profile is a server-side scan engine the user can enable for an upload.
// MachineName is the unique key.
type Profile struct {
	ID          int64           `json:"id" yaml:"id"`
	MachineName string          `json:"machine_name" yaml:"machine_name"`
	HumanName   string          `json:"human_name" yaml:"human_name"`
	Module      string          `json:"module" yaml:"module"`
	Config      json.RawMessage `json:"config,omitempty" yaml:"-"`
}

// MachineNames returns the machine names of profiles in list order
func MachineNames(profiles []Profile) []string {
	names := make([]string, 0, len(profiles))
	for _, p := range profiles {
		names = append(names, p.MachineName)
	}
	return names
}

// ProfileSet is an immutable set of profile machine names.
// Mutating operations return a new set and leave the receiver untouched.
type ProfileSet struct {
	members map[string]struct{}
}

// NewProfileSet builds a set from names
func NewProfileSet(names ...string) ProfileSet {
	members := make(map[string]struct{}, len(names))
	for _, n := range names {
		members[n] = struct{}{}
	}
	return ProfileSet{members: members}
}

// Has reports membership
func (s ProfileSet) Has(name string) bool {
	_, ok := s.members[name]
	return ok
}

// Len returns the number of members
func (s ProfileSet) Len() int {
	return len(s.members)
}

// Toggle returns a copy with name removed if present, added otherwise
func (s ProfileSet) Toggle(name string) ProfileSet {
	members := make(map[string]struct{}, len(s.members)+1)
	for n := range s.members {
		members[n] = struct{}{}
	}
	if _, ok := members[name]; ok {
		delete(members, name)
	} else {
		members[name] = struct{}{}
	}
	return ProfileSet{members: members}
}

// Names returns the members sorted alphabetically
func (s ProfileSet) Names() []string {
	names := make([]string, 0, len(s.members))
	for n := range s.members {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Equal reports whether both sets hold the same members
func (s ProfileSet) Equal(other ProfileSet) bool {
	if s.Len() != other.Len() {
		return false
	}
	for n := range s.members {
		if !other.Has(n) {
			return false
		}
	}
	return true
}

// CSV joins the members with commas, following the order of profiles.
// Members not present in profiles are appended in sorted order.
func (s ProfileSet) CSV(profiles []Profile) string {
	out := make([]string, 0, s.Len())
	seen := make(map[string]struct{}, s.Len())
	for _, p := range profiles {
		if s.Has(p.MachineName) {
			out = append(out, p.MachineName)
			seen[p.MachineName] = struct{}{}
		}
	}
	for _, n := range s.Names() {
		if _, ok := seen[n]; !ok {
			out = append(out, n)
		}
	}
	return strings.Join(out, ",")
}
