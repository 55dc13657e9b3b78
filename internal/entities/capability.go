package entities

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCapability is returned when a capability name or rank is not recognized
var ErrUnknownCapability = errors.New("unknown capability")

// Capability is the privilege tier a member holds on a skill.
// Each value carries an explicit rank; comparisons use the rank only.
type Capability int

const (
	CapabilityNone  Capability = 0
	CapabilityUse   Capability = 1
	CapabilityEdit  Capability = 2
	CapabilityAdmin Capability = 3
)

var capabilityNames = map[Capability]string{
	CapabilityNone:  "None",
	CapabilityUse:   "Use",
	CapabilityEdit:  "Edit",
	CapabilityAdmin: "Admin",
}

// Capabilities returns every capability ordered from least to most privileged
func Capabilities() []Capability {
	return []Capability{CapabilityNone, CapabilityUse, CapabilityEdit, CapabilityAdmin}
}

// Rank returns the privilege level of the capability
func (c Capability) Rank() int {
	return int(c)
}

// Includes reports whether c grants at least the privilege of other
func (c Capability) Includes(other Capability) bool {
	return c.Rank() >= other.Rank()
}

// Valid reports whether c is one of the defined capabilities
func (c Capability) Valid() bool {
	_, ok := capabilityNames[c]
	return ok
}

// String returns the canonical name of the capability
func (c Capability) String() string {
	if name, ok := capabilityNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Capability(%d)", int(c))
}

// ParseCapability parses a capability name, ignoring case.
// An empty string parses as None.
func ParseCapability(s string) (Capability, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CapabilityNone, nil
	}
	for c, name := range capabilityNames {
		if strings.EqualFold(name, s) {
			return c, nil
		}
	}
	return CapabilityNone, fmt.Errorf("%w: %q", ErrUnknownCapability, s)
}
