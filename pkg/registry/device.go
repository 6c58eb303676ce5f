// Package registry implements the in-memory device/group catalogue
// (spec.md §4.D): keyed lookups, atomic snapshot reload, and the
// validation/normalisation rules from spec.md §3. The atomic-swap reload
// pattern mirrors the reference controller's connection.Manager state
// machine — a read-mostly value is replaced wholesale rather than mutated
// field-by-field in place.
package registry

import (
	"fmt"
	"strconv"
	"strings"
)

// Family is the closed set of device protocol families (spec.md §3).
type Family string

const (
	FamilyASCIILine    Family = "ascii-line"
	FamilyJSONRPC      Family = "json-rpc"
	FamilySemicolonTCP Family = "semicolon-tcp"
	FamilyPassivePC    Family = "passive-pc"
)

// Valid reports whether f is one of the closed set of family tags.
func (f Family) Valid() bool {
	switch f {
	case FamilyASCIILine, FamilyJSONRPC, FamilySemicolonTCP, FamilyPassivePC:
		return true
	default:
		return false
	}
}

// DefaultPort returns the family-defaulted port (spec.md §3), or 0 for
// families with no default (passive-pc).
func (f Family) DefaultPort() int {
	switch f {
	case FamilyASCIILine:
		return 23
	case FamilyJSONRPC:
		return 9090
	case FamilySemicolonTCP:
		return 7992
	default:
		return 0
	}
}

// Device is an immutable snapshot of one controllable device
// (spec.md §3 Device). A new Device value is produced on every reload;
// existing values are never mutated in place.
type Device struct {
	ID          string
	Name        string
	GroupID     string
	Family      Family
	IP          string
	Port        int
	MAC         string
	Enabled     bool
	Timeout     int // milliseconds
}

// Group is a priority-ordered collection of devices (spec.md §3 Group).
type Group struct {
	ID       string
	Name     string
	Priority int
	Parallel bool
}

// ValidateIPv4 reports whether s is a syntactically valid dotted-quad IPv4
// address (spec.md §3 invariant, §8 round-trip law).
func ValidateIPv4(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		if p == "" || len(p) > 3 {
			return false
		}
		for _, c := range p {
			if c < '0' || c > '9' {
				return false
			}
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return false
		}
		// Reject forms like "01" that round-trip to a different string.
		if strconv.Itoa(n) != p {
			return false
		}
	}
	return true
}

// ValidatePort reports whether port falls in 1..65535 (spec.md §3).
func ValidatePort(port int) bool {
	return port >= 1 && port <= 65535
}

// NormalizeMAC replaces '-' and '.' separators with ':' and upper-cases the
// result (spec.md §3/§8). normalize(normalize(m)) == normalize(m) for any
// valid m, since the output already uses ':' separators and upper-case hex.
func NormalizeMAC(mac string) string {
	replaced := strings.NewReplacer("-", ":", ".", ":").Replace(mac)
	return strings.ToUpper(replaced)
}

// Validate checks a Device against spec.md §3's invariants, independent of
// its siblings in the registry (uniqueness is checked at load time across
// the whole device set).
func (d Device) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("device: empty id")
	}
	if !ValidateIPv4(d.IP) {
		return fmt.Errorf("device %s: invalid IPv4 address %q", d.ID, d.IP)
	}
	if d.Port != 0 && !ValidatePort(d.Port) {
		return fmt.Errorf("device %s: port %d out of range 1..65535", d.ID, d.Port)
	}
	if !d.Family.Valid() {
		return fmt.Errorf("device %s: unknown family %q", d.ID, d.Family)
	}
	return nil
}

// EffectivePort returns the device's configured port, or its family default
// when unset.
func (d Device) EffectivePort() int {
	if d.Port != 0 {
		return d.Port
	}
	return d.Family.DefaultPort()
}
