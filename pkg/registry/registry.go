package registry

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/venuecontrol/avctl/pkg/logevent"
)

// snapshot is the immutable value swapped atomically on reload
// (spec.md §4.D, §5 "Configuration snapshot: immutable value, replaced
// atomically").
type snapshot struct {
	devices      map[string]Device
	groups       map[string]Group
	byGroup      map[string][]string // group id -> device ids, load order
	groupsSorted []Group
}

// Registry is the in-memory device/group catalogue. Lookups in flight
// against an old snapshot complete against that snapshot even if Reload
// swaps in a new one concurrently (spec.md §8 "Registry atomicity").
type Registry struct {
	current atomic.Pointer[snapshot]
	logger  logevent.Logger
}

// New constructs an empty Registry. Call Reload to populate it before use.
func New(logger logevent.Logger) *Registry {
	if logger == nil {
		logger = logevent.NoopLogger{}
	}
	r := &Registry{logger: logger}
	r.current.Store(&snapshot{
		devices: map[string]Device{},
		groups:  map[string]Group{},
		byGroup: map[string][]string{},
	})
	return r
}

// DropReason describes why a device was excluded from a loaded snapshot
// (spec.md §4.D: "unknown device-family tag ... dropped with a structured
// parse-error log").
type DropReason struct {
	DeviceID string
	Reason   string
}

// Reload atomically replaces the registry's contents. Devices that fail
// validation are dropped individually; the rest of the registry still
// loads (spec.md §4.D). Device id uniqueness is enforced here: a
// duplicate device id is dropped (first occurrence wins) with a
// DropReason, matching the "reject" invariant without aborting the whole
// load. Group ids are not checked: a repeated group id replaces the
// earlier group, and no DropReason is reported for it.
func (r *Registry) Reload(ctx context.Context, devices []Device, groups []Group) []DropReason {
	next := &snapshot{
		devices: make(map[string]Device, len(devices)),
		groups:  make(map[string]Group, len(groups)),
		byGroup: make(map[string][]string),
	}

	var dropped []DropReason

	for _, g := range groups {
		next.groups[g.ID] = g
	}

	seen := make(map[string]bool, len(devices))
	for _, d := range devices {
		if err := d.Validate(); err != nil {
			dropped = append(dropped, DropReason{DeviceID: d.ID, Reason: err.Error()})
			r.logger.Log(logevent.Event{Category: logevent.CategoryError, DeviceID: d.ID, Message: err.Error()})
			continue
		}
		if seen[d.ID] {
			dropped = append(dropped, DropReason{DeviceID: d.ID, Reason: "duplicate device id"})
			continue
		}
		seen[d.ID] = true
		d.MAC = NormalizeMAC(d.MAC)
		next.devices[d.ID] = d
		next.byGroup[d.GroupID] = append(next.byGroup[d.GroupID], d.ID)
	}

	sorted := make([]Group, 0, len(next.groups))
	for _, g := range next.groups {
		sorted = append(sorted, g)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })
	next.groupsSorted = sorted

	r.current.Store(next)
	return dropped
}

// Get returns the device with the given id.
func (r *Registry) Get(id string) (Device, bool) {
	snap := r.current.Load()
	d, ok := snap.devices[id]
	return d, ok
}

// List returns every device, optionally restricted to enabled ones
// (spec.md §4.D).
func (r *Registry) List(enabledOnly bool) []Device {
	snap := r.current.Load()
	out := make([]Device, 0, len(snap.devices))
	for _, d := range snap.devices {
		if enabledOnly && !d.Enabled {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ByGroup returns the devices belonging to groupID.
func (r *Registry) ByGroup(groupID string, enabledOnly bool) []Device {
	snap := r.current.Load()
	ids := snap.byGroup[groupID]
	out := make([]Device, 0, len(ids))
	for _, id := range ids {
		d := snap.devices[id]
		if enabledOnly && !d.Enabled {
			continue
		}
		out = append(out, d)
	}
	return out
}

// ByFamily returns the devices whose family tag matches.
func (r *Registry) ByFamily(family Family, enabledOnly bool) []Device {
	snap := r.current.Load()
	var out []Device
	for _, d := range snap.devices {
		if d.Family != family {
			continue
		}
		if enabledOnly && !d.Enabled {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Group returns the group with the given id.
func (r *Registry) Group(id string) (Group, bool) {
	snap := r.current.Load()
	g, ok := snap.groups[id]
	return g, ok
}

// GroupsSortedByPriority returns every group ordered ascending by priority
// (spec.md §4.D, §4.E "iterate groups in ascending priority").
func (r *Registry) GroupsSortedByPriority() []Group {
	snap := r.current.Load()
	out := make([]Group, len(snap.groupsSorted))
	copy(out, snap.groupsSorted)
	return out
}
