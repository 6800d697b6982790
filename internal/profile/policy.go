package profile

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Overflow selects what happens when showing a profile would exceed the cap.
type Overflow string

const (
	// OverflowEvict silently hides the least recently updated visible profile.
	OverflowEvict Overflow = "evict"
	// OverflowReject refuses the change with ErrVisibilityCap.
	OverflowReject Overflow = "reject"
)

// DefaultMaxVisible is the cap on visible non-pinned profiles.
const DefaultMaxVisible = 4

// Policy enforces the visibility cap. With CountPinned the pinned profile
// occupies one of the MaxVisible slots.
type Policy struct {
	MaxVisible  int
	CountPinned bool
	Overflow    Overflow
}

// DefaultPolicy allows four visible profiles besides the pinned one and evicts
// on overflow.
func DefaultPolicy() Policy {
	return Policy{MaxVisible: DefaultMaxVisible, Overflow: OverflowEvict}
}

// ParseOverflow maps a config value to an Overflow, defaulting to evict.
func ParseOverflow(value string) (Overflow, error) {
	switch Overflow(value) {
	case "", OverflowEvict:
		return OverflowEvict, nil
	case OverflowReject:
		return OverflowReject, nil
	}
	return "", fmt.Errorf("unknown overflow mode %q", value)
}

func (p Policy) limit() int {
	if p.MaxVisible < 1 {
		return DefaultMaxVisible
	}
	return p.MaxVisible
}

func (p Policy) counted(pr Profile) bool {
	return pr.Visible && (p.CountPinned || !pr.Pinned())
}

func (p Policy) visibleCount(list []Profile) int {
	n := 0
	for _, pr := range list {
		if p.counted(pr) {
			n++
		}
	}
	return n
}

// SetVisible returns a copy of list with the target's visibility changed.
// Hiding the pinned profile is rejected. Showing a profile at the cap first
// evicts the non-pinned visible profile with the oldest UpdatedAt (ties go to
// the earlier list position), unless the policy rejects overflow.
func (p Policy) SetVisible(list []Profile, id string, visible bool, now time.Time) ([]Profile, error) {
	idx := Find(list, id)
	if idx < 0 {
		return nil, fmt.Errorf("set visibility of %q: %w", id, ErrNotFound)
	}
	if list[idx].Pinned() && !visible {
		return nil, &PolicyError{Op: "hide", ID: id, Reason: "the clipboard profile is always visible"}
	}

	out := Clone(list)
	if visible && !out[idx].Visible {
		if err := p.makeRoom(out, idx, now); err != nil {
			return nil, err
		}
	}
	out[idx].Visible = visible
	out[idx].UpdatedAt = now
	return out, nil
}

// makeRoom evicts until the profile at keep can become visible.
func (p Policy) makeRoom(out []Profile, keep int, now time.Time) error {
	incoming := 0
	if p.CountPinned || !out[keep].Pinned() {
		incoming = 1
	}
	for p.visibleCount(out)+incoming > p.limit() {
		if p.Overflow == OverflowReject {
			return fmt.Errorf("show %q: %w (max %d)", out[keep].ID, ErrVisibilityCap, p.limit())
		}
		victim := evictionCandidate(out, keep)
		if victim < 0 {
			return fmt.Errorf("show %q: %w (max %d)", out[keep].ID, ErrVisibilityCap, p.limit())
		}
		out[victim].Visible = false
		out[victim].UpdatedAt = now
	}
	return nil
}

// evictionCandidate picks the visible non-pinned profile with the oldest
// UpdatedAt, skipping skip. The pinned profile is never a candidate.
func evictionCandidate(list []Profile, skip int) int {
	best := -1
	for i, pr := range list {
		if i == skip || pr.Pinned() || !pr.Visible {
			continue
		}
		if best < 0 || pr.UpdatedAt.Before(list[best].UpdatedAt) {
			best = i
		}
	}
	return best
}

// Reorder moves activeID to overID's position within the non-pinned profiles.
// The pinned profile stays first and cannot be either endpoint.
func (p Policy) Reorder(list []Profile, activeID, overID string, now time.Time) ([]Profile, error) {
	for _, id := range []string{activeID, overID} {
		if id == PinnedID {
			return nil, &PolicyError{Op: "reorder", ID: id, Reason: "the clipboard profile has a fixed position"}
		}
	}

	var pinned []Profile
	var rest []Profile
	for _, pr := range Clone(list) {
		if pr.Pinned() {
			pinned = append(pinned, pr)
			continue
		}
		rest = append(rest, pr)
	}

	from, to := Find(rest, activeID), Find(rest, overID)
	if from < 0 {
		return nil, fmt.Errorf("reorder %q: %w", activeID, ErrNotFound)
	}
	if to < 0 {
		return nil, fmt.Errorf("reorder over %q: %w", overID, ErrNotFound)
	}

	before := make([]string, len(rest))
	for i, pr := range rest {
		before[i] = pr.ID
	}

	moved := rest[from]
	rest = append(rest[:from], rest[from+1:]...)
	rest = append(rest[:to], append([]Profile{moved}, rest[to:]...)...)

	for i := range rest {
		if rest[i].ID != before[i] {
			rest[i].UpdatedAt = now
		}
	}
	return append(pinned, rest...), nil
}

// Delete returns list without id. The pinned profile cannot be deleted.
func (p Policy) Delete(list []Profile, id string) ([]Profile, error) {
	if id == PinnedID {
		return nil, &PolicyError{Op: "delete", ID: id, Reason: "the clipboard profile cannot be deleted"}
	}
	idx := Find(list, id)
	if idx < 0 {
		return nil, fmt.Errorf("delete %q: %w", id, ErrNotFound)
	}
	out := Clone(list)
	return append(out[:idx], out[idx+1:]...), nil
}

// Create appends a new profile, assigning an id when empty. A visible new
// profile goes through the same cap handling as SetVisible.
func (p Policy) Create(list []Profile, pr Profile, now time.Time) ([]Profile, Profile, error) {
	if pr.ID == "" {
		pr.ID = uuid.NewString()
	}
	if Find(list, pr.ID) >= 0 {
		if pr.Pinned() {
			return nil, Profile{}, &PolicyError{Op: "create", ID: pr.ID, Reason: "id is reserved for the clipboard profile"}
		}
		return nil, Profile{}, fmt.Errorf("create %q: id already exists", pr.ID)
	}

	wantVisible := pr.Visible
	pr.Visible = false
	pr.CreatedAt = now
	pr.UpdatedAt = now
	out := append(Clone(list), pr)
	if !wantVisible {
		return out, pr, nil
	}
	out, err := p.SetVisible(out, pr.ID, true, now)
	if err != nil {
		return nil, Profile{}, err
	}
	return out, out[len(out)-1], nil
}

// Update replaces the profile with the same id, keeping CreatedAt. A
// visibility change is routed through SetVisible.
func (p Policy) Update(list []Profile, pr Profile, now time.Time) ([]Profile, error) {
	idx := Find(list, pr.ID)
	if idx < 0 {
		return nil, fmt.Errorf("update %q: %w", pr.ID, ErrNotFound)
	}
	if pr.Pinned() && !pr.Visible {
		return nil, &PolicyError{Op: "hide", ID: pr.ID, Reason: "the clipboard profile is always visible"}
	}

	out := Clone(list)
	wasVisible := out[idx].Visible
	pr.CreatedAt = out[idx].CreatedAt
	pr.UpdatedAt = now
	wantVisible := pr.Visible
	pr.Visible = wasVisible
	out[idx] = pr
	if wantVisible == wasVisible {
		return out, nil
	}
	return p.SetVisible(out, pr.ID, wantVisible, now)
}

// Normalize puts the pinned profile first and visible and hides the oldest
// profiles of an over-cap list. It reports whether anything changed.
func (p Policy) Normalize(list []Profile, now time.Time) ([]Profile, bool) {
	out := Clone(list)
	changed := false

	if idx := Find(out, PinnedID); idx >= 0 {
		if idx != 0 {
			pinned := out[idx]
			out = append(out[:idx], out[idx+1:]...)
			out = append([]Profile{pinned}, out...)
			changed = true
		}
		if !out[0].Visible {
			out[0].Visible = true
			out[0].UpdatedAt = now
			changed = true
		}
	}

	for p.visibleCount(out) > p.limit() {
		victim := evictionCandidate(out, -1)
		if victim < 0 {
			break
		}
		out[victim].Visible = false
		out[victim].UpdatedAt = now
		changed = true
	}
	return out, changed
}
