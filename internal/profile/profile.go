// Package profile holds formatting profiles and the visibility policy that
// keeps the quick-access bar bounded.
package profile

import (
	"errors"
	"fmt"
	"time"
)

// PinnedID identifies the clipboard profile: copy the transcript verbatim.
// It is always first, always visible and can never be deleted.
const PinnedID = "1"

var (
	// ErrPolicyViolation marks an attempt to break a pinned-profile rule.
	ErrPolicyViolation = errors.New("profile policy violation")
	// ErrVisibilityCap is returned when the policy rejects rather than evicts.
	ErrVisibilityCap = errors.New("visible profile limit reached")
	// ErrNotFound is returned for an unknown profile id.
	ErrNotFound = errors.New("profile not found")
)

// PolicyError describes a rejected mutation. It matches ErrPolicyViolation
// with errors.Is.
type PolicyError struct {
	Op     string
	ID     string
	Reason string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("%s profile %q: %s", e.Op, e.ID, e.Reason)
}

func (e *PolicyError) Is(target error) bool {
	return target == ErrPolicyViolation
}

// Profile mirrors one entry of the backend's profile list.
type Profile struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   *string   `json:"description,omitempty"`
	Prompt        *string   `json:"prompt,omitempty"`
	ExampleInput  *string   `json:"example_input,omitempty"`
	ExampleOutput *string   `json:"example_output,omitempty"`
	Active        bool      `json:"active"`
	Visible       bool      `json:"visible"`
	Shortcut      *string   `json:"shortcut,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Pinned reports whether p is the clipboard profile.
func (p Profile) Pinned() bool {
	return p.ID == PinnedID
}

// Clone returns a deep copy of list.
func Clone(list []Profile) []Profile {
	if len(list) == 0 {
		return nil
	}
	out := make([]Profile, len(list))
	for i, p := range list {
		p.Description = cloneString(p.Description)
		p.Prompt = cloneString(p.Prompt)
		p.ExampleInput = cloneString(p.ExampleInput)
		p.ExampleOutput = cloneString(p.ExampleOutput)
		p.Shortcut = cloneString(p.Shortcut)
		out[i] = p
	}
	return out
}

// Find returns the index of id in list or -1.
func Find(list []Profile, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

// Visible returns the visible profiles in list order.
func Visible(list []Profile) []Profile {
	var out []Profile
	for _, p := range list {
		if p.Visible {
			out = append(out, p)
		}
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
