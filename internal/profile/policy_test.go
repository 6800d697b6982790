package profile

import (
	"errors"
	"testing"
	"time"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func at(sec int) time.Time {
	return base.Add(time.Duration(sec) * time.Second)
}

func pinned() Profile {
	return Profile{ID: PinnedID, Name: "Clipboard", Visible: true, UpdatedAt: at(0)}
}

func visibleIDs(list []Profile) []string {
	var ids []string
	for _, p := range Visible(list) {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestSetVisible_EvictsOldestUpdated(t *testing.T) {
	list := []Profile{
		{ID: "A", Visible: true, UpdatedAt: at(1)},
		{ID: "B", Visible: true, UpdatedAt: at(2)},
		pinned(),
		{ID: "C", UpdatedAt: at(3)},
	}
	p := Policy{MaxVisible: 2, Overflow: OverflowEvict}
	now := at(10)

	out, err := p.SetVisible(list, "C", true, now)
	if err != nil {
		t.Fatalf("SetVisible returned error: %v", err)
	}

	byID := map[string]Profile{}
	for _, pr := range out {
		byID[pr.ID] = pr
	}
	if byID["A"].Visible {
		t.Fatal("A still visible, want evicted")
	}
	if !byID["A"].UpdatedAt.Equal(now) {
		t.Fatalf("A.UpdatedAt = %v, want %v", byID["A"].UpdatedAt, now)
	}
	if !byID["B"].Visible || !byID["C"].Visible {
		t.Fatalf("visible = %v, want B and C", visibleIDs(out))
	}
	if !byID[PinnedID].Visible || !byID[PinnedID].UpdatedAt.Equal(at(0)) {
		t.Fatalf("pinned profile touched: %+v", byID[PinnedID])
	}
	if !byID["C"].UpdatedAt.Equal(now) {
		t.Fatalf("C.UpdatedAt = %v, want %v", byID["C"].UpdatedAt, now)
	}

	// input must be untouched
	if !list[0].Visible || list[3].Visible {
		t.Fatal("SetVisible mutated its input")
	}
}

func TestSetVisible_TieBrokenByListOrder(t *testing.T) {
	list := []Profile{
		pinned(),
		{ID: "X", Visible: true, UpdatedAt: at(5)},
		{ID: "Y", Visible: true, UpdatedAt: at(5)},
		{ID: "Z", UpdatedAt: at(6)},
	}
	p := Policy{MaxVisible: 2}

	out, err := p.SetVisible(list, "Z", true, at(9))
	if err != nil {
		t.Fatalf("SetVisible returned error: %v", err)
	}
	got := visibleIDs(out)
	want := []string{PinnedID, "Y", "Z"}
	if len(got) != len(want) {
		t.Fatalf("visible = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("visible = %v, want %v", got, want)
		}
	}
}

func TestSetVisible_RejectsHidingPinned(t *testing.T) {
	list := []Profile{pinned(), {ID: "A", Visible: true}}
	_, err := DefaultPolicy().SetVisible(list, PinnedID, false, at(1))
	if !errors.Is(err, ErrPolicyViolation) {
		t.Fatalf("error = %v, want ErrPolicyViolation", err)
	}
	var pe *PolicyError
	if !errors.As(err, &pe) || pe.Op != "hide" {
		t.Fatalf("error = %#v, want *PolicyError with Op hide", err)
	}
}

func TestSetVisible_RejectOverflowMode(t *testing.T) {
	list := []Profile{
		pinned(),
		{ID: "A", Visible: true, UpdatedAt: at(1)},
		{ID: "B", UpdatedAt: at(2)},
	}
	p := Policy{MaxVisible: 1, Overflow: OverflowReject}
	_, err := p.SetVisible(list, "B", true, at(3))
	if !errors.Is(err, ErrVisibilityCap) {
		t.Fatalf("error = %v, want ErrVisibilityCap", err)
	}
}

func TestSetVisible_CountPinnedVariant(t *testing.T) {
	list := []Profile{pinned()}
	for i, id := range []string{"A", "B", "C", "D", "E"} {
		list = append(list, Profile{ID: id, UpdatedAt: at(i + 1)})
	}
	p := Policy{MaxVisible: 5, CountPinned: true}

	var err error
	for i, id := range []string{"A", "B", "C", "D", "E"} {
		list, err = p.SetVisible(list, id, true, at(10+i))
		if err != nil {
			t.Fatalf("SetVisible(%s) returned error: %v", id, err)
		}
	}
	got := visibleIDs(list)
	if len(got) != 5 {
		t.Fatalf("visible = %v, want 5 total including pinned", got)
	}
	if got[0] != PinnedID {
		t.Fatalf("visible = %v, want pinned first", got)
	}
	for _, id := range got {
		if id == "A" {
			t.Fatalf("visible = %v, want A evicted", got)
		}
	}
}

func TestSetVisible_NeverExceedsCap(t *testing.T) {
	p := DefaultPolicy()
	list := []Profile{pinned()}
	for i := 0; i < 10; i++ {
		list = append(list, Profile{ID: string(rune('a' + i)), UpdatedAt: at(i)})
	}
	var err error
	for i := 0; i < 10; i++ {
		list, err = p.SetVisible(list, string(rune('a'+i)), true, at(100+i))
		if err != nil {
			t.Fatalf("SetVisible returned error: %v", err)
		}
		if n := p.visibleCount(list); n > DefaultMaxVisible {
			t.Fatalf("visible non-pinned = %d after step %d, want <= %d", n, i, DefaultMaxVisible)
		}
		if !list[0].Visible {
			t.Fatal("pinned profile hidden")
		}
	}
}

func TestSetVisible_UnknownID(t *testing.T) {
	_, err := DefaultPolicy().SetVisible([]Profile{pinned()}, "nope", true, at(1))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestReorder_MovesWithinNonPinned(t *testing.T) {
	list := []Profile{
		pinned(),
		{ID: "A", UpdatedAt: at(1)},
		{ID: "B", UpdatedAt: at(1)},
		{ID: "C", UpdatedAt: at(1)},
	}
	now := at(50)
	out, err := DefaultPolicy().Reorder(list, "C", "A", now)
	if err != nil {
		t.Fatalf("Reorder returned error: %v", err)
	}
	want := []string{PinnedID, "C", "A", "B"}
	for i, id := range want {
		if out[i].ID != id {
			t.Fatalf("order = %v, want %v", ids(out), want)
		}
	}
	for _, pr := range out[1:] {
		if !pr.UpdatedAt.Equal(now) {
			t.Fatalf("%s.UpdatedAt = %v, want %v", pr.ID, pr.UpdatedAt, now)
		}
	}
	if !out[0].UpdatedAt.Equal(at(0)) {
		t.Fatal("pinned profile stamped by reorder")
	}
}

func TestReorder_RejectsPinnedEndpoints(t *testing.T) {
	list := []Profile{pinned(), {ID: "A"}}
	p := DefaultPolicy()
	if _, err := p.Reorder(list, PinnedID, "A", at(1)); !errors.Is(err, ErrPolicyViolation) {
		t.Fatalf("active pinned: error = %v, want ErrPolicyViolation", err)
	}
	if _, err := p.Reorder(list, "A", PinnedID, at(1)); !errors.Is(err, ErrPolicyViolation) {
		t.Fatalf("over pinned: error = %v, want ErrPolicyViolation", err)
	}
}

func TestDelete(t *testing.T) {
	list := []Profile{pinned(), {ID: "A"}, {ID: "B"}}
	p := DefaultPolicy()

	if _, err := p.Delete(list, PinnedID); !errors.Is(err, ErrPolicyViolation) {
		t.Fatalf("delete pinned: error = %v, want ErrPolicyViolation", err)
	}
	out, err := p.Delete(list, "A")
	if err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if got := ids(out); len(got) != 2 || got[1] != "B" {
		t.Fatalf("ids = %v, want [1 B]", got)
	}
	if len(list) != 3 {
		t.Fatal("Delete mutated its input")
	}
}

func TestCreate_AssignsIDAndRespectsCap(t *testing.T) {
	p := Policy{MaxVisible: 1}
	list := []Profile{pinned(), {ID: "A", Visible: true, UpdatedAt: at(1)}}

	out, created, err := p.Create(list, Profile{Name: "Email", Visible: true}, at(5))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.ID == "" {
		t.Fatal("created profile has empty id")
	}
	if !created.CreatedAt.Equal(at(5)) || !created.Visible {
		t.Fatalf("created = %+v, want visible with CreatedAt set", created)
	}
	if got := visibleIDs(out); len(got) != 2 || got[1] != created.ID {
		t.Fatalf("visible = %v, want pinned and the new profile", got)
	}
}

func TestUpdate_KeepsCreatedAtAndGuardsPinned(t *testing.T) {
	p := DefaultPolicy()
	list := []Profile{pinned(), {ID: "A", Name: "Old", CreatedAt: at(1), UpdatedAt: at(1)}}

	out, err := p.Update(list, Profile{ID: "A", Name: "New"}, at(7))
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if out[1].Name != "New" || !out[1].CreatedAt.Equal(at(1)) || !out[1].UpdatedAt.Equal(at(7)) {
		t.Fatalf("updated = %+v", out[1])
	}

	if _, err := p.Update(list, Profile{ID: PinnedID, Visible: false}, at(7)); !errors.Is(err, ErrPolicyViolation) {
		t.Fatalf("hide pinned via update: error = %v, want ErrPolicyViolation", err)
	}
}

func TestNormalize_RepairsLoadedList(t *testing.T) {
	p := Policy{MaxVisible: 1}
	list := []Profile{
		{ID: "A", Visible: true, UpdatedAt: at(1)},
		{ID: PinnedID, Visible: false},
		{ID: "B", Visible: true, UpdatedAt: at(2)},
	}
	out, changed := p.Normalize(list, at(9))
	if !changed {
		t.Fatal("Normalize reported no change")
	}
	if out[0].ID != PinnedID || !out[0].Visible {
		t.Fatalf("first = %+v, want visible pinned", out[0])
	}
	if got := visibleIDs(out); len(got) != 2 || got[1] != "B" {
		t.Fatalf("visible = %v, want [1 B]", got)
	}

	if _, changed := p.Normalize(out, at(10)); changed {
		t.Fatal("Normalize of a normal list reported change")
	}
}

func TestParseOverflow(t *testing.T) {
	if o, err := ParseOverflow(""); err != nil || o != OverflowEvict {
		t.Fatalf("ParseOverflow(\"\") = %q,%v want evict", o, err)
	}
	if o, err := ParseOverflow("reject"); err != nil || o != OverflowReject {
		t.Fatalf("ParseOverflow(reject) = %q,%v want reject", o, err)
	}
	if _, err := ParseOverflow("panic"); err == nil {
		t.Fatal("ParseOverflow(panic) returned nil error")
	}
}

func ids(list []Profile) []string {
	out := make([]string, len(list))
	for i, p := range list {
		out[i] = p.ID
	}
	return out
}
