package attendance

import (
	"context"
	"errors"
	"testing"
)

type failingLookup struct{}

func (failingLookup) Lookup(context.Context, string) (Metadata, bool, error) {
	return Metadata{}, false, errors.New("connection refused")
}

func TestCompileUnknownMetadata(t *testing.T) {
	roster := Roster{{Name: "alice", ClassID: 1}, {Name: "carol", ClassID: 3}}
	lookup := MetadataMap{
		"alice": {Email: "alice@example.com", PhoneNumber: "12345678", Department: "R&D", Role: "engineer"},
	}

	acc := NewAccumulator(ModeImage, roster)
	_ = acc.Fold(NewDetectionResult(3))

	records, err := NewCompiler(lookup).Compile(context.Background(), ModeImage, acc.Seal(), 0)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	alice, carol := records[0], records[1]
	if alice.Email != "alice@example.com" || alice.Attendance != LabelAbsent {
		t.Errorf("unexpected alice record %+v", alice)
	}
	if carol.Attendance != LabelPresent {
		t.Errorf("carol classification should not depend on metadata, got %+v", carol)
	}
	for field, v := range map[string]string{
		"email": carol.Email, "phone_number": carol.PhoneNumber, "department": carol.Department, "role": carol.Role,
	} {
		if v != NotAvailable {
			t.Errorf("carol %s = %q, want %q", field, v, NotAvailable)
		}
	}
}

func TestCompileFillsEmptyFields(t *testing.T) {
	lookup := MetadataMap{"alice": {Email: "alice@example.com"}}
	states := NewAccumulator(ModeImage, Roster{{Name: "alice", ClassID: 1}}).Seal()

	records, err := NewCompiler(lookup).Compile(context.Background(), ModeImage, states, 0)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if records[0].Department != NotAvailable || records[0].Role != NotAvailable {
		t.Errorf("empty metadata fields should be %q: %+v", NotAvailable, records[0])
	}
}

func TestCompileVideo(t *testing.T) {
	states := []PresenceState{
		{Identity: Identity{Name: "alice", ClassID: 1}, FrameCount: 30},
		{Identity: Identity{Name: "bob", ClassID: 2}, FrameCount: 0},
		{Identity: Identity{Name: "dan", ClassID: 4}, FrameCount: 4},
	}

	records, err := NewCompiler(nil).Compile(context.Background(), ModeVideo, states, 10)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	want := []struct {
		name     string
		label    string
		duration string
		seconds  int
	}{
		{"alice", LabelPresent, "3sec", 3},
		{"bob", LabelAbsent, "0sec", 0},
		{"dan", LabelAbsent, "0sec", 0},
	}
	for i, w := range want {
		r := records[i]
		if r.Name != w.name || r.Attendance != w.label || r.Duration != w.duration {
			t.Errorf("record %d: got %+v, want %+v", i, r, w)
		}
		if r.DurationSeconds == nil || *r.DurationSeconds != w.seconds {
			t.Errorf("record %d: duration seconds %v, want %d", i, r.DurationSeconds, w.seconds)
		}
	}
}

func TestCompileVideoRejectsFrameRate(t *testing.T) {
	states := []PresenceState{{Identity: Identity{Name: "alice", ClassID: 1}, FrameCount: 3}}
	if _, err := NewCompiler(nil).Compile(context.Background(), ModeVideo, states, 0); !errors.Is(err, ErrInvalidFrameRate) {
		t.Fatalf("expected ErrInvalidFrameRate, got %v", err)
	}
}

func TestCompileLookupFailure(t *testing.T) {
	states := []PresenceState{{Identity: Identity{Name: "alice", ClassID: 1}}}
	if _, err := NewCompiler(failingLookup{}).Compile(context.Background(), ModeImage, states, 0); err == nil {
		t.Fatal("expected lookup failure to surface")
	}
}
