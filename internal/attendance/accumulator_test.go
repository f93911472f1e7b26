package attendance

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

var twoPeople = Roster{{Name: "alice", ClassID: 1}, {Name: "bob", ClassID: 2}}

func TestAccumulatorImageMode(t *testing.T) {
	acc := NewAccumulator(ModeImage, twoPeople)
	if err := acc.Fold(NewDetectionResult(1, 7)); err != nil {
		t.Fatalf("Fold failed: %v", err)
	}

	states := acc.Seal()
	if !states[0].Present {
		t.Error("alice should be present")
	}
	if states[1].Present {
		t.Error("bob should be absent")
	}
	if states[0].FrameCount != 0 {
		t.Error("image mode must not count frames")
	}
}

func TestAccumulatorVideoIsMonotonic(t *testing.T) {
	acc := NewAccumulator(ModeVideo, twoPeople)
	frames := []DetectionResult{
		NewDetectionResult(1),
		NewDetectionResult(1, 2),
		NewDetectionResult(),
		NewDetectionResult(2),
		NewDetectionResult(),
	}

	prev := acc.Snapshot()
	for i, f := range frames {
		if err := acc.Fold(f); err != nil {
			t.Fatalf("Fold %d failed: %v", i, err)
		}
		cur := acc.Snapshot()
		for j := range cur {
			if cur[j].FrameCount < prev[j].FrameCount {
				t.Fatalf("frame %d: count for %s went from %d to %d", i, cur[j].Identity.Name, prev[j].FrameCount, cur[j].FrameCount)
			}
		}
		prev = cur
	}

	states := acc.Seal()
	if states[0].FrameCount != 2 || states[1].FrameCount != 2 {
		t.Errorf("unexpected counts %+v", states)
	}
	if acc.FramesFolded() != len(frames) {
		t.Errorf("expected %d folded frames, got %d", len(frames), acc.FramesFolded())
	}
}

func TestAccumulatorFoldIsDeterministic(t *testing.T) {
	frames := []DetectionResult{
		NewDetectionResult(1), NewDetectionResult(2), NewDetectionResult(1, 2), NewDetectionResult(3),
	}

	run := func() []PresenceState {
		acc := NewAccumulator(ModeVideo, twoPeople)
		for _, f := range frames {
			_ = acc.Fold(f)
		}
		return acc.Seal()
	}

	if a, b := run(), run(); !reflect.DeepEqual(a, b) {
		t.Errorf("fold is not idempotent: %+v vs %+v", a, b)
	}
}

func TestAccumulatorSealed(t *testing.T) {
	acc := NewAccumulator(ModeVideo, twoPeople)
	acc.Seal()
	if err := acc.Fold(NewDetectionResult(1)); !errors.Is(err, ErrAccumulatorSealed) {
		t.Fatalf("expected ErrAccumulatorSealed, got %v", err)
	}
	if !acc.Sealed() {
		t.Error("accumulator should report sealed")
	}
}

func TestAccumulatorZeroFrames(t *testing.T) {
	for _, mode := range []Mode{ModeImage, ModeVideo} {
		states := NewAccumulator(mode, twoPeople).Seal()
		for _, st := range states {
			if st.Present || st.FrameCount != 0 {
				t.Errorf("%s: expected absent state, got %+v", mode, st)
			}
		}
	}
}

func TestAdapterReducesToDistinctClasses(t *testing.T) {
	adapter := NewAdapter(&byteDetector{}, 0)
	res, err := adapter.Detect(context.Background(), []byte{1, 1, 2, 1})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if res.Len() != 2 || !res.Contains(1) || !res.Contains(2) {
		t.Errorf("unexpected result %+v", res.ClassIDs)
	}
}

func TestAdapterFailures(t *testing.T) {
	t.Run("detector error", func(t *testing.T) {
		_, err := NewAdapter(&byteDetector{}, 0).Detect(context.Background(), []byte{failFrame})
		if !errors.Is(err, ErrDetectionFailed) {
			t.Fatalf("expected ErrDetectionFailed, got %v", err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		_, err := NewAdapter(blockingDetector{}, 10*time.Millisecond).Detect(context.Background(), []byte{1})
		if !errors.Is(err, ErrDetectionFailed) {
			t.Fatalf("expected ErrDetectionFailed, got %v", err)
		}
	})

	t.Run("no detector", func(t *testing.T) {
		_, err := NewAdapter(nil, 0).Detect(context.Background(), []byte{1})
		if !errors.Is(err, ErrDetectionFailed) {
			t.Fatalf("expected ErrDetectionFailed, got %v", err)
		}
	})
}
