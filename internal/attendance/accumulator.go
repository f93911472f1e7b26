package attendance

type Mode uint8

const (
	ModeImage Mode = iota
	ModeVideo
)

var modeNames = map[Mode]string{
	ModeImage: "image",
	ModeVideo: "video",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "unknown"
}

// PresenceState is the evidence gathered for one identity. Image sessions use
// Present, video sessions use FrameCount.
type PresenceState struct {
	Identity   Identity
	Present    bool
	FrameCount int
}

// Accumulator folds detection results into per-identity state. It is owned by
// a single session and is not safe for concurrent use.
type Accumulator struct {
	mode    Mode
	states  []PresenceState
	byClass map[int]int
	folded  int
	sealed  bool
}

func NewAccumulator(mode Mode, roster Roster) *Accumulator {
	acc := &Accumulator{
		mode:    mode,
		states:  make([]PresenceState, len(roster)),
		byClass: make(map[int]int, len(roster)),
	}
	for i, id := range roster {
		acc.states[i] = PresenceState{Identity: id}
		acc.byClass[id.ClassID] = i
	}
	return acc
}

func (a *Accumulator) Mode() Mode {
	return a.mode
}

// Fold applies one frame. Identities not seen in the frame keep their state.
func (a *Accumulator) Fold(res DetectionResult) error {
	if a.sealed {
		return ErrAccumulatorSealed
	}

	a.folded++
	for classID := range res.ClassIDs {
		i, ok := a.byClass[classID]
		if !ok {
			continue
		}
		switch a.mode {
		case ModeImage:
			a.states[i].Present = true
		case ModeVideo:
			a.states[i].FrameCount++
		}
	}
	return nil
}

func (a *Accumulator) FramesFolded() int {
	return a.folded
}

func (a *Accumulator) Snapshot() []PresenceState {
	out := make([]PresenceState, len(a.states))
	copy(out, a.states)
	return out
}

// Seal makes the accumulator read-only and returns the terminal states in
// roster order.
func (a *Accumulator) Seal() []PresenceState {
	a.sealed = true
	return a.Snapshot()
}

func (a *Accumulator) Sealed() bool {
	return a.sealed
}
