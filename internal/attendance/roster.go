package attendance

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Identity is one enrolled person and the detector class that recognises them.
type Identity struct {
	Name    string `json:"name"`
	ClassID int    `json:"class"`
}

// Roster is ordered; its order is the reporting order of every session.
type Roster []Identity

func (r Roster) Names() []string {
	names := make([]string, len(r))
	for i, id := range r {
		names[i] = id.Name
	}
	return names
}

// Labels maps each class id to the name it identifies.
func (r Roster) Labels() map[int]string {
	labels := make(map[int]string, len(r))
	for _, id := range r {
		labels[id.ClassID] = id.Name
	}
	return labels
}

type rosterEntry struct {
	Name  *string `json:"name"`
	Class *int    `json:"class"`
}

// LoadRoster reads a JSON roster of the form [{"name": "alice", "class": 1}, ...].
func LoadRoster(path string) (Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRosterNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrRosterNotFound, path, err)
	}
	defer f.Close()

	return ParseRoster(f)
}

// ParseRoster accepts exactly one JSON array; anything after it is rejected.
func ParseRoster(r io.Reader) (Roster, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRosterMalformed, err)
	}

	var entries []rosterEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRosterMalformed, err)
	}

	roster := make(Roster, 0, len(entries))
	byClass := make(map[int]string, len(entries))
	byName := make(map[string]struct{}, len(entries))

	for i, e := range entries {
		if e.Name == nil || strings.TrimSpace(*e.Name) == "" {
			return nil, fmt.Errorf("%w: entry %d has no name", ErrRosterMalformed, i)
		}
		name := strings.TrimSpace(*e.Name)

		if e.Class == nil {
			return nil, fmt.Errorf("%w: entry %d (%s) has no class id", ErrRosterMalformed, i, name)
		}
		if other, ok := byClass[*e.Class]; ok {
			return nil, fmt.Errorf("%w: class %d is mapped to both %q and %q", ErrRosterMalformed, *e.Class, other, name)
		}
		if _, ok := byName[name]; ok {
			return nil, fmt.Errorf("%w: name %q appears more than once", ErrRosterMalformed, name)
		}

		byClass[*e.Class] = name
		byName[name] = struct{}{}
		roster = append(roster, Identity{Name: name, ClassID: *e.Class})
	}

	return roster, nil
}
