package attendance

import (
	"context"
	"fmt"
	"strings"
)

const (
	LabelPresent = "Present"
	LabelAbsent  = "Absent"
	NotAvailable = "N/A"
)

// Metadata is the contact data the identity store keeps for a name.
type Metadata struct {
	Email       string
	PhoneNumber string
	Department  string
	Role        string
}

// MetadataLookup resolves a roster name. A name unknown to the store returns
// found == false and a nil error.
type MetadataLookup interface {
	Lookup(ctx context.Context, name string) (meta Metadata, found bool, err error)
}

// MetadataMap is an in-memory MetadataLookup.
type MetadataMap map[string]Metadata

func (m MetadataMap) Lookup(_ context.Context, name string) (Metadata, bool, error) {
	meta, ok := m[name]
	return meta, ok, nil
}

type Record struct {
	Name            string `json:"name"`
	Attendance      string `json:"attendance"`
	Duration        string `json:"duration,omitempty"`
	DurationSeconds *int   `json:"duration_seconds,omitempty"`
	Email           string `json:"email"`
	PhoneNumber     string `json:"phone_number"`
	Department      string `json:"department"`
	Role            string `json:"role"`
}

func (r Record) IsPresent() bool {
	return r.Attendance == LabelPresent
}

type Compiler struct {
	lookup MetadataLookup
}

// NewCompiler builds a compiler. A nil lookup reports every name as unknown.
func NewCompiler(lookup MetadataLookup) *Compiler {
	return &Compiler{lookup: lookup}
}

// Compile turns terminal presence states into records in the order given.
// frameRate is only consulted for video.
func (c *Compiler) Compile(ctx context.Context, mode Mode, states []PresenceState, frameRate float64) ([]Record, error) {
	if mode == ModeVideo {
		if err := validateFrameRate(frameRate); err != nil {
			return nil, err
		}
	}

	records := make([]Record, 0, len(states))
	for _, st := range states {
		rec := Record{Name: st.Identity.Name}

		switch mode {
		case ModeVideo:
			seconds, err := NormalizeDuration(st.FrameCount, frameRate)
			if err != nil {
				return nil, err
			}
			rec.DurationSeconds = &seconds
			rec.Duration = FormatDuration(seconds)
			rec.Attendance = label(seconds > 0)
		default:
			rec.Attendance = label(st.Present)
		}

		meta, err := c.resolve(ctx, st.Identity.Name)
		if err != nil {
			return nil, err
		}
		rec.Email = meta.Email
		rec.PhoneNumber = meta.PhoneNumber
		rec.Department = meta.Department
		rec.Role = meta.Role

		records = append(records, rec)
	}

	return records, nil
}

func (c *Compiler) resolve(ctx context.Context, name string) (Metadata, error) {
	if c.lookup == nil {
		return unknownMetadata(), nil
	}

	meta, found, err := c.lookup.Lookup(ctx, name)
	if err != nil {
		return Metadata{}, fmt.Errorf("metadata lookup for %q: %w", name, err)
	}
	if !found {
		return unknownMetadata(), nil
	}

	meta.Email = orNotAvailable(meta.Email)
	meta.PhoneNumber = orNotAvailable(meta.PhoneNumber)
	meta.Department = orNotAvailable(meta.Department)
	meta.Role = orNotAvailable(meta.Role)
	return meta, nil
}

func unknownMetadata() Metadata {
	return Metadata{
		Email:       NotAvailable,
		PhoneNumber: NotAvailable,
		Department:  NotAvailable,
		Role:        NotAvailable,
	}
}

func orNotAvailable(v string) string {
	if strings.TrimSpace(v) == "" {
		return NotAvailable
	}
	return v
}

func label(present bool) string {
	if present {
		return LabelPresent
	}
	return LabelAbsent
}
