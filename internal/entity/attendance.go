package entity

import (
	"VideoPresence/internal/attendance"
	"time"
)

type APIKey struct {
	ID        string    `db:"id" json:"id"`
	Value     string    `db:"value" json:"value"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// VideoResponse is the persisted outcome of one video session. Names maps
// each roster name to its formatted duration.
type VideoResponse struct {
	ID        string              `json:"id"`
	Names     map[string]string   `json:"names"`
	Records   []attendance.Record `json:"records"`
	Date      time.Time           `json:"date"`
	VideoName string              `json:"video_name"`
	APIKey    string              `json:"api_key"`
	JSONFile  string              `json:"json_file,omitempty"`
}

type ImageResponse struct {
	ID            string              `json:"id"`
	UserID        string              `json:"user_id"`
	Names         []attendance.Record `json:"names"`
	Date          time.Time           `json:"date"`
	JSONFile      string              `json:"json_file,omitempty"`
	AnnotatedFile string              `json:"annotated_file,omitempty"`
}
