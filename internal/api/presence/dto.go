package presence

import "VideoPresence/internal/attendance"

type VideoProcessResponse struct {
	ID           string              `json:"id"`
	Results      []attendance.Record `json:"results"`
	VideoFile    string              `json:"video_file"`
	JSONFile     string              `json:"json_file"`
	FrameRate    float64             `json:"frame_rate"`
	FramesRead   int                 `json:"frames_read"`
	FramesFailed int                 `json:"frames_failed"`
	PresentCount int                 `json:"present_count"`
}

type ImageProcessResponse struct {
	ID             string              `json:"id"`
	Message        string              `json:"message"`
	Results        []attendance.Record `json:"results"`
	JSONFile       string              `json:"json_file"`
	ImageFile      string              `json:"image_file,omitempty"`
	ImageWithBoxes string              `json:"image_with_boxes"`
}

type FileDownloadResponse struct {
	DownloadLink string `json:"download_link"`
	Description  string `json:"description"`
}

type StreamQuery struct {
	FPS float64 `query:"fps" validate:"required,gt=0"`
}

// FrameEvent is pushed to a streaming client after each frame is folded.
type FrameEvent struct {
	Frame    int    `json:"frame"`
	ClassIDs []int  `json:"class_ids"`
	Error    string `json:"error,omitempty"`
}

type StreamErrorEvent struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
