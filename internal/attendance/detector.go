package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type Box struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Detection is one raw box reported by the model.
type Detection struct {
	ClassID    int     `json:"cls"`
	Box        Box     `json:"box"`
	Confidence float64 `json:"conf"`
}

// Detector is the external detection capability.
type Detector interface {
	Detect(ctx context.Context, frame []byte) ([]Detection, error)
}

// DetectionResult is the set of distinct class ids seen in one frame.
// Detections keeps the raw boxes behind that set when the adapter produced it.
type DetectionResult struct {
	ClassIDs   map[int]struct{}
	Detections []Detection
}

func NewDetectionResult(classIDs ...int) DetectionResult {
	res := DetectionResult{ClassIDs: make(map[int]struct{}, len(classIDs))}
	for _, id := range classIDs {
		res.ClassIDs[id] = struct{}{}
	}
	return res
}

func (d DetectionResult) Contains(classID int) bool {
	_, ok := d.ClassIDs[classID]
	return ok
}

func (d DetectionResult) Len() int {
	return len(d.ClassIDs)
}

// Adapter reduces a detector call to a DetectionResult. A failed, cancelled or
// timed-out call is reported as ErrDetectionFailed.
type Adapter struct {
	detector Detector
	timeout  time.Duration
}

func NewAdapter(detector Detector, timeout time.Duration) *Adapter {
	return &Adapter{
		detector: detector,
		timeout:  timeout,
	}
}

func (a *Adapter) Detect(ctx context.Context, frame []byte) (DetectionResult, error) {
	if a.detector == nil {
		return DetectionResult{}, fmt.Errorf("%w: no detector configured", ErrDetectionFailed)
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	detections, err := a.detector.Detect(ctx, frame)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		if errors.Is(err, ErrDetectionFailed) {
			return DetectionResult{}, err
		}
		return DetectionResult{}, fmt.Errorf("%w: %v", ErrDetectionFailed, err)
	}

	res := DetectionResult{
		ClassIDs:   make(map[int]struct{}, len(detections)),
		Detections: detections,
	}
	for _, d := range detections {
		res.ClassIDs[d.ClassID] = struct{}{}
	}
	return res, nil
}
