// Package detector provides hand detection interfaces, landmark types and the
// feature normalization fed to the pose classifier.
package detector

import (
	"errors"
	"fmt"
	"math"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// FeatureLen is the length of a normalized feature vector (21 points x 2 axes).
const FeatureLen = NumLandmarks * 2

// minScale is the largest absolute component below which a hand is treated as
// collapsed onto the wrist.
const minScale = 1e-6

// ErrMalformedLandmarks is returned when a detector reports a hand whose point
// count is not NumLandmarks.
var ErrMalformedLandmarks = errors.New("malformed hand landmarks")

// Point is a landmark position in image-fraction coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point `json:"points"`
	Handedness string              `json:"handedness"` // "Left" or "Right"
	Score      float64             `json:"score"`
}

// Feature is a wrist-relative, scale-normalized landmark vector laid out as
// [x0, y0, x1, y1, ..., x20, y20].
type Feature [FeatureLen]float32

// FromPoints builds HandLandmarks from a variable-length point list.
func FromPoints(points []Point) (HandLandmarks, error) {
	var h HandLandmarks
	if len(points) != NumLandmarks {
		return h, fmt.Errorf("%w: got %d points, want %d", ErrMalformedLandmarks, len(points), NumLandmarks)
	}
	copy(h.Points[:], points)
	return h, nil
}

// Normalize converts the landmarks into a classifier feature vector.
// Every point is translated so the wrist sits at the origin, flattened in
// point-major order and divided by the largest absolute component, so each
// value lies in [-1, 1]. A hand whose points all coincide with the wrist
// yields the zero vector.
func (h *HandLandmarks) Normalize() Feature {
	var flat [FeatureLen]float64

	base := h.Points[Wrist]
	scale := 0.0
	for i, p := range h.Points {
		dx, dy := p.X-base.X, p.Y-base.Y
		flat[2*i] = dx
		flat[2*i+1] = dy
		scale = math.Max(scale, math.Max(math.Abs(dx), math.Abs(dy)))
	}

	if scale < minScale {
		scale = 1.0
	}

	var f Feature
	for i, v := range flat {
		f[i] = float32(v / scale)
	}
	return f
}
