package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu       sync.Mutex
	hand     *HandLandmarks
	sequence []*HandLandmarks
	err      error
	calls    int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHand sets the hand returned by every Detect call. Nil means no hand.
func (m *MockDetector) SetHand(hand *HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hand = hand
}

// SetSequence queues per-call results. Once drained, Detect falls back to
// the hand set with SetHand.
func (m *MockDetector) SetSequence(hands []*HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence = append([]*HandLandmarks(nil), hands...)
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls reports how many times Detect was invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hand or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (*HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.sequence) > 0 {
		next := m.sequence[0]
		m.sequence = m.sequence[1:]
		return next, nil
	}
	return m.hand, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// OpenPalmLandmarks returns a right hand with all five fingers extended.
func OpenPalmLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	landmarks.Points[Wrist] = Point{X: 0.5, Y: 0.8}

	landmarks.Points[ThumbCMC] = Point{X: 0.55, Y: 0.75}
	landmarks.Points[ThumbMCP] = Point{X: 0.62, Y: 0.70}
	landmarks.Points[ThumbIP] = Point{X: 0.68, Y: 0.65}
	landmarks.Points[ThumbTip] = Point{X: 0.73, Y: 0.60}

	landmarks.Points[IndexMCP] = Point{X: 0.55, Y: 0.68}
	landmarks.Points[IndexPIP] = Point{X: 0.57, Y: 0.55}
	landmarks.Points[IndexDIP] = Point{X: 0.58, Y: 0.45}
	landmarks.Points[IndexTip] = Point{X: 0.58, Y: 0.35}

	// Middle finger is the longest and reaches furthest from the wrist.
	landmarks.Points[MiddleMCP] = Point{X: 0.50, Y: 0.66}
	landmarks.Points[MiddlePIP] = Point{X: 0.50, Y: 0.52}
	landmarks.Points[MiddleDIP] = Point{X: 0.50, Y: 0.40}
	landmarks.Points[MiddleTip] = Point{X: 0.50, Y: 0.28}

	landmarks.Points[RingMCP] = Point{X: 0.45, Y: 0.68}
	landmarks.Points[RingPIP] = Point{X: 0.43, Y: 0.55}
	landmarks.Points[RingDIP] = Point{X: 0.42, Y: 0.45}
	landmarks.Points[RingTip] = Point{X: 0.42, Y: 0.35}

	landmarks.Points[PinkyMCP] = Point{X: 0.40, Y: 0.70}
	landmarks.Points[PinkyPIP] = Point{X: 0.37, Y: 0.60}
	landmarks.Points[PinkyDIP] = Point{X: 0.35, Y: 0.50}
	landmarks.Points[PinkyTip] = Point{X: 0.34, Y: 0.42}

	return landmarks
}

// FistLandmarks returns a right hand with every finger curled into the palm.
func FistLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.93,
	}

	landmarks.Points[Wrist] = Point{X: 0.5, Y: 0.8}

	// Thumb folded across the curled fingers
	landmarks.Points[ThumbCMC] = Point{X: 0.55, Y: 0.76}
	landmarks.Points[ThumbMCP] = Point{X: 0.58, Y: 0.71}
	landmarks.Points[ThumbIP] = Point{X: 0.55, Y: 0.67}
	landmarks.Points[ThumbTip] = Point{X: 0.51, Y: 0.66}

	landmarks.Points[IndexMCP] = Point{X: 0.55, Y: 0.68}
	landmarks.Points[IndexPIP] = Point{X: 0.56, Y: 0.63}
	landmarks.Points[IndexDIP] = Point{X: 0.54, Y: 0.66}
	landmarks.Points[IndexTip] = Point{X: 0.53, Y: 0.69}

	landmarks.Points[MiddleMCP] = Point{X: 0.50, Y: 0.67}
	landmarks.Points[MiddlePIP] = Point{X: 0.50, Y: 0.62}
	landmarks.Points[MiddleDIP] = Point{X: 0.49, Y: 0.65}
	landmarks.Points[MiddleTip] = Point{X: 0.49, Y: 0.69}

	landmarks.Points[RingMCP] = Point{X: 0.45, Y: 0.68}
	landmarks.Points[RingPIP] = Point{X: 0.45, Y: 0.64}
	landmarks.Points[RingDIP] = Point{X: 0.45, Y: 0.67}
	landmarks.Points[RingTip] = Point{X: 0.46, Y: 0.70}

	landmarks.Points[PinkyMCP] = Point{X: 0.41, Y: 0.70}
	landmarks.Points[PinkyPIP] = Point{X: 0.41, Y: 0.67}
	landmarks.Points[PinkyDIP] = Point{X: 0.42, Y: 0.69}
	landmarks.Points[PinkyTip] = Point{X: 0.43, Y: 0.72}

	return landmarks
}

// PointingLandmarks returns a right hand with only the index finger extended.
func PointingLandmarks() HandLandmarks {
	landmarks := FistLandmarks()

	landmarks.Points[IndexPIP] = Point{X: 0.57, Y: 0.55}
	landmarks.Points[IndexDIP] = Point{X: 0.58, Y: 0.45}
	landmarks.Points[IndexTip] = Point{X: 0.58, Y: 0.35}

	return landmarks
}
