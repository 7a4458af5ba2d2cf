// Package classifier maps normalized hand features to pose class indices.
package classifier

import (
	"errors"

	"github.com/ayusman/palmscroll/internal/detector"
)

// Class is a pose class index produced by a classifier.
type Class int

// NoHand is the observation recorded for frames without a detected hand.
const NoHand Class = -1

var (
	// ErrModelLoad is returned when a model artifact cannot be read or parsed.
	ErrModelLoad = errors.New("load model")
	// ErrShapeMismatch is returned when a model's output does not have the expected arity.
	ErrShapeMismatch = errors.New("model shape mismatch")
	// ErrInference is returned when a forward pass fails.
	ErrInference = errors.New("inference failed")
)

// Classifier assigns a class index to a feature vector.
type Classifier interface {
	Classify(feature detector.Feature) (Class, error)
}

// Func adapts a plain function to the Classifier interface.
type Func func(feature detector.Feature) (Class, error)

// Classify calls f.
func (f Func) Classify(feature detector.Feature) (Class, error) {
	return f(feature)
}

// Constant returns a classifier that always reports c.
func Constant(c Class) Classifier {
	return Func(func(detector.Feature) (Class, error) { return c, nil })
}

// Argmax returns the index of the largest score. Ties resolve to the lowest
// index. An empty slice returns -1.
func Argmax(scores []float32) int {
	best := -1
	for i, s := range scores {
		if best < 0 || s > scores[best] {
			best = i
		}
	}
	return best
}
