package classifier

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/palmscroll/internal/detector"
)

// Net runs a pretrained keypoint classifier through the OpenCV DNN module.
// Models must be .onnx or .tflite, the two exports of the keypoint classifier.
type Net struct {
	mu      sync.Mutex
	net     gocv.Net
	path    string
	classes int
}

// Open loads the model at path and probes it with one zero-vector inference.
// When classes is positive the model must emit exactly that many scores;
// otherwise any output with at least two scores is accepted.
func Open(path string, classes int) (*Net, error) {
	if err := checkFormat(path); err != nil {
		return nil, err
	}

	net := gocv.ReadNet(path, "")
	if net.Empty() {
		net.Close()
		return nil, fmt.Errorf("%w: %s: unsupported or corrupt model", ErrModelLoad, path)
	}

	n := &Net{net: net, path: path}

	scores, err := n.scores(detector.Feature{})
	if err != nil {
		n.Close()
		return nil, err
	}

	switch {
	case classes > 0 && len(scores) != classes:
		n.Close()
		return nil, fmt.Errorf("%w: %s emits %d scores, want %d", ErrShapeMismatch, path, len(scores), classes)
	case len(scores) < 2:
		n.Close()
		return nil, fmt.Errorf("%w: %s emits %d scores", ErrShapeMismatch, path, len(scores))
	}

	n.classes = len(scores)
	return n, nil
}

// checkFormat rejects files whose header does not match their extension.
// OpenCV aborts the process on some malformed inputs instead of returning an
// empty network, so obvious garbage never reaches gocv.ReadNet.
func checkFormat(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrModelLoad, err)
	}
	defer f.Close()

	header := make([]byte, 8)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: %s: %w", ErrModelLoad, path, err)
	}
	header = header[:n]

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".onnx":
		// A ModelProto always opens with ir_version, field 1 as a varint.
		if n < 2 || header[0] != 0x08 {
			return fmt.Errorf("%w: %s: not an ONNX model", ErrModelLoad, path)
		}
	case ".tflite":
		if n < 8 || !bytes.Equal(header[4:8], []byte("TFL3")) {
			return fmt.Errorf("%w: %s: not a TFLite flatbuffer", ErrModelLoad, path)
		}
	default:
		return fmt.Errorf("%w: %s: unsupported model format %q", ErrModelLoad, path, ext)
	}
	return nil
}

// Classes returns the number of scores the model emits.
func (n *Net) Classes() int {
	return n.classes
}

// Path returns the model location.
func (n *Net) Path() string {
	return n.path
}

// Classify runs one forward pass and returns the highest-scoring class.
func (n *Net) Classify(feature detector.Feature) (Class, error) {
	scores, err := n.scores(feature)
	if err != nil {
		return NoHand, err
	}
	if len(scores) != n.classes {
		return NoHand, fmt.Errorf("%w: got %d scores, want %d", ErrShapeMismatch, len(scores), n.classes)
	}
	return Class(Argmax(scores)), nil
}

// Close releases the network.
func (n *Net) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.net.Close()
}

// scores feeds the feature as a 1x42 float32 batch and copies out the scores.
func (n *Net) scores(feature detector.Feature) ([]float32, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	raw := make([]byte, 4*detector.FeatureLen)
	for i, v := range feature {
		binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(v))
	}

	blob, err := gocv.NewMatFromBytes(1, detector.FeatureLen, gocv.MatTypeCV32F, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: build input: %w", ErrInference, err)
	}
	defer blob.Close()

	n.net.SetInput(blob, "")
	out := n.net.Forward("")
	defer out.Close()

	if out.Empty() {
		return nil, fmt.Errorf("%w: empty output", ErrInference)
	}

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("%w: read output: %w", ErrInference, err)
	}

	scores := make([]float32, len(data))
	copy(scores, data)
	return scores, nil
}
