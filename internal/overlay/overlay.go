// Package overlay draws the per-frame status and hand skeleton onto a frame
// and optionally shows it in a local window.
package overlay

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/palmscroll/internal/debounce"
	"github.com/ayusman/palmscroll/internal/detector"
)

// QuitHint is drawn under the status line when a preview window is open.
const QuitHint = "Press Q to quit"

var (
	black = color.RGBA{0, 0, 0, 0}
	white = color.RGBA{255, 255, 255, 0}
	green = color.RGBA{0, 255, 0, 0}
	red   = color.RGBA{0, 0, 255, 0}
)

// connections are the landmark pairs joined by bones, MediaPipe order.
var connections = [][2]int{
	{detector.Wrist, detector.ThumbCMC}, {detector.ThumbCMC, detector.ThumbMCP},
	{detector.ThumbMCP, detector.ThumbIP}, {detector.ThumbIP, detector.ThumbTip},
	{detector.Wrist, detector.IndexMCP}, {detector.IndexMCP, detector.IndexPIP},
	{detector.IndexPIP, detector.IndexDIP}, {detector.IndexDIP, detector.IndexTip},
	{detector.IndexMCP, detector.MiddleMCP}, {detector.MiddleMCP, detector.MiddlePIP},
	{detector.MiddlePIP, detector.MiddleDIP}, {detector.MiddleDIP, detector.MiddleTip},
	{detector.MiddleMCP, detector.RingMCP}, {detector.RingMCP, detector.RingPIP},
	{detector.RingPIP, detector.RingDIP}, {detector.RingDIP, detector.RingTip},
	{detector.RingMCP, detector.PinkyMCP}, {detector.Wrist, detector.PinkyMCP},
	{detector.PinkyMCP, detector.PinkyPIP}, {detector.PinkyPIP, detector.PinkyDIP},
	{detector.PinkyDIP, detector.PinkyTip},
}

// Options controls what Draw renders.
type Options struct {
	// Hint adds the quit hint line.
	Hint bool
}

// Draw renders hand (when present) and the status line of res onto frame.
func Draw(frame *gocv.Mat, hand *detector.HandLandmarks, res debounce.Result, opts Options) {
	if frame == nil || frame.Empty() {
		return
	}

	if hand != nil {
		drawHand(frame, hand)
	}

	outlinedText(frame, res.String(), image.Pt(10, 30), 0.8)
	if opts.Hint {
		outlinedText(frame, QuitHint, image.Pt(10, 60), 0.7)
	}
}

// Pixel maps an image-fraction landmark to pixel coordinates in frame.
func Pixel(frame *gocv.Mat, p detector.Point) image.Point {
	return image.Pt(int(p.X*float64(frame.Cols())), int(p.Y*float64(frame.Rows())))
}

func drawHand(frame *gocv.Mat, hand *detector.HandLandmarks) {
	for _, c := range connections {
		gocv.Line(frame, Pixel(frame, hand.Points[c[0]]), Pixel(frame, hand.Points[c[1]]), green, 2)
	}
	for _, p := range hand.Points {
		gocv.Circle(frame, Pixel(frame, p), 4, red, -1)
	}
}

// outlinedText draws white text over a thicker black copy so it stays
// readable on any background.
func outlinedText(frame *gocv.Mat, text string, at image.Point, scale float64) {
	gocv.PutText(frame, text, at, gocv.FontHersheySimplex, scale, black, 4)
	gocv.PutText(frame, text, at, gocv.FontHersheySimplex, scale, white, 2)
}

// Window is a local preview window.
type Window struct {
	w *gocv.Window
}

// NewWindow opens a preview window titled title. Windows must be driven
// from the main goroutine on most platforms.
func NewWindow(title string) *Window {
	return &Window{w: gocv.NewWindow(title)}
}

// Show displays frame and reports whether the user asked to quit.
func (w *Window) Show(frame *gocv.Mat) bool {
	w.w.IMShow(*frame)
	key := w.w.WaitKey(1) & 0xFF
	return key == 'q' || key == 'Q'
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.w.Close()
}
