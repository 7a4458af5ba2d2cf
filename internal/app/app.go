// Package app runs the palmscroll frame loop: capture, hand detection,
// pose classification, debounce and scroll dispatch.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/palmscroll/internal/capture"
	"github.com/ayusman/palmscroll/internal/classifier"
	"github.com/ayusman/palmscroll/internal/debounce"
	"github.com/ayusman/palmscroll/internal/detector"
	"github.com/ayusman/palmscroll/internal/logger"
	"github.com/ayusman/palmscroll/internal/scroll"
	"github.com/ayusman/palmscroll/internal/store"
)

var (
	// ErrCameraRead ends a session when the frame source fails.
	ErrCameraRead = errors.New("camera read failed")
	// ErrDetect ends a session when the hand detector fails.
	ErrDetect = errors.New("hand detection failed")
	// ErrClassify ends a session when the pose classifier fails.
	ErrClassify = errors.New("pose classification failed")

	errMissingDependency = errors.New("missing dependency")
)

// FrameStatus is the per-frame observability record.
type FrameStatus struct {
	Frame     int64           `json:"frame"`
	Status    debounce.Status `json:"status"`
	Class     int             `json:"class"`
	RunLength int             `json:"run_length"`
	Delta     int             `json:"delta"`
	Fired     bool            `json:"fired"`
	Timestamp int64           `json:"timestamp"`
}

// Observer receives every FrameStatus. Observe is called from the frame
// loop and must not block.
type Observer interface {
	Observe(FrameStatus)
}

// FrameSink receives the rendered overlay frame. The frame is only valid
// for the duration of the call.
type FrameSink interface {
	SetFrame(frame *gocv.Mat)
}

// Viewer shows the rendered frame and reports whether the user asked to quit.
type Viewer interface {
	Show(frame *gocv.Mat) bool
}

// Config holds the collaborators and parameters of the frame loop.
type Config struct {
	Camera     capture.Camera
	Detector   detector.Detector
	Classifier classifier.Classifier
	Scroller   scroll.Scroller
	Debounce   debounce.Config

	// Journal records sessions and fired actions when set.
	Journal *store.Store
	// ModelPath and Dispatch describe the session in the journal.
	ModelPath string
	Dispatch  string

	// Viewer, Frames and Observers are optional outputs.
	Viewer    Viewer
	Frames    FrameSink
	Observers []Observer

	// Now supplies frame timestamps. Defaults to time.Now.
	Now func() time.Time
}

// App owns the debounce controller and drives one frame at a time.
type App struct {
	config     Config
	controller *debounce.Controller

	mu      sync.RWMutex
	enabled bool

	sessionID string
	frames    int64
	last      debounce.Result
}

// New validates config and creates an enabled App.
func New(config Config) (*App, error) {
	switch {
	case config.Camera == nil:
		return nil, fmt.Errorf("%w: camera", errMissingDependency)
	case config.Detector == nil:
		return nil, fmt.Errorf("%w: detector", errMissingDependency)
	case config.Classifier == nil:
		return nil, fmt.Errorf("%w: classifier", errMissingDependency)
	case config.Scroller == nil:
		return nil, fmt.Errorf("%w: scroller", errMissingDependency)
	}

	controller, err := debounce.New(config.Debounce)
	if err != nil {
		return nil, err
	}

	if config.Now == nil {
		config.Now = time.Now
	}

	return &App{
		config:     config,
		controller: controller,
		enabled:    true,
		last:       debounce.Result{Status: debounce.StatusNoHand, Class: classifier.NoHand},
	}, nil
}

// SetEnabled pauses or resumes the loop. Paused frames are read and shown
// but not observed, so the run in progress continues when resumed.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether frames are being observed.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Frames returns the number of observed frames.
func (a *App) Frames() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.frames
}

// Last returns the most recent controller result.
func (a *App) Last() debounce.Result {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.last
}

// SessionID returns the journal session of the current run, if any.
func (a *App) SessionID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sessionID
}

// startSession opens a journal session. Journal failures are logged and
// the loop runs without a journal.
func (a *App) startSession(ctx context.Context) {
	if a.config.Journal == nil {
		return
	}

	cfg := a.controller.Config()
	sess := &store.Session{
		ModelPath:    a.config.ModelPath,
		StableFrames: cfg.StableFrames,
		Interval:     cfg.Interval,
		Magnitude:    cfg.Magnitude,
		Dispatch:     a.config.Dispatch,
		StartedAt:    a.config.Now(),
	}
	if err := a.config.Journal.Sessions().Create(sess); err != nil {
		logger.WarnKV(ctx, "journal session not recorded", "error", err)
		return
	}

	a.mu.Lock()
	a.sessionID = sess.ID
	a.mu.Unlock()

	logger.InfoKV(ctx, "session started", "session", sess.ID)
}

func (a *App) endSession(ctx context.Context) {
	id := a.SessionID()
	if a.config.Journal == nil || id == "" {
		return
	}

	if err := a.config.Journal.Sessions().End(id, a.Frames(), a.config.Now()); err != nil {
		logger.WarnKV(ctx, "journal session not closed", "session", id, "error", err)
	}
}

func (a *App) record(ctx context.Context, res debounce.Result, now time.Time, dispatchErr error) {
	id := a.SessionID()
	if a.config.Journal == nil || id == "" {
		return
	}

	e := &store.Event{
		SessionID: id,
		Status:    string(res.Status),
		Class:     int(res.Class),
		Amount:    res.Delta,
		RunLength: res.RunLength,
		FiredAt:   now,
	}
	if dispatchErr != nil {
		e.DispatchError = dispatchErr.Error()
	}

	if err := a.config.Journal.Events().Record(e); err != nil {
		logger.WarnKV(ctx, "journal event not recorded", "error", err)
	}
}
