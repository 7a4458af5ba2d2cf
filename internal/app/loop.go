package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/palmscroll/internal/capture"
	"github.com/ayusman/palmscroll/internal/classifier"
	"github.com/ayusman/palmscroll/internal/debounce"
	"github.com/ayusman/palmscroll/internal/detector"
	"github.com/ayusman/palmscroll/internal/logger"
	"github.com/ayusman/palmscroll/internal/overlay"
)

// errQuit is returned by Step when the viewer asked to stop.
var errQuit = errors.New("quit requested")

// Run opens the camera and processes frames until ctx is cancelled, the
// viewer asks to quit or a fatal error occurs. Cancellation is only
// observed between frames. A finite frame source that runs dry ends the
// session without an error.
func (a *App) Run(ctx context.Context) error {
	if err := a.config.Camera.Open(); err != nil {
		return fmt.Errorf("%w: %w", ErrCameraRead, err)
	}
	defer a.config.Camera.Close()

	a.startSession(ctx)
	defer a.endSession(ctx)

	if id := a.SessionID(); id != "" {
		ctx = logger.WithKV(ctx, "session", id)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "frame loop stopped")
			return nil
		default:
		}

		err := a.Step(ctx)
		switch {
		case err == nil:
		case errors.Is(err, errQuit):
			logger.Info(ctx, "quit requested from preview")
			return nil
		case errors.Is(err, capture.ErrEndOfStream):
			logger.Info(ctx, "frame source exhausted")
			return nil
		default:
			return err
		}
	}
}

// Step runs one full cycle: read, detect, classify, debounce, dispatch and
// render. Paused frames skip detection and leave the controller untouched.
func (a *App) Step(ctx context.Context) error {
	frame, err := a.config.Camera.ReadFrame()
	if err != nil {
		if errors.Is(err, capture.ErrEndOfStream) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrCameraRead, err)
	}
	defer frame.Close()

	res := a.Last()
	var hand *detector.HandLandmarks

	if a.IsEnabled() {
		hand, err = a.config.Detector.Detect(frame)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDetect, err)
		}

		res, err = a.ProcessHand(ctx, hand, a.config.Now())
		if err != nil {
			return err
		}
	}

	if a.config.Viewer == nil && a.config.Frames == nil {
		return nil
	}

	overlay.Draw(frame, hand, res, overlay.Options{Hint: a.config.Viewer != nil})

	if a.config.Frames != nil {
		a.config.Frames.SetFrame(frame)
	}
	if a.config.Viewer != nil && a.config.Viewer.Show(frame) {
		return errQuit
	}

	return nil
}

// ProcessHand feeds one observation into the controller and dispatches the
// resulting action. A nil hand is a "no hand" observation. Classifier
// failures are fatal; dispatch failures are logged and the action still
// counts against the rate limit.
func (a *App) ProcessHand(ctx context.Context, hand *detector.HandLandmarks, now time.Time) (debounce.Result, error) {
	observed := classifier.NoHand

	if hand != nil {
		feature := hand.Normalize()

		class, err := a.config.Classifier.Classify(feature)
		if err != nil {
			return debounce.Result{}, fmt.Errorf("%w: %w", ErrClassify, err)
		}
		if class < 0 {
			return debounce.Result{}, fmt.Errorf("%w: negative class %d", ErrClassify, class)
		}
		observed = class
	}

	res := a.controller.Step(observed, now)

	a.mu.Lock()
	a.frames++
	a.last = res
	frameNo := a.frames
	a.mu.Unlock()

	if res.Fired {
		err := a.config.Scroller.Scroll(ctx, res.Delta)
		if err != nil {
			logger.WarnKV(ctx, "scroll dispatch failed", "delta", res.Delta, "error", err)
		} else {
			logger.InfoKV(ctx, "scroll", "status", res.Status, "delta", res.Delta, "run_length", res.RunLength)
		}
		a.record(ctx, res, now, err)
	}

	logger.DebugKV(ctx, "frame", "frame", frameNo, "status", res.Status, "run_length", res.RunLength)

	status := FrameStatus{
		Frame:     frameNo,
		Status:    res.Status,
		Class:     int(res.Class),
		RunLength: res.RunLength,
		Delta:     res.Delta,
		Fired:     res.Fired,
		Timestamp: now.UnixMilli(),
	}
	for _, o := range a.config.Observers {
		o.Observe(status)
	}

	return res, nil
}
