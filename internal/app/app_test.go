package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/palmscroll/internal/capture"
	"github.com/ayusman/palmscroll/internal/classifier"
	"github.com/ayusman/palmscroll/internal/debounce"
	"github.com/ayusman/palmscroll/internal/detector"
	"github.com/ayusman/palmscroll/internal/scroll"
	"github.com/ayusman/palmscroll/internal/store"
)

const (
	openClass  classifier.Class = 0
	fistClass  classifier.Class = 1
	otherClass classifier.Class = 2
)

// poseClassifier recognizes the three fixture hands by their features.
func poseClassifier() classifier.Classifier {
	palm := detector.OpenPalmLandmarks()
	fist := detector.FistLandmarks()
	palmF, fistF := palm.Normalize(), fist.Normalize()

	return classifier.Func(func(f detector.Feature) (classifier.Class, error) {
		switch f {
		case palmF:
			return openClass, nil
		case fistF:
			return fistClass, nil
		default:
			return otherClass, nil
		}
	})
}

// stepClock returns a Now func advancing by one frame per call.
func stepClock(fps int) func() time.Time {
	t := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	frame := time.Second / time.Duration(fps)
	return func() time.Time {
		now := t
		t = t.Add(frame)
		return now
	}
}

type statusLog struct {
	mu       sync.Mutex
	statuses []FrameStatus
}

func (l *statusLog) Observe(s FrameStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statuses = append(l.statuses, s)
}

type quitViewer struct{ shown int }

func (v *quitViewer) Show(*gocv.Mat) bool {
	v.shown++
	return true
}

type brokenCamera struct{ capture.MockCamera }

func (*brokenCamera) ReadFrame() (*gocv.Mat, error) { return nil, errors.New("usb unplugged") }

func newTestApp(t *testing.T, mutate func(*Config)) (*App, *scroll.Recorder) {
	t.Helper()

	rec := scroll.NewRecorder()
	cfg := Config{
		Camera:     capture.NewMockCamera(nil, false),
		Detector:   detector.NewMockDetector(),
		Classifier: poseClassifier(),
		Scroller:   rec,
		Debounce:   debounce.DefaultConfig(),
		Now:        stepClock(30),
	}
	if mutate != nil {
		mutate(&cfg)
	}

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return a, rec
}

func TestNew_Validation(t *testing.T) {
	full := Config{
		Camera:     capture.NewMockCamera(nil, false),
		Detector:   detector.NewMockDetector(),
		Classifier: poseClassifier(),
		Scroller:   scroll.NewRecorder(),
		Debounce:   debounce.DefaultConfig(),
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "no camera", mutate: func(c *Config) { c.Camera = nil }},
		{name: "no detector", mutate: func(c *Config) { c.Detector = nil }},
		{name: "no classifier", mutate: func(c *Config) { c.Classifier = nil }},
		{name: "no scroller", mutate: func(c *Config) { c.Scroller = nil }},
		{name: "bad debounce", mutate: func(c *Config) { c.Debounce.StableFrames = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := full
			tt.mutate(&cfg)
			if _, err := New(cfg); err == nil {
				t.Error("expected an error")
			}
		})
	}

	a, err := New(full)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if !a.IsEnabled() {
		t.Error("a new App should be enabled")
	}
	if a.Last().Status != debounce.StatusNoHand {
		t.Errorf("initial status = %s, want NO_HAND", a.Last().Status)
	}
}

func TestProcessHand_HeldOpenPalm(t *testing.T) {
	a, rec := newTestApp(t, nil)
	clock := stepClock(30)
	palm := detector.OpenPalmLandmarks()

	var firedAt []int
	for frame := 1; frame <= 10; frame++ {
		res, err := a.ProcessHand(context.Background(), &palm, clock())
		if err != nil {
			t.Fatalf("frame %d: ProcessHand() error = %v", frame, err)
		}
		if res.Status != debounce.StatusOpen || res.RunLength != frame {
			t.Errorf("frame %d: got %s, want OPEN stable=%d", frame, res, frame)
		}
		if res.Fired {
			firedAt = append(firedAt, frame)
		}
	}

	if len(firedAt) != 1 || firedAt[0] != 6 {
		t.Errorf("fired at frames %v, want [6]", firedAt)
	}
	if got := rec.Amounts(); len(got) != 1 || got[0] != 160 {
		t.Errorf("scrolled %v, want [160]", got)
	}
	if a.Frames() != 10 {
		t.Errorf("Frames() = %d, want 10", a.Frames())
	}
}

func TestProcessHand_FistScrollsDown(t *testing.T) {
	a, rec := newTestApp(t, nil)
	clock := stepClock(30)
	fist := detector.FistLandmarks()

	for i := 0; i < 6; i++ {
		if _, err := a.ProcessHand(context.Background(), &fist, clock()); err != nil {
			t.Fatal(err)
		}
	}

	if got := rec.Amounts(); len(got) != 1 || got[0] != -160 {
		t.Errorf("scrolled %v, want [-160]", got)
	}
}

func TestProcessHand_NoHandAndOther(t *testing.T) {
	a, rec := newTestApp(t, nil)
	clock := stepClock(30)
	pointing := detector.PointingLandmarks()

	for i := 0; i < 20; i++ {
		res, err := a.ProcessHand(context.Background(), nil, clock())
		if err != nil {
			t.Fatal(err)
		}
		if res.Status != debounce.StatusNoHand {
			t.Fatalf("status = %s, want NO_HAND", res.Status)
		}
	}
	for i := 0; i < 20; i++ {
		res, err := a.ProcessHand(context.Background(), &pointing, clock())
		if err != nil {
			t.Fatal(err)
		}
		if res.Status != debounce.StatusOther {
			t.Fatalf("status = %s, want OTHER", res.Status)
		}
	}

	if got := rec.Amounts(); len(got) != 0 {
		t.Errorf("scrolled %v, want nothing", got)
	}
}

func TestProcessHand_InterruptedRunRestarts(t *testing.T) {
	a, rec := newTestApp(t, nil)
	clock := stepClock(30)
	palm := detector.OpenPalmLandmarks()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		a.ProcessHand(ctx, &palm, clock())
	}
	res, _ := a.ProcessHand(ctx, nil, clock())
	if res.RunLength != 1 {
		t.Errorf("no-hand frame run length = %d, want 1", res.RunLength)
	}

	for i := 1; i <= 5; i++ {
		res, _ = a.ProcessHand(ctx, &palm, clock())
		if res.RunLength != i || res.Fired {
			t.Fatalf("resumed frame %d: %s fired=%v", i, res, res.Fired)
		}
	}
	if len(rec.Amounts()) != 0 {
		t.Fatal("nothing should fire before a fresh full run")
	}

	res, _ = a.ProcessHand(ctx, &palm, clock())
	if !res.Fired {
		t.Error("sixth frame of the fresh run should fire")
	}
}

func TestProcessHand_ClassifierErrors(t *testing.T) {
	boom := errors.New("backend gone")
	palm := detector.OpenPalmLandmarks()

	tests := []struct {
		name string
		c    classifier.Classifier
	}{
		{name: "inference error", c: classifier.Func(func(detector.Feature) (classifier.Class, error) { return 0, boom })},
		{name: "negative class", c: classifier.Constant(-3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := &statusLog{}
			a, rec := newTestApp(t, func(c *Config) {
				c.Classifier = tt.c
				c.Observers = []Observer{obs}
			})

			_, err := a.ProcessHand(context.Background(), &palm, time.Now())
			if !errors.Is(err, ErrClassify) {
				t.Fatalf("error = %v, want ErrClassify", err)
			}
			if a.Frames() != 0 || len(obs.statuses) != 0 || len(rec.Amounts()) != 0 {
				t.Error("a failed classification must not reach the controller")
			}
		})
	}
}

func TestProcessHand_DispatchFailureStillThrottles(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	a, rec := newTestApp(t, func(c *Config) { c.Journal = s })
	rec.SetError(errors.New("no display"))
	a.startSession(context.Background())

	clock := stepClock(30)
	palm := detector.OpenPalmLandmarks()
	var fired int
	for i := 0; i < 10; i++ {
		res, err := a.ProcessHand(context.Background(), &palm, clock())
		if err != nil {
			t.Fatalf("dispatch failures must not stop the loop: %v", err)
		}
		if res.Fired {
			fired++
		}
	}

	if fired != 1 {
		t.Errorf("fired %d times, want 1", fired)
	}

	events, err := s.Events().ListRecent(a.SessionID(), 10)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(events) != 1 || events[0].DispatchError != "no display" || events[0].Amount != 160 {
		t.Errorf("journal events = %+v", events)
	}
}

func TestProcessHand_Observers(t *testing.T) {
	obs := &statusLog{}
	a, _ := newTestApp(t, func(c *Config) { c.Observers = []Observer{obs} })
	clock := stepClock(30)
	palm := detector.OpenPalmLandmarks()

	for i := 0; i < 6; i++ {
		a.ProcessHand(context.Background(), &palm, clock())
	}

	if len(obs.statuses) != 6 {
		t.Fatalf("observed %d frames, want 6", len(obs.statuses))
	}
	last := obs.statuses[5]
	if last.Frame != 6 || last.Status != debounce.StatusOpen || last.RunLength != 6 || !last.Fired || last.Delta != 160 {
		t.Errorf("last status = %+v", last)
	}
	if obs.statuses[0].Fired {
		t.Error("first frame should not fire")
	}
}

func TestRun_MockCamera(t *testing.T) {
	frames := capture.BlankFrames(12, 320, 240)
	defer capture.CloseFrames(frames)

	s, err := store.New(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	palm := detector.OpenPalmLandmarks()
	det := detector.NewMockDetector()
	det.SetHand(&palm)

	var sink frameCounter
	a, rec := newTestApp(t, func(c *Config) {
		c.Camera = capture.NewMockCamera(frames, false)
		c.Detector = det
		c.Journal = s
		c.ModelPath = "stub"
		c.Dispatch = "recorder"
		c.Frames = &sink
	})

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if det.Calls() != 12 {
		t.Errorf("detector called %d times, want 12", det.Calls())
	}
	if sink.n != 12 {
		t.Errorf("frame sink received %d frames, want 12", sink.n)
	}
	// The session start consumes one tick, so frames 6 and 11 land at
	// 200ms and 366ms: 166ms apart, both past the interval.
	if got := rec.Amounts(); len(got) != 2 {
		t.Errorf("scrolled %v, want two actions", got)
	}

	sess, err := s.Sessions().Get(a.SessionID())
	if err != nil {
		t.Fatalf("session not journaled: %v", err)
	}
	if sess.Frames != 12 || sess.EndedAt == nil || sess.Dispatch != "recorder" {
		t.Errorf("session = %+v", sess)
	}
	n, _ := s.Events().CountBySession(sess.ID)
	if n != 2 {
		t.Errorf("journaled %d events, want 2", n)
	}
}

type frameCounter struct{ n int }

func (f *frameCounter) SetFrame(*gocv.Mat) { f.n++ }

func TestRun_Paused(t *testing.T) {
	frames := capture.BlankFrames(4, 64, 48)
	defer capture.CloseFrames(frames)

	det := detector.NewMockDetector()
	a, _ := newTestApp(t, func(c *Config) {
		c.Camera = capture.NewMockCamera(frames, false)
		c.Detector = det
	})
	a.SetEnabled(false)

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if det.Calls() != 0 {
		t.Errorf("detector called %d times while paused", det.Calls())
	}
	if a.Frames() != 0 {
		t.Errorf("observed %d frames while paused", a.Frames())
	}
}

func TestRun_FatalErrors(t *testing.T) {
	frames := capture.BlankFrames(3, 64, 48)
	defer capture.CloseFrames(frames)

	t.Run("detector failure", func(t *testing.T) {
		det := detector.NewMockDetector()
		det.SetError(errors.New("service crashed"))
		a, _ := newTestApp(t, func(c *Config) {
			c.Camera = capture.NewMockCamera(frames, false)
			c.Detector = det
		})

		if err := a.Run(context.Background()); !errors.Is(err, ErrDetect) {
			t.Errorf("Run() error = %v, want ErrDetect", err)
		}
	})

	t.Run("malformed landmarks", func(t *testing.T) {
		det := detector.NewMockDetector()
		det.SetError(detector.ErrMalformedLandmarks)
		a, _ := newTestApp(t, func(c *Config) {
			c.Camera = capture.NewMockCamera(frames, false)
			c.Detector = det
		})

		err := a.Run(context.Background())
		if !errors.Is(err, detector.ErrMalformedLandmarks) {
			t.Errorf("Run() error = %v, want ErrMalformedLandmarks", err)
		}
	})

	t.Run("camera failure", func(t *testing.T) {
		a, _ := newTestApp(t, func(c *Config) { c.Camera = &brokenCamera{} })

		if err := a.Run(context.Background()); !errors.Is(err, ErrCameraRead) {
			t.Errorf("Run() error = %v, want ErrCameraRead", err)
		}
	})
}

func TestRun_ViewerQuit(t *testing.T) {
	frames := capture.BlankFrames(1, 64, 48)
	defer capture.CloseFrames(frames)

	viewer := &quitViewer{}
	a, _ := newTestApp(t, func(c *Config) {
		c.Camera = capture.NewMockCamera(frames, true)
		c.Viewer = viewer
	})

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if viewer.shown != 1 {
		t.Errorf("viewer shown %d frames, want 1", viewer.shown)
	}
}

func TestRun_Cancelled(t *testing.T) {
	frames := capture.BlankFrames(1, 64, 48)
	defer capture.CloseFrames(frames)

	det := detector.NewMockDetector()
	a, _ := newTestApp(t, func(c *Config) {
		c.Camera = capture.NewMockCamera(frames, true)
		c.Detector = det
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := a.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if det.Calls() != 0 {
		t.Error("a cancelled loop must not start a cycle")
	}
}
