// Package debounce turns a noisy per-frame pose classification into
// rate-limited scroll actions.
//
// A pose must be classified identically for StableFrames consecutive frames
// before it becomes eligible, and once eligible it fires at most once per
// Interval while it is held. The two gates are evaluated independently on
// every frame.
package debounce

import (
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/palmscroll/internal/classifier"
)

// Default controller parameters.
const (
	DefaultStableFrames = 6
	DefaultInterval     = 150 * time.Millisecond
	DefaultMagnitude    = 160
)

// Status is the display label for the current stable class.
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusFist   Status = "FIST"
	StatusOther  Status = "OTHER"
	StatusNoHand Status = "NO_HAND"
)

var (
	errStableFrames = errors.New("stable frames must be at least 1")
	errInterval     = errors.New("action interval must not be negative")
	errMagnitude    = errors.New("action magnitude must be positive")
	errClasses      = errors.New("open and fist classes must be distinct non-negative indices")
)

// Config holds the controller parameters. They are fixed for the lifetime
// of a Controller.
type Config struct {
	// StableFrames is the run length a class needs before it may fire.
	StableFrames int
	// Interval is the minimum time between two fired actions.
	Interval time.Duration
	// Magnitude is the scroll amount per action. OPEN scrolls +Magnitude,
	// FIST scrolls -Magnitude.
	Magnitude int
	// OpenClass is the classifier index of the open palm pose.
	OpenClass classifier.Class
	// FistClass is the classifier index of the closed fist pose.
	FistClass classifier.Class
}

// DefaultConfig returns the stock parameters.
func DefaultConfig() Config {
	return Config{
		StableFrames: DefaultStableFrames,
		Interval:     DefaultInterval,
		Magnitude:    DefaultMagnitude,
		OpenClass:    0,
		FistClass:    1,
	}
}

// Validate checks the parameters.
func (c Config) Validate() error {
	switch {
	case c.StableFrames < 1:
		return errStableFrames
	case c.Interval < 0:
		return errInterval
	case c.Magnitude <= 0:
		return errMagnitude
	case c.OpenClass < 0 || c.FistClass < 0 || c.OpenClass == c.FistClass:
		return errClasses
	}
	return nil
}

// Result describes the outcome of one frame.
type Result struct {
	Status    Status
	Class     classifier.Class
	RunLength int
	// Delta is the signed scroll amount to dispatch. Zero unless Fired.
	Delta int
	Fired bool
}

func (r Result) String() string {
	return fmt.Sprintf("%s stable=%d", r.Status, r.RunLength)
}

// Controller tracks the stable class run and the last action time.
// It is not safe for concurrent use; one frame loop owns it.
type Controller struct {
	config Config

	stable    classifier.Class
	runLength int
	lastFired time.Time
	hasFired  bool
}

// New creates a Controller with an empty run.
func New(config Config) (*Controller, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("debounce config: %w", err)
	}
	return &Controller{
		config: config,
		stable: classifier.NoHand,
	}, nil
}

// Config returns the controller parameters.
func (c *Controller) Config() Config {
	return c.config
}

// Step records one frame's observation, classifier.NoHand when no hand was
// detected, and reports whether an action fires at now.
func (c *Controller) Step(observed classifier.Class, now time.Time) Result {
	if observed == c.stable && c.runLength > 0 {
		c.runLength++
	} else {
		c.stable = observed
		c.runLength = 1
	}

	res := Result{
		Status:    c.status(c.stable),
		Class:     c.stable,
		RunLength: c.runLength,
	}

	direction := c.direction(c.stable)
	if direction == 0 || c.runLength < c.config.StableFrames {
		return res
	}
	if c.hasFired && now.Sub(c.lastFired) < c.config.Interval {
		return res
	}

	c.lastFired = now
	c.hasFired = true
	res.Delta = direction * c.config.Magnitude
	res.Fired = true

	return res
}

func (c *Controller) direction(class classifier.Class) int {
	switch class {
	case c.config.OpenClass:
		return 1
	case c.config.FistClass:
		return -1
	default:
		return 0
	}
}

func (c *Controller) status(class classifier.Class) Status {
	switch {
	case class == classifier.NoHand:
		return StatusNoHand
	case class == c.config.OpenClass:
		return StatusOpen
	case class == c.config.FistClass:
		return StatusFist
	default:
		return StatusOther
	}
}
