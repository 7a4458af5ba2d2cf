// Package scroll dispatches fired actions to the operating system.
package scroll

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-vgo/robotgo"

	"github.com/ayusman/palmscroll/internal/logger"
	"github.com/ayusman/palmscroll/internal/plugin"
)

// ErrRefused is returned when a dispatcher declines an action.
var ErrRefused = errors.New("scroll refused")

// Scroller performs one signed scroll. Positive amounts scroll up. Amounts
// are in plugin.WheelDelta units, 120 to a notch, whichever dispatcher runs.
type Scroller interface {
	Scroll(ctx context.Context, amount int) error
}

// Func adapts a function to Scroller.
type Func func(ctx context.Context, amount int) error

// Scroll calls f.
func (f Func) Scroll(ctx context.Context, amount int) error {
	return f(ctx, amount)
}

// RobotScroller moves the vertical mouse wheel through robotgo.
type RobotScroller struct{}

// NewRobotScroller returns a RobotScroller.
func NewRobotScroller() *RobotScroller {
	return &RobotScroller{}
}

// Scroll turns amount into whole wheel notches, the unit robotgo counts in,
// and sends them as one vertical wheel movement.
func (RobotScroller) Scroll(_ context.Context, amount int) error {
	if n := plugin.Notches(amount); n != 0 {
		robotgo.Scroll(0, n)
	}
	return nil
}

// PluginScroller hands every action to an external plugin.
type PluginScroller struct {
	plugin   *plugin.Plugin
	executor *plugin.Executor
}

// NewPluginScroller looks up name in manager and checks that it can scroll.
func NewPluginScroller(manager *plugin.Manager, executor *plugin.Executor, name string) (*PluginScroller, error) {
	p, err := manager.Resolve(name, plugin.ActionScroll)
	if err != nil {
		return nil, err
	}
	return &PluginScroller{plugin: p, executor: executor}, nil
}

// Scroll runs the plugin once.
func (s *PluginScroller) Scroll(ctx context.Context, amount int) error {
	resp, err := s.executor.Execute(ctx, s.plugin, &plugin.Request{
		Action: plugin.ActionScroll,
		Amount: amount,
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("%w: %s: %s", ErrRefused, s.plugin.Manifest.Name, resp.Error)
	}
	return nil
}

// LogScroller only logs. It is the dry-run dispatcher.
type LogScroller struct{}

// Scroll logs amount.
func (LogScroller) Scroll(ctx context.Context, amount int) error {
	logger.InfoKV(ctx, "dry-run scroll", "amount", amount)
	return nil
}

// Recorder keeps every amount it is asked to scroll.
type Recorder struct {
	mu      sync.Mutex
	amounts []int
	err     error
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// SetError makes every later Scroll call fail with err after recording.
func (r *Recorder) SetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Scroll records amount.
func (r *Recorder) Scroll(_ context.Context, amount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.amounts = append(r.amounts, amount)
	return r.err
}

// Amounts returns a copy of the recorded amounts.
func (r *Recorder) Amounts() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.amounts...)
}
