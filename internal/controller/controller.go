// Package controller implements the master node state machine.
//
// The controller owns the current password and the system state and drives
// the password session, the sensor link poller and the sounder. It runs on a
// single goroutine; Snapshot may be called concurrently by status readers.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oshokin/alarm-panel/internal/display"
	"github.com/oshokin/alarm-panel/internal/domain/alarm"
	"github.com/oshokin/alarm-panel/internal/keypad"
	"github.com/oshokin/alarm-panel/internal/logger"
	"github.com/oshokin/alarm-panel/internal/session"
	"github.com/oshokin/alarm-panel/internal/sounder"
)

// DefaultPollInterval is the cadence of sensor link rounds while armed.
const DefaultPollInterval = 500 * time.Millisecond

// Poller runs one sensor link round. On a failed round it returns Idle
// together with the error.
type Poller interface {
	Poll(ctx context.Context) (alarm.SensorReading, error)
}

// Observer is notified after every state transition. It must not block.
type Observer interface {
	StateChanged(ctx context.Context, snapshot *alarm.Snapshot)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, snapshot *alarm.Snapshot)

// StateChanged implements Observer.
func (f ObserverFunc) StateChanged(ctx context.Context, snapshot *alarm.Snapshot) {
	f(ctx, snapshot)
}

// Dependencies are the collaborators the controller orchestrates.
type Dependencies struct {
	// Keypad supplies menu and arming keys.
	Keypad keypad.Keypad
	// Display shows state screens.
	Display display.Display
	// Sounder is switched on in AlarmTriggered.
	Sounder *sounder.Sounder
	// Session runs password entry.
	Session *session.Session
	// Poller reads the sensor node while armed.
	Poller Poller
}

// errMissingDependency is returned when a collaborator is nil.
var errMissingDependency = errors.New("missing controller dependency")

// Controller is the master state machine.
type Controller struct {
	keypad  keypad.Keypad
	display display.Display
	sounder *sounder.Sounder
	session *session.Session
	poller  Poller

	// pollInterval is the pause between rounds while armed.
	pollInterval time.Duration
	// messageDelay is how long informational screens stay up.
	messageDelay time.Duration
	// observers receive transitions.
	observers []Observer

	// mu guards password and snapshot.
	mu sync.RWMutex
	// password is the current code; replaced only as a whole.
	password alarm.Password
	// snapshot holds the active state.
	snapshot alarm.Snapshot
}

// Option configures a Controller.
type Option func(*Controller)

// WithPollInterval sets the armed polling cadence.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithMessageDelay sets how long informational screens stay visible.
func WithMessageDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.messageDelay = d
		}
	}
}

// WithObservers registers transition observers.
func WithObservers(observers ...Observer) Option {
	return func(c *Controller) {
		c.observers = append(c.observers, observers...)
	}
}

// New creates a controller in Disarmed with the default password.
func New(deps Dependencies, opts ...Option) (*Controller, error) {
	switch {
	case deps.Keypad == nil:
		return nil, fmt.Errorf("%w: keypad", errMissingDependency)
	case deps.Display == nil:
		return nil, fmt.Errorf("%w: display", errMissingDependency)
	case deps.Sounder == nil:
		return nil, fmt.Errorf("%w: sounder", errMissingDependency)
	case deps.Session == nil:
		return nil, fmt.Errorf("%w: session", errMissingDependency)
	case deps.Poller == nil:
		return nil, fmt.Errorf("%w: poller", errMissingDependency)
	}

	c := &Controller{
		keypad:       deps.Keypad,
		display:      deps.Display,
		sounder:      deps.Sounder,
		session:      deps.Session,
		poller:       deps.Poller,
		pollInterval: DefaultPollInterval,
		password:     alarm.DefaultPassword,
		snapshot: alarm.Snapshot{
			Timestamp: time.Now(),
			State:     alarm.Disarmed,
			Previous:  alarm.Disarmed,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// State returns the active state.
func (c *Controller) State() alarm.SystemState {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.snapshot.State
}

// Snapshot returns a copy of the current status.
func (c *Controller) Snapshot() *alarm.Snapshot {
	c.mu.RLock()
	snapshot := c.snapshot.Clone()
	c.mu.RUnlock()

	snapshot.SounderOn = c.sounder.IsOn()

	return snapshot
}

// Run executes the state machine until ctx is canceled. Cancellation is a
// clean exit; any other error, such as a closed keypad, is returned.
func (c *Controller) Run(ctx context.Context) error {
	logger.InfoKV(ctx, "Controller started", "state", c.State().String(), "poll_interval", c.pollInterval.String())

	c.render(c.State())

	for {
		if err := c.Step(ctx); err != nil {
			if ctx.Err() != nil {
				logger.Info(ctx, "Controller stopped")

				return nil
			}

			return fmt.Errorf("step %s: %w", c.State(), err)
		}
	}
}

// Step runs the handler of the active state once. A handler either performs
// a transition or returns leaving the state unchanged.
func (c *Controller) Step(ctx context.Context) error {
	switch state := c.State(); state {
	case alarm.Disarmed:
		return c.stepDisarmed(ctx)
	case alarm.Armed:
		return c.stepArmed(ctx)
	case alarm.ChangePassword:
		return c.stepChangePassword(ctx)
	case alarm.AlarmTriggered:
		return c.stepAlarmTriggered(ctx)
	default:
		return fmt.Errorf("unknown state %d", state)
	}
}

// stepDisarmed waits for the arm or menu key.
func (c *Controller) stepDisarmed(ctx context.Context) error {
	key, err := c.keypad.GetKey(ctx)
	if err != nil {
		return fmt.Errorf("get key: %w", err)
	}

	switch key {
	case alarm.KeyArm:
		c.transition(ctx, alarm.Armed)
	case alarm.KeyMenu:
		c.transition(ctx, alarm.ChangePassword)
	default:
		logger.DebugKV(ctx, "Key ignored", "state", alarm.Disarmed.String(), "key", key.String())
	}

	return nil
}

// stepArmed runs one sensor link round and evaluates it immediately.
// Failed rounds are treated as no movement.
func (c *Controller) stepArmed(ctx context.Context) error {
	reading, err := c.poller.Poll(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		logger.WarnKV(ctx, "Sensor round failed, treating as idle", "error", err)

		reading = alarm.Idle
	}

	if reading == alarm.MovementDetected {
		logger.Warn(ctx, "Movement detected")
		c.transition(ctx, alarm.AlarmTriggered)

		return nil
	}

	return wait(ctx, c.pollInterval)
}

// stepChangePassword verifies the current password before offering a change.
// A failed verification in this menu is treated as an intrusion.
func (c *Controller) stepChangePassword(ctx context.Context) error {
	if err := wait(ctx, c.messageDelay); err != nil {
		return err
	}

	result, err := c.session.Verify(ctx, c.currentPassword())
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}

	if result == session.Rejected {
		c.transition(ctx, alarm.AlarmTriggered)

		return nil
	}

	c.show("A to change", "B to cancel")

	for {
		key, err := c.keypad.GetKey(ctx)
		if err != nil {
			return fmt.Errorf("get key: %w", err)
		}

		switch key {
		case alarm.KeyChange:
			password, err := c.session.SetNew(ctx)
			if err != nil {
				return fmt.Errorf("set new password: %w", err)
			}

			c.setPassword(ctx, password)
			c.show("Password change:", "** SUCCESSFUL **")

			if err = wait(ctx, c.messageDelay); err != nil {
				return err
			}

			c.transition(ctx, alarm.Disarmed)

			return nil
		case alarm.KeyCancel:
			c.transition(ctx, alarm.Disarmed)

			return nil
		default:
			// Only A or B act here; the password is not asked again.
			logger.DebugKV(ctx, "Key ignored", "state", alarm.ChangePassword.String(), "key", key.String())
		}
	}
}

// stepAlarmTriggered waits for the menu key and then asks for the password
// until it is entered correctly. The sounder keeps playing meanwhile; a tone
// that failed to start on entry is retried on every step.
func (c *Controller) stepAlarmTriggered(ctx context.Context) error {
	if err := c.sounder.On(ctx); err != nil {
		logger.ErrorKV(ctx, "Failed to start sounder", "error", err)
	}

	key, err := c.keypad.GetKey(ctx)
	if err != nil {
		return fmt.Errorf("get key: %w", err)
	}

	if key != alarm.KeyMenu {
		return nil
	}

	for attempt := 1; ; attempt++ {
		result, err := c.session.Verify(ctx, c.currentPassword())
		if err != nil {
			return fmt.Errorf("verify password: %w", err)
		}

		if result == session.Accepted {
			logger.InfoKV(ctx, "Alarm disarmed", "attempts", attempt)
			c.transition(ctx, alarm.Disarmed)

			return nil
		}
	}
}

// transition switches state, drives the sounder on entering or leaving
// AlarmTriggered, redraws the screen and notifies observers.
func (c *Controller) transition(ctx context.Context, next alarm.SystemState) {
	c.mu.Lock()
	previous := c.snapshot.State
	c.snapshot = alarm.Snapshot{
		Timestamp: time.Now(),
		State:     next,
		Previous:  previous,
	}
	c.mu.Unlock()

	switch {
	case next == alarm.AlarmTriggered:
		if err := c.sounder.On(ctx); err != nil {
			logger.ErrorKV(ctx, "Failed to start sounder", "error", err)
		}
	case previous == alarm.AlarmTriggered:
		if err := c.sounder.Off(ctx); err != nil {
			logger.ErrorKV(ctx, "Failed to stop sounder", "error", err)
		}
	}

	logger.InfoKV(ctx, "State changed", "from", previous.String(), "to", next.String())

	c.render(next)

	snapshot := c.Snapshot()
	for _, o := range c.observers {
		o.StateChanged(ctx, snapshot)
	}
}

// render draws the screen of a state.
func (c *Controller) render(state alarm.SystemState) {
	switch state {
	case alarm.Disarmed:
		c.showAt(1, "* ALARM OFF *", 1, "Press * to arm")
	case alarm.Armed:
		c.showAt(2, "* ALARM ON *", 0, "")
	case alarm.ChangePassword:
		c.show("Redirecting to", "Change Password")
	case alarm.AlarmTriggered:
		c.show("Alarm is active", "Press # - Disarm")
	}
}

func (c *Controller) show(top, bottom string) {
	c.showAt(0, top, 0, bottom)
}

func (c *Controller) showAt(topCol int, top string, bottomCol int, bottom string) {
	c.display.Clear()
	c.display.WriteAt(0, topCol, top)

	if bottom != "" {
		c.display.WriteAt(1, bottomCol, bottom)
	}
}

func (c *Controller) currentPassword() alarm.Password {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.password
}

func (c *Controller) setPassword(ctx context.Context, password alarm.Password) {
	c.mu.Lock()
	c.password = password
	c.mu.Unlock()

	logger.Info(ctx, "Password changed")
}

// wait sleeps for d or until ctx ends.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
