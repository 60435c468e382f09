// Package session implements password entry on the master keypad.
//
// A Session collects digits with backspace and submit semantics and runs in
// one of two modes: Verify compares the input against the current password
// under an inactivity timeout, SetNew keeps asking until exactly four digits
// are submitted.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/oshokin/alarm-panel/internal/display"
	"github.com/oshokin/alarm-panel/internal/domain/alarm"
	"github.com/oshokin/alarm-panel/internal/keypad"
	"github.com/oshokin/alarm-panel/internal/logger"
	"github.com/oshokin/alarm-panel/internal/timeout"
)

// Result is the outcome of a Verify session.
type Result int

// Verify outcomes.
const (
	Rejected Result = iota
	Accepted
)

// String returns the outcome name.
func (r Result) String() string {
	if r == Accepted {
		return "accepted"
	}

	return "rejected"
}

// Display prompts.
const (
	promptVerify = "Enter Password:"
	promptNew    = "New Password:"
)

// maskChar replaces echoed digits when masking is enabled.
const maskChar = "*"

// Session drives keypad input for the verify and set-new flows.
type Session struct {
	// keypad is the blocking key source.
	keypad keypad.Keypad
	// display shows prompts and echoes input.
	display display.Display
	// timer bounds inactivity in Verify mode.
	timer *timeout.Timer
	// maskInput echoes '*' instead of digits.
	maskInput bool
	// messageDelay is how long result messages stay on screen.
	messageDelay time.Duration
}

// Option configures a Session.
type Option func(*Session)

// WithMaskedInput echoes '*' instead of the typed digit.
func WithMaskedInput(mask bool) Option {
	return func(s *Session) {
		s.maskInput = mask
	}
}

// WithMessageDelay sets how long result messages stay visible.
func WithMessageDelay(d time.Duration) Option {
	return func(s *Session) {
		if d >= 0 {
			s.messageDelay = d
		}
	}
}

// New creates a session runner. The timer is only used by Verify.
func New(kp keypad.Keypad, d display.Display, timer *timeout.Timer, opts ...Option) *Session {
	s := &Session{
		keypad:  kp,
		display: d,
		timer:   timer,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Verify asks for the current password. Input of five or more characters is
// rejected regardless of content; otherwise the first four characters must
// equal expected. Errors are returned only when the keypad fails or ctx ends.
func (s *Session) Verify(ctx context.Context, expected alarm.Password) (Result, error) {
	input, err := s.collect(ctx, promptVerify, true)
	if err != nil {
		return Rejected, err
	}

	result := Rejected

	switch {
	case len(input) > alarm.PasswordLength:
		logger.InfoKV(ctx, "Password rejected", "reason", "too_long", "length", len(input))
	case expected.Matches(input):
		result = Accepted

		logger.Info(ctx, "Password accepted")
	default:
		logger.InfoKV(ctx, "Password rejected", "reason", "mismatch", "length", len(input))
	}

	verdict := line{1, 1, "* INCORRECT *"}
	if result == Accepted {
		verdict = line{1, 1, "** CORRECT **"}
	}

	s.show(line{0, 1, "Given Password"}, verdict)

	if err = s.pause(ctx); err != nil {
		return result, err
	}

	return result, nil
}

// SetNew asks for a new password until exactly four digits are submitted.
// Shorter or longer submissions show a message and restart entry.
func (s *Session) SetNew(ctx context.Context) (alarm.Password, error) {
	for attempt := 1; ; attempt++ {
		input, err := s.collect(ctx, promptNew, false)
		if err != nil {
			return alarm.Password{}, err
		}

		switch {
		case len(input) == alarm.PasswordLength:
			password, parseErr := alarm.ParsePassword(string(input))
			if parseErr != nil {
				return alarm.Password{}, fmt.Errorf("accept new password: %w", parseErr)
			}

			logger.InfoKV(ctx, "New password accepted", "attempts", attempt)

			return password, nil
		case len(input) < alarm.PasswordLength:
			logger.InfoKV(ctx, "New password too short, retrying", "length", len(input))
			s.show(line{0, 1, "** Password **"}, line{1, 3, "Too  Short"})
		default:
			logger.InfoKV(ctx, "New password too long, retrying", "length", len(input))
			s.show(line{0, 1, "** Password **"}, line{1, 4, "Too Long"})
		}

		if err = s.pause(ctx); err != nil {
			return alarm.Password{}, err
		}
	}
}

// collect runs one entry until Submit and returns the submitted characters.
// In timed mode the inactivity timer is re-armed before every key wait and
// disarmed when the entry ends.
func (s *Session) collect(ctx context.Context, prompt string, timed bool) ([]byte, error) {
	var buf Buffer

	if timed {
		// A flag left over from the previous entry must not leak into this one.
		s.timer.Consume()

		defer s.timer.Disarm()
	}

	s.prompt(prompt)

	for {
		if timed {
			s.timer.Arm()
		}

		key, err := s.keypad.GetKey(ctx)
		if err != nil {
			return nil, fmt.Errorf("get key: %w", err)
		}

		// The flag is only observed here, between keystrokes. The key that
		// reveals the timeout acknowledges the restart and is not applied.
		if timed && s.timer.Consume() {
			logger.InfoKV(ctx, "Entry timed out, restarting", "discarded_key", key.String())
			buf.Reset()
			s.show(line{0, 0, "Timeout occurred"})

			if err = s.pause(ctx); err != nil {
				return nil, err
			}

			s.prompt(prompt)

			continue
		}

		switch {
		case key.IsDigit():
			if buf.Append(key.Char()) {
				logger.Info(ctx, "Entry overflow, restarting")
				s.show(line{0, 0, "Too many digits"}, line{1, 0, "Start again"})

				if err = s.pause(ctx); err != nil {
					return nil, err
				}

				s.prompt(prompt)

				continue
			}

			s.echo(buf.Len()-1, key.Char())
		case key == alarm.KeyBackspace:
			if buf.Backspace() {
				s.display.WriteAt(1, buf.Len(), " ")
			}
		case key == alarm.KeySubmit:
			return buf.Bytes(), nil
		default:
			// Other keys have no meaning during entry.
		}
	}
}

func (s *Session) prompt(text string) {
	s.display.Clear()
	s.display.WriteAt(0, 0, text)
}

func (s *Session) echo(col int, c byte) {
	text := string(c)
	if s.maskInput {
		text = maskChar
	}

	s.display.WriteAt(1, col, text)
}

// line is text placed at a display position.
type line struct {
	row, col int
	text     string
}

func (s *Session) show(lines ...line) {
	s.display.Clear()

	for _, l := range lines {
		s.display.WriteAt(l.row, l.col, l.text)
	}
}

// pause keeps a message on screen for messageDelay or until ctx ends.
func (s *Session) pause(ctx context.Context) error {
	if s.messageDelay <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(s.messageDelay)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
