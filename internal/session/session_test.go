package session

import (
	"context"
	"math/rand/v2"
	"strings"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-panel/internal/display"
	"github.com/oshokin/alarm-panel/internal/domain/alarm"
	"github.com/oshokin/alarm-panel/internal/keypad"
	"github.com/oshokin/alarm-panel/internal/timeout"
)

// chanKeypad hands out keys sent by the test, blocking like a real keypad.
type chanKeypad struct {
	keys chan alarm.Key
}

func (k *chanKeypad) GetKey(ctx context.Context) (alarm.Key, error) {
	select {
	case <-ctx.Done():
		return alarm.KeyNone, ctx.Err()
	case key := <-k.keys:
		return key, nil
	}
}

func (k *chanKeypad) press(codes string) {
	for i := range len(codes) {
		k.keys <- keypad.Decode(codes[i])
	}
}

func newScripted(codes string) (*Session, *display.Recorder, *timeout.Timer) {
	rec := new(display.Recorder)
	timer := timeout.New(time.Hour)

	return New(keypad.NewScript(codes).CloseWhenDone(), rec, timer), rec, timer
}

// TestBuffer_OverflowResets checks the buffer never reaches its capacity.
func TestBuffer_OverflowResets(t *testing.T) {
	t.Parallel()

	var b Buffer

	for i := range Capacity - 1 {
		require.False(t, b.Append('0'+byte(i)))
		require.Equal(t, i+1, b.Len())
	}

	require.Equal(t, []byte("0123456"), b.Bytes())

	require.True(t, b.Append('7'))
	require.Zero(t, b.Len())
	require.Empty(t, b.Bytes())

	require.False(t, b.Backspace())
	require.False(t, b.Append('9'))
	require.True(t, b.Backspace())
	require.Zero(t, b.Len())
}

// TestVerify_Table covers the submit policy on typical inputs.
func TestVerify_Table(t *testing.T) {
	t.Parallel()

	expected := alarm.MustParsePassword("1234")

	cases := []struct {
		name  string
		codes string
		want  Result
	}{
		{"exact", "1234D", Accepted},
		{"wrong", "0000D", Rejected},
		{"too short", "123D", Rejected},
		{"empty", "D", Rejected},
		{"too long with matching prefix", "12345D", Rejected},
		{"seven digits", "1234123D", Rejected},
		{"backspace fixes typo", "1235C4D", Accepted},
		{"backspace on empty", "CC1234D", Accepted},
		{"control keys ignored", "1*2#3A4BD", Accepted},
		{"overflow restarts entry", "12345678" + "1234D", Accepted},
		{"overflow then wrong", "99999999" + "4321D", Rejected},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s, _, timer := newScripted(tc.codes)

			got, err := s.Verify(context.Background(), expected)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
			require.False(t, timer.Armed(), "verification must disarm the timer")
		})
	}
}

// TestVerify_Property accepts exactly the inputs equal to the password.
func TestVerify_Property(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(1, 2))

	for range 300 {
		expected := randomDigits(rng, alarm.PasswordLength)
		p := alarm.MustParsePassword(expected)

		input := randomDigits(rng, rng.IntN(Capacity))
		if rng.IntN(3) == 0 {
			// Bias towards inputs sharing the password prefix.
			input = expected + randomDigits(rng, rng.IntN(Capacity-alarm.PasswordLength))
		}

		s, _, _ := newScripted(input + "D")

		got, err := s.Verify(context.Background(), p)
		require.NoError(t, err)

		want := Rejected
		if len(input) <= alarm.PasswordLength && strings.HasPrefix(input, expected) {
			want = Accepted
		}

		require.Equal(t, want, got, "password %s input %q", expected, input)
	}
}

// TestVerify_Messages shows the verdict on the display.
func TestVerify_Messages(t *testing.T) {
	t.Parallel()

	s, rec, _ := newScripted("1234D")

	_, err := s.Verify(context.Background(), alarm.DefaultPassword)
	require.NoError(t, err)
	require.True(t, rec.Contains("Enter Password:"))
	require.True(t, rec.Contains("** CORRECT **"))

	s, rec, _ = newScripted("9D")

	_, err = s.Verify(context.Background(), alarm.DefaultPassword)
	require.NoError(t, err)
	require.True(t, rec.Contains("* INCORRECT *"))
}

// TestVerify_MaskedEcho never shows the typed digits when masking is on.
func TestVerify_MaskedEcho(t *testing.T) {
	t.Parallel()

	rec := new(display.Recorder)
	s := New(keypad.NewScript("1234D").CloseWhenDone(), rec, timeout.New(time.Hour), WithMaskedInput(true))

	_, err := s.Verify(context.Background(), alarm.DefaultPassword)
	require.NoError(t, err)

	for _, l := range rec.Lines() {
		require.NotContains(t, []string{"1", "2", "3", "4"}, l)
	}

	require.True(t, rec.Contains(maskChar))
}

// TestVerify_KeypadClosed surfaces keypad failures and disarms the timer.
func TestVerify_KeypadClosed(t *testing.T) {
	t.Parallel()

	s, _, timer := newScripted("12")

	_, err := s.Verify(context.Background(), alarm.DefaultPassword)
	require.ErrorIs(t, err, keypad.ErrClosed)
	require.False(t, timer.Armed())
}

// TestVerify_TimeoutRestartsEntry clears the digits typed before the inactivity window ran out.
func TestVerify_TimeoutRestartsEntry(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		kp := &chanKeypad{keys: make(chan alarm.Key)}
		rec := new(display.Recorder)
		timer := timeout.New(time.Second)
		s := New(kp, rec, timer)

		type outcome struct {
			result Result
			err    error
		}

		done := make(chan outcome, 1)

		go func() {
			result, err := s.Verify(context.Background(), alarm.DefaultPassword)
			done <- outcome{result, err}
		}()

		kp.press("12")

		time.Sleep(3 * time.Second)
		synctest.Wait()
		require.True(t, timer.Expired())

		// The first key only acknowledges the restart. Without the reset the
		// buffer would read "121234" and be rejected.
		kp.press("9")
		kp.press("1234D")

		got := <-done
		require.NoError(t, got.err)
		require.Equal(t, Accepted, got.result)
		require.True(t, rec.Contains("Timeout occurred"))
		require.False(t, timer.Expired(), "the flag is consumed by the session")
		require.False(t, timer.Armed())
	})
}

// TestVerify_SubmitAfterTimeoutIsNotEvaluated keeps a late Submit from rejecting a correct code.
func TestVerify_SubmitAfterTimeoutIsNotEvaluated(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		kp := &chanKeypad{keys: make(chan alarm.Key)}
		rec := new(display.Recorder)
		s := New(kp, rec, timeout.New(time.Second))

		done := make(chan Result, 1)

		go func() {
			result, _ := s.Verify(context.Background(), alarm.DefaultPassword) //nolint:errcheck // Result is enough here.
			done <- result
		}()

		kp.press("1234")

		time.Sleep(3 * time.Second)
		synctest.Wait()

		// The late Submit re-prompts instead of being judged on an empty buffer.
		kp.press("D")
		synctest.Wait()
		require.Empty(t, done)
		require.True(t, rec.Contains("Timeout occurred"))
		require.False(t, rec.Contains("* INCORRECT *"))

		kp.press("1234D")
		require.Equal(t, Accepted, <-done)
	})
}

// TestVerify_StaleFlagIgnored starts a session clean even if the previous one left the flag set.
func TestVerify_StaleFlagIgnored(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		timer := timeout.New(time.Second)
		timer.Arm()

		time.Sleep(2 * time.Second)
		synctest.Wait()
		require.True(t, timer.Expired())

		rec := new(display.Recorder)
		s := New(keypad.NewScript("1234D").CloseWhenDone(), rec, timer)

		got, err := s.Verify(context.Background(), alarm.DefaultPassword)
		require.NoError(t, err)
		require.Equal(t, Accepted, got)
		require.False(t, rec.Contains("Timeout occurred"))
	})
}

// TestVerify_ActiveTypingNeverTimesOut re-arms the window on every key.
func TestVerify_ActiveTypingNeverTimesOut(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		kp := &chanKeypad{keys: make(chan alarm.Key)}
		s := New(kp, new(display.Recorder), timeout.New(time.Second))

		done := make(chan Result, 1)

		go func() {
			result, _ := s.Verify(context.Background(), alarm.DefaultPassword) //nolint:errcheck // Result is enough here.
			done <- result
		}()

		for _, code := range "1234D" {
			time.Sleep(700 * time.Millisecond)
			kp.press(string(code))
		}

		require.Equal(t, Accepted, <-done)
	})
}

// TestSetNew_RetriesUntilFourDigits feeds a short and a long password before a valid one.
func TestSetNew_RetriesUntilFourDigits(t *testing.T) {
	t.Parallel()

	s, rec, timer := newScripted("12D" + "123456D" + "9876D")

	got, err := s.SetNew(context.Background())
	require.NoError(t, err)
	require.Equal(t, alarm.MustParsePassword("9876"), got)
	require.True(t, rec.Contains("Too  Short"))
	require.True(t, rec.Contains("Too Long"))
	require.True(t, rec.Contains("New Password:"))
	require.False(t, timer.Armed(), "set-new entry is not timed")
}

// TestSetNew_NeverReturnsWrongLength only returns four-digit passwords.
func TestSetNew_NeverReturnsWrongLength(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(3, 4))

	for range 100 {
		var codes strings.Builder

		for range rng.IntN(5) {
			n := rng.IntN(Capacity)
			if n == alarm.PasswordLength {
				n++
			}

			codes.WriteString(randomDigits(rng, n) + "D")
		}

		final := randomDigits(rng, alarm.PasswordLength)
		codes.WriteString(final + "D")

		s, _, _ := newScripted(codes.String())

		got, err := s.SetNew(context.Background())
		require.NoError(t, err)
		require.Equal(t, final, got.String())
	}
}

// TestSetNew_OverflowRestarts discards eight digits typed without submitting.
func TestSetNew_OverflowRestarts(t *testing.T) {
	t.Parallel()

	s, rec, _ := newScripted("12345678" + "4321D")

	got, err := s.SetNew(context.Background())
	require.NoError(t, err)
	require.Equal(t, "4321", got.String())
	require.True(t, rec.Contains("Too many digits"))
}

// TestSetNew_Canceled stops waiting when the context ends.
func TestSetNew_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(keypad.NewScript(""), new(display.Recorder), timeout.New(time.Hour))

	_, err := s.SetNew(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func randomDigits(rng *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('0' + rng.IntN(10))
	}

	return string(b)
}
