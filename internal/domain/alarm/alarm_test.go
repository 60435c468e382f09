package alarm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestParsePassword checks that only four-digit strings are accepted.
func TestParsePassword(t *testing.T) {
	t.Parallel()

	p, err := ParsePassword("9876")
	require.NoError(t, err)
	require.Equal(t, "9876", p.String())

	for _, bad := range []string{"", "123", "12345", "12a4", "    "} {
		_, err = ParsePassword(bad)
		require.ErrorIs(t, err, ErrInvalidPassword, bad)
	}

	require.Equal(t, "1234", DefaultPassword.String())
}

// TestPasswordMatches compares the first four characters and rejects short input.
func TestPasswordMatches(t *testing.T) {
	t.Parallel()

	p := MustParsePassword("1234")

	require.True(t, p.Matches([]byte("1234")))
	require.True(t, p.Matches([]byte("12345")))
	require.False(t, p.Matches([]byte("123")))
	require.False(t, p.Matches([]byte("0000")))
	require.False(t, p.Matches(nil))
}

// TestKey covers digit detection and naming.
func TestKey(t *testing.T) {
	t.Parallel()

	for d := range 10 {
		k := DigitKey(d)
		require.True(t, k.IsDigit())
		require.Equal(t, byte('0'+d), k.Char())
	}

	for _, k := range []Key{KeyNone, KeyArm, KeyMenu, KeyChange, KeyCancel, KeyBackspace, KeySubmit} {
		require.False(t, k.IsDigit(), k.String())
		require.Zero(t, k.Char())
	}

	require.Equal(t, "submit", KeySubmit.String())
	require.Equal(t, "7", DigitKey(7).String())
}

// TestStateNames keeps the names stable because they leak into metrics and events.
func TestStateNames(t *testing.T) {
	t.Parallel()

	require.Equal(t, "disarmed", Disarmed.String())
	require.Equal(t, "armed", Armed.String())
	require.Equal(t, "change_password", ChangePassword.String())
	require.Equal(t, "alarm_triggered", AlarmTriggered.String())
	require.Equal(t, "movement_detected", MovementDetected.String())
	require.Equal(t, "idle", Idle.String())
}

// TestSnapshotClone verifies Clone copies fields and handles nil safely.
func TestSnapshotClone(t *testing.T) {
	t.Parallel()

	require.Nil(t, (*Snapshot)(nil).Clone())

	s := &Snapshot{
		Timestamp: time.Now().UTC(),
		State:     AlarmTriggered,
		Previous:  Armed,
		SounderOn: true,
	}

	c := s.Clone()
	require.Equal(t, s, c)
	require.NotSame(t, s, c)
}
