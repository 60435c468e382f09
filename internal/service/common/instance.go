//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"errors"
	"fmt"
	"os"

	"github.com/mitchellh/go-ps"
)

// ErrAlreadyRunning is returned when another process owns the node hardware.
var ErrAlreadyRunning = errors.New("another instance is already running")

// EnsureSingleInstance fails if another process with the given executable
// name is running. The keypad, display and sounder cannot be shared.
func EnsureSingleInstance(executable string) error {
	pids, err := findProcesses(executable)
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	if len(pids) > 0 {
		return fmt.Errorf("%w: %s (pid %d)", ErrAlreadyRunning, executable, pids[0])
	}

	return nil
}

// findProcesses returns the PIDs of processes with the given executable
// name, excluding the current one.
func findProcesses(executable string) ([]int, error) {
	processList, err := ps.Processes()
	if err != nil {
		return nil, err
	}

	thisProcessID := os.Getpid()

	var pids []int

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if process.Executable() != executable {
			continue
		}

		pids = append(pids, process.Pid())
	}

	return pids, nil
}
