//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"os"
	"os/user"
	"strings"
)

// Actor identifies the machine and account a node runs as.
type Actor struct {
	// Hostname is the machine name.
	Hostname string
	// Username is the account running the process.
	Username string
}

// DetectActor gathers host and user information for logs and broker client IDs.
func DetectActor() (*Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}

	return &Actor{
		Hostname: hostname,
		Username: currentUser.Username,
	}, nil
}

// ClientID derives a stable MQTT client identifier for a role on this machine.
func (a *Actor) ClientID(role string) string {
	host := strings.ToLower(strings.ReplaceAll(a.Hostname, ".", "-"))

	return "alarm-panel-" + role + "-" + host
}
