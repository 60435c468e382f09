// Package common holds helpers shared by the master and sensor services.
//
// It provides the gRPC client owning the sensor link connection, detection
// of the host and user a node runs as, and a guard against a second process
// claiming the same node hardware.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
