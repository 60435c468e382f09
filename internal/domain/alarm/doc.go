// Package alarm contains core domain types for the alarm panel.
//
// It defines the shared password, decoded keypad keys, sensor readings and
// the four system states of the master node, plus a Snapshot with a Clone
// helper to avoid leaking internal references.
package alarm
