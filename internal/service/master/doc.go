// Package master runs the master node: keypad, display, sounder and the
// state machine polling the sensor node while armed.
package master
