// Package sensor runs the sensor node: it samples the motion input and
// answers Sensor Link rounds from the master over gRPC.
package sensor
