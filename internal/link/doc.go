// Package link implements the Sensor Link: a fixed-size, lock-step
// request/response exchange between the master and the sensor node.
//
// The master opens a round, clocks FrameSize bytes out and receives the same
// number back, one byte per clock. The received bytes form a NUL-padded ASCII
// frame which a Vocabulary turns into a sensor reading. Short or garbled
// frames read as Idle.
package link
