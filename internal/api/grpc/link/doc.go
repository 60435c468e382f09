// Package link implements the gRPC transport for the Sensor Link.
//
// Every round is one bidirectional Clock stream: opening the stream selects
// the sensor node, each message carries exactly one clocked byte and closing
// the send side deselects it. The service descriptor is written by hand
// because the payload is a well-known BytesValue.
package link
