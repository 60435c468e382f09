package link

import (
	"context"
	"errors"
)

// ErrRoundClosed is returned by a slave-side transport when the master ended the round.
var ErrRoundClosed = errors.New("round closed")

// Bus is the master side of the point-to-point link.
// Begin selects the slave; the returned Round is clocked byte by byte.
type Bus interface {
	Begin(ctx context.Context) (Round, error)
}

// Round is one open exchange. Shift clocks a byte out and returns the byte
// clocked in at the same time. End deselects the slave.
type Round interface {
	Shift(out byte) (in byte, err error)
	End() error
}

// Slave is the sensor side of the link. Select is called when the master
// opens a round and returns the state used to answer it.
type Slave interface {
	Select(ctx context.Context) SlaveRound
}

// SlaveRound answers the bytes clocked by the master, one for one.
type SlaveRound interface {
	Shift(in byte) (out byte)
	Deselect()
}

// Direct is a Bus wired straight to an in-process slave.
// Every Shift runs synchronously, so master and slave stay in lock step.
type Direct struct {
	Slave Slave
}

// Begin implements Bus.
func (d Direct) Begin(ctx context.Context) (Round, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &directRound{slave: d.Slave.Select(ctx)}, nil
}

type directRound struct {
	slave SlaveRound
	ended bool
}

func (r *directRound) Shift(out byte) (byte, error) {
	if r.ended {
		return 0, ErrRoundClosed
	}

	return r.slave.Shift(out), nil
}

func (r *directRound) End() error {
	if !r.ended {
		r.ended = true
		r.slave.Deselect()
	}

	return nil
}
