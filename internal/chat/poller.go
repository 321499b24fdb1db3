package chat

import (
	"context"

	"github.com/rs/zerolog/log"
)

type LineReader interface {
	TryReadLine() ([]byte, bool, error)
}

type State int

const (
	Listening State = iota
	Stopped
	Failed
)

func (s State) String() string {
	switch s {
	case Listening:
		return "listening"
	case Stopped:
		return "stopped"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Status reports a state change of the poller. Err is set if State is Failed.
type Status struct {
	State State
	Err   error
}

// Poller drains a LineReader in the background and hands every line to the bridge.
type Poller struct {
	bridge *Bridge
	r      LineReader
	status chan Status
}

func NewPoller(b *Bridge, r LineReader) *Poller {
	return &Poller{
		bridge: b,
		r:      r,
		// Listening plus one final state, Run never blocks on the channel.
		status: make(chan Status, 2),
	}
}

// Status delivers the state changes of Run. It is closed when Run returns.
func (p *Poller) Status() <-chan Status {
	return p.status
}

// Run polls until ctx is cancelled or the first read error occurs.
// Run must be called only once.
func (p *Poller) Run(ctx context.Context) error {
	defer close(p.status)

	p.status <- Status{State: Listening}
	log.Info().Msg("serial poller started")

	for {
		if ctx.Err() != nil {
			p.status <- Status{State: Stopped}
			log.Info().Msg("serial poller stopped")
			return nil
		}

		line, ok, err := p.r.TryReadLine()
		if err != nil {
			// closing the port on shutdown makes the pending read fail
			if ctx.Err() != nil {
				p.status <- Status{State: Stopped}
				log.Info().Msg("serial poller stopped")
				return nil
			}
			p.status <- Status{State: Failed, Err: err}
			log.Error().Err(err).Msg("serial poller failed")
			return err
		}
		if !ok {
			continue
		}

		p.bridge.Receive(line)
	}
}
