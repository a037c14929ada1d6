package orchestrator

import (
	"fmt"

	"github.com/yungbote/persona-backend/internal/platform/logger"
)

type State string

const (
	StateReceived         State = "received"
	StateMediaPrepared    State = "media_prepared"
	StateEvidenceGathered State = "evidence_gathered"
	StateSynthesized      State = "synthesized"
	StateValidated        State = "validated"
	StatePersisted        State = "persisted"
	StateFailed           State = "failed"
)

// Text and document runs skip media preparation. A run with no subjects is persisted
// straight from EvidenceGathered.
var transitions = map[State][]State{
	StateReceived:         {StateMediaPrepared, StateEvidenceGathered},
	StateMediaPrepared:    {StateEvidenceGathered},
	StateEvidenceGathered: {StateSynthesized, StatePersisted},
	StateSynthesized:      {StateValidated},
	StateValidated:        {StatePersisted},
}

// run tracks one analysis through its states.
type run struct {
	log     *logger.Logger
	state   State
	history []State
}

func newRun(log *logger.Logger) *run {
	log.Debug("analysis state", "state", string(StateReceived))
	return &run{log: log, state: StateReceived, history: []State{StateReceived}}
}

func (r *run) to(next State) error {
	if !r.allowed(next) {
		return fmt.Errorf("illegal analysis transition %s -> %s", r.state, next)
	}
	r.log.Debug("analysis state", "from", string(r.state), "state", string(next))
	r.state = next
	r.history = append(r.history, next)
	return nil
}

// fail moves any non-terminal run to Failed and returns err.
func (r *run) fail(err error) error {
	if r.state != StatePersisted && r.state != StateFailed {
		r.log.Warn("analysis failed", "from", string(r.state), "error", err)
		r.state = StateFailed
		r.history = append(r.history, StateFailed)
	}
	return err
}

func (r *run) allowed(next State) bool {
	if next == StateFailed {
		return r.state != StatePersisted && r.state != StateFailed
	}
	for _, s := range transitions[r.state] {
		if s == next {
			return true
		}
	}
	return false
}
