package orchestrator

import (
	"errors"
	"testing"

	"github.com/yungbote/persona-backend/internal/platform/logger"
)

func TestRunTransitions(t *testing.T) {
	r := newRun(logger.Nop())
	for _, s := range []State{StateMediaPrepared, StateEvidenceGathered, StateSynthesized, StateValidated, StatePersisted} {
		if err := r.to(s); err != nil {
			t.Fatal(err)
		}
	}
	if err := r.to(StateFailed); err == nil {
		t.Fatal("persisted run cannot fail")
	}
	if len(r.history) != 6 {
		t.Fatalf("history = %v", r.history)
	}
}

func TestRunRejectsSkippingValidation(t *testing.T) {
	r := newRun(logger.Nop())
	_ = r.to(StateEvidenceGathered)
	_ = r.to(StateSynthesized)
	if err := r.to(StatePersisted); err == nil {
		t.Fatal("synthesized run must be validated before persisting")
	}
	boom := errors.New("boom")
	if err := r.fail(boom); !errors.Is(err, boom) || r.state != StateFailed {
		t.Fatalf("fail: err=%v state=%s", err, r.state)
	}
}
