package flowcontrol_test

import (
	"testing"

	"github.com/sabouaram/ntstream/stream/flowcontrol"
)

func TestApplyThenRelax(t *testing.T) {
	s := flowcontrol.New()

	a := s.Apply(flowcontrol.Send, true)
	if a.Enable || !a.Changed {
		t.Fatalf("Apply should disable and report change: %+v", a)
	}
	if s.Wants(flowcontrol.Send) {
		t.Fatalf("Send should no longer want events")
	}

	// relax without unlock must not re-enable because it's locked
	a2 := s.Relax(flowcontrol.Send, false)
	if a2.Changed {
		t.Fatalf("Relax without unlock must not change a locked direction: %+v", a2)
	}
	if s.Wants(flowcontrol.Send) {
		t.Fatalf("Send must remain disabled while locked")
	}

	// relax with unlock clears the lock and re-enables
	a3 := s.Relax(flowcontrol.Send, true)
	if !a3.Changed || !a3.Enable {
		t.Fatalf("Relax with unlock should re-enable: %+v", a3)
	}
	if !s.Wants(flowcontrol.Send) {
		t.Fatalf("Send should want events again")
	}
}

func TestApplyIdempotent(t *testing.T) {
	s := flowcontrol.New()
	s.Apply(flowcontrol.Receive, false)
	a := s.Apply(flowcontrol.Receive, false)
	if a.Changed {
		t.Fatalf("second Apply on an already-disabled direction must report no change")
	}
}

func TestDirectionsAreIndependent(t *testing.T) {
	s := flowcontrol.New()
	s.Apply(flowcontrol.Send, true)
	if !s.Wants(flowcontrol.Receive) {
		t.Fatalf("applying flow control to Send must not affect Receive")
	}
}
