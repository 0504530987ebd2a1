package main

import "testing"

func TestStatusHappyPath(t *testing.T) {
	s := newUploadSession()
	if s.current != statusWaiting {
		t.Fatalf("new session status = %s, want %s", s.current, statusWaiting)
	}

	for _, next := range []status{statusConverting, statusUploading, statusGenerating, statusSuccess} {
		if err := s.transition(next); err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
	}

	if s.current != statusSuccess {
		t.Errorf("final status = %s, want %s", s.current, statusSuccess)
	}
	if !s.terminal() {
		t.Error("success should be terminal")
	}
}

func TestStatusRejectsIllegalTransitions(t *testing.T) {
	tests := []struct {
		from status
		to   status
	}{
		{statusWaiting, statusUploading},
		{statusWaiting, statusError},
		{statusWaiting, statusSuccess},
		{statusConverting, statusGenerating},
		{statusConverting, statusSuccess},
		{statusUploading, statusSuccess},
		{statusSuccess, statusConverting},
		{statusError, statusConverting},
		{statusSuccess, statusError},
	}

	for _, tt := range tests {
		s := uploadSession{current: tt.from}
		if err := s.transition(tt.to); err == nil {
			t.Errorf("transition %s -> %s should be rejected", tt.from, tt.to)
		}
		if s.current != tt.from {
			t.Errorf("rejected transition changed status to %s", s.current)
		}
	}
}

func TestStatusErrorEdges(t *testing.T) {
	paths := map[status][]status{
		statusConverting: {statusConverting},
		statusUploading:  {statusConverting, statusUploading},
		statusGenerating: {statusConverting, statusUploading, statusGenerating},
	}

	for from, walk := range paths {
		s := newUploadSession()
		for _, next := range walk {
			if err := s.transition(next); err != nil {
				t.Fatalf("walk to %s: %v", from, err)
			}
		}
		if err := s.transition(statusError); err != nil {
			t.Errorf("%s -> error: %v", from, err)
		}
	}
}

func TestStatusReset(t *testing.T) {
	s := newUploadSession()
	s.transition(statusConverting)
	s.transition(statusError)

	s.reset()

	if s.current != statusWaiting {
		t.Errorf("status after reset = %s, want %s", s.current, statusWaiting)
	}
	if !s.canSubmit() {
		t.Error("reset session should accept a new submit")
	}
}

func TestCanSubmitOnlyWhileWaiting(t *testing.T) {
	for st := range statusTransitions {
		s := uploadSession{current: st}
		if got, want := s.canSubmit(), st == statusWaiting; got != want {
			t.Errorf("canSubmit() in %s = %v, want %v", st, got, want)
		}
	}
}
