package main

import "fmt"

// status tracks how far the current upload attempt has progressed.
type status string

const (
	statusWaiting    status = "waiting"
	statusConverting status = "converting"
	statusUploading  status = "uploading"
	statusGenerating status = "generating"
	statusSuccess    status = "success"
	statusError      status = "error"
)

// statusTransitions is the full transition table. Progress only moves
// forward; every in-flight stage may fail into error, and the terminal
// states only lead back to waiting.
var statusTransitions = map[status][]status{
	statusWaiting:    {statusConverting},
	statusConverting: {statusUploading, statusError},
	statusUploading:  {statusGenerating, statusError},
	statusGenerating: {statusSuccess, statusError},
	statusSuccess:    {statusWaiting},
	statusError:      {statusWaiting},
}

// statusMessages label the submit control while an attempt runs, mirroring
// the per-stage button text of the upload form.
var statusMessages = map[status]string{
	statusConverting: "Converting video to audio...",
	statusUploading:  "Sending audio to the server...",
	statusGenerating: "Generating transcription...",
	statusSuccess:    "Transcription generated successfully",
	statusError:      "Could not generate the transcription",
}

// uploadSession is the state machine for one video upload attempt.
type uploadSession struct {
	current status
}

func newUploadSession() uploadSession {
	return uploadSession{current: statusWaiting}
}

// transition advances the session or reports the attempt as illegal,
// leaving the current status untouched.
func (s *uploadSession) transition(next status) error {
	for _, allowed := range statusTransitions[s.current] {
		if next == allowed {
			s.current = next
			return nil
		}
	}
	return fmt.Errorf("illegal status transition: %s -> %s", s.current, next)
}

// reset returns the session to waiting so a new attempt can start. Used when
// a fresh video is selected or the user retries after a failure.
func (s *uploadSession) reset() {
	s.current = statusWaiting
}

// canSubmit reports whether a new upload attempt may start.
func (s *uploadSession) canSubmit() bool {
	return s.current == statusWaiting
}

// terminal reports whether the attempt has finished, one way or the other.
func (s *uploadSession) terminal() bool {
	return s.current == statusSuccess || s.current == statusError
}
