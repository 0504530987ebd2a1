package main

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// completionStreamer is what the controller needs from the API client.
type completionStreamer interface {
	StreamCompletion(ctx context.Context, prompt, videoID string, temperature float64, onDelta func(string)) error
}

// clampTemperature forces the sampling temperature into [0,1]. Out-of-range
// values are clamped rather than rejected.
func clampTemperature(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// canSubmitCompletion reports whether a completion may start: it needs a
// transcribed video, a non-empty prompt, and no request already in flight.
// A submission while one is streaming is rejected, not queued.
func canSubmitCompletion(videoID, prompt string, streaming bool) bool {
	return videoID != "" && strings.TrimSpace(prompt) != "" && !streaming
}

// streamCompletion runs one completion request, forwarding text deltas to
// the event channel in order until the stream ends or ctx is cancelled.
// Partial output already forwarded stays with the caller either way.
func streamCompletion(ctx context.Context, api completionStreamer, prompt, videoID string, temperature float64, events chan<- tea.Msg) {
	err := api.StreamCompletion(ctx, prompt, videoID, temperature, func(delta string) {
		events <- completionDeltaMsg{delta: delta}
	})
	if err != nil {
		events <- completionErrMsg{err: err}
		return
	}
	events <- completionDoneMsg{}
}
