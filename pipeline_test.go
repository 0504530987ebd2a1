package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type stubConverter struct {
	err      error
	progress []float64
	workDir  string
}

func (s *stubConverter) ConvertVideoToAudio(_ context.Context, _ string, onProgress func(float64)) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	for _, f := range s.progress {
		if onProgress != nil {
			onProgress(f)
		}
	}

	dir, err := os.MkdirTemp("", "uploadai-test-*")
	if err != nil {
		return "", err
	}
	s.workDir = dir
	path := filepath.Join(dir, "audio.mp3")
	if err := os.WriteFile(path, []byte("mp3"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

type stubUploader struct {
	videoID        string
	uploadErr      error
	transcribeErr  error
	uploads        int
	transcriptions int
	gotGuidance    string
}

func (s *stubUploader) UploadAudio(_ context.Context, _ string) (string, error) {
	s.uploads++
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	return s.videoID, nil
}

func (s *stubUploader) RequestTranscription(_ context.Context, _ string, prompt string) error {
	s.transcriptions++
	s.gotGuidance = prompt
	return s.transcribeErr
}

func collectPipelineEvents(t *testing.T, conv audioConverter, api videoUploader, guidance string) []tea.Msg {
	t.Helper()
	events := make(chan tea.Msg, 64)
	runPipeline(context.Background(), conv, api, time.Second, "demo.mp4", guidance, testLogger(), events)
	close(events)

	var msgs []tea.Msg
	for msg := range events {
		msgs = append(msgs, msg)
	}
	return msgs
}

func TestRunPipelineHappyPath(t *testing.T) {
	conv := &stubConverter{progress: []float64{0.25, 0.75}}
	api := &stubUploader{videoID: "vid_123"}

	msgs := collectPipelineEvents(t, conv, api, "react, hooks")

	want := []tea.Msg{
		convertProgressMsg{fraction: 0.25},
		convertProgressMsg{fraction: 0.75},
		audioConvertedMsg{audioFile: filepath.Join(conv.workDir, "audio.mp3")},
		audioUploadedMsg{videoID: "vid_123"},
		transcriptionDoneMsg{videoID: "vid_123"},
	}
	if len(msgs) != len(want) {
		t.Fatalf("got %d events, want %d: %#v", len(msgs), len(want), msgs)
	}
	for i := range want {
		if msgs[i] != want[i] {
			t.Errorf("event %d = %#v, want %#v", i, msgs[i], want[i])
		}
	}

	if api.gotGuidance != "react, hooks" {
		t.Errorf("guidance = %q", api.gotGuidance)
	}
	// The staging directory is gone once the pipeline is done with it.
	if _, err := os.Stat(conv.workDir); !os.IsNotExist(err) {
		t.Errorf("workspace %s still exists", conv.workDir)
	}
}

func TestRunPipelineConversionFailure(t *testing.T) {
	conv := &stubConverter{err: errors.New("no audio stream")}
	api := &stubUploader{videoID: "vid_123"}

	msgs := collectPipelineEvents(t, conv, api, "")

	if len(msgs) != 1 {
		t.Fatalf("got %d events, want 1: %#v", len(msgs), msgs)
	}
	errMsg, ok := msgs[0].(pipelineErrMsg)
	if !ok || errMsg.stage != statusConverting {
		t.Errorf("event = %#v, want pipelineErrMsg in %s", msgs[0], statusConverting)
	}
	if api.uploads != 0 {
		t.Error("upload ran after a failed conversion")
	}
}

func TestRunPipelineUploadFailure(t *testing.T) {
	conv := &stubConverter{}
	api := &stubUploader{uploadErr: errors.New("connection refused")}

	msgs := collectPipelineEvents(t, conv, api, "")

	last, ok := msgs[len(msgs)-1].(pipelineErrMsg)
	if !ok || last.stage != statusUploading {
		t.Errorf("last event = %#v, want pipelineErrMsg in %s", msgs[len(msgs)-1], statusUploading)
	}
	if api.transcriptions != 0 {
		t.Error("transcription requested after a failed upload")
	}
}

func TestRunPipelineTranscriptionFailure(t *testing.T) {
	conv := &stubConverter{}
	api := &stubUploader{videoID: "vid_123", transcribeErr: errors.New("whisper unavailable")}

	msgs := collectPipelineEvents(t, conv, api, "")

	last, ok := msgs[len(msgs)-1].(pipelineErrMsg)
	if !ok || last.stage != statusGenerating {
		t.Errorf("last event = %#v, want pipelineErrMsg in %s", msgs[len(msgs)-1], statusGenerating)
	}
}
