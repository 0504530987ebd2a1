package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
)

// audioConverter is what the pipeline needs from the transcoder.
type audioConverter interface {
	ConvertVideoToAudio(ctx context.Context, videoPath string, onProgress func(float64)) (string, error)
}

// videoUploader is what the pipeline needs from the API client.
type videoUploader interface {
	UploadAudio(ctx context.Context, audioPath string) (string, error)
	RequestTranscription(ctx context.Context, videoID, prompt string) error
}

// runPipeline drives one upload attempt: convert the video to audio, upload
// the audio, then request the transcription. Stages run strictly in sequence
// and every failure is reported as a pipelineErrMsg naming the stage it
// happened in, so nothing escapes as an unhandled error.
func runPipeline(ctx context.Context, conv audioConverter, api videoUploader, timeout time.Duration, videoPath, guidance string, log *logrus.Logger, events chan<- tea.Msg) {
	log.WithField("video", videoPath).Info("upload pipeline started")

	audioPath, err := conv.ConvertVideoToAudio(ctx, videoPath, func(f float64) {
		events <- convertProgressMsg{fraction: f}
	})
	if err != nil {
		log.WithError(err).Error("conversion failed")
		events <- pipelineErrMsg{stage: statusConverting, err: err}
		return
	}
	// The converter stages its output in a throwaway workspace.
	defer os.RemoveAll(filepath.Dir(audioPath))
	events <- audioConvertedMsg{audioFile: audioPath}

	uploadCtx, cancel := context.WithTimeout(ctx, timeout)
	videoID, err := api.UploadAudio(uploadCtx, audioPath)
	cancel()
	if err != nil {
		log.WithError(err).Error("upload failed")
		events <- pipelineErrMsg{stage: statusUploading, err: err}
		return
	}
	events <- audioUploadedMsg{videoID: videoID}

	transcribeCtx, cancel := context.WithTimeout(ctx, timeout)
	err = api.RequestTranscription(transcribeCtx, videoID, guidance)
	cancel()
	if err != nil {
		log.WithError(err).Error("transcription failed")
		events <- pipelineErrMsg{stage: statusGenerating, err: err}
		return
	}

	log.WithField("video_id", videoID).Info("upload pipeline finished")
	events <- transcriptionDoneMsg{videoID: videoID}
}

// waitForEvent re-arms the listener for the next asynchronous event. Every
// Update that consumes an event message returns this command again.
func waitForEvent(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}
