package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// acceptedContainer is the only input container the converter takes, the same
// constraint the upload form places on file selection.
const acceptedContainer = ".mp4"

const defaultAudioBitrate = "20k"

// ConversionError marks a failure inside the transcoding engine, as opposed
// to a network or validation failure later in the pipeline.
type ConversionError struct {
	Path string
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert %s: %v", e.Path, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// Transcoder wraps the ffmpeg binaries. One instance is shared by the whole
// process; use getTranscoder instead of constructing it directly.
type Transcoder struct {
	ffmpegPath  string
	ffprobePath string
	bitrate     string
}

var (
	transcoderOnce sync.Once
	transcoder     *Transcoder
	transcoderErr  error
)

// getTranscoder resolves the ffmpeg binaries exactly once and memoizes the
// result, load error included. Concurrent first calls share a single
// initialization.
func getTranscoder() (*Transcoder, error) {
	transcoderOnce.Do(func() {
		ffmpegPath, err := exec.LookPath("ffmpeg")
		if err != nil {
			transcoderErr = fmt.Errorf("load transcoder: %w", err)
			return
		}
		ffprobePath, err := exec.LookPath("ffprobe")
		if err != nil {
			transcoderErr = fmt.Errorf("load transcoder: %w", err)
			return
		}
		transcoder = &Transcoder{
			ffmpegPath:  ffmpegPath,
			ffprobePath: ffprobePath,
			bitrate:     defaultAudioBitrate,
		}
	})
	return transcoder, transcoderErr
}

// validateContainer rejects anything that is not an .mp4 before ffmpeg ever
// runs, so an unsupported file fails loudly instead of producing empty audio.
func validateContainer(path string) error {
	if ext := strings.ToLower(filepath.Ext(path)); ext != acceptedContainer {
		return &ConversionError{
			Path: path,
			Err:  fmt.Errorf("unsupported container %q, expected %s", ext, acceptedContainer),
		}
	}
	return nil
}

// ConvertVideoToAudio extracts the audio stream from a video and transcodes
// it to a low bitrate MP3 suited for speech transcription rather than
// fidelity. onProgress, when non-nil, receives fractions in [0,1] while
// ffmpeg runs. The caller owns the returned file and its parent directory.
func (t *Transcoder) ConvertVideoToAudio(ctx context.Context, videoPath string, onProgress func(float64)) (string, error) {
	if err := validateContainer(videoPath); err != nil {
		return "", err
	}
	if _, err := os.Stat(videoPath); err != nil {
		return "", &ConversionError{Path: videoPath, Err: err}
	}

	duration, err := t.probeDuration(ctx, videoPath)
	if err != nil {
		return "", &ConversionError{Path: videoPath, Err: err}
	}

	workDir, err := os.MkdirTemp("", "uploadai-*")
	if err != nil {
		return "", err
	}
	audioPath := filepath.Join(workDir, "audio-"+uuid.NewString()+".mp3")

	bitrate := t.bitrate
	if bitrate == "" {
		bitrate = defaultAudioBitrate
	}

	cmd := exec.CommandContext(ctx, t.ffmpegPath,
		"-hide_banner",
		"-loglevel", "error",
		"-nostats",
		"-i", videoPath,
		"-map", "0:a",
		"-acodec", "libmp3lame",
		"-b:a", bitrate,
		"-progress", "pipe:1",
		"-y",
		audioPath,
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		os.RemoveAll(workDir)
		return "", err
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		os.RemoveAll(workDir)
		return "", &ConversionError{Path: videoPath, Err: err}
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if f, ok := parseProgressLine(scanner.Text(), duration); ok && onProgress != nil {
			onProgress(f)
		}
	}

	if err := cmd.Wait(); err != nil {
		os.RemoveAll(workDir)
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%s: %w", msg, err)
		}
		return "", &ConversionError{Path: videoPath, Err: err}
	}

	if onProgress != nil {
		onProgress(1)
	}

	return audioPath, nil
}

// probeDuration reads the container duration in seconds via ffprobe.
func (t *Transcoder) probeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, t.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	return parseProbeDuration(output)
}

func parseProbeDuration(probeJSON []byte) (float64, error) {
	var result struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(probeJSON, &result); err != nil {
		return 0, fmt.Errorf("parse probe output: %w", err)
	}

	d, err := strconv.ParseFloat(result.Format.Duration, 64)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("no duration in probe output")
	}

	return d, nil
}

// parseProgressLine interprets one key=value line of ffmpeg -progress output
// as a completion fraction against the probed duration.
func parseProgressLine(line string, duration float64) (float64, bool) {
	key, value, found := strings.Cut(strings.TrimSpace(line), "=")
	if !found || duration <= 0 {
		return 0, false
	}

	switch key {
	case "out_time_us", "out_time_ms":
		us, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, false
		}
		f := us / 1e6 / duration
		if f < 0 {
			f = 0
		}
		if f > 1 {
			f = 1
		}
		return f, true
	case "progress":
		if value == "end" {
			return 1, true
		}
	}

	return 0, false
}
