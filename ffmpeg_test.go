package main

import (
	"context"
	"errors"
	"testing"
)

func TestGetTranscoderSharedInstance(t *testing.T) {
	first, errFirst := getTranscoder()
	second, errSecond := getTranscoder()

	if first != second {
		t.Error("getTranscoder returned two different instances")
	}
	if (errFirst == nil) != (errSecond == nil) {
		t.Errorf("load error not memoized: %v vs %v", errFirst, errSecond)
	}
}

func TestValidateContainer(t *testing.T) {
	tests := []struct {
		path    string
		wantErr bool
	}{
		{"clip.mp4", false},
		{"clip.MP4", false},
		{"/some/dir/lecture.mp4", false},
		{"clip.mov", true},
		{"clip.avi", true},
		{"clip.mp3", true},
		{"noextension", true},
	}

	for _, tt := range tests {
		err := validateContainer(tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("validateContainer(%s) error = %v, wantErr %v", tt.path, err, tt.wantErr)
		}
		if err != nil {
			var convErr *ConversionError
			if !errors.As(err, &convErr) {
				t.Errorf("validateContainer(%s) error type = %T, want *ConversionError", tt.path, err)
			}
		}
	}
}

func TestConvertRejectsWrongContainer(t *testing.T) {
	tr := &Transcoder{}

	_, err := tr.ConvertVideoToAudio(context.Background(), "clip.mkv", nil)

	var convErr *ConversionError
	if !errors.As(err, &convErr) {
		t.Fatalf("error = %v, want *ConversionError", err)
	}
}

func TestParseProbeDuration(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    float64
		wantErr bool
	}{
		{"valid", `{"format":{"duration":"12.5"}}`, 12.5, false},
		{"integer seconds", `{"format":{"duration":"10"}}`, 10, false},
		{"missing duration", `{"format":{}}`, 0, true},
		{"zero duration", `{"format":{"duration":"0"}}`, 0, true},
		{"not json", `WEBVTT`, 0, true},
	}

	for _, tt := range tests {
		got, err := parseProbeDuration([]byte(tt.input))
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: error = %v, wantErr %v", tt.name, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("%s: duration = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestParseProgressLine(t *testing.T) {
	tests := []struct {
		line     string
		duration float64
		want     float64
		ok       bool
	}{
		{"out_time_us=5000000", 10, 0.5, true},
		{"out_time_ms=5000000", 10, 0.5, true},
		{"out_time_us=20000000", 10, 1, true},
		{"out_time_us=0", 10, 0, true},
		{"progress=end", 10, 1, true},
		{"progress=continue", 10, 0, false},
		{"frame=12", 10, 0, false},
		{"out_time_us=abc", 10, 0, false},
		{"garbage line", 10, 0, false},
		{"out_time_us=5000000", 0, 0, false},
	}

	for _, tt := range tests {
		got, ok := parseProgressLine(tt.line, tt.duration)
		if ok != tt.ok || got != tt.want {
			t.Errorf("parseProgressLine(%q, %v) = (%v, %v), want (%v, %v)",
				tt.line, tt.duration, got, ok, tt.want, tt.ok)
		}
	}
}
