package main

import (
	"context"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
)

// apiService is everything the UI needs from the upload-ai API.
type apiService interface {
	videoUploader
	completionStreamer
	ListPrompts(ctx context.Context) ([]PromptTemplate, error)
	CreatePrompt(ctx context.Context, title, body string) error
}

// Upload pipeline events, delivered over the model's event channel so the
// stages can report while the TUI keeps rendering.
type convertProgressMsg struct {
	fraction float64
}

type audioConvertedMsg struct {
	audioFile string
}

type audioUploadedMsg struct {
	videoID string
}

type transcriptionDoneMsg struct {
	videoID string
}

type pipelineErrMsg struct {
	stage status
	err   error
}

// Completion stream events.
type completionDeltaMsg struct {
	delta string
}

type completionDoneMsg struct{}

type completionErrMsg struct {
	err error
}

// Prompt library events.
type promptsLoadedMsg struct {
	prompts []PromptTemplate
}

type promptSavedMsg struct{}

type promptLibraryErrMsg struct {
	err error
}

type noticeExpiredMsg struct{}

// view selects which screen the TUI is showing.
type view int

const (
	viewMain view = iota
	viewPicker
	viewPromptLibrary
	viewCreatePrompt
)

type model struct {
	cfg  *Config
	log  *logrus.Logger
	api  apiService
	conv audioConverter

	events chan tea.Msg

	view   view
	picker filepicker.Model

	// Upload pipeline.
	videoFile   string
	session     uploadSession
	pipelineErr string
	convertPct  float64
	guidance    textinput.Model

	// Completion controller.
	videoID       string
	promptInput   textarea.Model
	output        viewport.Model
	completion    string
	completionErr string
	streaming     bool
	cancelStream  context.CancelFunc
	temperature   float64

	// Prompt library.
	promptList list.Model
	titleInput textinput.Model
	bodyInput  textarea.Model
	formErr    string

	spinner  spinner.Model
	progress progress.Model
	notice   string
	width    int
	quitting bool
}
