package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/zalando/go-keyring"
	"golang.org/x/term"
)

const VERSION = "1.0.0"

const keyringService = "uploadai"

func newModel(cfg *Config, log *logrus.Logger, api apiService, conv audioConverter, videoFile string) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	guidance := textinput.New()
	guidance.Placeholder = "Keywords mentioned in the video (optional)"
	guidance.CharLimit = 200
	guidance.Width = 48

	promptInput := textarea.New()
	promptInput.Placeholder = "Include your prompt for the AI, " + placeholderToken + " is replaced with the transcription"
	promptInput.SetWidth(76)
	promptInput.SetHeight(6)
	promptInput.Focus()

	output := viewport.New(76, 10)

	titleInput := textinput.New()
	titleInput.Placeholder = "Template title"
	titleInput.CharLimit = 80
	titleInput.Width = 48

	bodyInput := textarea.New()
	bodyInput.Placeholder = "Template prompt"
	bodyInput.SetWidth(76)
	bodyInput.SetHeight(8)

	fp := filepicker.New()
	fp.AllowedTypes = []string{acceptedContainer}
	if home, err := os.UserHomeDir(); err == nil {
		fp.CurrentDirectory = home
	}

	m := model{
		cfg:         cfg,
		log:         log,
		api:         api,
		conv:        conv,
		events:      make(chan tea.Msg, 64),
		view:        viewMain,
		picker:      fp,
		videoFile:   videoFile,
		session:     newUploadSession(),
		guidance:    guidance,
		promptInput: promptInput,
		output:      output,
		temperature: clampTemperature(cfg.Temperature),
		promptList:  newPromptList(nil),
		titleInput:  titleInput,
		bodyInput:   bodyInput,
		spinner:     s,
		progress:    progress.New(progress.WithDefaultGradient()),
	}
	if videoFile == "" {
		m.view = viewPicker
	}

	return m
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spinner.Tick,
		waitForEvent(m.events),
		m.listPromptsCmd(),
		textarea.Blink,
	}
	if m.view == viewPicker {
		cmds = append(cmds, m.picker.Init())
	}
	return tea.Batch(cmds...)
}

// advance moves the pipeline state machine, logging and ignoring anything
// the transition table forbids.
func (m *model) advance(next status) {
	if err := m.session.transition(next); err != nil {
		m.log.WithError(err).Warn("ignored status transition")
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		w := msg.Width - 6
		if w > 76 {
			w = 76
		}
		if w < 20 {
			w = 20
		}
		m.promptInput.SetWidth(w)
		m.bodyInput.SetWidth(w)
		m.output.Width = w
		m.progress.Width = w
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case convertProgressMsg:
		m.convertPct = msg.fraction
		return m, waitForEvent(m.events)

	case audioConvertedMsg:
		m.advance(statusUploading)
		m.log.WithField("audio", msg.audioFile).Info("conversion finished")
		return m, waitForEvent(m.events)

	case audioUploadedMsg:
		m.advance(statusGenerating)
		return m, waitForEvent(m.events)

	case transcriptionDoneMsg:
		m.advance(statusSuccess)
		m.videoID = msg.videoID
		m.notice = "Transcription ready, prompt away"
		return m, tea.Batch(waitForEvent(m.events), expireNotice())

	case pipelineErrMsg:
		m.advance(statusError)
		m.pipelineErr = msg.err.Error()
		return m, waitForEvent(m.events)

	case completionDeltaMsg:
		m.completion += msg.delta
		m.output.SetContent(m.completion)
		m.output.GotoBottom()
		return m, waitForEvent(m.events)

	case completionDoneMsg:
		m.streaming = false
		m.cancelStream = nil
		m.log.Info("completion finished")
		return m, waitForEvent(m.events)

	case completionErrMsg:
		m.streaming = false
		m.cancelStream = nil
		if errors.Is(msg.err, context.Canceled) {
			m.notice = "Completion cancelled"
		} else {
			m.completionErr = msg.err.Error()
			m.log.WithError(msg.err).Error("completion failed")
		}
		return m, tea.Batch(waitForEvent(m.events), expireNotice())

	case promptsLoadedMsg:
		return m, m.promptList.SetItems(promptListItems(msg.prompts))

	case promptSavedMsg:
		m.titleInput.SetValue("")
		m.bodyInput.SetValue("")
		m.titleInput.Blur()
		m.bodyInput.Blur()
		m.formErr = ""
		m.view = viewPromptLibrary
		m.notice = "Prompt saved"
		return m, tea.Batch(m.listPromptsCmd(), expireNotice())

	case promptLibraryErrMsg:
		m.formErr = msg.err.Error()
		return m, nil

	case noticeExpiredMsg:
		m.notice = ""
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			if m.cancelStream != nil {
				m.cancelStream()
			}
			m.quitting = true
			return m, tea.Quit
		}
	}

	switch m.view {
	case viewPicker:
		return m.updatePicker(msg)
	case viewPromptLibrary:
		return m.updateLibrary(msg)
	case viewCreatePrompt:
		return m.updateCreateForm(msg)
	default:
		return m.updateMain(msg)
	}
}

func (m model) updateMain(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+u":
			return m.submitUpload()

		case "ctrl+s":
			return m.submitCompletion()

		case "ctrl+p":
			m.view = viewPromptLibrary
			m.formErr = ""
			return m, m.listPromptsCmd()

		case "ctrl+n":
			m.view = viewCreatePrompt
			m.formErr = ""
			m.guidance.Blur()
			m.promptInput.Blur()
			return m, m.titleInput.Focus()

		case "ctrl+f":
			// No switching files while an attempt is mid-flight.
			if m.session.canSubmit() || m.session.terminal() {
				m.view = viewPicker
				return m, m.picker.Init()
			}
			return m, nil

		case "ctrl+o":
			if m.videoFile != "" {
				go previewVideo(m.videoFile)
			}
			return m, nil

		case "ctrl+r":
			if m.session.terminal() {
				m.session.reset()
				m.pipelineErr = ""
				m.convertPct = 0
			}
			return m, nil

		case "esc":
			if m.streaming && m.cancelStream != nil {
				m.cancelStream()
			}
			return m, nil

		case "tab":
			if m.guidance.Focused() {
				m.guidance.Blur()
				return m, m.promptInput.Focus()
			}
			// The guidance input is locked once an attempt starts.
			if m.session.canSubmit() {
				m.promptInput.Blur()
				return m, m.guidance.Focus()
			}
			return m, nil

		case "ctrl+up":
			m.temperature = stepTemperature(m.temperature, 0.1)
			return m, nil

		case "ctrl+down":
			m.temperature = stepTemperature(m.temperature, -0.1)
			return m, nil

		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.output, cmd = m.output.Update(msg)
			return m, cmd
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.guidance, cmd = m.guidance.Update(msg)
	cmds = append(cmds, cmd)
	m.promptInput, cmd = m.promptInput.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m model) submitUpload() (tea.Model, tea.Cmd) {
	if m.videoFile == "" {
		m.notice = "Select a video first (ctrl+f)"
		return m, expireNotice()
	}
	if !m.session.canSubmit() {
		return m, nil
	}

	m.advance(statusConverting)
	m.pipelineErr = ""
	m.convertPct = 0
	m.guidance.Blur()

	go runPipeline(context.Background(), m.conv, m.api, m.cfg.RequestTimeout, m.videoFile, m.guidance.Value(), m.log, m.events)

	return m, m.promptInput.Focus()
}

func (m model) submitCompletion() (tea.Model, tea.Cmd) {
	if !canSubmitCompletion(m.videoID, m.promptInput.Value(), m.streaming) {
		switch {
		case m.streaming:
			m.notice = "A completion is already running"
		case m.videoID == "":
			m.notice = "Upload and transcribe a video first"
		default:
			m.notice = "Write a prompt first"
		}
		return m, expireNotice()
	}

	m.streaming = true
	m.completion = ""
	m.completionErr = ""
	m.output.SetContent("")

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelStream = cancel
	go streamCompletion(ctx, m.api, m.promptInput.Value(), m.videoID, m.temperature, m.events)

	m.log.WithFields(logrus.Fields{
		"video_id":    m.videoID,
		"temperature": m.temperature,
	}).Info("completion started")

	return m, nil
}

func (m model) updatePicker(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "esc" && m.videoFile != "" {
		m.view = viewMain
		return m, nil
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)

	if ok, path := m.picker.DidSelectFile(msg); ok {
		m.selectVideo(path)
		m.view = viewMain
		return m, cmd
	}
	if ok, path := m.picker.DidSelectDisabledFile(msg); ok {
		m.notice = filepath.Base(path) + " is not an " + acceptedContainer + " video"
		return m, tea.Batch(cmd, expireNotice())
	}

	return m, cmd
}

// selectVideo starts a fresh upload session for a newly chosen file. The id
// of a previously transcribed video stays usable for completions until a new
// transcription replaces it.
func (m *model) selectVideo(path string) {
	m.videoFile = path
	m.session.reset()
	m.pipelineErr = ""
	m.convertPct = 0
	m.log.WithField("video", path).Info("video selected")
}

func (m model) updateLibrary(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && m.promptList.FilterState() != list.Filtering {
		switch key.String() {
		case "esc", "ctrl+p":
			m.view = viewMain
			return m, nil

		case "ctrl+n":
			m.view = viewCreatePrompt
			m.formErr = ""
			return m, m.titleInput.Focus()

		case "enter":
			if item, ok := m.promptList.SelectedItem().(promptItem); ok {
				m.promptInput.SetValue(item.template.Prompt)
				m.view = viewMain
				m.notice = "Template applied"
				return m, tea.Batch(m.promptInput.Focus(), expireNotice())
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.promptList, cmd = m.promptList.Update(msg)
	return m, cmd
}

func (m model) updateCreateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			m.formErr = ""
			m.titleInput.Blur()
			m.bodyInput.Blur()
			m.view = viewPromptLibrary
			return m, nil

		case "tab":
			if m.titleInput.Focused() {
				m.titleInput.Blur()
				return m, m.bodyInput.Focus()
			}
			m.bodyInput.Blur()
			return m, m.titleInput.Focus()

		case "ctrl+s":
			title, body := m.titleInput.Value(), m.bodyInput.Value()
			if err := validatePromptTemplate(title, body); err != nil {
				m.formErr = err.Error()
				return m, nil
			}
			m.formErr = ""
			return m, m.createPromptCmd(title, body)
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.titleInput, cmd = m.titleInput.Update(msg)
	cmds = append(cmds, cmd)
	m.bodyInput, cmd = m.bodyInput.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	header := BulletStyle.Render("┌") + TitleStyle.Render("upload.ai") + "\n"

	switch m.view {
	case viewPicker:
		return header +
			BulletStyle.Render("├") + TextStyle.Render("Select an "+acceptedContainer+" video") + "\n" +
			m.picker.View() + "\n" +
			m.noticeView() +
			BulletStyle.Render("└") + DimTextStyle.Render("enter select • ctrl+c quit") + "\n"
	case viewPromptLibrary:
		return header + m.libraryView()
	case viewCreatePrompt:
		return header + m.createFormView()
	default:
		return header + m.mainView()
	}
}

func (m model) mainView() string {
	var b strings.Builder

	video := "no video selected"
	if m.videoFile != "" {
		video = filepath.Base(m.videoFile)
	}
	b.WriteString(BulletStyle.Render("├") + TextStyle.Render("Video: ") + DimTextStyle.Render(video) + "\n")
	b.WriteString(BulletStyle.Render("├") + m.statusLine() + "\n")
	b.WriteString(BulletStyle.Render("├") + TextStyle.Render("Keywords: ") + m.guidance.View() + "\n")
	b.WriteString(BulletStyle.Render("│") + "\n")

	b.WriteString(m.promptInput.View() + "\n")

	if m.completion == "" && !m.streaming {
		b.WriteString(OutputStyle.Render(DimTextStyle.Render("The AI result shows up here")) + "\n")
	} else {
		b.WriteString(OutputStyle.Render(m.output.View()) + "\n")
	}
	if m.completionErr != "" {
		b.WriteString(BulletStyle.Render("├") + ErrorStyle.Render("stream interrupted: "+m.completionErr) + "\n")
	}

	streamState := ""
	if m.streaming {
		streamState = "  " + m.spinner.View() + DimTextStyle.Render("streaming, esc cancels")
	}
	b.WriteString(BulletStyle.Render("├") + TextStyle.Render(fmt.Sprintf("Temperature: %.1f", m.temperature)) + DimTextStyle.Render(" ctrl+↑/ctrl+↓") + streamState + "\n")

	b.WriteString(m.noticeView())
	b.WriteString(BulletStyle.Render("└") + DimTextStyle.Render("ctrl+u upload • ctrl+s run • ctrl+p prompts • ctrl+n new prompt • ctrl+f video • ctrl+o preview • ctrl+c quit") + "\n")

	return b.String()
}

// statusLine labels the upload action the way the original form labels its
// submit button: while an attempt runs, the stage message replaces the call
// to action.
func (m model) statusLine() string {
	switch m.session.current {
	case statusWaiting:
		return TextStyle.Render("Load video: ") + DimTextStyle.Render("ctrl+u converts, uploads and transcribes")
	case statusConverting:
		return TextStyle.Render(statusMessages[statusConverting]) + " " + m.progress.ViewAs(m.convertPct)
	case statusUploading, statusGenerating:
		return m.spinner.View() + TextStyle.Render(statusMessages[m.session.current])
	case statusSuccess:
		return SuccessStyle.Render(statusMessages[statusSuccess]) + DimTextStyle.Render("  id: "+m.videoID)
	default:
		return ErrorStyle.Render(statusMessages[statusError]+": "+m.pipelineErr) + DimTextStyle.Render("  ctrl+r to retry")
	}
}

func (m model) libraryView() string {
	var b strings.Builder
	b.WriteString(BulletStyle.Render("├") + TextStyle.Render("Saved prompts") + "\n")
	if m.formErr != "" {
		b.WriteString(BulletStyle.Render("├") + ErrorStyle.Render(m.formErr) + "\n")
	}
	b.WriteString(m.promptList.View() + "\n")
	b.WriteString(m.noticeView())
	b.WriteString(BulletStyle.Render("└") + DimTextStyle.Render("enter use • ctrl+n new • esc back") + "\n")
	return b.String()
}

func (m model) createFormView() string {
	var b strings.Builder
	b.WriteString(BulletStyle.Render("├") + TextStyle.Render("Save a prompt for future use") + "\n")
	b.WriteString(BulletStyle.Render("├") + TextStyle.Render("Title: ") + m.titleInput.View() + "\n")
	b.WriteString(BulletStyle.Render("│") + "\n")
	b.WriteString(m.bodyInput.View() + "\n")
	b.WriteString(BulletStyle.Render("├") + DimTextStyle.Render("use "+placeholderToken+" where the video transcription should go") + "\n")
	if m.formErr != "" {
		b.WriteString(BulletStyle.Render("├") + ErrorStyle.Render(m.formErr) + "\n")
	}
	b.WriteString(m.noticeView())
	b.WriteString(BulletStyle.Render("└") + DimTextStyle.Render("ctrl+s save • tab switch field • esc back") + "\n")
	return b.String()
}

func (m model) noticeView() string {
	if m.notice == "" {
		return ""
	}
	return BulletStyle.Render("├") + SuccessStyle.Render(m.notice) + "\n"
}

func stepTemperature(t, delta float64) float64 {
	return clampTemperature(math.Round((t+delta)*10) / 10)
}

func expireNotice() tea.Cmd {
	return tea.Tick(4*time.Second, func(time.Time) tea.Msg {
		return noticeExpiredMsg{}
	})
}

func previewVideo(inputFile string) {
	cmd := exec.Command("mpv", inputFile)
	cmd.Run()
}

func checkDependency(command string) bool {
	_, err := exec.LookPath(command)
	return err == nil
}

func getSystemUser() string {
	username := os.Getenv("USER")
	if username == "" {
		username = os.Getenv("USERNAME") // Windows fallback
	}
	if username == "" {
		username = "anon" // Default fallback
	}

	return username
}

func main() {
	fmt.Println(BulletStyle.Render("┌") + TitleStyle.Render("upload.ai"))

	var apiURL string
	var temp float64
	var login bool
	var help bool
	var version bool

	flag.StringVar(&apiURL, "api", "", "Base URL of the upload-ai API (overrides UPLOADAI_API_URL)")
	flag.Float64Var(&temp, "temperature", -1, "Sampling temperature between 0 and 1")
	flag.BoolVar(&login, "login", false, "Store an API token in the system keyring and exit")
	flag.BoolVar(&help, "help", false, "Show usage info")
	flag.BoolVar(&version, "version", false, "Show version info")
	flag.Usage = func() {
		fmt.Println(BulletStyle.Render("├") + TextStyle.Render("Usage: uploadai [options] [video-file]"))
		fmt.Println(BulletStyle.Render("│"))
		fmt.Println(BulletStyle.Render("├") + TextStyle.Render("Options:"))
		fmt.Println(BulletStyle.Render("├────") + TextStyle.Render("--api") + DimTextStyle.Render("          base URL of the upload-ai API"))
		fmt.Println(BulletStyle.Render("├────") + TextStyle.Render("--temperature") + DimTextStyle.Render("  sampling temperature between 0 and 1"))
		fmt.Println(BulletStyle.Render("├────") + TextStyle.Render("--login") + DimTextStyle.Render("        store an API token in the system keyring"))
		fmt.Println(BulletStyle.Render("│"))
		fmt.Println(BulletStyle.Render("├") + TextStyle.Render("Requirements:"))

		dependencies := []string{"ffmpeg", "ffprobe", "mpv"}
		for _, dependency := range dependencies {
			status := "✔ installed"
			if !checkDependency(dependency) {
				status = "✗ missing"
			}
			spaces := strings.Repeat(" ", 10-len(dependency))
			fmt.Println(BulletStyle.Render("├────") + TextStyle.Render(dependency) + DimTextStyle.Render(spaces+status))
		}

		fmt.Println(BulletStyle.Render("│"))
		fmt.Println(BulletStyle.Render("└") + TextStyle.Render("Supported format:") + DimTextStyle.Render(" "+acceptedContainer))
	}

	flag.Parse()

	if help {
		flag.Usage()
		os.Exit(0)
	}

	if version {
		fmt.Println(BulletStyle.Render("└") + TextStyle.Render(VERSION))
		os.Exit(0)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Println(BulletStyle.Render("└") + ErrorStyle.Render("Error loading configuration: "+err.Error()))
		os.Exit(1)
	}
	if apiURL != "" {
		cfg.APIBaseURL = apiURL
	}
	if temp >= 0 {
		cfg.Temperature = temp
	}

	log, err := newLogger(cfg.LogDir)
	if err != nil {
		fmt.Println(BulletStyle.Render("└") + ErrorStyle.Render("Error opening log file: "+err.Error()))
		os.Exit(1)
	}

	username := getSystemUser()

	if login {
		fmt.Print(BulletStyle.Render("├") + TextStyle.Render("Enter the API token: "))
		byteToken, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			fmt.Println(BulletStyle.Render("└") + ErrorStyle.Render("Error reading token: "+err.Error()))
			os.Exit(1)
		}
		token := strings.TrimSpace(string(byteToken))
		if token == "" {
			fmt.Println(BulletStyle.Render("└") + TextStyle.Render("Nothing stored."))
			os.Exit(1)
		}
		if err := keyring.Set(keyringService, username, token); err != nil {
			fmt.Println(BulletStyle.Render("└") + ErrorStyle.Render("Error saving token: "+err.Error()))
			os.Exit(1)
		}
		fmt.Println(BulletStyle.Render("└") + TextStyle.Render("Token stored for future sessions."))
		os.Exit(0)
	}

	token, err := keyring.Get(keyringService, username)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		log.WithError(err).Warn("could not read token from keyring")
	}

	args := flag.Args()
	if len(args) > 1 {
		flag.Usage()
		os.Exit(0)
	}

	videoFile := ""
	if len(args) == 1 {
		videoFile = args[0]
		if _, err := os.Stat(videoFile); os.IsNotExist(err) {
			fmt.Printf(BulletStyle.Render("└")+TextStyle.Render("Error: file '%s' does not exist.")+"\n", videoFile)
			os.Exit(1)
		}
		if err := validateContainer(videoFile); err != nil {
			fmt.Printf(BulletStyle.Render("└")+TextStyle.Render("Error: file '%s' is not an %s video.")+"\n", videoFile, acceptedContainer)
			os.Exit(1)
		}
	}

	conv, err := getTranscoder()
	if err != nil {
		fmt.Println(BulletStyle.Render("└") + ErrorStyle.Render("ffmpeg and ffprobe are required: "+err.Error()))
		os.Exit(1)
	}
	conv.bitrate = cfg.AudioBitrate

	api := newAPIClient(cfg.APIBaseURL, token, log)

	p := tea.NewProgram(
		newModel(cfg, log, api, conv, videoFile),
	)

	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running program: %v", err)
	}
}
