package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// placeholderToken is replaced server-side with the video transcription
// wherever it appears in a completion prompt.
const placeholderToken = "{transcription}"

// apiError carries a non-2xx response from the upload-ai API.
type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api request failed with status %d: %s", e.Status, e.Body)
}

// PromptTemplate is a reusable completion prompt stored on the server.
type PromptTemplate struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Prompt string `json:"prompt"`
}

// apiClient talks to the upload-ai HTTP API.
type apiClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        *logrus.Logger
}

func newAPIClient(baseURL, token string, log *logrus.Logger) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		// No client-wide timeout: completions stream for a while. Callers
		// bound the non-streaming requests with a context instead.
		httpClient: &http.Client{},
		log:        log,
	}
}

func (c *apiClient) do(req *http.Request) (*http.Response, error) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.httpClient.Do(req)
}

// UploadAudio registers the converted audio with the server and returns the
// assigned video id.
func (c *apiClient) UploadAudio(ctx context.Context, audioPath string) (string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("open audio file: %w", err)
	}
	defer file.Close()

	var b bytes.Buffer
	writer := multipart.NewWriter(&b)

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("copy audio data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/videos", &b)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("upload audio: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read upload response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &apiError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var uploadResp struct {
		Video struct {
			ID string `json:"id"`
		} `json:"video"`
	}
	if err := json.Unmarshal(body, &uploadResp); err != nil {
		return "", fmt.Errorf("parse upload response: %w", err)
	}
	if uploadResp.Video.ID == "" {
		return "", fmt.Errorf("upload response missing video id")
	}

	c.log.WithField("video_id", uploadResp.Video.ID).Info("audio uploaded")
	return uploadResp.Video.ID, nil
}

// RequestTranscription asks the server to transcribe the stored audio. The
// optional prompt carries keywords that guide the speech-to-text model. The
// call returns once the transcription exists server-side.
func (c *apiClient) RequestTranscription(ctx context.Context, videoID, prompt string) error {
	payload, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return err
	}

	url := c.baseURL + "/videos/" + videoID + "/transcription"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("request transcription: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return &apiError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	c.log.WithField("video_id", videoID).Info("transcription generated")
	return nil
}

// StreamCompletion opens a completion request and hands response chunks to
// onDelta in arrival order until the stream ends. Cancelling ctx aborts the
// request; whatever was already delivered stays with the caller.
func (c *apiClient) StreamCompletion(ctx context.Context, prompt, videoID string, temperature float64, onDelta func(string)) error {
	payload, err := json.Marshal(map[string]any{
		"prompt":      prompt,
		"videoID":     videoID,
		"temperature": clampTemperature(temperature),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ai/complete", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return &apiError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			onDelta(string(buf[:n]))
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("completion stream: %w", err)
		}
	}
}

// ListPrompts fetches the saved prompt templates, oldest first.
func (c *apiClient) ListPrompts(ctx context.Context) ([]PromptTemplate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/prompt", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read prompt list: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &apiError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var prompts []PromptTemplate
	if err := json.Unmarshal(body, &prompts); err != nil {
		return nil, fmt.Errorf("parse prompt list: %w", err)
	}

	return prompts, nil
}

// CreatePrompt persists a new prompt template.
func (c *apiClient) CreatePrompt(ctx context.Context, title, body string) error {
	payload, err := json.Marshal(map[string]string{
		"title":  title,
		"prompt": body,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/prompt", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("create prompt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return &apiError{Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	c.log.WithField("title", title).Info("prompt template saved")
	return nil
}
