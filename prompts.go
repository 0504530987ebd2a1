package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

// validatePromptTemplate checks a new template before it goes anywhere near
// the network.
func validatePromptTemplate(title, body string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("title is required")
	}
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("prompt is required")
	}
	return nil
}

func (m model) listPromptsCmd() tea.Cmd {
	api := m.api
	timeout := m.cfg.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		prompts, err := api.ListPrompts(ctx)
		if err != nil {
			return promptLibraryErrMsg{err: err}
		}
		return promptsLoadedMsg{prompts: prompts}
	}
}

func (m model) createPromptCmd(title, body string) tea.Cmd {
	api := m.api
	timeout := m.cfg.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := api.CreatePrompt(ctx, title, body); err != nil {
			return promptLibraryErrMsg{err: err}
		}
		return promptSavedMsg{}
	}
}

type promptItem struct {
	template PromptTemplate
}

func (i promptItem) FilterValue() string { return i.template.Title }

type promptDelegate struct{}

func (d promptDelegate) Height() int                             { return 2 }
func (d promptDelegate) Spacing() int                            { return 0 }
func (d promptDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d promptDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(promptItem)
	if !ok {
		return
	}

	preview := strings.ReplaceAll(i.template.Prompt, "\n", " ")
	if runes := []rune(preview); len(runes) > 60 {
		preview = string(runes[:60]) + "..."
	}

	fn := ItemStyle.Render
	if index == m.Index() {
		fn = func(s ...string) string {
			return SelectedItemStyle.Render("> " + strings.Join(s, " "))
		}
	}

	fmt.Fprintf(w, "%s\n%s\n", fn(i.template.Title), PreviewStyle.Render(preview))
}

func newPromptList(prompts []PromptTemplate) list.Model {
	l := list.New(promptListItems(prompts), promptDelegate{}, 64, 16)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(true)
	l.SetShowPagination(false)

	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{
			key.NewBinding(
				key.WithKeys("enter"),
				key.WithHelp("enter", "use prompt"),
			),
			key.NewBinding(
				key.WithKeys("ctrl+n"),
				key.WithHelp("ctrl+n", "new prompt"),
			),
		}
	}

	return l
}

func promptListItems(prompts []PromptTemplate) []list.Item {
	items := make([]list.Item, len(prompts))
	for i, p := range prompts {
		items[i] = promptItem{template: p}
	}
	return items
}
