package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Progress model shown on stderr while an upload runs
type uploadModel struct {
	spinner spinner.Model
	items   int
	upload  func() ([]string, error)
	cancel  context.CancelFunc
	urls    []string
	err     error
	done    bool
}

type uploadCompleteMsg struct {
	urls []string
	err  error
}

// Styles
var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#50FA7B"))
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6272A4"))
)

func newUploadModel(items int, cancel context.CancelFunc, upload func() ([]string, error)) uploadModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return uploadModel{
		spinner: s,
		items:   items,
		upload:  upload,
		cancel:  cancel,
	}
}

func (m uploadModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, runUpload(m.upload))
}

func (m uploadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancel()
			m.err = context.Canceled
			m.done = true
			return m, tea.Quit
		}

	case uploadCompleteMsg:
		m.urls = msg.urls
		m.err = msg.err
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m uploadModel) View() string {
	if !m.done {
		return fmt.Sprintf("%s Uploading %d image(s) to ptpimg.me... %s\n",
			m.spinner.View(), m.items, subtleStyle.Render("Ctrl+C to cancel"))
	}
	if m.err != nil {
		return errorStyle.Render("❌ Upload failed") + "\n"
	}
	return successStyle.Render(fmt.Sprintf("✅ Uploaded %d image(s)", len(m.urls))) + "\n"
}

// Async command running the upload
func runUpload(upload func() ([]string, error)) tea.Cmd {
	return func() tea.Msg {
		urls, err := upload()
		return uploadCompleteMsg{urls: urls, err: err}
	}
}

func uploadWithProgress(ctx context.Context, client uploader, items []string) ([]string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := newUploadModel(len(items), cancel, func() ([]string, error) {
		return client.Upload(ctx, items)
	})
	final, err := tea.NewProgram(m, tea.WithOutput(os.Stderr), tea.WithContext(ctx)).Run()
	if err != nil {
		return nil, err
	}
	fm := final.(uploadModel)
	return fm.urls, fm.err
}

type uploader interface {
	Upload(ctx context.Context, items []string) ([]string, error)
}
