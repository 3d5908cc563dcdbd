// Package tui is the interactive terminal converter behind convert --interactive.
package tui

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jusunglee/hanjahangul/internal/hanja"
	"github.com/jusunglee/hanjahangul/internal/transliteration"
)

// Converter converts one input.
type Converter interface {
	Convert(input string) hanja.Result
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	outputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	romanStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true)

	convertedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	unchangedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

type model struct {
	conv     Converter
	fallback string
	input    textarea.Model
	result   hanja.Result
	width    int
}

// New returns the converter model. fallback is shown for unchanged input.
func New(conv Converter, fallback string) model {
	ta := textarea.New()
	ta.Placeholder = "漢字를 입력하세요..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 4000
	ta.SetWidth(60)
	ta.SetHeight(4)
	ta.Focus()

	return model{
		conv:     conv,
		fallback: fallback,
		input:    ta,
		result:   hanja.Unchanged(),
		width:    60,
	}
}

func (m model) Init() tea.Cmd {
	return textarea.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyCtrlL:
			m.input.Reset()
			m.result = hanja.Unchanged()
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.width = max(20, msg.Width-4)
		m.input.SetWidth(m.width)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.result = m.conv.Convert(m.input.Value())
	return m, cmd
}

func (m model) output() string {
	if m.input.Value() == "" {
		return ""
	}
	return m.result.Or(m.fallback)
}

func (m model) status() string {
	runes := utf8.RuneCountInString(m.input.Value())
	if m.result.Converted() {
		return convertedStyle.Render(fmt.Sprintf("converted · %d chars", runes))
	}
	return unchangedStyle.Render(fmt.Sprintf("unchanged · %d chars", runes))
}

func (m model) View() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("한자 → 한글"))
	s.WriteString("\n\n")
	s.WriteString(m.input.View())
	s.WriteString("\n\n")

	out := m.output()
	if out == "" {
		out = helpStyle.Render("(output)")
	}
	s.WriteString(outputStyle.Width(m.width).Render(out))
	s.WriteString("\n")

	if text, ok := m.result.Value(); ok {
		if roman := transliteration.Romanize(text); roman != "" {
			s.WriteString(romanStyle.Render(roman))
			s.WriteString("\n")
		}
	}

	s.WriteString("\n")
	s.WriteString(m.status())
	s.WriteString("  ")
	s.WriteString(helpStyle.Render("ctrl+l=clear • esc/ctrl+c=quit"))
	return s.String()
}

// Run starts the program on in and out and returns the final input text.
func Run(conv Converter, fallback string, in io.Reader, out io.Writer) (string, error) {
	p := tea.NewProgram(New(conv, fallback), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return "", err
	}
	return final.(model).input.Value(), nil
}
