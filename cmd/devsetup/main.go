// devsetup prepares a local development checkout: a self-signed certificate
// for the dev HTTPS listener, a .env for cmd/web, and the dictionary tables
// imported into the configured database.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/samber/lo"

	"github.com/jusunglee/hanjahangul/internal/config"
	"github.com/jusunglee/hanjahangul/internal/db/connect"
	"github.com/jusunglee/hanjahangul/internal/devcert"
	"github.com/jusunglee/hanjahangul/internal/dictionary"
	"github.com/jusunglee/hanjahangul/internal/hanja"
)

const (
	envPath            = ".env"
	defaultDatabaseURL = "./hanjahangul.db"
)

type step int

const (
	stepCert step = iota
	stepEnv
	stepDictionary
	stepComplete
)

var stepNames = []string{
	"TLS Certificate",
	"Environment (.env)",
	"Dictionary Import",
	"Complete",
}

type envField int

const (
	fieldDatabaseURL envField = iota
	fieldAdminPassword
	fieldDone
)

var envFieldNames = []string{
	"Database URL (optional)",
	"Admin Password (optional)",
}

type model struct {
	step         step
	envField     envField
	textInput    textinput.Model
	envValues    map[envField]string
	server       config.Server
	imported     map[hanja.Table]int64
	err          error
	skippedSteps map[step]bool
}

type stepDoneMsg struct {
	skipped bool
}
type stepErrorMsg struct{ err error }
type importDoneMsg struct {
	counts  map[hanja.Table]int64
	skipped bool
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	activeStepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true)

	completedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	subtleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2)
)

func initialModel() model {
	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 60
	ti.Placeholder = defaultDatabaseURL

	return model{
		step:         stepCert,
		envField:     fieldDatabaseURL,
		textInput:    ti,
		envValues:    make(map[envField]string),
		server:       config.ForMode(config.ModeDev),
		skippedSteps: make(map[step]bool),
	}
}

func (m model) Init() tea.Cmd {
	return m.runCurrentStep()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			if m.step == stepEnv && m.envField < fieldDone {
				return m.handleEnvInput()
			}
			if m.step == stepComplete || m.err != nil {
				return m, tea.Quit
			}
		case "tab":
			if m.step == stepEnv && m.envField < fieldDone {
				m.textInput.SetValue("")
				return m.handleEnvInput()
			}
		}

	case stepDoneMsg:
		return m.advance(msg.skipped)

	case importDoneMsg:
		m.imported = msg.counts
		return m.advance(msg.skipped)

	case stepErrorMsg:
		m.err = msg.err
		return m, nil
	}

	if m.step == stepEnv && m.envField < fieldDone {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m model) advance(skipped bool) (tea.Model, tea.Cmd) {
	m.skippedSteps[m.step] = skipped
	m.step++
	if m.step == stepEnv && envFileExists() {
		m.skippedSteps[stepEnv] = true
		m.step++
	}
	if m.step <= stepComplete {
		return m, m.runCurrentStep()
	}
	return m, nil
}

func (m model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("hanjahangul - Developer Setup"))
	s.WriteString("\n\n")

	s.WriteString(m.renderProgress())
	s.WriteString("\n\n")

	s.WriteString(m.renderStepContent())
	s.WriteString("\n\n")

	s.WriteString(subtleStyle.Render("enter=continue • esc/ctrl+c=quit"))
	if m.step == stepEnv && m.envField < fieldDone {
		s.WriteString(subtleStyle.Render(" • tab=skip"))
	}

	return boxStyle.Render(s.String())
}

func (m model) renderProgress() string {
	var dots []string
	for i := range int(stepComplete) + 1 {
		switch {
		case i < int(m.step):
			dots = append(dots, completedStyle.Render("●"))
		case i == int(m.step):
			dots = append(dots, activeStepStyle.Render("●"))
		default:
			dots = append(dots, stepStyle.Render("○"))
		}
	}

	return fmt.Sprintf("[%s]  %s", strings.Join(dots, " "),
		activeStepStyle.Render(fmt.Sprintf("Step %d of %d: %s", m.step+1, len(stepNames), stepNames[m.step])))
}

func (m model) renderStepContent() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}

	switch m.step {
	case stepCert:
		return "Generating " + m.server.CertFile + "..."
	case stepEnv:
		return m.renderEnvStep()
	case stepDictionary:
		return "Importing dictionary tables into " + m.databaseURL() + "..."
	case stepComplete:
		return m.renderComplete()
	}
	return ""
}

func (m model) renderEnvStep() string {
	var s strings.Builder
	s.WriteString("Configure your environment:\n\n")
	s.WriteString(activeStepStyle.Render(envFieldNames[m.envField]) + ":\n")

	switch m.envField {
	case fieldDatabaseURL:
		s.WriteString("  A sqlite path or a postgres:// URL.\n")
		s.WriteString(subtleStyle.Render("  Tab keeps " + defaultDatabaseURL + "\n"))
	case fieldAdminPassword:
		s.WriteString("  Protects GET /api/v1/feedback with basic auth (user admin).\n")
		s.WriteString(subtleStyle.Render("  Tab leaves the endpoint disabled\n"))
	}

	s.WriteString("\n")
	s.WriteString(m.textInput.View())
	return s.String()
}

func (m model) renderComplete() string {
	var s strings.Builder
	s.WriteString(completedStyle.Render("✓ Setup complete!"))
	s.WriteString("\n\n")

	skipped := len(lo.PickBy(m.skippedSteps, func(_ step, v bool) bool { return v }))
	if skipped > 0 {
		s.WriteString(subtleStyle.Render(fmt.Sprintf("(%d steps were already configured)\n\n", skipped)))
	}
	for _, t := range hanja.Tables {
		if n, ok := m.imported[t]; ok {
			s.WriteString(fmt.Sprintf("  %-9s %d entries\n", t, n))
		}
	}

	s.WriteString("\nNext steps:\n")
	s.WriteString("  1. Run " + activeStepStyle.Render("go run ./cmd/web") + "\n")
	s.WriteString("  2. Open " + activeStepStyle.Render(m.server.RedirectURL) + " and accept the certificate\n")

	return s.String()
}

func (m model) handleEnvInput() (tea.Model, tea.Cmd) {
	m.envValues[m.envField] = strings.TrimSpace(m.textInput.Value())
	m.textInput.SetValue("")
	m.envField++

	if m.envField == fieldAdminPassword {
		m.textInput.Placeholder = ""
		m.textInput.EchoMode = textinput.EchoPassword
	}
	if m.envField == fieldDone {
		return m, m.writeEnvFile()
	}
	return m, nil
}

func (m model) databaseURL() string {
	if url := m.envValues[fieldDatabaseURL]; url != "" {
		return url
	}
	if env, err := godotenv.Read(envPath); err == nil && env["DATABASE_URL"] != "" {
		return env["DATABASE_URL"]
	}
	return defaultDatabaseURL
}

func (m model) env() map[string]string {
	env := map[string]string{
		"MODE":              string(config.ModeDev),
		"DATABASE_URL":      lo.CoalesceOrEmpty(m.envValues[fieldDatabaseURL], defaultDatabaseURL),
		"DICTIONARY_SOURCE": "db",
		"LOG_LEVEL":         "debug",
	}
	if pw := m.envValues[fieldAdminPassword]; pw != "" {
		env["ADMIN_PASSWORD"] = pw
	}
	return env
}

func (m model) writeEnvFile() tea.Cmd {
	env := m.env()
	return func() tea.Msg {
		if err := godotenv.Write(env, envPath); err != nil {
			return stepErrorMsg{err}
		}
		if err := os.Chmod(envPath, 0o600); err != nil {
			return stepErrorMsg{err}
		}
		return stepDoneMsg{skipped: false}
	}
}

func (m model) runCurrentStep() tea.Cmd {
	switch m.step {
	case stepCert:
		return generateCert(m.server)
	case stepDictionary:
		return importDictionary(m.databaseURL())
	}
	return nil
}

func envFileExists() bool {
	_, err := os.Stat(envPath)
	return err == nil
}

func generateCert(server config.Server) tea.Cmd {
	return func() tea.Msg {
		if devcert.Exists(server.CertFile, server.KeyFile) {
			return stepDoneMsg{skipped: true}
		}
		err := devcert.Generate(devcert.Options{
			CertFile: server.CertFile,
			KeyFile:  server.KeyFile,
		})
		if err != nil {
			return stepErrorMsg{fmt.Errorf("failed to generate certificate: %w", err)}
		}
		return stepDoneMsg{skipped: false}
	}
}

func importDictionary(databaseURL string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		repo, err := connect.Open(ctx, databaseURL)
		if err != nil {
			return stepErrorMsg{fmt.Errorf("failed to open database: %w", err)}
		}
		defer repo.Close()

		if existing, err := dictionary.FromRepository(ctx, repo); err == nil {
			stats := existing.Stats()
			counts := lo.SliceToMap(hanja.Tables, func(t hanja.Table) (hanja.Table, int64) {
				return t, int64(stats.Count(t))
			})
			return importDoneMsg{skipped: true, counts: counts}
		}

		counts, err := dictionary.Import(ctx, repo, hanja.EmbeddedFS(), hanja.LoadOptions{Encoding: hanja.EncodingUTF8})
		if err != nil {
			return stepErrorMsg{fmt.Errorf("failed to import dictionary: %w", err)}
		}
		return importDoneMsg{counts: counts}
	}
}

func main() {
	p := tea.NewProgram(initialModel())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
