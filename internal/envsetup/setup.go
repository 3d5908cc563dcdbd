// envsetup is the .env wizard that runs on first bot startup when no .env
// file exists.
package envsetup

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

// DefaultDatabaseURL is offered when the user leaves the database empty.
const DefaultDatabaseURL = "./hanjahangul.db"

type field int

const (
	fieldDiscordToken field = iota
	fieldGuildID
	fieldDatabaseURL
	fieldConfirm
	fieldDone
)

type fieldSpec struct {
	env      string
	label    string
	optional bool
	secret   bool
}

var fields = map[field]fieldSpec{
	fieldDiscordToken: {env: "DISCORD_TOKEN", label: "Discord Bot Token", secret: true},
	fieldGuildID:      {env: "DISCORD_GUILD_ID", label: "Discord Guild ID (optional)", optional: true},
	fieldDatabaseURL:  {env: "DATABASE_URL", label: "Database URL (optional)", optional: true},
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	linkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Underline(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82"))
)

type model struct {
	path   string
	field  field
	input  textinput.Model
	values map[field]string
	err    error
	saved  bool
}

// New returns a wizard that writes to path.
func New(path string) model {
	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 60
	ti.EchoMode = textinput.EchoPassword

	return model{
		path:   path,
		field:  fieldDiscordToken,
		input:  ti,
		values: make(map[field]string),
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.handleEnter()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) handleEnter() (tea.Model, tea.Cmd) {
	m.err = nil
	value := strings.TrimSpace(m.input.Value())

	if m.field == fieldConfirm {
		switch strings.ToLower(value) {
		case "", "y", "yes":
			if err := m.writeEnvFile(); err != nil {
				m.err = err
				return m, nil
			}
			m.saved = true
			m.field = fieldDone
			return m, tea.Quit
		case "n", "no":
			return New(m.path), nil
		default:
			m.err = fmt.Errorf("please answer y or n")
			return m, nil
		}
	}

	spec := fields[m.field]
	if value == "" && !spec.optional {
		m.err = fmt.Errorf("%s is required", spec.label)
		return m, nil
	}
	m.values[m.field] = value

	m.field++
	m.input.SetValue("")
	m.input.EchoMode = textinput.EchoNormal
	if next, ok := fields[m.field]; ok && next.secret {
		m.input.EchoMode = textinput.EchoPassword
	}
	return m, nil
}

func (m model) env() map[string]string {
	env := map[string]string{
		"DISCORD_TOKEN": m.values[fieldDiscordToken],
		"DATABASE_URL":  lo.CoalesceOrEmpty(m.values[fieldDatabaseURL], DefaultDatabaseURL),
	}
	if guild := m.values[fieldGuildID]; guild != "" {
		env["DISCORD_GUILD_ID"] = guild
	}
	return env
}

func (m model) writeEnvFile() error {
	if err := godotenv.Write(m.env(), m.path); err != nil {
		return fmt.Errorf("writing %s: %w", m.path, err)
	}
	return os.Chmod(m.path, 0o600)
}

func (m model) View() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("hanjahangul bot - Env Setup"))
	s.WriteString("\n\n")

	switch m.field {
	case fieldDiscordToken:
		s.WriteString("  1. Go to " + linkStyle.Render("https://discord.com/developers/applications") + "\n")
		s.WriteString("  2. Create a new application (or select existing)\n")
		s.WriteString("  3. Go to the Bot section and click 'Reset Token'\n")
		s.WriteString("  4. Invite the bot with the applications.commands scope\n\n")
	case fieldGuildID:
		s.WriteString("  Commands register instantly in a single guild.\n")
		s.WriteString("  Leave empty to register globally.\n\n")
	case fieldDatabaseURL:
		s.WriteString("  Conversions and corrections are stored here.\n")
		s.WriteString("  Leave empty for " + successStyle.Render(DefaultDatabaseURL) + ".\n\n")
	case fieldConfirm:
		env := m.env()
		s.WriteString("Your configuration:\n\n")
		s.WriteString("  Discord:  " + successStyle.Render(maskToken(env["DISCORD_TOKEN"])) + "\n")
		s.WriteString("  Guild:    " + successStyle.Render(lo.CoalesceOrEmpty(env["DISCORD_GUILD_ID"], "(global)")) + "\n")
		s.WriteString("  Database: " + successStyle.Render(env["DATABASE_URL"]) + "\n\n")
		s.WriteString(labelStyle.Render("Save this configuration? [Y/n]:") + "\n")
		s.WriteString(m.input.View())
		if m.err != nil {
			s.WriteString("\n" + errorStyle.Render(m.err.Error()))
		}
		return s.String()
	case fieldDone:
		return successStyle.Render("Saved " + m.path + "\n")
	}

	s.WriteString(labelStyle.Render(fields[m.field].label+":") + "\n")
	s.WriteString(m.input.View())
	if m.err != nil {
		s.WriteString("\n" + errorStyle.Render(m.err.Error()))
	}
	s.WriteString("\n")
	return s.String()
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}

// Run starts the wizard and reports whether path was written.
func Run(path string) (bool, error) {
	p := tea.NewProgram(New(path))
	finalModel, err := p.Run()
	if err != nil {
		return false, err
	}
	return finalModel.(model).saved, nil
}

// NeedsSetup reports whether path is missing.
func NeedsSetup(path string) bool {
	_, err := os.Stat(path)
	return os.IsNotExist(err)
}
