package login

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sbabadag/sevapp/internal/theme"
)

// SubmittedMsg carries the credentials entered in the login form.
type SubmittedMsg struct {
	Email    string
	Password string
}

// Model is the sign-in form shown when no stored session could be
// restored.
type Model struct {
	form     *huh.Form
	email    string
	password string
	errMsg   string
	width    int
	height   int
}

// New creates a new login form model.
func New(width, height int) Model {
	m := Model{width: width, height: height}
	m.form = m.buildForm()
	return m
}

// buildForm constructs the email/password form.
func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Placeholder("you@example.com").
				Value(&m.email),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.password),
		),
	)
}

// SetError displays a sign-in failure message and resets the form for
// another attempt.
func (m *Model) SetError(msg string) {
	m.errMsg = msg
	m.password = ""
	m.form = m.buildForm()
}

// SetSize updates the layout dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Init initializes the form.
func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

// Update drives the form and emits SubmittedMsg when it completes.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		email, password := m.email, m.password
		submitted := m
		submitted.form = m.buildForm()
		return submitted, func() tea.Msg {
			return SubmittedMsg{Email: email, Password: password}
		}
	}

	return m, cmd
}

// View renders the form with an optional error line.
func (m Model) View() string {
	header := theme.HeaderStyle.Render("Sign in to SevApp")
	parts := []string{header, m.form.View()}
	if m.errMsg != "" {
		parts = append(parts, lipgloss.NewStyle().Foreground(theme.ColorRed).Render(m.errMsg))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
