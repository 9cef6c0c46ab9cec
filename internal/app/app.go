package app

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sbabadag/sevapp/internal/credential"
	"github.com/sbabadag/sevapp/internal/keys"
	"github.com/sbabadag/sevapp/internal/notify"
	"github.com/sbabadag/sevapp/internal/supabase"
	"github.com/sbabadag/sevapp/internal/ui/login"
	"github.com/sbabadag/sevapp/internal/ui/notifcenter"
)

// bootstrapTimeout bounds the startup session restore; when it expires
// the app proceeds degraded to the login form instead of hanging.
const bootstrapTimeout = 5 * time.Second

// signInTimeout bounds an interactive sign-in attempt.
const signInTimeout = 15 * time.Second

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewLogin ViewState = iota
	ViewCenter
)

// sessionRestoredMsg carries the result of the startup session restore.
type sessionRestoredMsg struct {
	session *supabase.Session
	err     error
}

// signedInMsg carries the result of an interactive sign-in.
type signedInMsg struct {
	session *supabase.Session
	err     error
}

// errNoStoredSession means the keyring held no refresh token.
var errNoStoredSession = errors.New("no stored session")

// Model is the root Bubble Tea model: it owns the session lifecycle
// and routes between the login form and the notification center.
type Model struct {
	client *supabase.Client
	store  *notify.Store
	keys   *keys.KeyMap

	currentView ViewState
	login       login.Model
	center      notifcenter.Model
	ready       bool
}

// New creates the root application model. The supabase client and the
// notification store are built by the caller and injected here; the
// app only drives their lifecycles.
func New(client *supabase.Client, store *notify.Store) Model {
	k := keys.DefaultKeyMap()
	return Model{
		client:      client,
		store:       store,
		keys:        k,
		currentView: ViewLogin,
		login:       login.New(80, 24),
		center:      notifcenter.New(store, k, 80, 24),
	}
}

// Init attempts to restore the persisted session before showing any view.
func (m Model) Init() tea.Cmd {
	return m.restoreSession()
}

// restoreSession exchanges the keyring-held refresh token for a fresh
// session, bounded by the bootstrap timeout.
func (m Model) restoreSession() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		token, err := credential.Get(credential.RefreshTokenKey)
		if err != nil || token == "" {
			return sessionRestoredMsg{err: errNoStoredSession}
		}

		ctx, cancel := context.WithTimeout(context.Background(), bootstrapTimeout)
		defer cancel()

		session, err := client.RefreshSession(ctx, token)
		return sessionRestoredMsg{session: session, err: err}
	}
}

// signIn performs an interactive credential sign-in.
func (m Model) signIn(email, password string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), signInTimeout)
		defer cancel()

		session, err := client.SignIn(ctx, email, password)
		return signedInMsg{session: session, err: err}
	}
}

// openSession persists the (possibly rotated) refresh token, points the
// notification store at the new identity, and switches to the center.
func (m Model) openSession(session *supabase.Session) (Model, tea.Cmd) {
	if err := credential.Set(credential.RefreshTokenKey, session.RefreshToken); err != nil {
		log.Printf("app: persisting refresh token: %v", err)
	}

	m.store.SetUser(session.UserID)
	m.currentView = ViewCenter
	return m, m.center.Init()
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.login.SetSize(msg.Width, msg.Height)
		m.center.SetSize(msg.Width, msg.Height)
		return m.updateActiveView(msg)

	case sessionRestoredMsg:
		if msg.err != nil || msg.session == nil {
			if !errors.Is(msg.err, errNoStoredSession) {
				log.Printf("app: session restore failed: %v", msg.err)
			}
			m.currentView = ViewLogin
			return m, m.login.Init()
		}
		return m.openSession(msg.session)

	case login.SubmittedMsg:
		return m, m.signIn(msg.Email, msg.Password)

	case signedInMsg:
		if msg.err != nil || msg.session == nil {
			log.Printf("app: sign-in failed: %v", msg.err)
			m.login.SetError("Sign-in failed; check your email and password.")
			return m, m.login.Init()
		}
		return m.openSession(msg.session)

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) && m.currentView != ViewLogin {
			m.store.Close()
			return m, tea.Quit
		}
		return m.updateActiveView(msg)
	}

	return m.updateActiveView(msg)
}

// updateActiveView forwards a message to the currently visible view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.currentView {
	case ViewLogin:
		m.login, cmd = m.login.Update(msg)
	case ViewCenter:
		m.center, cmd = m.center.Update(msg)
	}
	return m, cmd
}

// View renders the active view.
func (m Model) View() string {
	if !m.ready {
		return "Starting…"
	}
	switch m.currentView {
	case ViewLogin:
		return m.login.View()
	default:
		return m.center.View()
	}
}
