package notifcenter

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sbabadag/sevapp/internal/keys"
	"github.com/sbabadag/sevapp/internal/notify"
	"github.com/sbabadag/sevapp/internal/theme"
)

// StoreUpdatedMsg is sent whenever the notification store's state has
// changed and the list should re-render from a fresh snapshot.
type StoreUpdatedMsg struct{}

// Model is the notification center view: the store's record list with
// an unread badge, driven entirely by store snapshots.
type Model struct {
	list   list.Model
	store  *notify.Store
	keys   *keys.KeyMap
	state  notify.State
	width  int
	height int
}

// New creates a new notification center model over the given store.
func New(s *notify.Store, k *keys.KeyMap, width, height int) Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.NormalTitle = theme.ListItemStyle
	delegate.Styles.NormalDesc = theme.ListItemStyle.Foreground(theme.ColorGray)
	delegate.Styles.SelectedTitle = theme.SelectedItemStyle
	delegate.Styles.SelectedDesc = theme.SelectedItemStyle

	l := list.New([]list.Item{}, delegate, width, height-4)
	l.Title = "Notifications"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:   l,
		store:  s,
		keys:   k,
		width:  width,
		height: height,
	}
}

// Init starts listening for store updates.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refreshFromStore(), m.waitForUpdate())
}

// SetSize updates the layout dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-4)
}

// waitForUpdate returns a command that blocks until the store signals
// a state change, then re-issues itself from Update to keep listening.
func (m Model) waitForUpdate() tea.Cmd {
	updates := m.store.Updates()
	return func() tea.Msg {
		<-updates
		return StoreUpdatedMsg{}
	}
}

// refreshFromStore rebuilds the visible list from a store snapshot.
func (m Model) refreshFromStore() tea.Cmd {
	return func() tea.Msg {
		return StoreUpdatedMsg{}
	}
}

// Update handles messages for the notification center view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case StoreUpdatedMsg:
		m.state = m.store.Snapshot()
		items := make([]list.Item, len(m.state.Records))
		for i, n := range m.state.Records {
			items[i] = NotificationItem{Notification: n}
		}
		cmd := m.list.SetItems(items)
		return m, tea.Batch(cmd, m.waitForUpdate())

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.MarkRead):
			if item, ok := m.list.SelectedItem().(NotificationItem); ok {
				m.store.MarkAsRead(item.Notification.ID)
			}
			return m, nil

		case key.Matches(msg, m.keys.MarkAllRead):
			m.store.MarkAllAsRead()
			return m, nil

		case key.Matches(msg, m.keys.Refresh):
			m.store.Refresh()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the header with the unread badge, the list, and the
// keybinding hints.
func (m Model) View() string {
	header := theme.HeaderStyle.Render("SevApp")
	if m.state.UnreadCount > 0 {
		header = lipgloss.JoinHorizontal(lipgloss.Top,
			header, " ", theme.BadgeStyle.Render(fmt.Sprintf("%d unread", m.state.UnreadCount)),
		)
	}
	if m.state.Loading {
		header = lipgloss.JoinHorizontal(lipgloss.Top,
			header, " ", theme.HelpStyle.Render("syncing…"),
		)
	}

	status := theme.StatusBarStyle.Render(
		fmt.Sprintf("%d notifications · %d unread", len(m.state.Records), m.state.UnreadCount),
	)
	help := theme.HelpStyle.Render("enter mark read · a mark all · r refresh · q quit")

	return lipgloss.JoinVertical(lipgloss.Left, header, m.list.View(), status, help)
}
