// Package tui renders the client core in the terminal.
package tui

import (
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/threatflux/violetearClient/internal/app"
	"github.com/threatflux/violetearClient/internal/models"
)

type focus int

const (
	focusUsername focus = iota
	focusPassword
	focusProfiles
	focusPath
)

// Model is the bubbletea model wrapping the client core
type Model struct {
	app *app.App

	spinner  spinner.Model
	username textinput.Model
	password textinput.Model
	path     textinput.Model
	tasks    table.Model
	help     help.Model
	keys     keyMap

	focus  focus
	cursor int
	width  int
}

// New creates the terminal model for a
func New(a *app.App) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(green))

	username := textinput.New()
	username.Placeholder = "username"
	username.CharLimit = 64
	username.Width = 32
	username.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 128
	password.Width = 32

	path := textinput.New()
	path.Placeholder = "path to the file to scan"
	path.Width = 60

	tasks := table.New(
		table.WithColumns(taskColumns),
		table.WithHeight(taskTableHeight),
		table.WithFocused(false),
	)
	tasks.SetStyles(tableStyles())

	return &Model{
		app:      a,
		spinner:  s,
		username: username,
		password: password,
		path:     path,
		tasks:    tasks,
		help:     help.New(),
		keys:     newKeyMap(),
		focus:    focusUsername,
	}
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.app.Init(), m.spinner.Tick, textinput.Blink)
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.app.Close()
			return m, tea.Quit
		}
		return m, m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	before := m.app.Scene()
	cmd := m.app.Update(msg)
	m.sync(before)
	return m, tea.Batch(cmd, m.updateFocused(msg))
}

// updateFocused forwards cursor blinks to the focused input
func (m *Model) updateFocused(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch m.focus {
	case focusUsername:
		m.username, cmd = m.username.Update(msg)
	case focusPassword:
		m.password, cmd = m.password.Update(msg)
	case focusPath:
		m.path, cmd = m.path.Update(msg)
	}
	return cmd
}

// sync aligns widgets with the core after a state change
func (m *Model) sync(before models.Scene) {
	scene := m.app.Scene()
	if scene != before {
		switch scene {
		case models.SceneLoginRegister:
			m.setFocus(focusUsername)
		case models.SceneLoggedIn:
			m.cursor = 0
			m.setFocus(focusPath)
		}
	}
	if n := len(m.app.Profiles()); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
	m.tasks.SetRows(taskRows(m.app.Tasks(), m.app.Profiles()))
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	before := m.app.Scene()
	var cmd tea.Cmd
	switch before {
	case models.SceneLoginRegister:
		cmd = m.handleLoginKey(msg)
	case models.SceneFetchConfigError:
		if key.Matches(msg, m.keys.Reload) {
			cmd = m.app.Loader().Reload()
		}
	case models.SceneLoggedIn:
		cmd = m.handleLoggedInKey(msg)
	case models.SceneLoading:
		if !m.profilesFailed() {
			break
		}
		// a rejected token would otherwise leave no way out of this scene
		switch {
		case key.Matches(msg, m.keys.Reload):
			cmd = m.app.ProfileRegistry().Fetch()
		case key.Matches(msg, m.keys.Logout):
			cmd = m.app.Auth().Logout()
		}
	}
	m.sync(before)
	return cmd
}

func (m *Model) profilesFailed() bool {
	return m.app.Scene() == models.SceneLoading && m.app.Op(app.OpProfiles) == app.Failed
}

func (m *Model) handleLoginKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Next):
		if m.focus == focusUsername {
			m.setFocus(focusPassword)
		} else {
			m.setFocus(focusUsername)
		}
		return nil
	case key.Matches(msg, m.keys.Submit):
		return m.authenticate(m.app.Auth().Login())
	case key.Matches(msg, m.keys.Register):
		return m.authenticate(m.app.Auth().Register())
	}

	var cmd tea.Cmd
	auth := m.app.Auth()
	if m.focus == focusPassword {
		m.password, cmd = m.password.Update(msg)
		auth.UpdateForm(models.FieldPassword, m.password.Value())
	} else {
		m.username, cmd = m.username.Update(msg)
		auth.UpdateForm(models.FieldUsername, m.username.Value())
	}
	return cmd
}

// authenticate clears the inputs once the core has taken the form
func (m *Model) authenticate(cmd tea.Cmd) tea.Cmd {
	if cmd == nil {
		return nil
	}
	m.username.Reset()
	m.password.Reset()
	return cmd
}

func (m *Model) handleLoggedInKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Logout):
		return m.app.Auth().Logout()
	case key.Matches(msg, m.keys.Next):
		if m.focus == focusPath {
			m.setFocus(focusProfiles)
		} else {
			m.setFocus(focusPath)
		}
		return nil
	}

	if m.focus == focusProfiles {
		profiles := m.app.Profiles()
		switch {
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(profiles)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Toggle):
			if m.cursor < len(profiles) {
				m.app.ProfileRegistry().Toggle(profiles[m.cursor].MachineName)
			}
		}
		return nil
	}

	if key.Matches(msg, m.keys.Submit) {
		return m.app.Uploads().Submit(splitPaths(m.path.Value()))
	}
	var cmd tea.Cmd
	m.path, cmd = m.path.Update(msg)
	return cmd
}

func (m *Model) setFocus(f focus) {
	m.focus = f
	m.username.Blur()
	m.password.Blur()
	m.path.Blur()
	switch f {
	case focusUsername:
		m.username.Focus()
	case focusPassword:
		m.password.Focus()
	case focusPath:
		m.path.Focus()
	}
}

// splitPaths splits the input on the OS list separator, dropping blanks
func splitPaths(value string) []string {
	var paths []string
	for _, p := range filepath.SplitList(value) {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}
