package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/threatflux/violetearClient/internal/models"
)

type keyMap struct {
	scene models.Scene
	// the profile fetch failed with a token in hand
	stuck bool

	Quit     key.Binding
	Next     key.Binding
	Submit   key.Binding
	Register key.Binding
	Reload   key.Binding
	Toggle   key.Binding
	Up       key.Binding
	Down     key.Binding
	Logout   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
		Next: key.NewBinding(
			key.WithKeys("tab", "shift+tab"),
			key.WithHelp("tab", "switch field"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "submit"),
		),
		Register: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "register"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "retry"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "toggle profile"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Logout: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "logout"),
		),
	}
}

// ShortHelp implements help.KeyMap for the active scene
func (k keyMap) ShortHelp() []key.Binding {
	switch k.scene {
	case models.SceneLoginRegister:
		return []key.Binding{k.Next, k.Submit, k.Register, k.Quit}
	case models.SceneFetchConfigError:
		return []key.Binding{k.Reload, k.Quit}
	case models.SceneLoggedIn:
		return []key.Binding{k.Next, k.Up, k.Down, k.Toggle, k.Submit, k.Logout, k.Quit}
	case models.SceneLoading:
		if k.stuck {
			return []key.Binding{k.Reload, k.Logout, k.Quit}
		}
	}
	return []key.Binding{k.Reload, k.Quit}
}

// FullHelp implements help.KeyMap
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
