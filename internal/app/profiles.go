package app

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/threatflux/violetearClient/internal/models"
)

// ProfileRegistry holds the available scanning profiles and the enabled subset.
// Both are immutable snapshots replaced wholesale.
type ProfileRegistry struct {
	app  *App
	slot slot

	profiles []models.Profile
	enabled  models.ProfileSet
	loaded   bool
	err      string
}

// Fetch loads the profile list. Requires a token.
func (p *ProfileRegistry) Fetch() tea.Cmd {
	a := p.app
	if !a.session.HasToken() {
		return nil
	}

	p.err = ""
	token := a.session.TokenValue()
	ctx, gen := a.issue(&p.slot, OpProfiles)
	api := a.api
	return func() tea.Msg {
		profiles, err := api.ListProfiles(ctx, token)
		return profilesFetchedMsg{gen: gen, profiles: profiles, err: err}
	}
}

func (p *ProfileRegistry) handle(msg profilesFetchedMsg) tea.Cmd {
	a := p.app
	if !p.slot.accept(msg.gen) {
		a.log.Debug("Dropping stale profile list")
		return nil
	}
	p.slot.release()

	if msg.err != nil {
		p.err = ErrTextProfiles
		a.failure(OpProfiles, msg.err, ErrTextProfiles)
		return nil
	}

	p.profiles = msg.profiles
	p.enabled = models.NewProfileSet(models.MachineNames(msg.profiles)...)
	p.loaded = true
	a.ops.set(OpProfiles, Succeeded)
	a.log.WithField("count", len(msg.profiles)).Info("Profiles were fetched")
	return nil
}

// Toggle flips whether the named profile is enabled. Unknown names are ignored.
func (p *ProfileRegistry) Toggle(machineName string) {
	if !p.known(machineName) {
		return
	}
	p.enabled = p.enabled.Toggle(machineName)
}

// Loaded reports whether a profile list has been fetched for this session
func (p *ProfileRegistry) Loaded() bool {
	return p.loaded
}

func (p *ProfileRegistry) known(name string) bool {
	for _, profile := range p.profiles {
		if profile.MachineName == name {
			return true
		}
	}
	return false
}

func (p *ProfileRegistry) reset() {
	p.app.abandon(&p.slot)
	p.profiles = nil
	p.enabled = models.NewProfileSet()
	p.loaded = false
	p.err = ""
}
