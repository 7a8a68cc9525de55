package app

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/threatflux/violetearClient/pkg/client"
)

// ConfigLoader fetches the runtime configuration that points the client at the API
type ConfigLoader struct {
	app  *App
	slot slot
}

// Load fetches /config.json. There is no automatic retry.
func (l *ConfigLoader) Load() tea.Cmd {
	a := l.app
	ctx, gen := a.issue(&l.slot, OpConfig)
	api := a.api
	return func() tea.Msg {
		cfg, err := api.FetchConfig(ctx)
		return configFetchedMsg{gen: gen, config: cfg, err: err}
	}
}

// Reload fetches the configuration again after a failure
func (l *ConfigLoader) Reload() tea.Cmd {
	return l.Load()
}

func (l *ConfigLoader) handle(msg configFetchedMsg) tea.Cmd {
	a := l.app
	if !l.slot.accept(msg.gen) {
		a.log.WithField("generation", msg.gen).Debug("Dropping stale configuration")
		return nil
	}
	l.slot.release()

	if msg.err != nil {
		a.failure(OpConfig, msg.err, "Could not fetch configuration")
		return nil
	}
	if msg.config == nil {
		a.failure(OpConfig, client.ErrDecodeFailed, "Could not fetch configuration")
		return nil
	}
	if err := a.api.SetAPIURL(msg.config.APIURL); err != nil {
		a.failure(OpConfig, err, "Could not apply configuration")
		return nil
	}

	a.config = msg.config
	a.ops.set(OpConfig, Succeeded)
	a.log.WithFields(logrus.Fields{
		"api_url": msg.config.APIURL,
		"source":  client.APIPathConfig,
	}).Info("Configuration was fetched")

	if a.session.HasToken() {
		return a.profiles.Fetch()
	}
	return nil
}
