package app

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/threatflux/violetearClient/internal/models"
	"github.com/threatflux/violetearClient/pkg/client"
)

// AuthController owns the login/register form and the token lifecycle.
// Login, register and logout share one slot.
type AuthController struct {
	app  *App
	slot slot
	form models.Credentials

	formErr   string
	logoutErr string
	// consecutive logout failures since the last success
	logoutFailures int
}

// UpdateForm sets one field of the credentials form. Unknown fields are
// logged and ignored.
func (c *AuthController) UpdateForm(field, value string) {
	if err := c.form.Set(field, value); err != nil {
		c.app.log.WithError(err).Warn("Ignoring form update")
	}
}

// Form returns the pending credentials
func (c *AuthController) Form() models.Credentials {
	return c.form
}

// Login submits the form to the login endpoint
func (c *AuthController) Login() tea.Cmd {
	return c.authenticate(OpLogin)
}

// Register submits the form to the registration endpoint
func (c *AuthController) Register() tea.Cmd {
	return c.authenticate(OpRegister)
}

func (c *AuthController) authenticate(op Operation) tea.Cmd {
	a := c.app
	if a.config == nil || a.Disabled(op) {
		return nil
	}

	c.formErr = ""
	creds := c.form
	c.form.Reset()

	ctx, gen := a.issue(&c.slot, op)
	api := a.api
	return func() tea.Msg {
		var token string
		var err error
		if op == OpRegister {
			token, err = api.Register(ctx, creds)
		} else {
			token, err = api.Login(ctx, creds)
		}
		return authDoneMsg{gen: gen, op: op, token: token, err: err}
	}
}

func (c *AuthController) handleAuth(msg authDoneMsg) tea.Cmd {
	a := c.app
	if !c.slot.accept(msg.gen) {
		a.log.WithField("op", msg.op).Debug("Dropping stale authentication result")
		return nil
	}
	c.slot.release()

	if msg.err != nil {
		text := ErrTextLogin
		if msg.op == OpRegister {
			text = ErrTextRegister
		}
		c.formErr = text
		a.failure(msg.op, msg.err, text)
		return nil
	}

	a.session = a.session.WithToken(msg.token)
	a.store.Persist(a.ctx, a.session)
	a.ops.set(msg.op, Succeeded)
	c.logoutErr = ""
	c.logoutFailures = 0
	a.log.WithField("op", msg.op).Info("Authenticated")

	return a.profiles.Fetch()
}

// Logout revokes the current token
func (c *AuthController) Logout() tea.Cmd {
	a := c.app
	if !a.session.HasToken() || a.Disabled(OpLogout) {
		return nil
	}

	c.logoutErr = ""
	token := a.session.TokenValue()
	ctx, gen := a.issue(&c.slot, OpLogout)
	api := a.api
	return func() tea.Msg {
		return logoutDoneMsg{gen: gen, err: api.Logout(ctx, token)}
	}
}

func (c *AuthController) handleLogout(msg logoutDoneMsg) tea.Cmd {
	a := c.app
	if !c.slot.accept(msg.gen) {
		a.log.Debug("Dropping stale logout result")
		return nil
	}
	c.slot.release()

	// the server no longer honours the token, so there is nothing left to revoke
	if errors.Is(msg.err, client.ErrUnauthorized) {
		a.ops.set(OpLogout, Succeeded)
		a.log.Info("Logout rejected the token, clearing session")
		c.clearSession()
		return nil
	}

	if msg.err != nil {
		c.logoutErr = ErrTextLogout
		c.logoutFailures++
		a.failure(OpLogout, msg.err, ErrTextLogout)

		limit := a.opts.ForceClearAfter
		if limit > 0 && c.logoutFailures >= limit {
			a.log.WithField("failures", c.logoutFailures).Warn("Clearing session locally after repeated logout failures")
			c.clearSession()
		}
		return nil
	}

	a.ops.set(OpLogout, Succeeded)
	a.log.Info("Logged out")
	c.clearSession()
	return nil
}

// clearSession forgets the token and everything that was fetched with it
func (c *AuthController) clearSession() {
	a := c.app
	a.session = a.session.Cleared()
	a.store.Persist(a.ctx, a.session)

	c.formErr = ""
	c.logoutErr = ""
	c.logoutFailures = 0

	a.profiles.reset()
	a.upload.reset()
	a.poller.Cancel()
}
