package app

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/threatflux/violetearClient/internal/models"
	"github.com/threatflux/violetearClient/pkg/client"
)

func fillForm(t *testing.T, a *App) models.Credentials {
	t.Helper()
	a.Auth().UpdateForm(models.FieldUsername, "alice")
	a.Auth().UpdateForm(models.FieldPassword, "secret")
	return models.Credentials{Username: "alice", Password: "secret"}
}

func TestLogin_Success(t *testing.T) {
	h := newHarness(t, "", Options{})
	h.boot()
	creds := fillForm(t, h.app)

	h.api.On("Login", mock.Anything, creds).Return("tok", nil).Once()
	h.api.On("ListProfiles", mock.Anything, "tok").Return(twoProfiles(), nil).Once()
	h.run(h.app.Auth().Login())

	assert.Equal(t, "tok", h.app.Session().TokenValue())
	assert.Equal(t, "tok", h.store.Restore(context.Background()).TokenValue())
	assert.Equal(t, Succeeded, h.app.Op(OpLogin))
	assert.False(t, h.app.Disabled(OpLogin))
	assert.False(t, h.app.Disabled(OpRegister))
	assert.Empty(t, h.app.FormError())
	assert.Equal(t, models.Credentials{}, h.app.Auth().Form())
	assert.Equal(t, models.SceneLoggedIn, h.app.Scene())
	h.api.AssertExpectations(t)
}

func TestRegister_Success(t *testing.T) {
	h := newHarness(t, "", Options{})
	h.boot()
	creds := fillForm(t, h.app)

	h.api.On("Register", mock.Anything, creds).Return("new-tok", nil).Once()
	h.api.On("ListProfiles", mock.Anything, "new-tok").Return([]models.Profile{}, nil).Once()
	h.run(h.app.Auth().Register())

	assert.Equal(t, "new-tok", h.app.Session().TokenValue())
	assert.Equal(t, Succeeded, h.app.Op(OpRegister))
	assert.Equal(t, models.SceneLoggedIn, h.app.Scene())
	assert.Equal(t, 0, h.app.Enabled().Len())
	h.api.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
}

// Scenario E and friends
func TestAuthenticate_Failure(t *testing.T) {
	tests := []struct {
		name   string
		op     Operation
		method string
		err    error
		want   string
	}{
		{
			name:   "login unauthorized",
			op:     OpLogin,
			method: "Login",
			err:    &client.APIError{StatusCode: 401, Message: "invalid credentials"},
			want:   ErrTextLogin,
		},
		{
			name:   "login without token",
			op:     OpLogin,
			method: "Login",
			err:    client.ErrDecodeFailed,
			want:   ErrTextLogin,
		},
		{
			name:   "login transport",
			op:     OpLogin,
			method: "Login",
			err:    client.ErrConnectionFailed,
			want:   ErrTextLogin,
		},
		{
			name:   "register conflict",
			op:     OpRegister,
			method: "Register",
			err:    &client.APIError{StatusCode: 409},
			want:   ErrTextRegister,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "", Options{})
			h.boot()
			fillForm(t, h.app)

			h.api.On(tt.method, mock.Anything, mock.Anything).Return("", tt.err).Once()
			if tt.op == OpRegister {
				h.run(h.app.Auth().Register())
			} else {
				h.run(h.app.Auth().Login())
			}

			assert.Equal(t, tt.want, h.app.FormError())
			assert.Equal(t, Failed, h.app.Op(tt.op))
			assert.False(t, h.app.Disabled(OpLogin))
			assert.False(t, h.app.Disabled(OpRegister))
			assert.False(t, h.app.Session().HasToken())
			assert.Equal(t, models.SceneLoginRegister, h.app.Scene())
			h.api.AssertNotCalled(t, "ListProfiles", mock.Anything, mock.Anything)

			entry := h.hook.LastEntry()
			require.NotNil(t, entry)
			assert.Equal(t, logrus.WarnLevel, entry.Level)
			assert.Equal(t, tt.op, entry.Data["op"])
		})
	}
}

func TestAuthenticate_ErrorClearedOnRetry(t *testing.T) {
	h := newHarness(t, "", Options{})
	h.boot()

	h.api.On("Login", mock.Anything, mock.Anything).Return("", client.ErrTimeout).Once()
	h.run(h.app.Auth().Login())
	require.Equal(t, ErrTextLogin, h.app.FormError())

	cmd := h.app.Auth().Login()
	require.NotNil(t, cmd)
	assert.Empty(t, h.app.FormError())
}

func TestAuthenticate_RequiresConfig(t *testing.T) {
	h := newHarness(t, "", Options{})

	assert.Nil(t, h.app.Auth().Login())
	assert.Nil(t, h.app.Auth().Register())
	assert.Equal(t, Idle, h.app.Op(OpLogin))
}

func TestAuthenticate_DisabledWhileInFlight(t *testing.T) {
	h := newHarness(t, "", Options{})
	h.boot()

	cmd := h.app.Auth().Login()
	require.NotNil(t, cmd)

	assert.Equal(t, InFlight, h.app.Op(OpLogin))
	assert.True(t, h.app.Disabled(OpLogin))
	assert.True(t, h.app.Disabled(OpRegister))
	assert.Nil(t, h.app.Auth().Login())
	assert.Nil(t, h.app.Auth().Register())
}

func TestAuthenticate_StaleResultDropped(t *testing.T) {
	h := newHarness(t, "", Options{})
	h.boot()

	h.api.On("Login", mock.Anything, mock.Anything).Return("", client.ErrTimeout).Once()
	first := h.collect(h.app.Auth().Login())
	require.Len(t, first, 1)
	h.app.Update(first[0])

	h.api.On("Login", mock.Anything, mock.Anything).Return("tok", nil).Once()
	second := h.collect(h.app.Auth().Login())

	// redelivering the first completion must not touch the new attempt
	assert.Nil(t, h.app.Update(first[0]))
	assert.Equal(t, InFlight, h.app.Op(OpLogin))
	assert.False(t, h.app.Session().HasToken())

	h.api.On("ListProfiles", mock.Anything, "tok").Return(twoProfiles(), nil).Once()
	h.run(h.app.Update(second[0]))
	assert.Equal(t, models.SceneLoggedIn, h.app.Scene())
}

func loggedIn(t *testing.T, opts Options) *harness {
	t.Helper()
	h := newHarness(t, "tok", opts)
	h.api.On("ListProfiles", mock.Anything, "tok").Return(twoProfiles(), nil).Once()
	h.boot()
	require.Equal(t, models.SceneLoggedIn, h.app.Scene())
	return h
}

func TestLogout_Success(t *testing.T) {
	h := loggedIn(t, Options{})

	h.api.On("Logout", mock.Anything, "tok").Return(nil).Once()
	h.run(h.app.Auth().Logout())

	assert.False(t, h.app.Session().HasToken())
	assert.False(t, h.store.Restore(context.Background()).HasToken())
	assert.Equal(t, Succeeded, h.app.Op(OpLogout))
	assert.Empty(t, h.app.LogoutError())
	assert.Empty(t, h.app.FormError())
	assert.Nil(t, h.app.Profiles())
	assert.False(t, h.app.ProfileRegistry().Loaded())
	assert.Equal(t, models.SceneLoginRegister, h.app.Scene())
}

func TestLogout_FailureKeepsToken(t *testing.T) {
	h := loggedIn(t, Options{})

	h.api.On("Logout", mock.Anything, "tok").Return(&client.APIError{StatusCode: 500}).Times(3)
	for i := 0; i < 3; i++ {
		h.run(h.app.Auth().Logout())
	}

	assert.Equal(t, "tok", h.app.Session().TokenValue())
	assert.Equal(t, "tok", h.store.Restore(context.Background()).TokenValue())
	assert.Equal(t, ErrTextLogout, h.app.LogoutError())
	assert.Equal(t, Failed, h.app.Op(OpLogout))
	assert.False(t, h.app.Disabled(OpLogout))
	assert.Equal(t, models.SceneLoggedIn, h.app.Scene())
}

func TestLogout_RejectedTokenClearsSession(t *testing.T) {
	h := loggedIn(t, Options{})

	h.api.On("Logout", mock.Anything, "tok").Return(&client.APIError{StatusCode: 401}).Once()
	h.run(h.app.Auth().Logout())

	assert.False(t, h.app.Session().HasToken())
	assert.False(t, h.store.Restore(context.Background()).HasToken())
	assert.Equal(t, Succeeded, h.app.Op(OpLogout))
	assert.Empty(t, h.app.LogoutError())
	assert.Equal(t, models.SceneLoginRegister, h.app.Scene())
}

func TestLogout_ForceClearAfterRepeatedFailures(t *testing.T) {
	h := loggedIn(t, Options{ForceClearAfter: 2})

	h.api.On("Logout", mock.Anything, "tok").Return(client.ErrConnectionFailed).Twice()

	h.run(h.app.Auth().Logout())
	require.True(t, h.app.Session().HasToken())

	h.run(h.app.Auth().Logout())
	assert.False(t, h.app.Session().HasToken())
	assert.False(t, h.store.Restore(context.Background()).HasToken())
	assert.Equal(t, models.SceneLoginRegister, h.app.Scene())

	var warned bool
	for _, entry := range h.hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && entry.Message == "Clearing session locally after repeated logout failures" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestLogout_FailureCountResetsOnSuccess(t *testing.T) {
	h := loggedIn(t, Options{ForceClearAfter: 2})

	h.api.On("Logout", mock.Anything, "tok").Return(errors.New("boom")).Once()
	h.run(h.app.Auth().Logout())
	require.Equal(t, 1, h.app.Auth().logoutFailures)

	h.api.On("Logout", mock.Anything, "tok").Return(nil).Once()
	h.run(h.app.Auth().Logout())
	assert.Equal(t, 0, h.app.Auth().logoutFailures)
	assert.False(t, h.app.Session().HasToken())
}

func TestLogout_RequiresToken(t *testing.T) {
	h := newHarness(t, "", Options{})
	h.boot()

	assert.Nil(t, h.app.Auth().Logout())
	assert.Equal(t, Idle, h.app.Op(OpLogout))
}

func TestLogout_DisabledWhileInFlight(t *testing.T) {
	h := loggedIn(t, Options{})

	require.NotNil(t, h.app.Auth().Logout())
	assert.True(t, h.app.Disabled(OpLogout))
	assert.Nil(t, h.app.Auth().Logout())
}

func TestUpdateForm_UnknownField(t *testing.T) {
	h := newHarness(t, "", Options{})
	h.app.Auth().UpdateForm(models.FieldUsername, "alice")
	h.app.Auth().UpdateForm("email", "x")

	assert.Equal(t, models.Credentials{Username: "alice"}, h.app.Auth().Form())
	entry := h.hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "Ignoring form update", entry.Message)
	assert.Contains(t, entry.Data[logrus.ErrorKey].(error).Error(), "email")
}
