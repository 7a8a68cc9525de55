package app

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/threatflux/violetearClient/internal/models"
	"github.com/threatflux/violetearClient/pkg/client"
)

func TestProfiles_ToggleIsXOR(t *testing.T) {
	h := loggedIn(t, Options{})
	reg := h.app.ProfileRegistry()
	names := []string{"p1", "p2"}

	rng := rand.New(rand.NewSource(7))
	counts := map[string]int{}
	for i := 0; i < 50; i++ {
		name := names[rng.Intn(len(names))]
		counts[name]++
		reg.Toggle(name)
	}

	for _, name := range names {
		assert.Equal(t, counts[name]%2 == 0, h.app.Enabled().Has(name), name)
	}
}

func TestProfiles_ToggleUnknownIgnored(t *testing.T) {
	h := loggedIn(t, Options{})
	before := h.app.Enabled()

	h.app.ProfileRegistry().Toggle("nope")

	assert.True(t, h.app.Enabled().Equal(before))
	assert.False(t, h.app.Enabled().Has("nope"))
}

func TestProfiles_ToggleReplacesSnapshot(t *testing.T) {
	h := loggedIn(t, Options{})
	before := h.app.Enabled()

	h.app.ProfileRegistry().Toggle("p1")

	assert.True(t, before.Has("p1"))
	assert.False(t, h.app.Enabled().Has("p1"))
}

func TestProfiles_FetchResetsToggles(t *testing.T) {
	h := loggedIn(t, Options{})
	h.app.ProfileRegistry().Toggle("p1")
	h.app.ProfileRegistry().Toggle("p2")
	require.Equal(t, 0, h.app.Enabled().Len())

	incoming := []models.Profile{{ID: 3, MachineName: "p3"}, {ID: 1, MachineName: "p1"}}
	h.api.On("ListProfiles", mock.Anything, "tok").Return(incoming, nil).Once()
	h.run(h.app.ProfileRegistry().Fetch())

	assert.True(t, h.app.Enabled().Equal(models.NewProfileSet("p1", "p3")))
	assert.Equal(t, incoming, h.app.Profiles())
}

func TestProfiles_FetchFailure(t *testing.T) {
	h := newHarness(t, "tok", Options{})
	h.api.On("ListProfiles", mock.Anything, "tok").Return(nil, &client.APIError{StatusCode: 401}).Once()
	h.boot()

	assert.Equal(t, ErrTextProfiles, h.app.ProfilesError())
	assert.Equal(t, Failed, h.app.Op(OpProfiles))
	assert.False(t, h.app.ProfileRegistry().Loaded())
	assert.Equal(t, models.SceneLoading, h.app.Scene())

	h.api.On("ListProfiles", mock.Anything, "tok").Return(twoProfiles(), nil).Once()
	h.run(h.app.ProfileRegistry().Fetch())

	assert.Empty(t, h.app.ProfilesError())
	assert.Equal(t, models.SceneLoggedIn, h.app.Scene())
}

func TestProfiles_FetchRequiresToken(t *testing.T) {
	h := newHarness(t, "", Options{})
	assert.Nil(t, h.app.ProfileRegistry().Fetch())
}

func TestProfiles_StaleResultDropped(t *testing.T) {
	h := newHarness(t, "tok", Options{})
	reg := h.app.ProfileRegistry()

	h.api.On("ListProfiles", mock.Anything, "tok").Return([]models.Profile{{MachineName: "old"}}, nil).Once()
	first := h.collect(reg.Fetch())
	h.api.On("ListProfiles", mock.Anything, "tok").Return(twoProfiles(), nil).Once()
	second := h.collect(reg.Fetch())

	h.app.Update(first[0])
	assert.False(t, reg.Loaded())

	h.app.Update(second[0])
	assert.True(t, reg.Loaded())
	assert.True(t, h.app.Enabled().Equal(models.NewProfileSet("p1", "p2")))
}

func TestProfiles_ResultAfterLogoutDropped(t *testing.T) {
	h := loggedIn(t, Options{})

	h.api.On("ListProfiles", mock.Anything, "tok").Return(twoProfiles(), nil).Once()
	pending := h.collect(h.app.ProfileRegistry().Fetch())

	h.api.On("Logout", mock.Anything, "tok").Return(nil).Once()
	h.run(h.app.Auth().Logout())

	h.app.Update(pending[0])
	assert.False(t, h.app.ProfileRegistry().Loaded())
	assert.Nil(t, h.app.Profiles())
	assert.Equal(t, Idle, h.app.Op(OpProfiles))
}
