package tui

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/threatflux/violetearClient/internal/app"
	"github.com/threatflux/violetearClient/internal/models"
	"github.com/threatflux/violetearClient/internal/session"
	"github.com/threatflux/violetearClient/pkg/client"
)

// fakeAPI answers every call from its fields
type fakeAPI struct {
	configErr error
	token     string
	loginErr  error
	logoutErr error
	profiles  []models.Profile
	// profilesErr rejects the profile list, as for an expired token
	profilesErr error
	logins      []models.Credentials
	logouts     int
	uploads     int
}

func (f *fakeAPI) FetchConfig(ctx context.Context) (*models.Config, error) {
	if f.configErr != nil {
		return nil, f.configErr
	}
	return &models.Config{APIURL: "https://api.x"}, nil
}

func (f *fakeAPI) SetAPIURL(string) error { return nil }

func (f *fakeAPI) Login(ctx context.Context, creds models.Credentials) (string, error) {
	f.logins = append(f.logins, creds)
	return f.token, f.loginErr
}

func (f *fakeAPI) Register(ctx context.Context, creds models.Credentials) (string, error) {
	return f.token, f.loginErr
}

func (f *fakeAPI) Logout(ctx context.Context, token string) error {
	f.logouts++
	return f.logoutErr
}

func (f *fakeAPI) ListProfiles(ctx context.Context, token string) ([]models.Profile, error) {
	if f.profilesErr != nil {
		return nil, f.profilesErr
	}
	return f.profiles, nil
}

func (f *fakeAPI) CreateReport(ctx context.Context, token, profiles string, content []byte) (*models.Report, error) {
	f.uploads++
	return &models.Report{ID: 1}, nil
}

func (f *fakeAPI) ListTasks(ctx context.Context, token string, reportID int64) ([]models.Task, error) {
	return []models.Task{}, nil
}

var _ client.Client = (*fakeAPI)(nil)

func newTestModel(t *testing.T, api *fakeAPI, token string) (*Model, *app.App) {
	t.Helper()
	store := session.NewMemoryStore(session.DefaultKey)
	if token != "" {
		store.Persist(context.Background(), models.Session{}.WithToken(token))
	}
	a := app.New(app.Deps{API: api, Store: store, Fs: afero.NewMemMapFs()}, app.Options{
		Tick: func(time.Duration, func(time.Time) tea.Msg) tea.Cmd { return nil },
	})
	t.Cleanup(a.Close)
	return New(a), a
}

// deliver runs cmd and feeds the messages back until nothing is left
func deliver(m *Model, cmd tea.Cmd) {
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg := c()
		if batch, ok := msg.(tea.BatchMsg); ok {
			queue = append(queue, batch...)
			continue
		}
		if msg == nil {
			continue
		}
		_, next := m.Update(msg)
		queue = append(queue, next)
	}
}

func typeText(m *Model, text string) {
	for _, r := range text {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func press(m *Model, k tea.KeyType) tea.Cmd {
	_, cmd := m.Update(tea.KeyMsg{Type: k})
	return cmd
}

func TestModel_ConfigErrorAndReload(t *testing.T) {
	api := &fakeAPI{configErr: client.ErrConnectionFailed}
	m, a := newTestModel(t, api, "")

	deliver(m, a.Init())
	require.Equal(t, models.SceneFetchConfigError, a.Scene())
	assert.Contains(t, m.View(), "Could not fetch the client configuration")

	api.configErr = nil
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	require.NotNil(t, cmd)
	deliver(m, cmd)
	assert.Equal(t, models.SceneLoginRegister, a.Scene())
}

func TestModel_LoginFlow(t *testing.T) {
	api := &fakeAPI{token: "tok", profiles: []models.Profile{{ID: 1, MachineName: "p1", HumanName: "ClamAV"}}}
	m, a := newTestModel(t, api, "")
	deliver(m, a.Init())
	require.Equal(t, models.SceneLoginRegister, a.Scene())

	typeText(m, "alice")
	press(m, tea.KeyTab)
	typeText(m, "secret")
	assert.Equal(t, models.Credentials{Username: "alice", Password: "secret"}, a.Auth().Form())
	assert.NotContains(t, m.View(), "secret")

	cmd := press(m, tea.KeyEnter)
	require.NotNil(t, cmd)
	assert.Empty(t, m.username.Value())
	assert.Empty(t, m.password.Value())

	deliver(m, cmd)
	require.Len(t, api.logins, 1)
	assert.Equal(t, "alice", api.logins[0].Username)
	assert.Equal(t, models.SceneLoggedIn, a.Scene())
	assert.Equal(t, focusPath, m.focus)
	assert.Contains(t, m.View(), "[x] ClamAV")
}

func TestModel_LoginErrorShown(t *testing.T) {
	api := &fakeAPI{loginErr: &client.APIError{StatusCode: 401}}
	m, a := newTestModel(t, api, "")
	deliver(m, a.Init())

	deliver(m, press(m, tea.KeyEnter))
	assert.Contains(t, m.View(), app.ErrTextLogin)
}

func TestModel_ToggleProfile(t *testing.T) {
	api := &fakeAPI{profiles: []models.Profile{{ID: 1, MachineName: "p1"}, {ID: 2, MachineName: "p2"}}}
	m, a := newTestModel(t, api, "tok")
	deliver(m, a.Init())
	require.Equal(t, models.SceneLoggedIn, a.Scene())

	press(m, tea.KeyTab)
	require.Equal(t, focusProfiles, m.focus)
	press(m, tea.KeyDown)
	m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})

	assert.True(t, a.Enabled().Has("p1"))
	assert.False(t, a.Enabled().Has("p2"))
	assert.Contains(t, m.View(), "[ ] p2")
}

func TestModel_SubmitSeveralPathsIsNoop(t *testing.T) {
	api := &fakeAPI{profiles: []models.Profile{{ID: 1, MachineName: "p1"}}}
	m, a := newTestModel(t, api, "tok")
	deliver(m, a.Init())

	m.path.SetValue(strings.Join([]string{"/a", "/b"}, string(os.PathListSeparator)))
	assert.Nil(t, press(m, tea.KeyEnter))
	assert.False(t, a.Uploads().Busy())
	assert.Equal(t, 0, api.uploads)
}

func TestModel_RejectedTokenCanLogOut(t *testing.T) {
	tests := []struct {
		name      string
		logoutErr error
	}{
		{name: "logout accepted"},
		{name: "logout rejects the token too", logoutErr: &client.APIError{StatusCode: 401}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{
				profilesErr: &client.APIError{StatusCode: 401},
				logoutErr:   tt.logoutErr,
			}
			m, a := newTestModel(t, api, "expired")

			deliver(m, a.Init())
			require.Equal(t, models.SceneLoading, a.Scene())
			require.Equal(t, app.Failed, a.Op(app.OpProfiles))
			view := m.View()
			assert.Contains(t, view, "ctrl+l to log out")
			assert.Contains(t, view, "logout")

			// retrying with the same token keeps failing
			_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
			deliver(m, cmd)
			require.Equal(t, models.SceneLoading, a.Scene())

			deliver(m, press(m, tea.KeyCtrlL))
			assert.Equal(t, 1, api.logouts)
			assert.Equal(t, models.SceneLoginRegister, a.Scene())
			assert.False(t, a.Session().HasToken())
			assert.Equal(t, focusUsername, m.focus)
		})
	}
}

func TestModel_LogoutKeyIgnoredWhileLoading(t *testing.T) {
	api := &fakeAPI{}
	m, a := newTestModel(t, api, "tok")

	// the config fetch is issued but not yet answered
	a.Init()
	require.Equal(t, models.SceneLoading, a.Scene())

	assert.Nil(t, press(m, tea.KeyCtrlL))
	assert.Zero(t, api.logouts)
	assert.NotContains(t, m.View(), "ctrl+l to log out")
}

func TestModel_QuitClosesApp(t *testing.T) {
	m, _ := newTestModel(t, &fakeAPI{}, "")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestSplitPaths(t *testing.T) {
	sep := string(os.PathListSeparator)
	tests := []struct {
		in   string
		want []string
	}{
		{in: "", want: nil},
		{in: "  ", want: nil},
		{in: "/tmp/a", want: []string{"/tmp/a"}},
		{in: "/tmp/a" + sep + "/tmp/b", want: []string{"/tmp/a", "/tmp/b"}},
		{in: "/tmp/a" + sep, want: []string{"/tmp/a"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, splitPaths(tt.in), tt.in)
	}
}

func TestTaskRows(t *testing.T) {
	msg := "EICAR-Test-File"
	done := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := taskRows([]models.Task{
		{ID: 1, ProfileID: 1, Status: models.TaskStatusDetected, CompletedWhen: &done, Message: &msg},
		{ID: 2, ProfileID: 9, Status: models.TaskStatusPending},
	}, []models.Profile{{ID: 1, MachineName: "clamav", HumanName: "ClamAV"}})

	require.Len(t, rows, 2)
	assert.Equal(t, "ClamAV", rows[0][1])
	assert.Equal(t, "detected", rows[0][2])
	assert.Equal(t, msg, rows[0][5])
	assert.Equal(t, "#9", rows[1][1])
	assert.Equal(t, "processing", rows[1][2])
	assert.Equal(t, "-", rows[1][3])
	assert.Equal(t, "-", rows[1][4])
}
