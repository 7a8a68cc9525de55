package app

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/threatflux/violetearClient/internal/models"
	"github.com/threatflux/violetearClient/internal/session"
	"github.com/threatflux/violetearClient/pkg/client"
)

// MockAPI is a mock implementation of client.Client
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) FetchConfig(ctx context.Context) (*models.Config, error) {
	args := m.Called(ctx)
	cfg, _ := args.Get(0).(*models.Config)
	return cfg, args.Error(1)
}

func (m *MockAPI) SetAPIURL(apiURL string) error {
	args := m.Called(apiURL)
	return args.Error(0)
}

func (m *MockAPI) Login(ctx context.Context, creds models.Credentials) (string, error) {
	args := m.Called(ctx, creds)
	return args.String(0), args.Error(1)
}

func (m *MockAPI) Register(ctx context.Context, creds models.Credentials) (string, error) {
	args := m.Called(ctx, creds)
	return args.String(0), args.Error(1)
}

func (m *MockAPI) Logout(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockAPI) ListProfiles(ctx context.Context, token string) ([]models.Profile, error) {
	args := m.Called(ctx, token)
	profiles, _ := args.Get(0).([]models.Profile)
	return profiles, args.Error(1)
}

func (m *MockAPI) CreateReport(ctx context.Context, token string, profiles string, content []byte) (*models.Report, error) {
	args := m.Called(ctx, token, profiles, content)
	report, _ := args.Get(0).(*models.Report)
	return report, args.Error(1)
}

func (m *MockAPI) ListTasks(ctx context.Context, token string, reportID int64) ([]models.Task, error) {
	args := m.Called(ctx, token, reportID)
	tasks, _ := args.Get(0).([]models.Task)
	return tasks, args.Error(1)
}

var _ client.Client = (*MockAPI)(nil)

// harness drives an App synchronously. Commands run inline and their
// messages are fed back through Update. Poll ticks are parked until fired.
type harness struct {
	t     *testing.T
	app   *App
	api   *MockAPI
	store *session.MemoryStore
	fs    afero.Fs
	hook  *test.Hook

	ticks     []pollTickMsg
	intervals []time.Duration
}

func newHarness(t *testing.T, token string, opts Options) *harness {
	t.Helper()

	h := &harness{
		t:     t,
		api:   new(MockAPI),
		store: session.NewMemoryStore(session.DefaultKey),
		fs:    afero.NewMemMapFs(),
	}
	if token != "" {
		h.store.Persist(context.Background(), models.Session{}.WithToken(token))
	}

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	h.hook = hook

	opts.Tick = func(d time.Duration, fn func(time.Time) tea.Msg) tea.Cmd {
		h.intervals = append(h.intervals, d)
		return func() tea.Msg { return fn(time.Time{}) }
	}
	h.app = New(Deps{API: h.api, Store: h.store, Fs: h.fs, Logger: logger}, opts)
	t.Cleanup(h.app.Close)
	return h
}

// collect executes cmd and flattens batches into their messages
func (h *harness) collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, h.collect(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

// run executes cmd and delivers every resulting message until nothing is left
func (h *harness) run(cmd tea.Cmd) {
	queue := h.collect(cmd)
	for len(queue) > 0 {
		msg := queue[0]
		queue = queue[1:]
		if tick, ok := msg.(pollTickMsg); ok {
			h.ticks = append(h.ticks, tick)
			continue
		}
		queue = append(queue, h.collect(h.app.Update(msg))...)
	}
}

// fireTick delivers the oldest parked tick
func (h *harness) fireTick() {
	h.t.Helper()
	require.NotEmpty(h.t, h.ticks, "no tick scheduled")
	tick := h.ticks[0]
	h.ticks = h.ticks[1:]
	h.run(h.app.Update(tick))
}

// boot loads the config pointing at api_url
func (h *harness) boot() {
	h.api.On("FetchConfig", mock.Anything).Return(&models.Config{APIURL: "https://api.x"}, nil).Once()
	h.api.On("SetAPIURL", "https://api.x").Return(nil).Once()
	h.run(h.app.Init())
}

func twoProfiles() []models.Profile {
	return []models.Profile{
		{ID: 1, MachineName: "p1", HumanName: "Profile 1", Module: "clamav"},
		{ID: 2, MachineName: "p2", HumanName: "Profile 2", Module: "yara"},
	}
}

func task(id int64, status models.TaskStatus) models.Task {
	return models.Task{ID: id, ReportID: 42, ProfileID: id, Status: status}
}
