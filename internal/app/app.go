// Package app implements the client orchestration core.
//
// App is driven by a bubbletea loop: Update is only ever called from one
// goroutine, and every blocking call runs inside a tea.Cmd that reports back
// with a message. Controllers keep per-operation state and use generation
// tagged slots so that completions of superseded requests are ignored.
package app

import (
	"context"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/threatflux/violetearClient/internal/models"
	"github.com/threatflux/violetearClient/internal/session"
	"github.com/threatflux/violetearClient/pkg/client"
)

// User-facing failure texts
const (
	ErrTextLogin    = "could not login"
	ErrTextRegister = "could not register"
	ErrTextLogout   = "could not logout"
	ErrTextProfiles = "could not fetch profiles"
	ErrTextRead     = "could not read file"
	ErrTextUpload   = "could not upload file"
	ErrTextTasks    = "could not fetch tasks"
)

// DefaultPollInterval is used when Options.PollInterval is not set
const DefaultPollInterval = time.Second

// TickFunc schedules a message after d. tea.Tick is the default.
type TickFunc func(d time.Duration, fn func(time.Time) tea.Msg) tea.Cmd

// Deps are the capabilities the core needs from the outside world
type Deps struct {
	API    client.Client
	Store  session.Store
	Fs     afero.Fs
	Logger logrus.FieldLogger
}

// Options tune the core's policies
type Options struct {
	// PollInterval between task fetches
	PollInterval time.Duration
	// ForceClearAfter clears the session locally after this many consecutive
	// logout failures. Zero keeps the token forever.
	ForceClearAfter int
	// Tick overrides the timer used for polling
	Tick TickFunc
}

// App is the root of the orchestration state
type App struct {
	api   client.Client
	store session.Store
	fs    afero.Fs
	log   logrus.FieldLogger
	opts  Options

	ctx    context.Context
	cancel context.CancelFunc

	config  *models.Config
	session models.Session
	ops     opStates

	loader   *ConfigLoader
	auth     *AuthController
	profiles *ProfileRegistry
	upload   *UploadController
	poller   *TaskPoller
}

// New builds the core and restores the stored session
func New(deps Deps, opts Options) *App {
	if deps.Fs == nil {
		deps.Fs = afero.NewOsFs()
	}
	if deps.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		deps.Logger = l
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Tick == nil {
		opts.Tick = tea.Tick
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		api:    deps.API,
		store:  deps.Store,
		fs:     deps.Fs,
		log:    deps.Logger.WithField("component", "app"),
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
		ops:    make(opStates),
	}
	a.loader = &ConfigLoader{app: a}
	a.auth = &AuthController{app: a}
	a.profiles = &ProfileRegistry{app: a, enabled: models.NewProfileSet()}
	a.upload = &UploadController{app: a}
	a.poller = &TaskPoller{app: a}

	a.session = a.store.Restore(ctx)
	a.log.WithField("has_token", a.session.HasToken()).Debug("Session restored")
	return a
}

// Init starts loading the configuration
func (a *App) Init() tea.Cmd {
	return a.loader.Load()
}

// Update applies a completion message and returns any follow-up command
func (a *App) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case configFetchedMsg:
		return a.loader.handle(msg)
	case authDoneMsg:
		return a.auth.handleAuth(msg)
	case logoutDoneMsg:
		return a.auth.handleLogout(msg)
	case profilesFetchedMsg:
		return a.profiles.handle(msg)
	case fileReadMsg:
		return a.upload.handleRead(msg)
	case reportCreatedMsg:
		return a.upload.handleCreated(msg)
	case tasksFetchedMsg:
		return a.poller.handleTasks(msg)
	case pollTickMsg:
		return a.poller.handleTick(msg)
	}
	return nil
}

// Close cancels every outstanding request
func (a *App) Close() {
	a.cancel()
}

// Scene projects the current state onto the screen to show
func (a *App) Scene() models.Scene {
	switch {
	case a.ops.get(OpConfig) == Failed:
		return models.SceneFetchConfigError
	case a.config == nil:
		return models.SceneLoading
	case !a.session.HasToken():
		return models.SceneLoginRegister
	case a.profiles.loaded:
		return models.SceneLoggedIn
	default:
		return models.SceneLoading
	}
}

// Op returns the state of the latest run of op
func (a *App) Op(op Operation) OpState {
	return a.ops.get(op)
}

// Disabled reports whether triggering op is currently refused
func (a *App) Disabled(op Operation) bool {
	switch op {
	case OpLogin, OpRegister:
		return a.ops.inFlight(OpLogin, OpRegister)
	default:
		return a.ops.inFlight(op)
	}
}

func (a *App) Session() models.Session { return a.session }

func (a *App) Config() *models.Config { return a.config }

func (a *App) Loader() *ConfigLoader { return a.loader }

func (a *App) Auth() *AuthController { return a.auth }

func (a *App) ProfileRegistry() *ProfileRegistry { return a.profiles }

func (a *App) Uploads() *UploadController { return a.upload }

func (a *App) Poller() *TaskPoller { return a.poller }

func (a *App) FormError() string { return a.auth.formErr }

func (a *App) LogoutError() string { return a.auth.logoutErr }

func (a *App) ProfilesError() string { return a.profiles.err }

func (a *App) UploadError() string { return a.upload.err }

func (a *App) PollError() string { return a.poller.err }

func (a *App) Profiles() []models.Profile { return a.profiles.profiles }

func (a *App) Enabled() models.ProfileSet { return a.profiles.enabled }

func (a *App) Report() *models.Report { return a.upload.report }

func (a *App) Tasks() []models.Task { return a.poller.tasks }

func (a *App) PollState() PollState { return a.poller.state }

// failure logs a failed operation with its error kind
func (a *App) failure(op Operation, err error, text string) {
	a.ops.set(op, Failed)
	a.log.WithFields(logrus.Fields{
		"op":   op,
		"kind": client.KindOf(err),
	}).WithError(err).Warn(text)
}
