package app

import (
	"github.com/threatflux/violetearClient/internal/models"
)

// Completion messages. Each carries the generation of the slot it was
// issued under so late deliveries can be recognised and dropped.

type configFetchedMsg struct {
	gen    uint64
	config *models.Config
	err    error
}

type authDoneMsg struct {
	gen   uint64
	op    Operation
	token string
	err   error
}

type logoutDoneMsg struct {
	gen uint64
	err error
}

type profilesFetchedMsg struct {
	gen      uint64
	profiles []models.Profile
	err      error
}

type fileReadMsg struct {
	gen      uint64
	path     string
	profiles string
	data     []byte
	err      error
}

type reportCreatedMsg struct {
	gen    uint64
	report *models.Report
	err    error
}

type tasksFetchedMsg struct {
	gen      uint64
	reportID int64
	tasks    []models.Task
	err      error
}

// pollTickMsg is guarded by the poller's timer generation rather than a slot
type pollTickMsg struct {
	gen      uint64
	reportID int64
}
