package app

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/threatflux/violetearClient/internal/models"
)

// PollState is the lifecycle of the task poller
type PollState int

const (
	PollIdle PollState = iota
	PollPolling
	PollStopped
)

func (s PollState) String() string {
	switch s {
	case PollPolling:
		return "polling"
	case PollStopped:
		return "stopped"
	}
	return "idle"
}

// TaskPoller fetches the tasks of a report on a fixed interval until none
// is pending. Fetches are guarded by the poll slot and ticks by timerGen.
type TaskPoller struct {
	app  *App
	slot slot

	state    PollState
	reportID int64
	tasks    []models.Task
	timerGen uint64
	err      string
}

// Start begins polling reportID, replacing any earlier report
func (p *TaskPoller) Start(reportID int64) tea.Cmd {
	p.Cancel()
	p.state = PollPolling
	p.reportID = reportID
	p.app.log.WithField("report_id", reportID).Debug("Polling tasks")
	return tea.Batch(p.fetch(), p.tick())
}

// Cancel stops polling and invalidates the pending tick and fetch
func (p *TaskPoller) Cancel() {
	p.app.abandon(&p.slot)
	p.timerGen++
	p.state = PollIdle
	p.reportID = 0
	p.tasks = nil
	p.err = ""
}

// ReportID returns the report being polled
func (p *TaskPoller) ReportID() int64 {
	return p.reportID
}

func (p *TaskPoller) fetch() tea.Cmd {
	a := p.app
	token := a.session.TokenValue()
	reportID := p.reportID
	ctx, gen := a.issue(&p.slot, OpPoll)
	api := a.api
	return func() tea.Msg {
		tasks, err := api.ListTasks(ctx, token, reportID)
		return tasksFetchedMsg{gen: gen, reportID: reportID, tasks: tasks, err: err}
	}
}

func (p *TaskPoller) tick() tea.Cmd {
	gen, reportID := p.timerGen, p.reportID
	return p.app.opts.Tick(p.app.opts.PollInterval, func(time.Time) tea.Msg {
		return pollTickMsg{gen: gen, reportID: reportID}
	})
}

func (p *TaskPoller) handleTick(msg pollTickMsg) tea.Cmd {
	if msg.gen != p.timerGen || p.state != PollPolling {
		p.app.log.WithFields(logrus.Fields{
			"report_id":  msg.reportID,
			"generation": msg.gen,
		}).Debug("Dropping stale poll tick")
		return nil
	}
	// a slow fetch is left to finish rather than cancelled by every tick
	if p.slot.busy() {
		return p.tick()
	}
	return tea.Batch(p.fetch(), p.tick())
}

func (p *TaskPoller) handleTasks(msg tasksFetchedMsg) tea.Cmd {
	a := p.app
	if !p.slot.accept(msg.gen) || p.state != PollPolling {
		a.log.WithField("report_id", msg.reportID).Debug("Dropping stale task list")
		return nil
	}
	p.slot.release()

	if msg.err != nil {
		p.err = ErrTextTasks
		a.failure(OpPoll, msg.err, ErrTextTasks)
		return nil
	}

	p.tasks = msg.tasks
	p.err = ""
	a.ops.set(OpPoll, Succeeded)

	if !models.AnyPending(msg.tasks) {
		p.state = PollStopped
		p.timerGen++
		a.log.WithFields(logrus.Fields{
			"report_id": msg.reportID,
			"tasks":     len(msg.tasks),
		}).Info("All tasks finished")
	}
	return nil
}
