package app

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/threatflux/violetearClient/internal/models"
	"github.com/threatflux/violetearClient/pkg/client"
)

// UploadController submits a single file for analysis. The file read and the
// POST run under one slot generation.
type UploadController struct {
	app  *App
	slot slot

	file   string
	report *models.Report
	err    string
}

// Submit uploads the file when exactly one path is given
func (u *UploadController) Submit(paths []string) tea.Cmd {
	a := u.app
	if len(paths) != 1 || !a.session.HasToken() || a.Disabled(OpUpload) {
		return nil
	}

	path := paths[0]
	profiles := a.profiles.enabled.CSV(a.profiles.profiles)
	u.err = ""
	u.file = path

	ctx, gen := a.issue(&u.slot, OpUpload)
	fs := a.fs
	return func() tea.Msg {
		if err := ctx.Err(); err != nil {
			return fileReadMsg{gen: gen, path: path, err: err}
		}
		data, err := afero.ReadFile(fs, path)
		return fileReadMsg{gen: gen, path: path, profiles: profiles, data: data, err: err}
	}
}

// Busy reports whether the read or the POST is outstanding
func (u *UploadController) Busy() bool {
	return u.slot.busy()
}

// File returns the path of the latest submission
func (u *UploadController) File() string {
	return u.file
}

func (u *UploadController) handleRead(msg fileReadMsg) tea.Cmd {
	a := u.app
	if !u.slot.accept(msg.gen) {
		a.log.WithField("path", msg.path).Debug("Dropping stale file read")
		return nil
	}

	if msg.err != nil {
		u.slot.release()
		u.err = ErrTextRead
		a.failure(OpUpload, msg.err, ErrTextRead)
		return nil
	}

	a.log.WithFields(logrus.Fields{
		"path":     msg.path,
		"size":     len(msg.data),
		"profiles": msg.profiles,
	}).Debug("Uploading file")

	ctx, gen := u.slot.ctx, u.slot.gen
	token := a.session.TokenValue()
	api := a.api
	return func() tea.Msg {
		report, err := api.CreateReport(ctx, token, msg.profiles, msg.data)
		return reportCreatedMsg{gen: gen, report: report, err: err}
	}
}

func (u *UploadController) handleCreated(msg reportCreatedMsg) tea.Cmd {
	a := u.app
	if !u.slot.accept(msg.gen) {
		a.log.Debug("Dropping stale upload result")
		return nil
	}
	u.slot.release()

	if msg.err == nil && (msg.report == nil || msg.report.ID <= 0) {
		msg.err = client.ErrDecodeFailed
	}
	if msg.err != nil {
		u.err = ErrTextUpload
		a.failure(OpUpload, msg.err, ErrTextUpload)
		return nil
	}

	u.report = msg.report
	a.ops.set(OpUpload, Succeeded)
	a.log.WithField("report_id", msg.report.ID).Info("Report was created")
	return a.poller.Start(msg.report.ID)
}

func (u *UploadController) reset() {
	u.app.abandon(&u.slot)
	u.file = ""
	u.report = nil
	u.err = ""
}
