package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/threatflux/violetearClient/internal/app"
	"github.com/threatflux/violetearClient/internal/models"
)

const timeLayout = "2006-01-02 15:04:05"

// View implements tea.Model
func (m *Model) View() string {
	scene := m.app.Scene()
	m.keys.scene = scene
	m.keys.stuck = m.profilesFailed()

	var body string
	switch scene {
	case models.SceneLoginRegister:
		body = m.loginView()
	case models.SceneFetchConfigError:
		body = m.configErrorView()
	case models.SceneLoggedIn:
		body = m.loggedInView()
	default:
		body = m.loadingView()
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		titleStyle.Render("violetear"),
		body,
		"",
		m.help.View(m.keys),
	)
}

func (m *Model) loadingView() string {
	lines := []string{m.spinner.View() + " Loading..."}
	if text := m.app.ProfilesError(); text != "" {
		lines = append(lines, errorStyle.Render(text))
	}
	if text := m.app.LogoutError(); text != "" {
		lines = append(lines, errorStyle.Render(text))
	}
	if m.profilesFailed() {
		lines = append(lines, mutedStyle.Render("Press r to try again or ctrl+l to log out."))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) configErrorView() string {
	return errorStyle.Render("Could not fetch the client configuration.") + "\n" +
		mutedStyle.Render("Check the server address and press r to try again.")
}

func (m *Model) loginView() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Login or register"))
	b.WriteString("\n\n")
	b.WriteString(m.username.View())
	b.WriteString("\n")
	b.WriteString(m.password.View())
	b.WriteString("\n")

	if m.app.Disabled(app.OpLogin) {
		b.WriteString("\n" + m.spinner.View() + " Authenticating...")
	}
	if text := m.app.FormError(); text != "" {
		b.WriteString("\n" + errorStyle.Render(text))
	}
	return b.String()
}

func (m *Model) loggedInView() string {
	profileBox, pathBox := inactiveBox, inactiveBox
	if m.focus == focusProfiles {
		profileBox = activeBox
	} else {
		pathBox = activeBox
	}

	top := lipgloss.JoinHorizontal(
		lipgloss.Top,
		profileBox.Render(m.profilesView()),
		pathBox.Render(m.uploadView()),
	)

	sections := []string{top, m.reportView()}
	if text := m.app.LogoutError(); text != "" {
		sections = append(sections, errorStyle.Render(text))
	}
	if m.app.Disabled(app.OpLogout) {
		sections = append(sections, m.spinner.View()+" Logging out...")
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) profilesView() string {
	profiles := m.app.Profiles()
	enabled := m.app.Enabled()

	lines := []string{headerStyle.Render("Profiles")}
	if len(profiles) == 0 {
		lines = append(lines, mutedStyle.Render("no profiles available"))
	}
	for i, p := range profiles {
		check := "[ ]"
		if enabled.Has(p.MachineName) {
			check = "[x]"
		}
		line := fmt.Sprintf("%s %s", check, displayName(p))
		if m.focus == focusProfiles && i == m.cursor {
			line = cursorStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m *Model) uploadView() string {
	up := m.app.Uploads()
	lines := []string{headerStyle.Render("Upload"), m.path.View()}

	switch {
	case up.Busy():
		lines = append(lines, m.spinner.View()+" Uploading "+up.File())
	case m.app.UploadError() != "":
		lines = append(lines, errorStyle.Render(m.app.UploadError()))
	case m.app.Report() != nil:
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("report %d created from %s", m.app.Report().ID, up.File())))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) reportView() string {
	report := m.app.Report()
	if report == nil {
		return mutedStyle.Render("No report yet.")
	}

	status := ""
	switch m.app.PollState() {
	case app.PollPolling:
		status = m.spinner.View() + " analysing"
	case app.PollStopped:
		status = "finished"
	}
	header := headerStyle.Render(fmt.Sprintf("Report %d", report.ID)) + " " + status

	lines := []string{header, m.tasks.View()}
	if text := m.app.PollError(); text != "" {
		lines = append(lines, errorStyle.Render(text))
	}
	return strings.Join(lines, "\n")
}

func displayName(p models.Profile) string {
	if p.HumanName != "" {
		return p.HumanName
	}
	return p.MachineName
}

// taskRows renders tasks with their profile names
func taskRows(tasks []models.Task, profiles []models.Profile) []table.Row {
	names := make(map[int64]string, len(profiles))
	for _, p := range profiles {
		names[p.ID] = displayName(p)
	}

	rows := make([]table.Row, 0, len(tasks))
	for _, t := range tasks {
		profile, ok := names[t.ProfileID]
		if !ok {
			profile = "#" + strconv.FormatInt(t.ProfileID, 10)
		}
		rows = append(rows, table.Row{
			strconv.FormatInt(t.ID, 10),
			profile,
			t.Status.Label(),
			formatTime(&t.CreatedWhen),
			formatTime(t.CompletedWhen),
			deref(t.Message),
		})
	}
	return rows
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
