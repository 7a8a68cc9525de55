package devserver

import (
	"bytes"
	"errors"
	"sync"
	"time"

	"github.com/threatflux/violetearClient/internal/models"
)

// Store errors
var (
	ErrUserExists      = errors.New("user already exists")
	ErrUnknownProfile  = errors.New("unknown profile")
	ErrReportNotFound  = errors.New("report not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrProfilesMissing = errors.New("no profiles configured")
)

// eicarMarker identifies the EICAR anti-malware test file
var eicarMarker = []byte("EICAR-STANDARD-ANTIVIRUS-TEST-FILE")

type report struct {
	owner   string
	verdict models.TaskStatus
	message *string
	tasks   []models.Task
}

// Store keeps users, profiles, reports and tasks in memory
type Store struct {
	mu       sync.RWMutex
	users    map[string]string // username -> bcrypt hash
	profiles []models.Profile
	reports  map[int64]*report

	nextReportID int64
	nextTaskID   int64
}

// NewStore creates a store serving profiles
func NewStore(profiles []models.Profile) *Store {
	return &Store{
		users:    make(map[string]string),
		profiles: profiles,
		reports:  make(map[int64]*report),
	}
}

// CreateUser registers username with a password hash
func (s *Store) CreateUser(username, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[username]; exists {
		return ErrUserExists
	}
	s.users[username] = hash
	return nil
}

// PasswordHash returns the stored hash of username
func (s *Store) PasswordHash(username string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hash, ok := s.users[username]
	if !ok {
		return "", ErrUserNotFound
	}
	return hash, nil
}

// Profiles returns the configured profiles
func (s *Store) Profiles() []models.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Profile, len(s.profiles))
	copy(out, s.profiles)
	return out
}

// CreateReport creates a report for content with one new task per named profile
func (s *Store) CreateReport(owner string, names []string, content []byte, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byName := make(map[string]models.Profile, len(s.profiles))
	for _, p := range s.profiles {
		byName[p.MachineName] = p
	}
	selected := make([]models.Profile, 0, len(names))
	for _, name := range names {
		p, ok := byName[name]
		if !ok {
			return 0, ErrUnknownProfile
		}
		selected = append(selected, p)
	}

	s.nextReportID++
	id := s.nextReportID
	verdict, message := classify(content)
	r := &report{owner: owner, verdict: verdict, message: message}
	for _, p := range selected {
		s.nextTaskID++
		r.tasks = append(r.tasks, models.Task{
			ID:          s.nextTaskID,
			ReportID:    id,
			ProfileID:   p.ID,
			CreatedWhen: now,
			Status:      models.TaskStatusNew,
		})
	}
	s.reports[id] = r
	return id, nil
}

// Tasks returns a snapshot of the tasks of a report owned by owner
func (s *Store) Tasks(owner string, reportID int64) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reports[reportID]
	if !ok || r.owner != owner {
		return nil, ErrReportNotFound
	}
	out := make([]models.Task, len(r.tasks))
	copy(out, r.tasks)
	return out, nil
}

// Advance moves every unfinished task one step: new to pending, pending to
// the report's verdict. It returns the number of tasks that changed.
func (s *Store) Advance(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for _, r := range s.reports {
		for i := range r.tasks {
			t := &r.tasks[i]
			switch t.Status {
			case models.TaskStatusNew:
				t.Status = models.TaskStatusPending
			case models.TaskStatusPending:
				completed := now
				t.Status = r.verdict
				t.CompletedWhen = &completed
				t.Message = r.message
			default:
				continue
			}
			changed++
		}
	}
	return changed
}

// classify decides the outcome of every task of a report
func classify(content []byte) (models.TaskStatus, *string) {
	switch {
	case len(content) == 0:
		msg := "empty file"
		return models.TaskStatusError, &msg
	case bytes.Contains(content, eicarMarker):
		msg := "EICAR-Test-File"
		return models.TaskStatusDetected, &msg
	}
	return models.TaskStatusClean, nil
}
