package devserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/threatflux/violetearClient/internal/middleware"
	"github.com/threatflux/violetearClient/internal/models"
)

func (s *Server) listProfiles(c *gin.Context) {
	c.JSON(http.StatusOK, models.ProfilesResponse{Profiles: s.store.Profiles()})
}

func (s *Server) createReport(c *gin.Context) {
	owner, err := middleware.GetUsername(c)
	if err != nil {
		s.errorResponse(c, http.StatusUnauthorized, "authentication required", err)
		return
	}

	var query models.CreateReportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		s.errorResponse(c, http.StatusBadRequest, "invalid query", err)
		return
	}
	names := splitCSV(query.Profiles)
	if len(names) == 0 {
		s.errorResponse(c, http.StatusBadRequest, "at least one profile is required", nil)
		return
	}

	content, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.errorResponse(c, http.StatusRequestEntityTooLarge, "file is too large", nil)
			return
		}
		s.errorResponse(c, http.StatusBadRequest, "failed to read file", err)
		return
	}

	id, err := s.store.CreateReport(owner, names, content, s.now())
	if err != nil {
		if errors.Is(err, ErrUnknownProfile) {
			s.errorResponse(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		s.errorResponse(c, http.StatusInternalServerError, "failed to create report", err)
		return
	}

	s.log.WithField("report_id", id).WithField("profiles", names).Info("Report created")
	c.JSON(http.StatusOK, models.CreateReportResponse{ReportID: id})
}

func (s *Server) listTasks(c *gin.Context) {
	owner, id, ok := s.reportParams(c)
	if !ok {
		return
	}
	tasks, err := s.store.Tasks(owner, id)
	if err != nil {
		s.errorResponse(c, http.StatusNotFound, err.Error(), nil)
		return
	}
	c.JSON(http.StatusOK, models.TasksResponse{Tasks: tasks})
}

// reportEvents streams the task list of a report as server-sent events. A
// "tasks" event is sent whenever the list changes and a final "done" event
// once nothing is pending.
func (s *Server) reportEvents(c *gin.Context) {
	owner, id, ok := s.reportParams(c)
	if !ok {
		return
	}
	if _, err := s.store.Tasks(owner, id); err != nil {
		s.errorResponse(c, http.StatusNotFound, err.Error(), nil)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	var last string
	first := true
	c.Stream(func(w io.Writer) bool {
		if !first {
			select {
			case <-c.Request.Context().Done():
				return false
			case <-time.After(s.cfg.TaskStep):
			}
		}
		first = false

		tasks, err := s.store.Tasks(owner, id)
		if err != nil {
			return false
		}
		data, err := json.Marshal(models.TasksResponse{Tasks: tasks})
		if err != nil {
			s.log.WithError(err).Error("Failed to marshal tasks")
			return false
		}
		if string(data) != last {
			last = string(data)
			if err := sse.Encode(w, sse.Event{Event: "tasks", Id: strconv.FormatInt(id, 10), Data: last}); err != nil {
				return false
			}
		}
		if !models.AnyPending(tasks) {
			_ = sse.Encode(w, sse.Event{Event: "done", Id: strconv.FormatInt(id, 10), Data: strconv.FormatInt(id, 10)})
			return false
		}
		return true
	})
}

func (s *Server) reportParams(c *gin.Context) (string, int64, bool) {
	owner, err := middleware.GetUsername(c)
	if err != nil {
		s.errorResponse(c, http.StatusUnauthorized, "authentication required", err)
		return "", 0, false
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		s.errorResponse(c, http.StatusBadRequest, "invalid report id", nil)
		return "", 0, false
	}
	return owner, id, true
}

// splitCSV splits a comma-separated list, dropping blanks
func splitCSV(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
