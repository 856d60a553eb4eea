package controllers

import (
	"cftracker/internal/models"
	"cftracker/internal/providers"
	"cftracker/internal/services"
	"cftracker/internal/services/interfaces"
	"fmt"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cast"
)

const (
	defaultContestDays    = 30
	defaultSubmissionDays = 90
	defaultSyncLogLimit   = 20
	maxSyncLogLimit       = 500
)

type ApiController struct {
	logger   providers.Logger
	repo     interfaces.RepositoryInterface
	students services.StudentServiceInterface
	cache    providers.CacheProviderInterface
	now      func() time.Time
}

func NewApiController(logger providers.Logger, repo interfaces.RepositoryInterface, students services.StudentServiceInterface, cache providers.CacheProviderInterface) *ApiController {
	return &ApiController{
		logger:   logger,
		repo:     repo,
		students: students,
		cache:    cache,
		now:      time.Now,
	}
}

func (ac *ApiController) serveFromCacheOrCompute(w http.ResponseWriter, cacheKey string, compute func() (any, error)) {
	if data, ok := ac.cache.Get(cacheKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	result, err := compute()
	if err != nil {
		if errorStatus(err) == http.StatusInternalServerError {
			ac.logger.Errorf(providers.TypeGet, "Unable to serve %s: %s", cacheKey, err)
		}
		writeServiceError(w, err)
		return
	}

	gson, err := json.Marshal(result)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ac.cache.Set(cacheKey, gson)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

// queryInt reads a non-negative integer parameter, def when absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := cast.ToIntE(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return v, nil
}

func studentID(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("id"))
}

// since turns a day window into a lower bound. Zero days means no bound.
func (ac *ApiController) since(days int) time.Time {
	if days == 0 {
		return time.Time{}
	}
	return ac.now().Add(-time.Duration(days) * 24 * time.Hour)
}

func (ac *ApiController) ListStudents(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, "students", func() (any, error) {
		students, err := ac.repo.ListStudents(r.Context())
		return orEmpty(students), err
	})
}

func (ac *ApiController) GetStudent(w http.ResponseWriter, r *http.Request) {
	id := studentID(r)
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	ac.serveFromCacheOrCompute(w, "student:"+id, func() (any, error) {
		return ac.repo.FindStudent(r.Context(), id)
	})
}

func (ac *ApiController) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var input services.StudentInput
	if !decodeBody(w, r, &input) {
		return
	}

	student, err := ac.students.Create(r.Context(), input)
	if err != nil {
		if errorStatus(err) == http.StatusInternalServerError {
			ac.logger.Errorf(providers.TypePost, "Unable to create student %s: %s", input.Handle, err)
		}
		writeServiceError(w, err)
		return
	}
	ac.cache.Purge()
	writeJSON(w, http.StatusCreated, student)
}

// UpdateStudent applies a partial edit to the student given by the id
// query parameter.
func (ac *ApiController) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	id := studentID(r)
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	var patch services.StudentPatch
	if !decodeBody(w, r, &patch) {
		return
	}

	student, err := ac.students.Update(r.Context(), id, patch)
	if err != nil {
		if errorStatus(err) == http.StatusInternalServerError {
			ac.logger.Errorf(providers.TypePost, "Unable to update student %s: %s", id, err)
		}
		writeServiceError(w, err)
		return
	}
	ac.cache.Purge()
	writeJSON(w, http.StatusOK, student)
}

func (ac *ApiController) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	id := studentID(r)
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	if err := ac.students.Delete(r.Context(), id); err != nil {
		if errorStatus(err) == http.StatusInternalServerError {
			ac.logger.Errorf(providers.TypePost, "Unable to delete student %s: %s", id, err)
		}
		writeServiceError(w, err)
		return
	}
	ac.cache.Purge()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Student deleted successfully"})
}

type contestsResponse struct {
	StudentID string            `json:"studentId"`
	Days      int               `json:"days"`
	Contests  []*models.Contest `json:"contests"`
}

func (ac *ApiController) GetContests(w http.ResponseWriter, r *http.Request) {
	id := studentID(r)
	days, err := queryInt(r, "days", defaultContestDays)
	if id == "" || err != nil {
		writeError(w, http.StatusBadRequest, badQuery(id, err))
		return
	}
	ac.serveFromCacheOrCompute(w, fmt.Sprintf("contests:%s:%d", id, days), func() (any, error) {
		if _, err := ac.repo.FindStudent(r.Context(), id); err != nil {
			return nil, err
		}
		contests, err := ac.repo.ListContests(r.Context(), id, ac.since(days))
		if err != nil {
			return nil, err
		}
		return contestsResponse{StudentID: id, Days: days, Contests: orEmpty(contests)}, nil
	})
}

type submissionsResponse struct {
	StudentID   string               `json:"studentId"`
	Days        int                  `json:"days"`
	Submissions []*models.Submission `json:"submissions"`
}

func (ac *ApiController) GetSubmissions(w http.ResponseWriter, r *http.Request) {
	id := studentID(r)
	days, err := queryInt(r, "days", defaultSubmissionDays)
	if id == "" || err != nil {
		writeError(w, http.StatusBadRequest, badQuery(id, err))
		return
	}
	ac.serveFromCacheOrCompute(w, fmt.Sprintf("submissions:%s:%d", id, days), func() (any, error) {
		if _, err := ac.repo.FindStudent(r.Context(), id); err != nil {
			return nil, err
		}
		subs, err := ac.repo.ListSubmissions(r.Context(), id, ac.since(days))
		if err != nil {
			return nil, err
		}
		return submissionsResponse{StudentID: id, Days: days, Submissions: orEmpty(subs)}, nil
	})
}

func (ac *ApiController) GetSyncLogs(w http.ResponseWriter, r *http.Request) {
	id := studentID(r)
	limit, err := queryInt(r, "limit", defaultSyncLogLimit)
	if id == "" || err != nil {
		writeError(w, http.StatusBadRequest, badQuery(id, err))
		return
	}
	if limit == 0 || limit > maxSyncLogLimit {
		limit = maxSyncLogLimit
	}
	ac.serveFromCacheOrCompute(w, fmt.Sprintf("logs:%s:%d", id, limit), func() (any, error) {
		if _, err := ac.repo.FindStudent(r.Context(), id); err != nil {
			return nil, err
		}
		logs, err := ac.repo.ListSyncLogs(r.Context(), id, limit)
		return orEmpty(logs), err
	})
}

func badQuery(id string, err error) string {
	if id == "" {
		return "id is required"
	}
	return err.Error()
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
