package controllers

import (
	"cftracker/internal/codeforces"
	"cftracker/internal/models"
	"cftracker/internal/providers"
	"cftracker/internal/services"
	"cftracker/internal/services/interfaces"
	"cftracker/internal/structures"
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// SyncController triggers syncs and exposes upstream API checks.
type SyncController struct {
	logger     providers.Logger
	sync       services.SyncServiceInterface
	batch      services.BatchServiceInterface
	client     interfaces.CodeforcesClientInterface
	cronSecret string
	now        func() time.Time
	wg         sync.WaitGroup
}

func NewSyncController(conf *structures.Config, logger providers.Logger, syncService services.SyncServiceInterface, batch services.BatchServiceInterface, client interfaces.CodeforcesClientInterface) *SyncController {
	return &SyncController{
		logger:     logger,
		sync:       syncService,
		batch:      batch,
		client:     client,
		cronSecret: conf.Security.CronSecret,
		now:        time.Now,
	}
}

type syncRequest struct {
	StudentID string `json:"studentId"`
}

type syncResponse struct {
	Message string          `json:"message"`
	Result  *models.SyncLog `json:"result"`
}

// SyncStudent runs a manual sync for one student. The id comes from the
// JSON body or the id query parameter.
func (sc *SyncController) SyncStudent(w http.ResponseWriter, r *http.Request) {
	id := studentID(r)
	if id == "" && r.ContentLength != 0 {
		var req syncRequest
		if !decodeBody(w, r, &req) {
			return
		}
		id = strings.TrimSpace(req.StudentID)
	}
	if id == "" {
		writeError(w, http.StatusBadRequest, "Student ID is required")
		return
	}

	log, err := sc.sync.SyncOne(r.Context(), id)
	if err != nil {
		if errorStatus(err) == http.StatusInternalServerError {
			sc.logger.Errorf(providers.TypePost, "Manual sync of %s failed: %s", id, err)
		}
		writeServiceError(w, err)
		return
	}
	msg := "Data sync completed"
	if !log.Succeeded() {
		msg = "Data sync failed"
	}
	writeJSON(w, http.StatusOK, syncResponse{Message: msg, Result: log})
}

func (sc *SyncController) authorized(r *http.Request) bool {
	if sc.cronSecret == "" {
		return false
	}
	token := r.Header.Get("X-Cron-Secret")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(sc.cronSecret)) == 1
}

// SyncAll starts a batch over all students in the background. Requires the
// cron secret; without a configured secret the endpoint is disabled.
func (sc *SyncController) SyncAll(w http.ResponseWriter, r *http.Request) {
	if !sc.authorized(r) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if sc.batch.IsRunning() {
		writeServiceError(w, services.ErrBatchRunning)
		return
	}

	ctx := context.WithoutCancel(r.Context())
	sc.wg.Add(1)
	go func() {
		defer sc.wg.Done()
		res, err := sc.batch.SyncAll(ctx)
		if err != nil {
			sc.logger.Errorf(providers.TypeSync, "Triggered batch sync failed: %s", err)
			return
		}
		sc.logger.Infof(providers.TypeSync, "Triggered batch sync done: %d ok, %d failed", res.SuccessCount, res.ErrorCount)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"message": "Batch sync started"})
}

// Wait blocks until triggered batches have finished.
func (sc *SyncController) Wait() {
	sc.wg.Wait()
}

type handleRequest struct {
	Handle string `json:"handle"`
}

type handleResponse struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message,omitempty"`
	Error    string          `json:"error,omitempty"`
	UserInfo *models.Profile `json:"userInfo,omitempty"`
}

func (sc *SyncController) TestHandle(w http.ResponseWriter, r *http.Request) {
	var req handleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	handle := strings.TrimSpace(req.Handle)
	if handle == "" {
		writeError(w, http.StatusBadRequest, "Handle is required")
		return
	}

	profile, err := sc.client.UserInfo(r.Context(), handle)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, handleResponse{Success: true, Message: "Handle '" + handle + "' is valid", UserInfo: profile})
	case errors.Is(err, codeforces.ErrNotFound), errors.Is(err, models.ErrNotFound):
		writeJSON(w, http.StatusOK, handleResponse{Success: false, Error: "Handle '" + handle + "' not found"})
	default:
		sc.logger.Warnf(providers.TypeCodeforces, "Handle test for %s failed: %s", handle, err)
		writeJSON(w, http.StatusBadGateway, handleResponse{Success: false, Error: "Failed to validate handle"})
	}
}

type recountResponse struct {
	Message string `json:"message"`
	*services.RecountResult
}

// RecalculateContests recomputes solved counts of a student's contests from
// fresh upstream data. Answers 503 while the upstream API is unavailable.
func (sc *SyncController) RecalculateContests(w http.ResponseWriter, r *http.Request) {
	id := studentID(r)
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	if !sc.client.IsAvailable(r.Context()) {
		writeError(w, http.StatusServiceUnavailable, "Codeforces API is currently unavailable")
		return
	}

	res, err := sc.sync.RecountContests(r.Context(), id)
	switch {
	case err == nil:
	case errors.Is(err, models.ErrNotFound):
		writeServiceError(w, err)
		return
	case codeforces.IsUpstream(err):
		sc.logger.Warnf(providers.TypeCodeforces, "Recount of %s failed: %s", id, err)
		writeError(w, http.StatusServiceUnavailable, "Failed to fetch data from Codeforces API")
		return
	default:
		sc.logger.Errorf(providers.TypePost, "Recount of %s failed: %s", id, err)
		writeServiceError(w, err)
		return
	}

	msg := fmt.Sprintf("Recalculation completed: %d contests updated, %d errors", res.Updated, res.Failed)
	writeJSON(w, http.StatusOK, recountResponse{Message: msg, RecountResult: res})
}

type statusResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func (sc *SyncController) APIStatus(w http.ResponseWriter, r *http.Request) {
	if sc.client.IsAvailable(r.Context()) {
		writeJSON(w, http.StatusOK, statusResponse{Status: "available", Message: "Codeforces API is working normally", Timestamp: sc.now()})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, statusResponse{Status: "unavailable", Message: "Codeforces API is currently unavailable", Timestamp: sc.now()})
}
