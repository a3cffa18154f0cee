package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/destinyclock/destinyclock/internal/ingestion"
	"github.com/destinyclock/destinyclock/internal/subject"
	"github.com/destinyclock/destinyclock/pkg/ganzhi"
	"github.com/destinyclock/destinyclock/pkg/scoring"
)

// runRequest is the JSON body for POST /api/v1/runs.
type runRequest struct {
	SubjectID string `json:"subject_id"`
	Start     string `json:"start"` // YYYY-MM-DD
	End       string `json:"end"`
}

type runRecordsResponse struct {
	Run     *subject.Run          `json:"run"`
	Records []scoring.DailyRecord `json:"records"`
}

func (h *Handler) runsEnabled(w http.ResponseWriter) bool {
	if h.runs == nil || h.runSvc == nil {
		writeError(w, http.StatusServiceUnavailable, "runs require a database")
		return false
	}
	return true
}

// handleCreateRun generates and stores a series synchronously.
func (h *Handler) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	if !h.runsEnabled(w) {
		return
	}
	var body runRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	start, err := parseDate("start", body.Start)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	end, err := parseDate("end", body.End)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	run, err := h.runSvc.Process(r.Context(), ingestion.RunRequest{SubjectID: body.SubjectID, Start: start, End: end})
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if !h.runsEnabled(w) {
		return
	}
	subjectID := r.PathValue("subjectID")
	if _, err := h.subjects.Get(subjectID); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	limit, err := intParam(r, "limit", 50)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	runs, err := h.runs.ListRuns(r.Context(), subjectID, limit)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	if runs == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if !h.runsEnabled(w) {
		return
	}
	run, err := h.runs.GetRun(r.Context(), r.PathValue("runID"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleRunSeries streams the stored CSV of a completed run.
func (h *Handler) handleRunSeries(w http.ResponseWriter, r *http.Request) {
	if !h.runsEnabled(w) {
		return
	}
	run, err := h.runs.GetRun(r.Context(), r.PathValue("runID"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	if run.StorageRef == nil {
		writeError(w, http.StatusConflict, "run has no stored series (status "+run.Status+")")
		return
	}
	data, err := h.runSvc.Storage().GetSeries(r.Context(), run.SubjectID, run.ID)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleLatestRun returns the subject's most recent completed run.
func (h *Handler) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	if !h.runsEnabled(w) {
		return
	}
	subjectID := r.PathValue("subjectID")
	if _, err := h.subjects.Get(subjectID); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	run, err := h.runs.LatestRun(r.Context(), subjectID)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleRunRecords serves a run's stored records. start and end are
// optional; a missing bound is open.
func (h *Handler) handleRunRecords(w http.ResponseWriter, r *http.Request) {
	if !h.runsEnabled(w) {
		return
	}
	var (
		start, end time.Time
		err        error
	)
	q := r.URL.Query()
	if v := q.Get("start"); v != "" {
		if start, err = parseDate("start", v); err != nil {
			h.writeFailure(w, r, err)
			return
		}
	}
	if v := q.Get("end"); v != "" {
		if end, err = parseDate("end", v); err != nil {
			h.writeFailure(w, r, err)
			return
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		h.writeFailure(w, r, fmt.Errorf("%w: end before start", ganzhi.ErrInvalidInput))
		return
	}

	run, err := h.runs.GetRun(r.Context(), r.PathValue("runID"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	if run.Status != subject.StatusCompleted {
		writeError(w, http.StatusConflict, "run has no stored records (status "+run.Status+")")
		return
	}
	recs, err := h.runs.Records(r.Context(), run.ID, start, end)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	if recs == nil {
		recs = []scoring.DailyRecord{}
	}
	writeJSON(w, http.StatusOK, runRecordsResponse{Run: run, Records: recs})
}
