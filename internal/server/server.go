// Package server implements the HTTP surface of the sync service.
//
// Routes:
//
//	GET  /health                    → liveness and connected client count
//	POST /sync                      → run one sync now (x-admin-token)
//	GET  /ws                        → WebSocket subscription to job events
//	GET  /jobs                      → list canonical jobs
//	GET  /jobs/{id}                 → one job
//	POST /jobs/{id}/{action}        → like | apply | save (x-user-id)
//	POST /logbooks                  → create today's entry (x-user-id)
//	POST /logbooks/{id}/review      → approve or reject (x-user-id)
//	POST /resources/{id}/complete   → award credits and skills (x-user-id)
//
// The x-user-id header is forwarded by the gateway after authentication.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Devjadhav25/Prashikshan-sub001/internal/ingest"
	"github.com/Devjadhav25/Prashikshan-sub001/internal/model"
	"github.com/Devjadhav25/Prashikshan-sub001/internal/store"
)

// Syncer runs one sync. *ingest.Syncer satisfies it.
type Syncer interface {
	Run(ctx context.Context, query string) ingest.Report
}

// Hub is the WebSocket endpoint; *notify.Hub satisfies it.
type Hub interface {
	http.Handler
	ClientCount() int
}

// Options configures a Handler.
type Options struct {
	Store        store.Store
	Syncer       Syncer
	Hub          Hub
	AdminToken   string // POST /sync answers 403 when empty
	DefaultQuery string
	Service      string
	Version      string
}

// Handler holds shared dependencies.
type Handler struct {
	opts Options
}

// NewHandler returns a configured Handler.
func NewHandler(opts Options) *Handler {
	if opts.Service == "" {
		opts.Service = "jobsync"
	}
	return &Handler{opts: opts}
}

// RegisterRoutes mounts all routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("POST /sync", h.sync)
	if h.opts.Hub != nil {
		mux.Handle("GET /ws", h.opts.Hub)
	}
	mux.HandleFunc("GET /jobs", h.listJobs)
	mux.HandleFunc("GET /jobs/{id}", h.getJob)
	mux.HandleFunc("POST /jobs/{id}/{action}", h.jobAction)
	mux.HandleFunc("POST /logbooks", h.createLogbook)
	mux.HandleFunc("POST /logbooks/{id}/review", h.reviewLogbook)
	mux.HandleFunc("POST /resources/{id}/complete", h.completeResource)
}

// Routes returns a mux with every route mounted.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux
}

// ─── Sync ────────────────────────────────────────────────────────────────────

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	clients := 0
	if h.opts.Hub != nil {
		clients = h.opts.Hub.ClientCount()
	}
	jsonOK(w, map[string]any{
		"status":  "ok",
		"service": h.opts.Service,
		"version": h.opts.Version,
		"clients": clients,
	})
}

// sync runs a sync synchronously and returns its Report. The run is
// detached from the request so a dropped client does not abort it.
func (h *Handler) sync(w http.ResponseWriter, r *http.Request) {
	if h.opts.AdminToken == "" {
		jsonError(w, "manual sync is disabled", http.StatusForbidden)
		return
	}
	token := r.Header.Get("x-admin-token")
	if subtle.ConstantTimeCompare([]byte(token), []byte(h.opts.AdminToken)) != 1 {
		jsonError(w, "invalid admin token", http.StatusForbidden)
		return
	}

	var body struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	query := body.Query
	if query == "" {
		query = h.opts.DefaultQuery
	}

	rep := h.opts.Syncer.Run(context.WithoutCancel(r.Context()), query)
	code := http.StatusOK
	if rep.State == ingest.StateFailed {
		code = http.StatusBadGateway
	}
	jsonStatus(w, rep, code)
}

// ─── Jobs ────────────────────────────────────────────────────────────────────

func (h *Handler) listJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.opts.Store.ListJobs(r.Context())
	if err != nil {
		storeError(w, "listJobs", err)
		return
	}
	jsonOK(w, jobs)
}

func (h *Handler) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.opts.Store.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		storeError(w, "getJob", err)
		return
	}
	jsonOK(w, job)
}

func (h *Handler) jobAction(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	jobID := r.PathValue("id")

	var err error
	switch action := r.PathValue("action"); action {
	case "like":
		err = h.opts.Store.LikeJob(r.Context(), jobID, userID)
	case "apply":
		err = h.opts.Store.ApplyToJob(r.Context(), jobID, userID)
	case "save":
		err = h.opts.Store.SaveJob(r.Context(), userID, jobID)
	default:
		jsonError(w, "unknown action "+action, http.StatusNotFound)
		return
	}
	if err != nil {
		storeError(w, "jobAction", err)
		return
	}

	job, err := h.opts.Store.GetJob(r.Context(), jobID)
	if err != nil {
		storeError(w, "jobAction", err)
		return
	}
	jsonOK(w, job)
}

// ─── Logbooks & resources ────────────────────────────────────────────────────

func (h *Handler) createLogbook(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var body struct {
		Date            string `json:"date"` // YYYY-MM-DD; today when empty
		HoursWorked     int    `json:"hoursWorked"`
		TaskDescription string `json:"taskDescription"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	day, err := parseDay(body.Date)
	if err != nil {
		jsonError(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	entry, err := h.opts.Store.CreateLogbook(r.Context(), &model.Logbook{
		StudentID:       userID,
		Date:            day,
		HoursWorked:     body.HoursWorked,
		TaskDescription: body.TaskDescription,
	})
	if err != nil {
		storeError(w, "createLogbook", err)
		return
	}
	jsonStatus(w, entry, http.StatusCreated)
}

func (h *Handler) reviewLogbook(w http.ResponseWriter, r *http.Request) {
	reviewerID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Status == "" {
		jsonError(w, "body must contain status", http.StatusBadRequest)
		return
	}
	status, err := model.ParseLogbookStatus(body.Status)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	entry, err := h.opts.Store.ReviewLogbook(r.Context(), r.PathValue("id"), reviewerID, status)
	if err != nil {
		storeError(w, "reviewLogbook", err)
		return
	}
	jsonOK(w, entry)
}

func (h *Handler) completeResource(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	awarded, err := h.opts.Store.CompleteResource(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		storeError(w, "completeResource", err)
		return
	}
	user, err := h.opts.Store.GetUser(r.Context(), userID)
	if err != nil {
		storeError(w, "completeResource", err)
		return
	}
	jsonOK(w, map[string]any{"awarded": awarded, "user": user})
}
