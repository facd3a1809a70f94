package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Devjadhav25/Prashikshan-sub001/internal/db"
	"github.com/Devjadhav25/Prashikshan-sub001/internal/ingest"
	"github.com/Devjadhav25/Prashikshan-sub001/internal/model"
	"github.com/Devjadhav25/Prashikshan-sub001/internal/notify"
	"github.com/Devjadhav25/Prashikshan-sub001/internal/store"
)

type stubSyncer struct {
	mu      sync.Mutex
	queries []string
	state   ingest.State
	ctxErr  error
}

func (s *stubSyncer) Run(ctx context.Context, query string) ingest.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)
	s.ctxErr = ctx.Err()
	state := s.state
	if state == "" {
		state = ingest.StateCompleted
	}
	return ingest.Report{RunID: "run-1", Query: query, State: state, Merged: 2}
}

func (s *stubSyncer) setState(st ingest.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

func (s *stubSyncer) lastCtxErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctxErr
}

type fixture struct {
	store  store.Store
	syncer *stubSyncer
	srv    *httptest.Server
	user   *model.User
}

func newFixture(t *testing.T, adminToken string) *fixture {
	t.Helper()
	gdb, err := db.NewSQLite(filepath.Join(t.TempDir(), "server.db"), true)
	require.NoError(t, err)
	s := store.NewGormStore(gdb)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })

	user, err := s.EnsureUser(context.Background(), &model.User{Email: "s@example.com", ProviderID: "p|s"})
	require.NoError(t, err)

	hub := notify.NewHub()
	t.Cleanup(hub.Close)

	f := &fixture{store: s, syncer: &stubSyncer{}, user: user}
	h := NewHandler(Options{
		Store:        s,
		Syncer:       f.syncer,
		Hub:          hub,
		AdminToken:   adminToken,
		DefaultQuery: "Software Engineer",
		Version:      "test",
	})
	f.srv = httptest.NewServer(h.Routes())
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestHealth(t *testing.T) {
	f := newFixture(t, "")
	resp, body := f.do(t, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "jobsync", body["service"])
	assert.Equal(t, "test", body["version"])
	assert.Equal(t, 0.0, body["clients"])
}

func TestSync_Authorization(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		header string
		want   int
	}{
		{"disabled without configured token", "", "anything", http.StatusForbidden},
		{"missing header", "secret", "", http.StatusForbidden},
		{"wrong header", "secret", "nope", http.StatusForbidden},
		{"valid", "secret", "secret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.token)
			resp, _ := f.do(t, http.MethodPost, "/sync", "", map[string]string{"x-admin-token": tt.header})
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestSync_ReturnsReport(t *testing.T) {
	f := newFixture(t, "secret")
	hdr := map[string]string{"x-admin-token": "secret"}

	resp, body := f.do(t, http.MethodPost, "/sync", "", hdr)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Software Engineer", body["query"])
	assert.Equal(t, "Completed", body["state"])
	assert.Equal(t, 2.0, body["merged"])

	_, body = f.do(t, http.MethodPost, "/sync", `{"query":"Data Analyst"}`, hdr)
	assert.Equal(t, "Data Analyst", body["query"])
	assert.NoError(t, f.syncer.lastCtxErr())

	f.syncer.setState(ingest.StateFailed)
	resp, _ = f.do(t, http.MethodPost, "/sync", "", hdr)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/sync", "{bad", hdr)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestJobs_ListGetAndActions(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	job, err := f.store.CreateJob(ctx, model.NewManualJob("Intern", "d", 5000, f.user.ID))
	require.NoError(t, err)

	resp, err := http.Get(f.srv.URL + "/jobs")
	require.NoError(t, err)
	var jobs []model.Job
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&jobs))
	resp.Body.Close()
	require.Len(t, jobs, 1)
	assert.Equal(t, job.ID, jobs[0].ID)

	r, _ := f.do(t, http.MethodGet, "/jobs/"+job.ID, "", nil)
	assert.Equal(t, http.StatusOK, r.StatusCode)

	r, _ = f.do(t, http.MethodPost, "/jobs/"+job.ID+"/like", "", nil)
	assert.Equal(t, http.StatusUnauthorized, r.StatusCode)

	user := map[string]string{"x-user-id": f.user.ID}
	r, body := f.do(t, http.MethodPost, "/jobs/"+job.ID+"/apply", "", user)
	require.Equal(t, http.StatusOK, r.StatusCode)
	assert.Equal(t, []any{f.user.ID}, body["applicants"])

	r, _ = f.do(t, http.MethodPost, "/jobs/"+job.ID+"/share", "", user)
	assert.Equal(t, http.StatusNotFound, r.StatusCode)

	r, _ = f.do(t, http.MethodPost, "/jobs/00000000-0000-0000-0000-000000000000/like", "", user)
	assert.Equal(t, http.StatusNotFound, r.StatusCode)
}

func TestLogbooks_CreateAndReview(t *testing.T) {
	f := newFixture(t, "")
	student := map[string]string{"x-user-id": f.user.ID}

	r, body := f.do(t, http.MethodPost, "/logbooks",
		`{"date":"2026-07-01","hoursWorked":5,"taskDescription":"wrote tests"}`, student)
	require.Equal(t, http.StatusCreated, r.StatusCode)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)

	r, _ = f.do(t, http.MethodPost, "/logbooks",
		`{"date":"2026-07-01","hoursWorked":2,"taskDescription":"again"}`, student)
	assert.Equal(t, http.StatusConflict, r.StatusCode)

	r, _ = f.do(t, http.MethodPost, "/logbooks",
		`{"date":"2026-07-02","hoursWorked":20,"taskDescription":"too much"}`, student)
	assert.Equal(t, http.StatusBadRequest, r.StatusCode)

	r, _ = f.do(t, http.MethodPost, "/logbooks", `{"date":"July 3"}`, student)
	assert.Equal(t, http.StatusBadRequest, r.StatusCode)

	r, body = f.do(t, http.MethodPost, "/logbooks/"+id+"/review", `{"status":"APPROVED"}`, student)
	require.Equal(t, http.StatusOK, r.StatusCode)
	assert.Equal(t, "APPROVED", body["status"])

	r, _ = f.do(t, http.MethodPost, "/logbooks/"+id+"/review", `{"status":"REJECTED"}`, student)
	assert.Equal(t, http.StatusBadRequest, r.StatusCode)

	r, _ = f.do(t, http.MethodPost, "/logbooks/"+id+"/review", `{"status":"LOST"}`, student)
	assert.Equal(t, http.StatusBadRequest, r.StatusCode)
}

func TestResources_Complete(t *testing.T) {
	f := newFixture(t, "")
	res, err := f.store.CreateResource(context.Background(), &model.Resource{
		Title: "SQL Basics", SkillsAwarded: []string{"SQL"}, Credits: 1,
	})
	require.NoError(t, err)
	user := map[string]string{"x-user-id": f.user.ID}

	r, body := f.do(t, http.MethodPost, "/resources/"+res.ID+"/complete", "", user)
	require.Equal(t, http.StatusOK, r.StatusCode)
	assert.Equal(t, true, body["awarded"])

	_, body = f.do(t, http.MethodPost, "/resources/"+res.ID+"/complete", "", user)
	assert.Equal(t, false, body["awarded"])
}
