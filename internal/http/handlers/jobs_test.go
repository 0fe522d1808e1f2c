package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeSQL struct {
	execCount int
	execArgs  []any
	execErr   error
	row       pgx.Row
}

func (f *fakeSQL) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	f.execCount++
	f.execArgs = args
	return pgconn.CommandTag{}, f.execErr
}

func (f *fakeSQL) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	return f.row
}

func (f *fakeSQL) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	return nil, pgx.ErrNoRows
}

type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

func TestJobEnqueue(t *testing.T) {
	sql := &fakeSQL{}
	app := &App{SQL: sql}
	body, _ := json.Marshal(map[string]any{
		"source_url": "https://frames.test/frame.png",
		"style_hint": "watercolor",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/jobs", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	app.JobEnqueue(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 (%s)", rec.Code, rec.Body.String())
	}
	if sql.execCount != 1 {
		t.Fatalf("exec count = %d, want 1", sql.execCount)
	}
	var resp jobResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "QUEUED" || resp.JobID == "" {
		t.Fatalf("response = %+v, want QUEUED with a job id", resp)
	}
}

func TestJobEnqueueRequiresSourceURL(t *testing.T) {
	app := &App{SQL: &fakeSQL{}}
	req := httptest.NewRequest(http.MethodPost, "/v1/jobs", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()

	app.JobEnqueue(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestJobStatus(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	row := fakeRow{scan: func(dest ...any) error {
		*dest[0].(*string) = "job-1"
		*dest[1].(*string) = "https://frames.test/frame.png"
		*dest[2].(*string) = "watercolor"
		*dest[3].(*string) = "SUCCEEDED"
		*dest[4].(*string) = "https://store.test/out.png"
		*dest[5].(*string) = "qwen"
		*dest[6].(*string) = "Neon alley at dusk"
		*dest[7].(*bool) = false
		*dest[8].(*string) = ""
		*dest[9].(*time.Time) = now
		*dest[10].(*time.Time) = now
		return nil
	}}
	app := &App{SQL: &fakeSQL{row: row}}
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/v1/jobs/job-1", nil), "job_id", "job-1")
	rec := httptest.NewRecorder()

	app.JobStatus(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "SUCCEEDED" || resp["reference"] != "https://store.test/out.png" {
		t.Fatalf("response = %v", resp)
	}
}

func TestJobStatusNotFound(t *testing.T) {
	row := fakeRow{scan: func(_ ...any) error { return pgx.ErrNoRows }}
	app := &App{SQL: &fakeSQL{row: row}}
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/v1/jobs/missing", nil), "job_id", "missing")
	rec := httptest.NewRecorder()

	app.JobStatus(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
