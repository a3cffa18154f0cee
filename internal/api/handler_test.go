package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/destinyclock/destinyclock/internal/ingestion"
	"github.com/destinyclock/destinyclock/internal/subject"
	"github.com/destinyclock/destinyclock/pkg/config"
	"github.com/destinyclock/destinyclock/pkg/engine"
	"github.com/destinyclock/destinyclock/pkg/oracle"
	"github.com/destinyclock/destinyclock/pkg/oracle/oracletest"
	"github.com/destinyclock/destinyclock/pkg/scoring"
)

func testRegistry(t *testing.T) *engine.Registry {
	return registryWith(t, &oracletest.Arithmetic{})
}

func registryWith(t *testing.T, o oracle.Oracle) *engine.Registry {
	t.Helper()
	profiles, err := config.LoadProfiles(filepath.Join("..", "..", "pkg", "config", "testdata"))
	require.NoError(t, err)
	reg, err := engine.NewRegistry(profiles, o)
	require.NoError(t, err)
	return reg
}

type fakeRuns struct {
	runs     map[string]*subject.Run
	subjects []subject.Subject
	records  map[string][]scoring.DailyRecord
}

func (f *fakeRuns) ListSubjects(context.Context) ([]subject.Subject, error) {
	return f.subjects, nil
}

func (f *fakeRuns) LatestRun(_ context.Context, subjectID string) (*subject.Run, error) {
	var latest *subject.Run
	for _, r := range f.runs {
		if r.SubjectID == subjectID && r.Status == subject.StatusCompleted &&
			(latest == nil || r.CreatedAt.After(latest.CreatedAt)) {
			latest = r
		}
	}
	if latest == nil {
		return nil, subject.ErrNotFound
	}
	return latest, nil
}

func (f *fakeRuns) Records(_ context.Context, runID string, start, end time.Time) ([]scoring.DailyRecord, error) {
	var out []scoring.DailyRecord
	for _, rec := range f.records[runID] {
		if (!start.IsZero() && rec.Date.Before(start)) || (!end.IsZero() && rec.Date.After(end)) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (f *fakeRuns) ListRuns(_ context.Context, subjectID string, _ int) ([]subject.Run, error) {
	var out []subject.Run
	for _, r := range f.runs {
		if r.SubjectID == subjectID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRuns) GetRun(_ context.Context, runID string) (*subject.Run, error) {
	r, ok := f.runs[runID]
	if !ok {
		return nil, subject.ErrNotFound
	}
	return r, nil
}

type fakeRunService struct {
	runs    *fakeRuns
	storage ingestion.StorageClient
}

func (f *fakeRunService) Process(ctx context.Context, req ingestion.RunRequest) (*subject.Run, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	ref := ingestion.SeriesKey(req.SubjectID, "run-1")
	run := &subject.Run{ID: "run-1", SubjectID: req.SubjectID, Start: req.Start, End: req.End,
		Status: subject.StatusCompleted, Records: 3, StorageRef: &ref}
	f.runs.runs[run.ID] = run
	if err := f.storage.PutSeries(ctx, req.SubjectID, run.ID, []byte("date,period\n")); err != nil {
		return nil, err
	}
	return run, nil
}

func (f *fakeRunService) Storage() ingestion.StorageClient { return f.storage }

func newServer(t *testing.T, withRuns bool, apiKey string) (*httptest.Server, *Handler) {
	t.Helper()
	if withRuns {
		runs := &fakeRuns{runs: map[string]*subject.Run{}, records: map[string][]scoring.DailyRecord{}}
		return serve(t, NewHandler(testRegistry(t), runs, newFakeRunService(t, runs), NewSeriesCache(4), nil), apiKey)
	}
	return serve(t, NewHandler(testRegistry(t), nil, nil, NewSeriesCache(4), nil), apiKey)
}

func newFakeRunService(t *testing.T, runs *fakeRuns) *fakeRunService {
	return &fakeRunService{runs: runs, storage: ingestion.NewLocalStorage(t.TempDir())}
}

func serve(t *testing.T, h *Handler, apiKey string) (*httptest.Server, *Handler) {
	t.Helper()
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	srv := httptest.NewServer(CORS(APIKeyAuth(apiKey)(mux)))
	t.Cleanup(srv.Close)
	return srv, h
}

func getJSON(t *testing.T, url string, into any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if into != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
	}
	return resp.StatusCode
}

func TestListSubjects(t *testing.T) {
	srv, _ := newServer(t, false, "")

	var subjects []map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/subjects", &subjects))
	require.Len(t, subjects, 2)
	assert.Equal(t, "demo", subjects[0]["id"])
	assert.Equal(t, "relational", subjects[1]["id"])
	assert.Equal(t, "己巳 辛未 乙丑 庚辰", subjects[0]["natal_chart"])
}

func TestDayEndpoint(t *testing.T) {
	srv, _ := newServer(t, false, "")

	var rec map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/subjects/demo/days/2025-06-11", &rec))
	assert.Equal(t, float64(44), rec["final_score"])
	assert.Equal(t, "辛亥", rec["day"])

	var errBody map[string]string
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/subjects/demo/days/june", &errBody))
	assert.Contains(t, errBody["error"], "YYYY-MM-DD")
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/subjects/nobody/days/2025-06-11", nil))
}

func TestReadingEndpoint(t *testing.T) {
	srv, _ := newServer(t, false, "")

	var rd map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/subjects/relational/reading?date=2025-06-11", &rd))
	assert.Contains(t, rd, "band")
	assert.Len(t, rd["layers"], 4)
}

func TestSeriesEndpointUsesCache(t *testing.T) {
	srv, h := newServer(t, false, "")
	url := srv.URL + "/api/subjects/demo/series?start=2025-06-01&end=2025-06-30&report=true&layer=month"

	var resp seriesResponse
	require.Equal(t, http.StatusOK, getJSON(t, url, &resp))
	assert.Len(t, resp.Records, 30)
	require.NotNil(t, resp.Report)
	assert.Equal(t, 30, resp.Report.Summary.Count)
	assert.Equal(t, 1, h.cache.Len())

	require.Equal(t, http.StatusOK, getJSON(t, url, &resp))
	assert.Equal(t, 1, h.cache.Len())

	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/subjects/demo/series?start=2025-06-30&end=2025-06-01", nil))
}

func TestSeriesEndpointCSV(t *testing.T) {
	srv, _ := newServer(t, false, "")

	resp, err := http.Get(srv.URL + "/api/subjects/demo/series?start=2025-06-10&end=2025-06-11&format=csv")
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "date,period,year"))
	assert.Equal(t, "2025-06-11,己卯,乙巳,壬午,辛亥,7,9,14,14,44", lines[2])
}

func TestSeriesEndpointsReportFailedDays(t *testing.T) {
	bad := time.Date(2025, time.June, 11, 0, 0, 0, 0, time.UTC)
	reg := registryWith(t, &oracletest.Arithmetic{FailOn: func(d time.Time) bool { return d.Equal(bad) }})
	srv, _ := serve(t, NewHandler(reg, nil, nil, NewSeriesCache(4), nil), "")
	q := "?start=2025-06-10&end=2025-06-12"

	var resp seriesResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/subjects/demo/series"+q, &resp))
	assert.Len(t, resp.Records, 2)
	require.Len(t, resp.Failures, 1)
	assert.True(t, resp.Failures[0].Date.Equal(bad))
	assert.Contains(t, resp.Failures[0].Err, "2025-06-11")

	// The cached result keeps its failures.
	resp = seriesResponse{}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/subjects/demo/series"+q, &resp))
	assert.Len(t, resp.Failures, 1)

	httpResp, err := http.Get(srv.URL + "/api/subjects/demo/series" + q + "&format=csv")
	require.NoError(t, err)
	httpResp.Body.Close()
	assert.Equal(t, "1", httpResp.Header.Get("X-Failed-Days"))

	var periods map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/subjects/demo/periods"+q, &periods))
	assert.Len(t, periods["failures"], 1)
	assert.Contains(t, periods, "ranked")

	var cmp map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/compare"+q+"&a=demo&b=relational", &cmp))
	assert.Len(t, cmp["failures_a"], 1)
	assert.Len(t, cmp["failures_b"], 1)
	assert.Len(t, cmp["points"], 2)
}

func TestSeriesEndpointWithoutFailures(t *testing.T) {
	srv, _ := newServer(t, false, "")

	var body map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/subjects/demo/series?start=2025-06-10&end=2025-06-12", &body))
	assert.Equal(t, []any{}, body["failures"])
}

func TestPeriodsEndpoint(t *testing.T) {
	srv, _ := newServer(t, false, "")

	var b map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/subjects/demo/periods?start=2026-12-01&end=2027-01-31&min_samples=20", &b))
	assert.Len(t, b["ranked"], 2)
	assert.Equal(t, float64(20), b["min_samples"])

	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/subjects/demo/periods?min_samples=lots", nil))
}

func TestCompareEndpoint(t *testing.T) {
	srv, _ := newServer(t, false, "")

	var c map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/compare?a=demo&b=relational&start=2025-06-01&end=2025-06-21", &c))
	assert.Len(t, c["points"], 21)

	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/compare?a=demo", nil))
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/compare?a=demo&b=nobody", nil))
}

func TestRunsDisabledWithoutDatabase(t *testing.T) {
	srv, _ := newServer(t, false, "")
	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, srv.URL+"/api/subjects/demo/runs", nil))
}

func TestCreateAndFetchRun(t *testing.T) {
	srv, _ := newServer(t, true, "secret")
	body := `{"subject_id":"demo","start":"2025-06-01","end":"2025-06-03"}`

	resp, err := http.Post(srv.URL+"/api/v1/runs", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/runs", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	var run subject.Run
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&run))
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, subject.StatusCompleted, run.Status)

	var runs []subject.Run
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/subjects/demo/runs", &runs))
	assert.Len(t, runs, 1)

	resp, err = http.Get(srv.URL + "/api/runs/run-1/series")
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "date,period\n", buf.String())

	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/runs/missing", nil))
}

func TestCreateRunRejectsBadDates(t *testing.T) {
	srv, _ := newServer(t, true, "")
	resp, err := http.Post(srv.URL+"/api/v1/runs", "application/json",
		strings.NewReader(`{"subject_id":"demo","start":"2025-06-03","end":"2025-06-01"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newServer(t, false, "secret")
	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/runs", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestWriteFailureStatus(t *testing.T) {
	h := NewHandler(testRegistry(t), nil, nil, nil, nil)
	tests := []struct {
		err  error
		want int
	}{
		{engine.ErrUnknownSubject, http.StatusNotFound},
		{subject.ErrNotFound, http.StatusNotFound},
		{context.Canceled, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		rec := httptest.NewRecorder()
		h.writeFailure(rec, httptest.NewRequest(http.MethodGet, "/x", nil), tc.err)
		if rec.Code != tc.want {
			t.Errorf("writeFailure(%v) = %d, want %d", tc.err, rec.Code, tc.want)
		}
	}
}

func TestStoredRunEndpoints(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2025, time.June, d, 0, 0, 0, 0, time.UTC) }
	storedAt := time.Date(2025, time.July, 1, 9, 0, 0, 0, time.UTC)
	runs := &fakeRuns{
		runs: map[string]*subject.Run{
			"old":     {ID: "old", SubjectID: "demo", Status: subject.StatusCompleted, CreatedAt: day(1)},
			"new":     {ID: "new", SubjectID: "demo", Status: subject.StatusCompleted, CreatedAt: day(2), Failures: 1},
			"running": {ID: "running", SubjectID: "demo", Status: subject.StatusRunning, CreatedAt: day(3)},
		},
		subjects: []subject.Subject{{ID: "demo", UpdatedAt: storedAt}},
		records: map[string][]scoring.DailyRecord{
			"new": {{Date: day(10), FinalScore: 40}, {Date: day(12), FinalScore: 50}, {Date: day(13), FinalScore: 60}},
		},
	}
	srv, _ := serve(t, NewHandler(testRegistry(t), runs, newFakeRunService(t, runs), nil, nil), "")

	var subjects []subjectResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/subjects", &subjects))
	require.Len(t, subjects, 2)
	require.NotNil(t, subjects[0].StoredAt)
	assert.True(t, subjects[0].StoredAt.Equal(storedAt))
	assert.Nil(t, subjects[1].StoredAt)

	var latest subject.Run
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/subjects/demo/runs/latest", &latest))
	assert.Equal(t, "new", latest.ID)
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/subjects/relational/runs/latest", nil))

	var got runRecordsResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/runs/new/records?start=2025-06-11", &got))
	require.Len(t, got.Records, 2)
	assert.Equal(t, 50, got.Records[0].FinalScore)
	assert.Equal(t, 1, got.Run.Failures)

	got = runRecordsResponse{}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/runs/new/records", &got))
	assert.Len(t, got.Records, 3)

	assert.Equal(t, http.StatusConflict, getJSON(t, srv.URL+"/api/runs/running/records", nil))
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/runs/missing/records", nil))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/runs/new/records?start=2025-06-12&end=2025-06-10", nil))
}

func TestStoredRecordsNeedDatabase(t *testing.T) {
	srv, _ := newServer(t, false, "")
	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, srv.URL+"/api/runs/new/records", nil))
	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, srv.URL+"/api/subjects/demo/runs/latest", nil))
}
