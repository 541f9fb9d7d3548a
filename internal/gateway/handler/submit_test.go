package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	artifactrepo "instrumentsync/internal/gateway/repository/artifact"
	instrumentrepo "instrumentsync/internal/gateway/repository/instrument"
	"instrumentsync/internal/gateway/service/submission"
)

type faultyRecords struct {
	*instrumentrepo.MemoryStore
	err error
}

func (s *faultyRecords) Insert(ctx context.Context, f instrumentrepo.Fields) (instrumentrepo.Record, error) {
	if s.err != nil {
		return instrumentrepo.Record{}, s.err
	}
	return s.MemoryStore.Insert(ctx, f)
}

type faultyObjects struct {
	*artifactrepo.MemoryStore
	fail map[string]bool
}

func (s *faultyObjects) Put(ctx context.Context, key string, body []byte) error {
	if s.fail[key] {
		return errors.New("503 slow down")
	}
	return s.MemoryStore.Put(ctx, key, body)
}

type fixture struct {
	records *faultyRecords
	objects *faultyObjects
	handler *SubmitHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		records: &faultyRecords{MemoryStore: instrumentrepo.NewMemoryStore()},
		objects: &faultyObjects{MemoryStore: artifactrepo.NewMemoryStore(), fail: map[string]bool{}},
	}
	p, err := submission.New(f.records, f.objects)
	require.NoError(t, err)
	f.handler = NewSubmitHandler(p, nil)
	return f
}

const appleJSON = `{"pre_risk":"HIGH","on_risk":"LOW","cusip":"037833100","isin":"US0378331005"}`

func postJSON(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func TestHandleSubmitJSON(t *testing.T) {
	f := newFixture(t)

	rr := postJSON(f.handler.HandleSubmit, appleJSON)

	require.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, float64(1), body["universe_id"])
	assert.Equal(t, 4, f.objects.Len())
}

func TestHandleSubmitForm(t *testing.T) {
	f := newFixture(t)
	form := url.Values{"pre_risk": {"HIGH"}, "on_risk": {"LOW"}, "cusip": {"037833100"}, "isin": {"US0378331005"}}
	req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()

	f.handler.HandleSubmit(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	got, err := f.objects.Get(context.Background(), "1/pre_risk.csv")
	require.NoError(t, err)
	assert.Equal(t, "universe_id,pre_risk\n1,HIGH", string(got))
}

func TestHandleSubmitValidation(t *testing.T) {
	f := newFixture(t)

	rr := postJSON(f.handler.HandleSubmit, `{"pre_risk":"HIGH","cusip":"037833100"}`)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, "validation", body["kind"])
	assert.Equal(t, []any{"on_risk", "isin"}, body["fields"])
	assert.Zero(t, f.objects.Len())

	rr = postJSON(f.handler.HandleSubmit, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleSubmitPersistenceFailure(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{err: errors.New("connection reset by peer"), status: http.StatusServiceUnavailable},
		{err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), status: http.StatusConflict},
	}
	for _, tc := range cases {
		f := newFixture(t)
		f.records.err = tc.err

		rr := postJSON(f.handler.HandleSubmit, appleJSON)

		assert.Equal(t, tc.status, rr.Code)
		body := decode(t, rr)
		assert.Equal(t, "persistence", body["kind"])
		assert.NotContains(t, rr.Body.String(), "connection reset", "driver errors stay in logs")
		assert.Zero(t, f.objects.Len())
	}
}

func TestHandleSubmitPartialThenRetry(t *testing.T) {
	f := newFixture(t)
	f.objects.fail["1/isin.csv"] = true

	rr := postJSON(f.handler.HandleSubmit, appleJSON)

	require.Equal(t, http.StatusMultiStatus, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, "partial_upload", body["status"])
	assert.Equal(t, float64(1), body["universe_id"])
	assert.Equal(t, []any{"1/isin.csv"}, body["failed_keys"])

	delete(f.objects.fail, "1/isin.csv")
	req := httptest.NewRequest(http.MethodPost, "/submit/1/retry", strings.NewReader(`{"keys":["1/isin.csv"]}`))
	req.SetPathValue("universe_id", "1")
	rr = httptest.NewRecorder()
	f.handler.HandleRetry(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body = decode(t, rr)
	assert.Equal(t, []any{"1/isin.csv"}, body["keys"])
	assert.Equal(t, 4, f.objects.Len())
}

func TestHandleRetryErrors(t *testing.T) {
	f := newFixture(t)

	for _, tc := range []struct {
		id     string
		body   string
		status int
	}{
		{id: "abc", status: http.StatusBadRequest},
		{id: "9", status: http.StatusNotFound},
		{id: "9", body: `{"keys":`, status: http.StatusBadRequest},
		{id: "9", body: `{"keys":["8/cusip.csv"]}`, status: http.StatusBadRequest},
	} {
		req := httptest.NewRequest(http.MethodPost, "/submit/"+tc.id+"/retry", strings.NewReader(tc.body))
		req.SetPathValue("universe_id", tc.id)
		rr := httptest.NewRecorder()
		f.handler.HandleRetry(rr, req)
		assert.Equal(t, tc.status, rr.Code, "id=%s body=%s", tc.id, tc.body)
	}
}
