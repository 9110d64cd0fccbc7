package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gymtrack/occupancy-data/sensor"
	"github.com/gymtrack/occupancy-data/store"
	"github.com/gymtrack/occupancy-data/timeslot"
	"github.com/gymtrack/occupancy-data/tracker"
)

type stubReader struct {
	body []byte
	err  error
}

func (s stubReader) Fetch(ctx context.Context) (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return 0, nil
}

func (s stubReader) FetchRaw(ctx context.Context) ([]byte, error) {
	return s.body, s.err
}

func newTestHandler(t *testing.T, db *store.DB, reader sensor.Reader) http.Handler {
	t.Helper()
	query := tracker.NewReconstructor(db, tracker.QueryOptions{LookbackWeeks: 4})
	poller := tracker.NewPoller(tracker.PollerOptions{}, reader, db)
	return NewHandler(APIHandlerOptions{ServerName: "tracker/test"}, query, reader, poller)
}

func openTestStore(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(store.Options{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func doGet(handler http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
	return rec
}

func TestGetToday(t *testing.T) {
	require := require.New(t)
	db := openTestStore(t)
	ctx := context.Background()

	today := string(timeslot.Day(time.Now()))
	require.NoError(db.AppendHistory(ctx, today+" 09:00", 5))
	require.NoError(db.AppendHistory(ctx, today+" 09:15", 7))
	require.NoError(db.AppendHistory(ctx, today+" 09:30", 9))

	handler := newTestHandler(t, db, stubReader{})
	rec := doGet(handler, "/today")
	require.Equal(http.StatusOK, rec.Code)

	var points []tracker.Point
	require.NoError(json.Unmarshal(rec.Body.Bytes(), &points))
	require.Equal([]tracker.Point{
		{Timestamp: today + " 09:00", Value: 5},
		{Timestamp: today + " 09:15", Value: 7},
		{Timestamp: today + " 09:30", Value: 9},
	}, points)
}

func TestGetWeekday(t *testing.T) {
	require := require.New(t)
	db := openTestStore(t)
	ctx := context.Background()

	anchor := timeslot.LastOccurrence(time.Monday, time.Now())
	day := string(timeslot.Day(anchor))
	require.NoError(db.AppendHistory(ctx, day+" 09:00", 10))
	require.NoError(db.AppendHistory(ctx, day+" 09:15", 7))

	handler := newTestHandler(t, db, stubReader{})
	rec := doGet(handler, "/monday")
	require.Equal(http.StatusOK, rec.Code)

	var points []tracker.Point
	require.NoError(json.Unmarshal(rec.Body.Bytes(), &points))
	require.Equal([]tracker.Point{
		{Timestamp: "monday 09:00", Value: 10},
		{Timestamp: "monday 09:15", Value: 7},
	}, points)
}

func TestGetUnknownSelector(t *testing.T) {
	require := require.New(t)
	db := openTestStore(t)

	handler := newTestHandler(t, db, stubReader{})
	rec := doGet(handler, "/invalidpath")
	require.Equal(http.StatusOK, rec.Code)
	require.JSONEq(`[]`, rec.Body.String())
}

func TestGetLive(t *testing.T) {
	require := require.New(t)
	db := openTestStore(t)

	handler := newTestHandler(t, db, stubReader{body: []byte(`{"value": 42}`)})
	rec := doGet(handler, "/live")
	require.Equal(http.StatusOK, rec.Code)
	require.JSONEq(`{"value": 42}`, rec.Body.String())
}

func TestGetLiveUpstreamFailure(t *testing.T) {
	require := require.New(t)
	db := openTestStore(t)

	// the raw upstream error payload must never reach the response
	reader := stubReader{err: sensor.APIError{StatusCode: http.StatusServiceUnavailable, Body: "sensor exploded"}}
	handler := newTestHandler(t, db, reader)
	rec := doGet(handler, "/live")
	require.Equal(http.StatusInternalServerError, rec.Code)
	require.JSONEq(`{"error": "An internal server error occurred."}`, rec.Body.String())
	require.NotContains(rec.Body.String(), "exploded")
}

func TestHealthcheck(t *testing.T) {
	require := require.New(t)
	db := openTestStore(t)

	handler := newTestHandler(t, db, stubReader{})
	rec := doGet(handler, "/_healthz")
	require.Equal(http.StatusOK, rec.Code)
}
