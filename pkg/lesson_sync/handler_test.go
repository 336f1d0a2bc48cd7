package lesson_sync

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/gorilla/mux"
	"github.com/greensquare/lessonsync/internal/event_bus"
	"github.com/greensquare/lessonsync/pkg/lesson"
	"github.com/greensquare/lessonsync/pkg/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHandler(t *testing.T) (fixture, *mux.Router) {
	f := setupService(t)
	event_bus.SubscribeTyped(f.bus, event_bus.SyncRequestedType, f.service.OnSyncRequested)

	handler := NewHandler(f.service, f.snapshots, f.bus, f.clock, f.service.settings)
	router := mux.NewRouter()
	router.HandleFunc("/webhook/calendar", handler.Webhook).Methods("POST")
	router.HandleFunc("/webhook/calendar", handler.WebhookInfo).Methods("GET")
	router.HandleFunc("/api/sync/daily", handler.SyncDaily).Methods("POST")
	router.HandleFunc("/api/sync/monthly", handler.SyncMonthly).Methods("POST")
	router.HandleFunc("/api/sync/all", handler.SyncAll).Methods("POST")
	return f, router
}

func webhookLog(t *testing.T, f fixture) [][]string {
	rows, err := f.snapshots.ReadRows(context.Background(), snapshot.WebhookLogTable)
	require.NoError(t, err)
	return rows
}

func TestHandler_Webhook(t *testing.T) {
	t.Run("should log the notification and sync", func(t *testing.T) {
		// given
		f, router := setupHandler(t)
		f.source.SetEvents(lesson.MainCalendar, event("E1", "Ken Sato", 10))
		req := httptest.NewRequest(http.MethodPost, "/webhook/calendar", nil)
		req.Header.Set("X-Goog-Resource-State", "exists")
		rec := httptest.NewRecorder()

		// when
		router.ServeHTTP(rec, req)

		// then
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "OK", rec.Body.String())

		logRows := webhookLog(t, f)
		require.Len(t, logRows, 2)
		assert.Equal(t, []string{"Timestamp", "Event", "HasParams", "Details"}, logRows[0])
		assert.Equal(t, []string{"2026-10-16T09:00:00+09:00", "POST received", "false", "resource state: exists"}, logRows[1])

		assert.Equal(t, 1, f.snapshots.Writes(snapshot.DailyTable))
		assert.Equal(t, 1, f.snapshots.Writes(snapshot.MonthlyTable))
	})

	t.Run("should log sync errors and still answer OK", func(t *testing.T) {
		// given
		f, router := setupHandler(t)
		f.source.SetFetchError(lesson.MainCalendar, errors.New("calendar down"))
		body := strings.Repeat("x", 300)
		req := httptest.NewRequest(http.MethodPost, "/webhook/calendar?channel=1", strings.NewReader(body))
		rec := httptest.NewRecorder()

		// when
		router.ServeHTTP(rec, req)

		// then
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "OK", rec.Body.String())

		logRows := webhookLog(t, f)
		require.Len(t, logRows, 3)
		assert.Equal(t, "true", logRows[1][2])
		assert.Equal(t, strings.Repeat("x", 200), logRows[1][3])
		assert.True(t, strings.HasPrefix(logRows[2][3], "Sync error: "))
		assert.Contains(t, logRows[2][3], "calendar down")
	})

	t.Run("should cut long details on a character boundary", func(t *testing.T) {
		// given
		f, router := setupHandler(t)
		body := strings.Repeat("あ", 100)
		req := httptest.NewRequest(http.MethodPost, "/webhook/calendar", strings.NewReader(body))
		rec := httptest.NewRecorder()

		// when
		router.ServeHTTP(rec, req)

		// then
		assert.Equal(t, http.StatusOK, rec.Code)
		logRows := webhookLog(t, f)
		require.GreaterOrEqual(t, len(logRows), 2)
		assert.Equal(t, strings.Repeat("あ", 66), logRows[1][3])
		assert.True(t, utf8.ValidString(logRows[1][3]))
	})

	t.Run("should replace invalid bytes in details", func(t *testing.T) {
		// given
		f, router := setupHandler(t)
		req := httptest.NewRequest(http.MethodPost, "/webhook/calendar", strings.NewReader("\xff\xfesync"))
		rec := httptest.NewRecorder()

		// when
		router.ServeHTTP(rec, req)

		// then
		logRows := webhookLog(t, f)
		require.GreaterOrEqual(t, len(logRows), 2)
		assert.Equal(t, "\uFFFDsync", logRows[1][3])
	})

	t.Run("should answer GET with a hint", func(t *testing.T) {
		_, router := setupHandler(t)
		req := httptest.NewRequest(http.MethodGet, "/webhook/calendar", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Calendar Webhook — use POST", rec.Body.String())
	})
}

func TestHandler_SyncDaily(t *testing.T) {
	t.Run("should sync the requested date", func(t *testing.T) {
		// given
		f, router := setupHandler(t)
		start := time.Date(2026, time.October, 20, 10, 0, 0, 0, tokyo)
		f.source.SetEvents(lesson.MainCalendar, lesson.RawEvent{ID: "E1", Title: "Ken Sato", Start: start, End: start.Add(time.Hour)})
		req := httptest.NewRequest(http.MethodPost, "/api/sync/daily?date=20/10/2026", nil)
		rec := httptest.NewRecorder()

		// when
		router.ServeHTTP(rec, req)

		// then
		require.Equal(t, http.StatusOK, rec.Code)
		var dto DailyResultDTO
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
		assert.Equal(t, DailyResultDTO{Date: "2026-10-20", Lessons: 1, Written: true, Changed: true, Version: 1}, dto)
	})

	t.Run("should reject a malformed date", func(t *testing.T) {
		_, router := setupHandler(t)
		req := httptest.NewRequest(http.MethodPost, "/api/sync/daily?date=2026-10-20", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("should answer conflict while another sync runs", func(t *testing.T) {
		f, router := setupHandler(t)
		release, err := f.locker.Acquire(context.Background(), SyncLockKey, time.Minute)
		require.NoError(t, err)
		defer release()
		req := httptest.NewRequest(http.MethodPost, "/api/sync/daily", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestHandler_SyncMonthly(t *testing.T) {
	t.Run("should sync both months by default", func(t *testing.T) {
		f, router := setupHandler(t)
		f.source.SetEvents(lesson.MainCalendar, event("E1", "Ken Sato", 10))
		req := httptest.NewRequest(http.MethodPost, "/api/sync/monthly", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var dto MonthlyResultDTO
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
		assert.Equal(t, MonthResultDTO{Month: "2026-10", Table: snapshot.MonthlyTable, Rows: 1, Written: true}, dto.Current)
		assert.Equal(t, MonthResultDTO{Month: "2026-11", Table: snapshot.NextMonthTable}, dto.Next)
	})

	t.Run("should sync a single month into the monthly table", func(t *testing.T) {
		f, router := setupHandler(t)
		start := time.Date(2026, time.December, 2, 10, 0, 0, 0, tokyo)
		f.source.SetEvents(lesson.MainCalendar, lesson.RawEvent{ID: "E1", Title: "Ken Sato", Start: start, End: start.Add(time.Hour)})
		req := httptest.NewRequest(http.MethodPost, "/api/sync/monthly?month=December+2026", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var dto MonthResultDTO
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
		assert.Equal(t, MonthResultDTO{Month: "2026-12", Table: snapshot.MonthlyTable, Rows: 1, Written: true}, dto)
	})

	t.Run("should reject an unknown month format", func(t *testing.T) {
		_, router := setupHandler(t)
		req := httptest.NewRequest(http.MethodPost, "/api/sync/monthly?month=soon", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_SyncAll(t *testing.T) {
	f, router := setupHandler(t)
	f.source.SetEvents(lesson.MainCalendar, event("E1", "Ken Sato", 10))
	req := httptest.NewRequest(http.MethodPost, "/api/sync/all", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, f.snapshots.Writes(snapshot.DailyTable))
}
