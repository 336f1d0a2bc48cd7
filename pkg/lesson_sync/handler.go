package lesson_sync

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/greensquare/lessonsync/internal/event_bus"
	"github.com/greensquare/lessonsync/internal/rest"
	"github.com/greensquare/lessonsync/internal/utils"
	"github.com/greensquare/lessonsync/pkg/snapshot"
	log "github.com/sirupsen/logrus"
)

const (
	webhookDetailsLimit = 200
	webhookBodyLimit    = 64 << 10
)

var webhookLogHeader = []string{"Timestamp", "Event", "HasParams", "Details"}

type DailyResultDTO struct {
	Date             string `json:"date"`
	Lessons          int    `json:"lessons"`
	Written          bool   `json:"written"`
	Changed          bool   `json:"changed"`
	Version          int64  `json:"version"`
	ColorWrites      int    `json:"colorWrites"`
	ColorWriteErrors int    `json:"colorWriteErrors"`
}

type MonthResultDTO struct {
	Month   string `json:"month"`
	Table   string `json:"table"`
	Rows    int    `json:"rows"`
	Written bool   `json:"written"`
	Error   string `json:"error,omitempty"`
}

type MonthlyResultDTO struct {
	Current MonthResultDTO `json:"current"`
	Next    MonthResultDTO `json:"next"`
}

type Handler struct {
	service   Service
	snapshots snapshot.Repository
	bus       *event_bus.EventBus
	clock     utils.Clock
	location  *time.Location
}

func NewHandler(service Service, snapshots snapshot.Repository, bus *event_bus.EventBus, clock utils.Clock, settings Settings) *Handler {
	loc := settings.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{service: service, snapshots: snapshots, bus: bus, clock: clock, location: loc}
}

// WebhookInfo answers GET on the webhook address.
func (h *Handler) WebhookInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "Calendar Webhook — use POST")
}

// Webhook receives calendar push notifications. The notification carries no
// usable payload, every POST triggers a full sync. The answer is always 200 so
// the calendar system does not retry.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, webhookBodyLimit))
	if err != nil {
		log.Warnf("could not read webhook body: %v", err)
	}
	hasParams := len(r.URL.Query()) > 0 || len(body) > 0
	details := truncateUTF8(string(body), webhookDetailsLimit)
	if state := r.Header.Get("X-Goog-Resource-State"); details == "" && state != "" {
		details = "resource state: " + state
	}
	h.logWebhook(r.Context(), hasParams, details)

	if err := h.requestSync(r.Context(), "webhook"); err != nil {
		h.logWebhook(r.Context(), hasParams, "Sync error: "+err.Error())
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "OK")
}

// truncateUTF8 cuts value to at most limit bytes without splitting a
// character. Invalid bytes are replaced later, in logWebhook.
func truncateUTF8(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut]
}

func (h *Handler) requestSync(ctx context.Context, trigger string) error {
	return h.bus.Publish(event_bus.NewEvent(ctx, event_bus.SyncRequestedType, event_bus.SyncRequested{Trigger: trigger}))
}

// logWebhook appends to the webhook log table, creating it on first use.
// Failures are logged only.
func (h *Handler) logWebhook(ctx context.Context, hasParams bool, details string) {
	row := []string{
		h.clock.Now().In(h.location).Format(time.RFC3339),
		"POST received",
		strconv.FormatBool(hasParams),
		strings.ToValidUTF8(details, "\uFFFD"),
	}
	err := h.snapshots.AppendRow(ctx, snapshot.WebhookLogTable, row)
	if errors.Is(err, snapshot.ErrTableNotFound) {
		err = h.snapshots.WriteRows(ctx, snapshot.WebhookLogTable, webhookLogHeader, [][]string{row})
	}
	if err != nil {
		log.Warnf("could not append to %s: %v", snapshot.WebhookLogTable, err)
	}
}

func (h *Handler) SyncDaily(w http.ResponseWriter, r *http.Request) {
	date, err := ParseDailyOverride(r.URL.Query().Get("date"), h.clock.Now(), h.location)
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid date", err.Error())
		return
	}

	result, err := h.service.SyncDaily(r.Context(), date)
	if err != nil {
		writeSyncError(w, err)
		return
	}
	rest.WriteJSON(w, DailyResultDTO{
		Date:             result.Date.Format("2006-01-02"),
		Lessons:          len(result.Lessons),
		Written:          result.Written,
		Changed:          result.Changed,
		Version:          result.Version,
		ColorWrites:      result.ColorWrites,
		ColorWriteErrors: result.ColorWriteErrors,
	})
}

// SyncMonthly caches one month into the monthly table when ?month= is given,
// otherwise the current and the next month into their tables.
func (h *Handler) SyncMonthly(w http.ResponseWriter, r *http.Request) {
	monthParam := r.URL.Query().Get("month")
	if monthParam != "" {
		month, err := ResolveMonth(monthParam, h.clock.Now(), h.location)
		if err != nil {
			rest.WriteError(w, http.StatusBadRequest, "Invalid month", err.Error())
			return
		}
		result, err := h.service.SyncMonthly(r.Context(), month, snapshot.MonthlyTable)
		if errors.Is(err, ErrSyncInProgress) {
			writeSyncError(w, err)
			return
		}
		rest.WriteJSON(w, monthToDTO(result))
		return
	}

	result, err := h.service.SyncBothMonths(r.Context())
	if err != nil {
		writeSyncError(w, err)
		return
	}
	rest.WriteJSON(w, MonthlyResultDTO{
		Current: monthToDTO(result.Current),
		Next:    monthToDTO(result.Next),
	})
}

func (h *Handler) SyncAll(w http.ResponseWriter, r *http.Request) {
	if err := h.service.SyncAll(r.Context()); err != nil {
		writeSyncError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeSyncError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrSyncInProgress) {
		rest.WriteError(w, http.StatusConflict, "Sync already running", err.Error())
		return
	}
	rest.WriteError(w, http.StatusInternalServerError, "Sync failed", err.Error())
}

func monthToDTO(result MonthResult) MonthResultDTO {
	dto := MonthResultDTO{
		Month:   result.Month,
		Table:   result.Table,
		Rows:    result.Rows,
		Written: result.Written,
	}
	if result.Err != nil {
		dto.Error = result.Err.Error()
	}
	return dto
}
