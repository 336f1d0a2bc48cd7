package app_state

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/greensquare/lessonsync/internal/rest"
	log "github.com/sirupsen/logrus"
)

type StateDTO struct {
	CacheVersion int64           `json:"cacheVersion"`
	LastUpdated  *string         `json:"lastUpdated"`
	Flags        map[string]bool `json:"flags"`
}

type FlagDTO struct {
	Name  string `json:"name"`
	Value bool   `json:"value"`
}

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	state, err := h.repo.GetState(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	flags, err := h.repo.GetFlags(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dto := StateDTO{CacheVersion: state.CacheVersion, Flags: flags}
	if !state.LastUpdated.IsZero() {
		lastUpdated := state.LastUpdated.UTC().Format(time.RFC3339)
		dto.LastUpdated = &lastUpdated
	}
	rest.WriteJSON(w, dto)
}

func (h *Handler) SetFlag(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var body struct {
		Value *bool `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Value == nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", `expected {"value": true|false}`)
		return
	}

	err := h.repo.SetFlag(r.Context(), name, *body.Value)
	if errors.Is(err, ErrUnknownFlag) {
		rest.WriteError(w, http.StatusNotFound, "Unknown flag", name)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	log.Infof("flag %s set to %t", name, *body.Value)
	rest.WriteJSON(w, FlagDTO{Name: name, Value: *body.Value})
}
