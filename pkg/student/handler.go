package student

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/greensquare/lessonsync/internal/rest"
)

type StudentDTO struct {
	Name   string `json:"name"`
	Folder string `json:"folder"`
}

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	students, err := h.repo.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	dtos := make([]StudentDTO, 0, len(students))
	for _, s := range students {
		dtos = append(dtos, StudentDTO{Name: s.Name, Folder: s.Folder})
	}
	rest.WriteJSON(w, dtos)
}

func (h *Handler) Store(w http.ResponseWriter, r *http.Request) {
	var dto StudentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", "")
		return
	}
	dto.Name = strings.TrimSpace(dto.Name)
	dto.Folder = strings.TrimSpace(dto.Folder)
	if dto.Name == "" || dto.Folder == "" {
		rest.WriteError(w, http.StatusBadRequest, "Name and folder are required", "")
		return
	}

	if err := h.repo.Store(r.Context(), Student{Name: dto.Name, Folder: dto.Folder}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	rest.WriteJSON(w, dto)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	err := h.repo.Delete(r.Context(), name)
	if errors.Is(err, ErrStudentNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
