package http

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"quizly-service/internal/app"
	"quizly-service/internal/codec"
	"quizly-service/internal/domain"
	"quizly-service/internal/infra/memory"
)

// RESTHandler exposes the quiz library: CRUD, xlsx export/import, and remote
// generation.
type RESTHandler struct {
	service  *app.QuizService
	registry *memory.AttemptRegistry
}

func NewRESTHandler(service *app.QuizService, registry *memory.AttemptRegistry) *RESTHandler {
	return &RESTHandler{service: service, registry: registry}
}

// Register wires the handler's routes into the mux.
func (h *RESTHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /quizzes", h.listQuizzes)
	mux.HandleFunc("POST /quizzes", h.saveQuiz)
	mux.HandleFunc("GET /quizzes/{id}", h.getQuiz)
	mux.HandleFunc("DELETE /quizzes/{id}", h.deleteQuiz)
	mux.HandleFunc("GET /quizzes/{id}/export", h.exportQuiz)
	mux.HandleFunc("POST /quizzes/import", h.importQuiz)
	mux.HandleFunc("POST /generate", h.generateQuiz)
	mux.HandleFunc("GET /stats", h.stats)
}

func (h *RESTHandler) listQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.service.ListQuizzes(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, quizzes)
}

func (h *RESTHandler) getQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.service.GetQuiz(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, quiz)
}

// saveQuiz creates or replaces a quiz whole. Bodies without an id are new
// quizzes and come back with a fresh id and creation timestamp.
func (h *RESTHandler) saveQuiz(w http.ResponseWriter, r *http.Request) {
	var quiz domain.Quiz
	if err := json.NewDecoder(r.Body).Decode(&quiz); err != nil {
		http.Error(w, "invalid quiz body", http.StatusBadRequest)
		return
	}
	saved, err := h.service.SaveQuiz(r.Context(), quiz)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, saved)
}

func (h *RESTHandler) deleteQuiz(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteQuiz(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RESTHandler) exportQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.service.GetQuiz(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	data, err := codec.Export(quiz)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+codec.ExportFileName(quiz.Title)+`"`)
	_, _ = w.Write(data)
}

func (h *RESTHandler) importQuiz(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 10<<20))
	if err != nil {
		http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
		return
	}
	draft, err := codec.Import(data)
	if err != nil {
		h.writeError(w, err)
		return
	}
	quiz, err := h.service.CreateFromDraft(r.Context(), draft)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, quiz)
}

func (h *RESTHandler) generateQuiz(w http.ResponseWriter, r *http.Request) {
	var req app.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid generate body", http.StatusBadRequest)
		return
	}
	quiz, err := h.service.GenerateQuiz(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, quiz)
}

func (h *RESTHandler) stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]int{"activeAttempts": h.registry.Active()})
}

func (h *RESTHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

type errorBody struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (h *RESTHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	retryable := false
	switch {
	case errors.Is(err, domain.ErrQuizNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidQuiz), errors.Is(err, domain.ErrBadDocument), errors.Is(err, domain.ErrQuizNotPlayable):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrGenerationFailed):
		// Generation failures are surfaced distinctly so clients can offer
		// a retry; the server never retries on its own.
		status = http.StatusBadGateway
		retryable = true
	}
	h.writeJSON(w, status, errorBody{Error: err.Error(), Retryable: retryable})
}
