// internal/server/handlers.go
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/forgeqa/testforge/api/schemas"
	"github.com/forgeqa/testforge/internal/executor"
	"github.com/forgeqa/testforge/internal/llmclient"
	"github.com/forgeqa/testforge/internal/scanner"
	"github.com/forgeqa/testforge/internal/session"
	"github.com/forgeqa/testforge/internal/store"
)

// Handlers manages the HTTP request handling for the session API.
// Store and generator may be nil when the database or LLM integration is
// not configured; the affected routes respond 503.
type Handlers struct {
	log       *zap.Logger
	registry  *session.Registry
	scanner   *scanner.Scanner
	executor  *executor.Executor
	store     *store.Store
	generator *llmclient.StepGenerator
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(logger *zap.Logger, registry *session.Registry, scan *scanner.Scanner, exec *executor.Executor, st *store.Store, gen *llmclient.StepGenerator) *Handlers {
	return &Handlers{
		log:       logger.Named("handlers"),
		registry:  registry,
		scanner:   scan,
		executor:  exec,
		store:     st,
		generator: gen,
	}
}

// HandleHealthCheck is a simple handler to confirm the server is responsive.
func (h *Handlers) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// HandleCreateSession opens a browser session against the requested URL.
func (h *Handlers) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req schemas.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	resp, err := h.registry.Create(r.Context(), req.URL)
	if err != nil {
		h.respondWithDomainError(w, err)
		return
	}

	respondWithSuccess(w, http.StatusCreated, resp)
}

// HandleCloseSession closes a session and releases its browser page.
func (h *Handlers) HandleCloseSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.registry.Close(r.Context(), sessionID); err != nil {
		h.respondWithDomainError(w, err)
		return
	}

	respondWithSuccess(w, http.StatusOK, map[string]string{"sessionId": sessionID, "message": "session closed"})
}

// HandleScanElements returns the element inventory of the session's page.
func (h *Handlers) HandleScanElements(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := h.registry.Lookup(sessionID)
	if err != nil {
		h.respondWithDomainError(w, err)
		return
	}

	result, err := h.scanner.Scan(r.Context(), sess)
	if err != nil {
		h.respondWithDomainError(w, err)
		return
	}

	respondWithSuccess(w, http.StatusOK, result)
}

// HandleExecuteAction runs one action step against the session. A step that
// failed against the page is still a 200; the outcome is in the payload.
func (h *Handlers) HandleExecuteAction(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req schemas.ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	result, err := h.executor.Execute(r.Context(), sessionID, req)
	if err != nil {
		h.respondWithDomainError(w, err)
		return
	}

	respondWithSuccess(w, http.StatusOK, result)
}

// HandleSessionLogs returns the session's buffered page events.
func (h *Handlers) HandleSessionLogs(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := h.registry.Lookup(sessionID)
	if err != nil {
		h.respondWithDomainError(w, err)
		return
	}

	respondWithSuccess(w, http.StatusOK, map[string]interface{}{
		"sessionId": sessionID,
		"events":    sess.Events(),
	})
}

// HandleListTests lists all saved tests.
func (h *Handlers) HandleListTests(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondWithError(w, http.StatusServiceUnavailable, "test storage is unavailable (database not configured)")
		return
	}

	tests, err := h.store.ListTests(r.Context())
	if err != nil {
		h.log.Error("Failed to list tests.", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "failed to list tests")
		return
	}

	respondWithSuccess(w, http.StatusOK, map[string]interface{}{
		"count": len(tests),
		"tests": tests,
	})
}

// HandleSaveTest creates or replaces a saved test.
func (h *Handlers) HandleSaveTest(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondWithError(w, http.StatusServiceUnavailable, "test storage is unavailable (database not configured)")
		return
	}

	var req schemas.SaveTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.Name == "" {
		respondWithError(w, http.StatusBadRequest, "test name is required")
		return
	}

	test, err := h.store.SaveTest(r.Context(), &req)
	if err != nil {
		h.log.Error("Failed to save test.", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "failed to save test")
		return
	}

	respondWithSuccess(w, http.StatusCreated, test)
}

// HandleGetTest fetches a single saved test.
func (h *Handlers) HandleGetTest(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondWithError(w, http.StatusServiceUnavailable, "test storage is unavailable (database not configured)")
		return
	}

	test, err := h.store.GetTest(r.Context(), chi.URLParam(r, "testID"))
	if err != nil {
		h.respondWithDomainError(w, err)
		return
	}

	respondWithSuccess(w, http.StatusOK, test)
}

// HandleDeleteTest removes a saved test.
func (h *Handlers) HandleDeleteTest(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondWithError(w, http.StatusServiceUnavailable, "test storage is unavailable (database not configured)")
		return
	}

	testID := chi.URLParam(r, "testID")
	if err := h.store.DeleteTest(r.Context(), testID); err != nil {
		h.respondWithDomainError(w, err)
		return
	}

	respondWithSuccess(w, http.StatusOK, map[string]string{"id": testID, "message": "test deleted"})
}

// HandleGenerateSteps turns a natural language description into action steps.
func (h *Handlers) HandleGenerateSteps(w http.ResponseWriter, r *http.Request) {
	if h.generator == nil {
		respondWithError(w, http.StatusServiceUnavailable, "step generation is unavailable (llm not configured)")
		return
	}

	var req schemas.GenerateStepsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.Description == "" {
		respondWithError(w, http.StatusBadRequest, "description is required")
		return
	}

	steps, err := h.generator.GenerateSteps(r.Context(), &req)
	if err != nil {
		h.log.Error("Step generation failed.", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "step generation failed")
		return
	}

	respondWithSuccess(w, http.StatusOK, schemas.GenerateStepsResponse{Steps: steps})
}

// respondWithDomainError maps the error taxonomy onto HTTP statuses.
// Raw driver errors never reach the wire; by the time an error arrives here
// it is one of the schema error types or a store sentinel.
func (h *Handlers) respondWithDomainError(w http.ResponseWriter, err error) {
	var (
		navErr    *schemas.NavigationError
		launchErr *schemas.BrowserLaunchError
		domErr    *schemas.DomAccessError
	)

	switch {
	case schemas.IsClientError(err):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, schemas.ErrSessionNotFound), errors.Is(err, store.ErrTestNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &navErr):
		// Infrastructure failure, but the message names the unreachable URL
		// so the caller can report it.
		h.log.Error("Navigation failed.", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, navErr.Error())
	case errors.As(err, &launchErr):
		h.log.Error("Browser launch failed.", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, launchErr.Error())
	case errors.As(err, &domErr):
		// The scan could not reach the document; the cause tells the caller
		// why no elements were found.
		h.log.Error("Document access failed.", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, domErr.Error())
	default:
		h.log.Error("Request failed with internal error.", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

type apiResponse struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// respondWithError sends a standardized JSON error response.
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, apiResponse{Status: "error", Error: message})
}

// respondWithSuccess sends a standardized JSON success response.
func respondWithSuccess(w http.ResponseWriter, statusCode int, data interface{}) {
	writeJSON(w, statusCode, apiResponse{Status: "success", Data: data})
}

func writeJSON(w http.ResponseWriter, statusCode int, resp apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}
