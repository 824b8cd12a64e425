// Package server exposes the prompt enhancement HTTP API. The interesting
// machinery lives in pkg/enhancer and below; this layer only decodes
// requests, authenticates them, picks a backend through the coordinator and
// maps failures onto the structured error envelope.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/promatehq/enhancer/pkg/enhancer"
	"github.com/promatehq/enhancer/pkg/logging"
)

// ServiceResolver selects a backend for a requested mode. Implemented by
// *enhancer.Coordinator.
type ServiceResolver interface {
	Get(mode string) (enhancer.Service, error)
	DefaultMode() string
}

// Config holds the HTTP listener settings.
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	APIKey       string
}

type handler struct {
	resolver ServiceResolver
	log      *logging.Logger
}

// New builds the http.Server serving the enhancement API.
func New(cfg Config, resolver ServiceResolver, log *logging.Logger) *http.Server {
	h := &handler{resolver: resolver, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.handleHealth)

	auth := authMiddleware(cfg.APIKey)
	mux.Handle("POST /api/v1/enhance", auth(http.HandlerFunc(h.handleEnhance)))

	return &http.Server{
		Addr:         cfg.Address,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) handleEnhance(w http.ResponseWriter, r *http.Request) {
	var req EnhanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid request body")
		return
	}

	promptText := req.PromptText()
	if promptText == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "prompt must not be empty")
		return
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	svc, err := h.resolver.Get(req.Mode)
	if err != nil {
		var modeErr *enhancer.ModeNotSupportedError
		if errors.As(err, &modeErr) {
			writeError(w, http.StatusBadRequest, codeInvalidMode, err.Error())
			return
		}
		h.log.Errorf("backend initialization failed (request %s): %v", requestID, err)
		writeError(w, http.StatusServiceUnavailable, codeServiceUnavailable, "enhancement backend unavailable")
		return
	}

	mode := req.Mode
	if mode == "" {
		mode = h.resolver.DefaultMode()
	}
	h.log.Infof("prompt enhancement requested (request %s, mode %s, %d characters)", requestID, mode, len(promptText))

	resp, err := svc.Enhance(r.Context(), enhancer.Request{Prompt: promptText, Locale: req.Locale})
	if err != nil {
		h.log.Errorf("enhancement failed (request %s): %v", requestID, err)
		writeError(w, http.StatusInternalServerError, codeEnhancementFailed, "unable to enhance prompt")
		return
	}

	writeJSON(w, http.StatusOK, EnhanceResponse{EnhancedPrompt: resp.Prompt})
}
