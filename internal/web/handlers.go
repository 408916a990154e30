package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/tabsplit/tabsplit/internal/auditing"
	"github.com/tabsplit/tabsplit/internal/metrics"
	"github.com/tabsplit/tabsplit/internal/session"
)

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// jsonError writes a JSON error response with CORS headers set
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleCreateSession handles receipt upload: the image goes to the external
// extractor and a fresh session comes back
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	// Parse multipart form (max 50MB to handle high-resolution phone photos)
	maxFormSize := int64(50 << 20) // 50MB
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		if err.Error() == "http: request body too large" {
			errorMsg = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		errorMsg := "No file provided"
		if err.Error() == "http: no such file" {
			errorMsg = "No file was selected. Please choose a file to upload."
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return
	}
	defer f.Close()

	if header.Size > maxFormSize {
		jsonError(w, "File is too large. Maximum size is 50MB. Please compress or resize your image.", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	// Determine content type
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		ext := strings.ToLower(filepath.Ext(header.Filename))
		switch ext {
		case ".jpg", ".jpeg":
			contentType = "image/jpeg"
		case ".png":
			contentType = "image/png"
		case ".pdf":
			contentType = "application/pdf"
		case ".heic":
			contentType = "image/heic"
		case ".heif":
			contentType = "image/heif"
		default:
			contentType = "application/octet-stream"
		}
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	sess, err := s.service.Scan(header.Filename, data, contentType)
	if err != nil {
		slog.Error("Error scanning receipt", "filename", header.Filename, "error", err)
		metrics.ScansTotal.WithLabelValues(metrics.OutcomeError).Inc()
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	metrics.ScansTotal.WithLabelValues(metrics.OutcomeOK).Inc()

	writeJSON(w, http.StatusCreated, sess)
}

// handleGetSession returns a session's full state
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.service.Get(r.PathValue("id"))
	if err != nil {
		jsonError(w, "Session not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, sess)
}

// handleCommand runs one chat instruction through interpretation and the
// assignment reducer
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		jsonError(w, "Command text required", http.StatusBadRequest)
		return
	}

	result, err := s.service.Command(r.PathValue("id"), req.Text)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrSessionNotFound):
			jsonError(w, "Session not found", http.StatusNotFound)
		case errors.Is(err, session.ErrCommandInFlight):
			jsonError(w, "A command is already being processed for this session", http.StatusConflict)
		case errors.Is(err, session.ErrStaleResult):
			jsonError(w, "Session was reset while the command was being processed", http.StatusConflict)
		case errors.Is(err, session.ErrInterpretation):
			metrics.CommandsTotal.WithLabelValues(metrics.OutcomeError).Inc()
			jsonError(w, "Could not interpret the command; assignments are unchanged", http.StatusBadGateway)
		default:
			slog.Error("Error processing command", "error", err)
			jsonError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}
	metrics.CommandsTotal.WithLabelValues(metrics.OutcomeOK).Inc()

	writeJSON(w, http.StatusOK, result)
}

// handleGetSettlement returns the current per-person breakdown
func (s *Server) handleGetSettlement(w http.ResponseWriter, r *http.Request) {
	settlement, err := s.service.Settlement(r.PathValue("id"))
	if err != nil {
		jsonError(w, "Session not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, settlement)
}

// handleAudit returns the AI fairness review. The audit is advisory, so a
// failed model call degrades to a fixed fallback report instead of an error.
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.Audit(r.PathValue("id"))
	if err != nil {
		switch {
		case errors.Is(err, session.ErrSessionNotFound):
			jsonError(w, "Session not found", http.StatusNotFound)
			return
		case errors.Is(err, session.ErrStaleResult):
			jsonError(w, "Session was reset while the audit was being generated", http.StatusConflict)
			return
		case errors.Is(err, session.ErrAudit):
			metrics.AuditsTotal.WithLabelValues(metrics.OutcomeError).Inc()
			writeJSON(w, http.StatusOK, map[string]string{"report": auditing.FallbackReport})
			return
		default:
			slog.Error("Error generating audit", "error", err)
			jsonError(w, "Internal server error", http.StatusInternalServerError)
			return
		}
	}
	metrics.AuditsTotal.WithLabelValues(metrics.OutcomeOK).Inc()

	writeJSON(w, http.StatusOK, map[string]string{"report": report})
}

// handleResetSession discards a session
func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Reset(r.PathValue("id")); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			jsonError(w, "Session not found", http.StatusNotFound)
			return
		}
		slog.Error("Error resetting session", "error", err)
		jsonError(w, "Error resetting session", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleGetImage returns the original uploaded receipt image
func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.Image(r.PathValue("id"))
	if err != nil {
		jsonError(w, "Image not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}
