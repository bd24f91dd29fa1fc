package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mouncefik/nbgen/utils/config"
	"github.com/mouncefik/nbgen/utils/pipeline"
)

// GenerateResponse is the JSON body returned by the generation API
type GenerateResponse struct {
	Success    bool     `json:"success"`
	RequestID  string   `json:"requestId,omitempty"`
	Notebook   string   `json:"notebook,omitempty"`
	Filename   string   `json:"filename,omitempty"`
	Cells      int      `json:"cells,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
	Error      string   `json:"error,omitempty"`
	ErrorClass string   `json:"errorClass,omitempty"`
	Guidance   string   `json:"guidance,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func successResponse(result *pipeline.Result) GenerateResponse {
	return GenerateResponse{
		Success:   true,
		RequestID: result.RequestID,
		Notebook:  result.Notebook,
		Filename:  result.Filename,
		Cells:     result.Cells,
		Warnings:  result.Warnings,
	}
}

func errorResponse(requestID string, err error) GenerateResponse {
	class := pipeline.Classify(err)
	return GenerateResponse{
		Success:    false,
		RequestID:  requestID,
		Error:      err.Error(),
		ErrorClass: class.String(),
		Guidance:   class.Guidance(),
	}
}

// statusForClass maps an error class to the HTTP status reported for it
func statusForClass(class pipeline.Class) int {
	switch class {
	case pipeline.ClassInput:
		return http.StatusBadRequest
	case pipeline.ClassCredentials:
		return http.StatusUnauthorized
	case pipeline.ClassRetryLater:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// responseWriter wraps http.ResponseWriter to capture the status code and implement http.Flusher
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	written     int64
	headersSent bool
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.headersSent {
		rw.statusCode = code
		rw.ResponseWriter.WriteHeader(code)
		rw.headersSent = true
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.headersSent {
		// If no status has been set before first write, use 200 OK
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// sseWriter formats pipeline events as Server-Sent Events
type sseWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func (sw *sseWriter) send(event, data string) (n int, err error) {
	config.DebugLog("[SSE] Sending %s event, length=%d", event, len(data))
	n, err = fmt.Fprintf(sw.w, "event: %s\ndata: %s\n\n", event, data)
	if err != nil {
		config.DebugLog("[SSE] Error writing %s event: %v", event, err)
		return
	}
	sw.f.Flush()
	return
}

func (sw *sseWriter) sendJSON(event string, v interface{}) (int, error) {
	data, err := json.Marshal(v)
	if err != nil {
		config.DebugLog("[SSE] Error marshaling %s data: %v", event, err)
		return 0, err
	}
	return sw.send(event, string(data))
}

// SendProgress sends a progress event for a pipeline step
func (sw *sseWriter) SendProgress(update pipeline.ProgressUpdate) (int, error) {
	return sw.sendJSON("progress", map[string]string{
		"stage":   string(update.Stage),
		"message": update.Message,
	})
}

// SendComplete sends the final generation result
func (sw *sseWriter) SendComplete(resp GenerateResponse) (int, error) {
	return sw.sendJSON("complete", resp)
}

// SendError sends a classified error event
func (sw *sseWriter) SendError(requestID string, err error) (int, error) {
	return sw.sendJSON("error", errorResponse(requestID, err))
}

func (sw *sseWriter) SendHeartbeat() (n int, err error) {
	n, err = fmt.Fprint(sw.w, ": heartbeat\n\n")
	if err != nil {
		return
	}
	sw.f.Flush()
	return
}
