package server

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mouncefik/nbgen/utils/config"
	"github.com/mouncefik/nbgen/utils/pipeline"
)

// upload is a parsed generation request with its files saved to a temporary directory
type upload struct {
	inputs pipeline.Inputs
	model  string
	dir    string
}

func (u *upload) cleanup(r *http.Request) {
	if r.MultipartForm != nil {
		r.MultipartForm.RemoveAll()
	}
	if u.dir != "" {
		if err := os.RemoveAll(u.dir); err != nil {
			config.Logger().Warnf("Error removing upload directory %s: %v", u.dir, err)
		}
	}
}

// readUpload parses the multipart form and saves its files. The returned
// upload is never nil and must be cleaned up by the caller.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	u := &upload{}

	maxMB := s.config.MaxUploadMB
	if maxMB <= 0 {
		maxMB = config.DefaultServerConfig().MaxUploadMB
	}
	limit := maxMB << 20
	if r.ContentLength > limit {
		return u, &http.MaxBytesError{Limit: limit}
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return u, err
		}
		return u, &pipeline.InputError{Role: "upload", Path: "request body", Err: err}
	}

	u.inputs.Goal = strings.TrimSpace(r.FormValue(fieldGoal))
	u.model = strings.TrimSpace(r.FormValue(fieldModel))

	dir, err := os.MkdirTemp("", "nbgen-upload-*")
	if err != nil {
		return u, fmt.Errorf("error creating upload directory: %w", err)
	}
	u.dir = dir

	if u.inputs.CSVPath, err = saveUpload(r, fieldCSV, "CSV", dir, true); err != nil {
		return u, err
	}
	if u.inputs.PDFPath, err = saveUpload(r, fieldPDF, "PDF", dir, true); err != nil {
		return u, err
	}
	if u.inputs.NotebookPath, err = saveUpload(r, fieldNotebook, "IPYNB", dir, false); err != nil {
		return u, err
	}
	return u, nil
}

func (s *Server) options(r *http.Request, model string) pipeline.Options {
	opts := pipeline.OptionsFromConfig(s.envConfig, model)
	opts.Completer = s.completer
	opts.RequestID = requestID(r)
	return opts
}

// statusFor returns the HTTP status reported for a failed generation
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return statusForClass(pipeline.Classify(err))
}

// handleFormGenerate serves the browser form: the notebook is returned as a
// download, or the form is shown again with the error
func (s *Server) handleFormGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	u, err := s.readUpload(w, r)
	defer u.cleanup(r)

	data := s.newPageData()
	data.Goal = u.inputs.Goal
	if u.model != "" {
		data.DefaultModel = u.model
	}

	var result *pipeline.Result
	if err == nil {
		config.VerboseLog("Generating notebook for %s, goal=%q", requestID(r), truncateString(u.inputs.Goal, 80))
		ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
		defer cancel()
		result, err = pipeline.Run(ctx, u.inputs, s.options(r, u.model))
	}
	if err != nil {
		class := pipeline.Classify(err)
		data.Error = err.Error()
		data.ErrorClass = class.String()
		data.Guidance = class.Guidance()
		s.renderPage(w, statusFor(err), data)
		return
	}

	writeNotebook(w, result)
}

func writeNotebook(w http.ResponseWriter, result *pipeline.Result) {
	w.Header().Set("Content-Type", pipeline.NotebookMIMEType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": result.Filename}))
	if len(result.Warnings) > 0 {
		w.Header().Set("X-Notebook-Warnings", strings.Join(result.Warnings, "; "))
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(result.Notebook))
}

// wantsStream reports whether the client asked for Server-Sent Events
func wantsStream(r *http.Request) bool {
	return r.URL.Query().Get("streaming") == "true" ||
		strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

// handleAPIGenerate returns the notebook as JSON, or streams progress when requested
func (s *Server) handleAPIGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, GenerateResponse{
			Success: false,
			Error:   "Method not allowed. Use POST.",
		})
		return
	}

	id := requestID(r)
	u, err := s.readUpload(w, r)
	defer u.cleanup(r)
	if err != nil {
		config.VerboseLog("Rejected upload for %s: %v", id, err)
		writeJSON(w, statusFor(err), errorResponse(id, err))
		return
	}

	opts := s.options(r, u.model)
	config.DebugLog("Generate request: id=%s model=%s goal=%q", id, opts.Model, truncateString(u.inputs.Goal, 80))

	if wantsStream(r) {
		s.streamGenerate(w, r, u.inputs, opts)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	result, err := pipeline.Run(ctx, u.inputs, opts)
	if err != nil {
		writeJSON(w, statusFor(err), errorResponse(id, err))
		return
	}
	writeJSON(w, http.StatusOK, successResponse(result))
}

type outcome struct {
	result *pipeline.Result
	err    error
}

func (s *Server) streamGenerate(w http.ResponseWriter, r *http.Request, in pipeline.Inputs, opts pipeline.Options) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		config.DebugLog("Streaming not supported by response writer")
		writeJSON(w, http.StatusInternalServerError, GenerateResponse{
			Success: false,
			Error:   "Streaming not supported",
		})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sw := &sseWriter{w: w, f: flusher}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	progressChan := make(chan pipeline.ProgressUpdate)
	opts.Progress = pipeline.NewContextProgressWriter(ctx, progressChan)

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				config.DebugLog("Panic in pipeline goroutine: %v", rec)
				done <- outcome{err: fmt.Errorf("pipeline panic: %v", rec)}
			}
		}()
		result, err := pipeline.Run(ctx, in, opts)
		done <- outcome{result: result, err: err}
	}()

	// Abandoning the pipeline must still wait for it, since the uploads are
	// removed once this handler returns
	abandon := func() {
		cancel()
		<-done
	}

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			if r.Context().Err() != nil {
				config.DebugLog("Client connection closed: %v", r.Context().Err())
			} else {
				config.DebugLog("Generation timed out after %v", s.timeout)
				sw.SendError(opts.RequestID, fmt.Errorf("generation timed out after %v", s.timeout))
			}
			abandon()
			return
		case out := <-done:
			if out.err != nil {
				sw.SendError(opts.RequestID, out.err)
			} else {
				sw.SendComplete(successResponse(out.result))
			}
			return
		case update := <-progressChan:
			switch update.Type {
			case pipeline.ProgressStep, pipeline.ProgressComplete:
				sw.SendProgress(update)
			case pipeline.ProgressError:
				// reported once the pipeline returns
				config.DebugLog("Received error event: %v", update.Error)
			}
		case <-heartbeat.C:
			config.DebugLog("Sending heartbeat")
			sw.SendHeartbeat()
		}
	}
}
