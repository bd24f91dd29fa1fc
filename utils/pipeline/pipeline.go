package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mouncefik/nbgen/utils/config"
	"github.com/mouncefik/nbgen/utils/input"
	"github.com/mouncefik/nbgen/utils/models"
	"github.com/mouncefik/nbgen/utils/notebook"
	"github.com/mouncefik/nbgen/utils/prompt"
)

// NotebookMIMEType is the content type of a generated notebook
const NotebookMIMEType = "application/x-ipynb+json"

// Completer sends a prompt to a model and returns the trimmed completion
type Completer interface {
	Complete(ctx context.Context, req models.CompletionRequest) (string, error)
}

// Inputs are the files and goal a notebook is generated from. CSVPath and
// PDFPath are required; NotebookPath and Goal are optional.
type Inputs struct {
	CSVPath      string
	PDFPath      string
	NotebookPath string
	Goal         string
}

// Options control how the completion is requested
type Options struct {
	Model        string
	APIKey       string
	MaxRetries   int
	InitialDelay time.Duration
	// PreviewRows limits the CSV head preview; zero keeps the default
	PreviewRows int
	// Completer defaults to a models.Client
	Completer Completer
	Progress  ProgressWriter
	// RequestID is generated when empty
	RequestID string
}

// OptionsFromConfig builds options for model from the loaded configuration.
// An empty model selects the configured default.
func OptionsFromConfig(cfg *config.EnvConfig, model string) Options {
	if model == "" {
		model = cfg.DefaultModel
	}
	return Options{
		Model:        model,
		APIKey:       cfg.APIKeyFor(model),
		MaxRetries:   cfg.Retries(),
		InitialDelay: cfg.InitialDelay,
		PreviewRows:  cfg.PreviewRows,
	}
}

// Result is a generated notebook
type Result struct {
	RequestID string
	Notebook  string
	Filename  string
	Cells     int
	// Warnings are non-fatal problems, such as discarded text before the
	// first tag or a PDF with no text layer
	Warnings []string
}

// NotebookFilename derives the download name from the CSV file name
func NotebookFilename(csvPath string) string {
	base := filepath.Base(csvPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "notebook"
	}
	return base + "_analysis.ipynb"
}

type run struct {
	id       string
	progress ProgressWriter
	warnings []string
}

func (r *run) step(stage Stage, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	config.VerboseLog("[%s] %s", r.id, msg)
	r.progress.WriteProgress(ProgressUpdate{Type: ProgressStep, Stage: stage, Message: msg})
}

func (r *run) warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	config.Logger().Warnf("[%s] %s", r.id, msg)
	r.warnings = append(r.warnings, msg)
}

func (r *run) fail(stage Stage, err error) error {
	wrapped := &Error{Stage: stage, Err: err}
	config.Logger().Errorf("[%s] %v", r.id, wrapped)
	r.progress.WriteProgress(ProgressUpdate{Type: ProgressError, Stage: stage, Message: wrapped.Error(), Error: wrapped})
	return wrapped
}

// Run generates a notebook from the inputs. Missing files are reported
// before any work is done, and nothing is retried here beyond what the
// completer does itself.
func Run(ctx context.Context, in Inputs, opts Options) (*Result, error) {
	r := &run{id: opts.RequestID, progress: opts.Progress}
	if r.id == "" {
		r.id = uuid.NewString()
	}
	if r.progress == nil {
		r.progress = nopProgressWriter{}
	}

	config.VerboseLog("[%s] Starting notebook generation pipeline...", r.id)

	if err := checkExists("CSV", in.CSVPath); err != nil {
		return nil, r.fail(StageInputs, err)
	}
	if err := checkExists("PDF", in.PDFPath); err != nil {
		return nil, r.fail(StageInputs, err)
	}
	if in.NotebookPath != "" {
		if err := checkExists("IPYNB", in.NotebookPath); err != nil {
			return nil, r.fail(StageInputs, err)
		}
	}
	if strings.TrimSpace(opts.Model) == "" {
		return nil, r.fail(StageInputs, ErrNoModel)
	}

	handler := input.NewHandler()
	if opts.PreviewRows > 0 {
		handler.SetPreviewRows(opts.PreviewRows)
	}
	r.step(StageInputs, "Processing CSV file: %s", filepath.Base(in.CSVPath))
	if err := handler.Process(input.CSVInput, in.CSVPath); err != nil {
		return nil, r.fail(StageInputs, &InputError{Role: "CSV", Path: in.CSVPath, Err: err})
	}
	r.step(StageInputs, "Processing PDF: %s", filepath.Base(in.PDFPath))
	if err := handler.Process(input.PDFInput, in.PDFPath); err != nil {
		return nil, r.fail(StageInputs, &InputError{Role: "PDF", Path: in.PDFPath, Err: err})
	}
	if in.NotebookPath != "" {
		r.step(StageInputs, "Processing ipynb file: %s", filepath.Base(in.NotebookPath))
		if err := handler.Process(input.NotebookInput, in.NotebookPath); err != nil {
			return nil, r.fail(StageInputs, &InputError{Role: "IPYNB", Path: in.NotebookPath, Err: err})
		}
	} else {
		config.VerboseLog("[%s] No ipynb file provided", r.id)
	}

	promptCtx := prompt.Context{
		CSV:         handler.Get(input.CSVInput).CSV,
		Description: handler.Get(input.PDFInput).Text,
		Goal:        in.Goal,
	}
	if promptCtx.Description == "" {
		r.warn("No text could be extracted from %s; the data description is empty", filepath.Base(in.PDFPath))
	}
	if nb := handler.Get(input.NotebookInput); nb != nil {
		promptCtx.Notebook = nb.Notebook
	}

	r.step(StagePrompt, "Building prompt for AI model")
	text, err := prompt.Build(promptCtx)
	if err != nil {
		return nil, r.fail(StagePrompt, err)
	}

	completer := opts.Completer
	if completer == nil {
		completer = models.NewClient()
	}
	req := models.NewCompletionRequest(text, opts.APIKey, opts.Model)
	req.MaxRetries = opts.MaxRetries
	if opts.InitialDelay > 0 {
		req.InitialDelay = opts.InitialDelay
	}

	r.step(StageCompletion, "Calling AI model %s", opts.Model)
	raw, err := completer.Complete(ctx, req)
	if err != nil {
		return nil, r.fail(StageCompletion, err)
	}
	if raw == "" {
		return nil, r.fail(StageCompletion, errors.New("received empty response from AI model"))
	}

	r.step(StageNotebook, "Building .ipynb file from AI response")
	nb, err := notebook.Reconstruct(raw)
	if err != nil {
		return nil, r.fail(StageNotebook, err)
	}
	if nb.Preamble != "" {
		r.warn("Ignored %d characters before the first tag", len(nb.Preamble))
	}

	result := &Result{
		RequestID: r.id,
		Notebook:  nb.Notebook,
		Filename:  NotebookFilename(in.CSVPath),
		Cells:     nb.Cells,
		Warnings:  r.warnings,
	}
	r.progress.WriteProgress(ProgressUpdate{
		Type:    ProgressComplete,
		Stage:   StageNotebook,
		Message: fmt.Sprintf("Notebook generated with %d cells", result.Cells),
	})
	config.VerboseLog("[%s] Notebook generation pipeline completed successfully.", r.id)
	return result, nil
}

func checkExists(role, path string) error {
	if strings.TrimSpace(path) == "" {
		return &MissingInputError{Role: role, Path: path, Err: os.ErrNotExist}
	}
	if _, err := os.Stat(path); err != nil {
		return &MissingInputError{Role: role, Path: path, Err: err}
	}
	return nil
}
