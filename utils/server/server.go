package server

import (
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/mouncefik/nbgen/utils/config"
	"github.com/mouncefik/nbgen/utils/pipeline"
)

// generationTimeout bounds a single notebook generation
const generationTimeout = 5 * time.Minute

// Server represents the HTTP server
type Server struct {
	mux       *http.ServeMux
	config    *config.ServerConfig
	envConfig *config.EnvConfig
	// completer is nil in production, letting the pipeline build a models.Client
	completer pipeline.Completer
	page      *template.Template
	timeout   time.Duration
}

func newServer(envConfig *config.EnvConfig, completer pipeline.Completer) (*Server, error) {
	serverConfig := envConfig.GetServerConfig()
	if serverConfig == nil {
		return nil, fmt.Errorf("server configuration not found")
	}
	if serverConfig.Enabled && serverConfig.BearerToken == "" {
		return nil, fmt.Errorf("authentication is enabled but no bearer token is configured")
	}

	page, err := template.New("page").Parse(pageTemplate)
	if err != nil {
		return nil, fmt.Errorf("error parsing page template: %w", err)
	}

	s := &Server{
		mux:       http.NewServeMux(),
		config:    serverConfig,
		envConfig: envConfig,
		completer: completer,
		page:      page,
		timeout:   generationTimeout,
	}
	s.routes()
	return s, nil
}

// New creates a new HTTP server with the given configuration
func New(envConfig *config.EnvConfig) (*http.Server, error) {
	s, err := newServer(envConfig, nil)
	if err != nil {
		return nil, err
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.mux,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: generationTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return server, nil
}

// routes sets up the server routes
func (s *Server) routes() {
	s.mux.HandleFunc("/health", logRequest(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{
			Status:    "ok",
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}))

	// Browser form
	s.mux.HandleFunc("/", logRequest(s.handleIndex))
	s.mux.HandleFunc("/generate", logRequest(s.handleFormGenerate))

	// JSON and SSE API
	s.mux.HandleFunc("/api/generate", logRequest(func(w http.ResponseWriter, r *http.Request) {
		if !checkAuth(s.config, w, r) {
			return
		}
		s.handleAPIGenerate(w, r)
	}))
}

// Run creates and starts the HTTP server with the given configuration
func Run(envConfig *config.EnvConfig) error {
	server, err := New(envConfig)
	if err != nil {
		return err
	}

	serverConfig := envConfig.GetServerConfig()

	fmt.Printf("Starting server on port %d...\n", serverConfig.Port)
	fmt.Printf("Open http://localhost:%d/ to generate a notebook in the browser\n", serverConfig.Port)
	if serverConfig.Enabled {
		fmt.Println("Authentication is enabled. Bearer token required for /api/generate.")
		fmt.Printf("Example usage: curl -H 'Authorization: Bearer %s' -F csv_file=@data.csv -F pdf_file=@description.pdf http://localhost:%d/api/generate\n",
			maskToken(serverConfig.BearerToken), serverConfig.Port)
	} else {
		fmt.Printf("Example usage: curl -F csv_file=@data.csv -F pdf_file=@description.pdf http://localhost:%d/api/generate\n", serverConfig.Port)
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %v", err)
	}

	return nil
}
