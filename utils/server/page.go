package server

import (
	"net/http"

	"github.com/mouncefik/nbgen/utils/config"
	"github.com/mouncefik/nbgen/utils/prompt"
)

// pageData is rendered by pageTemplate
type pageData struct {
	Models       []string
	DefaultModel string
	Goal         string
	Error        string
	ErrorClass   string
	Guidance     string
}

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Notebook Generator</title>
<style>
body { font-family: sans-serif; max-width: 44rem; margin: 2rem auto; padding: 0 1rem; }
label { display: block; margin-top: 1rem; font-weight: bold; }
textarea { width: 100%; }
.error { border: 1px solid #c00; background: #fee; padding: 0.75rem; margin-top: 1rem; }
</style>
</head>
<body>
<h1>Notebook Generator</h1>
<p>Upload a CSV dataset and a PDF describing it to receive a Jupyter notebook.</p>
{{if .Error}}<div class="error">
<strong>{{.Error}}</strong>{{if .Guidance}}<p>{{.Guidance}}</p>{{end}}
</div>{{end}}
<form method="post" action="/generate" enctype="multipart/form-data">
<label for="csv_file">CSV dataset</label>
<input type="file" id="csv_file" name="csv_file" accept=".csv" required>
<label for="pdf_file">PDF data description</label>
<input type="file" id="pdf_file" name="pdf_file" accept=".pdf" required>
<label for="ipynb_file">Existing notebook (optional)</label>
<input type="file" id="ipynb_file" name="ipynb_file" accept=".ipynb">
<label for="model">Model</label>
<select id="model" name="model">
{{range .Models}}<option value="{{.}}"{{if eq . $.DefaultModel}} selected{{end}}>{{.}}</option>
{{end}}</select>
<label for="goal">Analysis goal</label>
<textarea id="goal" name="goal" rows="4" placeholder="{{.DefaultGoal}}">{{.Goal}}</textarea>
<p><button type="submit">Generate notebook</button></p>
</form>
</body>
</html>
`

// DefaultGoal is shown as the goal placeholder
func (pageData) DefaultGoal() string {
	return prompt.DefaultGoal
}

func (s *Server) newPageData() pageData {
	return pageData{
		Models:       s.envConfig.Models,
		DefaultModel: s.envConfig.DefaultModel,
	}
}

func (s *Server) renderPage(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.page.Execute(w, data); err != nil {
		config.Logger().Errorf("Error rendering page: %v", err)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.renderPage(w, http.StatusOK, s.newPageData())
}
