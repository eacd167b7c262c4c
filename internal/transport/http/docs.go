// SPDX-License-Identifier: Apache-2.0

package httptransport

import (
	"html/template"
	"net/http"
)

// routeInfo is one entry of the self-describing route catalog at /docs.
type routeInfo struct {
	Method  string `json:"method"`
	Path    string `json:"path"`
	Summary string `json:"summary"`
}

var docsTemplate = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>ferrywire API</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 0.4em 0.8em; text-align: left; }
th { background: #f4f4f4; }
code { background: #f4f4f4; padding: 0.1em 0.3em; }
</style>
</head>
<body>
<h1>ferrywire API</h1>
<p>Control-plane routes of the relay. The raw catalog is served at <code>/docs/routes</code>.</p>
<table>
<tr><th>Method</th><th>Path</th><th>Summary</th></tr>
{{range .}}<tr><td>{{.Method}}</td><td><code>{{.Path}}</code></td><td>{{.Summary}}</td></tr>
{{end}}</table>
</body>
</html>
`))

func (s *server) handleDocs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := docsTemplate.Execute(w, s.routes); err != nil {
		s.logger.Error("docs render failed", "error", err)
	}
}

func (s *server) handleDocsRoutes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]routeInfo{"routes": s.routes})
}
