package handlers

import (
	"html/template"
	"net/http"
)

type docsPage struct {
	Title       string
	Description string
	SpecURL     string
}

var datasetDocs = docsPage{
	Title:       "AgriFusion Dataset API",
	Description: "Read access to the district crop and weather master dataset and the model-ready datasets",
	SpecURL:     "/api/docs/openapi.json",
}

var docsTemplate = template.Must(template.New("docs").Parse(docsHTML))

// SwaggerUI renders the interactive browser for the dataset API's OpenAPI document.
func SwaggerUI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := docsTemplate.Execute(w, datasetDocs); err != nil {
		http.Error(w, "failed to render docs", http.StatusInternalServerError)
	}
}

const docsHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="description" content="{{.Description}}">
    <title>{{.Title}}</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.10.0/swagger-ui.css">
    <style>
        body { margin: 0; font-family: sans-serif; background: #fafafa; }
        header.datasets { padding: 16px 24px; background: #2f5d34; color: #fff; }
        header.datasets h1 { margin: 0; font-size: 20px; }
        header.datasets p { margin: 4px 0 0; font-size: 13px; opacity: 0.85; }
    </style>
</head>
<body>
    <header class="datasets">
        <h1>{{.Title}}</h1>
        <p>{{.Description}}</p>
    </header>
    <main id="swagger-ui"></main>
    <script src="https://unpkg.com/swagger-ui-dist@5.10.0/swagger-ui-bundle.js"></script>
    <script>
        window.addEventListener("load", function () {
            window.ui = SwaggerUIBundle({
                url: "{{.SpecURL}}",
                dom_id: "#swagger-ui",
                docExpansion: "list",
                defaultModelsExpandDepth: 0,
                presets: [SwaggerUIBundle.presets.apis]
            });
        });
    </script>
</body>
</html>`
