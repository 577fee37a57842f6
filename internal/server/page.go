package server

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/matsen/journalrec/internal/metrics"
	"github.com/matsen/journalrec/internal/pipeline"
)

// compiledPage is parsed at init time to fail fast on template errors.
var compiledPage *template.Template

func init() {
	compiledPage = template.Must(template.New("page").Funcs(template.FuncMap{
		"score":    func(s float32) string { return fmt.Sprintf("%.3f", s) },
		"impact":   func(v float64) string { return fmt.Sprintf("%.2f", v) },
		"join":     joinOrNA,
		"selected": contains,
	}).Parse(pageTemplate))
}

// pageData is everything the form and result list render from.
type pageData struct {
	Form       formValues
	Domains    []string
	Indexing   []string
	ImpactMin  float64
	ImpactMax  float64
	CountMin   int
	CountMax   int
	Outcome    *pipeline.Outcome
	Error      string
	Submitted  bool
	Disclaimer string
}

// formValues echoes the submitted form back into the inputs.
type formValues struct {
	Title     string
	Abstract  string
	Domains   []string
	ImpactMin float64
	ImpactMax float64
	Indexing  []string
	Count     int
}

func defaultForm() formValues {
	return formValues{ImpactMin: pipeline.ImpactFloor, ImpactMax: pipeline.DefaultImpactMax, Count: pipeline.DefaultCount}
}

func newPageData(form formValues, domains []string) pageData {
	return pageData{
		Form:       form,
		Domains:    domains,
		Indexing:   metrics.IndexingCatalog,
		ImpactMin:  pipeline.ImpactFloor,
		ImpactMax:  pipeline.ImpactCeiling,
		CountMin:   pipeline.MinCount,
		CountMax:   pipeline.MaxCount,
		Disclaimer: "Impact factor, acceptance rate and indexing are simulated values for demonstration only.",
	}
}

func renderPage(data pageData) ([]byte, error) {
	var buf bytes.Buffer
	if err := compiledPage.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func joinOrNA(items []string) string {
	if len(items) == 0 {
		return "N/A"
	}
	return strings.Join(items, ", ")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>AI Journal Recommender</title>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; max-width: 960px; margin: 2em auto; color: #222; }
    label { display: block; margin-top: 1em; font-weight: 600; }
    input[type=text], textarea, select { width: 100%; box-sizing: border-box; }
    textarea { height: 10em; }
    .row { display: flex; gap: 1em; }
    .row > div { flex: 1; }
    .notice { padding: 0.75em; border-radius: 4px; margin: 1em 0; }
    .info { background: #e8f0fe; }
    .warn { background: #fff4e5; }
    .error { background: #fdecea; }
    .card { border: 1px solid #ddd; border-radius: 6px; padding: 1em; margin: 1em 0; }
    .meta { color: #555; font-size: 0.9em; }
    .topics span { display: inline-block; background: #eef; border-radius: 3px; padding: 0.1em 0.5em; margin: 0.2em; }
  </style>
</head>
<body>
  <h1>AI Journal Recommender</h1>
  <p>Paste your manuscript title and abstract, or upload the PDF, to find journals whose scope fits your work.</p>

  <form method="POST" action="/" enctype="multipart/form-data">
    <label for="title">Title</label>
    <input type="text" id="title" name="title" value="{{.Form.Title}}">

    <label for="abstract">Abstract</label>
    <textarea id="abstract" name="abstract">{{.Form.Abstract}}</textarea>

    <label for="manuscript">Or upload a PDF</label>
    <input type="file" id="manuscript" name="manuscript" accept="application/pdf">

    <label for="domains">Domains</label>
    <select id="domains" name="domains" multiple size="6">
      {{- range .Domains}}
      <option value="{{.}}"{{if selected $.Form.Domains .}} selected{{end}}>{{.}}</option>
      {{- end}}
    </select>

    <div class="row">
      <div>
        <label for="impact_min">Impact factor min</label>
        <input type="number" id="impact_min" name="impact_min" min="{{.ImpactMin}}" max="{{.ImpactMax}}" step="0.1" value="{{.Form.ImpactMin}}">
      </div>
      <div>
        <label for="impact_max">Impact factor max</label>
        <input type="number" id="impact_max" name="impact_max" min="{{.ImpactMin}}" max="{{.ImpactMax}}" step="0.1" value="{{.Form.ImpactMax}}">
      </div>
      <div>
        <label for="count">Recommendations</label>
        <input type="number" id="count" name="count" min="{{.CountMin}}" max="{{.CountMax}}" value="{{.Form.Count}}">
      </div>
    </div>

    <label for="indexing">Required indexing</label>
    <select id="indexing" name="indexing" multiple size="4">
      {{- range .Indexing}}
      <option value="{{.}}"{{if selected $.Form.Indexing .}} selected{{end}}>{{.}}</option>
      {{- end}}
    </select>

    <p><button type="submit">Recommend journals</button></p>
  </form>

  {{- if .Error}}
  <div class="notice error">{{.Error}}</div>
  {{- end}}

  {{- with .Outcome}}
  {{- if .Topics}}
  <h2>Key topics</h2>
  <div class="topics">{{range .Topics}}<span>{{.}}</span>{{end}}</div>
  {{- end}}

  {{- range .Warnings}}
  <div class="notice warn">{{.}}</div>
  {{- end}}

  {{- if .Message}}
  <div class="notice {{if eq .Status "error"}}error{{else}}info{{end}}">{{.Message}}</div>
  {{- end}}

  {{- if .Recommendations}}
  <h2>Recommended journals</h2>
  {{- range .Recommendations}}
  <div class="card">
    <h3>{{.Rank}}. {{.Title}}{{if .Abbreviation}} ({{.Abbreviation}}){{end}}</h3>
    <div class="meta">
      Publisher: {{.Publisher}} &middot; ISSN: {{.ISSN}} &middot; Similarity: {{score .Score}}<br>
      Domains: {{join .Domains}}<br>
      Impact factor: {{impact .Metrics.ImpactFactor}} &middot; Acceptance rate: {{.Metrics.AcceptanceRate}} &middot; Indexing: {{join .Metrics.Indexing}}
    </div>
    <p><a href="{{.URL}}" target="_blank" rel="noopener">Journal homepage</a></p>
  </div>
  {{- end}}
  <p class="meta">{{$.Disclaimer}}</p>
  {{- end}}
  {{- end}}
</body>
</html>
`
