// Package docs renders the static data docs site from the validation workspace.
package docs

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/vitebski/claims-ops/internal/gxcontext"
	"github.com/vitebski/claims-ops/pkg/models"
)

var pageTemplate = template.Must(template.New("index").Funcs(template.FuncMap{
	"status": func(ok bool) string {
		if ok {
			return "passed"
		}
		return "failed"
	},
	"pct": func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
	"inc": func(i int) int { return i + 1 },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Data Docs: Healthcare Analytics</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; margin-bottom: 2em; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: left; }
.passed { color: #2e7d32; }
.failed { color: #c62828; }
</style>
</head>
<body>
<h1>Data Docs</h1>
<p>Generated {{ .Generated }}</p>
{{ if .Scorecard }}<h2>Quality Scorecard</h2>
<p>Suite {{ .Scorecard.SuiteName }}: {{ .Scorecard.OverallScore }}% ({{ .Scorecard.QualityLevel }})</p>
{{ end }}{{ range .Suites }}<h2>{{ .Suite.Name }}</h2>
{{ with .Latest }}<p class="{{ status .Success }}">Latest run {{ .RunID }} on {{ .Table }}: {{ status .Success }}, {{ .Statistics.SuccessfulExpectations }}/{{ .Statistics.EvaluatedExpectations }} ({{ pct .Statistics.SuccessPercent }})</p>
{{ else }}<p>No validation runs yet.</p>
{{ end }}<table>
<tr><th>#</th><th>Expectation</th><th>Column</th><th>Arguments</th><th>Last result</th><th>Observed</th></tr>
{{ range $i, $row := .Rows }}<tr><td>{{ inc $i }}</td><td>{{ $row.Type }}</td><td>{{ $row.Column }}</td><td>{{ $row.Kwargs }}</td><td class="{{ $row.Status }}">{{ $row.Status }}</td><td>{{ $row.Observed }}</td></tr>
{{ end }}</table>
{{ else }}<p>No expectation suites defined.</p>
{{ end }}</body>
</html>
`))

type row struct {
	Type     string
	Column   string
	Kwargs   string
	Status   string
	Observed string
}

type suitePage struct {
	Suite  *models.ExpectationSuite
	Latest *models.ValidationResult
	Rows   []row
}

type page struct {
	Generated string
	Scorecard *models.Scorecard
	Suites    []suitePage
}

// Build renders uncommitted/data_docs/local_site/index.html and returns its path
func Build(ws *gxcontext.Context, now time.Time) (string, error) {
	names, err := ws.ListSuites()
	if err != nil {
		return "", err
	}

	p := page{Generated: now.Format(time.RFC3339)}
	for _, name := range names {
		suite, err := ws.GetSuite(name)
		if err != nil {
			return "", err
		}
		latest, err := ws.LatestValidationResult(name)
		if err != nil && !errors.Is(err, gxcontext.ErrNotFound) {
			return "", err
		}
		p.Suites = append(p.Suites, suitePage{Suite: suite, Latest: latest, Rows: rows(suite, latest)})
	}

	if history, err := ws.ScorecardHistory(); err == nil && len(history) > 0 {
		p.Scorecard = history[len(history)-1]
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("render data docs: %w", err)
	}
	return ws.WriteDataDocs(buf.Bytes())
}

func rows(suite *models.ExpectationSuite, latest *models.ValidationResult) []row {
	out := make([]row, 0, len(suite.Expectations))
	for i, exp := range suite.Expectations {
		r := row{Type: exp.Type, Column: exp.Column(), Kwargs: fmt.Sprintf("%v", exp.Kwargs), Status: "not run"}
		if latest != nil && i < len(latest.Results) && latest.Results[i].Expectation.Type == exp.Type {
			res := latest.Results[i]
			r.Status = "failed"
			if res.Success {
				r.Status = "passed"
			}
			if res.ObservedValue != nil {
				r.Observed = fmt.Sprintf("%v", res.ObservedValue)
			}
		}
		out = append(out, r)
	}
	return out
}
