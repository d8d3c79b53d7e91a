package serp

import (
	"bytes"
	"html/template"

	errs "socialfetch/pkg/errors"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8">
    <title>Search Results - {{.Target}}</title>
    <style>
      body { font-family: Arial, sans-serif; margin: 24px; }
      table { border-collapse: collapse; width: 100%; }
      th, td { border: 1px solid #ccc; padding: 8px; vertical-align: top; }
      th { background: #f2f2f2; text-align: left; }
      td { font-size: 13px; }
    </style>
  </head>
  <body>
    <h1>Search Results: {{.Target}}</h1>
    <table>
      <thead>
        <tr>
          <th>Rank</th>
          <th>Title</th>
          <th>URL</th>
          <th>Local HTML</th>
          <th>Status</th>
          <th>Snippet</th>
        </tr>
      </thead>
      <tbody>
{{- range .Results}}
        <tr><td>{{.Rank}}</td><td>{{if .Title}}{{.Title}}{{else}}(no title){{end}}</td><td><a href="{{.URL}}">{{.URL}}</a></td><td>{{if .LocalFile}}<a href="{{.LocalFile}}">{{.LocalFile}}</a>{{else}}-{{end}}</td><td>{{.Status}}</td><td>{{.Snippet}}</td></tr>
{{- end}}
      </tbody>
    </table>
  </body>
</html>
`))

// RenderIndex builds the local index page linking every archived result
func RenderIndex(target string, results []Result) ([]byte, error) {
	var buf bytes.Buffer
	err := indexTemplate.Execute(&buf, struct {
		Target  string
		Results []Result
	}{target, results})
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeParsing, err, "failed to render index")
	}
	return buf.Bytes(), nil
}
