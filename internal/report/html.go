package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templateFS embed.FS

var htmlTemplate = template.Must(template.New("report.html").Funcs(template.FuncMap{
	"datetime": func(d Data) string { return d.GeneratedAt.Format("02/01/2006 15:04:05") },
}).ParseFS(templateFS, "templates/report.html"))

// RenderHTML writes the standalone HTML report.
func RenderHTML(w io.Writer, d Data) error {
	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, d); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}
