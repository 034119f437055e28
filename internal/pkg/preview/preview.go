// Package preview renders a vector image summarizing a diploma, used as the display
// image when the uploaded artifact is a document.
package preview

import (
	"bytes"
	"text/template"
)

// Fields are the values printed on the preview
type Fields struct {
	StudentID string
	Name      string
	Course    string
	BirthDate string
	Grade     string
}

// ContentType of the rendered output
const ContentType = "image/svg+xml"

// TODO: values are interpolated without XML escaping. Escape Name and Course here if previews
// are ever served inline from a page that executes embedded markup.
var svgTemplate = template.Must(template.New("diploma").Parse(`<svg xmlns="http://www.w3.org/2000/svg" width="800" height="560" viewBox="0 0 800 560">
  <rect width="800" height="560" fill="#fdfaf2"/>
  <rect x="20" y="20" width="760" height="520" fill="none" stroke="#8a6d3b" stroke-width="6"/>
  <rect x="34" y="34" width="732" height="492" fill="none" stroke="#c9a86a" stroke-width="2"/>
  <text x="400" y="110" font-family="Georgia, serif" font-size="40" text-anchor="middle" fill="#3b2f1e">Diploma</text>
  <text x="400" y="150" font-family="Georgia, serif" font-size="18" text-anchor="middle" fill="#6b5a3e">This certifies that</text>
  <text x="400" y="215" font-family="Georgia, serif" font-size="36" font-weight="bold" text-anchor="middle" fill="#1f1a12">{{.Name}}</text>
  <text x="400" y="265" font-family="Georgia, serif" font-size="18" text-anchor="middle" fill="#6b5a3e">has completed the program</text>
  <text x="400" y="315" font-family="Georgia, serif" font-size="28" text-anchor="middle" fill="#1f1a12">{{.Course}}</text>
  <text x="120" y="420" font-family="Georgia, serif" font-size="16" fill="#3b2f1e">Student ID: {{.StudentID}}</text>
  <text x="120" y="450" font-family="Georgia, serif" font-size="16" fill="#3b2f1e">Birth date: {{.BirthDate}}</text>
  <text x="120" y="480" font-family="Georgia, serif" font-size="16" fill="#3b2f1e">Grade: {{.Grade}}</text>
</svg>
`))

// Render returns the SVG document for f. It is a pure function of its input.
func Render(f Fields) []byte {
	var buf bytes.Buffer
	// Executing a parsed template into a bytes.Buffer with a struct of strings cannot fail
	_ = svgTemplate.Execute(&buf, f)
	return buf.Bytes()
}
