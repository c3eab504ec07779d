package genai

import (
	"strings"
	"text/template"
)

var (
	generateTmpl = template.Must(template.New("generate").Parse(
		`Generate an image of a t-shirt design based on the following prompt: {{.Prompt}}.`))

	ideasTmpl = template.Must(template.New("ideas").Parse(
		`You are a design assistant. Based on the given theme or keyword, suggest some design ideas or prompts.
Theme: {{.Theme}}
Reply with a JSON object of the form {"ideas": ["..."]}.`))

	enhanceTmpl = template.Must(template.New("enhance").Parse(
		`Enhance the uploaded image to make it suitable for printing on a t-shirt. Enhance resolution and style as requested by the user, taking into account the enhancement instructions, if present.
{{if .Instructions}}
Enhancement Instructions: {{.Instructions}}
{{end}}
Ensure the enhanced image is high-quality and visually appealing for a t-shirt design.`))
)

func render(t *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
