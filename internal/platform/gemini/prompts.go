package gemini

import (
	"bytes"
	"fmt"
	"text/template"
)

const defaultQuestionCount = 5

var (
	simplifyTemplate = template.Must(template.New("simplify").Parse(
		`Rewrite the following text so it is easy to read for someone who struggles to focus.
Use short sentences and plain words{{if .Language}}, and answer in {{.Language}}{{end}}.
Respond with JSON of the form {"simplified": string, "key_points": [string]}.

Text:
{{.Text}}`))

	questionsTemplate = template.Must(template.New("questions").Parse(
		`Write {{.Count}} short comprehension questions about the following text, each with its answer
and an optional hint.
Respond with JSON of the form {"questions": [{"question": string, "answer": string, "hint": string}]}.

Text:
{{.Text}}`))

	videoTemplate = template.Must(template.New("video").Parse(
		`Summarize the attached video for someone who struggles to focus. Keep the summary short
and list the key moments with their timestamps.
Respond with JSON of the form {"summary": string, "key_moments": [{"timestamp": string, "description": string}]}.`))
)

func renderPrompt(tmpl *template.Template, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
