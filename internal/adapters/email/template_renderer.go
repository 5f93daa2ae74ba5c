package email

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"eventplanner/internal/domain"
)

//go:embed templates/*
var templateFS embed.FS

// Parsed once; a broken embedded template is a build defect.
var (
	htmlTemplates = htmltemplate.Must(htmltemplate.New("").Option("missingkey=error").ParseFS(templateFS, "templates/*.html"))
	textTemplates = texttemplate.Must(texttemplate.New("").Option("missingkey=error").ParseFS(templateFS, "templates/*.txt"))
)

type templateRenderer struct{}

// NewTemplateRenderer returns a renderer over the embedded templates directory.
func NewTemplateRenderer() domain.EmailTemplateRenderer {
	return templateRenderer{}
}

func (templateRenderer) Render(tmpl domain.EmailTemplate, data any) (domain.EmailMessage, error) {
	name := string(tmpl)
	var msg domain.EmailMessage

	subject, err := executeText(name+"_subject.txt", data)
	if err != nil {
		return msg, fmt.Errorf("render %s subject: %w", name, err)
	}
	msg.Subject = strings.Join(strings.Fields(subject), " ")

	if msg.Text, err = executeText(name+".txt", data); err != nil {
		return msg, fmt.Errorf("render %s text: %w", name, err)
	}

	t := htmlTemplates.Lookup(name + ".html")
	if t == nil {
		return msg, fmt.Errorf("render %s html: template not found", name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return msg, fmt.Errorf("render %s html: %w", name, err)
	}
	msg.HTML = buf.String()
	return msg, nil
}

func executeText(file string, data any) (string, error) {
	t := textTemplates.Lookup(file)
	if t == nil {
		return "", fmt.Errorf("template %s not found", file)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
