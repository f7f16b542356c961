package notify

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	"text/template"
	"time"

	"go-gin-event-registration/internal/model"
)

//go:embed templates/*
var templateFS embed.FS

// Composer 依通知種類套用內嵌模板產生信件
type Composer struct {
	text *template.Template
	html *htmltemplate.Template
}

var funcs = map[string]interface{}{
	"date": func(t time.Time) string { return t.UTC().Format("Mon, 02 Jan 2006") },
	"time": func(t time.Time) string { return t.UTC().Format("15:04") },
}

func NewComposer() (*Composer, error) {
	text, err := template.New("text").Funcs(funcs).ParseFS(templateFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("parse text templates: %w", err)
	}
	html, err := htmltemplate.New("html").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse html templates: %w", err)
	}
	return &Composer{text: text, html: html}, nil
}

func (c *Composer) Compose(n *model.Notification) (Message, error) {
	name := string(n.Kind)

	subject, err := c.render(c.text, name+"_subject.txt", n)
	if err != nil {
		return Message{}, fmt.Errorf("render subject: %w", err)
	}
	text, err := c.render(c.text, name+".txt", n)
	if err != nil {
		return Message{}, fmt.Errorf("render text: %w", err)
	}

	var html bytes.Buffer
	if err := c.html.ExecuteTemplate(&html, name+".html", n); err != nil {
		return Message{}, fmt.Errorf("render html: %w", err)
	}

	return Message{
		To:      n.Email,
		Subject: strings.TrimSpace(subject),
		Text:    text,
		HTML:    html.String(),
	}, nil
}

func (c *Composer) render(t *template.Template, name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
