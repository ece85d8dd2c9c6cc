// Package mail renders notification emails and sends them over SMTP.
package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/coursenotify/internal/notification"
)

//go:embed templates/*.html
var templateFS embed.FS

var bodyTemplate = template.Must(template.ParseFS(templateFS, "templates/notification.html"))

// Subject returns the email subject line for n. New plagiarism cases name
// the exercise and course; everything else uses the notification title.
func Subject(n notification.Notification) string {
	if n.Type == notification.TypeNewPlagiarismCaseStudent {
		return norm.NFC.String(fmt.Sprintf("New Plagiarism Case: Exercise \"%s\" in the course \"%s\"",
			n.Subject.ExerciseTitle, n.Subject.CourseTitle))
	}
	return norm.NFC.String(n.Title)
}

type bodyData struct {
	Subject       string
	Title         string
	Text          string
	CourseTitle   string
	ExerciseTitle string
	Recipient     string
	Author        string
}

// Render returns the HTML body for n.
func Render(n notification.Notification) (string, error) {
	data := bodyData{
		Subject:       Subject(n),
		Title:         norm.NFC.String(n.Title),
		Text:          n.Text,
		CourseTitle:   n.Subject.CourseTitle,
		ExerciseTitle: n.Subject.ExerciseTitle,
	}
	if n.Recipient != nil {
		data.Recipient = displayName(n.Recipient.Name, n.Recipient.Login)
	}
	if n.Author != nil {
		data.Author = displayName(n.Author.Name, n.Author.Login)
	}

	var buf bytes.Buffer
	if err := bodyTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", n.Type, err)
	}
	return buf.String(), nil
}

func displayName(name, login string) string {
	if name != "" {
		return name
	}
	return login
}
