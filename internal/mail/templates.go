package mail

import (
	"bytes"
	"cftracker/internal/models"
	"embed"
	"fmt"
	"html/template"
	"net/url"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const (
	reminderSubject = "Time to get back to problem solving!"
	welcomeSubject  = "Welcome to Student Progress Management System!"
)

type templateData struct {
	Name           string
	Email          string
	Handle         string
	CurrentRating  int
	MaxRating      int
	InactiveDays   int
	ReminderNumber int
	ProfileURL     string
	FromName       string
}

// Message is a rendered email.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
}

func newTemplateData(student *models.Student, inactiveDays int, fromName string) templateData {
	return templateData{
		Name:           student.Name,
		Email:          student.Email,
		Handle:         student.Handle,
		CurrentRating:  student.CurrentRating,
		MaxRating:      student.MaxRating,
		InactiveDays:   inactiveDays,
		ReminderNumber: student.ReminderCount + 1,
		ProfileURL:     "https://codeforces.com/profile/" + url.PathEscape(student.Handle),
		FromName:       fromName,
	}
}

func render(name, subject string, student *models.Student, data templateData) (*Message, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return &Message{To: student.Email, ToName: student.Name, Subject: subject, HTML: buf.String()}, nil
}

// Renderer builds reminder and welcome messages.
type Renderer struct {
	inactiveDays int
	fromName     string
}

func NewRenderer(inactiveDays int, fromName string) *Renderer {
	if inactiveDays <= 0 {
		inactiveDays = 7
	}
	return &Renderer{inactiveDays: inactiveDays, fromName: fromName}
}

func (r *Renderer) Reminder(student *models.Student) (*Message, error) {
	return render("reminder.html", reminderSubject, student, newTemplateData(student, r.inactiveDays, r.fromName))
}

func (r *Renderer) Welcome(student *models.Student) (*Message, error) {
	return render("welcome.html", welcomeSubject, student, newTemplateData(student, r.inactiveDays, r.fromName))
}
