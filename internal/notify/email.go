package notify

import (
	"fmt"

	"github.com/wneessen/go-mail"

	"dayplanner/internal/models"
)

// Email delivers over SMTP.
type Email struct {
	client *mail.Client
	from   string
	appURL string
}

func NewEmail(host string, port int, user, pass, from, appURL string) (*Email, error) {
	client, err := mail.NewClient(host,
		mail.WithPort(port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(user),
		mail.WithPassword(pass),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &Email{client: client, from: from, appURL: appURL}, nil
}

func (e *Email) Name() string { return "email" }

func (e *Email) Enabled(u *models.User) bool {
	return u.RemindEmail && u.Email != ""
}

func (e *Email) SendReminder(u *models.User, r Reminder) error {
	topicRow := ""
	if r.Topic != "" {
		topicRow = fmt.Sprintf(`<p>📚 <b>Topic:</b> %s</p>`, r.Topic)
	}
	html := fmt.Sprintf(`
<div style="max-width:480px;margin:0 auto;font-family:sans-serif">
  <h2>⏰ Routine Reminder</h2>
  <p>🕐 <b>Time:</b> %s – %s</p>
  <p>✅ <b>Task:</b> %s</p>
  %s
  <p>Stay focused! 💪</p>
  <p style="color:#94a3b8;font-size:13px">Day Planner • Building discipline, one day at a time</p>
</div>`, r.StartTime, r.EndTime, r.Activity, topicRow)

	return e.send(u.Email, fmt.Sprintf("⏰ %s at %s", r.Activity, r.StartTime), html)
}

func (e *Email) SendReflectionPrompt(u *models.User) error {
	html := fmt.Sprintf(`
<div style="max-width:480px;margin:0 auto;font-family:sans-serif;text-align:center">
  <h2>📅 Daily Reflection</h2>
  <p>🌙 Time to wrap up your day! How did it go?</p>
  <p>
    <a href="%[1]s/reflection?mood=great" style="font-size:32px;text-decoration:none">😄</a>
    <a href="%[1]s/reflection?mood=okay" style="font-size:32px;text-decoration:none">😐</a>
    <a href="%[1]s/reflection?mood=bad" style="font-size:32px;text-decoration:none">😞</a>
  </p>
  <p style="font-size:14px">Click an emoji to submit your reflection</p>
</div>`, e.appURL)

	return e.send(u.Email, "🌙 How was your day?", html)
}

func (e *Email) send(to, subject, html string) error {
	m := mail.NewMsg()
	if err := m.From(e.from); err != nil {
		return err
	}
	if err := m.To(to); err != nil {
		return err
	}
	m.Subject(subject)
	m.SetBodyString(mail.TypeTextHTML, html)
	return e.client.DialAndSend(m)
}
