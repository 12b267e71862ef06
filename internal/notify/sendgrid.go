package notify

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/Freeeeeet/tutor_matching/internal/service"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// Mailer отправляет письма заявителям через SendGrid
type Mailer struct {
	key        string
	host       string
	from       *sgmail.Email
	subjPrefix string
	logger     *zap.Logger
}

var _ service.Notifier = (*Mailer)(nil)

func NewMailer(key, appName, fromEmail string, logger *zap.Logger) *Mailer {
	return &Mailer{
		key:        key,
		host:       sendgridHost,
		from:       sgmail.NewEmail(appName, fromEmail),
		subjPrefix: "[" + appName + "] ",
		logger:     logger,
	}
}

// WithHost переопределяет адрес API (для тестов)
func (m *Mailer) WithHost(host string) *Mailer {
	m.host = host
	return m
}

// NotifyApplicant отправляет заявителю письмо с расписанием и ссылкой на занятие
func (m *Mailer) NotifyApplicant(ctx context.Context, notice service.ApplicantNotice) error {
	if strings.TrimSpace(notice.Email) == "" {
		return nil
	}

	req := sendgrid.GetRequest(m.key, sendgridEndpoint, m.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m.prepare(notice))

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("send email: sendgrid status %d: %s", res.StatusCode, res.Body)
	}

	m.logger.Debug("Assignment email sent",
		zap.String("email", notice.Email),
		zap.Int("status", res.StatusCode))
	return nil
}

// NotifyTutor - учителям пишет Telegram
func (m *Mailer) NotifyTutor(context.Context, service.TutorNotice) error {
	return nil
}

func (m *Mailer) prepare(notice service.ApplicantNotice) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = m.subjPrefix + "Your " + notice.Subject + " class"
	p.AddTos(sgmail.NewEmail(notice.Name, notice.Email))

	msg := sgmail.NewV3Mail()
	msg.SetFrom(m.from)
	msg.AddPersonalizations(p)
	msg.AddContent(
		sgmail.NewContent("text/plain", applicantText(notice)),
		sgmail.NewContent("text/html", applicantHTML(notice)),
	)
	return msg
}

func applicantText(n service.ApplicantNotice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", greetingName(n.Name))
	fmt.Fprintf(&b, "You have been assigned to a %s class with %s.\n", n.Subject, n.TutorName)
	fmt.Fprintf(&b, "Schedule: every %s, %s-%s\n", n.Schedule.Day, n.Schedule.StartTime, n.Schedule.EndTime)
	if n.MeetingLink != "" {
		fmt.Fprintf(&b, "Join: %s\n", n.MeetingLink)
	}
	return b.String()
}

func applicantHTML(n service.ApplicantNotice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>Hello %s,</p>", html.EscapeString(greetingName(n.Name)))
	fmt.Fprintf(&b, "<p>You have been assigned to a <b>%s</b> class with %s.</p>",
		html.EscapeString(n.Subject), html.EscapeString(n.TutorName))
	fmt.Fprintf(&b, "<p>Schedule: every %s, %s-%s</p>",
		html.EscapeString(n.Schedule.Day), html.EscapeString(n.Schedule.StartTime), html.EscapeString(n.Schedule.EndTime))
	if n.MeetingLink != "" {
		link := html.EscapeString(n.MeetingLink)
		fmt.Fprintf(&b, `<p><a href="%s">%s</a></p>`, link, link)
	}
	return b.String()
}

func greetingName(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return "there"
}
