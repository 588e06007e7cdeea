package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/smtp"
	"strconv"

	"github.com/yukikurage/taskflow-api/internal/config"
)

var assignmentTemplate = template.Must(template.New("assignment").Parse(`<div style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif; max-width: 520px; margin: 0 auto; padding: 32px 24px; color: #222;">
  <h2 style="font-size: 18px; margin-bottom: 16px;">New Task Assigned</h2>
  <p style="color: #444; line-height: 1.6;">Hi {{.RecipientName}},</p>
  <p style="color: #444; line-height: 1.6;"><strong>{{.AssignerName}}</strong> has assigned you a new task:</p>
  <div style="background: #f5f5f5; border: 1px solid #ddd; border-radius: 6px; padding: 16px;">
    <p style="font-weight: 600; font-size: 15px; margin: 0;">{{.TaskTitle}}</p>
  </div>
  <p style="color: #888; font-size: 12px; margin-top: 32px;">The TaskFlow Team</p>
</div>
`))

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier sends HTML assignment emails through an SMTP relay.
type SMTPNotifier struct {
	addr     string
	host     string
	username string
	password string
	from     string
	fromName string
	send     SendFunc
}

func NewSMTPNotifier(cfg *config.Config) *SMTPNotifier {
	return &SMTPNotifier{
		addr:     net.JoinHostPort(cfg.MailServer, strconv.Itoa(cfg.MailPort)),
		host:     cfg.MailServer,
		username: cfg.MailUsername,
		password: cfg.MailPassword,
		from:     cfg.MailFrom,
		fromName: cfg.MailFromName,
		send:     smtp.SendMail,
	}
}

func (n *SMTPNotifier) NotifyAssignment(_ context.Context, a Assignment) error {
	msg, err := n.buildMessage(a)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if n.username != "" {
		auth = smtp.PlainAuth("", n.username, n.password, n.host)
	}

	if err := n.send(n.addr, auth, n.from, []string{a.RecipientEmail}, msg); err != nil {
		return fmt.Errorf("failed to send assignment email to %s: %w", a.RecipientEmail, err)
	}
	return nil
}

func (n *SMTPNotifier) buildMessage(a Assignment) ([]byte, error) {
	var body bytes.Buffer
	if err := assignmentTemplate.Execute(&body, a); err != nil {
		return nil, fmt.Errorf("failed to render assignment email: %w", err)
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", mime.QEncoding.Encode("utf-8", n.fromName), n.from)
	fmt.Fprintf(&msg, "To: %s\r\n", a.RecipientEmail)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", "Task Assigned: "+a.TaskTitle))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n\r\n")
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}
