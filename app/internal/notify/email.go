package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"pulse/app/internal/alerts"
)

// Email sends an HTML alert through an SMTP relay. Port 465 uses implicit TLS,
// other ports upgrade with STARTTLS when the server offers it.
type Email struct {
	Host       string
	Port       int
	User       string
	Password   string
	From       string
	To         string
	SkipVerify bool
}

func (e *Email) Name() string { return "email" }

func (e *Email) Notify(ctx context.Context, a alerts.Alert) error {
	if e.Host == "" || e.To == "" {
		return errors.New("SMTP configuration incomplete")
	}
	from := e.From
	if from == "" {
		from = e.User
	}
	if from == "" {
		from = "pulse@localhost"
	}

	body, err := renderEmail(a)
	if err != nil {
		return err
	}
	msg := buildMessage(from, e.To, subject(a), body)

	c, err := e.dial(ctx)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("AUTH"); ok && e.User != "" {
		if err := c.Auth(smtp.PlainAuth("", e.User, e.Password, e.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(from); err != nil {
		return fmt.Errorf("smtp mail: %w", err)
	}
	if err := c.Rcpt(e.To); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	return c.Quit()
}

func (e *Email) dial(ctx context.Context) (*smtp.Client, error) {
	port := e.Port
	if port == 0 {
		port = 587
	}
	addr := net.JoinHostPort(e.Host, strconv.Itoa(port))
	tlsConfig := &tls.Config{ServerName: e.Host, InsecureSkipVerify: e.SkipVerify}

	var conn net.Conn
	var err error
	if port == 465 {
		d := &tls.Dialer{Config: tlsConfig}
		conn, err = d.DialContext(ctx, "tcp", addr)
	} else {
		var d net.Dialer
		conn, err = d.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, e.Host)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if port != 465 {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(tlsConfig); err != nil {
				_ = c.Close()
				return nil, err
			}
		}
	}
	return c, nil
}

func buildMessage(from, to, subj string, html []byte) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subj))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.Write(html)
	return b.Bytes()
}

var emailTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>{{.Subject}}</title></head>
<body style="margin:0; padding:32px 12px; background-color:#0c121c; color:#e5e7eb; font-family:'Segoe UI', Arial, Helvetica, sans-serif;">
  <table role="presentation" width="100%" cellpadding="0" cellspacing="0" style="max-width:620px; margin:0 auto; background-color:#111827; border:1px solid #1f2937; border-radius:16px;">
    <tr>
      <td style="padding:28px; border-bottom:1px solid #1f2937;">
        <div style="font-size:18px; font-weight:700;">pulse</div>
        <div style="color:#9ca3af; font-size:12px; margin-top:4px;">Endpoint monitor</div>
      </td>
    </tr>
    <tr>
      <td style="padding:28px;">
        <div style="font-size:22px; font-weight:700; margin-bottom:10px;">{{.Subject}}</div>
        <div style="color:#9ca3af; font-size:13px; margin-bottom:18px;">{{.Message}}</div>
        <table role="presentation" width="100%" cellpadding="0" cellspacing="0" style="background-color:#0f172a; border-radius:12px; padding:16px;">
          <tr><td style="color:#9ca3af; font-size:12px;">Endpoint</td><td style="text-align:right;">{{.Endpoint}}</td></tr>
          <tr><td style="color:#9ca3af; font-size:12px;">Status</td><td style="text-align:right; color:{{.Color}}; font-weight:700;">{{.Previous}} → {{.Current}}</td></tr>
          <tr><td style="color:#9ca3af; font-size:12px;">Time</td><td style="text-align:right;">{{.Time}}</td></tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`))

func renderEmail(a alerts.Alert) ([]byte, error) {
	color := "#22c55e"
	switch a.Severity {
	case alerts.SeverityCritical:
		color = "#ef4444"
	case alerts.SeverityWarning:
		color = "#eab308"
	}

	var b bytes.Buffer
	err := emailTemplate.Execute(&b, map[string]interface{}{
		"Subject":  subject(a),
		"Message":  a.Message,
		"Endpoint": a.Endpoint,
		"Color":    template.CSS(color),
		"Previous": a.Previous.Label(),
		"Current":  a.Current.Label(),
		"Time":     a.Timestamp.Format("Monday, January 2, 2006 at 3:04 PM MST"),
	})
	if err != nil {
		return nil, fmt.Errorf("render email: %w", err)
	}
	return b.Bytes(), nil
}
