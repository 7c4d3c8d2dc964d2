package smtp

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	smtpPkg "net/smtp"
	"net/textproto"
	"strings"
	"time"
)

type ItfSmtp interface {
	SendViolationAlert(to string, alert ViolationAlert) error
}

type ViolationAlert struct {
	ID          string
	Timestamp   time.Time
	Location    string
	Confidence  float64
	SnapshotURL string
	Snapshot    []byte
}

type Options struct {
	Host     string
	Port     int
	Mail     string
	Password string
}

type sendFunc func(addr string, a smtpPkg.Auth, from string, to []string, msg []byte) error

type smtp struct {
	auth smtpPkg.Auth
	mail string
	addr string
	send sendFunc
}

func New(opts Options) ItfSmtp {
	host := opts.Host
	if host == "" {
		host = "smtp.gmail.com"
	}
	port := opts.Port
	if port == 0 {
		port = 587
	}

	return &smtp{
		auth: smtpPkg.PlainAuth("", opts.Mail, opts.Password, host),
		mail: opts.Mail,
		addr: fmt.Sprintf("%s:%d", host, port),
		send: smtpPkg.SendMail,
	}
}

func (s *smtp) SendViolationAlert(to string, alert ViolationAlert) error {
	msg, err := buildViolationMessage(s.mail, to, alert)
	if err != nil {
		return err
	}

	if err := s.send(s.addr, s.auth, s.mail, []string{to}, msg); err != nil {
		return fmt.Errorf("send violation alert %s: %w", alert.ID, err)
	}

	return nil
}

func buildViolationMessage(from, to string, alert ViolationAlert) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	var text strings.Builder
	fmt.Fprintf(&text, "A person without a mask was detected at %s.\r\n\r\n", alert.Location)
	fmt.Fprintf(&text, "Violation ID: %s\r\n", alert.ID)
	fmt.Fprintf(&text, "Time: %s\r\n", alert.Timestamp.Format("02 Jan 2006 15:04:05 MST"))
	fmt.Fprintf(&text, "Detector confidence: %.0f%%\r\n", alert.Confidence*100)
	if alert.SnapshotURL != "" {
		fmt.Fprintf(&text, "Snapshot: %s\r\n", alert.SnapshotURL)
	}

	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/plain; charset=utf-8"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := part.Write([]byte(text.String())); err != nil {
		return nil, err
	}

	if len(alert.Snapshot) > 0 {
		part, err = mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {"image/jpeg"},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {fmt.Sprintf(`attachment; filename="%s.jpg"`, alert.ID)},
		})
		if err != nil {
			return nil, err
		}
		if _, err := part.Write([]byte(wrapBase64(alert.Snapshot))); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: Mask violation at %s\r\n", alert.Location)
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", mw.Boundary())
	msg.Write(body.Bytes())

	return msg.Bytes(), nil
}

func wrapBase64(data []byte) string {
	encoded := base64.StdEncoding.EncodeToString(data)

	var b strings.Builder
	for len(encoded) > 76 {
		b.WriteString(encoded[:76])
		b.WriteString("\r\n")
		encoded = encoded[76:]
	}
	b.WriteString(encoded)

	return b.String()
}
