package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// SMTPConfig configures e-mail delivery.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// SendMailFunc matches smtp.SendMail.
type SendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPChannel sends the HTML body of a report by e-mail.
type SMTPChannel struct {
	cfg      SMTPConfig
	sendMail SendMailFunc
	now      func() time.Time
}

// NewSMTPChannel constructs an e-mail channel.
func NewSMTPChannel(cfg SMTPConfig) (*SMTPChannel, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp channel: empty host")
	}
	if cfg.From == "" || len(cfg.To) == 0 {
		return nil, errors.New("smtp channel: sender and recipients required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPChannel{cfg: cfg, sendMail: smtp.SendMail, now: time.Now}, nil
}

// Send delivers msg.HTML with msg.Subject. net/smtp has no context support,
// so ctx is only checked before dialing.
func (c *SMTPChannel) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var auth smtp.Auth
	if c.cfg.Username != "" {
		auth = smtp.PlainAuth("", c.cfg.Username, c.cfg.Password, c.cfg.Host)
	}
	addr := net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))
	if err := c.sendMail(addr, auth, c.cfg.From, c.cfg.To, c.compose(msg)); err != nil {
		return fmt.Errorf("smtp channel: %w", err)
	}
	return nil
}

func (c *SMTPChannel) compose(msg Message) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", c.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(c.cfg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", c.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.HTML, "\n", "\r\n"))
	return b.Bytes()
}
