package notification

import (
	"bytes"
	"context"
	"crypto/tls"
	"embed"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"mime"
	"mime/multipart"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	texttemplate "text/template"
	"time"

	"songmail/internal/config"
)

//go:embed templates/*
var templateFS embed.FS

var (
	textTemplate = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/new_song.txt"))
	htmlTemplate = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/new_song.html"))
)

// used when the caller's context carries no deadline
const defaultSMTPTimeout = 30 * time.Second

type sendMailFunc func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends a song notification as a text + HTML email.
type SMTPMailer struct {
	addr     string
	host     string
	username string
	password string
	sendMail sendMailFunc
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	m := &SMTPMailer{
		addr:     net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort)),
		host:     cfg.SMTPHost,
		username: cfg.Username,
		password: cfg.Password,
	}
	m.sendMail = m.sendSMTP
	return m
}

// Send delivers one job. The whole SMTP conversation is bound by ctx; without
// a deadline it gets defaultSMTPTimeout.
func (m *SMTPMailer) Send(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultSMTPTimeout)
		defer cancel()
	}

	from, err := mail.ParseAddress(job.Sender)
	if err != nil {
		return fmt.Errorf("parse sender %q: %w", job.Sender, err)
	}
	to, err := mail.ParseAddress(job.RecipientEmail)
	if err != nil {
		return fmt.Errorf("parse recipient %q: %w", job.RecipientEmail, err)
	}

	msg, err := buildMessage(from, to, job)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	if err := m.sendMail(ctx, m.addr, auth, from.Address, []string{to.Address}, msg); err != nil {
		return fmt.Errorf("send mail via %s: %w", m.addr, err)
	}
	return nil
}

// sendSMTP is smtp.SendMail over a connection that honours ctx: the dial is
// cancellable and every read and write fails once ctx is done.
func (m *SMTPMailer) sendSMTP(ctx context.Context, addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			_ = conn.Close()
			return err
		}
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Unix(1, 0)) })
	defer stop()

	c, err := smtp.NewClient(conn, m.host)
	if err != nil {
		_ = conn.Close()
		return wrapCtx(ctx, err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: m.host}); err != nil {
			return wrapCtx(ctx, err)
		}
	}
	if auth != nil {
		if ok, _ := c.Extension("AUTH"); !ok {
			return errors.New("smtp server does not support AUTH")
		}
		if err := c.Auth(auth); err != nil {
			return wrapCtx(ctx, err)
		}
	}
	if err := c.Mail(from); err != nil {
		return wrapCtx(ctx, err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return wrapCtx(ctx, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return wrapCtx(ctx, err)
	}
	if _, err := w.Write(msg); err != nil {
		return wrapCtx(ctx, err)
	}
	if err := w.Close(); err != nil {
		return wrapCtx(ctx, err)
	}
	return wrapCtx(ctx, c.Quit())
}

// wrapCtx reports a deadline-induced I/O error as the context error.
func wrapCtx(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %v", ctxErr, err)
	}
	return err
}

func buildMessage(from, to *mail.Address, job Job) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	textPart, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/plain; charset=UTF-8"}})
	if err != nil {
		return nil, err
	}
	if err := textTemplate.Execute(textPart, job); err != nil {
		return nil, fmt.Errorf("render text body: %w", err)
	}

	htmlPart, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/html; charset=UTF-8"}})
	if err != nil {
		return nil, err
	}
	if err := htmlTemplate.Execute(htmlPart, job); err != nil {
		return nil, fmt.Errorf("render html body: %w", err)
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", from.String())
	fmt.Fprintf(&msg, "To: %s\r\n", to.String())
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", job.Subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mw.Boundary())
	msg.Write(body.Bytes())

	return msg.Bytes(), nil
}
