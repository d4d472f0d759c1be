package mailer

import (
	"fmt"
	"net"
	"net/smtp"
	"strconv"

	"github.com/rs/zerolog"

	"eventtracker/internal/model"
)

type Config struct {
	Host     string
	Port     int
	From     string
	Password string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends the registration notice to newly registered participants.
type Mailer struct {
	cfg  Config
	log  *zerolog.Logger
	send sendFunc
}

func New(cfg Config, log *zerolog.Logger) *Mailer {
	return &Mailer{cfg: cfg, log: log, send: smtp.SendMail}
}

func registrationMessage(from string, p model.Participant) string {
	subject := "Registration confirmed"
	body := fmt.Sprintf("Hello %s!\n\nYou are registered. Your participant ID is %s.\nShow the QR code for this ID at check-in.", p.Name, p.ParticipantID)
	return fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		from, p.Email, subject, body,
	)
}

func (m *Mailer) ParticipantRegistered(p model.Participant) error {
	if p.Email == "" {
		return nil
	}
	msg := registrationMessage(m.cfg.From, p)

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	auth := smtp.PlainAuth("", m.cfg.From, m.cfg.Password, m.cfg.Host)

	if err := m.send(addr, auth, m.cfg.From, []string{p.Email}, []byte(msg)); err != nil {
		m.log.Warn().Msgf("failed to send e-mail to %s: %v", p.Email, err)
		return fmt.Errorf("send email: %w", err)
	}

	m.log.Info().Msgf("registration e-mail sent to %s (participant %s)", p.Email, p.ParticipantID)
	return nil
}
