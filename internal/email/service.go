package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/medoffice/scheduler-api/internal/config"
	"github.com/medoffice/scheduler-api/pkg/logger"
)

// Service sends scheduling notifications. Implementations must be safe
// for concurrent use.
type Service interface {
	SendAppointmentConfirmation(ctx context.Context, to, appointmentNumber string) error
	SendDoctorAssigned(ctx context.Context, to, appointmentNumber string) error
	SendCancellation(ctx context.Context, to, appointmentNumber, reason string) error
	SendCustom(ctx context.Context, to, subject, body string) error
}

// SMTPService sends mail through a plain SMTP relay.
type SMTPService struct {
	dialer *gomail.Dialer
	from   string
	logger *logger.Logger
}

func NewSMTPService(cfg config.EmailConfig, log *logger.Logger) *SMTPService {
	return &SMTPService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		logger: log,
	}
}

func (s *SMTPService) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

func (s *SMTPService) SendAppointmentConfirmation(_ context.Context, to, appointmentNumber string) error {
	return s.send(to,
		fmt.Sprintf("Appointment %s confirmed", appointmentNumber),
		fmt.Sprintf("Your appointment %s has been booked. You will be notified when a doctor is assigned.", appointmentNumber))
}

func (s *SMTPService) SendDoctorAssigned(_ context.Context, to, appointmentNumber string) error {
	return s.send(to,
		fmt.Sprintf("Doctor assigned to appointment %s", appointmentNumber),
		fmt.Sprintf("A doctor has been assigned to your appointment %s.", appointmentNumber))
}

func (s *SMTPService) SendCancellation(_ context.Context, to, appointmentNumber, reason string) error {
	return s.send(to,
		fmt.Sprintf("Appointment %s cancelled", appointmentNumber),
		fmt.Sprintf("Your appointment %s was cancelled. Reason: %s", appointmentNumber, reason))
}

func (s *SMTPService) SendCustom(_ context.Context, to, subject, body string) error {
	return s.send(to, subject, body)
}

// NoopService discards all mail. Used when email is disabled in config.
type NoopService struct{}

func (NoopService) SendAppointmentConfirmation(context.Context, string, string) error { return nil }
func (NoopService) SendDoctorAssigned(context.Context, string, string) error          { return nil }
func (NoopService) SendCancellation(context.Context, string, string, string) error    { return nil }
func (NoopService) SendCustom(context.Context, string, string, string) error          { return nil }
