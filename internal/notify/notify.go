// Package notify delivers booking emails. Delivery is best effort: the
// Dispatcher logs failures and never reports them to the caller.
package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"appointment-booking-api/internal/model"
	"appointment-booking-api/internal/schedule"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

type Sender interface {
	Send(ctx context.Context, m Message) error
}

type Dispatcher struct {
	sender Sender
	log    *zap.Logger
}

func NewDispatcher(sender Sender, log *zap.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, log: log}
}

func (d *Dispatcher) Send(ctx context.Context, m Message) {
	if err := d.sender.Send(ctx, m); err != nil {
		d.log.Warn("email delivery failed",
			zap.String("to", m.To),
			zap.String("subject", m.Subject),
			zap.Error(err),
		)
		return
	}
	d.log.Debug("email sent", zap.String("to", m.To), zap.String("subject", m.Subject))
}

const patientBody = `Meeting Details:
Purpose: %s
Date and Time: %s
Meeting URL: %s

Please join the meeting at the specified time.
`

const doctorBody = `Meeting Details:
Purpose: %s
Date and Time: %s
Meeting URL: %s
Moderator URL: %s
Meeting Password: %s

Please join the meeting at the specified time.
`

// BookingMessages builds the confirmations for a new appointment. Only the
// doctor's copy carries the moderator credentials.
func BookingMessages(a *model.Appointment, loc *time.Location) (doctor, patient Message) {
	subject := fmt.Sprintf("Meeting Scheduled: %s", a.Purpose)
	when := schedule.Format(a.Date, loc)

	doctor = Message{
		To:      a.Doctor.Email,
		Subject: subject,
		Body:    fmt.Sprintf(doctorBody, a.Purpose, when, a.MeetingURL, a.ModeratorURL, a.MeetingPassword),
	}
	patient = Message{
		To:      a.User.Email,
		Subject: subject,
		Body:    fmt.Sprintf(patientBody, a.Purpose, when, a.MeetingURL),
	}
	return doctor, patient
}

// LogSender only logs; it stands in when no email provider is configured.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, m Message) error {
	s.log.Info("email not sent, no provider configured",
		zap.String("to", m.To),
		zap.String("subject", m.Subject),
	)
	return nil
}
