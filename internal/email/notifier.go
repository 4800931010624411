package email

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/medoffice/scheduler-api/internal/repository"
	"github.com/medoffice/scheduler-api/pkg/event"
	"github.com/medoffice/scheduler-api/pkg/logger"
	"github.com/medoffice/scheduler-api/pkg/messaging"
)

// Notifier listens on the broker channels the outbox publishes to and
// turns doctor assignment and release events into emails. Delivery is
// best effort; a failed send is logged and the event is not retried.
type Notifier struct {
	broker       messaging.Broker
	doctors      repository.DoctorRepository
	appointments repository.AppointmentRepository
	mailer       Service
	logger       *logger.Logger
}

func NewNotifier(broker messaging.Broker, doctors repository.DoctorRepository, appointments repository.AppointmentRepository, mailer Service, log *logger.Logger) *Notifier {
	return &Notifier{
		broker:       broker,
		doctors:      doctors,
		appointments: appointments,
		mailer:       mailer,
		logger:       log,
	}
}

// Run subscribes to the assignment channels and blocks until ctx is
// cancelled.
func (n *Notifier) Run(ctx context.Context) error {
	assigned, err := n.broker.Subscribe(ctx, event.TypeDoctorAssigned)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", event.TypeDoctorAssigned, err)
	}
	released, err := n.broker.Subscribe(ctx, event.TypeDoctorReleased)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", event.TypeDoctorReleased, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-assigned:
			if !ok {
				return nil
			}
			n.handleAssignment(ctx, msg, true)
		case msg, ok := <-released:
			if !ok {
				return nil
			}
			n.handleAssignment(ctx, msg, false)
		}
	}
}

type assignmentPayload struct {
	AppointmentID string `json:"appointment_id"`
	DoctorID      string `json:"doctor_id"`
}

func (n *Notifier) handleAssignment(ctx context.Context, raw []byte, assigned bool) {
	var payload assignmentPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		n.logger.Error(err, "failed to decode assignment event")
		return
	}

	doctorID, err := uuid.Parse(payload.DoctorID)
	if err != nil {
		n.logger.Error(err, "assignment event carries invalid doctor ID", "doctor_id", payload.DoctorID)
		return
	}
	appointmentID, err := uuid.Parse(payload.AppointmentID)
	if err != nil {
		n.logger.Error(err, "assignment event carries invalid appointment ID", "appointment_id", payload.AppointmentID)
		return
	}

	doctor, err := n.doctors.Get(ctx, doctorID)
	if err != nil {
		n.logger.Error(err, "failed to load doctor for notification", "doctor_id", doctorID)
		return
	}
	appt, err := n.appointments.Get(ctx, appointmentID)
	if err != nil {
		n.logger.Error(err, "failed to load appointment for notification", "appointment_id", appointmentID)
		return
	}

	if assigned {
		err = n.mailer.SendDoctorAssigned(ctx, doctor.Email, appt.AppointmentNumber)
	} else {
		err = n.mailer.SendCustom(ctx, doctor.Email,
			fmt.Sprintf("Released from appointment %s", appt.AppointmentNumber),
			fmt.Sprintf("You are no longer assigned to appointment %s.", appt.AppointmentNumber))
	}
	if err != nil {
		n.logger.Error(err, "failed to send notification email",
			"doctor_id", doctorID,
			"appointment_id", appointmentID)
	}
}
