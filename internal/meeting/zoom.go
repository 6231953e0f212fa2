package meeting

import (
	"context"
	"strconv"
	"time"

	"appointment-booking-api/internal/zoom"
)

// MeetingCreator is the part of the Zoom client used to schedule meetings.
type MeetingCreator interface {
	CreateMeeting(ctx context.Context, req zoom.MeetingRequest) (*zoom.Meeting, error)
}

// Zoom schedules a meeting through the provider API with the stored
// session. Errors from the client are returned unchanged.
type Zoom struct {
	creator MeetingCreator
}

func NewZoom(creator MeetingCreator) *Zoom {
	return &Zoom{creator: creator}
}

func (z *Zoom) Provision(ctx context.Context, req Request) (*Link, error) {
	pw, err := RandomString(PasswordLength)
	if err != nil {
		return nil, err
	}
	m, err := z.creator.CreateMeeting(ctx, zoom.MeetingRequest{
		Topic:     req.Topic,
		Type:      zoom.ScheduledMeeting,
		StartTime: req.Start.UTC().Format(time.RFC3339),
		Duration:  int(req.Duration / time.Minute),
		Timezone:  "UTC",
		Password:  pw,
	})
	if err != nil {
		return nil, err
	}
	if m.Password != "" {
		pw = m.Password
	}
	return &Link{
		RoomID:       strconv.FormatInt(m.ID, 10),
		URL:          m.JoinURL,
		ModeratorURL: m.StartURL,
		Password:     pw,
	}, nil
}
