package model

import "time"

// SessionID keys the single provider session row of a deployment.
const SessionID = "default"

type User struct {
	ID    string
	Email string
	Name  string
}

type Doctor struct {
	ID    string
	Name  string
	Email string
}

type TimeSlot struct {
	ID            int64
	DoctorID      string
	StartTime     time.Time
	IsAvailable   bool
	AppointmentID *string
}

// Appointment carries the doctor and user rows it references so that
// responses can be rendered without further lookups.
type Appointment struct {
	ID              string
	Date            time.Time
	Purpose         string
	DoctorID        string
	UserID          string
	MeetingURL      string
	ModeratorURL    string
	MeetingPassword string
	Doctor          Doctor
	User            User
}

type UnavailableSlot struct {
	ID       int64
	DoctorID string
	Date     time.Time
}

type OAuthSession struct {
	ID           string
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
	UpdatedAt    time.Time
}
