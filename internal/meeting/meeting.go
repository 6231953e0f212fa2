// Package meeting provisions the video-meeting link attached to an
// appointment.
package meeting

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	RoomIDLength   = 12
	PasswordLength = 8
)

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

type Request struct {
	Topic    string
	Start    time.Time
	Duration time.Duration
}

// Link is what participants need to join. ModeratorURL grants host rights
// and is only shared with the doctor.
type Link struct {
	RoomID       string
	URL          string
	ModeratorURL string
	Password     string
}

type Provisioner interface {
	Provision(ctx context.Context, req Request) (*Link, error)
}

// Jitsi builds links on a Jitsi Meet deployment. Rooms are created on first
// join, so no network call is made.
type Jitsi struct {
	BaseURL string
}

func NewJitsi(baseURL string) *Jitsi {
	return &Jitsi{BaseURL: baseURL}
}

func (j *Jitsi) Provision(_ context.Context, _ Request) (*Link, error) {
	id, err := RandomString(RoomIDLength)
	if err != nil {
		return nil, err
	}
	pw, err := RandomString(PasswordLength)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/%s", j.BaseURL, id)
	return &Link{
		RoomID:       id,
		URL:          url,
		ModeratorURL: fmt.Sprintf("%s#config.password=%s", url, pw),
		Password:     pw,
	}, nil
}

// RandomString returns n characters drawn uniformly from [A-Za-z0-9].
func RandomString(n int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, n)
	for i := range b {
		v, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = alphabet[v.Int64()]
	}
	return string(b), nil
}
