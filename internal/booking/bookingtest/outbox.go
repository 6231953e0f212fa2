package bookingtest

import (
	"context"
	"sync"

	"appointment-booking-api/internal/notify"
)

// Outbox records messages instead of sending them.
type Outbox struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (o *Outbox) Send(_ context.Context, m notify.Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, m)
}

func (o *Outbox) Messages() []notify.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]notify.Message(nil), o.sent...)
}
