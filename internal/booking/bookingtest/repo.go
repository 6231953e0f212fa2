// Package bookingtest provides an in-memory booking.Repository with the
// same conflict rules as the Postgres store.
package bookingtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"appointment-booking-api/internal/apperr"
	"appointment-booking-api/internal/model"
)

type slotKey struct {
	doctorID string
	unix     int64
}

type Repo struct {
	mu           sync.Mutex
	users        map[string]model.User
	doctors      map[string]model.Doctor
	appointments map[string]model.Appointment
	slots        map[slotKey]*model.TimeSlot
	blocks       []model.UnavailableSlot
	nextSlotID   int64
}

func NewRepo() *Repo {
	return &Repo{
		users:        make(map[string]model.User),
		doctors:      make(map[string]model.Doctor),
		appointments: make(map[string]model.Appointment),
		slots:        make(map[slotKey]*model.TimeSlot),
	}
}

// AddDoctor stores d with open slots at the given instants.
func (r *Repo) AddDoctor(d model.Doctor, slots ...time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doctors[d.ID] = d
	r.addSlots(d.ID, slots)
}

func (r *Repo) AddUser(u model.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
}

// Slot returns a copy of the slot row, or nil.
func (r *Repo) Slot(doctorID string, at time.Time) *model.TimeSlot {
	r.mu.Lock()
	defer r.mu.Unlock()
	ts, ok := r.slots[slotKey{doctorID, at.Unix()}]
	if !ok {
		return nil
	}
	cp := *ts
	return &cp
}

func (r *Repo) SlotCount(doctorID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k := range r.slots {
		if k.doctorID == doctorID {
			n++
		}
	}
	return n
}

func (r *Repo) addSlots(doctorID string, slots []time.Time) {
	for _, t := range slots {
		r.nextSlotID++
		r.slots[slotKey{doctorID, t.Unix()}] = &model.TimeSlot{
			ID: r.nextSlotID, DoctorID: doctorID, StartTime: t.UTC(), IsAvailable: true,
		}
	}
}

func (r *Repo) dateTaken(doctorID string, at time.Time, except string) bool {
	for _, a := range r.appointments {
		if a.ID != except && a.DoctorID == doctorID && a.Date.Equal(at) {
			return true
		}
	}
	return false
}

func (r *Repo) blocked(doctorID string, at time.Time) bool {
	for _, b := range r.blocks {
		if b.DoctorID == doctorID && b.Date.Equal(at) {
			return true
		}
	}
	return false
}

func (r *Repo) occupy(doctorID string, at time.Time, apptID string, strict bool) error {
	ts, ok := r.slots[slotKey{doctorID, at.Unix()}]
	if !ok {
		if strict {
			return fmt.Errorf("slot: %w", apperr.ErrSlotTaken)
		}
		return nil
	}
	if !ts.IsAvailable {
		return fmt.Errorf("slot: %w", apperr.ErrSlotTaken)
	}
	ts.IsAvailable = false
	id := apptID
	ts.AppointmentID = &id
	return nil
}

func (r *Repo) release(apptID string) {
	for _, ts := range r.slots {
		if ts.AppointmentID != nil && *ts.AppointmentID == apptID {
			ts.IsAvailable = true
			ts.AppointmentID = nil
		}
	}
}

func (r *Repo) hydrate(a model.Appointment) model.Appointment {
	a.Doctor = r.doctors[a.DoctorID]
	a.User = r.users[a.UserID]
	return a
}

func (r *Repo) BookAppointment(_ context.Context, a *model.Appointment, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.doctors[a.DoctorID]; !ok {
		return fmt.Errorf("doctor: %w", apperr.ErrNotFound)
	}
	if r.blocked(a.DoctorID, a.Date) {
		return fmt.Errorf("slot blocked: %w", apperr.ErrSlotTaken)
	}
	if r.dateTaken(a.DoctorID, a.Date, "") {
		return fmt.Errorf("appointment: %w", apperr.ErrSlotTaken)
	}
	ts, ok := r.slots[slotKey{a.DoctorID, a.Date.Unix()}]
	if ok && !ts.IsAvailable {
		return fmt.Errorf("slot: %w", apperr.ErrSlotTaken)
	}

	for _, existing := range r.users {
		if existing.Email == u.Email {
			u.ID = existing.ID
		}
	}
	r.users[u.ID] = *u
	a.UserID = u.ID
	a.User = *u

	r.appointments[a.ID] = *a
	return r.occupy(a.DoctorID, a.Date, a.ID, false)
}

func (r *Repo) CreateAppointment(_ context.Context, a *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.doctors[a.DoctorID]; !ok {
		return fmt.Errorf("doctor: %w", apperr.ErrNotFound)
	}
	if _, ok := r.users[a.UserID]; !ok {
		return fmt.Errorf("user: %w", apperr.ErrNotFound)
	}
	if r.blocked(a.DoctorID, a.Date) {
		return fmt.Errorf("slot blocked: %w", apperr.ErrSlotTaken)
	}
	if r.dateTaken(a.DoctorID, a.Date, "") {
		return fmt.Errorf("appointment: %w", apperr.ErrSlotTaken)
	}
	if err := r.occupy(a.DoctorID, a.Date, a.ID, true); err != nil {
		return err
	}
	r.appointments[a.ID] = *a
	return nil
}

func (r *Repo) GetAppointment(_ context.Context, id string) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok {
		return nil, fmt.Errorf("appointment %s: %w", id, apperr.ErrNotFound)
	}
	a = r.hydrate(a)
	return &a, nil
}

func (r *Repo) list(match func(model.Appointment) bool) []model.Appointment {
	var out []model.Appointment
	for _, a := range r.appointments {
		if match(a) {
			out = append(out, r.hydrate(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func (r *Repo) ListAppointmentsByUser(_ context.Context, userID string) ([]model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(func(a model.Appointment) bool { return a.UserID == userID }), nil
}

func (r *Repo) ListAppointmentsByDoctor(_ context.Context, doctorID string) ([]model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(func(a model.Appointment) bool { return a.DoctorID == doctorID }), nil
}

func (r *Repo) RescheduleAppointment(_ context.Context, a *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.appointments[a.ID]
	if !ok {
		return fmt.Errorf("appointment %s: %w", a.ID, apperr.ErrNotFound)
	}
	if r.blocked(cur.DoctorID, a.Date) {
		return fmt.Errorf("slot blocked: %w", apperr.ErrSlotTaken)
	}
	if r.dateTaken(cur.DoctorID, a.Date, a.ID) {
		return fmt.Errorf("appointment: %w", apperr.ErrSlotTaken)
	}

	// all or nothing, like the transaction in the store
	snapshot := make(map[slotKey]model.TimeSlot, len(r.slots))
	for k, v := range r.slots {
		snapshot[k] = *v
	}
	r.release(a.ID)
	if err := r.occupy(cur.DoctorID, a.Date, a.ID, true); err != nil {
		for k, v := range snapshot {
			v := v
			r.slots[k] = &v
		}
		return err
	}

	cur.Date = a.Date
	cur.MeetingURL, cur.ModeratorURL, cur.MeetingPassword = a.MeetingURL, a.ModeratorURL, a.MeetingPassword
	r.appointments[a.ID] = cur
	return nil
}

func (r *Repo) DeleteAppointment(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.appointments[id]; !ok {
		return fmt.Errorf("appointment %s: %w", id, apperr.ErrNotFound)
	}
	r.release(id)
	delete(r.appointments, id)
	return nil
}

func (r *Repo) UserByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, apperr.ErrNotFound)
}

func (r *Repo) CreateDoctor(_ context.Context, d *model.Doctor, slots []time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.doctors {
		if existing.Email == d.Email {
			return fmt.Errorf("doctor %s: %w", d.Email, apperr.ErrConflict)
		}
	}
	r.doctors[d.ID] = *d
	r.addSlots(d.ID, slots)
	return nil
}

func (r *Repo) DoctorByID(_ context.Context, id string) (*model.Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.doctors[id]
	if !ok {
		return nil, fmt.Errorf("doctor %s: %w", id, apperr.ErrNotFound)
	}
	return &d, nil
}

func (r *Repo) DoctorByEmail(_ context.Context, email string) (*model.Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.doctors {
		if d.Email == email {
			cp := d
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("doctor %s: %w", email, apperr.ErrNotFound)
}

func (r *Repo) ListDoctors(_ context.Context) ([]model.Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Doctor
	for _, d := range r.doctors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *Repo) TakenTimes(_ context.Context, doctorID string, from, to time.Time) ([]time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	in := func(t time.Time) bool { return !t.Before(from) && t.Before(to) }

	var out []time.Time
	for _, a := range r.appointments {
		if a.DoctorID == doctorID && in(a.Date) {
			out = append(out, a.Date)
		}
	}
	for _, b := range r.blocks {
		if b.DoctorID == doctorID && in(b.Date) {
			out = append(out, b.Date)
		}
	}
	return out, nil
}

func (r *Repo) BlockSlot(_ context.Context, doctorID string, at time.Time) (*model.UnavailableSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.doctors[doctorID]; !ok {
		return nil, fmt.Errorf("doctor %s: %w", doctorID, apperr.ErrNotFound)
	}
	for _, b := range r.blocks {
		if b.DoctorID == doctorID && b.Date.Equal(at) {
			cp := b
			return &cp, nil
		}
	}
	b := model.UnavailableSlot{ID: int64(len(r.blocks) + 1), DoctorID: doctorID, Date: at.UTC()}
	r.blocks = append(r.blocks, b)
	return &b, nil
}

func (r *Repo) ListUnavailable(_ context.Context, doctorID string) ([]model.UnavailableSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.UnavailableSlot
	for _, b := range r.blocks {
		if b.DoctorID == doctorID {
			out = append(out, b)
		}
	}
	return out, nil
}
