// Package handler is the HTTP JSON API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"appointment-booking-api/internal/booking"
	"appointment-booking-api/internal/middleware"
	"appointment-booking-api/internal/model"
	"appointment-booking-api/internal/zoom"
)

const requestTimeout = 15 * time.Second

type Bookings interface {
	Book(ctx context.Context, req booking.BookRequest) (*model.Appointment, error)
	Create(ctx context.Context, req booking.CreateRequest) (*model.Appointment, error)
	ListByUser(ctx context.Context, email string) ([]model.Appointment, error)
	ListByDoctor(ctx context.Context, doctorID string) ([]model.Appointment, error)
	Cancel(ctx context.Context, id string) error
	Reschedule(ctx context.Context, req booking.RescheduleRequest) (*model.Appointment, error)

	AvailableSlots(ctx context.Context, doctorID string, day time.Time) ([]time.Time, error)
	UnavailableSlots(ctx context.Context, doctorID string) ([]model.UnavailableSlot, error)
	BlockSlot(ctx context.Context, doctorID string, at time.Time) (*model.UnavailableSlot, error)

	RegisterDoctor(ctx context.Context, name, email string) (*model.Doctor, error)
	ListDoctors(ctx context.Context) ([]model.Doctor, error)
	DoctorByEmail(ctx context.Context, email string) (*model.Doctor, error)
	IsDoctor(ctx context.Context, email string) (bool, error)
}

// Provider is the meeting provider account behind /api/authorize,
// /api/callback, /api/create_meeting and /api/profile.
type Provider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*model.OAuthSession, error)
	CreateMeeting(ctx context.Context, req zoom.MeetingRequest) (*zoom.Meeting, error)
	Profile(ctx context.Context) (map[string]any, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Bookings Bookings
	Provider Provider
	DB       Pinger
	Log      *zap.Logger
	Location *time.Location

	// Limiter throttles the booking writes; nil disables it.
	Limiter *middleware.RateLimiter
	// MaxRequests caps requests per second per IP across the API; 0 disables it.
	MaxRequests int

	FrontendOrigin string
	WebhookSecret  string
	StateSecret    string
	IsAdmin        func(email string) bool
}

type Handler struct {
	opts     Options
	log      *zap.Logger
	loc      *time.Location
	validate *validator.Validate
}

func New(opts Options) *Handler {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.IsAdmin == nil {
		opts.IsAdmin = func(string) bool { return false }
	}
	return &Handler{
		opts:     opts,
		log:      opts.Log,
		loc:      opts.Location,
		validate: newValidator(),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(h.log))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.opts.FrontendOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", signatureHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if h.opts.MaxRequests > 0 {
		r.Use(httprate.LimitByIP(h.opts.MaxRequests, time.Second))
	}
	r.Use(chimw.Timeout(requestTimeout))

	r.Get("/", h.home)
	r.Get("/healthz", h.health)
	r.Post("/webhook", h.webhook)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if h.opts.Limiter != nil {
				r.Use(middleware.Limit(h.opts.Limiter))
			}
			r.Post("/schedule_meeting", h.scheduleMeeting)
			r.Post("/appointments", h.createAppointment)
			r.Put("/appointments/{id}", h.rescheduleAppointment)
		})
		r.Get("/appointments", h.listAppointments)
		r.Delete("/appointments/{id}", h.cancelAppointment)
		r.Get("/doctor_appointments", h.doctorAppointments)

		r.Get("/available_slots", h.availableSlots)
		r.Get("/unavailable_slots", h.unavailableSlots)
		r.Post("/unavailable_slots", h.blockSlot)

		r.Get("/doctors", h.listDoctors)
		r.Post("/doctors", h.createDoctor)
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AdminOnly(h.opts.IsAdmin))
			r.Get("/doctors", h.listDoctors)
			r.Post("/doctors", h.createDoctor)
		})
		r.Get("/is_doctor", h.isDoctor)
		r.Get("/doctor_by_email", h.doctorByEmail)

		r.Get("/authorize", h.authorize)
		r.Get("/callback", h.callback)
		r.Post("/create_meeting", h.createMeeting)
		r.Get("/profile", h.profile)
	})
	return r
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("Welcome to the appointment booking API"))
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if h.opts.DB != nil {
		if err := h.opts.DB.Ping(r.Context()); err != nil {
			h.log.Error("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
