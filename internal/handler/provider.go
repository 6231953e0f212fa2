package handler

import (
	"html/template"
	"net/http"
	"time"

	"go.uber.org/zap"

	"appointment-booking-api/internal/apperr"
	"appointment-booking-api/internal/auth"
	"appointment-booking-api/internal/zoom"
)

// hands the authorization code to the window that opened the consent page
var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head><title>Authorization complete</title></head>
<body>
<p>Authorization complete. You can close this window.</p>
<script>
if (window.opener) {
	window.opener.postMessage({code: {{.Code}}}, {{.Origin}});
	window.close();
}
</script>
</body>
</html>
`))

func (h *Handler) provider(w http.ResponseWriter, r *http.Request) bool {
	if h.opts.Provider == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "Meeting provider not configured"})
		return false
	}
	return true
}

func (h *Handler) authorize(w http.ResponseWriter, r *http.Request) {
	if !h.provider(w, r) {
		return
	}
	state, err := auth.MakeState(h.opts.StateSecret)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, h.opts.Provider.AuthCodeURL(state), http.StatusFound)
}

func (h *Handler) callback(w http.ResponseWriter, r *http.Request) {
	if !h.provider(w, r) {
		return
	}
	q := r.URL.Query()
	code := q.Get("code")
	if code == "" {
		h.writeError(w, r, apperr.Validation("Missing code"))
		return
	}
	if _, err := auth.ParseState(q.Get("state"), h.opts.StateSecret); err != nil {
		h.writeError(w, r, apperr.Validation("Invalid state").Wrap(err))
		return
	}

	sess, err := h.opts.Provider.Exchange(r.Context(), code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.log.Info("provider session stored", zap.Time("expiry", sess.Expiry))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = callbackPage.Execute(w, struct{ Code, Origin string }{code, h.opts.FrontendOrigin})
	if err != nil {
		h.log.Error("render callback page", zap.Error(err))
	}
}

type createMeetingRequest struct {
	Topic     string `json:"topic" validate:"required"`
	StartTime string `json:"start_time"`
	Duration  int    `json:"duration" validate:"omitempty,min=1,max=1440"`
	Agenda    string `json:"agenda"`
	Password  string `json:"password" validate:"omitempty,max=10"`
}

func (h *Handler) createMeeting(w http.ResponseWriter, r *http.Request) {
	if !h.provider(w, r) {
		return
	}
	var req createMeetingRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	mr := zoom.MeetingRequest{
		Topic:    req.Topic,
		Type:     zoom.ScheduledMeeting,
		Duration: req.Duration,
		Agenda:   req.Agenda,
		Password: req.Password,
	}
	if req.StartTime != "" {
		at, err := h.parseInstant(req.StartTime)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		mr.StartTime = at.Format(time.RFC3339)
		mr.Timezone = "UTC"
	}

	m, err := h.opts.Provider.CreateMeeting(r.Context(), mr)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	if !h.provider(w, r) {
		return
	}
	p, err := h.opts.Provider.Profile(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
