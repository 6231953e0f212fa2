package handler

import "net/http"

type createDoctorRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

func (h *Handler) createDoctor(w http.ResponseWriter, r *http.Request) {
	var req createDoctorRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	d, err := h.opts.Bookings.RegisterDoctor(r.Context(), req.Name, req.Email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Doctor created successfully",
		"doctor":  doctorJSON(d),
	})
}

func (h *Handler) listDoctors(w http.ResponseWriter, r *http.Request) {
	list, err := h.opts.Bookings.ListDoctors(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]personJSON, 0, len(list))
	for i := range list {
		out = append(out, doctorJSON(&list[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"doctors": out})
}

func (h *Handler) isDoctor(w http.ResponseWriter, r *http.Request) {
	ok, err := h.opts.Bookings.IsDoctor(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"is_doctor": ok})
}

func (h *Handler) doctorByEmail(w http.ResponseWriter, r *http.Request) {
	d, err := h.opts.Bookings.DoctorByEmail(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doctorJSON(d))
}
