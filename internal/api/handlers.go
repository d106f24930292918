package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"salondesk/internal/dashboard"
	"salondesk/internal/export"
	"salondesk/internal/models"
)

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Active(),
	})
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if _, err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	token, ctrl, err := s.sessions.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":     token,
		"identity":  ctrl.Identity(),
		"dashboard": ctrl.View(),
	})
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	if err := s.sessions.Logout(r.Context(), token); err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.limiter.Forget(sessionKey(token))
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleDashboard(w http.ResponseWriter, r *http.Request, ctrl *dashboard.Controller) {
	writeJSON(w, http.StatusOK, ctrl.View())
}

// handleListBookings returns the visible bookings. A date query parameter
// selects that day first.
func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request, ctrl *dashboard.Controller) {
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		date, err := time.Parse(models.DateLayout, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return
		}
		if _, err := ctrl.SetDate(r.Context(), date); err != nil {
			s.writeErr(w, r, err)
			return
		}
	}

	view := ctrl.View()
	writeJSON(w, http.StatusOK, map[string]any{
		"selected_date": view.SelectedDate,
		"stats":         view.Stats,
		"bookings":      view.Bookings,
	})
}

func (s *HTTPServer) handleAddBooking(w http.ResponseWriter, r *http.Request, ctrl *dashboard.Controller) {
	var fields models.BookingFields
	if _, err := decodeJSON(r, &fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	b, err := ctrl.Add(r.Context(), fields)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"booking": b})
}

func (s *HTTPServer) handleEditBooking(w http.ResponseWriter, r *http.Request, ctrl *dashboard.Controller) {
	id, ok := bookingID(w, r)
	if !ok {
		return
	}
	var fields models.BookingFields
	if _, err := decodeJSON(r, &fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	b, err := ctrl.Edit(r.Context(), id, fields)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"booking": b})
}

func (s *HTTPServer) handleConfirmBooking(w http.ResponseWriter, r *http.Request, ctrl *dashboard.Controller) {
	id, ok := bookingID(w, r)
	if !ok {
		return
	}

	b, err := ctrl.Confirm(r.Context(), id)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"booking": b})
}

func (s *HTTPServer) handleDeleteBooking(w http.ResponseWriter, r *http.Request, ctrl *dashboard.Controller) {
	id, ok := bookingID(w, r)
	if !ok {
		return
	}

	b, err := ctrl.Delete(r.Context(), id)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"booking": b})
}

func (s *HTTPServer) handleDate(w http.ResponseWriter, r *http.Request, ctrl *dashboard.Controller) {
	var body struct {
		Direction *int   `json:"direction"`
		Date      string `json:"date"`
	}
	if _, err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var (
		selected time.Time
		err      error
	)
	switch {
	case strings.TrimSpace(body.Date) != "":
		date, perr := time.Parse(models.DateLayout, strings.TrimSpace(body.Date))
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return
		}
		selected, err = ctrl.SetDate(r.Context(), date)
	case body.Direction != nil:
		selected, err = ctrl.AdvanceDate(r.Context(), *body.Direction)
	default:
		writeError(w, http.StatusBadRequest, "direction or date is required")
		return
	}
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"selected_date": selected.Format(models.DateLayout)})
}

func (s *HTTPServer) handleGetModal(w http.ResponseWriter, r *http.Request, ctrl *dashboard.Controller) {
	writeJSON(w, http.StatusOK, map[string]any{"modal": ctrl.Modal()})
}

func (s *HTTPServer) handleOpenModal(w http.ResponseWriter, r *http.Request, ctrl *dashboard.Controller) {
	var body struct {
		Action    string `json:"action"`
		BookingID int64  `json:"booking_id"`
	}
	if _, err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var (
		modal dashboard.Modal
		err   error
	)
	switch dashboard.ModalKind(strings.ToLower(strings.TrimSpace(body.Action))) {
	case dashboard.ModalAdd:
		modal = ctrl.OpenAdd()
	case dashboard.ModalEdit:
		modal, err = ctrl.OpenEdit(body.BookingID)
	case dashboard.ModalConfirm:
		modal, err = ctrl.OpenConfirm(body.BookingID)
	case dashboard.ModalDelete:
		modal, err = ctrl.OpenDelete(body.BookingID)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown action %q", body.Action))
		return
	}
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"modal": modal})
}

// handleSubmitModal runs the open modal. An optional body replaces the form of
// add and edit modals.
func (s *HTTPServer) handleSubmitModal(w http.ResponseWriter, r *http.Request, ctrl *dashboard.Controller) {
	var fields models.BookingFields
	present, err := decodeJSON(r, &fields)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	var override *models.BookingFields
	if present {
		override = &fields
	}

	b, err := ctrl.SubmitModal(r.Context(), override)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"booking": b})
}

func (s *HTTPServer) handleCancelModal(w http.ResponseWriter, r *http.Request, ctrl *dashboard.Controller) {
	ctrl.CancelModal()
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleNotifications(w http.ResponseWriter, r *http.Request, ctrl *dashboard.Controller) {
	writeJSON(w, http.StatusOK, map[string]any{"toasts": ctrl.Toasts()})
}

// handleDismissNotification is idempotent; unknown ids are ignored.
func (s *HTTPServer) handleDismissNotification(w http.ResponseWriter, r *http.Request, ctrl *dashboard.Controller) {
	ctrl.DismissToast(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request, ctrl *dashboard.Controller) {
	date := ctrl.SelectedDate()

	var buf bytes.Buffer
	if err := export.DailySheet(&buf, s.sheetName, date, ctrl.Bookings()); err != nil {
		s.writeErr(w, r, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(date)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func bookingID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return 0, false
	}
	return id, true
}
