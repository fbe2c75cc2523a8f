package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/medtrack/internal/auth"
	"github.com/sakif/medtrack/internal/service"
)

// ReminderHandler serves the daily reminder list and status changes.
type ReminderHandler struct {
	reminders *service.ReminderService
	authn     *auth.Authenticator
	logger    *slog.Logger
}

// NewReminderHandler creates a ReminderHandler.
func NewReminderHandler(reminders *service.ReminderService, authn *auth.Authenticator, logger *slog.Logger) *ReminderHandler {
	return &ReminderHandler{reminders: reminders, authn: authn, logger: logger}
}

type reminderStatusRequest struct {
	Status string `json:"status"`
}

// HandleToday reconciles and returns today's reminders.
//
// HTTP: GET /api/reminders/today
// RESPONSE: {"date": "2024-01-02", "reminders": [{..., "medicine": {...}}]}
//
// Although this is a GET, it may insert rows: the first read of the day
// creates a Pending reminder for every medicine.
func (h *ReminderHandler) HandleToday(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r, h.authn, h.logger)
	if !ok {
		return
	}

	result, err := h.reminders.Today(r.Context(), session.Sub)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleCreate creates today's reminder for a medicine if it does not exist.
//
// HTTP: POST /api/reminders/{id}   (id is a MEDICINE id)
// REQUEST BODY (optional): {"status": "Taken"}
// RESPONSE: 201 with the new reminder, or 200 with the existing one
// unchanged.
func (h *ReminderHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r, h.authn, h.logger)
	if !ok {
		return
	}

	var req reminderStatusRequest
	if hasBody(r) {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, h.logger, err)
			return
		}
	}

	reminder, created, err := h.reminders.CreateForMedicine(r.Context(), session.Sub, r.PathValue("id"), req.Status)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, reminder)
}

// HandleUpdate sets the status of a reminder.
//
// HTTP: PATCH /api/reminders/{id}   (id is a REMINDER id)
// REQUEST BODY: {"status": "Taken"} or {"status": "Pending"}
func (h *ReminderHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r, h.authn, h.logger)
	if !ok {
		return
	}

	var req reminderStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	reminder, err := h.reminders.SetStatus(r.Context(), session.Sub, r.PathValue("id"), req.Status)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reminder)
}
