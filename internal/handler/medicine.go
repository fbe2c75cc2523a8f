package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/medtrack/internal/auth"
	"github.com/sakif/medtrack/internal/model"
	"github.com/sakif/medtrack/internal/service"
)

// MedicineHandler serves CRUD for the caller's medicines.
//
// Every handler resolves the session first and passes its Sub to the
// service; the medicine ID in the URL is never trusted on its own.
type MedicineHandler struct {
	medicines *service.MedicineService
	authn     *auth.Authenticator
	logger    *slog.Logger
}

// NewMedicineHandler creates a MedicineHandler.
func NewMedicineHandler(medicines *service.MedicineService, authn *auth.Authenticator, logger *slog.Logger) *MedicineHandler {
	return &MedicineHandler{medicines: medicines, authn: authn, logger: logger}
}

type medicineRequest struct {
	Name  string  `json:"name"`
	Dose  *string `json:"dose"`
	Time  string  `json:"time"`
	Notes *string `json:"notes"`
}

// optionalString records whether a JSON key was present at all, so that
// {"dose": null} (clear it) can be told apart from a missing "dose" (keep it).
//
// encoding/json only calls UnmarshalJSON for keys that appear in the input,
// including ones whose value is null.
type optionalString struct {
	Set   bool
	Value *string
}

func (o *optionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

type medicinePatchRequest struct {
	Name  optionalString `json:"name"`
	Dose  optionalString `json:"dose"`
	Time  optionalString `json:"time"`
	Notes optionalString `json:"notes"`
}

// toPatch converts the request into a model.MedicinePatch.
// A null name or time is treated as an empty value, which the service
// rejects.
func (p medicinePatchRequest) toPatch() model.MedicinePatch {
	var patch model.MedicinePatch
	empty := ""
	if p.Name.Set {
		patch.Name = p.Name.Value
		if patch.Name == nil {
			patch.Name = &empty
		}
	}
	if p.Time.Set {
		patch.Time = p.Time.Value
		if patch.Time == nil {
			patch.Time = &empty
		}
	}
	if p.Dose.Set {
		if p.Dose.Value == nil {
			patch.ClearDose = true
		} else {
			patch.Dose = p.Dose.Value
		}
	}
	if p.Notes.Set {
		if p.Notes.Value == nil {
			patch.ClearNotes = true
		} else {
			patch.Notes = p.Notes.Value
		}
	}
	return patch
}

// MedicineListResponse wraps the list so the top-level JSON is an object.
type MedicineListResponse struct {
	Medicines []model.Medicine `json:"medicines"`
}

// HandleList returns the caller's medicines, newest first.
//
// HTTP: GET /api/medicines
func (h *MedicineHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r, h.authn, h.logger)
	if !ok {
		return
	}

	medicines, err := h.medicines.List(r.Context(), session.Sub)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MedicineListResponse{Medicines: medicines})
}

// HandleCreate adds a medicine.
//
// HTTP: POST /api/medicines
// REQUEST BODY: {"name": "Aspirin", "time": "08:00", "dose": "100mg", "notes": null}
func (h *MedicineHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r, h.authn, h.logger)
	if !ok {
		return
	}

	var req medicineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	med, err := h.medicines.Create(r.Context(), session.Sub, service.MedicineInput{
		Name:  req.Name,
		Time:  req.Time,
		Dose:  req.Dose,
		Notes: req.Notes,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, med)
}

// HandleGet returns one medicine.
//
// HTTP: GET /api/medicines/{id}
func (h *MedicineHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r, h.authn, h.logger)
	if !ok {
		return
	}

	med, err := h.medicines.Get(r.Context(), session.Sub, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, med)
}

// HandleUpdate applies a partial update.
//
// HTTP: PUT /api/medicines/{id}
// Keys that are absent are left unchanged; "dose": null clears the dose.
func (h *MedicineHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r, h.authn, h.logger)
	if !ok {
		return
	}

	var req medicinePatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	med, err := h.medicines.Update(r.Context(), session.Sub, r.PathValue("id"), req.toPatch())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, med)
}

// HandleDelete removes a medicine and its reminder history.
//
// HTTP: DELETE /api/medicines/{id}
func (h *MedicineHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r, h.authn, h.logger)
	if !ok {
		return
	}

	if err := h.medicines.Delete(r.Context(), session.Sub, r.PathValue("id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}
