package handlers

import (
	"net/http"

	"resolveit/pkg/apperror"
	"resolveit/pkg/middleware"
	"resolveit/pkg/response"
	"resolveit/services/case-service/models"
	"resolveit/services/case-service/service"
)

func caller(r *http.Request) (middleware.Principal, error) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		return middleware.Principal{}, apperror.New(apperror.KindUnauthorized, "Unauthorized")
	}
	return p, nil
}

// registerCase files a case for the authenticated caller. Any userId field
// in the form is ignored.
func (h *Handler) registerCase(w http.ResponseWriter, r *http.Request) {
	p, err := caller(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := parseForm(w, r); err != nil {
		fail(w, r, err)
		return
	}
	defer cleanupForm(r)

	in := service.RegisterCaseInput{
		CaseType:             r.FormValue("caseType"),
		Description:          r.FormValue("description"),
		OppositePartyName:    r.FormValue("oppositePartyName"),
		OppositePartyContact: r.FormValue("oppositePartyContact"),
		OppositePartyAddress: r.FormValue("oppositePartyAddress"),
		IssuePendingStatus:   r.FormValue("issuePendingStatus"),
		Proof:                formFile(r, "proof"),
	}
	if err := h.cases.Register(r.Context(), p.ID, in); err != nil {
		fail(w, r, err)
		return
	}
	response.Ack(w, "Case Registered Successfully")
}

func (h *Handler) setVerification(w http.ResponseWriter, r *http.Request) {
	p, fields, id, ok := h.updatePayload(w, r)
	if !ok {
		return
	}
	verified, ok := boolField(fields, "verified")
	if !ok {
		fail(w, r, apperror.Validation("verified must be a boolean"))
		return
	}
	if err := h.cases.SetVerification(r.Context(), p.ID, id, verified); err != nil {
		fail(w, r, err)
		return
	}
	response.Ack(w, "Updated case verification status")
}

func (h *Handler) setOppositeStatus(w http.ResponseWriter, r *http.Request) {
	p, fields, id, ok := h.updatePayload(w, r)
	if !ok {
		return
	}
	n, ok := intField(fields, "oppositeStatus", 0, 2)
	if !ok {
		fail(w, r, apperror.Validation("oppositeStatus must be an integer between 0 and 2"))
		return
	}
	status, err := models.ParseOppositeStatus(n)
	if err != nil {
		fail(w, r, apperror.Validation("oppositeStatus must be an integer between 0 and 2"))
		return
	}
	if err := h.cases.SetOppositeStatus(r.Context(), p.ID, id, status); err != nil {
		fail(w, r, err)
		return
	}
	response.Ack(w, "Updated case opposite status")
}

func (h *Handler) setCaseStatus(w http.ResponseWriter, r *http.Request) {
	p, fields, id, ok := h.updatePayload(w, r)
	if !ok {
		return
	}
	n, ok := intField(fields, "caseStatus", 0, 4)
	if !ok {
		fail(w, r, apperror.Validation("caseStatus must be an integer between 0 and 4"))
		return
	}
	status, err := models.ParseStatus(n)
	if err != nil {
		fail(w, r, apperror.Validation("caseStatus must be an integer between 0 and 4"))
		return
	}
	if err := h.cases.SetCaseStatus(r.Context(), p.ID, id, status); err != nil {
		fail(w, r, err)
		return
	}
	response.Ack(w, "Updated case status")
}

// updatePayload decodes an admin update body and validates its id. On
// failure the response is already written.
func (h *Handler) updatePayload(w http.ResponseWriter, r *http.Request) (middleware.Principal, map[string]any, string, bool) {
	p, err := caller(r)
	if err != nil {
		fail(w, r, err)
		return middleware.Principal{}, nil, "", false
	}
	fields, err := decodeJSON(w, r)
	if err != nil {
		fail(w, r, err)
		return middleware.Principal{}, nil, "", false
	}
	id, err := idField(fields)
	if err != nil {
		fail(w, r, err)
		return middleware.Principal{}, nil, "", false
	}
	return p, fields, id, true
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	views, err := h.cases.ListAll(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, views)
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	p, err := caller(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	fields, err := decodeJSON(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	requested, _ := stringField(fields, "userId")

	views, err := h.cases.ListForOwner(r.Context(), p, requested)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, views)
}
