package handlers

import (
	"net/http"

	"resolveit/pkg/apperror"
	"resolveit/pkg/middleware"
	"resolveit/pkg/response"
	"resolveit/services/case-service/models"
	"resolveit/services/case-service/service"
)

type loginResponse struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	User    models.Summary `json:"user"`
	Token   string         `json:"token"`
}

// fail logs internal faults with the request trace id, then writes err.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	if apperror.KindOf(err) == apperror.KindInternal {
		middleware.LogError(r.Context(), "request failed", err, "path", r.URL.Path)
	}
	response.Fail(w, err)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		fail(w, r, err)
		return
	}
	defer cleanupForm(r)

	in := service.RegisterIdentityInput{
		UserName:             r.FormValue("userName"),
		Age:                  r.FormValue("age"),
		Gender:               r.FormValue("gender"),
		Street:               r.FormValue("street"),
		City:                 r.FormValue("city"),
		ZipCode:              r.FormValue("zipCode"),
		Email:                r.FormValue("email"),
		PhoneNumber:          r.FormValue("phoneNumber"),
		Password:             r.FormValue("password"),
		PasswordConfirmation: r.FormValue("password_confirmation"),
		Photo:                formFile(r, "photo"),
	}
	if err := h.auth.Register(r.Context(), in); err != nil {
		fail(w, r, err)
		return
	}
	response.Ack(w, "User Registered Successfully")
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeJSON(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	email, _ := stringField(fields, "email")
	password, _ := fields["password"].(string)

	summary, token, err := h.auth.Authenticate(r.Context(), email, password)
	if err != nil {
		if apperror.Is(err, apperror.KindNotFound) || apperror.Is(err, apperror.KindInvalidCredential) {
			middleware.LogWarn(r.Context(), "login rejected", "reason", string(apperror.KindOf(err)))
		}
		fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, loginResponse{
		Status:  "success",
		Message: "Login successfully",
		User:    summary,
		Token:   token,
	})
}
