package http

import (
	"net/http"

	"github.com/imagelens/backend/internal/application"
)

func (h *Handler) captcha(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.IssueChallenge(r.Context())
	if err != nil {
		status, msg := mapDomainError(err)
		logHTTPOperationError(r.Context(), "captcha", status, msg, err)
		writeError(w, status, msg)
		return
	}
	writeSuccess(w, http.StatusOK, res.Challenge)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req application.RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.ClientIP = clientIP(r)

	res, err := h.service.Register(r.Context(), req)
	if err != nil {
		status, msg := mapDomainError(err)
		logHTTPOperationError(r.Context(), "register", status, msg, err)
		writeError(w, status, msg)
		return
	}
	writeSuccess(w, http.StatusCreated, res)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req application.LoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.ClientIP = clientIP(r)

	res, err := h.service.Login(r.Context(), req)
	if err != nil {
		status, msg := mapDomainError(err)
		logHTTPOperationError(r.Context(), "login", status, msg, err)
		writeError(w, status, msg)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"user": h.service.Profile(r.Context(), user),
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	h.service.Logout(r.Context())
	writeMessage(w, http.StatusOK, "logged out")
}
