package http

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/imagelens/backend/internal/application"
)

func (h *Handler) analyze(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read image")
		return
	}

	res, err := h.service.Analyze(r.Context(), application.AnalyzeRequest{
		UserID:   user.ID,
		FileName: header.Filename,
		Content:  content,
		Provider: r.FormValue("provider"),
		ClientIP: clientIP(r),
	})
	if err != nil {
		status, msg := mapDomainError(err)
		logHTTPOperationError(r.Context(), "analyze", status, msg, err)
		writeError(w, status, msg)
		return
	}
	writeSuccess(w, http.StatusCreated, res)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}

	page := parseIntDefault(r.URL.Query().Get("page"), 1)
	perPage := parseIntDefault(r.URL.Query().Get("per_page"), 10)

	res, err := h.service.History(r.Context(), user.ID, page, perPage)
	if err != nil {
		status, msg := mapDomainError(err)
		logHTTPOperationError(r.Context(), "history", status, msg, err)
		writeError(w, status, msg)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) analysisDetail(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}

	res, err := h.service.GetAnalysis(r.Context(), chi.URLParam(r, "analysis_id"), user.ID)
	if err != nil {
		status, msg := mapDomainError(err)
		logHTTPOperationError(r.Context(), "analysis_detail", status, msg, err)
		writeError(w, status, msg)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) analysisImage(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}

	reader, fileName, err := h.service.OpenImage(r.Context(), chi.URLParam(r, "analysis_id"), user.ID)
	if err != nil {
		status, msg := mapDomainError(err)
		logHTTPOperationError(r.Context(), "analysis_image", status, msg, err)
		writeError(w, status, msg)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Disposition", `inline; filename="`+fileName+`"`)
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, reader)
}

func (h *Handler) analysisDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteAnalysis(r.Context(), chi.URLParam(r, "analysis_id"), user.ID); err != nil {
		status, msg := mapDomainError(err)
		logHTTPOperationError(r.Context(), "analysis_delete", status, msg, err)
		writeError(w, status, msg)
		return
	}
	writeMessage(w, http.StatusOK, "analysis deleted")
}
