// Package handler exposes viewers to the browser shell over HTTP.
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"pdf-canvas-viewer/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// multipartOverhead is the room left for form boundaries and headers on top
// of the file size limit.
const multipartOverhead = 1 << 20

// ViewerHandler handles viewer-related HTTP requests
type ViewerHandler struct {
	registry      domain.ViewerRegistry
	maxFileSize   int64
	settleTimeout time.Duration
	validate      *validator.Validate
	logger        domain.Logger
}

// NewViewerHandler creates a new viewer handler
func NewViewerHandler(registry domain.ViewerRegistry, maxFileSize int64, settleTimeout time.Duration, logger domain.Logger) *ViewerHandler {
	return &ViewerHandler{
		registry:      registry,
		maxFileSize:   maxFileSize,
		settleTimeout: settleTimeout,
		validate:      validator.New(),
		logger:        logger,
	}
}

type viewerResponse struct {
	ID         string                       `json:"id"`
	State      domain.ViewState             `json:"state"`
	Display    domain.DisplayState          `json:"display"`
	Directives []domain.FullscreenDirective `json:"directives"`
	Key        *domain.KeyResult            `json:"key,omitempty"`
}

type keyRequest struct {
	Key string `json:"key" validate:"required,max=32"`
}

type fullscreenChangeRequest struct {
	Element        string `json:"element" validate:"omitempty,oneof=surface"`
	ViewportWidth  int    `json:"viewport_width" validate:"gte=0,lte=16384"`
	ViewportHeight int    `json:"viewport_height" validate:"gte=0,lte=16384"`
}

// CreateViewer opens a new viewer for a browser tab
func (h *ViewerHandler) CreateViewer(w http.ResponseWriter, r *http.Request) {
	viewer, err := h.registry.Create()
	if err != nil {
		h.logger.Warn("Failed to create viewer", "error", err)
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.snapshot(viewer, nil))
}

// GetViewer returns the viewer's state, display and pending directives
func (h *ViewerHandler) GetViewer(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.viewer(w, r)
	if !ok {
		return
	}
	h.respond(w, r, viewer, nil)
}

// DeleteViewer closes a viewer and releases its document
func (h *ViewerHandler) DeleteViewer(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Remove(mux.Vars(r)["id"]); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PickFile loads the multipart "file" part, as the file picker does
func (h *ViewerHandler) PickFile(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.viewer(w, r)
	if !ok {
		return
	}
	form, ok := h.parseForm(w, r)
	if !ok {
		return
	}

	var input *domain.FileInput
	if headers := form.File["file"]; len(headers) > 0 {
		file, err := readPart(headers[0])
		if err != nil {
			h.logger.Error("Failed to read uploaded file", err, "viewer_id", viewer.ID)
			writeError(w, http.StatusBadRequest, "Failed to read uploaded file")
			return
		}
		input = &file
	}

	if err := viewer.Input.FilePicked(r.Context(), input); err != nil {
		writeAppError(w, err)
		return
	}
	h.respond(w, r, viewer, nil)
}

// Drop loads the first of the multipart "files" parts, as a drop does
func (h *ViewerHandler) Drop(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.viewer(w, r)
	if !ok {
		return
	}
	form, ok := h.parseForm(w, r)
	if !ok {
		viewer.Input.DragLeave()
		return
	}

	var files []domain.FileInput
	for _, header := range form.File["files"] {
		file, err := readPart(header)
		if err != nil {
			viewer.Input.DragLeave()
			h.logger.Error("Failed to read dropped file", err, "viewer_id", viewer.ID)
			writeError(w, http.StatusBadRequest, "Failed to read dropped file")
			return
		}
		files = append(files, file)
	}

	if err := viewer.Input.Dropped(r.Context(), files); err != nil {
		writeAppError(w, err)
		return
	}
	h.respond(w, r, viewer, nil)
}

// DragOver highlights the drop target
func (h *ViewerHandler) DragOver(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.viewer(w, r)
	if !ok {
		return
	}
	viewer.Input.DragOver()
	h.respond(w, r, viewer, nil)
}

// DragLeave clears the drop target highlight
func (h *ViewerHandler) DragLeave(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.viewer(w, r)
	if !ok {
		return
	}
	viewer.Input.DragLeave()
	h.respond(w, r, viewer, nil)
}

// Control activates a toolbar button
func (h *ViewerHandler) Control(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.viewer(w, r)
	if !ok {
		return
	}
	if err := viewer.Input.Control(mux.Vars(r)["control"]); err != nil {
		writeAppError(w, err)
		return
	}
	h.respond(w, r, viewer, nil)
}

// Key delivers a keyboard shortcut. The response says whether the key was
// consumed so the shell knows whether to let the browser handle it.
func (h *ViewerHandler) Key(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.viewer(w, r)
	if !ok {
		return
	}
	var req keyRequest
	if !h.decode(w, r, &req) {
		return
	}
	result := viewer.Input.Key(req.Key)
	h.respond(w, r, viewer, &result)
}

// FullscreenChange is reported by the shell whenever the browser's
// fullscreen element changes.
func (h *ViewerHandler) FullscreenChange(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.viewer(w, r)
	if !ok {
		return
	}
	var req fullscreenChangeRequest
	if !h.decode(w, r, &req) {
		return
	}
	viewer.Fullscreen.Notify(domain.FullscreenChange{
		Element:        domain.FullscreenTarget(req.Element),
		ViewportWidth:  req.ViewportWidth,
		ViewportHeight: req.ViewportHeight,
	})
	h.respond(w, r, viewer, nil)
}

// CloseDocument unloads the document and returns to the upload prompt
func (h *ViewerHandler) CloseDocument(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.viewer(w, r)
	if !ok {
		return
	}
	viewer.Controller.Close()
	h.respond(w, r, viewer, nil)
}

// Surface serves the last committed frame as PNG
func (h *ViewerHandler) Surface(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.viewer(w, r)
	if !ok {
		return
	}
	if wantsWait(r) {
		h.settle(r, viewer)
	}

	generation := viewer.Canvas.Generation()
	if generation == 0 {
		writeError(w, http.StatusNotFound, "Nothing has been rendered")
		return
	}

	var buf bytes.Buffer
	if err := viewer.Canvas.EncodePNG(&buf); err != nil {
		h.logger.Error("Failed to encode surface", err, "viewer_id", viewer.ID)
		writeError(w, http.StatusInternalServerError, "Failed to encode surface")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Render-Generation", strconv.FormatUint(generation, 10))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *ViewerHandler) viewer(w http.ResponseWriter, r *http.Request) (*domain.Viewer, bool) {
	viewer, err := h.registry.Get(mux.Vars(r)["id"])
	if err != nil {
		writeAppError(w, err)
		return nil, false
	}
	return viewer, true
}

// respond writes the viewer snapshot. With ?wait=1 it first waits for the
// latest render; if that takes too long the reply is 202.
func (h *ViewerHandler) respond(w http.ResponseWriter, r *http.Request, viewer *domain.Viewer, key *domain.KeyResult) {
	status := http.StatusOK
	if wantsWait(r) && !h.settle(r, viewer) {
		status = http.StatusAccepted
	}
	writeJSON(w, status, h.snapshot(viewer, key))
}

func (h *ViewerHandler) settle(r *http.Request, viewer *domain.Viewer) bool {
	ctx, cancel := context.WithTimeout(r.Context(), h.settleTimeout)
	defer cancel()
	if err := viewer.Controller.Settle(ctx); err != nil {
		h.logger.Debug("Render still running", "viewer_id", viewer.ID, "error", err)
		return false
	}
	return true
}

func (h *ViewerHandler) snapshot(viewer *domain.Viewer, key *domain.KeyResult) viewerResponse {
	directives := viewer.Fullscreen.Directives()
	if directives == nil {
		directives = make([]domain.FullscreenDirective, 0)
	}
	return viewerResponse{
		ID:         viewer.ID,
		State:      viewer.Controller.State(),
		Display:    viewer.Display.Snapshot(),
		Directives: directives,
		Key:        key,
	}
}

func (h *ViewerHandler) parseForm(w http.ResponseWriter, r *http.Request) (*multipart.Form, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("File too large. Maximum size is %dMB.", h.maxFileSize>>20))
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "Expected a multipart form")
		return nil, false
	}
	return r.MultipartForm, true
}

func (h *ViewerHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeAppError(w, validationError(err))
		return false
	}
	return true
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &domain.ValidationError{
			Field:   strings.ToLower(fe.Field()),
			Message: fmt.Sprintf("failed %s validation", fe.Tag()),
		}
	}
	return &domain.ValidationError{Message: err.Error()}
}

func readPart(header *multipart.FileHeader) (domain.FileInput, error) {
	file, err := header.Open()
	if err != nil {
		return domain.FileInput{}, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return domain.FileInput{}, err
	}

	// Strip any path components the client sent
	name := strings.TrimSpace(filepath.Base(header.Filename))
	if name == "." || name == string(filepath.Separator) {
		name = ""
	}
	return domain.FileInput{
		Name:     name,
		MimeType: header.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}

func wantsWait(r *http.Request) bool {
	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	return wait
}
