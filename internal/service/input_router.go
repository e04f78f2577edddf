package service

import (
	"context"
	"fmt"

	"pdf-canvas-viewer/internal/domain"

	"github.com/gabriel-vasile/mimetype"
)

// genericMimeType is what hosts report when they do not know a file's type.
const genericMimeType = "application/octet-stream"

// InputRouter maps the four input sources onto controller operations. It keeps
// no view state of its own.
type InputRouter struct {
	controller domain.ViewerController
	display    domain.Display
	zoomStep   float64
	logger     domain.Logger
}

// NewInputRouter creates a router for one viewer
func NewInputRouter(controller domain.ViewerController, display domain.Display, zoomStep float64, logger domain.Logger) *InputRouter {
	return &InputRouter{
		controller: controller,
		display:    display,
		zoomStep:   zoomStep,
		logger:     logger,
	}
}

// FilePicked handles the file picker's change event
func (r *InputRouter) FilePicked(ctx context.Context, file *domain.FileInput) error {
	if file == nil || len(file.Data) == 0 {
		return domain.ErrNoFileSupplied
	}
	return r.load(ctx, file)
}

// Dropped handles a drop on the upload area. Only the first file is used.
func (r *InputRouter) Dropped(ctx context.Context, files []domain.FileInput) error {
	r.display.SetDropHighlight(false)
	if len(files) == 0 || len(files[0].Data) == 0 {
		return domain.ErrNoFileSupplied
	}
	return r.load(ctx, &files[0])
}

func (r *InputRouter) load(ctx context.Context, file *domain.FileInput) error {
	mimeType := resolveMimeType(file)
	r.logger.Debug("Loading file", "name", file.Name, "declared_type", file.MimeType, "type", mimeType, "bytes", len(file.Data))
	return r.controller.Load(ctx, file.Name, file.Data, mimeType)
}

// Control handles a toolbar button activation
func (r *InputRouter) Control(name string) error {
	switch name {
	case domain.ControlPrevPage:
		r.controller.GoToPage(-1)
	case domain.ControlNextPage:
		r.controller.GoToPage(1)
	case domain.ControlZoomIn:
		r.controller.SetScale(r.zoomStep)
	case domain.ControlZoomOut:
		r.controller.SetScale(-r.zoomStep)
	case domain.ControlRotate:
		r.controller.Rotate()
	case domain.ControlFullscreen:
		return r.controller.ToggleFullscreen()
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownControl, name)
	}
	return nil
}

// Key handles a keyboard shortcut. Escape is only consumed when it actually
// leaves fullscreen; unknown keys are never consumed.
func (r *InputRouter) Key(key string) domain.KeyResult {
	var control string
	switch key {
	case domain.KeyArrowLeft:
		control = domain.ControlPrevPage
	case domain.KeyArrowRight:
		control = domain.ControlNextPage
	case domain.KeyPlus:
		control = domain.ControlZoomIn
	case domain.KeyMinus:
		control = domain.ControlZoomOut
	case "r", "R":
		control = domain.ControlRotate
	case "f", "F":
		control = domain.ControlFullscreen
	case domain.KeyEscape:
		if r.controller.ExitFullscreen() {
			return domain.KeyResult{Handled: true, Action: "exit-fullscreen"}
		}
		return domain.KeyResult{}
	default:
		return domain.KeyResult{}
	}

	if err := r.Control(control); err != nil {
		r.logger.Warn("Keyboard shortcut failed", "key", key, "control", control, "error", err)
	}
	return domain.KeyResult{Handled: true, Action: control}
}

// DragOver highlights the drop target
func (r *InputRouter) DragOver() {
	r.display.SetDropHighlight(true)
}

// DragLeave removes the drop target highlight
func (r *InputRouter) DragLeave() {
	r.display.SetDropHighlight(false)
}

// resolveMimeType returns the declared type, sniffing the content only when
// the host declared nothing useful.
func resolveMimeType(file *domain.FileInput) string {
	if file.MimeType != "" && file.MimeType != genericMimeType {
		return file.MimeType
	}
	return mimetype.Detect(file.Data).String()
}
