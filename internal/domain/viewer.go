package domain

import (
	"math"
	"time"
)

// DocumentState is the viewer's macro state.
type DocumentState string

const (
	StateNoDocument     DocumentState = "no_document"
	StateDocumentLoaded DocumentState = "document_loaded"
)

// ViewState is a point-in-time snapshot of one viewer.
type ViewState struct {
	State               DocumentState `json:"state"`
	Document            string        `json:"document,omitempty"`
	Title               string        `json:"title,omitempty"`
	PageIndex           int           `json:"page_index"`
	PageCount           int           `json:"page_count"`
	Scale               float64       `json:"scale"`
	Rotation            int           `json:"rotation"`
	Fullscreen          bool          `json:"fullscreen"`
	Generation          uint64        `json:"generation"`
	CommittedGeneration uint64        `json:"committed_generation"`
}

// Loaded reports whether a document is live.
func (s ViewState) Loaded() bool {
	return s.State == StateDocumentLoaded
}

const (
	DefaultScale    = 1.5
	DefaultZoomStep = 0.2
	DefaultMinScale = 0.1
	DefaultMaxScale = 10.0
)

// ViewerSettings are the zoom parameters shared by every viewer.
type ViewerSettings struct {
	DefaultScale float64
	ZoomStep     float64
	MinScale     float64
	MaxScale     float64
	// RestoreScaleOnExit brings back the pre-fullscreen scale instead of
	// resetting to DefaultScale when fullscreen ends.
	RestoreScaleOnExit bool
}

// DefaultViewerSettings returns the stock zoom parameters.
func DefaultViewerSettings() ViewerSettings {
	return ViewerSettings{
		DefaultScale: DefaultScale,
		ZoomStep:     DefaultZoomStep,
		MinScale:     DefaultMinScale,
		MaxScale:     DefaultMaxScale,
	}
}

// ClampScale bounds a scale to [MinScale, MaxScale].
func (s ViewerSettings) ClampScale(scale float64) float64 {
	if math.IsNaN(scale) {
		return s.DefaultScale
	}
	return math.Min(math.Max(scale, s.MinScale), s.MaxScale)
}

// StepScale applies a zoom delta, rounding away float drift from repeated steps.
func (s ViewerSettings) StepScale(scale, delta float64) float64 {
	return s.ClampScale(math.Round((scale+delta)*1e4) / 1e4)
}

// Toolbar controls.
const (
	ControlPrevPage   = "prev-page"
	ControlNextPage   = "next-page"
	ControlZoomIn     = "zoom-in"
	ControlZoomOut    = "zoom-out"
	ControlRotate     = "rotate-pdf"
	ControlFullscreen = "fullscreen"
)

// Keyboard keys, named as the host reports them.
const (
	KeyArrowLeft  = "ArrowLeft"
	KeyArrowRight = "ArrowRight"
	KeyPlus       = "+"
	KeyMinus      = "-"
	KeyEscape     = "Escape"
)

// KeyResult tells the host whether a key press was consumed. When Handled is
// false the host keeps its default behaviour for the key.
type KeyResult struct {
	Handled bool   `json:"handled"`
	Action  string `json:"action,omitempty"`
}

// FileInput is a user-supplied file read into memory.
type FileInput struct {
	Name     string
	MimeType string
	Data     []byte
}

// FullscreenTarget names the element that is fullscreen. The zero value means
// nothing is.
type FullscreenTarget string

const (
	FullscreenNone    FullscreenTarget = ""
	FullscreenSurface FullscreenTarget = "surface"
)

// FullscreenChange is the platform's fullscreen-change notification.
type FullscreenChange struct {
	Element        FullscreenTarget `json:"element"`
	ViewportWidth  int              `json:"viewport_width"`
	ViewportHeight int              `json:"viewport_height"`
}

// FullscreenDirective is a fullscreen request the shell must carry out.
type FullscreenDirective struct {
	Action string           `json:"action"`
	Target FullscreenTarget `json:"target,omitempty"`
}

const (
	DirectiveRequest = "request_fullscreen"
	DirectiveExit    = "exit_fullscreen"
)

// ContainerState selects between the upload prompt and the viewer.
type ContainerState string

const (
	ContainerUpload ContainerState = "upload"
	ContainerViewer ContainerState = "viewer"
)

// NotificationKind classifies user-visible errors.
type NotificationKind string

const (
	NotificationInvalidInput  NotificationKind = "invalid_input"
	NotificationDecodeFailure NotificationKind = "decode_failure"
	NotificationRenderFailure NotificationKind = "render_failure"
)

// Notification is a user-visible error message.
type Notification struct {
	Kind    NotificationKind `json:"kind"`
	Message string           `json:"message"`
	At      time.Time        `json:"at"`
}

// DisplayState mirrors what the host UI shows.
type DisplayState struct {
	CurrentPage     int            `json:"current_page"`
	TotalPages      int            `json:"total_pages"`
	Container       ContainerState `json:"container"`
	ChromeVisible   bool           `json:"chrome_visible"`
	DropHighlighted bool           `json:"drop_highlighted"`
	Notification    *Notification  `json:"notification,omitempty"`
}

// Viewer bundles one viewer instance with its host surfaces.
type Viewer struct {
	ID         string
	Controller ViewerController
	Input      InputRouter
	Canvas     Canvas
	Display    Display
	Fullscreen FullscreenHost
	CreatedAt  time.Time
}
