package domain

import (
	"context"
	"image/draw"
	"io"
	"time"
)

// Decoder turns raw document bytes into a renderable document.
type Decoder interface {
	Decode(ctx context.Context, data []byte) (Document, error)
}

// Document is a decoded document whose pages are addressable by 1-based number.
type Document interface {
	PageCount() int
	Title() string
	Page(ctx context.Context, number int) (Page, error)
	Close() error
}

// Page can report its viewport and rasterize itself into a surface.
type Page interface {
	Viewport(scale float64, rotation int) Viewport
	RasterizeInto(ctx context.Context, surface Surface, viewport Viewport) error
}

// Surface is a drawing target with mutable pixel dimensions.
type Surface interface {
	Resize(width, height int)
	Size() (width, height int)
	Image() draw.Image
}

// Canvas is the visible drawing surface. Frames are drawn off-screen and
// swapped in whole by Present.
type Canvas interface {
	Acquire() Surface
	Present(frame Surface, generation uint64)
	Clear()
	Generation() uint64
	Size() (width, height int)
	EncodePNG(w io.Writer) error
}

// Display holds the non-pixel parts of the host UI.
type Display interface {
	SetPageIndicator(current, total int)
	ShowViewer(visible bool)
	SetChromeVisible(visible bool)
	SetDropHighlight(highlighted bool)
	Notify(notification Notification)
	Snapshot() DisplayState
}

// FullscreenPlatform is the host's fullscreen API.
type FullscreenPlatform interface {
	Request(target FullscreenTarget) error
	Exit() error
	Element() FullscreenTarget
	Subscribe(listener func(FullscreenChange)) (unsubscribe func())
}

// FullscreenHost is the platform side of fullscreen: it delivers change
// notifications and hands out the requests the shell has to carry out.
type FullscreenHost interface {
	FullscreenPlatform
	Notify(change FullscreenChange)
	Directives() []FullscreenDirective
}

// ViewerController is the single authority over one viewer's ViewState.
type ViewerController interface {
	Load(ctx context.Context, name string, data []byte, mimeType string) error
	GoToPage(delta int) bool
	SetScale(delta float64) float64
	Rotate() int
	ToggleFullscreen() error
	ExitFullscreen() bool
	Close() bool
	Settle(ctx context.Context) error
	State() ViewState
}

// InputRouter normalizes host input into controller operations.
type InputRouter interface {
	FilePicked(ctx context.Context, file *FileInput) error
	Dropped(ctx context.Context, files []FileInput) error
	Control(name string) error
	Key(key string) KeyResult
	DragOver()
	DragLeave()
}

// ViewerRegistry owns independent viewer instances.
type ViewerRegistry interface {
	Create() (*Viewer, error)
	Get(id string) (*Viewer, error)
	Remove(id string) error
}

// Logger defines the interface for logging operations
type Logger interface {
	Info(msg string, fields ...interface{})
	Error(msg string, err error, fields ...interface{})
	Debug(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
}

// Config defines the interface for configuration management
type Config interface {
	GetServerHost() string
	GetServerPort() string
	GetMaxFileSize() int64
	GetLogLevel() string
	GetLogFormat() string
	GetViewerSettings() ViewerSettings
	GetIdleTimeout() time.Duration
	GetMaxViewers() int
	GetRenderTimeout() time.Duration
	GetRateLimit() (rps float64, burst int)
	GetAllowedOrigins() []string
	GetFullscreenAutoGrant() (enabled bool, width, height int)
}
