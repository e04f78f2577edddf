package config

import (
	"pdf-canvas-viewer/internal/domain"
	"pdf-canvas-viewer/internal/infra/fitz"
	"pdf-canvas-viewer/internal/service"
	"pdf-canvas-viewer/pkg/logger"
)

// Container holds all application dependencies
type Container struct {
	Config   domain.Config
	Logger   domain.Logger
	Registry *service.ViewerRegistry
}

// NewContainer creates a new dependency injection container
func NewContainer(config domain.Config) *Container {
	appLogger := logger.NewLogger(config.GetLogLevel(), config.GetLogFormat())

	decoder := fitz.NewDecoder(appLogger)

	autoGrant, width, height := config.GetFullscreenAutoGrant()
	registry := service.NewViewerRegistry(decoder, service.RegistryOptions{
		Settings:            config.GetViewerSettings(),
		MaxViewers:          config.GetMaxViewers(),
		IdleTimeout:         config.GetIdleTimeout(),
		RenderTimeout:       config.GetRenderTimeout(),
		AutoGrantFullscreen: autoGrant,
		FullscreenWidth:     width,
		FullscreenHeight:    height,
	}, appLogger)

	return &Container{
		Config:   config,
		Logger:   appLogger,
		Registry: registry,
	}
}

// GetConfig returns the configuration instance
func (c *Container) GetConfig() domain.Config {
	return c.Config
}

// GetLogger returns the logger instance
func (c *Container) GetLogger() domain.Logger {
	return c.Logger
}

// GetRegistry returns the viewer registry
func (c *Container) GetRegistry() *service.ViewerRegistry {
	return c.Registry
}
