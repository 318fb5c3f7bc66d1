// Package screens holds the collaborators shared by the interactive screens.
package screens

import (
	"github.com/abhisek/campus/internal/enrollment"
	"github.com/abhisek/campus/internal/logger"
	"github.com/abhisek/campus/internal/relay"
	"github.com/abhisek/campus/internal/store"
)

// Repository is the persistence the screens read directly.
type Repository interface {
	store.ContentRepo
	store.ProgressRepo
	store.EnrollmentRepo
}

// Deps is passed down from the app model to every screen. Relay and Events
// may be nil; the screens that need them then explain what is missing.
type Deps struct {
	UserID string
	Repo   Repository
	Events store.EventRepo
	Writer *enrollment.Writer
	Reader *enrollment.Reader
	Relay  *relay.Relay
	Log    *logger.Logger
}

// Logger never returns nil.
func (d Deps) Logger() *logger.Logger {
	if d.Log == nil {
		return logger.Nop()
	}
	return d.Log
}
