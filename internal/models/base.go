// Package models defines the GORM models for users, their profile content and
// the analytics event log.
package models

import "github.com/google/uuid"

// newID assigns a UUID primary key when the caller has not set one.
// Generated in Go so the same models work on postgres and sqlite.
func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// AllModels lists every model in migration order (parents before children)
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Preferences{},
		&Link{},
		&Icon{},
		&PageView{},
		&LinkClick{},
		&IconClick{},
		&Comment{},
	}
}
