package client

import (
	"time"

	"github.com/google/uuid"
)

// Client maps to the client table. ClientID is the human-facing laboratory
// code (JGLSP2500, JGLSP2501, ...) and Token is the tracking token handed to
// the client for status lookups.
type Client struct {
	ID           uuid.UUID `db:"id" json:"id"`
	ClientID     string    `db:"client_id" json:"client_id"`
	Name         string    `db:"name" json:"name"`
	Organization *string   `db:"organization" json:"organization,omitempty"`
	Email        string    `db:"email" json:"email"`
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	Address      *string   `db:"address" json:"address,omitempty"`
	Token        string    `db:"token" json:"token"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
