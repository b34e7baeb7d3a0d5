package coa

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusDraft    = "draft"
	StatusReleased = "released"
)

// Certificate maps to the certificate table. One row per release of a
// client's certificate of analysis.
type Certificate struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	CertificateNumber string     `db:"certificate_number" json:"certificate_number"`
	ClientID          uuid.UUID  `db:"client_id" json:"client_id"`
	InterpretationID  *uuid.UUID `db:"interpretation_id" json:"interpretation_id,omitempty"`
	Status            string     `db:"status" json:"status"`
	ReleasedAt        *time.Time `db:"released_at" json:"released_at,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
}

// COAInterpretation is the manager-written summary attached to a release.
type COAInterpretation struct {
	ID          uuid.UUID `db:"id" json:"id"`
	ClientID    uuid.UUID `db:"client_id" json:"client_id"`
	SummaryText string    `db:"summary_text" json:"summary_text"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CertificateRow is one line of the certificate data contract, assembled
// from a client's approved samples.
type CertificateRow struct {
	SampleCode string   `json:"sample_code"`
	Parameter  string   `json:"parameter"`
	Unit       string   `json:"unit"`
	Method     *string  `json:"method,omitempty"`
	RefLimit   *string  `json:"ref_limit,omitempty"`
	Value      *float64 `json:"value,omitempty"`
	Source     string   `json:"source"`
}
