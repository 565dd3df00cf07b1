package types

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Session is a recorded sales conversation owned by a single user
type Session struct {
	ID              uuid.UUID `json:"id"`
	OwnerID         uuid.UUID `json:"owner_id"`
	Title           string    `json:"title"`
	ClientName      string    `json:"client_name"`
	ClientCompany   string    `json:"client_company,omitempty"`
	RepName         string    `json:"rep_name"`
	Channel         string    `json:"channel,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	DurationSeconds int       `json:"duration_seconds"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// TranscriptSegment is one utterance in a session transcript
type TranscriptSegment struct {
	Seq     int           `json:"seq"`
	Offset  time.Duration `json:"offset"`
	Speaker string        `json:"speaker"`
	Text    string        `json:"text"`
}

// Insight is a prior analysis artifact attached to a session (e.g. a call summary or a
// sentiment pass) that is fed back to the generator as extra context.
type Insight struct {
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

// FormatOffset renders a transcript offset as HH:MM:SS
func FormatOffset(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}

// FormatDuration renders a session length in a human-readable form
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return ""
	}
	if seconds < 60 {
		return fmt.Sprintf("%d sec", seconds)
	}
	minutes := seconds / 60
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	return fmt.Sprintf("%d h %d min", minutes/60, minutes%60)
}

// TriggerReportRequest is the optional body of a report generation trigger
type TriggerReportRequest struct {
	Wait bool `json:"wait"`
}

// ReportStatusRequest identifies a report for status polling
type ReportStatusRequest struct {
	SessionID string `json:"session_id" validate:"required,uuid"`
}

// Validate validates the ReportStatusRequest using the validator.
func (r *ReportStatusRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
