// api/schemas/outcome.go
package schemas

import "time"

// Outcome is the closed-set classification of how a single person's
// processing ended. The set must never grow silently: anything outside it is
// counted as unknown by the aggregator instead of being folded into a bucket.
type Outcome string

const (
	OutcomeVerifiedSuccess      Outcome = "VERIFIED_SUCCESS"
	OutcomeSavedNotVerified     Outcome = "SAVED_NOT_VERIFIED"
	OutcomeFailedAction         Outcome = "FAILED_ACTION"
	OutcomeFailedVerification   Outcome = "FAILED_VERIFICATION"
	OutcomeSkippedAlreadyExists Outcome = "SKIPPED_ALREADY_EXISTS"
	OutcomeSkippedDryRun        Outcome = "SKIPPED_DRY_RUN"
	OutcomeSkippedNoRecipient   Outcome = "SKIPPED_NO_RECIPIENT"
	OutcomeSkippedEmailDisabled Outcome = "SKIPPED_EMAIL_DISABLED"
)

// OutcomeOrder fixes the display order used by reports and email summaries.
var OutcomeOrder = []Outcome{
	OutcomeFailedAction,
	OutcomeFailedVerification,
	OutcomeSavedNotVerified,
	OutcomeVerifiedSuccess,
	OutcomeSkippedAlreadyExists,
	OutcomeSkippedDryRun,
	OutcomeSkippedNoRecipient,
	OutcomeSkippedEmailDisabled,
}

// Valid reports whether o is one of the closed enum values.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeVerifiedSuccess, OutcomeSavedNotVerified, OutcomeFailedAction,
		OutcomeFailedVerification, OutcomeSkippedAlreadyExists, OutcomeSkippedDryRun,
		OutcomeSkippedNoRecipient, OutcomeSkippedEmailDisabled:
		return true
	}
	return false
}

// Final status buckets derived from the outcome.
const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
	StatusSkipped = "SKIPPED"
)

// OutcomeErrors carries the per-phase error messages for a person.
type OutcomeErrors struct {
	ActionError       string `json:"action_error,omitempty"`
	VerificationError string `json:"verification_error,omitempty"`
}

// OutcomeTimestamps records when each phase completed for a person.
type OutcomeTimestamps struct {
	StartedAt  *time.Time `json:"started_at,omitempty"`
	SavedAt    *time.Time `json:"saved_at,omitempty"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
}

// OutcomeRecord is the per-person result of one run. It is created when
// processing starts and mutated in place as each phase completes.
type OutcomeRecord struct {
	Name        string            `json:"nome"`
	CPF         string            `json:"cpf"`
	Attempted   bool              `json:"attempted"`
	ActionSaved bool              `json:"action_saved"`
	Verified    bool              `json:"verified"`
	StatusFinal string            `json:"status_final"`
	Outcome     Outcome           `json:"outcome"`
	Errors      OutcomeErrors     `json:"errors"`
	Timestamps  OutcomeTimestamps `json:"timestamps"`
	NoPhoto     bool              `json:"no_photo"`
}
