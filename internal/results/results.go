// internal/results/results.go

// Package results classifies per-person processing results into the closed
// outcome set and aggregates run totals. Everything here is pure; the
// orchestrator feeds it state, it never touches the browser.
package results

import (
	"time"

	"github.com/xkilldash9x/metaxg-cli/api/schemas"
)

// Classify derives the final outcome for a person after all phases ran.
// verifierErr distinguishes "the verifier broke" (FAILED_VERIFICATION) from
// "the verifier worked but did not find the draft" (SAVED_NOT_VERIFIED).
func Classify(rec *schemas.OutcomeRecord, verifierErr bool) {
	switch {
	case !rec.Attempted:
		rec.Outcome = schemas.OutcomeSkippedAlreadyExists
		rec.StatusFinal = schemas.StatusSkipped
	case !rec.ActionSaved:
		rec.Outcome = schemas.OutcomeFailedAction
		rec.StatusFinal = schemas.StatusFailed
	case rec.Verified:
		rec.Outcome = schemas.OutcomeVerifiedSuccess
		rec.StatusFinal = schemas.StatusSuccess
	case verifierErr:
		rec.Outcome = schemas.OutcomeFailedVerification
		rec.StatusFinal = schemas.StatusFailed
	default:
		rec.Outcome = schemas.OutcomeSavedNotVerified
		rec.StatusFinal = schemas.StatusFailed
	}
}

// NewRecord starts the outcome record for one person. Attempted is true by
// default; the scanner flips it off for people already in the drafts list.
func NewRecord(name, cpf string, now time.Time) *schemas.OutcomeRecord {
	return &schemas.OutcomeRecord{
		Name:      name,
		CPF:       cpf,
		Attempted: true,
		Timestamps: schemas.OutcomeTimestamps{
			StartedAt: &now,
		},
	}
}

// ComputeTotals aggregates outcome counts. detected < 0 means no separate
// detection count is available and the people count is used instead.
func ComputeTotals(people []schemas.OutcomeRecord, detected int) schemas.Totals {
	byOutcome := make(map[schemas.Outcome]int, len(schemas.OutcomeOrder))
	for _, o := range schemas.OutcomeOrder {
		byOutcome[o] = 0
	}

	unknown := 0
	noPhoto := 0
	for _, p := range people {
		if _, ok := byOutcome[p.Outcome]; ok {
			byOutcome[p.Outcome]++
		} else {
			unknown++
		}
		if p.NoPhoto {
			noPhoto++
		}
	}

	if detected < 0 {
		detected = len(people)
	}

	return schemas.Totals{
		Detected:       detected,
		PeopleTotal:    len(people),
		ByOutcome:      byOutcome,
		NoPhoto:        noPhoto,
		UnknownOutcome: unknown,
	}
}

// RunStatus reduces a finished run to CONSISTENT or INCONSISTENT. Any failed
// registration, any saved record that was not verified, and any unknown
// outcome taints the run.
func RunStatus(people []schemas.OutcomeRecord, totals schemas.Totals) string {
	if totals.UnknownOutcome > 0 {
		return schemas.RunInconsistent
	}
	for _, p := range people {
		if p.Attempted && !p.ActionSaved {
			return schemas.RunInconsistent
		}
		if p.ActionSaved && !p.Verified {
			return schemas.RunInconsistent
		}
	}
	return schemas.RunConsistent
}
