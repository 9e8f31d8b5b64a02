// api/schemas/manifest.go
package schemas

// Run consistency statuses. A run is CONSISTENT only when every person that
// was saved was also verified and no unknown outcomes were produced.
const (
	RunConsistent   = "CONSISTENT"
	RunInconsistent = "INCONSISTENT"
)

// RunContext identifies a single execution of the workflow.
type RunContext struct {
	ExecutionID     string `json:"execution_id"`
	StartedAt       string `json:"started_at"`
	FinishedAt      string `json:"finished_at,omitempty"`
	Hostname        string `json:"hostname,omitempty"`
	DryRun          bool   `json:"dry_run"`
	EmailEnabled    bool   `json:"email_enabled"`
	Headless        bool   `json:"headless"`
	InputFile       string `json:"input_file,omitempty"`
	RetroactiveDays int    `json:"retroactive_days"`
	RunStatus       string `json:"run_status,omitempty"`
	DurationSec     int64  `json:"duration_sec"`
	ManifestPath    string `json:"manifest_path,omitempty"`
	ReportPath      string `json:"report_path,omitempty"`
	PublicWriteOK   bool   `json:"public_write_ok"`
	PublicWriteErr  string `json:"public_write_error,omitempty"`
}

// Totals aggregates per-outcome counts for one run. Detected defaults to the
// number of people when the caller has no separate detection count.
type Totals struct {
	Detected       int             `json:"detected"`
	PeopleTotal    int             `json:"people_total"`
	ByOutcome      map[Outcome]int `json:"by_outcome"`
	NoPhoto        int             `json:"no_photo"`
	UnknownOutcome int             `json:"unknown_outcome"`
}

// RunManifest is the canonical JSON artifact of a run. It is written even on
// partial or aborted executions so progress is never lost.
type RunManifest struct {
	RunContext RunContext      `json:"run_context"`
	Totals     Totals          `json:"totals"`
	People     []OutcomeRecord `json:"people"`
}
