// internal/orchestrator/orchestrator.go

// Package orchestrator runs the whole registration workflow: fetch the new
// hires, resolve photos, log into the portal, scan existing drafts, fill and
// verify each person, then aggregate outcomes into the manifest, the reports
// and the summary email. The browser phases are interfaces so the loop is
// testable without Chrome.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/metaxg-cli/api/schemas"
	"github.com/xkilldash9x/metaxg-cli/internal/config"
	"github.com/xkilldash9x/metaxg-cli/internal/format"
	"github.com/xkilldash9x/metaxg-cli/internal/inputqueue"
	"github.com/xkilldash9x/metaxg-cli/internal/notification"
	"github.com/xkilldash9x/metaxg-cli/internal/output"
	"github.com/xkilldash9x/metaxg-cli/internal/photos"
	"github.com/xkilldash9x/metaxg-cli/internal/portal"
	"github.com/xkilldash9x/metaxg-cli/internal/reporting"
	"github.com/xkilldash9x/metaxg-cli/internal/results"
)

// Browser-facing phases, satisfied by *portal.Client.
type (
	Bootstrapper interface {
		Bootstrap(ctx context.Context) error
	}
	Scanner interface {
		ScanDrafts(ctx context.Context) (*portal.DraftSet, error)
	}
	Filler interface {
		Register(ctx context.Context, person schemas.PersonRecord, photoPath string) (portal.FillResult, error)
	}
	Verifier interface {
		Verify(ctx context.Context, person schemas.PersonRecord) (bool, string, error)
	}
	// Navigator brings the session back to a known screen after a
	// per-person failure.
	Navigator interface {
		Navigate(ctx context.Context, url string) error
	}
)

// Phases groups the browser-facing collaborators.
type Phases struct {
	Bootstrapper Bootstrapper
	Scanner      Scanner
	Filler       Filler
	Verifier     Verifier
	Navigator    Navigator
}

// EmployeeSource reads the people to process, satisfied by *store.Store.
type EmployeeSource interface {
	FetchNewHires(ctx context.Context, from, to time.Time) ([]schemas.PersonRecord, error)
	FetchByNames(ctx context.Context, names []string) ([]schemas.PersonRecord, error)
}

// PhotoFetcher resolves photos for a batch, satisfied by *sharepoint.Fetcher.
type PhotoFetcher interface {
	FetchBatch(ctx context.Context, people []schemas.PersonRecord, destDir string) map[string]string
}

// ArtifactSink persists run artifacts, satisfied by *output.Manager.
type ArtifactSink interface {
	WriteJSON(filename string, v interface{}) (string, error)
	LocalPath(kind output.Kind, filename string) string
	PublicStatus() (bool, string)
}

// EmailSender delivers the summary, satisfied by *notification.Sender.
type EmailSender interface {
	Send(payload notification.Payload) error
}

// Deps wires the orchestrator's collaborators.
type Deps struct {
	Config   *config.Config
	Phases   Phases
	Source   EmployeeSource
	Photos   PhotoFetcher
	Sink     ArtifactSink
	Reporter *reporting.Reporter
	Email    EmailSender
	Logger   *zap.Logger
}

// Orchestrator owns one execution of the workflow.
type Orchestrator struct {
	deps        Deps
	log         *zap.Logger
	executionID string
	startedAt   time.Time

	// shrinkPhoto is swapped in tests.
	shrinkPhoto func(srcPath string, maxSizeKB int, logger *zap.Logger) (string, error)
}

// New builds an orchestrator for one run identified by executionID.
func New(deps Deps, executionID string, startedAt time.Time) *Orchestrator {
	return &Orchestrator{
		deps:        deps,
		log:         deps.Logger.Named("orchestrator"),
		executionID: executionID,
		startedAt:   startedAt,
		shrinkPhoto: photos.Shrink,
	}
}

// Run executes the workflow end to end. The manifest, reports and email are
// produced in a deferred finalizer, so partial progress survives aborts.
func (o *Orchestrator) Run(ctx context.Context) (err error) {
	cfg := o.deps.Config
	rc := o.initialRunContext()

	var records []schemas.OutcomeRecord
	detected := 0

	defer func() {
		o.finalize(&rc, records, detected)
	}()

	people, err := o.fetchPeople(ctx)
	if err != nil {
		return err
	}
	detected = len(people)
	if len(people) == 0 {
		o.log.Info("No one to register today")
		return nil
	}
	o.log.Info("People to process", zap.Int("total", len(people)))

	photoMap := map[string]string{}
	if o.deps.Photos != nil {
		photoMap = o.deps.Photos.FetchBatch(ctx, people, cfg.Photos.Dir)
	}

	if err := o.deps.Phases.Bootstrapper.Bootstrap(ctx); err != nil {
		return fmt.Errorf("portal login failed: %w", err)
	}

	drafts, err := o.deps.Phases.Scanner.ScanDrafts(ctx)
	if err != nil {
		return fmt.Errorf("draft scan failed: %w", err)
	}

	for _, person := range people {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rec := o.processPerson(ctx, person, drafts, photoMap)
		records = append(records, *rec)
		o.writePartialManifest(rc, records, detected)
	}
	return nil
}

func (o *Orchestrator) processPerson(ctx context.Context, person schemas.PersonRecord, drafts *portal.DraftSet, photoMap map[string]string) *schemas.OutcomeRecord {
	cpf := format.DigitsOnly(person.CPF)
	rec := results.NewRecord(person.Name, cpf, time.Now())

	switch {
	case drafts.Has(cpf):
		o.log.Info("Already registered as draft, skipping",
			zap.String("name", person.Name), zap.String("cpf", cpf))
		rec.Attempted = false
		results.Classify(rec, false)

	case o.deps.Config.Run.DryRun:
		o.log.Info("Dry run, not registering",
			zap.String("name", person.Name), zap.String("cpf", cpf))
		rec.Attempted = false
		rec.Outcome = schemas.OutcomeSkippedDryRun
		rec.StatusFinal = schemas.StatusSkipped

	default:
		o.registerAndVerify(ctx, person, rec, drafts, photoMap[cpf])
	}
	return rec
}

func (o *Orchestrator) registerAndVerify(ctx context.Context, person schemas.PersonRecord, rec *schemas.OutcomeRecord, drafts *portal.DraftSet, photoPath string) {
	if err := person.Validate(); err != nil {
		o.log.Error("Record fails validation, not registering",
			zap.String("name", person.Name), zap.Error(err))
		rec.Errors.ActionError = fmt.Sprintf("invalid record: %v", err)
		results.Classify(rec, false)
		return
	}

	photoPath = o.preparePhoto(person, photoPath)
	rec.NoPhoto = photoPath == ""

	res, err := o.deps.Phases.Filler.Register(ctx, person, photoPath)
	if res.NoPhoto {
		rec.NoPhoto = true
	}
	if err != nil {
		o.log.Error("Registration aborted",
			zap.String("name", person.Name), zap.Error(err))
		rec.Errors.ActionError = err.Error()
		results.Classify(rec, false)
		o.recoverNavigation(ctx)
		return
	}

	rec.ActionSaved = res.Saved
	if res.Err != "" {
		rec.Errors.ActionError = res.Err
	}
	if !res.Saved {
		results.Classify(rec, false)
		o.recoverNavigation(ctx)
		return
	}

	savedAt := time.Now()
	rec.Timestamps.SavedAt = &savedAt

	verified, detail, verr := o.deps.Phases.Verifier.Verify(ctx, person)
	if verr != nil {
		o.log.Error("Verification failed to run",
			zap.String("name", person.Name), zap.Error(verr))
		rec.Errors.VerificationError = verr.Error()
		results.Classify(rec, true)
		o.recoverNavigation(ctx)
		return
	}

	rec.Verified = verified
	if verified {
		verifiedAt := time.Now()
		rec.Timestamps.VerifiedAt = &verifiedAt
		drafts.Add(rec.CPF)
	} else {
		rec.Errors.VerificationError = detail
	}
	results.Classify(rec, false)
}

// preparePhoto shrinks the resolved photo to the portal's limits. Any
// failure downgrades the person to a no-photo registration.
func (o *Orchestrator) preparePhoto(person schemas.PersonRecord, photoPath string) string {
	if photoPath == "" {
		o.log.Warn("No photo found", zap.String("name", person.Name))
		return ""
	}
	shrunk, err := o.shrinkPhoto(photoPath, o.deps.Config.Photos.MaxSizeKB, o.log)
	if err != nil {
		o.log.Warn("Photo preparation failed, registering without photo",
			zap.String("name", person.Name), zap.Error(err))
		return ""
	}
	return shrunk
}

// recoverNavigation steers the session back to the drafts list so the next
// person starts from a known screen.
func (o *Orchestrator) recoverNavigation(ctx context.Context) {
	if o.deps.Phases.Navigator == nil {
		return
	}
	if err := o.deps.Phases.Navigator.Navigate(ctx, o.deps.Config.Portal.ListURL); err != nil {
		o.log.Warn("Recovery navigation failed", zap.Error(err))
	}
}

func (o *Orchestrator) fetchPeople(ctx context.Context) ([]schemas.PersonRecord, error) {
	cfg := o.deps.Config

	if cfg.Run.InputFile != "" {
		release, err := inputqueue.AcquireLock(cfg.Run.InputFile+".lock", cfg.Input.LockStaleAge, o.log)
		if err != nil {
			return nil, err
		}
		defer release()

		names, err := inputqueue.ReadNames(cfg.Run.InputFile)
		if err != nil {
			return nil, err
		}
		o.log.Info("Using manual input queue",
			zap.String("file", cfg.Run.InputFile), zap.Int("names", len(names)))
		return o.deps.Source.FetchByNames(ctx, names)
	}

	to := time.Now()
	from := to.AddDate(0, 0, -cfg.Run.RetroactiveDays)
	return o.deps.Source.FetchNewHires(ctx, from, to)
}

func (o *Orchestrator) initialRunContext() schemas.RunContext {
	cfg := o.deps.Config
	hostname, _ := os.Hostname()
	return schemas.RunContext{
		ExecutionID:     o.executionID,
		StartedAt:       o.startedAt.Format(time.RFC3339),
		Hostname:        hostname,
		DryRun:          cfg.Run.DryRun,
		EmailEnabled:    !cfg.Run.NoEmail,
		Headless:        cfg.Browser.Headless,
		InputFile:       cfg.Run.InputFile,
		RetroactiveDays: cfg.Run.RetroactiveDays,
		PublicWriteOK:   true,
	}
}

// finalize aggregates the records and emits every end-of-run artifact. It
// runs even when the workflow aborted mid-way.
func (o *Orchestrator) finalize(rc *schemas.RunContext, records []schemas.OutcomeRecord, detected int) {
	finished := time.Now()
	rc.FinishedAt = finished.Format(time.RFC3339)
	rc.DurationSec = int64(finished.Sub(o.startedAt).Seconds())

	totals := results.ComputeTotals(records, detected)
	rc.RunStatus = results.RunStatus(records, totals)
	rc.PublicWriteOK, rc.PublicWriteErr = o.deps.Sink.PublicStatus()

	manifestName := o.artifactName("manifest", "json")
	rc.ManifestPath = o.deps.Sink.LocalPath(output.KindJSON, manifestName)

	manifest := &schemas.RunManifest{RunContext: *rc, Totals: totals, People: records}

	var reportPath string
	if o.deps.Reporter != nil {
		reportPath = o.deps.Reporter.WriteAll(manifest)
		rc.ReportPath = reportPath
		manifest.RunContext.ReportPath = reportPath
	}

	if path, err := o.deps.Sink.WriteJSON(manifestName, manifest); err != nil {
		o.log.Error("Could not write manifest", zap.Error(err))
	} else {
		o.log.Info("Manifest written", zap.String("path", path))
	}

	totalsName := o.artifactName("totais", "json")
	if _, err := o.deps.Sink.WriteJSON(totalsName, totals); err != nil {
		o.log.Warn("Could not write totals", zap.Error(err))
	}

	fmt.Fprintln(os.Stdout, reporting.RenderTotals(totals))

	emailStatus := o.sendSummary(manifest, reportPath)
	o.log.Info("Run finished",
		zap.String("run_status", rc.RunStatus),
		zap.String("email_status", emailStatus),
		zap.Int("people", totals.PeopleTotal))
}

// sendSummary delivers the email unless a flag or missing recipient turns it
// off. The returned status mirrors the outcome vocabulary.
func (o *Orchestrator) sendSummary(manifest *schemas.RunManifest, reportPath string) string {
	cfg := o.deps.Config
	switch {
	case cfg.Run.NoEmail:
		o.log.Info("Email disabled by flag")
		return string(schemas.OutcomeSkippedEmailDisabled)
	case cfg.Run.DryRun:
		o.log.Info("Dry run, not sending email")
		return string(schemas.OutcomeSkippedDryRun)
	case o.deps.Email == nil:
		return string(schemas.OutcomeSkippedNoRecipient)
	}

	partialName := o.artifactName("manifest_parcial", "json")
	payload := notification.BuildPayload(manifest, reportPath,
		manifest.RunContext.ManifestPath,
		o.deps.Sink.LocalPath(output.KindJSON, partialName), nil)

	if err := o.deps.Email.Send(payload); err != nil {
		if errors.Is(err, notification.ErrNoRecipient) {
			o.log.Warn("No notification recipient configured")
			return string(schemas.OutcomeSkippedNoRecipient)
		}
		o.log.Error("Could not send summary email", zap.Error(err))
		return "FAILED"
	}
	return "SENT"
}

// writePartialManifest snapshots progress after each person, so an abort in
// the middle of the run still leaves a usable record.
func (o *Orchestrator) writePartialManifest(rc schemas.RunContext, records []schemas.OutcomeRecord, detected int) {
	totals := results.ComputeTotals(records, detected)
	manifest := &schemas.RunManifest{RunContext: rc, Totals: totals, People: records}
	name := o.artifactName("manifest_parcial", "json")
	if _, err := o.deps.Sink.WriteJSON(name, manifest); err != nil {
		o.log.Warn("Could not write partial manifest", zap.Error(err))
	}
}

func (o *Orchestrator) artifactName(prefix, ext string) string {
	return fmt.Sprintf("%s_%s__%s.%s",
		prefix, o.startedAt.Format("2006-01-02_15-04-05"), o.executionID, ext)
}
