// internal/orchestrator/orchestrator_test.go
package orchestrator

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/xkilldash9x/metaxg-cli/api/schemas"
	"github.com/xkilldash9x/metaxg-cli/internal/config"
	"github.com/xkilldash9x/metaxg-cli/internal/notification"
	"github.com/xkilldash9x/metaxg-cli/internal/output"
	"github.com/xkilldash9x/metaxg-cli/internal/portal"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// -- fakes --

type fakeSource struct {
	people []schemas.PersonRecord
	names  []string
}

func (f *fakeSource) FetchNewHires(_ context.Context, _, _ time.Time) ([]schemas.PersonRecord, error) {
	return f.people, nil
}

func (f *fakeSource) FetchByNames(_ context.Context, names []string) ([]schemas.PersonRecord, error) {
	f.names = names
	return f.people, nil
}

type fakeBootstrapper struct {
	err    error
	called bool
}

func (f *fakeBootstrapper) Bootstrap(context.Context) error {
	f.called = true
	return f.err
}

type fakeScanner struct{ drafts *portal.DraftSet }

func (f *fakeScanner) ScanDrafts(context.Context) (*portal.DraftSet, error) {
	return f.drafts, nil
}

type fakeFiller struct {
	results map[string]portal.FillResult
	err     error
	calls   []string
}

func (f *fakeFiller) Register(_ context.Context, person schemas.PersonRecord, _ string) (portal.FillResult, error) {
	f.calls = append(f.calls, person.CPF)
	if f.err != nil {
		return portal.FillResult{Attempted: true}, f.err
	}
	if res, ok := f.results[person.CPF]; ok {
		return res, nil
	}
	return portal.FillResult{Attempted: true, Saved: true}, nil
}

type fakeVerifier struct {
	verified map[string]bool
	err      error
	calls    []string
}

func (f *fakeVerifier) Verify(_ context.Context, person schemas.PersonRecord) (bool, string, error) {
	f.calls = append(f.calls, person.CPF)
	if f.err != nil {
		return false, "", f.err
	}
	if v, ok := f.verified[person.CPF]; ok {
		return v, "", nil
	}
	return true, "", nil
}

type fakeNavigator struct{ urls []string }

func (f *fakeNavigator) Navigate(_ context.Context, url string) error {
	f.urls = append(f.urls, url)
	return nil
}

type fakeSink struct{ jsons map[string]interface{} }

func newFakeSink() *fakeSink { return &fakeSink{jsons: make(map[string]interface{})} }

func (f *fakeSink) WriteJSON(filename string, v interface{}) (string, error) {
	f.jsons[filename] = v
	return filepath.Join("json", filename), nil
}

func (f *fakeSink) LocalPath(kind output.Kind, filename string) string {
	return filepath.Join("local", string(kind), filename)
}

func (f *fakeSink) PublicStatus() (bool, string) { return true, "" }

func (f *fakeSink) finalManifest(t *testing.T) *schemas.RunManifest {
	t.Helper()
	for name, v := range f.jsons {
		manifest, ok := v.(*schemas.RunManifest)
		if ok && strings.HasPrefix(name, "manifest_") && !strings.HasPrefix(name, "manifest_parcial_") {
			return manifest
		}
	}
	t.Fatal("final manifest not written")
	return nil
}

type fakeEmail struct {
	payloads []notification.Payload
	err      error
}

func (f *fakeEmail) Send(payload notification.Payload) error {
	f.payloads = append(f.payloads, payload)
	return f.err
}

// -- harness --

type harness struct {
	orch    *Orchestrator
	source  *fakeSource
	boot    *fakeBootstrapper
	filler  *fakeFiller
	ver     *fakeVerifier
	nav     *fakeNavigator
	sink    *fakeSink
	email   *fakeEmail
	scanner *fakeScanner
}

func person(name, cpf string) schemas.PersonRecord {
	return schemas.PersonRecord{Name: name, CPF: cpf, JobTitle: "SOLDADOR"}
}

func newHarness(t *testing.T, people []schemas.PersonRecord, run config.RunConfig) *harness {
	t.Helper()
	cfg := &config.Config{Run: run}
	cfg.Portal.ListURL = "https://portal.example/CredenciamentoLista/Index"
	cfg.Photos.MaxSizeKB = 40

	h := &harness{
		source:  &fakeSource{people: people},
		boot:    &fakeBootstrapper{},
		filler:  &fakeFiller{results: map[string]portal.FillResult{}},
		ver:     &fakeVerifier{verified: map[string]bool{}},
		nav:     &fakeNavigator{},
		sink:    newFakeSink(),
		email:   &fakeEmail{},
		scanner: &fakeScanner{drafts: portal.NewDraftSet()},
	}
	deps := Deps{
		Config: cfg,
		Phases: Phases{
			Bootstrapper: h.boot,
			Scanner:      h.scanner,
			Filler:       h.filler,
			Verifier:     h.ver,
			Navigator:    h.nav,
		},
		Source: h.source,
		Sink:   h.sink,
		Email:  h.email,
		Logger: zap.NewNop(),
	}
	h.orch = New(deps, "exec-test", time.Now())
	return h
}

// -- tests --

func TestRunHappyPath(t *testing.T) {
	h := newHarness(t, []schemas.PersonRecord{
		person("JOAO DA SILVA", "12345678901"),
		person("MARIA DE SOUZA", "10987654321"),
	}, config.RunConfig{})

	require.NoError(t, h.orch.Run(context.Background()))

	manifest := h.sink.finalManifest(t)
	require.Len(t, manifest.People, 2)
	for _, p := range manifest.People {
		assert.Equal(t, schemas.OutcomeVerifiedSuccess, p.Outcome)
		assert.True(t, p.NoPhoto, "no photo fetcher wired means no photos")
	}
	assert.Equal(t, schemas.RunConsistent, manifest.RunContext.RunStatus)
	assert.Equal(t, 2, manifest.Totals.PeopleTotal)
	assert.Equal(t, 2, manifest.Totals.ByOutcome[schemas.OutcomeVerifiedSuccess])
	assert.Len(t, h.email.payloads, 1, "summary email sent")
}

func TestRunSkipsCachedCPFs(t *testing.T) {
	h := newHarness(t, []schemas.PersonRecord{
		person("JOAO DA SILVA", "12345678901"),
	}, config.RunConfig{})
	h.scanner.drafts.Add("12345678901")

	require.NoError(t, h.orch.Run(context.Background()))

	manifest := h.sink.finalManifest(t)
	require.Len(t, manifest.People, 1)
	assert.Equal(t, schemas.OutcomeSkippedAlreadyExists, manifest.People[0].Outcome)
	assert.Empty(t, h.filler.calls, "cached people never reach the filler")
	assert.Empty(t, h.ver.calls)
}

func TestRunDryRun(t *testing.T) {
	h := newHarness(t, []schemas.PersonRecord{
		person("JOAO DA SILVA", "12345678901"),
	}, config.RunConfig{DryRun: true})

	require.NoError(t, h.orch.Run(context.Background()))

	manifest := h.sink.finalManifest(t)
	assert.Equal(t, schemas.OutcomeSkippedDryRun, manifest.People[0].Outcome)
	assert.Empty(t, h.filler.calls)
	assert.Empty(t, h.email.payloads, "dry run sends no email")
}

func TestRunNoEmailFlag(t *testing.T) {
	h := newHarness(t, []schemas.PersonRecord{
		person("JOAO DA SILVA", "12345678901"),
	}, config.RunConfig{NoEmail: true})

	require.NoError(t, h.orch.Run(context.Background()))
	assert.Empty(t, h.email.payloads)
}

func TestRunSavedButNotVerified(t *testing.T) {
	h := newHarness(t, []schemas.PersonRecord{
		person("JOAO DA SILVA", "12345678901"),
	}, config.RunConfig{})
	h.ver.verified["12345678901"] = false

	require.NoError(t, h.orch.Run(context.Background()))

	manifest := h.sink.finalManifest(t)
	assert.Equal(t, schemas.OutcomeSavedNotVerified, manifest.People[0].Outcome)
	assert.Equal(t, schemas.RunInconsistent, manifest.RunContext.RunStatus)
}

func TestRunVerifierError(t *testing.T) {
	h := newHarness(t, []schemas.PersonRecord{
		person("JOAO DA SILVA", "12345678901"),
	}, config.RunConfig{})
	h.ver.err = errors.New("table never loaded")

	require.NoError(t, h.orch.Run(context.Background()))

	manifest := h.sink.finalManifest(t)
	assert.Equal(t, schemas.OutcomeFailedVerification, manifest.People[0].Outcome)
	assert.Contains(t, manifest.People[0].Errors.VerificationError, "table never loaded")
	assert.NotEmpty(t, h.nav.urls, "recovery navigation after verifier failure")
}

func TestRunFillerFailure(t *testing.T) {
	h := newHarness(t, []schemas.PersonRecord{
		person("JOAO DA SILVA", "12345678901"),
		person("MARIA DE SOUZA", "10987654321"),
	}, config.RunConfig{})
	h.filler.results["12345678901"] = portal.FillResult{
		Attempted: true, Saved: false, Err: "cargo SOLDADOR nao encontrado",
	}

	require.NoError(t, h.orch.Run(context.Background()))

	manifest := h.sink.finalManifest(t)
	require.Len(t, manifest.People, 2)
	assert.Equal(t, schemas.OutcomeFailedAction, manifest.People[0].Outcome)
	assert.Equal(t, "cargo SOLDADOR nao encontrado", manifest.People[0].Errors.ActionError)
	assert.Equal(t, schemas.OutcomeVerifiedSuccess, manifest.People[1].Outcome,
		"one failure does not stop the loop")
	assert.Contains(t, h.nav.urls, "https://portal.example/CredenciamentoLista/Index")
}

func TestRunBootstrapFailureStillWritesManifest(t *testing.T) {
	h := newHarness(t, []schemas.PersonRecord{
		person("JOAO DA SILVA", "12345678901"),
	}, config.RunConfig{})
	h.boot.err = errors.New("captcha never solved")

	err := h.orch.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "captcha never solved")

	manifest := h.sink.finalManifest(t)
	assert.Empty(t, manifest.People)
	assert.Equal(t, 1, manifest.Totals.Detected, "detection count survives the abort")
}

func TestRunEmptyFetch(t *testing.T) {
	h := newHarness(t, nil, config.RunConfig{})

	require.NoError(t, h.orch.Run(context.Background()))

	assert.False(t, h.boot.called, "no login when there is no one to process")
	manifest := h.sink.finalManifest(t)
	assert.Equal(t, 0, manifest.Totals.PeopleTotal)
}
