// internal/portal/filler.go
package portal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/metaxg-cli/api/schemas"
	"github.com/xkilldash9x/metaxg-cli/internal/format"
	"github.com/xkilldash9x/metaxg-cli/internal/mappings"
)

// FillResult is the factual outcome of one registration attempt. Err carries
// the per-person failure reason; it never claims final success, that is the
// verifier's job.
type FillResult struct {
	Attempted bool
	Saved     bool
	Err       string
	NoPhoto   bool
}

// Register runs the full form pipeline for one person. Per-person failures
// (unmatched cargo, save timeout, validation errors) come back inside
// FillResult; only navigation-level breakage returns a non-nil error.
func (c *Client) Register(ctx context.Context, person schemas.PersonRecord, photoPath string) (FillResult, error) {
	result := FillResult{Attempted: true}

	c.logger.Info("Registering person",
		zap.String("name", person.Name),
		zap.String("cpf", person.CPF))

	if err := c.navigateToForm(ctx); err != nil {
		return result, fmt.Errorf("could not reach registration form: %w", err)
	}

	if photoPath != "" {
		c.attachPhoto(ctx, photoPath)
	} else {
		result.NoPhoto = true
		c.logger.Info("No photo available, proceeding without one", zap.String("cpf", person.CPF))
	}

	if err := c.fillPersonal(ctx, person); err != nil {
		result.Err = fmt.Sprintf("personal data: %v", err)
		return result, nil
	}
	if err := c.fillDocuments(ctx, person); err != nil {
		result.Err = fmt.Sprintf("documents: %v", err)
		return result, nil
	}
	if err := c.fillAddress(ctx, person); err != nil {
		result.Err = fmt.Sprintf("address: %v", err)
		return result, nil
	}
	if err := c.fillProfessional(ctx, person); err != nil {
		if errors.Is(err, ErrJobTitleNotFound) {
			result.Err = err.Error()
			return result, nil
		}
		result.Err = fmt.Sprintf("professional data: %v", err)
		return result, nil
	}

	saved, saveErr := c.saveDraft(ctx, person.CPF)
	result.Saved = saved
	if !saved {
		result.Err = saveErr
	}
	return result, nil
}

// navigateToForm goes from wherever the session is to a fresh registration
// form, clearing stale modals on the way.
func (c *Client) navigateToForm(ctx context.Context) error {
	if texts := c.modalTexts(ctx); len(texts) > 0 {
		c.logger.Warn("Modal present before navigation", zap.Strings("modals", texts))
	}
	c.dismissBlockingModals(ctx)

	if err := c.gotoList(ctx); err != nil {
		return err
	}

	if err := c.clickByText(ctx, "CADASTRO"); err != nil {
		c.logger.Warn("CADASTRO button by text failed, trying href", zap.Error(err))
		script := `(function() {
			const a = document.querySelector('a[href*="/Credenciamento/Index"]');
			if (a) { a.click(); return true; }
			return false;
		})()`
		var clicked bool
		if err := c.session.Evaluate(ctx, script, &clicked); err != nil || !clicked {
			return fmt.Errorf("could not open the registration form")
		}
	}

	return c.session.WaitVisible(ctx, selName, time.Minute)
}

// attachPhoto uploads the already-recompressed photo. Failures here never
// block the registration.
func (c *Client) attachPhoto(ctx context.Context, path string) {
	if err := c.session.SetFileInput(ctx, selAvatar, path); err != nil {
		c.logger.Warn("Could not attach photo", zap.String("path", path), zap.Error(err))
		return
	}
	c.logger.Info("Photo attached", zap.String("path", path))
}

// selectMapped translates an HR code through a lookup table and selects the
// resulting option. Unmapped codes leave the field blank with a warning.
func (c *Client) selectMapped(ctx context.Context, selector, field, code string, table map[string]string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		c.logger.Warn("Empty value from HR, leaving field blank", zap.String("field", field))
		return nil
	}
	value, ok := table[code]
	if !ok {
		c.logger.Warn("Unmapped HR code, leaving field blank",
			zap.String("field", field), zap.String("code", code))
		return nil
	}
	return c.session.SelectByValue(ctx, selector, value)
}

func (c *Client) fillPersonal(ctx context.Context, person schemas.PersonRecord) error {
	if err := c.session.Fill(ctx, selName, person.Name); err != nil {
		return err
	}

	// The portal requires a nickname; first name serves.
	nickname := person.Name
	if fields := strings.Fields(person.Name); len(fields) > 0 {
		nickname = fields[0]
	}
	if err := c.session.Fill(ctx, selNickname, nickname); err != nil {
		return err
	}

	if err := c.session.Fill(ctx, selFatherName, person.FatherName); err != nil {
		return err
	}
	if err := c.session.Fill(ctx, selMotherName, person.MotherName); err != nil {
		return err
	}

	cpf, err := format.CPF(person.CPF)
	if err != nil {
		return err
	}
	if err := c.session.Fill(ctx, selCPF, cpf); err != nil {
		return err
	}

	if err := c.selectMapped(ctx, selEducation, "escolaridade", person.EducationCode, mappings.Education); err != nil {
		return err
	}
	if err := c.selectMapped(ctx, selMarital, "estado civil", person.MaritalCode, mappings.MaritalStatus); err != nil {
		return err
	}
	if err := c.selectMapped(ctx, selBirthState, "estado natal", person.BirthState, mappings.BirthState); err != nil {
		return err
	}

	pis, err := format.PIS(person.PIS)
	if err != nil {
		return err
	}
	if pis != "" {
		if err := c.session.Fill(ctx, selPIS, pis); err != nil {
			return err
		}
	}

	c.selectBirthCity(ctx, person.BirthCity)

	birthDate, err := format.Date(person.BirthDate)
	if err != nil {
		return err
	}
	if birthDate != "" {
		if err := c.session.Fill(ctx, selBirthDate, birthDate); err != nil {
			return err
		}
	} else {
		c.logger.Warn("Birth date empty")
	}

	if err := c.session.SelectByValue(ctx, selNationality, nationalityBrazilian); err != nil {
		return err
	}
	if err := c.selectMapped(ctx, selSex, "sexo", person.Sex, mappings.Sex); err != nil {
		return err
	}

	if person.Email != "" {
		if err := c.session.Fill(ctx, selEmail, person.Email); err != nil {
			return err
		}
	}

	if phone := format.Phone(person.Phone); phone != "" {
		if err := c.session.TypeSlow(ctx, selPhone, phone); err != nil {
			return err
		}
	} else {
		c.logger.Warn("Emergency phone empty or too short", zap.String("raw", person.Phone))
	}

	return nil
}

// selectBirthCity matches the HR city against the portal's city combo.
// A miss only warns: city is not save-blocking.
func (c *Client) selectBirthCity(ctx context.Context, city string) {
	if city == "" {
		c.logger.Warn("Birth city empty in HR record")
		return
	}

	if err := c.waitOptionsLoaded(ctx, selBirthCity, 1, time.Minute); err != nil {
		c.logger.Warn("City combo never loaded", zap.Error(err))
		return
	}
	options, err := c.session.Options(ctx, selBirthCity)
	if err != nil {
		c.logger.Warn("Could not list city options", zap.Error(err))
		return
	}

	opt, ok := MatchCity(options, city)
	if !ok {
		c.logger.Warn("City not found in portal", zap.String("city", city))
		return
	}
	if err := c.session.SelectByValue(ctx, selBirthCity, opt.Value); err != nil {
		c.logger.Warn("Could not select city", zap.String("city", opt.Text), zap.Error(err))
		return
	}
	c.logger.Info("City selected", zap.String("city", opt.Text))
}

func (c *Client) fillDocuments(ctx context.Context, person schemas.PersonRecord) error {
	if err := c.session.Fill(ctx, selRGIssuer, person.RGIssuer); err != nil {
		return err
	}
	if err := c.selectMapped(ctx, selRGState, "uf do rg", person.RGState, mappings.BirthState); err != nil {
		return err
	}
	if err := c.session.Fill(ctx, selRGNumber, person.RGNumber); err != nil {
		return err
	}

	// HR occasionally records issue dates in the future; the portal rejects
	// them, so clamp to today.
	issue := person.RGIssueDate
	if !issue.IsZero() {
		now := time.Now()
		if issue.After(now) {
			c.logger.Warn("RG issue date in the future, clamping to today",
				zap.Time("original", issue))
		}
		issueStr, err := format.Date(format.ClampDate(issue, now))
		if err != nil {
			return err
		}
		if err := c.session.Fill(ctx, selRGIssueDate, issueStr); err != nil {
			return err
		}
	} else {
		c.logger.Warn("RG issue date empty")
	}

	if err := c.session.Check(ctx, selCTPSDigital); err != nil {
		return err
	}
	if err := c.session.Fill(ctx, selCTPSNumber, person.CTPSNumber); err != nil {
		return err
	}
	if err := c.session.Fill(ctx, selCTPSSeries, person.CTPSSeries); err != nil {
		return err
	}
	if err := c.selectMapped(ctx, selCTPSState, "uf da ctps", person.CTPSState, mappings.BirthState); err != nil {
		return err
	}

	ctpsDate, err := format.Date(person.CTPSDate)
	if err != nil {
		return err
	}
	if ctpsDate != "" {
		if err := c.session.Fill(ctx, selCTPSDate, ctpsDate); err != nil {
			return err
		}
	} else {
		c.logger.Warn("CTPS date empty")
	}
	return nil
}

func (c *Client) fillAddress(ctx context.Context, person schemas.PersonRecord) error {
	if err := c.session.Click(ctx, selAddressTab); err != nil {
		return err
	}

	if err := c.searchCEP(ctx, person.CEP); err != nil {
		return err
	}

	neighborhood, err := c.session.InputValue(ctx, selNeighborhood)
	if err != nil {
		return err
	}

	fallbackUsed := false
	if neighborhood == "" {
		state := format.NormalizeText(person.State)
		fallback, ok := mappings.FallbackCEP[state]
		if !ok {
			fallback = mappings.DefaultFallbackCEP
		}
		c.logger.Warn("CEP lookup returned no neighborhood, using fallback CEP",
			zap.String("cep", person.CEP), zap.String("fallback", fallback))
		if err := c.searchCEP(ctx, fallback); err != nil {
			return err
		}
		fallbackUsed = true
	}

	if err := c.adjustAddressState(ctx, person, fallbackUsed); err != nil {
		return err
	}
	c.forceFillIfEmpty(ctx, selNeighborhood, format.NormalizeText(person.Neighborhood), "bairro")
	c.forceFillIfEmpty(ctx, selStreet, format.NormalizeText(person.Street), "logradouro")

	c.dismissBlockingModals(ctx)
	number := format.HouseNumber(person.HouseNumber)
	if err := c.session.TypeSlow(ctx, selAddressNumber, number); err != nil {
		return err
	}
	c.logger.Info("Address number filled", zap.String("number", number))
	return nil
}

// searchCEP fills the CEP field and triggers the lookup.
func (c *Client) searchCEP(ctx context.Context, cep string) error {
	if err := c.session.Fill(ctx, selCEP, format.DigitsOnly(cep)); err != nil {
		return err
	}
	c.dismissBlockingModals(ctx)

	if err := c.session.WaitVisible(ctx, selCEPSearch, time.Minute); err != nil {
		return err
	}
	if err := c.session.Click(ctx, selCEPSearch); err != nil {
		// Overlays sometimes cover the button; a JS click still works.
		if err := c.session.ClickForce(ctx, selCEPSearch); err != nil {
			return err
		}
	}
	return c.session.Sleep(ctx, 3*time.Second)
}

// adjustAddressState reconciles the state combo with the HR record. After a
// fallback CEP the state from the lookup wins unless the combo is empty.
func (c *Client) adjustAddressState(ctx context.Context, person schemas.PersonRecord, fallbackUsed bool) error {
	c.dismissBlockingModals(ctx)

	current, err := c.session.InputValue(ctx, selAddressState)
	if err != nil {
		return err
	}

	state := format.NormalizeText(person.State)
	mapped, known := mappings.BirthState[state]

	if !fallbackUsed {
		if known && mapped != current {
			if err := c.session.SelectByValue(ctx, selAddressState, mapped); err != nil {
				return err
			}
			c.logger.Info("Address state adjusted from HR record", zap.String("state", state))
		}
		return nil
	}

	if current == "" && known {
		c.logger.Warn("Fallback CEP left state empty, forcing HR state", zap.String("state", state))
		return c.session.SelectByValue(ctx, selAddressState, mapped)
	}
	c.logger.Info("Keeping state from fallback CEP lookup", zap.String("value", current))
	return nil
}

// forceFillIfEmpty types the HR value into a lookup-managed field, but only
// when the lookup left it empty. Non-empty lookup values are never
// overwritten.
func (c *Client) forceFillIfEmpty(ctx context.Context, selector, value, field string) {
	if value == "" {
		return
	}
	c.dismissBlockingModals(ctx)

	current, err := c.session.InputValue(ctx, selector)
	if err != nil {
		c.logger.Warn("Could not inspect field before force fill",
			zap.String("field", field), zap.Error(err))
		return
	}
	if current != "" {
		return
	}
	if err := c.session.TypeSlow(ctx, selector, value); err != nil {
		c.logger.Warn("Force fill failed", zap.String("field", field), zap.Error(err))
		return
	}
	c.logger.Info("Field filled from HR record",
		zap.String("field", field), zap.String("value", value))
}

func (c *Client) fillProfessional(ctx context.Context, person schemas.PersonRecord) error {
	if err := c.session.Click(ctx, selProfessionalTab); err != nil {
		return err
	}

	admission, err := format.Date(person.AdmissionDate)
	if err != nil {
		return err
	}
	if admission != "" {
		if err := c.session.Fill(ctx, selAdmissionDate, admission); err != nil {
			return err
		}
	} else {
		c.logger.Warn("Admission date empty")
	}

	if err := c.session.TypeSlow(ctx, selSalary, person.Salary); err != nil {
		return err
	}
	if err := c.session.SelectByValue(ctx, selWorkSchedule, workScheduleMonthly); err != nil {
		return err
	}

	return c.selectJobTitle(ctx, person.JobTitle)
}

// selectJobTitle tries the raw HR description and then the static rename
// table. No match is a hard failure for the person.
func (c *Client) selectJobTitle(ctx context.Context, description string) error {
	if err := c.waitOptionsLoaded(ctx, selJobTitle, 1, 30*time.Second); err != nil {
		return fmt.Errorf("cargo combo never loaded: %w", err)
	}
	options, err := c.session.Options(ctx, selJobTitle)
	if err != nil {
		return err
	}

	raw := format.NormalizeText(description)
	c.logger.Info("Matching job title", zap.String("cargo", raw))

	opt, ok := MatchJobTitle(options, raw)
	if !ok {
		if adjusted := format.JobTitle(description); adjusted != raw {
			c.logger.Info("Retrying with adjusted job title", zap.String("cargo", adjusted))
			opt, ok = MatchJobTitle(options, adjusted)
		}
	}
	if !ok {
		c.logger.Error("Job title not found in portal",
			zap.String("cargo", raw),
			zap.Strings("available", optionTexts(options)))
		return fmt.Errorf("%w: %s", ErrJobTitleNotFound, raw)
	}

	if err := c.session.SelectByValue(ctx, selJobTitle, opt.Value); err != nil {
		return err
	}
	c.logger.Info("Job title selected", zap.String("cargo", opt.Text))
	return c.session.Sleep(ctx, 500*time.Millisecond)
}

// saveDraft clicks the save button and polls for an outcome: a redirect to
// the list, a success modal, an error modal, or on-screen validation text.
// The button is re-clicked periodically because the portal sometimes eats
// the first click.
func (c *Client) saveDraft(ctx context.Context, cpf string) (bool, string) {
	c.dismissBlockingModals(ctx)

	if err := c.session.ClickForce(ctx, selSaveDraft); err != nil {
		c.logger.Error("Could not click save button", zap.Error(err))
		c.captureFailure(ctx, "erro_excecao_salvar", cpf)
		return false, fmt.Sprintf("could not click save: %v", err)
	}

	start := time.Now()
	lastClick := start

	for time.Since(start) < c.cfg.SaveTimeout {
		if err := c.session.Sleep(ctx, time.Second); err != nil {
			return false, fmt.Sprintf("canceled while waiting for save: %v", err)
		}

		if time.Since(lastClick) > c.cfg.SaveReclick {
			if failed, msg := c.reclickOrCollectErrors(ctx); failed {
				return false, msg
			}
			lastClick = time.Now()
		}

		url, err := c.session.Location(ctx)
		if err == nil && strings.Contains(url, "CredenciamentoLista") {
			c.logger.Info("Draft saved (confirmed by redirect)")
			return true, ""
		}

		if visible, _ := c.session.IsVisible(ctx, selModal); visible {
			return c.handleSaveModal(ctx)
		}
	}

	url, _ := c.session.Location(ctx)
	c.logger.Error("Draft NOT saved (timeout)", zap.String("url", url))
	if alerts, err := c.session.Texts(ctx, selAlerts); err == nil && len(alerts) > 0 {
		c.logger.Error("Alerts on screen", zap.Strings("alerts", alerts))
	}
	c.captureFailure(ctx, "erro_salvar", cpf)
	return false, "timeout waiting for save confirmation"
}

// reclickOrCollectErrors re-clicks the save button when it is still there;
// when it is gone, looks for validation errors that explain the silence.
// Returns true with a message when validation errors end the attempt.
func (c *Client) reclickOrCollectErrors(ctx context.Context) (bool, string) {
	visible, _ := c.session.IsVisible(ctx, selSaveDraft)
	if visible {
		c.logger.Info("Re-clicking save (no response)")
		if err := c.session.Click(ctx, selSaveDraft); err != nil {
			_ = c.session.ClickForce(ctx, selSaveDraft)
		}
		return false, ""
	}

	c.logger.Warn("Save button no longer visible, checking for validation errors")
	texts, err := c.session.Texts(ctx, selValidationError)
	if err != nil {
		return false, ""
	}
	var nonEmpty []string
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			nonEmpty = append(nonEmpty, strings.TrimSpace(t))
		}
	}
	if len(nonEmpty) > 0 {
		msg := strings.Join(nonEmpty, " | ")
		c.logger.Error("Validation errors on screen", zap.String("errors", msg))
		return true, "validation errors: " + msg
	}
	return false, ""
}

// handleSaveModal classifies the bootbox feedback modal after a save click.
func (c *Client) handleSaveModal(ctx context.Context) (bool, string) {
	texts := c.modalTexts(ctx)
	joined := strings.ToLower(strings.Join(texts, " | "))

	if strings.Contains(joined, "sucesso") {
		c.logger.Info("Save confirmation modal detected", zap.Strings("modals", texts))
		c.acknowledgeModal(ctx)
		return true, ""
	}

	c.logger.Error("Save error modal", zap.Strings("modals", texts))
	c.acknowledgeModal(ctx)
	return false, "portal rejected the save: " + strings.Join(texts, " | ")
}
