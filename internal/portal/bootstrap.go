// internal/portal/bootstrap.go
package portal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/metaxg-cli/internal/browser"
)

// Bootstrap logs into the portal and leaves the session at the system's home
// screen. Any failure here is fatal for the run: no later phase can operate
// without an authenticated session.
//
// The login page has a CAPTCHA that only a human can solve, so after filling
// the credentials the flow blocks until the operator validates it and the
// contract combo appears.
func (c *Client) Bootstrap(ctx context.Context) error {
	c.logger.Info("Opening portal login page", zap.String("url", c.cfg.LoginURL))

	if err := c.session.Navigate(ctx, c.cfg.LoginURL); err != nil {
		return fmt.Errorf("could not open login page: %w", err)
	}

	if err := c.session.WaitVisible(ctx, selLogin, time.Minute); err != nil {
		return fmt.Errorf("login form did not appear: %w", err)
	}
	if err := c.session.Fill(ctx, selLogin, c.cfg.Login); err != nil {
		return fmt.Errorf("could not fill login: %w", err)
	}
	if err := c.session.Fill(ctx, selPassword, c.cfg.Password); err != nil {
		return fmt.Errorf("could not fill password: %w", err)
	}

	c.logger.Info("ACTION REQUIRED: solve the CAPTCHA and click 'Validar' manually")
	c.logger.Info("Waiting for the contract screen...",
		zap.Duration("max_wait", c.cfg.CaptchaWait))

	contractVisible := func(ctx context.Context) (bool, error) {
		visible, err := c.session.IsVisible(ctx, selContract)
		if err != nil {
			return false, nil
		}
		return visible, nil
	}
	if err := browser.Poll(ctx, c.cfg.CaptchaWait, 2*time.Second, contractVisible); err != nil {
		return fmt.Errorf("contract screen never appeared (CAPTCHA not solved?): %w", err)
	}

	if err := c.selectContract(ctx); err != nil {
		return err
	}

	if err := c.acceptTerms(ctx); err != nil {
		return err
	}

	c.logger.Info("Login completed")
	return nil
}

// selectContract picks the configured contract in the login combo, failing
// loudly with the available options when nothing matches.
func (c *Client) selectContract(ctx context.Context) error {
	if err := c.waitOptionsLoaded(ctx, selContract, 0, time.Minute); err != nil {
		return fmt.Errorf("contract combo never loaded: %w", err)
	}

	options, err := c.session.Options(ctx, selContract)
	if err != nil {
		return fmt.Errorf("could not list contracts: %w", err)
	}

	opt, ok := MatchContract(options, c.cfg.ContractValue)
	if !ok {
		return fmt.Errorf("%w: wanted %q, portal offers [%s]",
			ErrContractNotFound, c.cfg.ContractValue, strings.Join(optionTexts(options), "; "))
	}

	if err := c.session.SelectByValue(ctx, selContract, opt.Value); err != nil {
		return fmt.Errorf("could not select contract: %w", err)
	}
	c.logger.Info("Contract selected", zap.String("contract", opt.Text), zap.String("value", opt.Value))

	continueReady := func(ctx context.Context) (bool, error) {
		if err := c.clickByText(ctx, "Continuar"); err != nil {
			return false, nil
		}
		return true, nil
	}
	if err := browser.Poll(ctx, time.Minute, time.Second, continueReady); err != nil {
		return fmt.Errorf("'Continuar' button never became clickable: %w", err)
	}
	return nil
}

// acceptTerms clicks through the commitment terms modal shown after the
// contract is chosen.
func (c *Client) acceptTerms(ctx context.Context) error {
	termsShown := func(ctx context.Context) (bool, error) {
		return c.pageContainsText(ctx, "Termo de confirmação")
	}
	if err := browser.Poll(ctx, time.Minute, time.Second, termsShown); err != nil {
		return fmt.Errorf("terms modal never appeared: %w", err)
	}

	if err := c.clickByText(ctx, "Li e Aceito os termos de compromisso"); err != nil {
		return fmt.Errorf("could not accept terms: %w", err)
	}

	termsGone := func(ctx context.Context) (bool, error) {
		found, err := c.pageContainsText(ctx, "Termo de confirmação")
		if err != nil {
			return false, nil
		}
		return !found, nil
	}
	if err := browser.Poll(ctx, time.Minute, time.Second, termsGone); err != nil {
		return fmt.Errorf("terms modal did not close: %w", err)
	}
	return nil
}
