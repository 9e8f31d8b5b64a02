// internal/sharepoint/client.go

// Package sharepoint pulls employee ID photos from the mobilization document
// library. Field teams drop the photos under a dated folder convention
// (<base>/<year>/<MONTH>/<day>/<EMPLOYEE NAME>), and the batch fetcher
// downloads the "00_FOTO_*" file from each employee's folder.
package sharepoint

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/metaxg-cli/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// sharePointPrincipal is the well-known service principal for SharePoint
// Online, used when requesting app-only tokens.
const sharePointPrincipal = "00000003-0000-0ff1-ce00-000000000000"

// FileInfo describes a file inside a document library folder.
type FileInfo struct {
	Name              string `json:"Name"`
	ServerRelativeURL string `json:"ServerRelativeUrl"`
}

// Client talks to the SharePoint REST API using app-only credentials.
type Client struct {
	httpClient *http.Client
	cfg        config.SharePointConfig
	log        *zap.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient builds a REST client. It does not authenticate until first use.
func NewClient(cfg config.SharePointConfig, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		cfg:        cfg,
		log:        logger.Named("sharepoint"),
	}
}

// ListFolder returns the files directly inside a server-relative folder path.
// A missing folder is reported as an error by the API.
func (c *Client) ListFolder(ctx context.Context, folderPath string) ([]FileInfo, error) {
	endpoint := fmt.Sprintf("%s/_api/web/GetFolderByServerRelativeUrl('%s')/Files",
		strings.TrimSuffix(c.cfg.SiteURL, "/"), url.PathEscape(folderPath))

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var payload struct {
		D struct {
			Results []FileInfo `json:"results"`
		} `json:"d"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("could not decode folder listing: %w", err)
	}
	return payload.D.Results, nil
}

// Download streams a file to destPath.
func (c *Client) Download(ctx context.Context, serverRelativeURL, destPath string) error {
	endpoint := fmt.Sprintf("%s/_api/web/GetFileByServerRelativeUrl('%s')/$value",
		strings.TrimSuffix(c.cfg.SiteURL, "/"), url.PathEscape(serverRelativeURL))

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("could not create photo dir: %w", err)
	}
	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("could not create %s: %w", destPath, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		return fmt.Errorf("could not download %s: %w", serverRelativeURL, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, endpoint string) (io.ReadCloser, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json;odata=verbose")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sharepoint request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("sharepoint returned %s for %s", resp.Status, endpoint)
	}
	return resp.Body, nil
}

// ensureToken fetches an app-only token from ACS, caching it until shortly
// before expiry.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	siteURL, err := url.Parse(c.cfg.SiteURL)
	if err != nil {
		return "", fmt.Errorf("invalid sharepoint site url: %w", err)
	}

	tokenURL := fmt.Sprintf("https://accounts.accesscontrol.windows.net/%s/tokens/OAuth/2", c.cfg.TenantID)
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {fmt.Sprintf("%s@%s", c.cfg.ClientID, c.cfg.TenantID)},
		"client_secret": {c.cfg.ClientSecret},
		"resource":      {fmt.Sprintf("%s/%s@%s", sharePointPrincipal, siteURL.Host, c.cfg.TenantID)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned %s", resp.Status)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   string `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("could not decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned an empty token")
	}

	ttl := 30 * time.Minute
	if secs, err := time.ParseDuration(payload.ExpiresIn + "s"); err == nil && secs > 2*time.Minute {
		ttl = secs - time.Minute
	}
	c.accessToken = payload.AccessToken
	c.tokenExpiry = time.Now().Add(ttl)
	c.log.Debug("SharePoint token refreshed", zap.Duration("ttl", ttl))
	return c.accessToken, nil
}
