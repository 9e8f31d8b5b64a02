// internal/sharepoint/fetcher.go
package sharepoint

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/metaxg-cli/api/schemas"
	"github.com/xkilldash9x/metaxg-cli/internal/config"
	"github.com/xkilldash9x/metaxg-cli/internal/format"
	"github.com/xkilldash9x/metaxg-cli/internal/photos"
)

// monthNames maps a month number to the uppercase Portuguese folder name
// used by the field teams.
var monthNames = map[time.Month]string{
	time.January:   "JANEIRO",
	time.February:  "FEVEREIRO",
	time.March:     "MARCO",
	time.April:     "ABRIL",
	time.May:       "MAIO",
	time.June:      "JUNHO",
	time.July:      "JULHO",
	time.August:    "AGOSTO",
	time.September: "SETEMBRO",
	time.October:   "OUTUBRO",
	time.November:  "NOVEMBRO",
	time.December:  "DEZEMBRO",
}

// Library is the remote side of the fetcher, satisfied by *Client.
type Library interface {
	ListFolder(ctx context.Context, folderPath string) ([]FileInfo, error)
	Download(ctx context.Context, serverRelativeURL, destPath string) error
}

// Fetcher resolves one photo per employee, local folders first, the document
// library second.
type Fetcher struct {
	library    Library
	cfg        config.SharePointConfig
	searchDirs []string
	log        *zap.Logger
}

// NewFetcher builds a photo fetcher. searchDirs are checked before any
// remote call; the destination dir is always appended to them.
func NewFetcher(library Library, cfg config.SharePointConfig, searchDirs []string, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		library:    library,
		cfg:        cfg,
		searchDirs: searchDirs,
		log:        logger.Named("photos"),
	}
}

// FetchBatch resolves photos for every person concurrently and returns a map
// of CPF to local photo path. People without a photo are absent from the map;
// a lookup failure never fails the batch.
func (f *Fetcher) FetchBatch(ctx context.Context, people []schemas.PersonRecord, destDir string) map[string]string {
	results := make(map[string]string, len(people))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	limit := f.cfg.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for _, person := range people {
		person := person
		g.Go(func() error {
			path, err := f.fetchOne(gctx, person, destDir)
			if err != nil {
				f.log.Warn("Photo lookup failed",
					zap.String("name", person.Name),
					zap.String("cpf", person.CPF),
					zap.Error(err))
				return nil
			}
			if path != "" {
				mu.Lock()
				results[format.DigitsOnly(person.CPF)] = path
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	f.log.Info("Photo batch finished",
		zap.Int("people", len(people)),
		zap.Int("photos", len(results)))
	return results
}

func (f *Fetcher) fetchOne(ctx context.Context, person schemas.PersonRecord, destDir string) (string, error) {
	cpf := format.DigitsOnly(person.CPF)

	dirs := append(append([]string{}, f.searchDirs...), destDir)
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if path, ok := photos.FindByCPF(dir, cpf); ok {
			f.log.Info("Photo already present locally",
				zap.String("name", person.Name), zap.String("path", path))
			return path, nil
		}
	}

	if f.library == nil {
		return "", nil
	}

	folder := f.personFolder(person)
	files, err := f.library.ListFolder(ctx, folder)
	if err != nil {
		return "", fmt.Errorf("folder %s: %w", folder, err)
	}

	for _, file := range files {
		if !isPhotoFile(file.Name) {
			continue
		}
		destPath := filepath.Join(destDir, file.Name)
		if err := f.library.Download(ctx, file.ServerRelativeURL, destPath); err != nil {
			return "", err
		}
		f.log.Info("Photo downloaded",
			zap.String("name", person.Name), zap.String("file", file.Name))
		return destPath, nil
	}

	f.log.Warn("No photo in mobilization folder",
		zap.String("name", person.Name), zap.String("folder", folder))
	return "", nil
}

// personFolder builds the dated library path for one employee:
// <base>/<year>/<MONTH>/<day>/<NAME> keyed on the admission date.
func (f *Fetcher) personFolder(person schemas.PersonRecord) string {
	when := person.AdmissionDate
	return fmt.Sprintf("%s/%d/%s/%02d/%s",
		strings.TrimSuffix(f.cfg.BaseFolder, "/"),
		when.Year(), monthNames[when.Month()], when.Day(),
		format.NormalizeText(person.Name))
}

// isPhotoFile matches the field teams' naming convention for the ID photo.
func isPhotoFile(name string) bool {
	upper := strings.ToUpper(name)
	if !strings.HasPrefix(upper, "00_FOTO_") {
		return false
	}
	switch filepath.Ext(upper) {
	case ".JPG", ".JPEG", ".PNG":
		return true
	}
	return false
}
