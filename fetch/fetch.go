// Package fetch downloads raw BTS on-time performance archives. Data
// acquisition is a collaborator step ahead of the transform stage: archives
// are fetched once into a local directory and the transform only ever sees
// local files.
package fetch

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// BaseURL is the BTS PREZIP endpoint. Overridable for tests.
var BaseURL = "https://transtats.bts.gov/PREZIP/"

// Summary is the accounting of one download run.
type Summary struct {
	Attempted  int
	Downloaded int
	Skipped    int
	Failed     int
	Archives   []string
}

// Fetcher downloads monthly archives with a circuit breaker around the BTS
// endpoint, which throttles aggressively under load.
type Fetcher struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	logger  *zap.Logger
}

// NewFetcher creates a Fetcher. A nil logger disables logging.
func NewFetcher(logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:    "BTSDownloader",
		Timeout: 30 * time.Second,
	})
	return &Fetcher{
		client:  &http.Client{Timeout: 5 * time.Minute},
		breaker: cb,
		logger:  logger,
	}
}

// ArchiveName returns the BTS archive file name for a given month.
func ArchiveName(year, month int) string {
	return fmt.Sprintf("On_Time_Reporting_Carrier_On_Time_Performance_1987_present_%d_%d.zip", year, month)
}

// Download fetches every monthly archive in [startYear, endYear] into dir.
// Archives already present are skipped; partial files are removed on
// failure. A month that is unavailable upstream counts as failed but does
// not abort the run.
func (f *Fetcher) Download(ctx context.Context, startYear, endYear int, dir string) (*Summary, error) {
	if startYear > endYear {
		return nil, fmt.Errorf("fetch: start year %d after end year %d", startYear, endYear)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("fetch: create dir %q: %w", dir, err)
	}

	summary := &Summary{}
	for year := startYear; year <= endYear; year++ {
		for month := 1; month <= 12; month++ {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			summary.Attempted++

			name := ArchiveName(year, month)
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				summary.Skipped++
				summary.Archives = append(summary.Archives, path)
				continue
			}

			if err := f.downloadOne(ctx, BaseURL+name, path); err != nil {
				summary.Failed++
				f.logger.Warn("Archive download failed",
					zap.Int("year", year),
					zap.Int("month", month),
					zap.Error(err))
				continue
			}
			summary.Downloaded++
			summary.Archives = append(summary.Archives, path)
			f.logger.Info("Archive downloaded",
				zap.Int("year", year),
				zap.Int("month", month),
				zap.String("path", path))
		}
	}

	f.logger.Info("Download run complete",
		zap.Int("attempted", summary.Attempted),
		zap.Int("downloaded", summary.Downloaded),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

func (f *Fetcher) downloadOne(ctx context.Context, url, path string) error {
	resp, err := f.breaker.Execute(func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := f.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("unexpected status %s", resp.Status)
		}
		return resp, nil
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return err
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}

// ExtractCSV unpacks the first CSV member of a downloaded archive into
// destDir and returns its path. Extraction is skipped when the CSV is
// already present.
func ExtractCSV(archivePath, destDir string) (string, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf("open archive %q: %w", archivePath, err)
	}
	defer func() {
		_ = r.Close()
	}()

	for _, member := range r.File {
		if !strings.EqualFold(filepath.Ext(member.Name), ".csv") {
			continue
		}
		dest := filepath.Join(destDir, filepath.Base(member.Name))
		if _, err := os.Stat(dest); err == nil {
			return dest, nil
		}
		if err := extractMember(member, dest); err != nil {
			return "", fmt.Errorf("extract %q from %q: %w", member.Name, archivePath, err)
		}
		return dest, nil
	}
	return "", fmt.Errorf("archive %q holds no CSV member", archivePath)
}

func extractMember(member *zip.File, dest string) error {
	src, err := member.Open()
	if err != nil {
		return err
	}
	defer func() {
		_ = src.Close()
	}()

	file, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, src); err != nil {
		_ = file.Close()
		_ = os.Remove(dest)
		return err
	}
	return file.Close()
}
