package video

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/BaSui01/vidflow/types"
)

// Downloader saves generated videos under a local directory as
// <model>_<YYYYMMDD_HHMMSS>_<prompt>.mp4.
type Downloader struct {
	dir    string
	client *http.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewDownloader creates a downloader writing into dir.
func NewDownloader(dir string, client *http.Client, logger *zap.Logger) *Downloader {
	if client == nil {
		client = newHTTPClient(5 * time.Minute)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Downloader{
		dir:    dir,
		client: client,
		logger: logger.With(zap.String("component", "downloader")),
		now:    time.Now,
	}
}

// Download fetches url and returns the local path of the saved file.
// Failures are retryable DOWNLOAD_FAILED errors.
func (d *Downloader) Download(ctx context.Context, url, model, prompt string) (string, error) {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", downloadFailed("create output dir", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", types.NewError(types.ErrDownloadFailed, "invalid video url").WithCause(err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", downloadFailed("fetch video", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", downloadFailed("fetch video", fmt.Errorf("status %d", resp.StatusCode))
	}

	f, path, err := d.create(FileName(model, prompt, d.now()))
	if err != nil {
		return "", downloadFailed("create file", err)
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", downloadFailed("write video", err)
	}

	d.logger.Info("video saved", zap.String("path", path), zap.Int64("bytes", n))
	return path, nil
}

// create opens a new file for name, adding a numeric suffix when a file
// with the same name already exists.
func (d *Downloader) create(name string) (*os.File, string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 0; ; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s_%d%s", stem, i, ext)
		}
		path := filepath.Join(d.dir, candidate)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, fs.ErrExist) || i >= 1000 {
			return nil, "", err
		}
	}
}

// FileName builds the artifact file name for a generation.
func FileName(model, prompt string, ts time.Time) string {
	return fmt.Sprintf("%s_%s_%s.mp4", model, ts.Format("20060102_150405"), SafePrompt(prompt))
}

// SafePrompt keeps the letters, digits and spaces of the first 30 runes of
// prompt, trims it and replaces spaces with underscores.
func SafePrompt(prompt string) string {
	runes := []rune(prompt)
	if len(runes) > 30 {
		runes = runes[:30]
	}
	var b strings.Builder
	for _, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.ReplaceAll(strings.TrimSpace(b.String()), " ", "_")
}

func downloadFailed(op string, err error) error {
	return types.NewError(types.ErrDownloadFailed, "download: "+op+": "+err.Error()).
		WithCause(err).
		WithRetryable(true)
}
