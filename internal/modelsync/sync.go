// Package modelsync downloads trained model bundles from a remote model
// store. It fetches the bundle manifest first, then every file the
// manifest lists, writing them into the local model directory so a
// service restart picks up the new bundle.
package modelsync

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"wildtrack/internal/seasonal"
)

type Syncer struct {
	base string
	rest *resty.Client
}

func New(baseURL string, timeout time.Duration) *Syncer {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(30 * time.Second) // default fallback
	}
	r.SetRetryCount(2)
	return &Syncer{base: baseURL, rest: r}
}

// FetchManifest retrieves the remote bundle manifest without downloading
// any model files.
func (s *Syncer) FetchManifest(ctx context.Context) (*seasonal.Manifest, error) {
	var m seasonal.Manifest
	resp, err := s.rest.R().
		SetContext(ctx).
		SetResult(&m).
		Get(s.base + "/" + seasonal.ManifestFile)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("model store error: status %d", resp.StatusCode())
	}
	if err := m.CheckFeatureOrder(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Sync downloads the remote bundle into dir. Files are written to a
// temporary name first and renamed into place so a crash mid-download
// never leaves a truncated model behind. The manifest is written last,
// after every model file it lists has landed.
func (s *Syncer) Sync(ctx context.Context, dir string) (*seasonal.Manifest, error) {
	m, err := s.FetchManifest(ctx)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create model dir: %w", err)
	}

	for _, name := range m.Files {
		// A bundle file is a bare name inside the model dir; anything
		// else could escape it.
		if name == "" || name == "." || name == ".." || name != filepath.Base(name) {
			return nil, fmt.Errorf("manifest lists invalid file name %q", name)
		}
		if err := s.fetchFile(ctx, name, dir); err != nil {
			return nil, fmt.Errorf("fetch %s: %w", name, err)
		}
		log.Debug().Str("file", name).Msg("model file synced")
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := writeAtomic(filepath.Join(dir, seasonal.ManifestFile), data); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	log.Info().
		Str("version", m.Version).
		Int("files", len(m.Files)).
		Str("dir", dir).
		Msg("model bundle synced")

	return m, nil
}

func (s *Syncer) fetchFile(ctx context.Context, name, dir string) error {
	resp, err := s.rest.R().
		SetContext(ctx).
		Get(s.base + "/" + name)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("model store error: status %d", resp.StatusCode())
	}
	return writeAtomic(filepath.Join(dir, name), resp.Body())
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
