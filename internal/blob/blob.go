// Package blob defines the object-storage collaborator: the core never
// reads bytes back, it only records URLs and content hashes. A Go interface
// plus a local-disk implementation serve environments without an
// S3-compatible bucket configured.
package blob

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Publicity controls which CDN path an uploaded object is served from.
type Publicity int

const (
	Public Publicity = iota
	Private
)

// UploadResult is what a successful upload hands back to the caller; Color
// is populated only for image uploads where average-color extraction
// applies (project icons, gallery items).
type UploadResult struct {
	URL    string
	RawURL string
	Color  *uint32
	SHA512 string
}

var ErrNotFound = errors.New("blob: object not found")

// Host is the external object-storage collaborator. Deadline is enforced
// by the caller via ctx.
type Host interface {
	Upload(ctx context.Context, contentType, path string, data []byte, publicity Publicity) (UploadResult, error)
	Delete(ctx context.Context, path string) error
}

// LocalDiskHost implements Host against a local directory, for dev and for
// deployments without S3 configured. It is the only Host in this
// repository: cmd/api/container.go wires it whatever the
// BLOB_PUBLIC_BUCKET/BLOB_PRIVATE_BUCKET settings say, and no S3-compatible
// Host exists here.
type LocalDiskHost struct {
	baseDir  string
	cdnURL   string
	rawURL   string
}

func NewLocalDiskHost(baseDir, cdnURL, rawURL string) *LocalDiskHost {
	return &LocalDiskHost{baseDir: baseDir, cdnURL: cdnURL, rawURL: rawURL}
}

func (h *LocalDiskHost) Upload(ctx context.Context, contentType, path string, data []byte, publicity Publicity) (UploadResult, error) {
	full := filepath.Join(h.baseDir, filepath.Clean("/"+path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return UploadResult{}, fmt.Errorf("blob: mkdir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return UploadResult{}, fmt.Errorf("blob: write: %w", err)
	}

	sum := sha512.Sum512(data)
	return UploadResult{
		URL:    fmt.Sprintf("%s/%s", h.cdnURL, path),
		RawURL: fmt.Sprintf("%s/%s", h.rawURL, path),
		SHA512: hex.EncodeToString(sum[:]),
	}, nil
}

func (h *LocalDiskHost) Delete(ctx context.Context, path string) error {
	full := filepath.Join(h.baseDir, filepath.Clean("/"+path))
	if err := os.Remove(full); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("blob: delete: %w", err)
	}
	return nil
}

// ReadAll is a small helper callers use to size-limit request bodies
// before upload; not part of the Host interface since the core itself
// never reads bytes back.
func ReadAll(r io.Reader, maxBytes int64) ([]byte, error) {
	limited := io.LimitReader(r, maxBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("blob: payload exceeds %d bytes", maxBytes)
	}
	return data, nil
}

// Sweeper reconciles blob uploads that committed to a bucket but whose
// owning transaction later rolled back: a periodic sweep over
// unreferenced blob paths.
type Sweeper struct {
	host       Host
	referenced func(ctx context.Context, path string) (bool, error)
	interval   time.Duration
}

func NewSweeper(host Host, referenced func(ctx context.Context, path string) (bool, error), interval time.Duration) *Sweeper {
	return &Sweeper{host: host, referenced: referenced, interval: interval}
}

// SweepOnce checks the given candidate paths and deletes any no longer
// referenced by a committed Store row.
func (s *Sweeper) SweepOnce(ctx context.Context, candidatePaths []string) error {
	for _, p := range candidatePaths {
		ok, err := s.referenced(ctx, p)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		if err := s.host.Delete(ctx, p); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return nil
}
