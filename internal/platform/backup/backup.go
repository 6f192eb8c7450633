// Package backup copies the CSV snapshots of the data directory to object
// storage and back.
package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// PrefixLayout names one backup run.
const PrefixLayout = "20060102-150405"

// Objects is the object storage the backups live in.
type Objects interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

type Service struct {
	objects Objects
	logger  zerolog.Logger
}

func NewService(objects Objects, logger zerolog.Logger) *Service {
	return &Service{objects: objects, logger: logger.With().Str("component", "backup").Logger()}
}

// Prefix returns the object prefix for a run started at now.
func Prefix(now time.Time) string { return now.UTC().Format(PrefixLayout) }

// Backup uploads every *.csv file in dir under Prefix(now). It returns the
// prefix and the uploaded keys.
func (s *Service) Backup(ctx context.Context, dir string, now time.Time) (string, []string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return "", nil, fmt.Errorf("list data files: %w", err)
	}
	if len(files) == 0 {
		return "", nil, fmt.Errorf("no csv files in %s", dir)
	}
	sort.Strings(files)

	if err := s.objects.EnsureBucket(ctx); err != nil {
		return "", nil, err
	}

	prefix := Prefix(now)
	keys := make([]string, 0, len(files))
	for _, file := range files {
		key := path.Join(prefix, filepath.Base(file))
		if err := s.upload(ctx, file, key); err != nil {
			return "", nil, err
		}
		keys = append(keys, key)
	}
	s.logger.Info().Str("prefix", prefix).Int("files", len(keys)).Msg("backup uploaded")
	return prefix, keys, nil
}

func (s *Service) upload(ctx context.Context, file, key string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("open %s: %w", file, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", file, err)
	}
	if err := s.objects.Put(ctx, key, f, info.Size(), "text/csv"); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// Restore downloads every *.csv object under prefix into dir, replacing
// files of the same name. It returns the restored file names.
func (s *Service) Restore(ctx context.Context, dir, prefix string) ([]string, error) {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return nil, fmt.Errorf("restore needs a backup prefix")
	}
	keys, err := s.objects.List(ctx, prefix+"/")
	if err != nil {
		return nil, fmt.Errorf("list backup %s: %w", prefix, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	var restored []string
	for _, key := range keys {
		name := path.Base(key)
		if !strings.HasSuffix(name, ".csv") {
			continue
		}
		if err := s.download(ctx, key, filepath.Join(dir, name)); err != nil {
			return restored, err
		}
		restored = append(restored, name)
	}
	if len(restored) == 0 {
		return nil, fmt.Errorf("backup %s has no csv files", prefix)
	}
	s.logger.Info().Str("prefix", prefix).Strs("files", restored).Msg("backup restored")
	return restored, nil
}

func (s *Service) download(ctx context.Context, key, dest string) error {
	rc, err := s.objects.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("download %s: %w", key, err)
	}
	defer rc.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".restore-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dest, err)
	}
	return os.Rename(tmp.Name(), dest)
}
