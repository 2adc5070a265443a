package lfsstore

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/errgroup"
)

// DownloadFunc fetches url into path.
type DownloadFunc func(url string, path string) error

// Store downloads large-object content in the background, keyed by the
// sha256 oid recorded in the pointer file. Content is verified against
// the oid before it becomes visible.
type Store struct {
	fileDir string
	tmpDir  string
	downl   DownloadFunc
	workers int

	objects *xsync.MapOf[string, *object]
	queue   chan string
}

type object struct {
	url  string
	done chan struct{}
	err  error
}

func New(fileDir string, tmpDir string, downl DownloadFunc) (*Store, error) {
	s := &Store{
		fileDir: fileDir,
		tmpDir:  tmpDir,
		downl:   downl,
		workers: 4,
		objects: xsync.NewMapOf[string, *object](),
		queue:   make(chan string, 10000),
	}

	if err := os.MkdirAll(fileDir, 0777); err != nil {
		return nil, fmt.Errorf("failed to create object store directory: %w", err)
	}
	if err := os.MkdirAll(tmpDir, 0777); err != nil {
		return nil, fmt.Errorf("failed to create tmp directory: %w", err)
	}

	return s, nil
}

// Start runs the download workers until ctx is cancelled.
func (s *Store) Start(ctx context.Context) {
	var g errgroup.Group
	for range s.workers {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case oid := <-s.queue:
					s.download(oid)
				}
			}
		})
	}
	go func() { _ = g.Wait() }()
}

// Schedule registers oid for download from url. Scheduling the same
// oid twice is a no-op.
func (s *Store) Schedule(oid string, url string) error {
	if oid == "" {
		return fmt.Errorf("empty oid")
	}
	obj := &object{url: url, done: make(chan struct{})}
	_, loaded := s.objects.LoadOrStore(oid, obj)
	if loaded {
		return nil // already scheduled
	}
	s.queue <- oid
	return nil
}

// IsScheduled reports whether oid already has a download registered.
func (s *Store) IsScheduled(oid string) bool {
	_, ok := s.objects.Load(oid)
	return ok
}

// Await blocks until oid has been downloaded and returns its content.
func (s *Store) Await(oid string) ([]byte, error) {
	obj, ok := s.objects.Load(oid)
	if !ok {
		return nil, fmt.Errorf("object %s has not been scheduled for download", oid)
	}
	<-obj.done
	if obj.err != nil {
		return nil, obj.err
	}

	body, err := os.ReadFile(filepath.Join(s.fileDir, oid))
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", oid, err)
	}
	return body, nil
}

func (s *Store) download(oid string) {
	obj, ok := s.objects.Load(oid)
	if !ok {
		return
	}
	obj.err = s.downloadIfMissing(oid, obj.url)
	close(obj.done)
}

func (s *Store) downloadIfMissing(oid string, url string) error {
	finalPath := filepath.Join(s.fileDir, oid)
	if _, err := os.Stat(finalPath); err == nil {
		return nil
	}

	slog.Debug("downloading lfs object", "oid", oid)
	tmpPath := filepath.Join(s.tmpDir, oid)
	if err := s.downl(url, tmpPath); err != nil {
		return fmt.Errorf("failed to download object %s: %w", oid, err)
	}

	if err := verifySha256(tmpPath, oid); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("failed to move object %s into store: %w", oid, err)
	}
	return nil
}

func verifySha256(path string, expected string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return err
	}

	sum := fmt.Sprintf("%x", h.Sum(nil))
	if sum != expected {
		return fmt.Errorf("object integrity mismatch: got sha256 %s, expected %s", sum, expected)
	}
	return nil
}
