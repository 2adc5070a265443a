package lfsstore_test

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"sync/atomic"
	"testing"

	"github.com/covci/runner/internal/lfsstore"
	"github.com/stretchr/testify/require"
)

func oidOf(body string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(body)))
}

func newStore(t *testing.T, downl lfsstore.DownloadFunc) *lfsstore.Store {
	t.Helper()
	s, err := lfsstore.New(t.TempDir(), t.TempDir(), downl)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	s.Start(ctx)
	return s
}

func TestScheduleAndAwait(t *testing.T) {
	body := "315941512 -119267504\n"
	s := newStore(t, func(url string, path string) error {
		return os.WriteFile(path, []byte(body), 0644)
	})

	oid := oidOf(body)
	require.NoError(t, s.Schedule(oid, "https://media.example.com/"+oid))

	got, err := s.Await(oid)
	require.NoError(t, err)
	require.Equal(t, body, string(got))
}

func TestAwaitUnscheduled(t *testing.T) {
	s := newStore(t, func(url string, path string) error { return nil })

	_, err := s.Await("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	require.Error(t, err)
}

func TestIntegrityMismatch(t *testing.T) {
	s := newStore(t, func(url string, path string) error {
		return os.WriteFile(path, []byte("unexpected content"), 0644)
	})

	oid := "cccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc"
	require.NoError(t, s.Schedule(oid, "https://media.example.com/"+oid))

	_, err := s.Await(oid)
	require.Error(t, err)
	require.Contains(t, err.Error(), "integrity mismatch")
}

func TestIsScheduled(t *testing.T) {
	s := newStore(t, func(url string, path string) error {
		return os.WriteFile(path, nil, 0644)
	})

	oid := "dddddddddddddddddddddddddddddddddddddddddddddddddddddddddddddddd"
	require.False(t, s.IsScheduled(oid))
	require.NoError(t, s.Schedule(oid, "u"))
	require.True(t, s.IsScheduled(oid))
}

func TestScheduleTwiceDownloadsOnce(t *testing.T) {
	body := "196674008\n"
	var downloads atomic.Int32
	s := newStore(t, func(url string, path string) error {
		downloads.Add(1)
		return os.WriteFile(path, []byte(body), 0644)
	})

	oid := oidOf(body)
	require.NoError(t, s.Schedule(oid, "u"))
	require.NoError(t, s.Schedule(oid, "u"))

	got, err := s.Await(oid)
	require.NoError(t, err)
	require.Equal(t, body, string(got))
	require.Equal(t, int32(1), downloads.Load())
}

func TestDownloadFailureSurfacesOnAwait(t *testing.T) {
	s := newStore(t, func(url string, path string) error {
		return fmt.Errorf("remote unreachable")
	})

	oid := oidOf("whatever")
	require.NoError(t, s.Schedule(oid, "u"))

	_, err := s.Await(oid)
	require.Error(t, err)
	require.Contains(t, err.Error(), "remote unreachable")
}
