package s3downl

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
)

// GetHttpDownloadFunc returns a downloader for LFS media served over
// plain HTTPS, for remotes that are not S3-backed.
func GetHttpDownloadFunc(client *http.Client) func(mediaUrl string, path string) error {
	if client == nil {
		client = http.DefaultClient
	}

	return func(mediaUrl string, path string) error {
		resp, err := client.Get(mediaUrl)
		if err != nil {
			return fmt.Errorf("failed to download %s: %w", mediaUrl, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("failed to download %s: status %s", mediaUrl, resp.Status)
		}

		out, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create file %s: %w", path, err)
		}
		defer out.Close()

		isZstd := resp.Header.Get("Content-Type") == "application/zstd" ||
			filepath.Ext(mediaUrl) == ".zst"

		return writeBody(out, resp.Body, isZstd, path)
	}
}
