package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"net/http"
	"os"
)

// maxDownload caps release assets; mermaid-ascii archives are a few MB.
const maxDownload = 64 << 20

var (
	errTooLarge   = errors.New("download exceeds size limit")
	errNoChecksum = errors.New("no expected checksum")
)

// httpDoer is satisfied by *http.Client.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// digestWriter tees everything written to it into a SHA-256 hash.
type digestWriter struct {
	w io.Writer
	h hash.Hash
	n int64
}

func newDigestWriter(w io.Writer) *digestWriter {
	return &digestWriter{w: w, h: sha256.New()}
}

func (d *digestWriter) Write(p []byte) (int, error) {
	if d.n+int64(len(p)) > maxDownload {
		return 0, errTooLarge
	}
	n, err := d.w.Write(p)
	d.h.Write(p[:n])
	d.n += int64(n)
	return n, err
}

func (d *digestWriter) Sum() string { return hex.EncodeToString(d.h.Sum(nil)) }

// fetchVerified downloads url into a temp file in dir and checks it against
// want, the expected SHA-256. On mismatch the file is removed. The caller
// removes the returned file.
func fetchVerified(ctx context.Context, client httpDoer, url, dir, want string) (string, error) {
	if want == "" {
		return "", fmt.Errorf("GET %s: %w", url, errNoChecksum)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GET %s: %s", url, resp.Status)
	}

	f, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return "", err
	}
	tmp := f.Name()
	dw := newDigestWriter(f)
	_, err = io.Copy(dw, resp.Body)
	err = errors.Join(err, f.Close())
	if err == nil && dw.Sum() != want {
		err = fmt.Errorf("checksum mismatch for %s: want %s, got %s", url, want, dw.Sum())
	}
	if err != nil {
		os.Remove(tmp)
		return "", err
	}
	return tmp, nil
}
