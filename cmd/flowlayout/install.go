package main

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

const mermaidASCIIVersion = "1.1.0"

// SHA-256 checksums for mermaid-ascii v1.1.0 release assets.
var mermaidASCIIChecksums = map[string]string{
	"mermaid-ascii_Darwin_arm64.tar.gz":  "068d2ff869d4921655cab471500fffd8c3ed28155b100518ed3cf3835d53d3d0",
	"mermaid-ascii_Darwin_x86_64.tar.gz": "0cd4c9c01a03284fe866f39a1ce1aaee1e6a2fbd91deedc4ec254cb87622eec8",
	"mermaid-ascii_Linux_arm64.tar.gz":   "3b7d0a95141bfbca838e445ea802ffb7fba8873b3c4af498482c84f83526f2db",
	"mermaid-ascii_Linux_x86_64.tar.gz":  "838ea93d561b3bc83aa15531c6ed7d2d261a8edc521d5484f7e91fe831cc4c65",
}

// InstallCmd writes a settings file and fetches the optional mermaid-ascii
// renderer used for ASCII output.
type InstallCmd struct {
	Force     bool `help:"Overwrite an existing settings file."`
	SkipTools bool `help:"Do not download mermaid-ascii."`
}

func (c *InstallCmd) Run(ctx context.Context, a *app) error {
	if err := os.MkdirAll(filepath.Dir(a.settings), 0o700); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(a.settings), err)
	}

	if _, err := os.Stat(a.settings); err == nil && !c.Force {
		fmt.Fprintf(a.stdout, "Settings already exist at %s\n", a.settings)
	} else {
		data, err := yaml.Marshal(a.cfg)
		if err != nil {
			return err
		}
		if err := os.WriteFile(a.settings, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", a.settings, err)
		}
		fmt.Fprintf(a.stdout, "Config written to %s\n", a.settings)
	}

	if c.SkipTools {
		return nil
	}
	client := &http.Client{Timeout: 60 * time.Second}
	path, err := installMermaidASCII(ctx, client, a.cfg.BinDir)
	if err != nil {
		// Non-fatal: ASCII output falls back to the built-in canvas.
		a.logger.Warn("mermaid-ascii not installed, ASCII diagrams will use the built-in renderer",
			"error", err.Error())
		return nil
	}
	fmt.Fprintf(a.stdout, "mermaid-ascii available at %s\n", path)
	return nil
}

// installMermaidASCII downloads the mermaid-ascii binary to binDir unless
// it is already there.
func installMermaidASCII(ctx context.Context, client httpDoer, binDir string) (string, error) {
	destPath := filepath.Join(binDir, "mermaid-ascii")
	if _, err := os.Stat(destPath); err == nil {
		return destPath, nil
	}

	assetName, sum, err := mermaidASCIIAsset(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("https://github.com/AlexanderGrooff/mermaid-ascii/releases/download/%s/%s",
		mermaidASCIIVersion, assetName)

	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return "", err
	}
	tmpPath, err := fetchVerified(ctx, client, url, binDir, sum)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", assetName, err)
	}
	defer os.Remove(tmpPath)

	f, err := os.Open(tmpPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := extractTarGz(f, binDir, "mermaid-ascii"); err != nil {
		_ = os.Remove(destPath)
		return "", err
	}
	return destPath, os.Chmod(destPath, 0o755)
}

// mermaidASCIIAsset returns the release asset for a platform with its
// pinned checksum. Assets without a pinned checksum are never installed.
func mermaidASCIIAsset(goos, goarch string) (name, sum string, err error) {
	name, err = mermaidASCIIAssetName(goos, goarch)
	if err != nil {
		return "", "", err
	}
	sum, ok := mermaidASCIIChecksums[name]
	if !ok {
		return "", "", fmt.Errorf("mermaid-ascii: no pinned checksum for %s", name)
	}
	return name, sum, nil
}

// mermaidASCIIAssetName returns the release asset name for a platform.
func mermaidASCIIAssetName(goos, goarch string) (string, error) {
	osNames := map[string]string{"darwin": "Darwin", "linux": "Linux"}
	archNames := map[string]string{"amd64": "x86_64", "arm64": "arm64", "386": "i386"}

	osName, ok := osNames[goos]
	if !ok {
		return "", fmt.Errorf("mermaid-ascii: unsupported OS %q", goos)
	}
	archName, ok := archNames[goarch]
	if !ok {
		return "", fmt.Errorf("mermaid-ascii: unsupported architecture %q", goarch)
	}
	return fmt.Sprintf("mermaid-ascii_%s_%s.tar.gz", osName, archName), nil
}

// extractTarGz writes the regular file named target (matched by base name)
// from a tar.gz stream into destDir.
func extractTarGz(r io.Reader, destDir, target string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("gzip: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("file %q not found in archive", target)
		}
		if err != nil {
			return fmt.Errorf("tar: %w", err)
		}
		if filepath.Base(hdr.Name) != target || hdr.Typeflag != tar.TypeReg {
			continue
		}

		destPath := filepath.Join(destDir, target)
		out, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
		if err != nil {
			return fmt.Errorf("create %s: %w", destPath, err)
		}
		if _, err := io.Copy(out, tr); err != nil { //nolint:gosec // bounded by tar header size
			out.Close()
			return fmt.Errorf("write %s: %w", destPath, err)
		}
		return out.Close()
	}
}
