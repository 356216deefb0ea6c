package desktop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/louisbranch/hrdesk/internal/platform/timeouts"
)

const maxAssetBytes = 8 << 20

// AssetLoader reads sound assets from http(s) URLs or local files. Relative
// paths resolve against BaseDir.
type AssetLoader struct {
	BaseDir string
	Client  *http.Client
}

// Load implements presentation.AssetLoader.
func (l AssetLoader) Load(ctx context.Context, location string) ([]byte, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, errors.New("asset location is required")
	}
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return l.fetch(ctx, location)
	}
	path, ok := localPath(location)
	if !ok {
		return nil, fmt.Errorf("unsupported asset location %s", location)
	}
	if !filepath.IsAbs(path) && l.BaseDir != "" {
		path = filepath.Join(l.BaseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read asset: %w", err)
	}
	return data, nil
}

func (l AssetLoader) fetch(ctx context.Context, location string) ([]byte, error) {
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.AssetLoad)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("build asset request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("asset request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("asset returned %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read asset: %w", err)
	}
	if len(data) > maxAssetBytes {
		return nil, fmt.Errorf("asset %s exceeds %d bytes", location, maxAssetBytes)
	}
	return data, nil
}
