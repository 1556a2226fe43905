package audits

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/casoon/auditmysite-studio-sub002/internal/artifact"
	"github.com/casoon/auditmysite-studio-sub002/internal/audit"
)

// Screenshot captures a viewport PNG per page into the run's screenshot
// directory and records its path on the result.
type Screenshot struct {
	dir string
}

// NewScreenshot builds the screenshot audit writing under dir.
func NewScreenshot(dir string) (*Screenshot, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create screenshot dir %s: %w", dir, err)
	}
	return &Screenshot{dir: dir}, nil
}

// Name implements audit.Audit.
func (a *Screenshot) Name() string { return "screenshot" }

// Run captures and persists the PNG. The filename reuses the artifact slug
// so screenshots line up with their page documents.
func (a *Screenshot) Run(ctx context.Context, page *audit.Context) error {
	png, err := page.Page.Screenshot(ctx)
	if err != nil {
		return fmt.Errorf("capture screenshot: %w", err)
	}
	target := filepath.Join(a.dir, artifact.Slug(page.URL)+".png")
	if err := os.WriteFile(target, png, 0o600); err != nil {
		return fmt.Errorf("write screenshot %s: %w", target, err)
	}
	page.ScreenshotPath = target
	return nil
}
