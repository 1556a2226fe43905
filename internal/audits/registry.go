package audits

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/casoon/auditmysite-studio-sub002/internal/audit"
)

// BuildOptions carries the per-run settings some audits need.
type BuildOptions struct {
	// PerformanceBudget names the budget table the perf audit scores against.
	PerformanceBudget string
	// ScreenshotDir is where the screenshot audit writes PNGs.
	ScreenshotDir string
	Logger        *zap.Logger
}

// Build assembles the enabled audit set in the configured order. Unknown
// names fail loudly so a typo in configuration does not silently drop an
// audit.
func Build(names []string, opts BuildOptions) ([]audit.Audit, error) {
	out := make([]audit.Audit, 0, len(names))
	for _, name := range names {
		switch name {
		case "perf":
			a, err := NewPerf(opts.PerformanceBudget)
			if err != nil {
				return nil, err
			}
			out = append(out, a)
		case "seo":
			out = append(out, NewSEO())
		case "a11y":
			out = append(out, NewA11y())
		case "content":
			out = append(out, NewContent())
		case "mobile":
			out = append(out, NewMobile(opts.Logger))
		case "console":
			out = append(out, NewConsole())
		case "screenshot":
			a, err := NewScreenshot(opts.ScreenshotDir)
			if err != nil {
				return nil, err
			}
			out = append(out, a)
		default:
			return nil, fmt.Errorf("unknown audit %q", name)
		}
	}
	return out, nil
}
