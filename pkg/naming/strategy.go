// Package naming turns note intent into unique, non-colliding file names and
// parses existing names back into their components.
package naming

import (
	"context"
	"strings"
	"time"

	"github.com/telmoq/stickysync/pkg/core"
)

// Kind selects a naming strategy.
type Kind string

const (
	KindTimestamp  Kind = "timestamp"
	KindSequential Kind = "sequential"
	KindCustom     Kind = "custom"
)

// Intent carries what is known about a note before it has a file name.
type Intent struct {
	Title string
}

// Parsed is the result of decomposing an existing file name.
type Parsed struct {
	Timestamp *time.Time
	SeqNo     int
	Title     string
}

// Strategy generates and parses file names. A strategy never fails:
// GenerateFileName always returns a usable name.
type Strategy interface {
	GenerateFileName(ctx context.Context, intent Intent) string

	// ParseFileName decomposes name. The second return is false when the
	// name does not belong to this strategy.
	ParseFileName(name string) (Parsed, bool)
}

// Config carries the inputs strategies may need.
type Config struct {
	// Folder is scanned by the sequential strategy.
	Folder string
	// Lister provides file listing for the sequential strategy. Optional.
	Lister core.Lister
	// Template is the custom strategy's pattern.
	Template string
	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// ForKind returns the strategy for kind. An unrecognized kind falls back to
// the timestamp strategy.
func ForKind(kind Kind, cfg Config) Strategy {
	switch kind {
	case KindSequential:
		return NewSequential(cfg.Folder, cfg.Lister)
	case KindCustom:
		if strings.TrimSpace(cfg.Template) != "" {
			return NewCustom(cfg.Template, cfg.Now)
		}
		return NewTimestamp(cfg.Now)
	default:
		return NewTimestamp(cfg.Now)
	}
}

// stripExt tolerates names that arrive with their markdown extension.
func stripExt(name string) string {
	return strings.TrimSuffix(name, ".md")
}
