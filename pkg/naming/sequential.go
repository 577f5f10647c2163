package naming

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/telmoq/stickysync/pkg/core"
)

var sequentialPattern = regexp.MustCompile(`^Sticky-(\d{4})$`)

// Sequential names notes Sticky-NNNN, zero-padded to four digits. The next
// number is max(existing sequence numbers) + 1, scanning the target folder
// through the injected lister. Names that do not match the pattern are
// ignored, not counted.
type Sequential struct {
	folder string
	lister core.Lister
}

// NewSequential creates the sequential strategy. lister may be nil, in which
// case numbering starts at 1.
func NewSequential(folder string, lister core.Lister) *Sequential {
	return &Sequential{folder: folder, lister: lister}
}

func (s *Sequential) GenerateFileName(ctx context.Context, _ Intent) string {
	return fmt.Sprintf("Sticky-%04d", s.nextNumber(ctx))
}

func (s *Sequential) nextNumber(ctx context.Context) int {
	if s.lister == nil {
		return 1
	}
	names, err := s.lister(ctx, s.folder)
	if err != nil {
		// A strategy never fails; an unreadable folder means "no existing
		// notes" and numbering starts over at 1.
		return 1
	}
	max := 0
	for _, name := range names {
		if parsed, ok := s.ParseFileName(name); ok && parsed.SeqNo > max {
			max = parsed.SeqNo
		}
	}
	return max + 1
}

func (s *Sequential) ParseFileName(name string) (Parsed, bool) {
	m := sequentialPattern.FindStringSubmatch(stripExt(name))
	if m == nil {
		return Parsed{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return Parsed{}, false
	}
	return Parsed{SeqNo: n}, true
}
