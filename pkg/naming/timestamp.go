package naming

import (
	"context"
	"fmt"
	"regexp"
	"time"
)

const timestampLayout = "20060102-150405"

var timestampPattern = regexp.MustCompile(`^Sticky-(\d{8}-\d{6})-(\d{3})$`)

// Timestamp names notes after their local creation time, down to the
// millisecond for collision resistance.
type Timestamp struct {
	now func() time.Time
}

// NewTimestamp creates the timestamp strategy. now may be nil.
func NewTimestamp(now func() time.Time) *Timestamp {
	if now == nil {
		now = time.Now
	}
	return &Timestamp{now: now}
}

func (s *Timestamp) GenerateFileName(_ context.Context, _ Intent) string {
	t := s.now()
	return fmt.Sprintf("Sticky-%s-%03d", t.Format(timestampLayout), t.Nanosecond()/1e6)
}

func (s *Timestamp) ParseFileName(name string) (Parsed, bool) {
	m := timestampPattern.FindStringSubmatch(stripExt(name))
	if m == nil {
		return Parsed{}, false
	}
	t, err := time.ParseInLocation(timestampLayout, m[1], time.Local)
	if err != nil {
		return Parsed{}, false
	}
	var ms int
	fmt.Sscanf(m[2], "%d", &ms)
	t = t.Add(time.Duration(ms) * time.Millisecond)
	return Parsed{Timestamp: &t}, true
}
