package naming

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Custom renders a user-supplied template with date-time placeholders:
// {YYYY} {MM} {DD} {HH} {mm} {ss} {SSS}. Templates without millisecond
// resolution get a short random suffix appended, since two notes created
// within the same template resolution would otherwise collide.
type Custom struct {
	template string
	now      func() time.Time
}

// NewCustom creates the custom strategy. now may be nil.
func NewCustom(template string, now func() time.Time) *Custom {
	if now == nil {
		now = time.Now
	}
	return &Custom{template: template, now: now}
}

func (s *Custom) GenerateFileName(_ context.Context, _ Intent) string {
	t := s.now()
	r := strings.NewReplacer(
		"{YYYY}", fmt.Sprintf("%04d", t.Year()),
		"{MM}", fmt.Sprintf("%02d", int(t.Month())),
		"{DD}", fmt.Sprintf("%02d", t.Day()),
		"{HH}", fmt.Sprintf("%02d", t.Hour()),
		"{mm}", fmt.Sprintf("%02d", t.Minute()),
		"{ss}", fmt.Sprintf("%02d", t.Second()),
		"{SSS}", fmt.Sprintf("%03d", t.Nanosecond()/1e6),
	)
	name := r.Replace(s.template)

	if !strings.Contains(s.template, "{SSS}") {
		name += "-" + randomSuffix(4)
	}
	return name
}

// ParseFileName cannot recover fields from an arbitrary template.
func (s *Custom) ParseFileName(_ string) (Parsed, bool) {
	return Parsed{}, false
}

func randomSuffix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = suffixAlphabet[rand.Intn(len(suffixAlphabet))]
	}
	return string(b)
}
