// Package restore normalizes raw decoded records into well-formed notes.
//
// The file store is editable by other actors, so persisted headers are
// untrusted: fields may be missing, mistyped, NaN or out of range. Every
// inconsistency is corrected and reported as a warning, never as an error.
package restore

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/telmoq/stickysync/pkg/core"
)

// Warning records a single correction applied during restoration.
type Warning struct {
	Field   string
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Field, w.Message)
}

// Validator repairs malformed persisted data. The zero value is not usable;
// construct with New.
type Validator struct {
	bounds core.Bounds
	logger *slog.Logger
}

// New creates a Validator clamping positions to bounds. logger may be nil.
func New(bounds core.Bounds, logger *slog.Logger) *Validator {
	return &Validator{bounds: bounds, logger: logger}
}

// CorrectPosition coerces raw into an in-bounds Position.
func (v *Validator) CorrectPosition(raw any) (core.Position, []Warning) {
	var warns []Warning
	pos := core.Position{X: v.bounds.MinX, Y: v.bounds.MinY}

	fields, ok := asMap(raw)
	if !ok {
		if raw != nil {
			warns = append(warns, Warning{"position", "not an object, defaults substituted"})
		} else {
			warns = append(warns, Warning{"position", "missing, defaults substituted"})
		}
		return pos, warns
	}

	pos.X, warns = v.correctCoord(fields["x"], "position.x", v.bounds.MinX, v.bounds.MaxX, warns)
	pos.Y, warns = v.correctCoord(fields["y"], "position.y", v.bounds.MinY, v.bounds.MaxY, warns)

	z, ok := asInt(fields["z"])
	switch {
	case !ok:
		warns = append(warns, Warning{"position.z", "missing or not a number, default substituted"})
	case z < 0:
		warns = append(warns, Warning{"position.z", "negative, clamped to 0"})
	default:
		pos.ZIndex = z
	}

	return pos, warns
}

func (v *Validator) correctCoord(raw any, field string, min, max float64, warns []Warning) (float64, []Warning) {
	f, ok := asFloat(raw)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return min, append(warns, Warning{field, "missing or not a finite number, default substituted"})
	}
	if f < min {
		return min, append(warns, Warning{field, fmt.Sprintf("below canvas bound, clamped to %g", min)})
	}
	if f > max {
		return max, append(warns, Warning{field, fmt.Sprintf("above canvas bound, clamped to %g", max)})
	}
	return f, warns
}

// CorrectDimensions coerces raw into strictly positive Dimensions.
func (v *Validator) CorrectDimensions(raw any) (core.Dimensions, []Warning) {
	var warns []Warning
	dims := core.DefaultDimensions()

	fields, ok := asMap(raw)
	if !ok {
		if raw != nil {
			warns = append(warns, Warning{"dimensions", "not an object, defaults substituted"})
		}
		return dims, warns
	}

	if w, ok := asFloat(fields["width"]); ok && !math.IsNaN(w) && w > 0 {
		dims.Width = w
	} else {
		warns = append(warns, Warning{"dimensions.width", "missing or not strictly positive, default substituted"})
	}
	if h, ok := asFloat(fields["height"]); ok && !math.IsNaN(h) && h > 0 {
		dims.Height = h
	} else {
		warns = append(warns, Warning{"dimensions.height", "missing or not strictly positive, default substituted"})
	}

	return dims, warns
}

// CorrectAppearance coerces raw into an Appearance with valid enum fields.
func (v *Validator) CorrectAppearance(raw any) (core.Appearance, []Warning) {
	var warns []Warning
	app := core.DefaultAppearance()

	fields, ok := asMap(raw)
	if !ok {
		if raw != nil {
			warns = append(warns, Warning{"appearance", "not an object, defaults substituted"})
		}
		return app, warns
	}

	if c, ok := fields["color"].(string); ok && core.Color(c).Valid() {
		app.Color = core.Color(c)
	} else {
		warns = append(warns, Warning{"appearance.color", "unknown color, default substituted"})
	}
	if s, ok := fields["size"].(string); ok && core.Size(s).Valid() {
		app.Size = core.Size(s)
	} else {
		warns = append(warns, Warning{"appearance.size", "unknown size, default substituted"})
	}
	if r, ok := asFloat(fields["rotation"]); ok && !math.IsNaN(r) && !math.IsInf(r, 0) {
		app.Rotation = r
	} else if fields["rotation"] != nil {
		warns = append(warns, Warning{"appearance.rotation", "not a finite number, default substituted"})
	}

	return app, warns
}

// ValidateAndCorrectNote assembles a structurally complete, bounds-respecting
// Note from a raw decoded header. It never fails: any input, including nil,
// yields a valid Note plus the warnings that were generated along the way.
func (v *Validator) ValidateAndCorrectNote(raw map[string]any) (core.Note, []Warning) {
	var warns []Warning
	var n core.Note

	if raw == nil {
		raw = map[string]any{}
		warns = append(warns, Warning{"note", "missing header, defaults substituted"})
	}

	if id, ok := raw["id"].(string); ok {
		n.ID = id
	} else {
		warns = append(warns, Warning{"id", "missing or not a string"})
	}

	if done, ok := raw["completed"].(bool); ok {
		n.Completed = done
	} else {
		warns = append(warns, Warning{"completed", "missing or not a boolean, default substituted"})
	}

	var w []Warning
	n.Position, w = v.CorrectPosition(raw["position"])
	warns = append(warns, w...)
	n.Dimensions, w = v.CorrectDimensions(raw["dimensions"])
	warns = append(warns, w...)
	n.Appearance, w = v.CorrectAppearance(raw["appearance"])
	warns = append(warns, w...)

	n.Metadata, w = v.correctMeta(raw)
	warns = append(warns, w...)

	if v.logger != nil {
		for _, warn := range warns {
			v.logger.Warn("restored corrupted field", "id", n.ID, "field", warn.Field, "detail", warn.Message)
		}
	}

	return n, warns
}

func (v *Validator) correctMeta(raw map[string]any) (core.Meta, []Warning) {
	var warns []Warning
	meta := core.Meta{}

	created, ok := asTime(raw["created"])
	if !ok {
		created = time.Now()
		warns = append(warns, Warning{"created", "missing or unparseable, set to now"})
	}
	meta.Created = created

	modified, ok := asTime(raw["modified"])
	if !ok {
		modified = created
		warns = append(warns, Warning{"modified", "missing or unparseable, set to created"})
	}
	if modified.Before(created) {
		modified = created
		warns = append(warns, Warning{"modified", "earlier than created, clamped forward"})
	}
	meta.Modified = modified

	meta.Tags = asStringSet(raw["tags"])
	meta.Links = asStringSet(raw["links"])
	meta.Attachments = asStringSet(raw["attachments"])

	return meta, warns
}

// --- coercion helpers ---

func asMap(raw any) (map[string]any, bool) {
	m, ok := raw.(map[string]any)
	return m, ok
}

func asFloat(raw any) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func asInt(raw any) (int, bool) {
	switch n := raw.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

func asTime(raw any) (time.Time, bool) {
	switch t := raw.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	default:
		return time.Time{}, false
	}
}

// asStringSet collapses a raw list into a deduplicated string slice,
// silently dropping non-string elements.
func asStringSet(raw any) []string {
	items, ok := raw.([]any)
	if !ok {
		if strs, ok := raw.([]string); ok {
			items = make([]any, len(strs))
			for i, s := range strs {
				items[i] = s
			}
		} else {
			return nil
		}
	}
	seen := make(map[string]bool, len(items))
	var out []string
	for _, item := range items {
		s, ok := item.(string)
		if !ok || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
