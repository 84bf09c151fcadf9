package study

import (
	"time"

	"go.uber.org/zap"
)

// UnknownDate is the registry's placeholder for a date it does not know.
const UnknownDate = "Unknown"

var dateLayouts = []string{"January 2, 2006", "January 2006"}

// VariableDate is a registry date together with its precision tag
// ("Actual", "Estimate", "Anticipated").
type VariableDate struct {
	Raw  string     `json:"raw"`
	Type string     `json:"type,omitempty"`
	Date *time.Time `json:"date,omitempty"`
	// Unknown is set when Raw is the "Unknown" sentinel; Date is nil then.
	Unknown bool `json:"unknown,omitempty"`
}

// ParseDate builds a VariableDate from either a bare date string or a
// {"$": date, "@type": precision} fragment. It returns nil for an absent
// field. Unparsable dates are logged and keep their raw text with a nil Date.
func ParseDate(field any, log *zap.Logger) *VariableDate {
	if log == nil {
		log = zap.NewNop()
	}
	var d *VariableDate
	switch v := field.(type) {
	case nil:
		return nil
	case string:
		d = &VariableDate{Raw: v}
	case Fragment, map[string]any:
		m, _ := asFragment(v)
		d = &VariableDate{Raw: m.String("$", ""), Type: m.String("@type", "")}
	default:
		log.Error("Unexpected date value", zap.Any("value", field), zap.String("type", typeName(field)))
		return nil
	}
	d.resolve(log)
	return d
}

func (d *VariableDate) resolve(log *zap.Logger) {
	if d.Raw == UnknownDate {
		d.Unknown = true
		return
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, d.Raw); err == nil {
			d.Date = &t
			return
		}
	}
	log.Warn("Unable to parse date", zap.String("raw", d.Raw), zap.String("type", d.Type))
}

// Equal compares the resolved values only; precision tags and raw text are ignored.
func (d *VariableDate) Equal(other *VariableDate) bool {
	if d == nil || other == nil {
		return d == other
	}
	if d.Unknown || other.Unknown {
		return d.Unknown == other.Unknown
	}
	if d.Date == nil || other.Date == nil {
		return d.Date == nil && other.Date == nil
	}
	return d.Date.Equal(*other.Date)
}

// EqualTime reports whether the resolved calendar date is t's date.
func (d *VariableDate) EqualTime(t time.Time) bool {
	if d == nil || d.Date == nil {
		return false
	}
	y1, m1, d1 := d.Date.Date()
	y2, m2, d2 := t.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// String renders the resolved value the way the registry prints it.
func (d *VariableDate) String() string {
	switch {
	case d == nil:
		return ""
	case d.Unknown:
		return UnknownDate
	case d.Date == nil:
		return ""
	}
	return d.Date.Format("2006-01-02")
}

// Time returns the resolved date, or nil when it is absent, unknown or unparsable.
func (d *VariableDate) Time() *time.Time {
	if d == nil {
		return nil
	}
	return d.Date
}
