package entity

// RedactionMarker replaces secret material in any loggable text.
const RedactionMarker = "***REDACTED***"

const mask = "********"

// Secret wraps a sensitive string so it cannot reach a log or a config dump
// by accident: fmt verbs, zap fields and text marshaling all see the masked
// form. Only Reveal returns the raw value.
type Secret struct {
	value string
}

func NewSecret(v string) Secret { return Secret{value: v} }

// Reveal returns the raw secret value.
func (s Secret) Reveal() string { return s.value }

func (s Secret) IsZero() bool { return s.value == "" }

func (s Secret) String() string {
	if s.value == "" {
		return ""
	}
	return mask
}

func (s Secret) GoString() string { return "entity.Secret{}" }

func (s Secret) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Secret) UnmarshalText(b []byte) error {
	s.value = string(b)
	return nil
}
