package utils

import "strings"

const fullyMasked = "**** **** **** ****"

// MaskCardNumber renders a stored last-4 fragment as a display string.
// An empty fragment yields a fully masked placeholder. Malformed input is
// handled permissively: non-digits are stripped and at most the last four
// digits are shown.
func MaskCardNumber(last4 string) string {
	if last4 == "" {
		return fullyMasked
	}

	var sb strings.Builder
	for _, r := range last4 {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	visible := sb.String()
	if len(visible) > 4 {
		visible = visible[len(visible)-4:]
	}

	return "**** **** **** " + visible
}
