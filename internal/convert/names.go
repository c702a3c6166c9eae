package convert

import (
	"fmt"
	"strings"
	"unicode"
)

// mkname normalizes a raw name for use inside a URI: spaces and path
// separators become underscores.
func mkname(name string) string {
	return strings.NewReplacer(" ", "_", "/", "_").Replace(name)
}

// titleCase uppercases the first letter of every letter-run and
// lowercases the rest, so "binary_sensor" becomes "Binary_Sensor".
// Class and instance names in the vocabulary follow this convention.
func titleCase(s string) string {
	var sb strings.Builder
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				sb.WriteRune(unicode.ToLower(r))
			} else {
				sb.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
		} else {
			sb.WriteRune(r)
			prevLetter = false
		}
	}
	return sb.String()
}

// splitEntityID splits "domain.name". Exactly one separator is
// required; anything else is a hard error for that entity.
func splitEntityID(entityID string) (domain, name string, err error) {
	if strings.Count(entityID, ".") != 1 {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedEntityID, entityID)
	}
	i := strings.IndexByte(entityID, '.')
	return entityID[:i], entityID[i+1:], nil
}
