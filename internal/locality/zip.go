package locality

import "regexp"

var reZIP = regexp.MustCompile(`[0-9]{5}`)

// NormalizeZIP extracts the first run of five digits from free text
// ("ZIP: 14850-1234" -> "14850"). Input without one yields "", which callers
// treat as an absent postal code rather than an error.
func NormalizeZIP(raw string) string {
	return reZIP.FindString(raw)
}
