package ids

import (
	"regexp"
	"strings"
)

// EMAID is an e-mobility account identifier, e.g. "DE*GDF*00112233*1".
type EMAID string

var emaidPattern = regexp.MustCompile(`^([A-Za-z]{2})\*?([A-Za-z0-9]{3})\*?([A-Za-z0-9]{8})(?:\*?([A-Za-z0-9]))?$`)

// ParseEMAID validates an e-mobility account identifier.
func ParseEMAID(text string) (EMAID, error) {
	text = strings.TrimSpace(text)
	m := emaidPattern.FindStringSubmatch(text)
	if m == nil {
		return "", invalid("emaid", text)
	}
	parts := []string{strings.ToUpper(m[1]), strings.ToUpper(m[2]), strings.ToUpper(m[3])}
	if m[4] != "" {
		parts = append(parts, strings.ToUpper(m[4]))
	}
	return EMAID(strings.Join(parts, "*")), nil
}

func (id EMAID) String() string { return string(id) }

// ProviderID returns the provider part of the account id.
func (id EMAID) ProviderID() ProviderID {
	if len(id) < 6 {
		return ""
	}
	return ProviderID(id[:6])
}

// AuthToken is an RFID card UID in hex notation.
type AuthToken string

var authTokenPattern = regexp.MustCompile(`^[A-Fa-f0-9]{4,20}$`)

// ParseAuthToken validates an auth token.
func ParseAuthToken(text string) (AuthToken, error) {
	text = strings.TrimSpace(text)
	if !authTokenPattern.MatchString(text) {
		return "", invalid("auth token", text)
	}
	return AuthToken(strings.ToUpper(text)), nil
}

func (t AuthToken) String() string { return string(t) }
