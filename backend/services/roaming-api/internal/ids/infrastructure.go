package ids

import (
	"regexp"
	"strings"
)

// Operator and provider ids share the "<country>*<party>" shape, e.g. "DE*GEF".
// The separator star is optional on input and always present in the
// canonical form.
var partyPattern = regexp.MustCompile(`^([A-Za-z]{2})\*?([A-Za-z0-9]{3})$`)

func parseParty(kind, text string) (string, error) {
	text = strings.TrimSpace(text)
	m := partyPattern.FindStringSubmatch(text)
	if m == nil {
		return "", invalid(kind, text)
	}
	return strings.ToUpper(m[1]) + "*" + strings.ToUpper(m[2]), nil
}

// OperatorID identifies a charging station operator.
type OperatorID string

// ParseOperatorID validates a charging station operator identifier.
func ParseOperatorID(text string) (OperatorID, error) {
	s, err := parseParty("charging station operator id", text)
	return OperatorID(s), err
}

func (id OperatorID) String() string { return string(id) }

// ProviderID identifies an e-mobility provider.
type ProviderID string

// ParseProviderID validates an e-mobility provider identifier.
func ParseProviderID(text string) (ProviderID, error) {
	s, err := parseParty("e-mobility provider id", text)
	return ProviderID(s), err
}

func (id ProviderID) String() string { return string(id) }

// Pools, stations and EVSEs are "<operator>*<type><suffix>" with type
// P, S or E respectively, e.g. "DE*GEF*E1234*1".
var infrastructurePattern = regexp.MustCompile(`^([A-Za-z]{2}\*?[A-Za-z0-9]{3})\*([PpSsEe])([A-Za-z0-9][A-Za-z0-9\*]{0,30})$`)

func parseInfrastructure(kind string, want byte, text string) (string, error) {
	text = strings.TrimSpace(text)
	m := infrastructurePattern.FindStringSubmatch(text)
	if m == nil || strings.ToUpper(m[2])[0] != want || strings.HasSuffix(m[3], "*") {
		return "", invalid(kind, text)
	}
	operator, err := parseParty(kind, m[1])
	if err != nil {
		return "", err
	}
	return operator + "*" + string(want) + strings.ToUpper(m[3]), nil
}

func operatorPrefix(id string) OperatorID {
	if len(id) < 6 {
		return ""
	}
	return OperatorID(id[:6])
}

// PoolID identifies a charging pool.
type PoolID string

// ParsePoolID validates a charging pool identifier.
func ParsePoolID(text string) (PoolID, error) {
	s, err := parseInfrastructure("charging pool id", 'P', text)
	return PoolID(s), err
}

func (id PoolID) String() string { return string(id) }

// OperatorID returns the operator part of the pool id.
func (id PoolID) OperatorID() OperatorID { return operatorPrefix(string(id)) }

// StationID identifies a charging station.
type StationID string

// ParseStationID validates a charging station identifier.
func ParseStationID(text string) (StationID, error) {
	s, err := parseInfrastructure("charging station id", 'S', text)
	return StationID(s), err
}

func (id StationID) String() string { return string(id) }

// OperatorID returns the operator part of the station id.
func (id StationID) OperatorID() OperatorID { return operatorPrefix(string(id)) }

// EVSEID identifies an EVSE.
type EVSEID string

// ParseEVSEID validates an EVSE identifier.
func ParseEVSEID(text string) (EVSEID, error) {
	s, err := parseInfrastructure("evse id", 'E', text)
	return EVSEID(s), err
}

func (id EVSEID) String() string { return string(id) }

// OperatorID returns the operator part of the EVSE id.
func (id EVSEID) OperatorID() OperatorID { return operatorPrefix(string(id)) }
