// Package ids contains the typed identifiers used in URL paths and request
// bodies. Every identifier has a canonical string form and a total parse
// function: parsing never panics and returns ErrInvalid on malformed input.
package ids

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalid is returned (wrapped) by every Parse function.
var ErrInvalid = errors.New("ids: invalid identifier")

func invalid(kind, text string) error {
	return fmt.Errorf("%w: %s %q", ErrInvalid, kind, text)
}

// RoamingNetworkID identifies a roaming network within a hostname.
type RoamingNetworkID string

var roamingNetworkPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_\-\.]{0,49}$`)

// ParseRoamingNetworkID validates a roaming network identifier.
func ParseRoamingNetworkID(text string) (RoamingNetworkID, error) {
	text = strings.TrimSpace(text)
	if !roamingNetworkPattern.MatchString(text) {
		return "", invalid("roaming network id", text)
	}
	return RoamingNetworkID(text), nil
}

func (id RoamingNetworkID) String() string { return string(id) }

// token is the shape shared by identifiers without inner structure
// (reservations, sessions, products, brands, groups, tariffs).
var tokenPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9\-_\.\*:]{0,99}$`)

func parseToken(kind, text string) (string, error) {
	text = strings.TrimSpace(text)
	if !tokenPattern.MatchString(text) {
		return "", invalid(kind, text)
	}
	return text, nil
}

// ReservationID identifies a charging reservation.
type ReservationID string

// ParseReservationID validates a reservation identifier.
func ParseReservationID(text string) (ReservationID, error) {
	s, err := parseToken("reservation id", text)
	return ReservationID(s), err
}

func (id ReservationID) String() string { return string(id) }

// SessionID identifies a charging session.
type SessionID string

// ParseSessionID validates a charging session identifier.
func ParseSessionID(text string) (SessionID, error) {
	s, err := parseToken("session id", text)
	return SessionID(s), err
}

func (id SessionID) String() string { return string(id) }

// ChargingProductID identifies a charging product (tariff product code).
type ChargingProductID string

// ParseChargingProductID validates a charging product identifier.
func ParseChargingProductID(text string) (ChargingProductID, error) {
	s, err := parseToken("charging product id", text)
	return ChargingProductID(s), err
}

func (id ChargingProductID) String() string { return string(id) }

// BrandID identifies a brand of an operator.
type BrandID string

// ParseBrandID validates a brand identifier.
func ParseBrandID(text string) (BrandID, error) {
	s, err := parseToken("brand id", text)
	return BrandID(s), err
}

func (id BrandID) String() string { return string(id) }

// ChargingStationGroupID identifies a charging station group.
type ChargingStationGroupID string

// ParseChargingStationGroupID validates a charging station group identifier.
func ParseChargingStationGroupID(text string) (ChargingStationGroupID, error) {
	s, err := parseToken("charging station group id", text)
	return ChargingStationGroupID(s), err
}

func (id ChargingStationGroupID) String() string { return string(id) }

// EVSEGroupID identifies an EVSE group.
type EVSEGroupID string

// ParseEVSEGroupID validates an EVSE group identifier.
func ParseEVSEGroupID(text string) (EVSEGroupID, error) {
	s, err := parseToken("evse group id", text)
	return EVSEGroupID(s), err
}

func (id EVSEGroupID) String() string { return string(id) }

// TariffID identifies a charging tariff.
type TariffID string

// ParseTariffID validates a tariff identifier.
func ParseTariffID(text string) (TariffID, error) {
	s, err := parseToken("tariff id", text)
	return TariffID(s), err
}

func (id TariffID) String() string { return string(id) }

// PIN is a reservation PIN. Only digits, 4 to 8 of them.
type PIN string

var pinPattern = regexp.MustCompile(`^[0-9]{4,8}$`)

// ParsePIN validates a PIN.
func ParsePIN(text string) (PIN, error) {
	text = strings.TrimSpace(text)
	if !pinPattern.MatchString(text) {
		return "", invalid("pin", text)
	}
	return PIN(text), nil
}

func (p PIN) String() string { return string(p) }
