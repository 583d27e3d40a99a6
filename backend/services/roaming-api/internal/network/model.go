package network

import (
	"sort"
	"sync"
	"time"

	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/ids"
)

// idSet is a concurrency-safe set of identifiers. Entities reference each
// other only through these sets; the objects live in the RoamingNetwork arena.
type idSet[T ~string] struct {
	mu sync.RWMutex
	m  map[T]struct{}
}

func (s *idSet[T]) add(id T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m == nil {
		s.m = make(map[T]struct{})
	}
	s.m[id] = struct{}{}
}

func (s *idSet[T]) remove(id T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
}

func (s *idSet[T]) has(id T) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.m[id]
	return ok
}

// list returns the identifiers ordered by their string form.
func (s *idSet[T]) list() []T {
	s.mu.RLock()
	out := make([]T, 0, len(s.m))
	for id := range s.m {
		out = append(out, id)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *idSet[T]) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// Statuses bundles the admin status and status schedules every
// infrastructure entity carries.
type Statuses struct {
	AdminStatus *Schedule[AdminStatusType]
	Status      *Schedule[StatusType]
}

func newStatuses(admin AdminStatusType, status StatusType, at time.Time, maxHistory int) Statuses {
	return Statuses{
		AdminStatus: NewSchedule(admin, at, maxHistory),
		Status:      NewSchedule(status, at, maxHistory),
	}
}

// LastChange is the timestamp of the most recent status or admin status entry.
func (s Statuses) LastChange() time.Time {
	a := s.AdminStatus.Current().Timestamp
	b := s.Status.Current().Timestamp
	if a.After(b) {
		return a
	}
	return b
}

// Operator is a charging station operator.
type Operator struct {
	ID          ids.OperatorID
	NetworkID   ids.RoamingNetworkID
	Name        string
	Description string
	Statuses

	pools         idSet[ids.PoolID]
	brands        idSet[ids.BrandID]
	stationGroups idSet[ids.ChargingStationGroupID]
	evseGroups    idSet[ids.EVSEGroupID]
	tariffs       idSet[ids.TariffID]
}

// PoolIDs lists the pools owned by the operator.
func (o *Operator) PoolIDs() []ids.PoolID { return o.pools.list() }

// HasPool reports whether the pool belongs to the operator.
func (o *Operator) HasPool(id ids.PoolID) bool { return o.pools.has(id) }

// BrandIDs lists the operator's brands.
func (o *Operator) BrandIDs() []ids.BrandID { return o.brands.list() }

// StationGroupIDs lists the operator's charging station groups.
func (o *Operator) StationGroupIDs() []ids.ChargingStationGroupID { return o.stationGroups.list() }

// EVSEGroupIDs lists the operator's EVSE groups.
func (o *Operator) EVSEGroupIDs() []ids.EVSEGroupID { return o.evseGroups.list() }

// TariffIDs lists the operator's tariffs.
func (o *Operator) TariffIDs() []ids.TariffID { return o.tariffs.list() }

// Pool is a charging pool, a location with one or more stations.
type Pool struct {
	ID          ids.PoolID
	OperatorID  ids.OperatorID
	NetworkID   ids.RoamingNetworkID
	Name        string
	Description string
	Address     string
	Statuses

	stations idSet[ids.StationID]
	brands   idSet[ids.BrandID]
}

// StationIDs lists the stations of the pool.
func (p *Pool) StationIDs() []ids.StationID { return p.stations.list() }

// HasStation reports whether the station belongs to the pool.
func (p *Pool) HasStation(id ids.StationID) bool { return p.stations.has(id) }

// BrandIDs lists the brands attached to the pool.
func (p *Pool) BrandIDs() []ids.BrandID { return p.brands.list() }

// Station is a charging station inside a pool.
type Station struct {
	ID         ids.StationID
	PoolID     ids.PoolID
	OperatorID ids.OperatorID
	NetworkID  ids.RoamingNetworkID
	Name       string
	Statuses

	evses  idSet[ids.EVSEID]
	brands idSet[ids.BrandID]
	groups idSet[ids.ChargingStationGroupID]
}

// EVSEIDs lists the EVSEs of the station.
func (s *Station) EVSEIDs() []ids.EVSEID { return s.evses.list() }

// HasEVSE reports whether the EVSE belongs to the station.
func (s *Station) HasEVSE(id ids.EVSEID) bool { return s.evses.has(id) }

// BrandIDs lists the brands attached to the station.
func (s *Station) BrandIDs() []ids.BrandID { return s.brands.list() }

// GroupIDs lists the station groups the station is a member of.
func (s *Station) GroupIDs() []ids.ChargingStationGroupID { return s.groups.list() }

// EVSE is a single charge point.
type EVSE struct {
	ID         ids.EVSEID
	StationID  ids.StationID
	PoolID     ids.PoolID
	OperatorID ids.OperatorID
	NetworkID  ids.RoamingNetworkID
	MaxPower   float64
	Sockets    []string
	Statuses

	brands  idSet[ids.BrandID]
	groups  idSet[ids.EVSEGroupID]
	tariffs idSet[ids.TariffID]
}

// BrandIDs lists the brands attached to the EVSE.
func (e *EVSE) BrandIDs() []ids.BrandID { return e.brands.list() }

// GroupIDs lists the EVSE groups the EVSE is a member of.
func (e *EVSE) GroupIDs() []ids.EVSEGroupID { return e.groups.list() }

// TariffIDs lists the tariffs applying to the EVSE.
func (e *EVSE) TariffIDs() []ids.TariffID { return e.tariffs.list() }

// Brand tags pools, stations and EVSEs of one operator.
type Brand struct {
	ID         ids.BrandID
	OperatorID ids.OperatorID
	Name       string
	Logo       string
	Homepage   string

	pools    idSet[ids.PoolID]
	stations idSet[ids.StationID]
	evses    idSet[ids.EVSEID]
}

// PoolIDs lists the pools carrying the brand.
func (b *Brand) PoolIDs() []ids.PoolID { return b.pools.list() }

// StationIDs lists the stations carrying the brand.
func (b *Brand) StationIDs() []ids.StationID { return b.stations.list() }

// EVSEIDs lists the EVSEs carrying the brand.
func (b *Brand) EVSEIDs() []ids.EVSEID { return b.evses.list() }

// StationGroup groups charging stations of one operator.
type StationGroup struct {
	ID          ids.ChargingStationGroupID
	OperatorID  ids.OperatorID
	Name        string
	Description string

	stations idSet[ids.StationID]
}

// StationIDs lists the group members.
func (g *StationGroup) StationIDs() []ids.StationID { return g.stations.list() }

// EVSEGroup groups EVSEs of one operator.
type EVSEGroup struct {
	ID          ids.EVSEGroupID
	OperatorID  ids.OperatorID
	Name        string
	Description string

	evses idSet[ids.EVSEID]
}

// EVSEIDs lists the group members.
func (g *EVSEGroup) EVSEIDs() []ids.EVSEID { return g.evses.list() }

// Tariff is a simple energy/time price.
type Tariff struct {
	ID             ids.TariffID
	OperatorID     ids.OperatorID
	Name           string
	Currency       string
	PricePerKWh    float64
	PricePerMinute float64
	SessionFee     float64

	evses idSet[ids.EVSEID]
}

// EVSEIDs lists the EVSEs the tariff applies to.
func (t *Tariff) EVSEIDs() []ids.EVSEID { return t.evses.list() }

// Provider is an e-mobility provider. Its allow-lists decide authorization.
type Provider struct {
	ID          ids.ProviderID
	NetworkID   ids.RoamingNetworkID
	Name        string
	Description string
	Statuses

	authTokens idSet[ids.AuthToken]
	emaids     idSet[ids.EMAID]
}

// AuthTokens lists the tokens the provider authorizes.
func (p *Provider) AuthTokens() []ids.AuthToken { return p.authTokens.list() }

// EMAIDs lists the accounts the provider authorizes.
func (p *Provider) EMAIDs() []ids.EMAID { return p.emaids.list() }

// AllowToken adds a token to the allow-list.
func (p *Provider) AllowToken(token ids.AuthToken) { p.authTokens.add(token) }

// AllowEMAID adds an account to the allow-list.
func (p *Provider) AllowEMAID(id ids.EMAID) { p.emaids.add(id) }

// Identification is how a driver identified at the start or stop of a session.
type Identification struct {
	AuthToken ids.AuthToken `json:"AuthToken,omitempty"`
	EMAID     ids.EMAID     `json:"eMAId,omitempty"`
}

// IsZero reports whether neither token nor account is set.
func (i Identification) IsZero() bool { return i.AuthToken == "" && i.EMAID == "" }

func (i Identification) String() string {
	if i.AuthToken != "" {
		return i.AuthToken.String()
	}
	return i.EMAID.String()
}

// CancellationReason explains why a reservation ended early.
type CancellationReason string

// Cancellation reasons.
const (
	CancellationReasonDeleted  CancellationReason = "Deleted"
	CancellationReasonExpired  CancellationReason = "Expired"
	CancellationReasonConsumed CancellationReason = "Consumed"
	CancellationReasonAborted  CancellationReason = "Aborted"
)

// ReservationLevel is the granularity of a reservation target.
type ReservationLevel string

// Reservation levels.
const (
	ReservationLevelEVSE    ReservationLevel = "EVSE"
	ReservationLevelStation ReservationLevel = "ChargingStation"
	ReservationLevelPool    ReservationLevel = "ChargingPool"
)

// IntendedCharging is what the driver plans to do with a reservation.
type IntendedCharging struct {
	StartTime   *time.Time
	Duration    time.Duration
	ProductID   ids.ChargingProductID
	Plug        string
	Consumption float64
}

// Reservation is a time-boxed hold on an EVSE.
type Reservation struct {
	ID                 ids.ReservationID
	NetworkID          ids.RoamingNetworkID
	Timestamp          time.Time
	Level              ReservationLevel
	EVSEID             ids.EVSEID
	StationID          ids.StationID
	PoolID             ids.PoolID
	OperatorID         ids.OperatorID
	ProviderID         ids.ProviderID
	EMAID              ids.EMAID
	StartTime          time.Time
	Duration           time.Duration
	Intended           *IntendedCharging
	AuthTokens         []ids.AuthToken
	EMAIDs             []ids.EMAID
	PINs               []ids.PIN
	CancellationReason CancellationReason
}

// EndTime is StartTime plus Duration.
func (r *Reservation) EndTime() time.Time { return r.StartTime.Add(r.Duration) }

// Allows reports whether the identification may consume the reservation.
func (r *Reservation) Allows(id Identification) bool {
	if id.EMAID != "" && id.EMAID == r.EMAID {
		return true
	}
	for _, t := range r.AuthTokens {
		if id.AuthToken != "" && t == id.AuthToken {
			return true
		}
	}
	for _, e := range r.EMAIDs {
		if id.EMAID != "" && e == id.EMAID {
			return true
		}
	}
	return false
}

// Session is a charging session.
type Session struct {
	ID            ids.SessionID
	NetworkID     ids.RoamingNetworkID
	EVSEID        ids.EVSEID
	OperatorID    ids.OperatorID
	ProviderID    ids.ProviderID
	ReservationID ids.ReservationID
	ProductID     ids.ChargingProductID
	AuthStart     Identification
	AuthStop      Identification
	StartTime     time.Time
	StopTime      *time.Time
	CDRSent       bool
}

// ChargeDetailRecord is the settled record of one session.
type ChargeDetailRecord struct {
	SessionID       ids.SessionID
	NetworkID       ids.RoamingNetworkID
	EVSEID          ids.EVSEID
	OperatorID      ids.OperatorID
	ProviderID      ids.ProviderID
	ReservationID   ids.ReservationID
	ProductID       ids.ChargingProductID
	Identification  Identification
	SessionStart    time.Time
	SessionEnd      time.Time
	ChargeStart     time.Time
	ChargeEnd       time.Time
	MeterValueStart float64
	MeterValueEnd   float64
}

// ConsumedEnergy is MeterValueEnd minus MeterValueStart.
func (c ChargeDetailRecord) ConsumedEnergy() float64 { return c.MeterValueEnd - c.MeterValueStart }
