// Package resolve turns ordered URL path parameters into validated entities
// of the roaming network arena, or into the first failing HTTP error.
package resolve

import (
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/apierr"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/ids"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/network"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/tenants"
)

// Resolved carries the entities a chain resolved so far. Only the fields of
// the chain's shape are set.
type Resolved struct {
	Host string

	Network      *network.RoamingNetwork
	Operator     *network.Operator
	Pool         *network.Pool
	Station      *network.Station
	EVSE         *network.EVSE
	Brand        *network.Brand
	StationGroup *network.StationGroup
	EVSEGroup    *network.EVSEGroup
	Tariff       *network.Tariff
	Provider     *network.Provider
	Reservation  *network.Reservation
	Session      *network.Session
}

// Step consumes one path segment.
type Step func(r *Resolved, segment string) *apierr.Error

type link struct {
	kind string
	step Step
}

// Chain is an immutable sequence of steps. Longer chains are built from
// shorter ones with Then.
type Chain struct {
	links []link
}

// Then returns a new chain with one more step appended.
func (c Chain) Then(kind string, s Step) Chain {
	links := make([]link, len(c.links), len(c.links)+1)
	copy(links, c.links)
	return Chain{links: append(links, link{kind: kind, step: s})}
}

// Len is the number of path parameters the chain consumes.
func (c Chain) Len() int { return len(c.links) }

// Resolve runs the chain against params. The first failing step ends it.
func (c Chain) Resolve(host string, params []string) (*Resolved, *apierr.Error) {
	r := &Resolved{Host: host}
	for i, l := range c.links {
		if i >= len(params) {
			return nil, apierr.BadRequest("Missing %sId parameter!", l.kind)
		}
		if err := l.step(r, params[i]); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// lookup builds a step from a parser, a lookup in the already resolved
// parent and an assignment of the result.
func lookup[ID ~string, E any](kind string, parse func(string) (ID, error), find func(*Resolved, ID) (E, bool), assign func(*Resolved, E)) Step {
	return func(r *Resolved, segment string) *apierr.Error {
		id, err := parse(segment)
		if err != nil {
			return apierr.BadRequest("Invalid %sId!", kind)
		}
		e, ok := find(r, id)
		if !ok {
			return apierr.NotFound("Unknown %sId!", kind)
		}
		assign(r, e)
		return nil
	}
}

// Entity kinds, as they appear in error descriptions.
const (
	KindNetwork      = "RoamingNetwork"
	KindOperator     = "ChargingStationOperator"
	KindPool         = "ChargingPool"
	KindStation      = "ChargingStation"
	KindEVSE         = "EVSE"
	KindBrand        = "Brand"
	KindStationGroup = "ChargingStationGroup"
	KindEVSEGroup    = "EVSEGroup"
	KindTariff       = "ChargingTariff"
	KindProvider     = "eMobilityProvider"
	KindReservation  = "ChargingReservation"
	KindSession      = "ChargingSession"
)

// Resolvers holds the composite chains used by the HTTP handlers.
type Resolvers struct {
	Network Chain

	NetworkOperator             Chain
	NetworkOperatorPool         Chain
	NetworkOperatorStation      Chain
	NetworkOperatorBrand        Chain
	NetworkOperatorStationGroup Chain
	NetworkOperatorEVSEGroup    Chain
	NetworkOperatorTariff       Chain

	NetworkPool            Chain
	NetworkPoolStation     Chain
	NetworkPoolStationEVSE Chain
	NetworkStation         Chain
	NetworkStationEVSE     Chain
	NetworkEVSE            Chain

	NetworkProvider    Chain
	NetworkReservation Chain
	NetworkSession     Chain
}

// New builds all chains against the tenant registry.
func New(registry *tenants.Registry) *Resolvers {
	networkStep := lookup(KindNetwork, ids.ParseRoamingNetworkID,
		func(r *Resolved, id ids.RoamingNetworkID) (*network.RoamingNetwork, bool) {
			return registry.Get(r.Host, id)
		},
		func(r *Resolved, n *network.RoamingNetwork) { r.Network = n })

	operatorStep := lookup(KindOperator, ids.ParseOperatorID,
		func(r *Resolved, id ids.OperatorID) (*network.Operator, bool) { return r.Network.Operator(id) },
		func(r *Resolved, o *network.Operator) { r.Operator = o })

	operatorPoolStep := lookup(KindPool, ids.ParsePoolID,
		func(r *Resolved, id ids.PoolID) (*network.Pool, bool) {
			p, ok := r.Network.Pool(id)
			return p, ok && r.Operator.HasPool(id)
		},
		func(r *Resolved, p *network.Pool) { r.Pool = p })

	operatorStationStep := lookup(KindStation, ids.ParseStationID,
		func(r *Resolved, id ids.StationID) (*network.Station, bool) {
			s, ok := r.Network.Station(id)
			return s, ok && s.OperatorID == r.Operator.ID
		},
		func(r *Resolved, s *network.Station) { r.Station = s })

	brandStep := lookup(KindBrand, ids.ParseBrandID,
		func(r *Resolved, id ids.BrandID) (*network.Brand, bool) {
			b, ok := r.Network.Brand(id)
			return b, ok && b.OperatorID == r.Operator.ID
		},
		func(r *Resolved, b *network.Brand) { r.Brand = b })

	stationGroupStep := lookup(KindStationGroup, ids.ParseChargingStationGroupID,
		func(r *Resolved, id ids.ChargingStationGroupID) (*network.StationGroup, bool) {
			g, ok := r.Network.StationGroup(id)
			return g, ok && g.OperatorID == r.Operator.ID
		},
		func(r *Resolved, g *network.StationGroup) { r.StationGroup = g })

	evseGroupStep := lookup(KindEVSEGroup, ids.ParseEVSEGroupID,
		func(r *Resolved, id ids.EVSEGroupID) (*network.EVSEGroup, bool) {
			g, ok := r.Network.EVSEGroup(id)
			return g, ok && g.OperatorID == r.Operator.ID
		},
		func(r *Resolved, g *network.EVSEGroup) { r.EVSEGroup = g })

	tariffStep := lookup(KindTariff, ids.ParseTariffID,
		func(r *Resolved, id ids.TariffID) (*network.Tariff, bool) {
			t, ok := r.Network.Tariff(id)
			return t, ok && t.OperatorID == r.Operator.ID
		},
		func(r *Resolved, t *network.Tariff) { r.Tariff = t })

	poolStep := lookup(KindPool, ids.ParsePoolID,
		func(r *Resolved, id ids.PoolID) (*network.Pool, bool) { return r.Network.Pool(id) },
		func(r *Resolved, p *network.Pool) { r.Pool = p })

	poolStationStep := lookup(KindStation, ids.ParseStationID,
		func(r *Resolved, id ids.StationID) (*network.Station, bool) {
			s, ok := r.Network.Station(id)
			return s, ok && r.Pool.HasStation(id) && s.PoolID == r.Pool.ID
		},
		func(r *Resolved, s *network.Station) { r.Station = s })

	stationStep := lookup(KindStation, ids.ParseStationID,
		func(r *Resolved, id ids.StationID) (*network.Station, bool) { return r.Network.Station(id) },
		func(r *Resolved, s *network.Station) { r.Station = s })

	stationEVSEStep := lookup(KindEVSE, ids.ParseEVSEID,
		func(r *Resolved, id ids.EVSEID) (*network.EVSE, bool) {
			e, ok := r.Network.EVSE(id)
			return e, ok && r.Station.HasEVSE(id) && e.StationID == r.Station.ID
		},
		func(r *Resolved, e *network.EVSE) { r.EVSE = e })

	evseStep := lookup(KindEVSE, ids.ParseEVSEID,
		func(r *Resolved, id ids.EVSEID) (*network.EVSE, bool) { return r.Network.EVSE(id) },
		func(r *Resolved, e *network.EVSE) { r.EVSE = e })

	providerStep := lookup(KindProvider, ids.ParseProviderID,
		func(r *Resolved, id ids.ProviderID) (*network.Provider, bool) { return r.Network.Provider(id) },
		func(r *Resolved, p *network.Provider) { r.Provider = p })

	reservationStep := lookup(KindReservation, ids.ParseReservationID,
		func(r *Resolved, id ids.ReservationID) (*network.Reservation, bool) { return r.Network.Reservation(id) },
		func(r *Resolved, res *network.Reservation) { r.Reservation = res })

	sessionStep := lookup(KindSession, ids.ParseSessionID,
		func(r *Resolved, id ids.SessionID) (*network.Session, bool) { return r.Network.Session(id) },
		func(r *Resolved, s *network.Session) { r.Session = s })

	res := &Resolvers{}
	res.Network = Chain{}.Then(KindNetwork, networkStep)

	res.NetworkOperator = res.Network.Then(KindOperator, operatorStep)
	res.NetworkOperatorPool = res.NetworkOperator.Then(KindPool, operatorPoolStep)
	res.NetworkOperatorStation = res.NetworkOperator.Then(KindStation, operatorStationStep)
	res.NetworkOperatorBrand = res.NetworkOperator.Then(KindBrand, brandStep)
	res.NetworkOperatorStationGroup = res.NetworkOperator.Then(KindStationGroup, stationGroupStep)
	res.NetworkOperatorEVSEGroup = res.NetworkOperator.Then(KindEVSEGroup, evseGroupStep)
	res.NetworkOperatorTariff = res.NetworkOperator.Then(KindTariff, tariffStep)

	res.NetworkPool = res.Network.Then(KindPool, poolStep)
	res.NetworkPoolStation = res.NetworkPool.Then(KindStation, poolStationStep)
	res.NetworkPoolStationEVSE = res.NetworkPoolStation.Then(KindEVSE, stationEVSEStep)
	res.NetworkStation = res.Network.Then(KindStation, stationStep)
	res.NetworkStationEVSE = res.NetworkStation.Then(KindEVSE, stationEVSEStep)
	res.NetworkEVSE = res.Network.Then(KindEVSE, evseStep)

	res.NetworkProvider = res.Network.Then(KindProvider, providerStep)
	res.NetworkReservation = res.Network.Then(KindReservation, reservationStep)
	res.NetworkSession = res.Network.Then(KindSession, sessionStep)
	return res
}
