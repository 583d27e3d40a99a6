package projection

import (
	"time"

	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/ids"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/network"
)

// Renderer builds views of one network's entities.
type Renderer struct {
	Network *network.RoamingNetwork
	Policy  Policy
	Query   Query
}

func (r Renderer) embedded() Renderer {
	return Renderer{Network: r.Network, Policy: r.Policy.Embedded(), Query: r.Query}
}

// related renders a to-many relation under the policy level.
func related[ID ~string, E any, V any](r Renderer, rel Relation, idList []ID, find func(ID) (E, bool), view func(Renderer, E) V) any {
	switch r.Policy.Level(rel) {
	case ShowIDOnly:
		out := make([]string, 0, len(idList))
		for _, id := range idList {
			out = append(out, string(id))
		}
		return out
	case Expand:
		inner := r.embedded()
		out := make([]V, 0, len(idList))
		for _, id := range idList {
			if e, ok := find(id); ok {
				out = append(out, view(inner, e))
			}
		}
		return out
	}
	return nil
}

// parent renders a to-one relation under the policy level.
func parent[ID ~string, E any, V any](r Renderer, rel Relation, id ID, find func(ID) (E, bool), view func(Renderer, E) V) any {
	switch r.Policy.Level(rel) {
	case ShowIDOnly:
		return string(id)
	case Expand:
		if e, ok := find(id); ok {
			return view(r.embedded(), e)
		}
		return string(id)
	}
	return nil
}

// NetworkView is a roaming network.
type NetworkView struct {
	ID          string `json:"Id"`
	Name        string `json:"Name,omitempty"`
	Description string `json:"Description,omitempty"`
	AdminStatus any    `json:"AdminStatus"`
	Status      any    `json:"Status"`
	Operators   any    `json:"ChargingStationOperators,omitempty"`
	Providers   any    `json:"eMobilityProviders,omitempty"`
}

// NetworkOf renders a network. It does not use r.Network.
func (r Renderer) NetworkOf(n *network.RoamingNetwork) NetworkView {
	v := NetworkView{
		ID:          n.ID.String(),
		Name:        n.Name(),
		Description: n.Description(),
		AdminStatus: RenderSchedule(n.AdminStatus, r.Query),
		Status:      RenderSchedule(n.Status, r.Query),
	}
	scoped := Renderer{Network: n, Policy: r.Policy, Query: r.Query}
	operators := n.Operators()
	operatorIDs := make([]ids.OperatorID, 0, len(operators))
	for _, o := range operators {
		operatorIDs = append(operatorIDs, o.ID)
	}
	v.Operators = related(scoped, RelOperator, operatorIDs, n.Operator, Renderer.Operator)
	providers := n.Providers()
	providerIDs := make([]ids.ProviderID, 0, len(providers))
	for _, p := range providers {
		providerIDs = append(providerIDs, p.ID)
	}
	v.Providers = related(scoped, RelProvider, providerIDs, n.Provider, Renderer.Provider)
	return v
}

// OperatorView is a charging station operator.
type OperatorView struct {
	ID            string `json:"Id"`
	Name          string `json:"Name,omitempty"`
	Description   string `json:"Description,omitempty"`
	AdminStatus   any    `json:"AdminStatus"`
	Status        any    `json:"Status"`
	Network       any    `json:"RoamingNetwork,omitempty"`
	Pools         any    `json:"ChargingPools,omitempty"`
	Brands        any    `json:"Brands,omitempty"`
	StationGroups any    `json:"ChargingStationGroups,omitempty"`
	EVSEGroups    any    `json:"EVSEGroups,omitempty"`
	Tariffs       any    `json:"ChargingTariffs,omitempty"`
}

// Operator renders an operator.
func (r Renderer) Operator(o *network.Operator) OperatorView {
	n := r.Network
	v := OperatorView{
		ID:            o.ID.String(),
		Name:          o.Name,
		Description:   o.Description,
		AdminStatus:   RenderSchedule(o.AdminStatus, r.Query),
		Status:        RenderSchedule(o.Status, r.Query),
		Pools:         related(r, RelPool, o.PoolIDs(), n.Pool, Renderer.Pool),
		Brands:        related(r, RelBrand, o.BrandIDs(), n.Brand, Renderer.Brand),
		StationGroups: related(r, RelStationGroup, o.StationGroupIDs(), n.StationGroup, Renderer.StationGroup),
		EVSEGroups:    related(r, RelEVSEGroup, o.EVSEGroupIDs(), n.EVSEGroup, Renderer.EVSEGroup),
		Tariffs:       related(r, RelTariff, o.TariffIDs(), n.Tariff, Renderer.Tariff),
	}
	if r.Policy.Level(RelNetwork) != Hidden {
		v.Network = o.NetworkID.String()
	}
	return v
}

// PoolView is a charging pool.
type PoolView struct {
	ID          string `json:"Id"`
	Name        string `json:"Name,omitempty"`
	Description string `json:"Description,omitempty"`
	Address     string `json:"Address,omitempty"`
	AdminStatus any    `json:"AdminStatus"`
	Status      any    `json:"Status"`
	Operator    any    `json:"ChargingStationOperator,omitempty"`
	Stations    any    `json:"ChargingStations,omitempty"`
	Brands      any    `json:"Brands,omitempty"`
}

// Pool renders a charging pool.
func (r Renderer) Pool(p *network.Pool) PoolView {
	n := r.Network
	return PoolView{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		Address:     p.Address,
		AdminStatus: RenderSchedule(p.AdminStatus, r.Query),
		Status:      RenderSchedule(p.Status, r.Query),
		Operator:    parent(r, RelOperator, p.OperatorID, n.Operator, Renderer.Operator),
		Stations:    related(r, RelStation, p.StationIDs(), n.Station, Renderer.Station),
		Brands:      related(r, RelBrand, p.BrandIDs(), n.Brand, Renderer.Brand),
	}
}

// StationView is a charging station.
type StationView struct {
	ID          string `json:"Id"`
	Name        string `json:"Name,omitempty"`
	AdminStatus any    `json:"AdminStatus"`
	Status      any    `json:"Status"`
	Operator    any    `json:"ChargingStationOperator,omitempty"`
	Pool        any    `json:"ChargingPool,omitempty"`
	EVSEs       any    `json:"EVSEs,omitempty"`
	Brands      any    `json:"Brands,omitempty"`
	Groups      any    `json:"ChargingStationGroups,omitempty"`
}

// Station renders a charging station.
func (r Renderer) Station(s *network.Station) StationView {
	n := r.Network
	return StationView{
		ID:          s.ID.String(),
		Name:        s.Name,
		AdminStatus: RenderSchedule(s.AdminStatus, r.Query),
		Status:      RenderSchedule(s.Status, r.Query),
		Operator:    parent(r, RelOperator, s.OperatorID, n.Operator, Renderer.Operator),
		Pool:        parent(r, RelPool, s.PoolID, n.Pool, Renderer.Pool),
		EVSEs:       related(r, RelEVSE, s.EVSEIDs(), n.EVSE, Renderer.EVSE),
		Brands:      related(r, RelBrand, s.BrandIDs(), n.Brand, Renderer.Brand),
		Groups:      related(r, RelStationGroup, s.GroupIDs(), n.StationGroup, Renderer.StationGroup),
	}
}

// EVSEView is an EVSE.
type EVSEView struct {
	ID          string   `json:"Id"`
	MaxPower    float64  `json:"MaxPower,omitempty"`
	Sockets     []string `json:"SocketOutlets,omitempty"`
	AdminStatus any      `json:"AdminStatus"`
	Status      any      `json:"Status"`
	Operator    any      `json:"ChargingStationOperator,omitempty"`
	Pool        any      `json:"ChargingPool,omitempty"`
	Station     any      `json:"ChargingStation,omitempty"`
	Brands      any      `json:"Brands,omitempty"`
	Groups      any      `json:"EVSEGroups,omitempty"`
	Tariffs     any      `json:"ChargingTariffs,omitempty"`
}

// EVSE renders an EVSE.
func (r Renderer) EVSE(e *network.EVSE) EVSEView {
	n := r.Network
	return EVSEView{
		ID:          e.ID.String(),
		MaxPower:    e.MaxPower,
		Sockets:     e.Sockets,
		AdminStatus: RenderSchedule(e.AdminStatus, r.Query),
		Status:      RenderSchedule(e.Status, r.Query),
		Operator:    parent(r, RelOperator, e.OperatorID, n.Operator, Renderer.Operator),
		Pool:        parent(r, RelPool, e.PoolID, n.Pool, Renderer.Pool),
		Station:     parent(r, RelStation, e.StationID, n.Station, Renderer.Station),
		Brands:      related(r, RelBrand, e.BrandIDs(), n.Brand, Renderer.Brand),
		Groups:      related(r, RelEVSEGroup, e.GroupIDs(), n.EVSEGroup, Renderer.EVSEGroup),
		Tariffs:     related(r, RelTariff, e.TariffIDs(), n.Tariff, Renderer.Tariff),
	}
}

// BrandView is a brand.
type BrandView struct {
	ID       string `json:"Id"`
	Name     string `json:"Name,omitempty"`
	Logo     string `json:"Logo,omitempty"`
	Homepage string `json:"Homepage,omitempty"`
	Operator any    `json:"ChargingStationOperator,omitempty"`
	Pools    any    `json:"ChargingPools,omitempty"`
	Stations any    `json:"ChargingStations,omitempty"`
	EVSEs    any    `json:"EVSEs,omitempty"`
}

// Brand renders a brand.
func (r Renderer) Brand(b *network.Brand) BrandView {
	n := r.Network
	return BrandView{
		ID:       b.ID.String(),
		Name:     b.Name,
		Logo:     b.Logo,
		Homepage: b.Homepage,
		Operator: parent(r, RelOperator, b.OperatorID, n.Operator, Renderer.Operator),
		Pools:    related(r, RelPool, b.PoolIDs(), n.Pool, Renderer.Pool),
		Stations: related(r, RelStation, b.StationIDs(), n.Station, Renderer.Station),
		EVSEs:    related(r, RelEVSE, b.EVSEIDs(), n.EVSE, Renderer.EVSE),
	}
}

// GroupView is a charging station group or an EVSE group.
type GroupView struct {
	ID          string `json:"Id"`
	Name        string `json:"Name,omitempty"`
	Description string `json:"Description,omitempty"`
	Operator    any    `json:"ChargingStationOperator,omitempty"`
	Stations    any    `json:"ChargingStations,omitempty"`
	EVSEs       any    `json:"EVSEs,omitempty"`
}

// StationGroup renders a charging station group.
func (r Renderer) StationGroup(g *network.StationGroup) GroupView {
	n := r.Network
	return GroupView{
		ID:          g.ID.String(),
		Name:        g.Name,
		Description: g.Description,
		Operator:    parent(r, RelOperator, g.OperatorID, n.Operator, Renderer.Operator),
		Stations:    related(r, RelStation, g.StationIDs(), n.Station, Renderer.Station),
	}
}

// EVSEGroup renders an EVSE group.
func (r Renderer) EVSEGroup(g *network.EVSEGroup) GroupView {
	n := r.Network
	return GroupView{
		ID:          g.ID.String(),
		Name:        g.Name,
		Description: g.Description,
		Operator:    parent(r, RelOperator, g.OperatorID, n.Operator, Renderer.Operator),
		EVSEs:       related(r, RelEVSE, g.EVSEIDs(), n.EVSE, Renderer.EVSE),
	}
}

// TariffView is a charging tariff.
type TariffView struct {
	ID             string  `json:"Id"`
	Name           string  `json:"Name,omitempty"`
	Currency       string  `json:"Currency"`
	PricePerKWh    float64 `json:"PricePerKWh"`
	PricePerMinute float64 `json:"PricePerMinute"`
	SessionFee     float64 `json:"SessionFee"`
	Operator       any     `json:"ChargingStationOperator,omitempty"`
	EVSEs          any     `json:"EVSEs,omitempty"`
}

// Tariff renders a tariff.
func (r Renderer) Tariff(t *network.Tariff) TariffView {
	n := r.Network
	return TariffView{
		ID:             t.ID.String(),
		Name:           t.Name,
		Currency:       t.Currency,
		PricePerKWh:    t.PricePerKWh,
		PricePerMinute: t.PricePerMinute,
		SessionFee:     t.SessionFee,
		Operator:       parent(r, RelOperator, t.OperatorID, n.Operator, Renderer.Operator),
		EVSEs:          related(r, RelEVSE, t.EVSEIDs(), n.EVSE, Renderer.EVSE),
	}
}

// ProviderView is an e-mobility provider.
type ProviderView struct {
	ID          string `json:"Id"`
	Name        string `json:"Name,omitempty"`
	Description string `json:"Description,omitempty"`
	AdminStatus any    `json:"AdminStatus"`
	Status      any    `json:"Status"`
	Network     any    `json:"RoamingNetwork,omitempty"`
}

// Provider renders an e-mobility provider. Allow-lists are never exposed.
func (r Renderer) Provider(p *network.Provider) ProviderView {
	v := ProviderView{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		AdminStatus: RenderSchedule(p.AdminStatus, r.Query),
		Status:      RenderSchedule(p.Status, r.Query),
	}
	if r.Policy.Level(RelNetwork) != Hidden {
		v.Network = p.NetworkID.String()
	}
	return v
}

// ReservationView is a charging reservation.
type ReservationView struct {
	ID                 string    `json:"ReservationId"`
	Timestamp          time.Time `json:"Timestamp"`
	Level              string    `json:"ReservationLevel"`
	EVSE               any       `json:"EVSE,omitempty"`
	Station            any       `json:"ChargingStation,omitempty"`
	Pool               any       `json:"ChargingPool,omitempty"`
	OperatorID         string    `json:"ChargingStationOperatorId"`
	ProviderID         string    `json:"ProviderId,omitempty"`
	EMAID              string    `json:"eMAId,omitempty"`
	StartTime          time.Time `json:"StartTime"`
	Duration           uint64    `json:"Duration"`
	EndTime            time.Time `json:"EndTime"`
	AuthTokens         []string  `json:"AuthTokens,omitempty"`
	EMAIDs             []string  `json:"eMAIds,omitempty"`
	PINs               []string  `json:"PINs,omitempty"`
	CancellationReason string    `json:"CancellationReason,omitempty"`
}

// Reservation renders a reservation. Its location is always shown at least by id.
func (r Renderer) Reservation(res *network.Reservation) ReservationView {
	n := r.Network
	p := r.Policy
	for _, rel := range []Relation{RelEVSE, RelStation, RelPool} {
		if p.Level(rel) == Hidden {
			p = withLevel(p, rel, ShowIDOnly)
		}
	}
	rr := Renderer{Network: n, Policy: p, Query: r.Query}
	v := ReservationView{
		ID:                 res.ID.String(),
		Timestamp:          res.Timestamp,
		Level:              string(res.Level),
		EVSE:               parent(rr, RelEVSE, res.EVSEID, n.EVSE, Renderer.EVSE),
		Station:            parent(rr, RelStation, res.StationID, n.Station, Renderer.Station),
		Pool:               parent(rr, RelPool, res.PoolID, n.Pool, Renderer.Pool),
		OperatorID:         res.OperatorID.String(),
		ProviderID:         res.ProviderID.String(),
		EMAID:              res.EMAID.String(),
		StartTime:          res.StartTime,
		Duration:           uint64(res.Duration / time.Second),
		EndTime:            res.EndTime(),
		CancellationReason: string(res.CancellationReason),
	}
	for _, t := range res.AuthTokens {
		v.AuthTokens = append(v.AuthTokens, t.String())
	}
	for _, e := range res.EMAIDs {
		v.EMAIDs = append(v.EMAIDs, e.String())
	}
	for _, pin := range res.PINs {
		v.PINs = append(v.PINs, pin.String())
	}
	return v
}

func withLevel(p Policy, rel Relation, l Level) Policy {
	out := make(Policy, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	out[rel] = l
	return out
}

// SessionView is a charging session.
type SessionView struct {
	ID            string     `json:"SessionId"`
	EVSE          any        `json:"EVSE,omitempty"`
	OperatorID    string     `json:"ChargingStationOperatorId,omitempty"`
	ProviderID    string     `json:"ProviderId,omitempty"`
	ReservationID string     `json:"ReservationId,omitempty"`
	ProductID     string     `json:"ChargingProductId,omitempty"`
	AuthStart     string     `json:"AuthenticationStart,omitempty"`
	AuthStop      string     `json:"AuthenticationStop,omitempty"`
	StartTime     time.Time  `json:"SessionStart"`
	StopTime      *time.Time `json:"SessionEnd,omitempty"`
	CDRSent       bool       `json:"CDRSent"`
}

// Session renders a charging session.
func (r Renderer) Session(s *network.Session) SessionView {
	n := r.Network
	p := r.Policy
	if p.Level(RelEVSE) == Hidden {
		p = withLevel(p, RelEVSE, ShowIDOnly)
	}
	var evse any
	if s.EVSEID != "" {
		evse = parent(Renderer{Network: n, Policy: p, Query: r.Query}, RelEVSE, s.EVSEID, n.EVSE, Renderer.EVSE)
	}
	return SessionView{
		ID:            s.ID.String(),
		EVSE:          evse,
		OperatorID:    s.OperatorID.String(),
		ProviderID:    s.ProviderID.String(),
		ReservationID: s.ReservationID.String(),
		ProductID:     s.ProductID.String(),
		AuthStart:     s.AuthStart.String(),
		AuthStop:      s.AuthStop.String(),
		StartTime:     s.StartTime,
		StopTime:      s.StopTime,
		CDRSent:       s.CDRSent,
	}
}
