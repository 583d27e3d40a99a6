// Package network is the in-process Network Core: an arena of roaming network
// entities keyed by identifier, plus the reservation, authorization, session
// and charge detail record operations the HTTP layer dispatches to.
package network

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/ids"
)

// Errors returned by the arena mutators.
var (
	ErrAlreadyExists    = errors.New("network: entity already exists")
	ErrUnknownParent    = errors.New("network: unknown parent entity")
	ErrOperatorMismatch = errors.New("network: identifier does not belong to operator")
)

// CDRSink receives forwarded charge detail records.
type CDRSink interface {
	Save(ctx context.Context, cdr ChargeDetailRecord) error
}

// Options configure a RoamingNetwork.
type Options struct {
	Name        string
	Description string
	MaxHistory  int
	CDRSink     CDRSink
	Now         func() time.Time
}

// RoamingNetwork is the arena owning every entity of one network.
type RoamingNetwork struct {
	ID ids.RoamingNetworkID
	Statuses

	mu          sync.RWMutex
	name        string
	description string

	operators     map[ids.OperatorID]*Operator
	pools         map[ids.PoolID]*Pool
	stations      map[ids.StationID]*Station
	evses         map[ids.EVSEID]*EVSE
	brands        map[ids.BrandID]*Brand
	stationGroups map[ids.ChargingStationGroupID]*StationGroup
	evseGroups    map[ids.EVSEGroupID]*EVSEGroup
	tariffs       map[ids.TariffID]*Tariff
	providers     map[ids.ProviderID]*Provider
	reservations  map[ids.ReservationID]*Reservation
	sessions      map[ids.SessionID]*Session
	authorized    map[ids.SessionID]authorization

	maxHistory int
	cdrs       CDRSink
	now        func() time.Time
}

// New creates an empty roaming network.
func New(id ids.RoamingNetworkID, opts Options) *RoamingNetwork {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = DefaultMaxHistory
	}
	if opts.CDRSink == nil {
		opts.CDRSink = NewMemoryCDRSink()
	}
	return &RoamingNetwork{
		ID:            id,
		Statuses:      newStatuses(AdminStatusOperational, StatusAvailable, opts.Now(), opts.MaxHistory),
		name:          opts.Name,
		description:   opts.Description,
		operators:     make(map[ids.OperatorID]*Operator),
		pools:         make(map[ids.PoolID]*Pool),
		stations:      make(map[ids.StationID]*Station),
		evses:         make(map[ids.EVSEID]*EVSE),
		brands:        make(map[ids.BrandID]*Brand),
		stationGroups: make(map[ids.ChargingStationGroupID]*StationGroup),
		evseGroups:    make(map[ids.EVSEGroupID]*EVSEGroup),
		tariffs:       make(map[ids.TariffID]*Tariff),
		providers:     make(map[ids.ProviderID]*Provider),
		reservations:  make(map[ids.ReservationID]*Reservation),
		sessions:      make(map[ids.SessionID]*Session),
		authorized:    make(map[ids.SessionID]authorization),
		maxHistory:    opts.MaxHistory,
		cdrs:          opts.CDRSink,
		now:           opts.Now,
	}
}

// Name returns the network name.
func (n *RoamingNetwork) Name() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.name
}

// Description returns the network description.
func (n *RoamingNetwork) Description() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.description
}

// SetName changes the network name.
func (n *RoamingNetwork) SetName(name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.name = name
}

// SetDescription changes the network description.
func (n *RoamingNetwork) SetDescription(description string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.description = description
}

func lookup[K comparable, V any](n *RoamingNetwork, m map[K]V, id K) (V, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	v, ok := m[id]
	return v, ok
}

func values[K ~string, V any](n *RoamingNetwork, m map[K]V) []V {
	n.mu.RLock()
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	out := make([]V, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	n.mu.RUnlock()
	return out
}

// snapshot copies the entity under the read lock.
func snapshot[K comparable, V any](n *RoamingNetwork, m map[K]*V, id K) (*V, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	v, ok := m[id]
	if !ok {
		return nil, false
	}
	cp := *v
	return &cp, true
}

func snapshots[K ~string, V any](n *RoamingNetwork, m map[K]*V) []*V {
	n.mu.RLock()
	defer n.mu.RUnlock()
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	out := make([]*V, 0, len(keys))
	for _, k := range keys {
		cp := *m[k]
		out = append(out, &cp)
	}
	return out
}

// Operator looks up an operator.
func (n *RoamingNetwork) Operator(id ids.OperatorID) (*Operator, bool) {
	return lookup(n, n.operators, id)
}

// Pool looks up a charging pool.
func (n *RoamingNetwork) Pool(id ids.PoolID) (*Pool, bool) { return lookup(n, n.pools, id) }

// Station looks up a charging station.
func (n *RoamingNetwork) Station(id ids.StationID) (*Station, bool) {
	return lookup(n, n.stations, id)
}

// EVSE looks up an EVSE.
func (n *RoamingNetwork) EVSE(id ids.EVSEID) (*EVSE, bool) { return lookup(n, n.evses, id) }

// Brand looks up a brand.
func (n *RoamingNetwork) Brand(id ids.BrandID) (*Brand, bool) { return lookup(n, n.brands, id) }

// StationGroup looks up a charging station group.
func (n *RoamingNetwork) StationGroup(id ids.ChargingStationGroupID) (*StationGroup, bool) {
	return lookup(n, n.stationGroups, id)
}

// EVSEGroup looks up an EVSE group.
func (n *RoamingNetwork) EVSEGroup(id ids.EVSEGroupID) (*EVSEGroup, bool) {
	return lookup(n, n.evseGroups, id)
}

// Tariff looks up a tariff.
func (n *RoamingNetwork) Tariff(id ids.TariffID) (*Tariff, bool) { return lookup(n, n.tariffs, id) }

// Provider looks up an e-mobility provider.
func (n *RoamingNetwork) Provider(id ids.ProviderID) (*Provider, bool) {
	return lookup(n, n.providers, id)
}

// Reservation returns a copy of the reservation.
func (n *RoamingNetwork) Reservation(id ids.ReservationID) (*Reservation, bool) {
	return snapshot(n, n.reservations, id)
}

// Session returns a copy of the charging session.
func (n *RoamingNetwork) Session(id ids.SessionID) (*Session, bool) {
	return snapshot(n, n.sessions, id)
}

// Operators lists all operators ordered by id.
func (n *RoamingNetwork) Operators() []*Operator { return values(n, n.operators) }

// Pools lists all pools ordered by id.
func (n *RoamingNetwork) Pools() []*Pool { return values(n, n.pools) }

// Stations lists all stations ordered by id.
func (n *RoamingNetwork) Stations() []*Station { return values(n, n.stations) }

// EVSEs lists all EVSEs ordered by id.
func (n *RoamingNetwork) EVSEs() []*EVSE { return values(n, n.evses) }

// Providers lists all providers ordered by id.
func (n *RoamingNetwork) Providers() []*Provider { return values(n, n.providers) }

// Reservations lists copies of all reservations ordered by id.
func (n *RoamingNetwork) Reservations() []*Reservation { return snapshots(n, n.reservations) }

// Sessions lists copies of all sessions ordered by id.
func (n *RoamingNetwork) Sessions() []*Session { return snapshots(n, n.sessions) }

// CreateOperator adds an operator.
func (n *RoamingNetwork) CreateOperator(id ids.OperatorID, name, description string) (*Operator, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.operators[id]; ok {
		return nil, fmt.Errorf("%w: operator %s", ErrAlreadyExists, id)
	}
	o := &Operator{
		ID:          id,
		NetworkID:   n.ID,
		Name:        name,
		Description: description,
		Statuses:    newStatuses(AdminStatusOperational, StatusAvailable, n.now(), n.maxHistory),
	}
	n.operators[id] = o
	return o, nil
}

// CreatePool adds a pool to an operator.
func (n *RoamingNetwork) CreatePool(operatorID ids.OperatorID, id ids.PoolID, name, address string) (*Pool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	o, ok := n.operators[operatorID]
	if !ok {
		return nil, fmt.Errorf("%w: operator %s", ErrUnknownParent, operatorID)
	}
	if id.OperatorID() != operatorID {
		return nil, fmt.Errorf("%w: pool %s, operator %s", ErrOperatorMismatch, id, operatorID)
	}
	if _, ok := n.pools[id]; ok {
		return nil, fmt.Errorf("%w: pool %s", ErrAlreadyExists, id)
	}
	p := &Pool{
		ID:         id,
		OperatorID: operatorID,
		NetworkID:  n.ID,
		Name:       name,
		Address:    address,
		Statuses:   newStatuses(AdminStatusOperational, StatusAvailable, n.now(), n.maxHistory),
	}
	n.pools[id] = p
	o.pools.add(id)
	return p, nil
}

// CreateStation adds a station to a pool.
func (n *RoamingNetwork) CreateStation(poolID ids.PoolID, id ids.StationID, name string) (*Station, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	p, ok := n.pools[poolID]
	if !ok {
		return nil, fmt.Errorf("%w: pool %s", ErrUnknownParent, poolID)
	}
	if id.OperatorID() != p.OperatorID {
		return nil, fmt.Errorf("%w: station %s, operator %s", ErrOperatorMismatch, id, p.OperatorID)
	}
	if _, ok := n.stations[id]; ok {
		return nil, fmt.Errorf("%w: station %s", ErrAlreadyExists, id)
	}
	s := &Station{
		ID:         id,
		PoolID:     poolID,
		OperatorID: p.OperatorID,
		NetworkID:  n.ID,
		Name:       name,
		Statuses:   newStatuses(AdminStatusOperational, StatusAvailable, n.now(), n.maxHistory),
	}
	n.stations[id] = s
	p.stations.add(id)
	return s, nil
}

// CreateEVSE adds an EVSE to a station.
func (n *RoamingNetwork) CreateEVSE(stationID ids.StationID, id ids.EVSEID, maxPower float64, sockets []string) (*EVSE, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	s, ok := n.stations[stationID]
	if !ok {
		return nil, fmt.Errorf("%w: station %s", ErrUnknownParent, stationID)
	}
	if id.OperatorID() != s.OperatorID {
		return nil, fmt.Errorf("%w: evse %s, operator %s", ErrOperatorMismatch, id, s.OperatorID)
	}
	if _, ok := n.evses[id]; ok {
		return nil, fmt.Errorf("%w: evse %s", ErrAlreadyExists, id)
	}
	e := &EVSE{
		ID:         id,
		StationID:  stationID,
		PoolID:     s.PoolID,
		OperatorID: s.OperatorID,
		NetworkID:  n.ID,
		MaxPower:   maxPower,
		Sockets:    append([]string(nil), sockets...),
		Statuses:   newStatuses(AdminStatusOperational, StatusAvailable, n.now(), n.maxHistory),
	}
	n.evses[id] = e
	s.evses.add(id)
	return e, nil
}

// CreateBrand adds a brand to an operator.
func (n *RoamingNetwork) CreateBrand(operatorID ids.OperatorID, id ids.BrandID, name, logo, homepage string) (*Brand, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	o, ok := n.operators[operatorID]
	if !ok {
		return nil, fmt.Errorf("%w: operator %s", ErrUnknownParent, operatorID)
	}
	if _, ok := n.brands[id]; ok {
		return nil, fmt.Errorf("%w: brand %s", ErrAlreadyExists, id)
	}
	b := &Brand{ID: id, OperatorID: operatorID, Name: name, Logo: logo, Homepage: homepage}
	n.brands[id] = b
	o.brands.add(id)
	return b, nil
}

// TagPool attaches a brand to a pool.
func (n *RoamingNetwork) TagPool(brandID ids.BrandID, poolID ids.PoolID) error {
	n.mu.RLock()
	b, okB := n.brands[brandID]
	p, okP := n.pools[poolID]
	n.mu.RUnlock()
	if !okB || !okP {
		return fmt.Errorf("%w: brand %s or pool %s", ErrUnknownParent, brandID, poolID)
	}
	if b.OperatorID != p.OperatorID {
		return fmt.Errorf("%w: brand %s, pool %s", ErrOperatorMismatch, brandID, poolID)
	}
	b.pools.add(poolID)
	p.brands.add(brandID)
	return nil
}

// TagStation attaches a brand to a station.
func (n *RoamingNetwork) TagStation(brandID ids.BrandID, stationID ids.StationID) error {
	n.mu.RLock()
	b, okB := n.brands[brandID]
	s, okS := n.stations[stationID]
	n.mu.RUnlock()
	if !okB || !okS {
		return fmt.Errorf("%w: brand %s or station %s", ErrUnknownParent, brandID, stationID)
	}
	if b.OperatorID != s.OperatorID {
		return fmt.Errorf("%w: brand %s, station %s", ErrOperatorMismatch, brandID, stationID)
	}
	b.stations.add(stationID)
	s.brands.add(brandID)
	return nil
}

// TagEVSE attaches a brand to an EVSE.
func (n *RoamingNetwork) TagEVSE(brandID ids.BrandID, evseID ids.EVSEID) error {
	n.mu.RLock()
	b, okB := n.brands[brandID]
	e, okE := n.evses[evseID]
	n.mu.RUnlock()
	if !okB || !okE {
		return fmt.Errorf("%w: brand %s or evse %s", ErrUnknownParent, brandID, evseID)
	}
	if b.OperatorID != e.OperatorID {
		return fmt.Errorf("%w: brand %s, evse %s", ErrOperatorMismatch, brandID, evseID)
	}
	b.evses.add(evseID)
	e.brands.add(brandID)
	return nil
}

// CreateStationGroup adds a charging station group with the given members.
func (n *RoamingNetwork) CreateStationGroup(operatorID ids.OperatorID, id ids.ChargingStationGroupID, name, description string, members []ids.StationID) (*StationGroup, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	o, ok := n.operators[operatorID]
	if !ok {
		return nil, fmt.Errorf("%w: operator %s", ErrUnknownParent, operatorID)
	}
	if _, ok := n.stationGroups[id]; ok {
		return nil, fmt.Errorf("%w: station group %s", ErrAlreadyExists, id)
	}
	g := &StationGroup{ID: id, OperatorID: operatorID, Name: name, Description: description}
	for _, sid := range members {
		s, ok := n.stations[sid]
		if !ok || s.OperatorID != operatorID {
			return nil, fmt.Errorf("%w: station %s", ErrOperatorMismatch, sid)
		}
		g.stations.add(sid)
		s.groups.add(id)
	}
	n.stationGroups[id] = g
	o.stationGroups.add(id)
	return g, nil
}

// CreateEVSEGroup adds an EVSE group with the given members.
func (n *RoamingNetwork) CreateEVSEGroup(operatorID ids.OperatorID, id ids.EVSEGroupID, name, description string, members []ids.EVSEID) (*EVSEGroup, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	o, ok := n.operators[operatorID]
	if !ok {
		return nil, fmt.Errorf("%w: operator %s", ErrUnknownParent, operatorID)
	}
	if _, ok := n.evseGroups[id]; ok {
		return nil, fmt.Errorf("%w: evse group %s", ErrAlreadyExists, id)
	}
	g := &EVSEGroup{ID: id, OperatorID: operatorID, Name: name, Description: description}
	for _, eid := range members {
		e, ok := n.evses[eid]
		if !ok || e.OperatorID != operatorID {
			return nil, fmt.Errorf("%w: evse %s", ErrOperatorMismatch, eid)
		}
		g.evses.add(eid)
		e.groups.add(id)
	}
	n.evseGroups[id] = g
	o.evseGroups.add(id)
	return g, nil
}

// CreateTariff adds a tariff that applies to the given EVSEs.
func (n *RoamingNetwork) CreateTariff(operatorID ids.OperatorID, t Tariff, evses []ids.EVSEID) (*Tariff, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	o, ok := n.operators[operatorID]
	if !ok {
		return nil, fmt.Errorf("%w: operator %s", ErrUnknownParent, operatorID)
	}
	if _, ok := n.tariffs[t.ID]; ok {
		return nil, fmt.Errorf("%w: tariff %s", ErrAlreadyExists, t.ID)
	}
	tariff := &Tariff{
		ID:             t.ID,
		OperatorID:     operatorID,
		Name:           t.Name,
		Currency:       t.Currency,
		PricePerKWh:    t.PricePerKWh,
		PricePerMinute: t.PricePerMinute,
		SessionFee:     t.SessionFee,
	}
	for _, eid := range evses {
		e, ok := n.evses[eid]
		if !ok || e.OperatorID != operatorID {
			return nil, fmt.Errorf("%w: evse %s", ErrOperatorMismatch, eid)
		}
		tariff.evses.add(eid)
		e.tariffs.add(t.ID)
	}
	n.tariffs[t.ID] = tariff
	o.tariffs.add(t.ID)
	return tariff, nil
}

// CreateProvider adds an e-mobility provider.
func (n *RoamingNetwork) CreateProvider(id ids.ProviderID, name, description string) (*Provider, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.providers[id]; ok {
		return nil, fmt.Errorf("%w: provider %s", ErrAlreadyExists, id)
	}
	p := &Provider{
		ID:          id,
		NetworkID:   n.ID,
		Name:        name,
		Description: description,
		Statuses:    newStatuses(AdminStatusOperational, StatusAvailable, n.now(), n.maxHistory),
	}
	n.providers[id] = p
	return p, nil
}
