package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/apierr"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/events"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/http/routing"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/network"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/resolve"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/tenants"
)

// CancelReservationTimeout bounds reservation cancellation.
const CancelReservationTimeout = 60 * time.Second

// API holds the roaming network handlers.
type API struct {
	registry  *tenants.Registry
	resolvers *resolve.Resolvers
	events    events.Publisher
	logger    *zap.Logger
}

// NewAPI builds the handlers. A nil publisher discards events.
func NewAPI(registry *tenants.Registry, publisher events.Publisher, logger *zap.Logger) *API {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		registry:  registry,
		resolvers: resolve.New(registry),
		events:    publisher,
		logger:    logger,
	}
}

// handler is a route handler working on a resolved path.
type handler func(ctx context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response

// on resolves chain before calling h; resolution errors are returned verbatim.
func (a *API) on(chain resolve.Chain, h handler) routing.Handler {
	return func(ctx context.Context, req *routing.Request) *routing.Response {
		r, aerr := chain.Resolve(req.HostPattern, req.Params)
		if aerr != nil {
			return writeError(aerr)
		}
		return h(ctx, req, r)
	}
}

// publish emits a debug-log event. It never blocks the request.
func (a *API) publish(req *routing.Request, r *resolve.Resolved, data map[string]any) {
	e := events.Event{
		Type:      req.Verb.Name + " " + req.Template,
		Timestamp: req.Timestamp.UTC(),
		Host:      req.Hostname,
		Data:      data,
	}
	if r != nil && r.Network != nil {
		e.NetworkID = r.Network.ID.String()
	}
	a.events.Publish(e)
}

// Register adds every roaming API route to t under the host pattern host
// (routing.AnyHost when empty). The pattern is also the tenant key of the
// served networks. guard protects the admin verbs CREATE, DELETE, SET and
// SETEXPIRED; it may be nil.
func (a *API) Register(t *routing.Table, host string, guard routing.Middleware) {
	var admin []routing.Middleware
	if guard != nil {
		admin = append(admin, guard)
	}
	if host == "" {
		host = routing.AnyHost
	}
	handle := func(verb routing.Verb, template string, h routing.Handler, mw ...routing.Middleware) {
		t.Add(host, verb, template, routing.ContentTypeJSON, h, mw...)
	}
	res := a.resolvers

	// networks
	handle(routing.GET, "/RNs", a.listNetworks)
	handle(routing.COUNT, "/RNs", a.countNetworks)
	handle(routing.GET, "/RNs/{networkId}", a.on(res.Network, a.getNetwork))
	handle(routing.CREATE, "/RNs/{networkId}", a.createNetwork, admin...)
	handle(routing.DELETE, "/RNs/{networkId}", a.on(res.Network, a.deleteNetwork), admin...)
	handle(routing.GET, "/RNs/{networkId}/{propertyKey}", a.on(res.Network, a.getNetworkProperty))
	handle(routing.SET, "/RNs/{networkId}/{propertyKey}", a.on(res.Network, a.setNetworkProperty), admin...)

	// operators
	handle(routing.GET, "/RNs/{networkId}/ChargingStationOperators", a.on(res.Network, a.listOperators))
	handle(routing.COUNT, "/RNs/{networkId}/ChargingStationOperators", a.on(res.Network, a.countOperators))
	handle(routing.GET, "/RNs/{networkId}/ChargingStationOperators->Id", a.on(res.Network, a.operatorIDs))
	handle(routing.GET, "/RNs/{networkId}/ChargingStationOperators/{operatorId}", a.on(res.NetworkOperator, a.getOperator))
	handle(routing.CREATE, "/RNs/{networkId}/ChargingStationOperators/{operatorId}", a.on(res.Network, a.createOperator), admin...)
	handle(routing.GET, "/RNs/{networkId}/ChargingStationOperators/{operatorId}/AdminStatus", a.on(res.NetworkOperator, a.getOperatorAdminStatus))
	handle(routing.SET, "/RNs/{networkId}/ChargingStationOperators/{operatorId}/AdminStatus", a.on(res.NetworkOperator, a.setOperatorAdminStatus), admin...)
	handle(routing.GET, "/RNs/{networkId}/ChargingStationOperators/{operatorId}/ChargingPools", a.on(res.NetworkOperator, a.listOperatorPools))
	handle(routing.COUNT, "/RNs/{networkId}/ChargingStationOperators/{operatorId}/ChargingPools", a.on(res.NetworkOperator, a.countOperatorPools))
	handle(routing.CREATE, "/RNs/{networkId}/ChargingStationOperators/{operatorId}/ChargingPools/{poolId}", a.on(res.NetworkOperator, a.createPool), admin...)
	handle(routing.GET, "/RNs/{networkId}/ChargingStationOperators/{operatorId}/ChargingPools/{poolId}/AdminStatus", a.on(res.NetworkOperatorPool, a.getPoolAdminStatus))
	handle(routing.SET, "/RNs/{networkId}/ChargingStationOperators/{operatorId}/ChargingPools/{poolId}/AdminStatus", a.on(res.NetworkOperatorPool, a.setPoolAdminStatus), admin...)
	handle(routing.GET, "/RNs/{networkId}/ChargingStationOperators/{operatorId}/ChargingStations/{stationId}/AdminStatus", a.on(res.NetworkOperatorStation, a.getStationAdminStatus))
	handle(routing.SET, "/RNs/{networkId}/ChargingStationOperators/{operatorId}/ChargingStations/{stationId}/AdminStatus", a.on(res.NetworkOperatorStation, a.setStationAdminStatus), admin...)
	handle(routing.GET, "/RNs/{networkId}/ChargingStationOperators/{operatorId}/ChargingStationGroups", a.on(res.NetworkOperator, a.listStationGroups))
	handle(routing.GET, "/RNs/{networkId}/ChargingStationOperators/{operatorId}/ChargingStationGroups/{groupId}", a.on(res.NetworkOperatorStationGroup, a.getStationGroup))
	handle(routing.GET, "/RNs/{networkId}/ChargingStationOperators/{operatorId}/EVSEGroups", a.on(res.NetworkOperator, a.listEVSEGroups))
	handle(routing.GET, "/RNs/{networkId}/ChargingStationOperators/{operatorId}/EVSEGroups/{groupId}", a.on(res.NetworkOperatorEVSEGroup, a.getEVSEGroup))
	handle(routing.GET, "/RNs/{networkId}/ChargingStationOperators/{operatorId}/Brands", a.on(res.NetworkOperator, a.listBrands))
	handle(routing.GET, "/RNs/{networkId}/ChargingStationOperators/{operatorId}/Brands/{brandId}", a.on(res.NetworkOperatorBrand, a.getBrand))
	handle(routing.GET, "/RNs/{networkId}/ChargingStationOperators/{operatorId}/Tariffs", a.on(res.NetworkOperator, a.listTariffs))
	handle(routing.GET, "/RNs/{networkId}/ChargingStationOperators/{operatorId}/Tariffs/{tariffId}", a.on(res.NetworkOperatorTariff, a.getTariff))
	t.Add(host, routing.GET, "/RNs/{networkId}/ChargingStationOperators/{operatorId}/TariffOverview", routing.ContentTypeCSV, a.on(res.NetworkOperator, a.tariffOverview))

	// pools
	handle(routing.GET, "/RNs/{networkId}/ChargingPools", a.on(res.Network, a.listPools))
	handle(routing.COUNT, "/RNs/{networkId}/ChargingPools", a.on(res.Network, a.countPools))
	handle(routing.GET, "/RNs/{networkId}/ChargingPools->Id", a.on(res.Network, a.poolIDs))
	handle(routing.GET, "/RNs/{networkId}/ChargingPools->AdminStatus", a.on(res.Network, a.poolAdminStatuses))
	handle(routing.GET, "/RNs/{networkId}/ChargingPools->Status", a.on(res.Network, a.poolStatuses))
	handle(routing.GET, "/RNs/{networkId}/ChargingPools/{poolId}", a.on(res.NetworkPool, a.getPool))
	handle(routing.GET, "/RNs/{networkId}/ChargingPools/{poolId}/ChargingStations", a.on(res.NetworkPool, a.listPoolStations))
	handle(routing.COUNT, "/RNs/{networkId}/ChargingPools/{poolId}/ChargingStations", a.on(res.NetworkPool, a.countPoolStations))
	handle(routing.GET, "/RNs/{networkId}/ChargingPools/{poolId}/ChargingStations/{stationId}", a.on(res.NetworkPoolStation, a.getStation))
	handle(routing.CREATE, "/RNs/{networkId}/ChargingPools/{poolId}/ChargingStations/{stationId}", a.on(res.NetworkPool, a.createStation), admin...)
	handle(routing.GET, "/RNs/{networkId}/ChargingPools/{poolId}/ChargingStations/{stationId}/EVSEs", a.on(res.NetworkPoolStation, a.listStationEVSEs))
	handle(routing.COUNT, "/RNs/{networkId}/ChargingPools/{poolId}/ChargingStations/{stationId}/EVSEs", a.on(res.NetworkPoolStation, a.countStationEVSEs))
	handle(routing.GET, "/RNs/{networkId}/ChargingPools/{poolId}/ChargingStations/{stationId}/EVSEs/{evseId}", a.on(res.NetworkPoolStationEVSE, a.getEVSE))

	// stations
	handle(routing.GET, "/RNs/{networkId}/ChargingStations", a.on(res.Network, a.listStations))
	handle(routing.COUNT, "/RNs/{networkId}/ChargingStations", a.on(res.Network, a.countStations))
	handle(routing.GET, "/RNs/{networkId}/ChargingStations->Id", a.on(res.Network, a.stationIDs))
	handle(routing.GET, "/RNs/{networkId}/ChargingStations->AdminStatus", a.on(res.Network, a.stationAdminStatuses))
	handle(routing.GET, "/RNs/{networkId}/ChargingStations->Status", a.on(res.Network, a.stationStatuses))
	handle(routing.GET, "/RNs/{networkId}/ChargingStations/{stationId}", a.on(res.NetworkStation, a.getStation))
	handle(routing.GET, "/RNs/{networkId}/ChargingStations/{stationId}/EVSEs", a.on(res.NetworkStation, a.listStationEVSEs))
	handle(routing.COUNT, "/RNs/{networkId}/ChargingStations/{stationId}/EVSEs", a.on(res.NetworkStation, a.countStationEVSEs))
	handle(routing.GET, "/RNs/{networkId}/ChargingStations/{stationId}/EVSEs/{evseId}", a.on(res.NetworkStationEVSE, a.getEVSE))
	handle(routing.CREATE, "/RNs/{networkId}/ChargingStations/{stationId}/EVSEs/{evseId}", a.on(res.NetworkStation, a.createEVSE), admin...)

	// EVSEs
	handle(routing.GET, "/RNs/{networkId}/EVSEs", a.on(res.Network, a.listEVSEs))
	handle(routing.COUNT, "/RNs/{networkId}/EVSEs", a.on(res.Network, a.countEVSEs))
	handle(routing.GET, "/RNs/{networkId}/EVSEs->Id", a.on(res.Network, a.evseIDs))
	handle(routing.GET, "/RNs/{networkId}/EVSEs->AdminStatus", a.on(res.Network, a.evseAdminStatuses))
	handle(routing.GET, "/RNs/{networkId}/EVSEs->Status", a.on(res.Network, a.evseStatuses))
	handle(routing.GET, "/RNs/{networkId}/EVSEs/{evseId}", a.on(res.NetworkEVSE, a.getEVSE))
	handle(routing.RESERVE, "/RNs/{networkId}/EVSEs/{evseId}", a.on(res.NetworkEVSE, a.reserve))
	handle(routing.AUTHSTART, "/RNs/{networkId}/EVSEs/{evseId}", a.on(res.NetworkEVSE, a.authorizeStart))
	handle(routing.AUTHSTOP, "/RNs/{networkId}/EVSEs/{evseId}", a.on(res.NetworkEVSE, a.authorizeStop))
	handle(routing.REMOTESTART, "/RNs/{networkId}/EVSEs/{evseId}", a.on(res.NetworkEVSE, a.remoteStart))
	handle(routing.REMOTESTOP, "/RNs/{networkId}/EVSEs/{evseId}", a.on(res.NetworkEVSE, a.remoteStop))
	handle(routing.SENDCDR, "/RNs/{networkId}/EVSEs/{evseId}", a.on(res.NetworkEVSE, a.sendCDR))
	handle(routing.GET, "/RNs/{networkId}/EVSEs/{evseId}/AdminStatus", a.on(res.NetworkEVSE, a.getEVSEAdminStatus))
	handle(routing.SET, "/RNs/{networkId}/EVSEs/{evseId}/AdminStatus", a.on(res.NetworkEVSE, a.setEVSEAdminStatus), admin...)
	handle(routing.GET, "/RNs/{networkId}/EVSEs/{evseId}/Status", a.on(res.NetworkEVSE, a.getEVSEStatus))
	handle(routing.SET, "/RNs/{networkId}/EVSEs/{evseId}/Status", a.on(res.NetworkEVSE, a.setEVSEStatus), admin...)

	// sessions and reservations
	handle(routing.GET, "/RNs/{networkId}/ChargingSessions", a.on(res.Network, a.listSessions))
	handle(routing.COUNT, "/RNs/{networkId}/ChargingSessions", a.on(res.Network, a.countSessions))
	handle(routing.GET, "/RNs/{networkId}/ChargingSessions->Id", a.on(res.Network, a.sessionIDs))
	handle(routing.GET, "/RNs/{networkId}/ChargingSessions/{sessionId}", a.on(res.NetworkSession, a.getSession))
	handle(routing.GET, "/RNs/{networkId}/Reservations", a.on(res.Network, a.listReservations))
	handle(routing.COUNT, "/RNs/{networkId}/Reservations", a.on(res.Network, a.countReservations))
	handle(routing.GET, "/RNs/{networkId}/Reservations/{reservationId}", a.on(res.NetworkReservation, a.getReservation))
	handle(routing.SETEXPIRED, "/RNs/{networkId}/Reservations/{reservationId}", a.on(res.NetworkReservation, a.cancelReservation), admin...)
	handle(routing.DELETE, "/RNs/{networkId}/Reservations/{reservationId}", a.on(res.NetworkReservation, a.cancelReservation), admin...)

	// providers
	handle(routing.GET, "/RNs/{networkId}/eMobilityProviders", a.on(res.Network, a.listProviders))
	handle(routing.COUNT, "/RNs/{networkId}/eMobilityProviders", a.on(res.Network, a.countProviders))
	handle(routing.GET, "/RNs/{networkId}/eMobilityProviders/{providerId}", a.on(res.NetworkProvider, a.getProvider))
}

// statusEntries parses a SET body: either a single CurrentStatus stamped with
// the request time, or a StatusList of timestamp -> value.
func statusEntries[T any](b body, ts time.Time, parse func(string) (T, error)) ([]network.Timestamped[T], *apierr.Error) {
	if b.has("CurrentStatus") {
		v, aerr := mandatory(b, "CurrentStatus", parse)
		if aerr != nil {
			return nil, aerr
		}
		return []network.Timestamped[T]{{Timestamp: ts, Value: v}}, nil
	}
	if b.has("StatusList") {
		var raw map[string]string
		if err := json.Unmarshal(b["StatusList"], &raw); err != nil || len(raw) == 0 {
			return nil, apierr.BadRequest("Invalid 'StatusList' property!")
		}
		keys := make([]string, 0, len(raw))
		for k := range raw {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]network.Timestamped[T], 0, len(raw))
		for _, k := range keys {
			at, err := parseTime(k)
			if err != nil {
				return nil, apierr.BadRequest("Invalid timestamp '%s' within 'StatusList'!", k)
			}
			v, err := parse(raw[k])
			if err != nil {
				return nil, apierr.BadRequest("Invalid status '%s' within 'StatusList'!", raw[k])
			}
			out = append(out, network.Timestamped[T]{Timestamp: at, Value: v})
		}
		return out, nil
	}
	return nil, apierr.BadRequest("Either a 'CurrentStatus' or a 'StatusList' must be send!")
}

// setStatus runs the common SET flow for admin status and status resources.
func setStatus[T any](a *API, req *routing.Request, r *resolve.Resolved, parse func(string) (T, error), apply func([]network.Timestamped[T]) error) *routing.Response {
	b, aerr := readBody(req, false)
	if aerr != nil {
		return writeError(aerr)
	}
	entries, aerr := statusEntries(b, req.Timestamp, parse)
	if aerr != nil {
		return writeError(aerr)
	}
	a.publish(req, r, map[string]any{"path": req.URL.Path, "entries": len(entries)})
	if err := apply(entries); err != nil {
		a.logger.Error("set status", zap.String("path", req.URL.Path), zap.Error(err))
		return writeError(apierr.NotFound("%s", err.Error()))
	}
	return writeStatus(http.StatusOK)
}
