package handlers

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/apierr"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/http/routing"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/ids"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/network"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/projection"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/resolve"
)

// byID looks up every id, skipping dangling ones.
func byID[ID ~string, E any](idList []ID, find func(ID) (E, bool)) []E {
	out := make([]E, 0, len(idList))
	for _, id := range idList {
		if e, ok := find(id); ok {
			out = append(out, e)
		}
	}
	return out
}

// createError maps an arena mutation error to its HTTP form.
func (a *API) createError(kind string, err error) *routing.Response {
	switch {
	case errors.Is(err, network.ErrAlreadyExists):
		return writeError(apierr.Conflict("%s already exists!", kind))
	case errors.Is(err, network.ErrUnknownParent):
		return writeError(apierr.NotFound("Unknown parent of %s!", kind))
	case errors.Is(err, network.ErrOperatorMismatch):
		return writeError(apierr.BadRequest("Invalid %sId!", kind))
	}
	a.logger.Error("create entity", zap.String("kind", kind), zap.Error(err))
	return writeError(apierr.Internal("Could not create %s!", kind))
}

// newID parses the last path parameter of a CREATE route.
func newID[ID any](req *routing.Request, kind string, parse func(string) (ID, error)) (ID, *apierr.Error) {
	var zero ID
	if len(req.Params) == 0 || req.Params[len(req.Params)-1] == "" {
		return zero, apierr.BadRequest("Missing %sId parameter!", kind)
	}
	id, err := parse(req.Params[len(req.Params)-1])
	if err != nil {
		return zero, apierr.BadRequest("Invalid %sId!", kind)
	}
	return id, nil
}

func adminStatusOf(s network.Statuses, q projection.Query) any {
	return projection.RenderSchedule(s.AdminStatus, q)
}

func statusOf(s network.Statuses, q projection.Query) any {
	return projection.RenderSchedule(s.Status, q)
}

// pools

func poolListing(items []*network.Pool) listing[*network.Pool, projection.PoolView] {
	return listing[*network.Pool, projection.PoolView]{
		items:      items,
		id:         func(p *network.Pool) string { return p.ID.String() },
		lastChange: func(p *network.Pool) time.Time { return p.LastChange() },
		view:       projection.Renderer.Pool,
		defaults:   poolDefaults,
	}
}

func (a *API) listPools(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return poolListing(r.Network.Pools()).render(req, r.Network)
}

func (a *API) countPools(_ context.Context, _ *routing.Request, r *resolve.Resolved) *routing.Response {
	return poolListing(r.Network.Pools()).count()
}

func (a *API) poolIDs(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return poolListing(r.Network.Pools()).ids(req)
}

func (a *API) poolAdminStatuses(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return poolListing(r.Network.Pools()).statuses(req, func(p *network.Pool, q projection.Query) any {
		return adminStatusOf(p.Statuses, q)
	})
}

func (a *API) poolStatuses(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return poolListing(r.Network.Pools()).statuses(req, func(p *network.Pool, q projection.Query) any {
		return statusOf(p.Statuses, q)
	})
}

func (a *API) getPool(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return single(req, r.Network, r.Pool, poolDefaults, projection.Renderer.Pool)
}

func (a *API) operatorPools(r *resolve.Resolved) listing[*network.Pool, projection.PoolView] {
	return poolListing(byID(r.Operator.PoolIDs(), r.Network.Pool))
}

func (a *API) listOperatorPools(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return a.operatorPools(r).render(req, r.Network)
}

func (a *API) countOperatorPools(_ context.Context, _ *routing.Request, r *resolve.Resolved) *routing.Response {
	return a.operatorPools(r).count()
}

func (a *API) createPool(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	id, aerr := newID(req, resolve.KindPool, ids.ParsePoolID)
	if aerr != nil {
		return writeError(aerr)
	}
	b, aerr := readBody(req, true)
	if aerr != nil {
		return writeError(aerr)
	}
	name, _, aerr := nameOf(b, "Name")
	if aerr != nil {
		return writeError(aerr)
	}
	address, _, aerr := b.str("Address")
	if aerr != nil {
		return writeError(aerr)
	}

	a.publish(req, r, map[string]any{"operatorId": r.Operator.ID.String(), "poolId": id.String()})
	p, err := r.Network.CreatePool(r.Operator.ID, id, name, address)
	if err != nil {
		return a.createError(resolve.KindPool, err)
	}
	return created(single(req, r.Network, p, poolDefaults, projection.Renderer.Pool))
}

func (a *API) getPoolAdminStatus(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return statusView(req, r.Pool.AdminStatus)
}

func (a *API) setPoolAdminStatus(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return setStatus(a, req, r, network.ParseAdminStatus, func(entries []network.Timestamped[network.AdminStatusType]) error {
		return r.Network.SetPoolAdminStatus(r.Pool.ID, entries)
	})
}

// stations

func stationListing(items []*network.Station) listing[*network.Station, projection.StationView] {
	return listing[*network.Station, projection.StationView]{
		items:      items,
		id:         func(s *network.Station) string { return s.ID.String() },
		lastChange: func(s *network.Station) time.Time { return s.LastChange() },
		view:       projection.Renderer.Station,
		defaults:   stationDefaults,
	}
}

func (a *API) listStations(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return stationListing(r.Network.Stations()).render(req, r.Network)
}

func (a *API) countStations(_ context.Context, _ *routing.Request, r *resolve.Resolved) *routing.Response {
	return stationListing(r.Network.Stations()).count()
}

func (a *API) stationIDs(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return stationListing(r.Network.Stations()).ids(req)
}

func (a *API) stationAdminStatuses(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return stationListing(r.Network.Stations()).statuses(req, func(s *network.Station, q projection.Query) any {
		return adminStatusOf(s.Statuses, q)
	})
}

func (a *API) stationStatuses(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return stationListing(r.Network.Stations()).statuses(req, func(s *network.Station, q projection.Query) any {
		return statusOf(s.Statuses, q)
	})
}

func (a *API) getStation(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return single(req, r.Network, r.Station, stationDefaults, projection.Renderer.Station)
}

func (a *API) listPoolStations(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return stationListing(byID(r.Pool.StationIDs(), r.Network.Station)).render(req, r.Network)
}

func (a *API) countPoolStations(_ context.Context, _ *routing.Request, r *resolve.Resolved) *routing.Response {
	return writeCount(len(r.Pool.StationIDs()))
}

func (a *API) createStation(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	id, aerr := newID(req, resolve.KindStation, ids.ParseStationID)
	if aerr != nil {
		return writeError(aerr)
	}
	b, aerr := readBody(req, true)
	if aerr != nil {
		return writeError(aerr)
	}
	name, _, aerr := nameOf(b, "Name")
	if aerr != nil {
		return writeError(aerr)
	}

	a.publish(req, r, map[string]any{"poolId": r.Pool.ID.String(), "stationId": id.String()})
	s, err := r.Network.CreateStation(r.Pool.ID, id, name)
	if err != nil {
		return a.createError(resolve.KindStation, err)
	}
	return created(single(req, r.Network, s, stationDefaults, projection.Renderer.Station))
}

func (a *API) getStationAdminStatus(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return statusView(req, r.Station.AdminStatus)
}

func (a *API) setStationAdminStatus(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return setStatus(a, req, r, network.ParseAdminStatus, func(entries []network.Timestamped[network.AdminStatusType]) error {
		return r.Network.SetStationAdminStatus(r.Station.ID, entries)
	})
}

// EVSEs

func evseListing(items []*network.EVSE) listing[*network.EVSE, projection.EVSEView] {
	return listing[*network.EVSE, projection.EVSEView]{
		items:      items,
		id:         func(e *network.EVSE) string { return e.ID.String() },
		lastChange: func(e *network.EVSE) time.Time { return e.LastChange() },
		view:       projection.Renderer.EVSE,
		defaults:   evseDefaults,
	}
}

func (a *API) listEVSEs(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return evseListing(r.Network.EVSEs()).render(req, r.Network)
}

func (a *API) countEVSEs(_ context.Context, _ *routing.Request, r *resolve.Resolved) *routing.Response {
	return evseListing(r.Network.EVSEs()).count()
}

func (a *API) evseIDs(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return evseListing(r.Network.EVSEs()).ids(req)
}

func (a *API) evseAdminStatuses(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return evseListing(r.Network.EVSEs()).statuses(req, func(e *network.EVSE, q projection.Query) any {
		return adminStatusOf(e.Statuses, q)
	})
}

func (a *API) evseStatuses(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return evseListing(r.Network.EVSEs()).statuses(req, func(e *network.EVSE, q projection.Query) any {
		return statusOf(e.Statuses, q)
	})
}

func (a *API) getEVSE(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return single(req, r.Network, r.EVSE, evseDefaults, projection.Renderer.EVSE)
}

func (a *API) listStationEVSEs(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return evseListing(byID(r.Station.EVSEIDs(), r.Network.EVSE)).render(req, r.Network)
}

func (a *API) countStationEVSEs(_ context.Context, _ *routing.Request, r *resolve.Resolved) *routing.Response {
	return writeCount(len(r.Station.EVSEIDs()))
}

func (a *API) createEVSE(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	id, aerr := newID(req, resolve.KindEVSE, ids.ParseEVSEID)
	if aerr != nil {
		return writeError(aerr)
	}
	b, aerr := readBody(req, true)
	if aerr != nil {
		return writeError(aerr)
	}
	maxPower, _, aerr := b.number("MaxPower")
	if aerr != nil {
		return writeError(aerr)
	}
	sockets, aerr := list(b, "SocketOutlets", parseString)
	if aerr != nil {
		return writeError(aerr)
	}

	a.publish(req, r, map[string]any{"stationId": r.Station.ID.String(), "evseId": id.String()})
	e, err := r.Network.CreateEVSE(r.Station.ID, id, maxPower, sockets)
	if err != nil {
		return a.createError(resolve.KindEVSE, err)
	}
	return created(single(req, r.Network, e, evseDefaults, projection.Renderer.EVSE))
}

func (a *API) getEVSEAdminStatus(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return statusView(req, r.EVSE.AdminStatus)
}

func (a *API) setEVSEAdminStatus(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return setStatus(a, req, r, network.ParseAdminStatus, func(entries []network.Timestamped[network.AdminStatusType]) error {
		return r.Network.SetEVSEAdminStatus(r.EVSE.ID, entries)
	})
}

func (a *API) getEVSEStatus(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return statusView(req, r.EVSE.Status)
}

func (a *API) setEVSEStatus(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return setStatus(a, req, r, network.ParseStatus, func(entries []network.Timestamped[network.StatusType]) error {
		return r.Network.SetEVSEStatus(r.EVSE.ID, entries)
	})
}
