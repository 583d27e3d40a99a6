package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/apierr"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/http/routing"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/ids"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/network"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/projection"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/resolve"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/tenants"
)

// Default expansion per entity kind, before include/expand are applied.
var (
	networkDefaults  = projection.Policy{projection.RelOperator: projection.ShowIDOnly, projection.RelProvider: projection.ShowIDOnly}
	operatorDefaults = projection.Policy{projection.RelNetwork: projection.ShowIDOnly, projection.RelPool: projection.ShowIDOnly}
	poolDefaults     = projection.Policy{projection.RelOperator: projection.ShowIDOnly, projection.RelStation: projection.ShowIDOnly}
	stationDefaults  = projection.Policy{projection.RelOperator: projection.ShowIDOnly, projection.RelPool: projection.ShowIDOnly, projection.RelEVSE: projection.ShowIDOnly}
	evseDefaults     = projection.Policy{projection.RelOperator: projection.ShowIDOnly, projection.RelPool: projection.ShowIDOnly, projection.RelStation: projection.ShowIDOnly}
	memberDefaults   = projection.Policy{projection.RelOperator: projection.ShowIDOnly, projection.RelStation: projection.ShowIDOnly, projection.RelEVSE: projection.ShowIDOnly}
	plainDefaults    = projection.Policy{}
)

func (a *API) networks(req *routing.Request) listing[*network.RoamingNetwork, projection.NetworkView] {
	return listing[*network.RoamingNetwork, projection.NetworkView]{
		items:      a.registry.List(req.HostPattern),
		id:         func(n *network.RoamingNetwork) string { return n.ID.String() },
		lastChange: func(n *network.RoamingNetwork) time.Time { return n.LastChange() },
		view:       projection.Renderer.NetworkOf,
		defaults:   networkDefaults,
	}
}

func (a *API) listNetworks(_ context.Context, req *routing.Request) *routing.Response {
	return a.networks(req).render(req, nil)
}

func (a *API) countNetworks(_ context.Context, req *routing.Request) *routing.Response {
	return a.networks(req).count()
}

func (a *API) getNetwork(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return single(req, r.Network, r.Network, networkDefaults, projection.Renderer.NetworkOf)
}

// nameOf reads Name, or the lower-case name some clients send.
func nameOf(b body, key string) (string, bool, *apierr.Error) {
	for _, k := range []string{key, lowerFirst(key)} {
		s, ok, aerr := b.str(k)
		if aerr != nil || ok {
			return s, ok, aerr
		}
	}
	return "", false, nil
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]|0x20) + s[1:]
}

func (a *API) createNetwork(_ context.Context, req *routing.Request) *routing.Response {
	if len(req.Params) == 0 || req.Params[0] == "" {
		return writeError(apierr.BadRequest("Missing %sId parameter!", resolve.KindNetwork))
	}
	id, err := ids.ParseRoamingNetworkID(req.Params[0])
	if err != nil {
		return writeError(apierr.BadRequest("Invalid %sId!", resolve.KindNetwork))
	}
	if _, exists := a.registry.Get(req.HostPattern, id); exists {
		return writeError(apierr.Conflict("RoamingNetwork '%s' already exists!", id))
	}
	b, aerr := readBody(req, false)
	if aerr != nil {
		return writeError(aerr)
	}
	name, ok, aerr := nameOf(b, "Name")
	if aerr != nil {
		return writeError(aerr)
	}
	if !ok {
		return writeError(apierr.BadRequest("Missing 'Name' property!"))
	}
	description, _, aerr := nameOf(b, "Description")
	if aerr != nil {
		return writeError(aerr)
	}

	a.publish(req, nil, map[string]any{"networkId": id.String(), "name": name})
	n, err := a.registry.Create(req.HostPattern, id, name, description)
	if errors.Is(err, tenants.ErrNetworkExists) {
		return writeError(apierr.Conflict("RoamingNetwork '%s' already exists!", id))
	}
	if err != nil {
		a.logger.Error("create roaming network", zap.String("network_id", id.String()), zap.Error(err))
		return writeError(apierr.Internal("Could not create roaming network!"))
	}
	return created(single(req, n, n, networkDefaults, projection.Renderer.NetworkOf))
}

func (a *API) deleteNetwork(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	a.publish(req, r, map[string]any{"networkId": r.Network.ID.String()})
	n, err := a.registry.Remove(req.HostPattern, r.Network.ID)
	if err != nil {
		return writeError(apierr.NotFound("Unknown %sId!", resolve.KindNetwork))
	}
	return single(req, n, n, networkDefaults, projection.Renderer.NetworkOf)
}

func (a *API) getNetworkProperty(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	n := r.Network
	switch req.Vars["propertyKey"] {
	case "Id":
		return writeJSON(http.StatusOK, n.ID.String())
	case "Name":
		return writeJSON(http.StatusOK, n.Name())
	case "Description":
		return writeJSON(http.StatusOK, n.Description())
	case "AdminStatus":
		return statusView(req, n.AdminStatus)
	case "Status":
		return statusView(req, n.Status)
	}
	return writeError(apierr.NotFound("Unknown property '%s'!", req.Vars["propertyKey"]))
}

func (a *API) setNetworkProperty(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	n := r.Network
	key := req.Vars["propertyKey"]
	switch key {
	case "AdminStatus":
		return setStatus(a, req, r, network.ParseAdminStatus, func(entries []network.Timestamped[network.AdminStatusType]) error {
			n.SetAdminStatus(entries)
			return nil
		})
	case "Status":
		return setStatus(a, req, r, network.ParseStatus, func(entries []network.Timestamped[network.StatusType]) error {
			n.SetStatus(entries)
			return nil
		})
	case "Name", "Description":
		b, aerr := readBody(req, false)
		if aerr != nil {
			return writeError(aerr)
		}
		value, ok, aerr := nameOf(b, key)
		if aerr != nil {
			return writeError(aerr)
		}
		if !ok {
			return writeError(apierr.BadRequest("Missing '%s' property!", key))
		}
		a.publish(req, r, map[string]any{"property": key, "value": value})
		if key == "Name" {
			n.SetName(value)
		} else {
			n.SetDescription(value)
		}
		return writeJSON(http.StatusOK, value)
	}
	return writeError(apierr.NotFound("Unknown property '%s'!", key))
}
