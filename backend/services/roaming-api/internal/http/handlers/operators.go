package handlers

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/http/routing"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/ids"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/network"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/projection"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/resolve"
)

func operatorListing(items []*network.Operator) listing[*network.Operator, projection.OperatorView] {
	return listing[*network.Operator, projection.OperatorView]{
		items:      items,
		id:         func(o *network.Operator) string { return o.ID.String() },
		lastChange: func(o *network.Operator) time.Time { return o.LastChange() },
		view:       projection.Renderer.Operator,
		defaults:   operatorDefaults,
	}
}

func (a *API) listOperators(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return operatorListing(r.Network.Operators()).render(req, r.Network)
}

func (a *API) countOperators(_ context.Context, _ *routing.Request, r *resolve.Resolved) *routing.Response {
	return operatorListing(r.Network.Operators()).count()
}

func (a *API) operatorIDs(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return operatorListing(r.Network.Operators()).ids(req)
}

func (a *API) getOperator(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return single(req, r.Network, r.Operator, operatorDefaults, projection.Renderer.Operator)
}

func (a *API) createOperator(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	id, aerr := newID(req, resolve.KindOperator, ids.ParseOperatorID)
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
	description, _, aerr := nameOf(b, "Description")
	if aerr != nil {
		return writeError(aerr)
	}

	a.publish(req, r, map[string]any{"operatorId": id.String(), "name": name})
	o, err := r.Network.CreateOperator(id, name, description)
	if err != nil {
		return a.createError(resolve.KindOperator, err)
	}
	return created(single(req, r.Network, o, operatorDefaults, projection.Renderer.Operator))
}

func (a *API) getOperatorAdminStatus(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return statusView(req, r.Operator.AdminStatus)
}

func (a *API) setOperatorAdminStatus(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return setStatus(a, req, r, network.ParseAdminStatus, func(entries []network.Timestamped[network.AdminStatusType]) error {
		return r.Network.SetOperatorAdminStatus(r.Operator.ID, entries)
	})
}

// groups, brands and tariffs

func (a *API) listStationGroups(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return listing[*network.StationGroup, projection.GroupView]{
		items:    byID(r.Operator.StationGroupIDs(), r.Network.StationGroup),
		id:       func(g *network.StationGroup) string { return g.ID.String() },
		view:     projection.Renderer.StationGroup,
		defaults: memberDefaults,
	}.render(req, r.Network)
}

func (a *API) getStationGroup(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return single(req, r.Network, r.StationGroup, memberDefaults, projection.Renderer.StationGroup)
}

func (a *API) listEVSEGroups(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return listing[*network.EVSEGroup, projection.GroupView]{
		items:    byID(r.Operator.EVSEGroupIDs(), r.Network.EVSEGroup),
		id:       func(g *network.EVSEGroup) string { return g.ID.String() },
		view:     projection.Renderer.EVSEGroup,
		defaults: memberDefaults,
	}.render(req, r.Network)
}

func (a *API) getEVSEGroup(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return single(req, r.Network, r.EVSEGroup, memberDefaults, projection.Renderer.EVSEGroup)
}

func (a *API) listBrands(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return listing[*network.Brand, projection.BrandView]{
		items:    byID(r.Operator.BrandIDs(), r.Network.Brand),
		id:       func(b *network.Brand) string { return b.ID.String() },
		view:     projection.Renderer.Brand,
		defaults: plainDefaults,
	}.render(req, r.Network)
}

func (a *API) getBrand(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return single(req, r.Network, r.Brand, plainDefaults, projection.Renderer.Brand)
}

func (a *API) tariffs(r *resolve.Resolved) []*network.Tariff {
	return byID(r.Operator.TariffIDs(), r.Network.Tariff)
}

func (a *API) listTariffs(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return listing[*network.Tariff, projection.TariffView]{
		items:    a.tariffs(r),
		id:       func(t *network.Tariff) string { return t.ID.String() },
		view:     projection.Renderer.Tariff,
		defaults: memberDefaults,
	}.render(req, r.Network)
}

func (a *API) getTariff(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return single(req, r.Network, r.Tariff, memberDefaults, projection.Renderer.Tariff)
}

var tariffOverviewHeader = []string{"EVSEId", "TariffId", "Name", "Currency", "PricePerKWh", "PricePerMinute", "SessionFee"}

// quoted writes one semicolon separated line with every field quoted.
func quoted(buf *bytes.Buffer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(';')
		}
		buf.WriteByte('"')
		buf.WriteString(strings.ReplaceAll(f, `"`, `""`))
		buf.WriteByte('"')
	}
	buf.WriteString("\r\n")
}

func price(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// tariffOverview lists one line per (EVSE, tariff) pair of the operator.
func (a *API) tariffOverview(_ context.Context, _ *routing.Request, r *resolve.Resolved) *routing.Response {
	var buf bytes.Buffer
	quoted(&buf, tariffOverviewHeader)
	for _, t := range a.tariffs(r) {
		for _, evse := range t.EVSEIDs() {
			quoted(&buf, []string{
				evse.String(),
				t.ID.String(),
				t.Name,
				t.Currency,
				price(t.PricePerKWh),
				price(t.PricePerMinute),
				price(t.SessionFee),
			})
		}
	}
	return &routing.Response{Status: http.StatusOK, ContentType: routing.ContentTypeCSV, Body: buf.Bytes()}
}

// providers

func providerListing(items []*network.Provider) listing[*network.Provider, projection.ProviderView] {
	return listing[*network.Provider, projection.ProviderView]{
		items:      items,
		id:         func(p *network.Provider) string { return p.ID.String() },
		lastChange: func(p *network.Provider) time.Time { return p.LastChange() },
		view:       projection.Renderer.Provider,
		defaults:   plainDefaults,
	}
}

func (a *API) listProviders(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return providerListing(r.Network.Providers()).render(req, r.Network)
}

func (a *API) countProviders(_ context.Context, _ *routing.Request, r *resolve.Resolved) *routing.Response {
	return providerListing(r.Network.Providers()).count()
}

func (a *API) getProvider(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return single(req, r.Network, r.Provider, plainDefaults, projection.Renderer.Provider)
}
