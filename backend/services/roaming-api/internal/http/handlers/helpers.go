package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/apierr"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/http/routing"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/network"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/projection"
)

func writeJSON(status int, payload interface{}) *routing.Response {
	resp := &routing.Response{Status: status, ContentType: routing.ContentTypeJSON}
	if payload == nil {
		return resp
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return writeError(apierr.Internal("Could not serialize response!"))
	}
	resp.Body = body
	return resp
}

func writeError(err *apierr.Error) *routing.Response {
	return writeJSON(err.Status, map[string]string{"description": err.Description})
}

func writeStatus(status int) *routing.Response {
	return &routing.Response{Status: status}
}

// created turns a 200 response into a 201.
func created(resp *routing.Response) *routing.Response {
	if resp.Status == http.StatusOK {
		resp.Status = http.StatusCreated
	}
	return resp
}

func writeCount(n int) *routing.Response {
	return writeJSON(http.StatusOK, map[string]int{"count": n})
}

// listing describes how to page and render one collection.
type listing[T any, V any] struct {
	items      []T
	id         func(T) string
	lastChange func(T) time.Time
	view       func(projection.Renderer, T) V
	defaults   projection.Policy
}

func (l listing[T, V]) page(req *routing.Request) (projection.Page[T], projection.Query, *apierr.Error) {
	q, aerr := projection.ParseQuery(req.URL.Query())
	if aerr != nil {
		return projection.Page[T]{}, q, aerr
	}
	return projection.Paginate(l.items, l.id, l.lastChange, q), q, nil
}

// render writes the requested page and the total count header.
func (l listing[T, V]) render(req *routing.Request, n *network.RoamingNetwork) *routing.Response {
	page, q, aerr := l.page(req)
	if aerr != nil {
		return writeError(aerr)
	}
	r := projection.Renderer{Network: n, Policy: projection.ParsePolicy(req.URL.Query(), l.defaults), Query: q}
	out := make([]V, 0, len(page.Items))
	for _, it := range page.Items {
		out = append(out, l.view(r, it))
	}
	return withTotal(writeJSON(http.StatusOK, out), page.Total)
}

// ids writes the ids of the requested page.
func (l listing[T, V]) ids(req *routing.Request) *routing.Response {
	page, _, aerr := l.page(req)
	if aerr != nil {
		return writeError(aerr)
	}
	out := make([]string, 0, len(page.Items))
	for _, it := range page.Items {
		out = append(out, l.id(it))
	}
	return withTotal(writeJSON(http.StatusOK, out), page.Total)
}

// statuses writes id -> status for the requested page.
func (l listing[T, V]) statuses(req *routing.Request, status func(T, projection.Query) any) *routing.Response {
	page, q, aerr := l.page(req)
	if aerr != nil {
		return writeError(aerr)
	}
	out := make(map[string]any, len(page.Items))
	for _, it := range page.Items {
		out[l.id(it)] = status(it, q)
	}
	return withTotal(writeJSON(http.StatusOK, out), page.Total)
}

func (l listing[T, V]) count() *routing.Response { return writeCount(len(l.items)) }

func withTotal(resp *routing.Response, total int) *routing.Response {
	if resp.Header == nil {
		resp.Header = http.Header{}
	}
	resp.Header.Set(projection.TotalHeader, strconv.Itoa(total))
	return resp
}

// single renders one entity.
func single[T any, V any](req *routing.Request, n *network.RoamingNetwork, it T, defaults projection.Policy, view func(projection.Renderer, T) V) *routing.Response {
	q, aerr := projection.ParseQuery(req.URL.Query())
	if aerr != nil {
		return writeError(aerr)
	}
	r := projection.Renderer{Network: n, Policy: projection.ParsePolicy(req.URL.Query(), defaults), Query: q}
	return writeJSON(http.StatusOK, view(r, it))
}

// statusView renders one status schedule under the request's query.
func statusView[T ~string](req *routing.Request, s *network.Schedule[T]) *routing.Response {
	q, aerr := projection.ParseQuery(req.URL.Query())
	if aerr != nil {
		return writeError(aerr)
	}
	return writeJSON(http.StatusOK, projection.RenderSchedule(s, q))
}
