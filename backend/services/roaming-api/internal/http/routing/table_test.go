package routing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func text(body string) Handler {
	return func(context.Context, *Request) *Response {
		return &Response{Status: http.StatusOK, Body: []byte(body)}
	}
}

func serve(t *Table, method, target string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	if strings.HasPrefix(target, "http") {
		req.Host = req.URL.Host
	}
	rec := httptest.NewRecorder()
	t.ServeHTTP(rec, req)
	return rec
}

func TestTemplateSpecificity(t *testing.T) {
	table := NewTable(zap.NewNop())
	table.Handle(GET, "/RNs/{networkId}/{propertyKey}", text(`"property"`))
	table.Handle(GET, "/RNs/{networkId}/EVSEs", text(`"evses"`))
	table.Handle(GET, "/RNs/{networkId}", text(`"network"`))

	assert.Equal(t, `"evses"`, serve(table, "GET", "/RNs/Prod/EVSEs").Body.String())
	assert.Equal(t, `"property"`, serve(table, "GET", "/RNs/Prod/Name").Body.String())
	assert.Equal(t, `"network"`, serve(table, "GET", "/RNs/Prod").Body.String())
	assert.Equal(t, http.StatusNotFound, serve(table, "GET", "/nothing").Code)
}

func TestParamsInTemplateOrder(t *testing.T) {
	table := NewTable(zap.NewNop(), WithPrefix("/api/"))
	var got *Request
	table.Handle(RESERVE, "/RNs/{networkId}/EVSEs/{evseId}", func(_ context.Context, req *Request) *Response {
		got = req
		return &Response{Status: http.StatusCreated}
	})

	rec := serve(table, "RESERVE", "/api/RNs/Prod/EVSEs/DE*GEF*E1*1")
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, []string{"Prod", "DE*GEF*E1*1"}, got.Params)
	assert.Equal(t, "DE*GEF*E1*1", got.Vars["evseId"])
	assert.Equal(t, RESERVE, got.Verb)
	assert.False(t, got.Timestamp.IsZero())
}

func TestHostSpecificity(t *testing.T) {
	table := NewTable(zap.NewNop())
	table.Add(AnyHost, GET, "/RNs", ContentTypeJSON, text(`"any"`))
	table.Add("*.example.org", GET, "/RNs", ContentTypeJSON, text(`"wildcard"`))
	table.Add("*.api.example.org", GET, "/RNs", ContentTypeJSON, text(`"longer"`))
	table.Add("exact.api.example.org", GET, "/RNs", ContentTypeJSON, text(`"exact"`))

	assert.Equal(t, `"exact"`, serve(table, "GET", "http://exact.api.example.org:8080/RNs").Body.String())
	assert.Equal(t, `"longer"`, serve(table, "GET", "http://x.api.example.org/RNs").Body.String())
	assert.Equal(t, `"wildcard"`, serve(table, "GET", "http://www.example.org/RNs").Body.String())
	assert.Equal(t, `"any"`, serve(table, "GET", "http://localhost/RNs").Body.String())
}

func TestMethodNotAllowedAndOptions(t *testing.T) {
	table := NewTable(zap.NewNop())
	table.Handle(GET, "/RNs/{networkId}", text(`{}`))
	table.Handle(CREATE, "/RNs/{networkId}", text(`{}`))

	rec := serve(table, "DELETE", "/RNs/Prod")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "CREATE, GET, OPTIONS", rec.Header().Get("Allow"))
	assert.JSONEq(t, `{"description":"Method DELETE not allowed!"}`, rec.Body.String())

	rec = serve(table, "OPTIONS", "/RNs/Prod")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "CREATE, GET, OPTIONS", rec.Header().Get("Allow"))
	assert.Equal(t, "CREATE, GET, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCommonHeaders(t *testing.T) {
	table := NewTable(zap.NewNop(), WithServerName("Open Charging Cloud API"))
	table.Handle(GET, "/RNs", text(`[]`))

	rec := serve(table, "GET", "/RNs")
	h := rec.Header()
	assert.Equal(t, "Open Charging Cloud API", h.Get("Server"))
	assert.NotEmpty(t, h.Get("Date"))
	assert.NotEmpty(t, h.Get("ETag"))
	assert.Equal(t, "application/json; charset=utf-8", h.Get("Content-Type"))
	assert.Equal(t, "*", h.Get("Access-Control-Allow-Origin"))

	again := serve(table, "GET", "/RNs")
	assert.Equal(t, h.Get("ETag"), again.Header().Get("ETag"))
}

func TestAcceptNegotiation(t *testing.T) {
	table := NewTable(zap.NewNop())
	table.Add(AnyHost, GET, "/overview", ContentTypeCSV, text("a;b"))

	assert.Equal(t, http.StatusOK, serve(table, "GET", "/overview", "Accept", "text/*").Code)
	assert.Equal(t, http.StatusOK, serve(table, "GET", "/overview", "Accept", "*/*").Code)
	assert.Equal(t, http.StatusNotAcceptable, serve(table, "GET", "/overview", "Accept", "application/json").Code)
}

func TestHandlerResponseIsWrittenVerbatim(t *testing.T) {
	table := NewTable(zap.NewNop())
	table.Handle(SENDCDR, "/x", func(context.Context, *Request) *Response {
		return &Response{
			Status: http.StatusTeapot,
			Header: http.Header{"Location": {"/somewhere"}},
			Body:   []byte(`{"Status":"forwarded"}`),
		}
	})

	rec := serve(table, "SENDCDR", "/x")
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "/somewhere", rec.Header().Get("Location"))
	assert.Equal(t, `{"Status":"forwarded"}`, rec.Body.String())
}

func TestMiddlewareOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(ctx context.Context, req *Request) *Response {
				order = append(order, name)
				return next(ctx, req)
			}
		}
	}
	table := NewTable(zap.NewNop())
	table.Handle(GET, "/x", text(`1`), mark("outer"), mark("inner"))

	serve(table, "GET", "/x")
	assert.Equal(t, []string{"outer", "inner"}, order)
}

type recordingObserver struct {
	received chan *Request
	sent     chan int
}

func (o *recordingObserver) RequestReceived(req *Request) { o.received <- req }

func (o *recordingObserver) ResponseSent(_ *Request, resp *Response, _ time.Duration) {
	o.sent <- resp.Status
}

type panickingObserver struct{}

func (panickingObserver) RequestReceived(*Request)                        { panic("boom") }
func (panickingObserver) ResponseSent(*Request, *Response, time.Duration) { panic("boom") }

func TestObserverIsNotified(t *testing.T) {
	obs := &recordingObserver{received: make(chan *Request, 1), sent: make(chan int, 1)}
	table := NewTable(zap.NewNop(), WithObserver(obs))
	table.Handle(GET, "/x", text(`1`))

	serve(table, "GET", "/x")

	select {
	case req := <-obs.received:
		assert.Equal(t, "/x", req.Template)
	case <-time.After(time.Second):
		t.Fatal("request not observed")
	}
	select {
	case status := <-obs.sent:
		assert.Equal(t, http.StatusOK, status)
	case <-time.After(time.Second):
		t.Fatal("response not observed")
	}
}

func TestPanickingObserverDoesNotBreakRequests(t *testing.T) {
	table := NewTable(zap.NewNop(), WithObserver(panickingObserver{}))
	table.Handle(GET, "/x", text(`1`))

	rec := serve(table, "GET", "/x")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Body.String())
}

func TestLookupVerb(t *testing.T) {
	v, ok := LookupVerb("reserve")
	require.True(t, ok)
	assert.Equal(t, RESERVE, v)
	assert.False(t, v.Safe)

	_, ok = LookupVerb("PATCH")
	assert.False(t, ok)
}
