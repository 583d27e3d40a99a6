// Package routing is the route table of the roaming API: routes are keyed by
// hostname pattern, verb and path template, and dispatched through per-host
// gorilla/mux routers.
package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Content types.
const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain"
	ContentTypeCSV  = "text/csv"
)

// AnyHost matches every hostname not matched by a more specific pattern.
const AnyHost = "*"

// Request is an incoming request after route matching.
type Request struct {
	*http.Request

	Hostname    string
	HostPattern string
	Template    string
	Verb        Verb
	// Params are the template placeholder values in template order.
	Params    []string
	Vars      map[string]string
	Timestamp time.Time
}

// Response is returned by handlers and written verbatim.
type Response struct {
	Status      int
	Header      http.Header
	ContentType string
	Body        []byte
}

// Handler serves one (host, verb, template) route.
type Handler func(ctx context.Context, req *Request) *Response

// Middleware decorates a handler.
type Middleware func(Handler) Handler

type route struct {
	verb        Verb
	contentType string
	handler     Handler
}

type templateRoutes struct {
	template string
	params   []string
	verbs    map[string]route
}

// Table registers routes and dispatches requests. It implements http.Handler.
type Table struct {
	prefix     string
	serverName string
	observer   Observer
	logger     *zap.Logger
	now        func() time.Time

	mu      sync.RWMutex
	hosts   map[string]map[string]*templateRoutes
	routers map[string]*mux.Router
	dirty   bool
}

// Option configures a Table.
type Option func(*Table)

// WithPrefix mounts every template under prefix.
func WithPrefix(prefix string) Option {
	return func(t *Table) { t.prefix = strings.TrimSuffix(prefix, "/") }
}

// WithServerName sets the Server response header.
func WithServerName(name string) Option {
	return func(t *Table) { t.serverName = name }
}

// WithObserver sets the request/response observer.
func WithObserver(o Observer) Option {
	return func(t *Table) { t.observer = o }
}

// WithClock overrides the request timestamp source.
func WithClock(now func() time.Time) Option {
	return func(t *Table) { t.now = now }
}

// NewTable creates an empty route table.
func NewTable(logger *zap.Logger, opts ...Option) *Table {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Table{
		serverName: "roaming-api",
		logger:     logger,
		now:        time.Now,
		hosts:      make(map[string]map[string]*templateRoutes),
		routers:    make(map[string]*mux.Router),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

var placeholder = regexp.MustCompile(`\{([^}:]+)(?::[^}]*)?\}`)

// Add registers a route. Registering the same (host, verb, template) twice
// replaces the earlier handler.
func (t *Table) Add(hostPattern string, verb Verb, template, contentType string, h Handler, mw ...Middleware) {
	if hostPattern == "" {
		hostPattern = AnyHost
	}
	if contentType == "" {
		contentType = ContentTypeJSON
	}
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	templates, ok := t.hosts[hostPattern]
	if !ok {
		templates = make(map[string]*templateRoutes)
		t.hosts[hostPattern] = templates
	}
	tr, ok := templates[template]
	if !ok {
		tr = &templateRoutes{template: template, verbs: make(map[string]route)}
		for _, m := range placeholder.FindAllStringSubmatch(template, -1) {
			tr.params = append(tr.params, m[1])
		}
		templates[template] = tr
	}
	tr.verbs[verb.Name] = route{verb: verb, contentType: contentType, handler: h}
	t.dirty = true
}

// Handle registers a JSON route for every hostname.
func (t *Table) Handle(verb Verb, template string, h Handler, mw ...Middleware) {
	t.Add(AnyHost, verb, template, ContentTypeJSON, h, mw...)
}

// literalSegments counts template segments without placeholders.
func literalSegments(template string) int {
	n := 0
	for _, seg := range strings.Split(strings.Trim(template, "/"), "/") {
		if !strings.Contains(seg, "{") {
			n++
		}
	}
	return n
}

// rebuild creates one router per host pattern. More specific templates are
// registered first, since mux returns the first match. Caller holds t.mu.
func (t *Table) rebuild() {
	routers := make(map[string]*mux.Router, len(t.hosts))
	for host, templates := range t.hosts {
		ordered := make([]*templateRoutes, 0, len(templates))
		for _, tr := range templates {
			ordered = append(ordered, tr)
		}
		sort.Slice(ordered, func(i, j int) bool {
			a, b := ordered[i].template, ordered[j].template
			if la, lb := literalSegments(a), literalSegments(b); la != lb {
				return la > lb
			}
			if len(a) != len(b) {
				return len(a) > len(b)
			}
			return a < b
		})
		r := mux.NewRouter()
		for _, tr := range ordered {
			r.Path(t.prefix + tr.template).Name(tr.template).Handler(http.NotFoundHandler())
		}
		routers[host] = r
	}
	t.routers = routers
	t.dirty = false
}

// hostPatternFor picks the most specific registered pattern: exact hostname,
// then the longest matching "*.suffix", then AnyHost. Caller holds t.mu.
func (t *Table) hostPatternFor(hostname string) (string, bool) {
	if _, ok := t.hosts[hostname]; ok {
		return hostname, true
	}
	best := ""
	for pattern := range t.hosts {
		if strings.HasPrefix(pattern, "*.") && strings.HasSuffix(hostname, pattern[1:]) && len(pattern) > len(best) {
			best = pattern
		}
	}
	if best != "" {
		return best, true
	}
	_, ok := t.hosts[AnyHost]
	return AnyHost, ok
}

func (t *Table) lookup(r *http.Request, hostname string) (string, *templateRoutes, map[string]string) {
	t.mu.RLock()
	if t.dirty {
		t.mu.RUnlock()
		t.mu.Lock()
		if t.dirty {
			t.rebuild()
		}
		t.mu.Unlock()
		t.mu.RLock()
	}
	defer t.mu.RUnlock()

	pattern, ok := t.hostPatternFor(hostname)
	if !ok {
		return "", nil, nil
	}
	var match mux.RouteMatch
	if !t.routers[pattern].Match(r, &match) || match.Route == nil {
		return pattern, nil, nil
	}
	return pattern, t.hosts[pattern][match.Route.GetName()], match.Vars
}

func hostnameOf(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(host)
}

// ServeHTTP matches the request, calls the handler and writes its response.
func (t *Table) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := t.now()
	hostname := hostnameOf(r.Host)

	pattern, tr, vars := t.lookup(r, hostname)
	req := &Request{Request: r, Hostname: hostname, HostPattern: pattern, Vars: vars, Timestamp: start}
	if tr == nil {
		t.write(w, req, nil, errorResponse(http.StatusNotFound, "Unknown resource!"), start)
		return
	}
	req.Template = tr.template
	for _, name := range tr.params {
		req.Params = append(req.Params, vars[name])
	}

	method := strings.ToUpper(r.Method)
	rt, ok := tr.verbs[method]
	if !ok {
		if method == OPTIONS.Name {
			req.Verb = OPTIONS
			t.write(w, req, tr, &Response{Status: http.StatusOK}, start)
			return
		}
		resp := errorResponse(http.StatusMethodNotAllowed, fmt.Sprintf("Method %s not allowed!", method))
		resp.Header = http.Header{"Allow": {allowed(tr)}}
		t.write(w, req, tr, resp, start)
		return
	}
	req.Verb = rt.verb

	if !accepts(r.Header.Get("Accept"), rt.contentType) {
		t.write(w, req, tr, errorResponse(http.StatusNotAcceptable, "Unsupported content type requested!"), start)
		return
	}

	t.notify(func(o Observer) { o.RequestReceived(req) })
	resp := rt.handler(r.Context(), req)
	if resp == nil {
		resp = &Response{Status: http.StatusNoContent}
	}
	if resp.ContentType == "" && len(resp.Body) > 0 {
		resp.ContentType = rt.contentType
	}
	t.write(w, req, tr, resp, start)
}

func (t *Table) write(w http.ResponseWriter, req *Request, tr *templateRoutes, resp *Response, start time.Time) {
	h := w.Header()
	for k, vs := range resp.Header {
		h[k] = vs
	}
	h.Set("Server", t.serverName)
	h.Set("Date", start.UTC().Format(http.TimeFormat))
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")
	if tr != nil {
		h.Set("Access-Control-Allow-Methods", allowed(tr))
		if h.Get("Allow") == "" && req.Verb == OPTIONS {
			h.Set("Allow", allowed(tr))
		}
	}
	if len(resp.Body) > 0 {
		ct := resp.ContentType
		if ct == "" {
			ct = ContentTypeJSON
		}
		if !strings.Contains(ct, "charset") {
			ct += "; charset=utf-8"
		}
		h.Set("Content-Type", ct)
		h.Set("ETag", fmt.Sprintf(`"%016x"`, xxhash.Sum64(resp.Body)))
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(resp.Body) > 0 && req.Method != http.MethodHead {
		if _, err := w.Write(resp.Body); err != nil {
			t.logger.Warn("write response", zap.Error(err))
		}
	}

	if req.Verb.Name != "" {
		elapsed := t.now().Sub(start)
		t.notify(func(o Observer) { o.ResponseSent(req, resp, elapsed) })
	}
}

// notify calls the observer in its own goroutine; a panicking observer is
// logged and otherwise ignored.
func (t *Table) notify(call func(Observer)) {
	if t.observer == nil {
		return
	}
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				t.logger.Error("observer panicked", zap.Any("panic", rec))
			}
		}()
		call(t.observer)
	}()
}

func allowed(tr *templateRoutes) string {
	names := make([]string, 0, len(tr.verbs)+1)
	hasOptions := false
	for name := range tr.verbs {
		names = append(names, name)
		if name == OPTIONS.Name {
			hasOptions = true
		}
	}
	if !hasOptions {
		names = append(names, OPTIONS.Name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func accepts(accept, contentType string) bool {
	if accept == "" {
		return true
	}
	major := strings.SplitN(contentType, "/", 2)[0]
	for _, part := range strings.Split(accept, ",") {
		mt := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if mt == "*/*" || mt == contentType || mt == major+"/*" {
			return true
		}
	}
	return false
}

func errorResponse(status int, description string) *Response {
	body, _ := json.Marshal(map[string]string{"description": description})
	return &Response{Status: status, ContentType: ContentTypeJSON, Body: body}
}
