package routing

import (
	"time"

	"go.uber.org/zap"
)

// Observer is notified before a handler runs and after its response is
// written. Calls happen off the request path; a nil observer is a no-op.
type Observer interface {
	RequestReceived(req *Request)
	ResponseSent(req *Request, resp *Response, elapsed time.Duration)
}

// LogObserver writes one zap line per request and per response.
type LogObserver struct {
	Logger *zap.Logger
}

func (o LogObserver) RequestReceived(req *Request) {
	o.Logger.Debug("request received",
		zap.String("method", req.Method),
		zap.String("host", req.Hostname),
		zap.String("path", req.URL.Path),
		zap.String("template", req.Template),
	)
}

func (o LogObserver) ResponseSent(req *Request, resp *Response, elapsed time.Duration) {
	o.Logger.Info("request handled",
		zap.String("method", req.Method),
		zap.String("host", req.Hostname),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.Status),
		zap.Duration("duration", elapsed),
	)
}

// Observers fans out to several observers.
type Observers []Observer

func (os Observers) RequestReceived(req *Request) {
	for _, o := range os {
		o.RequestReceived(req)
	}
}

func (os Observers) ResponseSent(req *Request, resp *Response, elapsed time.Duration) {
	for _, o := range os {
		o.ResponseSent(req, resp, elapsed)
	}
}
