package handlers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/apierr"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/http/routing"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/network"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/projection"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/resolve"
)

func reservationListing(items []*network.Reservation) listing[*network.Reservation, projection.ReservationView] {
	return listing[*network.Reservation, projection.ReservationView]{
		items:      items,
		id:         func(r *network.Reservation) string { return r.ID.String() },
		lastChange: func(r *network.Reservation) time.Time { return r.Timestamp },
		view:       projection.Renderer.Reservation,
		defaults:   plainDefaults,
	}
}

func (a *API) listReservations(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return reservationListing(r.Network.Reservations()).render(req, r.Network)
}

func (a *API) countReservations(_ context.Context, _ *routing.Request, r *resolve.Resolved) *routing.Response {
	return reservationListing(r.Network.Reservations()).count()
}

func (a *API) getReservation(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return single(req, r.Network, r.Reservation, plainDefaults, projection.Renderer.Reservation)
}

// cancelReservation serves SETEXPIRED and DELETE.
func (a *API) cancelReservation(ctx context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	ctx, cancel := context.WithTimeout(ctx, CancelReservationTimeout)
	defer cancel()

	a.publish(req, r, map[string]any{"reservationId": r.Reservation.ID.String()})
	result := r.Network.CancelReservation(ctx, req.Timestamp, r.Reservation.ID, network.CancellationReasonDeleted)
	if result.Code != network.CancelSuccess {
		a.logger.Error("cancel reservation",
			zap.String("reservation_id", r.Reservation.ID.String()),
			zap.String("result", string(result.Code)),
			zap.String("description", result.Description),
		)
		return writeError(apierr.Internal("%s", orDefault(result.Description, string(result.Code))))
	}
	return single(req, r.Network, result.Reservation, plainDefaults, projection.Renderer.Reservation)
}

func sessionListing(items []*network.Session) listing[*network.Session, projection.SessionView] {
	return listing[*network.Session, projection.SessionView]{
		items: items,
		id:    func(s *network.Session) string { return s.ID.String() },
		lastChange: func(s *network.Session) time.Time {
			if s.StopTime != nil {
				return *s.StopTime
			}
			return s.StartTime
		},
		view:     projection.Renderer.Session,
		defaults: plainDefaults,
	}
}

func (a *API) listSessions(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return sessionListing(r.Network.Sessions()).render(req, r.Network)
}

func (a *API) countSessions(_ context.Context, _ *routing.Request, r *resolve.Resolved) *routing.Response {
	return sessionListing(r.Network.Sessions()).count()
}

func (a *API) sessionIDs(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return sessionListing(r.Network.Sessions()).ids(req)
}

func (a *API) getSession(_ context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	return single(req, r.Network, r.Session, plainDefaults, projection.Renderer.Session)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
