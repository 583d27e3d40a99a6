package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/apierr"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/http/routing"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/ids"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/network"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/resolve"
)

// reservationLocation is the reservation URL next to the EVSE path.
func reservationLocation(path string, id ids.ReservationID) string {
	if i := strings.Index(path, "/EVSEs/"); i >= 0 {
		path = path[:i]
	}
	return path + "/Reservations/" + id.String()
}

func intendedCharging(b body) (*network.IntendedCharging, *apierr.Error) {
	ic, ok, aerr := b.object("IntendedCharging")
	if aerr != nil || !ok {
		return nil, aerr
	}
	out := &network.IntendedCharging{}
	if start, ok, aerr := field(ic, "StartTime", parseTime); aerr != nil {
		return nil, aerr
	} else if ok {
		out.StartTime = &start
	}
	if out.Duration, _, aerr = ic.seconds("Duration"); aerr != nil {
		return nil, aerr
	}
	if out.ProductID, _, aerr = field(ic, "ChargingProductId", ids.ParseChargingProductID); aerr != nil {
		return nil, aerr
	}
	if out.Plug, _, aerr = ic.str("Plug"); aerr != nil {
		return nil, aerr
	}
	if out.Consumption, _, aerr = ic.number("Consumption"); aerr != nil {
		return nil, aerr
	}
	return out, nil
}

func (a *API) reserve(ctx context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	b, aerr := readBody(req, false)
	if aerr != nil {
		return writeError(aerr)
	}
	emaid, aerr := mandatory(b, "eMAId", ids.ParseEMAID)
	if aerr != nil {
		return writeError(aerr)
	}
	rr := network.ReserveRequest{EVSEID: r.EVSE.ID, EMAID: emaid}
	if rr.ReservationID, _, aerr = field(b, "ReservationId", ids.ParseReservationID); aerr != nil {
		return writeError(aerr)
	}
	if rr.ProviderID, _, aerr = field(b, "ProviderId", ids.ParseProviderID); aerr != nil {
		return writeError(aerr)
	}
	start, hasStart, aerr := field(b, "StartTime", parseTime)
	if aerr != nil {
		return writeError(aerr)
	}
	if hasStart {
		if !start.After(req.Timestamp) {
			return writeError(apierr.BadRequest("The starting time must be in the future!"))
		}
		rr.StartTime = &start
	}
	if rr.Duration, _, aerr = b.seconds("Duration"); aerr != nil {
		return writeError(aerr)
	}
	if rr.Intended, aerr = intendedCharging(b); aerr != nil {
		return writeError(aerr)
	}
	authorized, ok, aerr := b.object("AuthorizedIds")
	if aerr != nil {
		return writeError(aerr)
	}
	if ok {
		if rr.AuthTokens, aerr = list(authorized, "AuthTokens", ids.ParseAuthToken); aerr != nil {
			return writeError(aerr)
		}
		if rr.EMAIDs, aerr = list(authorized, "eMAIds", ids.ParseEMAID); aerr != nil {
			return writeError(aerr)
		}
		if rr.PINs, aerr = list(authorized, "PINs", ids.ParsePIN); aerr != nil {
			return writeError(aerr)
		}
	}

	a.publish(req, r, map[string]any{"evseId": r.EVSE.ID.String(), "eMAId": emaid.String()})
	result := r.Network.Reserve(ctx, req.Timestamp, rr)
	if result.Code != network.ReservationSuccess {
		a.logger.Info("reservation refused",
			zap.String("evse_id", r.EVSE.ID.String()),
			zap.String("result", string(result.Code)),
			zap.String("description", result.Description),
		)
		return writeStatus(http.StatusBadRequest)
	}
	res := result.Reservation
	resp := writeJSON(http.StatusCreated, map[string]any{
		"ReservationId": res.ID.String(),
		"StartTime":     res.StartTime,
		"Duration":      uint64(res.Duration / time.Second),
	})
	resp.Header = http.Header{"Location": {reservationLocation(req.URL.Path, res.ID)}}
	return resp
}

func (a *API) authorizeStart(ctx context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	b, aerr := readBody(req, false)
	if aerr != nil {
		return writeError(aerr)
	}
	token, aerr := mandatory(b, "AuthToken", ids.ParseAuthToken)
	if aerr != nil {
		return writeError(aerr)
	}
	ar := network.AuthStartRequest{
		OperatorID:     r.EVSE.OperatorID,
		EVSEID:         r.EVSE.ID,
		Identification: network.Identification{AuthToken: token},
	}
	if operator, ok, aerr := field(b, "OperatorId", ids.ParseOperatorID); aerr != nil {
		return writeError(aerr)
	} else if ok {
		ar.OperatorID = operator
	}
	if ar.SessionID, _, aerr = field(b, "SessionId", ids.ParseSessionID); aerr != nil {
		return writeError(aerr)
	}
	if ar.ProductID, _, aerr = field(b, "ChargingProductId", ids.ParseChargingProductID); aerr != nil {
		return writeError(aerr)
	}

	a.publish(req, r, map[string]any{"evseId": r.EVSE.ID.String(), "authToken": token.String()})
	result := r.Network.AuthorizeStart(ctx, req.Timestamp, ar)
	switch result.Code {
	case network.AuthStartAuthorized:
		return writeJSON(http.StatusOK, map[string]string{
			"SessionId":      result.SessionID.String(),
			"ProviderId":     result.ProviderID.String(),
			"AuthorizatorId": result.AuthorizatorID,
			"Description":    result.Description,
		})
	case network.AuthStartError:
		return writeJSON(http.StatusUnauthorized, refusal(result.AuthorizatorID, result.Description))
	}
	return writeJSON(http.StatusForbidden, refusal(result.AuthorizatorID, result.Description))
}

func refusal(authorizator, description string) map[string]string {
	return map[string]string{"AuthorizatorId": authorizator, "Description": description}
}

func (a *API) authorizeStop(ctx context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	b, aerr := readBody(req, false)
	if aerr != nil {
		return writeError(aerr)
	}
	sessionID, aerr := mandatory(b, "SessionId", ids.ParseSessionID)
	if aerr != nil {
		return writeError(aerr)
	}
	token, aerr := mandatory(b, "AuthToken", ids.ParseAuthToken)
	if aerr != nil {
		return writeError(aerr)
	}
	ar := network.AuthStopRequest{
		OperatorID:     r.EVSE.OperatorID,
		EVSEID:         r.EVSE.ID,
		SessionID:      sessionID,
		Identification: network.Identification{AuthToken: token},
	}
	if operator, ok, aerr := field(b, "OperatorId", ids.ParseOperatorID); aerr != nil {
		return writeError(aerr)
	} else if ok {
		ar.OperatorID = operator
	}

	a.publish(req, r, map[string]any{"evseId": r.EVSE.ID.String(), "sessionId": sessionID.String()})
	result := r.Network.AuthorizeStop(ctx, req.Timestamp, ar)
	switch result.Code {
	case network.AuthStopAuthorized:
		return writeJSON(http.StatusOK, map[string]string{
			"ProviderId":     result.ProviderID.String(),
			"AuthorizatorId": result.AuthorizatorID,
		})
	case network.AuthStopNotAuthorized:
		return writeJSON(http.StatusUnauthorized, refusal(result.AuthorizatorID, result.Description))
	}
	return writeJSON(http.StatusForbidden, refusal(result.AuthorizatorID, result.Description))
}

func (a *API) remoteStart(ctx context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	b, aerr := readBody(req, false)
	if aerr != nil {
		return writeError(aerr)
	}
	emaid, aerr := mandatory(b, "eMAId", ids.ParseEMAID)
	if aerr != nil {
		return writeError(aerr)
	}
	rs := network.RemoteStartRequest{EVSEID: r.EVSE.ID, EMAID: emaid}
	if rs.ProductID, _, aerr = field(b, "ChargingProductId", ids.ParseChargingProductID); aerr != nil {
		return writeError(aerr)
	}
	if rs.ReservationID, _, aerr = field(b, "ReservationId", ids.ParseReservationID); aerr != nil {
		return writeError(aerr)
	}
	if rs.SessionID, _, aerr = field(b, "SessionId", ids.ParseSessionID); aerr != nil {
		return writeError(aerr)
	}
	if rs.ProviderID, _, aerr = field(b, "ProviderId", ids.ParseProviderID); aerr != nil {
		return writeError(aerr)
	}

	a.publish(req, r, map[string]any{"evseId": r.EVSE.ID.String(), "eMAId": emaid.String()})
	result := r.Network.RemoteStart(ctx, req.Timestamp, rs)
	if result.Code == network.RemoteStartSuccess {
		return writeJSON(http.StatusCreated, map[string]string{"SessionId": result.Session.ID.String()})
	}
	out := map[string]string{"Result": string(result.Code)}
	if result.Session != nil {
		out["SessionId"] = result.Session.ID.String()
	} else if rs.SessionID != "" {
		out["SessionId"] = rs.SessionID.String()
	}
	if result.Description != "" {
		out["Description"] = result.Description
	}
	return writeJSON(http.StatusBadRequest, out)
}

func (a *API) remoteStop(ctx context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	b, aerr := readBody(req, false)
	if aerr != nil {
		return writeError(aerr)
	}
	sessionID, aerr := mandatory(b, "SessionId", ids.ParseSessionID)
	if aerr != nil {
		return writeError(aerr)
	}
	rs := network.RemoteStopRequest{EVSEID: r.EVSE.ID, SessionID: sessionID}
	if rs.ProviderID, _, aerr = field(b, "ProviderId", ids.ParseProviderID); aerr != nil {
		return writeError(aerr)
	}
	if rs.EMAID, _, aerr = field(b, "eMAId", ids.ParseEMAID); aerr != nil {
		return writeError(aerr)
	}

	a.publish(req, r, map[string]any{"evseId": r.EVSE.ID.String(), "sessionId": sessionID.String()})
	result := r.Network.RemoteStop(ctx, req.Timestamp, rs)
	if result.Code != network.RemoteStopSuccess {
		return writeError(&apierr.Error{Status: http.StatusBadRequest, Description: string(result.Code)})
	}
	if result.KeepAlive > 0 {
		return writeJSON(http.StatusOK, map[string]uint64{"KeepAlive": uint64(result.KeepAlive / time.Second)})
	}
	return writeStatus(http.StatusNoContent)
}

func (a *API) sendCDR(ctx context.Context, req *routing.Request, r *resolve.Resolved) *routing.Response {
	b, aerr := readBody(req, false)
	if aerr != nil {
		return writeError(aerr)
	}
	sessionID, aerr := mandatory(b, "SessionId", ids.ParseSessionID)
	if aerr != nil {
		return writeError(aerr)
	}
	cdr := network.ChargeDetailRecord{
		SessionID:  sessionID,
		NetworkID:  r.Network.ID,
		EVSEID:     r.EVSE.ID,
		OperatorID: r.EVSE.OperatorID,
	}
	if cdr.Identification.AuthToken, _, aerr = field(b, "AuthToken", ids.ParseAuthToken); aerr != nil {
		return writeError(aerr)
	}
	if cdr.Identification.EMAID, _, aerr = field(b, "eMAId", ids.ParseEMAID); aerr != nil {
		return writeError(aerr)
	}
	if cdr.Identification.IsZero() {
		return writeError(apierr.BadRequest("Missing authentication token or eMAId!"))
	}
	if cdr.ProductID, _, aerr = field(b, "ChargingProductId", ids.ParseChargingProductID); aerr != nil {
		return writeError(aerr)
	}
	for _, ts := range []struct {
		key  string
		into *time.Time
	}{
		{"ChargeStart", &cdr.ChargeStart},
		{"ChargeEnd", &cdr.ChargeEnd},
		{"SessionStart", &cdr.SessionStart},
		{"SessionEnd", &cdr.SessionEnd},
	} {
		if *ts.into, aerr = mandatory(b, ts.key, parseTime); aerr != nil {
			return writeError(aerr)
		}
	}
	for _, mv := range []struct {
		key  string
		into *float64
	}{
		{"MeterValueStart", &cdr.MeterValueStart},
		{"MeterValueEnd", &cdr.MeterValueEnd},
	} {
		v, ok, aerr := b.number(mv.key)
		if aerr != nil {
			return writeError(aerr)
		}
		if !ok {
			return writeError(apierr.BadRequest("Missing '%s' property!", mv.key))
		}
		*mv.into = v
	}

	a.publish(req, r, map[string]any{"evseId": r.EVSE.ID.String(), "sessionId": sessionID.String()})
	results := r.Network.SendChargeDetailRecords(ctx, req.Timestamp, []network.ChargeDetailRecord{cdr})
	if len(results) == 0 {
		return writeJSON(http.StatusOK, map[string]string{"Status": "Not forwarded"})
	}
	result := results[0]
	switch result.Code {
	case network.SendCDRSuccess:
		return writeJSON(http.StatusOK, map[string]string{"Status": "forwarded", "AuthorizatorId": result.AuthorizatorID})
	case network.SendCDRError:
		a.logger.Warn("charge detail record not forwarded",
			zap.String("session_id", sessionID.String()),
			zap.String("description", result.Description),
		)
		return writeJSON(http.StatusOK, map[string]string{"Status": "Not forwarded"})
	}
	return writeJSON(http.StatusNotFound, map[string]string{
		"SessionId":      sessionID.String(),
		"Description":    result.Description,
		"AuthorizatorId": result.AuthorizatorID,
	})
}
