package network

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/ids"
)

// ErrUnknownEntity is returned by status setters for ids not in the arena.
var ErrUnknownEntity = errors.New("network: unknown entity")

// DefaultReservationDuration is used when a reservation names no duration.
const DefaultReservationDuration = 15 * time.Minute

type authorization struct {
	providerID     ids.ProviderID
	operatorID     ids.OperatorID
	evseID         ids.EVSEID
	identification Identification
}

func newID() string { return uuid.NewString() }

func outOfService(s Statuses) bool {
	switch s.AdminStatus.Current().Value {
	case AdminStatusOutOfService, AdminStatusBlocked, AdminStatusDeleted:
		return true
	}
	return false
}

// activeReservation returns the valid reservation holding the EVSE at ts.
// Caller holds n.mu.
func (n *RoamingNetwork) activeReservation(evseID ids.EVSEID, ts time.Time) *Reservation {
	for _, r := range n.reservations {
		if r.EVSEID == evseID && r.CancellationReason == "" && r.StartTime.Before(ts.Add(time.Nanosecond)) && r.EndTime().After(ts) {
			return r
		}
	}
	return nil
}

// overlappingReservation returns an uncancelled reservation on the EVSE whose
// window intersects [start, start+duration). Caller holds n.mu.
func (n *RoamingNetwork) overlappingReservation(evseID ids.EVSEID, start time.Time, duration time.Duration) *Reservation {
	end := start.Add(duration)
	for _, r := range n.reservations {
		if r.EVSEID == evseID && r.CancellationReason == "" && start.Before(r.EndTime()) && r.StartTime.Before(end) {
			return r
		}
	}
	return nil
}

// activeSession returns the running session on the EVSE. Caller holds n.mu.
func (n *RoamingNetwork) activeSession(evseID ids.EVSEID) *Session {
	for _, s := range n.sessions {
		if s.EVSEID == evseID && s.StopTime == nil {
			return s
		}
	}
	return nil
}

// ReservationResultCode is the outcome of Reserve.
type ReservationResultCode string

// Reservation result codes.
const (
	ReservationSuccess         ReservationResultCode = "Success"
	ReservationUnknownEVSE     ReservationResultCode = "UnknownEVSE"
	ReservationOutOfService    ReservationResultCode = "OutOfService"
	ReservationAlreadyReserved ReservationResultCode = "AlreadyReserved"
	ReservationAlreadyInUse    ReservationResultCode = "AlreadyInUse"
	ReservationIDAlreadyInUse  ReservationResultCode = "ReservationIdAlreadyInUse"
	ReservationError           ReservationResultCode = "Error"
)

// ReserveRequest describes a reservation of one EVSE.
type ReserveRequest struct {
	EVSEID        ids.EVSEID
	ReservationID ids.ReservationID
	ProviderID    ids.ProviderID
	EMAID         ids.EMAID
	StartTime     *time.Time
	Duration      time.Duration
	Intended      *IntendedCharging
	AuthTokens    []ids.AuthToken
	EMAIDs        []ids.EMAID
	PINs          []ids.PIN
}

// ReservationResult is returned by Reserve.
type ReservationResult struct {
	Code        ReservationResultCode
	Reservation *Reservation
	Description string
}

// Reserve places an EVSE-level reservation starting at req.StartTime, or at ts
// when no start time is given.
func (n *RoamingNetwork) Reserve(ctx context.Context, ts time.Time, req ReserveRequest) ReservationResult {
	if err := ctx.Err(); err != nil {
		return ReservationResult{Code: ReservationError, Description: err.Error()}
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	evse, ok := n.evses[req.EVSEID]
	if !ok {
		return ReservationResult{Code: ReservationUnknownEVSE, Description: "unknown EVSE " + req.EVSEID.String()}
	}
	if outOfService(evse.Statuses) {
		return ReservationResult{Code: ReservationOutOfService, Description: "EVSE is out of service"}
	}
	if n.activeSession(evse.ID) != nil {
		return ReservationResult{Code: ReservationAlreadyInUse, Description: "EVSE is charging"}
	}

	start := ts
	if req.StartTime != nil {
		start = *req.StartTime
	}
	duration := req.Duration
	if duration <= 0 {
		duration = DefaultReservationDuration
	}
	if n.overlappingReservation(evse.ID, start, duration) != nil {
		return ReservationResult{Code: ReservationAlreadyReserved, Description: "EVSE is already reserved"}
	}

	id := req.ReservationID
	if id == "" {
		id = ids.ReservationID(newID())
	}
	if _, exists := n.reservations[id]; exists {
		return ReservationResult{Code: ReservationIDAlreadyInUse, Description: "reservation id already in use"}
	}
	providerID := req.ProviderID
	if providerID == "" {
		providerID = req.EMAID.ProviderID()
	}

	r := &Reservation{
		ID:         id,
		NetworkID:  n.ID,
		Timestamp:  ts.UTC(),
		Level:      ReservationLevelEVSE,
		EVSEID:     evse.ID,
		StationID:  evse.StationID,
		PoolID:     evse.PoolID,
		OperatorID: evse.OperatorID,
		ProviderID: providerID,
		EMAID:      req.EMAID,
		StartTime:  start.UTC(),
		Duration:   duration,
		Intended:   req.Intended,
		AuthTokens: append([]ids.AuthToken(nil), req.AuthTokens...),
		EMAIDs:     append([]ids.EMAID(nil), req.EMAIDs...),
		PINs:       append([]ids.PIN(nil), req.PINs...),
	}
	n.reservations[id] = r
	if !start.After(ts) {
		evse.Status.Set(StatusReserved, ts)
	}
	cp := *r
	return ReservationResult{Code: ReservationSuccess, Reservation: &cp}
}

// CancelResultCode is the outcome of CancelReservation.
type CancelResultCode string

// Cancellation result codes.
const (
	CancelSuccess            CancelResultCode = "Success"
	CancelUnknownReservation CancelResultCode = "UnknownReservationId"
	CancelError              CancelResultCode = "Error"
)

// CancelResult is returned by CancelReservation.
type CancelResult struct {
	Code        CancelResultCode
	Reservation *Reservation
	Description string
}

// CancelReservation ends a reservation and frees the EVSE unless it is charging.
func (n *RoamingNetwork) CancelReservation(ctx context.Context, ts time.Time, id ids.ReservationID, reason CancellationReason) CancelResult {
	if err := ctx.Err(); err != nil {
		return CancelResult{Code: CancelError, Description: err.Error()}
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	r, ok := n.reservations[id]
	if !ok {
		return CancelResult{Code: CancelUnknownReservation, Description: "unknown reservation " + id.String()}
	}
	r.CancellationReason = reason
	if evse, ok := n.evses[r.EVSEID]; ok && n.activeSession(evse.ID) == nil &&
		n.activeReservation(evse.ID, ts) == nil && evse.Status.Current().Value == StatusReserved {
		evse.Status.Set(StatusAvailable, ts)
	}
	cp := *r
	return CancelResult{Code: CancelSuccess, Reservation: &cp}
}

// AuthStartResultCode is the outcome of AuthorizeStart.
type AuthStartResultCode string

// Authorize start result codes.
const (
	AuthStartAuthorized    AuthStartResultCode = "Authorized"
	AuthStartNotAuthorized AuthStartResultCode = "NotAuthorized"
	AuthStartBlocked       AuthStartResultCode = "Blocked"
	AuthStartError         AuthStartResultCode = "Error"
)

// AuthStartRequest asks whether an identification may start charging.
type AuthStartRequest struct {
	OperatorID     ids.OperatorID
	EVSEID         ids.EVSEID
	Identification Identification
	SessionID      ids.SessionID
	ProductID      ids.ChargingProductID
}

// AuthStartResult is returned by AuthorizeStart.
type AuthStartResult struct {
	Code           AuthStartResultCode
	SessionID      ids.SessionID
	ProviderID     ids.ProviderID
	AuthorizatorID string
	Description    string
}

// AuthorizeStart checks every provider's allow-list for the identification.
func (n *RoamingNetwork) AuthorizeStart(ctx context.Context, ts time.Time, req AuthStartRequest) AuthStartResult {
	authorizator := n.ID.String()
	if err := ctx.Err(); err != nil {
		return AuthStartResult{Code: AuthStartError, AuthorizatorID: authorizator, Description: err.Error()}
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.providers) == 0 {
		return AuthStartResult{Code: AuthStartError, AuthorizatorID: authorizator, Description: "No authorization service returned a positive result!"}
	}
	for _, p := range n.providers {
		allowed := (req.Identification.AuthToken != "" && p.authTokens.has(req.Identification.AuthToken)) ||
			(req.Identification.EMAID != "" && p.emaids.has(req.Identification.EMAID))
		if !allowed {
			continue
		}
		if outOfService(p.Statuses) {
			return AuthStartResult{Code: AuthStartBlocked, ProviderID: p.ID, AuthorizatorID: p.ID.String(), Description: "Blocked"}
		}
		sid := req.SessionID
		if sid == "" {
			sid = ids.SessionID(newID())
		}
		operatorID := req.OperatorID
		if operatorID == "" && req.EVSEID != "" {
			operatorID = req.EVSEID.OperatorID()
		}
		n.authorized[sid] = authorization{
			providerID:     p.ID,
			operatorID:     operatorID,
			evseID:         req.EVSEID,
			identification: req.Identification,
		}
		return AuthStartResult{Code: AuthStartAuthorized, SessionID: sid, ProviderID: p.ID, AuthorizatorID: p.ID.String(), Description: "Authorized"}
	}
	return AuthStartResult{Code: AuthStartNotAuthorized, AuthorizatorID: authorizator, Description: "NotAuthorized"}
}

// AuthStopResultCode is the outcome of AuthorizeStop.
type AuthStopResultCode string

// Authorize stop result codes.
const (
	AuthStopAuthorized       AuthStopResultCode = "Authorized"
	AuthStopNotAuthorized    AuthStopResultCode = "NotAuthorized"
	AuthStopInvalidSessionID AuthStopResultCode = "InvalidSessionId"
	AuthStopError            AuthStopResultCode = "Error"
)

// AuthStopRequest asks whether an identification may stop a session.
type AuthStopRequest struct {
	OperatorID     ids.OperatorID
	EVSEID         ids.EVSEID
	SessionID      ids.SessionID
	Identification Identification
}

// AuthStopResult is returned by AuthorizeStop.
type AuthStopResult struct {
	Code           AuthStopResultCode
	ProviderID     ids.ProviderID
	AuthorizatorID string
	Description    string
}

// AuthorizeStop allows the identification that started a session to stop it.
func (n *RoamingNetwork) AuthorizeStop(ctx context.Context, ts time.Time, req AuthStopRequest) AuthStopResult {
	authorizator := n.ID.String()
	if err := ctx.Err(); err != nil {
		return AuthStopResult{Code: AuthStopError, AuthorizatorID: authorizator, Description: err.Error()}
	}
	n.mu.RLock()
	defer n.mu.RUnlock()

	var (
		started    Identification
		providerID ids.ProviderID
	)
	if a, ok := n.authorized[req.SessionID]; ok {
		started, providerID = a.identification, a.providerID
	} else if s, ok := n.sessions[req.SessionID]; ok {
		started, providerID = s.AuthStart, s.ProviderID
	} else {
		return AuthStopResult{Code: AuthStopInvalidSessionID, AuthorizatorID: authorizator, Description: "Invalid session identification!"}
	}

	matches := (req.Identification.AuthToken != "" && req.Identification.AuthToken == started.AuthToken) ||
		(req.Identification.EMAID != "" && req.Identification.EMAID == started.EMAID)
	if !matches {
		return AuthStopResult{Code: AuthStopNotAuthorized, ProviderID: providerID, AuthorizatorID: authorizator, Description: "NotAuthorized"}
	}
	return AuthStopResult{Code: AuthStopAuthorized, ProviderID: providerID, AuthorizatorID: providerID.String(), Description: "Authorized"}
}

// RemoteStartResultCode is the outcome of RemoteStart.
type RemoteStartResultCode string

// Remote start result codes.
const (
	RemoteStartSuccess          RemoteStartResultCode = "Success"
	RemoteStartUnknownEVSE      RemoteStartResultCode = "UnknownEVSE"
	RemoteStartOutOfService     RemoteStartResultCode = "OutOfService"
	RemoteStartAlreadyInUse     RemoteStartResultCode = "AlreadyInUse"
	RemoteStartReserved         RemoteStartResultCode = "Reserved"
	RemoteStartInvalidSessionID RemoteStartResultCode = "InvalidSessionId"
	RemoteStartError            RemoteStartResultCode = "Error"
)

// RemoteStartRequest starts charging on behalf of an e-mobility account.
type RemoteStartRequest struct {
	EVSEID        ids.EVSEID
	EMAID         ids.EMAID
	ProductID     ids.ChargingProductID
	ReservationID ids.ReservationID
	SessionID     ids.SessionID
	ProviderID    ids.ProviderID
}

// RemoteStartResult is returned by RemoteStart.
type RemoteStartResult struct {
	Code        RemoteStartResultCode
	Session     *Session
	Description string
}

// RemoteStart opens a session on the EVSE. A valid reservation on the EVSE
// must be named by ReservationID and must allow the account.
func (n *RoamingNetwork) RemoteStart(ctx context.Context, ts time.Time, req RemoteStartRequest) RemoteStartResult {
	if err := ctx.Err(); err != nil {
		return RemoteStartResult{Code: RemoteStartError, Description: err.Error()}
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	evse, ok := n.evses[req.EVSEID]
	if !ok {
		return RemoteStartResult{Code: RemoteStartUnknownEVSE, Description: "unknown EVSE " + req.EVSEID.String()}
	}
	if outOfService(evse.Statuses) {
		return RemoteStartResult{Code: RemoteStartOutOfService, Description: "EVSE is out of service"}
	}
	if n.activeSession(evse.ID) != nil {
		return RemoteStartResult{Code: RemoteStartAlreadyInUse, Description: "EVSE is charging"}
	}
	identification := Identification{EMAID: req.EMAID}
	if r := n.activeReservation(evse.ID, ts); r != nil {
		if r.ID != req.ReservationID || !r.Allows(identification) {
			return RemoteStartResult{Code: RemoteStartReserved, Description: "EVSE is reserved"}
		}
	}

	sid := req.SessionID
	if sid == "" {
		sid = ids.SessionID(newID())
	}
	if _, exists := n.sessions[sid]; exists {
		return RemoteStartResult{Code: RemoteStartInvalidSessionID, Description: "session id already in use"}
	}
	providerID := req.ProviderID
	if providerID == "" {
		providerID = req.EMAID.ProviderID()
	}

	s := &Session{
		ID:            sid,
		NetworkID:     n.ID,
		EVSEID:        evse.ID,
		OperatorID:    evse.OperatorID,
		ProviderID:    providerID,
		ReservationID: req.ReservationID,
		ProductID:     req.ProductID,
		AuthStart:     identification,
		StartTime:     ts.UTC(),
	}
	n.sessions[sid] = s
	evse.Status.Set(StatusCharging, ts)
	cp := *s
	return RemoteStartResult{Code: RemoteStartSuccess, Session: &cp}
}

// RemoteStopResultCode is the outcome of RemoteStop.
type RemoteStopResultCode string

// Remote stop result codes.
const (
	RemoteStopSuccess          RemoteStopResultCode = "Success"
	RemoteStopInvalidSessionID RemoteStopResultCode = "InvalidSessionId"
	RemoteStopAlreadyStopped   RemoteStopResultCode = "AlreadyStopped"
	RemoteStopError            RemoteStopResultCode = "Error"
)

// RemoteStopRequest stops a running session.
type RemoteStopRequest struct {
	EVSEID     ids.EVSEID
	SessionID  ids.SessionID
	ProviderID ids.ProviderID
	EMAID      ids.EMAID
}

// RemoteStopResult is returned by RemoteStop. KeepAlive is non-zero when the
// EVSE stays reserved for the remainder of the linked reservation.
type RemoteStopResult struct {
	Code        RemoteStopResultCode
	SessionID   ids.SessionID
	KeepAlive   time.Duration
	Description string
}

// RemoteStop ends a session on the EVSE.
func (n *RoamingNetwork) RemoteStop(ctx context.Context, ts time.Time, req RemoteStopRequest) RemoteStopResult {
	if err := ctx.Err(); err != nil {
		return RemoteStopResult{Code: RemoteStopError, SessionID: req.SessionID, Description: err.Error()}
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	s, ok := n.sessions[req.SessionID]
	if !ok || (req.EVSEID != "" && s.EVSEID != req.EVSEID) {
		return RemoteStopResult{Code: RemoteStopInvalidSessionID, SessionID: req.SessionID, Description: "Invalid session identification!"}
	}
	if s.StopTime != nil {
		return RemoteStopResult{Code: RemoteStopAlreadyStopped, SessionID: s.ID, Description: "session already stopped"}
	}
	stop := ts.UTC()
	s.StopTime = &stop
	if req.EMAID != "" {
		s.AuthStop = Identification{EMAID: req.EMAID}
	}

	result := RemoteStopResult{Code: RemoteStopSuccess, SessionID: s.ID}
	evse, ok := n.evses[s.EVSEID]
	if !ok {
		return result
	}
	if r, ok := n.reservations[s.ReservationID]; ok && r.CancellationReason == "" && r.EndTime().After(ts) {
		evse.Status.Set(StatusReserved, ts)
		result.KeepAlive = r.EndTime().Sub(ts)
		return result
	}
	evse.Status.Set(StatusAvailable, ts)
	return result
}

// SendCDRResultCode is the outcome of forwarding one charge detail record.
type SendCDRResultCode string

// Send CDR result codes.
const (
	SendCDRSuccess          SendCDRResultCode = "Success"
	SendCDRUnknownSessionID SendCDRResultCode = "UnknownSessionId"
	SendCDRError            SendCDRResultCode = "Error"
)

// SendCDRResult is the per-record outcome of SendChargeDetailRecords.
type SendCDRResult struct {
	SessionID      ids.SessionID
	Code           SendCDRResultCode
	AuthorizatorID string
	Description    string
}

// SendChargeDetailRecords settles sessions and forwards their records to the sink.
func (n *RoamingNetwork) SendChargeDetailRecords(ctx context.Context, ts time.Time, cdrs []ChargeDetailRecord) []SendCDRResult {
	results := make([]SendCDRResult, 0, len(cdrs))
	for _, cdr := range cdrs {
		results = append(results, n.sendChargeDetailRecord(ctx, ts, cdr))
	}
	return results
}

func (n *RoamingNetwork) sendChargeDetailRecord(ctx context.Context, ts time.Time, cdr ChargeDetailRecord) SendCDRResult {
	authorizator := n.ID.String()

	n.mu.Lock()
	s, ok := n.sessions[cdr.SessionID]
	if ok && cdr.EVSEID != "" && s.EVSEID != cdr.EVSEID {
		n.mu.Unlock()
		return SendCDRResult{SessionID: cdr.SessionID, Code: SendCDRUnknownSessionID, AuthorizatorID: authorizator, Description: "Unknown session identification!"}
	}
	if !ok {
		a, authorized := n.authorized[cdr.SessionID]
		if !authorized || (cdr.EVSEID != "" && a.evseID != "" && a.evseID != cdr.EVSEID) {
			n.mu.Unlock()
			return SendCDRResult{SessionID: cdr.SessionID, Code: SendCDRUnknownSessionID, AuthorizatorID: authorizator, Description: "Unknown session identification!"}
		}
		// authorized but never started remotely: the station charged locally
		s = &Session{
			ID:         cdr.SessionID,
			NetworkID:  n.ID,
			EVSEID:     a.evseID,
			OperatorID: a.operatorID,
			ProviderID: a.providerID,
			AuthStart:  a.identification,
			StartTime:  cdr.SessionStart.UTC(),
		}
		n.sessions[s.ID] = s
		delete(n.authorized, s.ID)
	}
	if s.StopTime == nil {
		end := cdr.SessionEnd.UTC()
		s.StopTime = &end
	}
	cdr.NetworkID = n.ID
	cdr.EVSEID = s.EVSEID
	cdr.OperatorID = s.OperatorID
	cdr.ProviderID = s.ProviderID
	cdr.ReservationID = s.ReservationID
	if cdr.ProductID == "" {
		cdr.ProductID = s.ProductID
	}
	n.mu.Unlock()

	if err := n.cdrs.Save(ctx, cdr); err != nil {
		return SendCDRResult{SessionID: cdr.SessionID, Code: SendCDRError, AuthorizatorID: authorizator, Description: err.Error()}
	}

	n.mu.Lock()
	s.CDRSent = true
	n.mu.Unlock()
	return SendCDRResult{SessionID: cdr.SessionID, Code: SendCDRSuccess, AuthorizatorID: authorizator, Description: "forwarded"}
}

func statusesOf(n *RoamingNetwork, kind string, id string) (Statuses, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	switch kind {
	case "operator":
		if o, ok := n.operators[ids.OperatorID(id)]; ok {
			return o.Statuses, nil
		}
	case "pool":
		if p, ok := n.pools[ids.PoolID(id)]; ok {
			return p.Statuses, nil
		}
	case "station":
		if s, ok := n.stations[ids.StationID(id)]; ok {
			return s.Statuses, nil
		}
	case "evse":
		if e, ok := n.evses[ids.EVSEID(id)]; ok {
			return e.Statuses, nil
		}
	}
	return Statuses{}, fmt.Errorf("%w: %s %s", ErrUnknownEntity, kind, id)
}

func setAdmin(n *RoamingNetwork, kind, id string, entries []Timestamped[AdminStatusType]) error {
	s, err := statusesOf(n, kind, id)
	if err != nil {
		return err
	}
	s.AdminStatus.Insert(entries)
	return nil
}

func setStatus(n *RoamingNetwork, kind, id string, entries []Timestamped[StatusType]) error {
	s, err := statusesOf(n, kind, id)
	if err != nil {
		return err
	}
	s.Status.Insert(entries)
	return nil
}

// SetOperatorAdminStatus merges admin status entries into the operator's history.
func (n *RoamingNetwork) SetOperatorAdminStatus(id ids.OperatorID, entries []Timestamped[AdminStatusType]) error {
	return setAdmin(n, "operator", id.String(), entries)
}

// SetPoolAdminStatus merges admin status entries into the pool's history.
func (n *RoamingNetwork) SetPoolAdminStatus(id ids.PoolID, entries []Timestamped[AdminStatusType]) error {
	return setAdmin(n, "pool", id.String(), entries)
}

// SetStationAdminStatus merges admin status entries into the station's history.
func (n *RoamingNetwork) SetStationAdminStatus(id ids.StationID, entries []Timestamped[AdminStatusType]) error {
	return setAdmin(n, "station", id.String(), entries)
}

// SetEVSEAdminStatus merges admin status entries into the EVSE's history.
func (n *RoamingNetwork) SetEVSEAdminStatus(id ids.EVSEID, entries []Timestamped[AdminStatusType]) error {
	return setAdmin(n, "evse", id.String(), entries)
}

// SetEVSEStatus merges status entries into the EVSE's history.
func (n *RoamingNetwork) SetEVSEStatus(id ids.EVSEID, entries []Timestamped[StatusType]) error {
	return setStatus(n, "evse", id.String(), entries)
}

// SetAdminStatus merges admin status entries into the network's own history.
func (n *RoamingNetwork) SetAdminStatus(entries []Timestamped[AdminStatusType]) {
	n.AdminStatus.Insert(entries)
}

// SetStatus merges status entries into the network's own history.
func (n *RoamingNetwork) SetStatus(entries []Timestamped[StatusType]) {
	n.Status.Insert(entries)
}

// MemoryCDRSink keeps forwarded records in memory.
type MemoryCDRSink struct {
	mu      sync.Mutex
	records []ChargeDetailRecord
}

// NewMemoryCDRSink creates an empty in-memory sink.
func NewMemoryCDRSink() *MemoryCDRSink { return &MemoryCDRSink{} }

// Save appends the record.
func (s *MemoryCDRSink) Save(_ context.Context, cdr ChargeDetailRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, cdr)
	return nil
}

// Records returns a copy of the stored records.
func (s *MemoryCDRSink) Records() []ChargeDetailRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ChargeDetailRecord(nil), s.records...)
}
