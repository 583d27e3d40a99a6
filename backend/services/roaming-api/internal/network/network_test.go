package network

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/ids"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixture(t *testing.T) *RoamingNetwork {
	t.Helper()
	n := New("Prod", Options{Name: "Production", Now: func() time.Time { return t0 }})
	_, err := n.CreateOperator("DE*GEF", "GraphDefined", "")
	require.NoError(t, err)
	_, err = n.CreatePool("DE*GEF", "DE*GEF*P1", "Pool 1", "Jena")
	require.NoError(t, err)
	_, err = n.CreateStation("DE*GEF*P1", "DE*GEF*S1", "Station 1")
	require.NoError(t, err)
	_, err = n.CreateEVSE("DE*GEF*S1", "DE*GEF*E1*1", 22, []string{"Type2"})
	require.NoError(t, err)
	p, err := n.CreateProvider("DE*GDF", "GraphDefined EMP", "")
	require.NoError(t, err)
	p.AllowToken("00112233")
	p.AllowEMAID("DE*GDF*00112233*1")
	return n
}

func TestCreateHierarchy(t *testing.T) {
	n := fixture(t)

	o, ok := n.Operator("DE*GEF")
	require.True(t, ok)
	assert.Equal(t, []ids.PoolID{"DE*GEF*P1"}, o.PoolIDs())

	e, ok := n.EVSE("DE*GEF*E1*1")
	require.True(t, ok)
	assert.Equal(t, ids.StationID("DE*GEF*S1"), e.StationID)
	assert.Equal(t, ids.PoolID("DE*GEF*P1"), e.PoolID)
	assert.Equal(t, StatusAvailable, e.Status.Current().Value)

	_, err := n.CreateOperator("DE*GEF", "dup", "")
	assert.True(t, errors.Is(err, ErrAlreadyExists))

	_, err = n.CreatePool("DE*XXX", "DE*XXX*P1", "", "")
	assert.True(t, errors.Is(err, ErrUnknownParent))

	_, err = n.CreateOperator("DE*ABC", "Other", "")
	require.NoError(t, err)
	_, err = n.CreatePool("DE*ABC", "DE*GEF*P2", "", "")
	assert.True(t, errors.Is(err, ErrOperatorMismatch))
}

func TestBrandsAndGroups(t *testing.T) {
	n := fixture(t)

	_, err := n.CreateBrand("DE*GEF", "Green", "Green Power", "", "")
	require.NoError(t, err)
	require.NoError(t, n.TagEVSE("Green", "DE*GEF*E1*1"))
	require.NoError(t, n.TagStation("Green", "DE*GEF*S1"))

	b, ok := n.Brand("Green")
	require.True(t, ok)
	assert.Equal(t, []ids.EVSEID{"DE*GEF*E1*1"}, b.EVSEIDs())

	e, _ := n.EVSE("DE*GEF*E1*1")
	assert.Equal(t, []ids.BrandID{"Green"}, e.BrandIDs())

	g, err := n.CreateEVSEGroup("DE*GEF", "Fast", "Fast chargers", "", []ids.EVSEID{"DE*GEF*E1*1"})
	require.NoError(t, err)
	assert.Equal(t, []ids.EVSEID{"DE*GEF*E1*1"}, g.EVSEIDs())
	assert.Equal(t, []ids.EVSEGroupID{"Fast"}, e.GroupIDs())

	_, err = n.CreateTariff("DE*GEF", Tariff{ID: "AC", Currency: "EUR", PricePerKWh: 0.39}, []ids.EVSEID{"DE*GEF*E1*1"})
	require.NoError(t, err)
	assert.Equal(t, []ids.TariffID{"AC"}, e.TariffIDs())
}

func TestReserve(t *testing.T) {
	ctx := context.Background()
	n := fixture(t)

	res := n.Reserve(ctx, t0, ReserveRequest{EVSEID: "DE*GEF*E1*1", EMAID: "DE*GDF*00112233*1"})
	require.Equal(t, ReservationSuccess, res.Code)
	require.NotNil(t, res.Reservation)
	assert.NotEmpty(t, res.Reservation.ID)
	assert.Equal(t, t0, res.Reservation.StartTime)
	assert.Equal(t, DefaultReservationDuration, res.Reservation.Duration)
	assert.Equal(t, ids.ProviderID("DE*GDF"), res.Reservation.ProviderID)

	e, _ := n.EVSE("DE*GEF*E1*1")
	assert.Equal(t, StatusReserved, e.Status.Current().Value)

	again := n.Reserve(ctx, t0.Add(time.Minute), ReserveRequest{EVSEID: "DE*GEF*E1*1", EMAID: "DE*GDF*00112233*1"})
	assert.Equal(t, ReservationAlreadyReserved, again.Code)

	unknown := n.Reserve(ctx, t0, ReserveRequest{EVSEID: "DE*GEF*E9*9"})
	assert.Equal(t, ReservationUnknownEVSE, unknown.Code)

	// expired reservations no longer block
	later := n.Reserve(ctx, t0.Add(time.Hour), ReserveRequest{EVSEID: "DE*GEF*E1*1", EMAID: "DE*GDF*00112233*1"})
	assert.Equal(t, ReservationSuccess, later.Code)
}

func TestReserveChecksRequestedWindow(t *testing.T) {
	ctx := context.Background()
	n := fixture(t)
	e, _ := n.EVSE("DE*GEF*E1*1")

	future := t0.Add(time.Hour)
	first := n.Reserve(ctx, t0, ReserveRequest{EVSEID: "DE*GEF*E1*1", EMAID: "DE*GDF*00112233*1", StartTime: &future, Duration: time.Hour})
	require.Equal(t, ReservationSuccess, first.Code)
	assert.Equal(t, StatusAvailable, e.Status.Current().Value)

	overlapping := t0.Add(30 * time.Minute)
	clash := n.Reserve(ctx, t0, ReserveRequest{EVSEID: "DE*GEF*E1*1", EMAID: "DE*GDF*00112233*1", StartTime: &overlapping, Duration: 45 * time.Minute})
	assert.Equal(t, ReservationAlreadyReserved, clash.Code)

	inside := t0.Add(90 * time.Minute)
	clash = n.Reserve(ctx, t0, ReserveRequest{EVSEID: "DE*GEF*E1*1", EMAID: "DE*GDF*00112233*1", StartTime: &inside})
	assert.Equal(t, ReservationAlreadyReserved, clash.Code)

	before := n.Reserve(ctx, t0, ReserveRequest{EVSEID: "DE*GEF*E1*1", EMAID: "DE*GDF*00112233*1", Duration: time.Hour})
	require.Equal(t, ReservationSuccess, before.Code)
	assert.Equal(t, StatusReserved, e.Status.Current().Value)

	after := t0.Add(2 * time.Hour)
	next := n.Reserve(ctx, t0, ReserveRequest{EVSEID: "DE*GEF*E1*1", EMAID: "DE*GDF*00112233*1", StartTime: &after})
	assert.Equal(t, ReservationSuccess, next.Code)

	c := n.CancelReservation(ctx, t0, first.Reservation.ID, CancellationReasonDeleted)
	require.Equal(t, CancelSuccess, c.Code)
	assert.Equal(t, StatusReserved, e.Status.Current().Value)
	reuse := n.Reserve(ctx, t0, ReserveRequest{EVSEID: "DE*GEF*E1*1", EMAID: "DE*GDF*00112233*1", StartTime: &overlapping, Duration: time.Hour})
	assert.Equal(t, ReservationAlreadyReserved, reuse.Code, "still overlaps the reservation starting now")
	reuse = n.Reserve(ctx, t0, ReserveRequest{EVSEID: "DE*GEF*E1*1", EMAID: "DE*GDF*00112233*1", StartTime: &future, Duration: time.Hour})
	assert.Equal(t, ReservationSuccess, reuse.Code)
}

func TestReservationsAreReturnedAsCopies(t *testing.T) {
	ctx := context.Background()
	n := fixture(t)

	res := n.Reserve(ctx, t0, ReserveRequest{EVSEID: "DE*GEF*E1*1", EMAID: "DE*GDF*00112233*1"})
	require.Equal(t, ReservationSuccess, res.Code)
	before, ok := n.Reservation(res.Reservation.ID)
	require.True(t, ok)
	listed := n.Reservations()
	require.Len(t, listed, 1)

	c := n.CancelReservation(ctx, t0, res.Reservation.ID, CancellationReasonDeleted)
	require.Equal(t, CancelSuccess, c.Code)
	assert.Equal(t, CancellationReasonDeleted, c.Reservation.CancellationReason)

	assert.Empty(t, res.Reservation.CancellationReason)
	assert.Empty(t, before.CancellationReason)
	assert.Empty(t, listed[0].CancellationReason)
	after, _ := n.Reservation(res.Reservation.ID)
	assert.Equal(t, CancellationReasonDeleted, after.CancellationReason)

	start := n.RemoteStart(ctx, t0, RemoteStartRequest{EVSEID: "DE*GEF*E1*1", EMAID: "DE*GDF*00112233*1"})
	require.Equal(t, RemoteStartSuccess, start.Code)
	running, _ := n.Session(start.Session.ID)
	require.Equal(t, RemoteStopSuccess, n.RemoteStop(ctx, t0.Add(time.Minute), RemoteStopRequest{SessionID: start.Session.ID}).Code)
	assert.Nil(t, start.Session.StopTime)
	assert.Nil(t, running.StopTime)
	stopped, _ := n.Session(start.Session.ID)
	assert.NotNil(t, stopped.StopTime)
}

func TestReserveOutOfService(t *testing.T) {
	n := fixture(t)
	require.NoError(t, n.SetEVSEAdminStatus("DE*GEF*E1*1", []Timestamped[AdminStatusType]{
		{Timestamp: t0.Add(time.Second), Value: AdminStatusOutOfService},
	}))

	res := n.Reserve(context.Background(), t0.Add(time.Minute), ReserveRequest{EVSEID: "DE*GEF*E1*1"})
	assert.Equal(t, ReservationOutOfService, res.Code)
}

func TestCancelReservation(t *testing.T) {
	ctx := context.Background()
	n := fixture(t)
	res := n.Reserve(ctx, t0, ReserveRequest{EVSEID: "DE*GEF*E1*1", ReservationID: "r1"})
	require.Equal(t, ReservationSuccess, res.Code)

	c := n.CancelReservation(ctx, t0.Add(time.Minute), "r1", CancellationReasonDeleted)
	require.Equal(t, CancelSuccess, c.Code)
	assert.Equal(t, CancellationReasonDeleted, c.Reservation.CancellationReason)

	e, _ := n.EVSE("DE*GEF*E1*1")
	assert.Equal(t, StatusAvailable, e.Status.Current().Value)

	assert.Equal(t, CancelUnknownReservation, n.CancelReservation(ctx, t0, "nope", CancellationReasonDeleted).Code)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.Equal(t, CancelError, n.CancelReservation(cancelled, t0, "r1", CancellationReasonDeleted).Code)
}

func TestAuthorizeStartAndStop(t *testing.T) {
	ctx := context.Background()
	n := fixture(t)

	start := n.AuthorizeStart(ctx, t0, AuthStartRequest{
		EVSEID:         "DE*GEF*E1*1",
		Identification: Identification{AuthToken: "00112233"},
	})
	require.Equal(t, AuthStartAuthorized, start.Code)
	assert.NotEmpty(t, start.SessionID)
	assert.Equal(t, ids.ProviderID("DE*GDF"), start.ProviderID)
	assert.Equal(t, "Authorized", start.Description)

	denied := n.AuthorizeStart(ctx, t0, AuthStartRequest{Identification: Identification{AuthToken: "FFFF"}})
	assert.Equal(t, AuthStartNotAuthorized, denied.Code)

	stop := n.AuthorizeStop(ctx, t0, AuthStopRequest{SessionID: start.SessionID, Identification: Identification{AuthToken: "00112233"}})
	assert.Equal(t, AuthStopAuthorized, stop.Code)
	assert.Equal(t, ids.ProviderID("DE*GDF"), stop.ProviderID)

	wrong := n.AuthorizeStop(ctx, t0, AuthStopRequest{SessionID: start.SessionID, Identification: Identification{AuthToken: "AAAA"}})
	assert.Equal(t, AuthStopNotAuthorized, wrong.Code)

	missing := n.AuthorizeStop(ctx, t0, AuthStopRequest{SessionID: "unknown", Identification: Identification{AuthToken: "00112233"}})
	assert.Equal(t, AuthStopInvalidSessionID, missing.Code)
}

func TestAuthorizeStartWithoutProviders(t *testing.T) {
	n := New("Empty", Options{})
	res := n.AuthorizeStart(context.Background(), t0, AuthStartRequest{Identification: Identification{AuthToken: "00112233"}})
	assert.Equal(t, AuthStartError, res.Code)
	assert.Equal(t, "Empty", res.AuthorizatorID)
}

func TestAuthorizeStartBlockedProvider(t *testing.T) {
	n := fixture(t)
	p, _ := n.Provider("DE*GDF")
	p.AdminStatus.Set(AdminStatusBlocked, t0.Add(time.Second))

	res := n.AuthorizeStart(context.Background(), t0, AuthStartRequest{Identification: Identification{AuthToken: "00112233"}})
	assert.Equal(t, AuthStartBlocked, res.Code)
}

func TestRemoteStartStop(t *testing.T) {
	ctx := context.Background()
	n := fixture(t)

	start := n.RemoteStart(ctx, t0, RemoteStartRequest{EVSEID: "DE*GEF*E1*1", EMAID: "DE*GDF*00112233*1"})
	require.Equal(t, RemoteStartSuccess, start.Code)
	e, _ := n.EVSE("DE*GEF*E1*1")
	assert.Equal(t, StatusCharging, e.Status.Current().Value)

	busy := n.RemoteStart(ctx, t0, RemoteStartRequest{EVSEID: "DE*GEF*E1*1", EMAID: "DE*GDF*00112233*1"})
	assert.Equal(t, RemoteStartAlreadyInUse, busy.Code)

	stop := n.RemoteStop(ctx, t0.Add(time.Minute), RemoteStopRequest{SessionID: start.Session.ID})
	require.Equal(t, RemoteStopSuccess, stop.Code)
	assert.Zero(t, stop.KeepAlive)
	assert.Equal(t, StatusAvailable, e.Status.Current().Value)

	twice := n.RemoteStop(ctx, t0.Add(2*time.Minute), RemoteStopRequest{SessionID: start.Session.ID})
	assert.Equal(t, RemoteStopAlreadyStopped, twice.Code)

	unknown := n.RemoteStop(ctx, t0, RemoteStopRequest{SessionID: "nope"})
	assert.Equal(t, RemoteStopInvalidSessionID, unknown.Code)
}

func TestRemoteStartOnReservedEVSE(t *testing.T) {
	ctx := context.Background()
	n := fixture(t)
	res := n.Reserve(ctx, t0, ReserveRequest{
		EVSEID:        "DE*GEF*E1*1",
		ReservationID: "r1",
		EMAID:         "DE*GDF*00112233*1",
		Duration:      30 * time.Minute,
	})
	require.Equal(t, ReservationSuccess, res.Code)

	other := n.RemoteStart(ctx, t0.Add(time.Minute), RemoteStartRequest{EVSEID: "DE*GEF*E1*1", EMAID: "DE*ABC*99999999"})
	assert.Equal(t, RemoteStartReserved, other.Code)

	start := n.RemoteStart(ctx, t0.Add(time.Minute), RemoteStartRequest{
		EVSEID:        "DE*GEF*E1*1",
		EMAID:         "DE*GDF*00112233*1",
		ReservationID: "r1",
	})
	require.Equal(t, RemoteStartSuccess, start.Code)

	stop := n.RemoteStop(ctx, t0.Add(10*time.Minute), RemoteStopRequest{SessionID: start.Session.ID})
	require.Equal(t, RemoteStopSuccess, stop.Code)
	assert.Equal(t, 20*time.Minute, stop.KeepAlive)

	e, _ := n.EVSE("DE*GEF*E1*1")
	assert.Equal(t, StatusReserved, e.Status.Current().Value)
}

type failingSink struct{}

func (failingSink) Save(context.Context, ChargeDetailRecord) error { return errors.New("disk full") }

func TestSendChargeDetailRecords(t *testing.T) {
	ctx := context.Background()
	sink := NewMemoryCDRSink()
	n := New("Prod", Options{CDRSink: sink, Now: func() time.Time { return t0 }})
	_, err := n.CreateOperator("DE*GEF", "", "")
	require.NoError(t, err)
	_, err = n.CreatePool("DE*GEF", "DE*GEF*P1", "", "")
	require.NoError(t, err)
	_, err = n.CreateStation("DE*GEF*P1", "DE*GEF*S1", "")
	require.NoError(t, err)
	_, err = n.CreateEVSE("DE*GEF*S1", "DE*GEF*E1*1", 11, nil)
	require.NoError(t, err)

	start := n.RemoteStart(ctx, t0, RemoteStartRequest{EVSEID: "DE*GEF*E1*1", EMAID: "DE*GDF*00112233*1"})
	require.Equal(t, RemoteStartSuccess, start.Code)

	results := n.SendChargeDetailRecords(ctx, t0.Add(time.Hour), []ChargeDetailRecord{
		{
			SessionID:       start.Session.ID,
			Identification:  Identification{EMAID: "DE*GDF*00112233*1"},
			SessionStart:    t0,
			SessionEnd:      t0.Add(time.Hour),
			MeterValueStart: 10,
			MeterValueEnd:   25.5,
		},
		{SessionID: "unknown"},
	})
	require.Len(t, results, 2)
	assert.Equal(t, SendCDRSuccess, results[0].Code)
	assert.Equal(t, SendCDRUnknownSessionID, results[1].Code)

	records := sink.Records()
	require.Len(t, records, 1)
	assert.Equal(t, ids.EVSEID("DE*GEF*E1*1"), records[0].EVSEID)
	assert.InDelta(t, 15.5, records[0].ConsumedEnergy(), 1e-9)

	s, _ := n.Session(start.Session.ID)
	assert.True(t, s.CDRSent)
	require.NotNil(t, s.StopTime)

	failing := New("Prod", Options{CDRSink: failingSink{}})
	_, _ = failing.CreateProvider("DE*GDF", "", "")
	p, _ := failing.Provider("DE*GDF")
	p.AllowToken("00112233")
	auth := failing.AuthorizeStart(ctx, t0, AuthStartRequest{Identification: Identification{AuthToken: "00112233"}})
	require.Equal(t, AuthStartAuthorized, auth.Code)
	res := failing.SendChargeDetailRecords(ctx, t0, []ChargeDetailRecord{{SessionID: auth.SessionID}})
	assert.Equal(t, SendCDRError, res[0].Code)
}

func TestScheduleHistory(t *testing.T) {
	s := NewSchedule(StatusAvailable, t0, 3)
	s.Insert([]Timestamped[StatusType]{
		{Timestamp: t0.Add(2 * time.Minute), Value: StatusCharging},
		{Timestamp: t0.Add(time.Minute), Value: StatusReserved},
	})
	assert.Equal(t, StatusCharging, s.Current().Value)

	h := s.History(0, time.Time{})
	require.Len(t, h, 3)
	assert.Equal(t, StatusReserved, h[1].Value)

	assert.Len(t, s.History(1, time.Time{}), 1)
	assert.Len(t, s.History(0, t0.Add(time.Minute)), 2)

	s.Set(StatusFaulted, t0.Add(3*time.Minute))
	assert.Len(t, s.History(0, time.Time{}), 3)

	s.Set(StatusOffline, t0.Add(3*time.Minute))
	assert.Equal(t, StatusOffline, s.Current().Value)
	assert.Len(t, s.History(0, time.Time{}), 3)
}

func TestParseStatus(t *testing.T) {
	v, err := ParseStatus("charging")
	require.NoError(t, err)
	assert.Equal(t, StatusCharging, v)

	_, err = ParseAdminStatus("broken")
	assert.Error(t, err)
}

func TestSendChargeDetailRecordForOtherEVSE(t *testing.T) {
	ctx := context.Background()
	sink := NewMemoryCDRSink()
	n := New("Prod", Options{CDRSink: sink, Now: func() time.Time { return t0 }})
	_, err := n.CreateOperator("DE*GEF", "", "")
	require.NoError(t, err)
	_, err = n.CreatePool("DE*GEF", "DE*GEF*P1", "", "")
	require.NoError(t, err)
	_, err = n.CreateStation("DE*GEF*P1", "DE*GEF*S1", "")
	require.NoError(t, err)
	for _, id := range []ids.EVSEID{"DE*GEF*E1*1", "DE*GEF*E1*2"} {
		_, err = n.CreateEVSE("DE*GEF*S1", id, 11, nil)
		require.NoError(t, err)
	}
	p, err := n.CreateProvider("DE*GDF", "", "")
	require.NoError(t, err)
	p.AllowToken("00112233")

	start := n.RemoteStart(ctx, t0, RemoteStartRequest{EVSEID: "DE*GEF*E1*1", EMAID: "DE*GDF*00112233*1"})
	require.Equal(t, RemoteStartSuccess, start.Code)
	auth := n.AuthorizeStart(ctx, t0, AuthStartRequest{EVSEID: "DE*GEF*E1*1", Identification: Identification{AuthToken: "00112233"}})
	require.Equal(t, AuthStartAuthorized, auth.Code)

	results := n.SendChargeDetailRecords(ctx, t0.Add(time.Hour), []ChargeDetailRecord{
		{SessionID: start.Session.ID, EVSEID: "DE*GEF*E1*2", SessionStart: t0, SessionEnd: t0.Add(time.Hour)},
		{SessionID: auth.SessionID, EVSEID: "DE*GEF*E1*2", SessionStart: t0, SessionEnd: t0.Add(time.Hour)},
	})
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, SendCDRUnknownSessionID, r.Code)
		assert.Equal(t, "Unknown session identification!", r.Description)
	}
	assert.Empty(t, sink.Records())

	s, _ := n.Session(start.Session.ID)
	assert.Nil(t, s.StopTime)
	assert.False(t, s.CDRSent)

	results = n.SendChargeDetailRecords(ctx, t0.Add(time.Hour), []ChargeDetailRecord{
		{SessionID: auth.SessionID, EVSEID: "DE*GEF*E1*1", SessionStart: t0, SessionEnd: t0.Add(time.Hour)},
	})
	assert.Equal(t, SendCDRSuccess, results[0].Code)
}
