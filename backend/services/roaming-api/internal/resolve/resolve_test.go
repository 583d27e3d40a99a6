package resolve

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/apierr"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/ids"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/tenants"
)

func newResolvers(t *testing.T) *Resolvers {
	t.Helper()
	reg := tenants.NewRegistry(nil, nil)
	n, err := reg.Create(tenants.AnyHost, "Prod", "", "")
	require.NoError(t, err)

	_, err = n.CreateOperator("DE*GEF", "", "")
	require.NoError(t, err)
	_, err = n.CreateOperator("DE*ABC", "", "")
	require.NoError(t, err)
	for _, p := range []struct{ op, pool, station, evse string }{
		{"DE*GEF", "DE*GEF*P1", "DE*GEF*S1", "DE*GEF*E1*1"},
		{"DE*GEF", "DE*GEF*P2", "DE*GEF*S2", "DE*GEF*E2*1"},
		{"DE*ABC", "DE*ABC*P1", "DE*ABC*S1", "DE*ABC*E1*1"},
	} {
		_, err = n.CreatePool(ids.OperatorID(p.op), ids.PoolID(p.pool), "", "")
		require.NoError(t, err)
		_, err = n.CreateStation(ids.PoolID(p.pool), ids.StationID(p.station), "")
		require.NoError(t, err)
		_, err = n.CreateEVSE(ids.StationID(p.station), ids.EVSEID(p.evse), 22, nil)
		require.NoError(t, err)
	}
	_, err = n.CreateBrand("DE*ABC", "Blue", "", "", "")
	require.NoError(t, err)
	return New(reg)
}

func requireStatus(t *testing.T, err *apierr.Error, status int, description string) {
	t.Helper()
	require.NotNil(t, err)
	assert.Equal(t, status, err.Status)
	assert.Equal(t, description, err.Description)
}

func TestResolveFullPath(t *testing.T) {
	r := newResolvers(t)

	got, err := r.NetworkPoolStationEVSE.Resolve("localhost", []string{"Prod", "DE*GEF*P1", "DE*GEF*S1", "DE*GEF*E1*1"})
	require.Nil(t, err)
	assert.Equal(t, "Prod", got.Network.ID.String())
	assert.Equal(t, "DE*GEF*P1", got.Pool.ID.String())
	assert.Equal(t, "DE*GEF*S1", got.Station.ID.String())
	assert.Equal(t, "DE*GEF*E1*1", got.EVSE.ID.String())
}

func TestResolveCanonicalizesSegments(t *testing.T) {
	r := newResolvers(t)

	got, err := r.NetworkEVSE.Resolve("localhost", []string{"Prod", "degef*e1*1"})
	require.Nil(t, err)
	assert.Equal(t, "DE*GEF*E1*1", got.EVSE.ID.String())
}

func TestResolveChildOfOtherParent(t *testing.T) {
	r := newResolvers(t)

	_, err := r.NetworkPoolStationEVSE.Resolve("localhost", []string{"Prod", "DE*GEF*P1", "DE*GEF*S1", "DE*GEF*E2*1"})
	requireStatus(t, err, http.StatusNotFound, "Unknown EVSEId!")

	_, err = r.NetworkPoolStation.Resolve("localhost", []string{"Prod", "DE*GEF*P2", "DE*GEF*S1"})
	requireStatus(t, err, http.StatusNotFound, "Unknown ChargingStationId!")

	_, err = r.NetworkOperatorPool.Resolve("localhost", []string{"Prod", "DE*GEF", "DE*ABC*P1"})
	requireStatus(t, err, http.StatusNotFound, "Unknown ChargingPoolId!")

	_, err = r.NetworkOperatorBrand.Resolve("localhost", []string{"Prod", "DE*GEF", "Blue"})
	requireStatus(t, err, http.StatusNotFound, "Unknown BrandId!")
}

func TestResolveErrors(t *testing.T) {
	r := newResolvers(t)

	_, err := r.NetworkEVSE.Resolve("localhost", []string{"Prod"})
	requireStatus(t, err, http.StatusBadRequest, "Missing EVSEId parameter!")

	_, err = r.NetworkEVSE.Resolve("localhost", []string{"Prod", "not an evse"})
	requireStatus(t, err, http.StatusBadRequest, "Invalid EVSEId!")

	_, err = r.NetworkEVSE.Resolve("localhost", []string{"Prod", "DE*GEF*E9*9"})
	requireStatus(t, err, http.StatusNotFound, "Unknown EVSEId!")

	_, err = r.Network.Resolve("localhost", []string{"Test"})
	requireStatus(t, err, http.StatusNotFound, "Unknown RoamingNetworkId!")
}

func TestResolveShortCircuits(t *testing.T) {
	r := newResolvers(t)

	// the pool fails first, the invalid station segment is never parsed
	_, err := r.NetworkPoolStation.Resolve("localhost", []string{"Prod", "DE*GEF*P9", "%%%"})
	requireStatus(t, err, http.StatusNotFound, "Unknown ChargingPoolId!")
}

func TestChainThenDoesNotAlias(t *testing.T) {
	r := newResolvers(t)
	assert.Equal(t, 1, r.Network.Len())
	assert.Equal(t, 2, r.NetworkPool.Len())
	assert.Equal(t, 3, r.NetworkPoolStation.Len())
	assert.Equal(t, 4, r.NetworkPoolStationEVSE.Len())
	assert.Equal(t, 3, r.NetworkStationEVSE.Len())
}
