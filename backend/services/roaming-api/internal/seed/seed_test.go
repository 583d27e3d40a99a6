package seed

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/ids"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/tenants"
)

const sample = `
networks:
  - id: Prod
    name: Production
    operators:
      - id: DE*GEF
        name: GraphDefined
        pools:
          - id: DE*GEF*P1
            name: Pool 1
            address: Jena
            stations:
              - id: DE*GEF*S1
                name: Station 1
                evses:
                  - id: DE*GEF*E1*1
                    maxPower: 22
                    sockets: [Type2]
                  - id: DE*GEF*E1*2
                    maxPower: 11
        brands:
          - id: GEF-Brand
            name: GraphDefined Charging
            evses: [DE*GEF*E1*1]
        evseGroups:
          - id: fast
            members: [DE*GEF*E1*1]
        tariffs:
          - id: AC1
            name: AC standard
            currency: EUR
            pricePerKWh: 0.39
            evses: [DE*GEF*E1*1, DE*GEF*E1*2]
    providers:
      - id: DE*GDF
        name: GraphDefined EMP
        authTokens: ["00112233"]
        emaids: [DE*GDF*00112233*1]
  - host: api.example.org
    id: Test
`

func TestApplyBuildsNetworks(t *testing.T) {
	file, err := Decode(strings.NewReader(sample))
	require.NoError(t, err)

	registry := tenants.NewRegistry(nil, zap.NewNop())
	require.NoError(t, Apply(registry, file, "", zap.NewNop()))

	n, ok := registry.Get(tenants.AnyHost, "Prod")
	require.True(t, ok)
	assert.Equal(t, "Production", n.Name())
	assert.Len(t, n.EVSEs(), 2)

	evse, ok := n.EVSE("DE*GEF*E1*1")
	require.True(t, ok)
	assert.Equal(t, ids.OperatorID("DE*GEF"), evse.OperatorID)

	tariff, ok := n.Tariff("AC1")
	require.True(t, ok)
	assert.Len(t, tariff.EVSEIDs(), 2)

	p, ok := n.Provider("DE*GDF")
	require.True(t, ok)
	assert.Equal(t, []ids.AuthToken{"00112233"}, p.AuthTokens())
	assert.Equal(t, []ids.EMAID{"DE*GDF*00112233*1"}, p.EMAIDs())

	_, ok = registry.Get("api.example.org", "Test")
	assert.True(t, ok)
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	_, err := Decode(strings.NewReader("networks:\n  - id: Prod\n    colour: red\n"))
	assert.Error(t, err)
}

func TestDecodeEmptyDocument(t *testing.T) {
	file, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, file.Networks)
}

func TestApplyRejectsInvalidIDs(t *testing.T) {
	cases := map[string]string{
		"network":  "networks:\n  - id: '!bad'\n",
		"operator": "networks:\n  - id: Prod\n    operators:\n      - id: nope\n",
		"token":    "networks:\n  - id: Prod\n    providers:\n      - id: DE*GDF\n        authTokens: [zz]\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			file, err := Decode(strings.NewReader(doc))
			require.NoError(t, err)
			assert.Error(t, Apply(tenants.NewRegistry(nil, zap.NewNop()), file, "", nil))
		})
	}
}

func TestApplyRejectsForeignEVSEInTariff(t *testing.T) {
	doc := `
networks:
  - id: Prod
    operators:
      - id: DE*GEF
        pools:
          - id: DE*GEF*P1
            stations:
              - id: DE*GEF*S1
                evses:
                  - id: DE*GEF*E1*1
      - id: DE*ABC
        tariffs:
          - id: T1
            evses: [DE*GEF*E1*1]
`
	file, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Error(t, Apply(tenants.NewRegistry(nil, zap.NewNop()), file, "", nil))
}

func TestApplyUsesDefaultHost(t *testing.T) {
	file, err := Decode(strings.NewReader("networks:\n  - id: Prod\n"))
	require.NoError(t, err)

	registry := tenants.NewRegistry(nil, zap.NewNop())
	require.NoError(t, Apply(registry, file, "roaming.example.org", nil))

	assert.Len(t, registry.List("roaming.example.org"), 1)
	_, ok := registry.Get(tenants.AnyHost, "Prod")
	assert.False(t, ok)
}
