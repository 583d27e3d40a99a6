// Package projection renders arena entities to JSON views under a per-request
// expansion policy and pages collections.
package projection

import (
	"net/url"
	"strings"
)

// Level controls how a related entity appears in a view.
type Level int

const (
	Hidden Level = iota
	ShowIDOnly
	Expand
)

// Relation names a related entity kind.
type Relation string

// Relations.
const (
	RelNetwork      Relation = "network"
	RelOperator     Relation = "operator"
	RelPool         Relation = "pool"
	RelStation      Relation = "station"
	RelEVSE         Relation = "evse"
	RelBrand        Relation = "brand"
	RelStationGroup Relation = "stationgroup"
	RelEVSEGroup    Relation = "evsegroup"
	RelTariff       Relation = "tariff"
	RelProvider     Relation = "provider"
)

var relationAliases = map[string]Relation{
	"network":                  RelNetwork,
	"roamingnetwork":           RelNetwork,
	"operator":                 RelOperator,
	"operators":                RelOperator,
	"cso":                      RelOperator,
	"chargingstationoperator":  RelOperator,
	"chargingstationoperators": RelOperator,
	"pool":                     RelPool,
	"pools":                    RelPool,
	"chargingpool":             RelPool,
	"chargingpools":            RelPool,
	"station":                  RelStation,
	"stations":                 RelStation,
	"chargingstation":          RelStation,
	"chargingstations":         RelStation,
	"evse":                     RelEVSE,
	"evses":                    RelEVSE,
	"brand":                    RelBrand,
	"brands":                   RelBrand,
	"stationgroup":             RelStationGroup,
	"stationgroups":            RelStationGroup,
	"chargingstationgroups":    RelStationGroup,
	"evsegroup":                RelEVSEGroup,
	"evsegroups":               RelEVSEGroup,
	"tariff":                   RelTariff,
	"tariffs":                  RelTariff,
	"provider":                 RelProvider,
	"providers":                RelProvider,
	"emobilityproviders":       RelProvider,
}

// ParseRelation maps a query parameter name to a relation.
func ParseRelation(name string) (Relation, bool) {
	r, ok := relationAliases[strings.ToLower(strings.TrimSpace(name))]
	return r, ok
}

// Policy maps relations to levels. Unlisted relations are Hidden.
type Policy map[Relation]Level

// Level returns the level for r.
func (p Policy) Level(r Relation) Level { return p[r] }

// ParsePolicy starts from defaults and applies the comma separated "include"
// (ShowIDOnly) and "expand" (Expand) query parameters. Unknown names are ignored.
func ParsePolicy(values url.Values, defaults Policy) Policy {
	p := make(Policy, len(defaults))
	for r, l := range defaults {
		p[r] = l
	}
	apply := func(param string, level Level) {
		for _, v := range values[param] {
			for _, name := range strings.Split(v, ",") {
				if r, ok := ParseRelation(name); ok {
					p[r] = level
				}
			}
		}
	}
	apply("include", ShowIDOnly)
	apply("expand", Expand)
	return p
}

// Embedded is the policy for an entity rendered inside another one: nothing
// is expanded further, so the graph is cut after one level.
func (p Policy) Embedded() Policy {
	out := make(Policy, len(p))
	for r, l := range p {
		if l == Expand {
			l = ShowIDOnly
		}
		out[r] = l
	}
	return out
}
