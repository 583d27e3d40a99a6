// Package seed loads a static description of roaming networks from YAML and
// creates it in a tenants.Registry at startup.
package seed

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/ids"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/network"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/tenants"
)

// File is the root of a seed document.
type File struct {
	Networks []Network `yaml:"networks"`
}

type Network struct {
	Host        string     `yaml:"host"`
	ID          string     `yaml:"id"`
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Operators   []Operator `yaml:"operators"`
	Providers   []Provider `yaml:"providers"`
}

type Operator struct {
	ID            string   `yaml:"id"`
	Name          string   `yaml:"name"`
	Description   string   `yaml:"description"`
	Pools         []Pool   `yaml:"pools"`
	Brands        []Brand  `yaml:"brands"`
	StationGroups []Group  `yaml:"stationGroups"`
	EVSEGroups    []Group  `yaml:"evseGroups"`
	Tariffs       []Tariff `yaml:"tariffs"`
}

type Pool struct {
	ID       string    `yaml:"id"`
	Name     string    `yaml:"name"`
	Address  string    `yaml:"address"`
	Stations []Station `yaml:"stations"`
}

type Station struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	EVSEs []EVSE `yaml:"evses"`
}

type EVSE struct {
	ID       string   `yaml:"id"`
	MaxPower float64  `yaml:"maxPower"`
	Sockets  []string `yaml:"sockets"`
}

// Brand tags pools, stations and EVSEs of its operator.
type Brand struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Logo     string   `yaml:"logo"`
	Homepage string   `yaml:"homepage"`
	Pools    []string `yaml:"pools"`
	Stations []string `yaml:"stations"`
	EVSEs    []string `yaml:"evses"`
}

// Group is a station group or an EVSE group, depending on where it appears.
type Group struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Members     []string `yaml:"members"`
}

type Tariff struct {
	ID             string   `yaml:"id"`
	Name           string   `yaml:"name"`
	Currency       string   `yaml:"currency"`
	PricePerKWh    float64  `yaml:"pricePerKWh"`
	PricePerMinute float64  `yaml:"pricePerMinute"`
	SessionFee     float64  `yaml:"sessionFee"`
	EVSEs          []string `yaml:"evses"`
}

type Provider struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	AuthTokens  []string `yaml:"authTokens"`
	EMAIDs      []string `yaml:"emaids"`
}

// Load reads and decodes a seed file.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("seed: open: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a seed document. Unknown keys are rejected.
func Decode(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file File
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return &file, nil
		}
		return nil, fmt.Errorf("seed: decode yaml: %w", err)
	}
	return &file, nil
}

// Apply creates every network of the file. Networks without a host go to
// defaultHost, or to tenants.AnyHost when that is empty. Networks that already
// exist are extended rather than replaced.
func Apply(registry *tenants.Registry, file *File, defaultHost string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, sn := range file.Networks {
		id, err := ids.ParseRoamingNetworkID(sn.ID)
		if err != nil {
			return fmt.Errorf("seed: network %q: %w", sn.ID, err)
		}
		host := sn.Host
		if host == "" {
			host = defaultHost
		}
		if host == "" {
			host = tenants.AnyHost
		}
		n, _ := registry.GetOrCreate(host, id, sn.Name, sn.Description)

		for _, so := range sn.Operators {
			if err := applyOperator(n, so); err != nil {
				return fmt.Errorf("seed: network %s: %w", id, err)
			}
		}
		for _, sp := range sn.Providers {
			if err := applyProvider(n, sp); err != nil {
				return fmt.Errorf("seed: network %s: %w", id, err)
			}
		}
		logger.Info("seeded roaming network",
			zap.String("host", host),
			zap.String("network_id", id.String()),
			zap.Int("operators", len(n.Operators())),
			zap.Int("evses", len(n.EVSEs())),
			zap.Int("providers", len(n.Providers())),
		)
	}
	return nil
}

func applyOperator(n *network.RoamingNetwork, so Operator) error {
	oid, err := ids.ParseOperatorID(so.ID)
	if err != nil {
		return fmt.Errorf("operator %q: %w", so.ID, err)
	}
	if _, err := n.CreateOperator(oid, so.Name, so.Description); err != nil {
		return err
	}

	for _, sp := range so.Pools {
		pid, err := ids.ParsePoolID(sp.ID)
		if err != nil {
			return fmt.Errorf("pool %q: %w", sp.ID, err)
		}
		if _, err := n.CreatePool(oid, pid, sp.Name, sp.Address); err != nil {
			return err
		}
		for _, ss := range sp.Stations {
			sid, err := ids.ParseStationID(ss.ID)
			if err != nil {
				return fmt.Errorf("station %q: %w", ss.ID, err)
			}
			if _, err := n.CreateStation(pid, sid, ss.Name); err != nil {
				return err
			}
			for _, se := range ss.EVSEs {
				eid, err := ids.ParseEVSEID(se.ID)
				if err != nil {
					return fmt.Errorf("evse %q: %w", se.ID, err)
				}
				if _, err := n.CreateEVSE(sid, eid, se.MaxPower, se.Sockets); err != nil {
					return err
				}
			}
		}
	}

	for _, sb := range so.Brands {
		if err := applyBrand(n, oid, sb); err != nil {
			return err
		}
	}
	for _, sg := range so.StationGroups {
		gid, err := ids.ParseChargingStationGroupID(sg.ID)
		if err != nil {
			return fmt.Errorf("station group %q: %w", sg.ID, err)
		}
		members, err := parseAll(sg.Members, ids.ParseStationID)
		if err != nil {
			return fmt.Errorf("station group %s: %w", gid, err)
		}
		if _, err := n.CreateStationGroup(oid, gid, sg.Name, sg.Description, members); err != nil {
			return err
		}
	}
	for _, sg := range so.EVSEGroups {
		gid, err := ids.ParseEVSEGroupID(sg.ID)
		if err != nil {
			return fmt.Errorf("evse group %q: %w", sg.ID, err)
		}
		members, err := parseAll(sg.Members, ids.ParseEVSEID)
		if err != nil {
			return fmt.Errorf("evse group %s: %w", gid, err)
		}
		if _, err := n.CreateEVSEGroup(oid, gid, sg.Name, sg.Description, members); err != nil {
			return err
		}
	}
	for _, st := range so.Tariffs {
		tid, err := ids.ParseTariffID(st.ID)
		if err != nil {
			return fmt.Errorf("tariff %q: %w", st.ID, err)
		}
		evses, err := parseAll(st.EVSEs, ids.ParseEVSEID)
		if err != nil {
			return fmt.Errorf("tariff %s: %w", tid, err)
		}
		tariff := network.Tariff{
			ID:             tid,
			Name:           st.Name,
			Currency:       st.Currency,
			PricePerKWh:    st.PricePerKWh,
			PricePerMinute: st.PricePerMinute,
			SessionFee:     st.SessionFee,
		}
		if _, err := n.CreateTariff(oid, tariff, evses); err != nil {
			return err
		}
	}
	return nil
}

func applyBrand(n *network.RoamingNetwork, oid ids.OperatorID, sb Brand) error {
	bid, err := ids.ParseBrandID(sb.ID)
	if err != nil {
		return fmt.Errorf("brand %q: %w", sb.ID, err)
	}
	if _, err := n.CreateBrand(oid, bid, sb.Name, sb.Logo, sb.Homepage); err != nil {
		return err
	}
	pools, err := parseAll(sb.Pools, ids.ParsePoolID)
	if err != nil {
		return fmt.Errorf("brand %s: %w", bid, err)
	}
	for _, pid := range pools {
		if err := n.TagPool(bid, pid); err != nil {
			return err
		}
	}
	stations, err := parseAll(sb.Stations, ids.ParseStationID)
	if err != nil {
		return fmt.Errorf("brand %s: %w", bid, err)
	}
	for _, sid := range stations {
		if err := n.TagStation(bid, sid); err != nil {
			return err
		}
	}
	evses, err := parseAll(sb.EVSEs, ids.ParseEVSEID)
	if err != nil {
		return fmt.Errorf("brand %s: %w", bid, err)
	}
	for _, eid := range evses {
		if err := n.TagEVSE(bid, eid); err != nil {
			return err
		}
	}
	return nil
}

func applyProvider(n *network.RoamingNetwork, sp Provider) error {
	pid, err := ids.ParseProviderID(sp.ID)
	if err != nil {
		return fmt.Errorf("provider %q: %w", sp.ID, err)
	}
	tokens, err := parseAll(sp.AuthTokens, ids.ParseAuthToken)
	if err != nil {
		return fmt.Errorf("provider %s: %w", pid, err)
	}
	emaids, err := parseAll(sp.EMAIDs, ids.ParseEMAID)
	if err != nil {
		return fmt.Errorf("provider %s: %w", pid, err)
	}
	p, err := n.CreateProvider(pid, sp.Name, sp.Description)
	if err != nil {
		return err
	}
	for _, t := range tokens {
		p.AllowToken(t)
	}
	for _, e := range emaids {
		p.AllowEMAID(e)
	}
	return nil
}

func parseAll[T any](texts []string, parse func(string) (T, error)) ([]T, error) {
	out := make([]T, 0, len(texts))
	for _, s := range texts {
		v, err := parse(s)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", s, err)
		}
		out = append(out, v)
	}
	return out, nil
}
