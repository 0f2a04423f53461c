package sim

import (
	"sort"
	"strconv"
)

// MachineType distinguishes the washer and dryer pools.
type MachineType string

const (
	Washer MachineType = "washer"
	Dryer  MachineType = "dryer"
)

// Operability is the real-world status reported by the inventory.
type Operability string

const (
	OperAvailable   Operability = "available"
	OperInUse       Operability = "in_use"
	OperBroken      Operability = "broken"
	OperMaintenance Operability = "maintenance"
)

// Assignable reports whether the simulator may place work on the machine.
func (o Operability) Assignable() bool {
	return o != OperBroken && o != OperMaintenance
}

// Machine is one physical slot of a branch.
type Machine struct {
	ID          int64       `json:"id,omitempty" yaml:"id"`
	Number      int         `json:"number" yaml:"number"`
	Type        MachineType `json:"type" yaml:"type"`
	Operability Operability `json:"status" yaml:"status"`
	Label       string      `json:"label,omitempty" yaml:"label"`
}

// DisplayName falls back to "Cuci 3" / "Kering 2" when no label is known.
func (m Machine) DisplayName() string {
	if m.Label != "" {
		return m.Label
	}
	prefix := "Cuci"
	if m.Type == Dryer {
		prefix = "Kering"
	}
	return prefix + " " + strconv.Itoa(m.Number)
}

// Pool is the washer and dryer inventory of one branch, each ordered by number.
type Pool struct {
	Washers []Machine
	Dryers  []Machine
}

// NewPool splits machines by type. If the inventory is empty altogether the
// default counts are used, all machines available.
func NewPool(machines []Machine, defaultWashers, defaultDryers int) Pool {
	if len(machines) == 0 {
		return DefaultPool(defaultWashers, defaultDryers)
	}
	var p Pool
	for _, m := range machines {
		if m.Operability == "" {
			m.Operability = OperAvailable
		}
		switch m.Type {
		case Washer:
			p.Washers = append(p.Washers, m)
		case Dryer:
			p.Dryers = append(p.Dryers, m)
		}
	}
	sortMachines(p.Washers)
	sortMachines(p.Dryers)
	return p
}

// DefaultPool builds washers 1..washers and dryers 1..dryers.
func DefaultPool(washers, dryers int) Pool {
	var p Pool
	for i := 1; i <= washers; i++ {
		p.Washers = append(p.Washers, Machine{Number: i, Type: Washer, Operability: OperAvailable})
	}
	for i := 1; i <= dryers; i++ {
		p.Dryers = append(p.Dryers, Machine{Number: i, Type: Dryer, Operability: OperAvailable})
	}
	return p
}

func (p Pool) machines(t MachineType) []Machine {
	if t == Dryer {
		return p.Dryers
	}
	return p.Washers
}

func sortMachines(ms []Machine) {
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].Number < ms[j].Number })
}
