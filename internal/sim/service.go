// Package sim computes a deterministic, read-only simulation of which washer
// and dryer is running which load at a laundry branch.
//
// Nothing in this package performs I/O or reads the wall clock; "now" is
// always passed in by the caller.
package sim

import (
	"strconv"
	"strings"
	"time"
)

// ServiceName is one entry of the fixed service vocabulary.
type ServiceName string

const (
	Cuci   ServiceName = "Cuci"   // wash
	Kering ServiceName = "Kering" // dry
	Bilas  ServiceName = "Bilas"  // rinse
	CKL    ServiceName = "CKL"    // wash + dry + fold
)

var serviceDurations = map[ServiceName]time.Duration{
	Cuci:   15 * time.Minute,
	Kering: 45 * time.Minute,
	Bilas:  7 * time.Minute,
}

// ServiceDuration returns the fixed duration of a service. CKL counts as a
// wash followed by a dry; unknown names take no time.
func ServiceDuration(name ServiceName) time.Duration {
	if name == CKL {
		return serviceDurations[Cuci] + serviceDurations[Kering]
	}
	return serviceDurations[name]
}

// ServiceCounts is the number of atomic units per service after CKL expansion.
type ServiceCounts struct {
	Cuci   int `json:"cuci"`
	Kering int `json:"kering"`
	Bilas  int `json:"bilas"`
}

// ParseServices reads a comma-joined service string such as "Cuci, Cuci, Kering".
func ParseServices(raw string) ServiceCounts {
	return ParseServiceList(strings.Split(raw, ","))
}

// ParseServiceList counts the recognised names in list. Unknown names are skipped.
func ParseServiceList(list []string) ServiceCounts {
	var c ServiceCounts
	for _, item := range list {
		name, ok := lookupService(item)
		if !ok {
			continue
		}
		c.add(name)
	}
	return c
}

func lookupService(raw string) (ServiceName, bool) {
	s := strings.TrimSpace(raw)
	for _, name := range []ServiceName{Cuci, Kering, Bilas, CKL} {
		if strings.EqualFold(s, string(name)) {
			return name, true
		}
	}
	return "", false
}

func (c *ServiceCounts) add(name ServiceName) {
	switch name {
	case Cuci:
		c.Cuci++
	case Kering:
		c.Kering++
	case Bilas:
		c.Bilas++
	case CKL:
		c.Cuci++
		c.Kering++
	}
}

// Empty reports whether no machine work is needed.
func (c ServiceCounts) Empty() bool {
	return c.Cuci == 0 && c.Kering == 0 && c.Bilas == 0
}

// Duration is the sequential running time of a transaction: the wash/rinse
// chain first, then the dry phase on top of it.
func (c ServiceCounts) Duration() time.Duration {
	var d time.Duration
	switch {
	case c.Cuci > 0 && c.Bilas > 0:
		d = serviceDurations[Cuci] + serviceDurations[Bilas]
	case c.Cuci > 0:
		d = serviceDurations[Cuci]
	case c.Bilas > 0:
		d = serviceDurations[Bilas]
	}
	if c.Kering > 0 {
		d += serviceDurations[Kering]
	}
	return d
}

// String renders the counts in the vocabulary order, e.g. "2x Cuci, 1x Kering".
func (c ServiceCounts) String() string {
	var parts []string
	for _, p := range []struct {
		name ServiceName
		n    int
	}{{Cuci, c.Cuci}, {Bilas, c.Bilas}, {Kering, c.Kering}} {
		if p.n > 0 {
			parts = append(parts, strconv.Itoa(p.n)+"x "+string(p.name))
		}
	}
	return strings.Join(parts, ", ")
}
