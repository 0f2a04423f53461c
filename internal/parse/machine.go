package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Machine types as stored in the mirror tables.
const (
	MachineWasher = "washer"
	MachineDryer  = "dryer"
)

// Real-world operability values.
const (
	OperabilityAvailable   = "available"
	OperabilityInUse       = "in_use"
	OperabilityBroken      = "broken"
	OperabilityMaintenance = "maintenance"
)

var (
	numberRe = regexp.MustCompile(`(\d+)\s*$`)
	dryerRe  = regexp.MustCompile(`(?i)\b(kering|pengering|dryer|dry)\b`)
	washerRe = regexp.MustCompile(`(?i)\b(cuci|pencuci|washer|wash)\b`)
)

// ParsedMachine holds what can be read from a machine's display label.
type ParsedMachine struct {
	Type   string
	Number int
}

// ParseMachineLabel extracts type and number from labels such as
// "Mesin Cuci 3", "Pengering-2" or "Dryer #4".
func ParseMachineLabel(raw string) (ParsedMachine, error) {
	// '#', '-' and '_' separate words the same way spaces do
	s := strings.NewReplacer("#", " ", "-", " ", "_", " ").Replace(strings.TrimSpace(raw))
	s = strings.TrimSpace(regexp.MustCompile(`\s+`).ReplaceAllString(s, " "))

	var p ParsedMachine
	switch {
	case dryerRe.MatchString(s):
		p.Type = MachineDryer
	case washerRe.MatchString(s):
		p.Type = MachineWasher
	default:
		return ParsedMachine{}, fmt.Errorf("unable to parse machine type from label: %q", raw)
	}

	if loc := numberRe.FindStringSubmatchIndex(s); loc != nil {
		if n, err := strconv.Atoi(s[loc[2]:loc[3]]); err == nil {
			p.Number = n
		}
	}
	if p.Number == 0 {
		return ParsedMachine{}, fmt.Errorf("unable to parse machine number from label: %q", raw)
	}
	return p, nil
}

// ParseMachineType normalizes English and Indonesian type names.
func ParseMachineType(raw string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "washer", "wash", "cuci", "pencuci", "mesin cuci":
		return MachineWasher, true
	case "dryer", "dry", "kering", "pengering", "mesin pengering":
		return MachineDryer, true
	}
	return "", false
}

// ParseOperability normalizes the real-world machine status. Unknown values
// are reported as not ok so the caller can pick a default.
func ParseOperability(raw string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "available", "tersedia", "idle", "ready":
		return OperabilityAvailable, true
	case "in_use", "in-use", "inuse", "digunakan", "busy":
		return OperabilityInUse, true
	case "broken", "rusak":
		return OperabilityBroken, true
	case "maintenance", "perawatan":
		return OperabilityMaintenance, true
	}
	return "", false
}
