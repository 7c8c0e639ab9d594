package device

// Capability describes how a device variant is driven: the store field
// its power toggle writes to and its set-point behavior. Every variant
// resolves to the same unified toggle field today; the indirection
// exists so a new variant with different store plumbing is one case
// here, not a string convention threaded through call sites.
type Capability struct {
	TogglePath      string
	HasSetPoint     bool
	DefaultSetPoint float64
	SetPointUnit    string
}

// The unified toggle field. Earlier store layouts used per-type paths
// ("<type>/toggle") next to flat "<channel>_state" fields; both are
// replaced by this single convention.
const togglePath = "power"

// CapabilityOf returns the capability set for a device variant.
func CapabilityOf(t Type) Capability {
	switch t {
	case TypeLight:
		return Capability{TogglePath: togglePath, HasSetPoint: true, DefaultSetPoint: 80, SetPointUnit: "%"}
	case TypeFan:
		return Capability{TogglePath: togglePath, HasSetPoint: true, DefaultSetPoint: 3, SetPointUnit: "level"}
	case TypeAirConditioner:
		return Capability{TogglePath: togglePath, HasSetPoint: true, DefaultSetPoint: 24, SetPointUnit: "C"}
	case TypeWaterHeater:
		return Capability{TogglePath: togglePath, HasSetPoint: true, DefaultSetPoint: 50, SetPointUnit: "C"}
	case TypeRefrigerator:
		return Capability{TogglePath: togglePath, HasSetPoint: true, DefaultSetPoint: 4, SetPointUnit: "C"}
	default:
		return Capability{TogglePath: togglePath}
	}
}
