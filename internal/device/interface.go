package device

import (
	"context"
	"time"
)

// Type identifies a device variant. Each variant carries its own
// capability set (toggle path resolution, default set-point); see
// capability.go.
type Type string

const (
	TypeLight          Type = "light"
	TypeFan            Type = "fan"
	TypeAirConditioner Type = "air_conditioner"
	TypeWaterHeater    Type = "water_heater"
	TypeRefrigerator   Type = "refrigerator"
)

// IsValid returns whether the type is a known variant
func (t Type) IsValid() bool {
	switch t {
	case TypeLight, TypeFan, TypeAirConditioner, TypeWaterHeater, TypeRefrigerator:
		return true
	default:
		return false
	}
}

type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// Device mirrors one entry of the external device store. The registry
// owns the mirror; devices only change through store writes echoed back
// over the change feed.
type Device struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      Type      `json:"type"`
	Room      string    `json:"room,omitempty"`
	Status    Status    `json:"status"`
	PowerOn   bool      `json:"power_on"`
	SetPoint  *float64  `json:"set_point,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MetadataUpdate is a partial update; nil fields are left untouched.
type MetadataUpdate struct {
	Name     *string
	Room     *string
	SetPoint *float64
}

// Store is the external device store: CRUD over a collection keyed by
// device id, plus a push-based change feed. Writes are acknowledged when
// the store accepts them; their effect on the mirrored collection only
// arrives via Watch.
type Store interface {
	List(ctx context.Context) ([]Device, error)
	Put(ctx context.Context, d Device) error
	SetPower(ctx context.Context, id string, on bool) error
	UpdateMetadata(ctx context.Context, id string, update MetadataUpdate) error
	Delete(ctx context.Context, id string) error

	// Watch blocks delivering the full current collection to deliver on
	// every change, in the order the store reports them, until ctx is
	// cancelled.
	Watch(ctx context.Context, deliver func([]Device)) error
}
