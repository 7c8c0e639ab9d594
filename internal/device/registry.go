package device

import (
	"context"
	"sort"
	"sync"
	"time"

	"codeberg.org/mutker/homewatt/internal/errors"
	"codeberg.org/mutker/homewatt/internal/logger"
	"github.com/google/uuid"
)

// Registry keeps an in-memory mirror of the external device store.
// The change feed owns every mirror write: local operations (Add,
// Toggle, ...) only issue store writes and return once acknowledged,
// without touching the mirror. The mirror is rebuilt and swapped
// wholesale per feed delivery, so readers never observe a partially
// applied batch, and each applied batch is fanned out once through the
// hub.
type Registry struct {
	store Store
	hub   *Hub

	mu      sync.RWMutex
	devices []Device
	byID    map[string]Device
}

func NewRegistry(store Store, hub *Hub) *Registry {
	return &Registry{
		store: store,
		hub:   hub,
		byID:  make(map[string]Device),
	}
}

// Run loads the initial collection and then follows the store's change
// feed until ctx is cancelled. It owns all mirror mutation.
func (r *Registry) Run(ctx context.Context) error {
	devices, err := r.store.List(ctx)
	if err != nil {
		// The feed will deliver the collection once the store is
		// reachable again.
		logger.Warn().Err(err).Msg("initial device load failed, starting with empty mirror")
	} else {
		r.apply(devices)
	}

	return r.store.Watch(ctx, r.apply)
}

// apply replaces the mirrored collection and fans it out.
func (r *Registry) apply(devices []Device) {
	sorted := make([]Device, len(devices))
	copy(sorted, devices)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	byID := make(map[string]Device, len(sorted))
	for _, d := range sorted {
		byID[d.ID] = d
	}

	r.mu.Lock()
	r.devices = sorted
	r.byID = byID
	r.mu.Unlock()

	r.hub.Publish(sorted)
}

// Devices returns the mirrored collection, sorted by id.
func (r *Registry) Devices() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]Device, len(r.devices))
	copy(devices, r.devices)
	return devices
}

// Get returns the mirrored device with the given id.
func (r *Registry) Get(id string) (Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byID[id]
	return d, ok
}

// Subscribe registers a callback for authoritative collection changes.
func (r *Registry) Subscribe(callback func([]Device)) (unsubscribe func()) {
	return r.hub.Subscribe(callback)
}

// SubscriberCount reports the number of live change-feed subscribers.
func (r *Registry) SubscriberCount() int {
	return r.hub.SubscriberCount()
}

// Add constructs a device with type-appropriate defaults, persists it,
// and returns it once the store acknowledges the write. The mirror is
// not updated here; the device appears in it when the feed echoes the
// write back.
func (r *Registry) Add(ctx context.Context, name string, deviceType Type, room string) (Device, error) {
	errFactory := errors.New()

	if name == "" {
		return Device{}, errFactory.New(ErrInvalidName)
	}
	if !deviceType.IsValid() {
		return Device{}, errFactory.WithData(ErrUnknownType, string(deviceType))
	}

	d := Device{
		ID:        uuid.NewString(),
		Name:      name,
		Type:      deviceType,
		Room:      room,
		Status:    StatusOnline,
		PowerOn:   false,
		UpdatedAt: time.Now(),
	}
	if caps := CapabilityOf(deviceType); caps.HasSetPoint {
		setPoint := caps.DefaultSetPoint
		d.SetPoint = &setPoint
	}

	if err := r.store.Put(ctx, d); err != nil {
		return Device{}, err
	}

	logger.Info().
		Str("device_id", d.ID).
		Str("type", string(d.Type)).
		Msg("device added")

	return d, nil
}

// Remove deletes the device from the store. Removing an absent id
// reports ErrNotFound without crashing.
func (r *Registry) Remove(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, id); err != nil {
		return err
	}

	logger.Info().Str("device_id", id).Msg("device removed")
	return nil
}

// Toggle issues the power write to the store and returns once it is
// acknowledged. The mirrored state is deliberately not touched: the
// new value becomes visible only when the change feed delivers it, so
// the mirror never diverges from the store.
func (r *Registry) Toggle(ctx context.Context, id string, on bool) error {
	return r.store.SetPower(ctx, id, on)
}

// UpdateMetadata partially updates a device, with the same
// asynchronous-confirmation discipline as Toggle.
func (r *Registry) UpdateMetadata(ctx context.Context, id string, update MetadataUpdate) error {
	return r.store.UpdateMetadata(ctx, id, update)
}
