package device

import (
	"context"
	"strconv"
	"time"

	"codeberg.org/mutker/homewatt/internal/errors"
	"codeberg.org/mutker/homewatt/internal/logger"
	"github.com/go-redis/redis/v8"
)

const (
	deviceSetKey    = "homewatt:devices"
	deviceKeyPrefix = "homewatt:device:"
	changeChannel   = "homewatt:devices:changed"
)

// redisStore keeps each device in its own hash, the id set in one set
// key, and publishes the changed id after every accepted write. The
// change feed is the pub/sub channel: any writer (this process or an
// external one) publishing there makes every watcher re-read and
// deliver the full collection.
type redisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) List(ctx context.Context) ([]Device, error) {
	errFactory := errors.New()

	ids, err := s.client.SMembers(ctx, deviceSetKey).Result()
	if err != nil {
		return nil, errFactory.Wrap(ErrStoreUnavailable, err)
	}

	devices := make([]Device, 0, len(ids))
	for _, id := range ids {
		fields, err := s.client.HGetAll(ctx, deviceKeyPrefix+id).Result()
		if err != nil {
			return nil, errFactory.Wrap(ErrStoreUnavailable, err)
		}
		if len(fields) == 0 {
			// id set and hash diverged; skip the orphan
			continue
		}
		devices = append(devices, deviceFromFields(id, fields))
	}

	return devices, nil
}

func (s *redisStore) Put(ctx context.Context, d Device) error {
	errFactory := errors.New()

	caps := CapabilityOf(d.Type)
	fields := map[string]interface{}{
		"name":           d.Name,
		"type":           string(d.Type),
		"room":           d.Room,
		"status":         string(d.Status),
		caps.TogglePath:  boolToInt(d.PowerOn),
		"updated_at":     d.UpdatedAt.Unix(),
	}
	if d.SetPoint != nil {
		fields["setpoint"] = strconv.FormatFloat(*d.SetPoint, 'f', -1, 64)
	}

	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, deviceSetKey, d.ID)
	pipe.HSet(ctx, deviceKeyPrefix+d.ID, fields)
	pipe.Publish(ctx, changeChannel, d.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return errFactory.Wrap(ErrWriteRejected, err)
	}

	return nil
}

func (s *redisStore) SetPower(ctx context.Context, id string, on bool) error {
	errFactory := errors.New()

	deviceType, err := s.client.HGet(ctx, deviceKeyPrefix+id, "type").Result()
	if err == redis.Nil {
		return errFactory.WithData(ErrNotFound, id)
	}
	if err != nil {
		return errFactory.Wrap(ErrStoreUnavailable, err)
	}

	caps := CapabilityOf(Type(deviceType))
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, deviceKeyPrefix+id, map[string]interface{}{
		caps.TogglePath: boolToInt(on),
		"updated_at":    time.Now().Unix(),
	})
	pipe.Publish(ctx, changeChannel, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return errFactory.Wrap(ErrWriteRejected, err)
	}

	return nil
}

func (s *redisStore) UpdateMetadata(ctx context.Context, id string, update MetadataUpdate) error {
	errFactory := errors.New()

	exists, err := s.client.Exists(ctx, deviceKeyPrefix+id).Result()
	if err != nil {
		return errFactory.Wrap(ErrStoreUnavailable, err)
	}
	if exists == 0 {
		return errFactory.WithData(ErrNotFound, id)
	}

	fields := map[string]interface{}{
		"updated_at": time.Now().Unix(),
	}
	if update.Name != nil {
		fields["name"] = *update.Name
	}
	if update.Room != nil {
		fields["room"] = *update.Room
	}
	if update.SetPoint != nil {
		fields["setpoint"] = strconv.FormatFloat(*update.SetPoint, 'f', -1, 64)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, deviceKeyPrefix+id, fields)
	pipe.Publish(ctx, changeChannel, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return errFactory.Wrap(ErrWriteRejected, err)
	}

	return nil
}

func (s *redisStore) Delete(ctx context.Context, id string) error {
	errFactory := errors.New()

	removed, err := s.client.SRem(ctx, deviceSetKey, id).Result()
	if err != nil {
		return errFactory.Wrap(ErrStoreUnavailable, err)
	}
	if removed == 0 {
		return errFactory.WithData(ErrNotFound, id)
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, deviceKeyPrefix+id)
	pipe.Publish(ctx, changeChannel, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return errFactory.Wrap(ErrWriteRejected, err)
	}

	return nil
}

func (s *redisStore) Watch(ctx context.Context, deliver func([]Device)) error {
	pubsub := s.client.Subscribe(ctx, changeChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New().New(ErrStoreUnavailable)
			}

			devices, err := s.List(ctx)
			if err != nil {
				logger.Warn().
					Err(err).
					Str("changed_id", msg.Payload).
					Msg("device re-read after change notification failed")
				continue
			}
			deliver(devices)
		}
	}
}

func deviceFromFields(id string, fields map[string]string) Device {
	d := Device{
		ID:     id,
		Name:   fields["name"],
		Type:   Type(fields["type"]),
		Room:   fields["room"],
		Status: Status(fields["status"]),
	}
	if d.Status == "" {
		d.Status = StatusOffline
	}

	caps := CapabilityOf(d.Type)
	d.PowerOn = fields[caps.TogglePath] == "1"

	if raw, ok := fields["setpoint"]; ok {
		if setPoint, err := strconv.ParseFloat(raw, 64); err == nil {
			d.SetPoint = &setPoint
		}
	}
	if raw, ok := fields["updated_at"]; ok {
		if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
			d.UpdatedAt = time.Unix(unix, 0)
		}
	}

	return d
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
