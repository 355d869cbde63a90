// repositories/redis_store.go
package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/evn/grubana/internal/models"
)

const (
	locationKeyPrefix = "truck:location:"
	locationSetKey    = "truck:locations"
	hoursKeyPrefix    = "truck:hours:"
)

const (
	fieldVisible      = "visible"
	fieldIsLive       = "isLive"
	fieldLastActive   = "lastActive"
	fieldSessionStart = "sessionStartTime"
	fieldLat          = "lat"
	fieldLng          = "lng"
)

// RedisStore keeps one hash per truck plus a set of known owners,
// so listing never needs KEYS.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func locationKey(ownerID string) string { return locationKeyPrefix + ownerID }

func hoursKey(ownerID string) string { return hoursKeyPrefix + ownerID }

func (r *RedisStore) GetLocation(ctx context.Context, ownerID string) (*models.TruckLocationRecord, error) {
	fields, err := r.client.HGetAll(ctx, locationKey(ownerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get location %q: %w", ownerID, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	rec, err := decodeLocationHash(ownerID, fields)
	if err != nil {
		return nil, fmt.Errorf("redis get location %q: %w", ownerID, err)
	}
	return rec, nil
}

// UpsertLocation seeds the defaults with HSETNX and then writes only the given fields,
// all inside one MULTI so a concurrent writer never sees a half-created hash.
func (r *RedisStore) UpsertLocation(ctx context.Context, ownerID string, u models.LocationUpdate) error {
	key := locationKey(ownerID)
	values := encodeLocationUpdate(u)

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, key, fieldVisible, "1")
		pipe.HSetNX(ctx, key, fieldIsLive, "0")
		if len(values) > 0 {
			pipe.HSet(ctx, key, values)
		}
		pipe.SAdd(ctx, locationSetKey, ownerID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis upsert location %q: %w", ownerID, err)
	}
	return nil
}

// ExpireSession WATCHes the hash so a goLive or heartbeat landing between the
// read and the write aborts the transaction instead of being overwritten.
func (r *RedisStore) ExpireSession(ctx context.Context, ownerID string, lastActive, sessionStart time.Time) (bool, error) {
	key := locationKey(ownerID)
	expired := false

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		fields, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			return nil
		}
		rec, err := decodeLocationHash(ownerID, fields)
		if err != nil {
			return err
		}
		if !rec.IsLive ||
			models.UnixMillis(rec.LastActive) != models.UnixMillis(lastActive) ||
			models.UnixMillis(rec.SessionStartTime) != models.UnixMillis(sessionStart) {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fieldIsLive, "0")
			return nil
		})
		if err == nil {
			expired = true
		}
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis expire session %q: %w", ownerID, err)
	}
	return expired, nil
}

func (r *RedisStore) ListLocations(ctx context.Context) ([]models.TruckLocationRecord, error) {
	owners, err := r.client.SMembers(ctx, locationSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list locations: %w", err)
	}
	sort.Strings(owners)

	cmds := make([]*redis.MapStringStringCmd, len(owners))
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range owners {
			cmds[i] = pipe.HGetAll(ctx, locationKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis list locations: %w", err)
	}

	result := make([]models.TruckLocationRecord, 0, len(owners))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		rec, err := decodeLocationHash(owners[i], fields)
		if err != nil {
			return nil, fmt.Errorf("redis list locations: %w", err)
		}
		result = append(result, *rec)
	}
	return result, nil
}

func (r *RedisStore) GetBusinessHours(ctx context.Context, ownerID string) (models.BusinessHours, error) {
	data, err := r.client.Get(ctx, hoursKey(ownerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get business hours %q: %w", ownerID, err)
	}

	var hours models.BusinessHours
	if err := json.Unmarshal(data, &hours); err != nil {
		return nil, fmt.Errorf("redis get business hours %q: %w: %w", ownerID, ErrMalformedHours, err)
	}
	return hours.Normalize(), nil
}

func (r *RedisStore) SetBusinessHours(ctx context.Context, ownerID string, hours models.BusinessHours) error {
	data, err := json.Marshal(hours)
	if err != nil {
		return fmt.Errorf("redis set business hours %q: encode: %w", ownerID, err)
	}
	if err := r.client.Set(ctx, hoursKey(ownerID), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set business hours %q: %w", ownerID, err)
	}
	return nil
}

// ListOwnersWithoutBusinessHours only sees owners that have a location hash;
// the redis backend has no separate profile index.
func (r *RedisStore) ListOwnersWithoutBusinessHours(ctx context.Context) ([]string, error) {
	owners, err := r.client.SMembers(ctx, locationSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list owners without business hours: %w", err)
	}
	sort.Strings(owners)

	cmds := make([]*redis.IntCmd, len(owners))
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range owners {
			cmds[i] = pipe.Exists(ctx, hoursKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis list owners without business hours: %w", err)
	}

	var missing []string
	for i, cmd := range cmds {
		if cmd.Val() == 0 {
			missing = append(missing, owners[i])
		}
	}
	return missing, nil
}

func encodeLocationUpdate(u models.LocationUpdate) map[string]any {
	values := map[string]any{}
	if u.Visible != nil {
		values[fieldVisible] = boolField(*u.Visible)
	}
	if u.IsLive != nil {
		values[fieldIsLive] = boolField(*u.IsLive)
	}
	if u.LastActive != nil {
		values[fieldLastActive] = models.UnixMillis(*u.LastActive)
	}
	if u.SessionStartTime != nil {
		values[fieldSessionStart] = models.UnixMillis(*u.SessionStartTime)
	}
	if u.Lat != nil {
		values[fieldLat] = strconv.FormatFloat(*u.Lat, 'f', -1, 64)
	}
	if u.Lng != nil {
		values[fieldLng] = strconv.FormatFloat(*u.Lng, 'f', -1, 64)
	}
	return values
}

func decodeLocationHash(ownerID string, fields map[string]string) (*models.TruckLocationRecord, error) {
	rec := models.NewTruckLocationRecord(ownerID)
	if v, ok := fields[fieldVisible]; ok {
		rec.Visible = v == "1"
	}
	rec.IsLive = fields[fieldIsLive] == "1"

	if v, ok := fields[fieldLastActive]; ok {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", fieldLastActive, err)
		}
		rec.LastActive = models.FromUnixMillis(ms)
	}
	if v, ok := fields[fieldSessionStart]; ok {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", fieldSessionStart, err)
		}
		rec.SessionStartTime = models.FromUnixMillis(ms)
	}
	if v, ok := fields[fieldLat]; ok {
		lat, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", fieldLat, err)
		}
		rec.Lat = &lat
	}
	if v, ok := fields[fieldLng]; ok {
		lng, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", fieldLng, err)
		}
		rec.Lng = &lng
	}
	return &rec, nil
}

func boolField(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
