package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"ibsnap/internal/application/port"
	"ibsnap/internal/domain/model"
)

// Repo mirrors cache writes into redis so other processes can read the
// latest values and subscribe to change notifications. It does not own the
// client.
type Repo struct {
	rdb     *redis.Client
	prefix  string
	ttl     time.Duration
	channel string
}

// Update is published on the channel after every write.
type Update struct {
	Kind      model.CacheKind `json:"kind"`
	SubKey    string          `json:"sub_key,omitempty"`
	UpdatedAt int64           `json:"updated_at_ms"`
}

type storedEntry struct {
	Payload   json.RawMessage `json:"payload"`
	UpdatedAt int64           `json:"updated_at_ms"`
}

func New(rdb *redis.Client, prefix string, ttl time.Duration, channel string) *Repo {
	if strings.TrimSpace(channel) == "" {
		channel = prefix + ":updates"
	}
	return &Repo{rdb: rdb, prefix: prefix, ttl: ttl, channel: channel}
}

func (r *Repo) latestKey(kind model.CacheKind) string {
	return fmt.Sprintf("%s:latest:%s", r.prefix, kind)
}

func (r *Repo) historyKey(kind model.CacheKind, subKey string) string {
	return fmt.Sprintf("%s:history:%s:%s", r.prefix, kind, subKey)
}

func encode(e model.CacheEntry) (string, error) {
	payload := json.RawMessage(e.Payload)
	if !json.Valid(payload) {
		// keep non-JSON payloads as a JSON string
		b, _ := json.Marshal(string(e.Payload))
		payload = b
	}
	b, err := json.Marshal(storedEntry{Payload: payload, UpdatedAt: e.UpdatedAt.UnixMilli()})
	return string(b), err
}

func decode(kind model.CacheKind, subKey, raw string) (model.CacheEntry, error) {
	var s storedEntry
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return model.CacheEntry{}, err
	}
	return model.CacheEntry{
		Kind:      kind,
		SubKey:    subKey,
		Payload:   []byte(s.Payload),
		UpdatedAt: time.UnixMilli(s.UpdatedAt).UTC(),
	}, nil
}

// Write sets the latest hash field and pushes onto the bounded history list
// in one MULTI block, then publishes an Update.
func (r *Repo) Write(ctx context.Context, e model.CacheEntry) error {
	val, err := encode(e)
	if err != nil {
		return err
	}

	latest := r.latestKey(e.Kind)
	history := r.historyKey(e.Kind, e.SubKey)
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, latest, e.SubKey, val)
		pipe.LPush(ctx, history, val)
		pipe.LTrim(ctx, history, 0, int64(e.Kind.Retain()-1))
		if r.ttl > 0 {
			pipe.Expire(ctx, latest, r.ttl)
			pipe.Expire(ctx, history, r.ttl)
		}
		return nil
	})
	if err != nil {
		return err
	}

	msg, _ := json.Marshal(Update{Kind: e.Kind, SubKey: e.SubKey, UpdatedAt: e.UpdatedAt.UnixMilli()})
	return r.rdb.Publish(ctx, r.channel, msg).Err()
}

func (r *Repo) Read(ctx context.Context, kind model.CacheKind, subKey string) (model.CacheEntry, bool, error) {
	raw, err := r.rdb.HGet(ctx, r.latestKey(kind), subKey).Result()
	if errors.Is(err, redis.Nil) {
		return model.CacheEntry{}, false, nil
	}
	if err != nil {
		return model.CacheEntry{}, false, err
	}
	e, err := decode(kind, subKey, raw)
	if err != nil {
		return model.CacheEntry{}, false, err
	}
	return e, true, nil
}

func (r *Repo) History(ctx context.Context, kind model.CacheKind, subKey string, limit int) ([]model.CacheEntry, error) {
	if limit <= 0 {
		limit = kind.Retain()
	}
	raws, err := r.rdb.LRange(ctx, r.historyKey(kind, subKey), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]model.CacheEntry, 0, len(raws))
	for _, raw := range raws {
		e, err := decode(kind, subKey, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Delete drops the latest value and history of the given sub-keys.
func (r *Repo) Delete(ctx context.Context, kind model.CacheKind, subKeys ...string) error {
	if len(subKeys) == 0 {
		return nil
	}
	keys := make([]string, 0, len(subKeys))
	for _, k := range subKeys {
		keys = append(keys, r.historyKey(kind, k))
	}
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, r.latestKey(kind), subKeys...)
		pipe.Del(ctx, keys...)
		return nil
	})
	return err
}

// Subscribe delivers Updates until ctx is done.
func (r *Repo) Subscribe(ctx context.Context) (<-chan Update, error) {
	sub := r.rdb.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan Update, 16)
	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var u Update
				if err := json.Unmarshal([]byte(msg.Payload), &u); err != nil {
					continue
				}
				select {
				case out <- u:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (r *Repo) Close() error { return nil }

var _ port.CacheStore = (*Repo)(nil)
