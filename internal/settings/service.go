package settings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/linkage-va-hub/linkage/backend/go-services/internal/cache"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/logger"
)

var ErrNotEditable = errors.New("setting is not editable")

const cacheTTL = 10 * time.Minute

type Service struct {
	repo  Repository
	cache cache.Cache
	now   func() time.Time
}

func NewService(repo Repository, c cache.Cache) *Service {
	return &Service{repo: repo, cache: c, now: func() time.Time { return time.Now().UTC() }}
}

func cacheKey(key string) string { return "settings:" + key }

// Seed inserts every default that is missing and returns the inserted keys.
func (s *Service) Seed(ctx context.Context) ([]string, error) {
	var inserted []string
	for _, d := range Defaults() {
		d := d
		d.UpdatedAt = s.now()
		ok, err := s.repo.InsertMissing(ctx, &d)
		if err != nil {
			return inserted, fmt.Errorf("seed %s: %w", d.Key, err)
		}
		if ok {
			inserted = append(inserted, d.Key)
		}
	}
	return inserted, nil
}

// Get returns a setting, from the cache when possible, or (nil, nil) when unknown.
func (s *Service) Get(ctx context.Context, key string) (*Setting, error) {
	if s.cache != nil {
		var cached Setting
		hit, err := s.cache.Get(ctx, cacheKey(key), &cached)
		if err != nil {
			logger.Warnf("settings cache read: %v", err)
		}
		if hit {
			return &cached, nil
		}
	}
	st, err := s.repo.Get(ctx, key)
	if err != nil || st == nil {
		return st, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey(key), st, cacheTTL); err != nil {
			logger.Warnf("settings cache write: %v", err)
		}
	}
	return st, nil
}

// Int returns a numeric setting, or def when it is unset or not a number.
func (s *Service) Int(ctx context.Context, key string, def int) int {
	st, err := s.Get(ctx, key)
	if err != nil {
		logger.Warnf("setting %s: %v", key, err)
		return def
	}
	if st == nil {
		return def
	}
	if f, ok := toFloat(st.Value); ok {
		return int(f)
	}
	return def
}

// Bool returns a boolean setting, or def.
func (s *Service) Bool(ctx context.Context, key string, def bool) bool {
	st, err := s.Get(ctx, key)
	if err != nil || st == nil {
		return def
	}
	if b, ok := st.Value.(bool); ok {
		return b
	}
	return def
}

// Entry is one setting in the admin map.
type Entry struct {
	Value       interface{} `json:"value"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	ValueType   string      `json:"valueType"`
}

// Editable returns the editable settings keyed by name.
func (s *Service) Editable(ctx context.Context) (map[string]Entry, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := map[string]Entry{}
	for _, st := range list {
		if st.IsEditable {
			out[st.Key] = Entry{Value: st.Value, Category: st.Category, Description: st.Description, ValueType: st.ValueType}
		}
	}
	return out, nil
}

// Public returns the values that may be shown to anonymous clients.
func (s *Service) Public(ctx context.Context) (map[string]interface{}, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := map[string]interface{}{}
	for _, st := range list {
		if st.IsPublic {
			out[st.Key] = st.Value
		}
	}
	return out, nil
}

// Update type-checks and stores every value in configs; nothing is written when one is invalid.
func (s *Service) Update(ctx context.Context, adminID string, configs map[string]interface{}) ([]string, error) {
	if len(configs) == 0 {
		return nil, models.Invalid("configs", "no settings given")
	}
	keys := make([]string, 0, len(configs))
	for k := range configs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pending := make([]*Setting, 0, len(keys))
	for _, k := range keys {
		st, err := s.repo.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if st == nil {
			return nil, models.Invalid(k, "unknown setting")
		}
		if !st.IsEditable {
			return nil, fmt.Errorf("%s: %w", k, ErrNotEditable)
		}
		v, err := Coerce(st.ValueType, configs[k])
		if err != nil {
			return nil, models.Invalid(k, "%v", err)
		}
		st.Value = v
		st.UpdatedBy = adminID
		st.UpdatedAt = s.now()
		pending = append(pending, st)
	}
	for _, st := range pending {
		if err := s.repo.Put(ctx, st); err != nil {
			return nil, err
		}
	}
	if s.cache != nil {
		ck := make([]string, 0, len(keys))
		for _, k := range keys {
			ck = append(ck, cacheKey(k))
		}
		if err := s.cache.Delete(ctx, ck...); err != nil {
			logger.Warnf("settings cache delete: %v", err)
		}
	}
	return keys, nil
}
