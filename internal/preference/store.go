package preference

import (
	"context"
	"fmt"
	"strconv"

	"github.com/robalyx/warden/internal/database"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Store resolves setting values from channel overrides, global overrides and defaults.
// Channel names passed to the store must already be casefolded.
type Store struct {
	registry *Registry
	db       database.Client
	cache    Cache
	group    singleflight.Group
	logger   *zap.Logger
}

// NewStore creates a Store. A nil cache disables caching.
func NewStore(registry *Registry, db database.Client, cache Cache, logger *zap.Logger) *Store {
	if cache == nil {
		cache = NopCache{}
	}

	return &Store{
		registry: registry,
		db:       db,
		cache:    cache,
		logger:   logger.Named("preference"),
	}
}

// Registry returns the settings known to the store.
func (s *Store) Registry() *Registry {
	return s.registry
}

// Get returns the effective value of a setting. An empty channel reads the
// global value and requires the setting to allow the global scope; otherwise
// the channel scope is required. Settings without an override return their default.
func (s *Store) Get(ctx context.Context, key, channel string) (any, error) {
	setting, err := s.lookup(key, channel)
	if err != nil {
		return nil, err
	}

	return s.resolve(ctx, setting, channel)
}

// GetPretty returns the effective value formatted for display.
func (s *Store) GetPretty(ctx context.Context, key, channel string) (string, error) {
	setting, err := s.lookup(key, channel)
	if err != nil {
		return "", err
	}

	value, err := s.resolve(ctx, setting, channel)
	if err != nil {
		return "", err
	}

	return setting.Codec.Format(value), nil
}

// Set parses input against the current value and stores the result.
func (s *Store) Set(ctx context.Context, key, input, channel string, privileged bool) error {
	setting, ok := s.registry.Lookup(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}
	if setting.Restricted && !privileged {
		return fmt.Errorf("%w: %s", ErrRestricted, key)
	}
	if err := checkScope(setting, channel); err != nil {
		return err
	}

	channelID, err := s.channelID(ctx, channel)
	if err != nil {
		return err
	}

	current, err := s.resolve(ctx, setting, channel)
	if err != nil {
		return err
	}

	value, err := setting.Codec.Parse(current, input)
	if err != nil {
		return fmt.Errorf("%w for %s: %w", ErrInvalidValue, key, err)
	}

	raw, err := setting.Codec.Serialize(value)
	if err != nil {
		return err
	}

	if channel == "" {
		err = s.db.Model().Setting().SaveBotSetting(ctx, key, raw)
	} else {
		err = s.db.Model().Setting().SaveChannelSetting(ctx, channelID, key, raw)
	}
	if err != nil {
		return err
	}

	s.invalidate(ctx, cacheKey(key, channelID))

	s.logger.Info("Setting updated",
		zap.String("key", key),
		zap.String("channel", channel),
		zap.String("value", raw))

	return nil
}

// Unset removes the override so the setting falls back to its default.
func (s *Store) Unset(ctx context.Context, key, channel string, privileged bool) error {
	setting, ok := s.registry.Lookup(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}
	if setting.Restricted && !privileged {
		return fmt.Errorf("%w: %s", ErrRestricted, key)
	}
	if err := checkScope(setting, channel); err != nil {
		return err
	}

	channelID, err := s.channelID(ctx, channel)
	if err != nil {
		return err
	}

	if channel == "" {
		err = s.db.Model().Setting().DeleteBotSetting(ctx, key)
	} else {
		err = s.db.Model().Setting().DeleteChannelSetting(ctx, channelID, key)
	}
	if err != nil {
		return err
	}

	s.invalidate(ctx, cacheKey(key, channelID))

	s.logger.Info("Setting unset", zap.String("key", key), zap.String("channel", channel))

	return nil
}

// String returns a string setting.
func (s *Store) String(ctx context.Context, key, channel string) (string, error) {
	return typed[string](ctx, s, key, channel)
}

// Int returns an integer setting.
func (s *Store) Int(ctx context.Context, key, channel string) (int64, error) {
	return typed[int64](ctx, s, key, channel)
}

// Float returns a floating point setting.
func (s *Store) Float(ctx context.Context, key, channel string) (float64, error) {
	return typed[float64](ctx, s, key, channel)
}

// Bool returns an on/off setting.
func (s *Store) Bool(ctx context.Context, key, channel string) (bool, error) {
	return typed[bool](ctx, s, key, channel)
}

// StringSet returns a set setting.
func (s *Store) StringSet(ctx context.Context, key, channel string) (Set, error) {
	return typed[Set](ctx, s, key, channel)
}

func typed[T any](ctx context.Context, s *Store, key, channel string) (T, error) {
	var zero T

	value, err := s.Get(ctx, key, channel)
	if err != nil {
		return zero, err
	}

	v, ok := value.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %T", ErrTypeMismatch, key, value)
	}

	return v, nil
}

func (s *Store) lookup(key, channel string) (*Setting, error) {
	setting, ok := s.registry.Lookup(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}
	if err := checkScope(setting, channel); err != nil {
		return nil, err
	}
	return setting, nil
}

// resolve returns the channel override, then the global override for settings
// valid in both scopes, then the default.
func (s *Store) resolve(ctx context.Context, setting *Setting, channel string) (any, error) {
	var channelID int64
	if channel != "" {
		record, err := s.db.Model().Channel().GetByName(ctx, channel)
		if err != nil {
			return nil, err
		}
		if record != nil {
			channelID = record.ID
		}
	}

	raw := noOverride
	if channelID != 0 {
		var err error
		if raw, err = s.load(ctx, setting.Key, channelID); err != nil {
			return nil, err
		}
	}

	inherits := channel == "" || setting.Scope.Has(ScopeGlobal)
	if raw == noOverride && inherits {
		var err error
		if raw, err = s.load(ctx, setting.Key, 0); err != nil {
			return nil, err
		}
	}

	if raw == noOverride {
		return defaultValue(setting), nil
	}

	value, err := setting.Codec.Deserialize(raw)
	if err != nil {
		s.logger.Warn("Stored setting could not be decoded, using default",
			zap.String("key", setting.Key),
			zap.Int64("channelID", channelID),
			zap.Error(err))
		return defaultValue(setting), nil
	}

	return value, nil
}

// load fetches the serialized override through the cache. Concurrent misses
// for the same key share one database read.
func (s *Store) load(ctx context.Context, key string, channelID int64) (string, error) {
	ck := cacheKey(key, channelID)

	if raw, found, err := s.cache.Get(ctx, ck); err != nil {
		s.logger.Warn("Setting cache read failed", zap.String("key", ck), zap.Error(err))
	} else if found {
		return raw, nil
	}

	result, err, _ := s.group.Do(ck, func() (any, error) {
		var raw string

		if channelID == 0 {
			record, err := s.db.Model().Setting().GetBotSetting(ctx, key)
			if err != nil {
				return nil, err
			}
			if record != nil {
				raw = record.Value
			}
		} else {
			record, err := s.db.Model().Setting().GetChannelSetting(ctx, channelID, key)
			if err != nil {
				return nil, err
			}
			if record != nil {
				raw = record.Value
			}
		}

		if err := s.cache.Set(ctx, ck, raw); err != nil {
			s.logger.Warn("Setting cache write failed", zap.String("key", ck), zap.Error(err))
		}

		return raw, nil
	})
	if err != nil {
		return "", err
	}

	return result.(string), nil
}

func (s *Store) channelID(ctx context.Context, channel string) (int64, error) {
	if channel == "" {
		return 0, nil
	}

	record, err := s.db.Model().Channel().GetByName(ctx, channel)
	if err != nil {
		return 0, err
	}
	if record == nil {
		return 0, fmt.Errorf("%w: %s", ErrUnknownChannel, channel)
	}

	return record.ID, nil
}

func (s *Store) invalidate(ctx context.Context, key string) {
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn("Setting cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
}

func checkScope(setting *Setting, channel string) error {
	if channel == "" && !setting.Scope.Has(ScopeGlobal) {
		return fmt.Errorf("%w: %s is not valid in the global context", ErrScope, setting.Key)
	}
	if channel != "" && !setting.Scope.Has(ScopeChannel) {
		return fmt.Errorf("%w: %s is not valid in the channel context", ErrScope, setting.Key)
	}
	return nil
}

func cacheKey(key string, channelID int64) string {
	if channelID == 0 {
		return "global:" + key
	}
	return "channel:" + strconv.FormatInt(channelID, 10) + ":" + key
}

// defaultValue returns the default, copying mutable defaults.
func defaultValue(setting *Setting) any {
	if set, ok := setting.Default.(Set); ok {
		return set.Clone()
	}
	return setting.Default
}
