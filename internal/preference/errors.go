package preference

import "errors"

var (
	// ErrUnknownSetting is returned for keys that are not in the registry.
	ErrUnknownSetting = errors.New("unknown setting")
	// ErrRestricted is returned when a non-privileged caller writes a restricted setting.
	ErrRestricted = errors.New("setting is restricted to administrators")
	// ErrScope is returned when a setting is used outside the scopes it allows.
	ErrScope = errors.New("setting is not valid in this context")
	// ErrInvalidValue is returned when a value cannot be parsed for a setting.
	ErrInvalidValue = errors.New("invalid value")
	// ErrUnknownChannel is returned when writing a channel value for a channel that is not tracked.
	ErrUnknownChannel = errors.New("unknown channel")
	// ErrTypeMismatch is returned when a typed getter is used on a setting of another kind.
	ErrTypeMismatch = errors.New("setting has a different type")
)
