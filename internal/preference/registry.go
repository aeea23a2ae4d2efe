package preference

import "slices"

// Registry is an immutable lookup table of settings.
type Registry struct {
	settings map[string]*Setting
	keys     []string
}

// NewRegistry builds a registry from the given settings.
func NewRegistry(settings ...*Setting) *Registry {
	r := &Registry{
		settings: make(map[string]*Setting, len(settings)),
		keys:     make([]string, 0, len(settings)),
	}

	for _, setting := range settings {
		r.settings[setting.Key] = setting
		r.keys = append(r.keys, setting.Key)
	}
	slices.Sort(r.keys)

	return r
}

// DefaultRegistry returns the settings used by the bot.
func DefaultRegistry() *Registry {
	return NewRegistry(
		&Setting{
			Key:         KeyReportChannel,
			Description: "Channel that receives moderation reports",
			Default:     "",
			Scope:       ScopeGlobal,
			Restricted:  true,
			Codec:       StringCodec{},
		},
		&Setting{
			Key:         KeyAutoExpire,
			Description: "Seconds after which new entries expire, 0 to disable",
			Default:     int64(0),
			Scope:       ScopeChannel,
			Codec:       IntCodec{Min: 0, Max: MaxAutoExpire},
		},
		&Setting{
			Key:         KeyReportOn,
			Description: "Entry events reported for the channel (new, exp, rem)",
			Default:     NewSet(),
			Scope:       ScopeChannel,
			Codec: EnumSetCodec{
				Options: NewSet(ReportNew, ReportExpired, ReportRemoved),
			},
		},
		&Setting{
			Key:         KeyRequestComment,
			Description: "Ask setters to comment on new entries",
			Default:     true,
			Scope:       ScopeGlobal | ScopeChannel,
			Codec:       BoolCodec{},
		},
		&Setting{
			Key:         KeyOpTimeout,
			Description: "Seconds to wait for services to grant operator status",
			Default:     2.0,
			Scope:       ScopeGlobal,
			Restricted:  true,
			Codec:       FloatCodec{},
		},
	)
}

// Lookup returns the setting for a key.
func (r *Registry) Lookup(key string) (*Setting, bool) {
	setting, ok := r.settings[key]
	return setting, ok
}

// Keys returns every key in sorted order.
func (r *Registry) Keys() []string {
	return slices.Clone(r.keys)
}
