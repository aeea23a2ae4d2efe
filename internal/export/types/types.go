package types

import "time"

// ExportRecord is a flattened entry as written to every export format.
type ExportRecord struct {
	ID        int64      `json:"id"`
	Channel   string     `json:"channel"`
	Mode      string     `json:"mode"`
	Mask      string     `json:"mask"`
	Setter    string     `json:"setter"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	RemovedAt *time.Time `json:"removedAt,omitempty"`
	Remover   string     `json:"remover,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	Comments  int        `json:"comments"`
}

// Active reports whether the entry was still set at export time.
func (r *ExportRecord) Active() bool {
	return r.RemovedAt == nil
}

// FormatTime renders an optional timestamp as RFC 3339, or empty when unset.
func FormatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
