package preference

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

// Codec converts a setting between user input, its Go value, and its stored form.
type Codec interface {
	// Parse turns user input into a value. Current is the value in effect
	// before the change, which set codecs use for relative updates.
	Parse(current any, input string) (any, error)
	// Format renders a value for display.
	Format(value any) string
	// Serialize encodes a value for storage.
	Serialize(value any) (string, error)
	// Deserialize decodes a stored value.
	Deserialize(raw string) (any, error)
}

// StringCodec handles plain string settings.
type StringCodec struct{}

func (StringCodec) Parse(_ any, input string) (any, error) {
	return input, nil
}

func (StringCodec) Format(value any) string {
	s, _ := value.(string)
	if s == "" {
		return "(unset)"
	}
	return s
}

func (StringCodec) Serialize(value any) (string, error) {
	return marshal(value)
}

func (StringCodec) Deserialize(raw string) (any, error) {
	var s string
	if err := sonic.UnmarshalString(raw, &s); err != nil {
		return nil, err
	}
	return s, nil
}

// IntCodec handles integer settings stored as int64.
// A zero Max leaves the value unbounded.
type IntCodec struct {
	Min int64
	Max int64
}

func (c IntCodec) Parse(_ any, input string) (any, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(input), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%q is not a whole number", input)
	}
	if c.Max != 0 && (n < c.Min || n > c.Max) {
		return nil, fmt.Errorf("%d is out of range (%d to %d)", n, c.Min, c.Max)
	}
	return n, nil
}

func (IntCodec) Format(value any) string {
	n, _ := value.(int64)
	return strconv.FormatInt(n, 10)
}

func (IntCodec) Serialize(value any) (string, error) {
	return marshal(value)
}

func (IntCodec) Deserialize(raw string) (any, error) {
	var n int64
	if err := sonic.UnmarshalString(raw, &n); err != nil {
		return nil, err
	}
	return n, nil
}

// FloatCodec handles floating point settings stored as float64.
type FloatCodec struct{}

func (FloatCodec) Parse(_ any, input string) (any, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
	if err != nil {
		return nil, fmt.Errorf("%q is not a number", input)
	}
	return f, nil
}

func (FloatCodec) Format(value any) string {
	f, _ := value.(float64)
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func (FloatCodec) Serialize(value any) (string, error) {
	return marshal(value)
}

func (FloatCodec) Deserialize(raw string) (any, error) {
	var f float64
	if err := sonic.UnmarshalString(raw, &f); err != nil {
		return nil, err
	}
	return f, nil
}

// BoolCodec handles on/off settings.
type BoolCodec struct{}

func (BoolCodec) Parse(_ any, input string) (any, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "on", "yes", "1", "true":
		return true, nil
	case "off", "no", "0", "false":
		return false, nil
	default:
		return nil, fmt.Errorf("%q is not 'on' or 'off'", input)
	}
}

func (BoolCodec) Format(value any) string {
	if b, _ := value.(bool); b {
		return "on"
	}
	return "off"
}

func (BoolCodec) Serialize(value any) (string, error) {
	return marshal(value)
}

func (BoolCodec) Deserialize(raw string) (any, error) {
	var b bool
	if err := sonic.UnmarshalString(raw, &b); err != nil {
		return nil, err
	}
	return b, nil
}

// SetCodec handles comma separated set settings. Input may start with
// "+" to add items, "-" to remove items, or "=" to replace the set;
// input without an operator replaces the set.
type SetCodec struct{}

func (SetCodec) Parse(current any, input string) (any, error) {
	base, _ := current.(Set)
	next := base.Clone()

	op := byte('=')
	if input != "" && strings.ContainsRune("+-=", rune(input[0])) {
		op = input[0]
		input = input[1:]
	}

	items := splitItems(input)
	switch op {
	case '+':
		for _, item := range items {
			next[item] = struct{}{}
		}
	case '-':
		for _, item := range items {
			delete(next, item)
		}
	default:
		next = NewSet(items...)
	}

	return next, nil
}

func (SetCodec) Format(value any) string {
	s, _ := value.(Set)
	if len(s) == 0 {
		return "(empty)"
	}
	return s.String()
}

// Serialize writes the set as a sorted JSON list.
func (SetCodec) Serialize(value any) (string, error) {
	s, _ := value.(Set)
	return marshal(s.Sorted())
}

func (SetCodec) Deserialize(raw string) (any, error) {
	var items []string
	if err := sonic.UnmarshalString(raw, &items); err != nil {
		return nil, err
	}
	return NewSet(items...), nil
}

// EnumSetCodec is a SetCodec whose items must come from a fixed list of options.
type EnumSetCodec struct {
	SetCodec

	Options Set
}

// Parse applies the set update and rejects the result if it contains unknown
// items, naming the first one in sorted order.
func (c EnumSetCodec) Parse(current any, input string) (any, error) {
	parsed, err := c.SetCodec.Parse(current, input)
	if err != nil {
		return nil, err
	}

	for _, item := range parsed.(Set).Sorted() {
		if !c.Options.Has(item) {
			return nil, fmt.Errorf("unknown value '%s' (options: %s)", item, c.Options)
		}
	}

	return parsed, nil
}

func splitItems(input string) []string {
	parts := strings.Split(input, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}

func marshal(value any) (string, error) {
	raw, err := sonic.MarshalString(value)
	if err != nil {
		return "", fmt.Errorf("failed to encode value: %w", err)
	}
	return raw, nil
}
