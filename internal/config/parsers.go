// Package config loads batchfire settings from flags and an optional
// JSON or YAML file, flags taking precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// lookupSetting returns the first of candidates present in settings.
// Viper lowercases file keys, so candidates are matched lowercased too.
func lookupSetting(settings map[string]interface{}, candidates ...string) (interface{}, bool) {
	for _, key := range candidates {
		if val, ok := settings[key]; ok {
			return val, true
		}
		if val, ok := settings[strings.ToLower(key)]; ok {
			return val, true
		}
	}
	return nil, false
}

// asDuration accepts Go duration strings ("1.5s") and bare numbers, which
// are milliseconds like the -ms flag.
func asDuration(value interface{}) (time.Duration, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case time.Duration:
		return v, nil
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return 0, nil
		}
		if ms, err := cast.ToInt64E(v); err == nil {
			return time.Duration(ms) * time.Millisecond, nil
		}
		return time.ParseDuration(v)
	}
	ms, err := cast.ToFloat64E(value)
	if err != nil {
		return 0, fmt.Errorf("unsupported duration type %T", value)
	}
	return time.Duration(ms * float64(time.Millisecond)), nil
}

// asStringSlice keeps a lone string whole; cast would split it on spaces,
// which breaks threshold expressions such as "requests:count > 10".
func asStringSlice(value interface{}) ([]string, error) {
	if s, ok := value.(string); ok {
		return []string{s}, nil
	}
	return cast.ToStringSliceE(value)
}

// asSection decodes a nested table and lowercases its keys.
func asSection(value interface{}) (map[string]interface{}, error) {
	raw, err := cast.ToStringMapE(value)
	if err != nil {
		return nil, err
	}
	section := make(map[string]interface{}, len(raw))
	for key, val := range raw {
		section[strings.ToLower(strings.TrimSpace(key))] = val
	}
	return section, nil
}
