package storage

import (
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/temperature-relay/internal/domain"
)

// ParseDate converts a query date to epoch seconds. It accepts epoch
// seconds, RFC 3339 timestamps, and YYYY-MM-DD (midnight UTC).
func ParseDate(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Unix(), nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.Unix(), nil
	}
	return 0, domain.Errorf(domain.KindSchema, "invalid date %q: want RFC 3339, YYYY-MM-DD or epoch seconds", s)
}

func optionalDate(q url.Values, key string) (*int64, error) {
	s := q.Get(key)
	if s == "" {
		return nil, nil
	}
	v, err := ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func requiredDate(q url.Values, key string) (int64, error) {
	s := q.Get(key)
	if s == "" {
		return 0, domain.Errorf(domain.KindSchema, "%s is required", key)
	}
	return ParseDate(s)
}

func intParam(q url.Values, key string, def int) (int, error) {
	s := q.Get(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, domain.Errorf(domain.KindSchema, "%s must be an integer", key)
	}
	return n, nil
}
