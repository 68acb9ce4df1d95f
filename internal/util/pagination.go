package util

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/radiant_bloom/pkg/apperr"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

// ParseBool returns nil when s is not a boolean, so the filter is skipped.
func ParseBool(s string) *bool {
	if s == "" {
		return nil
	}
	b, err := strconv.ParseBool(strings.ToLower(s))
	if err != nil {
		return nil
	}
	return &b
}

// Calculate clamps page and size and returns the row offset.
func Calculate(page, size int) (p, limit, offset int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size, (page - 1) * size
}

// ParseID treats a malformed id like an unknown one.
func ParseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, apperr.ErrResourceNotFound.Wrap(err)
	}
	return id, nil
}
