package domain

import (
	"net/url"
	"strings"
)

// CacheFeature scopes cache entries written by the contraction tracker.
const CacheFeature = "contraction_session"

// CacheKey identifies one user's unsaved session in a local cache.
type CacheKey struct {
	Feature string
	UserID  string
}

func NewCacheKey(userID string) CacheKey {
	return CacheKey{Feature: CacheFeature, UserID: userID}
}

func (k CacheKey) Valid() bool {
	return strings.TrimSpace(k.Feature) != "" && strings.TrimSpace(k.UserID) != ""
}

// String encodes the key; components are escaped so distinct keys never collide.
func (k CacheKey) String() string {
	return "storkwatch/" + url.PathEscape(k.Feature) + "/" + url.PathEscape(k.UserID)
}
