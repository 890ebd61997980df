package team

import (
	"fmt"
	"strings"
	"time"
)

// keyLeaf is the fixed final segment of every cache key.
const keyLeaf = "full-data"

// BuildKey derives the object key for an account's current-month entry:
//
//	{prefix}/{accountId}/{year}-{month}/full-data
func BuildKey(prefix, accountID string, t time.Time) (string, error) {
	if err := validateSegment("account id", accountID); err != nil {
		return "", err
	}
	prefix = strings.Trim(prefix, "/")
	month := fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
	if prefix == "" {
		return fmt.Sprintf("%s/%s/%s", accountID, month, keyLeaf), nil
	}
	return fmt.Sprintf("%s/%s/%s/%s", prefix, accountID, month, keyLeaf), nil
}

// KeyMonth extracts the calendar month encoded in a cache key. Returns false
// for keys that do not follow the scheme.
func KeyMonth(key string) (time.Time, bool) {
	segments := strings.Split(strings.Trim(key, "/"), "/")
	if len(segments) < 3 || segments[len(segments)-1] != keyLeaf {
		return time.Time{}, false
	}
	month, err := time.Parse("2006-01", segments[len(segments)-2])
	if err != nil {
		return time.Time{}, false
	}
	return month, true
}

func validateSegment(what, s string) error {
	if s == "" {
		return NewCacheError(KindInvalidKey, "build-key", "",
			fmt.Errorf("%s must not be empty", what))
	}
	if strings.ContainsAny(s, "/ \t\n") {
		return NewCacheError(KindInvalidKey, "build-key", s,
			fmt.Errorf("%s must not contain separators or whitespace", what))
	}
	return nil
}
