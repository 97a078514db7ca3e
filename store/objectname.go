package store

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	objectPrefix = "test-result-"
	objectSuffix = ".json"
)

// SanitizeTestName replaces every character outside [A-Za-z0-9] with
// '-' so test names are safe in object names across all providers.
func SanitizeTestName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

// objectName derives the stored object name for a record:
// test-result-<unixMillis>-<sanitizedTestName>-<suffix>.json. The
// millisecond timestamp is the record's created_at, zero-padded so
// lexicographic name order matches time order. The short random suffix
// keeps concurrent same-millisecond writes of the same test name from
// overwriting each other.
func objectName(testName string, createdAt time.Time) string {
	suffix := make([]byte, 2)
	_, _ = rand.Read(suffix)
	return fmt.Sprintf("%s%013d-%s-%s%s",
		objectPrefix, createdAt.UnixMilli(), SanitizeTestName(testName), hex.EncodeToString(suffix), objectSuffix)
}

// isResultObject reports whether a base name looks like a stored
// record. Anything else in the container is ignored by scans.
func isResultObject(name string) bool {
	return strings.HasPrefix(name, objectPrefix) && strings.HasSuffix(name, objectSuffix)
}

// nameLowerBound is the smallest possible object name for records
// created at or after t. Usable as an exclusive lower key bound: it is
// a strict prefix of every real name with the same timestamp.
func nameLowerBound(t time.Time) string {
	return fmt.Sprintf("%s%013d", objectPrefix, t.UnixMilli())
}

// nameUpperBound is an exclusive upper key bound that still includes
// every record created at t.
func nameUpperBound(t time.Time) string {
	return fmt.Sprintf("%s%013d", objectPrefix, t.UnixMilli()+1)
}

// objectID derives a stable opaque id for providers that do not assign
// object ids natively. Deriving it from the object name means repeated
// reads return the same id without extra state.
func objectID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("qadash://results/"+name)).String()
}

// sizeMB converts bytes to megabytes rounded to 2 decimal places.
func sizeMB(bytes int64) float64 {
	return math.Round(float64(bytes)/(1<<20)*100) / 100
}
