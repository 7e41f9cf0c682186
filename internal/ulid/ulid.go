// Package ulid wraps github.com/oklog/ulid/v2 with prefixed identifiers
// ("ana-01J...") and database/json integration. IDs sort by creation time,
// which keeps history listings cheap to order.
package ulid

import (
	"bytes"
	"crypto/rand"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Prefixes for the records CodeBoost stores
const (
	PrefixAnalysis     = "ana"
	PrefixSuggestion   = "sug"
	PrefixTestRun      = "trn"
	PrefixTestCase     = "tcs"
	PrefixBuildAttempt = "bld"
	PrefixRequest      = "req"

	// PrefixSeparator is used to separate the prefix from the ULID
	PrefixSeparator = "-"
)

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex

	// Nil is the zero ULID
	Nil = ULID{}
)

// ULID is a ulid.ULID with an optional prefix
type ULID struct {
	ulid.ULID
	prefix string
}

// Generate creates a new ULID with the current timestamp
func Generate() ULID {
	return NewWithTime(time.Now())
}

// GenerateWithPrefix creates a new ULID with the current timestamp and a prefix
func GenerateWithPrefix(prefix string) ULID {
	id := NewWithTime(time.Now())
	id.prefix = prefix
	return id
}

// NewWithTime creates a new ULID with a specific timestamp
func NewWithTime(t time.Time) ULID {
	entropyLock.Lock()
	defer entropyLock.Unlock()
	return ULID{ULID: ulid.MustNew(ulid.Timestamp(t), entropy)}
}

// Parse accepts both plain and prefixed ULIDs
func Parse(id string) (ULID, error) {
	prefix, raw, found := strings.Cut(id, PrefixSeparator)
	if !found {
		raw, prefix = id, ""
	}

	parsed, err := ulid.Parse(raw)
	if err != nil {
		return ULID{}, fmt.Errorf("invalid ulid %q: %w", id, err)
	}
	return ULID{ULID: parsed, prefix: prefix}, nil
}

// MustParse is like Parse but panics on error
func MustParse(s string) ULID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// Validate reports whether id is a valid ULID, optionally prefixed
func Validate(id string) bool {
	_, err := Parse(id)
	return err == nil
}

// HasPrefix reports whether id is a valid ULID carrying prefix
func HasPrefix(id, prefix string) bool {
	parsed, err := Parse(id)
	return err == nil && parsed.prefix == prefix
}

// Compare orders two ULIDs by their raw value, ignoring prefixes
func (u ULID) Compare(other ULID) int {
	return bytes.Compare(u.ULID[:], other.ULID[:])
}

// IsZero returns true for the zero value
func (u ULID) IsZero() bool {
	return u.ULID == ulid.ULID{}
}

// Prefix returns the prefix of the ULID
func (u ULID) Prefix() string {
	return u.prefix
}

// String renders "prefix-ULID" or just the ULID
func (u ULID) String() string {
	if u.prefix != "" {
		return u.prefix + PrefixSeparator + u.ULID.String()
	}
	return u.ULID.String()
}

// Time returns the timestamp component of the ULID
func (u ULID) Time() time.Time {
	return ulid.Time(u.ULID.Time())
}

func (u ULID) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

func (u *ULID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// Value stores ULIDs as strings
func (u ULID) Value() (driver.Value, error) {
	return u.String(), nil
}

// Scan reads ULIDs from strings or byte slices
func (u *ULID) Scan(src interface{}) error {
	var s string
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into ULID", src)
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// AnalysisID generates an ID for a suggest-fix analysis
func AnalysisID() string {
	return GenerateWithPrefix(PrefixAnalysis).String()
}

// SuggestionID generates an ID for a single parsed suggestion
func SuggestionID() string {
	return GenerateWithPrefix(PrefixSuggestion).String()
}

// TestRunID generates an ID for a test run
func TestRunID() string {
	return GenerateWithPrefix(PrefixTestRun).String()
}

// TestCaseID generates an ID for a generated test case
func TestCaseID() string {
	return GenerateWithPrefix(PrefixTestCase).String()
}

// BuildAttemptID generates an ID for one run-and-fix attempt
func BuildAttemptID() string {
	return GenerateWithPrefix(PrefixBuildAttempt).String()
}

// RequestID generates a new ULID with the request prefix
func RequestID() string {
	return GenerateWithPrefix(PrefixRequest).String()
}
