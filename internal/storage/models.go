package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrIncompleteCriteria is returned when a job filter omits a mandatory
// field. Company name and job title mirror the required-keys schema and
// must always be present in a query.
var ErrIncompleteCriteria = errors.New("criteria must include corporate and job title")

// Job is one scraped job listing.
type Job struct {
	ID           string
	Location     string
	JobTitle     string
	Level        string
	Corporate    string
	Requirements []string // stored serialized as a JSON array
}

// Criteria filters the job catalog. Corporate matches case-insensitively
// and exactly; JobTitle and Location match as case-insensitive substrings;
// Level matches case-insensitively and exactly. A record matches
// Requirements only if every requested string appears in its requirement
// list verbatim. Empty optional fields are not filtered on.
type Criteria struct {
	Corporate    string
	JobTitle     string
	Level        string
	Location     string
	Requirements []string
}

// Message is one entry of the append-only chat log. Sender and Receiver
// are identities; either may be empty but not both.
type Message struct {
	ID            int64
	Sender        string
	Receiver      string
	Text          string
	IsUserMessage bool
	CreatedAt     time.Time
}

// User is a registered account.
type User struct {
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// UserProfile is the persisted per-user search profile, used to seed a new
// session and to answer recommendation requests without a conversation.
type UserProfile struct {
	Username     string
	Location     string
	JobTitle     string
	Level        string
	Corporate    string
	Requirements string
}
