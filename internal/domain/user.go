package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hilthontt/watchparty/internal/infrastructure/validate"
)

// MaxUsernameLength is measured in runes after trimming.
const MaxUsernameLength = 20

var validateUsername = validate.Compose(
	validate.Required(),
	validate.MaxLength(MaxUsernameLength),
	validate.Printable(),
)

type User struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	IsOnline bool      `json:"is_online"`
	JoinedAt time.Time `json:"joined_at"`
	LastSeen time.Time `json:"last_seen"`
}

// NewUser validates rawName and assigns a fresh identity. Duplicate names are
// allowed; the identity is what distinguishes participants.
func NewUser(rawName string, now time.Time) (*User, error) {
	name := strings.TrimSpace(rawName)
	if err := validateUsername(name); err != nil {
		return nil, newValidationError("username", err)
	}

	return &User{
		ID:       uuid.NewString(),
		Username: name,
		IsOnline: true,
		JoinedAt: now,
		LastSeen: now,
	}, nil
}
