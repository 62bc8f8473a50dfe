// Package auth implements the login authentication hand-off of spec
// §4.8 step 1: (user_table, cluster, login, properties, addr) -> bool
// | error, generalized from the teacher's internal/auth.Store, which
// queried a *sql.DB directly against a single users table, to
// authenticate against the Metadata Cache's in-memory User index that
// cmd/mqttd populates at startup from the persisted users table and the
// configured system user.
package auth

import (
	"net"

	"github.com/robustmq-go/mqttd/internal/broker"
	"github.com/robustmq-go/mqttd/internal/mqtt"
	h "github.com/robustmq-go/mqttd/pkg/hash"
)

// Users is the narrow slice of MetadataCache this collaborator needs,
// letting handler tests substitute a fake without standing up a full
// cache.
type Users interface {
	GetUser(username string) (broker.User, bool)
}

// Store authenticates CONNECT logins, the way the teacher's
// auth.Store wrapped a *sql.DB lookup plus a bcrypt compare.
type Store struct {
	users Users
}

func New(users Users) *Store {
	return &Store{users: users}
}

// Authenticate implements spec §4.8 step 1's bool|error contract: an
// unknown username or a password mismatch both return (false, nil),
// mapped by the caller to CONNACK NotAuthorized; only an unexpected
// collaborator failure returns a non-nil error, mapped to
// ServiceUnavailable. properties and addr are accepted for the
// contract's sake (credential extensions, audit logging) but unused
// by this password-only implementation.
func (s *Store) Authenticate(login *mqtt.Login, _ *mqtt.Properties, _ net.Addr) (bool, error) {
	if login == nil {
		return false, nil
	}

	user, ok := s.users.GetUser(login.Username)
	if !ok {
		return false, nil
	}

	return h.VerifyPasswd(user.PasswordSum, login.Password), nil
}
