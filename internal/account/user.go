package account

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/roach88/kvstore/internal/store"
)

// UsersTable is the table user records live in.
const UsersTable = "users"

// Conversation roles.
const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// Message is one conversation entry.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// User is the record kept for each caller.
type User struct {
	ID           string    `json:"id"`
	Conversation []Message `json:"conversation"`
	// RealUsers holds the user ids confirmed for this account.
	RealUsers []string `json:"real_users"`
	// UserAccess is set once the caller has granted control of the account.
	UserAccess bool `json:"user_access"`
}

//go:embed user.cue
var userSchema string

// schema validates user records against #User.
// cue values are not safe for concurrent use, hence the mutex.
type schema struct {
	mu   sync.Mutex
	ctx  *cue.Context
	user cue.Value
}

func compileSchema() (*schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(userSchema, cue.Filename("user.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile user schema: %w", err)
	}
	def := v.LookupPath(cue.ParsePath("#User"))
	if err := def.Err(); err != nil {
		return nil, fmt.Errorf("lookup #User: %w", err)
	}
	return &schema{ctx: ctx, user: def}, nil
}

func (s *schema) validate(rec store.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.ctx.Encode(map[string]any(rec))
	if err := v.Err(); err != nil {
		return store.Validationf("user record: %v", err)
	}
	if err := s.user.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return store.Validationf("user record: %s", cueerrors.Details(err, nil))
	}
	return nil
}

// toRecord converts u to a store record. Nil slices become empty lists so
// the stored shape is stable.
func toRecord(u User) (store.Record, error) {
	if u.Conversation == nil {
		u.Conversation = []Message{}
	}
	if u.RealUsers == nil {
		u.RealUsers = []string{}
	}
	data, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("encode user %s: %w", u.ID, err)
	}
	obj, err := store.DecodeObject(data)
	if err != nil {
		return nil, fmt.Errorf("encode user %s: %w", u.ID, err)
	}
	return store.Record(obj), nil
}

func fromRecord(rec store.Record) (User, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return User{}, fmt.Errorf("decode user %s: %w", rec.ID(), err)
	}
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return User{}, fmt.Errorf("decode user %s: %w", rec.ID(), err)
	}
	return u, nil
}
