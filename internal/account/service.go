// Package account decides, per inbound event, whether a caller has granted
// control of their account. It keeps one user record per caller in the
// users table.
package account

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/kvstore/internal/store"
)

// Decision is the outcome of handling an event.
type Decision string

const (
	// DecisionGranted means the caller has already granted access.
	DecisionGranted Decision = "granted"
	// DecisionAccessRequested means access must still be requested.
	DecisionAccessRequested Decision = "access_requested"
)

// Result describes what HandleEvent did.
type Result struct {
	User     User
	Created  bool
	Decision Decision
}

// Service handles inbound events against a store.
type Service struct {
	store  store.Store
	schema *schema
	logger *slog.Logger
}

// NewService returns a Service backed by s. A nil logger uses slog.Default().
func NewService(s store.Store, logger *slog.Logger) (*Service, error) {
	if s == nil {
		return nil, fmt.Errorf("account: store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	sch, err := compileSchema()
	if err != nil {
		return nil, err
	}
	return &Service{store: s, schema: sch, logger: logger}, nil
}

// HandleEvent records message for userID and decides whether access is
// granted. An unknown caller gets a new user record (access not granted);
// a known caller has the message appended to their conversation. Both
// paths run in one transaction.
func (s *Service) HandleEvent(ctx context.Context, userID, message string) (Result, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Result{}, store.Validationf("user_id is required")
	}
	if strings.TrimSpace(message) == "" {
		return Result{}, store.Validationf("message is required")
	}
	msg := Message{Role: RoleUser, Content: message}

	res, err := store.InTx(ctx, s.store, func(ctx context.Context, tx store.Tx) (Result, error) {
		ok, err := tx.Exists(ctx, UsersTable, userID)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			user := User{ID: userID, Conversation: []Message{msg}, RealUsers: []string{}}
			if err := s.write(ctx, tx.Insert, user); err != nil {
				return Result{}, err
			}
			return Result{User: user, Created: true}, nil
		}

		rec, err := tx.Query(ctx, UsersTable, userID)
		if err != nil {
			return Result{}, err
		}
		user, err := fromRecord(rec)
		if err != nil {
			return Result{}, err
		}
		user.Conversation = append(user.Conversation, msg)
		if err := s.write(ctx, tx.Update, user); err != nil {
			return Result{}, err
		}
		return Result{User: user}, nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("handle event for %s: %w", userID, err)
	}

	res.Decision = DecisionAccessRequested
	if res.User.UserAccess {
		res.Decision = DecisionGranted
	}
	s.logger.Info("event handled",
		"user_id", userID,
		"created", res.Created,
		"decision", string(res.Decision),
		"messages", len(res.User.Conversation),
	)
	return res, nil
}

// User returns the stored record for id.
func (s *Service) User(ctx context.Context, id string) (User, error) {
	rec, err := s.store.Query(ctx, UsersTable, id)
	if err != nil {
		return User{}, err
	}
	return fromRecord(rec)
}

type writeFunc func(ctx context.Context, table string, rec store.Record) error

func (s *Service) write(ctx context.Context, fn writeFunc, u User) error {
	rec, err := toRecord(u)
	if err != nil {
		return err
	}
	if err := s.schema.validate(rec); err != nil {
		return err
	}
	return fn(ctx, UsersTable, rec)
}
