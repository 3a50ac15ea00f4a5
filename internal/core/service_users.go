package core

import (
	"context"
	"strconv"
	"strings"

	"bookclub/pkg/domain"
)

// RegisterUser creates a member. An empty location defaults to the town
// center area.
func (s *Service) RegisterUser(ctx context.Context, username string, location domain.Location) (User, Result, error) {
	username = strings.TrimSpace(username)
	if location == "" {
		location = domain.DefaultLocation
	}
	var created User
	res, err := s.run(ctx, opRegisterUser, 0, func(tx domain.Tx) (string, error) {
		if username == "" {
			return "", precondition("username is required")
		}
		if !location.Valid() {
			return "", precondition("unknown location " + string(location))
		}
		for _, u := range tx.ListUsers() {
			if strings.EqualFold(u.Username, username) {
				return "", precondition("username " + username + " is taken")
			}
		}
		var err error
		created, err = tx.CreateUser(User{Username: username, Location: location})
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(created.ID, 10), nil
	})
	return created, res, err
}

// GetUser returns the member with id.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	var out User
	err := s.read(ctx, "get_user", func(view domain.TxView) error {
		u, ok := view.FindUser(id)
		if !ok {
			return ErrNotFound{Entity: EntityUser, ID: strconv.FormatInt(id, 10)}
		}
		out = u
		return nil
	})
	return out, err
}

// FindUserByName looks a member up by username, ignoring case.
func (s *Service) FindUserByName(ctx context.Context, username string) (User, error) {
	var out User
	err := s.read(ctx, "find_user", func(view domain.TxView) error {
		for _, u := range view.ListUsers() {
			if strings.EqualFold(u.Username, strings.TrimSpace(username)) {
				out = u
				return nil
			}
		}
		return ErrNotFound{Entity: EntityUser, ID: username}
	})
	return out, err
}

// Profile is a member with their inventory and transaction history.
type Profile struct {
	User      User
	Inventory []ActualBook
	Lent      []Transaction
	Borrowed  []Transaction
}

// UserProfile assembles the profile of member id. Inventory is newest first;
// transactions are ordered by lend date, newest first.
func (s *Service) UserProfile(ctx context.Context, id int64) (Profile, error) {
	var out Profile
	err := s.read(ctx, "user_profile", func(view domain.TxView) error {
		u, ok := view.FindUser(id)
		if !ok {
			return ErrNotFound{Entity: EntityUser, ID: strconv.FormatInt(id, 10)}
		}
		out.User = u
		for _, b := range view.ListActualBooks() {
			if b.OwnerID == id {
				out.Inventory = append(out.Inventory, b)
			}
		}
		reverse(out.Inventory)
		for _, t := range sortTransactionsByLendDate(view.ListTransactions()) {
			switch id {
			case t.LenderID:
				out.Lent = append(out.Lent, t)
			case t.BorrowerID:
				out.Borrowed = append(out.Borrowed, t)
			}
		}
		return nil
	})
	return out, err
}

func reverse[T any](items []T) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}
