package core

import (
	"context"
	"strings"

	"bookclub/pkg/domain"

	"github.com/google/uuid"
)

// PostMessage appends text to the thread of a transaction. Blank text is a
// no-op and returns a nil message. The destination is the other party.
func (s *Service) PostMessage(ctx context.Context, transactionID uuid.UUID, authorID int64, text string) (*Message, Result, error) {
	var out *Message
	res, err := s.run(ctx, opPostMessage, authorID, func(tx domain.Tx) (string, error) {
		t, ok := tx.FindTransaction(transactionID)
		if !ok {
			return "", transactionNotFound(transactionID)
		}
		msg, err := s.postInTx(tx, t, authorID, text)
		if err != nil || msg == nil {
			return "", err
		}
		out = msg
		return msg.ID.String(), nil
	})
	return out, res, err
}

// postInTx writes a message inside an open store transaction.
func (s *Service) postInTx(tx domain.Tx, t Transaction, authorID int64, text string) (*Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if !t.Party(authorID) {
		return nil, ErrForbidden{Operation: opPostMessage, ActorID: authorID, Reason: "only transaction parties may post"}
	}
	id := t.ID
	created, err := tx.CreateMessage(Message{
		AuthorID:      authorID,
		DestinationID: t.Counterparty(authorID),
		TransactionID: &id,
		Text:          text,
		Read:          false,
		Timestamp:     s.now(),
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// ListMessages returns the thread of a transaction, newest first. The read
// flag is returned as stored.
func (s *Service) ListMessages(ctx context.Context, transactionID uuid.UUID) ([]Message, error) {
	var out []Message
	err := s.read(ctx, "list_messages", func(view domain.TxView) error {
		if _, ok := view.FindTransaction(transactionID); !ok {
			return transactionNotFound(transactionID)
		}
		out = messagesFor(view, transactionID)
		return nil
	})
	return out, err
}

func messagesFor(view domain.TxView, transactionID uuid.UUID) []Message {
	var out []Message
	for _, m := range view.ListMessages() {
		if m.TransactionID != nil && *m.TransactionID == transactionID {
			out = append(out, m)
		}
	}
	sortMessagesNewestFirst(out)
	return out
}
