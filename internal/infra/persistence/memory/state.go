package memory

import (
	"sort"

	"github.com/google/uuid"
)

type sequences struct {
	Users         int64 `json:"users"`
	Genres        int64 `json:"genres"`
	Authors       int64 `json:"authors"`
	AbstractBooks int64 `json:"abstract_books"`
}

type memoryState struct {
	users         map[int64]User
	genres        map[int64]Genre
	authors       map[int64]Author
	abstractBooks map[int64]AbstractBook
	actualBooks   map[uuid.UUID]ActualBook
	transactions  map[uuid.UUID]Transaction
	messages      map[uuid.UUID]Message
	seq           sequences
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Users         map[int64]User            `json:"users"`
	Genres        map[int64]Genre           `json:"genres"`
	Authors       map[int64]Author          `json:"authors"`
	AbstractBooks map[int64]AbstractBook    `json:"abstract_books"`
	ActualBooks   map[uuid.UUID]ActualBook  `json:"actual_books"`
	Transactions  map[uuid.UUID]Transaction `json:"transactions"`
	Messages      map[uuid.UUID]Message     `json:"messages"`
	Sequences     sequences                 `json:"sequences"`
}

func newMemoryState() memoryState {
	return memoryState{
		users:         make(map[int64]User),
		genres:        make(map[int64]Genre),
		authors:       make(map[int64]Author),
		abstractBooks: make(map[int64]AbstractBook),
		actualBooks:   make(map[uuid.UUID]ActualBook),
		transactions:  make(map[uuid.UUID]Transaction),
		messages:      make(map[uuid.UUID]Message),
	}
}

func (s memoryState) clone() memoryState {
	out := memoryState{
		users:         make(map[int64]User, len(s.users)),
		genres:        make(map[int64]Genre, len(s.genres)),
		authors:       make(map[int64]Author, len(s.authors)),
		abstractBooks: make(map[int64]AbstractBook, len(s.abstractBooks)),
		actualBooks:   make(map[uuid.UUID]ActualBook, len(s.actualBooks)),
		transactions:  make(map[uuid.UUID]Transaction, len(s.transactions)),
		messages:      make(map[uuid.UUID]Message, len(s.messages)),
		seq:           s.seq,
	}
	for k, v := range s.users {
		out.users[k] = v
	}
	for k, v := range s.genres {
		out.genres[k] = v
	}
	for k, v := range s.authors {
		out.authors[k] = v
	}
	for k, v := range s.abstractBooks {
		out.abstractBooks[k] = cloneAbstractBook(v)
	}
	for k, v := range s.actualBooks {
		out.actualBooks[k] = v
	}
	for k, v := range s.transactions {
		out.transactions[k] = v
	}
	for k, v := range s.messages {
		out.messages[k] = cloneMessage(v)
	}
	return out
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	c := state.clone()
	return Snapshot{
		Users:         c.users,
		Genres:        c.genres,
		Authors:       c.authors,
		AbstractBooks: c.abstractBooks,
		ActualBooks:   c.actualBooks,
		Transactions:  c.transactions,
		Messages:      c.messages,
		Sequences:     c.seq,
	}
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := memoryState{
		users:         s.Users,
		genres:        s.Genres,
		authors:       s.Authors,
		abstractBooks: s.AbstractBooks,
		actualBooks:   s.ActualBooks,
		transactions:  s.Transactions,
		messages:      s.Messages,
		seq:           s.Sequences,
	}
	return state.clone()
}

// migrateSnapshot initialises missing buckets, drops rows whose parents are
// gone, and advances sequences past the highest stored identifier.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Users == nil {
		snapshot.Users = map[int64]User{}
	}
	if snapshot.Genres == nil {
		snapshot.Genres = map[int64]Genre{}
	}
	if snapshot.Authors == nil {
		snapshot.Authors = map[int64]Author{}
	}
	if snapshot.AbstractBooks == nil {
		snapshot.AbstractBooks = map[int64]AbstractBook{}
	}
	if snapshot.ActualBooks == nil {
		snapshot.ActualBooks = map[uuid.UUID]ActualBook{}
	}
	if snapshot.Transactions == nil {
		snapshot.Transactions = map[uuid.UUID]Transaction{}
	}
	if snapshot.Messages == nil {
		snapshot.Messages = map[uuid.UUID]Message{}
	}

	for id, book := range snapshot.ActualBooks {
		if _, ok := snapshot.AbstractBooks[book.AbstractBookID]; !ok {
			delete(snapshot.ActualBooks, id)
		}
	}
	for id, tx := range snapshot.Transactions {
		if _, ok := snapshot.ActualBooks[tx.BookID]; !ok {
			delete(snapshot.Transactions, id)
		}
	}
	for id, msg := range snapshot.Messages {
		if msg.TransactionID == nil {
			continue
		}
		if _, ok := snapshot.Transactions[*msg.TransactionID]; !ok {
			msg.TransactionID = nil
			snapshot.Messages[id] = msg
		}
	}

	snapshot.Sequences.Users = max(snapshot.Sequences.Users, maxKey(snapshot.Users))
	snapshot.Sequences.Genres = max(snapshot.Sequences.Genres, maxKey(snapshot.Genres))
	snapshot.Sequences.Authors = max(snapshot.Sequences.Authors, maxKey(snapshot.Authors))
	snapshot.Sequences.AbstractBooks = max(snapshot.Sequences.AbstractBooks, maxKey(snapshot.AbstractBooks))
	return snapshot
}

func maxKey[V any](m map[int64]V) int64 {
	var highest int64
	for k := range m {
		if k > highest {
			highest = k
		}
	}
	return highest
}

func cloneAbstractBook(b AbstractBook) AbstractBook {
	if b.AuthorIDs != nil {
		b.AuthorIDs = append([]int64(nil), b.AuthorIDs...)
	}
	if b.GenreIDs != nil {
		b.GenreIDs = append([]int64(nil), b.GenreIDs...)
	}
	return b
}

func cloneMessage(m Message) Message {
	if m.TransactionID != nil {
		id := *m.TransactionID
		m.TransactionID = &id
	}
	return m
}

func dedupeIDs(values []int64) []int64 {
	if len(values) == 0 {
		return values
	}
	seen := make(map[int64]struct{}, len(values))
	out := make([]int64, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func sortedByID[V any](m map[int64]V, clone func(V) V) []V {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	out := make([]V, 0, len(keys))
	for _, k := range keys {
		out = append(out, clone(m[k]))
	}
	return out
}

func identity[V any](v V) V { return v }
