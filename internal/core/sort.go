package core

import (
	"sort"
	"strings"
)

// sortAuthors orders authors by last name then first name, ignoring case, with
// id as the final tie-break.
func sortAuthors(authors []Author) {
	sort.SliceStable(authors, func(i, j int) bool {
		a, b := authors[i], authors[j]
		if c := strings.Compare(strings.ToLower(a.LastName), strings.ToLower(b.LastName)); c != 0 {
			return c < 0
		}
		if c := strings.Compare(strings.ToLower(a.FirstName), strings.ToLower(b.FirstName)); c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})
}

// sortTransactionsByLendDate orders transactions newest lend date first.
func sortTransactionsByLendDate(txs []Transaction) []Transaction {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].LendDate.After(txs[j].LendDate)
	})
	return txs
}

// sortMessagesNewestFirst orders messages by timestamp descending. Messages
// sharing a timestamp keep their id order reversed so the listing is stable.
func sortMessagesNewestFirst(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		a, b := msgs[i], msgs[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		return a.ID.String() > b.ID.String()
	})
}
