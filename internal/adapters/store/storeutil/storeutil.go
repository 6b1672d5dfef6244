// Package storeutil holds helpers shared by the quote store adapters.
package storeutil

import (
	"slices"
	"strings"

	"github.com/jsamuelsen/inspira/internal/domain"
)

// SortNewestFirst orders quotes by DateCreated descending, then ID descending.
func SortNewestFirst(quotes []domain.Quote) {
	slices.SortStableFunc(quotes, func(a, b domain.Quote) int {
		if c := b.DateCreated.Compare(a.DateCreated); c != 0 {
			return c
		}

		return strings.Compare(b.ID, a.ID)
	})
}
