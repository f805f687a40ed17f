package nntpthread

import (
	"strings"

	"github.com/nntpkit/go-nntp"
)

// Build inserts every row into a new tree.
func Build(rows []nntp.OverviewRow) *Node {
	root := NewRoot()
	for _, row := range rows {
		root.Insert(row)
	}
	return root
}

// BuildSubjectWindow builds a tree from the rows whose subject contains
// pattern, ignoring case. Matches are numbered from 1 in row order and
// only those numbered in (begin, end] are inserted, so callers can page
// through results. The total number of matches is returned as well.
func BuildSubjectWindow(rows []nntp.OverviewRow, pattern string, begin, end int) (*Node, int) {
	root := NewRoot()
	pattern = strings.ToLower(pattern)
	matched := 0
	for _, row := range rows {
		if row.Subject == "" || !strings.Contains(strings.ToLower(row.Subject), pattern) {
			continue
		}
		matched++
		if matched > begin && matched <= end {
			root.Insert(row)
		}
	}
	return root, matched
}

// BuildSubThread builds a tree from the article id and every row that
// lists id among its references.
func BuildSubThread(rows []nntp.OverviewRow, id string) *Node {
	root := NewRoot()
	for _, row := range rows {
		if row.GlobalID == id || (row.Reference != "" && strings.Contains(row.Reference, id)) {
			root.Insert(row)
		}
	}
	return root
}
