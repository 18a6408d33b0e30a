package enumerator

import "context"

// Enumerator discovers the pages of a target.
type Enumerator interface {
	Enumerate(ctx context.Context, target string) ([]string, error)
}

// PageCallback is invoked for every page as it is marked visited.
type PageCallback func(url string, depth int)
