// Package pagination fetches complete result sets from skip/limit paginated
// JumpCloud endpoints, and batches of single entities by id.
//
// JumpCloud signals the size of a result set either in the response body
// (legacy endpoints: {"totalCount": N, "results": [...]}) or in the
// x-total-count header (v2 endpoints, bare JSON array). Which one applies is
// configured per Endpoint, never guessed from the response.
//
// Example usage:
//
//	fetcher := pagination.NewFetcher(apiClient, pagination.DefaultConfig())
//	users, err := pagination.ListAll[jumpcloud.User](ctx, fetcher, jumpcloud.UsersEndpoint, filters, 100)
//
// ListAll:
//   - Fetches the first window (skip=0) to learn the total
//   - Returns at once when the first window already holds everything
//   - Otherwise requests every remaining window concurrently
//   - Merges pages in completion order, so callers must not rely on order
//   - Fails the whole fetch on the first page error, cancelling the rest
//
// GetMany issues one GET per id concurrently with the same fail-fast rule.
// Both report to the progress reporter carried by the context.
package pagination
