package cache

import (
	"net/url"
	"sort"
	"strings"
)

// keyPrefix namespaces every cache key in Redis.
const keyPrefix = "jam:cache"

// Key identifies a cached response.
type Key struct {
	// Scope isolates tenants, normally the OAuth client id
	Scope string

	// Endpoint is the request path (e.g., "/systemusers/5f1b...")
	Endpoint string

	// Query are the request query parameters
	Query url.Values
}

// String generates a deterministic cache key string.
// Format: jam:cache:scope:endpoint:q1=a,b:q2=c
//
// Example:
//
//	jam:cache:my-client:systems/5f1b:fields=hostname
func (k Key) String() string {
	parts := []string{keyPrefix}

	if k.Scope != "" {
		parts = append(parts, k.Scope)
	}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	if len(k.Query) > 0 {
		names := make([]string, 0, len(k.Query))
		for name := range k.Query {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			values := append([]string(nil), k.Query[name]...)
			sort.Strings(values)
			parts = append(parts, name+"="+strings.Join(values, ","))
		}
	}

	return strings.Join(parts, ":")
}
