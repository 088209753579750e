package jumpcloud

import (
	"fmt"
	"net/url"

	"github.com/Sternrassler/jam/pkg/pagination"
)

// Paginated endpoints. The legacy v1 endpoints report their size in the body
// and take indexed filters; v2 endpoints use the x-total-count header.
var (
	UsersEndpoint = pagination.Endpoint{
		Name:    "users",
		Path:    "/systemusers",
		Total:   pagination.TotalFromBody,
		Filters: pagination.FilterIndexed,
		Sort:    "_id",
	}

	SystemsEndpoint = pagination.Endpoint{
		Name:    "systems",
		Path:    "/systems",
		Total:   pagination.TotalFromBody,
		Filters: pagination.FilterIndexed,
		Sort:    "_id",
	}

	GroupsEndpoint = pagination.Endpoint{
		Name:    "user groups",
		Path:    "/v2/usergroups",
		Total:   pagination.TotalFromHeader,
		Filters: pagination.FilterRepeated,
	}

	groupMembersEndpoint = pagination.Endpoint{
		Name:  "group members",
		Total: pagination.TotalFromHeader,
	}

	userSystemsEndpoint = pagination.Endpoint{
		Name:  "user systems",
		Total: pagination.TotalFromHeader,
	}

	systemUsersEndpoint = pagination.Endpoint{
		Name:  "system users",
		Total: pagination.TotalNone,
		Query: url.Values{"targets": {"user"}},
	}
)

// GroupMembersEndpoint lists the members of one user group.
func GroupMembersEndpoint(groupID string) pagination.Endpoint {
	return groupMembersEndpoint.WithPath(fmt.Sprintf("/v2/usergroups/%s/members", url.PathEscape(groupID)))
}

// UserSystemsEndpoint lists the systems bound to one user.
func UserSystemsEndpoint(userID string) pagination.Endpoint {
	return userSystemsEndpoint.WithPath(fmt.Sprintf("/v2/users/%s/systems", url.PathEscape(userID)))
}

// SystemUsersEndpoint lists the user associations of one system. It is not
// paginated.
func SystemUsersEndpoint(systemID string) pagination.Endpoint {
	return systemUsersEndpoint.WithPath(fmt.Sprintf("/v2/systems/%s/associations", url.PathEscape(systemID)))
}

// UserPath is the single-entity path of a user.
func UserPath(id string) string {
	return "/systemusers/" + url.PathEscape(id)
}

// SystemPath is the single-entity path of a system.
func SystemPath(id string) string {
	return "/systems/" + url.PathEscape(id)
}

// FDEKeyPath is the path of a system's disk encryption key.
func FDEKeyPath(id string) string {
	return fmt.Sprintf("/v2/systems/%s/fdekey", url.PathEscape(id))
}

const (
	searchUsersPath   = "/search/systemusers"
	searchSystemsPath = "/search/systems"
)
