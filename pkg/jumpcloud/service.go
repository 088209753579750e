// Package jumpcloud exposes the JumpCloud resources jam works with: users,
// systems and user groups. Each operation builds one authenticated client
// and hands it to the pagination engines.
package jumpcloud

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/jam/pkg/client"
	"github.com/Sternrassler/jam/pkg/logging"
	"github.com/Sternrassler/jam/pkg/pagination"
)

// DefaultPageSize is the page size used when none is configured.
const DefaultPageSize = 100

// Builder builds an authenticated client. *client.Factory implements it.
type Builder interface {
	Build(ctx context.Context) (*client.Client, error)
}

// Config holds service configuration.
type Config struct {
	// PageSize is the limit sent with every page window
	PageSize int

	// Fetch configures the pagination engines
	Fetch pagination.Config
}

// DefaultConfig returns the default service configuration.
func DefaultConfig() Config {
	return Config{
		PageSize: DefaultPageSize,
		Fetch:    pagination.DefaultConfig(),
	}
}

// Service runs JumpCloud operations.
type Service struct {
	builder Builder
	config  Config
	logger  zerolog.Logger
}

// NewService creates a service.
func NewService(builder Builder, cfg Config) *Service {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	return &Service{
		builder: builder,
		config:  cfg,
		logger:  logging.NewLogger("jumpcloud"),
	}
}

// fetcher builds the client shared by every request of one operation.
func (s *Service) fetcher(ctx context.Context) (*pagination.Fetcher, *client.Client, error) {
	c, err := s.builder.Build(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("build client: %w", err)
	}
	return pagination.NewFetcher(c, s.config.Fetch), c, nil
}

// ListUsers returns every user matching filters, ordered by id.
func (s *Service) ListUsers(ctx context.Context, filters []string) ([]User, error) {
	f, _, err := s.fetcher(ctx)
	if err != nil {
		return nil, err
	}
	users, err := pagination.ListAll[User](ctx, f, UsersEndpoint, filters, s.config.PageSize)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	pagination.SortBy(users, User.Key)
	return users, nil
}

// GetUsers returns the users with the given ids, in the order of ids.
func (s *Service) GetUsers(ctx context.Context, ids []string) ([]User, error) {
	f, _, err := s.fetcher(ctx)
	if err != nil {
		return nil, err
	}
	users, err := pagination.GetMany[User](ctx, f, "users", UserPath, ids)
	if err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	orderByIDs(users, ids, User.Key)
	return users, nil
}

// FindUsers searches users by email address.
func (s *Service) FindUsers(ctx context.Context, email string) ([]User, error) {
	return search[User](ctx, s, searchUsersPath, email, "email")
}

// UserBoundSystemIDs returns the ids of the systems bound to a user.
func (s *Service) UserBoundSystemIDs(ctx context.Context, userID string) ([]string, error) {
	f, _, err := s.fetcher(ctx)
	if err != nil {
		return nil, err
	}
	objects, err := pagination.ListAll[GraphObject](ctx, f, UserSystemsEndpoint(userID), nil, s.config.PageSize)
	if err != nil {
		return nil, fmt.Errorf("list systems bound to user %s: %w", userID, err)
	}

	ids := make([]string, 0, len(objects))
	for _, o := range objects {
		ids = append(ids, o.ID)
	}
	slices.Sort(ids)
	return ids, nil
}

// UserBoundSystems returns the systems bound to a user.
func (s *Service) UserBoundSystems(ctx context.Context, userID string) ([]System, error) {
	ids, err := s.UserBoundSystemIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.GetSystems(ctx, ids)
}

// ListSystems returns every system matching filters, ordered by id.
func (s *Service) ListSystems(ctx context.Context, filters []string) ([]System, error) {
	f, _, err := s.fetcher(ctx)
	if err != nil {
		return nil, err
	}
	systems, err := pagination.ListAll[System](ctx, f, SystemsEndpoint, filters, s.config.PageSize)
	if err != nil {
		return nil, fmt.Errorf("list systems: %w", err)
	}
	pagination.SortBy(systems, System.Key)
	return systems, nil
}

// GetSystems returns the systems with the given ids, in the order of ids.
func (s *Service) GetSystems(ctx context.Context, ids []string) ([]System, error) {
	f, _, err := s.fetcher(ctx)
	if err != nil {
		return nil, err
	}
	systems, err := pagination.GetMany[System](ctx, f, "systems", SystemPath, ids)
	if err != nil {
		return nil, fmt.Errorf("get systems: %w", err)
	}
	orderByIDs(systems, ids, System.Key)
	return systems, nil
}

// FindSystems searches systems by hostname or serial number.
func (s *Service) FindSystems(ctx context.Context, query string) ([]System, error) {
	return search[System](ctx, s, searchSystemsPath, query, "hostname", "serialNumber")
}

// FDEKey returns the disk encryption recovery key of a system.
func (s *Service) FDEKey(ctx context.Context, systemID string) (string, error) {
	_, c, err := s.fetcher(ctx)
	if err != nil {
		return "", err
	}
	var key FDEKey
	if err := c.GetJSON(ctx, FDEKeyPath(systemID), nil, &key); err != nil {
		return "", fmt.Errorf("get fde key of system %s: %w", systemID, err)
	}
	return key.Key, nil
}

// SystemBoundUserIDs returns the ids of the users bound to a system.
func (s *Service) SystemBoundUserIDs(ctx context.Context, systemID string) ([]string, error) {
	f, _, err := s.fetcher(ctx)
	if err != nil {
		return nil, err
	}
	associations, err := pagination.ListAll[Association](ctx, f, SystemUsersEndpoint(systemID), nil, s.config.PageSize)
	if err != nil {
		return nil, fmt.Errorf("list users bound to system %s: %w", systemID, err)
	}
	return targetIDs(associations), nil
}

// SystemBoundUsers returns the users bound to a system.
func (s *Service) SystemBoundUsers(ctx context.Context, systemID string) ([]User, error) {
	ids, err := s.SystemBoundUserIDs(ctx, systemID)
	if err != nil {
		return nil, err
	}
	return s.GetUsers(ctx, ids)
}

// ListGroups returns every user group matching filters, ordered by name.
func (s *Service) ListGroups(ctx context.Context, filters []string) ([]Group, error) {
	f, _, err := s.fetcher(ctx)
	if err != nil {
		return nil, err
	}
	groups, err := pagination.ListAll[Group](ctx, f, GroupsEndpoint, filters, s.config.PageSize)
	if err != nil {
		return nil, fmt.Errorf("list user groups: %w", err)
	}
	pagination.SortBy(groups, func(g Group) string { return g.Name })
	return groups, nil
}

// GroupMemberIDs returns the user ids that are members of a group.
func (s *Service) GroupMemberIDs(ctx context.Context, groupID string) ([]string, error) {
	f, _, err := s.fetcher(ctx)
	if err != nil {
		return nil, err
	}
	members, err := pagination.ListAll[Association](ctx, f, GroupMembersEndpoint(groupID), nil, s.config.PageSize)
	if err != nil {
		return nil, fmt.Errorf("list members of group %s: %w", groupID, err)
	}
	return targetIDs(members), nil
}

// GroupMembers returns the users that are members of a group. The full user
// list and the membership list are fetched concurrently and joined by id.
func (s *Service) GroupMembers(ctx context.Context, groupID string) ([]User, error) {
	start := time.Now()

	var (
		users     []User
		memberIDs []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = s.ListUsers(gctx, nil)
		return err
	})
	g.Go(func() error {
		var err error
		memberIDs, err = s.GroupMemberIDs(gctx, groupID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	members := make(map[string]struct{}, len(memberIDs))
	for _, id := range memberIDs {
		members[id] = struct{}{}
	}

	result := make([]User, 0, len(memberIDs))
	for _, u := range users {
		if _, ok := members[u.ID]; ok {
			result = append(result, u)
		}
	}

	if len(result) != len(members) {
		s.logger.Warn().
			Str("group_id", groupID).
			Int("members", len(members)).
			Int("matched", len(result)).
			Msg("Some group members are not system users")
	}

	s.logger.Debug().
		Str("group_id", groupID).
		Int("members", len(result)).
		Dur("duration", time.Since(start)).
		Msg("Group members resolved")

	return result, nil
}

type searchRequest struct {
	SearchFilter searchFilter `json:"searchFilter"`
}

type searchFilter struct {
	SearchTerm string   `json:"searchTerm"`
	Fields     []string `json:"fields"`
}

type searchResponse[T any] struct {
	TotalCount int `json:"totalCount"`
	Results    []T `json:"results"`
}

func search[T any](ctx context.Context, s *Service, path, term string, fields ...string) ([]T, error) {
	_, c, err := s.fetcher(ctx)
	if err != nil {
		return nil, err
	}

	body := searchRequest{SearchFilter: searchFilter{SearchTerm: term, Fields: fields}}
	var resp searchResponse[T]
	if err := c.PostJSONInto(ctx, path, body, &resp); err != nil {
		return nil, fmt.Errorf("search %s for %q: %w", path, term, err)
	}

	if resp.Results == nil {
		return []T{}, nil
	}
	return resp.Results, nil
}

func targetIDs(associations []Association) []string {
	ids := make([]string, 0, len(associations))
	for _, a := range associations {
		ids = append(ids, a.To.ID)
	}
	slices.Sort(ids)
	return ids
}

// orderByIDs sorts records into the order their ids were requested in.
func orderByIDs[T any](records []T, ids []string, key func(T) string) {
	position := make(map[string]int, len(ids))
	for i, id := range ids {
		if _, seen := position[id]; !seen {
			position[id] = i
		}
	}
	slices.SortStableFunc(records, func(a, b T) int {
		return position[key(a)] - position[key(b)]
	})
}
