package jumpcloud

import (
	"strings"
	"time"
)

// State is the lifecycle state of a system user.
type State string

const (
	StateStaged    State = "STAGED"
	StateActivated State = "ACTIVATED"
	StateSuspended State = "SUSPENDED"
)

// Valid reports whether s is one of the states JumpCloud knows.
func (s State) Valid() bool {
	switch s {
	case StateStaged, StateActivated, StateSuspended:
		return true
	}
	return false
}

// MFA holds a user's multi-factor settings.
type MFA struct {
	Configured     bool       `json:"configured"`
	Exclusion      bool       `json:"exclusion"`
	ExclusionDays  int        `json:"exclusionDays,omitempty"`
	ExclusionUntil *time.Time `json:"exclusionUntil,omitempty"`
}

// Attribute is a custom name/value pair on a user or system.
type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// User is a JumpCloud system user.
type User struct {
	ID                 string      `json:"_id"`
	Username           string      `json:"username,omitempty"`
	Email              string      `json:"email"`
	AlternateEmail     string      `json:"alternateEmail,omitempty"`
	FirstName          string      `json:"firstname,omitempty"`
	LastName           string      `json:"lastname,omitempty"`
	DisplayName        string      `json:"displayname,omitempty"`
	State              State       `json:"state,omitempty"`
	EmployeeType       string      `json:"employeeType,omitempty"`
	EmployeeIdentifier string      `json:"employeeIdentifier,omitempty"`
	JobTitle           string      `json:"jobTitle,omitempty"`
	Department         string      `json:"department,omitempty"`
	CostCenter         string      `json:"costCenter,omitempty"`
	Company            string      `json:"company,omitempty"`
	Location           string      `json:"location,omitempty"`
	Manager            string      `json:"manager,omitempty"`
	Activated          bool        `json:"activated"`
	Suspended          bool        `json:"suspended"`
	AccountLocked      bool        `json:"account_locked"`
	Created            *time.Time  `json:"created,omitempty"`
	MFA                *MFA        `json:"mfa,omitempty"`
	Attributes         []Attribute `json:"attributes,omitempty"`
}

// Key returns the user id.
func (u User) Key() string { return u.ID }

// Field returns the value of a named column. Plain names yield strings;
// pretty_ names yield typed values the output layer styles.
func (u User) Field(name string) (any, bool) {
	switch name {
	case "id":
		return u.ID, true
	case "username":
		return u.Username, true
	case "email":
		return u.Email, true
	case "first_name":
		return u.FirstName, true
	case "last_name":
		return u.LastName, true
	case "display_name":
		return u.DisplayName, true
	case "state":
		return string(u.State), true
	case "pretty_state":
		return u.State, true
	case "employee_type":
		return u.EmployeeType, true
	case "job_title":
		return u.JobTitle, true
	case "department":
		return u.Department, true
	case "cost_center":
		return u.CostCenter, true
	case "company":
		return u.Company, true
	case "location":
		return u.Location, true
	case "manager":
		return u.Manager, true
	case "account_locked":
		return u.AccountLocked, true
	case "created":
		return formatTime(u.Created), true
	}
	return nil, false
}

// FDE is the full-disk-encryption status of a system.
type FDE struct {
	Active     bool `json:"active"`
	KeyPresent bool `json:"keyPresent"`
}

// OSVersionDetail breaks the OS version down into parts.
type OSVersionDetail struct {
	OSName      string `json:"osName,omitempty"`
	Major       string `json:"major,omitempty"`
	Minor       string `json:"minor,omitempty"`
	Patch       string `json:"patch,omitempty"`
	ReleaseName string `json:"releaseName,omitempty"`
	Version     string `json:"version,omitempty"`
}

// System is a device managed by JumpCloud.
type System struct {
	ID              string           `json:"_id"`
	Hostname        string           `json:"hostname,omitempty"`
	DisplayName     string           `json:"displayName,omitempty"`
	OS              string           `json:"os,omitempty"`
	OSFamily        string           `json:"osFamily,omitempty"`
	Version         string           `json:"version,omitempty"`
	Arch            string           `json:"arch,omitempty"`
	SerialNumber    string           `json:"serialNumber,omitempty"`
	HardwareVendor  string           `json:"hwVendor,omitempty"`
	AgentVersion    string           `json:"agentVersion,omitempty"`
	RemoteIP        string           `json:"remoteIP,omitempty"`
	Active          bool             `json:"active"`
	LastContact     *time.Time       `json:"lastContact,omitempty"`
	Created         *time.Time       `json:"created,omitempty"`
	FDE             *FDE             `json:"fde,omitempty"`
	OSVersionDetail *OSVersionDetail `json:"osVersionDetail,omitempty"`
	Tags            []string         `json:"tags,omitempty"`
	Attributes      []Attribute      `json:"attributes,omitempty"`
}

// Key returns the system id.
func (s System) Key() string { return s.ID }

// Field returns the value of a named column.
func (s System) Field(name string) (any, bool) {
	switch name {
	case "id":
		return s.ID, true
	case "hostname":
		return s.Hostname, true
	case "display_name":
		return s.DisplayName, true
	case "os":
		return s.OS, true
	case "pretty_os":
		return strings.TrimSpace(s.OS + " " + s.Version), true
	case "os_family":
		return s.OSFamily, true
	case "version":
		return s.Version, true
	case "arch":
		return s.Arch, true
	case "serial_number":
		return s.SerialNumber, true
	case "agent_version":
		return s.AgentVersion, true
	case "active":
		return s.Active, true
	case "last_contact":
		return formatTime(s.LastContact), true
	case "pretty_last_contact":
		if s.LastContact == nil {
			return "", true
		}
		return *s.LastContact, true
	case "fde_active":
		return s.FDE != nil && s.FDE.Active, true
	}
	return nil, false
}

// Group is a JumpCloud user group.
type Group struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Key returns the group id.
func (g Group) Key() string { return g.ID }

// Field returns the value of a named column.
func (g Group) Field(name string) (any, bool) {
	switch name {
	case "id":
		return g.ID, true
	case "name":
		return g.Name, true
	case "type":
		return g.Type, true
	case "description":
		return g.Description, true
	}
	return nil, false
}

// GraphObject references a node of the JumpCloud association graph.
type GraphObject struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Association is one edge of the graph, as returned by membership and
// association endpoints.
type Association struct {
	To GraphObject `json:"to"`
}

// FDEKey is the recovery key of an encrypted system.
type FDEKey struct {
	Key string `json:"key"`
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
