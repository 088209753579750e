package jumpcloud

// UserFilters are the shorthand user filters offered by the CLI.
type UserFilters struct {
	Department string
	CostCenter string
	Title      string
	State      string
}

// Expressions appends the shorthand filters to raw, which holds filters
// already written in JumpCloud's field:$op:value syntax.
func (f UserFilters) Expressions(raw []string) []string {
	out := append([]string(nil), raw...)
	out = appendEq(out, "department", f.Department)
	out = appendEq(out, "costCenter", f.CostCenter)
	out = appendEq(out, "jobTitle", f.Title)
	out = appendEq(out, "state", f.State)
	return out
}

// SystemFilters are the shorthand system filters offered by the CLI.
type SystemFilters struct {
	OS       string
	OSFamily string
}

// Expressions appends the shorthand filters to raw.
func (f SystemFilters) Expressions(raw []string) []string {
	out := append([]string(nil), raw...)
	out = appendEq(out, "os", f.OS)
	out = appendEq(out, "osFamily", f.OSFamily)
	return out
}

// GroupFilters are the shorthand group filters offered by the CLI.
type GroupFilters struct {
	Name string
}

// Expressions appends the shorthand filters to raw. The v2 group endpoint
// spells operators without the dollar sign.
func (f GroupFilters) Expressions(raw []string) []string {
	out := append([]string(nil), raw...)
	if f.Name != "" {
		out = append(out, "name:eq:"+f.Name)
	}
	return out
}

func appendEq(filters []string, field, value string) []string {
	if value == "" {
		return filters
	}
	return append(filters, field+":$eq:"+value)
}
