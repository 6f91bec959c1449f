package reference

import "strings"

// Role is the part a person played in producing a work.
type Role string

const (
	RoleAuthor     Role = "author"
	RoleEditor     Role = "editor"
	RoleTranslator Role = "translator"
	RoleUnknown    Role = "unknown"
)

// PersonRoles lists the roles extracted from a record, in extraction order.
var PersonRoles = []Role{RoleAuthor, RoleEditor, RoleTranslator}

// PersonRole pairs a person's name (as written in the record, "Last, First")
// with the role they are credited for.
type PersonRole struct {
	Name string `json:"name" yaml:"name"`
	Role Role   `json:"role" yaml:"role"`
}

// roleSeparator separates role and name in the token form.
const roleSeparator = ":"

// Token encodes the pair as "role:name".
func (p PersonRole) Token() string {
	return MakePersonRole(p.Name, p.Role)
}

// Surname returns the text before the first comma of the name.
func (p PersonRole) Surname() string {
	return Surname(p.Name)
}

// MakePersonRole encodes a name and role as "role:name".
func MakePersonRole(name string, role Role) string {
	return string(role) + roleSeparator + name
}

// ParsePersonRole decodes a "role:name" token. A token without a separator
// is taken as a bare name with RoleUnknown.
func ParsePersonRole(token string) PersonRole {
	role, name, found := strings.Cut(token, roleSeparator)
	if !found {
		return PersonRole{Name: token, Role: RoleUnknown}
	}
	return PersonRole{Name: name, Role: Role(role)}
}

// Surname returns the portion of a "Last, First" name before the first comma.
func Surname(name string) string {
	last, _, _ := strings.Cut(name, ",")
	return last
}
