package auth

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Permissions maps an upper-case role name to the permissions it grants.
type Permissions map[string][]string

type permissionsFile struct {
	Roles map[string][]string `yaml:"roles"`
}

// LoadPermissions reads permissions.yml. Role names are upper-cased so that
// token roles match regardless of how the identity service spells them.
func LoadPermissions(path string) (Permissions, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read permissions: %w", err)
	}
	var pf permissionsFile
	if err := yaml.Unmarshal(b, &pf); err != nil {
		return nil, fmt.Errorf("parse permissions %s: %w", path, err)
	}

	perms := make(Permissions, len(pf.Roles))
	for role, granted := range pf.Roles {
		for _, p := range granted {
			if !strings.Contains(p, ":") {
				return nil, fmt.Errorf("permission %q for role %s is not resource:action", p, role)
			}
		}
		key := strings.ToUpper(role)
		perms[key] = append(perms[key], granted...)
	}
	return perms, nil
}

// Allows reports whether role grants permission.
func (p Permissions) Allows(role, permission string) bool {
	granted, ok := p[role]
	if !ok {
		granted = p[strings.ToUpper(role)]
	}
	return slices.Contains(granted, permission)
}

// HasPermission reports whether any of the principal's roles grants permission.
func HasPermission(pr *Principal, permission string, perms Permissions) bool {
	for _, role := range pr.Roles {
		if perms.Allows(role, permission) {
			return true
		}
	}
	return false
}
