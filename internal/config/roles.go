package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Built-in role slugs, lowest to highest.
const (
	RoleMaintenanceTech       = "maintenance_tech"
	RoleProductionSupervisor  = "production_supervisor"
	RoleMaintenanceSupervisor = "maintenance_supervisor"
	RoleManager               = "manager"
	RoleDeveloper             = "developer"
)

// PermissionAreas lists every permission area with the actions it supports.
// Keys are built as "{area}_{action}".
var PermissionAreas = map[string][]string{
	"dashboard":   {"view"},
	"inventory":   {"view", "create", "edit", "delete"},
	"assets":      {"view", "create", "edit", "delete"},
	"worksheets":  {"view", "create", "edit", "delete"},
	"pm":          {"view", "create", "edit", "delete"},
	"reports":     {"view"},
	"settings":    {"view", "edit"},
	"users":       {"view", "create", "edit", "delete"},
	"logs":        {"view"},
	"permissions": {"manage"},
}

// PermissionKey joins an area and an action.
func PermissionKey(area, action string) string { return area + "_" + action }

// AllPermissionKeys returns every known key in stable order.
func AllPermissionKeys() []string {
	keys := make([]string, 0, 32)
	for area, actions := range PermissionAreas {
		for _, a := range actions {
			keys = append(keys, PermissionKey(area, a))
		}
	}
	sort.Strings(keys)
	return keys
}

// RoleDefinition describes a role and its default grants.
type RoleDefinition struct {
	Name        string   `yaml:"name"`
	DisplayName string   `yaml:"display_name"`
	Level       int      `yaml:"level"`
	Permissions []string `yaml:"permissions"`
}

type rolesFile struct {
	Roles []RoleDefinition `yaml:"roles"`
}

var (
	techPerms = []string{
		"dashboard_view", "inventory_view", "assets_view",
		"worksheets_view", "worksheets_create", "worksheets_edit", "pm_view",
	}
	supervisorPerms = append(append([]string{}, techPerms...),
		"inventory_create", "inventory_edit",
		"assets_create", "assets_edit",
		"pm_create", "pm_edit", "reports_view",
	)
	managerPerms = append(append([]string{}, supervisorPerms...),
		"inventory_delete", "assets_delete", "worksheets_delete", "pm_delete",
		"settings_view", "settings_edit",
		"users_view", "users_create", "users_edit", "users_delete",
		"logs_view", "permissions_manage",
	)
)

// DefaultRoles returns the built-in role matrix.
func DefaultRoles() []RoleDefinition {
	return []RoleDefinition{
		{Name: RoleMaintenanceTech, DisplayName: "Karbantartó", Level: 1, Permissions: techPerms},
		{Name: RoleProductionSupervisor, DisplayName: "Műszakvezető - Termelés", Level: 2, Permissions: append(append([]string{}, techPerms...), "reports_view")},
		{Name: RoleMaintenanceSupervisor, DisplayName: "Műszakvezető - Karbantartó", Level: 2, Permissions: supervisorPerms},
		{Name: RoleManager, DisplayName: "Manager", Level: 3, Permissions: managerPerms},
		{Name: RoleDeveloper, DisplayName: "Developer", Level: 4, Permissions: AllPermissionKeys()},
	}
}

// LoadRoles returns the default roles, overridden by the YAML file at path
// when one is given. Roles in the file replace built-ins with the same name.
func LoadRoles(path string) ([]RoleDefinition, error) {
	roles := DefaultRoles()
	if path == "" {
		return roles, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("roles file: %w", err)
	}
	var f rolesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("roles file: %w", err)
	}

	idx := make(map[string]int, len(roles))
	for i, r := range roles {
		idx[r.Name] = i
	}
	for _, r := range f.Roles {
		if r.Name == "" {
			return nil, fmt.Errorf("roles file: role without name")
		}
		if i, ok := idx[r.Name]; ok {
			if r.DisplayName == "" {
				r.DisplayName = roles[i].DisplayName
			}
			if r.Level == 0 {
				r.Level = roles[i].Level
			}
			roles[i] = r
			continue
		}
		roles = append(roles, r)
	}
	return roles, nil
}
