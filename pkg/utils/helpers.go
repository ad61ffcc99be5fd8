package utils

import (
	"database/sql"
	"strings"
)

func NullStringToString(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return ns.String
}

func NullTimeToEmptyString(nt sql.NullTime) string {
	if !nt.Valid {
		return ""
	}
	return nt.Time.Local().Format("2006-01-02 15:04:05")
}

func ToPtr[T any](v T) *T {
	return &v
}

// SplitRoles разбирает строку ролей вида "Admin, Customer" в нормализованный список.
func SplitRoles(raw string) []string {
	parts := strings.Split(raw, ",")
	roles := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			roles = append(roles, p)
		}
	}
	return roles
}

// RolesContain сравнивает роли без учета регистра и пробелов.
func RolesContain(haystack []string, needle string) bool {
	needle = strings.ToLower(strings.TrimSpace(needle))
	for _, role := range haystack {
		if strings.ToLower(strings.TrimSpace(role)) == needle {
			return true
		}
	}
	return false
}
