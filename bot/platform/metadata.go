package platform

import "strings"

// Meta describes optional connector metadata used for display and alias resolution.
type Meta struct {
	Name        string
	DisplayName string
	Aliases     []string
}

// MetadataProvider can be implemented by connectors to expose metadata.
type MetadataProvider interface {
	Metadata() Meta
}

// normalizeAlias prepares an alias token for lookup.
func normalizeAlias(alias string) string {
	trimmed := strings.TrimSpace(alias)
	if trimmed == "" {
		return ""
	}
	trimmed = strings.TrimPrefix(trimmed, "@")
	return strings.ToLower(strings.TrimSpace(trimmed))
}

// NormalizeAliasToken exposes alias normalization for callers.
func NormalizeAliasToken(alias string) string {
	return normalizeAlias(alias)
}
