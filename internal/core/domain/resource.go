package domain

import (
	"fmt"
	"strings"
	"time"
)

// Permission is the effective access level for a mirrored resource.
type Permission string

// Resource permissions.
const (
	PermissionNone      Permission = "none"
	PermissionRead      Permission = "read"
	PermissionWrite     Permission = "write"
	PermissionReadWrite Permission = "read_write"
)

// Valid returns true for a known permission.
func (p Permission) Valid() bool {
	switch p {
	case PermissionNone, PermissionRead, PermissionWrite, PermissionReadWrite:
		return true
	}
	return false
}

// CanRead reports whether the permission grants read access.
func (p Permission) CanRead() bool {
	return p == PermissionRead || p == PermissionReadWrite
}

// CanWrite reports whether the permission grants write access.
func (p Permission) CanWrite() bool {
	return p == PermissionWrite || p == PermissionReadWrite
}

// Matches reports whether the permission satisfies the requested capability
// filter: read matches read+read_write, write matches write+read_write,
// read_write matches only read_write, none matches only none.
func (p Permission) Matches(filter Permission) bool {
	switch filter {
	case PermissionRead:
		return p.CanRead()
	case PermissionWrite:
		return p.CanWrite()
	case PermissionReadWrite:
		return p == PermissionReadWrite
	case PermissionNone:
		return p == PermissionNone
	}
	return false
}

// ResourceType classifies a mirrored resource.
type ResourceType string

// Resource types.
const (
	ResourceChannel ResourceType = "channel"
	ResourceFolder  ResourceType = "folder"
	ResourceFile    ResourceType = "file"
)

// Resource is a mirrored external object (channel, page, file) with its
// effective permission. ExternalID is unique per connector.
type Resource struct {
	// ConnectorID is the owning connector.
	ConnectorID string

	// ExternalID is the provider-side identifier (e.g. Slack channel ID).
	ExternalID string

	// Title is the provider-side display name, updated on rename.
	Title string

	// Type classifies the resource.
	Type ResourceType

	// Permission is the effective access level.
	Permission Permission

	// ParentExternalID links to the parent resource for hierarchical
	// providers. Empty for flat providers such as Slack.
	ParentExternalID string

	// SourceURL is the canonical provider URL for the resource.
	SourceURL string

	// CreatedAt is when the resource was first discovered.
	CreatedAt time.Time

	// UpdatedAt is when the mirror row was last written.
	UpdatedAt time.Time

	// LastSeenAt is when the resource was last observed during a sync.
	// Used to detect provider-side deletions.
	LastSeenAt time.Time
}

// InternalIDPrefix namespaces internal resource identifiers per provider.
const InternalIDPrefix = "slack-channel-"

// InternalID returns the product-facing identifier for the resource.
func (r *Resource) InternalID() string {
	return InternalIDPrefix + r.ExternalID
}

// ExternalIDFromInternal extracts the provider identifier from an internal
// one. Returns ErrInvalidInput if the prefix does not match.
func ExternalIDFromInternal(internalID string) (string, error) {
	if !strings.HasPrefix(internalID, InternalIDPrefix) {
		return "", fmt.Errorf("%w: malformed internal id %q", ErrInvalidInput, internalID)
	}
	return strings.TrimPrefix(internalID, InternalIDPrefix), nil
}

// ResourceNode is the permission-tree view of a resource exposed to the
// product UI.
type ResourceNode struct {
	InternalID       string       `json:"internalId"`
	ParentInternalID string       `json:"parentInternalId,omitempty"`
	Type             ResourceType `json:"type"`
	Title            string       `json:"title"`
	SourceURL        string       `json:"sourceUrl,omitempty"`
	Expandable       bool         `json:"expandable"`
	Permission       Permission   `json:"permission"`
}

// Node converts the resource to its UI representation.
func (r *Resource) Node() ResourceNode {
	node := ResourceNode{
		InternalID: r.InternalID(),
		Type:       r.Type,
		Title:      r.Title,
		SourceURL:  r.SourceURL,
		Expandable: r.Type == ResourceFolder,
		Permission: r.Permission,
	}
	if r.ParentExternalID != "" {
		node.ParentInternalID = InternalIDPrefix + r.ParentExternalID
	}
	return node
}
