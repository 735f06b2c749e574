package authz

import (
	"context"

	"github.com/google/uuid"
)

// Authorizer answers the access questions the core asks before privileged or
// cross-project operations. The real answers live outside this service;
// deployments plug in their own implementation.
type Authorizer interface {
	IsProjectMember(ctx context.Context, userID, projectID uuid.UUID) (bool, error)
	IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
}

// ClaimsAuthorizer trusts the verified token claims carried in the request
// context. Suitable when the identity provider already encodes project
// membership and the admin role in the token.
type ClaimsAuthorizer struct{}

func NewClaimsAuthorizer() *ClaimsAuthorizer {
	return &ClaimsAuthorizer{}
}

type contextKey string

const (
	projectsKey contextKey = "authz.projects"
	adminKey    contextKey = "authz.admin"
)

// WithProjects stores the caller's project memberships in the context.
func WithProjects(ctx context.Context, projectIDs []uuid.UUID) context.Context {
	return context.WithValue(ctx, projectsKey, projectIDs)
}

// WithAdmin marks the caller as an administrator in the context.
func WithAdmin(ctx context.Context, admin bool) context.Context {
	return context.WithValue(ctx, adminKey, admin)
}

func (a *ClaimsAuthorizer) IsProjectMember(ctx context.Context, _ uuid.UUID, projectID uuid.UUID) (bool, error) {
	projects, _ := ctx.Value(projectsKey).([]uuid.UUID)
	for _, id := range projects {
		if id == projectID {
			return true, nil
		}
	}
	return false, nil
}

func (a *ClaimsAuthorizer) IsAdmin(ctx context.Context, _ uuid.UUID) (bool, error) {
	admin, _ := ctx.Value(adminKey).(bool)
	return admin, nil
}
