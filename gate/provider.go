package gate

import (
	"context"

	"github.com/jrsteele09/lms-quiz-gate/idp"
)

//go:generate mockgen -source=provider.go -destination=mocks/mocks.go -package=mocks

// IdentityProvider is the part of the LearnWorlds client the gates depend on.
type IdentityProvider interface {
	FetchCurrentUser(ctx context.Context, cred idp.Credential) (*idp.Profile, error)
	FetchEnrollment(ctx context.Context, cred idp.Credential, courseID string) (*idp.EnrollmentRecord, error)
}

var _ IdentityProvider = (*idp.Client)(nil)
