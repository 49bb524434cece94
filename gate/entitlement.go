package gate

import (
	"context"

	"github.com/jrsteele09/lms-quiz-gate/idp"
	"github.com/jrsteele09/lms-quiz-gate/sessions"
)

// EntitlementChecker decides whether an authenticated principal may see the
// content. It is independent of the authentication strategy.
type EntitlementChecker interface {
	Entitled(ctx context.Context, p sessions.Principal, cred idp.Credential) (bool, error)
}

// CourseEnrollment entitles members of one LearnWorlds course. The member
// list is fetched fresh on every call.
type CourseEnrollment struct {
	provider IdentityProvider
	courseID string
}

func NewCourseEnrollment(provider IdentityProvider, courseID string) *CourseEnrollment {
	return &CourseEnrollment{provider: provider, courseID: courseID}
}

func (c *CourseEnrollment) CourseID() string {
	return c.courseID
}

func (c *CourseEnrollment) Entitled(ctx context.Context, p sessions.Principal, cred idp.Credential) (bool, error) {
	// Without a user id membership cannot be shown.
	if p.UserID == "" {
		return false, nil
	}
	record, err := c.provider.FetchEnrollment(ctx, cred, c.courseID)
	if err != nil {
		return false, err
	}
	return record.Contains(p.UserID), nil
}

// decide applies checker to an authenticated principal. Provider rejection of
// the credential means it is no longer valid; any other provider failure is
// returned as an error so it is never mistaken for a verdict.
func decide(ctx context.Context, checker EntitlementChecker, p sessions.Principal, cred idp.Credential) (Verdict, error) {
	if checker == nil {
		return authorized(p), nil
	}
	ok, err := checker.Entitled(ctx, p, cred)
	if err != nil {
		if idp.IsRejected(err) {
			return unauthenticated(ReasonRejectedByProvider), nil
		}
		return Verdict{}, err
	}
	if !ok {
		return forbidden(ReasonNotEnrolled), nil
	}
	return authorized(p), nil
}
