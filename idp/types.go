package idp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// Credential is what the caller presents to LearnWorlds: an OAuth2 access
// token, a relayed browser cookie header, or both.
type Credential struct {
	AccessToken string
	Cookie      string
}

func BearerCredential(accessToken string) Credential {
	return Credential{AccessToken: accessToken}
}

func CookieCredential(cookieHeader string) Credential {
	return Credential{Cookie: cookieHeader}
}

func (c Credential) IsZero() bool {
	return c.AccessToken == "" && c.Cookie == ""
}

func (c Credential) apply(req *http.Request) {
	if c.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	}
	if c.Cookie != "" {
		req.Header.Set("Cookie", c.Cookie)
	}
}

// UserID accepts both string and numeric ids from the provider.
type UserID string

func (id *UserID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = UserID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("user id must be a string or number: %w", err)
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return fmt.Errorf("user id must be a string or number: %w", err)
	}
	*id = UserID(n.String())
	return nil
}

// Profile is the current user as reported by GET /api/v2/user.
type Profile struct {
	ID       string
	Email    string
	Username string
	Raw      json.RawMessage
}

// EnrollmentRecord is the member list of one course. It is never cached.
type EnrollmentRecord struct {
	CourseID      string
	MemberUserIDs map[string]struct{}
}

func (e *EnrollmentRecord) Contains(userID string) bool {
	if e == nil || userID == "" {
		return false
	}
	_, ok := e.MemberUserIDs[userID]
	return ok
}

type userPayload struct {
	ID       UserID `json:"id" validate:"required"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type memberPayload struct {
	ID UserID `json:"id" validate:"required"`
}

type enrollmentPayload struct {
	Data []memberPayload `json:"data" validate:"required,dive"`
}
