package api

import "gatekey/cmd/identity"

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sendCodeRequest struct {
	Email string `json:"email"`
}

type verifyRequest struct {
	ChallengeID string `json:"challengeId"`
	Code        string `json:"code"`
}

type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// challengeResponse is returned by signin and send-code. Code is only
// populated when delivery failed and the fallback policy allows
// exposing it; Message is set on the send-code path.
type challengeResponse struct {
	Message     string `json:"message,omitempty"`
	ChallengeID string `json:"challengeId"`
	Email       string `json:"email"`
	EmailSent   bool   `json:"emailSent"`
	ShowCode    bool   `json:"showCode"`
	Code        string `json:"code,omitempty"`
}

type signupResponse struct {
	User userResponse `json:"user"`
}

type verifyResponse struct {
	User userResponse `json:"user"`
}

func toUserResponse(u identity.User) userResponse {
	return userResponse{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
	}
}
