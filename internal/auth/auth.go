// Package auth implements the handoff authorization gate and the credential
// to identity validation consumed at the API boundary.
package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/agentrelay/relay/internal/model"
)

// Wildcard in the allow-list grants access to any agent.
const Wildcard = "*"

// Authorize checks whether the agent may act on the task. An agent is allowed
// when its identifier is literally present in the task allow-list or the list
// contains the wildcard.
func Authorize(task *model.TaskState, agentID string) error {
	if agentID == "" {
		return fmt.Errorf("agent id is empty: %w", model.ErrUnauthorized)
	}
	for _, allowed := range task.Security.AllowedAgents {
		if allowed == Wildcard || allowed == agentID {
			return nil
		}
	}
	return fmt.Errorf("agent %q is not allowed on task %s: %w", agentID, task.ID, model.ErrUnauthorized)
}

// TokenValidatorConfig is the configuration for the JWT token validator.
type TokenValidatorConfig struct {
	// Secret is the HS256 signing secret.
	Secret string
}

func (c *TokenValidatorConfig) defaults() error {
	if c.Secret == "" {
		return fmt.Errorf("secret is required")
	}
	return nil
}

// TokenValidator maps bearer credentials onto an agent identity. Tokens are
// HS256 JWTs with the agent id in the subject claim and an optional session
// id in the "sid" claim.
type TokenValidator struct {
	secret []byte
}

// NewTokenValidator creates a new JWT token validator.
func NewTokenValidator(cfg TokenValidatorConfig) (*TokenValidator, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &TokenValidator{secret: []byte(cfg.Secret)}, nil
}

// Validate parses and verifies the token, returning the agent identity it
// carries.
func (v *TokenValidator) Validate(tokenStr string) (*model.AgentIdentity, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", model.ErrUnauthorized)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims: %w", model.ErrUnauthorized)
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("token is missing the subject claim: %w", model.ErrUnauthorized)
	}

	identity := &model.AgentIdentity{AgentID: sub}
	if sid, ok := claims["sid"].(string); ok {
		identity.SessionID = sid
	}

	return identity, nil
}
