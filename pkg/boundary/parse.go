package boundary

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// The CLI wraps list results in an items array; attributes carry
// method-type-specific fields.
type listEnvelope struct {
	Items []json.RawMessage `json:"items"`
}

type authMethodItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Attributes  struct {
		Issuer string `json:"issuer"`
	} `json:"attributes"`
}

func parseAuthMethods(data []byte) ([]AuthMethod, error) {
	var env listEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse auth method list: %w", err)
	}
	methods := make([]AuthMethod, 0, len(env.Items))
	for _, raw := range env.Items {
		var item authMethodItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("failed to parse auth method entry: %w", err)
		}
		methods = append(methods, AuthMethod{
			ID:          item.ID,
			Name:        item.Name,
			Type:        item.Type,
			Description: item.Description,
			Issuer:      item.Attributes.Issuer,
		})
	}
	return methods, nil
}

func parseScopes(data []byte) ([]Scope, error) {
	var env struct {
		Items []Scope `json:"items"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse scope list: %w", err)
	}
	return env.Items, nil
}

func parseTargets(data []byte) ([]Target, error) {
	var env struct {
		Items []Target `json:"items"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse target list: %w", err)
	}
	return env.Items, nil
}

func parseSessionAuthorization(data []byte) (*SessionAuthorization, error) {
	// Newer CLI versions wrap the authorization in an item field; older ones
	// emit it at the top level. Accept both.
	var wrapped struct {
		Item *SessionAuthorization `json:"item"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Item != nil && wrapped.Item.AuthorizationToken != "" {
		return wrapped.Item, nil
	}

	var authz SessionAuthorization
	if err := json.Unmarshal(data, &authz); err != nil {
		return nil, fmt.Errorf("failed to parse session authorization: %w", err)
	}
	if authz.AuthorizationToken == "" {
		return nil, fmt.Errorf("session authorization response is missing the authorization token")
	}
	return &authz, nil
}

type authResponse struct {
	Token          string `json:"token"`
	UserID         string `json:"user_id"`
	ExpirationTime string `json:"expiration_time"`
}

func parseAuthResult(data []byte) (*AuthResult, error) {
	var resp authResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse authentication response: %w", err)
	}

	result := &AuthResult{
		Token:  resp.Token,
		UserID: resp.UserID,
	}
	if resp.ExpirationTime != "" {
		expiry, err := time.Parse(time.RFC3339, resp.ExpirationTime)
		if err != nil {
			return nil, fmt.Errorf("failed to parse token expiration time %q: %w", resp.ExpirationTime, err)
		}
		result.ExpiresAt = expiry
	}
	return result, nil
}

var (
	connectAddressRegex = regexp.MustCompile(`Address:\s+(\S+)`)
	connectPortRegex    = regexp.MustCompile(`Port:\s+(\d+)`)
)

// parseConnectionInfo scrapes the local proxy address and port from the
// banner the connect command prints. The address defaults to loopback when
// absent; a missing port is an error because nothing can connect without it.
func parseConnectionInfo(output string) (string, int, error) {
	address := "127.0.0.1"
	if m := connectAddressRegex.FindStringSubmatch(output); m != nil {
		address = m[1]
	}

	m := connectPortRegex.FindStringSubmatch(output)
	if m == nil {
		return "", 0, fmt.Errorf("connect output did not contain a proxy port")
	}
	port, err := strconv.Atoi(m[1])
	if err != nil || port == 0 {
		return "", 0, fmt.Errorf("connect output contained an invalid proxy port %q", m[1])
	}

	return address, port, nil
}
