package googlecalendar

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
)

var ErrTokenInvalid = errors.New("google token file is invalid")

// storedToken accepts both the oauth2 package layout and the Node client
// layout, which stores expiry as milliseconds in expiry_date.
type storedToken struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	RefreshToken string    `json:"refresh_token"`
	Expiry       time.Time `json:"expiry"`
	ExpiryDate   int64     `json:"expiry_date"`
}

// LoadToken reads a previously authorized token. Obtaining the token is
// outside this package.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read google token %q: %w", path, err)
	}
	var stored storedToken
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTokenInvalid, path, err)
	}
	if stored.AccessToken == "" && stored.RefreshToken == "" {
		return nil, fmt.Errorf("%w: %s: no access or refresh token", ErrTokenInvalid, path)
	}
	token := &oauth2.Token{
		AccessToken:  stored.AccessToken,
		TokenType:    stored.TokenType,
		RefreshToken: stored.RefreshToken,
		Expiry:       stored.Expiry,
	}
	if token.Expiry.IsZero() && stored.ExpiryDate > 0 {
		token.Expiry = time.UnixMilli(stored.ExpiryDate)
	}
	return token, nil
}
