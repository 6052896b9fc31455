package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// AWSProvider is the store key AWS credentials are saved under.
const AWSProvider = "aws"

// AWSCredentials is a static access key pair kept in the keychain as an
// alternative to the shared credentials file.
type AWSCredentials struct {
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	SessionToken    string `json:"session_token,omitempty"`
}

// Validate checks that both halves of the key pair are present.
func (c AWSCredentials) Validate() error {
	if strings.TrimSpace(c.AccessKeyID) == "" {
		return errors.New("access key ID is required")
	}
	if strings.TrimSpace(c.SecretAccessKey) == "" {
		return errors.New("secret access key is required")
	}
	return nil
}

// MaskedKeyID returns the access key ID with all but the last four
// characters hidden.
func (c AWSCredentials) MaskedKeyID() string {
	id := c.AccessKeyID
	if len(id) <= 4 {
		return strings.Repeat("*", len(id))
	}
	return strings.Repeat("*", len(id)-4) + id[len(id)-4:]
}

// SaveAWSCredentials stores creds in the given store.
func SaveAWSCredentials(store Store, creds AWSCredentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("auth: encode credentials: %w", err)
	}
	return store.SetToken(AWSProvider, string(data))
}

// LoadAWSCredentials reads credentials saved by SaveAWSCredentials. It
// returns ErrTokenNotFound when none are stored.
func LoadAWSCredentials(store Store) (AWSCredentials, error) {
	raw, err := store.GetToken(AWSProvider)
	if err != nil {
		return AWSCredentials{}, err
	}
	var creds AWSCredentials
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return AWSCredentials{}, fmt.Errorf("auth: decode stored credentials: %w", err)
	}
	if err := creds.Validate(); err != nil {
		return AWSCredentials{}, fmt.Errorf("auth: stored credentials: %w", err)
	}
	return creds, nil
}
