package auth

import (
	"errors"
	"fmt"
)

// Source is one place AWS credentials can come from, in precedence order.
type Source struct {
	Name   string
	Detail string
	// Active is set on the source the CLI will use.
	Active bool
}

// CredentialSources reports which credential sources are configured.
// Keychain credentials win over the environment, which wins over the
// shared profile. getenv is os.Getenv outside tests.
func CredentialSources(store Store, profile string, getenv func(string) string) []Source {
	keychain := Source{Name: "keychain"}
	if creds, err := LoadAWSCredentials(store); err == nil {
		keychain.Detail = "access key " + creds.MaskedKeyID()
		keychain.Active = true
	} else if errors.Is(err, ErrTokenNotFound) {
		keychain.Detail = "not stored"
	} else if errors.Is(err, ErrStoreUnavailable) {
		keychain.Detail = "unavailable"
	} else {
		keychain.Detail = fmt.Sprintf("error: %v", err)
	}

	env := Source{Name: "environment", Detail: "not set"}
	if id := getenv("AWS_ACCESS_KEY_ID"); id != "" {
		env.Detail = "access key " + AWSCredentials{AccessKeyID: id}.MaskedKeyID()
		env.Active = !keychain.Active
	}

	if profile == "" {
		profile = getenv("AWS_PROFILE")
	}
	shared := Source{Name: "profile", Detail: "default"}
	if profile != "" {
		shared.Detail = profile
	}
	shared.Active = !keychain.Active && !env.Active

	return []Source{keychain, env, shared}
}
