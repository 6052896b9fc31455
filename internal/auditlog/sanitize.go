package auditlog

import "strings"

const redacted = "<redacted>"

// secretFlagWords mark a flag as carrying a credential when they appear in
// its name.
var secretFlagWords = []string{"secret", "token", "password", "access-key"}

// SanitizeArgs returns args with the values of credential flags replaced,
// in both the "--flag value" and "--flag=value" forms.
func SanitizeArgs(args []string) []string {
	out := make([]string, len(args))
	redactNext := false
	for i, arg := range args {
		switch {
		case redactNext:
			out[i] = redacted
			redactNext = false
		case !strings.HasPrefix(arg, "-"):
			out[i] = arg
		default:
			name, _, inline := strings.Cut(arg, "=")
			switch {
			case !isSecretFlag(name):
				out[i] = arg
			case inline:
				out[i] = name + "=" + redacted
			default:
				out[i] = arg
				redactNext = true
			}
		}
	}
	if redactNext {
		out = append(out, redacted)
	}
	return out
}

func isSecretFlag(flag string) bool {
	if flag == "--" {
		return false
	}
	name := strings.ToLower(strings.TrimLeft(flag, "-"))
	for _, w := range secretFlagWords {
		if strings.Contains(name, w) {
			return true
		}
	}
	return false
}
