package bootstrap

import (
	"bytes"
	"fmt"
	"text/template"
)

// UserDataParams holds the substitution values for the user data template.
type UserDataParams struct {
	Script Script
	// Region and StackName address the signal back to the engine.
	Region    string
	StackName string
	// Resource is the logical ID of the instance being signalled.
	Resource string
	// ConfigSet is the init config set cfn-init runs.
	ConfigSet string
}

// RenderUserData renders the first-boot shell script: the bootstrap
// commands followed by cfn-init, which runs the readiness action, and
// cfn-signal, which reports its exit code.
func RenderUserData(p UserDataParams) (string, error) {
	if p.Region == "" {
		return "", fmt.Errorf("region is required")
	}
	if p.StackName == "" {
		return "", fmt.Errorf("stack name is required")
	}
	if p.Resource == "" {
		return "", fmt.Errorf("resource is required")
	}
	if len(p.Script.Commands) == 0 {
		return "", fmt.Errorf("bootstrap script is empty")
	}
	if p.ConfigSet == "" {
		p.ConfigSet = "default"
	}

	tmpl, err := template.New("userdata").Parse(userDataTemplate)
	if err != nil {
		return "", fmt.Errorf("parse user data template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("render user data template: %w", err)
	}

	return buf.String(), nil
}

// userDataTemplate runs without set -e. The signal is always sent, so a
// failed readiness action fails the stack before the timeout.
const userDataTemplate = `#!/bin/bash
{{ range .Script.Commands }}{{ . }}
{{ end }}( set +e; /opt/aws/bin/cfn-init -v --region {{ .Region }} --stack {{ .StackName }} --resource {{ .Resource }} -c {{ .ConfigSet }}; /opt/aws/bin/cfn-signal -e $? --region {{ .Region }} --stack {{ .StackName }} --resource {{ .Resource }}; cat /var/log/cfn-init.log >&2 )
`
