package descriptor

import (
	"fmt"
	"strings"

	"nathanbeddoewebdev/sdcomfy/internal/bootstrap"
	"nathanbeddoewebdev/sdcomfy/internal/cfn"
)

// Stack output names.
const (
	OutputInstanceConsole = "InstanceConsole"
	OutputKeyCommand      = "GetSSHKeyCommand"
	OutputPortal          = "ComfyuiPortal"
)

// OutputNames lists the outputs in display order.
func OutputNames() []string {
	return []string{OutputInstanceConsole, OutputKeyCommand, OutputPortal}
}

// KeyParameterPrefix is where the engine stores generated private keys.
const KeyParameterPrefix = "/ec2/keypair/"

func (d *Descriptor) outputs() map[string]cfn.Output {
	keyFile := d.opts.KeyFileName
	return map[string]cfn.Output{
		OutputInstanceConsole: {
			Description: "EC2 console page for the instance",
			Value:       cfn.Sub("https://console.aws.amazon.com/ec2/home?region=${AWS::Region}#Instances:search=${" + InstanceID + "}"),
		},
		OutputKeyCommand: {
			Description: "Command that saves the instance's SSH private key",
			Value: cfn.Join("",
				"aws ssm get-parameter --name "+KeyParameterPrefix,
				cfn.GetAtt(KeyPairID, "KeyPairId"),
				fmt.Sprintf(" --region %s --with-decryption --query Parameter.Value --output text > %s && chmod 400 %s",
					d.region, keyFile, keyFile),
			),
		},
		OutputPortal: {
			Description: "ComfyUI address",
			Value:       cfn.Join("", cfn.GetAtt(InstanceID, "PublicDnsName"), fmt.Sprintf(":%d", bootstrap.AppPort)),
		},
	}
}

// KeyPairIDFromCommand extracts the key pair ID from the value of the
// GetSSHKeyCommand output.
func KeyPairIDFromCommand(command string) (string, error) {
	i := strings.Index(command, KeyParameterPrefix)
	if i < 0 {
		return "", fmt.Errorf("key command does not reference %s", KeyParameterPrefix)
	}
	id := command[i+len(KeyParameterPrefix):]
	if j := strings.IndexAny(id, " \t\n"); j >= 0 {
		id = id[:j]
	}
	if !strings.HasPrefix(id, "key-") {
		return "", fmt.Errorf("key command references %q, not a key pair ID", id)
	}
	return id, nil
}
