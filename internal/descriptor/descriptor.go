package descriptor

import (
	"fmt"

	"nathanbeddoewebdev/sdcomfy/internal/bootstrap"
	"nathanbeddoewebdev/sdcomfy/internal/cfn"
	"nathanbeddoewebdev/sdcomfy/internal/domain"
)

// Logical IDs of the declared resources.
const (
	ImageParameterID  = "ImageId"
	KeyPairID         = "KeyPair"
	SecurityGroupID   = "SecurityGroup"
	InstanceRoleID    = "InstanceRole"
	InstancePolicyID  = "InstanceRolePolicy"
	InstanceProfileID = "InstanceProfile"
	InstanceID        = "Instance"
)

// Resource types.
const (
	TypeInstance        = "AWS::EC2::Instance"
	TypeKeyPair         = "AWS::EC2::KeyPair"
	TypeSecurityGroup   = "AWS::EC2::SecurityGroup"
	TypeRole            = "AWS::IAM::Role"
	TypePolicy          = "AWS::IAM::Policy"
	TypeInstanceProfile = "AWS::IAM::InstanceProfile"

	imageParameterType = "AWS::SSM::Parameter::Value<AWS::EC2::Image::Id>"
	rootDevice         = "/dev/sda1"
	initConfigSet      = "default"
	anyIPv4            = "0.0.0.0/0"
)

// Descriptor is the declarative description of one ComfyUI host: image,
// instance shape, bootstrap, access key, firewall and outputs. All of it
// lives in one stack and shares its lifecycle.
type Descriptor struct {
	opts   Options
	region string
	script bootstrap.Script
}

// New validates opts and prepares a descriptor for region.
func New(opts Options, region string) (*Descriptor, error) {
	if opts.Strategy == "" {
		opts.Strategy = domain.DriverManual
	}
	if region == "" {
		return nil, fmt.Errorf("descriptor: region is required")
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("descriptor: %w", err)
	}
	script, err := bootstrap.ForStrategy(opts.Strategy)
	if err != nil {
		return nil, fmt.Errorf("descriptor: %w", err)
	}
	return &Descriptor{opts: opts, region: region, script: script}, nil
}

// Options returns the options the descriptor was built from.
func (d *Descriptor) Options() Options { return d.opts }

// Region returns the target region.
func (d *Descriptor) Region() string { return d.region }

// Image returns the boot image selection.
func (d *Descriptor) Image() Image { return d.opts.ImageFor() }

// KeyName returns the key pair name.
func (d *Descriptor) KeyName() string { return d.opts.KeyName() }

// Script returns the bootstrap command sequence.
func (d *Descriptor) Script() bootstrap.Script { return d.script }

// Warnings lists reproducibility concerns the user should know about
// before deploying.
func (d *Descriptor) Warnings() []string {
	var warnings []string
	if img := d.Image(); img.Floating() {
		warnings = append(warnings, fmt.Sprintf(
			"image resolves from %s at every deployment; run 'sdcomfy stack image' and set image-id to pin it",
			img.Parameter))
	}
	if d.opts.AllowHTTPS {
		warnings = append(warnings, "port 443 is open to the internet but nothing listens on it")
	}
	return warnings
}

// Synthesize builds the template for the given network. The same options
// and network always produce the same template.
func (d *Descriptor) Synthesize(network domain.Network) (*cfn.Template, error) {
	if network.VPCID == "" {
		return nil, fmt.Errorf("descriptor: %w", domain.ErrNoDefaultNetwork)
	}
	if network.Region != "" && network.Region != d.region {
		return nil, fmt.Errorf("descriptor: network is in %s, descriptor targets %s", network.Region, d.region)
	}
	subnet, err := network.SelectSubnet(d.opts.AvailabilityZone)
	if err != nil {
		return nil, fmt.Errorf("descriptor: %w", err)
	}

	userData, err := bootstrap.RenderUserData(bootstrap.UserDataParams{
		Script:    d.script,
		Region:    d.region,
		StackName: d.opts.StackName,
		Resource:  InstanceID,
		ConfigSet: initConfigSet,
	})
	if err != nil {
		return nil, fmt.Errorf("descriptor: %w", err)
	}

	t := cfn.New(fmt.Sprintf("Stable Diffusion ComfyUI on a GPU instance (%s)", d.opts.Strategy.Description()))

	var imageID any
	if img := d.Image(); img.Floating() {
		t.Parameters[ImageParameterID] = cfn.Parameter{
			Type:        imageParameterType,
			Default:     img.Parameter,
			Description: "Registry parameter holding the boot image ID",
		}
		imageID = cfn.Ref(ImageParameterID)
	} else {
		imageID = img.PinnedID
	}

	resources := []struct {
		id string
		r  *cfn.Resource
	}{
		{KeyPairID, d.keyPair()},
		{SecurityGroupID, d.securityGroup(network.VPCID)},
		{InstanceRoleID, instanceRole()},
		{InstancePolicyID, instancePolicy()},
		{InstanceProfileID, instanceProfile()},
		{InstanceID, d.instance(imageID, subnet, userData)},
	}
	for _, res := range resources {
		if err := t.AddResource(res.id, res.r); err != nil {
			return nil, fmt.Errorf("descriptor: %w", err)
		}
	}

	for name, out := range d.outputs() {
		t.Outputs[name] = out
	}

	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("descriptor: %w", err)
	}
	return t, nil
}

// Plan synthesizes the template and renders it in format.
func (d *Descriptor) Plan(network domain.Network, format string) ([]byte, error) {
	t, err := d.Synthesize(network)
	if err != nil {
		return nil, err
	}
	return t.Render(format)
}

func (d *Descriptor) keyPair() *cfn.Resource {
	return &cfn.Resource{
		Type: TypeKeyPair,
		Properties: map[string]any{
			"KeyName": d.KeyName(),
			"KeyType": "rsa",
		},
		DeletionPolicy:      cfn.PolicyDelete,
		UpdateReplacePolicy: cfn.PolicyDelete,
	}
}

func (d *Descriptor) securityGroup(vpcID string) *cfn.Resource {
	rule := func(port int, desc string) map[string]any {
		return map[string]any{
			"IpProtocol":  "tcp",
			"FromPort":    port,
			"ToPort":      port,
			"CidrIp":      anyIPv4,
			"Description": desc,
		}
	}
	ingress := []any{rule(22, "Allow SSH")}
	if d.opts.AllowHTTPS {
		ingress = append(ingress, rule(443, "Allow HTTPS"))
	}
	ingress = append(ingress, rule(bootstrap.AppPort, "Allow ComfyUI"))

	return &cfn.Resource{
		Type: TypeSecurityGroup,
		Properties: map[string]any{
			"GroupDescription":     d.opts.StackName + " ComfyUI access",
			"VpcId":                vpcID,
			"SecurityGroupIngress": ingress,
			"SecurityGroupEgress": []any{map[string]any{
				"IpProtocol":  "-1",
				"CidrIp":      anyIPv4,
				"Description": "Allow all outbound traffic",
			}},
		},
	}
}

func instanceRole() *cfn.Resource {
	return &cfn.Resource{
		Type: TypeRole,
		Properties: map[string]any{
			"AssumeRolePolicyDocument": map[string]any{
				"Version": "2012-10-17",
				"Statement": []any{map[string]any{
					"Effect":    "Allow",
					"Principal": map[string]any{"Service": "ec2.amazonaws.com"},
					"Action":    "sts:AssumeRole",
				}},
			},
		},
	}
}

// instancePolicy lets the instance read its own init metadata and send
// the readiness signal.
func instancePolicy() *cfn.Resource {
	return &cfn.Resource{
		Type: TypePolicy,
		Properties: map[string]any{
			"PolicyName": "ReadinessSignal",
			"PolicyDocument": map[string]any{
				"Version": "2012-10-17",
				"Statement": []any{map[string]any{
					"Effect": "Allow",
					"Action": []any{
						"cloudformation:DescribeStackResource",
						"cloudformation:SignalResource",
					},
					"Resource": cfn.Ref("AWS::StackId"),
				}},
			},
			"Roles": []any{cfn.Ref(InstanceRoleID)},
		},
	}
}

func instanceProfile() *cfn.Resource {
	return &cfn.Resource{
		Type: TypeInstanceProfile,
		Properties: map[string]any{
			"Roles": []any{cfn.Ref(InstanceRoleID)},
		},
	}
}

func (d *Descriptor) instance(imageID any, subnet domain.Subnet, userData string) *cfn.Resource {
	return &cfn.Resource{
		Type: TypeInstance,
		Properties: map[string]any{
			"ImageId":            imageID,
			"InstanceType":       d.opts.InstanceType,
			"KeyName":            cfn.Ref(KeyPairID),
			"AvailabilityZone":   subnet.AvailabilityZone,
			"SubnetId":           subnet.ID,
			"SecurityGroupIds":   []any{cfn.GetAtt(SecurityGroupID, "GroupId")},
			"IamInstanceProfile": cfn.Ref(InstanceProfileID),
			"BlockDeviceMappings": []any{map[string]any{
				"DeviceName": rootDevice,
				"Ebs": map[string]any{
					"VolumeSize":          d.opts.VolumeSizeGiB,
					"DeleteOnTermination": true,
				},
			}},
			"UserData": cfn.Base64(userData),
			"Tags": []any{map[string]any{
				"Key":   "Name",
				"Value": d.opts.StackName + "/" + InstanceID,
			}},
		},
		Metadata: map[string]any{
			"AWS::CloudFormation::Init": map[string]any{
				"configSets": map[string]any{
					initConfigSet: []any{"config"},
				},
				"config": map[string]any{
					"commands": map[string]any{
						"000": map[string]any{
							"command": bootstrap.LaunchCommand(d.opts.Strategy),
							"cwd":     bootstrap.AppDir,
						},
					},
				},
			},
		},
		CreationPolicy: &cfn.CreationPolicy{
			ResourceSignal: &cfn.ResourceSignal{
				Count:   1,
				Timeout: cfn.ISODuration(d.opts.SignalTimeout),
			},
		},
		DependsOn: []string{InstancePolicyID, InstanceRoleID},
	}
}
