package providers

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"nathanbeddoewebdev/sdcomfy/internal/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// KeyParameterPath returns the parameter under which the engine stores a
// generated key pair's private key.
func KeyParameterPath(keyPairID string) string {
	return "/ec2/keypair/" + keyPairID
}

// LookupDefaultNetwork resolves the account's default VPC and its subnets.
func (p *AWSProvider) LookupDefaultNetwork(ctx context.Context) (*domain.Network, error) {
	account, err := p.AccountID(ctx)
	if err != nil {
		return nil, err
	}

	var vpcs *ec2.DescribeVpcsOutput
	err = p.call(ctx, func(reqCtx context.Context) error {
		var apiErr error
		vpcs, apiErr = p.ec2.DescribeVpcs(reqCtx, &ec2.DescribeVpcsInput{
			Filters: []ec2types.Filter{{Name: aws.String("is-default"), Values: []string{"true"}}},
		})
		return apiErr
	})
	if err != nil {
		return nil, classify("look up default VPC", err)
	}
	if len(vpcs.Vpcs) == 0 {
		return nil, fmt.Errorf("region %s of account %s: %w", p.region, account, domain.ErrNoDefaultNetwork)
	}
	vpcID := aws.ToString(vpcs.Vpcs[0].VpcId)

	network := &domain.Network{AccountID: account, Region: p.region, VPCID: vpcID}

	paginator := ec2.NewDescribeSubnetsPaginator(p.ec2, &ec2.DescribeSubnetsInput{
		Filters: []ec2types.Filter{{Name: aws.String("vpc-id"), Values: []string{vpcID}}},
	})
	for paginator.HasMorePages() {
		var page *ec2.DescribeSubnetsOutput
		err := p.call(ctx, func(reqCtx context.Context) error {
			var apiErr error
			page, apiErr = paginator.NextPage(reqCtx)
			return apiErr
		})
		if err != nil {
			return nil, classify("list subnets of "+vpcID, err)
		}
		for _, s := range page.Subnets {
			network.Subnets = append(network.Subnets, domain.Subnet{
				ID:               aws.ToString(s.SubnetId),
				AvailabilityZone: aws.ToString(s.AvailabilityZone),
				Public:           aws.ToBool(s.MapPublicIpOnLaunch),
				DefaultForAZ:     aws.ToBool(s.DefaultForAz),
			})
		}
	}

	sort.Slice(network.Subnets, func(i, j int) bool {
		return network.Subnets[i].ID < network.Subnets[j].ID
	})
	return network, nil
}

// ListInstanceTypeZones returns the availability zones in the current
// region that offer instanceType, sorted.
func (p *AWSProvider) ListInstanceTypeZones(ctx context.Context, instanceType string) ([]string, error) {
	var zones []string
	var token *string
	for {
		var out *ec2.DescribeInstanceTypeOfferingsOutput
		err := p.call(ctx, func(reqCtx context.Context) error {
			var apiErr error
			out, apiErr = p.ec2.DescribeInstanceTypeOfferings(reqCtx, &ec2.DescribeInstanceTypeOfferingsInput{
				LocationType: ec2types.LocationTypeAvailabilityZone,
				Filters:      []ec2types.Filter{{Name: aws.String("instance-type"), Values: []string{instanceType}}},
				NextToken:    token,
			})
			return apiErr
		})
		if err != nil {
			return nil, classify("list offerings for "+instanceType, err)
		}
		for _, o := range out.InstanceTypeOfferings {
			zones = append(zones, aws.ToString(o.Location))
		}
		token = out.NextToken
		if token == nil {
			break
		}
	}
	sort.Strings(zones)
	return zones, nil
}

// ResolveImage returns the image ID a registry parameter currently points to.
func (p *AWSProvider) ResolveImage(ctx context.Context, parameter string) (string, error) {
	value, err := p.getParameter(ctx, parameter, false)
	if err != nil {
		return "", classify("resolve image parameter "+parameter, err)
	}
	if !strings.HasPrefix(value, "ami-") {
		return "", fmt.Errorf("parameter %s does not hold an image ID: %q", parameter, value)
	}
	return value, nil
}

// GetKeyMaterial returns the PEM-encoded private key the engine stored for
// a generated key pair.
func (p *AWSProvider) GetKeyMaterial(ctx context.Context, keyPairID string) (string, error) {
	if keyPairID == "" {
		return "", fmt.Errorf("key pair ID is required")
	}
	value, err := p.getParameter(ctx, KeyParameterPath(keyPairID), true)
	if err != nil {
		return "", classify("fetch private key for "+keyPairID, err)
	}
	return value, nil
}

func (p *AWSProvider) getParameter(ctx context.Context, name string, decrypt bool) (string, error) {
	var out *ssm.GetParameterOutput
	err := p.call(ctx, func(reqCtx context.Context) error {
		var apiErr error
		out, apiErr = p.ssm.GetParameter(reqCtx, &ssm.GetParameterInput{
			Name:           aws.String(name),
			WithDecryption: aws.Bool(decrypt),
		})
		return apiErr
	})
	if err != nil {
		return "", err
	}
	if out.Parameter == nil {
		return "", fmt.Errorf("parameter %s: %w", name, domain.ErrNotFound)
	}
	return aws.ToString(out.Parameter.Value), nil
}

// StageTemplate uploads a template body to bucket and returns the URL the
// engine can deploy it from.
func (p *AWSProvider) StageTemplate(ctx context.Context, bucket, key string, body []byte) (string, error) {
	if bucket == "" {
		return "", fmt.Errorf("template bucket is required")
	}
	err := p.call(ctx, func(reqCtx context.Context) error {
		_, apiErr := p.s3.PutObject(reqCtx, &s3.PutObjectInput{
			Bucket:        aws.String(bucket),
			Key:           aws.String(key),
			Body:          bytes.NewReader(body),
			ContentLength: aws.Int64(int64(len(body))),
			ContentType:   aws.String("application/json"),
		})
		return apiErr
	})
	if err != nil {
		return "", classify(fmt.Sprintf("upload template to s3://%s/%s", bucket, key), err)
	}

	u := url.URL{
		Scheme: "https",
		Host:   fmt.Sprintf("%s.s3.%s.amazonaws.com", bucket, p.region),
		Path:   "/" + key,
	}
	return u.String(), nil
}
