package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nathanbeddoewebdev/sdcomfy/internal/domain"
	"nathanbeddoewebdev/sdcomfy/internal/services/auth"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// requestTimeout bounds each attempt of an API call.
const requestTimeout = 30 * time.Second

// Compile-time checks that AWSProvider satisfies the provider interfaces.
var (
	_ domain.Provider         = (*AWSProvider)(nil)
	_ domain.TemplateStager   = (*AWSProvider)(nil)
	_ domain.OfferingProvider = (*AWSProvider)(nil)
)

// The narrow API surfaces the provider uses, so tests can substitute fakes
// for the SDK clients.
type (
	cloudFormationAPI interface {
		CreateStack(ctx context.Context, in *cloudformation.CreateStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.CreateStackOutput, error)
		UpdateStack(ctx context.Context, in *cloudformation.UpdateStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.UpdateStackOutput, error)
		DeleteStack(ctx context.Context, in *cloudformation.DeleteStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DeleteStackOutput, error)
		DescribeStacks(ctx context.Context, in *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error)
		DescribeStackEvents(ctx context.Context, in *cloudformation.DescribeStackEventsInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStackEventsOutput, error)
	}

	ec2API interface {
		DescribeVpcs(ctx context.Context, in *ec2.DescribeVpcsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVpcsOutput, error)
		DescribeSubnets(ctx context.Context, in *ec2.DescribeSubnetsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSubnetsOutput, error)
		DescribeInstanceTypeOfferings(ctx context.Context, in *ec2.DescribeInstanceTypeOfferingsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstanceTypeOfferingsOutput, error)
	}

	ssmAPI interface {
		GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	}

	stsAPI interface {
		GetCallerIdentity(ctx context.Context, in *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
	}

	s3API interface {
		PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	}
)

// AWSProvider implements domain.Provider with CloudFormation as the
// provisioning engine.
type AWSProvider struct {
	region string
	cfn    cloudFormationAPI
	ec2    ec2API
	ssm    ssmAPI
	sts    stsAPI
	s3     s3API

	// accountID is memoized after the first identity call.
	accountID string
}

// NewAWSProvider builds a provider from a loaded SDK config.
func NewAWSProvider(cfg aws.Config) *AWSProvider {
	return &AWSProvider{
		region: cfg.Region,
		cfn:    cloudformation.NewFromConfig(cfg),
		ec2:    ec2.NewFromConfig(cfg),
		ssm:    ssm.NewFromConfig(cfg),
		sts:    sts.NewFromConfig(cfg),
		s3:     s3.NewFromConfig(cfg),
	}
}

// LoadAWSConfig resolves SDK configuration for target. Credentials saved
// with 'sdcomfy auth login' take precedence over the default chain.
func LoadAWSConfig(ctx context.Context, store auth.Store, target Target) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if target.Region != "" {
		opts = append(opts, awsconfig.WithRegion(target.Region))
	}
	if target.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(target.Profile))
	}

	if store != nil {
		creds, err := auth.LoadAWSCredentials(store)
		switch {
		case err == nil:
			opts = append(opts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken)))
		case errors.Is(err, auth.ErrTokenNotFound), errors.Is(err, auth.ErrStoreUnavailable):
		default:
			return aws.Config{}, fmt.Errorf("aws auth: %w", err)
		}
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.Region == "" {
		return aws.Config{}, errors.New("aws: no region configured (set one with 'sdcomfy config set region <region>' or AWS_REGION)")
	}
	return cfg, nil
}

// RegisterAWS registers the AWS provider factory with the global registry.
func RegisterAWS() {
	Register("aws", func(store auth.Store, target Target) (domain.Provider, error) {
		cfg, err := LoadAWSConfig(context.Background(), store, target)
		if err != nil {
			return nil, err
		}
		return NewAWSProvider(cfg), nil
	})
}

func (p *AWSProvider) GetDisplayName() string {
	return "AWS"
}

// Region returns the region every call is made against.
func (p *AWSProvider) Region() string {
	return p.region
}

// AccountID returns the account the credentials belong to.
func (p *AWSProvider) AccountID(ctx context.Context) (string, error) {
	if p.accountID != "" {
		return p.accountID, nil
	}

	var out *sts.GetCallerIdentityOutput
	err := p.call(ctx, func(reqCtx context.Context) error {
		var apiErr error
		out, apiErr = p.sts.GetCallerIdentity(reqCtx, &sts.GetCallerIdentityInput{})
		return apiErr
	})
	if err != nil {
		return "", classify("get caller identity", err)
	}

	p.accountID = aws.ToString(out.Account)
	return p.accountID, nil
}
