package providers

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"nathanbeddoewebdev/sdcomfy/internal/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
)

// stackCapabilities acknowledges that the template creates IAM resources.
var stackCapabilities = []cfntypes.Capability{cfntypes.CapabilityCapabilityIam}

// DeployStack creates the stack, or updates it when it already exists.
// An update that changes nothing returns an error wrapping
// domain.ErrNoChanges.
func (p *AWSProvider) DeployStack(ctx context.Context, req domain.DeployRequest) (*domain.DeployResult, error) {
	if req.StackName == "" {
		return nil, errors.New("stack name is required")
	}
	if (req.TemplateBody == "") == (req.TemplateURL == "") {
		return nil, errors.New("exactly one of template body and template URL must be set")
	}

	existing, err := p.GetStack(ctx, req.StackName)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		existing = nil
	case err != nil:
		return nil, err
	}

	if existing == nil {
		return p.createStack(ctx, req)
	}
	if existing.IsInProgress() {
		return nil, fmt.Errorf("stack %s is %s: %w", req.StackName, existing.Status, domain.ErrConflict)
	}
	return p.updateStack(ctx, req)
}

func (p *AWSProvider) createStack(ctx context.Context, req domain.DeployRequest) (*domain.DeployResult, error) {
	in := &cloudformation.CreateStackInput{
		StackName:    aws.String(req.StackName),
		Parameters:   toStackParameters(req.Parameters),
		Tags:         toStackTags(req.Tags),
		Capabilities: stackCapabilities,
	}
	if req.TemplateBody != "" {
		in.TemplateBody = aws.String(req.TemplateBody)
	} else {
		in.TemplateURL = aws.String(req.TemplateURL)
	}
	if req.DisableRollback {
		in.DisableRollback = aws.Bool(true)
	}
	if req.TimeoutMinutes > 0 {
		in.TimeoutInMinutes = aws.Int32(req.TimeoutMinutes)
	}

	var out *cloudformation.CreateStackOutput
	err := p.call(ctx, func(reqCtx context.Context) error {
		var apiErr error
		out, apiErr = p.cfn.CreateStack(reqCtx, in)
		return apiErr
	})
	if err != nil {
		return nil, classify("create stack", err)
	}

	return &domain.DeployResult{StackID: aws.ToString(out.StackId), Operation: domain.OperationCreate}, nil
}

func (p *AWSProvider) updateStack(ctx context.Context, req domain.DeployRequest) (*domain.DeployResult, error) {
	in := &cloudformation.UpdateStackInput{
		StackName:    aws.String(req.StackName),
		Parameters:   toStackParameters(req.Parameters),
		Tags:         toStackTags(req.Tags),
		Capabilities: stackCapabilities,
	}
	if req.TemplateBody != "" {
		in.TemplateBody = aws.String(req.TemplateBody)
	} else {
		in.TemplateURL = aws.String(req.TemplateURL)
	}
	if req.DisableRollback {
		in.DisableRollback = aws.Bool(true)
	}

	var out *cloudformation.UpdateStackOutput
	err := p.call(ctx, func(reqCtx context.Context) error {
		var apiErr error
		out, apiErr = p.cfn.UpdateStack(reqCtx, in)
		return apiErr
	})
	if err != nil {
		return nil, classify("update stack", err)
	}

	return &domain.DeployResult{StackID: aws.ToString(out.StackId), Operation: domain.OperationUpdate}, nil
}

// GetStack returns the stack, or an error wrapping domain.ErrNotFound.
func (p *AWSProvider) GetStack(ctx context.Context, name string) (*domain.Stack, error) {
	var out *cloudformation.DescribeStacksOutput
	err := p.call(ctx, func(reqCtx context.Context) error {
		var apiErr error
		out, apiErr = p.cfn.DescribeStacks(reqCtx, &cloudformation.DescribeStacksInput{StackName: aws.String(name)})
		return apiErr
	})
	if err != nil {
		return nil, classify("describe stack "+name, err)
	}
	if len(out.Stacks) == 0 {
		return nil, fmt.Errorf("stack %s: %w", name, domain.ErrNotFound)
	}

	return toDomainStack(out.Stacks[0]), nil
}

// ListStackEvents returns up to limit events, newest first. A limit of
// zero or less returns the first page.
func (p *AWSProvider) ListStackEvents(ctx context.Context, name string, limit int) ([]domain.StackEvent, error) {
	var events []domain.StackEvent
	var token *string
	for {
		var out *cloudformation.DescribeStackEventsOutput
		err := p.call(ctx, func(reqCtx context.Context) error {
			var apiErr error
			out, apiErr = p.cfn.DescribeStackEvents(reqCtx, &cloudformation.DescribeStackEventsInput{
				StackName: aws.String(name),
				NextToken: token,
			})
			return apiErr
		})
		if err != nil {
			return nil, classify("describe stack events", err)
		}

		for _, e := range out.StackEvents {
			events = append(events, toDomainEvent(e))
			if limit > 0 && len(events) >= limit {
				return events, nil
			}
		}

		token = out.NextToken
		if token == nil || limit <= 0 {
			return events, nil
		}
	}
}

// DeleteStack requests deletion of the stack. Deleting a stack that does
// not exist is not an error.
func (p *AWSProvider) DeleteStack(ctx context.Context, name string) error {
	err := p.call(ctx, func(reqCtx context.Context) error {
		_, apiErr := p.cfn.DeleteStack(reqCtx, &cloudformation.DeleteStackInput{StackName: aws.String(name)})
		return apiErr
	})
	if err != nil {
		return classify("delete stack "+name, err)
	}
	return nil
}

func toStackParameters(params map[string]string) []cfntypes.Parameter {
	if len(params) == 0 {
		return nil
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]cfntypes.Parameter, 0, len(keys))
	for _, k := range keys {
		out = append(out, cfntypes.Parameter{ParameterKey: aws.String(k), ParameterValue: aws.String(params[k])})
	}
	return out
}

func toStackTags(tags map[string]string) []cfntypes.Tag {
	if len(tags) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]cfntypes.Tag, 0, len(keys))
	for _, k := range keys {
		out = append(out, cfntypes.Tag{Key: aws.String(k), Value: aws.String(tags[k])})
	}
	return out
}

func toDomainStack(s cfntypes.Stack) *domain.Stack {
	stack := &domain.Stack{
		Name:         aws.ToString(s.StackName),
		ID:           aws.ToString(s.StackId),
		Status:       string(s.StackStatus),
		StatusReason: aws.ToString(s.StackStatusReason),
		CreatedAt:    aws.ToTime(s.CreationTime),
		UpdatedAt:    aws.ToTime(s.LastUpdatedTime),
	}
	if len(s.Outputs) > 0 {
		stack.Outputs = make(map[string]string, len(s.Outputs))
		for _, o := range s.Outputs {
			stack.Outputs[aws.ToString(o.OutputKey)] = aws.ToString(o.OutputValue)
		}
	}
	return stack
}

func toDomainEvent(e cfntypes.StackEvent) domain.StackEvent {
	return domain.StackEvent{
		ID:           aws.ToString(e.EventId),
		Timestamp:    aws.ToTime(e.Timestamp),
		LogicalID:    aws.ToString(e.LogicalResourceId),
		ResourceType: aws.ToString(e.ResourceType),
		Status:       string(e.ResourceStatus),
		Reason:       aws.ToString(e.ResourceStatusReason),
	}
}
