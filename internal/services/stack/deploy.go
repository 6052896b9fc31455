package stack

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"nathanbeddoewebdev/sdcomfy/internal/cfn"
	"nathanbeddoewebdev/sdcomfy/internal/deployments"
	"nathanbeddoewebdev/sdcomfy/internal/descriptor"
	"nathanbeddoewebdev/sdcomfy/internal/domain"
)

// Tags applied to every stack the CLI deploys.
const (
	TagManagedBy = "sdcomfy:managed-by"
	TagVariant   = "sdcomfy:variant"
)

// provisioningMargin is the engine time allowed on top of the readiness
// signal window for the resources created before the instance boots.
const provisioningMargin = 15 * time.Minute

// DeployInput is a deployment request from the CLI.
type DeployInput struct {
	Options descriptor.Options
	// TemplateBucket stages templates above the inline body limit.
	TemplateBucket  string
	DisableRollback bool
	RefreshLookups  bool
}

// DeployOutcome reports what a deployment started.
type DeployOutcome struct {
	Plan *Plan
	// Operation is nil when the engine reported nothing to change.
	Operation *Operation
	NoChanges bool
}

// Operation is an engine operation that can be awaited.
type Operation struct {
	StackName string
	StackID   string
	Kind      domain.Operation
	StartedAt time.Time

	// Record is nil when deployment history is unavailable.
	Record *deployments.Record
}

// OperationFromRecord rebuilds an awaitable operation from a stored record.
func OperationFromRecord(r *deployments.Record) *Operation {
	return &Operation{
		StackName: r.StackName,
		StackID:   r.StackID,
		Kind:      r.Operation,
		StartedAt: r.CreatedAt,
		Record:    r,
	}
}

// Deploy synthesizes the plan and submits it. A stack left unusable by a
// failed create is deleted first. Progress messages go to w.
func (s *Service) Deploy(ctx context.Context, in DeployInput, w io.Writer) (*DeployOutcome, error) {
	plan, err := s.Synthesize(ctx, in.Options, "json", in.RefreshLookups)
	if err != nil {
		return nil, err
	}
	name := in.Options.StackName

	if err := s.replaceIfBroken(ctx, name, w); err != nil {
		return nil, err
	}

	req := domain.DeployRequest{
		StackName:       name,
		DisableRollback: in.DisableRollback,
		TimeoutMinutes:  engineTimeoutMinutes(s.timeouts.Deploy, plan.Descriptor.Options().SignalTimeout),
		Tags: map[string]string{
			TagManagedBy: "sdcomfy",
			TagVariant:   string(plan.Descriptor.Options().Strategy),
		},
	}

	if cfn.NeedsStaging(plan.Body) {
		url, err := s.stage(ctx, name, in.TemplateBucket, plan.Body)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(w, "Template staged at %s\n", url)
		req.TemplateURL = url
	} else {
		req.TemplateBody = string(plan.Body)
	}

	started := time.Now().UTC()
	result, err := s.provider.DeployStack(ctx, req)
	if errors.Is(err, domain.ErrNoChanges) {
		return &DeployOutcome{Plan: plan, NoChanges: true}, nil
	}
	if err != nil {
		return nil, err
	}

	op := &Operation{
		StackName: name,
		StackID:   result.StackID,
		Kind:      result.Operation,
		StartedAt: started,
		Record:    s.track(name, result.StackID, result.Operation),
	}
	return &DeployOutcome{Plan: plan, Operation: op}, nil
}

// replaceIfBroken deletes a stack that can only be recreated and waits for
// the deletion to finish.
func (s *Service) replaceIfBroken(ctx context.Context, name string, w io.Writer) error {
	existing, err := s.provider.GetStack(ctx, name)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !existing.NeedsReplacement() {
		return nil
	}

	fmt.Fprintf(w, "Stack %s is %s and cannot be updated; deleting it first.\n", name, existing.Status)
	op, err := s.startDelete(ctx, existing)
	if err != nil {
		return err
	}
	if _, err := s.Await(ctx, op, TextObserver(w)); err != nil {
		return fmt.Errorf("failed to delete broken stack %s: %w", name, err)
	}
	return nil
}

func (s *Service) stage(ctx context.Context, name, bucket string, body []byte) (string, error) {
	stager, ok := s.provider.(domain.TemplateStager)
	if !ok {
		return "", fmt.Errorf("template is %d bytes (inline limit %d) and %s cannot stage templates",
			len(body), cfn.MaxBodySize, s.provider.GetDisplayName())
	}
	if bucket == "" {
		return "", fmt.Errorf("template is %d bytes (inline limit %d); set a staging bucket with 'sdcomfy config set template-bucket <bucket>'",
			len(body), cfn.MaxBodySize)
	}

	sum := sha256.Sum256(body)
	key := fmt.Sprintf("sdcomfy/%s/%s.json", name, hex.EncodeToString(sum[:])[:16])
	return stager.StageTemplate(ctx, bucket, key, body)
}

// Destroy requests deletion of the stack. It returns an error wrapping
// domain.ErrNotFound when the stack does not exist.
func (s *Service) Destroy(ctx context.Context, name string) (*Operation, error) {
	existing, err := s.provider.GetStack(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.startDelete(ctx, existing)
}

func (s *Service) startDelete(ctx context.Context, existing *domain.Stack) (*Operation, error) {
	started := time.Now().UTC()
	if err := s.provider.DeleteStack(ctx, existing.Name); err != nil {
		return nil, err
	}
	return &Operation{
		StackName: existing.Name,
		StackID:   existing.ID,
		Kind:      domain.OperationDelete,
		StartedAt: started,
		Record:    s.track(existing.Name, existing.ID, domain.OperationDelete),
	}, nil
}

// engineTimeoutMinutes is the stack deadline the engine enforces. It is
// the client wait bound, floored at the readiness window plus
// provisioningMargin so a shorter client wait never fails the stack early.
func engineTimeoutMinutes(wait, signal time.Duration) int32 {
	d := max(wait, signal+provisioningMargin)
	return int32(math.Ceil(d.Minutes()))
}
