package stack

import (
	"context"
	"fmt"

	"nathanbeddoewebdev/sdcomfy/internal/cfn"
	"nathanbeddoewebdev/sdcomfy/internal/descriptor"
	"nathanbeddoewebdev/sdcomfy/internal/domain"
	"nathanbeddoewebdev/sdcomfy/internal/offerings"
)

// Plan is a synthesized deployment plan.
type Plan struct {
	Descriptor *descriptor.Descriptor
	Network    domain.Network
	Template   *cfn.Template
	// Body is the template rendered in the requested format.
	Body     []byte
	Warnings []string
}

// ResolveNetwork returns the account's default network in the provider's
// region. A cached lookup is reused unless refresh is set, which also drops
// the region's cached zone offerings.
func (s *Service) ResolveNetwork(ctx context.Context, refresh bool) (*domain.Network, error) {
	region := s.provider.Region()

	if refresh && s.offerings != nil {
		scope, err := s.offeringScope(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.offerings.Invalidate(scope); err != nil {
			return nil, fmt.Errorf("failed to clear cached zone offerings: %w", err)
		}
	}

	var account string
	if s.lookups != nil {
		var err error
		account, err = s.provider.AccountID(ctx)
		if err != nil {
			return nil, err
		}
		if !refresh {
			if entry, err := s.lookups.Get(account, region); err == nil && entry != nil {
				network := entry.Network
				return &network, nil
			}
		}
	}

	network, err := s.provider.LookupDefaultNetwork(ctx)
	if err != nil {
		return nil, err
	}

	if s.lookups != nil {
		if network.AccountID == "" {
			network.AccountID = account
		}
		if network.Region == "" {
			network.Region = region
		}
		_ = s.lookups.Put(*network)
	}
	return network, nil
}

// CheckZone verifies that a pinned availability zone offers the instance
// type. It is a no-op without a pin or when the provider cannot report
// offerings.
func (s *Service) CheckZone(ctx context.Context, opts descriptor.Options) error {
	if opts.AvailabilityZone == "" {
		return nil
	}
	op, ok := s.provider.(domain.OfferingProvider)
	if !ok {
		return nil
	}

	scope, err := s.offeringScope(ctx)
	if err != nil {
		return err
	}
	offered, err := s.offerings.Offered(ctx, op, scope, opts.InstanceType, opts.AvailabilityZone)
	if err != nil {
		return err
	}
	if !offered {
		return fmt.Errorf("instance type %s is not offered in %s", opts.InstanceType, opts.AvailabilityZone)
	}
	return nil
}

// OfferedZones returns the zones in the provider's region that offer
// instanceType. ok is false when the provider cannot report offerings.
func (s *Service) OfferedZones(ctx context.Context, instanceType string) (zones []string, ok bool, err error) {
	op, ok := s.provider.(domain.OfferingProvider)
	if !ok {
		return nil, false, nil
	}
	scope, err := s.offeringScope(ctx)
	if err != nil {
		return nil, true, err
	}
	zones, err = s.offerings.Zones(ctx, op, scope, instanceType)
	if err != nil {
		return nil, true, err
	}
	return zones, true, nil
}

func (s *Service) offeringScope(ctx context.Context) (offerings.Scope, error) {
	account, err := s.provider.AccountID(ctx)
	if err != nil {
		return offerings.Scope{}, err
	}
	return offerings.Scope{AccountID: account, Region: s.provider.Region()}, nil
}

// Zones returns the zones that both have a public subnet in network and
// offer instanceType. Without offering data every public zone qualifies.
func (s *Service) Zones(ctx context.Context, network domain.Network, instanceType string) ([]string, error) {
	offered, ok, err := s.OfferedZones(ctx, instanceType)
	if err != nil {
		return nil, err
	}
	if !ok {
		return network.Zones(), nil
	}
	return IntersectZones(network.Zones(), offered), nil
}

// IntersectZones returns the zones of public that also appear in offered,
// keeping the order of public.
func IntersectZones(public, offered []string) []string {
	set := make(map[string]struct{}, len(offered))
	for _, z := range offered {
		set[z] = struct{}{}
	}

	var out []string
	for _, z := range public {
		if _, ok := set[z]; ok {
			out = append(out, z)
		}
	}
	return out
}

// Synthesize builds the plan for opts and renders it in format.
func (s *Service) Synthesize(ctx context.Context, opts descriptor.Options, format string, refresh bool) (*Plan, error) {
	d, err := descriptor.New(opts, s.provider.Region())
	if err != nil {
		return nil, err
	}
	network, err := s.ResolveNetwork(ctx, refresh)
	if err != nil {
		return nil, err
	}
	if err := s.CheckZone(ctx, opts); err != nil {
		return nil, err
	}

	tmpl, err := d.Synthesize(*network)
	if err != nil {
		return nil, err
	}
	body, err := tmpl.Render(format)
	if err != nil {
		return nil, err
	}

	return &Plan{
		Descriptor: d,
		Network:    *network,
		Template:   tmpl,
		Body:       body,
		Warnings:   d.Warnings(),
	}, nil
}

// ResolveImage reports the image ID the options would boot right now.
func (s *Service) ResolveImage(ctx context.Context, opts descriptor.Options) (descriptor.Image, string, error) {
	img := opts.ImageFor()
	if !img.Floating() {
		return img, img.PinnedID, nil
	}
	id, err := s.provider.ResolveImage(ctx, img.Parameter)
	if err != nil {
		return img, "", err
	}
	return img, id, nil
}
