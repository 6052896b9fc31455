package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"nathanbeddoewebdev/sdcomfy/internal/descriptor"
	"nathanbeddoewebdev/sdcomfy/internal/domain"
	"nathanbeddoewebdev/sdcomfy/internal/services/stack"
	"nathanbeddoewebdev/sdcomfy/internal/util"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"golang.org/x/sync/errgroup"
)

// ErrAborted is returned when a user cancels the interactive flow.
var ErrAborted = errors.New("deployment aborted by user")

// InstanceTypeSpec describes a GPU instance type offered in the wizard.
type InstanceTypeSpec struct {
	Name   string
	GPU    string
	VCPUs  int
	Memory int // GiB
}

// GPUInstanceTypes are the instance types suggested by the wizard. Any
// other type can still be set with 'sdcomfy config set instance-type'.
var GPUInstanceTypes = []InstanceTypeSpec{
	{Name: "g6e.xlarge", GPU: "1x NVIDIA L40S 48 GB", VCPUs: 4, Memory: 32},
	{Name: "g6e.2xlarge", GPU: "1x NVIDIA L40S 48 GB", VCPUs: 8, Memory: 64},
	{Name: "g6.xlarge", GPU: "1x NVIDIA L4 24 GB", VCPUs: 4, Memory: 16},
	{Name: "g6.2xlarge", GPU: "1x NVIDIA L4 24 GB", VCPUs: 8, Memory: 32},
	{Name: "g5.xlarge", GPU: "1x NVIDIA A10G 24 GB", VCPUs: 4, Memory: 16},
	{Name: "g5.2xlarge", GPU: "1x NVIDIA A10G 24 GB", VCPUs: 8, Memory: 32},
	{Name: "g4dn.xlarge", GPU: "1x NVIDIA T4 16 GB", VCPUs: 4, Memory: 16},
}

type environment struct {
	network      *domain.Network
	offered      []string
	offeringsOK  bool
	imageID      string
	imageLookErr error
}

// DeployForm runs an interactive wizard that collects deployment options.
// The stack name, variant and instance type are chosen first; the network
// and zone offerings for the chosen type are then fetched concurrently so
// the zone list only shows zones that can run the instance.
func DeployForm(ctx context.Context, svc *stack.Service, prefill descriptor.Options) (*descriptor.Options, error) {
	accessible := os.Getenv("ACCESSIBLE") != ""
	opts := prefill

	// --- Form 1: Stack name + variant + instance type ---

	nameField := huh.NewInput().
		Title("Stack name").
		Value(&opts.StackName).
		Validate(func(value string) error {
			return util.ValidateStackName(strings.TrimSpace(value))
		})

	variantField := huh.NewSelect[domain.DriverStrategy]().
		Title("Variant").
		Options(buildVariantOptions()...).
		Value(&opts.Strategy)

	typeOpts := buildInstanceTypeOptions(GPUInstanceTypes, opts.InstanceType)
	typeField := huh.NewSelect[string]().
		Title("Instance type").
		Options(typeOpts...).
		Value(&opts.InstanceType).
		Height(selectHeight(len(typeOpts), 10)).
		Validate(huh.ValidateNotEmpty())

	if err := runForm(accessible,
		huh.NewGroup(nameField),
		huh.NewGroup(variantField),
		huh.NewGroup(typeField),
	); err != nil {
		return nil, err
	}
	opts.StackName = strings.TrimSpace(opts.StackName)

	// --- Fetch network, offerings and image concurrently ---

	var env environment
	fetchErr := spinner.New().
		Title("Looking up network and zone offerings...").
		Accessible(accessible).
		Output(os.Stderr).
		ActionWithErr(func(spinCtx context.Context) error {
			var err error
			env, err = fetchEnvironment(spinCtx, svc, opts)
			return err
		}).
		Context(ctx).
		Run()
	if fetchErr != nil {
		if errors.Is(fetchErr, huh.ErrUserAborted) || errors.Is(fetchErr, context.Canceled) {
			return nil, ErrAborted
		}
		return nil, fetchErr
	}

	zones := env.network.Zones()
	if env.offeringsOK {
		zones = stack.IntersectZones(zones, env.offered)
	}
	if len(zones) == 0 {
		return nil, fmt.Errorf("instance type %s is not offered in any zone with a public subnet in %s",
			opts.InstanceType, svc.Provider().Region())
	}
	// Subnet selection without a pin may land in a zone that lacks the
	// instance type, so the wizard always pins one.
	if !contains(zones, opts.AvailabilityZone) {
		opts.AvailabilityZone = zones[0]
	}

	// --- Form 2: Zone + HTTPS + confirm ---

	zoneOpts := buildZoneOptions(zones)
	zoneField := huh.NewSelect[string]().
		Title("Availability zone").
		Options(zoneOpts...).
		Value(&opts.AvailabilityZone).
		Height(selectHeight(len(zoneOpts), 8))

	httpsField := huh.NewConfirm().
		Title("Open port 443?").
		Description("Nothing listens on 443 until you add a TLS proxy.").
		Value(&opts.AllowHTTPS)

	confirm := false
	summaryNote := huh.NewNote().
		Title("Summary").
		DescriptionFunc(func() string {
			return buildDeploySummary(opts, svc.Provider().Region(), env)
		}, &opts)

	confirmField := huh.NewConfirm().
		Title("Deploy this stack?").
		Value(&confirm)

	if err := runForm(accessible,
		huh.NewGroup(zoneField),
		huh.NewGroup(httpsField),
		huh.NewGroup(summaryNote, confirmField),
	); err != nil {
		return nil, err
	}

	if !confirm {
		return nil, ErrAborted
	}
	return &opts, nil
}

// runForm creates and runs a huh.Form, translating ErrUserAborted to ErrAborted.
func runForm(accessible bool, groups ...*huh.Group) error {
	err := huh.NewForm(groups...).WithAccessible(accessible).Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return ErrAborted
		}
		return err
	}
	return nil
}

// fetchEnvironment looks up the network, the zone offerings and the image
// the options resolve to. A failed image lookup is reported in the summary
// instead of failing the wizard.
func fetchEnvironment(ctx context.Context, svc *stack.Service, opts descriptor.Options) (environment, error) {
	var env environment
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		network, err := svc.ResolveNetwork(gctx, false)
		if err != nil {
			return fmt.Errorf("failed to look up default network: %w", err)
		}
		env.network = network
		return nil
	})
	g.Go(func() error {
		offered, ok, err := svc.OfferedZones(gctx, opts.InstanceType)
		if err != nil {
			return fmt.Errorf("failed to list zones offering %s: %w", opts.InstanceType, err)
		}
		env.offered, env.offeringsOK = offered, ok
		return nil
	})
	g.Go(func() error {
		_, id, err := svc.ResolveImage(gctx, opts)
		env.imageID, env.imageLookErr = id, err
		return nil
	})

	if err := g.Wait(); err != nil {
		return environment{}, err
	}
	return env, nil
}

// --- Option builders ---

func buildVariantOptions() []huh.Option[domain.DriverStrategy] {
	strategies := domain.DriverStrategies()
	options := make([]huh.Option[domain.DriverStrategy], 0, len(strategies))
	for _, s := range strategies {
		options = append(options, huh.NewOption(string(s)+" - "+s.Description(), s))
	}
	return options
}

func buildInstanceTypeOptions(types []InstanceTypeSpec, selected string) []huh.Option[string] {
	options := make([]huh.Option[string], 0, len(types)+1)
	found := false
	for _, it := range types {
		options = append(options, huh.NewOption(instanceTypeLabel(it), it.Name))
		if it.Name == selected {
			found = true
		}
	}
	if selected != "" && !found {
		options = append(options, huh.NewOption("Custom: "+selected, selected))
	}
	return options
}

func buildZoneOptions(zones []string) []huh.Option[string] {
	options := make([]huh.Option[string], 0, len(zones))
	for _, z := range zones {
		options = append(options, huh.NewOption(z, z))
	}
	return options
}

// --- Summary ---

func buildDeploySummary(opts descriptor.Options, region string, env environment) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Stack: %s\n", strings.TrimSpace(opts.StackName))
	fmt.Fprintf(&b, "Region: %s\n", region)
	fmt.Fprintf(&b, "Variant: %s\n", opts.Strategy)
	fmt.Fprintf(&b, "Instance type: %s\n", opts.InstanceType)
	fmt.Fprintf(&b, "Zone: %s\n", opts.AvailabilityZone)
	fmt.Fprintf(&b, "Ports: %s\n", portList(opts.AllowHTTPS))

	switch {
	case opts.PinnedImageID != "":
		fmt.Fprintf(&b, "Image: %s (pinned)\n", opts.PinnedImageID)
	case env.imageLookErr != nil:
		fmt.Fprintf(&b, "Image: unresolved (%v)\n", env.imageLookErr)
	case env.imageID != "":
		fmt.Fprintf(&b, "Image: %s (floating)\n", env.imageID)
	}
	if env.network != nil {
		fmt.Fprintf(&b, "VPC: %s\n", env.network.VPCID)
	}

	return strings.TrimSpace(b.String())
}

// --- Label helpers ---

func instanceTypeLabel(it InstanceTypeSpec) string {
	return fmt.Sprintf("%s - %s / %d vCPU / %d GiB", it.Name, it.GPU, it.VCPUs, it.Memory)
}

func portList(https bool) string {
	if https {
		return "22, 443, 8080"
	}
	return "22, 8080"
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func selectHeight(optionCount, max int) int {
	if optionCount < max {
		return optionCount
	}
	return max
}
