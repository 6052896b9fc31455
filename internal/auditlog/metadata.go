package auditlog

import "context"

// Metadata describes where a command ran and what it acted on. Commands
// attach it to their context as they learn it; the root command reads the
// merged result when recording.
type Metadata struct {
	Provider     string
	Region       string
	ResourceType string
	ResourceID   string
	ResourceName string
}

// StackResource returns metadata naming a stack.
func StackResource(name string) Metadata {
	return Metadata{ResourceType: ResourceStack, ResourceName: name}
}

// KeyResource returns metadata naming the key pair of a stack.
func KeyResource(stackName string) Metadata {
	return Metadata{ResourceType: ResourceKey, ResourceName: stackName}
}

// AppResource returns metadata naming the application running on a stack.
func AppResource(stackName string) Metadata {
	return Metadata{ResourceType: ResourceApp, ResourceName: stackName}
}

type metadataKey struct{}

// WithMetadata returns ctx carrying meta layered over any metadata already
// attached. Empty fields of meta keep the earlier values.
func WithMetadata(ctx context.Context, meta Metadata) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, metadataKey{}, meta.over(MetadataFromContext(ctx)))
}

// MetadataFromContext returns the metadata attached to ctx, if any.
func MetadataFromContext(ctx context.Context) Metadata {
	if ctx == nil {
		return Metadata{}
	}
	meta, _ := ctx.Value(metadataKey{}).(Metadata)
	return meta
}

func (m Metadata) over(base Metadata) Metadata {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&base.Provider, m.Provider)
	set(&base.Region, m.Region)
	set(&base.ResourceType, m.ResourceType)
	set(&base.ResourceID, m.ResourceID)
	set(&base.ResourceName, m.ResourceName)
	return base
}
