// Package descriptor declares the single-instance ComfyUI deployment and
// synthesizes it into a CloudFormation template.
package descriptor

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"nathanbeddoewebdev/sdcomfy/internal/domain"
	"nathanbeddoewebdev/sdcomfy/internal/util"
)

const (
	DefaultStackName     = "StableDiffusionComfyuiEc2Stack"
	DefaultInstanceType  = "g6e.xlarge"
	DefaultKeyFileName   = "comfyui-key-pair.pem"
	DefaultVolumeSizeGiB = 200
	DefaultSignalTimeout = 30 * time.Minute

	// ManualImageParameter points at the current Ubuntu 22.04 image.
	ManualImageParameter = "/aws/service/canonical/ubuntu/server/22.04/stable/current/amd64/hvm/ebs-gp2/ami-id"
	// PrebakedImageParameter points at the current deep learning image
	// with NVIDIA drivers installed.
	PrebakedImageParameter = "/aws/service/deeplearning/ami/x86_64/base-oss-nvidia-driver-gpu-ubuntu-22.04/latest/ami-id"

	maxVolumeSizeGiB = 16384
	maxSignalTimeout = 12 * time.Hour
)

// Options parameterizes the descriptor. The zero value is not valid; start
// from DefaultOptions.
type Options struct {
	StackName    string
	Strategy     domain.DriverStrategy
	InstanceType string
	// AvailabilityZone pins the instance to one zone. Empty lets the
	// subnet selection pick.
	AvailabilityZone string
	VolumeSizeGiB    int
	KeyFileName      string
	// ImageParameter overrides the strategy's default image parameter path.
	ImageParameter string
	// PinnedImageID bypasses the parameter lookup entirely so repeated
	// deployments boot the same image.
	PinnedImageID string
	AllowHTTPS    bool
	SignalTimeout time.Duration
}

// DefaultOptions returns the options of the stock deployment.
func DefaultOptions() Options {
	return Options{
		StackName:     DefaultStackName,
		Strategy:      domain.DriverManual,
		InstanceType:  DefaultInstanceType,
		VolumeSizeGiB: DefaultVolumeSizeGiB,
		KeyFileName:   DefaultKeyFileName,
		AllowHTTPS:    true,
		SignalTimeout: DefaultSignalTimeout,
	}
}

// Validate reports every invalid option at once.
func (o Options) Validate() error {
	var errs []error
	if err := util.ValidateStackName(o.StackName); err != nil {
		errs = append(errs, err)
	}
	if _, err := domain.ParseDriverStrategy(string(o.Strategy)); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(o.InstanceType) == "" {
		errs = append(errs, errors.New("instance type must not be empty"))
	}
	if o.VolumeSizeGiB <= 0 || o.VolumeSizeGiB > maxVolumeSizeGiB {
		errs = append(errs, fmt.Errorf("volume size must be between 1 and %d GiB, got %d", maxVolumeSizeGiB, o.VolumeSizeGiB))
	}
	if err := util.ValidateKeyFileName(o.KeyFileName); err != nil {
		errs = append(errs, err)
	}
	if o.PinnedImageID != "" {
		if o.ImageParameter != "" {
			errs = append(errs, errors.New("image ID and image parameter are mutually exclusive"))
		}
		if !strings.HasPrefix(o.PinnedImageID, "ami-") {
			errs = append(errs, fmt.Errorf("image ID %q must start with ami-", o.PinnedImageID))
		}
	}
	if o.ImageParameter != "" && !strings.HasPrefix(o.ImageParameter, "/") {
		errs = append(errs, fmt.Errorf("image parameter %q must be an absolute parameter path", o.ImageParameter))
	}
	if o.SignalTimeout < time.Minute || o.SignalTimeout > maxSignalTimeout {
		errs = append(errs, fmt.Errorf("signal timeout must be between 1m and %s, got %s", maxSignalTimeout, o.SignalTimeout))
	}
	return errors.Join(errs...)
}

// Image describes how the boot image is chosen.
type Image struct {
	// Parameter is the registry path resolved by the engine at every
	// deployment. Empty when PinnedID is set.
	Parameter string
	PinnedID  string
}

// Floating reports whether the image can change between deployments.
func (i Image) Floating() bool {
	return i.PinnedID == ""
}

// ImageFor returns the image selection the options produce.
func (o Options) ImageFor() Image {
	if o.PinnedImageID != "" {
		return Image{PinnedID: o.PinnedImageID}
	}
	if o.ImageParameter != "" {
		return Image{Parameter: o.ImageParameter}
	}
	return Image{Parameter: DefaultImageParameter(o.Strategy)}
}

// DefaultImageParameter returns the image parameter path for a strategy.
func DefaultImageParameter(strategy domain.DriverStrategy) string {
	if strategy == domain.DriverPrebaked {
		return PrebakedImageParameter
	}
	return ManualImageParameter
}

// KeyName is the key pair name derived from the key file name.
func (o Options) KeyName() string {
	return util.KeyNameFromFile(o.KeyFileName)
}
