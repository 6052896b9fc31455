// Package bootstrap builds the first-boot command sequence that turns a
// fresh GPU instance into a running ComfyUI host.
package bootstrap

import (
	"fmt"
	"strings"

	"nathanbeddoewebdev/sdcomfy/internal/domain"
)

const (
	// AppDir is where ComfyUI is cloned.
	AppDir = "/home/ubuntu/ComfyUI"
	// AppUser owns the checkout and runs the server.
	AppUser = "ubuntu"
	// AppPort is the port ComfyUI listens on.
	AppPort = 8080
	// AppLog is the server log, relative to AppDir.
	AppLog = "sd-comfyui.log"
	// CloudInitLog collects the output of the user data script.
	CloudInitLog = "/var/log/cloud-init-output.log"

	comfyRepo       = "https://github.com/comfyanonymous/ComfyUI"
	torchIndexURL   = "https://download.pytorch.org/whl/cu124"
	cfnBootstrapURL = "https://s3.amazonaws.com/cloudformation-examples/aws-cfn-bootstrap-py3-latest.tar.gz"
	cudaKeyringURL  = "https://developer.download.nvidia.com/compute/cuda/repos/$distribution/x86_64/cuda-keyring_1.1-1_all.deb"
	venvDir         = AppDir + "/venv"
)

// Weight is a model file downloaded at first boot.
type Weight struct {
	// Dir is the models subdirectory, relative to AppDir.
	Dir string
	URL string
}

// Weights lists the model files every instance starts with.
var Weights = []Weight{
	{Dir: "models/checkpoints", URL: "https://huggingface.co/stabilityai/stable-diffusion-xl-base-1.0/resolve/main/sd_xl_base_1.0.safetensors"},
	{Dir: "models/checkpoints", URL: "https://huggingface.co/stabilityai/stable-diffusion-xl-refiner-1.0/resolve/main/sd_xl_refiner_1.0.safetensors"},
	{Dir: "models/vae", URL: "https://huggingface.co/madebyollin/sdxl-vae-fp16-fix/resolve/main/sdxl_vae.safetensors"},
	{Dir: "models/checkpoints", URL: "https://huggingface.co/playgroundai/playground-v2.5-1024px-aesthetic/resolve/main/playground-v2.5-1024px-aesthetic.fp16.safetensors"},
}

// Script is an ordered list of shell commands run once as root at first
// boot. Commands run best-effort: a failing command does not stop the
// ones after it.
type Script struct {
	Strategy domain.DriverStrategy
	Commands []string
}

// Index returns the position of the first command containing substr, or
// -1 when none does.
func (s Script) Index(substr string) int {
	for i, c := range s.Commands {
		if strings.Contains(c, substr) {
			return i
		}
	}
	return -1
}

// ForStrategy returns the bootstrap script for a driver strategy.
func ForStrategy(strategy domain.DriverStrategy) (Script, error) {
	switch strategy {
	case domain.DriverManual:
		return Script{Strategy: strategy, Commands: manualCommands()}, nil
	case domain.DriverPrebaked:
		return Script{Strategy: strategy, Commands: prebakedCommands()}, nil
	default:
		return Script{}, fmt.Errorf("bootstrap: unknown driver strategy %q", strategy)
	}
}

// LaunchCommand returns the readiness action: it starts ComfyUI detached
// from the working directory AppDir, logging to AppLog.
func LaunchCommand(strategy domain.DriverStrategy) string {
	python := "python"
	if strategy == domain.DriverPrebaked {
		python = "./venv/bin/python"
	}
	return asUser(fmt.Sprintf("nohup %s main.py --listen --port %d > ./%s 2>&1 &", python, AppPort, AppLog))
}

// manualCommands installs the CUDA drivers on a stock Ubuntu image and
// uses the system Python.
func manualCommands() []string {
	cmds := []string{
		"apt-get update -y",
		"apt install gcc -y",
		`distribution=$(. /etc/os-release;echo $ID$VERSION_ID | sed -e 's/\.//g')`,
		"wget " + cudaKeyringURL,
		"dpkg -i cuda-keyring_1.1-1_all.deb",
		"apt-get update -y",
		"apt-get -y install cuda-drivers",
		"modprobe nvidia",
		"apt-get -y install python3-pip python-is-python3",
		"pip install " + cfnBootstrapURL,
		"mkdir -p /opt/aws/bin",
		"ln -s /usr/local/bin/cfn-* /opt/aws/bin/",
		"cd /home/" + AppUser,
		asUser("git clone " + comfyRepo),
		"cd ComfyUI",
	}
	cmds = append(cmds, weightCommands()...)
	cmds = append(cmds,
		asUser("pip install torch torchvision torchaudio --extra-index-url "+torchIndexURL),
		asUser("pip install -r requirements.txt"),
	)
	return cmds
}

// prebakedCommands relies on the image's drivers and isolates every
// Python package in a virtual environment inside the checkout.
func prebakedCommands() []string {
	pip := "./venv/bin/pip install "
	cmds := []string{
		"cd /home/" + AppUser,
		asUser("git clone " + comfyRepo),
		"cd ComfyUI",
		"apt-get update -y",
		"apt-get -y install python3-venv",
		asUser("python3 -m venv venv"),
		pip + cfnBootstrapURL,
		"mkdir -p /opt/aws/bin",
		"ln -s " + venvDir + "/bin/cfn-* /opt/aws/bin/",
		asUser(pip + "torch torchvision torchaudio --extra-index-url " + torchIndexURL),
		asUser(pip + "-r requirements.txt"),
	}
	return append(cmds, weightCommands()...)
}

func weightCommands() []string {
	cmds := make([]string, 0, len(Weights))
	for _, w := range Weights {
		cmds = append(cmds, asUser("wget -P "+w.Dir+" "+w.URL))
	}
	return cmds
}

func asUser(cmd string) string {
	return "su " + AppUser + " -c '" + cmd + "'"
}
