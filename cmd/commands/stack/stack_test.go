package stack

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"nathanbeddoewebdev/sdcomfy/cmd/commands/cmdutil"
	"nathanbeddoewebdev/sdcomfy/internal/config"
	"nathanbeddoewebdev/sdcomfy/internal/database"
	"nathanbeddoewebdev/sdcomfy/internal/deployments"
	"nathanbeddoewebdev/sdcomfy/internal/descriptor"
	"nathanbeddoewebdev/sdcomfy/internal/domain"
	"nathanbeddoewebdev/sdcomfy/internal/offerings"
	"nathanbeddoewebdev/sdcomfy/internal/providers"
	"nathanbeddoewebdev/sdcomfy/internal/services/auth"

	"github.com/google/go-cmp/cmp"
)

// setupStackTest points every local store at a temp dir and registers a
// mock provider as the configured default.
func setupStackTest(t *testing.T) *providers.MockProvider {
	t.Helper()
	dir := t.TempDir()

	configPath := filepath.Join(dir, "config.yaml")
	config.SetPath(configPath)
	t.Cleanup(config.ResetPath)
	database.SetPath(filepath.Join(dir, "sdcomfy.db"))
	t.Cleanup(database.ResetPath)
	offerings.SetDir(filepath.Join(dir, "offerings"))
	t.Cleanup(offerings.ResetDir)

	cfg := &config.Config{DefaultProvider: "mock"}
	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	t.Setenv("SDCOMFY_POLL_INTERVAL", "1ms")
	t.Setenv("SDCOMFY_DEPLOY_TIMEOUT", "5s")
	t.Setenv("SDCOMFY_DELETE_TIMEOUT", "5s")

	mock := providers.NewMockProvider()
	providers.Reset()
	t.Cleanup(providers.Reset)
	providers.Register("mock", func(store auth.Store, target providers.Target) (domain.Provider, error) {
		return mock, nil
	})

	prevInteractive, prevStore := cmdutil.Interactive, cmdutil.Store
	cmdutil.Interactive = func() bool { return false }
	cmdutil.Store = func() auth.Store { return auth.NewMockStore() }
	t.Cleanup(func() {
		cmdutil.Interactive, cmdutil.Store = prevInteractive, prevStore
	})

	return mock
}

// execStack runs the stack command with args and returns its output.
func execStack(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	cmd := NewCommand()
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

func pendingRecords(t *testing.T) []deployments.Record {
	t.Helper()
	repo, err := deployments.Open()
	if err != nil {
		t.Fatalf("deployments.Open: %v", err)
	}
	defer repo.Close()
	pending, err := repo.ListPending()
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	return pending
}

func completedStack(name string) *domain.Stack {
	return &domain.Stack{
		Name:   name,
		ID:     "arn:aws:cloudformation:us-west-2:123456789012:stack/" + name + "/1",
		Status: domain.StatusCreateComplete,
		Outputs: map[string]string{
			descriptor.OutputPortal:          "ec2-1-2-3-4.us-west-2.compute.amazonaws.com:8080",
			descriptor.OutputKeyCommand:      "aws ssm get-parameter --name /ec2/keypair/key-0abc --with-decryption",
			descriptor.OutputInstanceConsole: "https://console.aws.amazon.com/ec2/home?region=us-west-2#Instances:search=i-0abc",
		},
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestSynth_JSONIsDeterministic(t *testing.T) {
	setupStackTest(t)

	first, stderr, err := execStack(t, "synth")
	if err != nil {
		t.Fatalf("synth: %v", err)
	}
	if !strings.Contains(first, `"AWS::EC2::Instance"`) {
		t.Errorf("expected an instance resource in the template, got:\n%s", first)
	}
	if !strings.Contains(stderr, "Warning:") {
		t.Errorf("expected floating image warning, got stderr: %s", stderr)
	}

	second, _, err := execStack(t, "synth")
	if err != nil {
		t.Fatalf("synth: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("synthesis is not deterministic (-first +second):\n%s", diff)
	}
}

func TestSynth_YAMLToFile(t *testing.T) {
	setupStackTest(t)
	out := filepath.Join(t.TempDir(), "comfyui.yaml")

	stdout, stderr, err := execStack(t, "synth", "--format", "yaml", "--out", out, "--image-id", "ami-0123456789abcdef0")
	if err != nil {
		t.Fatalf("synth: %v", err)
	}
	if stdout != "" {
		t.Errorf("expected no stdout when writing to a file, got: %s", stdout)
	}
	if !strings.Contains(stderr, "Wrote yaml template") {
		t.Errorf("expected confirmation on stderr, got: %s", stderr)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("failed to read template: %v", err)
	}
	if !strings.Contains(string(data), "AWSTemplateFormatVersion:") {
		t.Errorf("expected a YAML template, got:\n%s", data)
	}
	if !strings.Contains(string(data), "ami-0123456789abcdef0") {
		t.Errorf("expected the pinned image in the template")
	}
}

func TestSynth_Rejects(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"format", []string{"synth", "--format", "xml"}, "unsupported format"},
		{"variant", []string{"synth", "--variant", "cloud"}, "unknown driver strategy"},
		{"zone not offered", []string{"synth", "--zone", "us-west-2c"}, "not offered"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupStackTest(t)
			_, _, err := execStack(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestDeploy_YesWaitsForCompletion(t *testing.T) {
	mock := setupStackTest(t)
	name := descriptor.DefaultStackName
	mock.StatusScripts[name] = []string{"CREATE_IN_PROGRESS", domain.StatusCreateComplete}

	stdout, stderr, err := execStack(t, "deploy", "--yes", "--variant", "prebaked")
	if err != nil {
		t.Fatalf("deploy: %v\nstderr: %s", err, stderr)
	}

	if !strings.Contains(stdout, "is CREATE_COMPLETE") {
		t.Errorf("expected completion message, got: %s", stdout)
	}
	if !strings.Contains(stderr, "Status: CREATE_COMPLETE") {
		t.Errorf("expected progress lines on stderr, got: %s", stderr)
	}
	if len(mock.Deployed) != 1 {
		t.Fatalf("expected 1 deploy request, got %d", len(mock.Deployed))
	}
	if got := mock.Deployed[0].Tags["sdcomfy:variant"]; got != "prebaked" {
		t.Errorf("variant tag = %q, want prebaked", got)
	}
	if pending := pendingRecords(t); len(pending) != 0 {
		t.Errorf("expected no pending records, got %d", len(pending))
	}
}

func TestDeploy_FailureReportsReason(t *testing.T) {
	mock := setupStackTest(t)
	name := descriptor.DefaultStackName
	mock.StatusScripts[name] = []string{"ROLLBACK_IN_PROGRESS", domain.StatusRollbackComplete}
	mock.Events[name] = []domain.StackEvent{{
		ID:           "e1",
		Timestamp:    time.Now().UTC(),
		LogicalID:    "Instance",
		ResourceType: "AWS::EC2::Instance",
		Status:       "CREATE_FAILED",
		Reason:       "Failed to receive 1 resource signal(s)",
	}}

	_, _, err := execStack(t, "deploy", "--yes")
	if err == nil {
		t.Fatal("expected deploy to fail")
	}
	if !errors.Is(err, domain.ErrStackFailed) {
		t.Errorf("expected ErrStackFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "resource signal") {
		t.Errorf("expected the failure reason in the error, got %v", err)
	}
}

func TestDeploy_NoWaitThenWait(t *testing.T) {
	mock := setupStackTest(t)
	name := descriptor.DefaultStackName

	stdout, _, err := execStack(t, "deploy", "--yes", "--no-wait")
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	if !strings.Contains(stdout, "sdcomfy stack wait") {
		t.Errorf("expected a resume hint, got: %s", stdout)
	}
	if pending := pendingRecords(t); len(pending) != 1 {
		t.Fatalf("expected 1 pending record, got %d", len(pending))
	}

	mock.StatusScripts[name] = []string{domain.StatusCreateComplete}
	stdout, _, err = execStack(t, "wait")
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if !strings.Contains(stdout, "is CREATE_COMPLETE") {
		t.Errorf("expected completion message, got: %s", stdout)
	}
	if pending := pendingRecords(t); len(pending) != 0 {
		t.Errorf("expected no pending records after wait, got %d", len(pending))
	}
}

func TestWait_NoPending(t *testing.T) {
	setupStackTest(t)

	stdout, _, err := execStack(t, "wait")
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if !strings.Contains(stdout, "No pending operations.") {
		t.Errorf("unexpected output: %s", stdout)
	}
}

func TestFilterPending(t *testing.T) {
	records := []deployments.Record{
		{ID: 1, Region: "us-west-2", StackName: "a"},
		{ID: 2, Region: "us-east-1", StackName: "a"},
		{ID: 3, Region: "us-west-2", StackName: "b"},
	}

	ids := func(rs []deployments.Record) []int64 {
		var out []int64
		for _, r := range rs {
			out = append(out, r.ID)
		}
		return out
	}

	if diff := cmp.Diff([]int64{1, 3}, ids(filterPending(records, "us-west-2", ""))); diff != "" {
		t.Errorf("region filter mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{3}, ids(filterPending(records, "us-west-2", "b"))); diff != "" {
		t.Errorf("stack filter mismatch (-want +got):\n%s", diff)
	}
}

func TestStatus_NotFound(t *testing.T) {
	setupStackTest(t)

	stdout, _, err := execStack(t, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(stdout, "does not exist") {
		t.Errorf("expected not-found message, got: %s", stdout)
	}
}

func TestStatus_JSON(t *testing.T) {
	mock := setupStackTest(t)
	mock.Stacks["MyStack"] = completedStack("MyStack")

	stdout, _, err := execStack(t, "status", "--stack-name", "MyStack", "-o", "json")
	if err != nil {
		t.Fatalf("status: %v", err)
	}

	var view statusView
	if err := json.Unmarshal([]byte(stdout), &view); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, stdout)
	}
	if view.Stack == nil || view.Stack.Status != domain.StatusCreateComplete {
		t.Errorf("unexpected stack in view: %+v", view.Stack)
	}
}

func TestOutputs_TableInDisplayOrder(t *testing.T) {
	mock := setupStackTest(t)
	mock.Stacks[descriptor.DefaultStackName] = completedStack(descriptor.DefaultStackName)

	stdout, _, err := execStack(t, "outputs")
	if err != nil {
		t.Fatalf("outputs: %v", err)
	}

	console := strings.Index(stdout, descriptor.OutputInstanceConsole)
	keyCmd := strings.Index(stdout, descriptor.OutputKeyCommand)
	portal := strings.Index(stdout, descriptor.OutputPortal)
	if console < 0 || keyCmd < 0 || portal < 0 {
		t.Fatalf("missing outputs in:\n%s", stdout)
	}
	if !(console < keyCmd && keyCmd < portal) {
		t.Errorf("outputs not in display order:\n%s", stdout)
	}
}

func TestOutputs_InProgress(t *testing.T) {
	mock := setupStackTest(t)
	s := completedStack(descriptor.DefaultStackName)
	s.Status = "CREATE_IN_PROGRESS"
	mock.Stacks[s.Name] = s

	_, _, err := execStack(t, "outputs")
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestDestroy_RequiresYesWithoutTerminal(t *testing.T) {
	mock := setupStackTest(t)
	mock.Stacks[descriptor.DefaultStackName] = completedStack(descriptor.DefaultStackName)

	_, _, err := execStack(t, "destroy")
	if err == nil || !strings.Contains(err.Error(), "--yes") {
		t.Errorf("expected confirmation error, got %v", err)
	}
	if len(mock.Deleted) != 0 {
		t.Errorf("expected no deletion, got %v", mock.Deleted)
	}
}

func TestDestroy_YesWaitsUntilGone(t *testing.T) {
	mock := setupStackTest(t)
	name := descriptor.DefaultStackName
	mock.Stacks[name] = completedStack(name)

	_, _, err := execStack(t, "destroy", "--yes", "--no-wait")
	if err != nil {
		t.Fatalf("destroy --no-wait: %v", err)
	}
	if diff := cmp.Diff([]string{name}, mock.Deleted); diff != "" {
		t.Errorf("deleted stacks mismatch (-want +got):\n%s", diff)
	}

	mock.StatusScripts[name] = []string{"DELETE_IN_PROGRESS", providers.MockGone}
	stdout, _, err := execStack(t, "wait")
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if !strings.Contains(stdout, "deleted") {
		t.Errorf("expected deletion message, got: %s", stdout)
	}
}

func TestDestroy_NotFound(t *testing.T) {
	setupStackTest(t)

	stdout, _, err := execStack(t, "destroy", "--yes")
	if err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if !strings.Contains(stdout, "nothing to delete") {
		t.Errorf("unexpected output: %s", stdout)
	}
}

func TestImage(t *testing.T) {
	mock := setupStackTest(t)
	mock.Images[descriptor.DefaultImageParameter(domain.DriverPrebaked)] = "ami-0prebaked"

	stdout, stderr, err := execStack(t, "image", "--variant", "prebaked")
	if err != nil {
		t.Fatalf("image: %v", err)
	}
	if strings.TrimSpace(stdout) != "ami-0prebaked" {
		t.Errorf("stdout = %q, want the resolved image ID", stdout)
	}
	if !strings.Contains(stderr, "config set image-id ami-0prebaked") {
		t.Errorf("expected a pin hint, got: %s", stderr)
	}

	stdout, _, err = execStack(t, "image", "--image-id", "ami-0pinned")
	if err != nil {
		t.Fatalf("image: %v", err)
	}
	if strings.TrimSpace(stdout) != "ami-0pinned" {
		t.Errorf("stdout = %q, want the pinned image ID", stdout)
	}
}

func TestHistory(t *testing.T) {
	setupStackTest(t)

	stdout, _, err := execStack(t, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(stdout, "No stack operations recorded.") {
		t.Errorf("unexpected output: %s", stdout)
	}

	if _, _, err := execStack(t, "deploy", "--yes", "--no-wait"); err != nil {
		t.Fatalf("deploy: %v", err)
	}
	stdout, _, err = execStack(t, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(stdout, descriptor.DefaultStackName) || !strings.Contains(stdout, "running") {
		t.Errorf("expected the running deployment, got:\n%s", stdout)
	}
}
