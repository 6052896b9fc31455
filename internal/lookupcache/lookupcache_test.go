package lookupcache

import (
	"path/filepath"
	"testing"

	"nathanbeddoewebdev/sdcomfy/internal/domain"

	"github.com/google/go-cmp/cmp"
)

func tempRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	r, err := OpenAt(filepath.Join(t.TempDir(), "sdcomfy.db"))
	if err != nil {
		t.Fatalf("OpenAt failed: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func testNetwork(region string) domain.Network {
	return domain.Network{
		AccountID: "123456789012",
		Region:    region,
		VPCID:     "vpc-0abc",
		Subnets: []domain.Subnet{
			{ID: "subnet-a", AvailabilityZone: region + "a", Public: true, DefaultForAZ: true},
			{ID: "subnet-b", AvailabilityZone: region + "b", Public: true, DefaultForAZ: true},
		},
	}
}

func TestGet_NotFound(t *testing.T) {
	r := tempRepo(t)

	got, err := r.Get("123456789012", "us-west-2")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestPutGet_RoundTrip(t *testing.T) {
	r := tempRepo(t)

	want := testNetwork("us-west-2")
	if err := r.Put(want); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := r.Get(want.AccountID, want.Region)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected cached entry")
	}
	if diff := cmp.Diff(want, got.Network); diff != "" {
		t.Errorf("network mismatch (-want +got):\n%s", diff)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be set")
	}
}

func TestPut_Overwrites(t *testing.T) {
	r := tempRepo(t)

	first := testNetwork("us-west-2")
	if err := r.Put(first); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	second := testNetwork("us-west-2")
	second.VPCID = "vpc-0def"
	if err := r.Put(second); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := r.Get(second.AccountID, second.Region)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Network.VPCID != "vpc-0def" {
		t.Errorf("expected overwritten VPC, got %q", got.Network.VPCID)
	}

	all, err := r.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected 1 entry after overwrite, got %d", len(all))
	}
}

func TestPut_RequiresKey(t *testing.T) {
	r := tempRepo(t)

	if err := r.Put(domain.Network{VPCID: "vpc-0abc"}); err == nil {
		t.Fatal("expected error for network without account and region")
	}
}

func TestDelete(t *testing.T) {
	r := tempRepo(t)

	for _, region := range []string{"us-west-2", "eu-west-1"} {
		if err := r.Put(testNetwork(region)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	if err := r.Delete("123456789012", "us-west-2"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	all, err := r.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 1 || all[0].Region != "eu-west-1" {
		t.Errorf("expected only eu-west-1 to remain, got %+v", all)
	}
}
