package domain

import (
	"fmt"
	"sort"
)

// Subnet is a subnet of the looked-up network.
type Subnet struct {
	ID               string `json:"id"`
	AvailabilityZone string `json:"availability_zone"`
	// Public reports whether instances launched here get a public IPv4
	// address by default.
	Public       bool `json:"public"`
	DefaultForAZ bool `json:"default_for_az"`
}

// Network is a read-only reference to an existing VPC, resolved by the
// default-network lookup.
type Network struct {
	AccountID string   `json:"account_id"`
	Region    string   `json:"region"`
	VPCID     string   `json:"vpc_id"`
	Subnets   []Subnet `json:"subnets"`
}

// SelectSubnet picks the subnet the instance is launched into. Only public
// subnets qualify. When zone is set the subnet must be in that zone;
// otherwise the first public subnet by zone name wins, preferring the
// zone's default subnet.
func (n Network) SelectSubnet(zone string) (Subnet, error) {
	candidates := make([]Subnet, 0, len(n.Subnets))
	for _, s := range n.Subnets {
		if !s.Public {
			continue
		}
		if zone != "" && s.AvailabilityZone != zone {
			continue
		}
		candidates = append(candidates, s)
	}
	if len(candidates) == 0 {
		if zone != "" {
			return Subnet{}, fmt.Errorf("network %s has no public subnet in %s", n.VPCID, zone)
		}
		return Subnet{}, fmt.Errorf("network %s has no public subnet", n.VPCID)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.AvailabilityZone != b.AvailabilityZone {
			return a.AvailabilityZone < b.AvailabilityZone
		}
		if a.DefaultForAZ != b.DefaultForAZ {
			return a.DefaultForAZ
		}
		return a.ID < b.ID
	})
	return candidates[0], nil
}

// Zones returns the distinct availability zones that have a public subnet,
// sorted by name.
func (n Network) Zones() []string {
	seen := make(map[string]struct{})
	var zones []string
	for _, s := range n.Subnets {
		if !s.Public {
			continue
		}
		if _, ok := seen[s.AvailabilityZone]; ok {
			continue
		}
		seen[s.AvailabilityZone] = struct{}{}
		zones = append(zones, s.AvailabilityZone)
	}
	sort.Strings(zones)
	return zones
}
