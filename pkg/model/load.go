package model

// Load is a per-resource vector of utilization (or capacity) values. It has value semantics,
// so copies never alias each other.
type Load [NumResources]float64

// NewLoad builds a load from per-resource values, clamping negatives to zero.
func NewLoad(cpu, nwIn, nwOut, disk float64) Load {
	return Load{cpu, nwIn, nwOut, disk}.Clamp()
}

// For returns the value for the argument resource.
func (l Load) For(resource Resource) float64 {
	return l[resource]
}

// Add returns the element-wise sum of the two loads.
func (l Load) Add(other Load) Load {
	for r := range l {
		l[r] += other[r]
	}
	return l
}

// Subtract returns the element-wise difference of the two loads.
func (l Load) Subtract(other Load) Load {
	for r := range l {
		l[r] -= other[r]
	}
	return l
}

// Clamp returns a copy with every negative value replaced by zero. Utilization can't be
// negative, so raw inputs are clamped before aggregation.
func (l Load) Clamp() Load {
	for r := range l {
		if l[r] < 0 {
			l[r] = 0
		}
	}
	return l
}

// IsZero returns whether every value is zero.
func (l Load) IsZero() bool {
	return l == Load{}
}

// FollowerLoad derives the load of a follower replica from its leader's load: followers take
// the same inbound network and disk, half the CPU, and serve no outbound traffic.
func FollowerLoad(leaderLoad Load) Load {
	follower := leaderLoad
	follower[ResourceCPU] = leaderLoad[ResourceCPU] / 2.0
	follower[ResourceNetworkOutbound] = 0.0
	return follower
}
