package fare

import (
	"fmt"
	"math"
	"sort"

	"rideshare/internal/domain"
)

// Policy selects how a pooled fare is divided.
type Policy string

const (
	PolicyDistance Policy = "distance"
	PolicyEqual    Policy = "equal"
)

// Leg is one passenger's input to a split, in join order.
type Leg struct {
	PassengerID string
	DistanceKm  float64
}

// Share is one passenger's portion of a pooled fare.
type Share struct {
	PassengerID string  `json:"passenger_id"`
	DistanceKm  float64 `json:"distance_km"`
	FareShare   int64   `json:"fare_share"`
	Percentage  float64 `json:"percentage"`
}

// Split divides total between legs according to policy. Shares always sum to total.
func Split(policy Policy, legs []Leg, total int64) ([]Share, error) {
	switch policy {
	case PolicyDistance, "":
		return SplitByDistance(legs, total)
	case PolicyEqual:
		return SplitEqual(legs, total)
	default:
		return nil, fmt.Errorf("%w: unknown split policy %q", domain.ErrValidation, policy)
	}
}

// SplitByDistance gives each leg round(total*d_i/Σd). The rounding remainder goes to the
// longest leg, ties to the earliest joined. With zero total distance it splits equally.
func SplitByDistance(legs []Leg, total int64) ([]Share, error) {
	sum, err := validateLegs(legs, total)
	if err != nil {
		return nil, err
	}
	if sum == 0 {
		return SplitEqual(legs, total)
	}

	shares := newShares(legs)
	for i, l := range legs {
		shares[i].FareShare = int64(RoundHalfUp(float64(total) * l.DistanceKm / sum))
	}
	reconcile(shares, total, byDistance(legs))
	setPercentages(shares, total)
	return shares, nil
}

// SplitEqual gives each leg total/n, with the remainder going to the earliest joined.
func SplitEqual(legs []Leg, total int64) ([]Share, error) {
	if _, err := validateLegs(legs, total); err != nil {
		return nil, err
	}

	shares := newShares(legs)
	each := total / int64(len(legs))
	for i := range shares {
		shares[i].FareShare = each
	}
	reconcile(shares, total, joinOrder(len(legs)))
	setPercentages(shares, total)
	return shares, nil
}

func validateLegs(legs []Leg, total int64) (float64, error) {
	if len(legs) == 0 {
		return 0, fmt.Errorf("%w: no passengers to split between", domain.ErrValidation)
	}
	if total < 0 {
		return 0, fmt.Errorf("%w: fare must not be negative", domain.ErrValidation)
	}
	var sum float64
	for _, l := range legs {
		if math.IsNaN(l.DistanceKm) || math.IsInf(l.DistanceKm, 0) || l.DistanceKm < 0 {
			return 0, fmt.Errorf("%w: invalid distance for passenger %s", domain.ErrValidation, l.PassengerID)
		}
		sum += l.DistanceKm
	}
	return sum, nil
}

func newShares(legs []Leg) []Share {
	shares := make([]Share, len(legs))
	for i, l := range legs {
		shares[i] = Share{PassengerID: l.PassengerID, DistanceKm: l.DistanceKm}
	}
	return shares
}

// reconcile adds total-Σshare to shares in priority order. A surplus lands entirely on the first
// index; a deficit is taken from the first index and spills to the next ones only when a share
// would otherwise go negative.
func reconcile(shares []Share, total int64, priority []int) {
	var sum int64
	for _, s := range shares {
		sum += s.FareShare
	}
	remainder := total - sum
	if remainder >= 0 {
		shares[priority[0]].FareShare += remainder
		return
	}
	for _, i := range priority {
		if remainder == 0 {
			return
		}
		take := min(shares[i].FareShare, -remainder)
		shares[i].FareShare -= take
		remainder += take
	}
}

// byDistance orders leg indexes by distance descending, then join order.
func byDistance(legs []Leg) []int {
	order := joinOrder(len(legs))
	sort.SliceStable(order, func(a, b int) bool {
		return legs[order[a]].DistanceKm > legs[order[b]].DistanceKm
	})
	return order
}

func joinOrder(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

func setPercentages(shares []Share, total int64) {
	if total == 0 {
		return
	}
	for i := range shares {
		pct := float64(shares[i].FareShare) / float64(total) * 100
		shares[i].Percentage = math.Round(pct*100) / 100
	}
}
