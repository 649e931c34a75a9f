package enums

import "fmt"

// Membership is the customer loyalty tier.
type Membership string

const (
	MembershipBronze Membership = "B"
	MembershipSilver Membership = "S"
	MembershipGold   Membership = "G"
)

var validMemberships = []Membership{MembershipBronze, MembershipSilver, MembershipGold}

func (m Membership) String() string {
	return string(m)
}

func (m Membership) IsValid() bool {
	for _, candidate := range validMemberships {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMembership converts raw input into a Membership.
func ParseMembership(value string) (Membership, error) {
	for _, candidate := range validMemberships {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid membership %q", value)
}
