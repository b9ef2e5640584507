package entity

import "fmt"

// Kind is the type tag distinguishing entity variants.
type Kind string

// Entity kinds.
const (
	KindTrip           Kind = "trip"
	KindUser           Kind = "user"
	KindFlight         Kind = "flight"
	KindHotel          Kind = "hotel"
	KindActivity       Kind = "activity"
	KindExpense        Kind = "expense"
	KindGuide          Kind = "guide"
	KindResource       Kind = "resource"
	KindReview         Kind = "review"
	KindContribution   Kind = "contribution"
	KindPreference     Kind = "preference"
	KindProfile        Kind = "profile"
	KindRecommendation Kind = "recommendation"
)

var allKinds = []Kind{
	KindTrip,
	KindUser,
	KindFlight,
	KindHotel,
	KindActivity,
	KindExpense,
	KindGuide,
	KindResource,
	KindReview,
	KindContribution,
	KindPreference,
	KindProfile,
	KindRecommendation,
}

// Kinds returns every known kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, len(allKinds))
	copy(out, allKinds)
	return out
}

// ParseKind converts a string into a known Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown entity kind %q", s)
	}
	return k, nil
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	for _, known := range allKinds {
		if k == known {
			return true
		}
	}
	return false
}

// IsItem reports whether k is an itinerary item variant.
func (k Kind) IsItem() bool {
	return k.Valid() && k != KindTrip && k != KindUser
}

// IsUserScoped reports whether items of this kind belong to a user
// rather than a trip. Their trip id is optional.
func (k Kind) IsUserScoped() bool {
	switch k {
	case KindPreference, KindProfile, KindRecommendation:
		return true
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}
