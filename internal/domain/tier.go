package domain

// Tier classifies a customer for differential menu pricing.
type Tier string

const (
	TierStudent  Tier = "student"
	TierStaff    Tier = "staff"
	TierFaculty  Tier = "faculty"
	TierExternal Tier = "external"
)

func (t Tier) Valid() bool {
	switch t {
	case TierStudent, TierStaff, TierFaculty, TierExternal:
		return true
	}
	return false
}
