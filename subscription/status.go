package subscription

// UserStatus is the coarse billing state of a user.
type UserStatus string

const (
	UserNew                 UserStatus = "new"
	UserTrialExpired        UserStatus = "trial_expired"
	UserSubscriptionExpired UserStatus = "subscription_expired"
	UserActive              UserStatus = "active"
)

// Facts are the row-presence conditions the status is derived from.
type Facts struct {
	HasActiveSubscription bool
	HasActiveTrial        bool
	HadSubscription       bool
	TrialUsed             bool
}

func (f Facts) index() int {
	i := 0
	if f.HasActiveSubscription {
		i |= 1 << 3
	}
	if f.HasActiveTrial {
		i |= 1 << 2
	}
	if f.HadSubscription {
		i |= 1 << 1
	}
	if f.TrialUsed {
		i |= 1
	}
	return i
}

// statusTable is indexed by active-sub, active-trial, had-sub, trial-used
// (most significant bit first).
var statusTable = [16]UserStatus{
	0b0000: UserNew,
	0b0001: UserTrialExpired,
	0b0010: UserSubscriptionExpired,
	0b0011: UserSubscriptionExpired,
	0b0100: UserActive,
	0b0101: UserActive,
	0b0110: UserActive,
	0b0111: UserActive,
	0b1000: UserActive,
	0b1001: UserActive,
	0b1010: UserActive,
	0b1011: UserActive,
	0b1100: UserActive,
	0b1101: UserActive,
	0b1110: UserActive,
	0b1111: UserActive,
}

// Classify maps facts to a status. Every combination has an entry.
func Classify(f Facts) UserStatus {
	return statusTable[f.index()]
}
