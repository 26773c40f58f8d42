package domain

// Option is one of the two answers a vote can be cast for.
type Option string

const (
	OptionYes Option = "yes"
	OptionNo  Option = "no"
)

// ParseOption accepts exactly "yes" or "no".
func ParseOption(s string) (Option, bool) {
	switch Option(s) {
	case OptionYes, OptionNo:
		return Option(s), true
	}
	return "", false
}

// MaxCount is the largest count a tally field reaches: 2^53, the last
// integer a JSON number holds exactly.
const MaxCount = 1 << 53

// Tally is the pair of vote counts. Both fields are never negative.
type Tally struct {
	Yes int64 `json:"yes"`
	No  int64 `json:"no"`
}

// Inc returns a copy of t with the field for o incremented by one.
// Counts stop at MaxCount.
func (t Tally) Inc(o Option) Tally {
	switch o {
	case OptionYes:
		if t.Yes < MaxCount {
			t.Yes++
		}
	case OptionNo:
		if t.No < MaxCount {
			t.No++
		}
	}
	return t
}

func (t Tally) Total() int64 {
	return t.Yes + t.No
}
