package jobs

type JobType string

const (
	// JobOrderConfirmation tells the customer their order went through.
	JobOrderConfirmation JobType = "order.confirmation"
)

// IsValid reports whether t is a known job type.
func (t JobType) IsValid() bool {
	switch t {
	case JobOrderConfirmation:
		return true
	default:
		return false
	}
}
