package parking

const (
	baseFee         = Money(500)
	feeBlockMinutes = 40
)

// FeePolicy maps a parking duration in whole minutes to the amount charged.
type FeePolicy func(durationMinutes int) Money

// ComputeFee charges the base fee for up to 40 minutes inclusive. Past that,
// one base increment is added per full 40-minute block counted from zero, so
// 41 minutes already costs two increments.
func ComputeFee(durationMinutes int) Money {
	if durationMinutes < 0 {
		durationMinutes = 0
	}
	if durationMinutes <= feeBlockMinutes {
		return baseFee
	}
	return baseFee + Money(durationMinutes/feeBlockMinutes)*baseFee
}
