package quotesource

// MaxLookbackDays is the longest trailing window, in days, that intraday
// data is served for at each supported interval (minutes).
var MaxLookbackDays = map[int]int{1: 7, 2: 60, 5: 60, 15: 60, 30: 60, 60: 730}

// Intervals lists the supported minute intervals in ascending order.
var Intervals = []int{1, 2, 5, 15, 30, 60}

// ValidateInterval rejects minute intervals the upstream does not serve.
func ValidateInterval(interval int) error {
	if _, ok := MaxLookbackDays[interval]; !ok {
		return invalidf("interval %d is not supported", interval)
	}
	return nil
}
