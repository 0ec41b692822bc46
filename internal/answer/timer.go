package answer

import (
	"regexp"
	"strconv"
	"strings"
)

const defaultTimerSeconds = 300

var timerPairRe = regexp.MustCompile(`(\d+)\s*(hours?|hrs?|h|minutes?|mins?|m|seconds?|secs?|s)\b`)

// EvalTimer sums every "N unit" pair in the query into seconds. A bare
// trigger with no duration defaults to five minutes.
func EvalTimer(query string) string {
	total := 0
	for _, m := range timerPairRe.FindAllStringSubmatch(strings.ToLower(query), -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		switch m[2][0] {
		case 'h':
			total += n * 3600
		case 'm':
			total += n * 60
		case 's':
			total += n
		}
	}
	if total == 0 {
		total = defaultTimerSeconds
	}
	return strconv.Itoa(total)
}
