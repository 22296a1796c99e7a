package recorder

import "fmt"

// FormatDuration renders milliseconds as minutes:seconds, e.g. 65000 -> "1:05".
// There is no hours field; an hour reads "60:00".
func FormatDuration(millis int64) string {
	if millis < 0 {
		millis = 0
	}
	total := millis / 1000
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
