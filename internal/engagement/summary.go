package engagement

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ayusman/howlong/internal/gesture"
)

var levelLabels = [MaxLevel + 1]string{
	"01 None Engagement",
	"02 Low Engagement",
	"03 Med Engagement",
	"04 High Engagement",
	"05 Max Engagement",
}

// LevelLabel returns the result-page label for level.
func LevelLabel(level int) string {
	if level < 0 || level > MaxLevel {
		return levelLabels[0]
	}
	return levelLabels[level]
}

// FormatMMSS formats the minutes and seconds of d as MM:SS. Hours are dropped.
func FormatMMSS(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", (secs/60)%60, secs%60)
}

// Summary is the result shown once a session ends.
type Summary struct {
	Level       int          `json:"level"`
	Label       string       `json:"engagementLabel"`
	MMSS        string       `json:"mmss"`
	ActionType  gesture.Type `json:"actionType"`
	ActionCount int          `json:"actionCount"`
	WaitingPct  int          `json:"waitingPct"`
	Total       int          `json:"totalBursts"`
}

// Summarize captures the aggregate at elapsed session time.
func Summarize(a *Aggregator, elapsed time.Duration) Summary {
	level := a.Level()
	action := a.CurrentAction()
	return Summary{
		Level:       level,
		Label:       LevelLabel(level),
		MMSS:        FormatMMSS(elapsed),
		ActionType:  action,
		ActionCount: a.Count(action),
		WaitingPct:  min(CountCap, a.WaitingPct()),
		Total:       a.Total(),
	}
}

// ShareURL builds the report link encoded in the result QR code.
// shot is omitted when empty.
func (s Summary) ShareURL(page, shot string) string {
	if page == "" {
		page = "report.html"
	}

	params := []struct{ key, value string }{
		{"src", "qr"},
		{"level", strconv.Itoa(s.Level)},
		{"engagementLabel", s.Label},
		{"mmss", s.MMSS},
		{"actionType", s.ActionType.String()},
		{"actionCount", strconv.Itoa(s.ActionCount)},
		{"waitingPct", strconv.Itoa(s.WaitingPct)},
	}
	if shot != "" {
		params = append(params, struct{ key, value string }{"shot", shot})
	}

	var b strings.Builder
	b.WriteString(page)
	for i, p := range params {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}
	return b.String()
}
