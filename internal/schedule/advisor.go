package schedule

import (
	"sort"
	"time"

	"github.com/ChhabraSanyam/Acrylican-sub000/internal/platform"
)

// window describes when a platform's audience is most active
type window struct {
	Hours    []int          // preferred posting hours, local time
	Weekdays []time.Weekday // empty means every day
}

var weekdaysOnly = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
}

// engagementWindows is the per-platform heuristic table. Hours are rough
// audience peaks; marketplaces skew toward evening browsing.
var engagementWindows = map[string]window{
	platform.Facebook:  {Hours: []int{9, 13, 16}, Weekdays: weekdaysOnly},
	platform.Instagram: {Hours: []int{11, 14, 19}},
	platform.Pinterest: {Hours: []int{15, 20, 21}},
	platform.Etsy:      {Hours: []int{10, 15, 20}},
	platform.EBay:      {Hours: []int{12, 18, 21}},
	platform.Shopify:   {Hours: []int{10, 14, 17}},
}

var defaultWindow = window{Hours: []int{10, 14, 18}}

// Advisor computes suggested posting times. Pure lookup, no I/O; the clock
// is injectable for deterministic tests.
type Advisor struct {
	now func() time.Time
}

// NewAdvisor creates a scheduling advisor
func NewAdvisor() *Advisor {
	return &Advisor{now: time.Now}
}

// OptimalTimes returns the suggested posting times per platform over the
// next daysAhead days, earliest first. Only future times are returned.
func (a *Advisor) OptimalTimes(platforms []string, daysAhead int) map[string][]time.Time {
	if daysAhead <= 0 {
		daysAhead = 7
	}
	now := a.now()
	out := make(map[string][]time.Time, len(platforms))

	for _, name := range platforms {
		w, ok := engagementWindows[name]
		if !ok {
			w = defaultWindow
		}

		var times []time.Time
		for day := 0; day < daysAhead; day++ {
			date := now.AddDate(0, 0, day)
			if !dayAllowed(date.Weekday(), w.Weekdays) {
				continue
			}
			for _, hour := range w.Hours {
				t := time.Date(date.Year(), date.Month(), date.Day(), hour, 0, 0, 0, now.Location())
				if t.After(now) {
					times = append(times, t)
				}
			}
		}
		sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
		out[name] = times
	}
	return out
}

// StaggeredSchedule spreads the platforms from startTime onward, each offset
// by staggerMinutes from the previous, in the order given. Staggering avoids
// simultaneous cross-posting, which platforms penalize as automation.
func (a *Advisor) StaggeredSchedule(platforms []string, startTime time.Time, staggerMinutes int) map[string]time.Time {
	if staggerMinutes <= 0 {
		staggerMinutes = 15
	}
	out := make(map[string]time.Time, len(platforms))
	for i, name := range platforms {
		out[name] = startTime.Add(time.Duration(i*staggerMinutes) * time.Minute)
	}
	return out
}

// NextOptimalTime returns the soonest suggested time for one platform
func (a *Advisor) NextOptimalTime(platformName string) time.Time {
	times := a.OptimalTimes([]string{platformName}, 2)[platformName]
	if len(times) == 0 {
		return a.now().Add(time.Hour)
	}
	return times[0]
}

func dayAllowed(day time.Weekday, allowed []time.Weekday) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, d := range allowed {
		if d == day {
			return true
		}
	}
	return false
}
