package notify

import (
	ical "github.com/arran4/golang-ical"
	"go.uber.org/zap"
)

// ExportICS renders the pending schedules as an iCalendar feed. Repeating
// schedules carry an RRULE.
func (s *Scheduler) ExportICS() string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//daypulse//notifications//EN")

	now := s.cal.Now()
	for _, sn := range s.Pending() {
		ev := cal.AddEvent(sn.ID + "@daypulse")
		ev.SetDtStampTime(now)
		ev.SetStartAt(sn.ScheduledTime)
		ev.SetEndAt(sn.ScheduledTime)
		ev.SetSummary(sn.Title)
		if sn.Body != "" {
			ev.SetDescription(sn.Body)
		}
		if sn.Category != "" {
			ev.SetProperty(ical.ComponentPropertyCategories, sn.Category)
		}
		if sn.ActionURL != "" {
			ev.SetProperty(ical.ComponentPropertyUrl, sn.ActionURL)
		}
		if sn.Repeating {
			rule, err := RepeatRule(sn.RepeatInterval)
			if err != nil {
				s.log.Warn("skipping recurrence", zap.String("id", sn.ID), zap.Error(err))
				continue
			}
			ev.SetProperty(ical.ComponentPropertyRrule, rule)
		}
	}
	return cal.Serialize()
}
