package temporal

import "time"

// Anchors are literal dates pre-computed for a reference instant, handed to
// text generation so that it selects dates instead of computing them.
type Anchors struct {
	Today      string
	Tomorrow   string
	Yesterday  string
	WeekStart  string // Monday
	WeekEnd    string // Sunday
	MonthStart string
	MonthEnd   string
	Weekday    string
}

// Anchors computes the anchor set for ref in the resolver's timezone.
func (r *Resolver) Anchors(ref time.Time) Anchors {
	return AnchorsAt(ref, r.loc)
}

// AnchorsAt computes the anchor set for ref converted into loc.
func AnchorsAt(ref time.Time, loc *time.Location) Anchors {
	if loc == nil {
		loc = time.UTC
	}
	today := midnight(ref.In(loc))
	return Anchors{
		Today:      today.Format(ISOLayout),
		Tomorrow:   today.AddDate(0, 0, 1).Format(ISOLayout),
		Yesterday:  today.AddDate(0, 0, -1).Format(ISOLayout),
		WeekStart:  weekStart(today).Format(ISOLayout),
		WeekEnd:    weekEnd(today).Format(ISOLayout),
		MonthStart: time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, loc).Format(ISOLayout),
		MonthEnd:   monthEnd(today).Format(ISOLayout),
		Weekday:    today.Weekday().String(),
	}
}
