package calendar

import (
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
)

var (
	sundayToMonday  = []cal.AltDay{{Day: time.Sunday, Offset: 1}}
	weekendToMonday = []cal.AltDay{{Day: time.Saturday, Offset: 2}, {Day: time.Sunday, Offset: 1}}
	// A weekend Christmas or Boxing Day moves two days later.
	weekendPlusTwo = []cal.AltDay{{Day: time.Saturday, Offset: 2}, {Day: time.Sunday, Offset: 2}}
	weekendNearest = []cal.AltDay{{Day: time.Saturday, Offset: -1}, {Day: time.Sunday, Offset: 1}}
)

func fixed(name string, month time.Month, day int, observed ...cal.AltDay) *cal.Holiday {
	return &cal.Holiday{Name: name, Month: month, Day: day, Observed: observed, Func: cal.CalcDayOfMonth}
}

// nth is the n-th weekday of month, counting from the end when n is negative.
func nth(name string, month time.Month, weekday time.Weekday, n int) *cal.Holiday {
	return &cal.Holiday{Name: name, Month: month, Weekday: weekday, Offset: n, Func: cal.CalcWeekdayOffset}
}

func easter(name string, offset int) *cal.Holiday {
	return &cal.Holiday{Name: name, Offset: offset, Func: cal.CalcEasterOffset}
}

var (
	goodFriday   = easter("Good Friday", -2)
	easterMonday = easter("Easter Monday", 1)
	christmasEve = fixed("Christmas Eve", time.December, 24)
	newYearsEve  = fixed("New Year's Eve", time.December, 31)
)

// NYSE keeps trading on Dec 31 when New Year's Day is a Saturday.
var nyseClosures = []*cal.Holiday{
	fixed("New Year's Day", time.January, 1, sundayToMonday...),
	us.MlkDay,
	us.PresidentsDay,
	goodFriday,
	us.MemorialDay,
	{Name: "Juneteenth", StartYear: 2022, Month: time.June, Day: 19, Observed: weekendNearest, Func: cal.CalcDayOfMonth},
	us.IndependenceDay,
	us.LaborDay,
	us.ThanksgivingDay,
	us.ChristmasDay,
}

var nyseHalfDays = []*cal.Holiday{
	fixed("Independence Day Eve", time.July, 3),
	{Name: "Day after Thanksgiving", Func: func(_ *cal.Holiday, year int) time.Time {
		d, _ := us.ThanksgivingDay.Calc(year)
		return d.AddDate(0, 0, 1)
	}},
	christmasEve,
}

var tsxClosures = []*cal.Holiday{
	fixed("New Year's Day", time.January, 1, weekendToMonday...),
	{Name: "Family Day", StartYear: 2008, Month: time.February, Weekday: time.Monday, Offset: 3, Func: cal.CalcWeekdayOffset},
	goodFriday,
	// Victoria Day is the last Monday before May 25.
	{Name: "Victoria Day", Func: func(_ *cal.Holiday, year int) time.Time {
		d := time.Date(year, time.May, 24, 0, 0, 0, 0, cal.DefaultLoc)
		for d.Weekday() != time.Monday {
			d = d.AddDate(0, 0, -1)
		}
		return d
	}},
	fixed("Canada Day", time.July, 1, weekendToMonday...),
	nth("Civic Holiday", time.August, time.Monday, 1),
	nth("Labour Day", time.September, time.Monday, 1),
	nth("Thanksgiving", time.October, time.Monday, 2),
	fixed("Christmas Day", time.December, 25, weekendPlusTwo...),
	fixed("Boxing Day", time.December, 26, weekendPlusTwo...),
}

var lseClosures = []*cal.Holiday{
	fixed("New Year's Day", time.January, 1, weekendToMonday...),
	goodFriday,
	easterMonday,
	nth("Early May Bank Holiday", time.May, time.Monday, 1),
	nth("Spring Bank Holiday", time.May, time.Monday, -1),
	nth("Summer Bank Holiday", time.August, time.Monday, -1),
	fixed("Christmas Day", time.December, 25, weekendPlusTwo...),
	fixed("Boxing Day", time.December, 26, weekendPlusTwo...),
}

var xetraClosures = []*cal.Holiday{
	fixed("Neujahr", time.January, 1),
	goodFriday,
	easterMonday,
	fixed("Tag der Arbeit", time.May, 1),
	christmasEve,
	fixed("1. Weihnachtstag", time.December, 25),
	fixed("2. Weihnachtstag", time.December, 26),
	newYearsEve,
}

// TODO: add the equinox holidays to JPX and the lunar holidays (Lunar New
// Year, Ching Ming, Buddha's Birthday, Tuen Ng, Mid-Autumn) to HKEX and SSE.
var jpxClosures = []*cal.Holiday{
	fixed("New Year's Day", time.January, 1),
	fixed("Bank Holiday", time.January, 2),
	fixed("Bank Holiday", time.January, 3),
	nth("Coming of Age Day", time.January, time.Monday, 2),
	fixed("National Foundation Day", time.February, 11, sundayToMonday...),
	{Name: "Emperor's Birthday", StartYear: 2020, Month: time.February, Day: 23, Observed: sundayToMonday, Func: cal.CalcDayOfMonth},
	fixed("Showa Day", time.April, 29, sundayToMonday...),
	fixed("Constitution Memorial Day", time.May, 3),
	fixed("Greenery Day", time.May, 4),
	fixed("Children's Day", time.May, 5, sundayToMonday...),
	nth("Marine Day", time.July, time.Monday, 3),
	fixed("Mountain Day", time.August, 11, sundayToMonday...),
	nth("Respect for the Aged Day", time.September, time.Monday, 3),
	nth("Sports Day", time.October, time.Monday, 2),
	fixed("Culture Day", time.November, 3, sundayToMonday...),
	fixed("Labour Thanksgiving Day", time.November, 23, sundayToMonday...),
	newYearsEve,
}

var hkexClosures = []*cal.Holiday{
	fixed("New Year's Day", time.January, 1, sundayToMonday...),
	goodFriday,
	easterMonday,
	fixed("Labour Day", time.May, 1, sundayToMonday...),
	fixed("HKSAR Establishment Day", time.July, 1, sundayToMonday...),
	fixed("National Day", time.October, 1, sundayToMonday...),
	fixed("Christmas Day", time.December, 25, weekendPlusTwo...),
	fixed("Boxing Day", time.December, 26, weekendPlusTwo...),
}

var sseClosures = []*cal.Holiday{
	fixed("New Year's Day", time.January, 1),
	fixed("Labour Day", time.May, 1),
	fixed("National Day", time.October, 1),
	fixed("National Day Holiday", time.October, 2),
	fixed("National Day Holiday", time.October, 3),
}

var asxClosures = []*cal.Holiday{
	fixed("New Year's Day", time.January, 1, weekendToMonday...),
	fixed("Australia Day", time.January, 26, weekendToMonday...),
	goodFriday,
	easterMonday,
	fixed("Anzac Day", time.April, 25),
	nth("King's Birthday", time.June, time.Monday, 2),
	fixed("Christmas Day", time.December, 25, weekendPlusTwo...),
	fixed("Boxing Day", time.December, 26, weekendPlusTwo...),
}
