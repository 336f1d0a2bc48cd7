package lesson

import "strings"

// Color is a calendar color id as used by Google Calendar event colors.
type Color string

const (
	ColorDefault   Color = ""
	ColorLavender  Color = "1"
	ColorSage      Color = "2"
	ColorGrape     Color = "3"
	ColorFlamingo  Color = "4"
	ColorBanana    Color = "5"
	ColorTangerine Color = "6"
	ColorPeacock   Color = "7"
	ColorGraphite  Color = "8"
	ColorBlueberry Color = "9"
	ColorBasil     Color = "10"
	ColorTomato    Color = "11"
)

// Operators mark lessons by recoloring them in the calendar:
//
//	daily view    graphite -> cancelled, blueberry|banana -> rescheduled
//	monthly view  graphite|blueberry -> cancelled, banana -> rescheduled, tomato -> demo
var (
	dailyColorStatus = map[Color]DailyStatus{
		ColorGraphite:  StatusCancelled,
		ColorBlueberry: StatusRescheduled,
		ColorBanana:    StatusRescheduled,
	}
	monthlyColorStatus = map[Color]MonthlyStatus{
		ColorGraphite:  MonthlyCancelled,
		ColorBlueberry: MonthlyCancelled,
		ColorBanana:    MonthlyRescheduled,
		ColorTomato:    MonthlyDemo,
	}
)

var colorNames = map[string]Color{
	"lavender":  ColorLavender,
	"sage":      ColorSage,
	"grape":     ColorGrape,
	"flamingo":  ColorFlamingo,
	"banana":    ColorBanana,
	"tangerine": ColorTangerine,
	"peacock":   ColorPeacock,
	"graphite":  ColorGraphite,
	"blueberry": ColorBlueberry,
	"basil":     ColorBasil,
	"tomato":    ColorTomato,
}

// ColorByName resolves a color given by name ("graphite") or by id ("8").
func ColorByName(name string) (Color, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if c, ok := colorNames[name]; ok {
		return c, true
	}
	for _, c := range colorNames {
		if string(c) == name {
			return c, true
		}
	}
	return ColorDefault, false
}

// ColorStatus reports the daily status carried by the event color, if any.
func ColorStatus(c Color) (DailyStatus, bool) {
	status, ok := dailyColorStatus[c]
	return status, ok
}
