package core

// LastDayOfMonth returns the number of days in the given month, accounting
// for leap-year February.
func LastDayOfMonth(year, month int) int {
	switch month {
	case 4, 6, 9, 11:
		return 30
	case 2:
		if isLeap(year) {
			return 29
		}
		return 28
	default:
		return 31
	}
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// AddDays moves d by n calendar days (n may be negative).
func AddDays(d Date, n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// AddMonths moves d by n months. The day is clamped to the last day of the
// target month, so 31/01 + 1 month is 28/02 or 29/02.
func AddMonths(d Date, n int) Date {
	total := d.Year*12 + (d.Month - 1) + n
	year := floorDiv(total, 12)
	month := total - year*12 + 1
	return Date{Year: year, Month: month, Day: min(d.Day, LastDayOfMonth(year, month))}
}

// AddYears moves d by n years, clamping 29/02 to 28/02 in non-leap years.
func AddYears(d Date, n int) Date {
	year := d.Year + n
	return Date{Year: year, Month: d.Month, Day: min(d.Day, LastDayOfMonth(year, d.Month))}
}

// Add dispatches to AddDays, AddMonths or AddYears.
func Add(d Date, unit Unit, n int) Date {
	switch unit {
	case UnitMonths:
		return AddMonths(d, n)
	case UnitYears:
		return AddYears(d, n)
	default:
		return AddDays(d, n)
	}
}

// floorDiv rounds toward negative infinity, unlike Go's / operator.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

