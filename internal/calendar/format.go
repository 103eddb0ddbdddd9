package calendar

import (
	"fmt"
	"time"
)

// FormatRange форматирует интервал в человекочитаемую строку для уведомлений.
// Если loc != nil, время переводится в указанный часовой пояс.
// Если includeID = true, в конце добавляется идентификатор в скобках.
func FormatRange(
	tr TimeRange,
	loc *time.Location,
	includeID bool,
	id string,
) string {
	start := tr.Start
	end := tr.End

	if loc != nil {
		start = start.In(loc)
		end = end.In(loc)
	}

	base := fmt.Sprintf("%s, %s, %s-%s %s",
		WeekdayOf(start),
		start.Format("02.01.2006"),
		start.Format("15:04"),
		end.Format("15:04"),
		start.Format("MST"),
	)

	if includeID && id != "" {
		return fmt.Sprintf("%s (ID: %s)", base, id)
	}
	return base
}
