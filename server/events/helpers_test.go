package events

import "github.com/SaShakib/CalendarAPIRrule/server/recurrence"

func recurrenceEngineWithCap(n int) *recurrence.Engine {
	return recurrence.NewEngine(recurrence.WithExpansionOptions(recurrence.ExpansionOptions{MaxOccurrences: n}))
}
