package timetable

import (
	"sort"
	"strings"

	"github.com/terolaakso/sepelinpotkija-sub000/business/data/rail"
)

// AttributeDelay explains the delay visible at referenceIndex with the causes recorded on the rows up to it.
// Only lateness gained on the leg ending at a row is credited to that row's causes, and a row shares its
// credit evenly between its causes. The minutes returned never add up to more than the delay at referenceIndex.
// Causes are ordered by descending minutes.
func AttributeDelay(rows []rail.TimetableRow, referenceIndex int, lookup CauseLookup) []rail.Cause {
	if len(rows) == 0 {
		return nil
	}
	referenceIndex = clampIndex(referenceIndex, len(rows))

	totals := make(map[string]int)
	var names []string

	unexplained := rows[referenceIndex].DifferenceInMinutes
	for i := referenceIndex; i >= 0; i-- {
		row := &rows[i]
		stillUnexplained := minInt(unexplained, row.DifferenceInMinutes)
		if row.HasCauses() && stillUnexplained > 0 {
			contribution := minInt(row.DifferenceInMinutes-inheritedLateness(rows, i), stillUnexplained)
			if contribution > 0 {
				share := contribution / len(row.Causes)
				for j := range row.Causes {
					name := CauseName(&row.Causes[j], lookup)
					if _, present := totals[name]; !present {
						names = append(names, name)
					}
					totals[name] += share
				}
				unexplained = stillUnexplained - contribution
				continue
			}
		}
		unexplained = stillUnexplained
	}

	var causes []rail.Cause
	for _, name := range names {
		if totals[name] > 0 {
			causes = append(causes, rail.Cause{Name: name, Minutes: totals[name]})
		}
	}
	sort.SliceStable(causes, func(i, j int) bool {
		return causes[i].Minutes > causes[j].Minutes
	})
	return causes
}

// inheritedLateness is the lateness the train already carried when starting the leg that ends at index:
// the lowest deviation since the train was last on time, not looking past the previous row with causes
func inheritedLateness(rows []rail.TimetableRow, index int) int {
	lowest := 0
	found := false
	for j := index - 1; j >= 0; j-- {
		if rows[j].DifferenceInMinutes <= 0 {
			break
		}
		if !found || rows[j].DifferenceInMinutes < lowest {
			lowest = rows[j].DifferenceInMinutes
			found = true
		}
		if rows[j].HasCauses() {
			break
		}
	}
	return lowest
}

// CauseName builds the display name of a cause, the most specific resolved level first
// followed by the broader levels in parentheses. Falls back to the cause code when nothing resolves.
func CauseName(cause *rail.CauseRef, lookup CauseLookup) string {
	if lookup == nil {
		return cause.MostSpecificCode()
	}
	var names []string
	if cause.ThirdCategoryCodeId != nil {
		if name, ok := lookup.CauseCategoryName(rail.ThirdCategoryLevel, *cause.ThirdCategoryCodeId); ok {
			names = append(names, name)
		}
	}
	if cause.DetailedCategoryCodeId != nil {
		if name, ok := lookup.CauseCategoryName(rail.DetailedCategoryLevel, *cause.DetailedCategoryCodeId); ok {
			names = append(names, name)
		}
	}
	if name, ok := lookup.CauseCategoryName(rail.CategoryLevel, cause.CategoryCodeId); ok {
		names = append(names, name)
	}

	switch len(names) {
	case 0:
		return cause.MostSpecificCode()
	case 1:
		return names[0]
	}
	return names[0] + " (" + strings.Join(names[1:], ", ") + ")"
}

// UpdateDelay sets the current delay and its causes of the train as seen from the row after the last actual time.
// A train that has not departed has no current delay.
func UpdateDelay(train rail.Train, lookup CauseLookup) rail.Train {
	train.CurrentDelayMinutes = nil
	train.CurrentCauses = nil
	if len(train.Rows) == 0 || train.LastKnownActualIndex < 0 {
		return train
	}
	referenceIndex := clampIndex(train.LastKnownActualIndex+1, len(train.Rows))
	delay := train.Rows[referenceIndex].DifferenceInMinutes
	train.CurrentDelayMinutes = &delay
	train.CurrentCauses = AttributeDelay(train.Rows, referenceIndex, lookup)
	return train
}

func clampIndex(index, length int) int {
	if index < 0 {
		return 0
	}
	if index >= length {
		return length - 1
	}
	return index
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
