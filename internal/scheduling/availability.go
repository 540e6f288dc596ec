package scheduling

import (
	"fmt"
	"strings"
	"time"
)

const (
	slotMinutes         = 30
	defaultStartMinutes = 9 * 60
	defaultEndMinutes   = 17 * 60
	minutesPerDay       = 24 * 60
)

// ResolveSlots turns an availability pattern into the ordered slot start times of the given date.
//
// An empty day list means the doctor works every day, and an empty range list falls back to the
// default 09:00-17:00 schedule. Ranges are enumerated in the given order, so overlapping ranges
// produce repeated slots. Malformed ranges and ranges ending before they start yield no slots.
func ResolveSlots(availability Availability, date time.Time) []string {
	if !worksOn(availability.Days, date.Weekday()) {
		return []string{}
	}
	if len(availability.TimeRanges) == 0 {
		return enumerate(nil, defaultStartMinutes, defaultEndMinutes)
	}
	slots := make([]string, 0)
	for _, timeRange := range availability.TimeRanges {
		start, end, err := parseRange(timeRange)
		if err != nil {
			continue
		}
		slots = enumerate(slots, start, end)
	}
	return slots
}

func worksOn(days []int64, weekday time.Weekday) bool {
	if len(days) == 0 {
		return true
	}
	for _, day := range days {
		if day == int64(weekday) {
			return true
		}
	}
	return false
}

func enumerate(slots []string, start, end int) []string {
	for minutes := start; minutes < end; minutes += slotMinutes {
		slots = append(slots, formatClock(minutes))
	}
	return slots
}

// parseRange parses "HH:MM-HH:MM" into minutes since midnight.
func parseRange(value string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(value), "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time range %q", value)
	}
	start, err := parseClock(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	end, err := parseClock(strings.TrimSpace(parts[1]))
	if err != nil {
		// 24:00 is accepted as the end of the day.
		if strings.TrimSpace(parts[1]) != "24:00" {
			return 0, 0, err
		}
		end = minutesPerDay
	}
	return start, end, nil
}

// parseClock parses "HH:MM" into minutes since midnight.
func parseClock(value string) (int, error) {
	if len(value) != 5 || value[2] != ':' {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	digits := [4]byte{value[0], value[1], value[3], value[4]}
	for _, digit := range digits {
		if digit < '0' || digit > '9' {
			return 0, fmt.Errorf("invalid time %q", value)
		}
	}
	hour := int(digits[0]-'0')*10 + int(digits[1]-'0')
	minute := int(digits[2]-'0')*10 + int(digits[3]-'0')
	if hour > 23 || minute > 59 {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	return hour*60 + minute, nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// subtractSlots removes the taken slots, keeping the original order and the first occurrence of repeated slots.
func subtractSlots(slots []string, taken map[string]struct{}) []string {
	free := make([]string, 0, len(slots))
	seen := make(map[string]struct{}, len(slots))
	for _, slot := range slots {
		if _, isTaken := taken[slot]; isTaken {
			continue
		}
		if _, isSeen := seen[slot]; isSeen {
			continue
		}
		seen[slot] = struct{}{}
		free = append(free, slot)
	}
	return free
}

func containsSlot(slots []string, slot string) bool {
	for _, s := range slots {
		if s == slot {
			return true
		}
	}
	return false
}
