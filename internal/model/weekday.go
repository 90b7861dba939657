package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// WeekdaySet is a set of weekdays, one bit per time.Weekday.
type WeekdaySet uint8

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"sun":       time.Sunday,
	"domingo":   time.Sunday,
	"monday":    time.Monday,
	"mon":       time.Monday,
	"segunda":   time.Monday,
	"tuesday":   time.Tuesday,
	"tue":       time.Tuesday,
	"terca":     time.Tuesday,
	"wednesday": time.Wednesday,
	"wed":       time.Wednesday,
	"quarta":    time.Wednesday,
	"thursday":  time.Thursday,
	"thu":       time.Thursday,
	"quinta":    time.Thursday,
	"friday":    time.Friday,
	"fri":       time.Friday,
	"sexta":     time.Friday,
	"saturday":  time.Saturday,
	"sat":       time.Saturday,
	"sabado":    time.Saturday,
}

var accentFolder = strings.NewReplacer("ç", "c", "á", "a", "à", "a", "ã", "a", "â", "a", "é", "e", "ê", "e", "í", "i", "ó", "o", "ô", "o", "ú", "u")

// ParseWeekday accepts English names and Portuguese names with or without
// the "-feira" suffix and accents.
func ParseWeekday(name string) (time.Weekday, error) {
	key := accentFolder.Replace(strings.ToLower(strings.TrimSpace(name)))
	key = strings.TrimSuffix(key, "-feira")
	key = strings.TrimSuffix(key, " feira")
	if wd, ok := weekdayNames[key]; ok {
		return wd, nil
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", name)
}

// ParseWeekdaySet builds a set from names; unrecognised names are returned
// separately so callers can decide whether to reject them.
func ParseWeekdaySet(names []string) (WeekdaySet, []string) {
	var set WeekdaySet
	var unknown []string
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		wd, err := ParseWeekday(n)
		if err != nil {
			unknown = append(unknown, n)
			continue
		}
		set = set.Add(wd)
	}
	return set, unknown
}

func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var set WeekdaySet
	for _, d := range days {
		set = set.Add(d)
	}
	return set
}

func (s WeekdaySet) Add(d time.Weekday) WeekdaySet { return s | 1<<uint(d) }
func (s WeekdaySet) Has(d time.Weekday) bool       { return s&(1<<uint(d)) != 0 }
func (s WeekdaySet) Empty() bool                   { return s == 0 }

// Days lists the members from Sunday to Saturday.
func (s WeekdaySet) Days() []time.Weekday {
	var days []time.Weekday
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Has(d) {
			days = append(days, d)
		}
	}
	return days
}

// Names lists the members by English name, as written to the store.
func (s WeekdaySet) Names() []string {
	names := make([]string, 0, 7)
	for _, d := range s.Days() {
		names = append(names, d.String())
	}
	return names
}

func (s WeekdaySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Names())
}

func (s *WeekdaySet) UnmarshalJSON(b []byte) error {
	var names []string
	if err := json.Unmarshal(b, &names); err != nil {
		return err
	}
	set, unknown := ParseWeekdaySet(names)
	if len(unknown) > 0 {
		return fmt.Errorf("unknown weekdays: %s", strings.Join(unknown, ", "))
	}
	*s = set
	return nil
}
