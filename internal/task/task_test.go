package task

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestWeekdaysBits(t *testing.T) {
	w := WeekdaysOf(time.Monday, time.Sunday)
	assert.Equal(t, Weekdays(0b1000001), w)
	assert.True(t, w.Has(time.Monday))
	assert.True(t, w.Has(time.Sunday))
	assert.False(t, w.Has(time.Tuesday))
	assert.Equal(t, []time.Weekday{time.Monday, time.Sunday}, w.Days())
	assert.Equal(t, "Mon, Sun", w.String())

	w = w.Remove(time.Monday)
	assert.False(t, w.Has(time.Monday))
	assert.True(t, w.Valid())
	assert.False(t, Weekdays(0).Valid())
	assert.False(t, Weekdays(0x80).Valid())
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		r    Recurrence
		ok   bool
	}{
		{"on date", OnDate{Day: 3}, true},
		{"negative date", OnDate{Day: -1}, false},
		{"weekly", Weekly{Days: WeekdaysOf(time.Friday)}, true},
		{"empty weekly", Weekly{}, false},
		{"interval", Interval{Start: 10, Every: 3}, true},
		{"zero interval", Interval{Start: 10, Every: 0}, false},
		{"month day", MonthDay{Day: 28}, true},
		{"month day too large", MonthDay{Day: 29}, false},
		{"month day zero", MonthDay{Day: 0}, false},
		{"no rule", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := New("x", tc.r).Validate()
			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestValidateNoRecurrence(t *testing.T) {
	err := Task{Name: "x"}.Validate()
	require.ErrorIs(t, err, ErrNoRecurrence)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestBlankNameIsAccepted(t *testing.T) {
	require.NoError(t, New("  ", OnDate{Day: 1}).Validate())
}

func TestEqual(t *testing.T) {
	a := New("A", OnDate{Day: 5})
	b := a
	assert.True(t, a.Equal(b))

	b.Name = "B"
	assert.False(t, a.Equal(b))

	c := a.WithRecurrence(OnDate{Day: 6})
	assert.False(t, a.Equal(c))
	assert.Equal(t, 0, Index([]Task{a, c}, a))
	assert.Equal(t, 1, Index([]Task{a, c}, c))
	assert.Equal(t, -1, Index([]Task{c}, a))
}

func TestNewAssignsDistinctIDs(t *testing.T) {
	a := New("A", OnDate{Day: 5})
	b := New("A", OnDate{Day: 5})
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestOneOff(t *testing.T) {
	r, ok := New("A", OnDate{Day: 5}).OneOff()
	require.True(t, ok)
	assert.Equal(t, OnDate{Day: 5}, r)

	_, ok = New("B", MonthDay{Day: 1}).OneOff()
	assert.False(t, ok)
}

func TestJSONRecurrenceFields(t *testing.T) {
	tasks := []Task{
		{ID: "1", Name: "once", Recurrence: OnDate{Day: 7}},
		{ID: "2", Name: "weekly", Recurrence: Weekly{Days: WeekdaysOf(time.Tuesday)}},
		{ID: "3", Name: "interval", Recurrence: Interval{Start: 2, Every: 3}},
		{ID: "4", Name: "monthly", Recurrence: MonthDay{Day: 15}},
	}
	data, err := json.Marshal(tasks)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"id":"1","name":"once","on_date":7},
		{"id":"2","name":"weekly","days_of_week":2},
		{"id":"3","name":"interval","interval_from_date":{"start":2,"interval":3}},
		{"id":"4","name":"monthly","nth_day_of_month":15}
	]`, string(data))

	var decoded []Task
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, tasks, decoded)
}

func TestJSONRejectsZeroOrManyRules(t *testing.T) {
	var tk Task
	err := json.Unmarshal([]byte(`{"name":"none"}`), &tk)
	require.ErrorIs(t, err, ErrNoRecurrence)

	err = json.Unmarshal([]byte(`{"name":"two","on_date":1,"nth_day_of_month":2}`), &tk)
	require.ErrorIs(t, err, ErrInvalid)

	_, err = json.Marshal(Task{Name: "none"})
	require.Error(t, err)
}

func TestYAMLWeekdayNames(t *testing.T) {
	tk := Task{ID: "1", Name: "gym", Recurrence: Weekly{Days: WeekdaysOf(time.Monday, time.Thursday)}}
	data, err := yaml.Marshal(tk)
	require.NoError(t, err)
	assert.Contains(t, string(data), "- mon")
	assert.Contains(t, string(data), "- thu")

	var decoded Task
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, tk, decoded)

	require.NoError(t, yaml.Unmarshal([]byte("name: bits\ndays_of_week: 3\n"), &decoded))
	assert.Equal(t, Weekly{Days: WeekdaysOf(time.Monday, time.Tuesday)}, decoded.Recurrence)
}

func TestYAMLRejectsBitsOutsideWeek(t *testing.T) {
	var decoded Task
	err := yaml.Unmarshal([]byte("name: bits\ndays_of_week: 255\n"), &decoded)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "days_of_week 255")

	require.NoError(t, yaml.Unmarshal([]byte("name: bits\ndays_of_week: 127\n"), &decoded))
	assert.Equal(t, Weekly{Days: allWeekdays}, decoded.Recurrence)
}

func TestParseWeekday(t *testing.T) {
	d, err := ParseWeekday("Wed")
	require.NoError(t, err)
	assert.Equal(t, time.Wednesday, d)

	d, err = ParseWeekday("saturday")
	require.NoError(t, err)
	assert.Equal(t, time.Saturday, d)

	_, err = ParseWeekday("mo")
	require.Error(t, err)
	_, err = ParseWeekday("funday")
	require.Error(t, err)
}
