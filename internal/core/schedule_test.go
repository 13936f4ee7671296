package core

import (
	"testing"
	"time"
)

func TestAddPeriod(t *testing.T) {
	tests := []struct {
		name   string
		from   time.Time
		period Period
		want   time.Time
	}{
		{"weekly", date(2024, 3, 1), Weekly, date(2024, 3, 8)},
		{"monthly plain", date(2024, 3, 15), Monthly, date(2024, 4, 15)},
		{"monthly clamps jan 31 to feb 29", date(2024, 1, 31), Monthly, date(2024, 2, 29)},
		{"monthly clamps jan 31 to feb 28 off leap", date(2023, 1, 31), Monthly, date(2023, 2, 28)},
		{"monthly clamps 31 to 30", date(2024, 5, 31), Monthly, date(2024, 6, 30)},
		{"quarterly", date(2024, 1, 10), Quarterly, date(2024, 4, 10)},
		{"quarterly clamps nov 30 to feb 29", date(2023, 11, 30), Quarterly, date(2024, 2, 29)},
		{"yearly", date(2024, 6, 1), Yearly, date(2025, 6, 1)},
		{"yearly clamps feb 29", date(2024, 2, 29), Yearly, date(2025, 2, 28)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AddPeriod(tt.from, tt.period); !got.Equal(tt.want) {
				t.Errorf("AddPeriod(%v, %v) = %v, want %v", tt.from, tt.period, got, tt.want)
			}
		})
	}
}

func TestAddPeriod_PreservesClock(t *testing.T) {
	from := time.Date(2024, 1, 31, 9, 30, 15, 0, time.UTC)
	got := AddPeriod(from, Monthly)
	want := time.Date(2024, 2, 29, 9, 30, 15, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("AddPeriod() = %v, want %v", got, want)
	}
}
