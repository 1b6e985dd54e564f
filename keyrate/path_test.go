package keyrate

import (
	"testing"
	"time"

	"github.com/meenmo/mbslib/utils"
)

func TestNewPath_CollapsesDuplicates(t *testing.T) {
	t.Parallel()

	p, err := NewPath([]Point{
		{utils.Date(2023, time.March, 1), 7.5},
		{utils.Date(2023, time.January, 1), 7.5},
		{utils.Date(2023, time.June, 1), 8.5},
		{utils.Date(2023, time.September, 1), 8.5},
		{utils.Date(2023, time.December, 1), 16.0},
	})
	if err != nil {
		t.Fatal(err)
	}

	pts := p.Points()
	if len(pts) != 3 {
		t.Fatalf("want 3 distinct steps, got %d: %v", len(pts), pts)
	}
	if !pts[0].Date.Equal(utils.Date(2023, time.January, 1)) || pts[0].Rate != 7.5 {
		t.Errorf("unexpected first step %v", pts[0])
	}
	if pts[1].Rate != 8.5 || pts[2].Rate != 16.0 {
		t.Errorf("unexpected steps %v", pts)
	}
}

func TestNewPath_ConflictingSameDate(t *testing.T) {
	t.Parallel()

	_, err := NewPath([]Point{
		{utils.Date(2023, time.January, 1), 7.5},
		{utils.Date(2023, time.January, 1), 8.0},
	})
	if err == nil {
		t.Fatal("expected error for conflicting rates on the same date")
	}
}

func TestRateAt(t *testing.T) {
	t.Parallel()

	p, err := NewPath([]Point{
		{utils.Date(2023, time.January, 1), 7.5},
		{utils.Date(2023, time.July, 24), 8.5},
		{utils.Date(2023, time.August, 15), 12.0},
	})
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		date time.Time
		want float64
	}{
		{utils.Date(2022, time.December, 1), 7.5}, // before first step
		{utils.Date(2023, time.January, 1), 7.5},
		{utils.Date(2023, time.July, 23), 7.5},
		{utils.Date(2023, time.July, 24), 8.5},
		{utils.Date(2024, time.March, 1), 12.0}, // held flat past the last step
	}
	for _, tc := range cases {
		got, err := p.RateAt(tc.date)
		if err != nil {
			t.Fatal(err)
		}
		if got != tc.want {
			t.Errorf("RateAt(%s) = %v, want %v", tc.date.Format("2006-01-02"), got, tc.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	p, _ := NewPath([]Point{
		{utils.Date(2023, time.January, 1), 7.5},
		{utils.Date(2023, time.July, 24), 8.5},
		{utils.Date(2023, time.August, 15), 12.0},
	})

	tr := p.Truncate(utils.Date(2023, time.July, 24))
	if tr.Len() != 2 {
		t.Fatalf("want 2 steps, got %d", tr.Len())
	}
	last, _ := tr.Last()
	if last.Rate != 8.5 {
		t.Errorf("last = %v", last)
	}
}
