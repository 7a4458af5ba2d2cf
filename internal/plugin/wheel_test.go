package plugin

import "testing"

func TestNotches(t *testing.T) {
	tests := []struct {
		amount int
		want   int
	}{
		{amount: 0, want: 0},
		{amount: 160, want: 1},
		{amount: -160, want: -1},
		{amount: 180, want: 2},
		{amount: 240, want: 2},
		{amount: 10, want: 1},
		{amount: -10, want: -1},
		{amount: -600, want: -5},
	}

	for _, tt := range tests {
		if got := Notches(tt.amount); got != tt.want {
			t.Errorf("Notches(%d) = %d, want %d", tt.amount, got, tt.want)
		}
	}
}
