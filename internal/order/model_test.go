package order

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusPaid, true},
		{StatusPending, StatusCanceled, true},
		{StatusPending, StatusFulfilled, false},
		{StatusPaid, StatusFulfilled, true},
		{StatusPaid, StatusCanceled, true},
		{StatusPaid, StatusPending, false},
		{StatusFulfilled, StatusCanceled, false},
		{StatusCanceled, StatusPaid, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestStatusValid(t *testing.T) {
	if !StatusPaid.Valid() {
		t.Fatal("paid should be valid")
	}
	if Status("shipped").Valid() {
		t.Fatal("unknown status should be invalid")
	}
}
