package service

import "testing"

func TestDeliveryFee(t *testing.T) {
	cases := []struct {
		distanceKm float64
		want       float64
	}{
		{0, 0},
		{1, 2000},
		{2.5, 5000},
		{3, 6000},
		// 3-4 km band bills at the short-haul rate.
		{3.5, 7000},
		{4, 2800},
		{5, 3500},
		{10, 7000},
	}
	for _, c := range cases {
		if got := DeliveryFee(c.distanceKm); got != c.want {
			t.Errorf("DeliveryFee(%v) = %v, want %v", c.distanceKm, got, c.want)
		}
	}
}

func TestDeliveryFee_NegativeDistance(t *testing.T) {
	if got := DeliveryFee(-1); got != 0 {
		t.Fatalf("DeliveryFee(-1) = %v, want 0", got)
	}
}
