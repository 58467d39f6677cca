package flow

import (
	"math"
	"testing"
)

func TestDeliveryPolicy_Quote(t *testing.T) {
	policy := DeliveryPolicy{
		FreeRadiusKM: 0.5,
		MidRadiusKM:  5,
		MaxRadiusKM:  20,
		MidFee:       100,
		HighFee:      300,
	}

	testCases := []struct {
		name        string
		distanceKM  float64
		wantFee     int
		wantOffered bool
	}{
		{name: "doorstep", distanceKM: 0.3, wantFee: 0, wantOffered: true},
		{name: "free tier boundary", distanceKM: 0.5, wantFee: 0, wantOffered: true},
		{name: "mid tier", distanceKM: 2, wantFee: 100, wantOffered: true},
		{name: "mid tier boundary", distanceKM: 5, wantFee: 100, wantOffered: true},
		{name: "high tier", distanceKM: 10, wantFee: 300, wantOffered: true},
		{name: "max radius boundary", distanceKM: 20, wantFee: 300, wantOffered: true},
		{name: "out of range", distanceKM: 25, wantFee: 300, wantOffered: false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			fee, offered := policy.Quote(tc.distanceKM)
			if fee != tc.wantFee {
				t.Fatalf("fee = %d, want %d", fee, tc.wantFee)
			}
			if offered != tc.wantOffered {
				t.Fatalf("offered = %v, want %v", offered, tc.wantOffered)
			}
		})
	}
}

func TestDistanceKM(t *testing.T) {
	testCases := []struct {
		name                   string
		lon1, lat1, lon2, lat2 float64
		wantKM                 float64
		toleranceKM            float64
	}{
		{
			name: "same point",
			lon1: 37.618, lat1: 55.751, lon2: 37.618, lat2: 55.751,
			wantKM: 0, toleranceKM: 0.001,
		},
		{
			// Red Square to Gorky Park
			name: "across town",
			lon1: 37.6208, lat1: 55.7539, lon2: 37.6032, lat2: 55.7298,
			wantKM: 2.9, toleranceKM: 0.3,
		},
		{
			// Moscow to Saint Petersburg
			name: "intercity",
			lon1: 37.6173, lat1: 55.7558, lon2: 30.3351, lat2: 59.9343,
			wantKM: 634, toleranceKM: 10,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := distanceKM(tc.lon1, tc.lat1, tc.lon2, tc.lat2)
			if math.Abs(got-tc.wantKM) > tc.toleranceKM {
				t.Fatalf("distanceKM = %.2f, want %.2f ± %.2f", got, tc.wantKM, tc.toleranceKM)
			}
		})
	}
}
