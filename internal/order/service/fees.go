package service

import "math"

// Delivery fee rate table in TZS per kilometer.
const (
	shortHaulRatePerKm = 2000.0
	longHaulRatePerKm  = 700.0
	longHaulStartKm    = 4.0
)

// DeliveryFee maps a route distance to the delivery fee in whole TZS.
// Distances below 4 km bill at the short-haul rate; from 4 km the
// long-haul rate applies. The source rate table left the 3-4 km band
// undefined; it is billed at the short-haul rate here.
func DeliveryFee(distanceKm float64) float64 {
	if distanceKm <= 0 {
		return 0
	}
	if distanceKm < longHaulStartKm {
		return math.Round(distanceKm * shortHaulRatePerKm)
	}
	return math.Round(distanceKm * longHaulRatePerKm)
}
