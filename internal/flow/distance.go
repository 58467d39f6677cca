package flow

import "math"

const earthRadiusKM = 6371.0

// DeliveryPolicy is the distance-to-fee rule: the nearest registered service
// point determines the price tier by great-circle distance.
type DeliveryPolicy struct {
	FreeRadiusKM float64
	MidRadiusKM  float64
	MaxRadiusKM  float64
	MidFee       int
	HighFee      int
}

// Quote returns the delivery fee for a customer at the given distance, and
// whether delivery is offered at all. Beyond MaxRadiusKM only pickup remains.
func (p DeliveryPolicy) Quote(distanceKM float64) (fee int, offered bool) {
	switch {
	case distanceKM <= p.FreeRadiusKM:
		fee = 0
	case distanceKM <= p.MidRadiusKM:
		fee = p.MidFee
	default:
		fee = p.HighFee
	}

	return fee, distanceKM <= p.MaxRadiusKM
}

// distanceKM computes the great-circle distance between two points given as
// (lon, lat) pairs in degrees.
func distanceKM(lon1, lat1, lon2, lat2 float64) float64 {
	rad := math.Pi / 180

	phi1 := lat1 * rad
	phi2 := lat2 * rad
	dPhi := (lat2 - lat1) * rad
	dLambda := (lon2 - lon1) * rad

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)

	return 2 * earthRadiusKM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
