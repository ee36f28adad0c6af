package delivery

import "strconv"

// ProvinceForPostalCode maps an Argentine postal code to the ISO 3166-2:AR
// province code the carrier expects. The mapping is by thousand band, which is
// coarse but matches how Correo Argentino partitions the country. Unknown or
// malformed codes default to Buenos Aires province.
func ProvinceForPostalCode(postalCode string) string {
	cp, err := strconv.Atoi(postalCode)
	if err != nil {
		return "AR-B"
	}

	switch {
	case cp >= 1000 && cp <= 1999:
		return "AR-B" // Buenos Aires
	case cp >= 2000 && cp <= 2999:
		return "AR-S" // Santa Fe
	case cp >= 3000 && cp <= 3999:
		return "AR-N" // Misiones / Entre Rios / Corrientes
	case cp >= 4000 && cp <= 4999:
		return "AR-T" // Tucuman / Salta / Jujuy
	case cp >= 5000 && cp <= 5999:
		return "AR-X" // Cordoba
	case cp >= 6000 && cp <= 6999:
		return "AR-L" // La Pampa
	case cp >= 7000 && cp <= 7999:
		return "AR-B" // Buenos Aires interior
	case cp >= 8000 && cp <= 8999:
		return "AR-U" // Chubut / Rio Negro
	case cp >= 9000 && cp <= 9999:
		return "AR-Z" // Santa Cruz / Tierra del Fuego
	}
	return "AR-B"
}
