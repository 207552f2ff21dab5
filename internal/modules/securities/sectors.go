package securities

import (
	"fmt"
	"strings"
)

// Sector is one of the fixed industry classifications a security row can be tagged with
type Sector string

// The supported sectors, in display order
const (
	Technology            Sector = "Technology"
	FinancialServices     Sector = "Financial Services"
	Healthcare            Sector = "Healthcare"
	ConsumerCyclical      Sector = "Consumer Cyclical"
	CommunicationServices Sector = "Communication Services"
	Industrials           Sector = "Industrials"
	ConsumerDefensive     Sector = "Consumer Defensive"
	Energy                Sector = "Energy"
	Utilities             Sector = "Utilities"
	RealEstate            Sector = "Real Estate"
	BasicMaterials        Sector = "Basic Materials"
)

// Sectors lists every sector in display order
var Sectors = []Sector{
	Technology,
	FinancialServices,
	Healthcare,
	ConsumerCyclical,
	CommunicationServices,
	Industrials,
	ConsumerDefensive,
	Energy,
	Utilities,
	RealEstate,
	BasicMaterials,
}

// IsSector reports whether name is exactly one of the supported sectors
func IsSector(name string) bool {
	for _, s := range Sectors {
		if string(s) == name {
			return true
		}
	}
	return false
}

// ParseSector resolves a sector name case-insensitively
func ParseSector(name string) (Sector, error) {
	trimmed := strings.TrimSpace(name)
	for _, s := range Sectors {
		if strings.EqualFold(string(s), trimmed) {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSector, name)
}
