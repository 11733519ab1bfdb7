package engine

import (
	"fmt"

	"recount/internal/domain"
)

// DefaultGenericProducts is how many PROD-NNNN entries the seed adds.
const DefaultGenericProducts = 500

var namedProducts = []domain.CatalogEntry{
	{Code: "1001", Description: "PARAFUSO SEXTAVADO 1/2 POL", Type: "FERRAGEM", Unit: "UN", Barcode: "7890001001"},
	{Code: "1002", Description: "BUCHA DE NYLON 8MM", Type: "FERRAGEM", Unit: "PCT", Barcode: "7890001002"},
	{Code: "1003", Description: "MARTELO CARPINTEIRO", Type: "FERRAMENTA", Unit: "UN", Barcode: "7890001003"},
	{Code: "1004", Description: "FURADEIRA DE IMPACTO 500W", Type: "ELETRICO", Unit: "UN", Barcode: "7890001004"},
	{Code: "1005", Description: "CIMENTO VOTORAN 50KG", Type: "MATERIAL", Unit: "SC", Barcode: "7890001005"},
	{Code: "1006", Description: "TINTA ACRILICA BRANCA 18L", Type: "PINTURA", Unit: "LT", Barcode: "7890001006"},
	{Code: "1007", Description: "DISCO DE CORTE 4.5 POL", Type: "ABRASIVO", Unit: "CX", Barcode: "7890001007"},
	{Code: "1008", Description: "LUVA DE PROTECAO MALHA", Type: "EPI", Unit: "PAR", Barcode: "7890001008"},
	{Code: "1009", Description: "CABO FLEXIVEL 2.5MM", Type: "ELETRICO", Unit: "MT", Barcode: "7890001009"},
	{Code: "1010", Description: "LAMPADA LED 9W BIVOLT", Type: "ILUMINACAO", Unit: "UN", Barcode: "7890001010"},
}

// SeedEntries returns the named demo products followed by generic ones.
func SeedEntries(generic int, createdAt string) []domain.CatalogEntry {
	out := make([]domain.CatalogEntry, 0, len(namedProducts)+generic)
	for _, p := range namedProducts {
		p.Sector = domain.DefaultSector
		p.CreatedAt = createdAt
		out = append(out, p)
	}
	for i := 1; i <= generic; i++ {
		out = append(out, domain.CatalogEntry{
			Code:        fmt.Sprintf("PROD-%04d", i),
			Description: fmt.Sprintf("ITEM GENERICO DE TESTE N.%d", i),
			Type:        domain.DefaultSector,
			Unit:        "UN",
			Sector:      domain.DefaultSector,
			CreatedAt:   createdAt,
		})
	}
	return out
}
