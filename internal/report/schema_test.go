package report

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestResolvePortalHeaders(t *testing.T) {
	headers := []string{
		"# Pedido", "Fecha de creación", "Nombre del cliente", "Teléfono",
		"Tienda", "Producto", "Estado de envío", "Estado", "Subtotal", "Total",
	}
	m, err := Resolve(headers, DefaultRules)
	require.NoError(t, err)

	expected := Mapping{
		FieldDate:     1,
		FieldCustomer: 2,
		FieldPhone:    3,
		FieldStore:    4,
		FieldProduct:  5,
		FieldShipment: 6,
		FieldStatus:   7,
		FieldAmount:   9, // exact "Total" beats "Subtotal"
	}
	if diff := cmp.Diff(expected, m); diff != "" {
		t.Fatalf("mapping mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveClaimsEachColumnOnce(t *testing.T) {
	// only one "estado"-like column: shipment takes it first, status stays unmapped
	m, err := Resolve([]string{"FECHA", "estado de envio", "TOTAL A PAGAR"}, DefaultRules)
	require.NoError(t, err)
	require.Equal(t, 1, m[FieldShipment])
	_, ok := m[FieldStatus]
	require.False(t, ok)
	require.Equal(t, 2, m[FieldAmount])
}

func TestResolveMissingRequired(t *testing.T) {
	_, err := Resolve([]string{"Cliente", "Tienda"}, DefaultRules)
	require.ErrorIs(t, err, ErrMissingColumn)
	require.Contains(t, err.Error(), "Amount")
	require.Contains(t, err.Error(), "Date")
}

func TestMappingCell(t *testing.T) {
	m := Mapping{FieldStore: 1, FieldAmount: 5}
	row := []string{"a", "  Tienda Centro "}
	require.Equal(t, "Tienda Centro", m.Cell(row, FieldStore))
	require.Equal(t, "", m.Cell(row, FieldAmount))
	require.Equal(t, "", m.Cell(row, FieldPhone))
}
