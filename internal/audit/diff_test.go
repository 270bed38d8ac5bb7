package audit

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestChangeSet_SkipsUnchangedFields(t *testing.T) {
	var cs ChangeSet

	cs.Add("nombre", "igual", "igual")
	cs.AddBool("activo", true, true)
	cs.AddMoney("monto", decimal.NewFromInt(100), decimal.RequireFromString("100.00"))

	assert.True(t, cs.Empty())
}

func TestChangeSet_Describe(t *testing.T) {
	var cs ChangeSet

	cs.Add("nombre", "Juan", "Pedro")
	cs.AddMoney("tarifa", decimal.NewFromInt(400), decimal.NewFromInt(450))
	cs.AddBool("activo", true, false)

	assert.False(t, cs.Empty())
	assert.Equal(t, "nombre: 'Juan' a 'Pedro', tarifa: '$400.00' a '$450.00', activo: 'true' a 'false'", cs.Describe())
}

func TestChangeSet_Snapshots(t *testing.T) {
	var cs ChangeSet

	cs.Add("nombre", "Juan", "Pedro")
	cs.Add("teléfono", "", "555-0101")

	assert.Equal(t, map[string]string{"nombre": "Juan", "teléfono": ""}, cs.OldValues())
	assert.Equal(t, map[string]string{"nombre": "Pedro", "teléfono": "555-0101"}, cs.NewValues())
}

func TestChangeSet_MoneyFormatting(t *testing.T) {
	var cs ChangeSet

	cs.AddMoney("monto", decimal.RequireFromString("1000.5"), decimal.RequireFromString("999.999"))

	assert.Len(t, cs.Changes, 1)
	assert.Equal(t, "$1000.50", cs.Changes[0].Old)
	assert.Equal(t, "$1000.00", cs.Changes[0].New)
}
