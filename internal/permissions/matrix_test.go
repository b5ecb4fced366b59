package permissions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMatrixGrantsOnlyListedCodes(t *testing.T) {
	matrix := BuildMatrix([]string{"booking.view", "user.edit"})

	assert.True(t, matrix.Allowed("Bookings", "read"))
	assert.True(t, matrix.Allowed("Users", "update"))
	assert.False(t, matrix.Allowed("Bookings", "create"))
	assert.False(t, matrix.Allowed("Payments", "read"))
}

func TestBuildMatrixIsTotalOverTable(t *testing.T) {
	matrix := BuildMatrix(nil)

	require.Len(t, matrix, len(moduleTable))
	for module, actions := range moduleTable {
		require.Len(t, matrix[module], len(actions))
		for action := range actions {
			granted, ok := matrix[module][action]
			assert.True(t, ok, "%s/%s missing", module, action)
			assert.False(t, granted, "%s/%s granted with no codes", module, action)
		}
	}
}

func TestBuildMatrixIgnoresUnknownCodes(t *testing.T) {
	matrix := BuildMatrix([]string{"report.view", "booking.view"})

	assert.True(t, matrix.Allowed("Bookings", "read"))
	// Codes outside the table do not create new rows.
	assert.Len(t, matrix, len(moduleTable))
}

func TestAllowedUnknownPairs(t *testing.T) {
	matrix := BuildMatrix([]string{"booking.view"})

	assert.False(t, matrix.Allowed("Reports", "read"))
	assert.False(t, matrix.Allowed("Bookings", "approve"))
	assert.False(t, Matrix(nil).Allowed("Bookings", "read"))
}

func TestModulesCoversTable(t *testing.T) {
	assert.ElementsMatch(t,
		[]string{"Bookings", "Users", "Taaskrs", "Services", "Payments", "Settings"},
		Modules())
}
