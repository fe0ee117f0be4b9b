package cypher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorWhitelists(t *testing.T) {
	require.NoError(t, ValidateLabel("SAPSystem"))
	require.NoError(t, ValidateRelationship("DEPENDS_ON"))
	require.NoError(t, ValidateProperty("hostname"))

	assert.ErrorIs(t, ValidateLabel("sapsystem"), ErrInvalidLabel)
	assert.ErrorIs(t, ValidateLabel(""), ErrInvalidLabel)
	assert.ErrorIs(t, ValidateRelationship("depends_on"), ErrInvalidRelationship)
	assert.ErrorIs(t, ValidateProperty("hostname; DROP"), ErrInvalidProperty)
}

func TestValidateParamName(t *testing.T) {
	valid := []string{"sid", "sid_1", "_x", "Param9"}
	for _, name := range valid {
		assert.NoError(t, ValidateParamName(name), name)
	}

	invalid := []string{"", "9lives", "a-b", "a b", "a.b", "$a"}
	for _, name := range invalid {
		assert.ErrorIs(t, ValidateParamName(name), ErrInvalidParamName, name)
	}
}

func TestWhitelistAccessorsReturnCopies(t *testing.T) {
	labels := AllowedLabels()
	require.NotEmpty(t, labels)
	labels[0] = "Tampered"
	assert.ErrorIs(t, ValidateLabel("Tampered"), ErrInvalidLabel)
}
