package differ

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemadrift/schemadrift/internal/models"
)

func schemaNode(id, hash string, props ...models.Property) *models.Node {
	return &models.Node{
		ID:         id,
		Type:       models.NodeTypeSchema,
		Name:       id,
		FileHash:   hash,
		Properties: props,
	}
}

func enumNode(id, hash string, values ...string) *models.Node {
	return &models.Node{
		ID:       id,
		Type:     models.NodeTypeEnum,
		Name:     id,
		FileHash: hash,
		Metadata: map[string]any{"values": values},
	}
}

func req(name, typ string) models.Property {
	return models.Property{Name: name, Type: typ, Required: true}
}

func opt(name, typ string) models.Property {
	return models.Property{Name: name, Type: typ, Required: false}
}

func TestDiffBothAbsent(t *testing.T) {
	_, err := Diff(nil, nil)
	assert.Error(t, err)
}

func TestDiffAdded(t *testing.T) {
	diff, err := Diff(nil, schemaNode("User", "h1", opt("nickname", "string")))
	require.NoError(t, err)

	assert.Equal(t, models.ChangeTypeAdded, diff.ChangeType)
	assert.False(t, diff.Breaking)
	require.Len(t, diff.Changes, 1)
	assert.Equal(t, models.ChangeFieldAdded, diff.Changes[0].Kind)
}

func TestDiffRemovedAlwaysBreaking(t *testing.T) {
	diff, err := Diff(schemaNode("User", "h1"), nil)
	require.NoError(t, err)

	assert.Equal(t, models.ChangeTypeRemoved, diff.ChangeType)
	assert.True(t, diff.Breaking)
	assert.Empty(t, diff.Changes)
}

func TestDiffUnchangedHash(t *testing.T) {
	old := schemaNode("User", "h1", req("id", "string"))
	new := schemaNode("User", "h1", req("id", "string"))

	diff, err := Diff(old, new)
	require.NoError(t, err)

	assert.Equal(t, models.ChangeTypeUnchanged, diff.ChangeType)
	assert.False(t, diff.Breaking)
	assert.Empty(t, diff.Changes)
}

func TestAddOptionalField(t *testing.T) {
	old := schemaNode("User", "h1",
		req("id", "string"), req("email", "string"),
		req("displayName", "string"), req("createdAt", "Date"))
	new := schemaNode("User", "h2",
		req("id", "string"), req("email", "string"),
		req("displayName", "string"), req("createdAt", "Date"),
		opt("preferences", "UserPreferences"))

	diff, err := Diff(old, new)
	require.NoError(t, err)

	assert.Equal(t, models.ChangeTypeModified, diff.ChangeType)
	require.Len(t, diff.Changes, 1)
	assert.Equal(t, models.ChangeFieldAdded, diff.Changes[0].Kind)
	assert.False(t, diff.Changes[0].Breaking)
	assert.False(t, diff.Breaking)
}

func TestAddRequiredFieldBreaks(t *testing.T) {
	old := schemaNode("User", "h1", req("id", "string"))
	new := schemaNode("User", "h2", req("id", "string"), req("tenantId", "string"))

	diff, err := Diff(old, new)
	require.NoError(t, err)

	require.Len(t, diff.Changes, 1)
	assert.True(t, diff.Changes[0].Breaking)
	assert.True(t, diff.Breaking)
}

func TestRemoveRequiredField(t *testing.T) {
	old := schemaNode("Payment", "h1", req("amount", "number"), req("transactionId", "string"))
	new := schemaNode("Payment", "h2", req("amount", "number"))

	diff, err := Diff(old, new)
	require.NoError(t, err)

	require.Len(t, diff.Changes, 1)
	assert.Equal(t, models.ChangeFieldRemoved, diff.Changes[0].Kind)
	assert.Equal(t, "transactionId", diff.Changes[0].Field)
	assert.True(t, diff.Changes[0].Breaking)
	assert.True(t, diff.Breaking)
}

func TestTypeNarrowing(t *testing.T) {
	old := schemaNode("Event", "h1", req("timestamp", "Date"))
	new := schemaNode("Event", "h2", req("timestamp", "string"))

	diff, err := Diff(old, new)
	require.NoError(t, err)

	require.Len(t, diff.Changes, 1)
	assert.Equal(t, models.ChangeFieldTypeChanged, diff.Changes[0].Kind)
	assert.Equal(t, "Date", diff.Changes[0].Old)
	assert.Equal(t, "string", diff.Changes[0].New)
	assert.True(t, diff.Breaking)
}

func TestRequiredTransitions(t *testing.T) {
	tests := []struct {
		name        string
		oldRequired bool
		newRequired bool
		breaking    bool
	}{
		{"narrowing optional to required breaks", false, true, true},
		{"widening required to optional is compatible", true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			old := schemaNode("User", "h1", models.Property{Name: "email", Type: "string", Required: tt.oldRequired})
			new := schemaNode("User", "h2", models.Property{Name: "email", Type: "string", Required: tt.newRequired})

			diff, err := Diff(old, new)
			require.NoError(t, err)
			require.Len(t, diff.Changes, 1)
			assert.Equal(t, models.ChangeFieldRequiredChanged, diff.Changes[0].Kind)
			assert.Equal(t, tt.breaking, diff.Changes[0].Breaking)
			assert.Equal(t, tt.breaking, diff.Breaking)
		})
	}
}

func TestEnumValueRemoval(t *testing.T) {
	old := enumNode("Status", "h1", "pending", "completed")
	new := enumNode("Status", "h2", "pending")

	diff, err := Diff(old, new)
	require.NoError(t, err)

	require.Len(t, diff.Changes, 1)
	assert.Equal(t, models.ChangeEnumValueChanged, diff.Changes[0].Kind)
	assert.Equal(t, "completed", diff.Changes[0].Old)
	assert.True(t, diff.Breaking)
}

func TestEnumValueAdditionIsCompatible(t *testing.T) {
	old := enumNode("Status", "h1", "pending")
	new := enumNode("Status", "h2", "pending", "refunded")

	diff, err := Diff(old, new)
	require.NoError(t, err)

	require.Len(t, diff.Changes, 1)
	assert.False(t, diff.Changes[0].Breaking)
	assert.False(t, diff.Breaking)
}

func TestEnumChangesIgnoredForNonEnumNodes(t *testing.T) {
	old := schemaNode("User", "h1", req("id", "string"))
	old.Metadata = map[string]any{"values": []string{"a", "b"}}
	new := schemaNode("User", "h2", req("id", "string"))
	new.Metadata = map[string]any{"values": []string{"a"}}

	diff, err := Diff(old, new)
	require.NoError(t, err)
	assert.Empty(t, diff.Changes)
	assert.False(t, diff.Breaking)
}

func TestIntentChangeIsWarningNotBreaking(t *testing.T) {
	old := schemaNode("User", "h1", req("id", "string"))
	old.Intent = "Add lastLoginAt for security monitoring"
	new := schemaNode("User", "h2", req("id", "string"))
	new.Intent = "Track user activity for analytics"

	diff, err := Diff(old, new)
	require.NoError(t, err)

	require.Len(t, diff.Changes, 1)
	assert.Equal(t, models.ChangeIntentChanged, diff.Changes[0].Kind)
	assert.False(t, diff.Changes[0].Breaking)
	assert.False(t, diff.Breaking)
}

func TestDiffAllFiltersUnchanged(t *testing.T) {
	oldMap := map[string]*models.Node{
		"same":    schemaNode("same", "h1", req("id", "string")),
		"changed": schemaNode("changed", "h1", req("id", "string")),
		"gone":    schemaNode("gone", "h1"),
	}
	newMap := map[string]*models.Node{
		"same":    schemaNode("same", "h1", req("id", "string")),
		"changed": schemaNode("changed", "h2", req("id", "number")),
		"fresh":   schemaNode("fresh", "h1", opt("note", "string")),
	}

	diffs, err := DiffAll(oldMap, newMap)
	require.NoError(t, err)

	require.Len(t, diffs, 3)
	byID := map[string]*models.SchemaDiff{}
	for _, d := range diffs {
		byID[d.NodeID] = d
	}
	assert.Equal(t, models.ChangeTypeModified, byID["changed"].ChangeType)
	assert.Equal(t, models.ChangeTypeRemoved, byID["gone"].ChangeType)
	assert.Equal(t, models.ChangeTypeAdded, byID["fresh"].ChangeType)
	assert.NotContains(t, byID, "same")
}

func TestBreakingMonotonicity(t *testing.T) {
	base := schemaNode("S", "h1", req("a", "string"), opt("b", "string"))

	variants := []*models.Node{
		schemaNode("S", "h2", opt("b", "string")),                      // removal
		schemaNode("S", "h2", req("a", "string"), opt("b", "string"), req("c", "string")), // required addition
		schemaNode("S", "h2", req("a", "number"), opt("b", "string")),  // type change
		schemaNode("S", "h2", req("a", "string"), req("b", "string")),  // required narrowing
	}

	for i, variant := range variants {
		diff, err := Diff(base, variant)
		require.NoError(t, err)
		assert.True(t, diff.Breaking, "variant %d should be breaking", i)
	}
}
