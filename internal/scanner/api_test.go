package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemadrift/schemadrift/internal/models"
)

const sampleAPI = `openapi: 3.0.0
info:
  title: Billing API
  description: Billing operations for merchants
paths:
  /payments:
    post:
      summary: Create a payment
      requestBody:
        content:
          application/json:
            schema:
              $ref: '#/components/schemas/Payment'
      responses:
        '201':
          description: created
  /payments/{id}:
    get:
      summary: Fetch one payment
      parameters:
        - name: id
          required: true
          schema:
            type: string
components:
  schemas:
    Payment:
      x-intent: Represents a merchant payment
      required: [amount, currency]
      properties:
        amount:
          type: number
        currency:
          type: string
        memo:
          type: string
        status:
          $ref: '#/components/schemas/PaymentStatus'
    PaymentStatus:
      enum: [pending, completed, refunded]
`

func scanAPISample(t *testing.T, source, name string) *Result {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(source), 0644))

	result, err := NewAPIScanner(nil).Scan(path, name, "api-hash")
	require.NoError(t, err)
	return result
}

func TestAPIScannerServiceNode(t *testing.T) {
	result := scanAPISample(t, sampleAPI, "billing.yaml")

	service := nodeByName(result, "Billing API")
	require.NotNil(t, service)
	assert.Equal(t, models.NodeTypeService, service.Type)
	assert.Equal(t, "Billing operations for merchants", service.Intent)
}

func TestAPIScannerPathNodes(t *testing.T) {
	result := scanAPISample(t, sampleAPI, "billing.yaml")

	post := nodeByName(result, "POST /payments")
	require.NotNil(t, post)
	assert.Equal(t, models.NodeTypeAPI, post.Type)
	assert.Equal(t, "Create a payment", post.Intent)

	get := nodeByName(result, "GET /payments/{id}")
	require.NotNil(t, get)
	require.Len(t, get.Properties, 1)
	assert.Equal(t, "id", get.Properties[0].Name)
	assert.True(t, get.Properties[0].Required)
	assert.Equal(t, "string", get.Properties[0].Type)
}

func TestAPIScannerSchemas(t *testing.T) {
	result := scanAPISample(t, sampleAPI, "billing.yaml")

	payment := nodeByName(result, "Payment")
	require.NotNil(t, payment)
	assert.Equal(t, models.NodeTypeSchema, payment.Type)
	assert.Equal(t, "Represents a merchant payment", payment.Intent)

	byName := map[string]models.Property{}
	for _, p := range payment.Properties {
		byName[p.Name] = p
	}
	assert.True(t, byName["amount"].Required)
	assert.True(t, byName["currency"].Required)
	assert.False(t, byName["memo"].Required)
	assert.Equal(t, "PaymentStatus", byName["status"].Type)
}

func TestAPIScannerEnums(t *testing.T) {
	result := scanAPISample(t, sampleAPI, "billing.yaml")

	status := nodeByName(result, "PaymentStatus")
	require.NotNil(t, status)
	assert.Equal(t, models.NodeTypeEnum, status.Type)
	assert.Equal(t, []string{"pending", "completed", "refunded"}, status.EnumValues())
}

func TestAPIScannerEdgesAndRefs(t *testing.T) {
	result := scanAPISample(t, sampleAPI, "billing.yaml")

	// the document's service defines each path operation directly
	defines := 0
	for _, edge := range result.Edges {
		if edge.Type == models.EdgeTypeDefines {
			defines++
			assert.Equal(t, "billing.yaml:Billing API", edge.Source)
		}
	}
	assert.Equal(t, 2, defines)

	foundPaymentRef := false
	foundStatusRef := false
	for _, ref := range result.Refs {
		if ref.SourceID == "billing.yaml:POST /payments" && ref.TargetName == "Payment" {
			foundPaymentRef = true
		}
		if ref.SourceID == "billing.yaml:Payment" && ref.TargetName == "PaymentStatus" {
			foundStatusRef = true
		}
	}
	assert.True(t, foundPaymentRef)
	assert.True(t, foundStatusRef)
}

func TestAPIScannerJSONDocument(t *testing.T) {
	source := `{
  "info": {"title": "Inventory API"},
  "definitions": {
    "Item": {
      "properties": {
        "sku": {"type": "string"},
        "tags": {"type": "array", "items": {"type": "string"}}
      },
      "required": ["sku"]
    }
  }
}`
	result := scanAPISample(t, source, "inventory.json")

	item := nodeByName(result, "Item")
	require.NotNil(t, item)
	byName := map[string]models.Property{}
	for _, p := range item.Properties {
		byName[p.Name] = p
	}
	assert.Equal(t, "string[]", byName["tags"].Type)
	assert.True(t, byName["sku"].Required)
}

func TestAPIScannerDeterministic(t *testing.T) {
	a := scanAPISample(t, sampleAPI, "billing.yaml")
	b := scanAPISample(t, sampleAPI, "billing.yaml")

	require.Equal(t, len(a.Nodes), len(b.Nodes))
	for i := range a.Nodes {
		assert.Equal(t, a.Nodes[i].ID, b.Nodes[i].ID)
	}
	assert.Equal(t, a.Refs, b.Refs)
}

func TestRegistryDispatch(t *testing.T) {
	r := DefaultRegistry(nil)

	_, isAPI := r.Lookup("spec/billing.yaml").(*APIScanner)
	assert.True(t, isAPI)
	_, isAPI = r.Lookup("spec/billing.json").(*APIScanner)
	assert.True(t, isAPI)
	_, isLang := r.Lookup("models/user.ts").(*LanguageScanner)
	assert.True(t, isLang)
	assert.Nil(t, r.Lookup("README.md"))
}
