package statetree_test

import (
	"testing"

	"github.com/goliatone/go-statetree"
	openapi "github.com/goliatone/go-statetree/schema/openapi"
)

func TestOpenAPIGeneratorIntegration(t *testing.T) {
	todo := statetree.Model("Todo",
		statetree.Prop("id", statetree.Identifier),
		statetree.Prop("title", statetree.String),
	)
	var generator statetree.SchemaGenerator = openapi.NewGenerator()

	doc, err := generator.Generate(statetree.Array(todo))
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if doc.Format != statetree.SchemaFormatOpenAPI {
		t.Fatalf("expected format %q, got %q", statetree.SchemaFormatOpenAPI, doc.Format)
	}
	schema, ok := doc.Document.(map[string]any)
	if !ok {
		t.Fatalf("expected schema map, got %T", doc.Document)
	}
	paths, ok := schema["paths"].(map[string]any)
	if !ok {
		t.Fatalf("expected paths map, got %T", schema["paths"])
	}
	pathItem, ok := paths["/snapshot"].(map[string]any)
	if !ok {
		t.Fatalf("expected /snapshot path map, got %T", paths["/snapshot"])
	}
	operation, ok := pathItem["put"].(map[string]any)
	if !ok {
		t.Fatalf("expected put operation map, got %T", pathItem["put"])
	}
	requestBody, ok := operation["requestBody"].(map[string]any)
	if !ok {
		t.Fatalf("expected requestBody map, got %T", operation["requestBody"])
	}
	content, ok := requestBody["content"].(map[string]any)
	if !ok {
		t.Fatalf("expected content map, got %T", requestBody["content"])
	}
	media, ok := content["application/json"].(map[string]any)
	if !ok {
		t.Fatalf("expected application/json content, got %T", content["application/json"])
	}
	body, ok := media["schema"].(map[string]any)
	if !ok {
		t.Fatalf("expected schema map, got %T", media["schema"])
	}
	if body["type"] != "array" {
		t.Fatalf("expected array request body, got %v", body["type"])
	}
	items, ok := body["items"].(map[string]any)
	if !ok || items["$ref"] != "#/components/schemas/Todo" {
		t.Fatalf("expected items to reference the Todo component, got %v", body["items"])
	}

	components, ok := schema["components"].(map[string]any)
	if !ok {
		t.Fatalf("expected components map, got %T", schema["components"])
	}
	schemas, ok := components["schemas"].(map[string]any)
	if !ok {
		t.Fatalf("expected component schemas, got %T", components["schemas"])
	}
	if _, ok := schemas["Todo"]; !ok {
		t.Fatalf("expected Todo component, got %v", schemas)
	}
}
