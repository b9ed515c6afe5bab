package statetree

// SchemaFormat identifies the representation a schema document encodes.
type SchemaFormat string

const (
	// SchemaFormatDescriptors represents the flattened field descriptors.
	SchemaFormatDescriptors SchemaFormat = "descriptors"
	// SchemaFormatOpenAPI represents OpenAPI-compatible JSON Schema documents.
	SchemaFormatOpenAPI SchemaFormat = "openapi"
)

// SchemaDocument encapsulates a generated schema alongside its format.
// Document is always JSON-serialisable.
type SchemaDocument struct {
	Format   SchemaFormat
	Document any
}

// SchemaGenerator describes the snapshots a type accepts. Implementations
// must be safe for concurrent use and return an empty document for a nil
// type.
type SchemaGenerator interface {
	Generate(t Type) (SchemaDocument, error)
}

// FieldDescriptor describes a path and the type declared there. Array
// elements use "*" as their segment, map values use "{key}".
type FieldDescriptor struct {
	Path       string `json:"path"`
	Type       string `json:"type"`
	Identifier bool   `json:"identifier,omitempty"`
	Optional   bool   `json:"optional,omitempty"`
}

// DefaultSchemaGenerator returns the built-in descriptor-based generator.
func DefaultSchemaGenerator() SchemaGenerator {
	return descriptorGenerator{}
}

type descriptorGenerator struct{}

func (descriptorGenerator) Generate(t Type) (SchemaDocument, error) {
	return SchemaDocument{
		Format:   SchemaFormatDescriptors,
		Document: FieldDescriptors(t),
	}, nil
}

// FieldDescriptors flattens t into one descriptor per leaf.
func FieldDescriptors(t Type) []FieldDescriptor {
	if t == nil {
		return []FieldDescriptor{}
	}
	return deriveFieldDescriptors(t, nil)
}

func deriveFieldDescriptors(t Type, segments []string) []FieldDescriptor {
	switch typed := baseType(t).(type) {
	case *ModelType:
		var fields []FieldDescriptor
		for _, prop := range typed.props {
			fields = append(fields, deriveFieldDescriptors(prop.Type, appendSegment(segments, prop.Name))...)
		}
		if len(fields) == 0 {
			fields = append(fields, FieldDescriptor{Path: JoinPath(segments...), Type: t.Describe()})
		}
		return fields
	case *ArrayType:
		return deriveFieldDescriptors(typed.elem, appendSegment(segments, "*"))
	case *MapType:
		return deriveFieldDescriptors(typed.elem, appendSegment(segments, "{key}"))
	default:
		return []FieldDescriptor{{
			Path:       JoinPath(segments...),
			Type:       t.Describe(),
			Identifier: t.Flags().Has(FlagIdentifier),
			Optional:   t.Flags().Has(FlagOptional),
		}}
	}
}

func appendSegment(segments []string, segment string) []string {
	out := make([]string, len(segments), len(segments)+1)
	copy(out, segments)
	return append(out, segment)
}
