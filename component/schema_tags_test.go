package component

import (
	stderrors "errors"
	"reflect"
	"testing"

	"github.com/c360/arfstream/errors"
)

func TestParseSchemaTag(t *testing.T) {
	tests := []struct {
		name    string
		tag     string
		want    SchemaDirectives
		wantErr bool
	}{
		{
			name: "simple string field",
			tag:  "type:string,description:Container path,category:basic",
			want: SchemaDirectives{
				Type:        "string",
				Description: "Container path",
				Category:    "basic",
			},
		},
		{
			name: "int field with constraints",
			tag:  "type:int,description:Chunks per block,min:1,max:4096,default:64",
			want: SchemaDirectives{
				Type:        "int",
				Description: "Chunks per block",
				Default:     "64",
				Min:         intPtr(1),
				Max:         intPtr(4096),
			},
		},
		{
			name: "enum field",
			tag:  "type:enum,description:Entry ordering clock,enum:auto|timestamp|sample-count|frame-counter,default:auto",
			want: SchemaDirectives{
				Type:        "enum",
				Description: "Entry ordering clock",
				Default:     "auto",
				Enum:        []string{"auto", "timestamp", "sample-count", "frame-counter"},
			},
		},
		{
			name: "bool field",
			tag:  "type:bool,description:Include error entries,default:false",
			want: SchemaDirectives{
				Type:        "bool",
				Description: "Include error entries",
				Default:     "false",
			},
		},
		{
			name: "required field",
			tag:  "required,type:string,description:Container path",
			want: SchemaDirectives{
				Type:        "string",
				Description: "Container path",
				Required:    true,
			},
		},
		{
			name: "enum values are trimmed",
			tag:  "type:enum,description:Mode,enum:sync | async",
			want: SchemaDirectives{
				Type:        "enum",
				Description: "Mode",
				Enum:        []string{"sync", "async"},
			},
		},
		{
			name:    "empty tag",
			tag:     "",
			wantErr: true,
		},
		{
			name:    "missing type",
			tag:     "description:Some field",
			wantErr: true,
		},
		{
			name:    "invalid type",
			tag:     "type:invalid,description:Field",
			wantErr: true,
		},
		{
			name:    "invalid category",
			tag:     "type:string,description:Field,category:invalid",
			wantErr: true,
		},
		{
			name:    "invalid min",
			tag:     "type:int,description:Field,min:abc",
			wantErr: true,
		},
		{
			name:    "invalid max",
			tag:     "type:int,description:Field,max:xyz",
			wantErr: true,
		},
		{
			name:    "unknown boolean flag",
			tag:     "type:string,description:Field,unknownflag",
			wantErr: true,
		},
		{
			name:    "unknown directive",
			tag:     "type:string,description:Field,unknown:value",
			wantErr: true,
		},
		{
			name:    "empty value",
			tag:     "type:,description:Field",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSchemaTag(tt.tag)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseSchemaTag() expected error, got nil")
					return
				}
				var classifiedErr *errors.ClassifiedError
				if !stderrors.As(err, &classifiedErr) {
					t.Errorf("ParseSchemaTag() error should be ClassifiedError, got %T", err)
				} else if classifiedErr.Class != errors.ErrorInvalid {
					t.Errorf("ParseSchemaTag() error class = %v, want ErrorInvalid", classifiedErr.Class)
				}
				return
			}
			if err != nil {
				t.Errorf("ParseSchemaTag() unexpected error = %v", err)
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseSchemaTag() got = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestConvertDefault(t *testing.T) {
	tests := []struct {
		name      string
		value     any
		fieldType string
		want      any
	}{
		{"nil value", nil, "string", nil},
		{"string", "auto", "string", "auto"},
		{"enum", "timestamp", "enum", "timestamp"},
		{"int", "64", "int", 64},
		{"bad int", "abc", "int", nil},
		{"bool true", "true", "bool", true},
		{"bool false", "false", "bool", false},
		{"bad bool", "yes please", "bool", nil},
		{"float", "0.5", "float", 0.5},
		{"bad float", "half", "float", nil},
		{"array single", "pcm_.*", "array", []string{"pcm_.*"}},
		{"array empty", "", "array", []string{}},
		{"non-string passthrough", 42, "int", 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := convertDefault(tt.value, tt.fieldType)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("convertDefault(%v, %q) = %v, want %v", tt.value, tt.fieldType, got, tt.want)
			}
		})
	}
}

// testReaderConfig mirrors the shape of a real component config struct.
type testReaderConfig struct {
	Path        string   `json:"path" schema:"required,type:string,description:Container path,category:basic"`
	Channels    []string `json:"channels" schema:"type:array,description:Channel patterns"`
	Start       float64  `json:"start" schema:"type:float,description:Window start in seconds"`
	Clock       string   `json:"clock" schema:"type:enum,description:Entry ordering clock,enum:auto|timestamp|sample-count|frame-counter,default:auto,category:basic"`
	BlockChunks int      `json:"block_chunks" schema:"type:int,description:Chunks per read block,min:1,default:64"`
	Verbose     bool     `json:"verbose" schema:"type:bool,default:false"`

	internal string
	Ignored  string `json:"-"`
	NoSchema string `json:"no_schema"`
	BadTag   string `json:"bad_tag" schema:"type:bogus"`
}

func TestGenerateConfigSchema(t *testing.T) {
	schema := GenerateConfigSchema(reflect.TypeOf(testReaderConfig{}))

	for _, field := range []string{"path", "channels", "start", "clock", "block_chunks", "verbose"} {
		if _, exists := schema.Properties[field]; !exists {
			t.Errorf("Expected field %q in schema", field)
		}
	}

	for _, field := range []string{"internal", "Ignored", "no_schema", "bad_tag"} {
		if _, exists := schema.Properties[field]; exists {
			t.Errorf("Field %q should not be in schema", field)
		}
	}

	path := schema.Properties["path"]
	if path.Type != "string" || path.Category != "basic" {
		t.Errorf("Unexpected path property: %+v", path)
	}

	clock := schema.Properties["clock"]
	if clock.Default != "auto" {
		t.Errorf("Expected clock default 'auto', got %v", clock.Default)
	}
	if len(clock.Enum) != 4 {
		t.Errorf("Expected 4 clock enum values, got %v", clock.Enum)
	}

	blockChunks := schema.Properties["block_chunks"]
	if blockChunks.Default != 64 {
		t.Errorf("Expected block_chunks default 64, got %v", blockChunks.Default)
	}
	if blockChunks.Minimum == nil || *blockChunks.Minimum != 1 {
		t.Errorf("Expected block_chunks minimum 1, got %v", blockChunks.Minimum)
	}

	// Description falls back to the field name when the tag omits it.
	verbose := schema.Properties["verbose"]
	if verbose.Description != "verbose" {
		t.Errorf("Expected description fallback 'verbose', got %q", verbose.Description)
	}

	if len(schema.Required) != 1 || schema.Required[0] != "path" {
		t.Errorf("Expected Required [path], got %v", schema.Required)
	}
}

func TestGenerateConfigSchema_WithPointer(t *testing.T) {
	type TestConfig struct {
		Name string `json:"name" schema:"type:string,description:Name"`
	}

	schema := GenerateConfigSchema(reflect.TypeOf(&TestConfig{}))

	if _, exists := schema.Properties["name"]; !exists {
		t.Errorf("Expected field name not found when using pointer type")
	}
}

func TestGenerateConfigSchema_NonStruct(t *testing.T) {
	schema := GenerateConfigSchema(reflect.TypeOf("string"))

	if len(schema.Properties) != 0 {
		t.Errorf("Expected empty schema for non-struct type, got %d properties", len(schema.Properties))
	}
}
