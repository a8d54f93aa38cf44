package codegen

import (
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eugenenazirov/envconf"
)

const dbSource = `package settings

import (
	"net"
	"os"
	"time"
)

//go:generate envconf generate --type DBSettings
type DBSettings struct {
	Host     string        ` + "`env:\"DB_HOST\" default:\"localhost\"`" + `
	Port     uint16        ` + "`env:\"DB_PORT\" default:\"5432\"`" + `
	User     string        ` + "`default:\"myuser\"`" + `
	Password string        ` + "`env:\"DB_PASSWORD\" conf:\"password\"`" + `
	Timeout  time.Duration ` + "`env:\"DB_TIMEOUT\" default:\"\"`" + `
	Bind     net.IP        ` + "`env:\"DB_BIND\"`" + `
	internal int
	Ignored  string ` + "`json:\"ignored\"`" + `
}

func hostname() string {
	h, _ := os.Hostname()
	return h
}
`

func TestParseCollectsTaggedFields(t *testing.T) {
	t.Parallel()

	res, err := Parse(Request{Filename: "settings.go", Source: []byte(dbSource), TypeName: "DBSettings"})
	require.NoError(t, err)

	assert.Equal(t, "settings", res.Package)
	require.Len(t, res.Fields, 6)

	assert.Equal(t, Field{
		GoName: "Host", Name: "host", GoType: "string", Parser: "envconf.ParseString",
		Env: "DB_HOST", Default: "localhost", HasDefault: true,
	}, res.Fields[0])
	assert.Equal(t, "envconf.ParseUint[uint16]", res.Fields[1].Parser)
	assert.Equal(t, Field{
		GoName: "User", Name: "user", GoType: "string", Parser: "envconf.ParseString",
		Default: "myuser", HasDefault: true,
	}, res.Fields[2])
	assert.False(t, res.Fields[3].HasDefault)
	assert.Equal(t, "password", res.Fields[3].Name)
	assert.True(t, res.Fields[4].HasDefault, "an empty default is still a default")
	assert.Equal(t, "envconf.ParseDuration", res.Fields[4].Parser)
	assert.Equal(t, "envconf.ParseText[net.IP]", res.Fields[5].Parser)

	assert.Contains(t, res.Imports, `"github.com/eugenenazirov/envconf"`)
}

func TestGenerateProducesValidSource(t *testing.T) {
	t.Parallel()

	out, err := Generate(Request{Filename: "settings.go", Source: []byte(dbSource), TypeName: "DBSettings"})
	require.NoError(t, err)

	src := string(out)
	assert.Contains(t, src, "// Code generated by envconf generate. DO NOT EDIT.")
	assert.Contains(t, src, `envconf.Var("host", func(s *DBSettings) *string { return &s.Host }, envconf.ParseString, envconf.Env("DB_HOST"), envconf.Default("localhost")),`)
	assert.Contains(t, src, `envconf.Var("user", func(s *DBSettings) *string { return &s.User }, envconf.ParseString, envconf.Default("myuser")),`)
	assert.Contains(t, src, `envconf.Var("password", func(s *DBSettings) *string { return &s.Password }, envconf.ParseString, envconf.Env("DB_PASSWORD")),`)
	assert.Contains(t, src, "func InitDBSettings(env envconf.Lookuper, opts ...envconf.InitOption) (DBSettings, error) {")
	assert.NotContains(t, src, `"os"`, "unused imports must be dropped")

	file, err := parser.ParseFile(token.NewFileSet(), "settings_envconf.go", out, parser.AllErrors)
	require.NoError(t, err)
	assert.Equal(t, "settings", file.Name.Name)
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		source   string
		typeName string
		wantErr  error
	}{
		{
			name:     "TypeNotFound",
			source:   "package p\n\ntype A struct{}\n",
			typeName: "B",
			wantErr:  ErrTypeNotFound,
		},
		{
			name:     "NotStruct",
			source:   "package p\n\ntype A int\n",
			typeName: "A",
			wantErr:  ErrNotStruct,
		},
		{
			name:     "NoTaggedFields",
			source:   "package p\n\ntype A struct{ X int }\n",
			typeName: "A",
			wantErr:  ErrNoFields,
		},
		{
			name:     "SliceField",
			source:   "package p\n\ntype A struct{ X []string `env:\"X\"` }\n",
			typeName: "A",
			wantErr:  ErrUnsupportedType,
		},
		{
			name:     "PointerField",
			source:   "package p\n\ntype A struct{ X *int `default:\"1\"` }\n",
			typeName: "A",
			wantErr:  ErrUnsupportedType,
		},
		{
			name:     "StructWithoutUnmarshalText",
			source:   "package p\n\ntype B struct{ n int }\n\ntype A struct{ X B `env:\"X\"` }\n",
			typeName: "A",
			wantErr:  ErrUnsupportedType,
		},
		{
			name:     "DuplicateConfName",
			source:   "package p\n\ntype A struct {\n\tA string `env:\"A\" conf:\"x\"`\n\tB string `env:\"B\" conf:\"x\"`\n}\n",
			typeName: "A",
			wantErr:  envconf.ErrDuplicateField,
		},
		{
			name:     "DuplicateDerivedName",
			source:   "package p\n\ntype A struct {\n\tHost string `env:\"A\"`\n\tH    string `env:\"B\" conf:\"host\"`\n}\n",
			typeName: "A",
			wantErr:  envconf.ErrDuplicateField,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(Request{Filename: "p.go", Source: []byte(tc.source), TypeName: tc.typeName})
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestParseRejectsInvalidSource(t *testing.T) {
	t.Parallel()

	_, err := Parse(Request{Filename: "broken.go", Source: []byte("package"), TypeName: "A"})
	assert.Error(t, err)
}

func TestOutputFilename(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "config_envconf.go", OutputFilename("config.go"))
	assert.Equal(t, "dir/db_envconf.go", OutputFilename("dir/db.go"))
}

func TestParseDuplicateNameReportsPosition(t *testing.T) {
	t.Parallel()

	src := "package p\n\ntype A struct {\n\tA string `env:\"A\" conf:\"x\"`\n\tB string `env:\"B\" conf:\"x\"`\n}\n"
	_, err := Parse(Request{Filename: "p.go", Source: []byte(src), TypeName: "A"})
	require.ErrorIs(t, err, envconf.ErrDuplicateField)
	assert.Contains(t, err.Error(), "p.go:5:2")
	assert.Contains(t, err.Error(), "p.go:4:2")
}

const namedSource = `package settings

import "time"

type Level int

type Mode string

type Verbose bool

type Ratio float32

type Port = uint16

type Color struct{ name string }

func (c *Color) UnmarshalText(text []byte) error {
	c.name = string(text)
	return nil
}

type Settings struct {
	Host    string        ` + "`env:\"HOST\" default:\"localhost\"`" + `
	Level   Level         ` + "`env:\"LEVEL\" default:\"2\"`" + `
	Mode    Mode          ` + "`env:\"MODE\" default:\"fast\"`" + `
	Verbose Verbose       ` + "`env:\"VERBOSE\" default:\"false\"`" + `
	Ratio   Ratio         ` + "`env:\"RATIO\" default:\"0.5\"`" + `
	Port    Port          ` + "`env:\"PORT\" default:\"5432\"`" + `
	Color   Color         ` + "`env:\"COLOR\"`" + `
	Region  Region        ` + "`env:\"REGION\" default:\"eu\"`" + `
	Timeout time.Duration ` + "`env:\"TIMEOUT\" default:\"2s\"`" + `
}
`

const regionSource = `package settings

type Region uint8
`

func namedRequest() Request {
	return Request{
		Filename:     "settings.go",
		Source:       []byte(namedSource),
		TypeName:     "Settings",
		PackageFiles: map[string][]byte{"region.go": []byte(regionSource)},
	}
}

func TestParseResolvesNamedTypes(t *testing.T) {
	t.Parallel()

	res, err := Parse(namedRequest())
	require.NoError(t, err)

	parsers := make(map[string]string, len(res.Fields))
	for _, f := range res.Fields {
		parsers[f.GoName] = f.Parser
	}
	assert.Equal(t, map[string]string{
		"Host":    "envconf.ParseString",
		"Level":   "envconf.ParseInt[Level]",
		"Mode":    "envconf.ParseStringAs[Mode]",
		"Verbose": "envconf.ParseBoolAs[Verbose]",
		"Ratio":   "envconf.ParseFloat[Ratio]",
		"Port":    "envconf.ParseUint[Port]",
		"Color":   "envconf.ParseText[Color]",
		"Region":  "envconf.ParseUint[Region]",
		"Timeout": "envconf.ParseDuration",
	}, parsers)
}

func TestGeneratedCodeTypeChecks(t *testing.T) {
	t.Parallel()

	req := namedRequest()
	out, err := Generate(req)
	require.NoError(t, err)

	fset := token.NewFileSet()
	sources := map[string][]byte{
		"settings.go":         req.Source,
		"region.go":           req.PackageFiles["region.go"],
		"settings_envconf.go": out,
	}
	files := make([]*ast.File, 0, len(sources))
	for name, src := range sources {
		f, err := parser.ParseFile(fset, name, src, 0)
		require.NoError(t, err, name)
		files = append(files, f)
	}

	conf := types.Config{Importer: importer.ForCompiler(fset, "source", nil)}
	pkg, err := conf.Check("settings", fset, files, nil)
	require.NoError(t, err, string(out))
	assert.NotNil(t, pkg.Scope().Lookup("InitSettings"))
	assert.NotNil(t, pkg.Scope().Lookup("settingsDeclaration"))
}

func TestUnexport(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Host":       "host",
		"DBSettings": "dbSettings",
		"DB":         "db",
		"HTTPServer": "httpServer",
		"ID2":        "id2",
		"x":          "x",
	}
	for in, want := range tests {
		assert.Equal(t, want, unexport(in), in)
	}
}
