package codegen

import (
	"bytes"
	"errors"
	"fmt"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"text/template"
	"unicode"

	"golang.org/x/tools/imports"

	"github.com/eugenenazirov/envconf"
)

const libraryImport = "github.com/eugenenazirov/envconf"

var (
	// ErrTypeNotFound is returned when the requested type is not declared in the source file.
	ErrTypeNotFound = errors.New("type not found")
	// ErrNotStruct is returned when the requested type is not a struct.
	ErrNotStruct = errors.New("type is not a struct")
	// ErrNoFields is returned when the struct has no env or default tags.
	ErrNoFields = errors.New("struct has no fields tagged with env or default")
	// ErrUnsupportedType is returned for tagged fields the generator cannot parse into.
	ErrUnsupportedType = errors.New("unsupported field type")
)

// Request describes one generation run.
type Request struct {
	// Filename is used for error positions; Source holds the file contents.
	Filename string
	Source   []byte
	TypeName string
	// PackageFiles holds the other files of the package, keyed by filename.
	// They let named field types declared elsewhere in the package resolve
	// to their underlying kind.
	PackageFiles map[string][]byte
}

// Field is a tagged struct field found in the source.
type Field struct {
	GoName     string
	Name       string
	GoType     string
	Parser     string
	Env        string
	Default    string
	HasDefault bool
}

// Result is the parsed view of the requested struct.
type Result struct {
	Package  string
	TypeName string
	Imports  []string
	Fields   []Field
}

// Parse inspects the source file and collects the tagged fields of the requested struct.
func Parse(req Request) (*Result, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, req.Filename, req.Source, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("parse source: %w", err)
	}

	spec := findType(file, req.TypeName)
	if spec == nil {
		return nil, fmt.Errorf("%w: %s", ErrTypeNotFound, req.TypeName)
	}
	st, ok := spec.Type.(*ast.StructType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotStruct, req.TypeName)
	}

	res := &Result{
		Package:  file.Name.Name,
		TypeName: req.TypeName,
		Imports:  collectImports(file),
	}

	var info *types.Info
	typeOf := func(expr ast.Expr) types.Type {
		if info == nil {
			info = checkPackage(fset, file, req.PackageFiles)
		}
		return info.TypeOf(expr)
	}
	seen := make(map[string]token.Position)

	for _, f := range st.Fields.List {
		if len(f.Names) == 0 || f.Tag == nil {
			continue
		}
		raw, err := strconv.Unquote(f.Tag.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: malformed tag: %w", fset.Position(f.Tag.Pos()), err)
		}
		tag := reflect.StructTag(raw)
		env, hasEnv := tag.Lookup("env")
		def, hasDefault := tag.Lookup("default")
		if !hasEnv && !hasDefault {
			continue
		}

		goType := exprString(f.Type)
		parse, err := parserFor(f.Type, typeOf)
		if err != nil {
			return nil, fmt.Errorf("%s: field %s: %w", fset.Position(f.Pos()), f.Names[0].Name, err)
		}

		for _, name := range f.Names {
			conf := fieldName(name.Name, tag)
			pos := fset.Position(name.Pos())
			if prev, ok := seen[conf]; ok {
				return nil, fmt.Errorf("%s: field %s: %w: %q already used at %s", pos, name.Name, envconf.ErrDuplicateField, conf, prev)
			}
			seen[conf] = pos

			res.Fields = append(res.Fields, Field{
				GoName:     name.Name,
				Name:       conf,
				GoType:     goType,
				Parser:     parse,
				Env:        env,
				Default:    def,
				HasDefault: hasDefault,
			})
		}
	}

	if len(res.Fields) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFields, req.TypeName)
	}
	return res, nil
}

// Generate renders and formats the initialization code for req.
func Generate(req Request) ([]byte, error) {
	res, err := Parse(req)
	if err != nil {
		return nil, err
	}
	return Render(res, OutputFilename(req.Filename))
}

// Render produces the formatted Go file for a parsed Result.
func Render(res *Result, filename string) ([]byte, error) {
	var buf bytes.Buffer
	if err := fileTemplate.Execute(&buf, res); err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	out, err := imports.Process(filename, buf.Bytes(), &imports.Options{
		Comments:  true,
		TabIndent: true,
		TabWidth:  8,
	})
	if err != nil {
		return nil, fmt.Errorf("format generated code: %w", err)
	}
	return out, nil
}

// OutputFilename maps config.go to config_envconf.go.
func OutputFilename(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_envconf.go"
}

func findType(file *ast.File, name string) *ast.TypeSpec {
	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.TYPE {
			continue
		}
		for _, s := range gen.Specs {
			if ts, ok := s.(*ast.TypeSpec); ok && ts.Name.Name == name {
				return ts
			}
		}
	}
	return nil
}

func collectImports(file *ast.File) []string {
	out := make([]string, 0, len(file.Imports)+1)
	for _, imp := range file.Imports {
		line := imp.Path.Value
		if imp.Name != nil {
			line = imp.Name.Name + " " + line
		}
		out = append(out, line)
	}
	lib := strconv.Quote(libraryImport)
	for _, imp := range file.Imports {
		if imp.Path.Value == lib && imp.Name == nil {
			return out
		}
	}
	return append(out, lib)
}

// fieldName honours an explicit `conf:"name"` tag and otherwise uses the
// Go field name with a lower-case first letter.
func fieldName(goName string, tag reflect.StructTag) string {
	if name, ok := tag.Lookup("conf"); ok && name != "" {
		return name
	}
	return unexport(goName)
}

var builtinParsers = map[string]string{
	"string":        "envconf.ParseString",
	"bool":          "envconf.ParseBool",
	"int":           "envconf.ParseInt[int]",
	"int8":          "envconf.ParseInt[int8]",
	"int16":         "envconf.ParseInt[int16]",
	"int32":         "envconf.ParseInt[int32]",
	"int64":         "envconf.ParseInt[int64]",
	"uint":          "envconf.ParseUint[uint]",
	"uint8":         "envconf.ParseUint[uint8]",
	"uint16":        "envconf.ParseUint[uint16]",
	"uint32":        "envconf.ParseUint[uint32]",
	"uint64":        "envconf.ParseUint[uint64]",
	"float32":       "envconf.ParseFloat[float32]",
	"float64":       "envconf.ParseFloat[float64]",
	"time.Duration": "envconf.ParseDuration",
}

// checkPackage type-checks the file together with the rest of its package.
// Errors are tolerated: fields whose type cannot be determined fall back to
// the syntactic mapping in parserFor.
func checkPackage(fset *token.FileSet, file *ast.File, others map[string][]byte) *types.Info {
	files := []*ast.File{file}
	for name, src := range others {
		f, err := parser.ParseFile(fset, name, src, 0)
		if err != nil || f.Name.Name != file.Name.Name {
			continue
		}
		files = append(files, f)
	}

	info := &types.Info{
		Types: make(map[ast.Expr]types.TypeAndValue),
		Defs:  make(map[*ast.Ident]types.Object),
		Uses:  make(map[*ast.Ident]types.Object),
	}
	conf := types.Config{
		Importer: importer.ForCompiler(fset, "source", nil),
		Error:    func(error) {},
	}
	_, _ = conf.Check(file.Name.Name, fset, files, info)
	return info
}

// textUnmarshaler mirrors encoding.TextUnmarshaler.
var textUnmarshaler = types.NewInterfaceType([]*types.Func{
	types.NewFunc(token.NoPos, nil, "UnmarshalText", types.NewSignatureType(nil, nil, nil,
		types.NewTuple(types.NewVar(token.NoPos, nil, "text", types.NewSlice(types.Typ[types.Byte]))),
		types.NewTuple(types.NewVar(token.NoPos, nil, "", types.Universe.Lookup("error").Type())),
		false)),
}, nil).Complete()

func parserFor(expr ast.Expr, typeOf func(ast.Expr) types.Type) (string, error) {
	switch expr.(type) {
	case *ast.Ident, *ast.SelectorExpr:
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, exprString(expr))
	}

	name := exprString(expr)
	if p, ok := builtinParsers[name]; ok {
		return p, nil
	}
	typ := typeOf(expr)
	if typ == nil || typ == types.Typ[types.Invalid] {
		return "envconf.ParseText[" + name + "]", nil
	}
	return typedParser(name, typ)
}

// typedParser picks a parser from the resolved type. A TextUnmarshaler wins
// over the underlying kind.
func typedParser(name string, typ types.Type) (string, error) {
	if types.Implements(types.NewPointer(typ), textUnmarshaler) {
		return "envconf.ParseText[" + name + "]", nil
	}

	basic, ok := typ.Underlying().(*types.Basic)
	if !ok {
		return "", fmt.Errorf("%w: %s does not implement encoding.TextUnmarshaler", ErrUnsupportedType, name)
	}

	switch basic.Kind() {
	case types.Invalid:
		return "envconf.ParseText[" + name + "]", nil
	case types.Bool:
		return "envconf.ParseBoolAs[" + name + "]", nil
	case types.String:
		return "envconf.ParseStringAs[" + name + "]", nil
	case types.Int, types.Int8, types.Int16, types.Int32, types.Int64:
		return "envconf.ParseInt[" + name + "]", nil
	case types.Uint, types.Uint8, types.Uint16, types.Uint32, types.Uint64:
		return "envconf.ParseUint[" + name + "]", nil
	case types.Float32, types.Float64:
		return "envconf.ParseFloat[" + name + "]", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, name)
	}
}

func exprString(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.SelectorExpr:
		return exprString(t.X) + "." + t.Sel.Name
	case *ast.StarExpr:
		return "*" + exprString(t.X)
	case *ast.ArrayType:
		return "[]" + exprString(t.Elt)
	case *ast.MapType:
		return "map[" + exprString(t.Key) + "]" + exprString(t.Value)
	case *ast.ChanType:
		return "chan " + exprString(t.Value)
	case *ast.FuncType:
		return "func"
	case *ast.InterfaceType:
		return "interface"
	case *ast.StructType:
		return "struct"
	default:
		return fmt.Sprintf("%T", expr)
	}
}

var fileTemplate = template.Must(template.New("envconf").Funcs(template.FuncMap{
	"quote":    strconv.Quote,
	"unexport": unexport,
}).Parse(`// Code generated by envconf generate. DO NOT EDIT.

package {{.Package}}

import (
{{- range .Imports}}
	{{.}}
{{- end}}
)

var {{unexport .TypeName}}Declaration = envconf.MustDeclare(
{{- range .Fields}}
	envconf.Var({{quote .Name}}, func(s *{{$.TypeName}}) *{{.GoType}} { return &s.{{.GoName}} }, {{.Parser}}
		{{- if .Env}}, envconf.Env({{quote .Env}}){{end}}
		{{- if .HasDefault}}, envconf.Default({{quote .Default}}){{end}}),
{{- end}}
)

// Init{{.TypeName}} resolves {{.TypeName}} from env.
func Init{{.TypeName}}(env envconf.Lookuper, opts ...envconf.InitOption) ({{.TypeName}}, error) {
	return {{unexport .TypeName}}Declaration.Init(env, opts...)
}
`))

// unexport lower-cases the leading run of capitals, keeping the last one
// when it starts the next word: DBSettings becomes dbSettings.
func unexport(name string) string {
	runes := []rune(name)
	n := 0
	for n < len(runes) && unicode.IsUpper(runes[n]) {
		n++
	}
	if n > 1 && n < len(runes) && unicode.IsLower(runes[n]) {
		n--
	}
	for i := 0; i < n; i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}
