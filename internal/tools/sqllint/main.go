// Command sqllint checks that every SQL constant starts with a unique
// `--sql <uuid>` marker line. The SQL runner refuses unmarked statements at
// runtime; this catches them at review time.
package main

import (
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	sqlMarkerPattern  = regexp.MustCompile(`(?im)^\s*(--|select|insert|update|delete|with|create|alter|drop)\b`)
	uuidMarkerPattern = regexp.MustCompile(`^--sql [0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
)

type violation struct {
	file    string
	name    string
	line    int
	message string
}

// statement is one marked SQL constant.
type statement struct {
	file   string
	name   string
	line   int
	marker string
}

func main() {
	flag.Parse()
	os.Exit(run(flag.Args(), os.Stderr))
}

func run(targets []string, stderr io.Writer) int {
	if len(targets) == 0 {
		targets = []string{"."}
	}

	var (
		violations []violation
		statements []statement
	)
	for _, target := range targets {
		files, err := goFiles(target)
		if err != nil {
			fmt.Fprintf(stderr, "sqllint: %v\n", err)
			return 1
		}
		for _, path := range files {
			stmts, vs, err := lintFile(path)
			if err != nil {
				fmt.Fprintf(stderr, "sqllint: %v\n", err)
				return 1
			}
			statements = append(statements, stmts...)
			violations = append(violations, vs...)
		}
	}
	violations = append(violations, duplicateMarkers(statements)...)

	if len(violations) > 0 {
		fmt.Fprintln(stderr, "sqllint: SQL audit marker problems")
		for _, v := range violations {
			fmt.Fprintf(stderr, "  %s:%d %s (%s)\n", v.file, v.line, v.message, v.name)
		}
		return 1
	}
	return 0
}

func goFiles(target string) ([]string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if filepath.Ext(target) == ".go" {
			return []string{target}, nil
		}
		return nil, nil
	}
	var files []string
	err = filepath.WalkDir(target, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != target && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "vendor" || name == "testdata") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == ".go" && !strings.HasSuffix(path, "_test.go") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func lintFile(path string) ([]statement, []violation, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
	if err != nil {
		return nil, nil, err
	}
	var (
		statements []statement
		violations []violation
	)
	ast.Inspect(file, func(n ast.Node) bool {
		vs, ok := n.(*ast.ValueSpec)
		if !ok {
			return true
		}
		for _, value := range vs.Values {
			bl, ok := value.(*ast.BasicLit)
			if !ok || bl.Kind != token.STRING {
				continue
			}
			raw, err := unquote(bl.Value)
			if err != nil || !sqlMarkerPattern.MatchString(raw) {
				continue
			}
			pos := fset.Position(bl.Pos())
			name := joinNames(vs.Names)
			marker := firstLine(raw)
			if !uuidMarkerPattern.MatchString(marker) {
				violations = append(violations, violation{
					file:    path,
					line:    pos.Line,
					name:    name,
					message: "missing or invalid --sql <uuid> marker",
				})
				continue
			}
			statements = append(statements, statement{file: path, name: name, line: pos.Line, marker: marker})
		}
		return true
	})
	return statements, violations, nil
}

// duplicateMarkers reports markers shared by more than one statement, since
// log lines are traced back to their constant by marker.
func duplicateMarkers(statements []statement) []violation {
	first := make(map[string]statement, len(statements))
	var violations []violation
	for _, s := range statements {
		prev, seen := first[s.marker]
		if !seen {
			first[s.marker] = s
			continue
		}
		violations = append(violations, violation{
			file:    s.file,
			line:    s.line,
			name:    s.name,
			message: fmt.Sprintf("marker already used by %s at %s:%d", prev.name, prev.file, prev.line),
		})
	}
	return violations
}

func firstLine(s string) string {
	s = strings.TrimLeft(s, "\n\r \t")
	if idx := strings.IndexAny(s, "\n\r"); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return strings.TrimSpace(s)
}

func unquote(v string) (string, error) {
	if len(v) == 0 {
		return v, nil
	}
	if v[0] == '`' {
		return v[1 : len(v)-1], nil
	}
	return strconv.Unquote(v)
}

func joinNames(idents []*ast.Ident) string {
	parts := make([]string, 0, len(idents))
	for _, ident := range idents {
		if ident == nil {
			continue
		}
		parts = append(parts, ident.Name)
	}
	return strings.Join(parts, ",")
}
