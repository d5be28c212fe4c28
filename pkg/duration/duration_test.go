package duration_test

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/a11ytester/a11ytester/pkg/duration"
)

func TestNavigationBudget(t *testing.T) {
	if duration.Navigation.Seconds() != 30 {
		t.Errorf("Navigation = %v, want 30s", duration.Navigation)
	}
	if duration.NetworkIdleWindow >= duration.Navigation {
		t.Errorf("idle window %v must fit inside navigation budget %v", duration.NetworkIdleWindow, duration.Navigation)
	}
}

// TestNoHardcodedTimeouts ensures *Timeout fields use duration.* constants
func TestNoHardcodedTimeouts(t *testing.T) {
	violations := findHardcodedDurations(t, "Timeout", []string{
		"duration.go",
		"_test.go",
	})

	if len(violations) > 0 {
		t.Errorf("Found %d hardcoded Timeout values. Use duration.* instead:", len(violations))
		for _, v := range violations {
			t.Errorf("  %s", v)
		}
	}
}

// findHardcodedDurations walks pkg/ and cmd/ and reports struct fields whose
// name ends in suffix and whose value is a literal duration.
func findHardcodedDurations(t *testing.T, suffix string, excludePatterns []string) []string {
	t.Helper()

	var violations []string
	root := findProjectRoot(t)

	for _, dir := range []string{"pkg", "cmd"} {
		dirPath := filepath.Join(root, dir)
		if _, err := os.Stat(dirPath); os.IsNotExist(err) {
			continue
		}

		err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if info.IsDir() || !strings.HasSuffix(path, ".go") {
				return nil
			}
			for _, pattern := range excludePatterns {
				if strings.Contains(path, pattern) {
					return nil
				}
			}

			fset := token.NewFileSet()
			node, err := parser.ParseFile(fset, path, nil, 0)
			if err != nil {
				return nil
			}

			report := func(expr ast.Expr, name string) {
				pos := fset.Position(expr.Pos())
				relPath, _ := filepath.Rel(root, pos.Filename)
				violations = append(violations, relPath+":"+strconv.Itoa(pos.Line)+": "+name+" = <hardcoded duration>")
			}

			ast.Inspect(node, func(n ast.Node) bool {
				switch n := n.(type) {
				case *ast.KeyValueExpr:
					if ident, ok := n.Key.(*ast.Ident); ok && strings.HasSuffix(ident.Name, suffix) && isHardcodedDuration(n.Value) {
						report(n.Value, ident.Name)
					}
				case *ast.AssignStmt:
					for i, lhs := range n.Lhs {
						sel, ok := lhs.(*ast.SelectorExpr)
						if !ok || i >= len(n.Rhs) {
							continue
						}
						if strings.HasSuffix(sel.Sel.Name, suffix) && isHardcodedDuration(n.Rhs[i]) {
							report(n.Rhs[i], sel.Sel.Name)
						}
					}
				}
				return true
			})
			return nil
		})
		if err != nil {
			t.Logf("Warning: error walking %s: %v", dir, err)
		}
	}

	return violations
}

// isHardcodedDuration matches "N * time.Unit".
func isHardcodedDuration(expr ast.Expr) bool {
	binExpr, ok := expr.(*ast.BinaryExpr)
	if !ok {
		return false
	}
	if _, ok := binExpr.X.(*ast.BasicLit); !ok {
		return false
	}
	sel, ok := binExpr.Y.(*ast.SelectorExpr)
	if !ok {
		return false
	}
	ident, ok := sel.X.(*ast.Ident)
	if !ok || ident.Name != "time" {
		return false
	}
	switch sel.Sel.Name {
	case "Second", "Minute", "Hour", "Millisecond", "Microsecond", "Nanosecond":
		return true
	}
	return false
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("Could not find project root (go.mod)")
		}
		dir = parent
	}
}
