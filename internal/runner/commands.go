package runner

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Plan is a compile step (optional) followed by a run step. Both are shell
// command lines executed in Dir.
type Plan struct {
	Dir     string
	Compile string
	Run     string
}

// Command joins the steps the way a user would type them
func (p Plan) Command() string {
	if p.Compile == "" {
		return p.Run
	}
	return p.Compile + " && " + p.Run
}

type commandFunc func(path, base string) Plan

var testCommands = map[Language]commandFunc{
	Python: func(path, _ string) Plan {
		return Plan{Run: "python " + quote(path)}
	},
	Java: func(path, base string) Plan {
		return Plan{Compile: "javac " + quote(path), Run: "java " + quote(base)}
	},
	C: func(path, base string) Plan {
		return Plan{Compile: "gcc " + quote(path) + " -o " + quote(base+".out"), Run: "./" + quote(base+".out")}
	},
	CPP: func(path, base string) Plan {
		return Plan{Compile: "g++ " + quote(path) + " -o " + quote(base+".out"), Run: "./" + quote(base+".out")}
	},
	Go: func(path, _ string) Plan {
		return Plan{Run: "go run " + quote(path)}
	},
	Rust: func(path, base string) Plan {
		return Plan{Compile: "rustc " + quote(path) + " -o " + quote(base+".out"), Run: "./" + quote(base+".out")}
	},
	JavaScript: func(path, _ string) Plan {
		return Plan{Run: "node " + quote(path)}
	},
	TypeScript: func(path, base string) Plan {
		return Plan{Compile: "tsc " + quote(path), Run: "node " + quote(base+".js")}
	},
}

// TestPlan returns the commands that run path as a test target
func TestPlan(lang Language, path string) (Plan, error) {
	build, ok := testCommands[lang]
	if !ok {
		return Plan{}, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}
	plan := build(path, baseName(path))
	plan.Dir = filepath.Dir(path)
	return plan, nil
}

// BuildPlan returns the compile/run commands used by the run-and-fix loop.
// Only C++, Python and JavaScript files are supported.
func BuildPlan(path string) (Plan, error) {
	dir := filepath.Dir(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cpp":
		binary := strings.TrimSuffix(path, filepath.Ext(path))
		return Plan{Dir: dir, Compile: "g++ " + quote(path) + " -o " + quote(binary), Run: quote(binary)}, nil
	case ".py":
		return Plan{Dir: dir, Run: "python3 " + quote(path)}, nil
	case ".js":
		return Plan{Dir: dir, Run: "node " + quote(path)}, nil
	default:
		return Plan{}, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, filepath.Base(path))
	}
}

func baseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// quote makes s a single sh word. Embedded single quotes become '\''.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
