package document

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), mode))
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, "main.py", "a = 1\nb = 2\n", 0o600)

	doc, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, doc.Path())
	assert.Equal(t, ".py", doc.Extension())
	assert.Equal(t, "a = 1\nb = 2\n", doc.Text())
	assert.Equal(t, []string{"a = 1", "b = 2"}, doc.Lines())
	assert.Equal(t, 2, doc.LineCount())
	assert.False(t, doc.Dirty())

	_, err = Load(filepath.Join(t.TempDir(), "missing.py"))
	assert.Error(t, err)

	_, err = Load(t.TempDir())
	assert.Error(t, err)
}

func TestLine(t *testing.T) {
	doc := New("x.c", "one\r\ntwo\r\nthree")

	l, err := doc.Line(2)
	require.NoError(t, err)
	assert.Equal(t, "two", l)

	_, err = doc.Line(0)
	assert.ErrorIs(t, err, ErrLineOutOfRange)
	_, err = doc.Line(4)
	assert.ErrorIs(t, err, ErrLineOutOfRange)

	assert.Nil(t, New("empty.c", "").Lines())
}

func TestContextBefore(t *testing.T) {
	doc := New("x.py", "l1\nl2\nl3\nl4\nl5\nl6\nl7\n")

	tests := []struct {
		name  string
		line  int
		count int
		want  string
	}{
		{name: "window of five", line: 6, count: 5, want: "l2\nl3\nl4\nl5\nl6\n"},
		{name: "clamped at start", line: 2, count: 5, want: "l1\nl2\n"},
		{name: "first line", line: 0, count: 5, want: ""},
		{name: "past end", line: 40, count: 2, want: "l6\nl7\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, doc.ContextBefore(tt.line, tt.count))
		})
	}
}

func TestPrefixAt(t *testing.T) {
	doc := New("x.py", "def f():\n    return ñandú\n")

	assert.Equal(t, "def", doc.PrefixAt(0, 3))
	assert.Equal(t, "    return ñ", doc.PrefixAt(1, 12))
	assert.Equal(t, "    return ñandú", doc.PrefixAt(1, 99))
	assert.Equal(t, "", doc.PrefixAt(1, 0))
	assert.Equal(t, "", doc.PrefixAt(5, 1))
}

func TestInsertAt(t *testing.T) {
	doc := New("x.js", "const x = \nconsole.log(x)\n")

	require.NoError(t, doc.InsertAt(0, 10, "42;"))
	assert.Equal(t, "const x = 42;\nconsole.log(x)\n", doc.Text())

	require.NoError(t, doc.InsertAt(1, 12, "'v', "))
	assert.Equal(t, "const x = 42;\nconsole.log('v', x)\n", doc.Text())

	assert.ErrorIs(t, doc.InsertAt(2, 0, "nope"), ErrLineOutOfRange)
}

func TestReplaceLine(t *testing.T) {
	doc := New("x.py", "a = 1\nprint(a\n")

	require.NoError(t, doc.ReplaceLine(2, "print(a)"))
	assert.Equal(t, "a = 1\nprint(a)\n", doc.Text())

	assert.ErrorIs(t, doc.ReplaceLine(0, "x"), ErrLineOutOfRange)
	assert.ErrorIs(t, doc.ReplaceLine(3, "x"), ErrLineOutOfRange)
}

func TestLineEditsKeepTerminators(t *testing.T) {
	doc := New("x.c", "int a;\r\nint b\r\nreturn 0;\r\n")

	require.NoError(t, doc.ReplaceLine(2, "int b;"))
	assert.Equal(t, "int a;\r\nint b;\r\nreturn 0;\r\n", doc.Text())

	require.NoError(t, doc.InsertAt(0, 99, " // x"))
	assert.Equal(t, "int a; // x\r\nint b;\r\nreturn 0;\r\n", doc.Text())
	assert.ErrorIs(t, doc.ReplaceLine(4, "x"), ErrLineOutOfRange)

	mixed := New("x.py", "a = 1\nb = 2\r\nc = 3")
	require.NoError(t, mixed.ReplaceLine(3, "c = 4"))
	require.NoError(t, mixed.ReplaceLine(1, "a = 0"))
	assert.Equal(t, "a = 0\nb = 2\r\nc = 4", mixed.Text())

	blank := New("x.py", "x = 1\n\n")
	require.NoError(t, blank.ReplaceLine(2, "y = 2"))
	assert.Equal(t, "x = 1\ny = 2\n", blank.Text())
	assert.ErrorIs(t, blank.ReplaceLine(3, "z"), ErrLineOutOfRange)
}

func TestSaveKeepsMode(t *testing.T) {
	path := writeFile(t, "run.sh", "echo hi\n", 0o755)
	doc, err := Load(path)
	require.NoError(t, err)

	doc.ReplaceAll("echo bye\n")
	assert.True(t, doc.Dirty())
	require.NoError(t, doc.Save())
	assert.False(t, doc.Dirty())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "echo bye\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestDiff(t *testing.T) {
	doc := New("/tmp/calc.py", "a = 1\nprint(a\n")

	diff, err := doc.Diff("a = 1\nprint(a)\n")
	require.NoError(t, err)
	assert.Contains(t, diff, "--- a/calc.py")
	assert.Contains(t, diff, "+++ b/calc.py")
	assert.Contains(t, diff, "-print(a\n")
	assert.Contains(t, diff, "+print(a)\n")

	diff, err = doc.Diff(doc.Text())
	require.NoError(t, err)
	assert.Empty(t, diff)
}
