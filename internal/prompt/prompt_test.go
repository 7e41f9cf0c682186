package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletion(t *testing.T) {
	p, err := Completion("def add(a, b):\n", "    return a ")
	require.NoError(t, err)

	assert.Contains(t, p, "without repeating existing text")
	assert.Contains(t, p, "Previous Code:\ndef add(a, b):\n")
	assert.Contains(t, p, "Current Line Start:\n    return a █  <-- (Cursor here)")
	assert.True(t, strings.HasSuffix(p, "What comes next?"))
}

func TestBugFix(t *testing.T) {
	p, err := BugFix("print(x", "SyntaxError: '(' was never closed")
	require.NoError(t, err)

	assert.Contains(t, p, "markdown format with backticks on first and last line")
	assert.Contains(t, p, "Given Code:\nprint(x\n")
	assert.Contains(t, p, "Error Message (if any):\nSyntaxError: '(' was never closed\n")
	assert.True(t, strings.HasSuffix(p, "Corrected Code:"))

	p, err = BugFix("x = 1", "")
	require.NoError(t, err)
	assert.Contains(t, p, "Error Message (if any):\n\n")
}

func TestSuggestFix(t *testing.T) {
	p, err := SuggestFix("int main() { return 0 }")
	require.NoError(t, err)

	assert.Contains(t, p, "{error line number} - {type of bug} - {suggested fix}")
	assert.Contains(t, p, "Code:\nint main() { return 0 }\n")
	assert.True(t, strings.HasSuffix(p, "Response:"))
}

func TestTestCases(t *testing.T) {
	p, err := TestCases("Python", "print(int(input()) * 2)", 15)
	require.NoError(t, err)

	assert.Contains(t, p, "Analyze the following Python code and generate 15 diverse test cases.")
	assert.Contains(t, p, `{ "input": "<input_value>", "output": "<expected_output>" }`)
	assert.True(t, strings.HasSuffix(p, "print(int(input()) * 2)"))

	_, err = TestCases("Python", "x", 0)
	assert.Error(t, err)
}

func TestTemplatesDoNotEscapeCode(t *testing.T) {
	code := `if a < b && c > "d" { return '<x>' }`
	p, err := SuggestFix(code)
	require.NoError(t, err)
	assert.Contains(t, p, code)
}
