package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSuggestions(t *testing.T) {
	t.Run("numbered lines", func(t *testing.T) {
		input := "3 - Syntax Error - Add a closing parenthesis\n" +
			"7 - Logical Error - Use <= instead of < in the loop condition\r\n"

		got := ParseSuggestions(input)

		require.Len(t, got, 2)
		assert.Equal(t, Suggestion{Line: 3, Type: "Syntax Error", Fix: "Add a closing parenthesis"}, got[0])
		assert.Equal(t, Suggestion{Line: 7, Type: "Logical Error", Fix: "Use <= instead of < in the loop condition"}, got[1])
		assert.True(t, got[0].HasLine())
	})

	t.Run("prose and markdown noise", func(t *testing.T) {
		input := "Here are the issues I found:\n\n" +
			"* **12** - Off-by-one - iterate to len(items) - 1\n" +
			"Line 4 - Type Error - convert input() to int\n" +
			"Nothing else looks wrong.\n"

		got := ParseSuggestions(input)

		require.Len(t, got, 2)
		assert.Equal(t, 12, got[0].Line)
		assert.Equal(t, "Off-by-one", got[0].Type)
		assert.Equal(t, "iterate to len(items) - 1", got[0].Fix)
		assert.Equal(t, 4, got[1].Line)
		assert.Equal(t, "convert input() to int", got[1].Fix)
	})

	t.Run("line-less entries", func(t *testing.T) {
		got := ParseSuggestions("- Missing return - return the computed total\n")

		require.Len(t, got, 1)
		assert.False(t, got[0].HasLine())
		assert.Equal(t, "Missing return", got[0].Type)
		assert.Equal(t, "return the computed total", got[0].Fix)
		assert.Equal(t, "Missing return - return the computed total", got[0].String())
	})

	t.Run("fenced code is ignored", func(t *testing.T) {
		input := "2 - Bug - use total - discount\n```python\nx = a - b - c\n10 - 2 - 3\n```\n"

		got := ParseSuggestions(input)

		require.Len(t, got, 1)
		assert.Equal(t, "2 - Bug - use total - discount", got[0].String())
	})

	t.Run("fix text is kept verbatim", func(t *testing.T) {
		input := "5 - Bug - result = base ** exp\n" +
			"**9** - **Type Error** - int main(int argc, char **argv) {\n" +
			"* **Style** - use x ** 2\n"

		got := ParseSuggestions(input)

		require.Len(t, got, 3)
		assert.Equal(t, Suggestion{Line: 5, Type: "Bug", Fix: "result = base ** exp"}, got[0])
		assert.Equal(t, Suggestion{Line: 9, Type: "Type Error", Fix: "int main(int argc, char **argv) {"}, got[1])
		assert.Equal(t, Suggestion{Type: "Style", Fix: "use x ** 2"}, got[2])
	})

	t.Run("nothing matches", func(t *testing.T) {
		assert.Empty(t, ParseSuggestions("No bugs found."))
		assert.Empty(t, ParseSuggestions(""))
	})
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "fenced with language",
			input:    "```python\nprint('hi')\nprint('there')\n```",
			expected: "print('hi')\nprint('there')",
		},
		{
			name:     "bare fences",
			input:    "```\nint main() {}\n```",
			expected: "int main() {}",
		},
		{
			name:     "no fences",
			input:    "print('hi')",
			expected: "print('hi')",
		},
		{
			name:     "single line keeps backticks",
			input:    "```print(1)```",
			expected: "```print(1)```",
		},
		{
			name:     "prose around one block",
			input:    "Here is the fix:\n```js\nconsole.log(1)\n```\nHope it helps.",
			expected: "console.log(1)",
		},
		{
			name:     "prose around two blocks stays",
			input:    "a\n```\n1\n```\nb\n```\n2\n```\nc",
			expected: "a\n```\n1\n```\nb\n```\n2\n```\nc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripCodeFence(tt.input))
		})
	}
}

func TestParseTestCases(t *testing.T) {
	t.Run("fenced json", func(t *testing.T) {
		input := "```json\n[\n  {\"input\": \"2\\\\n3\", \"output\": \"5\"},\n  {\"input\": \"\", \"output\": \"0\"}\n]\n```"

		cases, err := ParseTestCases(input)

		require.NoError(t, err)
		require.Len(t, cases, 2)
		assert.Equal(t, TestCase{Input: `2\n3`, Output: "5"}, cases[0])
		assert.Equal(t, TestCase{Input: "", Output: "0"}, cases[1])
	})

	t.Run("scalar values become text", func(t *testing.T) {
		cases, err := ParseTestCases(`[{"input": 4, "output": 16}, {"input": true, "output": null}, {"input": [1, 2], "output": "3"}]`)

		require.NoError(t, err)
		require.Len(t, cases, 3)
		assert.Equal(t, TestCase{Input: "4", Output: "16"}, cases[0])
		assert.Equal(t, TestCase{Input: "true", Output: ""}, cases[1])
		assert.Equal(t, TestCase{Input: "1\n2", Output: "3"}, cases[2])
	})

	t.Run("prose around the array", func(t *testing.T) {
		cases, err := ParseTestCases("Sure! Here they are:\n[{\"input\": \"a\", \"output\": \"A\"}]\nLet me know.")

		require.NoError(t, err)
		assert.Equal(t, []TestCase{{Input: "a", Output: "A"}}, cases)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := ParseTestCases("I cannot generate tests for this code.")
		assert.ErrorIs(t, err, ErrNoTestCases)
	})
}
