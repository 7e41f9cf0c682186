// Package prompt renders the text sent to the model for each feature.
package prompt

import (
	"bytes"
	"fmt"
	"text/template"
)

// CursorMarker marks the cursor position in completion prompts
const CursorMarker = "█"

const completionTemplate = `Complete this code **without repeating existing text**.
Only give the next part of the statement where the cursor is.
Do NOT include explanations or comments.
---
Previous Code:
{{.Previous}}
---
Current Line Start:
{{.Prefix}}{{.Cursor}}  <-- (Cursor here)
What comes next?`

const bugFixTemplate = `Identify and fix any bugs in the following code snippet.

Do NOT add explanations. Only return the corrected code always in markdown format with backticks on first and last line.

Given Code:
{{.Code}}

Error Message (if any):
{{.ErrorMessage}}

Corrected Code:`

const suggestFixTemplate = `Analyze the following code and identify any syntactic errors or logical bugs.
Provide output in this format and make sure it is to the point:
{error line number} - {type of bug} - {suggested fix}

Code:
{{.Code}}

Response:`

const testCasesTemplate = `Analyze the following {{.Language}} code and generate {{.Count}} diverse test cases.
Ensure that inputs match the expected format used by the program.

Return test cases in this JSON format:

[
    { "input": "<input_value>", "output": "<expected_output>" },
    ...
]

Make sure outputs strictly match expected program behavior.

Code:
{{.Code}}`

var (
	completionTmpl = template.Must(template.New("completion").Parse(completionTemplate))
	bugFixTmpl     = template.Must(template.New("bugfix").Parse(bugFixTemplate))
	suggestTmpl    = template.Must(template.New("suggest").Parse(suggestFixTemplate))
	testCasesTmpl  = template.Must(template.New("testcases").Parse(testCasesTemplate))
)

func render(tmpl *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// Completion asks for the continuation of the line at the cursor.
// previous holds the lines before the cursor line, prefix the cursor line
// up to the cursor.
func Completion(previous, prefix string) (string, error) {
	return render(completionTmpl, map[string]string{
		"Previous": previous,
		"Prefix":   prefix,
		"Cursor":   CursorMarker,
	})
}

// BugFix asks for the whole document back, corrected, in a fenced block.
// errorMessage may be empty.
func BugFix(code, errorMessage string) (string, error) {
	return render(bugFixTmpl, map[string]string{
		"Code":         code,
		"ErrorMessage": errorMessage,
	})
}

// SuggestFix asks for one "line - type - fix" entry per problem
func SuggestFix(code string) (string, error) {
	return render(suggestTmpl, map[string]string{"Code": code})
}

// TestCases asks for count input/output pairs as a JSON array
func TestCases(language, code string, count int) (string, error) {
	if count <= 0 {
		return "", fmt.Errorf("test case count must be positive, got %d", count)
	}
	return render(testCasesTmpl, map[string]interface{}{
		"Language": language,
		"Count":    count,
		"Code":     code,
	})
}
