package lib

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockData struct {
	Name    string
	Content string
}

func (m MockData) String() string {
	return m.Name
}

func (m MockData) Pretty() string {
	return "Name: " + m.Name + " | Content: " + m.Content
}

func (m MockData) TableHeaders() []string {
	return []string{"Name", "Content"}
}

func (m MockData) TableRow() []string {
	return []string{m.Name, m.Content}
}

func TestFormatOutput(t *testing.T) {
	data := []MockData{
		{Name: "first", Content: "alpha"},
		{Name: "second", Content: "beta"},
	}

	tests := []struct {
		format   FormatType
		contains []string
	}{
		{Text, []string{"first\nsecond"}},
		{Pretty, []string{"Name: first | Content: alpha\nName: second | Content: beta"}},
		{JSON, []string{`"Name": "first"`, `"Content": "beta"`}},
		{YAML, []string{"name: first", "content: beta"}},
		{Table, []string{"NAME", "CONTENT", "first", "beta"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			out, err := FormatOutput(data, tt.format)
			require.NoError(t, err)
			for _, c := range tt.contains {
				assert.Contains(t, out, c)
			}
		})
	}

	_, err := FormatOutput(data, FormatType("xml"))
	assert.Error(t, err)
}

func TestFormatSingleOutput(t *testing.T) {
	item := MockData{Name: "Test", Content: "Sample Content"}

	out, err := FormatSingleOutput(item, Text)
	require.NoError(t, err)
	assert.Equal(t, "Test", out)

	out, err = FormatSingleOutput(item, Pretty)
	require.NoError(t, err)
	assert.Equal(t, "Name: Test | Content: Sample Content", out)

	out, err = FormatSingleOutput(item, JSON)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Name":"Test","Content":"Sample Content"}`, out)

	out, err = FormatSingleOutput(item, YAML)
	require.NoError(t, err)
	assert.Equal(t, "name: Test\ncontent: Sample Content\n", out)

	out, err = FormatSingleOutput(item, Table)
	require.NoError(t, err)
	assert.Contains(t, out, "Sample Content")

	_, err = FormatSingleOutput(item, FormatType("csv"))
	assert.Error(t, err)
}

func TestFormatOutputToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	err := FormatOutputToFile([]MockData{{Name: "a"}, {Name: "b"}}, Text, path)
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\nb", string(content))
}

func TestParseFormatType(t *testing.T) {
	f, err := ParseFormatType("JSON")
	require.NoError(t, err)
	assert.Equal(t, JSON, f)

	f, err = ParseFormatType("table")
	require.NoError(t, err)
	assert.Equal(t, Table, f)

	_, err = ParseFormatType("html")
	assert.Error(t, err)
}

type verdictData struct {
	Name  string
	State string
}

func (v verdictData) String() string         { return v.Name }
func (v verdictData) Pretty() string         { return v.Name + ": " + v.State }
func (v verdictData) TableHeaders() []string { return []string{"Name", "State"} }
func (v verdictData) TableRow() []string     { return []string{v.Name, v.State} }
func (v verdictData) ColoredTableRow() []string {
	if v.State == "Valid" {
		return []string{v.Name, Pass(v.State)}
	}
	return []string{v.Name, Fail(v.State)}
}

func TestTableColorsVerdicts(t *testing.T) {
	noColor := color.NoColor
	t.Cleanup(func() { color.NoColor = noColor })
	data := []verdictData{{Name: "capabilities", State: "Valid"}, {Name: "jobs", State: "Invalid"}}

	color.NoColor = false
	out, err := FormatOutput(data, Table)
	require.NoError(t, err)
	assert.Contains(t, out, Pass("Valid"))
	assert.Contains(t, out, Fail("Invalid"))

	path := filepath.Join(t.TempDir(), "report.txt")
	require.NoError(t, FormatOutputToFile(data, Table, path))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "\033[")
	assert.Contains(t, string(content), "Invalid")

	color.NoColor = true
	out, err = FormatOutput(data, Table)
	require.NoError(t, err)
	assert.NotContains(t, out, "\033[")
}
