package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/roll/internal/render"
)

func runRoll(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRun_ForcedModes(t *testing.T) {
	code, out, _ := runRoll(t, "-M", "3d6")
	assert.Equal(t, 0, code)
	assert.Equal(t, "18\n", out)

	code, out, _ = runRoll(t, "--minimum", "3d6", "+", "2")
	assert.Equal(t, 0, code)
	assert.Equal(t, "5\n", out)
}

func TestRun_VerboseHistory(t *testing.T) {
	code, out, errOut := runRoll(t, "-m", "-v", "4d6K3")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "Rolled: 4d6: [1, 1, 1, 1]\nKeeping highest: 3: [1, 1, 1]\n3\n", out)
}

func TestRun_WordsAreJoined(t *testing.T) {
	code, out, _ := runRoll(t, "2", "+", "2", "*", "3")
	assert.Equal(t, 0, code)
	assert.Equal(t, "8\n", out)
}

func TestRun_EmptyExpressionRollsD20(t *testing.T) {
	code, out, _ := runRoll(t, "-M")
	assert.Equal(t, 0, code)
	assert.Equal(t, "20\n", out)

	for i := 0; i < 50; i++ {
		code, out, _ = runRoll(t)
		require.Equal(t, 0, code)
		n, err := strconv.Atoi(strings.TrimSpace(out))
		require.NoError(t, err)
		assert.True(t, n >= 1 && n <= 20, "got %d", n)
	}
}

func TestRun_NegativeExpressionAfterDashDash(t *testing.T) {
	code, out, _ := runRoll(t, "-M", "--", "-1d6", "+", "10")
	assert.Equal(t, 0, code)
	assert.Equal(t, "4\n", out)
}

func TestRun_JSON(t *testing.T) {
	code, out, _ := runRoll(t, "-M", "-f", "json", "1d6")
	require.Equal(t, 0, code)
	assert.JSONEq(t, `{"total": 6}`, out)

	code, out, _ = runRoll(t, "-M", "-v", "--format", "json", "2d4")
	require.Equal(t, 0, code)
	assert.JSONEq(t, `{
		"total": 8,
		"history": ["Rolled: 2d4: [4, 4]"],
		"rolls": [{"notation": "2d4", "values": [4, 4]}]
	}`, out)
}

func TestRun_YAML(t *testing.T) {
	code, out, _ := runRoll(t, "-M", "-v", "-f", "yaml", "2d4")
	require.Equal(t, 0, code)

	var doc render.Document
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, 8.0, doc.Total)
	assert.Equal(t, []string{"Rolled: 2d4: [4, 4]"}, doc.History)
	assert.Equal(t, []render.Roll{{Notation: "2d4", Values: []float64{4, 4}}}, doc.Rolls)
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
		want string
	}{
		{"division by zero", []string{"1/0"}, 1, "roll: dice: division by zero"},
		{"invalid characters", []string{"hello"}, 1, "roll: dice: input contained invalid characters"},
		{"negative sides", []string{"1d-20"}, 1, "roll: dice: invalid operand"},
		{"unknown format", []string{"-f", "xml", "1d6"}, 1, "unknown format"},
		{"overflow as json", []string{"-f", "json", "10**300*10**300"}, 1, "roll: dice: expression too complex"},
		{"exclusive modes", []string{"-m", "-M", "1d6"}, 2, "mutually exclusive"},
		{"unknown flag", []string{"--sides", "6"}, 2, "unknown flag"},
		{"missing config", []string{"-c", "/nonexistent/roll.yaml", "1d6"}, 1, "reading config file"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, out, errOut := runRoll(t, tc.args...)
			assert.Equal(t, tc.code, code)
			assert.Empty(t, out)
			assert.Contains(t, errOut, tc.want)
			if tc.code == 2 {
				assert.Contains(t, errOut, "Usage: roll")
			}
		})
	}
}

func TestRun_Help(t *testing.T) {
	code, out, _ := runRoll(t, "--help")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Examples:")
	assert.Contains(t, out, "d%")
	assert.Contains(t, out, "--maximum")
	assert.Contains(t, out, "--script")
}

func TestRun_ConfigAndFlagLimits(t *testing.T) {
	path := writeFile(t, "roll.yaml", `
dice:
  max_dice: 2
  default_expression: 2d4
`)
	code, out, _ := runRoll(t, "-c", path, "-M")
	assert.Equal(t, 0, code)
	assert.Equal(t, "8\n", out)

	code, _, errOut := runRoll(t, "-c", path, "3d6")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "too complex")

	code, _, errOut = runRoll(t, "--max-dice", "2", "3d6")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "too complex")
}

func TestRun_Script(t *testing.T) {
	path := writeFile(t, "attack.lua", `
		print(dice.max(arg[1]), #arg)
	`)
	code, out, errOut := runRoll(t, "-s", path, "2d6")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "12\t1\n", out)

	bad := writeFile(t, "bad.lua", `dice.total("1 / 0")`)
	code, _, errOut = runRoll(t, "--script", bad)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "division by zero")
}
