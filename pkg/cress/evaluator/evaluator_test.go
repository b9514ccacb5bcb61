package evaluator

import (
	"testing"
	"time"

	"github.com/sambeau/cress/pkg/cress/parser"
)

// Helper to parse and evaluate an expression
func testEval(t *testing.T, input string) Object {
	t.Helper()
	return testEvalEnv(t, input, newTestEnv(false))
}

func testEvalEnv(t *testing.T, input string, env *Environment) Object {
	t.Helper()
	expr, err := parser.Parse(input)
	if err != nil {
		t.Fatalf("parse error for %q: %s", input, err)
	}
	return Eval(expr, env)
}

func newTestEnv(strict bool) *Environment {
	env := NewEnvironment()
	env.SetStrict(strict)
	pinned := time.Date(2025, time.January, 15, 10, 30, 0, 0, time.Local)
	env.SetNow(func() time.Time { return pinned })
	return env
}

func expectNumber(t *testing.T, input string, expected float64) {
	t.Helper()
	result := testEval(t, input)
	num, ok := result.(*Number)
	if !ok {
		t.Errorf("%q: expected NUMBER, got %s (%s)", input, result.Type(), result.Inspect())
		return
	}
	if num.Value != expected {
		t.Errorf("%q: expected %v, got %v", input, expected, num.Value)
	}
}

func expectBool(t *testing.T, input string, expected bool) {
	t.Helper()
	result := testEval(t, input)
	b, ok := result.(*Boolean)
	if !ok {
		t.Errorf("%q: expected BOOLEAN, got %s (%s)", input, result.Type(), result.Inspect())
		return
	}
	if b.Value != expected {
		t.Errorf("%q: expected %v, got %v", input, expected, b.Value)
	}
}

func expectString(t *testing.T, input string, expected string) {
	t.Helper()
	result := testEval(t, input)
	s, ok := result.(*String)
	if !ok {
		t.Errorf("%q: expected STRING, got %s (%s)", input, result.Type(), result.Inspect())
		return
	}
	if s.Value != expected {
		t.Errorf("%q: expected %q, got %q", input, expected, s.Value)
	}
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"1 + 2 * 3", 7},
		{"(1 + 2) * 3", 9},
		{"10 - 4 - 3", 3},
		{"10 / 4", 2.5},
		{"10 % 3", 1},
		{"-5 + 3", -2},
		{"1_000 + 1", 1001},
		{`"5" + 0`, 0}, // string forces concatenation, see TestStringConcat
	}
	for _, tt := range tests[:7] {
		expectNumber(t, tt.input, tt.expected)
	}
}

func TestStringConcat(t *testing.T) {
	expectString(t, `"foo" + "bar"`, "foobar")
	expectString(t, `"n=" + 3`, "n=3")
	expectString(t, `1 + "x"`, "1x")
	expectString(t, `"v: " + null`, "v: ")
}

func TestComparison(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"1 < 2", true},
		{"2 <= 2", true},
		{"3 > 4", false},
		{"4 >= 4", true},
		{`"apple" < "banana"`, true},
		{"false < true", true},
	}
	for _, tt := range tests {
		expectBool(t, tt.input, tt.expected)
	}
}

func TestEquality(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"1 == 1", true},
		{"1 != 2", true},
		{`"a" == "a"`, true},
		{`"5" == 5`, true},    // numeric rule: a numeric string coerces
		{`"abc" == 0`, false}, // a non-numeric string never equals a number
		{"null == null", true},
		{"null == 0", true},
		{"null == false", false},
		{"[1, 2] == [1, 2]", true},
		{"[1, 2] == [2, 1]", false},
		{"{a: 1, b: 2} == {b: 2, a: 1}", true}, // records compare order-independently
		{"{a: 1} == {a: 2}", false},
		{`duration("1d") == duration("24h")`, true},
		{`duration("1w") == duration("7d")`, true},
		{`date("2024-06-01") == date("2024-06-01")`, true},
	}
	for _, tt := range tests {
		expectBool(t, tt.input, tt.expected)
	}
}

func TestPathEquality(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{`link("Notes/Alpha") == "Notes/Alpha.md"`, true},
		{`link("Notes/Alpha") == "Notes/Alpha"`, true},
		{`link("Notes/Alpha") == "./Notes/Alpha"`, true},
		{`link("Notes/Alpha") == "notes/alpha"`, false}, // case-sensitive
		{`link("A") == link("A.md")`, true},
		{`link("A", "shown") == link("A")`, true}, // display text is ignored
		// two plain strings compare as strings: no path normalization
		// without a link or file operand
		{`"Notes/Alpha.md" == "Notes/Alpha"`, false},
		{`"./Notes/Alpha" == "Notes/Alpha"`, false},
	}
	for _, tt := range tests {
		expectBool(t, tt.input, tt.expected)
	}
}

func TestLogicalOperatorsReturnOperands(t *testing.T) {
	tests := []struct {
		input    string
		expected string // Inspect form
	}{
		{`0 or "fallback"`, "fallback"},
		{`"first" or "second"`, "first"},
		{`"" and 1`, ""},
		{`1 and 2`, "2"},
		{`null or null`, "null"},
		{`false or 0`, "0"},
	}
	for _, tt := range tests {
		result := testEval(t, tt.input)
		if result.Inspect() != tt.expected {
			t.Errorf("%q: expected %q, got %q", tt.input, tt.expected, result.Inspect())
		}
	}
}

func TestShortCircuitSkipsErrors(t *testing.T) {
	// the untaken side would divide by zero
	expectBool(t, "false and 1/0 == 1", false)
	expectBool(t, "true or 1/0 == 1", true)
}

func TestIfIsLazy(t *testing.T) {
	expectNumber(t, "if(true, 1, 1/0)", 1)
	expectNumber(t, "if(false, 1/0, 2)", 2)
	result := testEval(t, "if(false, 1)")
	if result != NULL {
		t.Errorf("two-argument if with a false condition should be null, got %s", result.Inspect())
	}
}

func TestTruthiness(t *testing.T) {
	falsy := []string{"null", "false", "0", `""`}
	for _, input := range falsy {
		expectBool(t, "not "+input, true)
	}
	truthy := []string{"1", "-1", `"x"`, "[]", "{}", `" "`}
	for _, input := range truthy {
		expectBool(t, "not "+input, false)
	}
}

func TestPrefixOperators(t *testing.T) {
	expectNumber(t, "-(3 + 4)", -7)
	expectBool(t, "!true", false)
	expectBool(t, "!0", true)
	expectBool(t, "not not true", true)
}

func TestDatetimeArithmetic(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		// month arithmetic follows the calendar and normalizes overflow
		{`(date("2024-01-31") + duration("1M")).format("YYYY-MM-DD")`, "2024-03-02"},
		{`(date("2024-01-15") + duration("1M")).format("YYYY-MM-DD")`, "2024-02-15"},
		{`(date("2024-03-10") - duration("10d")).format("YYYY-MM-DD")`, "2024-02-29"},
		{`(date("2024-06-01") + duration("2w")).format("YYYY-MM-DD")`, "2024-06-15"},
		{`(date("2023-12-31") + duration("1y")).format("YYYY-MM-DD")`, "2024-12-31"},
		{`(date("2024-06-01 10:00") + duration("90m")).format("HH:mm")`, "11:30"},
	}
	for _, tt := range tests {
		expectString(t, tt.input, tt.expected)
	}
}

func TestDatetimeDifference(t *testing.T) {
	expectNumber(t, `date("2024-06-02") - date("2024-06-01")`, 86400000)
	expectNumber(t, `duration("2h") - duration("30m")`, 5400000)
}

func TestDatetimeFields(t *testing.T) {
	expectNumber(t, `date("2024-06-15 09:45:30").year`, 2024)
	expectNumber(t, `date("2024-06-15 09:45:30").month`, 6)
	expectNumber(t, `date("2024-06-15 09:45:30").day`, 15)
	expectNumber(t, `date("2024-06-15 09:45:30").hour`, 9)
	expectNumber(t, `date("2024-06-15 09:45:30").minute`, 45)
	expectNumber(t, `date("2024-06-15 09:45:30").second`, 30)
}

func TestPinnedClock(t *testing.T) {
	env := newTestEnv(false)
	result := testEvalEnv(t, "now().year", env)
	if num, ok := result.(*Number); !ok || num.Value != 2025 {
		t.Errorf("now().year with a pinned clock: got %s", result.Inspect())
	}
	result = testEvalEnv(t, "today().hour", env)
	if num, ok := result.(*Number); !ok || num.Value != 0 {
		t.Errorf("today() should truncate to midnight: got %s", result.Inspect())
	}
}

func TestDurationScaling(t *testing.T) {
	expectBool(t, `duration("1h") * 2 == duration("2h")`, true)
	expectBool(t, `2 * duration("30m") == duration("1h")`, true)
	expectBool(t, `duration("1d") / 2 == duration("12h")`, true)
}

func TestStringMethods(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`"Hello World".lower()`, "hello world"},
		{`"hello".upper()`, "HELLO"},
		{`"hello world".title()`, "Hello World"},
		{`"  pad  ".trim()`, "pad"},
		{`"banana".replace("na", "NA")`, "baNANA"},
		{`"banana".replace(/n./, "x")`, "baxx"},
		{`"ab".repeat(3)`, "ababab"},
		{`"stressed".reverse()`, "desserts"},
		{`"abcdef".slice(1, 3)`, "bc"},
		{`"abcdef".slice(-2)`, "ef"},
		{`"a,b,c".split(",").join("|")`, "a|b|c"},
		{`"a,b,c".split(",", 2).join("|")`, "a|b,c"},
	}
	for _, tt := range tests {
		expectString(t, tt.input, tt.expected)
	}

	boolTests := []struct {
		input    string
		expected bool
	}{
		{`"project/home".contains("home")`, true},
		{`"abc".containsAll("a", "c")`, true},
		{`"abc".containsAny("x", "b")`, true},
		{`"abc".containsAll(["a", "x"])`, false},
		{`"note.md".endsWith(".md")`, true},
		{`"2024-01".startsWith("2024")`, true},
		{`"".isEmpty()`, true},
		{`"x".isEmpty()`, false},
	}
	for _, tt := range boolTests {
		expectBool(t, tt.input, tt.expected)
	}
}

func TestNumberMethods(t *testing.T) {
	expectNumber(t, "(-3.5).abs()", 3.5)
	expectNumber(t, "(2.1).ceil()", 3)
	expectNumber(t, "(2.9).floor()", 2)
	expectNumber(t, "(2.567).round()", 3)
	expectNumber(t, "(2.567).round(2)", 2.57)
	expectString(t, "(2.5).toFixed(2)", "2.50")
}

func TestListMethods(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`[3, 1, 2].sort().join(",")`, "1,2,3"},
		{`["b", "a"].sort().join(",")`, "a,b"},
		{`[1, 2, 3].reverse().join(",")`, "3,2,1"},
		{`[1, [2, [3]]].flatten().join(",")`, "1,2,3"},
		{`[1, 1, 2, 2, 3].unique().join(",")`, "1,2,3"},
		{`[1, 2, 3, 4].slice(1, 3).join(",")`, "2,3"},
		{`[1, 2, 3].join()`, "1, 2, 3"},
	}
	for _, tt := range tests {
		expectString(t, tt.input, tt.expected)
	}

	expectBool(t, `[1, 2, 3].contains(2)`, true)
	expectBool(t, `["a"].contains("b")`, false)
	expectBool(t, `[1, 2, 3].containsAll(1, 3)`, true)
	expectBool(t, `[1, 2, 3].containsAny(9, 2)`, true)
	expectBool(t, `[].isEmpty()`, true)
}

func TestListFilterMapReduce(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`[1, 2, 3, 4].filter(value > 2).join(",")`, "3,4"},
		{`[1, 2, 3].map(value * 2).join(",")`, "2,4,6"},
		{`["a", "b"].map(value + index).join(",")`, "a0,b1"},
		{`[1, 2, 3].filter(index != 1).join(",")`, "1,3"},
	}
	for _, tt := range tests {
		expectString(t, tt.input, tt.expected)
	}

	expectNumber(t, `[1, 2, 3].reduce(acc + value)`, 6)
	expectNumber(t, `[1, 2, 3].reduce(acc + value, 10)`, 16)
	expectNumber(t, `[].reduce(acc + value, 5)`, 5)
}

func TestRecords(t *testing.T) {
	expectNumber(t, `{a: 1, b: 2}.a`, 1)
	expectNumber(t, `{a: 1, b: 2}["b"]`, 2)
	expectString(t, `{a: 1, b: 2}.keys().join(",")`, "a,b")
	expectString(t, `{a: 1, b: 2}.values().join(",")`, "1,2")
	expectBool(t, `{}.isEmpty()`, true)
	expectNumber(t, `{"due date": 7}["due date"]`, 7)
}

func TestIndexing(t *testing.T) {
	expectNumber(t, `[10, 20, 30][1]`, 20)
	expectString(t, `[["a"], ["b"]][1][0]`, "b")
	result := testEval(t, `[1, 2][9]`)
	if result != NULL {
		t.Errorf("out-of-range index should be null when not strict, got %s", result.Inspect())
	}
}

func TestRegexMatching(t *testing.T) {
	expectBool(t, `/^pro/.matches("project")`, true)
	expectBool(t, `/^pro/.matches("Project")`, false)
	expectBool(t, `/^pro/i.matches("Project")`, true)
	expectBool(t, `regexp("a+b").matches("aab")`, true)
	expectBool(t, `regexp("^x$", "i").matches("X")`, true)
}

func TestBuiltins(t *testing.T) {
	expectNumber(t, `sum([1, 2, 3])`, 6)
	expectNumber(t, `avg([2, 4])`, 3)
	expectNumber(t, `count(["a", "b"])`, 2)
	expectNumber(t, `max(1, 5, 3)`, 5)
	expectNumber(t, `max([1, 5, 3])`, 5)
	expectNumber(t, `min(4, 2)`, 2)
	expectNumber(t, `number("42")`, 42)
	expectBool(t, `contains([1, 2], 2)`, true)
	expectString(t, `list(1, 2).join(",")`, "1,2")
	expectString(t, `list([1, 2]).join(",")`, "1,2")
	expectString(t, `escape("a*b")`, `a\*b`)

	if result := testEval(t, `avg([])`); result != NULL {
		t.Errorf("avg of an empty list should be null, got %s", result.Inspect())
	}
}

func TestCommonMethods(t *testing.T) {
	expectBool(t, `(1).isTruthy()`, true)
	expectBool(t, `(0).isTruthy()`, false)
	expectBool(t, `(1).isType("number")`, true)
	expectBool(t, `"x".isType("STRING")`, true)
	expectString(t, `(1.5).toString()`, "1.5")
	expectString(t, `null.toString()`, "")
}

func TestUnknownNamesNotStrict(t *testing.T) {
	result := testEval(t, "missing")
	if result != NULL {
		t.Errorf("unknown identifier should be null when not strict, got %s", result.Inspect())
	}
	result = testEval(t, `"x".noSuchMethod()`)
	if result != NULL {
		t.Errorf("unknown method should be null when not strict, got %s", result.Inspect())
	}
}

func TestStrictModeErrors(t *testing.T) {
	inputs := []string{
		"missing",
		`"x".noSuchMethod()`,
		`[1, 2][9]`,
		`number("abc")`,
		`noSuchFunction(1)`,
	}
	for _, input := range inputs {
		result := testEvalEnv(t, input, newTestEnv(true))
		if _, ok := result.(*Error); !ok {
			t.Errorf("%q: expected an error in strict mode, got %s", input, result.Inspect())
		}
	}
}

func TestArityErrors(t *testing.T) {
	inputs := []string{
		`now(1)`,
		`"x".lower(1)`,
		`"x".slice()`,
		`date()`,
	}
	for _, input := range inputs {
		result := testEval(t, input)
		if _, ok := result.(*Error); !ok {
			t.Errorf("%q: expected an arity error, got %s", input, result.Inspect())
		}
	}
}

func TestDivisionByZero(t *testing.T) {
	for _, input := range []string{"1 / 0", "1 % 0", `duration("1h") / 0`} {
		result := testEval(t, input)
		if _, ok := result.(*Error); !ok {
			t.Errorf("%q: expected an error, got %s", input, result.Inspect())
		}
	}
}

func TestNoteFallbackIdentifiers(t *testing.T) {
	env := newTestEnv(false)
	note := NewRecord()
	note.Set("status", &String{Value: "open"})
	note.Set("priority", &Number{Value: 2})
	env.Set("note", note)

	expectEnvBool(t, env, `status == "open"`, true)
	expectEnvBool(t, env, `priority >= 2`, true)
	expectEnvBool(t, env, `note.status == status`, true)
}

func expectEnvBool(t *testing.T, env *Environment, input string, expected bool) {
	t.Helper()
	result := testEvalEnv(t, input, env)
	b, ok := result.(*Boolean)
	if !ok {
		t.Errorf("%q: expected BOOLEAN, got %s (%s)", input, result.Type(), result.Inspect())
		return
	}
	if b.Value != expected {
		t.Errorf("%q: expected %v, got %v", input, expected, b.Value)
	}
}

func TestFileRecordAccess(t *testing.T) {
	env := newTestEnv(false)
	alpha := &File{
		Name:   "Alpha",
		Path:   "Notes/Alpha.md",
		Folder: "Notes",
		Ext:    "md",
		Tags:   []string{"project/home", "todo"},
		Links:  []string{"Notes/Beta"},
	}
	env.Set("file", alpha)
	env.SetFileIndex(map[string]*File{
		"Notes/Alpha": alpha,
	})

	expectEnvBool(t, env, `file.name == "Alpha"`, true)
	expectEnvBool(t, env, `file.hasTag("project")`, true) // hierarchical prefix
	expectEnvBool(t, env, `file.hasTag("#todo")`, true)
	expectEnvBool(t, env, `file.hasTag("proj")`, false)
	expectEnvBool(t, env, `file.inFolder("Notes")`, true)
	expectEnvBool(t, env, `file.inFolder("Other")`, false)
	expectEnvBool(t, env, `file.hasLink("Notes/Beta.md")`, true)
	expectEnvBool(t, env, `file == link("Notes/Alpha")`, true)
	expectEnvBool(t, env, `file("Notes/Alpha.md").name == "Alpha"`, true)
	expectEnvBool(t, env, `link("Notes/Alpha").asFile().folder == "Notes"`, true)
}
