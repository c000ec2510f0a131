package builder

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QoPMLProject/AQoPA-sub000/sim/model"
)

func call(name string, args ...model.Expression) *model.CallFunction {
	return &model.CallFunction{Name: name, Args: args}
}

func id(name string) *model.Identifier { return &model.Identifier{Name: name} }

func TestParseExpression(t *testing.T) {
	tests := []struct {
		src  string
		want model.Expression
	}{
		{"x", id("x")},
		{"true", &model.Boolean{Value: true}},
		{"false", &model.Boolean{Value: false}},
		{"nonce()", call("nonce")},
		{"enc(m, k)", call("enc", id("m"), id("k"))},
		{"enc(m,k)[AES-CBC, 128]", &model.CallFunction{Name: "enc", Args: []model.Expression{id("m"), id("k")}, QopArgs: []string{"AES-CBC", "128"}}},
		{"dec(enc(m(), k()), k())", call("dec", call("enc", call("m"), call("k")), call("k"))},
		{"(a, b, c)", &model.Tuple{Elements: []model.Expression{id("a"), id("b"), id("c")}}},
		{"(a)", id("a")},
		{"x[1]", &model.TupleElement{Variable: "x", Index: 1}},
		{"a == b", &model.Comparison{Left: id("a"), Right: id("b"), Kind: model.Equal}},
		{"f(a) != (b, c)", &model.Comparison{Left: call("f", id("a")), Right: &model.Tuple{Elements: []model.Expression{id("b"), id("c")}}, Kind: model.NotEqual}},
	}
	for _, tc := range tests {
		t.Run(tc.src, func(t *testing.T) {
			got, err := ParseExpression(tc.src)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("ParseExpression(%q) mismatch (-want +got):\n%s", tc.src, diff)
			}
		})
	}
}

func TestParseExpression_Errors(t *testing.T) {
	for _, src := range []string{"", "enc(a", "a ==", "(a,)", "x[y]", "f()[AES,]", "a b", "()"} {
		_, err := ParseExpression(src)
		assert.Error(t, err, "source %q", src)
	}
}

func TestParseStatement(t *testing.T) {
	tests := []struct {
		src  string
		want model.Instruction
	}{
		{"x = enc(m, k)", &model.Assignment{Variable: "x", Expr: call("enc", id("m"), id("k"))}},
		{"x = a == b", &model.Assignment{Variable: "x", Expr: &model.Comparison{Left: id("a"), Right: id("b")}}},
		{"log(x)[file]", &model.Call{Function: &model.CallFunction{Name: "log", Args: []model.Expression{id("x")}, QopArgs: []string{"file"}}}},
		{"out(ch: x, y)", &model.Communication{Direction: model.Out, Channel: "ch", Variables: []string{"x", "y"}}},
		{"in(ch: y)", &model.Communication{Direction: model.In, Channel: "ch", Variables: []string{"y"}}},
		{"in(ch: y, z | *, key())", &model.Communication{
			Direction: model.In, Channel: "ch", Variables: []string{"y", "z"},
			Filters: []model.Filter{{Any: true}, {Expr: call("key")}},
		}},
		{"continue", &model.Continue{}},
		{"break", &model.Break{}},
		{"end", &model.Finish{Command: model.FinishEnd}},
		{"stop", &model.Finish{Command: model.FinishStop}},
	}
	for _, tc := range tests {
		t.Run(tc.src, func(t *testing.T) {
			got, err := ParseStatement(tc.src)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("ParseStatement(%q) mismatch (-want +got):\n%s", tc.src, diff)
			}
		})
	}
}

func TestParseStatement_RoundTripsThroughString(t *testing.T) {
	// GIVEN statements already in canonical form
	for _, src := range []string{"x = enc(m,k)", "out(ch: x)", "end", "f(a)[AES,128]"} {
		// WHEN parsed and printed
		instr, err := ParseStatement(src)
		require.NoError(t, err)

		// THEN the printed form parses to the same tree
		again, err := ParseStatement(instr.String())
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(instr, again, cmpopts.EquateEmpty()))
	}
}

func TestParseStatement_Errors(t *testing.T) {
	for _, src := range []string{"x", "x == y", "out(ch: x | *)", "in(ch)", "in(: x)", "end now", "x ="} {
		_, err := ParseStatement(src)
		assert.Error(t, err, "source %q", src)
	}
}

func TestParseEquation(t *testing.T) {
	eq, err := ParseEquation("dec(enc(x, k), k) = x")

	require.NoError(t, err)
	assert.True(t, model.Equals(call("dec", call("enc", id("x"), id("k")), id("k")), eq.Composite))
	assert.True(t, model.Equals(id("x"), eq.Simple))
}

func TestParseEquation_MissingSeparator(t *testing.T) {
	_, err := ParseEquation("dec(enc(x, k), k) == x")
	assert.Error(t, err)
}
