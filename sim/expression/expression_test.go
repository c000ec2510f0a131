package expression

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QoPMLProject/AQoPA-sub000/sim/equation"
	"github.com/QoPMLProject/AQoPA-sub000/sim/model"
)

func call(name string, args ...model.Expression) *model.CallFunction {
	return &model.CallFunction{Name: name, Args: args}
}

func id(name string) *model.Identifier { return &model.Identifier{Name: name} }

func newServices() (*Populator, *Checker) {
	reducer := equation.NewReducer([]*model.Equation{
		{Simple: id("x"), Composite: call("dec", call("enc", id("x"), id("k")), id("k"))},
		{Simple: id("t"), Composite: call("unwrap", call("wrap", id("t")))},
	})
	p := NewPopulator(reducer)
	return p, NewChecker(p, reducer)
}

func TestPopulate_ReplacesIdentifiers_KeepsQopArgs(t *testing.T) {
	// GIVEN enc(M, K)[AES,128] with M and K bound
	p, _ := newServices()
	vars := VariableMap{"M": call("nonce"), "K": call("key")}
	expr := &model.CallFunction{Name: "enc", Args: []model.Expression{id("M"), id("K")}, QopArgs: []string{"AES", "128"}}

	// WHEN populated
	got, err := p.Populate(expr, vars)

	// THEN identifiers are substituted and qop args copied untouched
	require.NoError(t, err)
	assert.Equal(t, "enc(nonce(),key())[AES,128]", got.String())
	assert.Equal(t, "enc(M,K)[AES,128]", expr.String(), "input must not be modified")
}

func TestPopulate_ValuesAreCloned(t *testing.T) {
	p, _ := newServices()
	value := call("nonce")
	got, err := p.Populate(id("M"), VariableMap{"M": value})
	require.NoError(t, err)

	got.(*model.CallFunction).Name = "changed"

	assert.Equal(t, "nonce", value.Name)
}

func TestPopulate_UnboundVariable_IsRuntimeError(t *testing.T) {
	p, _ := newServices()

	_, err := p.Populate(call("f", id("missing")), VariableMap{})

	var rerr *model.RuntimeError
	require.True(t, errors.As(err, &rerr))
	assert.Contains(t, rerr.Error(), "missing")
}

func TestPopulate_TupleElement_SelectsElement(t *testing.T) {
	p, _ := newServices()
	vars := VariableMap{
		"T": &model.Tuple{Elements: []model.Expression{call("a"), id("B")}},
		"B": call("b"),
	}

	got, err := p.Populate(&model.TupleElement{Variable: "T", Index: 1}, vars)

	require.NoError(t, err)
	assert.Equal(t, "b()", got.String())
}

func TestPopulate_TupleElement_ReducesBeforeIndexing(t *testing.T) {
	// GIVEN T = unwrap(wrap((a(), b())))
	p, _ := newServices()
	tuple := &model.Tuple{Elements: []model.Expression{call("a"), call("b")}}
	vars := VariableMap{"T": call("unwrap", call("wrap", tuple))}

	got, err := p.Populate(&model.TupleElement{Variable: "T", Index: 0}, vars)

	require.NoError(t, err)
	assert.Equal(t, "a()", got.String())
}

func TestPopulate_TupleElement_Errors(t *testing.T) {
	p, _ := newServices()
	vars := VariableMap{
		"T": &model.Tuple{Elements: []model.Expression{call("a")}},
		"N": call("n"),
	}
	tests := []struct {
		name string
		expr *model.TupleElement
	}{
		{"out of range", &model.TupleElement{Variable: "T", Index: 3}},
		{"not a tuple", &model.TupleElement{Variable: "N", Index: 0}},
		{"unbound", &model.TupleElement{Variable: "X", Index: 0}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := p.Populate(tc.expr, vars)
			var rerr *model.RuntimeError
			assert.True(t, errors.As(err, &rerr), "got %v", err)
		})
	}
}

func TestChecker_Result(t *testing.T) {
	_, c := newServices()
	vars := VariableMap{
		"C": call("enc", call("m"), call("k")),
		"K": call("k"),
		"M": call("m"),
	}
	decrypted := call("dec", id("C"), id("K"))
	tests := []struct {
		name string
		cond model.Expression
		want bool
	}{
		{"literal true", &model.Boolean{Value: true}, true},
		{"literal false", &model.Boolean{Value: false}, false},
		{"equal after reduction", &model.Comparison{Left: decrypted, Right: id("M"), Kind: model.Equal}, true},
		{"not equal after reduction", &model.Comparison{Left: decrypted, Right: id("M"), Kind: model.NotEqual}, false},
		{"different names", &model.Comparison{Left: id("K"), Right: id("M"), Kind: model.Equal}, false},
		{"other expression", call("f"), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := c.Result(tc.cond, vars)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestChecker_Result_ArgumentCountMatters(t *testing.T) {
	_, c := newServices()
	cond := &model.Comparison{Left: call("f", call("a")), Right: call("f", call("a"), call("b")), Kind: model.Equal}

	got, err := c.Result(cond, VariableMap{})

	require.NoError(t, err)
	assert.False(t, got)
}
