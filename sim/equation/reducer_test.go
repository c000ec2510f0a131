package equation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QoPMLProject/AQoPA-sub000/sim/model"
)

func call(name string, args ...model.Expression) *model.CallFunction {
	return &model.CallFunction{Name: name, Args: args}
}

func id(name string) *model.Identifier { return &model.Identifier{Name: name} }

func encDecEquations() []*model.Equation {
	return []*model.Equation{
		{Simple: id("x"), Composite: call("dec", call("enc", id("x"), id("k")), id("k"))},
	}
}

func TestReduce_DecryptOfEncrypt_YieldsPlaintext(t *testing.T) {
	// GIVEN eq dec(enc(x,k),k) = x and a populated dec(enc(m(),key()),key())
	r := NewReducer(encDecEquations())
	expr := call("dec", call("enc", call("m"), call("key")), call("key"))

	// WHEN reduced
	got, err := r.Reduce(expr)

	// THEN the plaintext m() comes back
	require.NoError(t, err)
	assert.True(t, model.Equals(call("m"), got), "got %s", got)
}

func TestReduce_WrongKey_IsNormalForm(t *testing.T) {
	r := NewReducer(encDecEquations())
	expr := call("dec", call("enc", call("m"), call("key")), call("other"))

	got, err := r.Reduce(expr)

	require.NoError(t, err)
	assert.True(t, model.Equals(expr, got))
}

func TestReduce_NestedEncryption_ReducesInnerAndOuter(t *testing.T) {
	// GIVEN a message encrypted twice and decrypted twice
	r := NewReducer(encDecEquations())
	inner := call("dec", call("enc", call("m"), call("k1")), call("k1"))
	expr := call("dec", call("enc", inner, call("k2")), call("k2"))

	// WHEN reduced
	got, err := r.Reduce(expr)

	// THEN both layers collapse without a false ambiguity
	require.NoError(t, err)
	assert.True(t, model.Equals(call("m"), got), "got %s", got)
}

func TestReduce_ReducesInsideTuples(t *testing.T) {
	r := NewReducer(encDecEquations())
	expr := &model.Tuple{Elements: []model.Expression{
		call("dec", call("enc", call("a"), call("k")), call("k")),
		call("b"),
	}}

	got, err := r.Reduce(expr)

	require.NoError(t, err)
	want := &model.Tuple{Elements: []model.Expression{call("a"), call("b")}}
	assert.True(t, model.Equals(want, got), "got %s", got)
}

func TestReduce_IsIdempotent(t *testing.T) {
	r := NewReducer(encDecEquations())
	exprs := []model.Expression{
		call("dec", call("enc", call("m"), call("key")), call("key")),
		call("enc", call("dec", call("enc", call("m"), call("k")), call("k")), call("k")),
		&model.Boolean{Value: true},
		call("hash", call("m")),
	}
	for _, e := range exprs {
		once, err := r.Reduce(e)
		require.NoError(t, err)
		twice, err := r.Reduce(once)
		require.NoError(t, err)
		assert.True(t, model.Equals(once, twice), "reduce(reduce(%s)) = %s, want %s", e, twice, once)
	}
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	r := NewReducer(encDecEquations())
	expr := call("dec", call("enc", call("m"), call("key")), call("key"))
	before := expr.String()

	_, err := r.Reduce(expr)

	require.NoError(t, err)
	assert.Equal(t, before, expr.String())
}

func TestReduce_CachedResultIsIndependentCopy(t *testing.T) {
	r := NewReducer(encDecEquations())
	expr := call("dec", call("enc", call("m", call("n")), call("key")), call("key"))

	first, err := r.Reduce(expr)
	require.NoError(t, err)
	first.(*model.CallFunction).Name = "tampered"

	second, err := r.Reduce(expr)
	require.NoError(t, err)
	assert.Equal(t, "m", second.(*model.CallFunction).Name)
}

func TestReduce_SameSiteDifferentResults_IsAmbiguous(t *testing.T) {
	// GIVEN eq f(g(x)) = x and eq f(y) = a
	eqs := []*model.Equation{
		{Simple: id("x"), Composite: call("f", call("g", id("x")))},
		{Simple: call("a"), Composite: call("f", id("y"))},
	}
	r := NewReducer(eqs)

	// WHEN f(g(b)) is reduced
	_, err := r.Reduce(call("f", call("g", call("b"))))

	// THEN an ambiguity naming both equations is reported
	var amb *model.AmbiguityError
	require.True(t, errors.As(err, &amb), "expected AmbiguityError, got %v", err)
	assert.ElementsMatch(t, eqs, []*model.Equation{amb.First, amb.Second})
}

func TestReduce_InnerRewriteDestroysOuter_IsAmbiguous(t *testing.T) {
	// GIVEN eq f(g(x)) = x and eq g(b()) = c()
	eqs := []*model.Equation{
		{Simple: id("x"), Composite: call("f", call("g", id("x")))},
		{Simple: call("c"), Composite: call("g", call("b"))},
	}
	r := NewReducer(eqs)

	// WHEN f(g(b())) is reduced (normal forms b() and f(c()) differ)
	_, err := r.Reduce(call("f", call("g", call("b"))))

	// THEN it is rejected
	var amb *model.AmbiguityError
	assert.True(t, errors.As(err, &amb), "expected AmbiguityError, got %v", err)
}

func TestReduce_SameSiteSameResult_IsNotAmbiguous(t *testing.T) {
	eqs := []*model.Equation{
		{Simple: call("a"), Composite: call("f", call("g", id("x")))},
		{Simple: call("a"), Composite: call("f", id("y"))},
	}
	r := NewReducer(eqs)

	got, err := r.Reduce(call("f", call("g", call("b"))))

	require.NoError(t, err)
	assert.True(t, model.Equals(call("a"), got))
}

func TestReduce_RepeatedIdentifierRequiresEqualSubterms(t *testing.T) {
	// GIVEN eq eq(x, x) = true
	eqs := []*model.Equation{
		{Simple: &model.Boolean{Value: true}, Composite: call("same", id("x"), id("x"))},
	}
	r := NewReducer(eqs)

	equal, err := r.Reduce(call("same", call("a"), call("a")))
	require.NoError(t, err)
	different, err := r.Reduce(call("same", call("a"), call("b")))
	require.NoError(t, err)

	assert.True(t, model.Equals(&model.Boolean{Value: true}, equal))
	assert.True(t, model.Equals(call("same", call("a"), call("b")), different))
}

func TestReduce_NonTerminatingEquations_ReturnRuntimeError(t *testing.T) {
	eqs := []*model.Equation{
		{Simple: call("g", id("x")), Composite: call("f", id("x"))},
		{Simple: call("f", id("x")), Composite: call("g", id("x"))},
	}
	r := NewReducer(eqs)

	_, err := r.Reduce(call("f", call("a")))

	var rerr *model.RuntimeError
	assert.True(t, errors.As(err, &rerr), "expected RuntimeError, got %v", err)
}

func TestReduce_CompositeSimpleSideIsSubstituted(t *testing.T) {
	// GIVEN eq verify(sign(m, sk), pk(sk)) = ok(m)
	eqs := []*model.Equation{
		{
			Simple:    call("ok", id("m")),
			Composite: call("verify", call("sign", id("m"), id("sk")), call("pk", id("sk"))),
		},
	}
	r := NewReducer(eqs)

	got, err := r.Reduce(call("verify", call("sign", call("msg"), call("s")), call("pk", call("s"))))

	require.NoError(t, err)
	assert.True(t, model.Equals(call("ok", call("msg")), got), "got %s", got)
}

func TestReduce_CachedResultKeepsCallerQopArgs(t *testing.T) {
	// GIVEN a call already reduced with one set of qop tags
	r := NewReducer(encDecEquations())
	aes := &model.CallFunction{Name: "f", QopArgs: []string{"AES"}}
	_, err := r.Reduce(aes)
	require.NoError(t, err)

	// WHEN the same call is reduced with different tags
	des := &model.CallFunction{Name: "f", QopArgs: []string{"DES"}}
	got, err := r.Reduce(des)

	// THEN the result carries the new tags, not the cached ones
	require.NoError(t, err)
	assert.Equal(t, "f()[DES]", got.String())

	// AND a nested call is distinguished by its inner tags too
	outer := call("g", &model.CallFunction{Name: "h", QopArgs: []string{"128"}})
	_, err = r.Reduce(outer)
	require.NoError(t, err)
	got, err = r.Reduce(call("g", &model.CallFunction{Name: "h", QopArgs: []string{"256"}}))
	require.NoError(t, err)
	assert.Equal(t, "g(h()[256])", got.String())
}
