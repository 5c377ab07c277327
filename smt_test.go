package goverif

import (
	"math/big"
	"testing"
)

func TestSmtResultString(t *testing.T) {
	if ResultSatisfiable.String() != "sat" ||
		ResultUnsatisfiable.String() != "unsat" ||
		ResultUndefined.String() != "undefined" {
		t.Error("incorrect SmtResult rendering")
	}
}

func TestModelValueLiterals(t *testing.T) {
	if BoolValue(true).Literal() != "true" || BoolValue(false).Literal() != "false" {
		t.Error("incorrect boolean literal")
	}
	if NumeralValue(42).Literal() != "42" {
		t.Error("incorrect numeral literal")
	}
	if NumeralValue(-7).Literal() != "-7" {
		t.Error("incorrect negative numeral literal")
	}
	if UnknownValue().Literal() != "todo!()" {
		t.Error("unknown values must render to a placeholder token")
	}
}

func TestModelValueI128Wrap(t *testing.T) {
	big128 := new(big.Int).Lsh(big.NewInt(1), 127)
	v := NumeralValueBig(big128)
	n, err := v.Numeral()
	if err != nil {
		t.Error("unexpected error")
		return
	}
	min := new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
	if n.Cmp(min) != 0 {
		t.Errorf("2^127 should wrap to the 128-bit minimum, got %s", n.String())
	}
}

func TestModelValueAccessors(t *testing.T) {
	if _, err := BoolValue(true).Numeral(); err == nil {
		t.Error("Numeral on a boolean should fail")
	}
	if _, err := NumeralValue(1).Bool(); err == nil {
		t.Error("Bool on a numeral should fail")
	}
	if UnknownValue().Kind() != MODEL_UNKNOWN {
		t.Error("wrong kind")
	}
}

func TestSolverStub(t *testing.T) {
	s := NewSolverStub()

	if s.Solve() != ResultUndefined {
		t.Error("stub should always be undefined")
	}
	if s.SolveExpression(0) != ResultUndefined {
		t.Error("stub should always be undefined")
	}
	if len(s.GetModelParams(nil)) != 0 {
		t.Error("stub should report no model parameters")
	}
	if s.GetModelAsString() != "not implemented" ||
		s.GetSolverStateAsString() != "not implemented" ||
		s.AsDebugString(0) != "not implemented" {
		t.Error("incorrect stub debug strings")
	}
	if s.InvertPredicate(1) != 0 || s.GetAsSmtPredicate(nil) != 0 {
		t.Error("incorrect stub translation")
	}
}

// An undefined result carries no information: the driver must not record a
// test case for it.
func TestUndefinedNeverRecords(t *testing.T) {
	eb := NewExprBuilder()
	pb := NewPathBuilder()
	s := NewSolverStub()

	tctx := NewStaticTypeContext("i32")
	tg := NewTestGen(t.TempDir(), tctx)

	cond := eb.Le(eb.IntVar("x", pb.Parameter(1)), eb.IntV(42))
	pred := s.GetAsSmtPredicate(cond)
	if res := s.SolveExpression(pred); res == ResultSatisfiable {
		params := s.GetModelParams(cond)
		meta := &FuncMeta{Args: []ArgDecl{{TypeName: "i32"}}}
		if err := tg.AddTest("f", cond, params, meta, nil, SourceSpan{}); err != nil {
			t.Error("unexpected error")
		}
	}

	if len(tg.groups) != 0 {
		t.Error("no test case may be recorded for an undefined result")
	}
}
