package ir_test

import (
	"testing"

	"github.com/IQBigBang/swarm-ir/ir"
	"github.com/IQBigBang/swarm-ir/types"
)

func TestCorrectTrimsAfterFail(t *testing.T) {
	m := ir.NewModule(ir.DefaultConfig())
	i32 := m.Types().Int32()

	b := newBuilder(t, m, "f", nil, nil)
	b.Fail()
	_ = b.LdInt(1, i32)
	b.Discard()
	if err := b.Finish(m); err != nil {
		t.Fatal(err)
	}

	ir.Correct(m)
	body := m.Funcs()[0].EntryBlock().Body
	if len(body) != 1 || body[0].Op != ir.OpFail {
		t.Errorf("correction left %d instructions", len(body))
	}
	if err := ir.VerifyModule(m); err != nil {
		t.Fatal(err)
	}
}

func TestCorrectTrimsAfterReturn(t *testing.T) {
	m := ir.NewModule(ir.DefaultConfig())
	i32 := m.Types().Int32()

	b := newBuilder(t, m, "f", nil, nil)
	b.Return()
	_ = b.LdInt(1, i32)
	if err := b.Finish(m); err != nil {
		t.Fatal(err)
	}

	ir.Correct(m)
	if got := len(m.Funcs()[0].EntryBlock().Body); got != 1 {
		t.Errorf("correction left %d instructions, want 1", got)
	}
}

func TestVerifyRejectsCodeAfterDivergingWithoutCorrection(t *testing.T) {
	m := ir.NewModule(ir.DefaultConfig())
	i32 := m.Types().Int32()

	b := newBuilder(t, m, "f", nil, nil)
	b.Return()
	_ = b.LdInt(1, i32)
	b.Discard()
	if err := b.Finish(m); err != nil {
		t.Fatal(err)
	}
	if err := ir.VerifyModule(m); err == nil {
		t.Error("unreachable trailing code must fail verification")
	}
}

func TestPeepholeRemovesIdentities(t *testing.T) {
	m := ir.NewModule(ir.DefaultConfig())
	i32 := m.Types().Int32()

	b := newBuilder(t, m, "f", []*types.Type{i32}, []*types.Type{i32})
	b.LdLocal(b.GetArg(0))
	_ = b.LdInt(0, i32)
	b.IAdd()
	_ = b.LdInt(1, i32)
	b.IMul()
	b.Return()
	if err := b.Finish(m); err != nil {
		t.Fatal(err)
	}
	if err := ir.VerifyModule(m); err != nil {
		t.Fatal(err)
	}

	ir.Peephole(m)
	body := m.Funcs()[0].EntryBlock().Body
	if len(body) != 2 || body[0].Op != ir.OpLdLocal || body[1].Op != ir.OpReturn {
		ops := make([]ir.Opcode, len(body))
		for i := range body {
			ops[i] = body[i].Op
		}
		t.Errorf("peephole left %v", ops)
	}
}
