package ir_test

import (
	"strings"
	"testing"

	"github.com/IQBigBang/swarm-ir/ir"
	"github.com/IQBigBang/swarm-ir/types"
)

func TestDump(t *testing.T) {
	m := ir.NewModule(ir.DefaultConfig())
	i32 := m.Types().Int32()

	if err := m.NewIntGlobal("counter", 5); err != nil {
		t.Fatal(err)
	}
	extTy := mustFuncType(t, m, []*types.Type{i32}, nil)
	if err := m.NewExternFunction("print", extTy); err != nil {
		t.Fatal(err)
	}

	b := newBuilder(t, m, "twice", []*types.Type{i32}, []*types.Type{i32})
	b.LdLocal(b.GetArg(0))
	_ = b.LdInt(2, i32)
	b.IMul()
	b.Return()
	if err := b.Finish(m); err != nil {
		t.Fatal(err)
	}

	dump := m.Dump()
	for _, want := range []string{
		`global "counter" = int32 5`,
		`extern func "print" (int32) -> ();`,
		`func "twice" (int32) -> int32 {`,
		"locals:",
		"  #0 int32",
		"b0: () -> int32 tag=main",
		"  ld.loc #0",
		"  ld.int32 2",
		"  imul",
		"  return",
	} {
		if !strings.Contains(dump, want) {
			t.Errorf("dump missing %q:\n%s", want, dump)
		}
	}
}

func TestDumpControlFlow(t *testing.T) {
	m := ir.NewModule(ir.DefaultConfig())
	u32 := m.Types().Uint32()

	b := newBuilder(t, m, "f", nil, nil)
	body, _ := b.NewBlock(nil, ir.TagUndefined)
	if err := b.Loop(body); err != nil {
		t.Fatal(err)
	}
	_ = b.SwitchBlock(body)
	_ = b.LdInt(0, u32)
	then, _ := b.NewBlock(nil, ir.TagUndefined)
	if err := b.If(then); err != nil {
		t.Fatal(err)
	}
	_ = b.SwitchBlock(then)
	b.Break()
	if err := b.Finish(m); err != nil {
		t.Fatal(err)
	}

	dump := m.Dump()
	for _, want := range []string{
		"loop b1",
		"tag=loop",
		"if then b2",
		"tag=if_else",
		"break",
	} {
		if !strings.Contains(dump, want) {
			t.Errorf("dump missing %q:\n%s", want, dump)
		}
	}
}
