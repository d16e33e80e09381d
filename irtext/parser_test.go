package irtext_test

import (
	"context"
	"strings"
	"testing"

	"github.com/tetratelabs/wazero"

	swarmir "github.com/IQBigBang/swarm-ir"
	"github.com/IQBigBang/swarm-ir/ir"
	"github.com/IQBigBang/swarm-ir/irtext"
	"github.com/IQBigBang/swarm-ir/types"
)

const countdownSrc = `
global "initial" = int32 5

extern func "observe" (int32) -> ();

func "countdown" (int32) -> int32 {
locals:
  #0 int32
b0: () -> int32 tag=main
  loop b1
  ld.loc #0
  return
b1: () -> () tag=loop
  ld.loc #0
  ld.int32 0
  icmp.eq
  if then b2
  ld.loc #0
  ld.int32 1
  isub
  st.loc #0
b2: () -> () tag=if_else
  break
}
`

func TestParseCountdown(t *testing.T) {
	m := ir.NewModule(ir.DefaultConfig())
	if err := irtext.Parse(m, countdownSrc); err != nil {
		t.Fatal(err)
	}

	if len(m.Funcs()) != 1 || len(m.Externs()) != 1 || len(m.Globals()) != 1 {
		t.Fatalf("decls: funcs=%d externs=%d globals=%d", len(m.Funcs()), len(m.Externs()), len(m.Globals()))
	}
	fn := m.Funcs()[0]
	if fn.Name() != "countdown" || len(fn.Blocks()) != 3 {
		t.Fatalf("function shape: %s blocks=%d", fn.Name(), len(fn.Blocks()))
	}
	if fn.Block(1).Tag != ir.TagLoop || fn.Block(2).Tag != ir.TagIfElse {
		t.Error("block tags not derived from control flow")
	}

	bin, err := swarmir.CompileFullModule(m, false)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)
	if _, err := rt.NewHostModuleBuilder("env").
		NewFunctionBuilder().
		WithFunc(func(int32) {}).
		Export("observe").
		Instantiate(ctx); err != nil {
		t.Fatal(err)
	}
	mod, err := rt.Instantiate(ctx, bin)
	if err != nil {
		t.Fatal(err)
	}
	res, err := mod.ExportedFunction("countdown").Call(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if int32(res[0]) != 0 {
		t.Errorf("countdown(5) = %d, want 0", int32(res[0]))
	}
}

func TestParseDumpRoundTrip(t *testing.T) {
	m := ir.NewModule(ir.DefaultConfig())
	i32 := m.Types().Int32()
	f32 := m.Types().Float32()

	if err := m.NewFloatGlobal("pi", 3.5); err != nil {
		t.Fatal(err)
	}
	ft, err := m.Types().Func([]*types.Type{i32, f32}, []*types.Type{f32})
	if err != nil {
		t.Fatal(err)
	}
	b, err := ir.NewFunctionBuilder("mix", ft)
	if err != nil {
		t.Fatal(err)
	}
	b.LdLocal(b.GetArg(0))
	b.Itof()
	b.LdLocal(b.GetArg(1))
	b.FAdd()
	b.LdGlobal("pi")
	b.FMul()
	b.Return()
	if err := b.Finish(m); err != nil {
		t.Fatal(err)
	}

	dump := m.Dump()
	m2 := ir.NewModule(ir.DefaultConfig())
	if err := irtext.Parse(m2, dump); err != nil {
		t.Fatalf("reparse failed: %v\n%s", err, dump)
	}
	if m2.Dump() != dump {
		t.Errorf("round trip diverged:\nfirst:\n%s\nsecond:\n%s", dump, m2.Dump())
	}
}

func TestParseStructTypes(t *testing.T) {
	src := `
func "third" (ptr) -> int32 {
locals:
  #0 ptr
b0: () -> int32 tag=main
  ld.loc #0
  get_field_ptr 2 struct{int8, int16, int32}
  read int32
  return
}
`
	m := ir.NewModule(ir.DefaultConfig())
	if err := irtext.Parse(m, src); err != nil {
		t.Fatal(err)
	}
	if err := swarmir.VerifyModule(m); err != nil {
		t.Fatal(err)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unknown decl", `module "x"`, "unknown declaration"},
		{"unknown instr", "func \"f\" () -> () {\nlocals:\nb0: () -> () tag=main\n  frobnicate\n}", "unknown instruction"},
		{"missing main", "func \"f\" () -> () {\nlocals:\nb1: () -> () tag=loop\n}", "must start with block b0"},
		{"static mem", "func \"f\" () -> () {\nlocals:\nb0: () -> () tag=main\n  ld_static_mem #0\n}", "static memory"},
		{"bad type", `global "g" = ptr 5`, "int32 or float32"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ir.NewModule(ir.DefaultConfig())
			err := irtext.Parse(m, tt.src)
			if err == nil {
				t.Fatal("want parse error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q missing %q", err, tt.want)
			}
		})
	}
}
