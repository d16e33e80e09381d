package ir

import (
	"fmt"
	"strings"

	"github.com/IQBigBang/swarm-ir/types"
)

// Dump renders the module as readable IR text. The output parses back
// through the irtext package, except for static-memory loads, which
// have no textual declaration form.
func (m *Module) Dump() string {
	var b strings.Builder
	for _, g := range m.globals {
		if g.IsInt() {
			fmt.Fprintf(&b, "global %q = int32 %d\n", g.Name(), g.IntValue())
		} else {
			fmt.Fprintf(&b, "global %q = float32 %g\n", g.Name(), g.FloatValue())
		}
	}
	if len(m.globals) > 0 {
		b.WriteByte('\n')
	}
	for _, f := range m.externs {
		fmt.Fprintf(&b, "extern func %q %s;\n\n", f.Name(), f.Type())
	}
	for _, f := range m.funcs {
		f.print(&b)
		b.WriteByte('\n')
	}
	return b.String()
}

func (f *Function) print(b *strings.Builder) {
	fmt.Fprintf(b, "func %q %s {\n", f.name, f.ty)
	b.WriteString("locals:\n")
	for i, ty := range f.locals {
		fmt.Fprintf(b, "  #%d %s\n", i, ty)
	}
	for _, blk := range f.blocks {
		fmt.Fprintf(b, "b%d: %s tag=%s\n", blk.ID, returnsString(blk.Returns), blk.Tag)
		for n := range blk.Body {
			b.WriteString("  ")
			blk.Body[n].print(b)
			b.WriteByte('\n')
		}
	}
	b.WriteString("}\n")
}

// returnsString renders a block signature as a no-argument function
// type, e.g. "() -> (int32, int32)".
func returnsString(rets []*types.Type) string {
	switch len(rets) {
	case 0:
		return "() -> ()"
	case 1:
		return "() -> " + rets[0].String()
	default:
		parts := make([]string, len(rets))
		for i, t := range rets {
			parts[i] = t.String()
		}
		return "() -> (" + strings.Join(parts, ", ") + ")"
	}
}

func (i *Instr) print(b *strings.Builder) {
	switch i.Op {
	case OpLdInt:
		fmt.Fprintf(b, "ld.%s %d", i.Ty, i.IntVal)
	case OpLdFloat:
		fmt.Fprintf(b, "ld.float %g", i.FloatVal)
	case OpIAdd:
		b.WriteString("iadd")
	case OpISub:
		b.WriteString("isub")
	case OpIMul:
		b.WriteString("imul")
	case OpIDiv:
		b.WriteString("idiv")
	case OpFAdd:
		b.WriteString("fadd")
	case OpFSub:
		b.WriteString("fsub")
	case OpFMul:
		b.WriteString("fmul")
	case OpFDiv:
		b.WriteString("fdiv")
	case OpItof:
		b.WriteString("itof")
	case OpFtoi:
		fmt.Fprintf(b, "ftoi to %s", i.Ty)
	case OpIConv:
		fmt.Fprintf(b, "iconv to %s", i.Ty)
	case OpICmp:
		fmt.Fprintf(b, "icmp.%s", i.Cmp)
	case OpFCmp:
		fmt.Fprintf(b, "fcmp.%s", i.Cmp)
	case OpNot:
		b.WriteString("not")
	case OpBitAnd:
		b.WriteString("bitand")
	case OpBitOr:
		b.WriteString("bitor")
	case OpCall:
		fmt.Fprintf(b, "call %q", i.Name)
	case OpCallIndirect:
		b.WriteString("call indirect")
	case OpLdLocal:
		fmt.Fprintf(b, "ld.loc #%d", i.Local)
	case OpStLocal:
		fmt.Fprintf(b, "st.loc #%d", i.Local)
	case OpLdGlobal:
		fmt.Fprintf(b, "ld.global %q", i.Name)
	case OpStGlobal:
		fmt.Fprintf(b, "st.global %q", i.Name)
	case OpLdGlobalFunc:
		fmt.Fprintf(b, "ld_glob_func %q", i.Name)
	case OpBitcast:
		fmt.Fprintf(b, "bitcast to %s", i.Ty)
	case OpIf:
		fmt.Fprintf(b, "if then b%d", i.Then)
	case OpIfElse:
		fmt.Fprintf(b, "if then b%d else b%d", i.Then, i.Else)
	case OpLoop:
		fmt.Fprintf(b, "loop b%d", i.Then)
	case OpBreak:
		b.WriteString("break")
	case OpReturn:
		b.WriteString("return")
	case OpFail:
		b.WriteString("fail")
	case OpDiscard:
		b.WriteString("discard")
	case OpRead:
		fmt.Fprintf(b, "read %s", i.Ty)
	case OpWrite:
		fmt.Fprintf(b, "write %s", i.Ty)
	case OpOffset:
		fmt.Fprintf(b, "offset %s", i.Ty)
	case OpGetFieldPtr:
		fmt.Fprintf(b, "get_field_ptr %d %s", i.Field, i.Ty)
	case OpLdStaticMemPtr:
		fmt.Fprintf(b, "ld_static_mem #%d", i.Item)
	case OpMemorySize:
		b.WriteString("memory.size")
	case OpMemoryGrow:
		b.WriteString("memory.grow")
	}
}
