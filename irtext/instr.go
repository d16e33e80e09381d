package irtext

import (
	"strconv"

	"github.com/IQBigBang/swarm-ir/ir"
	"github.com/IQBigBang/swarm-ir/types"
)

var cmps = map[string]ir.Cmp{
	"eq": ir.CmpEq,
	"ne": ir.CmpNe,
	"lt": ir.CmpLt,
	"le": ir.CmpLe,
	"gt": ir.CmpGt,
	"ge": ir.CmpGe,
}

// parseInstr parses one instruction into a deferred append.
func (p *parser) parseInstr() (instrApply, error) {
	if p.tok.kind != tokIdent {
		return nil, p.errorf("expected an instruction, got %q", p.tok.text)
	}
	mnemonic := p.tok.text
	if err := p.advance(); err != nil {
		return nil, err
	}

	switch mnemonic {
	case "ld.int8", "ld.uint8", "ld.int16", "ld.uint16", "ld.int32", "ld.uint32":
		ty, err := p.intTypeOf(mnemonic[3:])
		if err != nil {
			return nil, err
		}
		num, err := p.expect(tokNumber)
		if err != nil {
			return nil, err
		}
		val, err := strconv.ParseInt(num.text, 10, 64)
		if err != nil {
			return nil, p.errorf("bad integer %q", num.text)
		}
		return func(b *ir.FunctionBuilder) error { return b.LdInt(uint32(val), ty) }, nil

	case "ld.float":
		num, err := p.expect(tokNumber)
		if err != nil {
			return nil, err
		}
		val, err := strconv.ParseFloat(num.text, 32)
		if err != nil {
			return nil, p.errorf("bad float %q", num.text)
		}
		return func(b *ir.FunctionBuilder) error { b.LdFloat(float32(val)); return nil }, nil

	case "iadd":
		return func(b *ir.FunctionBuilder) error { b.IAdd(); return nil }, nil
	case "isub":
		return func(b *ir.FunctionBuilder) error { b.ISub(); return nil }, nil
	case "imul":
		return func(b *ir.FunctionBuilder) error { b.IMul(); return nil }, nil
	case "idiv":
		return func(b *ir.FunctionBuilder) error { b.IDiv(); return nil }, nil
	case "fadd":
		return func(b *ir.FunctionBuilder) error { b.FAdd(); return nil }, nil
	case "fsub":
		return func(b *ir.FunctionBuilder) error { b.FSub(); return nil }, nil
	case "fmul":
		return func(b *ir.FunctionBuilder) error { b.FMul(); return nil }, nil
	case "fdiv":
		return func(b *ir.FunctionBuilder) error { b.FDiv(); return nil }, nil
	case "itof":
		return func(b *ir.FunctionBuilder) error { b.Itof(); return nil }, nil
	case "not":
		return func(b *ir.FunctionBuilder) error { b.Not(); return nil }, nil
	case "bitand":
		return func(b *ir.FunctionBuilder) error { b.BitAnd(); return nil }, nil
	case "bitor":
		return func(b *ir.FunctionBuilder) error { b.BitOr(); return nil }, nil
	case "discard":
		return func(b *ir.FunctionBuilder) error { b.Discard(); return nil }, nil
	case "return":
		return func(b *ir.FunctionBuilder) error { b.Return(); return nil }, nil
	case "fail":
		return func(b *ir.FunctionBuilder) error { b.Fail(); return nil }, nil
	case "break":
		return func(b *ir.FunctionBuilder) error { b.Break(); return nil }, nil
	case "memory.size":
		return func(b *ir.FunctionBuilder) error { b.MemorySize(); return nil }, nil
	case "memory.grow":
		return func(b *ir.FunctionBuilder) error { b.MemoryGrow(); return nil }, nil

	case "ftoi", "iconv", "bitcast":
		if err := p.expectIdent("to"); err != nil {
			return nil, err
		}
		ty, err := p.parseType()
		if err != nil {
			return nil, err
		}
		switch mnemonic {
		case "ftoi":
			return func(b *ir.FunctionBuilder) error { return b.Ftoi(ty) }, nil
		case "iconv":
			return func(b *ir.FunctionBuilder) error { return b.IConv(ty) }, nil
		default:
			return func(b *ir.FunctionBuilder) error { b.Bitcast(ty); return nil }, nil
		}

	case "icmp.eq", "icmp.ne", "icmp.lt", "icmp.le", "icmp.gt", "icmp.ge":
		cmp := cmps[mnemonic[5:]]
		return func(b *ir.FunctionBuilder) error { b.ICmp(cmp); return nil }, nil
	case "fcmp.eq", "fcmp.ne", "fcmp.lt", "fcmp.le", "fcmp.gt", "fcmp.ge":
		cmp := cmps[mnemonic[5:]]
		return func(b *ir.FunctionBuilder) error { b.FCmp(cmp); return nil }, nil

	case "call":
		if p.tok.kind == tokIdent && p.tok.text == "indirect" {
			if err := p.advance(); err != nil {
				return nil, err
			}
			return func(b *ir.FunctionBuilder) error { b.CallIndirect(); return nil }, nil
		}
		name, err := p.expect(tokString)
		if err != nil {
			return nil, err
		}
		return func(b *ir.FunctionBuilder) error { b.Call(name.text); return nil }, nil

	case "ld.loc", "st.loc":
		if _, err := p.expect(tokHash); err != nil {
			return nil, err
		}
		num, err := p.expect(tokNumber)
		if err != nil {
			return nil, err
		}
		idx, err := strconv.Atoi(num.text)
		if err != nil {
			return nil, p.errorf("bad local index %q", num.text)
		}
		if mnemonic == "ld.loc" {
			return func(b *ir.FunctionBuilder) error { b.LdLocal(ir.LocalRef(idx)); return nil }, nil
		}
		return func(b *ir.FunctionBuilder) error { b.StLocal(ir.LocalRef(idx)); return nil }, nil

	case "ld.global", "st.global", "ld_glob_func":
		name, err := p.expect(tokString)
		if err != nil {
			return nil, err
		}
		switch mnemonic {
		case "ld.global":
			return func(b *ir.FunctionBuilder) error { b.LdGlobal(name.text); return nil }, nil
		case "st.global":
			return func(b *ir.FunctionBuilder) error { b.StGlobal(name.text); return nil }, nil
		default:
			return func(b *ir.FunctionBuilder) error { b.LdGlobalFunc(name.text); return nil }, nil
		}

	case "if":
		if err := p.expectIdent("then"); err != nil {
			return nil, err
		}
		then, err := p.parseBlockRef()
		if err != nil {
			return nil, err
		}
		if p.tok.kind == tokIdent && p.tok.text == "else" {
			if err := p.advance(); err != nil {
				return nil, err
			}
			els, err := p.parseBlockRef()
			if err != nil {
				return nil, err
			}
			return func(b *ir.FunctionBuilder) error { return b.IfElse(then, els) }, nil
		}
		return func(b *ir.FunctionBuilder) error { return b.If(then) }, nil

	case "loop":
		body, err := p.parseBlockRef()
		if err != nil {
			return nil, err
		}
		return func(b *ir.FunctionBuilder) error { return b.Loop(body) }, nil

	case "read", "write", "offset":
		ty, err := p.parseType()
		if err != nil {
			return nil, err
		}
		switch mnemonic {
		case "read":
			return func(b *ir.FunctionBuilder) error { b.Read(ty); return nil }, nil
		case "write":
			return func(b *ir.FunctionBuilder) error { b.Write(ty); return nil }, nil
		default:
			return func(b *ir.FunctionBuilder) error { b.Offset(ty); return nil }, nil
		}

	case "get_field_ptr":
		num, err := p.expect(tokNumber)
		if err != nil {
			return nil, err
		}
		field, err := strconv.Atoi(num.text)
		if err != nil {
			return nil, p.errorf("bad field index %q", num.text)
		}
		ty, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return func(b *ir.FunctionBuilder) error { return b.GetFieldPtr(ty, field) }, nil

	case "ld_static_mem":
		return nil, p.errorf("static memory items cannot be declared in textual IR")

	default:
		return nil, p.errorf("unknown instruction %q", mnemonic)
	}
}

func (p *parser) parseBlockRef() (ir.BlockID, error) {
	if p.tok.kind != tokIdent || !blockIdent.MatchString(p.tok.text) {
		return 0, p.errorf("expected a block reference, got %q", p.tok.text)
	}
	id, _ := strconv.Atoi(p.tok.text[1:])
	return ir.BlockID(id), p.advance()
}

func (p *parser) intTypeOf(name string) (*types.Type, error) {
	reg := p.m.Types()
	switch name {
	case "int8":
		return reg.Int8(), nil
	case "uint8":
		return reg.Uint8(), nil
	case "int16":
		return reg.Int16(), nil
	case "uint16":
		return reg.Uint16(), nil
	case "int32":
		return reg.Int32(), nil
	case "uint32":
		return reg.Uint32(), nil
	}
	return nil, p.errorf("not an integer type: %q", name)
}
