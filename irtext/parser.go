package irtext

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/IQBigBang/swarm-ir/errors"
	"github.com/IQBigBang/swarm-ir/ir"
	"github.com/IQBigBang/swarm-ir/types"
)

// Parse reads textual IR and populates the module with its globals,
// extern declarations and functions. Parsed functions pass through a
// FunctionBuilder, so they are structurally verified on the way in.
func Parse(m *ir.Module, src string) error {
	p := &parser{m: m, lex: newLexer(src)}
	if err := p.advance(); err != nil {
		return err
	}
	for p.tok.kind != tokEOF {
		if p.tok.kind != tokIdent {
			return p.errorf("expected a declaration, got %s", p.tok.kind)
		}
		var err error
		switch p.tok.text {
		case "global":
			err = p.parseGlobal()
		case "extern":
			err = p.parseExtern()
		case "func":
			err = p.parseFunc()
		default:
			err = p.errorf("unknown declaration %q", p.tok.text)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

type parser struct {
	m   *ir.Module
	lex *lexer
	tok token
}

func (p *parser) errorf(format string, args ...any) error {
	detail := fmt.Sprintf(format, args...)
	return errors.New(errors.PhaseParse, errors.KindInvalidSyntax, "line %d: %s", p.tok.line, detail)
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return errors.Wrap(errors.PhaseParse, errors.KindInvalidSyntax, err, "lexing")
	}
	p.tok = tok
	return nil
}

func (p *parser) expect(kind tokenKind) (token, error) {
	if p.tok.kind != kind {
		return token{}, p.errorf("expected %s, got %s %q", kind, p.tok.kind, p.tok.text)
	}
	tok := p.tok
	return tok, p.advance()
}

func (p *parser) expectIdent(text string) error {
	if p.tok.kind != tokIdent || p.tok.text != text {
		return p.errorf("expected %q, got %q", text, p.tok.text)
	}
	return p.advance()
}

// parseType parses a type in IR syntax: a primitive name, a struct
// literal or a function type.
func (p *parser) parseType() (*types.Type, error) {
	reg := p.m.Types()
	switch p.tok.kind {
	case tokIdent:
		name := p.tok.text
		switch name {
		case "int8":
			return reg.Int8(), p.advance()
		case "uint8":
			return reg.Uint8(), p.advance()
		case "int16":
			return reg.Int16(), p.advance()
		case "uint16":
			return reg.Uint16(), p.advance()
		case "int32":
			return reg.Int32(), p.advance()
		case "uint32":
			return reg.Uint32(), p.advance()
		case "float32":
			return reg.Float32(), p.advance()
		case "ptr":
			return reg.Ptr(), p.advance()
		case "struct":
			if err := p.advance(); err != nil {
				return nil, err
			}
			if _, err := p.expect(tokLBrace); err != nil {
				return nil, err
			}
			var fields []*types.Type
			for p.tok.kind != tokRBrace {
				if len(fields) > 0 {
					if _, err := p.expect(tokComma); err != nil {
						return nil, err
					}
				}
				f, err := p.parseType()
				if err != nil {
					return nil, err
				}
				fields = append(fields, f)
			}
			return reg.Struct(fields...), p.advance()
		default:
			return nil, p.errorf("unknown type %q", name)
		}
	case tokLParen:
		args, err := p.parseTypeList()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokArrow); err != nil {
			return nil, err
		}
		var rets []*types.Type
		if p.tok.kind == tokLParen {
			rets, err = p.parseTypeList()
			if err != nil {
				return nil, err
			}
		} else {
			ret, err := p.parseType()
			if err != nil {
				return nil, err
			}
			rets = []*types.Type{ret}
		}
		return reg.Func(args, rets)
	default:
		return nil, p.errorf("expected a type, got %q", p.tok.text)
	}
}

// parseTypeList parses "(" [type {"," type}] ")".
func (p *parser) parseTypeList() ([]*types.Type, error) {
	if _, err := p.expect(tokLParen); err != nil {
		return nil, err
	}
	var list []*types.Type
	for p.tok.kind != tokRParen {
		if len(list) > 0 {
			if _, err := p.expect(tokComma); err != nil {
				return nil, err
			}
		}
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, p.advance()
}

func (p *parser) parseGlobal() error {
	if err := p.advance(); err != nil { // "global"
		return err
	}
	name, err := p.expect(tokString)
	if err != nil {
		return err
	}
	if _, err := p.expect(tokEquals); err != nil {
		return err
	}
	if p.tok.kind != tokIdent {
		return p.errorf("expected a global type, got %q", p.tok.text)
	}
	kind := p.tok.text
	if err := p.advance(); err != nil {
		return err
	}
	num, err := p.expect(tokNumber)
	if err != nil {
		return err
	}
	switch kind {
	case "int32":
		v, err := strconv.ParseInt(num.text, 10, 64)
		if err != nil {
			return p.errorf("bad integer %q", num.text)
		}
		return p.m.NewIntGlobal(name.text, int32(v))
	case "float32":
		v, err := strconv.ParseFloat(num.text, 32)
		if err != nil {
			return p.errorf("bad float %q", num.text)
		}
		return p.m.NewFloatGlobal(name.text, float32(v))
	default:
		return p.errorf("globals must be int32 or float32, got %q", kind)
	}
}

func (p *parser) parseExtern() error {
	if err := p.advance(); err != nil { // "extern"
		return err
	}
	if err := p.expectIdent("func"); err != nil {
		return err
	}
	name, err := p.expect(tokString)
	if err != nil {
		return err
	}
	ty, err := p.parseType()
	if err != nil {
		return err
	}
	if _, err := p.expect(tokSemi); err != nil {
		return err
	}
	return p.m.NewExternFunction(name.text, ty)
}

var blockIdent = regexp.MustCompile(`^b[0-9]+$`)

// instrApply is a parsed instruction waiting to be appended once all
// blocks of its function exist.
type instrApply func(b *ir.FunctionBuilder) error

type blockDecl struct {
	instrs  []instrApply
	returns []*types.Type
	id      int
	tag     string
}

func (p *parser) parseFunc() error {
	if err := p.advance(); err != nil { // "func"
		return err
	}
	name, err := p.expect(tokString)
	if err != nil {
		return err
	}
	fnType, err := p.parseType()
	if err != nil {
		return err
	}
	if !fnType.IsFunc() {
		return p.errorf("function %q declared with non-function type", name.text)
	}
	if _, err := p.expect(tokLBrace); err != nil {
		return err
	}

	if err := p.expectIdent("locals"); err != nil {
		return err
	}
	if _, err := p.expect(tokColon); err != nil {
		return err
	}
	var locals []*types.Type
	for p.tok.kind == tokHash {
		if err := p.advance(); err != nil {
			return err
		}
		idx, err := p.expect(tokNumber)
		if err != nil {
			return err
		}
		if idx.text != strconv.Itoa(len(locals)) {
			return p.errorf("local #%s out of order", idx.text)
		}
		ty, err := p.parseType()
		if err != nil {
			return err
		}
		locals = append(locals, ty)
	}

	var blocks []blockDecl
	for p.tok.kind == tokIdent && blockIdent.MatchString(p.tok.text) {
		decl, err := p.parseBlock()
		if err != nil {
			return err
		}
		blocks = append(blocks, decl)
	}
	if _, err := p.expect(tokRBrace); err != nil {
		return err
	}

	return p.buildFunc(name.text, fnType, locals, blocks)
}

func (p *parser) parseBlock() (blockDecl, error) {
	var decl blockDecl
	id, err := strconv.Atoi(p.tok.text[1:])
	if err != nil {
		return decl, p.errorf("bad block id %q", p.tok.text)
	}
	decl.id = id
	if err := p.advance(); err != nil {
		return decl, err
	}
	if _, err := p.expect(tokColon); err != nil {
		return decl, err
	}
	blockTy, err := p.parseType()
	if err != nil {
		return decl, err
	}
	if !blockTy.IsFunc() || len(blockTy.Args()) != 0 {
		return decl, p.errorf("block b%d type must take no arguments", id)
	}
	decl.returns = blockTy.Rets()
	if err := p.expectIdent("tag"); err != nil {
		return decl, err
	}
	if _, err := p.expect(tokEquals); err != nil {
		return decl, err
	}
	if p.tok.kind != tokIdent {
		return decl, p.errorf("expected a block tag, got %q", p.tok.text)
	}
	decl.tag = p.tok.text
	if err := p.advance(); err != nil {
		return decl, err
	}

	for {
		if p.tok.kind == tokRBrace {
			return decl, nil
		}
		if p.tok.kind == tokIdent && blockIdent.MatchString(p.tok.text) {
			return decl, nil
		}
		instr, err := p.parseInstr()
		if err != nil {
			return decl, err
		}
		decl.instrs = append(decl.instrs, instr)
	}
}

func (p *parser) buildFunc(name string, fnType *types.Type, locals []*types.Type, blocks []blockDecl) error {
	b, err := ir.NewFunctionBuilder(name, fnType)
	if err != nil {
		return err
	}

	args := fnType.Args()
	if len(locals) < len(args) {
		return p.errorf("function %q lists %d locals but has %d arguments", name, len(locals), len(args))
	}
	for i, arg := range args {
		if locals[i] != arg {
			return p.errorf("local #%d of %q disagrees with the argument type", i, name)
		}
	}
	for _, ty := range locals[len(args):] {
		if _, err := b.NewLocal(ty); err != nil {
			return err
		}
	}

	if len(blocks) == 0 || blocks[0].id != 0 || blocks[0].tag != "main" {
		return p.errorf("function %q must start with block b0 tagged main", name)
	}
	if !typesEqual(blocks[0].returns, fnType.Rets()) {
		return p.errorf("main block of %q disagrees with the function returns", name)
	}
	for i, decl := range blocks[1:] {
		if decl.id != i+1 {
			return p.errorf("block b%d of %q out of order", decl.id, name)
		}
		if _, err := b.NewBlock(decl.returns, ir.TagUndefined); err != nil {
			return err
		}
	}

	for _, decl := range blocks {
		if err := b.SwitchBlock(ir.BlockID(decl.id)); err != nil {
			return err
		}
		for _, apply := range decl.instrs {
			if err := apply(b); err != nil {
				return err
			}
		}
	}
	return b.Finish(p.m)
}

func typesEqual(a, b []*types.Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
