package ir

// Correct applies semantics-preserving fixups before verification.
// It truncates every block after its first diverging instruction
// (return, fail or break): the trailing instructions can never
// execute, and the verifier rejects them otherwise.
func Correct(m *Module) {
	for _, fn := range m.funcs {
		for _, blk := range fn.blocks {
			for n := range blk.Body {
				if blk.Body[n].IsDiverging() {
					blk.Body = blk.Body[:n+1]
					break
				}
			}
		}
	}
}

// Peephole removes locally redundant instruction pairs. Every rewrite
// is stack-neutral and size-reducing, so the pass never invalidates a
// verified module. It runs after verification, when operand types are
// known.
func Peephole(m *Module) {
	for _, fn := range m.funcs {
		for _, blk := range fn.blocks {
			blk.Body = peepholeBlock(blk.Body)
		}
	}
}

func peepholeBlock(body []Instr) []Instr {
	out := body[:0]
	for n := 0; n < len(body); n++ {
		instr := body[n]
		if n+1 < len(body) && instr.Op == OpLdInt && isIdentityOf(instr.IntVal, body[n+1].Op) {
			// ld_int 0; iadd / ld_int 0; isub / ld_int 1; imul
			// leave the remaining operand untouched.
			n++
			continue
		}
		out = append(out, instr)
	}
	return out
}

func isIdentityOf(val uint32, op Opcode) bool {
	switch op {
	case OpIAdd, OpISub:
		return val == 0
	case OpIMul:
		return val == 1
	}
	return false
}
