package swarmir

import (
	"go.uber.org/zap"

	"github.com/IQBigBang/swarm-ir/emit"
	"github.com/IQBigBang/swarm-ir/ir"
)

// VerifyModule runs the standard verification pipeline on a module
// without compiling it: the correction pass followed by the
// stack-type verifier.
func VerifyModule(m *ir.Module) error {
	ir.Correct(m)
	return ir.VerifyModule(m)
}

// CompileFullModule verifies the module and compiles it to a
// WebAssembly binary. The module is frozen afterwards and must not be
// mutated; build a new module instead.
//
// When opt is set, a peephole pass that drops redundant instruction
// pairs runs between verification and emission.
//
// Verification failure returns a nil byte slice and a *errors.Error
// carrying the offending function, block and instruction.
func CompileFullModule(m *ir.Module, opt bool) ([]byte, error) {
	log := Logger()

	ir.Correct(m)
	if err := ir.VerifyModule(m); err != nil {
		log.Debug("verification failed", zap.Error(err))
		return nil, err
	}
	if opt {
		ir.Peephole(m)
	}
	m.Freeze()

	bin, err := emit.Compile(m)
	if err != nil {
		log.Debug("emission failed", zap.Error(err))
		return nil, err
	}
	log.Debug("module compiled",
		zap.Int("functions", len(m.Funcs())),
		zap.Int("externs", len(m.Externs())),
		zap.Int("bytes", len(bin)))
	return bin, nil
}
