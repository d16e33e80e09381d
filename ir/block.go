package ir

import "github.com/IQBigBang/swarm-ir/types"

// NoLoop is the LoopDist value of blocks with no enclosing loop.
const NoLoop int32 = -1

// Block is a straight-line instruction sequence with a single entry.
// Child blocks are reached only through a structured control-flow
// instruction in the parent; the parent edges form a tree rooted at
// the main block.
type Block struct {
	// Body is the instruction sequence, in append order.
	Body []Instr
	// Returns is the abstract-stack shape the block leaves behind.
	Returns []*types.Type
	// ID is the block's dense index inside its function.
	ID BlockID
	// Parent is the block containing the control-flow instruction
	// that references this block, or NoBlock for the main block.
	Parent BlockID
	// LoopDist is the innermost loop distance: 0 for a loop's body
	// block, parent distance + 1 for an if/if_else branch under a
	// loop, NoLoop when no loop encloses the block. It is derived
	// when the function is finished.
	LoopDist int32
	// Tag records how the block is used.
	Tag BlockTag
}

// IsMain reports whether this is the function's entry block.
func (b *Block) IsMain() bool { return b.ID == EntryBlockID }

// InLoop reports whether the block has an enclosing loop, i.e.
// whether a break instruction is legal inside it.
func (b *Block) InLoop() bool { return b.LoopDist != NoLoop }

// endsDiverging reports whether the block's last instruction is
// return, fail or break, making the end-of-block stack unreachable.
func (b *Block) endsDiverging() bool {
	return len(b.Body) > 0 && b.Body[len(b.Body)-1].IsDiverging()
}
