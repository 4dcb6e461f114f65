package wasm

import "testing"

func TestSplitBlocksEmptyFunction(t *testing.T) {
	blocks := splitBlocks(nil)
	if len(blocks) != 1 || blocks[0] != (BasicBlock{0, 0}) {
		t.Fatalf("expected one empty block, got %v", blocks)
	}
}

func TestSplitBlocksStraightLine(t *testing.T) {
	instrs := []Instruction{
		{Op: OpI32Const, I32: 1},
		{Op: OpI32Const, I32: 2},
		{Op: OpI32Add},
	}
	blocks := splitBlocks(instrs)
	if len(blocks) != 1 || blocks[0] != (BasicBlock{0, 3}) {
		t.Fatalf("expected a single 3-instruction block, got %v", blocks)
	}
}

func TestSplitBlocksIfElse(t *testing.T) {
	instrs := []Instruction{
		{Op: OpI32Const, I32: 1}, // 0
		{Op: OpIf, I32: 0x40},    // 1 ends block 0
		{Op: OpI32Const, I32: 2}, // 2 starts block 1
		{Op: OpElse},             // 3 ends block 1
		{Op: OpI32Const, I32: 3}, // 4 starts block 2
		{Op: OpEnd},              // 5 ends block 2
	}
	blocks := splitBlocks(instrs)
	want := []BasicBlock{{0, 2}, {2, 4}, {4, 6}}
	if len(blocks) != len(want) {
		t.Fatalf("got %d blocks, want %d: %v", len(blocks), len(want), blocks)
	}
	for i := range want {
		if blocks[i] != want[i] {
			t.Errorf("block[%d] = %v, want %v", i, blocks[i], want[i])
		}
	}
}

func TestSplitBlocksLoopWithBranch(t *testing.T) {
	instrs := []Instruction{
		{Op: OpLoop, I32: 0x40}, // 0
		{Op: OpBr, Index: 0},    // 1
		{Op: OpEnd},             // 2
	}
	blocks := splitBlocks(instrs)
	want := []BasicBlock{{0, 1}, {1, 2}, {2, 3}}
	if len(blocks) != len(want) {
		t.Fatalf("got %d blocks, want %d: %v", len(blocks), len(want), blocks)
	}
	for i := range want {
		if blocks[i] != want[i] {
			t.Errorf("block[%d] = %v, want %v", i, blocks[i], want[i])
		}
	}
}
