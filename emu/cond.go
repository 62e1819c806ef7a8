// Package emu provides functional ARMv4T emulation.
package emu

import "github.com/ouharetaso/armv4t/insts"

// condTable holds one predicate per condition code, indexed by the code.
var condTable = [16]func(p PSR) bool{
	insts.CondEQ: func(p PSR) bool { return p.Z },
	insts.CondNE: func(p PSR) bool { return !p.Z },
	insts.CondCS: func(p PSR) bool { return p.C },
	insts.CondCC: func(p PSR) bool { return !p.C },
	insts.CondMI: func(p PSR) bool { return p.N },
	insts.CondPL: func(p PSR) bool { return !p.N },
	insts.CondVS: func(p PSR) bool { return p.V },
	insts.CondVC: func(p PSR) bool { return !p.V },
	insts.CondHI: func(p PSR) bool { return p.C && !p.Z },
	insts.CondLS: func(p PSR) bool { return !p.C || p.Z },
	insts.CondGE: func(p PSR) bool { return p.N == p.V },
	insts.CondLT: func(p PSR) bool { return p.N != p.V },
	insts.CondGT: func(p PSR) bool { return !p.Z && p.N == p.V },
	insts.CondLE: func(p PSR) bool { return p.Z || p.N != p.V },
	insts.CondAL: func(PSR) bool { return true },
	insts.CondNV: func(PSR) bool { return false },
}

// ConditionPassed reports whether an instruction with condition c executes
// under the flags in p.
func ConditionPassed(c insts.Cond, p PSR) bool {
	return condTable[c&0xF](p)
}
