package pipeline

import (
	"github.com/go-logr/logr"

	"github.com/ouharetaso/armv4t/bus"
	"github.com/ouharetaso/armv4t/emu"
	"github.com/ouharetaso/armv4t/insts"
)

// FetchStage handles instruction fetch over the bus.
type FetchStage struct {
	bus    bus.Bus
	policy emu.BusFaultPolicy
	logger logr.Logger
}

// NewFetchStage creates a new fetch stage.
func NewFetchStage(b bus.Bus, policy emu.BusFaultPolicy, logger logr.Logger) *FetchStage {
	return &FetchStage{
		bus:    b,
		policy: policy,
		logger: logger,
	}
}

// Fetch reads the instruction word at pc. A failed read under the ignore
// policy yields word 0; under the abort policy the latch carries the error.
func (s *FetchStage) Fetch(pc uint32) FetchLatch {
	latch := FetchLatch{Valid: true, PC: pc}

	word, err := bus.ReadWord(s.bus, pc)
	switch {
	case err == nil:
		latch.InstructionWord = word
	case s.policy == emu.BusFaultIgnore:
		s.logger.Error(err, "fetch fault ignored", "pc", pc)
	default:
		latch.Abort = err
	}

	if log := s.logger.V(2); log.Enabled() {
		log.Info("fetch", "pc", pc, "word", latch.InstructionWord)
	}
	return latch
}

// DecodeStage turns fetched words into instructions.
type DecodeStage struct {
	decoder *insts.Decoder
}

// NewDecodeStage creates a new decode stage.
func NewDecodeStage() *DecodeStage {
	return &DecodeStage{
		decoder: insts.NewDecoder(),
	}
}

// Decode decodes the word in a fetch latch. Decoding never fails; an aborted
// fetch is passed on unchanged so that it faults only if executed.
func (s *DecodeStage) Decode(in FetchLatch) DecodeLatch {
	return DecodeLatch{
		Valid: true,
		PC:    in.PC,
		Inst:  s.decoder.Decode(in.InstructionWord),
		Abort: in.Abort,
	}
}
