// Package fm drives an OPL3-style FM chip: a register shadow, instrument
// patches, a tracker sequencer clocked by the audio renderer, offline WAV
// export and the song/bank file formats.
package fm

import (
	"log"
	"sync"

	"github.com/user-none/fmtrack/opl"
)

// Chip is the sound chip primitive driven by the controller.
// Ports 0/1 are the address/data pair for bank 0, ports 2/3 for bank 1.
type Chip interface {
	WritePort(port uint8, val uint8)
	Generate(out *opl.Frame)
	Reset()
	SampleRate(masterClock uint32) uint32
}

// Config holds controller construction options.
type Config struct {
	SampleRate  int         // Output rate in Hz
	MasterClock uint32      // Chip master clock in Hz
	Logger      *log.Logger // Defaults to log.Default()
}

// DefaultConfig returns a 44.1kHz configuration for a standard OPL3 clock.
func DefaultConfig() Config {
	return Config{
		SampleRate:  44100,
		MasterClock: opl.DefaultClock,
	}
}

// Controller owns the chip and all state derived from it. Every exported
// method takes mu once; helpers ending in Locked expect it held.
type Controller struct {
	mu sync.Mutex

	chip       Chip
	logger     *log.Logger
	sampleRate int
	nativeRate uint32

	shadow [NumRegisters]uint8

	bank    []Instrument
	applied [NumHardwareChannels]int  // Instrument index last applied, -1 for none
	keyOn   [NumHardwareChannels]bool // Channels keyed by the controller

	seq sequencer

	// Renderer state
	resampleStep float64
	resampleAcc  float64
	held         [2]float32
	frame        opl.Frame
	silentFrames int
	sleeping     bool

	output Output
	errs   []string
}

// NewController creates a controller that owns a new OPL3 chip.
func NewController(cfg Config) *Controller {
	return NewControllerWithChip(opl.New(), cfg)
}

// NewControllerWithChip creates a controller that takes ownership of chip.
func NewControllerWithChip(chip Chip, cfg Config) *Controller {
	def := DefaultConfig()
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.MasterClock == 0 {
		cfg.MasterClock = def.MasterClock
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	c := &Controller{
		chip:       chip,
		logger:     cfg.Logger,
		sampleRate: cfg.SampleRate,
		nativeRate: chip.SampleRate(cfg.MasterClock),
		bank:       DefaultBank(),
	}
	c.resampleStep = float64(c.nativeRate) / float64(c.sampleRate)
	c.seq.stopOrder = -1
	c.Reset()
	return c
}

// SampleRate returns the output rate in Hz.
func (c *Controller) SampleRate() int {
	return c.sampleRate
}

// NativeRate returns the chip's native sample rate in Hz.
func (c *Controller) NativeRate() uint32 {
	return c.nativeRate
}

// Reset stops playback, resets the chip and rewrites the initial register
// state. Calling it repeatedly yields identical state.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *Controller) resetLocked() {
	c.stopLocked()
	c.chip.Reset()
	c.shadow = [NumRegisters]uint8{}

	c.writeRegLocked(regNewMode, 0x01)
	c.writeRegLocked(regFourOp, 0x00)
	c.writeRegLocked(regTest, 0x20)
	c.writeRegLocked(regRhythm, 0x00)
	c.silenceAllLocked()

	c.seq.orderIdx, c.seq.rowIdx, c.seq.tick = 0, 0, 0
	c.seq.sampleAcc = 0
	c.resampleAcc = 0
	c.held = [2]float32{}
	c.silentFrames = c.sleepThreshold()
	c.sleeping = true
}

// SilenceAll keys off every hardware channel and mutes its operators.
func (c *Controller) SilenceAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.silenceAllLocked()
}

func (c *Controller) silenceAllLocked() {
	for hw := 0; hw < NumHardwareChannels; hw++ {
		c.silenceChannelLocked(hw)
	}
}

// silenceChannelLocked sets both operators to full attenuation with the
// fastest release and clears the key-on bit.
func (c *Controller) silenceChannelLocked(hw int) {
	for op := 0; op < 2; op++ {
		c.writeRegLocked(operatorReg(hw, op, regLevelBase), 0x3F)
		c.writeRegLocked(operatorReg(hw, op, regSRBase), 0x0F)
	}
	c.keyOffChannelLocked(hw)
	c.applied[hw] = -1
}

// keyOffChannelLocked clears the key-on bit of a single channel.
func (c *Controller) keyOffChannelLocked(hw int) {
	reg := channelReg(hw, regKeyBlock)
	c.writeRegLocked(reg, c.readShadowLocked(reg)&^keyOnBit)
	c.keyOn[hw] = false
}

// Bank returns a copy of the live sound bank.
func (c *Controller) Bank() []Instrument {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Instrument, len(c.bank))
	copy(out, c.bank)
	return out
}

// SetBank replaces the live sound bank used for manual notes. A playing
// song keeps its own instruments and applied state.
func (c *Controller) SetBank(bank []Instrument) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bank = append([]Instrument(nil), bank...)
	if c.seq.playing {
		return
	}
	for hw := range c.applied {
		c.applied[hw] = -1
	}
}

// instrumentsLocked returns the instruments referenced by step data: the
// playing song's list, or the live bank otherwise.
func (c *Controller) instrumentsLocked() []Instrument {
	if c.seq.playing && c.seq.song != nil {
		return c.seq.song.Instruments
	}
	return c.bank
}

// Errors returns the accumulated failure messages.
func (c *Controller) Errors() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.errs...)
}

// ClearErrors empties the failure message buffer.
func (c *Controller) ClearErrors() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = nil
}

func (c *Controller) recordErrorLocked(err error) {
	c.logger.Printf("fm: %v", err)
	c.errs = append(c.errs, err.Error())
}
