// Package gameboy wires every component - CPU, MMU, PPU, APU, cartridge
// - into a single headless emulation core and drives it one Update call
// at a time. It owns no windowing or audio-device code; the host pulls
// frames and samples and pushes input through the interfaces below.
package gameboy

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash"

	"github.com/thornewell/megaboy/internal/apu"
	"github.com/thornewell/megaboy/internal/boot"
	"github.com/thornewell/megaboy/internal/cartridge"
	"github.com/thornewell/megaboy/internal/cheats"
	"github.com/thornewell/megaboy/internal/cpu"
	"github.com/thornewell/megaboy/internal/interrupts"
	"github.com/thornewell/megaboy/internal/mmu"
	"github.com/thornewell/megaboy/internal/ppu"
	"github.com/thornewell/megaboy/internal/ppu/palette"
	"github.com/thornewell/megaboy/internal/types"
	"github.com/thornewell/megaboy/pkg/log"
)

const (
	// ClockSpeed is the Game Boy's master clock rate in Hz.
	ClockSpeed = cpu.ClockSpeed
	// CyclesPerFrame is the number of T-cycles in one 59.7 Hz frame.
	CyclesPerFrame = 70224
)

// LoadResult discriminates the outcome of a ROM/battery/save-state
// load without resorting to an error for conditions the host is
// expected to handle (missing file, wrong ROM, corrupt blob).
type LoadResult uint8

const (
	SuccessROM LoadResult = iota
	SuccessSaveState
	InvalidROM
	InvalidBattery
	CorruptSaveState
	ROMNotFound
	FileError
)

func (r LoadResult) String() string {
	switch r {
	case SuccessROM:
		return "success (rom)"
	case SuccessSaveState:
		return "success (save state)"
	case InvalidROM:
		return "invalid rom"
	case InvalidBattery:
		return "invalid battery"
	case CorruptSaveState:
		return "corrupt save state"
	case ROMNotFound:
		return "rom not found"
	case FileError:
		return "file error"
	default:
		return "unknown"
	}
}

// DrawFunc is invoked once per entering-VBlank with the completed
// framebuffer. firstFrame is true when the frame immediately follows
// the LCD being switched on, letting the front-end blank instead of
// showing partial content. The framebuffer pointer is only valid for
// the duration of the call.
type DrawFunc func(fb *[ppu.ScreenHeight][ppu.ScreenWidth][3]uint8, firstFrame bool)

// BatteryStore is a host-owned capability for persisting cartridge
// RAM/RTC blobs, keyed by a content-derived string (see (*Core).batteryKey).
type BatteryStore interface {
	Load(key string) ([]byte, error)
	Save(key string, data []byte) error
}

// BackupCapable is an optional extension of BatteryStore: stores that
// support it get a pre-overwrite backup of the previous battery file.
type BackupCapable interface {
	Backup(key string) error
}

// Core is a fully wired, headless Game Boy. Zero value is not usable;
// construct with New.
type Core struct {
	CPU  *cpu.CPU
	MMU  *mmu.MMU
	Cart cartridge.Cartridge

	GameGenie *cheats.GameGenie
	GameShark *cheats.GameShark

	log.Logger

	model   types.Model
	romHash uint64

	draw     DrawFunc
	rtcClock *scaledClock
}

// scaledClock multiplies the real elapsed wall-clock time by a
// fast-forward factor, so an MBC3 RTC tracks emulated time rather than
// true wall time while the host is fast-forwarding.
type scaledClock struct {
	base       cartridge.Clock
	origin     time.Time
	multiplier uint
}

func newScaledClock(base cartridge.Clock) *scaledClock {
	if base == nil {
		base = cartridge.SystemClock
	}
	return &scaledClock{base: base, origin: base.Now(), multiplier: 1}
}

func (c *scaledClock) Now() time.Time {
	elapsed := c.base.Now().Sub(c.origin)
	return c.origin.Add(elapsed * time.Duration(c.multiplier))
}

// config accumulates Option values before construction, since several
// of them (boot ROM, model, cheats) must be known before the MMU and
// cartridge are built.
type config struct {
	bootROM   *boot.ROM
	model     types.Model
	clock     cartridge.Clock
	logger    log.Logger
	debug     bool
	cheatFile string
}

// Option configures a Core at construction time.
type Option func(*config)

// Debug enables CPU debug-breakpoint tracking (see LD B,B).
func Debug() Option {
	return func(c *config) { c.debug = true }
}

// WithLogger overrides the default null logger.
func WithLogger(l log.Logger) Option {
	return func(c *config) { c.logger = l }
}

// SetBootROM maps the given boot ROM at 0x0000 until the cartridge
// disables it via a BDIS write.
func SetBootROM(rom *boot.ROM) Option {
	return func(c *config) { c.bootROM = rom }
}

// WithModel overrides the model that would otherwise be inferred from
// the cartridge header's CGB-support byte.
func WithModel(m types.Model) Option {
	return func(c *config) { c.model = m }
}

// WithClock injects the wall-clock source used by an MBC3 RTC. Tests
// supply a deterministic Clock; the default is cartridge.SystemClock.
func WithClock(clock cartridge.Clock) Option {
	return func(c *config) { c.clock = clock }
}

// WithCheatFile loads GameShark/GameGenie codes from a combined
// `.cheats` file (see internal/cheats) before the ROM is patched and
// the cartridge constructed. Codes are loaded disabled; the host
// enables the GameShark codes it wants via Core.GameShark. GameGenie
// codes are applied only by the ROM patch inside New, so a GameGenie
// code loaded this way patches nothing, and enabling it later on
// Core.GameGenie does not change the ROM.
func WithCheatFile(path string) Option {
	return func(c *config) { c.cheatFile = path }
}

// New parses rom's header, applies any load-time cheats, and builds a
// fully wired Core. If bootROM wasn't supplied via SetBootROM, the CPU
// starts directly at the post-boot-ROM state for the resolved model.
func New(rom []byte, opts ...Option) (*Core, LoadResult, error) {
	rom, err := extractROM(rom)
	if err != nil {
		return nil, InvalidROM, err
	}

	cfg := config{clock: cartridge.SystemClock, logger: log.NewNullLogger()}
	for _, opt := range opts {
		opt(&cfg)
	}

	genie := cheats.NewGameGenie()
	shark := cheats.NewGameShark()
	if cfg.cheatFile != "" {
		if _, err := cheats.ParseCheatFile(cfg.cheatFile, genie, shark); err != nil {
			return nil, FileError, err
		}
	}
	genie.PatchROM(rom)

	clock := newScaledClock(cfg.clock)
	cart, err := cartridge.New(rom, clock)
	if err != nil {
		return nil, InvalidROM, err
	}

	model := cfg.model
	cgb := cart.Header().GameboyColor()
	if model != types.Unset {
		cgb = model.IsCGB()
	} else if cgb {
		model = types.CGBABC
	} else {
		model = types.DMGABC
	}

	irq := interrupts.NewService()
	bus := mmu.New(cart, irq, cfg.bootROM, cgb)
	c := cpu.NewCPU(bus, irq)
	c.Debug = cfg.debug

	// A non-color cartridge running on CGB hardware gets the boot ROM's
	// own DMG-compatibility palette assignment instead of plain greyscale.
	if cgb && !cart.Header().GameboyColor() {
		if entry, ok := palette.GetCompatibilityPaletteEntry(palette.TitleHash(cart.Header().Title)); ok {
			bus.Video.SetCompatibilityPalette(entry)
		}
	}

	if cfg.bootROM == nil {
		regs := types.ModelRegisters[model]
		c.A, c.F, c.B, c.C, c.D, c.E, c.H, c.L = regs[0], regs[1], regs[2], regs[3], regs[4], regs[5], regs[6], regs[7]
		c.SP = 0xFFFE
		c.PC = 0x0100
		bus.Timer.SetSysClock(types.ModelDIV[model])
	}

	core := &Core{
		CPU:       c,
		MMU:       bus,
		Cart:      cart,
		GameGenie: genie,
		GameShark: shark,
		Logger:    cfg.logger,
		model:     model,
		romHash:   xxhash.Sum64(rom),
		rtcClock:  clock,
	}
	return core, SuccessROM, nil
}

// extractROM returns rom's first .gb/.gbc entry if rom is a ZIP
// archive, or rom unchanged otherwise, per §6.
func extractROM(rom []byte) ([]byte, error) {
	if len(rom) < 4 || !bytes.Equal(rom[:4], []byte{0x50, 0x4B, 0x03, 0x04}) {
		return rom, nil
	}

	zr, err := zip.NewReader(bytes.NewReader(rom), int64(len(rom)))
	if err != nil {
		return nil, fmt.Errorf("gameboy: invalid zip archive: %w", err)
	}
	for _, f := range zr.File {
		ext := strings.ToLower(filepath.Ext(f.Name))
		if ext != ".gb" && ext != ".gbc" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("gameboy: zip archive contains no .gb/.gbc entry")
}

// LoadROMFile reads rom from disk and constructs a Core from it,
// mapping filesystem errors onto the LoadResult taxonomy.
func LoadROMFile(path string, opts ...Option) (*Core, LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ROMNotFound, err
		}
		return nil, FileError, err
	}
	return New(data, opts...)
}

// SetDrawFunc installs the callback invoked once per entering-VBlank.
func (c *Core) SetDrawFunc(fn DrawFunc) { c.draw = fn }

// Update runs CPU dispatch until at least budget T-cycles (scaled by
// speedMultiplier, which must be >=1) have been charged, invoking the
// draw callback on every VBlank entry crossed along the way. It
// returns the number of T-cycles actually spent, which can exceed
// budget*speedMultiplier by up to one instruction's worth.
func (c *Core) Update(budget int, speedMultiplier uint) int {
	if speedMultiplier == 0 {
		speedMultiplier = 1
	}
	c.rtcClock.multiplier = speedMultiplier

	target := budget * int(speedMultiplier)
	spent := 0
	for spent < target {
		spent += int(c.CPU.Step()) * 4
		if c.MMU.Video.HasFrame() {
			c.emitFrame()
		}
	}
	return spent
}

func (c *Core) emitFrame() {
	firstFrame := c.MMU.Video.ConsumeJustEnabled()
	if c.draw != nil {
		c.draw(&c.MMU.Video.Framebuffer, firstFrame)
	}
	c.applyGameSharkCheats()
	c.MMU.Video.ClearFrame()
}

// applyGameSharkCheats pokes every enabled GameShark code's NewData
// into its target address, once per VBlank per §4.7.
func (c *Core) applyGameSharkCheats() {
	for _, code := range c.GameShark.Codes {
		if code.Enabled {
			c.MMU.Write(code.Address, code.NewData)
		}
	}
}

// SetButtonState presses or releases a single button.
func (c *Core) SetButtonState(button uint8, pressed bool) {
	if pressed {
		c.MMU.Pad.Press(button)
	} else {
		c.MMU.Pad.Release(button)
	}
}

// PullAudio drains up to len(dst) buffered stereo samples.
func (c *Core) PullAudio(dst []apu.Sample) int {
	return c.MMU.Sound.Pull(dst)
}

// CanSaveStateNow reports whether it is safe to snapshot state -
// refused while the boot ROM overlay is still executing, mirroring
// the original core's isExecutingBootROM guard.
func (c *Core) CanSaveStateNow() bool {
	return !c.MMU.BootROMActive()
}

const (
	saveStateMagic   = "MegaBoy Emulator Save State"
	saveStateVersion = 1
)

// SaveState serializes CPU/MMU (and, transitively, every peripheral it
// owns) into the save-state wire format: magic, version, ROM header
// checksum, an embedded framebuffer thumbnail, then a gzip-compressed
// state blob.
func (c *Core) SaveState() ([]byte, error) {
	if !c.CanSaveStateNow() {
		return nil, errors.New("gameboy: cannot save state while the boot ROM is executing")
	}

	var out bytes.Buffer
	out.WriteString(saveStateMagic)
	out.WriteByte(saveStateVersion)
	out.WriteByte(c.Cart.Header().HeaderChecksum)
	for y := 0; y < ppu.ScreenHeight; y++ {
		for x := 0; x < ppu.ScreenWidth; x++ {
			px := c.MMU.Video.Framebuffer[y][x]
			out.Write(px[:])
		}
	}

	state := types.NewState()
	c.CPU.Save(state)
	c.MMU.Save(state)

	gz := gzip.NewWriter(&out)
	if _, err := gz.Write(state.Bytes()); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// thumbnailLen is the byte length of the embedded save-state framebuffer.
const thumbnailLen = ppu.ScreenWidth * ppu.ScreenHeight * 3

// saveStateHeaderLen is the length of magic+version+checksum, the
// fixed prefix preceding the thumbnail.
const saveStateHeaderLen = len(saveStateMagic) + 2

// LoadState restores a Core from a save state previously produced by
// SaveState. The ROM currently loaded must match the one the state
// was written against (by header checksum) or ROMNotFound is returned.
func (c *Core) LoadState(data []byte) (LoadResult, error) {
	raw, result, err := parseSaveStateBlob(data, c.Cart.Header().HeaderChecksum)
	if err != nil {
		return result, err
	}

	state := types.StateFromBytes(raw)
	c.CPU.Load(state)
	c.MMU.Load(state)
	return SuccessSaveState, nil
}

// PeekSaveStateThumbnail reads just the embedded framebuffer out of a
// save-state blob, without touching (or even decompressing) the rest
// of the state - useful for save-slot UIs that need a quick preview.
func PeekSaveStateThumbnail(data []byte) ([ppu.ScreenHeight][ppu.ScreenWidth][3]uint8, error) {
	var fb [ppu.ScreenHeight][ppu.ScreenWidth][3]uint8
	if len(data) < saveStateHeaderLen+thumbnailLen || string(data[:len(saveStateMagic)]) != saveStateMagic {
		return fb, fmt.Errorf("gameboy: not a valid save state")
	}
	pos := saveStateHeaderLen
	for y := 0; y < ppu.ScreenHeight; y++ {
		for x := 0; x < ppu.ScreenWidth; x++ {
			copy(fb[y][x][:], data[pos:pos+3])
			pos += 3
		}
	}
	return fb, nil
}

// parseSaveStateBlob validates the header and returns the decompressed
// machine-state bytes following the thumbnail.
func parseSaveStateBlob(data []byte, wantChecksum uint8) ([]byte, LoadResult, error) {
	if len(data) < saveStateHeaderLen+thumbnailLen {
		return nil, CorruptSaveState, fmt.Errorf("gameboy: save state truncated")
	}
	if string(data[:len(saveStateMagic)]) != saveStateMagic {
		return nil, CorruptSaveState, fmt.Errorf("gameboy: bad magic")
	}
	pos := len(saveStateMagic)
	version := data[pos]
	pos++
	if version != saveStateVersion {
		return nil, CorruptSaveState, fmt.Errorf("gameboy: unsupported save state version %d", version)
	}
	checksum := data[pos]
	pos++
	if checksum != wantChecksum {
		return nil, ROMNotFound, fmt.Errorf("gameboy: save state was written for a different ROM (checksum 0x%02X, have 0x%02X)", checksum, wantChecksum)
	}
	pos += thumbnailLen

	raw, err := maybeGunzip(data[pos:])
	if err != nil {
		return nil, CorruptSaveState, err
	}
	return raw, SuccessSaveState, nil
}

// maybeGunzip decompresses b if it looks gzip-encoded, per §6's
// "gzip-or-raw-encoded machine state blob".
func maybeGunzip(b []byte) ([]byte, error) {
	if len(b) >= 2 && b[0] == 0x1f && b[1] == 0x8b {
		zr, err := gzip.NewReader(bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(zr)
	}
	return b, nil
}

// batteryKey returns the content-addressed key a BatteryStore should
// use for this ROM's battery file, derived from an xxhash of the raw
// ROM bytes rather than (the possibly-absent or non-unique) title.
func (c *Core) batteryKey() string {
	return fmt.Sprintf("%016x", c.romHash)
}

// minBatteryLen returns the shortest valid battery-file length for the
// loaded cartridge: its declared RAM size, plus an RTC record for an
// MBC3-with-timer cartridge.
func (c *Core) minBatteryLen() int {
	n := int(c.Cart.Header().RAMSize)
	switch c.Cart.Header().CartridgeType {
	case cartridge.MBC3TIMERBATT, cartridge.MBC3TIMERRAMBATT:
		n += 18 // S,M,H,DL,DH + latched copies + 8-byte unix timestamp
	}
	return n
}

// LoadBattery restores cartridge RAM/RTC from store, backing up the
// previous file first if the store supports it. A cartridge with no
// battery is a no-op success.
func (c *Core) LoadBattery(store BatteryStore) (LoadResult, error) {
	if !c.Cart.HasBattery() {
		return SuccessROM, nil
	}

	key := c.batteryKey()
	if bc, ok := store.(BackupCapable); ok {
		if err := bc.Backup(key); err != nil {
			c.Errorf("gameboy: battery backup failed for %s: %v", key, err)
		}
	}

	data, err := store.Load(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return SuccessROM, nil
		}
		return FileError, err
	}
	if len(data) < c.minBatteryLen() {
		return InvalidBattery, fmt.Errorf("gameboy: battery file too short (%d bytes, want >= %d)", len(data), c.minBatteryLen())
	}

	c.Cart.LoadRAM(data)
	return SuccessROM, nil
}

// SaveBattery writes cartridge RAM/RTC to store. A cartridge with no
// battery is a no-op.
func (c *Core) SaveBattery(store BatteryStore) error {
	if !c.Cart.HasBattery() {
		return nil
	}
	return store.Save(c.batteryKey(), c.Cart.SaveRAM())
}
