package gameboy

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thornewell/megaboy/internal/boot"
	"github.com/thornewell/megaboy/internal/cartridge"
	"github.com/thornewell/megaboy/internal/cheats"
	"github.com/thornewell/megaboy/internal/ppu"
	"github.com/thornewell/megaboy/internal/types"
)

// buildROM returns a minimal synthetic ROM of the given cartridge
// type/RAM-size, large enough for the simplest bank layout each MBC
// needs. ParseHeader doesn't validate the Nintendo logo or checksums,
// so the rest of the image can be left zeroed.
func buildROM(cartType, ramSizeCode byte, banks int) []byte {
	rom := make([]byte, 0x4000*banks)
	copy(rom[0x134:0x143], []byte("TESTROM"))
	rom[0x147] = cartType
	switch banks {
	case 4:
		rom[0x148] = 0x01
	default:
		rom[0x148] = 0x00
	}
	rom[0x149] = ramSizeCode
	return rom
}

func romOnlyROM() []byte { return buildROM(0x00, 0x00, 2) }

func TestNewROMOnly(t *testing.T) {
	c, result, err := New(romOnlyROM())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if result != SuccessROM {
		t.Fatalf("result = %v, want SuccessROM", result)
	}
	if c.Cart.HasBattery() {
		t.Fatal("ROM-only cartridge should not report a battery")
	}
	if c.Cart.Title() != "TESTROM" {
		t.Fatalf("title = %q, want TESTROM", c.Cart.Title())
	}
}

func TestNewWithoutBootROMStartsPostBoot(t *testing.T) {
	c, _, err := New(romOnlyROM())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.CPU.PC != 0x0100 {
		t.Fatalf("PC = 0x%04X, want 0x0100", c.CPU.PC)
	}
	if c.CPU.A != 0x01 || c.CPU.F != 0xB0 {
		t.Fatalf("AF = %02X%02X, want 01B0", c.CPU.A, c.CPU.F)
	}
	if c.MMU.BootROMActive() {
		t.Fatal("boot ROM should not be active when none was supplied")
	}
}

func TestCanSaveStateNowDuringBootROM(t *testing.T) {
	bootImage := make([]byte, 256)
	rom := boot.LoadBootROM(bootImage)

	c, _, err := New(romOnlyROM(), SetBootROM(rom))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.CanSaveStateNow() {
		t.Fatal("expected save state to be refused while the boot ROM is mapped")
	}

	c.MMU.Write(types.BDIS, 0x01)
	if !c.CanSaveStateNow() {
		t.Fatal("expected save state to be allowed once the boot ROM is disabled")
	}
}

func TestUpdateInvokesDrawOnVBlank(t *testing.T) {
	c, _, err := New(romOnlyROM())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	draws := 0
	c.SetDrawFunc(func(_ *[ppu.ScreenHeight][ppu.ScreenWidth][3]uint8, _ bool) {
		draws++
	})

	c.MMU.Write(0xFF40, 0x91) // LCDC: enable LCD+BG
	c.Update(CyclesPerFrame, 1)

	if draws != 1 {
		t.Fatalf("draws = %d, want 1 after one frame's worth of cycles", draws)
	}
}

func TestSaveLoadStateRoundTrip(t *testing.T) {
	rom := romOnlyROM()
	c, _, err := New(rom)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.MMU.Write(0xFF40, 0x91)
	c.Update(CyclesPerFrame*2, 1)

	data, err := c.SaveState()
	if err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	fresh, _, err := New(rom)
	if err != nil {
		t.Fatalf("New (fresh): %v", err)
	}
	result, err := fresh.LoadState(data)
	require.NoError(t, err)
	require.Equal(t, SuccessSaveState, result)
	require.Equal(t, c.CPU.Registers, fresh.CPU.Registers, "restored register file should match the source core")
	require.Equal(t, c.CPU.PC, fresh.CPU.PC)
	require.Equal(t, c.CPU.SP, fresh.CPU.SP)
}

func TestLoadStateRejectsMismatchedROM(t *testing.T) {
	romA := romOnlyROM()
	romB := romOnlyROM()
	romB[0x14D] = romA[0x14D] + 1

	a, _, err := New(romA)
	if err != nil {
		t.Fatalf("New(a): %v", err)
	}
	state, err := a.SaveState()
	if err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	b, _, err := New(romB)
	if err != nil {
		t.Fatalf("New(b): %v", err)
	}
	result, err := b.LoadState(state)
	if err == nil {
		t.Fatal("expected an error loading a save state written for a different ROM")
	}
	if result != ROMNotFound {
		t.Fatalf("result = %v, want ROMNotFound", result)
	}
}

func TestPeekSaveStateThumbnail(t *testing.T) {
	c, _, err := New(romOnlyROM())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.MMU.Video.Framebuffer[0][0] = [3]uint8{1, 2, 3}
	data, err := c.SaveState()
	if err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	fb, err := PeekSaveStateThumbnail(data)
	if err != nil {
		t.Fatalf("PeekSaveStateThumbnail: %v", err)
	}
	if fb[0][0] != [3]uint8{1, 2, 3} {
		t.Fatalf("thumbnail[0][0] = %v, want [1 2 3]", fb[0][0])
	}
}

type memBatteryStore struct {
	data     map[string][]byte
	backedUp map[string]bool
}

func newMemBatteryStore() *memBatteryStore {
	return &memBatteryStore{data: map[string][]byte{}, backedUp: map[string]bool{}}
}

func (m *memBatteryStore) Load(key string) ([]byte, error) {
	d, ok := m.data[key]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return d, nil
}

func (m *memBatteryStore) Save(key string, data []byte) error {
	m.data[key] = append([]byte(nil), data...)
	return nil
}

func (m *memBatteryStore) Backup(key string) error {
	m.backedUp[key] = true
	return nil
}

func TestBatterySaveLoadRoundTrip(t *testing.T) {
	rom := buildROM(byte(cartridge.MBC1RAMBATT), 0x02, 2) // 8kB RAM, battery-backed
	c, _, err := New(rom)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !c.Cart.HasBattery() {
		t.Fatal("expected MBC1RAMBATT to report a battery")
	}

	c.MMU.Write(0x0000, 0x0A) // enable cartridge RAM
	c.MMU.Write(0xA000, 0x42)

	store := newMemBatteryStore()
	if err := c.SaveBattery(store); err != nil {
		t.Fatalf("SaveBattery: %v", err)
	}

	fresh, _, err := New(rom)
	if err != nil {
		t.Fatalf("New (fresh): %v", err)
	}
	fresh.MMU.Write(0x0000, 0x0A)
	result, err := fresh.LoadBattery(store)
	if err != nil {
		t.Fatalf("LoadBattery: %v", err)
	}
	if result != SuccessROM {
		t.Fatalf("result = %v, want SuccessROM", result)
	}
	if got := fresh.MMU.Read(0xA000); got != 0x42 {
		t.Fatalf("restored RAM byte = 0x%02X, want 0x42", got)
	}
	if !store.backedUp[fresh.batteryKey()] {
		t.Fatal("expected LoadBattery to back up the existing file via BackupCapable")
	}
}

func TestLoadBatteryMissingFileIsNotAnError(t *testing.T) {
	rom := buildROM(byte(cartridge.MBC1RAMBATT), 0x02, 2)
	c, _, err := New(rom)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := c.LoadBattery(newMemBatteryStore())
	if err != nil {
		t.Fatalf("LoadBattery: %v", err)
	}
	if result != SuccessROM {
		t.Fatalf("result = %v, want SuccessROM", result)
	}
}

func TestGameSharkAppliedEveryVBlank(t *testing.T) {
	rom := buildROM(byte(cartridge.MBC1RAMBATT), 0x02, 2)
	c, _, err := New(rom)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.MMU.Write(0x0000, 0x0A) // enable cart RAM so the poke is observable

	c.GameShark.Codes = append(c.GameShark.Codes, cheats.GameSharkCode{
		ExternalRAMBank: 0x00,
		Address:         0xA000,
		NewData:         0x99,
		Enabled:         true,
	})
	c.MMU.Write(0xFF40, 0x91)
	c.Update(CyclesPerFrame, 1)

	if got := c.MMU.Read(0xA000); got != 0x99 {
		t.Fatalf("GameShark-poked RAM = 0x%02X, want 0x99", got)
	}
}
