// Command megaboy is a headless driver for the emulation core: it loads a
// ROM (and optionally a save state or battery file), runs it for a fixed
// number of frames, and can dump the resulting framebuffer as a PNG. It
// has no windowing or audio-device code of its own.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"os"
	"path/filepath"

	"github.com/thornewell/megaboy/internal/boot"
	"github.com/thornewell/megaboy/internal/gameboy"
	"github.com/thornewell/megaboy/internal/ppu"
	"github.com/thornewell/megaboy/internal/types"
)

func main() {
	romPath := flag.String("rom", "", "path to the ROM file (.gb/.gbc/.zip)")
	bootPath := flag.String("boot", "", "optional boot ROM to run from 0x0000 until BDIS disables it")
	statePath := flag.String("state", "", "optional save state to load instead of running from reset")
	batteryDir := flag.String("battery-dir", "", "directory to load/save cartridge battery RAM from, keyed by ROM hash")
	cheatFile := flag.String("cheats", "", "optional .cheats file of GameGenie/GameShark codes")
	model := flag.String("model", "auto", "model to emulate: auto, dmg or cgb")
	frames := flag.Int("frames", 60, "number of frames to run")
	outState := flag.String("save-state", "", "write the resulting save state to this path")
	outPNG := flag.String("png", "", "write the final framebuffer to this PNG path")
	flag.Parse()

	if *romPath == "" {
		log.Fatal("-rom is required")
	}
	rom, err := os.ReadFile(*romPath)
	if err != nil {
		log.Fatalf("read rom: %v", err)
	}

	var opts []gameboy.Option
	if *bootPath != "" {
		bootImage, err := os.ReadFile(*bootPath)
		if err != nil {
			log.Fatalf("read boot rom: %v", err)
		}
		opts = append(opts, gameboy.SetBootROM(boot.LoadBootROM(bootImage)))
	}
	switch *model {
	case "auto":
	case "dmg":
		opts = append(opts, gameboy.WithModel(types.DMGABC))
	case "cgb":
		opts = append(opts, gameboy.WithModel(types.CGBABC))
	default:
		log.Fatalf("unknown -model %q (want auto, dmg or cgb)", *model)
	}
	if *cheatFile != "" {
		opts = append(opts, gameboy.WithCheatFile(*cheatFile))
	}

	core, result, err := gameboy.New(rom, opts...)
	if err != nil {
		log.Fatalf("load rom: %v (%s)", err, result)
	}
	fmt.Printf("loaded %q: %s\n", core.Cart.Title(), result)

	var store *dirBatteryStore
	if *batteryDir != "" {
		store = &dirBatteryStore{dir: *batteryDir}
		if result, err := core.LoadBattery(store); err != nil {
			log.Fatalf("load battery: %v (%s)", err, result)
		}
	}

	if *statePath != "" {
		data, err := os.ReadFile(*statePath)
		if err != nil {
			log.Fatalf("read save state: %v", err)
		}
		if result, err := core.LoadState(data); err != nil {
			log.Fatalf("load save state: %v (%s)", err, result)
		}
	}

	var lastFrame [ppu.ScreenHeight][ppu.ScreenWidth][3]uint8
	core.SetDrawFunc(func(fb *[ppu.ScreenHeight][ppu.ScreenWidth][3]uint8, firstFrame bool) {
		lastFrame = *fb
	})

	for i := 0; i < *frames; i++ {
		core.Update(gameboy.CyclesPerFrame, 1)
	}

	if store != nil {
		if err := core.SaveBattery(store); err != nil {
			log.Fatalf("save battery: %v", err)
		}
	}

	if *outState != "" {
		data, err := core.SaveState()
		if err != nil {
			log.Fatalf("save state: %v", err)
		}
		if err := os.WriteFile(*outState, data, 0o644); err != nil {
			log.Fatalf("write save state: %v", err)
		}
	}

	if *outPNG != "" {
		if err := writePNG(*outPNG, &lastFrame); err != nil {
			log.Fatalf("write png: %v", err)
		}
	}
}

func writePNG(path string, fb *[ppu.ScreenHeight][ppu.ScreenWidth][3]uint8) error {
	img := image.NewRGBA(image.Rect(0, 0, ppu.ScreenWidth, ppu.ScreenHeight))
	for y := 0; y < ppu.ScreenHeight; y++ {
		for x := 0; x < ppu.ScreenWidth; x++ {
			px := fb[y][x]
			img.Set(x, y, color.RGBA{R: px[0], G: px[1], B: px[2], A: 0xFF})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

// dirBatteryStore persists battery files as plain "<key>.sav" entries in a
// directory, backing up the previous file to "<key>.sav.bak" before an
// overwrite.
type dirBatteryStore struct {
	dir string
}

func (s *dirBatteryStore) path(key string) string {
	return filepath.Join(s.dir, key+".sav")
}

func (s *dirBatteryStore) Load(key string) ([]byte, error) {
	return os.ReadFile(s.path(key))
}

func (s *dirBatteryStore) Save(key string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path(key), data, 0o644)
}

func (s *dirBatteryStore) Backup(key string) error {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return os.WriteFile(s.path(key)+".bak", data, 0o644)
}
