package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"famicle/emu/log"
)

const version = "0.3.0"

type CLI struct {
	Run      Run      `cmd:"" help:"Run a ROM headless for a number of frames. (default command)" default:"true"`
	RomInfos RomInfos `cmd:"" help:"Show ROM infos." name:"rom-infos"`
	Version  Version  `cmd:"" help:"Show famicle version."`

	Log logModMask `help:"${log_help}" placeholder:"mod0,mod1,..."`
}

type Run struct {
	RomPath string `arg:"" name:"/path/to/rom" help:"${rompath_help}" required:"true" type:"existingfile"`

	Frames   int      `name:"frames" help:"Stop after this many frames (0 = run until interrupted)." default:"0"`
	Trace    *outfile `name:"trace" help:"Write CPU trace log." placeholder:"FILE|stdout|stderr"`
	Realtime bool     `name:"realtime" help:"Pace emulation at NTSC frame rate." default:"true" negatable:""`
}

type RomInfos struct {
	RomPath string `arg:"" name:"/path/to/rom" type:"existingfile"`
	JSON    bool   `name:"json" help:"Machine-readable output."`
}

type Version struct{}

func (Version) Run() error {
	fmt.Println("famicle", version)
	return nil
}

func parseCLI() (*CLI, *kong.Context) {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("famicle"),
		kong.Description("A cycle-accurate NES emulator core."),
		kong.UsageOnError(),
		kong.Vars{
			"log_help":     "Enable debug logging for modules (" + strings.Join(log.ModuleNames(), ",") + " or all).",
			"rompath_help": "Path to the iNES/NES 2.0 rom to run.",
		},
	)
	return cli, ctx
}

// logModMask enables per-module debug logging from a comma-separated flag.
//
// Implements the kong.MapperValue interface.
type logModMask log.ModuleMask

func (lm logModMask) Decode(ctx *kong.DecodeContext) error {
	var mask log.ModuleMask

	tok := ctx.Scan.Pop()
	for _, name := range strings.Split(tok.Value.(string), ",") {
		if name == "" {
			continue
		}
		if name == "all" {
			mask |= log.ModuleMaskAll
			continue
		}
		mod, found := log.ModuleByName(name)
		if !found {
			return fmt.Errorf("unknown log module %q", name)
		}
		mask |= mod.Mask()
	}

	log.EnableDebugModules(mask)
	log.SetLevel(log.DebugLevel)
	return nil
}

// outfile is a flag value writing to a file, stdout or stderr.
type outfile struct {
	w    io.Writer
	name string
}

func (f *outfile) UnmarshalText(text []byte) error {
	f.name = string(text)
	switch f.name {
	case "stdout":
		f.w = os.Stdout
	case "stderr":
		f.w = os.Stderr
	default:
		fd, err := os.Create(f.name)
		if err != nil {
			return err
		}
		f.w = fd
	}
	return nil
}

func (f *outfile) String() string              { return f.name }
func (f *outfile) Write(p []byte) (int, error) { return f.w.Write(p) }

func (f *outfile) Close() error {
	if f.name == "stdout" || f.name == "stderr" {
		return nil
	}
	if c, ok := f.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
