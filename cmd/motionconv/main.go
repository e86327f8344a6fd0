// Command motionconv converts Dark Engine motions between the binary motion files and the
// hierarchical text motion format.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"

	motion "github.com/RSoul82/Blender-NewDark-MotionIO"
	"github.com/RSoul82/Blender-NewDark-MotionIO/internal/config"
	"github.com/RSoul82/Blender-NewDark-MotionIO/internal/fsutil"
	"github.com/RSoul82/Blender-NewDark-MotionIO/internal/logging"
	"github.com/RSoul82/Blender-NewDark-MotionIO/internal/mi"
)

// CLI defines the command-line interface for motionconv.
type CLI struct {
	// Global flags
	Config    string `name:"config" short:"c" help:"YAML config file, created with the defaults when missing" type:"path"`
	Dir       string `name:"dir" short:"d" help:"Supporting files directory (calibrations and joint maps)" type:"path"`
	Map       string `name:"map" help:"Joint map file of the supporting files directory, used on export"`
	ImportMap string `name:"import-map" help:"Joint map file of the supporting files directory, used on import"`
	Cal       string `name:"cal" help:"Calibration file of the supporting files directory, used on import"`
	Creature  string `name:"creature" help:"Creature type, by name or numeric code"`
	MaxFrames int    `name:"max-frames" help:"Longest motion accepted on export"`
	KeepText  bool   `name:"keep-text" help:"Keep the intermediate text motion next to the converted files"`
	LogLevel  string `name:"log-level" help:"Log level (debug, info, warn, error)"`
	LogFormat string `name:"log-format" help:"Log format (text, json)"`

	Export   ExportCmd   `cmd:"" help:"Convert a text motion into .mi and _.mc files"`
	Import   ImportCmd   `cmd:"" help:"Convert a .mi motion into a text motion"`
	Skeleton SkeletonCmd `cmd:"" help:"Convert a .cal calibration into a text skeleton"`
	Info     InfoCmd     `cmd:"" help:"Describe a .mi motion info file"`
}

// app is the environment shared by the commands.
type app struct {
	stdout    io.Writer
	logger    *slog.Logger
	converter *motion.Converter
}

// ExportCmd converts a text motion.
type ExportCmd struct {
	Path  string   `arg:"" help:"Text motion to convert" type:"existingfile"`
	Out   string   `name:"out" short:"o" help:"Destination without extension, defaults to the input path" type:"path"`
	Flags []string `name:"flag" short:"f" help:"Frame flags, as frame=Name[+Name...]"`
}

func (c *ExportCmd) Run(a *app) error {
	flags, err := parseFlags(c.Flags)
	if err != nil {
		return err
	}

	dst := c.Out
	if dst == "" {
		dst = strings.TrimSuffix(c.Path, filepath.Ext(c.Path))
	}

	f, err := os.Open(c.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := a.converter.ExportText(f, dst, flags); err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "%s.mi\n%s_.mc\n", dst, dst)
	return nil
}

// ImportCmd converts a binary motion.
type ImportCmd struct {
	Path string `arg:"" help:"Motion info file (.mi), the _.mc file is read next to it" type:"existingfile"`
	Out  string `name:"out" short:"o" help:"Text motion to write, defaults to the input path with a .bvh extension" type:"path"`
}

func (c *ImportCmd) Run(a *app) error {
	out, err := a.converter.Import(c.Path)
	if err != nil {
		return err
	}

	dst := c.Out
	if dst == "" {
		dst = strings.TrimSuffix(c.Path, filepath.Ext(c.Path)) + ".bvh"
	}

	if err := writeText(dst, out.Motion); err != nil {
		return err
	}

	a.logger.Info("text motion written", "path", dst, "frames", len(out.Motion.Frames))

	fmt.Fprintln(a.stdout, dst)
	printFlags(a.stdout, out.Flags)
	return nil
}

// SkeletonCmd converts a calibration.
type SkeletonCmd struct {
	Path string `arg:"" help:"Calibration file (.cal)" type:"existingfile"`
	Out  string `name:"out" short:"o" help:"Text motion to write, defaults to the input path with a .bvh extension" type:"path"`
}

func (c *SkeletonCmd) Run(a *app) error {
	m, err := a.converter.ImportSkeleton(c.Path)
	if err != nil {
		return err
	}

	dst := c.Out
	if dst == "" {
		dst = strings.TrimSuffix(c.Path, filepath.Ext(c.Path)) + ".bvh"
	}

	if err := writeText(dst, m); err != nil {
		return err
	}

	a.logger.Info("skeleton written", "path", dst)

	fmt.Fprintln(a.stdout, dst)
	return nil
}

// InfoCmd describes a motion info file.
type InfoCmd struct {
	Path string `arg:"" help:"Motion info file (.mi)" type:"existingfile"`
}

func (c *InfoCmd) Run(a *app) error {
	info, err := mi.Open(c.Path)
	if err != nil {
		return err
	}
	a.logger.Debug("motion info read", "path", c.Path, "streams", len(info.Streams))

	fmt.Fprintf(a.stdout, "Name:     %s\n", info.Name)
	fmt.Fprintf(a.stdout, "Creature: %s\n", info.Creature)
	fmt.Fprintf(a.stdout, "Frames:   %d\n", info.Frames)
	fmt.Fprintf(a.stdout, "FPS:      %d\n", info.FPS)
	fmt.Fprintf(a.stdout, "Streams:  %d\n", len(info.Streams))
	for _, s := range info.Streams {
		kind := "rotation"
		if s.Translation {
			kind = "translation"
		}
		fmt.Fprintf(a.stdout, "  %2d. joint %d %s\n", s.Slot, s.Joint, kind)
	}

	printFlags(a.stdout, info.Flags)
	return nil
}

// writeText writes a motion in the text motion format, atomically.
func writeText(path string, m *motion.Motion) error {
	var text strings.Builder
	if err := motion.WriteText(&text, m); err != nil {
		return err
	}
	return fsutil.WriteFile(path, []byte(text.String()))
}

// printFlags lists the flagged frames with the names of their flags.
func printFlags(w io.Writer, flags *motion.Flags) {
	frames := flags.Frames()
	if len(frames) == 0 {
		return
	}

	fmt.Fprintf(w, "Flags:    %d\n", len(frames))
	for _, frame := range frames {
		var names []string
		for _, f := range flags.Bits(frame) {
			names = append(names, f.String())
		}
		fmt.Fprintf(w, "  %4d: %s\n", frame, strings.Join(names, "+"))
	}
}

// parseFlags reads frame flags given as frame=Name[+Name...].
func parseFlags(args []string) (*motion.Flags, error) {
	flags := motion.NewFlags()
	for _, arg := range args {
		frame, names, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid frame flag %q, expected frame=Name", arg)
		}

		n, err := strconv.Atoi(strings.TrimSpace(frame))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid frame number in %q", arg)
		}

		for _, name := range strings.Split(names, "+") {
			f, err := motion.ParseFlag(strings.TrimSpace(name))
			if err != nil {
				return nil, err
			}
			flags.Add(n, f)
		}
	}
	return flags, nil
}

// setup resolves the configuration and opens the converter.
func (cli *CLI) setup(stdout, stderr io.Writer) (*app, error) {
	cfg := config.Default()
	if cli.Config != "" {
		var err error
		if cfg, err = config.LoadOrCreate(cli.Config); err != nil {
			return nil, err
		}
	}

	cfg.Resolve(config.Flags{
		SupportingFilesDir: cli.Dir,
		MapFile:            cli.Map,
		ImportMapFile:      cli.ImportMap,
		Calibration:        cli.Cal,
		Creature:           cli.Creature,
		MaxFrames:          cli.MaxFrames,
		KeepText:           cli.KeepText,
		LogLevel:           cli.LogLevel,
		LogFormat:          cli.LogFormat,
	})

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	logger := logging.New(stderr, level, format)

	creature, err := cfg.Creature()
	if err != nil {
		return nil, err
	}

	converter, err := motion.Open(cfg.SupportingFilesDir,
		motion.WithJointMap(cfg.MapFile),
		motion.WithImportMap(cfg.ImportMapFile),
		motion.WithCalibration(cfg.ImportCalFile),
		motion.WithCreature(creature),
		motion.WithKeepText(cfg.KeepText),
		motion.WithMaxFrames(cfg.MaxMotionFrames),
		motion.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	logger.Debug("configuration resolved",
		"dir", cfg.SupportingFilesDir,
		"map", cfg.MapFile,
		"calibration", cfg.ImportCalFile,
		"creature", creature)
	return &app{stdout: stdout, logger: logger, converter: converter}, nil
}

// run parses the arguments and runs the selected command.
func run(args []string, stdout, stderr io.Writer) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("motionconv"),
		kong.Description("Dark Engine motion converter"),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	if err != nil {
		return err
	}

	ctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	a, err := cli.setup(stdout, stderr)
	if err != nil {
		return err
	}
	defer a.converter.Close()

	return ctx.Run(a)
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "motionconv: %v\n", err)
		os.Exit(1)
	}
}
