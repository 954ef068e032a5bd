package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/integrii/flaggy"
	"github.com/pkg/errors"

	"github.com/nebulasdr/nebula/config"
	"github.com/nebulasdr/nebula/display"
	"github.com/nebulasdr/nebula/dsp"
	"github.com/nebulasdr/nebula/dsp/window"
	"github.com/nebulasdr/nebula/fft"
	"github.com/nebulasdr/nebula/input"
	"github.com/nebulasdr/nebula/processor"
	"github.com/nebulasdr/nebula/vulkan"
)

// AppName is the app name
const AppName = "nebula"

// AppDesc is the app description
const AppDesc = "Terminal IQ spectrum waterfall with a GPU transform"

// AppSite is the app website
const AppSite = "https://github.com/nebulasdr/nebula"

var version = "unknown"

func main() {
	log.SetFlags(0)

	cfg := config.NewZeroConfig()
	inputPath := "-"

	if doFlags(&cfg, &inputPath) {
		return
	}

	chk(cfg.Sanitize(), "invalid config")

	chk(run(&cfg, inputPath), "failed to run nebula")
}

func run(cfg *config.Config, inputPath string) error {
	format, err := input.ParseFormat(cfg.SampleFormat)
	if err != nil {
		return err
	}

	windower, err := window.ForName(cfg.Window)
	if err != nil {
		return err
	}

	plan, err := fft.NewPlan(fft.Config{
		Size:        cfg.SampleSize,
		DeviceIndex: cfg.DeviceIndex,
		ForceCPU:    cfg.ForceCPU,
	})
	if err != nil {
		return err
	}
	defer plan.Close()

	quant, err := dsp.NewQuantizer(cfg.SampleSize, cfg.Levels)
	if err != nil {
		return err
	}

	reader, err := openInput(inputPath)
	if err != nil {
		return err
	}
	if closer, ok := reader.(io.Closer); ok {
		defer closer.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var out processor.Output

	if cfg.Raw {
		log.Printf("transform backend: %s", plan.Backend())
		out = NewRawOutput(os.Stdout)
	} else {
		disp := display.New()
		if err := disp.Init(cfg.FrameRate); err != nil {
			return errors.Wrap(err, "failed to open the terminal")
		}
		defer disp.Close()

		ctx = disp.Start(ctx)
		defer disp.Stop()

		out = disp
	}

	proc, err := processor.New(processor.Config{
		SampleRate:  cfg.SampleRate,
		SampleSize:  cfg.SampleSize,
		ProcessRate: cfg.FrameRate,
		Normalize:   cfg.Normalize,
		Windower:    windower,
		Plan:        plan,
		Quantizer:   quant,
		Source:      input.NewSampleReader(reader, format),
		Output:      out,
	})
	if err != nil {
		return err
	}

	if err := proc.Process(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func openInput(path string) (io.Reader, error) {
	if path == "" || path == "-" {
		return os.Stdin, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open the input")
	}
	return file, nil
}

func doFlags(cfg *config.Config, inputPath *string) bool {

	parser := flaggy.NewParser(AppName)
	parser.Description = AppDesc
	parser.AdditionalHelpPrepend = AppSite
	parser.Version = version

	listDevicesCmd := flaggy.Subcommand{
		Name:        "list-devices",
		ShortName:   "ld",
		Description: "list all Vulkan devices",
	}

	parser.AttachSubcommand(&listDevicesCmd, 1)

	parser.String(inputPath, "i", "input", "IQ input file ('-' for stdin)")
	parser.Float64(&cfg.SampleRate, "r", "rate", "sample rate")
	parser.Int(&cfg.SampleSize, "n", "samples", "samples per frame (power of two)")
	parser.String(&cfg.SampleFormat, "f", "format", "sample format (u8, s8, u16, s16, f32, f64)")
	parser.Int(&cfg.FrameRate, "", "fps", "frame rate (0 paces by the input)")
	parser.Int(&cfg.Levels, "l", "levels", "downsample levels [1, +Inf)")
	parser.Int(&cfg.DeviceIndex, "d", "device", "Vulkan device index from list-devices (-1 picks)")
	parser.String(&cfg.Window, "w", "window", "window function (hann, hamming, bartlett, blackman, none)")
	parser.Bool(&cfg.ForceCPU, "", "cpu", "skip the GPU transform")
	parser.Bool(&cfg.Raw, "", "raw", "print rows as text instead of drawing")

	chk(parser.Parse(), "failed to parse arguments")

	if listDevicesCmd.Used {
		devices, err := vulkan.Devices()
		chk(err, "failed to list devices")

		for _, dev := range devices {
			note := ""
			if !dev.Compute {
				note = " (no compute queue)"
			}
			fmt.Printf("%d: %s [%s]%s\n", dev.Index, dev.Name, dev.Type, note)
		}

		return true
	}

	return false
}

func chk(err error, wrap string) {
	if err != nil {
		log.Fatalln(wrap+": ", err)
	}
}
