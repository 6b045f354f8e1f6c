// vkconvbench - GPU pixel-format conversion benchmark harness
//
// License: GPLv3 or later
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	pflag "github.com/spf13/pflag"

	pw "github.com/evercast/pixelweave-chromascale"
)

const maxConcurrentPairs = 4

func main() {
	srcFormats := pflag.StringArray("src-format", nil, "source pixel format name (repeatable)")
	dstFormats := pflag.StringArray("dst-format", nil, "destination pixel format name (repeatable)")
	width := pflag.Int("width", 1920, "frame width in pixels")
	height := pflag.Int("height", 1080, "frame height in pixels")
	runs := pflag.Int("runs", 8, "conversions per format pair (first run excluded from the average)")
	csvPath := pflag.String("csv", "", "CSV output path (default: stdout)")
	pflag.Parse()

	if len(*srcFormats) == 0 || len(*dstFormats) == 0 {
		fmt.Fprintln(os.Stderr, "vkconvbench: at least one --src-format and one --dst-format are required")
		pflag.PrintDefaults()
		os.Exit(1)
	}

	pairs, err := buildPairs(*srcFormats, *dstFormats)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vkconvbench: %v\n", err)
		os.Exit(1)
	}

	device, err := pw.CreateDevice()
	if err != nil {
		fmt.Fprintf(os.Stderr, "vkconvbench: device creation failed: %v\n", err)
		os.Exit(1)
	}
	defer device.Release()

	out := os.Stdout
	if *csvPath != "" {
		f, err := os.Create(*csvPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "vkconvbench: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	writer := csv.NewWriter(out)
	var writeMu sync.Mutex
	writer.Write([]string{
		"InputFormat", "InputWidth", "InputHeight",
		"OutputFormat", "OutputWidth", "OutputHeight",
		"Runs", "AvgUploadMicros", "AvgDispatchMicros", "AvgReadbackMicros", "AvgTotalMicros",
	})
	writer.Flush()

	group, ctx := errgroup.WithContext(context.Background())
	group.SetLimit(maxConcurrentPairs)

	for _, pair := range pairs {
		pair := pair
		group.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			row, err := benchmarkPair(device, pair, *width, *height, *runs)
			if err != nil {
				return fmt.Errorf("%s->%s: %w", pair.src, pair.dst, err)
			}

			writeMu.Lock()
			defer writeMu.Unlock()
			writer.Write(row)
			writer.Flush()
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "vkconvbench: %v\n", err)
		os.Exit(1)
	}
}

type formatPair struct {
	src, dst pw.PixelFormat
}

func buildPairs(srcNames, dstNames []string) ([]formatPair, error) {
	byName, err := formatsByName()
	if err != nil {
		return nil, err
	}

	var pairs []formatPair
	for _, s := range srcNames {
		srcFmt, ok := byName[s]
		if !ok {
			return nil, fmt.Errorf("unknown source format %q", s)
		}
		for _, d := range dstNames {
			dstFmt, ok := byName[d]
			if !ok {
				return nil, fmt.Errorf("unknown destination format %q", d)
			}
			pairs = append(pairs, formatPair{src: srcFmt, dst: dstFmt})
		}
	}
	return pairs, nil
}

func formatsByName() (map[string]pw.PixelFormat, error) {
	byName := make(map[string]pw.PixelFormat)
	for f := range pw.SupportedInputFormats {
		byName[f.String()] = f
	}
	if len(byName) == 0 {
		return nil, fmt.Errorf("no supported pixel formats registered")
	}
	return byName, nil
}

// benchmarkPair runs one VideoConverter through runs iterations of a
// (src, dst) format pair and returns the averaged per-stage timings as
// a CSV row. The first run is excluded from the average to let the
// converter's pipeline/buffer cache (spec.md §4.10) warm up.
func benchmarkPair(device *pw.Device, pair formatPair, width, height, runs int) ([]string, error) {
	converter, err := device.CreateVideoConverter()
	if err != nil {
		return nil, err
	}
	defer converter.Release()

	src := pw.VideoFrame{
		Width: width, Height: height,
		Stride: pair.src.MinStride(width),
		Format: pair.src, Range: pw.RangeLegal, Matrix: pw.MatrixBT709,
	}
	dst := pw.VideoFrame{
		Width: width, Height: height,
		Stride: pair.dst.MinStride(width),
		Format: pair.dst, Range: pw.RangeLegal, Matrix: pw.MatrixBT709,
	}
	if chromaW, _ := pair.src.ChromaDimensions(width, height); chromaW > 0 {
		src.ChromaStride = chromaStrideFor(pair.src, width)
	}
	if chromaW, _ := pair.dst.ChromaDimensions(width, height); chromaW > 0 {
		dst.ChromaStride = chromaStrideFor(pair.dst, width)
	}

	srcBytes, err := pw.EncodeRGBA8(src, pw.GenerateGradientRGBA8(width, height))
	if err != nil {
		return nil, err
	}

	if runs < 1 {
		runs = 1
	}
	var totalUpload, totalDispatch, totalReadback, totalTotal float64
	counted := 0

	for i := 0; i < runs; i++ {
		_, result, err := converter.ConvertWithBenchmark(src, srcBytes, dst)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			continue // warm-up run excluded from the average
		}
		totalUpload += result.UploadMicros
		totalDispatch += result.DispatchMicros
		totalReadback += result.ReadbackMicros
		totalTotal += result.TotalMicros
		counted++
	}
	if counted == 0 {
		counted = 1
	}

	return []string{
		pair.src.String(), strconv.Itoa(width), strconv.Itoa(height),
		pair.dst.String(), strconv.Itoa(width), strconv.Itoa(height),
		strconv.Itoa(runs),
		formatMicros(totalUpload / float64(counted)),
		formatMicros(totalDispatch / float64(counted)),
		formatMicros(totalReadback / float64(counted)),
		formatMicros(totalTotal / float64(counted)),
	}, nil
}

func chromaStrideFor(f pw.PixelFormat, width int) int {
	chromaWidth, _ := f.ChromaDimensions(width, 1)
	byteDepth := f.ByteDepth()
	switch f.Layout() {
	case pw.LayoutBiplanar:
		return chromaWidth * 2 * byteDepth
	case pw.LayoutPlanar:
		return chromaWidth * byteDepth
	default:
		return 0
	}
}

func formatMicros(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
