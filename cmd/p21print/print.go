package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"p21print/internal/bitmap"
	"p21print/internal/imaging"
	"p21print/internal/protocol"
	"p21print/internal/session"
)

// printFlags are the options shared by all label-producing commands.
type printFlags struct {
	device    string
	labelName string
	density   int
	copies    int
	preview   string
	ackWindow time.Duration
}

func (f *printFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.device, "device", "d", envString("P21_DEVICE", "/dev/rfcomm0"), "serial device the printer is bound to")
	cmd.Flags().StringVar(&f.labelName, "label", protocol.Label14x40.Name, "label stock")
	cmd.Flags().IntVar(&f.density, "density", envInt("P21_DENSITY", protocol.DefaultDensity), "print darkness (0-15)")
	cmd.Flags().IntVar(&f.copies, "copies", 1, "number of copies")
	cmd.Flags().StringVar(&f.preview, "preview", "", "write the rendered label to a PNG instead of printing")
	cmd.Flags().DurationVar(&f.ackWindow, "timeout", session.DefaultAckWindow, "per-acknowledgement timeout")
}

func (f *printFlags) label() (protocol.LabelSize, error) {
	size, ok := protocol.SizeByName(f.labelName)
	if !ok {
		return protocol.LabelSize{}, fmt.Errorf("unknown label stock %q (sizes: %s)", f.labelName, labelNames())
	}
	return size, nil
}

// deliver either writes the preview PNG or runs a print session. Ctrl-C
// cancels between frames.
func (f *printFlags) deliver(bm *bitmap.Bitmap) error {
	if f.preview != "" {
		return imaging.WritePNG(f.preview, imaging.ToImage(bm))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	job := protocol.JobOptions{
		Density:  f.density,
		Copies:   f.copies,
		FeedDots: protocol.DefaultFeedDots,
	}
	return session.Print(ctx, f.device, bm, job, f.ackWindow)
}

func labelNames() string {
	out := ""
	for i, s := range protocol.AllSizes {
		if i > 0 {
			out += ", "
		}
		out += s.Name
	}
	return out
}

func textCmd() *cobra.Command {
	f := &printFlags{}
	var (
		fontSize  float64
		across    bool
		invert    bool
		wordBreak bool
	)

	cmd := &cobra.Command{
		Use:   "text <message>",
		Short: "Render a text label and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			size, err := f.label()
			if err != nil {
				return err
			}
			orientation := imaging.Along
			if across {
				orientation = imaging.Across
			}
			bm, err := imaging.RenderText(args[0], size.PixelW, size.PixelH, imaging.TextOptions{
				FontSize:      fontSize,
				Orientation:   orientation,
				Invert:        invert,
				WordBreakOnly: wordBreak,
			})
			if err != nil {
				return fmt.Errorf("rendering text: %w", err)
			}
			return f.deliver(bm)
		},
	}
	f.register(cmd)
	cmd.Flags().Float64Var(&fontSize, "font-size", 24, "font size in points")
	cmd.Flags().BoolVar(&across, "across", false, "run text across the label width instead of along it")
	cmd.Flags().BoolVar(&invert, "invert", false, "white text on black")
	cmd.Flags().BoolVar(&wordBreak, "word-break", false, "wrap at spaces only")
	return cmd
}

func imageCmd() *cobra.Command {
	f := &printFlags{}
	var (
		threshold int
		invert    bool
	)

	cmd := &cobra.Command{
		Use:   "image <path>",
		Short: "Print an image file as a label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			size, err := f.label()
			if err != nil {
				return err
			}
			img, err := imaging.LoadImage(args[0])
			if err != nil {
				return fmt.Errorf("loading %s: %w", args[0], err)
			}
			bm, err := imaging.ToBitmap(img, size.PixelW, size.PixelH, uint8(threshold), invert)
			if err != nil {
				return err
			}
			return f.deliver(bm)
		},
	}
	f.register(cmd)
	cmd.Flags().IntVar(&threshold, "threshold", 180, "darkness cutoff (0-255)")
	cmd.Flags().BoolVar(&invert, "invert", false, "invert black and white")
	return cmd
}

func qrCmd() *cobra.Command {
	f := &printFlags{}

	cmd := &cobra.Command{
		Use:   "qr <content>",
		Short: "Print a QR code label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			size, err := f.label()
			if err != nil {
				return err
			}
			bm, err := imaging.RenderQR(args[0], size.PixelW, size.PixelH)
			if err != nil {
				return fmt.Errorf("rendering QR code: %w", err)
			}
			return f.deliver(bm)
		},
	}
	f.register(cmd)
	return cmd
}
