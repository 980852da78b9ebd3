//go:build !ios && !android && (amd64 || arm64)

package annotai

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lomavkin/annotai/avcodec"
	"github.com/lomavkin/annotai/avformat"
	"github.com/lomavkin/annotai/avutil"
	"github.com/lomavkin/annotai/swscale"
)

// SampleConfig controls how SampleFrames walks the input.
type SampleConfig struct {
	// Window bounds sampling to [Start, Start+Duration) in seconds of
	// stream time.
	Window TimeWindow

	// Interval is the minimum spacing between accepted frames, in seconds.
	Interval float64

	// DumpDir, when non-empty, receives every accepted frame as
	// frame_0000.jpg, frame_0001.jpg, ... The directory is created if it
	// does not exist.
	DumpDir string
}

// SampleFrames decodes the first video stream of inputPath and returns one
// JPEG snapshot per Interval seconds inside the window. Decoding starts at
// the nearest seek point before the window and stops as soon as a frame
// reaches the window end, so the cost is proportional to the window, not
// the file.
func SampleFrames(inputPath string, cfg SampleConfig, opts ...Option) ([]FrameSnapshot, error) {
	o := applyOptions(opts)
	logger := o.logger

	if err := Init(); err != nil {
		return nil, err
	}

	var inCtx avformat.FormatContext
	if err := avformat.OpenInput(&inCtx, inputPath, nil, nil); err != nil {
		return nil, err
	}
	defer avformat.CloseInput(&inCtx)
	if err := avformat.FindStreamInfo(inCtx, nil); err != nil {
		return nil, err
	}

	streamIdx := findVideoStream(inCtx)
	if streamIdx < 0 {
		return nil, ErrNoVideoStream
	}
	stream := avformat.GetStream(inCtx, streamIdx)
	tb := avformat.GetStreamTimeBase(stream)

	seekToWindowStart(inCtx, inputPath, cfg.Window, logger)

	par := avformat.GetStreamCodecPar(stream)
	codec := avcodec.FindDecoder(avcodec.GetParCodecID(par))
	if codec == nil {
		return nil, avutil.NewError(avutil.AVERROR_DECODER_NOT_FOUND, "avcodec_find_decoder")
	}
	decCtx := avcodec.AllocContext3(codec)
	if decCtx == nil {
		return nil, fmt.Errorf("annotai: allocating decoder context for %s", avcodec.GetCodecName(codec))
	}
	defer avcodec.FreeContext(&decCtx)
	if err := avcodec.ParametersToContext(decCtx, par); err != nil {
		return nil, err
	}
	if err := avcodec.Open2(decCtx, codec, nil); err != nil {
		return nil, err
	}

	width := avcodec.GetCtxWidth(decCtx)
	height := avcodec.GetCtxHeight(decCtx)
	srcFmt := avutil.PixelFormat(avcodec.GetCtxPixFmt(decCtx))
	swsCtx := swscale.GetContext(width, height, srcFmt, width, height, avutil.PixelFormatRGB24, swscale.FlagBilinear)
	if swsCtx == nil {
		return nil, fmt.Errorf("annotai: no scaler from %dx%d pix_fmt %d to rgb24", width, height, srcFmt)
	}
	defer swscale.FreeContext(swsCtx)

	rgb := avutil.FrameAlloc()
	if rgb == nil {
		return nil, fmt.Errorf("annotai: allocating rgb frame")
	}
	defer avutil.FrameFree(&rgb)
	avutil.SetFrameWidth(rgb, width)
	avutil.SetFrameHeight(rgb, height)
	avutil.SetFrameFormat(rgb, int32(avutil.PixelFormatRGB24))
	if err := avutil.FrameGetBuffer(rgb, 0); err != nil {
		return nil, err
	}

	frame := avutil.FrameAlloc()
	if frame == nil {
		return nil, fmt.Errorf("annotai: allocating frame")
	}
	defer avutil.FrameFree(&frame)

	pkt := avcodec.PacketAlloc()
	if pkt == nil {
		return nil, fmt.Errorf("annotai: allocating packet")
	}
	defer avcodec.PacketFree(&pkt)

	if cfg.DumpDir != "" {
		if err := os.MkdirAll(cfg.DumpDir, 0755); err != nil {
			return nil, fmt.Errorf("annotai: creating dump directory: %w", err)
		}
	}

	s := sampler{
		cfg:    cfg,
		tb:     tb,
		decCtx: decCtx,
		swsCtx: swsCtx,
		frame:  frame,
		rgb:    rgb,
		next:   cfg.Window.Start,
	}

	for !s.done {
		if err := avformat.ReadFrame(inCtx, pkt); err != nil {
			if avutil.IsEOF(err) {
				break
			}
			return nil, err
		}
		if int(avcodec.GetPacketStreamIndex(pkt)) != streamIdx {
			avcodec.PacketUnref(pkt)
			continue
		}
		err := avcodec.SendPacket(decCtx, pkt)
		avcodec.PacketUnref(pkt)
		if err != nil {
			return nil, err
		}
		if err := s.drainDecoded(); err != nil {
			return nil, err
		}
	}
	if !s.done {
		if err := avcodec.SendPacket(decCtx, nil); err != nil && !avutil.IsEOF(err) {
			return nil, err
		}
		if err := s.drainDecoded(); err != nil {
			return nil, err
		}
	}

	logger.Debug("sampling complete",
		slog.String("input", inputPath),
		slog.Int("frames", len(s.snaps)),
		slog.Float64("start", cfg.Window.Start),
		slog.Float64("duration", cfg.Window.Duration))
	return s.snaps, nil
}

// findVideoStream returns the index of the preferred video stream, or -1.
func findVideoStream(ctx avformat.FormatContext) int {
	if idx := avformat.FindBestStream(ctx, avutil.MediaTypeVideo, -1, -1, nil, 0); idx >= 0 {
		return int(idx)
	}
	for i := 0; i < avformat.GetNumStreams(ctx); i++ {
		par := avformat.GetStreamCodecPar(avformat.GetStream(ctx, i))
		if avcodec.GetParCodecType(par) == avutil.MediaTypeVideo {
			return i
		}
	}
	return -1
}

// sampler holds the per-run decode state so the drain loop can be shared
// between the packet loop and the end-of-stream flush.
type sampler struct {
	cfg    SampleConfig
	tb     avutil.Rational
	decCtx avcodec.Context
	swsCtx swscale.Context
	frame  avutil.Frame
	rgb    avutil.Frame

	next  float64
	done  bool
	snaps []FrameSnapshot
}

func (s *sampler) drainDecoded() error {
	for {
		avutil.FrameUnref(s.frame)
		err := avcodec.ReceiveFrame(s.decCtx, s.frame)
		if avutil.IsAgain(err) || avutil.IsEOF(err) {
			return nil
		}
		if err != nil {
			return err
		}

		ts := avutil.GetFrameBestEffortTS(s.frame)
		if ts == avutil.NoPTSValue {
			return ErrMissingTimestamp
		}
		sec := Seconds(ts, s.tb)
		if sec >= s.cfg.Window.End() {
			s.done = true
			return nil
		}
		if sec < s.next {
			continue
		}
		s.next += s.cfg.Interval

		if err := avutil.FrameMakeWritable(s.rgb); err != nil {
			return err
		}
		if err := swscale.ScaleFrame(s.swsCtx, s.rgb, s.frame); err != nil {
			return err
		}
		snap, jpegData, err := snapshotFrame(s.rgb, sec)
		if err != nil {
			return err
		}
		if s.cfg.DumpDir != "" {
			if err := dumpJPEG(s.cfg.DumpDir, len(s.snaps), jpegData); err != nil {
				return err
			}
		}
		s.snaps = append(s.snaps, snap)
	}
}
