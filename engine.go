//go:build !ios && !android && (amd64 || arm64)

package annotai

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/lomavkin/annotai/avcodec"
	"github.com/lomavkin/annotai/avformat"
	"github.com/lomavkin/annotai/avutil"
)

// outputSink owns the destination container. Time bases are captured after
// the header is written, when the muxer has settled them.
type outputSink struct {
	ctx       avformat.FormatContext
	io        avformat.IOContext
	timeBases []avutil.Rational
}

// writePacket rescales pkt from srcTb to the slot's output time base and
// hands it to the interleaving muxer, which consumes it.
func (s *outputSink) writePacket(pkt avcodec.Packet, slot int, srcTb avutil.Rational) error {
	avcodec.SetPacketStreamIndex(pkt, int32(slot))
	avcodec.RescalePacketTS(pkt, srcTb, s.timeBases[slot])
	return avformat.InterleavedWriteFrame(s.ctx, pkt)
}

func (s *outputSink) close() {
	if s.io != nil {
		avformat.IOCloseP(&s.io)
	}
	if s.ctx != nil {
		avformat.FreeContext(s.ctx)
		s.ctx = nil
	}
}

// Transcode trims inputPath to the window, re-encodes video to H.264 and
// audio to AAC, optionally mixes the narration file at overlayPath into the
// audio, and muxes everything to outputPath. Subtitle streams are copied
// as-is; data and attachment streams are dropped. A missing or empty
// overlayPath leaves the audio untouched.
//
// On error the partially written output is left in place for inspection.
func Transcode(inputPath, overlayPath, outputPath string, window TimeWindow, opts ...Option) error {
	o := applyOptions(opts)
	logger := o.logger

	if err := Init(); err != nil {
		return err
	}

	var inCtx avformat.FormatContext
	if err := avformat.OpenInput(&inCtx, inputPath, nil, nil); err != nil {
		return err
	}
	defer avformat.CloseInput(&inCtx)
	if err := avformat.FindStreamInfo(inCtx, nil); err != nil {
		return err
	}

	overlay := OverlayMix{}
	if overlayPath != "" {
		if _, err := os.Stat(overlayPath); err == nil {
			overlay.Path = overlayPath
		}
	}
	spec := overlay.Spec()
	logger.Debug("audio filter spec", slog.String("spec", spec))

	debug := logger.Enabled(context.Background(), slog.LevelDebug)
	if debug {
		avformat.DumpFormat(inCtx, 0, inputPath, false)
	}

	seekToWindowStart(inCtx, inputPath, window, logger)

	sink := &outputSink{}
	defer sink.close()
	if err := avformat.AllocOutputContext2(&sink.ctx, nil, "", outputPath); err != nil {
		return err
	}

	transcoders := make(map[int]streamTranscoder)
	defer func() {
		for _, t := range transcoders {
			t.close()
		}
	}()

	nb := avformat.GetNumStreams(inCtx)
	streamMap := make([]int, nb)
	inputTbs := make([]avutil.Rational, nb)
	cutoffs := make([]int64, nb)
	outIndex := 0
	for i := 0; i < nb; i++ {
		ist := avformat.GetStream(inCtx, i)
		par := avformat.GetStreamCodecPar(ist)
		medium := avcodec.GetParCodecType(par)

		switch medium {
		case avutil.MediaTypeVideo, avutil.MediaTypeAudio, avutil.MediaTypeSubtitle:
		default:
			streamMap[i] = -1
			logger.Debug("dropping stream",
				slog.Int("index", i), slog.String("type", medium.String()))
			continue
		}

		streamMap[i] = outIndex
		inputTbs[i] = avformat.GetStreamTimeBase(ist)
		cutoffs[i] = window.CutoffIn(inputTbs[i])

		switch medium {
		case avutil.MediaTypeVideo:
			t, err := newVideoTranscoder(ist, sink.ctx, outIndex, window)
			if err != nil {
				return err
			}
			transcoders[i] = t
		case avutil.MediaTypeAudio:
			t, err := newAudioTranscoder(ist, sink.ctx, outIndex, spec, window, logger)
			if err != nil {
				return err
			}
			transcoders[i] = t
		case avutil.MediaTypeSubtitle:
			ost := avformat.NewStream(sink.ctx, nil)
			if ost == nil {
				return fmt.Errorf("annotai: adding subtitle output stream")
			}
			ostPar := avformat.GetStreamCodecPar(ost)
			if err := avcodec.ParametersCopy(ostPar, par); err != nil {
				return err
			}
			avcodec.SetCodecParTag(ostPar, 0)
		}
		logger.Debug("mapped stream",
			slog.Int("input", i), slog.Int("output", outIndex),
			slog.String("type", medium.String()))
		outIndex++
	}

	if err := avutil.DictCopy(avformat.MetadataPtr(sink.ctx), avformat.GetMetadata(inCtx), 0); err != nil {
		return err
	}
	if debug {
		avformat.DumpFormat(sink.ctx, 0, outputPath, true)
	}

	if !avformat.HasNoFile(sink.ctx) {
		if err := avformat.IOOpen(&sink.io, outputPath, avformat.IOFlagWrite); err != nil {
			return err
		}
		avformat.SetIOContext(sink.ctx, sink.io)
	}
	if err := avformat.WriteHeader(sink.ctx, nil); err != nil {
		return err
	}

	// The muxer may have adjusted stream time bases while writing the
	// header; packet rescaling must use the settled values.
	sink.timeBases = make([]avutil.Rational, outIndex)
	for s := 0; s < outIndex; s++ {
		sink.timeBases[s] = avformat.GetStreamTimeBase(avformat.GetStream(sink.ctx, s))
	}
	logger.Debug("header written", slog.Int("streams", outIndex))

	pkt := avcodec.PacketAlloc()
	if pkt == nil {
		return fmt.Errorf("annotai: allocating packet")
	}
	defer avcodec.PacketFree(&pkt)

	for {
		if err := avformat.ReadFrame(inCtx, pkt); err != nil {
			if avutil.IsEOF(err) {
				logger.Debug("input exhausted")
				break
			}
			return err
		}
		istIdx := int(avcodec.GetPacketStreamIndex(pkt))
		if istIdx < 0 || istIdx >= nb || streamMap[istIdx] < 0 {
			avcodec.PacketUnref(pkt)
			continue
		}

		pts := avcodec.GetPacketPTS(pkt)
		if pts == avutil.NoPTSValue {
			avcodec.PacketUnref(pkt)
			return ErrMissingTimestamp
		}
		if pts >= cutoffs[istIdx] {
			avcodec.PacketUnref(pkt)
			logger.Debug("window end reached", slog.Int("stream", istIdx))
			break
		}

		if t, ok := transcoders[istIdx]; ok {
			err := t.sendPacket(pkt)
			avcodec.PacketUnref(pkt)
			if err != nil {
				return err
			}
			if err := t.drainFrames(sink); err != nil {
				return err
			}
		} else if err := sink.writePacket(pkt, streamMap[istIdx], inputTbs[istIdx]); err != nil {
			return err
		}
	}

	// Flush decoder, filter graph and encoder of every transcoder, in
	// input stream order.
	indices := make([]int, 0, len(transcoders))
	for i := range transcoders {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	for _, i := range indices {
		t := transcoders[i]
		logger.Debug("flushing transcoder", slog.Int("stream", i))
		if err := t.sendDecoderEOF(); err != nil {
			return err
		}
		if err := t.drainFrames(sink); err != nil {
			return err
		}
		if err := t.flushFilter(); err != nil {
			return err
		}
		if err := t.drainFiltered(sink); err != nil {
			return err
		}
		if err := t.sendEncoderEOF(); err != nil {
			return err
		}
		if err := t.drainPackets(sink); err != nil {
			return err
		}
	}

	if err := avformat.WriteTrailer(sink.ctx); err != nil {
		return err
	}
	logger.Debug("transcode complete",
		slog.String("input", inputPath),
		slog.String("output", outputPath),
		slog.Float64("start", window.Start),
		slog.Float64("duration", window.Duration))
	return nil
}
