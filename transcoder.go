//go:build !ios && !android && (amd64 || arm64)

package annotai

import (
	"fmt"
	"log/slog"

	"github.com/lomavkin/annotai/avcodec"
	"github.com/lomavkin/annotai/avformat"
	"github.com/lomavkin/annotai/avutil"
)

// streamTranscoder is the per-stream decode/filter/encode chain driven by
// Transcode. Video skips the filter stage, so flushFilter and drainFiltered
// are no-ops there.
type streamTranscoder interface {
	sendPacket(pkt avcodec.Packet) error
	drainFrames(sink *outputSink) error
	flushFilter() error
	drainFiltered(sink *outputSink) error
	sendDecoderEOF() error
	sendEncoderEOF() error
	drainPackets(sink *outputSink) error
	outputIndex() int
	close()
}

// openDecoder opens a decoder for the stream's codec parameters.
func openDecoder(par avcodec.Parameters) (avcodec.Context, error) {
	codec := avcodec.FindDecoder(avcodec.GetParCodecID(par))
	if codec == nil {
		return nil, avutil.NewError(avutil.AVERROR_DECODER_NOT_FOUND, "avcodec_find_decoder")
	}
	ctx := avcodec.AllocContext3(codec)
	if ctx == nil {
		return nil, fmt.Errorf("annotai: allocating decoder context for %s", avcodec.GetCodecName(codec))
	}
	if err := avcodec.ParametersToContext(ctx, par); err != nil {
		avcodec.FreeContext(&ctx)
		return nil, err
	}
	if err := avcodec.Open2(ctx, codec, nil); err != nil {
		avcodec.FreeContext(&ctx)
		return nil, err
	}
	return ctx, nil
}

// videoTranscoder re-encodes one video stream to H.264, keeping the source
// geometry and frame rate.
type videoTranscoder struct {
	outIndex int
	inputTb  avutil.Rational
	startPTS int64

	decCtx avcodec.Context
	encCtx avcodec.Context
	frame  avutil.Frame
	pkt    avcodec.Packet
}

func newVideoTranscoder(ist avformat.Stream, outCtx avformat.FormatContext, outIndex int, window TimeWindow) (*videoTranscoder, error) {
	decCtx, err := openDecoder(avformat.GetStreamCodecPar(ist))
	if err != nil {
		return nil, err
	}

	t := &videoTranscoder{
		outIndex: outIndex,
		inputTb:  avformat.GetStreamTimeBase(ist),
		decCtx:   decCtx,
	}
	t.startPTS = window.StartIn(t.inputTb)

	encCodec := avcodec.FindEncoder(avcodec.CodecIDH264)
	if encCodec == nil {
		t.close()
		return nil, avutil.NewError(avutil.AVERROR_ENCODER_NOT_FOUND, "avcodec_find_encoder")
	}
	ost := avformat.NewStream(outCtx, encCodec)
	if ost == nil {
		t.close()
		return nil, fmt.Errorf("annotai: adding video output stream")
	}
	encCtx := avcodec.AllocContext3(encCodec)
	if encCtx == nil {
		t.close()
		return nil, fmt.Errorf("annotai: allocating h264 encoder context")
	}
	t.encCtx = encCtx

	avcodec.SetCtxWidth(encCtx, avcodec.GetCtxWidth(decCtx))
	avcodec.SetCtxHeight(encCtx, avcodec.GetCtxHeight(decCtx))
	avcodec.SetCtxSampleAspectRatio(encCtx, avcodec.GetCtxSampleAspectRatio(decCtx))
	avcodec.SetCtxPixFmt(encCtx, avcodec.GetCtxPixFmt(decCtx))
	avcodec.SetCtxFramerate(encCtx, avformat.GetStreamAvgFrameRate(ist))
	avcodec.SetCtxTimeBase(encCtx, t.inputTb)
	if avformat.NeedsGlobalHeader(outCtx) {
		avcodec.SetCtxFlags(encCtx, avcodec.GetCtxFlags(encCtx)|avcodec.CodecFlagGlobalHeader)
	}

	var opts avutil.Dictionary
	if err := avutil.DictSet(&opts, "preset", "medium", 0); err != nil {
		t.close()
		return nil, err
	}
	err = avcodec.Open2(encCtx, encCodec, &opts)
	avutil.DictFree(&opts)
	if err != nil {
		t.close()
		return nil, err
	}
	if err := avcodec.ParametersFromContext(avformat.GetStreamCodecPar(ost), encCtx); err != nil {
		t.close()
		return nil, err
	}

	if t.frame = avutil.FrameAlloc(); t.frame == nil {
		t.close()
		return nil, fmt.Errorf("annotai: allocating frame")
	}
	if t.pkt = avcodec.PacketAlloc(); t.pkt == nil {
		t.close()
		return nil, fmt.Errorf("annotai: allocating packet")
	}
	return t, nil
}

func (t *videoTranscoder) sendPacket(pkt avcodec.Packet) error {
	return avcodec.SendPacket(t.decCtx, pkt)
}

func (t *videoTranscoder) sendDecoderEOF() error {
	return avcodec.SendPacket(t.decCtx, nil)
}

func (t *videoTranscoder) drainFrames(sink *outputSink) error {
	for {
		avutil.FrameUnref(t.frame)
		err := avcodec.ReceiveFrame(t.decCtx, t.frame)
		if avutil.IsAgain(err) || avutil.IsEOF(err) {
			return nil
		}
		if err != nil {
			return err
		}

		ts := avutil.GetFrameBestEffortTS(t.frame)
		if ts == avutil.NoPTSValue {
			return ErrMissingTimestamp
		}
		// Rebase onto the trim window and let the encoder pick frame types.
		avutil.SetFramePTS(t.frame, ts-t.startPTS)
		avutil.SetFramePictType(t.frame, avutil.PictureTypeNone)

		if err := avcodec.SendFrame(t.encCtx, t.frame); err != nil {
			return err
		}
		if err := t.drainPackets(sink); err != nil {
			return err
		}
	}
}

func (t *videoTranscoder) flushFilter() error { return nil }

func (t *videoTranscoder) drainFiltered(_ *outputSink) error { return nil }

func (t *videoTranscoder) sendEncoderEOF() error {
	return avcodec.SendFrame(t.encCtx, nil)
}

func (t *videoTranscoder) drainPackets(sink *outputSink) error {
	for {
		err := avcodec.ReceivePacket(t.encCtx, t.pkt)
		if avutil.IsAgain(err) || avutil.IsEOF(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := sink.writePacket(t.pkt, t.outIndex, t.inputTb); err != nil {
			return err
		}
	}
}

func (t *videoTranscoder) outputIndex() int { return t.outIndex }

func (t *videoTranscoder) close() {
	avcodec.PacketFree(&t.pkt)
	avutil.FrameFree(&t.frame)
	avcodec.FreeContext(&t.encCtx)
	avcodec.FreeContext(&t.decCtx)
}

// audioTranscoder re-encodes one audio stream to AAC, routing every decoded
// frame through the overlay filter graph.
type audioTranscoder struct {
	outIndex int
	inputTb  avutil.Rational
	startPTS int64

	decCtx    avcodec.Context
	encCtx    avcodec.Context
	graph     *audioFilterGraph
	frame     avutil.Frame
	filtFrame avutil.Frame
	pkt       avcodec.Packet
}

func newAudioTranscoder(ist avformat.Stream, outCtx avformat.FormatContext, outIndex int, spec string, window TimeWindow, logger *slog.Logger) (*audioTranscoder, error) {
	decCtx, err := openDecoder(avformat.GetStreamCodecPar(ist))
	if err != nil {
		return nil, err
	}

	t := &audioTranscoder{
		outIndex: outIndex,
		inputTb:  avformat.GetStreamTimeBase(ist),
		decCtx:   decCtx,
	}
	t.startPTS = window.StartIn(t.inputTb)

	encCodec := avcodec.FindEncoder(avcodec.CodecIDAAC)
	if encCodec == nil {
		t.close()
		return nil, avutil.NewError(avutil.AVERROR_ENCODER_NOT_FOUND, "avcodec_find_encoder")
	}
	ost := avformat.NewStream(outCtx, encCodec)
	if ost == nil {
		t.close()
		return nil, fmt.Errorf("annotai: adding audio output stream")
	}
	encCtx := avcodec.AllocContext3(encCodec)
	if encCtx == nil {
		t.close()
		return nil, fmt.Errorf("annotai: allocating aac encoder context")
	}
	t.encCtx = encCtx

	if err := setEncoderChannelLayout(encCtx, encCodec, decCtx); err != nil {
		t.close()
		return nil, err
	}
	rate := avcodec.GetCtxSampleRate(decCtx)
	avcodec.SetCtxSampleRate(encCtx, rate)
	fmts := avcodec.GetCodecSampleFmts(encCodec)
	if len(fmts) == 0 {
		t.close()
		return nil, fmt.Errorf("annotai: %s advertises no sample formats", avcodec.GetCodecName(encCodec))
	}
	avcodec.SetCtxSampleFmt(encCtx, fmts[0])
	avcodec.SetCtxBitRate(encCtx, avcodec.GetCtxBitRate(decCtx))
	if maxRate, err := avutil.OptGetInt(decCtx, "maxrate", 0); err == nil && maxRate > 0 {
		avutil.OptSetInt(encCtx, "maxrate", maxRate, 0)
	}
	avcodec.SetCtxTimeBase(encCtx, avutil.NewRational(1, rate))
	avformat.SetStreamTimeBase(ost, avutil.NewRational(1, rate))
	if avformat.NeedsGlobalHeader(outCtx) {
		avcodec.SetCtxFlags(encCtx, avcodec.GetCtxFlags(encCtx)|avcodec.CodecFlagGlobalHeader)
	}

	if err := avcodec.Open2(encCtx, encCodec, nil); err != nil {
		t.close()
		return nil, err
	}
	if err := avcodec.ParametersFromContext(avformat.GetStreamCodecPar(ost), encCtx); err != nil {
		t.close()
		return nil, err
	}

	graph, err := newAudioFilterGraph(spec, decCtx, encCodec, encCtx, logger)
	if err != nil {
		t.close()
		return nil, err
	}
	t.graph = graph

	if t.frame = avutil.FrameAlloc(); t.frame == nil {
		t.close()
		return nil, fmt.Errorf("annotai: allocating frame")
	}
	if t.filtFrame = avutil.FrameAlloc(); t.filtFrame == nil {
		t.close()
		return nil, fmt.Errorf("annotai: allocating filtered frame")
	}
	if t.pkt = avcodec.PacketAlloc(); t.pkt == nil {
		t.close()
		return nil, fmt.Errorf("annotai: allocating packet")
	}
	return t, nil
}

// setEncoderChannelLayout picks the densest encoder-supported layout that
// does not exceed the source channel count. Encoders without a layout list
// get stereo.
func setEncoderChannelLayout(encCtx avcodec.Context, encCodec avcodec.Codec, decCtx avcodec.Context) error {
	dst := avcodec.GetCtxChLayoutPtr(encCtx)
	layouts := avcodec.GetCodecChannelLayouts(encCodec)
	if len(layouts) == 0 {
		avutil.ChannelLayoutDefault(dst, 2)
		return nil
	}

	srcChannels := avutil.GetChannelLayoutNbChannels(avcodec.GetCtxChLayoutPtr(decCtx))
	best := layouts[0]
	bestChannels := avutil.GetChannelLayoutNbChannels(best)
	for _, l := range layouts[1:] {
		n := avutil.GetChannelLayoutNbChannels(l)
		if bestChannels > srcChannels {
			// Still looking for anything that fits; take the smallest.
			if n < bestChannels {
				best, bestChannels = l, n
			}
			continue
		}
		if n > bestChannels && n <= srcChannels {
			best, bestChannels = l, n
		}
	}
	return avutil.ChannelLayoutCopy(dst, best)
}

func (t *audioTranscoder) sendPacket(pkt avcodec.Packet) error {
	return avcodec.SendPacket(t.decCtx, pkt)
}

func (t *audioTranscoder) sendDecoderEOF() error {
	return avcodec.SendPacket(t.decCtx, nil)
}

func (t *audioTranscoder) drainFrames(sink *outputSink) error {
	for {
		avutil.FrameUnref(t.frame)
		err := avcodec.ReceiveFrame(t.decCtx, t.frame)
		if avutil.IsAgain(err) || avutil.IsEOF(err) {
			return nil
		}
		if err != nil {
			return err
		}

		ts := avutil.GetFrameBestEffortTS(t.frame)
		if ts == avutil.NoPTSValue {
			return ErrMissingTimestamp
		}
		avutil.SetFramePTS(t.frame, ts-t.startPTS)

		if err := t.graph.push(t.frame); err != nil {
			return err
		}
		if err := t.drainFiltered(sink); err != nil {
			return err
		}
	}
}

func (t *audioTranscoder) flushFilter() error {
	return t.graph.flush()
}

func (t *audioTranscoder) drainFiltered(sink *outputSink) error {
	for {
		avutil.FrameUnref(t.filtFrame)
		err := t.graph.pull(t.filtFrame)
		if avutil.IsAgain(err) || avutil.IsEOF(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := avcodec.SendFrame(t.encCtx, t.filtFrame); err != nil {
			return err
		}
		if err := t.drainPackets(sink); err != nil {
			return err
		}
	}
}

func (t *audioTranscoder) sendEncoderEOF() error {
	return avcodec.SendFrame(t.encCtx, nil)
}

func (t *audioTranscoder) drainPackets(sink *outputSink) error {
	for {
		err := avcodec.ReceivePacket(t.encCtx, t.pkt)
		if avutil.IsAgain(err) || avutil.IsEOF(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := sink.writePacket(t.pkt, t.outIndex, t.inputTb); err != nil {
			return err
		}
	}
}

func (t *audioTranscoder) outputIndex() int { return t.outIndex }

func (t *audioTranscoder) close() {
	avcodec.PacketFree(&t.pkt)
	avutil.FrameFree(&t.filtFrame)
	avutil.FrameFree(&t.frame)
	if t.graph != nil {
		t.graph.close()
		t.graph = nil
	}
	avcodec.FreeContext(&t.encCtx)
	avcodec.FreeContext(&t.decCtx)
}
