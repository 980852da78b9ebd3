//go:build !ios && !android && (amd64 || arm64)

package annotai

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/lomavkin/annotai/avcodec"
	"github.com/lomavkin/annotai/avfilter"
	"github.com/lomavkin/annotai/avutil"
)

// OverlayMix describes an optional narration track to mix into the program
// audio. The zero value means no overlay.
type OverlayMix struct {
	// Path is the narration audio file read by the amovie source.
	Path string
}

// Spec renders the libavfilter graph description applied to every decoded
// audio frame. Without an overlay the audio passes through unchanged. With
// one, the narration is sped up and boosted, the program audio is ducked,
// and the two are mixed until the shorter input ends.
func (m OverlayMix) Spec() string {
	if m.Path == "" {
		return "anull"
	}
	return fmt.Sprintf("amovie=%s,atempo=1.25,volume=1.2 [ov]; [in]volume=0.8 [in_vol]; [in_vol][ov] amix=inputs=2:duration=shortest [out]", m.Path)
}

// audioFilterGraph runs decoded audio frames through a parsed filter spec,
// resampling and reformatting as needed to satisfy the encoder.
type audioFilterGraph struct {
	graph avfilter.Graph
	src   avfilter.Context
	sink  avfilter.Context
}

// newAudioFilterGraph builds abuffer -> spec -> abuffersink. The source is
// shaped after the opened decoder, the sink is pinned to the opened
// encoder's format, layout and rate so buffersink inserts any conversions.
func newAudioFilterGraph(spec string, decCtx avcodec.Context, encCodec avcodec.Codec, encCtx avcodec.Context, logger *slog.Logger) (*audioFilterGraph, error) {
	graph := avfilter.GraphAlloc()
	if graph == nil {
		return nil, fmt.Errorf("annotai: allocating filter graph")
	}
	ok := false
	defer func() {
		if !ok {
			avfilter.GraphFree(&graph)
		}
	}()

	decRate := avcodec.GetCtxSampleRate(decCtx)
	decTb := avcodec.GetCtxTimeBase(decCtx)
	if decTb.Num == 0 || decTb.Den == 0 {
		decTb = avutil.NewRational(1, decRate)
	}
	decMask := avutil.GetChannelLayoutMask(avcodec.GetCtxChLayoutPtr(decCtx))
	if decMask == 0 {
		decMask = avutil.DefaultChannelLayoutMask(avutil.GetChannelLayoutNbChannels(avcodec.GetCtxChLayoutPtr(decCtx)))
	}
	srcArgs := fmt.Sprintf("time_base=%d/%d:sample_rate=%d:sample_fmt=%s:channel_layout=0x%x",
		decTb.Num, decTb.Den, decRate, avcodec.GetCtxSampleFmt(decCtx).Name(), decMask)

	src, err := avfilter.GraphCreateFilter(graph, avfilter.GetByName("abuffer"), "in", srcArgs)
	if err != nil {
		return nil, fmt.Errorf("annotai: creating audio buffer source: %w", err)
	}
	sink, err := avfilter.GraphCreateFilter(graph, avfilter.GetByName("abuffersink"), "out", "")
	if err != nil {
		return nil, fmt.Errorf("annotai: creating audio buffer sink: %w", err)
	}

	encFmt := int32(avcodec.GetCtxSampleFmt(encCtx))
	if err := avutil.OptSetBin(sink, "sample_fmts", unsafe.Pointer(&encFmt), 4, avutil.AVOptionSearchChildren); err != nil {
		return nil, fmt.Errorf("annotai: pinning sink sample format: %w", err)
	}
	encMask := avutil.GetChannelLayoutMask(avcodec.GetCtxChLayoutPtr(encCtx))
	if encMask == 0 {
		encMask = avutil.DefaultChannelLayoutMask(avutil.GetChannelLayoutNbChannels(avcodec.GetCtxChLayoutPtr(encCtx)))
	}
	if err := avutil.OptSet(sink, "ch_layouts", fmt.Sprintf("0x%x", encMask), avutil.AVOptionSearchChildren); err != nil {
		return nil, fmt.Errorf("annotai: pinning sink channel layout: %w", err)
	}
	encRate := avcodec.GetCtxSampleRate(encCtx)
	if err := avutil.OptSetBin(sink, "sample_rates", unsafe.Pointer(&encRate), 4, avutil.AVOptionSearchChildren); err != nil {
		return nil, fmt.Errorf("annotai: pinning sink sample rate: %w", err)
	}

	inputs, outputs, err := avfilter.GraphParse2(graph, spec)
	if err != nil {
		return nil, fmt.Errorf("annotai: parsing filter spec %q: %w", spec, err)
	}
	defer avfilter.InOutFree(&inputs)
	defer avfilter.InOutFree(&outputs)

	for in := inputs; in != nil; in = avfilter.InOutGetNext(in) {
		if err := avfilter.Link(src, 0, avfilter.InOutGetFilterCtx(in), uint32(avfilter.InOutGetPadIdx(in))); err != nil {
			return nil, fmt.Errorf("annotai: linking buffer source: %w", err)
		}
	}
	for out := outputs; out != nil; out = avfilter.InOutGetNext(out) {
		if err := avfilter.Link(avfilter.InOutGetFilterCtx(out), uint32(avfilter.InOutGetPadIdx(out)), sink, 0); err != nil {
			return nil, fmt.Errorf("annotai: linking buffer sink: %w", err)
		}
	}

	if err := avfilter.GraphConfig(graph); err != nil {
		return nil, fmt.Errorf("annotai: configuring filter graph: %w", err)
	}

	// Fixed-frame-size encoders (AAC) need the sink to regroup samples.
	if avcodec.GetCodecCapabilities(encCodec)&avcodec.CodecCapVariableFrameSize == 0 {
		avfilter.BufferSinkSetFrameSize(sink, uint32(avcodec.GetCtxFrameSize(encCtx)))
	}

	logger.Debug("audio filter graph configured", slog.String("dump", avfilter.GraphDump(graph)))

	ok = true
	return &audioFilterGraph{graph: graph, src: src, sink: sink}, nil
}

// push feeds a decoded frame into the graph. The frame is not consumed.
func (g *audioFilterGraph) push(frame avutil.Frame) error {
	return avfilter.BufferSrcAddFrame(g.src, frame, avfilter.BufferSrcFlagKeepRef)
}

// flush signals end of stream to the graph.
func (g *audioFilterGraph) flush() error {
	return avfilter.BufferSrcAddFrame(g.src, nil, 0)
}

// pull retrieves the next filtered frame. Returns an error satisfying
// avutil.IsAgain when the graph needs more input, avutil.IsEOF when fully
// drained.
func (g *audioFilterGraph) pull(frame avutil.Frame) error {
	return avfilter.BufferSinkGetFrame(g.sink, frame)
}

func (g *audioFilterGraph) close() {
	avfilter.GraphFree(&g.graph)
	g.src = nil
	g.sink = nil
}
