//go:build !ios && !android && (amd64 || arm64)

// Package avfilter wraps libavfilter: graph construction from textual
// filter descriptions plus the buffer source and sink endpoints for moving
// frames through a configured graph. The audio overlay mixer is built on
// this package.
package avfilter

import (
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/lomavkin/annotai/avutil"
	"github.com/lomavkin/annotai/internal/bindings"
)

// Opaque libavfilter pointers.
type (
	// Graph is an AVFilterGraph.
	Graph = unsafe.Pointer

	// Context is an AVFilterContext, one filter instance inside a graph.
	Context = unsafe.Pointer

	// Filter is an AVFilter, a filter definition from the registry.
	Filter = unsafe.Pointer

	// InOut is an AVFilterInOut, a linked list of open graph pads.
	InOut = unsafe.Pointer
)

// BufferSrcFlagKeepRef makes av_buffersrc_add_frame keep a reference on
// the pushed frame instead of taking ownership, so the caller can reuse
// it. Other AV_BUFFERSRC_FLAG_* values pass through as raw int32.
const BufferSrcFlagKeepRef int32 = 8

var (
	avfilterGraphAlloc        func() uintptr
	avfilterGraphFree         func(graph *Graph)
	avfilterGraphConfig       func(graph, logCtx uintptr) int32
	avfilterGraphParse2       func(graph uintptr, filters *byte, inputs, outputs *InOut) int32
	avfilterGraphCreateFilter func(filtCtx *Context, filt, name, args, opaque, graph uintptr) int32
	avfilterGraphDump         func(graph uintptr, options *byte) uintptr
	avfilterGetByName         func(name *byte) uintptr
	avfilterLink              func(src uintptr, srcPad uint32, dst uintptr, dstPad uint32) int32
	avfilterInoutFree         func(inout *InOut)

	avBuffersrcAddFrameFlags func(ctx, frame uintptr, flags int32) int32
	avBuffersinkGetFrame     func(ctx, frame uintptr) int32
	avBuffersinkSetFrameSize func(ctx uintptr, frameSize uint32)

	bindingsRegistered bool
)

func init() {
	registerBindings()
}

func registerBindings() {
	if bindingsRegistered {
		return
	}

	if err := bindings.Load(); err != nil {
		return
	}

	lib := bindings.LibAVFilter()
	if lib == 0 {
		return
	}

	purego.RegisterLibFunc(&avfilterGraphAlloc, lib, "avfilter_graph_alloc")
	purego.RegisterLibFunc(&avfilterGraphFree, lib, "avfilter_graph_free")
	purego.RegisterLibFunc(&avfilterGraphConfig, lib, "avfilter_graph_config")
	purego.RegisterLibFunc(&avfilterGraphParse2, lib, "avfilter_graph_parse2")
	purego.RegisterLibFunc(&avfilterGraphCreateFilter, lib, "avfilter_graph_create_filter")
	purego.RegisterLibFunc(&avfilterGraphDump, lib, "avfilter_graph_dump")
	purego.RegisterLibFunc(&avfilterGetByName, lib, "avfilter_get_by_name")
	purego.RegisterLibFunc(&avfilterLink, lib, "avfilter_link")
	purego.RegisterLibFunc(&avfilterInoutFree, lib, "avfilter_inout_free")

	purego.RegisterLibFunc(&avBuffersrcAddFrameFlags, lib, "av_buffersrc_add_frame_flags")
	purego.RegisterLibFunc(&avBuffersinkGetFrame, lib, "av_buffersink_get_frame")
	purego.RegisterLibFunc(&avBuffersinkSetFrameSize, lib, "av_buffersink_set_frame_size")

	bindingsRegistered = true
}

// GraphAlloc allocates an empty filter graph. Release with GraphFree.
func GraphAlloc() Graph {
	if avfilterGraphAlloc == nil {
		return nil
	}
	return unsafe.Pointer(avfilterGraphAlloc())
}

// GraphFree frees the graph together with every filter in it and nils the
// pointer. Tolerates nil.
func GraphFree(graph *Graph) {
	if avfilterGraphFree == nil || graph == nil || *graph == nil {
		return
	}
	avfilterGraphFree(graph)
}

// GraphConfig validates the graph and negotiates formats on all links.
// Call once after every filter is created and linked.
func GraphConfig(graph Graph) error {
	if avfilterGraphConfig == nil {
		return bindings.ErrNotLoaded
	}
	if ret := avfilterGraphConfig(uintptr(graph), 0); ret < 0 {
		return avutil.NewError(ret, "avfilter_graph_config")
	}
	return nil
}

// GraphDump renders the configured graph as text for debug logging.
func GraphDump(graph Graph) string {
	if avfilterGraphDump == nil || graph == nil {
		return ""
	}
	ptr := avfilterGraphDump(uintptr(graph), nil)
	if ptr == 0 {
		return ""
	}
	defer avutil.Free(unsafe.Pointer(ptr))
	return goString(unsafe.Pointer(ptr))
}

// GraphParse2 parses a textual filter chain into the graph. inputs lists
// the chain's open input pads, still to be fed from a buffer source;
// outputs lists the open output pads, still to be drained into a buffer
// sink. Free both with InOutFree.
func GraphParse2(graph Graph, filters string) (inputs, outputs InOut, err error) {
	if avfilterGraphParse2 == nil {
		return nil, nil, bindings.ErrNotLoaded
	}
	ret := avfilterGraphParse2(uintptr(graph), cString(filters), &inputs, &outputs)
	if ret < 0 {
		return nil, nil, avutil.NewError(ret, "avfilter_graph_parse2")
	}
	return inputs, outputs, nil
}

// InOutFree releases an AVFilterInOut list and nils the pointer.
func InOutFree(inout *InOut) {
	if avfilterInoutFree == nil || inout == nil || *inout == nil {
		return
	}
	avfilterInoutFree(inout)
}

// AVFilterInOut field offsets for FFmpeg 6.x. The name pointer at offset 0
// is not read; pads are matched by list position.
const (
	offsetInOutFilterCtx = 8  // AVFilterContext *filter_ctx
	offsetInOutPadIdx    = 16 // int pad_idx
	offsetInOutNext      = 24 // struct AVFilterInOut *next
)

// InOutGetFilterCtx returns the filter the open pad belongs to.
func InOutGetFilterCtx(inout InOut) Context {
	if inout == nil {
		return nil
	}
	return *(*unsafe.Pointer)(unsafe.Pointer(uintptr(inout) + offsetInOutFilterCtx))
}

// InOutGetPadIdx returns the pad index on that filter.
func InOutGetPadIdx(inout InOut) int32 {
	if inout == nil {
		return 0
	}
	return *(*int32)(unsafe.Pointer(uintptr(inout) + offsetInOutPadIdx))
}

// InOutGetNext returns the following list entry, nil at the end.
func InOutGetNext(inout InOut) InOut {
	if inout == nil {
		return nil
	}
	return *(*unsafe.Pointer)(unsafe.Pointer(uintptr(inout) + offsetInOutNext))
}

// GetByName looks up a filter definition, "abuffer" or "amix" for example.
// Returns nil for unknown names.
func GetByName(name string) Filter {
	if avfilterGetByName == nil {
		return nil
	}
	return unsafe.Pointer(avfilterGetByName(cString(name)))
}

// GraphCreateFilter instantiates filter in the graph under the given
// instance name, with args as its option string.
func GraphCreateFilter(graph Graph, filter Filter, name, args string) (Context, error) {
	if avfilterGraphCreateFilter == nil {
		return nil, bindings.ErrNotLoaded
	}
	if filter == nil {
		return nil, avutil.NewError(avutil.AVERROR_FILTER_NOT_FOUND, "avfilter_graph_create_filter")
	}

	var ctx Context
	ret := avfilterGraphCreateFilter(
		&ctx,
		uintptr(filter),
		uintptr(unsafe.Pointer(cString(name))),
		uintptr(unsafe.Pointer(cString(args))),
		0,
		uintptr(graph),
	)
	if ret < 0 {
		return nil, avutil.NewError(ret, "avfilter_graph_create_filter")
	}
	return ctx, nil
}

// Link connects output pad srcPad of src to input pad dstPad of dst.
func Link(src Context, srcPad uint32, dst Context, dstPad uint32) error {
	if avfilterLink == nil {
		return bindings.ErrNotLoaded
	}
	if ret := avfilterLink(uintptr(src), srcPad, uintptr(dst), dstPad); ret < 0 {
		return avutil.NewError(ret, "avfilter_link")
	}
	return nil
}

// BufferSrcAddFrame pushes a frame into a buffer source. nil flushes the
// source, signalling end of stream to the graph.
func BufferSrcAddFrame(ctx Context, frame avutil.Frame, flags int32) error {
	if avBuffersrcAddFrameFlags == nil {
		return bindings.ErrNotLoaded
	}
	if ret := avBuffersrcAddFrameFlags(uintptr(ctx), uintptr(frame), flags); ret < 0 {
		return avutil.NewError(ret, "av_buffersrc_add_frame_flags")
	}
	return nil
}

// BufferSinkGetFrame pulls the next filtered frame from a buffer sink.
// The error satisfies avutil.IsAgain while the graph wants more input and
// avutil.IsEOF once it is drained.
func BufferSinkGetFrame(ctx Context, frame avutil.Frame) error {
	if avBuffersinkGetFrame == nil {
		return bindings.ErrNotLoaded
	}
	if ret := avBuffersinkGetFrame(uintptr(ctx), uintptr(frame)); ret < 0 {
		return avutil.NewError(ret, "av_buffersink_get_frame")
	}
	return nil
}

// BufferSinkSetFrameSize forces the sink to emit exactly frameSize samples
// per frame, which fixed-frame-size audio encoders such as AAC need. Only
// valid on a configured graph.
func BufferSinkSetFrameSize(ctx Context, frameSize uint32) {
	if avBuffersinkSetFrameSize == nil || ctx == nil {
		return
	}
	avBuffersinkSetFrameSize(uintptr(ctx), frameSize)
}

func cString(s string) *byte {
	if s == "" {
		return nil
	}
	b := append([]byte(s), 0)
	return &b[0]
}

func goString(p unsafe.Pointer) string {
	if p == nil {
		return ""
	}
	var n int
	for *(*byte)(unsafe.Pointer(uintptr(p) + uintptr(n))) != 0 {
		n++
	}
	return string(unsafe.Slice((*byte)(p), n))
}
