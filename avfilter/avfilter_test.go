//go:build !ios && !android && (amd64 || arm64)

package avfilter

import (
	"os"
	"testing"

	"github.com/lomavkin/annotai/avutil"
	"github.com/lomavkin/annotai/internal/bindings"
)

var ffmpegAvailable bool

func TestMain(m *testing.M) {
	if err := bindings.Load(); err == nil {
		ffmpegAvailable = true
	}
	os.Exit(m.Run())
}

func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if !ffmpegAvailable {
		t.Skip("FFmpeg not available")
	}
}

func newGraph(t *testing.T) Graph {
	t.Helper()
	graph := GraphAlloc()
	if graph == nil {
		t.Fatal("GraphAlloc returned nil")
	}
	t.Cleanup(func() { GraphFree(&graph) })
	return graph
}

func mustCreateFilter(t *testing.T, graph Graph, filter, instance, args string) Context {
	t.Helper()
	ctx, err := GraphCreateFilter(graph, GetByName(filter), instance, args)
	if err != nil {
		t.Fatalf("create %s: %v", filter, err)
	}
	return ctx
}

func TestGetByName(t *testing.T) {
	skipIfNoFFmpeg(t)

	tests := []struct {
		name string
		want bool
	}{
		{"buffer", true},
		{"buffersink", true},
		{"abuffer", true},
		{"abuffersink", true},
		{"amix", true},
		{"volume", true},
		{"atempo", true},
		{"anull", true},
		{"amovie", true},
		{"nonexistent_filter_xyz123", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := GetByName(tc.name) != nil
			if got != tc.want {
				t.Errorf("GetByName(%q) found=%v, want %v", tc.name, got, tc.want)
			}
		})
	}
}

func TestGraphAllocFree(t *testing.T) {
	skipIfNoFFmpeg(t)

	graph := GraphAlloc()
	if graph == nil {
		t.Fatal("GraphAlloc returned nil")
	}

	GraphFree(&graph)
	if graph != nil {
		t.Error("graph pointer not cleared by GraphFree")
	}

	// second free on the cleared pointer is a no-op
	GraphFree(&graph)
}

func TestGraphParse2(t *testing.T) {
	skipIfNoFFmpeg(t)
	graph := newGraph(t)

	inputs, outputs, err := GraphParse2(graph, "anull")
	if err != nil {
		t.Fatalf("GraphParse2: %v", err)
	}
	defer InOutFree(&inputs)
	defer InOutFree(&outputs)

	// anull has one open input and one open output
	if inputs == nil {
		t.Fatal("expected an open input")
	}
	if outputs == nil {
		t.Fatal("expected an open output")
	}
	if InOutGetFilterCtx(inputs) == nil {
		t.Error("input entry has no filter context")
	}
	if InOutGetFilterCtx(outputs) == nil {
		t.Error("output entry has no filter context")
	}
	if next := InOutGetNext(inputs); next != nil {
		t.Error("anull should have exactly one open input")
	}
}

func TestGraphParse2Invalid(t *testing.T) {
	skipIfNoFFmpeg(t)
	graph := newGraph(t)

	if _, _, err := GraphParse2(graph, "definitely_not_a_filter=x=1"); err == nil {
		t.Fatal("GraphParse2 accepted an unknown filter")
	}
}

// Builds buffer -> null -> buffersink by hand, pushes one video frame
// through and pulls it back out.
func TestVideoPassthroughGraph(t *testing.T) {
	skipIfNoFFmpeg(t)
	graph := newGraph(t)

	src := mustCreateFilter(t, graph, "buffer", "in",
		"video_size=320x240:pix_fmt=0:time_base=1/30:pixel_aspect=1/1")
	sink := mustCreateFilter(t, graph, "buffersink", "out", "")

	inputs, outputs, err := GraphParse2(graph, "null")
	if err != nil {
		t.Fatalf("GraphParse2: %v", err)
	}
	defer InOutFree(&inputs)
	defer InOutFree(&outputs)

	// Feed the chain's open input from the source, drain its open
	// output into the sink.
	if err := Link(src, 0, InOutGetFilterCtx(inputs), uint32(InOutGetPadIdx(inputs))); err != nil {
		t.Fatalf("link source: %v", err)
	}
	if err := Link(InOutGetFilterCtx(outputs), uint32(InOutGetPadIdx(outputs)), sink, 0); err != nil {
		t.Fatalf("link sink: %v", err)
	}

	if err := GraphConfig(graph); err != nil {
		t.Fatalf("GraphConfig: %v", err)
	}

	if dump := GraphDump(graph); dump == "" {
		t.Error("GraphDump returned empty string for configured graph")
	}

	frame := avutil.FrameAlloc()
	if frame == nil {
		t.Fatal("FrameAlloc returned nil")
	}
	defer avutil.FrameFree(&frame)

	avutil.SetFrameWidth(frame, 320)
	avutil.SetFrameHeight(frame, 240)
	avutil.SetFrameFormat(frame, int32(avutil.PixelFormatYUV420P))
	if err := avutil.FrameGetBuffer(frame, 0); err != nil {
		t.Fatalf("FrameGetBuffer: %v", err)
	}
	avutil.SetFramePTS(frame, 0)

	if err := BufferSrcAddFrame(src, frame, BufferSrcFlagKeepRef); err != nil {
		t.Fatalf("BufferSrcAddFrame: %v", err)
	}

	out := avutil.FrameAlloc()
	defer avutil.FrameFree(&out)

	if err := BufferSinkGetFrame(sink, out); err != nil {
		t.Fatalf("BufferSinkGetFrame: %v", err)
	}
	if w := avutil.GetFrameWidth(out); w != 320 {
		t.Errorf("filtered frame width = %d, want 320", w)
	}
	if h := avutil.GetFrameHeight(out); h != 240 {
		t.Errorf("filtered frame height = %d, want 240", h)
	}
	avutil.FrameUnref(out)

	// one frame in, one frame out
	err = BufferSinkGetFrame(sink, out)
	if err == nil || !avutil.IsAgain(err) {
		t.Errorf("expected EAGAIN from drained sink, got %v", err)
	}
}

// Uses a source filter chain with no open inputs, so frames can be
// pulled from the sink without pushing anything.
func TestAudioSourceGraph(t *testing.T) {
	skipIfNoFFmpeg(t)
	graph := newGraph(t)

	sink := mustCreateFilter(t, graph, "abuffersink", "out", "")

	inputs, outputs, err := GraphParse2(graph, "sine=frequency=440:sample_rate=44100:duration=0.1")
	if err != nil {
		t.Fatalf("GraphParse2: %v", err)
	}
	defer InOutFree(&inputs)
	defer InOutFree(&outputs)

	if inputs != nil {
		t.Fatal("sine source should have no open inputs")
	}
	if outputs == nil {
		t.Fatal("sine source should have an open output")
	}

	if err := Link(InOutGetFilterCtx(outputs), uint32(InOutGetPadIdx(outputs)), sink, 0); err != nil {
		t.Fatalf("link sink: %v", err)
	}
	if err := GraphConfig(graph); err != nil {
		t.Fatalf("GraphConfig: %v", err)
	}

	BufferSinkSetFrameSize(sink, 1024)

	frame := avutil.FrameAlloc()
	defer avutil.FrameFree(&frame)

	frames := 0
	samples := int32(0)
	for {
		err := BufferSinkGetFrame(sink, frame)
		if err != nil {
			if avutil.IsEOF(err) {
				break
			}
			t.Fatalf("BufferSinkGetFrame: %v", err)
		}
		frames++
		samples += avutil.GetFrameNbSamples(frame)
		if rate := avutil.GetFrameSampleRate(frame); rate != 44100 {
			t.Errorf("frame sample rate = %d, want 44100", rate)
		}
		avutil.FrameUnref(frame)
	}

	if frames == 0 {
		t.Fatal("no frames pulled from source graph")
	}
	// 0.1s at 44.1 kHz
	if samples < 4000 || samples > 5000 {
		t.Errorf("total samples = %d, want ~4410", samples)
	}
	t.Logf("pulled %d frames, %d samples", frames, samples)
}

func TestVersion(t *testing.T) {
	skipIfNoFFmpeg(t)
	ver := bindings.AVFilterVersion()
	if ver == 0 {
		t.Error("AVFilterVersion returned 0")
	}
	t.Logf("avfilter version: %d.%d.%d", ver>>16, (ver>>8)&0xFF, ver&0xFF)
}
