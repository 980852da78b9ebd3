//go:build !ios && !android && (amd64 || arm64)

package avcodec

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

func TestFindCodecs(t *testing.T) {
	skipIfNoFFmpeg(t)

	// both ship with every FFmpeg build
	dec := FindDecoder(CodecIDH264)
	if dec == nil {
		t.Fatal("no h264 decoder")
	}
	if name := GetCodecName(dec); name == "" {
		t.Error("h264 decoder has no name")
	} else {
		t.Logf("h264 decoder: %s", name)
	}

	enc := FindEncoder(CodecIDAAC)
	if enc == nil {
		t.Fatal("no aac encoder")
	}
	t.Logf("aac encoder: %s", GetCodecName(enc))

	if FindDecoder(CodecID(999999)) != nil {
		t.Error("found a decoder for a nonsense codec ID")
	}
}

func TestAllocFreeContext(t *testing.T) {
	skipIfNoFFmpeg(t)

	codec := FindDecoder(CodecIDH264)
	if codec == nil {
		t.Skip("h264 decoder not found")
	}

	ctx := AllocContext3(codec)
	if ctx == nil {
		t.Fatal("AllocContext3 returned nil")
	}

	FreeContext(&ctx)
	if ctx != nil {
		t.Error("context pointer not cleared by FreeContext")
	}

	// second free on the cleared pointer is a no-op
	FreeContext(&ctx)
}

// Opens the AAC encoder the way the transcoder does and checks the opened
// context reports its fixed frame size.
func TestOpenAACEncoder(t *testing.T) {
	skipIfNoFFmpeg(t)

	codec := FindEncoder(CodecIDAAC)
	if codec == nil {
		t.Skip("aac encoder not found")
	}

	ctx := AllocContext3(codec)
	if ctx == nil {
		t.Fatal("AllocContext3 returned nil")
	}
	defer FreeContext(&ctx)

	SetCtxSampleRate(ctx, 44100)
	SetCtxSampleFmt(ctx, avutil.SampleFormatFltP)
	SetCtxTimeBase(ctx, avutil.NewRational(1, 44100))
	avutil.ChannelLayoutDefault(GetCtxChLayoutPtr(ctx), 2)

	if err := Open2(ctx, codec, nil); err != nil {
		t.Fatalf("Open2: %v", err)
	}

	if rate := GetCtxSampleRate(ctx); rate != 44100 {
		t.Errorf("sample rate = %d, want 44100", rate)
	}
	if fmt := GetCtxSampleFmt(ctx); fmt != avutil.SampleFormatFltP {
		t.Errorf("sample format = %v, want fltp", fmt)
	}
	if fs := GetCtxFrameSize(ctx); fs <= 0 {
		t.Errorf("frame size = %d, want positive for aac", fs)
	}
}

func TestPacketAllocFree(t *testing.T) {
	skipIfNoFFmpeg(t)

	pkt := PacketAlloc()
	if pkt == nil {
		t.Fatal("PacketAlloc returned nil")
	}

	PacketFree(&pkt)
	if pkt != nil {
		t.Error("packet pointer not cleared by PacketFree")
	}

	PacketFree(&pkt)
}

func TestPacketTimestamps(t *testing.T) {
	skipIfNoFFmpeg(t)

	pkt := PacketAlloc()
	if pkt == nil {
		t.Fatal("PacketAlloc returned nil")
	}
	defer PacketFree(&pkt)

	if pts := GetPacketPTS(pkt); pts != avutil.NoPTSValue {
		t.Errorf("fresh packet PTS = %d, want NoPTSValue", pts)
	}

	SetPacketPTS(pkt, 9000)
	SetPacketDTS(pkt, 8000)
	SetPacketDuration(pkt, 1000)
	SetPacketStreamIndex(pkt, 2)

	if pts := GetPacketPTS(pkt); pts != 9000 {
		t.Errorf("PTS = %d, want 9000", pts)
	}
	if dts := GetPacketDTS(pkt); dts != 8000 {
		t.Errorf("DTS = %d, want 8000", dts)
	}
	if dur := GetPacketDuration(pkt); dur != 1000 {
		t.Errorf("duration = %d, want 1000", dur)
	}
	if idx := GetPacketStreamIndex(pkt); idx != 2 {
		t.Errorf("stream index = %d, want 2", idx)
	}
}

func TestRescalePacketTS(t *testing.T) {
	skipIfNoFFmpeg(t)

	pkt := PacketAlloc()
	if pkt == nil {
		t.Fatal("PacketAlloc returned nil")
	}
	defer PacketFree(&pkt)

	// 90 kHz to milliseconds: 90000 ticks = 1 second = 1000 ms
	SetPacketPTS(pkt, 90000)
	SetPacketDTS(pkt, avutil.NoPTSValue)
	SetPacketDuration(pkt, 3000)

	RescalePacketTS(pkt, avutil.NewRational(1, 90000), avutil.NewRational(1, 1000))

	if pts := GetPacketPTS(pkt); pts != 1000 {
		t.Errorf("rescaled PTS = %d, want 1000", pts)
	}
	if dts := GetPacketDTS(pkt); dts != avutil.NoPTSValue {
		t.Errorf("NoPTSValue DTS should pass through, got %d", dts)
	}
	if dur := GetPacketDuration(pkt); dur != 33 {
		t.Errorf("rescaled duration = %d, want 33", dur)
	}
}

func TestRescaleQ(t *testing.T) {
	// pure arithmetic, no FFmpeg needed
	cases := []struct {
		a        int64
		src, dst avutil.Rational
		want     int64
	}{
		{90000, avutil.NewRational(1, 90000), avutil.NewRational(1, 1000), 1000},
		{1, avutil.NewRational(1, 30), avutil.NewRational(1, 90000), 3000},
		{-90000, avutil.NewRational(1, 90000), avutil.NewRational(1, 1000), -1000},
		{0, avutil.NewRational(1, 90000), avutil.NewRational(1, 1000), 0},
	}
	for _, c := range cases {
		if got := RescaleQ(c.a, c.src, c.dst); got != c.want {
			t.Errorf("RescaleQ(%d, %d/%d, %d/%d) = %d, want %d",
				c.a, c.src.Num, c.src.Den, c.dst.Num, c.dst.Den, got, c.want)
		}
	}
}

func TestCodecSampleFmts(t *testing.T) {
	skipIfNoFFmpeg(t)

	codec := FindEncoder(CodecIDAAC)
	if codec == nil {
		t.Skip("aac encoder not found")
	}

	fmts := GetCodecSampleFmts(codec)
	if len(fmts) == 0 {
		t.Fatal("aac encoder reported no sample formats")
	}
	// the native AAC encoder takes planar float
	found := false
	for _, f := range fmts {
		if f == avutil.SampleFormatFltP {
			found = true
		}
	}
	if !found {
		t.Errorf("fltp missing from aac sample formats %v", fmts)
	}
}

func TestCodecChannelLayouts(t *testing.T) {
	skipIfNoFFmpeg(t)

	codec := FindEncoder(CodecIDAAC)
	if codec == nil {
		t.Skip("aac encoder not found")
	}

	layouts := GetCodecChannelLayouts(codec)
	if len(layouts) == 0 {
		t.Skip("aac encoder does not restrict channel layouts")
	}
	for _, l := range layouts {
		if avutil.GetChannelLayoutNbChannels(l) <= 0 {
			t.Error("channel layout entry with no channels")
		}
	}
}

func TestCodecIDs(t *testing.T) {
	// raw enum values, pinned against FFmpeg's headers
	if CodecIDH264 != 27 {
		t.Errorf("CodecIDH264 = %d, want 27", CodecIDH264)
	}
	if CodecIDHEVC != 173 {
		t.Errorf("CodecIDHEVC = %d, want 173", CodecIDHEVC)
	}
	if CodecIDAAC != 86018 {
		t.Errorf("CodecIDAAC = %d, want 86018", CodecIDAAC)
	}

	if !CodecIDH264.IsVideo() || CodecIDH264.IsAudio() {
		t.Error("h264 not classified as video")
	}
	if !CodecIDAAC.IsAudio() {
		t.Error("aac not classified as audio")
	}
	if !CodecIDMovText.IsSubtitle() {
		t.Error("mov_text not classified as subtitle")
	}

	if got := CodecIDAAC.String(); got != "aac" {
		t.Errorf("CodecIDAAC.String() = %q, want aac", got)
	}
	if got := CodecIDNone.String(); got != "none" {
		t.Errorf("CodecIDNone.String() = %q, want none", got)
	}
	if got := CodecID(424242).String(); got != "unknown" {
		t.Errorf("unmapped ID String() = %q, want unknown", got)
	}
}

func TestVersion(t *testing.T) {
	skipIfNoFFmpeg(t)
	ver := bindings.AVCodecVersion()
	if ver == 0 {
		t.Error("AVCodecVersion returned 0")
	}
	t.Logf("avcodec version: %d.%d.%d", ver>>16, (ver>>8)&0xFF, ver&0xFF)
}
